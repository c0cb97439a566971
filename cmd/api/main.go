package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/ticketops/helpdesk/internal/api/http"
	"github.com/ticketops/helpdesk/internal/api/http/handlers"
	"github.com/ticketops/helpdesk/internal/auth"
	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/events"
	"github.com/ticketops/helpdesk/internal/observability"
	"github.com/ticketops/helpdesk/internal/persistence"
	"github.com/ticketops/helpdesk/internal/repository"
	"github.com/ticketops/helpdesk/internal/service"
	"github.com/ticketops/helpdesk/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	rd := persistence.NewRedis(cfg.Redis, logger)
	defer rd.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)

	// The system actor is provisioned before any automated action can need it.
	systemActor, err := userRepo.EnsureSystemActor(ctx)
	if err != nil {
		logger.Fatal("failed to provision system actor", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	var dispatcher events.Dispatcher
	if rd.Ping(ctx) == nil {
		dispatcher = events.NewRedisDispatcher(rd.Client, logger)
	} else {
		dispatcher = events.NewInMemoryDispatcher()
	}

	assignmentService := service.NewAssignmentService(cfg.Assignment, service.AssignmentDependencies{
		TicketRepo:  ticketRepo,
		UserRepo:    userRepo,
		SystemActor: systemActor,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	escalationService := service.NewEscalationService(service.EscalationDependencies{
		TicketRepo:  ticketRepo,
		SystemActor: systemActor,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		CommentRepo: commentRepo,
		Assignment:  assignmentService,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})
	authService := service.NewAuthService(*cfg, userRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	sweeper := worker.NewSweeper(cfg.Assignment.SweepInterval(), map[string]worker.SweepJob{
		"overdue":    escalationService.RunOverdueSweep,
		"assignment": assignmentService.RunAssignmentSweep,
	}, metrics, logger)
	go sweeper.Run(ctx)

	authMiddleware := auth.NewMiddleware(authService.TokenManager(), userRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rd),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService, userRepo),
		Agents:         handlers.NewAgentsHandler(assignmentService, escalationService, metrics),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
