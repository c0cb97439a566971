package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ticketops/helpdesk/internal/api/http/handlers"
	"github.com/ticketops/helpdesk/internal/auth"
	"github.com/ticketops/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Agents         *handlers.AgentsHandler
	AuthMiddleware *auth.Middleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Post("/auth/register", cfg.AuthMiddleware.HandleOptional, cfg.Auth.Register)
	app.Post("/auth/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.Create)
	tickets.Get("", cfg.Tickets.List)
	tickets.Get("/:id", cfg.Tickets.Get)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Patch("/:id/status", auth.RequireRole(domain.UserRoleAgent, domain.UserRoleAdmin), cfg.Tickets.UpdateStatus)
	tickets.Patch("/:id/priority", auth.RequireRole(domain.UserRoleAgent, domain.UserRoleAdmin), cfg.Tickets.UpdatePriority)
	tickets.Patch("/:id/assignee", auth.RequireRole(domain.UserRoleAdmin), cfg.Tickets.Reassign)
	tickets.Delete("/:id", auth.RequireRole(domain.UserRoleAdmin), cfg.Tickets.Delete)

	admin := app.Group("/admin", cfg.AuthMiddleware.Handle, auth.RequireRole(domain.UserRoleAdmin))
	admin.Get("/agents/loads", cfg.Agents.Loads)
	admin.Get("/agents/:id/load", cfg.Agents.Load)
	admin.Post("/sweeps/overdue", cfg.Agents.RunOverdueSweep)
	admin.Post("/sweeps/assignment", cfg.Agents.RunAssignmentSweep)
	admin.Get("/metrics", cfg.Agents.Metrics)
}
