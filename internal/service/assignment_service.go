package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
	"github.com/ticketops/helpdesk/internal/events"
	"github.com/ticketops/helpdesk/internal/observability"
	"github.com/ticketops/helpdesk/internal/repository"
)

// AssignmentService implements weighted load-balancing auto-assignment: the
// on-create trigger, the periodic re-sweep of orphaned tickets and the
// weighted-load read model for the agent dashboard.
type AssignmentService struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	sla         SLAPolicy
	weights     domain.PriorityWeights
	loadCap     int
	systemActor *domain.User
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	now func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	SystemActor *domain.User
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(cfg config.AssignmentConfig, deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		tickets: deps.TicketRepo,
		users:   deps.UserRepo,
		sla:     NewSLAPolicy(cfg),
		weights: domain.PriorityWeights{
			High:   cfg.WeightHigh,
			Medium: cfg.WeightMedium,
			Low:    cfg.WeightLow,
		},
		loadCap:     cfg.LoadCap,
		systemActor: deps.SystemActor,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// WeightedLoad reports an agent's current weighted load for the performance
// dashboard. Read-only; computed fresh from the ticket table.
func (s *AssignmentService) WeightedLoad(ctx context.Context, agentID string) (int, error) {
	return s.tickets.ActiveLoadForAgent(ctx, agentID, s.weights)
}

// AgentLoad pairs an agent with their current weighted load.
type AgentLoad struct {
	Agent domain.User
	Load  int
}

// AgentLoads returns every active agent with their weighted load, ordered by
// agent id, for the dashboard list view.
func (s *AssignmentService) AgentLoads(ctx context.Context) ([]AgentLoad, error) {
	agents, err := s.users.ListAgents(ctx)
	if err != nil {
		return nil, err
	}
	loads, err := s.tickets.ActiveLoadByAssignee(ctx, s.weights)
	if err != nil {
		return nil, err
	}
	result := make([]AgentLoad, 0, len(agents))
	for _, agent := range agents {
		result = append(result, AgentLoad{Agent: agent, Load: loads[agent.ID]})
	}
	return result, nil
}

// selectAgent picks the eligible agent with the strictly smallest weighted
// load, below the cap. Ties break by agent id ascending so the choice is
// reproducible for a given snapshot. A nil agent is a normal outcome, not an
// error. Both the on-create trigger and the assignment sweep go through here.
func (s *AssignmentService) selectAgent(ctx context.Context) (*domain.User, int, error) {
	agents, err := s.users.ListAgents(ctx)
	if err != nil {
		return nil, 0, err
	}
	if len(agents) == 0 {
		return nil, 0, nil
	}

	loads, err := s.tickets.ActiveLoadByAssignee(ctx, s.weights)
	if err != nil {
		return nil, 0, err
	}

	eligible := make([]AgentLoad, 0, len(agents))
	for _, agent := range agents {
		if !agent.AssignableAgent() {
			continue
		}
		if load := loads[agent.ID]; load < s.loadCap {
			eligible = append(eligible, AgentLoad{Agent: agent, Load: load})
		}
	}
	if len(eligible) == 0 {
		return nil, 0, nil
	}

	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].Load == eligible[j].Load {
			return eligible[i].Agent.ID < eligible[j].Agent.ID
		}
		return eligible[i].Load < eligible[j].Load
	})

	best := eligible[0]
	return &best.Agent, best.Load, nil
}

// OnTicketCreated fires synchronously once per ticket immediately after the
// row is inserted, with priority already set by the external classifier.
// Assignment and SLA-deadline stamping are independent best-effort steps: a
// selection failure must not skip SLA-setting, and both land in one update so
// no ticket is ever visible with null due dates after creation completes.
func (s *AssignmentService) OnTicketCreated(ctx context.Context, ticket *domain.Ticket) {
	assigned := false
	if ticket.AssignedTo == nil {
		agent, load, err := s.selectAgent(ctx)
		switch {
		case err != nil:
			s.logger.Error("auto-assignment failed; ticket stays unassigned",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		case agent == nil:
			ticket.Status = domain.TicketStatusOpen
			s.logger.Info("no agent below load cap; ticket remains open",
				zap.Int64("ticket_id", ticket.ID), zap.Int("load_cap", s.loadCap))
		default:
			ticket.AssignedTo = &agent.ID
			ticket.Status = domain.TicketStatusAssigned
			assigned = true
			s.logger.Info("ticket auto-assigned",
				zap.Int64("ticket_id", ticket.ID),
				zap.String("agent", agent.Username),
				zap.Int("agent_load", load))
		}
	}

	now := s.now()
	responseDue, resolutionDue := s.sla.Deadlines(ticket.Priority, now)
	ticket.ResponseDueAt = &responseDue
	ticket.ResolutionDueAt = &resolutionDue

	if err := s.tickets.Update(ctx, ticket); err != nil {
		s.logger.Error("persisting assignment and SLA deadlines failed",
			zap.Int64("ticket_id", ticket.ID), zap.Error(err))
		return
	}

	if assigned {
		s.metrics.RecordAssignment()
		s.publishAssigned(ctx, ticket, false)
	}
}

// RunAssignmentSweep re-attempts assignment for every open, unassigned
// ticket, oldest first so the earliest-filed ticket gets first chance at the
// least-loaded agent. Loads are recomputed between tickets: each successful
// assignment changes the distribution. Returns the number assigned.
func (s *AssignmentService) RunAssignmentSweep(ctx context.Context) (int, error) {
	orphans, err := s.tickets.ListWithFilter(ctx, repository.TicketFilter{
		Statuses:         []domain.TicketStatus{domain.TicketStatusOpen},
		Unassigned:       true,
		OrderOldestFirst: true,
		Limit:            1000,
	})
	if err != nil {
		return 0, err
	}
	if len(orphans) == 0 {
		return 0, nil
	}

	processed := 0
	for i := range orphans {
		ticket := orphans[i]
		agent, _, err := s.selectAgent(ctx)
		if err != nil {
			s.logger.Error("assignment sweep: agent selection failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if agent == nil {
			s.logger.Debug("assignment sweep: no agent below cap",
				zap.Int64("ticket_id", ticket.ID))
			continue
		}

		ticket.AssignedTo = &agent.ID
		ticket.Status = domain.TicketStatusAssigned
		comment := &domain.Comment{
			TicketID: ticket.ID,
			AuthorID: s.systemActor.ID,
			Text: fmt.Sprintf("Automated assignment: this ticket was unassigned and has now been assigned to %s.",
				agent.Username),
		}
		if err := s.tickets.UpdateWithComment(ctx, &ticket, comment); err != nil {
			s.logger.Error("assignment sweep: persisting assignment failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}

		processed++
		s.metrics.RecordAssignment()
		s.publishAssigned(ctx, &ticket, true)
		s.logger.Info("assignment sweep: ticket assigned",
			zap.Int64("ticket_id", ticket.ID), zap.String("agent", agent.Username))
	}
	return processed, nil
}

func (s *AssignmentService) publishAssigned(ctx context.Context, ticket *domain.Ticket, sweep bool) {
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{System: true}
	if s.systemActor != nil {
		actor.UserID = &s.systemActor.ID
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketAssigned,
		TicketID:  ticket.ID,
		Actor:     actor,
		Timestamp: s.now(),
		Payload: events.TicketAssignedPayload{
			AssigneeID: ticket.AssignedTo,
			Sweep:      sweep,
		},
	})
}
