package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ticketops/helpdesk/internal/domain"
	"github.com/ticketops/helpdesk/internal/events"
	"github.com/ticketops/helpdesk/internal/observability"
	"github.com/ticketops/helpdesk/internal/repository"
)

// EscalationService raises the priority of tickets that blew past their
// resolution deadline and leaves an audit trail comment for each.
type EscalationService struct {
	tickets     repository.TicketRepository
	systemActor *domain.User
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger

	now func() time.Time
}

// EscalationDependencies bundles collaborators.
type EscalationDependencies struct {
	TicketRepo  repository.TicketRepository
	SystemActor *domain.User
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
}

// NewEscalationService creates the service.
func NewEscalationService(deps EscalationDependencies) *EscalationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EscalationService{
		tickets:     deps.TicketRepo,
		systemActor: deps.SystemActor,
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
		now:         time.Now,
	}
}

// Escalate raises the ticket one priority level if it is an escalation
// candidate at the given instant, appending the system-actor audit comment in
// the same transaction. Due dates, assignee and status are never touched.
// Returns true when an escalation was applied.
func (s *EscalationService) Escalate(ctx context.Context, ticket *domain.Ticket, now time.Time) (bool, error) {
	if !escalationCandidate(ticket, now) {
		return false, nil
	}

	oldPriority := ticket.Priority
	ticket.Priority = oldPriority.Next()

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: s.systemActor.ID,
		Text: fmt.Sprintf("Automated escalation: this ticket has exceeded its resolution SLA. Priority escalated from %s to %s.",
			strings.ToUpper(string(oldPriority)), strings.ToUpper(string(ticket.Priority))),
	}
	if err := s.tickets.UpdateWithComment(ctx, ticket, comment); err != nil {
		ticket.Priority = oldPriority
		return false, err
	}

	s.metrics.RecordEscalation()
	s.publishEscalated(ctx, ticket, oldPriority)
	s.logger.Info("ticket escalated",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("old_priority", string(oldPriority)),
		zap.String("new_priority", string(ticket.Priority)))
	return true, nil
}

// RunOverdueSweep escalates every candidate ticket. Per-ticket failures are
// logged and skipped; the sweep always finishes its snapshot. Returns the
// number escalated. No candidates is a normal no-op.
func (s *EscalationService) RunOverdueSweep(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.tickets.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	if len(overdue) == 0 {
		return 0, nil
	}

	processed := 0
	for i := range overdue {
		ticket := overdue[i]
		escalated, err := s.Escalate(ctx, &ticket, now)
		if err != nil {
			s.logger.Error("overdue sweep: escalation failed",
				zap.Int64("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if escalated {
			processed++
		}
	}
	return processed, nil
}

// escalationCandidate mirrors the overdue query predicate: an active ticket
// past its resolution deadline that is not already at high priority.
func escalationCandidate(ticket *domain.Ticket, now time.Time) bool {
	if !ticket.Status.IsActive() {
		return false
	}
	if ticket.ResolutionDueAt == nil || !ticket.ResolutionDueAt.Before(now) {
		return false
	}
	return ticket.Priority != domain.TicketPriorityHigh
}

func (s *EscalationService) publishEscalated(ctx context.Context, ticket *domain.Ticket, oldPriority domain.TicketPriority) {
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{System: true}
	if s.systemActor != nil {
		actor.UserID = &s.systemActor.ID
	}
	_ = s.dispatcher.Publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventTicketEscalated,
		TicketID:  ticket.ID,
		Actor:     actor,
		Timestamp: s.now(),
		Payload: events.TicketEscalatedPayload{
			OldPriority: oldPriority,
			NewPriority: ticket.Priority,
		},
	})
}
