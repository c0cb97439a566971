package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ticketops/helpdesk/internal/domain"
	"github.com/ticketops/helpdesk/internal/events"
	"github.com/ticketops/helpdesk/internal/repository"
	apperrors "github.com/ticketops/helpdesk/pkg/util"
)

// TicketService coordinates the ticket workflows the web layer calls into.
// Creation hands off to the AssignmentService trigger; everything else is
// role-guarded CRUD over tickets and their comment threads.
type TicketService struct {
	tickets    repository.TicketRepository
	comments   repository.CommentRepository
	assignment *AssignmentService
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	Assignment  *AssignmentService
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		comments:   deps.CommentRepo,
		assignment: deps.Assignment,
		dispatcher: deps.Dispatcher,
		logger:     logger,
	}
}

// TicketCreateInput describes ticket creation payload. Priority arrives
// already classified by the upstream caller.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketListFilter describes listing filters.
type TicketListFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// CreateTicket inserts the ticket and then fires the assignment trigger,
// which stamps SLA deadlines and attempts immediate assignment. Trigger
// failures are best-effort and never fail the creation itself.
func (s *TicketService) CreateTicket(ctx context.Context, creator *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	if creator == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", nil)
	}

	priority := input.Priority
	if !priority.Valid() {
		// Unrecognized priority is treated as low, never rejected.
		priority = domain.TicketPriorityLow
	}

	ticket := &domain.Ticket{
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   creator.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.assignment.OnTicketCreated(ctx, ticket)

	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &creator.ID},
		Payload: events.TicketCreatedPayload{
			Priority: ticket.Priority,
			Title:    ticket.Title,
		},
	})
	return ticket, nil
}

// GetTicket fetches a ticket with its comment thread, enforcing access.
func (s *TicketService) GetTicket(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, apperrors.MapError(err)
	}
	return ticket, comments, nil
}

// ListTickets returns tickets scoped to the actor: customers see their own,
// agents see their assigned queue, admins see everything.
func (s *TicketService) ListTickets(ctx context.Context, actor *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	repoFilter := repository.TicketFilter{
		Statuses:    filter.Statuses,
		Priorities:  filter.Priorities,
		CreatedFrom: filter.CreatedFrom,
		CreatedTo:   filter.CreatedTo,
		Limit:       filter.Limit,
		Offset:      filter.Offset,
	}
	switch actor.Role {
	case domain.UserRoleAdmin:
	case domain.UserRoleAgent:
		repoFilter.AssignedTo = &actor.ID
	default:
		repoFilter.CreatedBy = &actor.ID
	}
	tickets, err := s.tickets.ListWithFilter(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return tickets, nil
}

// UpdateStatus transitions ticket status. Agents and admins only.
func (s *TicketService) UpdateStatus(ctx context.Context, actor *domain.User, ticketID int64, newStatus domain.TicketStatus) (*domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	if !isValidTransition(ticket.Status, newStatus) {
		return nil, apperrors.NewConflict("invalid status transition", map[string]any{
			"from": ticket.Status,
			"to":   newStatus,
		})
	}
	oldStatus := ticket.Status
	ticket.Status = newStatus
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketStatusChanged,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &actor.ID},
		Payload: events.TicketStatusChangedPayload{
			OldStatus: oldStatus,
			NewStatus: newStatus,
		},
	})
	return ticket, nil
}

// UpdatePriority changes ticket priority. Agents and admins only. Due dates
// stay as stamped at creation.
func (s *TicketService) UpdatePriority(ctx context.Context, actor *domain.User, ticketID int64, newPriority domain.TicketPriority) (*domain.Ticket, error) {
	if err := requireStaff(actor); err != nil {
		return nil, err
	}
	if !newPriority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": newPriority})
	}
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.Priority = newPriority
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	return ticket, nil
}

// ReassignTicket moves a ticket to a specific active agent. Admins only.
func (s *TicketService) ReassignTicket(ctx context.Context, actor *domain.User, ticketID int64, agent *domain.User) (*domain.Ticket, error) {
	if actor == nil || actor.Role != domain.UserRoleAdmin {
		return nil, apperrors.NewForbidden("admin role required")
	}
	if agent == nil || !agent.AssignableAgent() {
		return nil, apperrors.NewConflict("assignee is not an active agent", nil)
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err, ticketID)
	}
	ticket.AssignedTo = &agent.ID
	if ticket.Status == domain.TicketStatusOpen {
		ticket.Status = domain.TicketStatusAssigned
	}
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketAssigned,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &actor.ID},
		Payload:  events.TicketAssignedPayload{AssigneeID: ticket.AssignedTo},
	})
	return ticket, nil
}

// DeleteTicket removes a ticket. Admins only; comments cascade in storage.
func (s *TicketService) DeleteTicket(ctx context.Context, actor *domain.User, ticketID int64) error {
	if actor == nil || actor.Role != domain.UserRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		return mapTicketErr(err, ticketID)
	}
	return nil
}

// AddComment appends a comment to the thread.
func (s *TicketService) AddComment(ctx context.Context, actor *domain.User, ticketID int64, text string) (*domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.NewValidationError("comment text is required", nil)
	}
	ticket, err := s.getAccessible(ctx, actor, ticketID)
	if err != nil {
		return nil, err
	}
	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: actor.ID,
		Text:     text,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticket.ID,
		Actor:    events.Actor{UserID: &actor.ID},
		Payload: events.TicketCommentAddedPayload{
			CommentID: comment.ID,
			AuthorID:  comment.AuthorID,
		},
	})
	return comment, nil
}

func (s *TicketService) getAccessible(ctx context.Context, actor *domain.User, ticketID int64) (*domain.Ticket, error) {
	if actor == nil {
		return nil, apperrors.NewUnauthorized("authentication required")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapTicketErr(err, ticketID)
	}
	if !canAccess(actor, ticket) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return ticket, nil
}

func canAccess(actor *domain.User, ticket *domain.Ticket) bool {
	switch actor.Role {
	case domain.UserRoleAdmin:
		return true
	case domain.UserRoleAgent:
		if ticket.AssignedTo != nil && *ticket.AssignedTo == actor.ID {
			return true
		}
		return ticket.CreatedBy == actor.ID
	default:
		return ticket.CreatedBy == actor.ID
	}
}

func requireStaff(actor *domain.User) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if actor.Role != domain.UserRoleAgent && actor.Role != domain.UserRoleAdmin {
		return apperrors.NewForbidden("agent or admin role required")
	}
	return nil
}

func mapTicketErr(err error, ticketID int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("ticket", map[string]any{"ticket_id": ticketID})
	}
	return apperrors.MapError(err)
}

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen:             {domain.TicketStatusAssigned, domain.TicketStatusInProgress, domain.TicketStatusClosed},
	domain.TicketStatusAssigned:         {domain.TicketStatusInProgress, domain.TicketStatusAwaitingCustomer, domain.TicketStatusResolved},
	domain.TicketStatusInProgress:       {domain.TicketStatusAwaitingCustomer, domain.TicketStatusResolved},
	domain.TicketStatusAwaitingCustomer: {domain.TicketStatusInProgress, domain.TicketStatusResolved},
	domain.TicketStatusResolved:         {domain.TicketStatusClosed, domain.TicketStatusReopened},
	domain.TicketStatusReopened:         {domain.TicketStatusInProgress, domain.TicketStatusResolved, domain.TicketStatusClosed},
	domain.TicketStatusClosed:           {},
}

func isValidTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
