package events

import (
	"time"

	"github.com/ticketops/helpdesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketEscalated     EventType = "ticket_escalated"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketCommentAdded  EventType = "ticket_comment_added"
)

// Actor encapsulates actor metadata for an event. System is set for
// automated actions attributed to the system actor.
type Actor struct {
	UserID *string `json:"user_id,omitempty"`
	System bool    `json:"system,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  int64       `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Priority domain.TicketPriority `json:"priority"`
	Title    string                `json:"title"`
}

// TicketAssignedPayload payload. Sweep marks assignments made by the
// periodic re-sweep rather than the on-create trigger.
type TicketAssignedPayload struct {
	AssigneeID *string `json:"assignee_id,omitempty"`
	Sweep      bool    `json:"sweep,omitempty"`
}

// TicketEscalatedPayload payload.
type TicketEscalatedPayload struct {
	OldPriority domain.TicketPriority `json:"old_priority"`
	NewPriority domain.TicketPriority `json:"new_priority"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketCommentAddedPayload payload.
type TicketCommentAddedPayload struct {
	CommentID int64  `json:"comment_id"`
	AuthorID  string `json:"author_id"`
}
