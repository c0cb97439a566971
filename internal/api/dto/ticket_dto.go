package dto

import (
	"time"

	"github.com/ticketops/helpdesk/internal/domain"
)

// CreateTicketRequest payload. Priority is set by the upstream classifier
// before creation; an empty or unknown value falls back to low.
type CreateTicketRequest struct {
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Priority    domain.TicketPriority `json:"priority"`
}

// UpdateStatusRequest payload.
type UpdateStatusRequest struct {
	Status domain.TicketStatus `json:"status"`
}

// UpdatePriorityRequest payload.
type UpdatePriorityRequest struct {
	Priority domain.TicketPriority `json:"priority"`
}

// ReassignRequest payload.
type ReassignRequest struct {
	AgentID string `json:"agent_id"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Text string `json:"text"`
}

// TicketSummary response.
type TicketSummary struct {
	ID              int64                 `json:"id"`
	Title           string                `json:"title"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	AssignedTo      *string               `json:"assigned_to"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
	ResponseDueAt   *time.Time            `json:"response_due_at"`
	ResolutionDueAt *time.Time            `json:"resolution_due_at"`
}

// TicketDetailResponse provides full ticket info with its comment thread.
type TicketDetailResponse struct {
	TicketSummary
	Description string            `json:"description"`
	CreatedBy   string            `json:"created_by"`
	Comments    []CommentResponse `json:"comments"`
}

// CommentResponse represents a thread entry.
type CommentResponse struct {
	ID        int64     `json:"id"`
	AuthorID  string    `json:"author_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentLoadResponse backs the agent performance dashboard.
type AgentLoadResponse struct {
	AgentID      string `json:"agent_id"`
	Username     string `json:"username"`
	WeightedLoad int    `json:"weighted_load"`
}

// SweepResponse reports a manually triggered sweep run.
type SweepResponse struct {
	Processed int `json:"processed"`
}
