package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen             TicketStatus = "open"
	TicketStatusAssigned         TicketStatus = "assigned"
	TicketStatusInProgress       TicketStatus = "in_progress"
	TicketStatusAwaitingCustomer TicketStatus = "awaiting_customer_response"
	TicketStatusResolved         TicketStatus = "resolved"
	TicketStatusReopened         TicketStatus = "reopened"
	TicketStatusClosed           TicketStatus = "closed"
)

// ActiveStatuses are the states that count toward an agent's load and are
// eligible for SLA escalation. Resolved and closed tickets contribute nothing.
var ActiveStatuses = []TicketStatus{
	TicketStatusOpen,
	TicketStatusAssigned,
	TicketStatusInProgress,
	TicketStatusReopened,
	TicketStatusAwaitingCustomer,
}

// IsActive reports whether the status belongs to the active set.
func (s TicketStatus) IsActive() bool {
	for _, candidate := range ActiveStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// TicketPriority enumerates SLA urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "low"
	TicketPriorityMedium TicketPriority = "medium"
	TicketPriorityHigh   TicketPriority = "high"
)

// Next returns the priority one escalation step up. High has nowhere further
// to go and maps to itself.
func (p TicketPriority) Next() TicketPriority {
	switch p {
	case TicketPriorityLow:
		return TicketPriorityMedium
	case TicketPriorityMedium:
		return TicketPriorityHigh
	default:
		return TicketPriorityHigh
	}
}

// Valid reports whether p is a recognized priority.
func (p TicketPriority) Valid() bool {
	switch p {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh:
		return true
	}
	return false
}

// PriorityWeights maps priorities to their contribution toward an agent's
// weighted load. Values come from configuration.
type PriorityWeights struct {
	High   int
	Medium int
	Low    int
}

// Weight returns the load contribution of a single ticket at priority p.
// Unrecognized priorities weigh as low, matching the permissive SLA default.
func (w PriorityWeights) Weight(p TicketPriority) int {
	switch p {
	case TicketPriorityHigh:
		return w.High
	case TicketPriorityMedium:
		return w.Medium
	default:
		return w.Low
	}
}

// Ticket is the aggregate for support requests. Response and resolution due
// dates are set exactly once at creation and never recomputed; escalation
// changes priority only.
type Ticket struct {
	ID              int64
	Title           string
	Description     string
	Priority        TicketPriority
	Status          TicketStatus
	CreatedBy       string
	AssignedTo      *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ResponseDueAt   *time.Time
	ResolutionDueAt *time.Time
}
