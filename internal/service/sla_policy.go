package service

import (
	"time"

	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
)

// slaWindow pairs the response and resolution targets for one priority tier.
type slaWindow struct {
	response   time.Duration
	resolution time.Duration
}

// SLAPolicy maps a ticket priority to its response and resolution deadlines.
// Pure and deterministic; the only tunable is the low-tier resolution window.
type SLAPolicy struct {
	lowResolution time.Duration
}

// NewSLAPolicy builds the policy from configuration. A non-positive low
// resolution window falls back to the default 72 hours.
func NewSLAPolicy(cfg config.AssignmentConfig) SLAPolicy {
	low := cfg.LowResolutionWindow()
	if low <= 0 {
		low = 72 * time.Hour
	}
	return SLAPolicy{lowResolution: low}
}

// Deadlines returns the response and resolution due dates for a ticket of
// the given priority created at now. An unrecognized priority is treated as
// low on purpose: a data anomaly must not block ticket creation.
func (p SLAPolicy) Deadlines(priority domain.TicketPriority, now time.Time) (time.Time, time.Time) {
	window := p.window(priority)
	return now.Add(window.response), now.Add(window.resolution)
}

func (p SLAPolicy) window(priority domain.TicketPriority) slaWindow {
	switch priority {
	case domain.TicketPriorityHigh:
		return slaWindow{response: time.Hour, resolution: 4 * time.Hour}
	case domain.TicketPriorityMedium:
		return slaWindow{response: 4 * time.Hour, resolution: 24 * time.Hour}
	default:
		return slaWindow{response: 24 * time.Hour, resolution: p.lowResolution}
	}
}
