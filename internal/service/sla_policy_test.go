package service

import (
	"testing"
	"time"

	"github.com/ticketops/helpdesk/internal/config"
	"github.com/ticketops/helpdesk/internal/domain"
)

func TestSLAPolicyDeadlinesPerTier(t *testing.T) {
	policy := NewSLAPolicy(testAssignmentConfig())
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	cases := []struct {
		name       string
		priority   domain.TicketPriority
		response   time.Duration
		resolution time.Duration
	}{
		{"high", domain.TicketPriorityHigh, time.Hour, 4 * time.Hour},
		{"medium", domain.TicketPriorityMedium, 4 * time.Hour, 24 * time.Hour},
		{"low", domain.TicketPriorityLow, 24 * time.Hour, 72 * time.Hour},
		{"unknown falls back to low", domain.TicketPriority("urgent"), 24 * time.Hour, 72 * time.Hour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			response, resolution := policy.Deadlines(tc.priority, created)
			if got, want := response, created.Add(tc.response); !got.Equal(want) {
				t.Errorf("response due = %v, want %v", got, want)
			}
			if got, want := resolution, created.Add(tc.resolution); !got.Equal(want) {
				t.Errorf("resolution due = %v, want %v", got, want)
			}
		})
	}
}

func TestSLAPolicyDeadlinesOrdered(t *testing.T) {
	policy := NewSLAPolicy(testAssignmentConfig())
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	for _, priority := range []domain.TicketPriority{
		domain.TicketPriorityLow,
		domain.TicketPriorityMedium,
		domain.TicketPriorityHigh,
	} {
		response, resolution := policy.Deadlines(priority, created)
		if !response.After(created) {
			t.Errorf("%s: response due %v not after creation %v", priority, response, created)
		}
		if resolution.Before(response) {
			t.Errorf("%s: resolution due %v before response due %v", priority, resolution, response)
		}
	}
}

func TestSLAPolicyConfigurableLowWindow(t *testing.T) {
	cfg := testAssignmentConfig()
	cfg.LowResolutionHours = 48
	policy := NewSLAPolicy(cfg)

	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	_, resolution := policy.Deadlines(domain.TicketPriorityLow, created)
	if got, want := resolution, created.Add(48*time.Hour); !got.Equal(want) {
		t.Errorf("low resolution due = %v, want %v", got, want)
	}
}

func TestSLAPolicyRejectsNonPositiveLowWindow(t *testing.T) {
	policy := NewSLAPolicy(config.AssignmentConfig{LowResolutionHours: 0})
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	_, resolution := policy.Deadlines(domain.TicketPriorityLow, created)
	if got, want := resolution, created.Add(72*time.Hour); !got.Equal(want) {
		t.Errorf("fallback resolution due = %v, want %v", got, want)
	}
}
