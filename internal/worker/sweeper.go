package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ticketops/helpdesk/internal/observability"
)

// SweepJob is one idempotent batch pass returning the number of tickets it
// processed. Absence of work is a normal zero, not an error.
type SweepJob func(ctx context.Context) (int, error)

// Sweeper runs the overdue-escalation and re-assignment jobs on a fixed
// interval. Jobs are fire-and-forget: a failed run is logged and simply
// retried on the next tick.
type Sweeper struct {
	interval time.Duration
	jobs     map[string]SweepJob
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewSweeper builds a sweeper over the named jobs.
func NewSweeper(interval time.Duration, jobs map[string]SweepJob, metrics *observability.Metrics, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Sweeper{
		interval: interval,
		jobs:     jobs,
		metrics:  metrics,
		logger:   logger,
	}
}

// Run blocks until ctx is cancelled, executing every job once per tick.
// Jobs within a tick run sequentially; each processes its own snapshot.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopped")
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

// RunOnce executes every job a single time, for external schedulers that
// bring their own cadence.
func (s *Sweeper) RunOnce(ctx context.Context) {
	s.runOnce(ctx)
}

func (s *Sweeper) runOnce(ctx context.Context) {
	for name, job := range s.jobs {
		processed, err := job(ctx)
		if err != nil {
			s.logger.Error("sweep job failed", zap.String("job", name), zap.Error(err))
			continue
		}
		s.metrics.RecordSweep(name, processed)
		if processed > 0 {
			s.logger.Info("sweep job finished",
				zap.String("job", name), zap.Int("processed", processed))
		} else {
			s.logger.Debug("sweep job finished with no work", zap.String("job", name))
		}
	}
}
