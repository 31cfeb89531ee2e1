package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"
)

// DefaultInterval is the time between fetches.
const DefaultInterval = 12 * time.Hour

// Scheduler runs a job at startup and then on a fixed interval.
// A failed run is logged and the next tick proceeds normally.
type Scheduler struct {
	job      *Job
	interval time.Duration
	clock    clockwork.Clock
	logger   *slog.Logger
}

// NewScheduler creates a Scheduler. A nil clock uses the real clock.
func NewScheduler(job *Job, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		job:      job,
		interval: interval,
		clock:    clock,
		logger:   logger.With("component", "fetcher.scheduler"),
	}
}

// Run blocks until ctx is cancelled, then waits for in-flight work.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()
	defer s.job.Wait()

	s.logger.Info("image fetcher started", "interval", s.interval.String())

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("image fetcher stopping")
			return nil
		case <-ticker.Chan():
			s.runOnce(ctx)
		}
	}
}

// runOnce executes the job, isolating the loop from its errors and panics.
func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	defer func() {
		if rec := recover(); rec != nil {
			s.logger.Error("image fetch panicked", "panic", fmt.Sprint(rec))
		}
	}()

	if err := s.job.Run(ctx); err != nil {
		s.logger.Error("image fetch failed", "error", err)
	}
}
