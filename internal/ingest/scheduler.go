package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler runs SyncOnce on a fixed interval. Ticks that arrive while a
// cycle is still running are dropped by the ticker, so cycles never queue
// up behind a slow remote.
type Scheduler struct {
	pipeline *Pipeline
	interval time.Duration
	// AfterCycle, if set, runs after every successful cycle.
	AfterCycle func(ctx context.Context, rep Report)
	log        *slog.Logger
}

func NewScheduler(p *Pipeline, interval time.Duration) *Scheduler {
	return &Scheduler{
		pipeline: p,
		interval: interval,
		log:      p.log,
	}
}

// Run syncs immediately, then on every tick until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	t := time.NewTicker(s.interval)
	defer t.Stop()

	s.log.Info("scheduler started", "interval", s.interval)
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopped")
			return
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	rep, err := s.pipeline.SyncOnce(ctx, false)
	switch {
	case errors.Is(err, ErrSyncInProgress):
		s.log.Warn("sync skipped: previous cycle still running")
		return
	case err != nil:
		// Already logged by the pipeline; the next tick retries.
		return
	}
	if s.AfterCycle != nil {
		s.AfterCycle(ctx, rep)
	}
}
