package scheduler

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/example/bbdc-bot/internal/workflow"
)

// PassRunner is one invocation of the booking workflow.
type PassRunner interface {
	RunPass(ctx context.Context) error
}

// Scheduler re-invokes the workflow on a fixed interval. Passes are
// serialized: an overlapping tick is dropped while the previous pass runs.
type Scheduler struct {
	Runner   PassRunner
	Interval time.Duration
}

func (s *Scheduler) Run(ctx context.Context) error {
	t := time.NewTicker(s.Interval)
	defer t.Stop()

	// kick immediately
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	err := s.Runner.RunPass(ctx)
	switch {
	case err == nil:
	case errors.Is(err, workflow.ErrPassInFlight):
		log.Printf("scheduler: previous pass still running, skipping tick")
	case errors.Is(err, context.Canceled):
	default:
		// Pass failures are absorbed here; the next tick retries.
		log.Printf("scheduler: pass failed: %v", err)
	}
}
