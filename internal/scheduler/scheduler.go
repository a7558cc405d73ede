package scheduler

import (
	"context"
	"time"

	"carwatch-engine/internal/logging"
)

type Task func(ctx context.Context) error

// Every runs task immediately and then on every interval tick until ctx is
// cancelled. Task errors are logged, never fatal.
func Every(ctx context.Context, interval time.Duration, name string, task Task) {
	l := logging.WithComponent("scheduler")

	t := time.NewTicker(interval)
	defer t.Stop()

	// run immediately
	go func() {
		if err := task(ctx); err != nil {
			l.Warn().Err(err).Str("task", name).Msg("task failed")
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := task(ctx); err != nil {
				l.Warn().Err(err).Str("task", name).Msg("task failed")
			}
		}
	}
}
