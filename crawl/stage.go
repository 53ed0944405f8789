package crawl

import (
	"context"
	"log/slog"
	"time"
)

// Inter-batch pauses: a short yield after productive work, a long one when
// the queue was empty.
const (
	BatchPause = 1 * time.Second
	IdlePause  = 30 * time.Second
)

// BatchFunc is one pass of a stage. It returns how many items it took on.
type BatchFunc func(ctx context.Context) (int, error)

// Loop drives a stage's batch function until the context is canceled.
// Batch errors are logged and the loop continues; cancellation is the only
// exit.
func Loop(ctx context.Context, name string, fn BatchFunc, logger *slog.Logger) error {
	for {
		n, err := fn(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err != nil {
			logger.Warn("batch failed", "stage", name, "err", err)
		}

		pause := BatchPause
		if n == 0 {
			pause = IdlePause
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pause):
		}
	}
}
