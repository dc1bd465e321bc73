// Package worker hosts the long-running background jobs.
package worker

import (
	"context"
	"time"
)

// Worker a background job; Run blocks until ctx is done.
type Worker interface {
	Run(ctx context.Context) error
}

// TickWorker drives a work func on a fixed interval.
type TickWorker struct {
	Delay time.Duration
}

// StartTick runs onWork every Delay until ctx is cancelled. Errors from
// onWork end the cycle, not the loop.
func (w *TickWorker) StartTick(ctx context.Context, onWork func(ctx context.Context) error) error {
	delay := w.Delay
	if delay <= 0 {
		delay = time.Second
	}

	ticker := time.NewTicker(delay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_ = onWork(ctx)
		}
	}
}
