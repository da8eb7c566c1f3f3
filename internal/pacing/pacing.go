package pacing

import (
	"context"
	"time"
)

// Clock abstracts delays so batch pacing can be tested without real
// timers.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock waits on a timer that can be cut short by context
// cancellation.
type RealClock struct{}

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
