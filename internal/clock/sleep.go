// Package clock provides context-aware waiting and retry delays.
package clock

import (
	"context"
	"time"
)

// SleepWithContext waits for the duration or returns early if the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// WaitOrSignal waits for the duration, a value on signal, or ctx, whichever
// comes first. A nil signal degrades to SleepWithContext.
func WaitOrSignal(ctx context.Context, d time.Duration, signal <-chan struct{}) error {
	if signal == nil {
		return SleepWithContext(ctx, d)
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-signal:
		return nil
	case <-timer.C:
		return nil
	}
}

// Backoff returns base doubled once per retry already made, capped at max.
// retry counts from 1; a zero max means no cap.
func Backoff(base time.Duration, retry int, max time.Duration) time.Duration {
	d := base
	for i := 1; i < retry; i++ {
		if max > 0 && d >= max {
			break
		}
		d *= 2
	}
	if max > 0 && d > max {
		return max
	}
	return d
}
