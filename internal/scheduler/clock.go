package scheduler

import (
	"context"
	"time"
)

// Clock provides the current time and blocks until a deadline.
type Clock interface {
	Now() time.Time
	// SleepUntil blocks until deadline or until ctx is done, whichever comes
	// first, and returns ctx.Err() in the latter case.
	SleepUntil(ctx context.Context, deadline time.Time) error
}

// SystemClock is the Clock backed by the time package. Deadlines derived from
// Now carry Go's monotonic reading, so wall-clock steps do not shift them.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

func (SystemClock) SleepUntil(ctx context.Context, deadline time.Time) error {
	wait := time.Until(deadline)
	if wait <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
