package fn

import (
	"context"
	"time"
)

// Clock provides the time source and the blocking wait used by Throttle,
// Debounce and Retry.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

// ContextSleeper is implemented by clocks that can abandon a wait when a
// context is done. Clocks without it sleep the full duration and the context
// is checked afterwards.
type ContextSleeper interface {
	SleepContext(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// Sleep implements Clock.
func (SystemClock) Sleep(d time.Duration) {
	time.Sleep(d)
}

// SleepContext implements ContextSleeper.
func (SystemClock) SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return context.Cause(ctx)
	case <-t.C:
		return nil
	}
}

func sleepContext(ctx context.Context, clock Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	if d <= 0 {
		return nil
	}
	if cs, ok := clock.(ContextSleeper); ok {
		return cs.SleepContext(ctx, d)
	}
	clock.Sleep(d)
	if err := ctx.Err(); err != nil {
		return context.Cause(ctx)
	}
	return nil
}
