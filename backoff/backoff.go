// Package backoff provides delay functions for retry loops.
//
// A Func maps a 1-based attempt number to the time to wait before the next
// attempt. Non-positive results mean "retry immediately".
package backoff

import (
	"math"
	"math/rand"
	"time"
)

const (
	smoothing = 4.0
	maxintf   = float64(math.MaxInt64) - 1
)

// Func returns the delay to wait after the given failed attempt.
type Func func(attempt int) time.Duration

// None never waits.
func None() Func {
	return func(int) time.Duration { return 0 }
}

// Constant waits d after every attempt.
func Constant(d time.Duration) Func {
	return func(int) time.Duration { return d }
}

// Linear waits step*attempt, capped at maxDelay when maxDelay > 0.
func Linear(step, maxDelay time.Duration) Func {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return capped(float64(step)*float64(attempt), maxDelay)
	}
}

// Exponential waits base*2^(attempt-1), capped at maxDelay when maxDelay > 0.
func Exponential(base, maxDelay time.Duration) Func {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		return capped(float64(base)*math.Pow(2, float64(attempt-1)), maxDelay)
	}
}

// Jitter grows roughly exponentially around median like Exponential, with a
// random offset per attempt so that concurrent callers spread out. The curve
// is smoothed for early attempts by tanh.
func Jitter(median, maxDelay time.Duration) Func {
	if maxDelay < 0 {
		panic("maxDelay must not be negative")
	}
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		r := rand.Float64()
		t := float64(attempt-1) + r
		out := (curve(t) - curve(t-1)) * float64(median)
		return capped(out, maxDelay)
	}
}

// Capped limits the delays of f to maxDelay.
func (f Func) Capped(maxDelay time.Duration) Func {
	return func(attempt int) time.Duration {
		d := f(attempt)
		if maxDelay > 0 && d > maxDelay {
			return maxDelay
		}
		return d
	}
}

func curve(t float64) float64 {
	if t <= 0 {
		return 0
	}
	return math.Pow(2, t) * math.Tanh(math.Sqrt(smoothing*t))
}

func capped(out float64, maxDelay time.Duration) time.Duration {
	switch {
	case maxDelay > 0 && out > float64(maxDelay):
		return maxDelay
	case out > maxintf:
		// float64 -> int64 overflow backstop
		return time.Duration(math.MaxInt64)
	case out < 0:
		return 0
	default:
		return time.Duration(out)
	}
}
