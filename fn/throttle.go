package fn

import (
	"sync"
	"time"
)

// throttleState is mutated in place by every call of a throttled function.
type throttleState[R any] struct {
	mu      sync.Mutex
	ran     bool
	lastRun time.Time
	result  R
}

// window reports whether a call at now falls inside the current interval, and
// if so the result to reuse.
func (s *throttleState[R]) window(now time.Time, interval time.Duration) (R, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ran && now.Sub(s.lastRun) < interval {
		return s.result, true
	}
	var zero R
	return zero, false
}

func (s *throttleState[R]) record(now time.Time, result R) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ran = true
	s.lastRun = now
	s.result = result
}

// Throttle returns an adapter limiting a function to one execution per
// interval. A call made less than interval after the last execution returns
// that execution's result without running the function, whatever its argument.
//
// The wrapped function runs without the state lock held, so concurrent callers
// arriving after the window closed may each run it once.
func Throttle[A, R any](interval time.Duration, opts ...Option) func(func(A) R) func(A) R {
	o := buildOptions(opts)
	return func(f func(A) R) func(A) R {
		state := &throttleState[R]{}
		return func(a A) R {
			now := o.clock.Now()
			if cached, ok := state.window(now, interval); ok {
				return cached
			}
			result := f(a)
			state.record(now, result)
			return result
		}
	}
}

// ThrottleE is Throttle for fallible functions. A failed execution returns its
// error and leaves the throttle state untouched, so the next call runs again.
func ThrottleE[A, R any](interval time.Duration, opts ...Option) func(func(A) (R, error)) func(A) (R, error) {
	o := buildOptions(opts)
	return func(f func(A) (R, error)) func(A) (R, error) {
		state := &throttleState[R]{}
		return func(a A) (R, error) {
			now := o.clock.Now()
			if cached, ok := state.window(now, interval); ok {
				return cached, nil
			}
			result, err := f(a)
			if err != nil {
				return result, err
			}
			state.record(now, result)
			return result, nil
		}
	}
}

// Debounce returns an adapter that waits delay before every call of the
// wrapped function. Calls are never dropped or merged; each one blocks the
// caller for delay and then runs. A delay of zero or less disables the wait.
func Debounce[A, R any](delay time.Duration, opts ...Option) func(func(A) R) func(A) R {
	o := buildOptions(opts)
	return func(f func(A) R) func(A) R {
		return func(a A) R {
			if delay > 0 {
				o.clock.Sleep(delay)
			}
			return f(a)
		}
	}
}
