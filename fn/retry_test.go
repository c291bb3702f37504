package fn

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/goliatone/go-functools/backoff"
	"github.com/goliatone/go-functools/pkg/testsupport"
)

var errTransient = errors.New("transient failure")

// failTimes returns a function failing n times before returning value.
func failTimes[R any](n int, value R) (func() (R, error), *int) {
	calls := 0
	return func() (R, error) {
		calls++
		if calls <= n {
			var zero R
			return zero, fmt.Errorf("call %d: %w", calls, errTransient)
		}
		return value, nil
	}, &calls
}

func newTestClock() *testsupport.ManualClock {
	return testsupport.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
}

func TestRetry_SucceedsOnKthAttempt(t *testing.T) {
	tests := []struct {
		name        string
		maxAttempts int
		failures    int
	}{
		{"first attempt", 3, 0},
		{"second attempt", 3, 1},
		{"last attempt", 3, 2},
		{"single attempt budget", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn, calls := failTimes(tt.failures, 42)
			got, err := Retry[int](tt.maxAttempts, nil)(fn)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != 42 {
				t.Errorf("expected 42, got %d", got)
			}
			if *calls != tt.failures+1 {
				t.Errorf("expected %d calls, got %d", tt.failures+1, *calls)
			}
		})
	}
}

func TestRetry_ReturnsLastErrorWhenExhausted(t *testing.T) {
	fn, calls := failTimes(10, "never")

	got, err := Retry[string](4, backoff.None())(fn)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if got != "" {
		t.Errorf("expected zero value, got %q", got)
	}
	if !errors.Is(err, errTransient) {
		t.Errorf("expected error chain to contain errTransient, got %v", err)
	}
	if err.Error() != "call 4: transient failure" {
		t.Errorf("expected the last attempt's error unchanged, got %q", err.Error())
	}
	if *calls != 4 {
		t.Errorf("expected 4 calls, got %d", *calls)
	}
}

func TestRetry_BackoffBetweenAttempts(t *testing.T) {
	clock := newTestClock()

	var attempts []int
	b := func(attempt int) time.Duration {
		attempts = append(attempts, attempt)
		return time.Duration(attempt) * 100 * time.Millisecond
	}

	fn, _ := failTimes(5, 0)
	_, err := Retry[int](3, b, WithClock(clock))(fn)
	if !errors.Is(err, errTransient) {
		t.Fatalf("expected errTransient, got %v", err)
	}

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected backoff for attempts [1 2], got %v", attempts)
	}

	sleeps := clock.Sleeps()
	expected := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(sleeps) != len(expected) {
		t.Fatalf("expected %d sleeps, got %v", len(expected), sleeps)
	}
	for i := range expected {
		if sleeps[i] != expected[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, expected[i], sleeps[i])
		}
	}
}

func TestRetry_ZeroAndNegativeBackoffDoNotSleep(t *testing.T) {
	clock := newTestClock()

	fn, _ := failTimes(2, 42)
	got, err := Retry[int](3, backoff.Constant(-time.Second), WithClock(clock))(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if len(clock.Sleeps()) != 0 {
		t.Errorf("expected no sleeps, got %v", clock.Sleeps())
	}
}

func TestRetry_InvalidConfiguration(t *testing.T) {
	for _, maxAttempts := range []int{0, -1} {
		t.Run(fmt.Sprintf("max attempts %d", maxAttempts), func(t *testing.T) {
			fn, calls := failTimes(0, 1)

			_, err := Retry[int](maxAttempts, nil)(fn)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !IsConfigError(err) {
				t.Errorf("expected configuration error, got %v", err)
			}
			if !HasTextCode(err, TextCodeInvalidRetryConfig) {
				t.Errorf("expected text code %s", TextCodeInvalidRetryConfig)
			}
			if *calls != 0 {
				t.Errorf("expected function not to run, ran %d times", *calls)
			}
		})
	}

	if _, err := NewRetrier(RetryConfig{MaxAttempts: 0}); !IsConfigError(err) {
		t.Errorf("NewRetrier: expected configuration error, got %v", err)
	}
}

func TestRetry_Hook(t *testing.T) {
	clock := newTestClock()

	var statuses []RetryStatus
	fn, _ := failTimes(2, "ok")

	_, err := Retry[string](3, backoff.Constant(time.Second),
		WithClock(clock),
		WithRetryHook(func(s RetryStatus) { statuses = append(statuses, s) }),
	)(fn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(statuses) != 2 {
		t.Fatalf("expected 2 failed attempts reported, got %d", len(statuses))
	}
	for i, s := range statuses {
		if s.Attempt != i+1 {
			t.Errorf("status %d: expected attempt %d, got %d", i, i+1, s.Attempt)
		}
		if s.MaxAttempts != 3 {
			t.Errorf("status %d: expected max attempts 3, got %d", i, s.MaxAttempts)
		}
		if s.NextDelay != time.Second {
			t.Errorf("status %d: expected next delay 1s, got %v", i, s.NextDelay)
		}
		if !errors.Is(s.Err, errTransient) {
			t.Errorf("status %d: expected errTransient, got %v", i, s.Err)
		}
	}
	if statuses[0].RunID == "" || statuses[0].RunID != statuses[1].RunID {
		t.Errorf("expected one run id across attempts, got %q and %q", statuses[0].RunID, statuses[1].RunID)
	}
	if !strings.Contains(statuses[0].String(), "attempt 1/3 failed") {
		t.Errorf("unexpected status string %q", statuses[0].String())
	}
}

func TestRetry_LastAttemptHasNoDelay(t *testing.T) {
	var last RetryStatus
	fn, _ := failTimes(3, 0)

	_, _ = Retry[int](2, backoff.Constant(time.Minute),
		WithClock(newTestClock()),
		WithRetryHook(func(s RetryStatus) { last = s }),
	)(fn)

	if last.Attempt != 2 || last.NextDelay != 0 {
		t.Errorf("expected final status with no delay, got %+v", last)
	}
}

func TestRetrier_Run(t *testing.T) {
	r, err := NewRetrier(RetryConfig{MaxAttempts: 2}, WithClock(newTestClock()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.MaxAttempts() != 2 {
		t.Errorf("expected 2 max attempts, got %d", r.MaxAttempts())
	}

	calls := 0
	got, err := r.Run(func() (any, error) {
		calls++
		if calls == 1 {
			return nil, errTransient
		}
		return "value", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "value" {
		t.Errorf("expected value, got %v", got)
	}

	// a Retrier can be reused; each run gets the full budget
	calls = 0
	if _, err := RetryDo(r, func() (int, error) { calls++; return 0, errTransient }); err != errTransient {
		t.Errorf("expected errTransient, got %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestRetrier_RunContextCancellation(t *testing.T) {
	r, err := NewRetrier(RetryConfig{MaxAttempts: 5, Backoff: backoff.Constant(time.Hour)},
		WithClock(newTestClock()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err = r.RunContext(ctx, func(ctx context.Context) (any, error) {
		calls++
		cancel()
		return nil, errTransient
	})

	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call before cancellation, got %d", calls)
	}
}

func TestRetryDoContext_SystemClockCancellation(t *testing.T) {
	r, err := NewRetrier(RetryConfig{MaxAttempts: 3, Backoff: backoff.Constant(time.Hour)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cause := errors.New("shutting down")
	ctx, cancel := context.WithCancelCause(context.Background())

	_, err = RetryDoContext(ctx, r, func(context.Context) (int, error) {
		cancel(cause)
		return 0, errTransient
	})
	if err != cause {
		t.Errorf("expected cancellation cause, got %v", err)
	}
}

func TestRetry_LogsExhaustion(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	fn, _ := failTimes(5, 0)
	_, _ = Retry[int](2, nil, WithLogger(logger))(fn)

	out := buf.String()
	for _, want := range []string{"retry attempt failed", "retry attempts exhausted", "run_id=", "max_attempts=2"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRetry_PanicPropagates(t *testing.T) {
	defer func() {
		if r := recover(); r != "kaboom" {
			t.Errorf("expected panic kaboom, got %v", r)
		}
	}()
	_, _ = Retry[int](3, nil)(func() (int, error) { panic("kaboom") })
}

func TestRetrier_NoCapturedCause(t *testing.T) {
	r := &Retrier{cfg: RetryConfig{MaxAttempts: 0}, opts: buildOptions(nil)}

	err := r.do(nil, func(context.Context) error { return nil })
	if err != ErrRetryNoCause {
		t.Fatalf("expected ErrRetryNoCause, got %v", err)
	}
	if !HasTextCode(err, TextCodeRetryNoCause) {
		t.Errorf("expected text code %s", TextCodeRetryNoCause)
	}
}
