package fn

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/goliatone/go-functools/backoff"
)

// BackoffFunc maps a failed attempt number (starting at 1) to the delay before
// the next attempt. See package backoff for common shapes.
type BackoffFunc = backoff.Func

// RetryConfig configures a Retrier.
type RetryConfig struct {
	// MaxAttempts is the total number of calls made, including the first.
	// Must be at least 1.
	MaxAttempts int
	// Backoff is consulted between attempts. nil means retry immediately.
	Backoff BackoffFunc
}

// Validate checks the configuration.
func (c RetryConfig) Validate() error {
	verr := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&c,
			validation.Field(&c.MaxAttempts, validation.Required, validation.Min(1)),
		)
	}, "invalid retry configuration")
	if verr != nil {
		return verr.WithTextCode(TextCodeInvalidRetryConfig)
	}
	return nil
}

// RetryStatus describes a failed attempt. It is handed to the hook registered
// with WithRetryHook.
type RetryStatus struct {
	// RunID identifies one retry run across its attempts.
	RunID       string
	Attempt     int
	MaxAttempts int
	Err         error
	// NextDelay is the wait before the next attempt; zero after the last one.
	NextDelay time.Duration
}

// String implements fmt.Stringer.
func (s RetryStatus) String() string {
	return fmt.Sprintf("attempt %d/%d failed: %v", s.Attempt, s.MaxAttempts, s.Err)
}

// Retrier re-runs failing functions a bounded number of times.
//
// Each attempt either succeeds, which ends the run, or fails. A failed attempt
// that is not the last waits Backoff(attempt) and tries again. When the last
// attempt fails its error is returned exactly as the function produced it.
type Retrier struct {
	cfg  RetryConfig
	opts options
}

// NewRetrier validates cfg and builds a Retrier.
func NewRetrier(cfg RetryConfig, opts ...Option) (*Retrier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Retrier{cfg: cfg, opts: buildOptions(opts)}, nil
}

// MaxAttempts returns the configured attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.cfg.MaxAttempts
}

// Run calls fn until it succeeds or the attempts are used up. Backoff waits
// block the calling goroutine and cannot be interrupted.
func (r *Retrier) Run(fn func() (any, error)) (any, error) {
	return RetryDo(r, fn)
}

// RunContext is Run with a cancellable wait: when ctx is done during a
// backoff wait the run stops and context.Cause(ctx) is returned.
func (r *Retrier) RunContext(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	return RetryDoContext(ctx, r, fn)
}

// RetryDo runs fn under r and returns its first successful result.
func RetryDo[R any](r *Retrier, fn func() (R, error)) (R, error) {
	var (
		zero R
		val  R
	)
	err := r.do(nil, func(context.Context) error {
		var fnErr error
		val, fnErr = fn()
		return fnErr
	})
	if err != nil {
		return zero, err
	}
	return val, nil
}

// RetryDoContext runs fn under r with a cancellable backoff wait.
func RetryDoContext[R any](ctx context.Context, r *Retrier, fn func(context.Context) (R, error)) (R, error) {
	var (
		zero R
		val  R
	)
	if ctx == nil {
		ctx = context.Background()
	}
	err := r.do(ctx, func(ctx context.Context) error {
		var fnErr error
		val, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		return zero, err
	}
	return val, nil
}

// Retry returns an adapter that runs a function with up to maxAttempts tries,
// waiting b(attempt) between them.
//
//	getQuote := Retry[float64](3, backoff.Exponential(100*time.Millisecond, time.Second))
//	price, err := getQuote(fetchPrice)
//
// An invalid maxAttempts makes every call fail with a configuration error
// without running the function.
func Retry[R any](maxAttempts int, b BackoffFunc, opts ...Option) func(func() (R, error)) (R, error) {
	r, err := NewRetrier(RetryConfig{MaxAttempts: maxAttempts, Backoff: b}, opts...)
	return func(fn func() (R, error)) (R, error) {
		if err != nil {
			var zero R
			return zero, err
		}
		return RetryDo(r, fn)
	}
}

// do is the attempt loop. A nil ctx selects blocking, uninterruptible waits.
func (r *Retrier) do(ctx context.Context, call func(context.Context) error) error {
	runID := uuid.NewString()
	logger := r.opts.logger.With(slog.String("run_id", runID))

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		err := call(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Debug("retry succeeded", slog.Int("attempt", attempt))
			}
			return nil
		}
		lastErr = err

		status := RetryStatus{
			RunID:       runID,
			Attempt:     attempt,
			MaxAttempts: r.cfg.MaxAttempts,
			Err:         err,
		}

		if attempt == r.cfg.MaxAttempts {
			r.notify(status)
			break
		}

		status.NextDelay = r.delay(attempt)
		logger.Debug("retry attempt failed",
			append([]any{
				slog.Int("attempt", attempt),
				slog.Int("max_attempts", r.cfg.MaxAttempts),
				slog.Duration("next_delay", status.NextDelay),
				slog.String("error", err.Error()),
			}, errorAttrs(err)...)...,
		)
		r.notify(status)

		if waitErr := r.wait(ctx, status.NextDelay); waitErr != nil {
			logger.Debug("retry cancelled", slog.Int("attempt", attempt), slog.String("cause", waitErr.Error()))
			return waitErr
		}
	}

	if lastErr == nil {
		errors.LogBySeverity(logger, ErrRetryNoCause)
		return ErrRetryNoCause
	}

	logger.Warn("retry attempts exhausted",
		append([]any{
			slog.Int("max_attempts", r.cfg.MaxAttempts),
			slog.String("error", lastErr.Error()),
		}, errorAttrs(lastErr)...)...,
	)
	return lastErr
}

func (r *Retrier) delay(attempt int) time.Duration {
	if r.cfg.Backoff == nil {
		return 0
	}
	if d := r.cfg.Backoff(attempt); d > 0 {
		return d
	}
	return 0
}

func (r *Retrier) wait(ctx context.Context, d time.Duration) error {
	if ctx == nil {
		if d > 0 {
			r.opts.clock.Sleep(d)
		}
		return nil
	}
	return sleepContext(ctx, r.opts.clock, d)
}

func (r *Retrier) notify(status RetryStatus) {
	if r.opts.retryHook != nil {
		r.opts.retryHook(status)
	}
}

func errorAttrs(err error) []any {
	attrs := errors.ToSlogAttributes(err)
	out := make([]any, len(attrs))
	for i, attr := range attrs {
		out[i] = attr
	}
	return out
}
