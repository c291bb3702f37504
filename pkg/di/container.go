package di

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/goliatone/go-functools/cache"
	"github.com/goliatone/go-functools/config"
	"github.com/goliatone/go-functools/fn"
)

// Container provides dependency injection for the adapter toolkit.
// It owns one cache service, key serializer, logger and clock built from a
// config.Config, and hands them to adapters as fn options so that every
// adapter created through it shares them.
type Container struct {
	config        config.Config
	cacheService  cache.CacheService
	keySerializer cache.KeySerializer
	logger        *slog.Logger
	clock         fn.Clock
	retrier       *fn.Retrier
}

// Option customizes a Container.
type Option func(*Container)

// WithLogger sets the logger handed to adapters.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock sets the clock handed to adapters.
func WithClock(clock fn.Clock) Option {
	return func(c *Container) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// NewContainer validates cfg and builds the shared dependencies: the memoize
// store (memory or sturdyc), the key serializer and the default Retrier.
func NewContainer(cfg config.Config, opts ...Option) (*Container, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cacheService, err := cfg.Memoize.NewCacheService()
	if err != nil {
		return nil, err
	}

	c := &Container{
		config:        cfg,
		cacheService:  cacheService,
		keySerializer: cfg.Memoize.NewKeySerializer(),
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:         fn.SystemClock{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	c.retrier, err = fn.NewRetrier(fn.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     cfg.Retry.Backoff.Func(),
	}, c.Options()...)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// NewContainerWithDefaults creates a new DI container using config.Default.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(config.Default(), opts...)
}

// CacheService returns the shared memoize store.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeySerializer returns the shared key serializer.
func (c *Container) KeySerializer() cache.KeySerializer {
	return c.keySerializer
}

// Logger returns the logger handed to adapters.
func (c *Container) Logger() *slog.Logger {
	return c.logger
}

// Clock returns the clock handed to adapters.
func (c *Container) Clock() fn.Clock {
	return c.clock
}

// Config returns a copy of the configuration used by this container.
func (c *Container) Config() config.Config {
	return c.config
}

// Retrier returns the Retrier built from the retry section.
func (c *Container) Retrier() *fn.Retrier {
	return c.retrier
}

// Options returns the fn options carrying the container's dependencies.
func (c *Container) Options() []fn.Option {
	return []fn.Option{
		fn.WithCacheService(c.cacheService),
		fn.WithKeySerializer(c.keySerializer),
		fn.WithLogger(c.logger),
		fn.WithClock(c.clock),
	}
}

// Invalidate removes every memoized result stored under namespace, including
// the result of a zero-argument call which is keyed by the bare namespace.
// Stores that cannot enumerate their keys only drop that bare entry.
func (c *Container) Invalidate(ctx context.Context, namespace string) error {
	if err := c.cacheService.Delete(ctx, namespace); err != nil {
		return err
	}

	inv, ok := c.cacheService.(cache.Invalidator)
	if !ok {
		return nil
	}
	return inv.DeleteByPrefix(ctx, namespace+cache.KeySeparator)
}

// ThrottleInterval returns the configured throttle interval.
func (c *Container) ThrottleInterval() time.Duration {
	return c.config.Throttle.Interval
}

// DebounceDelay returns the configured debounce delay.
func (c *Container) DebounceDelay() time.Duration {
	return c.config.Debounce.Delay
}

// NewMemoized memoizes f in the container's store. namespace names the
// entries so that they can be dropped with Invalidate; an empty namespace
// gets a unique one.
//
// Since Go methods cannot have type parameters, this is provided as a package-level function.
// Example: NewMemoized(container, "price_of", lookupPrice)
func NewMemoized[A, R any](container *Container, namespace string, f func(A) R) func(A) R {
	return fn.Memoize(f, container.memoOptions(namespace)...)
}

// NewMemoizedE is NewMemoized for fallible functions; errors are not cached.
func NewMemoizedE[A, R any](container *Container, namespace string, f func(A) (R, error)) func(A) (R, error) {
	return fn.MemoizeE(f, container.memoOptions(namespace)...)
}

// NewThrottled throttles f with the configured interval.
func NewThrottled[A, R any](container *Container, f func(A) R) func(A) R {
	return fn.Throttle[A, R](container.ThrottleInterval(), container.Options()...)(f)
}

// NewDebounced debounces f with the configured delay.
func NewDebounced[A, R any](container *Container, f func(A) R) func(A) R {
	return fn.Debounce[A, R](container.DebounceDelay(), container.Options()...)(f)
}

// Retry runs f under the configured retry policy.
func Retry[R any](container *Container, f func() (R, error)) (R, error) {
	return fn.RetryDo(container.retrier, f)
}

func (c *Container) memoOptions(namespace string) []fn.Option {
	opts := c.Options()
	if namespace != "" {
		opts = append(opts, fn.WithNamespace(namespace))
	}
	return opts
}
