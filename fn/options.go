package fn

import (
	"io"
	"log/slog"

	"github.com/goliatone/go-functools/cache"
)

// Option configures an adapter. Options that do not apply to an adapter are
// ignored by it.
type Option func(*options)

type options struct {
	clock         Clock
	logger        *slog.Logger
	keySerializer cache.KeySerializer
	cacheService  cache.CacheService
	namespace     string
	retryHook     func(RetryStatus)
}

func buildOptions(opts []Option) options {
	o := options{
		clock:  SystemClock{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithClock sets the time source used by Throttle, Debounce and Retry.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the structured logger. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithKeySerializer sets how memoized functions turn arguments into cache keys.
func WithKeySerializer(s cache.KeySerializer) Option {
	return func(o *options) {
		o.keySerializer = s
	}
}

// WithCacheService makes memoized functions store results in service instead
// of a private unbounded map. Several memoized functions may share a service.
func WithCacheService(service cache.CacheService) Option {
	return func(o *options) {
		o.cacheService = service
	}
}

// WithNamespace sets the key prefix of a memoized function. Two memoized
// functions sharing a cache service and a namespace share results.
func WithNamespace(namespace string) Option {
	return func(o *options) {
		o.namespace = namespace
	}
}

// WithRetryHook registers a function called after every failed attempt.
func WithRetryHook(hook func(RetryStatus)) Option {
	return func(o *options) {
		o.retryHook = hook
	}
}
