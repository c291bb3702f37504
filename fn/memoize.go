package fn

import (
	"context"
	"log/slog"
	"strconv"
	"sync/atomic"

	"github.com/goliatone/go-functools/cache"
)

var memoSequence atomic.Uint64

// memo holds what a memoized function closes over: where results live and how
// arguments become keys.
type memo struct {
	service    cache.CacheService
	serializer cache.KeySerializer
	namespace  string
	logger     *slog.Logger
}

func newMemo(f any, opts []Option) *memo {
	o := buildOptions(opts)

	m := &memo{
		service:    o.cacheService,
		serializer: o.keySerializer,
		namespace:  o.namespace,
		logger:     o.logger,
	}
	if m.service == nil {
		m.service = cache.NewMemoryService()
	}
	if m.serializer == nil {
		m.serializer = cache.NewDefaultKeySerializer()
	}
	if m.namespace == "" {
		// unique per adapted function so that closures created at the same
		// site never share entries in a shared service
		m.namespace = cache.FuncNamespace(f) + "_" + strconv.FormatUint(memoSequence.Add(1), 10)
	}
	return m
}

func memoGet[R any](m *memo, args []any, compute func() (R, error)) (R, error) {
	key := m.serializer.SerializeKey(m.namespace, args...)
	return cache.GetOrFetch[R](context.Background(), m.service, key, func(context.Context) (R, error) {
		return compute()
	})
}

// memoCall returns the stored result for args, computing it with call on a
// miss. When the store fails (a foreign value under the key, a broken backend)
// the failure is logged and call's own result is returned, running call if the
// store never did.
func memoCall[R any](m *memo, args []any, call func() R) R {
	var (
		computed bool
		value    R
	)
	result, err := memoGet(m, args, func() (R, error) {
		computed = true
		value = call()
		return value, nil
	})
	if err == nil {
		return result
	}

	m.logger.Error("memoized result unavailable, calling function directly",
		append([]any{
			slog.String("namespace", m.namespace),
			slog.Bool("computed", computed),
			slog.String("error", err.Error()),
		}, errorAttrs(err)...)...,
	)
	if computed {
		return value
	}
	return call()
}

// Memoize caches the results of f by argument. f runs at most once per
// structurally distinct argument for the lifetime of the returned function
// (unless a bounded cache service is supplied with WithCacheService).
//
// Results are shared between callers; treat them as immutable. A cache service
// that fails, for example because another function stored a different result
// type under the same namespace, is logged at error level and bypassed.
func Memoize[A, R any](f func(A) R, opts ...Option) func(A) R {
	m := newMemo(f, opts)
	return func(a A) R {
		return memoCall(m, []any{a}, func() R { return f(a) })
	}
}

// Memoize2 is Memoize for binary functions; the key covers both arguments in order.
func Memoize2[A, B, R any](f func(A, B) R, opts ...Option) func(A, B) R {
	m := newMemo(f, opts)
	return func(a A, b B) R {
		return memoCall(m, []any{a, b}, func() R { return f(a, b) })
	}
}

// MemoizeE is Memoize for fallible functions. Errors are returned unchanged and
// are not cached, so a failed argument is computed again on the next call.
// Cache service failures such as cache.ErrInvalidResultType are returned too.
func MemoizeE[A, R any](f func(A) (R, error), opts ...Option) func(A) (R, error) {
	m := newMemo(f, opts)
	return func(a A) (R, error) {
		return memoGet(m, []any{a}, func() (R, error) {
			return f(a)
		})
	}
}

// MemoizeFunc memoizes a variadic function keyed by its full, ordered argument list.
func MemoizeFunc[R any](f func(...any) R, opts ...Option) func(...any) R {
	m := newMemo(f, opts)
	return func(args ...any) R {
		return memoCall(m, args, func() R { return f(args...) })
	}
}
