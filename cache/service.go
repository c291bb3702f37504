package cache

import (
	"context"

	"github.com/goliatone/go-errors"
)

// TextCodeInvalidResultType tags ErrInvalidResultType.
const TextCodeInvalidResultType = "INVALID_RESULT_TYPE"

// ErrInvalidResultType is returned by GetOrFetch when a backend hands back a
// value of a different type than the one requested for the key.
var ErrInvalidResultType = errors.New("cached value has unexpected type", errors.CategoryInternal).
	WithTextCode(TextCodeInvalidResultType)

// KeySerializer builds a cache key from a namespace + arbitrary args.
// It is responsible for producing stable keys across calls: structurally equal
// argument lists must map to the same key, distinct ones to distinct keys.
type KeySerializer interface {
	SerializeKey(method string, args ...any) string
}

// FetchFn is the function signature CacheService expects when computing a value on a miss.
type FetchFn[T any] func(ctx context.Context) (T, error)

// CacheService exposes the read-through operations memoized functions are built on.
// Implementations must not store a value when the fetch function fails.
type CacheService interface {
	GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error)
	Delete(ctx context.Context, key string) error
}

// Invalidator is implemented by backends that support bulk removal.
type Invalidator interface {
	DeleteByPrefix(ctx context.Context, prefix string) error
	InvalidateKeys(ctx context.Context, keys []string) error
}

// GetOrFetch is a type-safe wrapper function that provides generic support for CacheService.
func GetOrFetch[T any](ctx context.Context, service CacheService, key string, fetchFn FetchFn[T]) (T, error) {
	var zero T

	var fetch any
	if fetchFn != nil {
		fetch = func(ctx context.Context) (any, error) {
			return fetchFn(ctx)
		}
	}

	result, err := service.GetOrFetch(ctx, key, fetch)
	if err != nil {
		return zero, err
	}

	// nil interface results carry no type information
	if result == nil {
		return zero, nil
	}

	typed, ok := result.(T)
	if !ok {
		return zero, ErrInvalidResultType
	}
	return typed, nil
}
