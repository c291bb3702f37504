package cacheinfra

import (
	"context"
	"strings"

	"github.com/puzpuzpuz/xsync/v3"
)

// memoryService is an unbounded cache backed by a concurrent xsync map.
// Entries live until explicitly deleted.
type memoryService struct {
	entries *xsync.MapOf[string, any]
}

// NewMemoryService creates an empty unbounded cache service.
func NewMemoryService() *memoryService {
	return &memoryService{entries: xsync.NewMapOf[string, any]()}
}

// GetOrFetch returns the stored value for key, or runs fetchFn and stores its
// result. Failed fetches are not stored.
//
// fetchFn runs without any lock held so that it may itself read through the
// same service (recursive memoized functions). If two fetches for one key race,
// the first stored value wins and is returned to both callers.
func (s *memoryService) GetOrFetch(ctx context.Context, key string, fetchFn any) (any, error) {
	if err := validateFetchFn(fetchFn); err != nil {
		return nil, err
	}

	if value, ok := s.entries.Load(key); ok {
		return value, nil
	}

	value, err := callFetchFunction(ctx, fetchFn)
	if err != nil {
		return nil, err
	}

	actual, _ := s.entries.LoadOrStore(key, value)
	return actual, nil
}

// Delete removes a single entry.
func (s *memoryService) Delete(ctx context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// DeleteByPrefix removes every entry whose key starts with prefix.
func (s *memoryService) DeleteByPrefix(ctx context.Context, prefix string) error {
	s.entries.Range(func(key string, _ any) bool {
		if strings.HasPrefix(key, prefix) {
			s.entries.Delete(key)
		}
		return true
	})
	return nil
}

// InvalidateKeys removes the given entries.
func (s *memoryService) InvalidateKeys(ctx context.Context, keys []string) error {
	for _, key := range keys {
		s.entries.Delete(key)
	}
	return nil
}

// Len reports the number of stored entries.
func (s *memoryService) Len() int {
	return s.entries.Size()
}
