package di

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goliatone/go-functools/config"
	"github.com/goliatone/go-functools/fn"
	"github.com/goliatone/go-functools/pkg/testsupport"
)

// Quote is the test domain: a price lookup that is slow and sometimes fails.
type Quote struct {
	SKU   string
	Qty   int
	Price float64
}

type QuoteRequest struct {
	SKU string
	Qty int
}

// mockPriceService tracks how often each method runs.
type mockPriceService struct {
	mu        sync.Mutex
	calls     map[string]int
	failUntil int
	prices    map[string]float64
}

func newMockPriceService() *mockPriceService {
	return &mockPriceService{
		calls: make(map[string]int),
		prices: map[string]float64{
			"apple":  0.5,
			"banana": 0.25,
		},
	}
}

func (m *mockPriceService) trackCall(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[method]++
	return m.calls[method]
}

func (m *mockPriceService) getCallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

var errUnknownSKU = errors.New("unknown sku")
var errUnavailable = errors.New("price service unavailable")

func (m *mockPriceService) Quote(req QuoteRequest) (Quote, error) {
	n := m.trackCall("Quote")
	if n <= m.failUntil {
		return Quote{}, errUnavailable
	}
	price, ok := m.prices[req.SKU]
	if !ok {
		return Quote{}, errUnknownSKU
	}
	return Quote{SKU: req.SKU, Qty: req.Qty, Price: price * float64(req.Qty)}, nil
}

func (m *mockPriceService) Catalog(int) []string {
	m.trackCall("Catalog")
	return []string{"apple", "banana"}
}

func newTestContainer(t *testing.T, mutate func(*config.Config), opts ...Option) *Container {
	t.Helper()

	cfg := config.Default()
	cfg.Retry.Backoff = config.BackoffConfig{Strategy: config.StrategyConstant, Delay: 10 * time.Millisecond}
	if mutate != nil {
		mutate(&cfg)
	}

	container, err := NewContainer(cfg, opts...)
	if err != nil {
		t.Fatalf("Failed to create container: %v", err)
	}
	return container
}

func TestEndToEndMemoizedFlow(t *testing.T) {
	backends := []string{config.BackendMemory, config.BackendSturdyc}

	for _, backend := range backends {
		t.Run(backend, func(t *testing.T) {
			container := newTestContainer(t, func(c *config.Config) {
				c.Memoize.Backend = backend
				c.Memoize.Capacity = 1000
				c.Memoize.NumShards = 8
			})
			service := newMockPriceService()

			quote := NewMemoizedE(container, "quote", service.Quote)

			first, err := quote(QuoteRequest{SKU: "apple", Qty: 4})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if first.Price != 2 {
				t.Errorf("Expected price 2, got %v", first.Price)
			}

			second, err := quote(QuoteRequest{SKU: "apple", Qty: 4})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if second != first {
				t.Errorf("Expected cached quote %+v, got %+v", first, second)
			}
			if service.getCallCount("Quote") != 1 {
				t.Errorf("Expected 1 call, got %d", service.getCallCount("Quote"))
			}

			if _, err := quote(QuoteRequest{SKU: "apple", Qty: 5}); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if service.getCallCount("Quote") != 2 {
				t.Errorf("Expected a different request to compute, got %d calls", service.getCallCount("Quote"))
			}
		})
	}
}

func TestInvalidationFlow(t *testing.T) {
	container := newTestContainer(t, nil)
	service := newMockPriceService()
	ctx := context.Background()

	quote := NewMemoizedE(container, "quote", service.Quote)
	catalog := NewMemoized(container, "catalog", service.Catalog)

	quote(QuoteRequest{SKU: "banana", Qty: 2})
	catalog(1)

	if err := container.Invalidate(ctx, "quote"); err != nil {
		t.Fatalf("Invalidate() failed: %v", err)
	}

	quote(QuoteRequest{SKU: "banana", Qty: 2})
	catalog(1)

	if service.getCallCount("Quote") != 2 {
		t.Errorf("Expected invalidated quote to recompute, got %d calls", service.getCallCount("Quote"))
	}
	if service.getCallCount("Catalog") != 1 {
		t.Errorf("Expected catalog to stay cached, got %d calls", service.getCallCount("Catalog"))
	}
}

func TestInvalidationFlow_ZeroArgumentCalls(t *testing.T) {
	for _, backend := range []string{config.BackendMemory, config.BackendSturdyc} {
		t.Run(backend, func(t *testing.T) {
			container := newTestContainer(t, func(c *config.Config) {
				c.Memoize.Backend = backend
				c.Memoize.Capacity = 1000
				c.Memoize.NumShards = 8
			})
			service := newMockPriceService()

			opts := append(container.Options(), fn.WithNamespace("catalog"))
			catalog := fn.MemoizeFunc(func(args ...any) []string {
				return service.Catalog(len(args))
			}, opts...)

			catalog()
			catalog("page", 2)
			catalog()
			if service.getCallCount("Catalog") != 2 {
				t.Fatalf("Expected 2 calls before invalidation, got %d", service.getCallCount("Catalog"))
			}

			if err := container.Invalidate(context.Background(), "catalog"); err != nil {
				t.Fatalf("Invalidate() failed: %v", err)
			}

			catalog()
			catalog("page", 2)
			if service.getCallCount("Catalog") != 4 {
				t.Errorf("Expected both entries to be recomputed, got %d calls", service.getCallCount("Catalog"))
			}
		})
	}
}

func TestSharedNamespaceAcrossAdapters(t *testing.T) {
	container := newTestContainer(t, nil)
	service := newMockPriceService()

	a := NewMemoized(container, "catalog", service.Catalog)
	b := NewMemoized(container, "catalog", service.Catalog)
	c := NewMemoized(container, "", service.Catalog)

	a(1)
	b(1)
	c(1)

	if service.getCallCount("Catalog") != 2 {
		t.Errorf("Expected named adapters to share results, got %d calls", service.getCallCount("Catalog"))
	}
}

func TestRetryFlow(t *testing.T) {
	clock := testsupport.NewManualClock(time.Unix(0, 0))
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	container := newTestContainer(t, nil, WithClock(clock), WithLogger(logger))
	service := newMockPriceService()
	service.failUntil = 2

	quote, err := Retry(container, func() (Quote, error) {
		return service.Quote(QuoteRequest{SKU: "apple", Qty: 1})
	})
	if err != nil {
		t.Fatalf("Expected success on the third attempt, got %v", err)
	}
	if quote.Price != 0.5 {
		t.Errorf("Expected price 0.5, got %v", quote.Price)
	}
	if service.getCallCount("Quote") != 3 {
		t.Errorf("Expected 3 attempts, got %d", service.getCallCount("Quote"))
	}
	if clock.Slept() != 20*time.Millisecond {
		t.Errorf("Expected two 10ms waits, slept %v", clock.Slept())
	}
	if !strings.Contains(logs.String(), "retry attempt failed") {
		t.Errorf("Expected retry attempts to be logged, got:\n%s", logs.String())
	}
}

func TestErrorPropagation(t *testing.T) {
	container := newTestContainer(t, func(c *config.Config) {
		c.Retry.MaxAttempts = 2
	}, WithClock(testsupport.NewManualClock(time.Unix(0, 0))))
	service := newMockPriceService()

	// memoized errors come back unchanged and are not cached
	quote := NewMemoizedE(container, "quote", service.Quote)
	for i := 0; i < 2; i++ {
		if _, err := quote(QuoteRequest{SKU: "cherry", Qty: 1}); !errors.Is(err, errUnknownSKU) {
			t.Errorf("Expected errUnknownSKU, got %v", err)
		}
	}
	if service.getCallCount("Quote") != 2 {
		t.Errorf("Expected failures to be recomputed, got %d calls", service.getCallCount("Quote"))
	}

	// retries return the last failure unchanged
	_, err := Retry(container, func() (Quote, error) {
		return service.Quote(QuoteRequest{SKU: "cherry", Qty: 1})
	})
	if err != errUnknownSKU {
		t.Errorf("Expected errUnknownSKU, got %v", err)
	}
	if service.getCallCount("Quote") != 4 {
		t.Errorf("Expected 2 more attempts, got %d calls", service.getCallCount("Quote"))
	}
}

func TestThrottleAndDebounceFlow(t *testing.T) {
	clock := testsupport.NewManualClock(time.Unix(0, 0))
	container := newTestContainer(t, func(c *config.Config) {
		c.Throttle.Interval = time.Second
		c.Debounce.Delay = 50 * time.Millisecond
	}, WithClock(clock))
	service := newMockPriceService()

	catalog := NewThrottled(container, service.Catalog)
	catalog(1)
	clock.Advance(500 * time.Millisecond)
	catalog(2)
	if service.getCallCount("Catalog") != 1 {
		t.Errorf("Expected throttled calls to reuse the result, got %d calls", service.getCallCount("Catalog"))
	}

	clock.Advance(500 * time.Millisecond)
	catalog(3)
	if service.getCallCount("Catalog") != 2 {
		t.Errorf("Expected a new call after the interval, got %d calls", service.getCallCount("Catalog"))
	}

	debounced := NewDebounced(container, service.Catalog)
	debounced(1)
	debounced(1)
	if service.getCallCount("Catalog") != 4 {
		t.Errorf("Expected every debounced call to run, got %d calls", service.getCallCount("Catalog"))
	}
	if clock.Slept() != 100*time.Millisecond {
		t.Errorf("Expected two 50ms waits, slept %v", clock.Slept())
	}
}

func TestLoadedConfigurationFlow(t *testing.T) {
	yamlDoc := `
retry:
  max_attempts: 2
  backoff:
    strategy: none
memoize:
  backend: sturdyc
  key_serializer: hashed
  capacity: 500
  num_shards: 4
  ttl: 1m
`
	cfg, err := config.Load(strings.NewReader(yamlDoc))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	container, err := NewContainer(cfg)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}

	service := newMockPriceService()
	quote := NewMemoizedE(container, "quote", service.Quote)
	quote(QuoteRequest{SKU: "apple", Qty: 1})
	quote(QuoteRequest{SKU: "apple", Qty: 1})

	if service.getCallCount("Quote") != 1 {
		t.Errorf("Expected hashed keys to hit the cache, got %d calls", service.getCallCount("Quote"))
	}
	if container.Retrier().MaxAttempts() != 2 {
		t.Errorf("Expected 2 attempts, got %d", container.Retrier().MaxAttempts())
	}
}
