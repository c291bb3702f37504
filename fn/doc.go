// Package fn provides adapters that change how a function is called without
// changing what it computes.
//
// # Overview
//
//   - Curry, CurryFunc, Curry2..Curry4: supply arguments across several calls
//   - Partial, PartialRight, Partial1, Partial2: fix some arguments ahead of time
//   - Compose, Pipe and their typed and fallible variants: thread a value through stages
//   - Memoize, Memoize2, MemoizeE, MemoizeFunc: cache results by structural argument key
//   - Retry, Retrier: re-run failing functions with a backoff between attempts
//   - Throttle, ThrottleE: run at most once per interval, reuse the last result in between
//   - Debounce: wait a fixed delay before every call
//
// # Basic Usage
//
//	add := func(a, b, c int) int { return a + b + c }
//	fn.Curry3(add)(5)(3)(2)                        // 10
//	fn.Pipe(5, func(x int) int { return x + 1 },
//	    func(x int) int { return x * 2 })          // 12
//
//	fetch := fn.Retry[int](3, backoff.Exponential(50*time.Millisecond, time.Second))
//	v, err := fetch(loadCounter)
//
// # Memoization
//
// Memoized functions key their cache with a cache.KeySerializer. The default
// serializer renders each argument with its type, so 1 and "1" and int64(1)
// are different keys while two equal structs (or slices, or maps) are the same
// key. Results are kept in an unbounded in-memory map owned by the memoized
// function. WithCacheService swaps that for any cache.CacheService, including
// the bounded sturdyc backed one from cache.NewCacheService.
//
// # Errors
//
// Errors returned by wrapped functions are passed through unchanged by every
// adapter. Retry only returns the error of the last attempt. Configuration
// problems are reported as go-errors validation errors; see IsConfigError.
//
// # Concurrency
//
// Adapters hold no goroutines. Retry and Debounce block the caller while they
// wait. Memoized and throttled functions may be shared between goroutines:
// their state is synchronized, though concurrent first calls for one key (or
// one throttle window) may each run the wrapped function.
package fn
