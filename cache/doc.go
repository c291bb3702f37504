// Package cache provides the storage and key building that memoized functions
// are built on.
//
// # Overview
//
// This package exports two main interfaces and their implementations:
//
//   - CacheService: read-through storage keyed by string
//   - KeySerializer: builds stable cache keys from a namespace and an argument list
//
// Two services are available. NewMemoryService returns an unbounded concurrent
// map where entries live until deleted. NewCacheService returns a bounded,
// TTL based service backed by sturdyc. Both implement Invalidator.
//
// # Basic Usage
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("price_of", sku, qty)
//
//	price, err := cache.GetOrFetch(ctx, service, key, func(ctx context.Context) (float64, error) {
//		return lookupPrice(ctx, sku, qty)
//	})
//
// # Key Serialization Strategy
//
// The default key serializer uses reflection and renders every argument with
// its type:
//
//   - Basic types: type:value, strings quoted (int:42, string:"a::b")
//   - Pointers: the pointed-to value, or *T(nil)
//   - Slices and arrays: element type, length and each element in order
//   - Maps: entries sorted by their rendered key
//   - Structs: every field, exported or not, by name
//   - Functions and channels: their identity (pointer)
//
// A pointer, map or slice met again while it is still being rendered becomes
// a cycle:<type> marker, so self-referencing arguments terminate.
//
// NewHashedKeySerializer keeps the namespace but reduces the rest of the key to
// an xxhash digest. NewMsgpackKeySerializer digests a canonical msgpack
// stream written by the same kind of walk, so it agrees with the default
// serializer on which argument lists are equal.
//
// # Function Arguments
//
// Function values have no structural equality. Two closures with the same code
// and different captured variables are different keys, and keys holding a
// function are only meaningful within one process.
//
// # Namespaces
//
// Namespace and FuncNamespace derive snake_case key prefixes from function
// names. Removing every entry of one memoized function is a DeleteByPrefix on
// its namespace.
package cache
