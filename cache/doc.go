// Package cache provides caching interfaces and key serialization for the
// property and template caches.
//
// # Overview
//
// This package exports two main interfaces and their default implementations:
//
//   - CacheService: a read-through cache keyed by string
//   - KeySerializer: builds stable cache keys from a namespace and arguments
//
// The default CacheService is backed by sturdyc (see internal/cacheinfra). A
// miss runs the fetch function once even when several goroutines ask for the
// same key at the same time, and every caller observes the same stored value.
// The property catalog relies on that to hand out one *Property per id.
//
// # Basic Usage
//
//	svc, err := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//
//	prop, err := cache.GetOrFetch(ctx, svc, keys.SerializeKey("property", 12),
//		func(ctx context.Context) (*omeka.Property, error) {
//			return fetchProperty(ctx, 12)
//		})
//
// # Keys
//
// Keys are the namespace followed by each argument, joined with KeySeparator:
//
//	property::12
//	template::7
//
// A serializer created with NewPrefixedKeySerializer prepends its prefix, which
// lets two sessions share one backend without reading each other's entries.
//
// # Lifetime
//
// DefaultConfig uses a TTL long enough to cover a process lifetime and no
// early refreshes. A refresh would replace a resident value with a new
// instance and break identity for callers that compare pointers.
package cache
