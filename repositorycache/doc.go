// Package repositorycache provides a read-through, id-keyed cache in front of
// a remote source of records.
//
// # Overview
//
// Cached wraps a Source (a function that loads one record by numeric id) with
// a cache.CacheService. It is used for property definitions and fully resolved
// templates, both of which are immutable once loaded and must keep a single
// in-memory instance per id.
//
// # Basic Usage
//
//	svc, _ := cache.NewCacheService(cache.DefaultConfig())
//	keys := cache.NewDefaultKeySerializer()
//
//	props := repositorycache.New(fetchProperty, svc, keys)
//	p1, _ := props.Get(ctx, 12) // loads from the source
//	p2, _ := props.Get(ctx, 12) // same pointer, no load
//
// # Preloading
//
// Put stores a record obtained elsewhere, typically from a bulk listing. If a
// record with the same id is already resident, Put keeps it and returns it, so
// pointers handed out earlier stay valid.
//
// # Invalidation
//
// Every stored key is tracked. Invalidate drops one id, Reset drops the whole
// namespace. Len and IDs report what the repository has stored.
//
// # Namespaces
//
// Keys are built as "<namespace>::<id>". The default namespace is the
// snake_case type name of the record (Property → "property",
// ResourceTemplate → "resource_template"); WithNamespace overrides it.
package repositorycache
