package repositorycache

import (
	"context"
	"reflect"
	"sort"

	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/puzpuzpuz/xsync/v3"
)

// Source loads a single record by numeric id from the system of record.
type Source[T any] func(ctx context.Context, id int64) (T, error)

// Observer is notified of every lookup served by a Cached repository.
type Observer func(namespace string, hit bool)

// Cached decorates a Source with a read-through, id-keyed cache. Resident
// records keep their identity: a record stored once is returned by every
// later Get for the same id until it is invalidated.
type Cached[T any] struct {
	namespace     string
	source        Source[T]
	cache         cache.CacheService
	keySerializer cache.KeySerializer
	keyRegistry   *xsync.MapOf[string, int64]
	observer      Observer
}

// Option configures a Cached repository.
type Option func(*options)

type options struct {
	namespace string
	observer  Observer
}

// WithNamespace overrides the key namespace derived from the record type.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithObserver registers a hit/miss observer.
func WithObserver(fn Observer) Option {
	return func(o *options) { o.observer = fn }
}

// New creates a Cached repository over source.
func New[T any](source Source[T], cacheService cache.CacheService, keySerializer cache.KeySerializer, opts ...Option) *Cached[T] {
	o := options{namespace: Namespace[T]()}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cached[T]{
		namespace:     o.namespace,
		source:        source,
		cache:         cacheService,
		keySerializer: keySerializer,
		keyRegistry:   xsync.NewMapOf[string, int64](),
		observer:      o.observer,
	}
}

// Namespace derives the default key namespace for T: the snake_case name of
// the record type with pointers stripped, e.g. "resource_template".
func Namespace[T any]() string {
	rt := reflect.TypeOf((*T)(nil)).Elem()
	for rt.Kind() == reflect.Ptr {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return "record"
	}
	return toSnake(rt.Name())
}

// Namespace returns the key namespace used by this repository.
func (c *Cached[T]) Namespace() string {
	return c.namespace
}

// Get retrieves a record by id, loading it from the source on a miss.
func (c *Cached[T]) Get(ctx context.Context, id int64) (T, error) {
	key := c.key(id)
	fetched := false

	record, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		fetched = true
		return c.source(ctx, id)
	})
	if err != nil {
		return record, err
	}

	c.trackKey(key, id)
	c.observe(!fetched)
	return record, nil
}

// Put stores record under id unless a record is already resident, in which
// case the resident one wins and is returned.
func (c *Cached[T]) Put(ctx context.Context, id int64, record T) (T, error) {
	key := c.key(id)

	resident, err := cache.GetOrFetch(ctx, c.cache, key, func(ctx context.Context) (T, error) {
		return record, nil
	})
	if err != nil {
		return resident, err
	}

	c.trackKey(key, id)
	return resident, nil
}

// Peek returns the resident record for id without touching the source.
func (c *Cached[T]) Peek(id int64) (T, bool) {
	var zero T

	value, ok := c.cache.Get(c.key(id))
	if !ok {
		return zero, false
	}
	record, ok := value.(T)
	return record, ok
}

// Invalidate drops the record cached for id.
func (c *Cached[T]) Invalidate(ctx context.Context, id int64) error {
	key := c.key(id)
	c.keyRegistry.Delete(key)
	return c.cache.Delete(ctx, key)
}

// Reset drops every record cached by this repository.
func (c *Cached[T]) Reset(ctx context.Context) error {
	var keys []string
	c.keyRegistry.Range(func(key string, _ int64) bool {
		keys = append(keys, key)
		return true
	})

	if err := c.cache.InvalidateKeys(ctx, keys); err != nil {
		return err
	}
	for _, key := range keys {
		c.keyRegistry.Delete(key)
	}
	return nil
}

// Len reports how many records this repository has stored.
func (c *Cached[T]) Len() int {
	return c.keyRegistry.Size()
}

// IDs returns the ids of stored records in ascending order.
func (c *Cached[T]) IDs() []int64 {
	ids := make([]int64, 0, c.keyRegistry.Size())
	c.keyRegistry.Range(func(_ string, id int64) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Cached[T]) key(id int64) string {
	return c.keySerializer.SerializeKey(c.namespace, id)
}

// trackKey registers a cache key in the key registry for later invalidation
func (c *Cached[T]) trackKey(key string, id int64) {
	c.keyRegistry.Store(key, id)
}

func (c *Cached[T]) observe(hit bool) {
	if c.observer != nil {
		c.observer(c.namespace, hit)
	}
}
