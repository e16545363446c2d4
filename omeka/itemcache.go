package omeka

import (
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

const itemCacheName = "item"

// ItemCache maps item ids to the single *Item instance of each id.
type ItemCache struct {
	items   *xsync.MapOf[int64, *Item]
	metrics *metrics.Metrics
}

func NewItemCache(opts ...Option) *ItemCache {
	s := newSettings(opts)
	return &ItemCache{
		items:   xsync.NewMapOf[int64, *Item](),
		metrics: s.metrics,
	}
}

// Register returns the item cached for id, creating and storing an empty stub
// when there is none. Check and store are one atomic step: exactly one caller
// sees created == true for a given stub and is responsible for filling it.
// A stub whose fill failed stays cached and is handed to the next caller as
// created, so the same instance is filled again.
func (c *ItemCache) Register(id int64) (it *Item, created bool) {
	it, loaded := c.items.LoadOrCompute(id, func() *Item {
		return newItem(id)
	})
	created = !loaded || it.claim()
	c.metrics.ObserveCache(itemCacheName, !created)
	return it, created
}

func (c *ItemCache) Lookup(id int64) (*Item, bool) {
	return c.items.Load(id)
}

// Forget drops the item cached for id. Holders of the old instance keep it.
func (c *ItemCache) Forget(id int64) {
	c.items.Delete(id)
}

func (c *ItemCache) Len() int {
	return c.items.Size()
}

func (c *ItemCache) Reset() {
	c.items.Clear()
}

// adopt caches it under id unless another instance already holds the id.
func (c *ItemCache) adopt(id int64, it *Item) bool {
	got, _ := c.items.LoadOrStore(id, it)
	return got == it
}
