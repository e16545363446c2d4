package omeka

import (
	"context"

	"github.com/goliatone/go-omeka-mapper/cache"
)

// Session groups the caches of one API configuration. Components of
// different sessions share nothing.
type Session struct {
	Properties *PropertyCatalog
	Templates  *TemplateRegistry
	Items      *Items
	Cache      *ItemCache
}

// NewSession wires a catalog, a registry, an item cache and an item factory
// over t. Properties are stored in propertyCache and full templates in
// templateCache; both may be the same service.
func NewSession(t Transport, propertyCache, templateCache cache.CacheService, opts ...Option) *Session {
	properties := NewPropertyCatalog(t, propertyCache, opts...)
	templates := NewTemplateRegistry(t, properties, templateCache, opts...)
	itemCache := NewItemCache(opts...)

	return &Session{
		Properties: properties,
		Templates:  templates,
		Items:      NewItems(t, templates, itemCache, opts...),
		Cache:      itemCache,
	}
}

// Reset empties every cache of the session.
func (s *Session) Reset(ctx context.Context) error {
	s.Cache.Reset()
	if err := s.Templates.Reset(ctx); err != nil {
		return err
	}
	return s.Properties.Reset(ctx)
}
