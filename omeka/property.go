package omeka

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
	"github.com/goliatone/go-omeka-mapper/repositorycache"
	"github.com/goliatone/go-omeka-mapper/transport"
	"golang.org/x/sync/errgroup"
)

// Data type tags understood by the engine. Any tag starting with
// "resource:" is a resource reference as well.
const (
	TypeLiteral  = "literal"
	TypeURI      = "uri"
	TypeResource = "resource"
)

// IsResourceType reports whether tag denotes a reference to another resource.
func IsResourceType(tag string) bool {
	return tag == TypeResource || strings.HasPrefix(tag, TypeResource+":")
}

// Property is a field definition shared across templates. Loaded properties
// are never modified.
type Property struct {
	ID        int64
	IRI       string
	Term      string
	LocalName string
	Label     string
	Comment   string
}

func newProperty(w wireProperty) *Property {
	return &Property{
		ID:        w.ID,
		IRI:       w.IRI,
		Term:      w.Term,
		LocalName: w.LocalName,
		Label:     w.Label,
		Comment:   w.Comment,
	}
}

// TemplateProperty binds a Property into a template together with the data
// types the template declares for it.
type TemplateProperty struct {
	*Property
	DataTypes      []string
	Required       bool
	AlternateLabel string
}

// PrimaryType is the first declared data type, or "literal" when none is
// declared.
func (p TemplateProperty) PrimaryType() string {
	if len(p.DataTypes) == 0 {
		return TypeLiteral
	}
	return p.DataTypes[0]
}

// IsResource reports whether any declared type is a resource reference.
func (p TemplateProperty) IsResource() bool {
	for _, t := range p.DataTypes {
		if IsResourceType(t) {
			return true
		}
	}
	return false
}

// IsURI reports whether "uri" is among the declared types.
func (p TemplateProperty) IsURI() bool {
	for _, t := range p.DataTypes {
		if t == TypeURI {
			return true
		}
	}
	return false
}

// PropertyCatalog caches property definitions by id.
type PropertyCatalog struct {
	transport Transport
	cached    *repositorycache.Cached[*Property]
	settings  settings
	logger    *slog.Logger
}

// NewPropertyCatalog creates a catalog storing properties in svc.
func NewPropertyCatalog(t Transport, svc cache.CacheService, opts ...Option) *PropertyCatalog {
	s := newSettings(opts)
	c := &PropertyCatalog{
		transport: t,
		settings:  s,
		logger:    s.component("properties"),
	}
	c.cached = repositorycache.New[*Property](
		c.fetch,
		svc,
		s.keySerializer,
		repositorycache.WithObserver(cacheObserver(s.metrics)),
	)
	return c
}

// Property returns the property with id, fetching it on first use. Repeated
// calls return the same instance.
func (c *PropertyCatalog) Property(ctx context.Context, id int64) (*Property, error) {
	c.logger.Debug("get property", "id", id)
	return c.cached.Get(ctx, id)
}

// Len reports the number of cached properties.
func (c *PropertyCatalog) Len() int {
	return c.cached.Len()
}

// PreloadAll walks every page of the property listing into the cache. The
// next page is requested while the current one is decoded. Properties that
// are already resident keep their instance.
func (c *PropertyCatalog) PreloadAll(ctx context.Context) error {
	target := c.transport.URL("properties", c.settings.listQuery(nil))
	c.logger.Info("preloading properties", "url", transport.Redact(target))
	return c.preloadPage(ctx, target)
}

// Reset drops every cached property.
func (c *PropertyCatalog) Reset(ctx context.Context) error {
	return c.cached.Reset(ctx)
}

func (c *PropertyCatalog) preloadPage(ctx context.Context, target string) error {
	resp, err := c.transport.Request(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if next, ok := transport.NextURL(resp); ok {
		g.Go(func() error {
			return c.preloadPage(gctx, next)
		})
	}

	if err := c.merge(ctx, resp.Body); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	return g.Wait()
}

func (c *PropertyCatalog) merge(ctx context.Context, body []byte) error {
	var page []wireProperty
	if err := json.Unmarshal(body, &page); err != nil {
		return malformed(err, "property page")
	}

	for _, w := range page {
		if _, err := c.cached.Put(ctx, w.ID, newProperty(w)); err != nil {
			return err
		}
	}
	c.logger.Debug("merged property page", "count", len(page))
	return nil
}

func (c *PropertyCatalog) fetch(ctx context.Context, id int64) (*Property, error) {
	resp, err := c.transport.Request(ctx, http.MethodGet, c.transport.URL("properties/"+strconv.FormatInt(id, 10), nil), nil)
	if err != nil {
		return nil, err
	}

	var w wireProperty
	if err := json.Unmarshal(resp.Body, &w); err != nil {
		return nil, malformed(err, "property")
	}
	return newProperty(w), nil
}

func cacheObserver(m *metrics.Metrics) repositorycache.Observer {
	return func(namespace string, hit bool) {
		m.ObserveCache(namespace, hit)
	}
}
