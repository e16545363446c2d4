package omeka

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/cache"
	"github.com/goliatone/go-omeka-mapper/repositorycache"
	"github.com/goliatone/go-omeka-mapper/transport"
)

// Template is a fully resolved resource template. Properties keep the order
// declared by the server; write payloads follow it.
type Template struct {
	ID         int64
	Label      string
	ClassID    int64
	Properties []TemplateProperty
}

// Property returns the binding for term.
func (t *Template) Property(term string) (TemplateProperty, bool) {
	for _, p := range t.Properties {
		if p.Term == term {
			return p, true
		}
	}
	return TemplateProperty{}, false
}

// PartialTemplate is the metadata of a template, enough to find it by label.
type PartialTemplate struct {
	ID      int64
	Label   string
	ClassID int64
}

// TemplateRegistry caches partial and full templates.
type TemplateRegistry struct {
	transport  Transport
	properties *PropertyCatalog
	full       *repositorycache.Cached[*Template]
	settings   settings
	logger     *slog.Logger

	mu            sync.RWMutex
	partials      []PartialTemplate
	partialIndex  map[int64]int
	partialLoaded atomic.Bool

	items *Items
}

// NewTemplateRegistry creates a registry storing full templates in svc and
// resolving their properties through properties.
func NewTemplateRegistry(t Transport, properties *PropertyCatalog, svc cache.CacheService, opts ...Option) *TemplateRegistry {
	s := newSettings(opts)
	r := &TemplateRegistry{
		transport:    t,
		properties:   properties,
		settings:     s,
		logger:       s.component("templates"),
		partialIndex: make(map[int64]int),
	}
	r.full = repositorycache.New[*Template](
		r.fetch,
		svc,
		s.keySerializer,
		repositorycache.WithObserver(cacheObserver(s.metrics)),
	)
	return r
}

// Template returns the full template with id, fetching and resolving it on
// first use.
func (r *TemplateRegistry) Template(ctx context.Context, id int64) (*Template, error) {
	r.logger.Debug("get template", "id", id)
	return r.full.Get(ctx, id)
}

// TemplateByName returns the full template of the first partial template
// labelled label. It fails with ErrTemplatesNotLoaded unless PreloadPartial or
// PreloadFull has been called.
func (r *TemplateRegistry) TemplateByName(ctx context.Context, label string) (*Template, error) {
	if !r.partialLoaded.Load() {
		return nil, ErrTemplatesNotLoaded
	}

	r.mu.RLock()
	var (
		id    int64
		found bool
	)
	for _, p := range r.partials {
		if p.Label == label {
			id, found = p.ID, true
			break
		}
	}
	r.mu.RUnlock()

	if !found {
		return nil, templateNotFound(label)
	}
	return r.Template(ctx, id)
}

// Partials returns the partial templates in listing order.
func (r *TemplateRegistry) Partials() []PartialTemplate {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]PartialTemplate(nil), r.partials...)
}

// Loaded reports whether a preload has been started.
func (r *TemplateRegistry) Loaded() bool {
	return r.partialLoaded.Load()
}

// Len reports the number of full templates held.
func (r *TemplateRegistry) Len() int {
	return r.full.Len()
}

// PreloadPartial walks the template listing page by page and records the
// metadata of every template.
func (r *TemplateRegistry) PreloadPartial(ctx context.Context) error {
	return r.preload(ctx, false)
}

// PreloadFull is PreloadPartial that also resolves every listed template and
// stores it as full.
func (r *TemplateRegistry) PreloadFull(ctx context.Context) error {
	return r.preload(ctx, true)
}

func (r *TemplateRegistry) preload(ctx context.Context, full bool) error {
	r.partialLoaded.Store(true)

	target := r.transport.URL("resource_templates", r.settings.listQuery(nil))
	r.logger.Info("preloading templates", "full", full, "url", transport.Redact(target))

	for target != "" {
		resp, err := r.transport.Request(ctx, http.MethodGet, target, nil)
		if err != nil {
			return err
		}

		var page []wireTemplate
		if err := json.Unmarshal(resp.Body, &page); err != nil {
			return malformed(err, "template page")
		}

		for _, w := range page {
			r.remember(w)
			if !full {
				continue
			}
			if _, ok := r.full.Peek(w.ID); ok {
				continue
			}

			tmpl, err := r.resolve(ctx, w)
			if err != nil {
				return err
			}
			if _, err := r.full.Put(ctx, w.ID, tmpl); err != nil {
				return err
			}
		}

		target, _ = transport.NextURL(resp)
	}
	return nil
}

// Item returns the item with id. See Items.Item.
func (r *TemplateRegistry) Item(ctx context.Context, id int64, deep bool) (*Item, error) {
	if r.items == nil {
		return nil, errors.New("template registry has no item factory", errors.CategoryOperation)
	}
	return r.items.Item(ctx, id, deep)
}

// Engine returns the transform engine bound to tmpl.
func (r *TemplateRegistry) Engine(tmpl *Template) *Engine {
	return &Engine{
		template:  tmpl,
		registry:  r,
		transport: r.transport,
		logger:    r.logger.With("template", tmpl.ID),
		metrics:   r.settings.metrics,
	}
}

// Reset forgets every partial and full template and clears the preload flag.
func (r *TemplateRegistry) Reset(ctx context.Context) error {
	r.mu.Lock()
	r.partials = nil
	r.partialIndex = make(map[int64]int)
	r.mu.Unlock()
	r.partialLoaded.Store(false)

	return r.full.Reset(ctx)
}

// adopt caches it under id in the item cache of the attached factory.
func (r *TemplateRegistry) adopt(id int64, it *Item) error {
	if r.items == nil {
		return errors.New("template registry has no item factory", errors.CategoryOperation)
	}
	if !r.items.cache.adopt(id, it) {
		return errors.New("item "+strconv.FormatInt(id, 10)+" is already cached as another instance", errors.CategoryConflict)
	}
	return nil
}

func (r *TemplateRegistry) attach(items *Items) {
	r.items = items
}

func (r *TemplateRegistry) remember(w wireTemplate) {
	p := PartialTemplate{ID: w.ID, Label: w.Label}
	if w.Class != nil {
		p.ClassID = w.Class.ID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if i, ok := r.partialIndex[w.ID]; ok {
		r.partials[i] = p
		return
	}
	r.partialIndex[w.ID] = len(r.partials)
	r.partials = append(r.partials, p)
}

func (r *TemplateRegistry) fetch(ctx context.Context, id int64) (*Template, error) {
	resp, err := r.transport.Request(ctx, http.MethodGet, r.transport.URL("resource_templates/"+strconv.FormatInt(id, 10), nil), nil)
	if err != nil {
		return nil, err
	}

	var w wireTemplate
	if err := json.Unmarshal(resp.Body, &w); err != nil {
		return nil, malformed(err, "template")
	}
	return r.resolve(ctx, w)
}

// resolve looks up every bound property in declaration order.
func (r *TemplateRegistry) resolve(ctx context.Context, w wireTemplate) (*Template, error) {
	tmpl := &Template{
		ID:         w.ID,
		Label:      w.Label,
		Properties: make([]TemplateProperty, 0, len(w.Properties)),
	}
	if w.Class != nil {
		tmpl.ClassID = w.Class.ID
	}

	for _, b := range w.Properties {
		prop, err := r.properties.Property(ctx, b.Property.ID)
		if err != nil {
			return nil, err
		}
		tmpl.Properties = append(tmpl.Properties, TemplateProperty{
			Property:       prop,
			DataTypes:      append([]string(nil), b.DataTypes...),
			Required:       b.Required,
			AlternateLabel: b.AlternateLabel,
		})
	}

	r.logger.Debug("resolved template", "id", tmpl.ID, "label", tmpl.Label, "properties", len(tmpl.Properties))
	return tmpl, nil
}
