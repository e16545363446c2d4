package omeka

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/transport"
)

// Items loads, lists and creates items. Loaded items are kept in an ItemCache
// so each id maps to one instance.
type Items struct {
	registry  *TemplateRegistry
	transport Transport
	cache     *ItemCache
	settings  settings
	logger    *slog.Logger
}

// NewItems creates the item factory for registry and attaches it, so that
// deep resolution through registry.Item reaches it.
func NewItems(t Transport, registry *TemplateRegistry, cache *ItemCache, opts ...Option) *Items {
	s := newSettings(opts)
	i := &Items{
		registry:  registry,
		transport: t,
		cache:     cache,
		settings:  s,
		logger:    s.component("items"),
	}
	registry.attach(i)
	return i
}

// Item returns the item with id. A cached item is returned as is, whatever
// depth it was filled with. On a miss a stub is registered before the item is
// fetched, its template resolved and the stub filled.
//
// A caller finding a stub that another caller is still filling waits for that
// fill, unless it is itself resolving nested references, in which case it gets
// the stub immediately. That is what terminates cyclic references. A failed
// fill leaves the stub cached so items already holding it see the next fill.
func (i *Items) Item(ctx context.Context, id int64, deep bool) (*Item, error) {
	it, created := i.cache.Register(id)
	if !created {
		if inChain(ctx) {
			return it, nil
		}
		if err := it.wait(ctx); err != nil {
			return nil, err
		}
		return it, nil
	}

	if err := i.load(ctx, it, id, deep); err != nil {
		it.finish(err)
		return nil, err
	}
	it.finish(nil)
	return it, nil
}

// Refresh forgets the cached item with id and loads it again. Holders of the
// previous instance keep it unchanged.
func (i *Items) Refresh(ctx context.Context, id int64, deep bool) (*Item, error) {
	i.cache.Forget(id)
	return i.Item(ctx, id, deep)
}

// ListByTemplate returns every item of tmpl, following pagination links. All
// items of a page are registered before any of them is filled. Items already
// cached are returned as they are, not refilled from the listing.
func (i *Items) ListByTemplate(ctx context.Context, tmpl *Template, deep bool) ([]*Item, error) {
	query := url.Values{"resource_template_id[]": {strconv.FormatInt(tmpl.ID, 10)}}
	target := i.transport.URL("items", i.settings.listQuery(query))
	engine := i.registry.Engine(tmpl)

	var out []*Item
	for target != "" {
		resp, err := i.transport.Request(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}

		page, err := i.fillPage(ctx, engine, resp.Body, deep)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)

		target, _ = transport.NextURL(resp)
	}

	i.logger.Debug("listed items", "template", tmpl.ID, "count", len(out))
	return out, nil
}

type listed struct {
	raw     *rawItem
	item    *Item
	created bool
}

// fillPage fills the stubs this call registered first and only then waits for
// stubs owned by other callers, so two listings never wait on each other. A
// stub whose owner failed is filled from the page instead.
func (i *Items) fillPage(ctx context.Context, engine *Engine, body []byte, deep bool) ([]*Item, error) {
	raws, err := decodeItems(body)
	if err != nil {
		return nil, err
	}

	batch := make([]listed, 0, len(raws))
	for _, raw := range raws {
		it, created := i.cache.Register(raw.ID)
		batch = append(batch, listed{raw: raw, item: it, created: created})
	}

	for n, l := range batch {
		if !l.created {
			continue
		}
		if err := engine.fill(ctx, l.raw, deep, l.item); err != nil {
			i.abandonBatch(batch[n:], err)
			return nil, err
		}
		l.item.finish(nil)
	}

	out := make([]*Item, 0, len(batch))
	for _, l := range batch {
		if !l.created && !inChain(ctx) {
			if err := i.await(ctx, engine, l, deep); err != nil {
				return nil, err
			}
		}
		out = append(out, l.item)
	}
	return out, nil
}

func (i *Items) await(ctx context.Context, engine *Engine, l listed, deep bool) error {
	for {
		err := l.item.wait(ctx)
		if err == nil || ctx.Err() != nil {
			return err
		}
		if !l.item.claim() {
			continue
		}

		i.logger.Debug("filling item from listing after failed fill", "id", l.raw.ID, "error", err)
		err = engine.fill(ctx, l.raw, deep, l.item)
		l.item.finish(err)
		return err
	}
}

// Create submits a new item of tmpl built from rec and returns it with the
// identity assigned by the server. The item is not cached.
func (i *Items) Create(ctx context.Context, tmpl *Template, rec Record, collectionID int64) (*Item, error) {
	engine := i.registry.Engine(tmpl)

	body, err := engine.Serialize(rec, collectionID)
	if err != nil {
		return nil, err
	}

	resp, err := i.transport.Request(ctx, http.MethodPost, i.transport.URL("items", nil), body)
	if err != nil {
		return nil, err
	}

	raw, err := decodeItem(resp.Body)
	if err != nil {
		return nil, err
	}

	it := newItem(raw.ID)
	it.fill(raw, tmpl.ID, rec.Clone(), engine)
	it.finish(nil)

	i.logger.Debug("created item", "id", raw.ID, "template", tmpl.ID)
	return it, nil
}

func (i *Items) load(ctx context.Context, it *Item, id int64, deep bool) error {
	resp, err := i.transport.Request(ctx, http.MethodGet, i.transport.URL("items/"+strconv.FormatInt(id, 10), nil), nil)
	if err != nil {
		return err
	}

	raw, err := decodeItem(resp.Body)
	if err != nil {
		return err
	}
	if raw.TemplateID == 0 {
		return errors.New("item "+strconv.FormatInt(id, 10)+" has no resource template", errors.CategoryBadInput).
			WithTextCode(textCodeMalformed)
	}

	tmpl, err := i.registry.Template(ctx, raw.TemplateID)
	if err != nil {
		return err
	}
	return i.registry.Engine(tmpl).fill(ctx, raw, deep, it)
}

func (i *Items) abandonBatch(batch []listed, err error) {
	for _, l := range batch {
		if l.created {
			l.item.finish(err)
		}
	}
}
