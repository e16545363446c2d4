package omeka

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// Saver persists an item. The Engine that materialized or created an item is
// its Saver; the item does not own it.
type Saver interface {
	Save(ctx context.Context, it *Item) error
}

// Item is a materialized resource. Its record is safe for concurrent use.
type Item struct {
	mu           sync.RWMutex
	iri          string
	id           int64
	collectionID int64
	templateID   int64
	record       Record
	saver        Saver
	err          error
	state        fillState
	ready        chan struct{}
}

type fillState uint8

const (
	stateFilling fillState = iota
	stateReady
	stateFailed
)

func newItem(id int64) *Item {
	return &Item{
		id:     id,
		record: Record{},
		ready:  make(chan struct{}),
	}
}

// NewItem returns an empty item that belongs to no cache, e.g. as the target
// of Engine.Materialize.
func NewItem() *Item {
	it := newItem(0)
	it.finish(nil)
	return it
}

func (it *Item) IRI() string {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.iri
}

func (it *Item) ID() int64 {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.id
}

// CollectionID is the id of the item set the item belongs to, 0 for none.
func (it *Item) CollectionID() int64 {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.collectionID
}

// SetCollectionID moves the item to another item set on the next Save.
func (it *Item) SetCollectionID(id int64) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.collectionID = id
}

func (it *Item) TemplateID() int64 {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.templateID
}

// Get returns the field stored under term.
func (it *Item) Get(term string) (Field, bool) {
	it.mu.RLock()
	defer it.mu.RUnlock()
	f, ok := it.record[term]
	return f, ok
}

// Set replaces the values of term. Calling it without values removes term.
func (it *Item) Set(term string, values ...Value) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.record == nil {
		it.record = Record{}
	}
	it.record.Set(term, values...)
}

func (it *Item) Delete(term string) {
	it.mu.Lock()
	defer it.mu.Unlock()
	delete(it.record, term)
}

// Record returns a snapshot of the item's fields.
func (it *Item) Record() Record {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.record.Clone()
}

// Save writes the whole record back through the item's engine. The item is
// neither re-fetched nor re-cached.
func (it *Item) Save(ctx context.Context) error {
	it.mu.RLock()
	saver := it.saver
	it.mu.RUnlock()

	if saver == nil {
		return errors.New("item has no engine to save through", errors.CategoryOperation).
			WithTextCode(textCodeNotPersisted)
	}
	return saver.Save(ctx, it)
}

// Ready is closed once the current fill completed or failed. A failed item
// that is filled again gets a new channel.
func (it *Item) Ready() <-chan struct{} {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.ready
}

// Err reports why the fill failed. It is nil while the fill is running.
func (it *Item) Err() error {
	it.mu.RLock()
	defer it.mu.RUnlock()
	return it.err
}

// Plain renders the item as nested maps: identity keys plus one entry per
// term, collapsed to a scalar or a list. Items reached twice are rendered as
// {"o:id": n} the second time.
func (it *Item) Plain() map[string]any {
	return it.plain(map[*Item]bool{})
}

func (it *Item) plain(seen map[*Item]bool) map[string]any {
	seen[it] = true

	it.mu.RLock()
	out := map[string]any{
		fieldIRI:              it.iri,
		fieldID:               it.id,
		fieldResourceTemplate: it.templateID,
	}
	if it.collectionID != 0 {
		out[fieldItemSet] = it.collectionID
	}
	rec := it.record.Clone()
	it.mu.RUnlock()

	for term, f := range rec {
		vals := make([]any, 0, f.Len())
		for _, v := range f.values {
			vals = append(vals, plainValue(v, seen))
		}
		if len(vals) == 1 {
			out[term] = vals[0]
		} else {
			out[term] = vals
		}
	}
	return out
}

func plainValue(v Value, seen map[*Item]bool) any {
	if v.kind != KindItem || v.item == nil {
		return v.Interface()
	}
	if seen[v.item] {
		return map[string]any{fieldID: v.item.ID()}
	}
	return v.item.plain(seen)
}

func (it *Item) fill(raw *rawItem, templateID int64, rec Record, saver Saver) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.iri = raw.IRI
	if raw.ID != 0 {
		it.id = raw.ID
	}
	it.collectionID = raw.CollectionID
	it.templateID = templateID
	it.record = rec
	it.saver = saver
}

// finish ends the running fill. Later calls are ignored until the item is
// restarted.
func (it *Item) finish(err error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state != stateFilling {
		return
	}
	it.err = err
	it.state = stateReady
	if err != nil {
		it.state = stateFailed
	}
	close(it.ready)
}

// restart opens a new fill of the item under id. It fails while another fill
// is running.
func (it *Item) restart(id int64) bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.state == stateFilling {
		return false
	}
	it.id = id
	it.err = nil
	it.state = stateFilling
	it.ready = make(chan struct{})
	return true
}

// claim restarts the item if its last fill failed. One caller wins.
func (it *Item) claim() bool {
	it.mu.Lock()
	failed := it.state == stateFailed
	it.mu.Unlock()
	return failed && it.restart(it.ID())
}

// wait blocks until the item is filled or ctx ends. A failed fill taken over
// by another caller is waited for as well.
func (it *Item) wait(ctx context.Context) error {
	for {
		ready := it.Ready()
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		}

		it.mu.RLock()
		state, err := it.state, it.err
		it.mu.RUnlock()
		if state != stateFilling {
			return err
		}
	}
}
