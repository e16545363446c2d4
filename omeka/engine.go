package omeka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-omeka-mapper/internal/metrics"
)

// Engine converts between the wire form of items and Records for one
// template. It keeps no state of its own.
type Engine struct {
	template  *Template
	registry  *TemplateRegistry
	transport Transport
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

var _ Saver = (*Engine)(nil)

func (e *Engine) Template() *Template {
	return e.template
}

// Materialize decodes an item payload and fills into with the values of the
// template's properties. With deep set, resource references are resolved to
// nested items through the registry, and into is cached under the payload id
// first so references back to it resolve to into. That fails when the cache
// already holds another instance for the id.
func (e *Engine) Materialize(ctx context.Context, payload []byte, deep bool, into *Item) error {
	raw, err := decodeItem(payload)
	if err != nil {
		return err
	}
	if !deep || raw.ID == 0 {
		return e.fill(ctx, raw, deep, into)
	}

	if !into.restart(raw.ID) {
		return errors.New(fmt.Sprintf("item %d is already being filled", raw.ID), errors.CategoryConflict)
	}
	if err := e.registry.adopt(raw.ID, into); err != nil {
		into.finish(err)
		return err
	}
	err = e.fill(ctx, raw, deep, into)
	into.finish(err)
	return err
}

func (e *Engine) fill(ctx context.Context, raw *rawItem, deep bool, into *Item) error {
	rec := make(Record, len(e.template.Properties))

	for _, prop := range e.template.Properties {
		entries, ok, err := raw.values(prop.Term)
		if err != nil {
			e.logger.Warn("ignoring malformed values", "item", raw.ID, "term", prop.Term, "error", err)
			continue
		}
		if !ok {
			e.logger.Debug("no values defined", "item", raw.ID, "term", prop.Term)
			continue
		}

		values := make([]Value, 0, len(entries))
		for _, entry := range entries {
			v, err := e.value(ctx, raw.ID, entry, deep)
			if err != nil {
				return err
			}
			values = append(values, v)
		}
		rec[prop.Term] = Field{values: values}
	}

	into.fill(raw, e.template.ID, rec, e)
	e.metrics.ObserveMaterialized(deep)
	return nil
}

func (e *Engine) value(ctx context.Context, itemID int64, entry rawValue, deep bool) (Value, error) {
	switch {
	case entry.Type == TypeLiteral:
		return LangLiteral(entry.Value, entry.Language), nil
	case entry.Type == TypeURI:
		return LabeledURI(entry.IRI, entry.Label), nil
	case IsResourceType(entry.Type):
		if !deep {
			return Reference(entry.ResourceID), nil
		}
		e.logger.Debug("resolving nested item", "item", itemID, "target", entry.ResourceID)
		nested, err := e.registry.Item(withinChain(ctx), entry.ResourceID, true)
		if err != nil {
			return Value{}, err
		}
		return Nested(nested), nil
	default:
		e.logger.Warn("unsupported value type, reading as literal", "item", itemID, "type", entry.Type)
		e.metrics.ObserveUnsupported(entry.Type)
		return LangLiteral(entry.Value, entry.Language), nil
	}
}

// Serialize builds the write payload for rec: the template reference, the
// class and item set when set, and one array of value descriptors per template
// property present in rec. Terms unknown to the template are dropped.
func (e *Engine) Serialize(rec Record, collectionID int64) ([]byte, error) {
	payload := map[string]any{
		fieldResourceTemplate: ref{ID: e.template.ID},
	}
	if e.template.ClassID != 0 {
		payload[fieldResourceClass] = ref{ID: e.template.ClassID}
	}
	if collectionID != 0 {
		payload[fieldItemSet] = []ref{{ID: collectionID}}
	}

	for _, prop := range e.template.Properties {
		field, ok := rec[prop.Term]
		if !ok || field.Len() == 0 {
			continue
		}

		descriptors := make([]valueDescriptor, 0, field.Len())
		for _, v := range field.values {
			d, err := describe(prop, v)
			if err != nil {
				return nil, err
			}
			descriptors = append(descriptors, d)
		}
		payload[prop.Term] = descriptors
	}

	return json.Marshal(payload)
}

func describe(prop TemplateProperty, v Value) (valueDescriptor, error) {
	d := valueDescriptor{
		PropertyID: prop.ID,
		Type:       prop.PrimaryType(),
	}

	switch {
	case prop.IsResource():
		id, ok := v.ResourceID()
		if !ok {
			return d, valueMismatch(fmt.Sprintf("%s expects an item reference, got %s", prop.Term, v.Kind()))
		}
		d.ResourceID = id
	case prop.IsURI():
		d.IRI = v.String()
		d.Label = v.Label()
	default:
		id, ok := v.ResourceID()
		switch {
		case ok:
			d.Value = id
		case v.Kind() == KindItem:
			return d, valueMismatch(prop.Term + " got an item that has no remote id")
		case v.Kind() == KindURI:
			d.Value = v.IRI()
		default:
			d.Value = v.Scalar()
		}
		d.Language = v.Language()
	}
	return d, nil
}

func valueMismatch(msg string) error {
	return errors.New(msg, errors.CategoryBadInput).WithTextCode(textCodeValueType)
}

// Save serializes it and replaces the remote item with the result.
func (e *Engine) Save(ctx context.Context, it *Item) error {
	id := it.ID()
	if id == 0 {
		return errors.New("item has no remote id", errors.CategoryBadInput).
			WithTextCode(textCodeNotPersisted)
	}

	body, err := e.Serialize(it.Record(), it.CollectionID())
	if err != nil {
		return err
	}

	resp, err := e.transport.Request(ctx, http.MethodPut, e.transport.URL("items/"+strconv.FormatInt(id, 10), nil), body)
	if err != nil {
		return err
	}
	if len(resp.Body) > 0 && !json.Valid(resp.Body) {
		return malformed(errors.New("invalid JSON", errors.CategoryBadInput), "update response")
	}

	e.logger.Debug("saved item", "id", id)
	return nil
}
