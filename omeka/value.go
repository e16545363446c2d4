package omeka

import "fmt"

// Kind discriminates the variants of Value.
type Kind uint8

const (
	KindLiteral Kind = iota + 1
	KindURI
	KindReference
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindLiteral:
		return "literal"
	case KindURI:
		return "uri"
	case KindReference:
		return "reference"
	case KindItem:
		return "item"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Value is a single typed property value. The zero Value is invalid; build
// values with Literal, LangLiteral, URI, LabeledURI, Reference or Nested.
type Value struct {
	kind     Kind
	scalar   any
	language string
	iri      string
	label    string
	ref      int64
	item     *Item
}

// Literal is a plain scalar: a string, a number (float64 once decoded) or a
// bool.
func Literal(v any) Value {
	return Value{kind: KindLiteral, scalar: v}
}

// LangLiteral is a literal tagged with a language.
func LangLiteral(v any, lang string) Value {
	return Value{kind: KindLiteral, scalar: v, language: lang}
}

func URI(iri string) Value {
	return Value{kind: KindURI, iri: iri}
}

func LabeledURI(iri, label string) Value {
	return Value{kind: KindURI, iri: iri, label: label}
}

// Reference points at another item by numeric id.
func Reference(id int64) Value {
	return Value{kind: KindReference, ref: id}
}

// Nested wraps a materialized item, as produced by deep resolution.
func Nested(it *Item) Value {
	return Value{kind: KindItem, item: it}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) Scalar() any { return v.scalar }
func (v Value) Language() string { return v.language }
func (v Value) IRI() string { return v.iri }
func (v Value) Label() string { return v.label }
func (v Value) Item() *Item { return v.item }
func (v Value) IsZero() bool { return v.kind == 0 }
func (v Value) IsReference() bool { return v.kind == KindReference || v.kind == KindItem }

// ResourceID returns the id of the referenced item. A nested item is unwrapped
// to its id. ok is false for literals, URIs and unsaved nested items.
func (v Value) ResourceID() (int64, bool) {
	switch v.kind {
	case KindReference:
		return v.ref, true
	case KindItem:
		if v.item == nil {
			return 0, false
		}
		id := v.item.ID()
		return id, id != 0
	default:
		return 0, false
	}
}

// Interface returns the plain Go form of v: the scalar of a literal, the IRI
// of a URI, the id of a reference and the *Item of a nested item.
func (v Value) Interface() any {
	switch v.kind {
	case KindLiteral:
		return v.scalar
	case KindURI:
		return v.iri
	case KindReference:
		return v.ref
	case KindItem:
		return v.item
	default:
		return nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindURI:
		return v.iri
	case KindItem:
		if v.item == nil {
			return ""
		}
		return fmt.Sprint(v.item.ID())
	default:
		return fmt.Sprint(v.Interface())
	}
}

// Field holds the values of one property. One value is a scalar field, two or
// more an ordered list.
type Field struct {
	values []Value
}

func NewField(values ...Value) Field {
	return Field{values: append([]Value(nil), values...)}
}

func (f Field) IsList() bool { return len(f.values) > 1 }
func (f Field) Len() int { return len(f.values) }

// First returns the first value, the scalar of a non-list field.
func (f Field) First() (Value, bool) {
	if len(f.values) == 0 {
		return Value{}, false
	}
	return f.values[0], true
}

// Values returns a copy of the values in source order.
func (f Field) Values() []Value {
	return append([]Value(nil), f.values...)
}

// Interface collapses the field: a single value as its plain form, several
// as a []any in order.
func (f Field) Interface() any {
	switch len(f.values) {
	case 0:
		return nil
	case 1:
		return f.values[0].Interface()
	}

	out := make([]any, len(f.values))
	for i, v := range f.values {
		out[i] = v.Interface()
	}
	return out
}

// Record maps property terms to fields.
type Record map[string]Field

// Set stores values under term, replacing what was there. No values removes
// the term.
func (r Record) Set(term string, values ...Value) {
	if len(values) == 0 {
		delete(r, term)
		return
	}
	r[term] = NewField(values...)
}

// Clone returns a shallow copy. Fields are immutable so sharing them is safe.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for term, f := range r {
		out[term] = f
	}
	return out
}
