package omeka_test

import (
	"testing"

	"github.com/goliatone/go-omeka-mapper/omeka"
	"github.com/stretchr/testify/assert"
)

func TestValue_Kinds(t *testing.T) {
	host := omeka.NewItem()

	tests := []struct {
		name      string
		value     omeka.Value
		kind      omeka.Kind
		plain     any
		resource  int64
		reference bool
	}{
		{name: "literal", value: omeka.Literal("x"), kind: omeka.KindLiteral, plain: "x"},
		{name: "language", value: omeka.LangLiteral("x", "en"), kind: omeka.KindLiteral, plain: "x"},
		{name: "uri", value: omeka.LabeledURI("https://example.org/a", "a"), kind: omeka.KindURI, plain: "https://example.org/a"},
		{name: "reference", value: omeka.Reference(12), kind: omeka.KindReference, plain: int64(12), resource: 12, reference: true},
		{name: "unsaved item", value: omeka.Nested(host), kind: omeka.KindItem, plain: host, reference: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.value.Kind())
			assert.Equal(t, tt.plain, tt.value.Interface())
			assert.Equal(t, tt.reference, tt.value.IsReference())
			assert.False(t, tt.value.IsZero())

			id, ok := tt.value.ResourceID()
			assert.Equal(t, tt.resource, id)
			assert.Equal(t, tt.resource != 0, ok)
		})
	}

	assert.True(t, omeka.Value{}.IsZero())
	assert.Equal(t, "uri", omeka.KindURI.String())
	assert.Equal(t, "kind(9)", omeka.Kind(9).String())
}

func TestField_Collapse(t *testing.T) {
	single := omeka.NewField(omeka.Literal("a"))
	assert.False(t, single.IsList())
	assert.Equal(t, "a", single.Interface())

	list := omeka.NewField(omeka.Literal("a"), omeka.URI("https://example.org/b"), omeka.Reference(3))
	assert.True(t, list.IsList())
	assert.Equal(t, 3, list.Len())
	assert.Equal(t, []any{"a", "https://example.org/b", int64(3)}, list.Interface())

	first, ok := list.First()
	assert.True(t, ok)
	assert.Equal(t, "a", first.Scalar())

	values := list.Values()
	values[0] = omeka.Literal("changed")
	again, _ := list.First()
	assert.Equal(t, "a", again.Scalar(), "Values returns a copy")

	_, ok = omeka.Field{}.First()
	assert.False(t, ok)
	assert.Nil(t, omeka.Field{}.Interface())
}

func TestRecord_SetAndClone(t *testing.T) {
	rec := omeka.Record{}
	rec.Set("dcterms:title", omeka.Literal("a"))
	rec.Set("dcterms:subject", omeka.Literal("b"), omeka.Literal("c"))

	clone := rec.Clone()
	rec.Set("dcterms:title")

	assert.NotContains(t, rec, "dcterms:title")
	assert.Contains(t, clone, "dcterms:title")
	assert.True(t, clone["dcterms:subject"].IsList())
}

func TestItem_SetGetDelete(t *testing.T) {
	it := omeka.NewItem()
	it.Set("dcterms:title", omeka.Literal("a"))
	it.SetCollectionID(4)

	f, ok := it.Get("dcterms:title")
	assert.True(t, ok)
	assert.Equal(t, "a", f.Interface())
	assert.Equal(t, int64(4), it.CollectionID())

	snapshot := it.Record()
	it.Delete("dcterms:title")
	_, ok = it.Get("dcterms:title")
	assert.False(t, ok)
	assert.Contains(t, snapshot, "dcterms:title")

	select {
	case <-it.Ready():
	default:
		t.Fatal("detached items are ready")
	}
	assert.NoError(t, it.Err())
}
