package omeka

import (
	"encoding/json"
)

// Wire field names of the API payloads.
const (
	fieldIRI              = "@id"
	fieldID               = "o:id"
	fieldResourceTemplate = "o:resource_template"
	fieldResourceClass    = "o:resource_class"
	fieldItemSet          = "o:item_set"
)

type ref struct {
	ID int64 `json:"o:id"`
}

type wireProperty struct {
	IRI       string `json:"@id"`
	ID        int64  `json:"o:id"`
	LocalName string `json:"o:local_name"`
	Label     string `json:"o:label"`
	Comment   string `json:"o:comment"`
	Term      string `json:"o:term"`
}

// dataTypes accepts null, a single type name or a list of them.
type dataTypes []string

func (d *dataTypes) UnmarshalJSON(b []byte) error {
	var one string
	if err := json.Unmarshal(b, &one); err == nil {
		*d = nil
		if one != "" {
			*d = dataTypes{one}
		}
		return nil
	}

	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*d = many
	return nil
}

type wireBinding struct {
	Property       ref       `json:"o:property"`
	DataTypes      dataTypes `json:"o:data_type"`
	Required       bool      `json:"o:is_required"`
	AlternateLabel string    `json:"o:alternate_label"`
}

type wireTemplate struct {
	ID         int64         `json:"o:id"`
	Label      string        `json:"o:label"`
	Class      *ref          `json:"o:resource_class"`
	Properties []wireBinding `json:"o:resource_template_property"`
}

type rawValue struct {
	Type       string `json:"type"`
	PropertyID int64  `json:"property_id"`
	Value      any    `json:"@value"`
	Language   string `json:"@language"`
	IRI        string `json:"@id"`
	Label      string `json:"o:label"`
	ResourceID int64  `json:"value_resource_id"`
}

// valueDescriptor is one entry of a property array in a write payload.
type valueDescriptor struct {
	PropertyID int64  `json:"property_id"`
	Type       string `json:"type"`
	Value      any    `json:"@value,omitempty"`
	Language   string `json:"@language,omitempty"`
	IRI        string `json:"@id,omitempty"`
	Label      string `json:"o:label,omitempty"`
	ResourceID int64  `json:"value_resource_id,omitempty"`
}

// rawItem is a decoded item payload. Identity fields are read leniently, the
// per-term value arrays are kept raw until a template asks for them.
type rawItem struct {
	IRI          string
	ID           int64
	TemplateID   int64
	CollectionID int64
	fields       map[string]json.RawMessage
}

func decodeItem(data []byte) (*rawItem, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, malformed(err, "item")
	}
	return newRawItem(fields), nil
}

func decodeItems(data []byte) ([]*rawItem, error) {
	var list []map[string]json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, malformed(err, "item list")
	}

	out := make([]*rawItem, 0, len(list))
	for _, fields := range list {
		out = append(out, newRawItem(fields))
	}
	return out, nil
}

func newRawItem(fields map[string]json.RawMessage) *rawItem {
	it := &rawItem{fields: fields}
	lenient(fields[fieldIRI], &it.IRI)
	lenient(fields[fieldID], &it.ID)
	it.TemplateID = refID(fields[fieldResourceTemplate])

	var sets []json.RawMessage
	if lenient(fields[fieldItemSet], &sets) && len(sets) > 0 {
		it.CollectionID = refID(sets[0])
	}
	return it
}

// values returns the value entries stored under term. ok is false when the
// term is absent, null, empty or not an array of value objects.
func (r *rawItem) values(term string) ([]rawValue, bool, error) {
	raw, ok := r.fields[term]
	if !ok {
		return nil, false, nil
	}

	var vals []rawValue
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, false, err
	}
	return vals, len(vals) > 0, nil
}

// refID reads {"o:id": n} or a bare n.
func refID(raw json.RawMessage) int64 {
	var r ref
	if lenient(raw, &r) {
		return r.ID
	}
	var id int64
	if lenient(raw, &id) {
		return id
	}
	return 0
}

func lenient(raw json.RawMessage, dst any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}
