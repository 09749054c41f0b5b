package typemodel

import (
	"encoding/json"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Shape is a resolved schema node: a string scalar name, a one-element
// []Shape for collections, or an *Object for composites and pages.
type Shape = any

// Object is an insertion-ordered mapping of property name to Shape. It
// marshals to a JSON object in declaration order.
type Object struct {
	m *orderedmap.OrderedMap[string, Shape]
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: orderedmap.New[string, Shape]()}
}

// Set stores v under k. Re-setting an existing key keeps its position.
func (o *Object) Set(k string, v Shape) {
	o.m.Set(k, v)
}

// Get returns the shape stored under k.
func (o *Object) Get(k string) (Shape, bool) {
	if o == nil || o.m == nil {
		return nil, false
	}
	return o.m.Get(k)
}

// Len returns the number of properties.
func (o *Object) Len() int {
	if o == nil || o.m == nil {
		return 0
	}
	return o.m.Len()
}

// Keys returns the property names in order.
func (o *Object) Keys() []string {
	keys := make([]string, 0, o.Len())
	if o.Len() == 0 {
		return keys
	}
	for p := o.m.Oldest(); p != nil; p = p.Next() {
		keys = append(keys, p.Key)
	}
	return keys
}

// Merge copies every property of other into o, in other's order.
func (o *Object) Merge(other *Object) {
	if other.Len() == 0 {
		return
	}
	for p := other.m.Oldest(); p != nil; p = p.Next() {
		o.m.Set(p.Key, p.Value)
	}
}

func (o *Object) MarshalJSON() ([]byte, error) {
	if o == nil || o.m == nil {
		return []byte("{}"), nil
	}
	return o.m.MarshalJSON()
}

// UnmarshalJSON decodes nested objects as *Object and arrays as []Shape so
// that decoded shapes compare equal to resolved ones.
func (o *Object) UnmarshalJSON(b []byte) error {
	raw := orderedmap.New[string, json.RawMessage]()
	if err := raw.UnmarshalJSON(b); err != nil {
		return err
	}
	o.m = orderedmap.New[string, Shape]()
	for p := raw.Oldest(); p != nil; p = p.Next() {
		v, err := DecodeShape(p.Value)
		if err != nil {
			return err
		}
		o.m.Set(p.Key, v)
	}
	return nil
}

// DecodeShape parses a JSON-encoded shape.
func DecodeShape(b []byte) (Shape, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	switch v.(type) {
	case map[string]any:
		obj := NewObject()
		if err := obj.UnmarshalJSON(b); err != nil {
			return nil, err
		}
		return obj, nil
	case []any:
		var raws []json.RawMessage
		if err := json.Unmarshal(b, &raws); err != nil {
			return nil, err
		}
		out := make([]Shape, 0, len(raws))
		for _, r := range raws {
			elem, err := DecodeShape(r)
			if err != nil {
				return nil, err
			}
			out = append(out, elem)
		}
		return out, nil
	default:
		return v, nil
	}
}

// PageShape is the fixed shape of every paginated container.
func PageShape(content Shape) *Object {
	o := NewObject()
	o.Set("content", []Shape{content})
	for _, f := range pageFields {
		o.Set(f.name, f.typ)
	}
	return o
}

var pageFields = []struct{ name, typ string }{
	{"pageable", "Pageable"},
	{"totalPages", "int"},
	{"totalElements", "long"},
	{"last", "boolean"},
	{"size", "int"},
	{"number", "int"},
	{"numberOfElements", "int"},
	{"first", "boolean"},
	{"empty", "boolean"},
}
