package typemodel

import (
	"github.com/ggoodman/mcp-api-catalog/annotation"
)

// Static types are built by hand or by document loaders that do not have a
// Go type to reflect on.

type staticType struct {
	id   string
	name string
	kind Kind
	args []Type
}

func (t *staticType) ID() string                      { return t.id }
func (t *staticType) Name() string                    { return t.name }
func (t *staticType) Kind() Kind                      { return t.kind }
func (t *staticType) TypeArgs() []Type                { return t.args }
func (t *staticType) Properties() ([]Property, error) { return nil, nil }

// Scalar returns a scalar type named name.
func Scalar(name string) Type {
	return &staticType{id: "scalar:" + name, name: name, kind: KindScalar}
}

// ListOf returns a collection of elem.
func ListOf(elem Type) Type {
	return &staticType{id: "list:" + idOf(elem), name: "List", kind: KindCollection, args: []Type{elem}}
}

// PageOf returns a paginated container of elem.
func PageOf(elem Type) Type {
	return &staticType{id: "page:" + idOf(elem), name: "Page", kind: KindPage, args: []Type{elem}}
}

// EnvelopeOf wraps payload. A nil payload is void.
func EnvelopeOf(payload Type) Type {
	t := &staticType{id: "envelope:" + idOf(payload), name: "Envelope", kind: KindEnvelope}
	if payload != nil {
		t.args = []Type{payload}
	}
	return t
}

// PageRequest returns the pagination parameter type.
func PageRequest() Type {
	return &staticType{id: "pagerequest", name: "Pageable", kind: KindPageRequest}
}

func idOf(t Type) string {
	if t == nil {
		return VoidName
	}
	return t.ID()
}

// StructType is a composite whose properties are declared explicitly.
// Properties may be added after construction, which lets a struct refer to
// itself.
type StructType struct {
	id    string
	name  string
	props []Property
}

// Struct returns a composite named name with the given properties. The name
// doubles as its identity.
func Struct(name string, props ...Property) *StructType {
	return &StructType{id: "struct:" + name, name: name, props: props}
}

// Add appends properties and returns s.
func (s *StructType) Add(props ...Property) *StructType {
	s.props = append(s.props, props...)
	return s
}

func (s *StructType) ID() string       { return s.id }
func (s *StructType) Name() string     { return s.name }
func (s *StructType) Kind() Kind       { return KindComposite }
func (s *StructType) TypeArgs() []Type { return nil }

func (s *StructType) Properties() ([]Property, error) {
	out := make([]Property, len(s.props))
	copy(out, s.props)
	return out, nil
}

// Field builds a Property. Pairs in kv become its annotations, so
// Field("id", Scalar("Long"), "description", "Identifier") documents it.
func Field(name string, t Type, kv ...string) Property {
	a := annotation.Map{}
	for i := 0; i+1 < len(kv); i += 2 {
		a[kv[i]] = kv[i+1]
	}
	return Property{Name: name, Type: t, Annotations: a}
}

// Optional marks p nullable.
func Optional(p Property) Property {
	p.Nullable = true
	return p
}
