package openapisource

import (
	"fmt"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// schemaType adapts an OpenAPI schema to typemodel.Type. Referenced schemas
// are identified by their $ref so self-referencing components are caught by
// the resolver's cycle guard.
type schemaType struct {
	ref    string
	schema *openapi3.Schema
}

func typeOf(ref *openapi3.SchemaRef) typemodel.Type {
	if ref == nil || ref.Value == nil {
		return typemodel.Scalar("Object")
	}
	return schemaType{ref: ref.Ref, schema: ref.Value}
}

func (t schemaType) ID() string {
	if t.ref != "" {
		return t.ref
	}
	return fmt.Sprintf("inline:%p", t.schema)
}

func (t schemaType) Name() string {
	if t.ref != "" {
		return refName(t.ref)
	}
	if t.schema.Title != "" {
		return t.schema.Title
	}
	s := t.schema
	switch {
	case is(s, openapi3.TypeInteger):
		if s.Format == "int64" {
			return "Long"
		}
		return "Integer"
	case is(s, openapi3.TypeNumber):
		if s.Format == "float" {
			return "Float"
		}
		return "Double"
	case is(s, openapi3.TypeBoolean):
		return "Boolean"
	case is(s, openapi3.TypeString):
		switch s.Format {
		case "date-time":
			return "DateTime"
		case "date":
			return "LocalDate"
		case "uuid":
			return "UUID"
		case "binary", "byte":
			return "byte[]"
		}
		return "String"
	case is(s, openapi3.TypeArray):
		return "List"
	case isMap(s):
		return "Map<String," + typemodel.DisplayName(typeOf(s.AdditionalProperties.Schema)) + ">"
	}
	return "Object"
}

func (t schemaType) Kind() typemodel.Kind {
	s := t.schema
	switch {
	case is(s, openapi3.TypeArray):
		return typemodel.KindCollection
	case isMap(s):
		return typemodel.KindScalar
	case len(s.Properties) > 0 || len(s.AllOf) > 0:
		return typemodel.KindComposite
	}
	return typemodel.KindScalar
}

func (t schemaType) TypeArgs() []typemodel.Type {
	if is(t.schema, openapi3.TypeArray) {
		return []typemodel.Type{typeOf(t.schema.Items)}
	}
	return nil
}

// Properties lists allOf members first, then the schema's own properties.
// OpenAPI objects are unordered, so each group is sorted by name.
func (t schemaType) Properties() ([]typemodel.Property, error) {
	var out []typemodel.Property
	seen := make(map[string]bool)
	var collect func(s *openapi3.Schema, depth int) error
	collect = func(s *openapi3.Schema, depth int) error {
		if depth > 32 {
			return fmt.Errorf("allOf nesting too deep in %s", t.Name())
		}
		for _, member := range s.AllOf {
			if member == nil || member.Value == nil {
				continue
			}
			if err := collect(member.Value, depth+1); err != nil {
				return err
			}
		}
		required := make(map[string]bool, len(s.Required))
		for _, r := range s.Required {
			required[r] = true
		}
		names := make([]string, 0, len(s.Properties))
		for name := range s.Properties {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			ref := s.Properties[name]
			ann := annotation.Map{}
			nullable := !required[name]
			if ref != nil && ref.Value != nil {
				if ref.Value.Description != "" {
					ann[annotation.OpenAPI.PropertyKey] = ref.Value.Description
				}
				nullable = nullable || ref.Value.Nullable
			}
			out = append(out, typemodel.Property{
				Name:        name,
				Type:        typeOf(ref),
				Annotations: ann,
				Nullable:    nullable,
			})
		}
		return nil
	}
	if err := collect(t.schema, 0); err != nil {
		return nil, err
	}
	return out, nil
}

func is(s *openapi3.Schema, typ string) bool {
	return s != nil && s.Type != nil && s.Type.Is(typ)
}

func isMap(s *openapi3.Schema) bool {
	return len(s.Properties) == 0 && s.AdditionalProperties.Schema != nil
}

func refName(ref string) string {
	if i := strings.LastIndexByte(ref, '/'); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
