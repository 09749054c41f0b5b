// Package annotation resolves documentation metadata from the annotation
// schemes a route source may carry.
//
// A route, a controller, or a struct field exposes its raw annotations via
// the Annotations interface. reflect.StructTag already satisfies it, so the
// tags on a Go struct field can be queried directly; route registries and
// document loaders use Map.
//
// Several schemes may describe the same metadata with different keys. They
// are consulted through an ordered Schemes list: for an operation, the first
// scheme present on the method wins and schemes are never merged. New
// schemes are added by appending to the list.
package annotation

import (
	"strings"
)

// Annotations exposes raw annotation values by key.
type Annotations interface {
	Lookup(key string) (string, bool)
}

// Map is a plain key/value Annotations implementation.
type Map map[string]string

// Lookup implements Annotations.
func (m Map) Lookup(key string) (string, bool) {
	if m == nil {
		return "", false
	}
	v, ok := m[key]
	return v, ok
}

// None is an empty annotation set.
var None Annotations = Map(nil)

// Operation is the method-level documentation resolved from one scheme.
type Operation struct {
	Scheme      string
	Summary     string
	Description string
	Tags        []string
}

// Category returns the first tag, or "" when the operation has none.
func (o Operation) Category() string {
	if len(o.Tags) == 0 {
		return ""
	}
	return o.Tags[0]
}

// Scheme names the keys one annotation dialect uses.
type Scheme struct {
	Name string

	// Method-level keys.
	SummaryKey     string
	DescriptionKey string
	TagsKey        string

	// Controller-level category key.
	CategoryKey string

	// Property-level description key.
	PropertyKey string
}

// OpenAPI is the primary scheme: plain summary/description/tags keys and
// `description` struct tags.
var OpenAPI = Scheme{
	Name:           "openapi",
	SummaryKey:     "summary",
	DescriptionKey: "description",
	TagsKey:        "tags",
	CategoryKey:    "tag",
	PropertyKey:    "description",
}

// Swagger is the legacy scheme: api.* method keys and `doc` struct tags.
var Swagger = Scheme{
	Name:           "swagger",
	SummaryKey:     "api.value",
	DescriptionKey: "api.notes",
	TagsKey:        "api.tags",
	CategoryKey:    "api",
	PropertyKey:    "doc",
}

// Present reports whether any method-level key of s is set on a.
func (s Scheme) Present(a Annotations) bool {
	if a == nil {
		return false
	}
	for _, k := range []string{s.SummaryKey, s.DescriptionKey, s.TagsKey} {
		if k == "" {
			continue
		}
		if _, ok := a.Lookup(k); ok {
			return true
		}
	}
	return false
}

// Operation reads the method-level documentation from a using s's keys.
func (s Scheme) Operation(a Annotations) Operation {
	return Operation{
		Scheme:      s.Name,
		Summary:     lookup(a, s.SummaryKey),
		Description: lookup(a, s.DescriptionKey),
		Tags:        SplitList(lookup(a, s.TagsKey)),
	}
}

// Category reads the controller-level category from a.
func (s Scheme) Category(a Annotations) string {
	return firstOf(SplitList(lookup(a, s.CategoryKey)))
}

// PropertyDescription reads a property description from a.
func (s Scheme) PropertyDescription(a Annotations) string {
	return lookup(a, s.PropertyKey)
}

// Schemes is an ordered list of schemes, highest priority first.
type Schemes []Scheme

// Default is the scheme order used unless a caller supplies its own.
var Default = Schemes{OpenAPI, Swagger}

// Operation returns the documentation of the first scheme present on a.
// The boolean is false when no scheme is present, meaning the handler is
// undocumented.
func (ss Schemes) Operation(a Annotations) (Operation, bool) {
	for _, s := range ss {
		if s.Present(a) {
			return s.Operation(a), true
		}
	}
	return Operation{}, false
}

// Category returns the first non-empty controller-level category.
func (ss Schemes) Category(a Annotations) string {
	for _, s := range ss {
		if c := s.Category(a); c != "" {
			return c
		}
	}
	return ""
}

// PropertyDescription returns the first non-empty property description.
func (ss Schemes) PropertyDescription(a Annotations) string {
	for _, s := range ss {
		if d := s.PropertyDescription(a); d != "" {
			return d
		}
	}
	return ""
}

// SplitList splits a comma separated annotation value, trimming blanks.
func SplitList(v string) []string {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lookup(a Annotations, key string) string {
	if a == nil || key == "" {
		return ""
	}
	v, _ := a.Lookup(key)
	return strings.TrimSpace(v)
}

func firstOf(v []string) string {
	if len(v) == 0 {
		return ""
	}
	return v[0]
}
