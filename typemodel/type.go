// Package typemodel turns declared request and response types into the two
// documentation views the catalog serves: a nested schema shape and a flat
// list of FieldInfo records.
//
// Types are reached through the Type interface so the resolver does not
// care whether they come from Go reflection (Of, TypeOf), from a parsed
// OpenAPI document, or from hand-built definitions (Scalar, ListOf,
// Struct). Both views are produced by a single traversal in Resolver.
package typemodel

import (
	"fmt"

	"github.com/ggoodman/mcp-api-catalog/annotation"
)

// Kind classifies a Type for resolution.
type Kind int

const (
	// KindScalar terminates recursion and resolves to its simple name.
	KindScalar Kind = iota
	// KindCollection is a homogeneous sequence of its single type argument.
	KindCollection
	// KindPage is a paginated container of its single type argument.
	KindPage
	// KindEnvelope wraps a payload (its type argument) that is resolved in
	// its place. An envelope without a type argument is void.
	KindEnvelope
	// KindComposite has named properties.
	KindComposite
	// KindPageRequest is a pagination request parameter. It resolves as a
	// scalar and is expanded to fixed query fields by the describer.
	KindPageRequest
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindCollection:
		return "collection"
	case KindPage:
		return "page"
	case KindEnvelope:
		return "envelope"
	case KindComposite:
		return "composite"
	case KindPageRequest:
		return "page-request"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Type is the introspection surface the resolver needs.
type Type interface {
	// ID identifies the type for cycle detection. Instantiations of a
	// generic type with different arguments have different IDs.
	ID() string
	// Name is the simple display name, e.g. "User" or "Long".
	Name() string
	Kind() Kind
	// TypeArgs returns the element type of collections and pages and the
	// payload of envelopes.
	TypeArgs() []Type
	// Properties enumerates composite properties in declaration order.
	Properties() ([]Property, error)
}

// Property is one declared property of a composite type.
type Property struct {
	Name        string
	Type        Type
	Annotations annotation.Annotations
	Nullable    bool
}

// VoidName is the shape of an absent payload.
const VoidName = "void"

// Elem returns the first type argument of t, or nil.
func Elem(t Type) Type {
	if t == nil {
		return nil
	}
	args := t.TypeArgs()
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

// Unwrap strips envelope layers until the first non-envelope type. It
// returns nil when an envelope carries no payload.
func Unwrap(t Type) Type {
	for t != nil && t.Kind() == KindEnvelope {
		t = Elem(t)
	}
	return t
}

// IsScalar reports whether t resolves to a plain name.
func IsScalar(t Type) bool {
	t = Unwrap(t)
	return t == nil || t.Kind() == KindScalar
}

// IsScalarLike reports whether t is a scalar or a collection of scalars.
func IsScalarLike(t Type) bool {
	t = Unwrap(t)
	if t != nil && t.Kind() == KindCollection {
		return IsScalar(Elem(t))
	}
	return IsScalar(t)
}

// DisplayName renders the type name used in FieldInfo.Type.
func DisplayName(t Type) string {
	t = Unwrap(t)
	if t == nil {
		return VoidName
	}
	switch t.Kind() {
	case KindCollection:
		return "List<" + DisplayName(Elem(t)) + ">"
	case KindPage:
		return "Page<" + DisplayName(Elem(t)) + ">"
	default:
		return t.Name()
	}
}
