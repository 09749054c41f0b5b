package catalog

import (
	"context"
	"fmt"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// Binding says where a handler parameter is read from.
type Binding int

const (
	// BindNone marks a parameter without an explicit binding. Scalars are
	// treated as query values, composites as query objects.
	BindNone Binding = iota
	BindPath
	BindQuery
	BindHeader
	BindBody
)

func (b Binding) String() string {
	switch b {
	case BindNone:
		return "none"
	case BindPath:
		return "path"
	case BindQuery:
		return "query"
	case BindHeader:
		return "header"
	case BindBody:
		return "body"
	default:
		return fmt.Sprintf("binding(%d)", int(b))
	}
}

// Parameter is one declared handler parameter.
type Parameter struct {
	Name    string
	Type    typemodel.Type
	Binding Binding
	// BindingName is the explicit wire name, e.g. the {id} of a path
	// template. It wins over AltName.
	BindingName string
	AltName     string
	// Required is nil when the binding does not say; query and header
	// parameters then default to required.
	Required *bool
	// Pagination marks a page request parameter regardless of its type.
	Pagination bool
}

// WireName returns the name a client uses for the parameter.
func (p Parameter) WireName() string {
	switch {
	case p.BindingName != "":
		return p.BindingName
	case p.AltName != "":
		return p.AltName
	default:
		return p.Name
	}
}

// IsRequired resolves the required flag, defaulting to true.
func (p Parameter) IsRequired() bool {
	return p.Required == nil || *p.Required
}

// IsPagination reports whether p expands to the fixed paging fields.
func (p Parameter) IsPagination() bool {
	return p.Pagination || (p.Type != nil && p.Type.Kind() == typemodel.KindPageRequest)
}

// EndpointDescriptor describes one registered route and its handler. It is
// supplied by a DescriptorProvider and never modified by this package.
type EndpointDescriptor struct {
	URL     string
	Method  string
	Params  []Parameter
	Returns typemodel.Type

	// Annotations are the handler's method-level annotations.
	Annotations annotation.Annotations
	// ControllerAnnotations are the annotations of the type declaring the
	// handler.
	ControllerAnnotations annotation.Annotations
	ControllerName        string
}

// DescriptorProvider supplies the descriptors a catalog is built from.
type DescriptorProvider interface {
	Descriptors(ctx context.Context) ([]EndpointDescriptor, error)
}

// ProviderFunc adapts a function to DescriptorProvider.
type ProviderFunc func(ctx context.Context) ([]EndpointDescriptor, error)

func (f ProviderFunc) Descriptors(ctx context.Context) ([]EndpointDescriptor, error) {
	return f(ctx)
}

// Static is a fixed descriptor list.
type Static []EndpointDescriptor

func (s Static) Descriptors(context.Context) ([]EndpointDescriptor, error) {
	return s, nil
}
