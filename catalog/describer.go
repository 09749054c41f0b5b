package catalog

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// Describer converts descriptors into EndpointDocs.
type Describer struct {
	resolver *typemodel.Resolver
	schemes  annotation.Schemes
	log      *slog.Logger
}

// DescriberOption configures a Describer.
type DescriberOption func(*Describer)

// WithResolver sets the type resolver.
func WithResolver(r *typemodel.Resolver) DescriberOption {
	return func(d *Describer) { d.resolver = r }
}

// WithSchemes overrides the annotation scheme order.
func WithSchemes(s annotation.Schemes) DescriberOption {
	return func(d *Describer) { d.schemes = s }
}

// WithDescriberLogger sets the logger used for skipped descriptors.
func WithDescriberLogger(l *slog.Logger) DescriberOption {
	return func(d *Describer) { d.log = l }
}

// NewDescriber returns a Describer using annotation.Default and a default
// Resolver unless overridden.
func NewDescriber(opts ...DescriberOption) *Describer {
	d := &Describer{schemes: annotation.Default}
	for _, opt := range opts {
		opt(d)
	}
	if d.log == nil {
		d.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if d.resolver == nil {
		d.resolver = &typemodel.Resolver{Logger: d.log}
	}
	return d
}

var pageQueryFields = []struct{ name, typ string }{
	{"page", "int"},
	{"size", "int"},
	{"sort", "String"},
}

// Describe documents one endpoint. It reports false when no annotation
// scheme is present on the handler, which excludes it from the catalog.
func (d *Describer) Describe(ctx context.Context, desc EndpointDescriptor) (*EndpointDoc, bool) {
	op, ok := d.schemes.Operation(desc.Annotations)
	if !ok {
		return nil, false
	}
	category := op.Category()
	if category == "" {
		category = d.schemes.Category(desc.ControllerAnnotations)
	}

	doc := &EndpointDoc{
		URL:           desc.URL,
		Method:        strings.ToUpper(desc.Method),
		Category:      category,
		Title:         op.Summary,
		Description:   op.Description,
		RequestSchema: typemodel.NewObject(),
		RequestInfos:  []typemodel.FieldInfo{},
	}
	for _, p := range desc.Params {
		d.describeParam(ctx, doc, p)
	}

	payload := typemodel.Unwrap(desc.Returns)
	if payload == nil {
		doc.ResponseSchema = typemodel.VoidName
		doc.ResponseInfos = []typemodel.FieldInfo{}
	} else {
		shape, fields := d.resolver.Expand(ctx, payload, "", nil)
		doc.ResponseSchema = shape
		doc.ResponseInfos = nonNil(fields)
	}
	return doc, true
}

func (d *Describer) describeParam(ctx context.Context, doc *EndpointDoc, p Parameter) {
	switch {
	case p.IsPagination():
		for _, f := range pageQueryFields {
			doc.RequestSchema.Set(f.name, f.typ)
			doc.RequestInfos = append(doc.RequestInfos, typemodel.FieldInfo{
				Path:          f.name,
				Type:          f.typ,
				Nullable:      true,
				ParameterKind: typemodel.ParamQuery.Ptr(),
			})
		}

	case p.Binding == BindPath:
		name := p.WireName()
		doc.RequestSchema.Set(name, d.resolver.Resolve(ctx, p.Type))
		doc.RequestInfos = append(doc.RequestInfos, typemodel.FieldInfo{
			Path:          name,
			Type:          typemodel.DisplayName(p.Type),
			ParameterKind: typemodel.ParamPath.Ptr(),
		})

	case p.Binding == BindBody:
		name := p.WireName()
		shape, fields := d.resolver.Expand(ctx, p.Type, "", typemodel.ParamBody.Ptr())
		doc.RequestSchema.Set(name, shape)
		doc.RequestInfos = append(doc.RequestInfos, typemodel.FieldInfo{
			Path:          name,
			Type:          typemodel.DisplayName(p.Type),
			ParameterKind: typemodel.ParamBody.Ptr(),
		})
		doc.RequestInfos = append(doc.RequestInfos, fields...)

	case typemodel.IsScalarLike(p.Type):
		name := p.WireName()
		kind, nullable := typemodel.ParamQuery, !p.IsRequired()
		switch p.Binding {
		case BindHeader:
			kind = typemodel.ParamHeader
		case BindNone:
			nullable = true
		}
		doc.RequestSchema.Set(name, d.resolver.Resolve(ctx, p.Type))
		doc.RequestInfos = append(doc.RequestInfos, typemodel.FieldInfo{
			Path:          name,
			Type:          typemodel.DisplayName(p.Type),
			Nullable:      nullable,
			ParameterKind: kind.Ptr(),
		})

	default:
		kind := typemodel.ParamQuery
		if p.Binding == BindHeader {
			kind = typemodel.ParamHeader
		}
		shape, fields := d.resolver.Expand(ctx, p.Type, "", kind.Ptr())
		if obj, ok := shape.(*typemodel.Object); ok {
			doc.RequestSchema.Merge(obj)
		} else {
			doc.RequestSchema.Set(p.WireName(), shape)
		}
		doc.RequestInfos = append(doc.RequestInfos, fields...)
	}
}

func nonNil(fields []typemodel.FieldInfo) []typemodel.FieldInfo {
	if fields == nil {
		return []typemodel.FieldInfo{}
	}
	return fields
}
