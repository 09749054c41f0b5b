package typemodel

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/ggoodman/mcp-api-catalog/annotation"
)

// DefaultMaxDepth bounds composite nesting when Resolver.MaxDepth is unset.
const DefaultMaxDepth = 8

// DescriptionSource supplies the description of one property of owner.
// An empty result lets the next source answer.
type DescriptionSource interface {
	PropertyDescription(owner Type, p Property) string
}

// DescriptionSources consults its members in order.
type DescriptionSources []DescriptionSource

func (ds DescriptionSources) PropertyDescription(owner Type, p Property) string {
	for _, s := range ds {
		if d := s.PropertyDescription(owner, p); d != "" {
			return d
		}
	}
	return ""
}

// AnnotationSource reads descriptions from property annotations.
type AnnotationSource struct {
	Schemes annotation.Schemes
}

func (s AnnotationSource) PropertyDescription(_ Type, p Property) string {
	schemes := s.Schemes
	if schemes == nil {
		schemes = annotation.Default
	}
	return schemes.PropertyDescription(p.Annotations)
}

// Resolver expands types into schema shapes and flat field lists. The zero
// value is ready to use. A Resolver holds no per-call state and is safe for
// concurrent use.
type Resolver struct {
	// MaxDepth bounds composite nesting. Zero means DefaultMaxDepth.
	MaxDepth int
	// Descriptions is consulted for every property. Nil means property
	// annotations under annotation.Default.
	Descriptions DescriptionSource
	Logger       *slog.Logger
}

// Resolve returns the schema shape of t.
func (r *Resolver) Resolve(ctx context.Context, t Type) Shape {
	shape, _ := r.Expand(ctx, t, "", nil)
	return shape
}

// Expand returns the schema shape of t together with the FieldInfo of every
// property reached, in pre-order. Field paths start at prefix and carry
// kind. A property that cannot be introspected is dropped from both views.
func (r *Resolver) Expand(ctx context.Context, t Type, prefix string, kind *ParameterKind) (shape Shape, fields []FieldInfo) {
	w := &walk{
		ctx:    ctx,
		r:      r,
		kind:   kind,
		onPath: make(map[string]bool),
	}
	defer func() {
		if rec := recover(); rec != nil {
			r.logger().WarnContext(ctx, "typemodel.expand.panic", slog.String("type", safeName(t)), slog.Any("panic", rec))
			shape, fields = NewObject(), nil
		}
	}()
	shape, err := w.resolve(t, prefix, 0)
	if err != nil {
		r.logger().WarnContext(ctx, "typemodel.expand.err", slog.String("type", safeName(t)), slog.String("err", err.Error()))
		return NewObject(), nil
	}
	return shape, w.fields
}

func (r *Resolver) maxDepth() int {
	if r.MaxDepth > 0 {
		return r.MaxDepth
	}
	return DefaultMaxDepth
}

func (r *Resolver) descriptions() DescriptionSource {
	if r.Descriptions != nil {
		return r.Descriptions
	}
	return AnnotationSource{}
}

func (r *Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type walk struct {
	ctx    context.Context
	r      *Resolver
	kind   *ParameterKind
	onPath map[string]bool
	fields []FieldInfo
}

func (w *walk) emit(path, typ, desc string, nullable bool) {
	w.fields = append(w.fields, FieldInfo{
		Path:          path,
		Type:          typ,
		Description:   desc,
		Nullable:      nullable,
		ParameterKind: w.kind,
	})
}

func (w *walk) resolve(t Type, prefix string, depth int) (Shape, error) {
	t = Unwrap(t)
	if t == nil {
		return VoidName, nil
	}
	switch t.Kind() {
	case KindCollection:
		elem, err := w.resolve(Elem(t), elementPrefix(prefix), depth)
		if err != nil {
			return nil, err
		}
		return []Shape{elem}, nil
	case KindPage:
		return w.page(t, prefix, depth)
	case KindComposite:
		return w.composite(t, prefix, depth)
	default:
		return t.Name(), nil
	}
}

func (w *walk) page(t Type, prefix string, depth int) (Shape, error) {
	elem := Elem(t)
	contentPath := JoinPath(prefix, "content")
	w.emit(contentPath, "List<"+DisplayName(elem)+">", "", false)
	content, err := w.resolve(elem, contentPath+"[]", depth)
	if err != nil {
		return nil, err
	}
	for _, f := range pageFields {
		w.emit(JoinPath(prefix, f.name), f.typ, "", false)
	}
	return PageShape(content), nil
}

func (w *walk) composite(t Type, prefix string, depth int) (Shape, error) {
	id := t.ID()
	if w.onPath[id] {
		return t.Name(), nil
	}
	if depth >= w.r.maxDepth() {
		w.r.logger().DebugContext(w.ctx, "typemodel.depth.limit", slog.String("type", t.Name()), slog.Int("depth", depth))
		return t.Name(), nil
	}
	props, err := t.Properties()
	if err != nil {
		return nil, fmt.Errorf("properties of %s: %w", t.Name(), err)
	}

	w.onPath[id] = true
	defer delete(w.onPath, id)

	obj := NewObject()
	for _, p := range props {
		shape, ok := w.property(t, p, prefix, depth)
		if ok {
			obj.Set(p.Name, shape)
		}
	}
	return obj, nil
}

// property resolves one property, rolling the field list back and reporting
// false when introspection fails.
func (w *walk) property(owner Type, p Property, prefix string, depth int) (shape Shape, ok bool) {
	mark := len(w.fields)
	path := JoinPath(prefix, p.Name)
	defer func() {
		if rec := recover(); rec != nil {
			w.fields = w.fields[:mark]
			w.r.logger().WarnContext(w.ctx, "typemodel.property.panic",
				slog.String("type", owner.Name()),
				slog.String("property", p.Name),
				slog.Any("panic", rec),
			)
			shape, ok = nil, false
		}
	}()

	w.emit(path, DisplayName(p.Type), w.r.descriptions().PropertyDescription(owner, p), p.Nullable)
	shape, err := w.resolve(p.Type, path, depth+1)
	if err != nil {
		w.fields = w.fields[:mark]
		w.r.logger().WarnContext(w.ctx, "typemodel.property.err",
			slog.String("type", owner.Name()),
			slog.String("property", p.Name),
			slog.String("err", err.Error()),
		)
		return nil, false
	}
	return shape, true
}

func elementPrefix(prefix string) string {
	if prefix == "" {
		return ""
	}
	return prefix + "[]"
}

func safeName(t Type) (name string) {
	defer func() {
		if recover() != nil {
			name = "?"
		}
	}()
	if t == nil {
		return VoidName
	}
	return t.Name()
}
