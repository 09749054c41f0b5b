package typemodel

import (
	"encoding"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"
)

// PageContainer is implemented by generic page wrappers so the reflection
// adapter can classify them as KindPage.
type PageContainer interface {
	PageElement() reflect.Type
}

// EnvelopeContainer is implemented by response wrappers. A nil payload
// means the envelope carries no body.
type EnvelopeContainer interface {
	EnvelopePayload() reflect.Type
}

// PageRequester marks pagination request parameters.
type PageRequester interface {
	PageRequest()
}

var (
	pageContainerType     = reflect.TypeFor[PageContainer]()
	envelopeContainerType = reflect.TypeFor[EnvelopeContainer]()
	pageRequesterType     = reflect.TypeFor[PageRequester]()
	textMarshalerType     = reflect.TypeFor[encoding.TextMarshaler]()
	timeType              = reflect.TypeFor[time.Time]()
	jsonNumberType        = reflect.TypeFor[json.Number]()
	rawMessageType        = reflect.TypeFor[json.RawMessage]()
)

// TypeOf returns the Type of T.
func TypeOf[T any]() Type {
	return Of(reflect.TypeFor[T]())
}

// Of adapts a reflect.Type. A nil rt yields nil, which resolves to void.
func Of(rt reflect.Type) Type {
	if rt == nil {
		return nil
	}
	boxed := false
	for rt.Kind() == reflect.Pointer {
		boxed = true
		rt = rt.Elem()
	}
	return reflectType{rt: rt, boxed: boxed}
}

type reflectType struct {
	rt    reflect.Type
	boxed bool
}

func (t reflectType) ID() string {
	return t.rt.PkgPath() + "." + t.rt.String()
}

func (t reflectType) Name() string {
	if name, ok := builtinName(t.rt, t.boxed); ok {
		return name
	}
	switch {
	case t.rt == timeType:
		return "DateTime"
	case t.rt == rawMessageType:
		return "Object"
	}
	switch t.rt.Kind() {
	case reflect.Map:
		return "Map<" + DisplayName(Of(t.rt.Key())) + "," + DisplayName(Of(t.rt.Elem())) + ">"
	case reflect.Interface:
		if t.rt.Name() == "" {
			return "Object"
		}
	case reflect.Slice, reflect.Array:
		if isBytes(t.rt) && t.rt.Name() == "" {
			return "byte[]"
		}
		if t.rt.Name() == "" {
			return "List<" + DisplayName(Of(t.rt.Elem())) + ">"
		}
	}
	if name := simpleName(t.rt.Name()); name != "" {
		return name
	}
	return "Object"
}

func (t reflectType) Kind() Kind {
	switch {
	case implements(t.rt, pageRequesterType):
		return KindPageRequest
	case implements(t.rt, pageContainerType):
		return KindPage
	case implements(t.rt, envelopeContainerType):
		return KindEnvelope
	case t.rt == timeType, t.rt == jsonNumberType, t.rt == rawMessageType:
		return KindScalar
	case implements(t.rt, textMarshalerType):
		return KindScalar
	}
	switch t.rt.Kind() {
	case reflect.Struct:
		return KindComposite
	case reflect.Slice, reflect.Array:
		if isBytes(t.rt) {
			return KindScalar
		}
		return KindCollection
	default:
		return KindScalar
	}
}

func (t reflectType) TypeArgs() []Type {
	switch t.Kind() {
	case KindPage:
		return []Type{Of(zeroOf[PageContainer](t.rt).PageElement())}
	case KindEnvelope:
		payload := zeroOf[EnvelopeContainer](t.rt).EnvelopePayload()
		if payload == nil {
			return nil
		}
		return []Type{Of(payload)}
	case KindCollection:
		return []Type{Of(t.rt.Elem())}
	}
	return nil
}

func (t reflectType) Properties() ([]Property, error) {
	if t.rt.Kind() != reflect.Struct {
		return nil, nil
	}
	var props []Property
	seen := make(map[string]bool)
	if err := collectFields(t.rt, &props, seen, 0); err != nil {
		return nil, err
	}
	return props, nil
}

// collectFields follows encoding/json's visibility rules: unexported and
// "-" fields are skipped and untagged embedded structs are flattened.
func collectFields(rt reflect.Type, props *[]Property, seen map[string]bool, depth int) error {
	if depth > 16 {
		return fmt.Errorf("embedding too deep in %s", rt)
	}
	for i := 0; i < rt.NumField(); i++ {
		f := rt.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")

		if f.Anonymous && name == "" {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				if err := collectFields(ft, props, seen, depth+1); err != nil {
					return err
				}
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		switch f.Type.Kind() {
		case reflect.Chan, reflect.Func, reflect.UnsafePointer:
			continue
		}
		if name == "" {
			name = f.Name
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		*props = append(*props, Property{
			Name:        name,
			Type:        Of(f.Type),
			Annotations: f.Tag,
			Nullable:    f.Type.Kind() == reflect.Pointer || hasOpt(opts, "omitempty") || hasOpt(opts, "omitzero"),
		})
	}
	return nil
}

func hasOpt(opts, want string) bool {
	for opts != "" {
		var o string
		o, opts, _ = strings.Cut(opts, ",")
		if o == want {
			return true
		}
	}
	return false
}

func implements(rt, iface reflect.Type) bool {
	return rt.Implements(iface) || reflect.PointerTo(rt).Implements(iface)
}

// zeroOf returns a zero value of rt (or *rt) asserted to I.
func zeroOf[I any](rt reflect.Type) I {
	if rt.Implements(reflect.TypeFor[I]()) {
		return reflect.Zero(rt).Interface().(I)
	}
	return reflect.New(rt).Interface().(I)
}

func isBytes(rt reflect.Type) bool {
	return rt.Elem().Kind() == reflect.Uint8
}

// simpleName strips generic instantiation arguments.
func simpleName(name string) string {
	if i := strings.IndexByte(name, '['); i >= 0 {
		return name[:i]
	}
	return name
}

// builtinName maps unnamed Go primitives onto the catalog's canonical type
// names. Pointers yield the boxed spelling.
func builtinName(rt reflect.Type, boxed bool) (string, bool) {
	if rt.PkgPath() != "" {
		return "", false
	}
	pick := func(prim, box string) (string, bool) {
		if boxed {
			return box, true
		}
		return prim, true
	}
	switch rt.Kind() {
	case reflect.Bool:
		return pick("boolean", "Boolean")
	case reflect.Int, reflect.Int32, reflect.Uint, reflect.Uint32:
		return pick("int", "Integer")
	case reflect.Int64, reflect.Uint64:
		return pick("long", "Long")
	case reflect.Int16, reflect.Uint16:
		return pick("short", "Short")
	case reflect.Int8, reflect.Uint8:
		return pick("byte", "Byte")
	case reflect.Float32:
		return pick("float", "Float")
	case reflect.Float64:
		return pick("double", "Double")
	case reflect.String:
		return "String", true
	}
	return "", false
}
