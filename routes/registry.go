// Package routes is a static route registry that documents Go handlers.
//
// Each route declares an input struct and an output type. Input fields are
// bound with an `in` tag (path, query, header or body) and named by a
// `name` tag, their json name, or the field name, in that order:
//
//	type GetPetInput struct {
//		ID      int64  `in:"path" name:"petId"`
//		Verbose *bool  `in:"query" required:"false"`
//		Trace   string `in:"header" name:"X-Trace-Id"`
//	}
//
//	pets := reg.Controller("PetController", annotation.Map{"tag": "Pet"})
//	routes.Handle[GetPetInput, Pet](pets, "GET", "/pets/{petId}", annotation.Map{
//		"summary": "Find pet by ID",
//	})
//
// The registry implements catalog.DescriptorProvider.
package routes

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// Registry collects routes. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	routes []route
	err    error
}

// Group is a set of routes declared by one controller.
type Group struct {
	reg         *Registry
	name        string
	annotations annotation.Annotations
	prefix      string
}

type route struct {
	method      string
	path        string
	in          reflect.Type
	out         reflect.Type
	annotations annotation.Annotations
	group       *Group
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Controller starts a route group. ann carries the controller-level
// annotations, such as its default category.
func (r *Registry) Controller(name string, ann annotation.Annotations) *Group {
	if ann == nil {
		ann = annotation.None
	}
	return &Group{reg: r, name: name, annotations: ann}
}

// Prefix returns a copy of g whose routes are mounted below prefix.
func (g *Group) Prefix(prefix string) *Group {
	cp := *g
	cp.prefix = strings.TrimRight(g.prefix+prefix, "/")
	return &cp
}

// Handle registers a route with input fields from In and result Out. Use
// struct{} for handlers without input and NoContent for handlers without a
// body.
func Handle[In, Out any](g *Group, method, path string, ann annotation.Annotations) {
	g.add(route{
		method:      strings.ToUpper(method),
		path:        g.prefix + path,
		in:          reflect.TypeFor[In](),
		out:         reflect.TypeFor[Out](),
		annotations: ann,
	})
}

func (g *Group) add(rt route) {
	if rt.annotations == nil {
		rt.annotations = annotation.None
	}
	rt.group = g
	g.reg.mu.Lock()
	defer g.reg.mu.Unlock()
	if rt.in.Kind() != reflect.Struct && g.reg.err == nil {
		g.reg.err = fmt.Errorf("route %s %s: input must be a struct, got %s", rt.method, rt.path, rt.in)
		return
	}
	g.reg.routes = append(g.reg.routes, rt)
}

// Len returns the number of registered routes.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.routes)
}

// Descriptors implements catalog.DescriptorProvider.
func (r *Registry) Descriptors(ctx context.Context) ([]catalog.EndpointDescriptor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]catalog.EndpointDescriptor, 0, len(r.routes))
	for _, rt := range r.routes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		params, err := paramsOf(rt.in)
		if err != nil {
			return nil, fmt.Errorf("route %s %s: %w", rt.method, rt.path, err)
		}
		out = append(out, catalog.EndpointDescriptor{
			URL:                   rt.path,
			Method:                rt.method,
			Params:                params,
			Returns:               typemodel.Of(rt.out),
			Annotations:           rt.annotations,
			ControllerAnnotations: rt.group.annotations,
			ControllerName:        rt.group.name,
		})
	}
	return out, nil
}

var pageableType = reflect.TypeFor[Pageable]()

func paramsOf(in reflect.Type) ([]catalog.Parameter, error) {
	var params []catalog.Parameter
	for i := 0; i < in.NumField(); i++ {
		f := in.Field(i)
		if !f.IsExported() {
			continue
		}
		p := catalog.Parameter{
			Name:        f.Name,
			Type:        typemodel.Of(f.Type),
			BindingName: f.Tag.Get("name"),
			Pagination:  f.Type == pageableType,
		}
		if jsonName, _, _ := strings.Cut(f.Tag.Get("json"), ","); jsonName != "" && jsonName != "-" {
			p.AltName = jsonName
		}

		switch in := f.Tag.Get("in"); in {
		case "path":
			p.Binding = catalog.BindPath
		case "query":
			p.Binding = catalog.BindQuery
		case "header":
			p.Binding = catalog.BindHeader
		case "body":
			p.Binding = catalog.BindBody
		case "":
			p.Binding = catalog.BindNone
		default:
			return nil, fmt.Errorf("field %s: unknown binding %q", f.Name, in)
		}

		if req, ok := f.Tag.Lookup("required"); ok {
			b, err := strconv.ParseBool(req)
			if err != nil {
				return nil, fmt.Errorf("field %s: required: %w", f.Name, err)
			}
			p.Required = &b
		}
		params = append(params, p)
	}
	return params, nil
}
