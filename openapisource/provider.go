// Package openapisource produces endpoint descriptors from OpenAPI 3
// documents, so services not written in Go can be catalogued as well.
// Operation summary, description and tags map onto the primary annotation
// scheme; operations carrying none of them are left undocumented.
package openapisource

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// Provider loads descriptors from OpenAPI files on every call, so a
// catalog rebuild picks up edits.
type Provider struct {
	files []string
	log   *slog.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.log = l }
}

// New returns a Provider reading files in order.
func New(files []string, opts ...Option) *Provider {
	p := &Provider{files: files}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Files returns the documents read by the provider.
func (p *Provider) Files() []string {
	return p.files
}

// Descriptors implements catalog.DescriptorProvider.
func (p *Provider) Descriptors(ctx context.Context) ([]catalog.EndpointDescriptor, error) {
	var out []catalog.EndpointDescriptor
	for _, f := range p.files {
		doc, err := LoadFile(ctx, f)
		if err != nil {
			return nil, err
		}
		if err := doc.Validate(ctx); err != nil {
			p.log.WarnContext(ctx, "openapi.validate.err", slog.String("file", f), slog.String("err", err.Error()))
		}
		descs := Descriptors(doc)
		p.log.DebugContext(ctx, "openapi.load.ok", slog.String("file", f), slog.Int("operations", len(descs)))
		out = append(out, descs...)
	}
	return out, nil
}

func newLoader(ctx context.Context) *openapi3.Loader {
	l := openapi3.NewLoader()
	l.Context = ctx
	l.IsExternalRefsAllowed = false
	return l
}

// LoadFile parses the OpenAPI document at path.
func LoadFile(ctx context.Context, path string) (*openapi3.T, error) {
	doc, err := newLoader(ctx).LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("load openapi document %s: %w", path, err)
	}
	return doc, nil
}

// LoadData parses an OpenAPI document held in memory, JSON or YAML.
func LoadData(ctx context.Context, data []byte) (*openapi3.T, error) {
	doc, err := newLoader(ctx).LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}
	return doc, nil
}

var methodOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
}

// Descriptors lists one descriptor per operation, ordered by path and then
// by HTTP method.
func Descriptors(doc *openapi3.T) []catalog.EndpointDescriptor {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var out []catalog.EndpointDescriptor
	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range methodOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			out = append(out, describe(path, method, item, op))
		}
	}
	return out
}

func describe(path, method string, item *openapi3.PathItem, op *openapi3.Operation) catalog.EndpointDescriptor {
	ann := annotation.Map{}
	if op.Summary != "" {
		ann[annotation.OpenAPI.SummaryKey] = op.Summary
	}
	if op.Description != "" {
		ann[annotation.OpenAPI.DescriptionKey] = op.Description
	}
	if len(op.Tags) > 0 {
		ann[annotation.OpenAPI.TagsKey] = strings.Join(op.Tags, ",")
	}

	d := catalog.EndpointDescriptor{
		URL:         path,
		Method:      method,
		Annotations: ann,
		Returns:     responseType(op),
	}
	if len(op.Tags) > 0 {
		d.ControllerName = op.Tags[0]
	}

	// Operation parameters override path-item ones with the same name and
	// location.
	seen := make(map[string]bool)
	for _, params := range []openapi3.Parameters{op.Parameters, item.Parameters} {
		for _, ref := range params {
			if ref == nil || ref.Value == nil {
				continue
			}
			p := ref.Value
			key := p.In + ":" + p.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			if param, ok := parameter(p); ok {
				d.Params = append(d.Params, param)
			}
		}
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil {
		if mt := jsonContent(op.RequestBody.Value.Content); mt != nil {
			d.Params = append(d.Params, catalog.Parameter{
				Name:    bodyName(op),
				Type:    typeOf(mt.Schema),
				Binding: catalog.BindBody,
			})
		}
	}
	return d
}

func parameter(p *openapi3.Parameter) (catalog.Parameter, bool) {
	out := catalog.Parameter{Name: p.Name, Type: typeOf(p.Schema)}
	switch p.In {
	case openapi3.ParameterInPath:
		out.Binding = catalog.BindPath
	case openapi3.ParameterInQuery:
		out.Binding = catalog.BindQuery
	case openapi3.ParameterInHeader:
		out.Binding = catalog.BindHeader
	default:
		return out, false
	}
	required := p.Required
	out.Required = &required
	return out, true
}

func bodyName(op *openapi3.Operation) string {
	if v, ok := op.Extensions["x-codegen-request-body-name"].(string); ok && v != "" {
		return v
	}
	return "body"
}

// responseType picks the JSON schema of the first successful response.
func responseType(op *openapi3.Operation) typemodel.Type {
	if op.Responses == nil {
		return nil
	}
	codes := make([]string, 0, op.Responses.Len())
	for code := range op.Responses.Map() {
		if n, err := strconv.Atoi(code); err == nil && n >= 200 && n < 300 {
			codes = append(codes, code)
		} else if strings.EqualFold(code, "2XX") {
			codes = append(codes, code)
		}
	}
	sort.Strings(codes)
	for _, code := range codes {
		ref := op.Responses.Value(code)
		if ref == nil || ref.Value == nil {
			continue
		}
		if mt := jsonContent(ref.Value.Content); mt != nil && mt.Schema != nil {
			return typeOf(mt.Schema)
		}
	}
	return nil
}

func jsonContent(c openapi3.Content) *openapi3.MediaType {
	if mt := c.Get("application/json"); mt != nil {
		return mt
	}
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.HasSuffix(k, "+json") || strings.HasPrefix(k, "*/") {
			return c[k]
		}
	}
	return nil
}
