package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"

	"github.com/ggoodman/mcp-api-catalog/catalog"
	"github.com/ggoodman/mcp-api-catalog/internal/jsonrpc"
	"github.com/ggoodman/mcp-api-catalog/mcp"
)

// Tool names.
const (
	ToolGetAPICount  = "getApiCount"
	ToolGetAPIDetail = "getApiDetail"
	ToolSearchAPIs   = "searchApis"
)

// GetAPICountArgs are the arguments of getApiCount.
type GetAPICountArgs struct {
	Category string `json:"category,omitempty" jsonschema_description:"Only count APIs in this category (case-insensitive)"`
}

// APICount is the result of getApiCount. Category is null when no
// category was requested.
type APICount struct {
	Count    int     `json:"count"`
	Category *string `json:"category"`
	Message  string  `json:"message"`
}

// GetAPIDetailArgs are the arguments of getApiDetail.
type GetAPIDetailArgs struct {
	URL    string `json:"url" validate:"required" jsonschema_description:"URL template exactly as catalogued, e.g. /users/{id}"`
	Method string `json:"method" validate:"required" jsonschema_description:"HTTP method (case-insensitive)"`
}

// SearchAPIsArgs are the arguments of searchApis. All filters are optional
// and combine conjunctively.
type SearchAPIsArgs struct {
	Keyword  string `json:"keyword,omitempty" jsonschema_description:"Case-insensitive text matched against title, description and URL"`
	Category string `json:"category,omitempty" jsonschema_description:"Category (case-insensitive)"`
	Method   string `json:"method,omitempty" jsonschema_description:"HTTP method (case-insensitive)"`
}

// SearchResult is the result of searchApis.
type SearchResult struct {
	Summary string                 `json:"summary"`
	Count   int                    `json:"count"`
	APIs    []*catalog.EndpointDoc `json:"apis"`
}

func getAPICount(_ context.Context, c *catalog.Catalog, args GetAPICountArgs) (*APICount, error) {
	n := c.Count(args.Category)
	if args.Category == "" {
		return &APICount{Count: n, Message: fmt.Sprintf("Total %d APIs", n)}, nil
	}
	category := args.Category
	return &APICount{
		Count:    n,
		Category: &category,
		Message:  fmt.Sprintf("Total %d APIs in category '%s'", n, category),
	}, nil
}

func getAPIDetail(_ context.Context, c *catalog.Catalog, args GetAPIDetailArgs) (*catalog.EndpointDoc, error) {
	doc, err := c.Find(args.URL, args.Method)
	if err != nil {
		return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeNotFound, "API not found: %s %s", strings.ToUpper(args.Method), args.URL)
	}
	return doc, nil
}

func searchAPIs(_ context.Context, c *catalog.Catalog, args SearchAPIsArgs) (*SearchResult, error) {
	apis := c.Filter(catalog.Filter{
		Category: args.Category,
		Method:   args.Method,
		Keyword:  args.Keyword,
	})
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d APIs", len(apis))
	if args.Keyword != "" {
		fmt.Fprintf(&b, " matching keyword '%s'", args.Keyword)
	}
	if args.Category != "" {
		fmt.Fprintf(&b, " in category '%s'", args.Category)
	}
	if args.Method != "" {
		fmt.Fprintf(&b, " with method '%s'", args.Method)
	}
	return &SearchResult{Summary: b.String(), Count: len(apis), APIs: apis}, nil
}

type toolFunc func(ctx context.Context, c *catalog.Catalog, raw json.RawMessage) (any, error)

type tool struct {
	def  mcp.Tool
	call toolFunc
}

// newTool wraps a typed tool function: arguments are decoded into A and
// validated before fn runs, and the advertised input schema is reflected
// from A.
func newTool[A, R any](v *validator.Validate, name, description string, fn func(context.Context, *catalog.Catalog, A) (R, error)) tool {
	return tool{
		def: mcp.Tool{
			Name:        name,
			Description: description,
			InputSchema: reflectToMCPInputSchema[A](),
		},
		call: func(ctx context.Context, c *catalog.Catalog, raw json.RawMessage) (any, error) {
			var a A
			if trimmed := bytes.TrimSpace(raw); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
				if err := json.Unmarshal(trimmed, &a); err != nil {
					return nil, jsonrpc.Errorf(jsonrpc.ErrorCodeInvalidParams, "invalid arguments: %v", err)
				}
			}
			if err := v.StructCtx(ctx, &a); err != nil {
				return nil, err
			}
			return fn(ctx, c, a)
		},
	}
}

func defaultTools(v *validator.Validate) []tool {
	return []tool{
		newTool(v, ToolGetAPICount,
			"Count the documented APIs, optionally within one category.",
			getAPICount),
		newTool(v, ToolGetAPIDetail,
			"Get the full documentation of one API: request and response schemas and their fields.",
			getAPIDetail),
		newTool(v, ToolSearchAPIs,
			"Search documented APIs by keyword, category and HTTP method. All filters are optional.",
			searchAPIs),
	}
}

// reflectToMCPInputSchema reflects A into a jsonschema.Schema and converts
// it to the simplified mcp.ToolInputSchema. Fields without omitempty are
// reported as required.
func reflectToMCPInputSchema[A any]() mcp.ToolInputSchema {
	r := &jsonschema.Reflector{
		DoNotReference:            true,
		ExpandedStruct:            true,
		AllowAdditionalProperties: true,
	}
	s := r.Reflect(new(A))

	props := make(map[string]mcp.SchemaProperty)
	if s == nil || s.Type != "object" {
		return mcp.ToolInputSchema{Type: "object", Properties: props, AdditionalProperties: true}
	}
	if s.Properties != nil {
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			props[el.Key] = toMCPProperty(el.Value)
		}
	}
	var required []string
	if len(s.Required) > 0 {
		required = append(required, s.Required...)
	}
	return mcp.ToolInputSchema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: true,
	}
}

// toMCPProperty recursively maps a jsonschema.Schema to the simplified MCP SchemaProperty.
func toMCPProperty(s *jsonschema.Schema) mcp.SchemaProperty {
	if s == nil {
		return mcp.SchemaProperty{}
	}
	p := mcp.SchemaProperty{
		Type:        s.Type,
		Description: s.Description,
	}
	if len(s.Enum) > 0 {
		p.Enum = s.Enum
	}
	if s.Type == "array" && s.Items != nil {
		item := toMCPProperty(s.Items)
		p.Items = &item
	}
	if s.Type == "object" && s.Properties != nil {
		m := make(map[string]mcp.SchemaProperty, s.Properties.Len())
		for el := s.Properties.Oldest(); el != nil; el = el.Next() {
			m[el.Key] = toMCPProperty(el.Value)
		}
		p.Properties = m
	}
	return p
}
