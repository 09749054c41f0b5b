package catalog

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/ggoodman/mcp-api-catalog/annotation"
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

func boolPtr(b bool) *bool { return &b }

func userType() typemodel.Type {
	return typemodel.Struct("User",
		typemodel.Field("id", typemodel.Scalar("Long")),
		typemodel.Field("name", typemodel.Scalar("String")),
	)
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func kindOf(f typemodel.FieldInfo) typemodel.ParameterKind {
	if f.ParameterKind == nil {
		return ""
	}
	return *f.ParameterKind
}

func TestDescribe_GetUserScenario(t *testing.T) {
	desc := EndpointDescriptor{
		URL:    "/users/{id}",
		Method: "GET",
		Params: []Parameter{{
			Name:    "userId",
			Type:    typemodel.Scalar("Long"),
			Binding: BindPath,
			AltName: "id",
		}},
		Returns:     userType(),
		Annotations: annotation.Map{"summary": "Get User", "tags": "User"},
	}

	doc, ok := NewDescriber().Describe(t.Context(), desc)
	if !ok {
		t.Fatalf("expected documented endpoint")
	}
	if doc.URL != "/users/{id}" || doc.Method != "GET" || doc.Category != "User" || doc.Title != "Get User" {
		t.Fatalf("unexpected header: %+v", doc)
	}
	if got, want := toJSON(t, doc.ResponseSchema), `{"id":"Long","name":"String"}`; got != want {
		t.Fatalf("responseSchema = %s, want %s", got, want)
	}
	if got, want := toJSON(t, doc.RequestSchema), `{"id":"Long"}`; got != want {
		t.Fatalf("requestSchema = %s, want %s", got, want)
	}
	if len(doc.RequestInfos) != 1 {
		t.Fatalf("requestInfos = %+v", doc.RequestInfos)
	}
	f := doc.RequestInfos[0]
	if f.Path != "id" || f.Nullable || kindOf(f) != typemodel.ParamPath {
		t.Fatalf("path field = %+v", f)
	}
}

func TestDescribe_UndocumentedHandlerExcluded(t *testing.T) {
	_, ok := NewDescriber().Describe(t.Context(), EndpointDescriptor{
		URL:                   "/internal",
		Method:                "GET",
		ControllerAnnotations: annotation.Map{"tag": "Ops"},
	})
	if ok {
		t.Fatalf("handler without method annotations must be excluded")
	}
}

func TestDescribe_CategoryFallsBackToController(t *testing.T) {
	d := NewDescriber()
	doc, ok := d.Describe(t.Context(), EndpointDescriptor{
		URL: "/orders", Method: "get",
		Annotations:           annotation.Map{"api.value": "List orders"},
		ControllerAnnotations: annotation.Map{"api": "Orders"},
	})
	if !ok || doc.Category != "Orders" || doc.Method != "GET" {
		t.Fatalf("doc = %+v", doc)
	}

	doc, _ = d.Describe(t.Context(), EndpointDescriptor{
		URL: "/misc", Method: "GET",
		Annotations: annotation.Map{"summary": "Misc"},
	})
	if doc.Category != "" {
		t.Fatalf("expected uncategorized, got %q", doc.Category)
	}
}

func TestDescribe_PaginationExpandsToFixedFields(t *testing.T) {
	for _, p := range []Parameter{
		{Name: "pageable", Type: typemodel.PageRequest(), Binding: BindNone},
		{Name: "paging", Type: userType(), Pagination: true, Binding: BindQuery},
	} {
		doc, _ := NewDescriber().Describe(t.Context(), EndpointDescriptor{
			URL: "/users", Method: "GET",
			Params:      []Parameter{p},
			Returns:     typemodel.PageOf(userType()),
			Annotations: annotation.Map{"summary": "List"},
		})
		var got []string
		for _, f := range doc.RequestInfos {
			if kindOf(f) != typemodel.ParamQuery {
				t.Fatalf("pagination field %s not QUERY", f.Path)
			}
			got = append(got, f.Path+":"+f.Type)
		}
		if want := []string{"page:int", "size:int", "sort:String"}; !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: fields = %v, want %v", p.Name, got, want)
		}
	}
}

func TestDescribe_PathNamePrecedence(t *testing.T) {
	cases := []struct {
		p    Parameter
		want string
	}{
		{Parameter{Name: "a", AltName: "b", BindingName: "c"}, "c"},
		{Parameter{Name: "a", AltName: "b"}, "b"},
		{Parameter{Name: "a"}, "a"},
	}
	for _, tc := range cases {
		tc.p.Binding = BindPath
		tc.p.Type = typemodel.Scalar("String")
		doc, _ := NewDescriber().Describe(t.Context(), EndpointDescriptor{
			URL: "/x", Method: "GET", Params: []Parameter{tc.p},
			Annotations: annotation.Map{"summary": "x"},
		})
		if got := doc.RequestInfos[0].Path; got != tc.want {
			t.Errorf("path name = %q, want %q", got, tc.want)
		}
	}
}

func TestDescribe_QueryAndHeaderNullability(t *testing.T) {
	doc, _ := NewDescriber().Describe(t.Context(), EndpointDescriptor{
		URL: "/search", Method: "GET",
		Params: []Parameter{
			{Name: "q", Type: typemodel.Scalar("String"), Binding: BindQuery},
			{Name: "limit", Type: typemodel.Scalar("Integer"), Binding: BindQuery, Required: boolPtr(false)},
			{Name: "X-Trace", Type: typemodel.Scalar("String"), Binding: BindHeader, Required: boolPtr(true)},
			{Name: "ids", Type: typemodel.ListOf(typemodel.Scalar("Long")), Binding: BindQuery, Required: boolPtr(false)},
		},
		Annotations: annotation.Map{"summary": "Search"},
	})
	want := []typemodel.FieldInfo{
		{Path: "q", Type: "String", Nullable: false, ParameterKind: typemodel.ParamQuery.Ptr()},
		{Path: "limit", Type: "Integer", Nullable: true, ParameterKind: typemodel.ParamQuery.Ptr()},
		{Path: "X-Trace", Type: "String", Nullable: false, ParameterKind: typemodel.ParamHeader.Ptr()},
		{Path: "ids", Type: "List<Long>", Nullable: true, ParameterKind: typemodel.ParamQuery.Ptr()},
	}
	if !reflect.DeepEqual(doc.RequestInfos, want) {
		t.Fatalf("requestInfos = %s\nwant %s", toJSON(t, doc.RequestInfos), toJSON(t, want))
	}
	if got, want := toJSON(t, doc.RequestSchema), `{"q":"String","limit":"Integer","X-Trace":"String","ids":["Long"]}`; got != want {
		t.Fatalf("requestSchema = %s, want %s", got, want)
	}
}

func TestDescribe_BodyParameter(t *testing.T) {
	create := typemodel.Struct("CreateUser",
		typemodel.Field("name", typemodel.Scalar("String"), "description", "Display name"),
		typemodel.Field("roles", typemodel.ListOf(typemodel.Struct("Role", typemodel.Field("code", typemodel.Scalar("String"))))),
	)
	doc, _ := NewDescriber().Describe(t.Context(), EndpointDescriptor{
		URL: "/users", Method: "POST",
		Params:      []Parameter{{Name: "request", Type: create, Binding: BindBody}},
		Returns:     typemodel.EnvelopeOf(userType()),
		Annotations: annotation.Map{"summary": "Create"},
	})

	var got []string
	for _, f := range doc.RequestInfos {
		if kindOf(f) != typemodel.ParamBody {
			t.Fatalf("field %s not BODY", f.Path)
		}
		got = append(got, f.Path)
	}
	if want := []string{"request", "name", "roles", "roles[].code"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("paths = %v, want %v", got, want)
	}
	if doc.RequestInfos[0].Type != "CreateUser" || doc.RequestInfos[0].Nullable {
		t.Fatalf("body field = %+v", doc.RequestInfos[0])
	}
	if doc.RequestInfos[1].Description != "Display name" {
		t.Fatalf("description lost: %+v", doc.RequestInfos[1])
	}
	if got, want := toJSON(t, doc.RequestSchema), `{"request":{"name":"String","roles":[{"code":"String"}]}}`; got != want {
		t.Fatalf("requestSchema = %s, want %s", got, want)
	}
}

func TestDescribe_CompositeQueryIsMerged(t *testing.T) {
	filter := typemodel.Struct("UserFilter",
		typemodel.Optional(typemodel.Field("name", typemodel.Scalar("String"))),
		typemodel.Field("active", typemodel.Scalar("Boolean")),
	)
	doc, _ := NewDescriber().Describe(t.Context(), EndpointDescriptor{
		URL: "/users", Method: "GET",
		Params: []Parameter{
			{Name: "filter", Type: filter},
			{Name: "verbose", Type: typemodel.Scalar("boolean")},
		},
		Annotations: annotation.Map{"summary": "Find"},
	})
	if got, want := toJSON(t, doc.RequestSchema), `{"name":"String","active":"Boolean","verbose":"boolean"}`; got != want {
		t.Fatalf("requestSchema = %s, want %s", got, want)
	}
	for _, f := range doc.RequestInfos {
		if kindOf(f) != typemodel.ParamQuery {
			t.Fatalf("field %s not QUERY", f.Path)
		}
	}
	if !doc.RequestInfos[0].Nullable || !doc.RequestInfos[2].Nullable {
		t.Fatalf("optional fields must be nullable: %+v", doc.RequestInfos)
	}
}

func TestDescribe_EnvelopeResolvesLikePayload(t *testing.T) {
	d := NewDescriber()
	base := EndpointDescriptor{URL: "/me", Method: "GET", Annotations: annotation.Map{"summary": "Me"}}

	bare := base
	bare.Returns = userType()
	wrapped := base
	wrapped.Returns = typemodel.EnvelopeOf(userType())

	a, _ := d.Describe(t.Context(), bare)
	b, _ := d.Describe(t.Context(), wrapped)
	if toJSON(t, a) != toJSON(t, b) {
		t.Fatalf("envelope changed documentation:\n%s\n%s", toJSON(t, a), toJSON(t, b))
	}

	noBody := base
	noBody.Returns = typemodel.EnvelopeOf(nil)
	c, _ := d.Describe(t.Context(), noBody)
	if c.ResponseSchema != typemodel.VoidName || len(c.ResponseInfos) != 0 {
		t.Fatalf("expected void response, got %+v", c)
	}
}

func TestDescribe_DoesNotMutateDescriptor(t *testing.T) {
	desc := EndpointDescriptor{
		URL: "/users/{id}", Method: "get",
		Params: []Parameter{
			{Name: "id", Type: typemodel.Scalar("Long"), Binding: BindPath},
			{Name: "body", Type: userType(), Binding: BindBody},
		},
		Returns:     userType(),
		Annotations: annotation.Map{"summary": "Update"},
	}
	params := append([]Parameter(nil), desc.Params...)

	NewDescriber().Describe(t.Context(), desc)

	if desc.Method != "get" || !reflect.DeepEqual(desc.Params, params) {
		t.Fatalf("descriptor modified: %+v", desc)
	}
}
