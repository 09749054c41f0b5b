package typemodel

import (
	"reflect"
	"testing"
	"time"
)

type testPage[T any] struct {
	Items []T `json:"items"`
}

func (testPage[T]) PageElement() reflect.Type { return reflect.TypeFor[T]() }

type testEnvelope[T any] struct {
	Body T
}

func (testEnvelope[T]) EnvelopePayload() reflect.Type { return reflect.TypeFor[T]() }

type testNoContent struct{}

func (testNoContent) EnvelopePayload() reflect.Type { return nil }

type testPageable struct {
	Page int
}

func (testPageable) PageRequest() {}

type Status string

type Audit struct {
	CreatedAt time.Time `json:"createdAt" description:"Creation time"`
}

type Account struct {
	Audit
	ID       int64             `json:"id" doc:"Account id"`
	Owner    *string           `json:"owner"`
	Balance  *float64          `json:"balance,omitempty"`
	Active   bool              `json:"active"`
	Status   Status            `json:"status"`
	Labels   map[string]string `json:"labels"`
	Children []*Account        `json:"children"`
	secret   string
	Ignored  string            `json:"-"`
	Hook     func()            `json:"hook"`
	Count    *int32            `json:"count"`
	Blob     []byte            `json:"blob"`
	Extra    any               `json:"extra"`
	Nested   struct{ A int }   `json:"nested"`
}

func TestReflect_CanonicalNames(t *testing.T) {
	cases := []struct {
		typ  Type
		want string
	}{
		{TypeOf[int](), "int"},
		{TypeOf[int32](), "int"},
		{TypeOf[int64](), "long"},
		{TypeOf[*int64](), "Long"},
		{TypeOf[*int](), "Integer"},
		{TypeOf[bool](), "boolean"},
		{TypeOf[*bool](), "Boolean"},
		{TypeOf[float64](), "double"},
		{TypeOf[float32](), "float"},
		{TypeOf[string](), "String"},
		{TypeOf[*string](), "String"},
		{TypeOf[Status](), "Status"},
		{TypeOf[time.Time](), "DateTime"},
		{TypeOf[time.Duration](), "Duration"},
		{TypeOf[[]byte](), "byte[]"},
		{TypeOf[map[string]int](), "Map<String,int>"},
		{TypeOf[any](), "Object"},
		{TypeOf[[]Account](), "List<Account>"},
		{TypeOf[testPage[Account]](), "Page<Account>"},
		{TypeOf[testEnvelope[Account]](), "Account"},
		{TypeOf[testNoContent](), "void"},
		{TypeOf[testPageable](), "testPageable"},
	}
	for _, tc := range cases {
		if got := DisplayName(tc.typ); got != tc.want {
			t.Errorf("DisplayName(%s) = %q, want %q", tc.typ.ID(), got, tc.want)
		}
	}
}

func TestReflect_Kinds(t *testing.T) {
	cases := []struct {
		typ  Type
		want Kind
	}{
		{TypeOf[Account](), KindComposite},
		{TypeOf[*Account](), KindComposite},
		{TypeOf[[]string](), KindCollection},
		{TypeOf[[3]int](), KindCollection},
		{TypeOf[testPage[string]](), KindPage},
		{TypeOf[testEnvelope[string]](), KindEnvelope},
		{TypeOf[testPageable](), KindPageRequest},
		{TypeOf[time.Time](), KindScalar},
		{TypeOf[[]byte](), KindScalar},
	}
	for _, tc := range cases {
		if got := tc.typ.Kind(); got != tc.want {
			t.Errorf("%s: Kind = %v, want %v", tc.typ.ID(), got, tc.want)
		}
	}
}

func TestReflect_Properties(t *testing.T) {
	props, err := TypeOf[Account]().Properties()
	if err != nil {
		t.Fatalf("Properties: %v", err)
	}
	var names []string
	nullable := map[string]bool{}
	for _, p := range props {
		names = append(names, p.Name)
		nullable[p.Name] = p.Nullable
	}
	want := []string{"createdAt", "id", "owner", "balance", "active", "status", "labels", "children", "count", "blob", "extra", "nested"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("names = %v, want %v", names, want)
	}
	if !nullable["owner"] || !nullable["balance"] || !nullable["count"] || nullable["id"] || nullable["active"] {
		t.Fatalf("unexpected nullability: %v", nullable)
	}
}

func TestReflect_ResolveAccount(t *testing.T) {
	var r Resolver
	shape, fields := r.Expand(t.Context(), TypeOf[Account](), "", nil)

	want := `{"createdAt":"DateTime","id":"long","owner":"String","balance":"Double","active":"boolean","status":"Status","labels":"Map<String,String>","children":["Account"],"count":"Integer","blob":"byte[]","extra":"Object","nested":{"A":"int"}}`
	if got := mustJSON(t, shape); got != want {
		t.Fatalf("shape = %s\nwant    %s", got, want)
	}

	byPath := map[string]FieldInfo{}
	for _, f := range fields {
		byPath[f.Path] = f
	}
	if byPath["createdAt"].Description != "Creation time" {
		t.Fatalf("primary description missing: %+v", byPath["createdAt"])
	}
	if byPath["id"].Description != "Account id" {
		t.Fatalf("legacy description missing: %+v", byPath["id"])
	}
	if _, ok := byPath["nested.A"]; !ok {
		t.Fatalf("nested leaf missing: %v", paths(fields))
	}
	if byPath["children"].Type != "List<Account>" {
		t.Fatalf("children type = %q", byPath["children"].Type)
	}
}

func TestReflect_GenericIdentityDiffers(t *testing.T) {
	a := TypeOf[testPage[string]]()
	b := TypeOf[testPage[int]]()
	if a.ID() == b.ID() {
		t.Fatalf("expected distinct IDs, both %q", a.ID())
	}
	if a.Name() != "testPage" {
		t.Fatalf("Name = %q", a.Name())
	}
}
