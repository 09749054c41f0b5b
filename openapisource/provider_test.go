package openapisource

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ggoodman/mcp-api-catalog/catalog"
)

const petstore = `
openapi: 3.0.3
info:
  title: Petstore
  version: 1.0.0
paths:
  /pets/{petId}:
    parameters:
      - name: petId
        in: path
        required: true
        schema: {type: integer, format: int64}
    get:
      summary: Find pet by ID
      tags: [Pet]
      parameters:
        - name: X-Trace
          in: header
          schema: {type: string}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Pet'}
    delete:
      summary: Delete pet
      tags: [Pet]
      responses:
        "204":
          description: gone
  /pets:
    post:
      summary: Add pet
      description: Adds a pet to the store
      tags: [Pet, Store]
      x-codegen-request-body-name: pet
      requestBody:
        required: true
        content:
          application/json:
            schema: {$ref: '#/components/schemas/Pet'}
      responses:
        "201":
          description: created
          content:
            application/json:
              schema: {$ref: '#/components/schemas/Pet'}
    get:
      summary: List pets
      tags: [Pet]
      parameters:
        - name: status
          in: query
          schema: {type: array, items: {type: string}}
        - name: session
          in: cookie
          schema: {type: string}
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: array
                items: {$ref: '#/components/schemas/Pet'}
  /internal/metrics:
    get:
      responses:
        "200":
          description: ok
components:
  schemas:
    Category:
      type: object
      required: [id]
      properties:
        id: {type: integer, format: int64}
        parent: {$ref: '#/components/schemas/Category'}
    Pet:
      type: object
      required: [name]
      properties:
        name: {type: string, description: Pet name}
        id: {type: integer, format: int64}
        category: {$ref: '#/components/schemas/Category'}
        born: {type: string, format: date-time}
        labels:
          type: object
          additionalProperties: {type: string}
`

func buildPetstore(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc, err := LoadData(t.Context(), []byte(petstore))
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	return catalog.Build(t.Context(), Descriptors(doc), catalog.NewDescriber())
}

func toJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestDescriptors_Order(t *testing.T) {
	doc, err := LoadData(t.Context(), []byte(petstore))
	if err != nil {
		t.Fatalf("LoadData: %v", err)
	}
	var got []string
	for _, d := range Descriptors(doc) {
		got = append(got, d.Method+" "+d.URL)
	}
	want := "GET /internal/metrics,GET /pets,POST /pets,GET /pets/{petId},DELETE /pets/{petId}"
	if strings.Join(got, ",") != want {
		t.Fatalf("order = %v", got)
	}
}

func TestCatalog_FromOpenAPI(t *testing.T) {
	c := buildPetstore(t)
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4 (undocumented operation skipped)", c.Len())
	}

	get, err := c.Find("/pets/{petId}", "GET")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if get.Category != "Pet" || get.Title != "Find pet by ID" {
		t.Fatalf("unexpected doc: %+v", get)
	}
	want := `{"born":"DateTime","category":{"id":"Long","parent":"Category"},"id":"Long","labels":"Map<String,String>","name":"String"}`
	if got := toJSON(t, get.ResponseSchema); got != want {
		t.Fatalf("responseSchema = %s\nwant %s", got, want)
	}
	var names []string
	for _, f := range get.RequestInfos {
		names = append(names, f.Path+":"+string(*f.ParameterKind))
	}
	if got := strings.Join(names, ","); got != "X-Trace:HEADER,petId:PATH" {
		t.Fatalf("request fields = %s", got)
	}
	if !get.RequestInfos[0].Nullable {
		t.Fatalf("optional header must be nullable")
	}
	for _, f := range get.ResponseInfos {
		if f.Path == "name" && (f.Nullable || f.Description != "Pet name") {
			t.Fatalf("name field = %+v", f)
		}
		if f.Path == "id" && !f.Nullable {
			t.Fatalf("optional id must be nullable")
		}
	}

	post, _ := c.Find("/pets", "POST")
	if post.Description != "Adds a pet to the store" || post.Category != "Pet" {
		t.Fatalf("unexpected doc: %+v", post)
	}
	if post.RequestInfos[0].Path != "pet" || post.RequestInfos[0].Type != "Pet" {
		t.Fatalf("body field = %+v", post.RequestInfos[0])
	}

	list, _ := c.Find("/pets", "GET")
	if list.RequestInfos[0].Type != "List<String>" || len(list.RequestInfos) != 1 {
		t.Fatalf("cookie parameter must be ignored, status is a list: %+v", list.RequestInfos)
	}
	if !strings.HasPrefix(toJSON(t, list.ResponseSchema), `[{"born":"DateTime"`) {
		t.Fatalf("list response = %s", toJSON(t, list.ResponseSchema))
	}

	del, _ := c.Find("/pets/{petId}", "DELETE")
	if del.ResponseSchema != "void" {
		t.Fatalf("delete response = %v", del.ResponseSchema)
	}
}

func TestProvider_ReadsFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "petstore.yaml")
	if err := os.WriteFile(path, []byte(petstore), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p := New([]string{path})
	descs, err := p.Descriptors(t.Context())
	if err != nil {
		t.Fatalf("Descriptors: %v", err)
	}
	if len(descs) != 5 {
		t.Fatalf("len = %d", len(descs))
	}

	if _, err := New([]string{filepath.Join(t.TempDir(), "missing.yaml")}).Descriptors(t.Context()); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
