package catalog

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
)

// ErrNotFound is returned when no endpoint matches a lookup.
var ErrNotFound = errors.New("endpoint not found")

// Catalog is an immutable, ordered collection of EndpointDocs.
type Catalog struct {
	docs  []*EndpointDoc
	index map[endpointKey]*EndpointDoc
}

type endpointKey struct {
	url    string
	method string
}

func keyOf(url, method string) endpointKey {
	return endpointKey{url: url, method: strings.ToUpper(method)}
}

// New returns a Catalog of docs in order. A later doc with the same url and
// method as an earlier one is dropped.
func New(docs ...*EndpointDoc) *Catalog {
	c := &Catalog{index: make(map[endpointKey]*EndpointDoc, len(docs))}
	for _, d := range docs {
		if d == nil {
			continue
		}
		k := keyOf(d.URL, d.Method)
		if _, dup := c.index[k]; dup {
			continue
		}
		c.index[k] = d
		c.docs = append(c.docs, d)
	}
	return c
}

// Build describes every descriptor and collects the documented ones.
// Undocumented handlers are skipped silently; duplicate (url, method) pairs
// keep the first and log the rest.
func Build(ctx context.Context, descs []EndpointDescriptor, d *Describer) *Catalog {
	if d == nil {
		d = NewDescriber()
	}
	c := &Catalog{index: make(map[endpointKey]*EndpointDoc, len(descs))}
	for _, desc := range descs {
		doc, ok := d.Describe(ctx, desc)
		if !ok {
			continue
		}
		k := keyOf(doc.URL, doc.Method)
		if _, dup := c.index[k]; dup {
			d.log.WarnContext(ctx, "catalog.build.duplicate",
				slog.String("url", doc.URL),
				slog.String("method", doc.Method),
				slog.String("controller", desc.ControllerName),
			)
			continue
		}
		c.index[k] = doc
		c.docs = append(c.docs, doc)
	}
	return c
}

// List returns every doc in build order. The slice must not be modified.
func (c *Catalog) List() []*EndpointDoc {
	if c == nil {
		return nil
	}
	return slices.Clip(c.docs)
}

// Len returns the number of docs.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.docs)
}

// Find matches url exactly and method case-insensitively.
func (c *Catalog) Find(url, method string) (*EndpointDoc, error) {
	if c != nil {
		if d, ok := c.index[keyOf(url, method)]; ok {
			return d, nil
		}
	}
	return nil, ErrNotFound
}

// Filter selects docs. Zero fields do not constrain the result.
type Filter struct {
	// Category and Method match case-insensitively.
	Category string `schema:"category" json:"category,omitempty"`
	Method   string `schema:"method" json:"method,omitempty"`
	// Keyword matches case-insensitively within the title, description or
	// URL.
	Keyword string `schema:"keyword" json:"keyword,omitempty"`
}

func (f Filter) match(d *EndpointDoc, keyword string) bool {
	if f.Category != "" && !strings.EqualFold(d.Category, f.Category) {
		return false
	}
	if f.Method != "" && !strings.EqualFold(d.Method, f.Method) {
		return false
	}
	if keyword != "" &&
		!strings.Contains(strings.ToLower(d.Title), keyword) &&
		!strings.Contains(strings.ToLower(d.Description), keyword) &&
		!strings.Contains(strings.ToLower(d.URL), keyword) {
		return false
	}
	return true
}

// Filter returns the docs matching every supplied criterion, in build
// order.
func (c *Catalog) Filter(f Filter) []*EndpointDoc {
	keyword := strings.ToLower(f.Keyword)
	out := []*EndpointDoc{}
	for _, d := range c.List() {
		if f.match(d, keyword) {
			out = append(out, d)
		}
	}
	return out
}

// Count returns the number of docs in category, or all docs when category
// is empty.
func (c *Catalog) Count(category string) int {
	if category == "" {
		return c.Len()
	}
	return len(c.Filter(Filter{Category: category}))
}

// Categories returns the distinct non-empty categories in first-seen order.
func (c *Catalog) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range c.List() {
		if d.Category == "" || seen[d.Category] {
			continue
		}
		seen[d.Category] = true
		out = append(out, d.Category)
	}
	return out
}
