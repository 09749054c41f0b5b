// Package catalog builds and serves the endpoint documentation catalog.
//
// A Describer converts each EndpointDescriptor into an EndpointDoc; Build
// collects them into an immutable Catalog; a Store publishes the current
// Catalog atomically and swaps in a fresh one on Rebuild, optionally driven
// by file changes (Watch).
package catalog

import (
	"github.com/ggoodman/mcp-api-catalog/typemodel"
)

// EndpointDoc is the normalized documentation of one (url, method) pair.
// Values are shared between readers and must not be modified.
type EndpointDoc struct {
	URL            string                `json:"url"`
	Method         string                `json:"method"`
	Category       string                `json:"category"`
	Title          string                `json:"title"`
	Description    string                `json:"description"`
	RequestSchema  *typemodel.Object     `json:"requestSchema"`
	ResponseSchema typemodel.Shape       `json:"responseSchema"`
	RequestInfos   []typemodel.FieldInfo `json:"requestInfos"`
	ResponseInfos  []typemodel.FieldInfo `json:"responseInfos"`
}
