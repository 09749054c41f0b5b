package mcp

import "slices"

// ClientCapabilities advertises client features. The catalog server does
// not act on them; they are decoded so initialize requests round-trip.
type ClientCapabilities struct {
	Roots *struct {
		ListChanged bool `json:"listChanged"`
	} `json:"roots,omitempty"`
	Sampling    *struct{} `json:"sampling,omitempty"`
	Elicitation *struct{} `json:"elicitation,omitempty"`
}

// ServerCapabilities advertises server features.
type ServerCapabilities struct {
	Tools *ToolsCapability `json:"tools,omitempty"`
}

// ToolsCapability describes the tools feature set.
type ToolsCapability struct {
	ListChanged bool `json:"listChanged"`
}

// ImplementationInfo describes the implementation name and version.
type ImplementationInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Title   string `json:"title,omitzero"`
}

// ContentTypeText is the only content block type the catalog emits.
const ContentTypeText = "text"

// ContentBlock is a typed content part of a tool result.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitzero"`
}

// Tools
// Tool describes a callable tool and its input schema.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema ToolInputSchema `json:"inputSchema"`
}

// ToolInputSchema is a JSON-schema-like description of tool input.
type ToolInputSchema struct {
	Type                 string                    `json:"type"`
	Properties           map[string]SchemaProperty `json:"properties"`
	Required             []string                  `json:"required,omitempty"`
	AdditionalProperties bool                      `json:"additionalProperties"`
}

// SchemaProperty is a simplified schema node used in tool schemas.
type SchemaProperty struct {
	Type        string                    `json:"type,omitempty"`
	Description string                    `json:"description,omitzero"`
	Items       *SchemaProperty           `json:"items,omitempty"`
	Properties  map[string]SchemaProperty `json:"properties,omitempty"`
	Enum        []any                     `json:"enum,omitempty"`
}

// Protocol versions, oldest first.
const (
	ProtocolVersion20241105 = "2024-11-05"
	ProtocolVersion20250326 = "2025-03-26"
	ProtocolVersion20250618 = "2025-06-18"
)

// LatestProtocolVersion is the newest revision the server understands.
const LatestProtocolVersion = ProtocolVersion20250618

// DefaultProtocolVersion is offered to clients that request none or an
// unknown revision. It is the revision that defined the SSE transport.
const DefaultProtocolVersion = ProtocolVersion20241105

// SupportedProtocolVersions lists every revision the server accepts.
var SupportedProtocolVersions = []string{
	ProtocolVersion20241105,
	ProtocolVersion20250326,
	ProtocolVersion20250618,
}

// NegotiateProtocolVersion returns requested when supported, otherwise
// DefaultProtocolVersion.
func NegotiateProtocolVersion(requested string) string {
	if slices.Contains(SupportedProtocolVersions, requested) {
		return requested
	}
	return DefaultProtocolVersion
}
