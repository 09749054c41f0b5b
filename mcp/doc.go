// Package mcp contains the protocol data types and method names shared by
// the catalog dispatcher and its transports. The types mirror the Model
// Context Protocol wire representation with exported structs and json tags;
// the package has no transport logic of its own.
//
// # Method Names
//
// JSON-RPC method and notification names are enumerated as Method
// constants (e.g. ToolsListMethod). Using the constants keeps one point of
// truth for the names a client may send.
//
// # Protocol Versions
//
// DefaultProtocolVersion is advertised unless the client asks for another
// entry of SupportedProtocolVersions during initialize.
//
// Example (tool result construction):
//
//	res := &mcp.CallToolResult{
//	    Content: []mcp.ContentBlock{{Type: mcp.ContentTypeText, Text: "{}"}},
//	}
package mcp
