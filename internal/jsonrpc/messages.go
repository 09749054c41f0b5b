package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ProtocolVersion is the only accepted value of the "jsonrpc" member.
const ProtocolVersion = "2.0"

var (
	errRequestWithResult = errors.New("request message cannot have result or error fields")
	errResultAndError    = errors.New("response message cannot have both result and error fields")
	errEmptyResponse     = errors.New("response message must have either result or error field")
)

// Request is a call (with an id) or a notification (without one).
type Request struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method"`
	Params         json.RawMessage `json:"params,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

func (r *Request) UnmarshalJSON(data []byte) error {
	type plain Request
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := presentID(data, &p.ID); err != nil {
		return err
	}
	*r = Request(p)
	return nil
}

// Response answers a Request. The id is always emitted; a response to a
// message whose id could not be read carries "id": null.
type Response struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Data    any       `json:"data,omitempty"`
}

// NewResultResponse marshals result into a success response for id.
func NewResultResponse(id *RequestID, result any) (*Response, error) {
	b, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}
	return &Response{JSONRPCVersion: ProtocolVersion, Result: b, ID: id}, nil
}

// NewErrorResponse builds an error response for id. An empty message is
// replaced by the standard text for code.
func NewErrorResponse(id *RequestID, code ErrorCode, message string, data any) *Response {
	if message == "" {
		message = code.String()
	}
	return &Response{
		JSONRPCVersion: ProtocolVersion,
		Error:          &Error{Code: code, Message: message, Data: data},
		ID:             id,
	}
}

// AnyMessage is an inbound message before it is known to be a request,
// a notification or a response. Unmarshalling rejects structurally
// invalid messages.
type AnyMessage struct {
	JSONRPCVersion string          `json:"jsonrpc"`
	Method         string          `json:"method,omitempty"`
	Params         json.RawMessage `json:"params,omitempty"`
	Result         json.RawMessage `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	ID             *RequestID      `json:"id,omitempty"`
}

func (m *AnyMessage) UnmarshalJSON(data []byte) error {
	// The alias drops this method so decoding does not recurse.
	type plain AnyMessage
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if p.JSONRPCVersion != ProtocolVersion {
		return fmt.Errorf("invalid JSON-RPC version: expected %q, got %q", ProtocolVersion, p.JSONRPCVersion)
	}

	hasResult, hasError := len(p.Result) > 0, p.Error != nil
	switch {
	case p.Method != "" && (hasResult || hasError):
		return errRequestWithResult
	case p.Method == "" && hasResult && hasError:
		return errResultAndError
	case p.Method == "" && !hasResult && !hasError:
		return errEmptyResponse
	}
	if err := presentID(data, &p.ID); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	*m = AnyMessage(p)
	return nil
}

// Type classifies the message as "request", "notification" or "response".
// Only a missing id makes a notification; "id": null is a request.
func (m *AnyMessage) Type() string {
	switch {
	case m.Method == "":
		return "response"
	case m.ID.IsNil():
		return "notification"
	default:
		return "request"
	}
}

// AsRequest returns the message as a Request, or nil for responses.
func (m *AnyMessage) AsRequest() *Request {
	if m.Method == "" {
		return nil
	}
	return &Request{
		JSONRPCVersion: m.JSONRPCVersion,
		Method:         m.Method,
		Params:         m.Params,
		ID:             m.ID,
	}
}
