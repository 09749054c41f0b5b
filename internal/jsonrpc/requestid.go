package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RequestID is a JSON-RPC id: a string, a number, an explicit null, or
// absent. The original encoding is kept so an id is echoed back exactly as
// the client sent it, including numbers that do not fit an int64.
//
// Only an absent id marks a notification. A request carrying "id": null
// is answered with "id": null.
type RequestID struct {
	raw json.RawMessage
}

var nullID = json.RawMessage("null")

// NewRequestID builds an id from a Go string or number. Any other value
// yields an absent id.
func NewRequestID(value any) *RequestID {
	switch value.(type) {
	case string, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		if b, err := json.Marshal(value); err == nil {
			return &RequestID{raw: b}
		}
	}
	return &RequestID{}
}

// NullRequestID returns an id that was present in the message as null.
func NullRequestID() *RequestID {
	return &RequestID{raw: nullID}
}

// IsNil reports whether the id is absent. An explicit null is not absent.
func (id *RequestID) IsNil() bool {
	return id == nil || len(id.raw) == 0
}

// IsNull reports whether the id was sent as an explicit null.
func (id *RequestID) IsNull() bool {
	return id != nil && bytes.Equal(id.raw, nullID)
}

// String returns string ids unquoted and numeric ids as written. Absent
// and null ids yield "".
func (id *RequestID) String() string {
	if id.IsNil() || id.IsNull() {
		return ""
	}
	if id.raw[0] == '"' {
		var s string
		if err := json.Unmarshal(id.raw, &s); err == nil {
			return s
		}
	}
	return string(id.raw)
}

func (id *RequestID) MarshalJSON() ([]byte, error) {
	if id.IsNil() {
		return []byte("null"), nil
	}
	return id.raw, nil
}

func (id *RequestID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, nullID) {
		id.raw = nullID
		return nil
	}

	var err error
	if len(data) > 0 && data[0] == '"' {
		var s string
		err = json.Unmarshal(data, &s)
	} else {
		var n json.Number
		err = json.Unmarshal(data, &n)
	}
	if err != nil {
		return fmt.Errorf("JSON-RPC id must be a string or number, got %s", data)
	}
	id.raw = bytes.Clone(data)
	return nil
}

// presentID fills in an explicit null id. encoding/json sets a pointer
// field to nil on null without consulting UnmarshalJSON, which would make
// "id": null indistinguishable from a missing member.
func presentID(data []byte, id **RequestID) error {
	if *id != nil {
		return nil
	}
	var member struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(data, &member); err != nil {
		return err
	}
	if bytes.Equal(bytes.TrimSpace(member.ID), nullID) {
		*id = NullRequestID()
	}
	return nil
}
