package jsonrpc

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAnyMessage_Classification(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"request with numeric id", `{"jsonrpc":"2.0","id":7,"method":"tools/list"}`, "request"},
		{"request with string id", `{"jsonrpc":"2.0","id":"abc","method":"tools/list"}`, "request"},
		{"notification without id", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, "notification"},
		{"request with null id", `{"jsonrpc":"2.0","id":null,"method":"ping"}`, "request"},
		{"response", `{"jsonrpc":"2.0","id":1,"result":{}}`, "response"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var m AnyMessage
			if err := json.Unmarshal([]byte(tc.raw), &m); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got := m.Type(); got != tc.want {
				t.Fatalf("Type() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestAnyMessage_RejectsWrongVersion(t *testing.T) {
	var m AnyMessage
	if err := json.Unmarshal([]byte(`{"jsonrpc":"1.0","id":1,"method":"x"}`), &m); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestResponse_EchoesID(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":"req-9","method":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	resp, err := NewResultResponse(req.ID, map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"jsonrpc":"2.0","result":{"count":3},"id":"req-9"}`; string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestErrorResponse_NullID(t *testing.T) {
	b, err := json.Marshal(NewErrorResponse(nil, ErrorCodeParseError, "", nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"jsonrpc":"2.0","error":{"code":-32700,"message":"Parse error"},"id":null}`; string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}
}

func TestError_AsError(t *testing.T) {
	var err error = Errorf(ErrorCodeInvalidParams, "missing %s", "url")
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		t.Fatalf("expected *Error")
	}
	if rpcErr.Code != ErrorCodeInvalidParams || rpcErr.Message != "missing url" {
		t.Fatalf("unexpected error: %+v", rpcErr)
	}
}

func TestRequestID_RoundTrip(t *testing.T) {
	cases := []struct {
		raw  string
		str  string
		echo string
	}{
		{`"abc"`, "abc", `"abc"`},
		{`42`, "42", `42`},
		{`12345678901234567890`, "12345678901234567890", `12345678901234567890`},
		{`1.5`, "1.5", `1.5`},
	}
	for _, tc := range cases {
		var id RequestID
		if err := json.Unmarshal([]byte(tc.raw), &id); err != nil {
			t.Fatalf("unmarshal %s: %v", tc.raw, err)
		}
		if id.String() != tc.str {
			t.Fatalf("String() = %q, want %q", id.String(), tc.str)
		}
		b, err := json.Marshal(&id)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if string(b) != tc.echo {
			t.Fatalf("echo = %s, want %s", b, tc.echo)
		}
	}

	var id RequestID
	for _, bad := range []string{`true`, `{}`, `[1]`} {
		if err := json.Unmarshal([]byte(bad), &id); err == nil {
			t.Fatalf("expected %s to be rejected", bad)
		}
	}
	if !NewRequestID(struct{}{}).IsNil() || NewRequestID(3).String() != "3" {
		t.Fatalf("NewRequestID mishandled inputs")
	}
}

func TestNullID_EchoedAsNull(t *testing.T) {
	var req Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","id":null,"method":"x"}`), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if req.ID.IsNil() || !req.ID.IsNull() {
		t.Fatalf("explicit null id must be present and null, got %+v", req.ID)
	}
	if req.ID.String() != "" {
		t.Fatalf("String() = %q, want empty", req.ID.String())
	}
	resp, err := NewResultResponse(req.ID, map[string]int{})
	if err != nil {
		t.Fatalf("NewResultResponse: %v", err)
	}
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if want := `{"jsonrpc":"2.0","result":{},"id":null}`; string(b) != want {
		t.Fatalf("got %s, want %s", b, want)
	}

	var absent Request
	if err := json.Unmarshal([]byte(`{"jsonrpc":"2.0","method":"x"}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !absent.ID.IsNil() || absent.ID.IsNull() {
		t.Fatalf("missing id must be absent, got %+v", absent.ID)
	}
}
