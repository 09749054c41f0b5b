package logctx

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
)

func TestHandler_AddsContextGroups(t *testing.T) {
	var buf bytes.Buffer
	log := Wrap(slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx := WithSessionData(context.Background(), &SessionData{SessionID: "s-1"})
	ctx = WithRPCMessage(ctx, &RPCMessage{Method: "tools/call", ID: "7", Type: "request"})
	ctx = WithToolCallData(ctx, &ToolCallData{ToolName: "searchApis"})

	log.With("component", "test").InfoContext(ctx, "rpc.inbound.ok")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode record: %v (%s)", err, buf.String())
	}
	sess, _ := rec["sess"].(map[string]any)
	if sess["id"] != "s-1" {
		t.Fatalf("missing sess group: %v", rec)
	}
	rpc, _ := rec["rpc"].(map[string]any)
	if rpc["method"] != "tools/call" || rpc["id"] != "7" {
		t.Fatalf("missing rpc group: %v", rec)
	}
	tool, _ := rec["tool"].(map[string]any)
	if tool["name"] != "searchApis" {
		t.Fatalf("missing tool group: %v", rec)
	}
	if rec["component"] != "test" {
		t.Fatalf("With attrs lost through wrapping: %v", rec)
	}
}

func TestWrap_Idempotent(t *testing.T) {
	l := Wrap(nil)
	if Wrap(l) != l {
		t.Fatalf("expected already-wrapped logger to be returned as is")
	}
}
