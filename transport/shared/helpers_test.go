package shared

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/slighter12/twinscene-go/commands"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/rpc/jsonrpc"
)

func TestMain(m *testing.M) {
	_ = logger.Init(logger.GetLevelFromString("error"), logger.FormatJSON, io.Discard)
	os.Exit(m.Run())
}

func testRegistry(t *testing.T, extra int) *commands.Manager {
	t.Helper()
	m := commands.NewManager()
	echoCmd := commands.NewFuncCommand("echo", "Returns its arguments", commands.InputSchema{Type: "object"},
		func(_ context.Context, args json.RawMessage) ([]byte, error) {
			return args, nil
		})
	lockedCmd := commands.NewFuncCommand("locked", "Always refused", commands.InputSchema{Type: "object"},
		func(context.Context, json.RawMessage) ([]byte, error) {
			return nil, commands.NewSemanticError(commands.SemanticKindLocked, "editor is locked", map[string]any{"command": "locked"})
		})
	brokenCmd := commands.NewFuncCommand("broken", "Always fails", commands.InputSchema{Type: "object"},
		func(context.Context, json.RawMessage) ([]byte, error) {
			return nil, fmt.Errorf("disk on fire")
		})
	m.RegisterAll([]commands.Command{echoCmd, lockedCmd, brokenCmd})
	for i := range extra {
		name := fmt.Sprintf("extra-%03d", i)
		m.RegisterAll([]commands.Command{commands.NewFuncCommand(name, name, commands.InputSchema{Type: "object"},
			func(context.Context, json.RawMessage) ([]byte, error) { return []byte("{}"), nil })})
	}
	return m
}

func mustRequest(t *testing.T, method string, params any) jsonrpc.Request {
	t.Helper()
	raw, err := json.Marshal(params)
	if err != nil {
		t.Fatalf("marshal params: %v", err)
	}
	return jsonrpc.Request{JSONRPC: jsonrpc.Version, ID: 1, Method: method, Params: raw}
}

func mustErrorDataMap(t *testing.T, data any) map[string]any {
	t.Helper()
	m, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("expected error data map, got %T", data)
	}
	return m
}

func TestDispatch_CommandCall(t *testing.T) {
	registry := testRegistry(t, 0)
	req := mustRequest(t, "commands/call", map[string]any{"name": "echo", "arguments": map[string]any{"x": 1}})

	resp, ok := Dispatch(context.Background(), req, registry, ServerInfo{Name: "test"}, nil).(*jsonrpc.Response)
	if !ok || resp.Error != nil {
		t.Fatalf("expected success response, got %#v", resp)
	}
	result := resp.Result.(map[string]any)
	if result["command"] != "echo" {
		t.Fatalf("expected command echo, got %v", result["command"])
	}
	if string(result["result"].(json.RawMessage)) != `{"x":1}` {
		t.Fatalf("unexpected result %s", result["result"])
	}
}

func TestDispatch_CommandErrors(t *testing.T) {
	registry := testRegistry(t, 0)

	resp := Dispatch(context.Background(), mustRequest(t, "commands/call", map[string]any{"name": "missing"}), registry, ServerInfo{}, nil).(*jsonrpc.Response)
	if !jsonrpc.IsError(resp, jsonrpc.ErrMethodNotFound) {
		t.Fatalf("expected method not found, got %#v", resp.Error)
	}
	if data := mustErrorDataMap(t, resp.Error.Data); data["problem"] != "unknown_command" {
		t.Fatalf("expected unknown_command, got %v", data["problem"])
	}

	resp = Dispatch(context.Background(), mustRequest(t, "commands/call", map[string]any{"name": " "}), registry, ServerInfo{}, nil).(*jsonrpc.Response)
	if !jsonrpc.IsError(resp, jsonrpc.ErrInvalidParams) {
		t.Fatalf("expected invalid params for blank name, got %#v", resp.Error)
	}

	resp = Dispatch(context.Background(), mustRequest(t, "commands/call", map[string]any{"name": "locked"}), registry, ServerInfo{}, nil).(*jsonrpc.Response)
	if !jsonrpc.IsError(resp, jsonrpc.ErrServerError) {
		t.Fatalf("expected server error, got %#v", resp.Error)
	}
	if data := mustErrorDataMap(t, resp.Error.Data); data["kind"] != commands.SemanticKindLocked || data["command"] != "locked" {
		t.Fatalf("unexpected error data %v", data)
	}

	resp = Dispatch(context.Background(), mustRequest(t, "commands/call", map[string]any{"name": "broken"}), registry, ServerInfo{}, nil).(*jsonrpc.Response)
	if !jsonrpc.IsError(resp, jsonrpc.ErrInternalError) {
		t.Fatalf("expected internal error, got %#v", resp.Error)
	}
}

func TestDispatch_UnknownMethod(t *testing.T) {
	registry := testRegistry(t, 0)
	resp := Dispatch(context.Background(), mustRequest(t, "tools/list", nil), registry, ServerInfo{}, nil).(*jsonrpc.Response)
	if !jsonrpc.IsError(resp, jsonrpc.ErrMethodNotFound) {
		t.Fatalf("expected method not found, got %#v", resp.Error)
	}

	notification := jsonrpc.Request{JSONRPC: jsonrpc.Version, Method: "tools/list"}
	if out := Dispatch(context.Background(), notification, registry, ServerInfo{}, nil); out != nil {
		t.Fatalf("expected no response to a notification, got %#v", out)
	}
}

func TestBuildCommandsListResponse_Pagination(t *testing.T) {
	registry := testRegistry(t, 60)
	infos := registry.Infos()

	resp := BuildCommandsListResponse(mustRequest(t, "commands/list", map[string]any{}), infos)
	result := resp.Result.(map[string]any)
	if got := len(result["commands"].([]commands.Info)); got != pageSize {
		t.Fatalf("expected %d commands, got %d", pageSize, got)
	}
	cursor, ok := result["nextCursor"].(string)
	if !ok || cursor != "50" {
		t.Fatalf("expected nextCursor 50, got %v", result["nextCursor"])
	}

	resp = BuildCommandsListResponse(mustRequest(t, "commands/list", map[string]any{"cursor": cursor}), infos)
	result = resp.Result.(map[string]any)
	if got := len(result["commands"].([]commands.Info)); got != len(infos)-pageSize {
		t.Fatalf("expected %d commands, got %d", len(infos)-pageSize, got)
	}
	if _, exists := result["nextCursor"]; exists {
		t.Fatal("did not expect nextCursor on the last page")
	}

	resp = BuildCommandsListResponse(mustRequest(t, "commands/list", map[string]any{"cursor": "999"}), infos)
	if !jsonrpc.IsError(resp, jsonrpc.ErrInvalidParams) {
		t.Fatalf("expected invalid cursor error, got %#v", resp)
	}
}

func TestParseJSONRPCFrame(t *testing.T) {
	tests := []struct {
		name      string
		frame     string
		requests  int
		errorCode jsonrpc.ErrorCode
		oneWay    bool
	}{
		{name: "request", frame: `{"jsonrpc":"2.0","id":1,"method":"ping"}`, requests: 1},
		{name: "notification", frame: `{"jsonrpc":"2.0","method":"notifications/initialized"}`, requests: 1},
		{name: "batch", frame: `[{"jsonrpc":"2.0","id":1,"method":"ping"}]`, errorCode: jsonrpc.ErrInvalidRequest},
		{name: "garbage", frame: `{nope`, errorCode: jsonrpc.ErrParseError},
		{name: "wrong version", frame: `{"jsonrpc":"1.0","id":1,"method":"ping"}`, errorCode: jsonrpc.ErrInvalidRequest},
		{name: "fractional id", frame: `{"jsonrpc":"2.0","id":1.5,"method":"ping"}`, errorCode: jsonrpc.ErrInvalidRequest},
		{name: "array params", frame: `{"jsonrpc":"2.0","id":1,"method":"ping","params":[]}`, errorCode: jsonrpc.ErrInvalidRequest},
		{name: "initialize notification", frame: `{"jsonrpc":"2.0","method":"initialize"}`, errorCode: jsonrpc.ErrInvalidRequest},
		{name: "client response", frame: `{"jsonrpc":"2.0","id":"a","result":{}}`, oneWay: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			requests, prebuilt, oneWay, err := ParseJSONRPCFrame([]byte(tt.frame))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(requests) != tt.requests {
				t.Fatalf("expected %d requests, got %d", tt.requests, len(requests))
			}
			if oneWay != tt.oneWay {
				t.Fatalf("expected oneWay=%v, got %v", tt.oneWay, oneWay)
			}
			if tt.errorCode != 0 {
				if len(prebuilt) != 1 || !jsonrpc.IsError(prebuilt[0].(*jsonrpc.Response), tt.errorCode) {
					t.Fatalf("expected error %d, got %#v", tt.errorCode, prebuilt)
				}
			}
		})
	}

	if _, _, _, err := ParseJSONRPCFrame([]byte("   ")); err == nil {
		t.Fatal("expected error for an empty frame")
	}
}
