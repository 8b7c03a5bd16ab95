package shared

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/slighter12/twinscene-go/commands"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/rpc/jsonrpc"
)

const pageSize = 50

// ServerInfo is reported by initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

func BuildInitializeResponse(msg jsonrpc.Request, info ServerInfo, transports []string) *jsonrpc.Response {
	return jsonrpc.NewResponse(msg.ID, map[string]any{
		"protocolVersion": jsonrpc.Version,
		"serverInfo":      info,
		"capabilities": map[string]any{
			"commands":   map[string]any{},
			"events":     map[string]any{},
			"transports": transports,
		},
	})
}

func BuildCommandsListResponse(msg jsonrpc.Request, infos []commands.Info) *jsonrpc.Response {
	start, err := ParseCursor(msg.Params, len(infos))
	if err != nil {
		return jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrInvalidParams, err.Error(), nil)
	}
	end := min(start+pageSize, len(infos))

	result := map[string]any{
		"commands": infos[start:end],
	}
	if end < len(infos) {
		result["nextCursor"] = strconv.Itoa(end)
	}
	return jsonrpc.NewResponse(msg.ID, result)
}

func BuildCommandCallResponse(ctx context.Context, msg jsonrpc.Request, registry commands.Registry) *jsonrpc.Response {
	var call struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(msg.Params, &call); err != nil {
		return semanticError(msg.ID, jsonrpc.ErrInvalidParams, "Invalid commands/call payload", commands.SemanticKindInvalidParams, map[string]any{
			"field":   "params",
			"problem": "malformed_payload",
		})
	}
	name := strings.TrimSpace(call.Name)
	if name == "" {
		return semanticError(msg.ID, jsonrpc.ErrInvalidParams, "Command name is required", commands.SemanticKindInvalidParams, map[string]any{
			"field":   "name",
			"problem": "missing",
		})
	}

	out, err := registry.Execute(ctx, name, call.Arguments)
	if err != nil {
		if commands.IsCommandNotFound(err) {
			return semanticError(msg.ID, jsonrpc.ErrMethodNotFound, "Unknown command name", commands.SemanticKindNotFound, map[string]any{
				"field":   "name",
				"problem": "unknown_command",
				"value":   name,
			})
		}
		if semanticErr, ok := commands.AsSemanticError(err); ok {
			return semanticError(msg.ID, jsonrpc.ErrServerError, semanticErr.Error(), semanticErr.Kind, semanticErr.Data)
		}
		logger.Error("Command failed", "command", name, "error", err)
		return jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrInternalError, err.Error(), map[string]any{"command": name})
	}

	return jsonrpc.NewResponse(msg.ID, map[string]any{
		"command": name,
		"result":  json.RawMessage(out),
	})
}

func BuildPingResponse(msg jsonrpc.Request) *jsonrpc.Response {
	return jsonrpc.NewResponse(msg.ID, map[string]any{})
}

// Dispatch answers one request. Notifications get a nil response.
func Dispatch(ctx context.Context, msg jsonrpc.Request, registry *commands.Manager, info ServerInfo, transports []string) any {
	switch msg.Method {
	case "initialize":
		return BuildInitializeResponse(msg, info, transports)
	case "initialized", "notifications/initialized":
		if !msg.IsNotification() {
			return jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrInvalidRequest, "", nil)
		}
		return nil
	case "ping":
		if msg.IsNotification() {
			return nil
		}
		return BuildPingResponse(msg)
	case "commands/list":
		return BuildCommandsListResponse(msg, registry.Infos())
	case "commands/call":
		resp := BuildCommandCallResponse(ctx, msg, registry)
		if msg.IsNotification() {
			return nil
		}
		return resp
	default:
		if !msg.IsNotification() {
			return jsonrpc.NewErrorResponse(msg.ID, jsonrpc.ErrMethodNotFound, "", map[string]any{
				"method": msg.Method,
			})
		}
		return nil
	}
}

func semanticError(id any, code jsonrpc.ErrorCode, message, kind string, extra map[string]any) *jsonrpc.Response {
	data := map[string]any{
		"kind": kind,
	}
	for key, value := range extra {
		data[key] = value
	}
	return jsonrpc.NewErrorResponse(id, code, message, data)
}

func ParseCursor(paramsRaw json.RawMessage, total int) (int, error) {
	if len(paramsRaw) == 0 {
		return 0, nil
	}

	var params struct {
		Cursor string `json:"cursor"`
	}
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return 0, fmt.Errorf("invalid params payload")
	}
	if strings.TrimSpace(params.Cursor) == "" {
		return 0, nil
	}

	offset, err := strconv.Atoi(params.Cursor)
	if err != nil {
		return 0, fmt.Errorf("invalid cursor value")
	}
	if offset < 0 || offset > total {
		return 0, fmt.Errorf("invalid cursor value")
	}
	return offset, nil
}

// ParseJSONRPCFrame validates and parses one JSON-RPC message frame.
// Batches are rejected; a frame carries a single message.
func ParseJSONRPCFrame(frame []byte) ([]jsonrpc.Request, []any, bool, error) {
	trimmed := bytes.TrimSpace(frame)
	if len(trimmed) == 0 {
		return nil, nil, false, fmt.Errorf("empty message")
	}

	if trimmed[0] == '[' {
		return nil, []any{jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, []any{jsonrpc.NewErrorResponse(nil, jsonrpc.ErrParseError, "", nil)}, false, nil
	}

	requestID, hasID, validID := parseIDFromEnvelope(envelope)
	if !validID {
		return nil, []any{jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	var msg jsonrpc.Request
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, []any{jsonrpc.NewErrorResponse(requestID, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	if msg.Method == "" {
		_, hasResult := envelope["result"]
		_, hasErr := envelope["error"]
		if hasResult || hasErr {
			if msg.JSONRPC != jsonrpc.Version || !hasID || (hasResult && hasErr) {
				return nil, []any{jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
			}
			return nil, nil, true, nil
		}
		return nil, []any{jsonrpc.NewErrorResponse(requestID, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	if msg.JSONRPC != jsonrpc.Version {
		return nil, []any{jsonrpc.NewErrorResponse(requestID, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	if rawParams, ok := envelope["params"]; ok && !isValidParamsValue(rawParams) {
		return nil, []any{jsonrpc.NewErrorResponse(requestID, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	if msg.Method == "initialize" && msg.ID == nil {
		return nil, []any{jsonrpc.NewErrorResponse(nil, jsonrpc.ErrInvalidRequest, "", nil)}, false, nil
	}

	msg.ID = requestID
	return []jsonrpc.Request{msg}, nil, false, nil
}

func parseIDFromEnvelope(envelope map[string]json.RawMessage) (any, bool, bool) {
	rawID, exists := envelope["id"]
	if !exists {
		return nil, false, true
	}
	trimmed := bytes.TrimSpace(rawID)
	if len(trimmed) == 0 {
		return nil, true, false
	}

	var id any
	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()
	if err := decoder.Decode(&id); err != nil {
		return nil, true, false
	}
	if !isValidJSONRPCID(id) {
		return nil, true, false
	}
	return id, true, true
}

func isValidJSONRPCID(id any) bool {
	switch v := id.(type) {
	case string:
		return true
	case json.Number:
		return isJSONInteger(v.String())
	default:
		return false
	}
}

func isValidParamsValue(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return false
	}
	return trimmed[0] == '{'
}

func isJSONInteger(value string) bool {
	if value == "" || strings.ContainsAny(value, ".eE") {
		return false
	}
	if _, err := strconv.ParseInt(value, 10, 64); err == nil {
		return true
	}
	if strings.HasPrefix(value, "-") {
		return false
	}
	_, err := strconv.ParseUint(value, 10, 64)
	return err == nil
}
