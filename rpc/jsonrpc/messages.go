// Package jsonrpc holds the JSON-RPC 2.0 envelopes shared by every
// transport.
package jsonrpc

import "encoding/json"

// Version is the only protocol version accepted.
const Version = "2.0"

// Request is a call or, when ID is nil, a notification.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the sender expects no response.
func (r Request) IsNotification() bool {
	return r.ID == nil
}

// Response carries either Result or Error, never both.
type Response struct {
	JSONRPC string `json:"jsonrpc"`
	ID      any    `json:"id"`
	Result  any    `json:"result,omitempty"`
	Error   *Error `json:"error,omitempty"`
}

// Notification is a server-initiated message without an id.
type Notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

func NewResponse(id any, result any) *Response {
	return &Response{JSONRPC: Version, ID: id, Result: result}
}

// NewErrorResponse builds an error reply. An empty message falls back to
// the standard text for code.
func NewErrorResponse(id any, code ErrorCode, message string, data any) *Response {
	if message == "" {
		message = code.Message()
	}
	return &Response{
		JSONRPC: Version,
		ID:      id,
		Error:   &Error{Code: int(code), Message: message, Data: data},
	}
}

func NewNotification(method string, params any) *Notification {
	return &Notification{JSONRPC: Version, Method: method, Params: params}
}
