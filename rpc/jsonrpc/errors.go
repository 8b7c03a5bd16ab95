package jsonrpc

import "fmt"

type ErrorCode int

const (
	ErrParseError     ErrorCode = -32700
	ErrInvalidRequest ErrorCode = -32600
	ErrMethodNotFound ErrorCode = -32601
	ErrInvalidParams  ErrorCode = -32602
	ErrInternalError  ErrorCode = -32603

	// ErrServerError is a command failure the client can act on; Data
	// carries its kind.
	ErrServerError ErrorCode = -32000
)

// Message returns the standard text for c.
func (c ErrorCode) Message() string {
	switch c {
	case ErrParseError:
		return "Parse error"
	case ErrInvalidRequest:
		return "Invalid request"
	case ErrMethodNotFound:
		return "Method not found"
	case ErrInvalidParams:
		return "Invalid params"
	case ErrInternalError:
		return "Internal error"
	case ErrServerError:
		return "Server error"
	}
	return fmt.Sprintf("Error %d", int(c))
}

// Error is the error member of a Response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc %d: %s", e.Code, e.Message)
}

// IsError reports whether resp carries an error with the given code.
func IsError(resp *Response, code ErrorCode) bool {
	return resp != nil && resp.Error != nil && resp.Error.Code == int(code)
}
