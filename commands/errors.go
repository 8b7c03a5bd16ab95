package commands

import (
	"errors"
	"fmt"

	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/editor"
	"github.com/slighter12/twinscene-go/scene"
)

const (
	SemanticKindNotFound      = "not_found"
	SemanticKindLocked        = "locked"
	SemanticKindInvalidParams = "invalid_params"
	SemanticKindNotAvailable  = "not_available"
	SemanticKindConflict      = "conflict"
)

// SemanticError marks command failures that are surfaced to clients with a
// kind and structured data.
type SemanticError struct {
	Kind    string
	Message string
	Data    map[string]any
}

func (e *SemanticError) Error() string {
	if e == nil {
		return "command semantic error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Kind != "" {
		return fmt.Sprintf("command semantic error: %s", e.Kind)
	}
	return "command semantic error"
}

func NewSemanticError(kind, message string, data map[string]any) *SemanticError {
	return &SemanticError{Kind: kind, Message: message, Data: data}
}

func NewInvalidParamsError(field, problem string) *SemanticError {
	return NewSemanticError(SemanticKindInvalidParams, fmt.Sprintf("invalid %s: %s", field, problem), map[string]any{
		"field":   field,
		"problem": problem,
	})
}

func AsSemanticError(err error) (*SemanticError, bool) {
	if err == nil {
		return nil, false
	}
	var semanticErr *SemanticError
	if errors.As(err, &semanticErr) {
		return semanticErr, true
	}
	return nil, false
}

// classify turns domain errors into semantic errors for command.
func classify(command string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsSemanticError(err); ok {
		return err
	}
	data := map[string]any{"command": command}
	switch {
	case errors.Is(err, scene.ErrNodeNotFound), errors.Is(err, document.ErrNotFound):
		return NewSemanticError(SemanticKindNotFound, err.Error(), data)
	case errors.Is(err, editor.ErrLocked):
		return NewSemanticError(SemanticKindLocked, err.Error(), data)
	case errors.Is(err, editor.ErrNotEnoughNodes),
		errors.Is(err, scene.ErrUncopyable),
		errors.Is(err, document.ErrInvalidName):
		return NewSemanticError(SemanticKindInvalidParams, err.Error(), data)
	case errors.Is(err, scene.ErrDuplicateName):
		return NewSemanticError(SemanticKindConflict, err.Error(), data)
	case errors.Is(err, editor.ErrClosed):
		return NewSemanticError(SemanticKindNotAvailable, err.Error(), data)
	}
	return err
}
