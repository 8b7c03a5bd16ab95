package commands

import (
	"context"
	"encoding/json"
)

// InputSchema is the JSON schema of a command's arguments.
type InputSchema struct {
	Type       string         `json:"type"`
	Properties map[string]any `json:"properties"`
	Required   []string       `json:"required"`
	Title      string         `json:"title"`
}

// Info describes a registered command to clients.
type Info struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"inputSchema"`
}

// Command defines the contract for all commands
type Command interface {
	Name() string
	Description() string
	InputSchema() InputSchema
	Execute(ctx context.Context, args json.RawMessage) ([]byte, error)
}

// Registry defines the contract for command registries
type Registry interface {
	Register(cmd Command) error
	Get(name string) (Command, bool)
	List() []Command
	Execute(ctx context.Context, name string, args json.RawMessage) ([]byte, error)
}

// FuncCommand adapts a function to Command.
type FuncCommand struct {
	name        string
	description string
	schema      InputSchema
	executor    func(ctx context.Context, args json.RawMessage) ([]byte, error)
}

// NewFuncCommand returns a command running fn.
func NewFuncCommand(name, description string, schema InputSchema, fn func(ctx context.Context, args json.RawMessage) ([]byte, error)) *FuncCommand {
	return &FuncCommand{name: name, description: description, schema: schema, executor: fn}
}

func (c *FuncCommand) Name() string             { return c.name }
func (c *FuncCommand) Description() string      { return c.description }
func (c *FuncCommand) InputSchema() InputSchema { return c.schema }
func (c *FuncCommand) Execute(ctx context.Context, args json.RawMessage) ([]byte, error) {
	return c.executor(ctx, args)
}

func schema(title string, required []string, props map[string]any) InputSchema {
	if props == nil {
		props = map[string]any{}
	}
	if required == nil {
		required = []string{}
	}
	return InputSchema{Type: "object", Properties: props, Required: required, Title: title}
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func namesProp(description string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": description}
}
