// Package commands exposes editor operations as named commands taking and
// returning JSON.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/slighter12/twinscene-go/logger"
)

var ErrCommandNotFound = errors.New("command not found")

func IsCommandNotFound(err error) bool {
	return errors.Is(err, ErrCommandNotFound)
}

// Manager implements Registry.
type Manager struct {
	commands map[string]Command
	mutex    sync.RWMutex
}

// NewManager creates an empty command manager
func NewManager() *Manager {
	return &Manager{
		commands: make(map[string]Command),
	}
}

// Register adds a command, replacing one with the same name.
func (m *Manager) Register(cmd Command) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if cmd == nil {
		return errors.New("command cannot be nil")
	}
	name := cmd.Name()
	if name == "" {
		return errors.New("command name cannot be empty")
	}

	m.commands[name] = cmd
	logger.Debug("Command registered", "name", name)
	return nil
}

// Get retrieves a command by name
func (m *Manager) Get(name string) (Command, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	cmd, exists := m.commands[name]
	return cmd, exists
}

// List returns every command sorted by name.
func (m *Manager) List() []Command {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	out := make([]Command, 0, len(m.commands))
	for _, cmd := range m.commands {
		out = append(out, cmd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Infos describes every command.
func (m *Manager) Infos() []Info {
	cmds := m.List()
	out := make([]Info, 0, len(cmds))
	for _, cmd := range cmds {
		out = append(out, Info{Name: cmd.Name(), Description: cmd.Description(), InputSchema: cmd.InputSchema()})
	}
	return out
}

// Execute runs a command by name with raw JSON arguments.
func (m *Manager) Execute(ctx context.Context, name string, args json.RawMessage) ([]byte, error) {
	cmd, exists := m.Get(name)
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrCommandNotFound, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	logger.Debug("Executing command", "name", name, "args", string(args))
	out, err := cmd.Execute(ctx, args)
	if err != nil {
		return nil, classify(name, err)
	}
	return out, nil
}

// Call runs a command and decodes its result.
func (m *Manager) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	if args == nil {
		args = map[string]any{}
	}
	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	resultJSON, err := m.Execute(ctx, name, argsJSON)
	if err != nil {
		return nil, err
	}
	var result any
	if err := json.Unmarshal(resultJSON, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// RegisterAll registers cmds, logging the ones that are rejected.
func (m *Manager) RegisterAll(cmds []Command) {
	for _, cmd := range cmds {
		if err := m.Register(cmd); err != nil {
			logger.Error("Failed to register command", "error", err)
		}
	}
	logger.Info("Commands registered", "count", len(cmds))
}
