package commands

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/editor"
)

// Env is what commands operate on.
type Env struct {
	Editor *editor.Editor
	// Store is optional; document commands report not_available without it.
	Store document.Store
}

// All returns every command bound to env.
func All(env *Env) []Command {
	var all []Command
	all = append(all, sceneCommands(env)...)
	all = append(all, historyCommands(env)...)
	all = append(all, animationCommands(env)...)
	all = append(all, documentCommands(env)...)
	return all
}

// bind decodes the arguments into In, then runs fn and encodes its result
// on the editor loop.
func bind[In any](env *Env, fn func(e *editor.Editor, in In) (any, error)) func(context.Context, json.RawMessage) ([]byte, error) {
	return func(ctx context.Context, args json.RawMessage) ([]byte, error) {
		var in In
		if err := decode(args, &in); err != nil {
			return nil, err
		}
		var data []byte
		err := env.Editor.Do(ctx, func() error {
			out, err := fn(env.Editor, in)
			if err != nil {
				return err
			}
			data, err = json.Marshal(out)
			return err
		})
		if err != nil {
			return nil, err
		}
		return data, nil
	}
}

func decode(args json.RawMessage, into any) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, into); err != nil {
		return NewInvalidParamsError("arguments", "malformed_payload")
	}
	return nil
}

func requireNames(names []string) error {
	if len(names) == 0 {
		return NewInvalidParamsError("names", "missing")
	}
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			return NewInvalidParamsError("names", "empty_name")
		}
	}
	return nil
}

func requireName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewInvalidParamsError("name", "missing")
	}
	return nil
}
