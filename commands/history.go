package commands

import (
	"github.com/slighter12/twinscene-go/editor"
)

func historyCommands(env *Env) []Command {
	step := func(undo bool) func(e *editor.Editor, _ struct{}) (any, error) {
		return func(e *editor.Editor, _ struct{}) (any, error) {
			var (
				applied bool
				err     error
			)
			if undo {
				applied, err = e.Undo()
			} else {
				applied, err = e.Redo()
			}
			if err != nil {
				return nil, err
			}
			h := e.History()
			return map[string]any{
				"applied":  applied,
				"index":    h.Index(),
				"undoable": h.Undoable(),
				"redoable": h.Redoable(),
			}, nil
		}
	}

	return []Command{
		NewFuncCommand("undo", "Reverts the last recorded operation",
			schema("Undo", nil, nil), bind(env, step(true))),

		NewFuncCommand("redo", "Re-applies the next recorded operation",
			schema("Redo", nil, nil), bind(env, step(false))),

		NewFuncCommand("get-history", "Lists the recorded operations and the cursor",
			schema("Get History", nil, nil),
			bind(env, func(e *editor.Editor, _ struct{}) (any, error) {
				h := e.History()
				return map[string]any{
					"limit":   h.Limit(),
					"index":   h.Index(),
					"records": h.Summaries(),
				}, nil
			})),
	}
}
