package commands

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/editor"
)

func documentCommands(env *Env) []Command {
	return []Command{
		NewFuncCommand("new-document", "Discards the open scene and starts an empty one",
			schema("New Document", nil, nil),
			bind(env, func(e *editor.Editor, _ struct{}) (any, error) {
				e.NewDocument()
				return map[string]any{"settings": e.Settings()}, nil
			})),

		NewFuncCommand("open-document", "Loads a stored document into the editor",
			schema("Open Document", []string{"name"}, map[string]any{"name": prop("string", "Document name")}),
			func(ctx context.Context, args json.RawMessage) ([]byte, error) {
				var in nameArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}
				if err := requireName(in.Name); err != nil {
					return nil, err
				}
				store, err := env.store()
				if err != nil {
					return nil, err
				}
				doc, err := store.Load(ctx, in.Name)
				if err != nil {
					return nil, err
				}
				return bind(env, func(e *editor.Editor, _ struct{}) (any, error) {
					if err := e.Open(doc); err != nil {
						return nil, err
					}
					return map[string]any{"name": in.Name, "nodes": len(doc.Nodes)}, nil
				})(ctx, nil)
			}),

		NewFuncCommand("save-document", "Saves the open scene; the name defaults to the document filename",
			schema("Save Document", nil, map[string]any{"name": prop("string", "Document name")}),
			func(ctx context.Context, args json.RawMessage) ([]byte, error) {
				var in nameArgs
				if err := decode(args, &in); err != nil {
					return nil, err
				}
				store, err := env.store()
				if err != nil {
					return nil, err
				}
				var doc *document.Document
				err = env.Editor.Do(ctx, func() error {
					var err error
					doc, err = env.Editor.Snapshot()
					return err
				})
				if err != nil {
					return nil, err
				}
				name := strings.TrimSpace(in.Name)
				if name == "" {
					name = doc.Settings.Filename
				}
				if name == "" {
					name = document.DefaultFilename
				}
				if err := store.Save(ctx, name, doc); err != nil {
					return nil, err
				}
				return json.Marshal(map[string]any{"name": name, "nodes": len(doc.Nodes)})
			}),

		NewFuncCommand("list-documents", "Lists stored documents",
			schema("List Documents", nil, nil),
			func(ctx context.Context, _ json.RawMessage) ([]byte, error) {
				store, err := env.store()
				if err != nil {
					return nil, err
				}
				infos, err := store.List(ctx)
				if err != nil {
					return nil, err
				}
				return json.Marshal(map[string]any{"documents": infos})
			}),
	}
}

func (env *Env) store() (document.Store, error) {
	if env.Store == nil {
		return nil, NewSemanticError(SemanticKindNotAvailable, "Document store is not configured", map[string]any{
			"feature": "document_store",
		})
	}
	return env.Store, nil
}
