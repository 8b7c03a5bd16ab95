package commands

import (
	"strings"

	"github.com/slighter12/twinscene-go/editor"
	"github.com/slighter12/twinscene-go/scene"
)

type animationArgs struct {
	Names []string `json:"names"`
	Tags  string   `json:"tags"`
}

func animationCommands(env *Env) []Command {
	targets := map[string]any{
		"names": namesProp("Node names"),
		"tags":  prop("string", "Comma separated tags, used when names is empty"),
	}
	command := func(name, description, title string, action editor.AnimationAction) Command {
		return NewFuncCommand(name, description, schema(title, nil, targets),
			bind(env, func(e *editor.Editor, in animationArgs) (any, error) {
				var (
					nodes []*scene.Node
					err   error
				)
				switch {
				case len(in.Names) > 0:
					nodes, err = e.Animate(action, in.Names...)
				case strings.TrimSpace(in.Tags) != "":
					nodes = e.AnimateTags(action, in.Tags)
				default:
					return nil, NewInvalidParamsError("names", "names_or_tags_required")
				}
				if err != nil {
					return nil, err
				}
				out := make([]map[string]any, 0, len(nodes))
				for _, n := range nodes {
					state := scene.Finished
					if n.Metadata != nil {
						state = n.Metadata.AnimationPlayState
					}
					out = append(out, map[string]any{"name": n.Name, "state": state.String()})
				}
				return map[string]any{"nodes": out}, nil
			}))
	}

	return []Command{
		command("begin-animation", "Plays the animation clips of nodes from the start", "Begin Animation", editor.AnimationBegin),
		command("pause-animation", "Pauses the animations of nodes", "Pause Animation", editor.AnimationPause),
		command("restart-animation", "Resumes paused animations", "Restart Animation", editor.AnimationRestart),
		command("stop-animation", "Stops animations, restoring initial values where the clip asks for it", "Stop Animation", editor.AnimationStop),
	}
}
