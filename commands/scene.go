package commands

import (
	"github.com/slighter12/twinscene-go/animation"
	"github.com/slighter12/twinscene-go/editor"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

type namesArgs struct {
	Names []string `json:"names"`
}

type nameArgs struct {
	Name string `json:"name"`
}

// NodeView is the detailed description of a node.
type NodeView struct {
	Name       string            `json:"name"`
	Parent     string            `json:"parent,omitempty"`
	Children   []string          `json:"children,omitempty"`
	Tags       []string          `json:"tags,omitempty"`
	Position   value.Vector3     `json:"position"`
	Rotation   value.Vector3     `json:"rotation"`
	Scaling    value.Vector3     `json:"scaling"`
	Visible    bool              `json:"visible"`
	Material   *scene.Material   `json:"material,omitempty"`
	Metadata   *scene.Metadata   `json:"metadata,omitempty"`
	InitValues map[string]any    `json:"animationInitValues,omitempty"`
	Playing    bool              `json:"playing"`
	PlayState  string            `json:"playState"`
	Quaternion *value.Quaternion `json:"rotationQuaternion,omitempty"`
}

func viewNode(e *editor.Editor, n *scene.Node) NodeView {
	v := NodeView{
		Name:       n.Name,
		Tags:       n.Tags,
		Position:   n.Position,
		Rotation:   n.Rotation,
		Scaling:    n.Scaling,
		Visible:    n.Visible,
		Material:   n.Material,
		Metadata:   n.Metadata,
		Playing:    e.Animations().Playing(n),
		Quaternion: n.RotationQuaternion,
		PlayState:  scene.Finished.String(),
	}
	if p := n.Parent(); p != nil {
		v.Parent = p.Name
	}
	for _, c := range n.Children() {
		if c.InScene() {
			v.Children = append(v.Children, c.Name)
		}
	}
	if n.Metadata != nil {
		v.PlayState = n.Metadata.AnimationPlayState.String()
		if len(n.Metadata.AnimationInitValues) > 0 {
			v.InitValues = animation.EncodeInitValues(n.Metadata.AnimationInitValues)
		}
	}
	return v
}

func sceneCommands(env *Env) []Command {
	return []Command{
		NewFuncCommand("get-scene-tree", "Returns the node hierarchy of the open scene",
			schema("Get Scene Tree", nil, nil),
			bind(env, func(e *editor.Editor, _ struct{}) (any, error) {
				return map[string]any{"roots": e.Graph().Tree()}, nil
			})),

		NewFuncCommand("get-node", "Returns the properties, metadata and animation state of a node",
			schema("Get Node", []string{"name"}, map[string]any{"name": prop("string", "Node name")}),
			bind(env, func(e *editor.Editor, in nameArgs) (any, error) {
				if err := requireName(in.Name); err != nil {
					return nil, err
				}
				nodes, err := e.Nodes(in.Name)
				if err != nil {
					return nil, err
				}
				return viewNode(e, nodes[0]), nil
			})),

		NewFuncCommand("add-node", "Creates a node",
			schema("Add Node", []string{"type"}, map[string]any{
				"type":     prop("string", "Node type: box, sphere, ground, import, decal or transformNode"),
				"name":     prop("string", "Node name, generated when empty"),
				"parent":   prop("string", "Parent node name"),
				"position": prop("object", "Position {x, y, z}"),
				"tags":     namesProp("Tags"),
			}),
			bind(env, func(e *editor.Editor, in editor.AddOptions) (any, error) {
				if in.Type == "" {
					return nil, NewInvalidParamsError("type", "missing")
				}
				n, err := e.AddNode(in)
				if err != nil {
					return nil, err
				}
				return map[string]any{"name": n.Name}, nil
			})),

		NewFuncCommand("delete-nodes", "Deletes nodes and their subtrees",
			schema("Delete Nodes", []string{"names"}, map[string]any{"names": namesProp("Node names")}),
			bind(env, func(e *editor.Editor, in namesArgs) (any, error) {
				if err := requireNames(in.Names); err != nil {
					return nil, err
				}
				if err := e.DeleteNodes(in.Names...); err != nil {
					return nil, err
				}
				return map[string]any{"deleted": in.Names}, nil
			})),

		NewFuncCommand("copy-nodes", "Pastes copies of nodes next to the originals",
			schema("Copy Nodes", []string{"names"}, map[string]any{"names": namesProp("Node names")}),
			bind(env, func(e *editor.Editor, in namesArgs) (any, error) {
				if err := requireNames(in.Names); err != nil {
					return nil, err
				}
				copies, err := e.CopyNodes(in.Names...)
				if err != nil {
					return nil, err
				}
				out := make([]string, len(copies))
				for i, c := range copies {
					out[i] = c.Name
				}
				return map[string]any{"names": out}, nil
			})),

		NewFuncCommand("update-node", "Updates node properties by property path, as one undoable step",
			schema("Update Node", []string{"updates"}, map[string]any{
				"updates": map[string]any{
					"type":        "array",
					"description": "List of {node, props, old} where props maps property paths to values",
				},
			}),
			bind(env, func(e *editor.Editor, in struct {
				Updates []editor.Update `json:"updates"`
			}) (any, error) {
				if len(in.Updates) == 0 {
					return nil, NewInvalidParamsError("updates", "missing")
				}
				for _, u := range in.Updates {
					if err := requireName(u.Node); err != nil {
						return nil, NewInvalidParamsError("updates.node", "missing")
					}
				}
				if err := e.UpdateProps(in.Updates...); err != nil {
					return nil, err
				}
				return map[string]any{"updated": len(in.Updates)}, nil
			})),

		NewFuncCommand("combine-nodes", "Groups nodes under a new combine node",
			schema("Combine Nodes", []string{"names"}, map[string]any{"names": namesProp("At least two node names")}),
			bind(env, func(e *editor.Editor, in namesArgs) (any, error) {
				parent, err := e.Combine(in.Names...)
				if err != nil {
					return nil, err
				}
				return map[string]any{"parent": parent.Name}, nil
			})),

		NewFuncCommand("uncombine-nodes", "Releases the children of combined nodes",
			schema("Uncombine Nodes", []string{"names"}, map[string]any{"names": namesProp("Parent node names")}),
			bind(env, func(e *editor.Editor, in namesArgs) (any, error) {
				if err := requireNames(in.Names); err != nil {
					return nil, err
				}
				groups, err := e.Uncombine(in.Names...)
				if err != nil {
					return nil, err
				}
				out := make([]editor.GroupPayload, 0, len(groups))
				for _, g := range groups {
					gp := editor.GroupPayload{Parent: g.Parent.Name}
					for _, c := range g.Children {
						gp.Children = append(gp.Children, c.Name)
					}
					out = append(out, gp)
				}
				return map[string]any{"groups": out}, nil
			})),

		NewFuncCommand("select-nodes", "Replaces the selection; no names clears it",
			schema("Select Nodes", nil, map[string]any{"names": namesProp("Node names")}),
			bind(env, func(e *editor.Editor, in namesArgs) (any, error) {
				if err := e.Select(in.Names...); err != nil {
					return nil, err
				}
				selected := []string{}
				for _, n := range e.Selected() {
					selected = append(selected, n.Name)
				}
				return map[string]any{"selected": selected}, nil
			})),

		NewFuncCommand("trigger-event", "Fires the events a node binds to a pointer trigger",
			schema("Trigger Event", []string{"name", "trigger"}, map[string]any{
				"name":    prop("string", "Node name"),
				"trigger": prop("string", "mouseDown, mouseUp, mouseIn, mouseOut or dblclick"),
			}),
			bind(env, func(e *editor.Editor, in struct {
				Name    string `json:"name"`
				Trigger string `json:"trigger"`
			}) (any, error) {
				if err := requireName(in.Name); err != nil {
					return nil, err
				}
				trigger, ok := scene.ParseTrigger(in.Trigger)
				if !ok {
					return nil, NewInvalidParamsError("trigger", "unknown_trigger")
				}
				ran, err := e.Trigger(in.Name, trigger)
				if err != nil {
					return nil, err
				}
				return map[string]any{"ran": ran}, nil
			})),
	}
}
