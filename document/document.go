// Package document captures a scene into a persistable document and
// rebuilds scenes from documents. Stores save documents by name.
package document

import (
	"fmt"
	"time"

	"github.com/jinzhu/copier"

	"github.com/slighter12/twinscene-go/animation"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// Version is the layout version written by Capture.
const Version = 1

// DefaultFilename names documents saved without one.
const DefaultFilename = "twinscene"

// Settings are the document-wide options.
type Settings struct {
	// Locked switches the editor to preview mode when non-zero.
	Locked     int    `json:"locked"`
	Background string `json:"background,omitempty"`
	Filename   string `json:"filename,omitempty"`
	InitScript string `json:"initJs,omitempty"`
}

// DefaultSettings returns the settings of a new document.
func DefaultSettings() Settings {
	return Settings{Filename: DefaultFilename}
}

// NodeState is the persisted form of one node. Position, rotation and
// scaling are local to Parent.
type NodeState struct {
	Name               string            `json:"name"`
	Parent             string            `json:"parent,omitempty"`
	Tags               []string          `json:"tags,omitempty"`
	Position           value.Vector3     `json:"position"`
	Rotation           value.Vector3     `json:"rotation"`
	RotationQuaternion *value.Quaternion `json:"rotationQuaternion,omitempty"`
	Scaling            value.Vector3     `json:"scaling"`
	Visible            bool              `json:"visible"`
	Extent             value.Vector3     `json:"extent"`
	Material           *scene.Material   `json:"material,omitempty"`
	Metadata           scene.Metadata    `json:"metadata"`
	// InitValues are the animation init values in wire form.
	InitValues map[string]any `json:"animationInitValues,omitempty"`
}

// Document is a saved scene.
type Document struct {
	Version  int         `json:"version"`
	Settings Settings    `json:"store"`
	Nodes    []NodeState `json:"nodes"`
	SavedAt  time.Time   `json:"savedAt"`
}

// New returns an empty document.
func New() *Document {
	return &Document{Version: Version, Settings: DefaultSettings(), Nodes: []NodeState{}}
}

// Capture records every in-scene node of g, parents before children.
func Capture(g *scene.Graph, settings Settings) (*Document, error) {
	doc := &Document{Version: Version, Settings: settings, Nodes: []NodeState{}, SavedAt: time.Now().UTC()}
	for _, root := range g.Roots() {
		for _, n := range append([]*scene.Node{root}, root.Descendants()...) {
			if !n.InScene() {
				continue
			}
			state, err := capture(n)
			if err != nil {
				return nil, err
			}
			doc.Nodes = append(doc.Nodes, state)
		}
	}
	return doc, nil
}

func capture(n *scene.Node) (NodeState, error) {
	state := NodeState{
		Name:     n.Name,
		Tags:     append([]string(nil), n.Tags...),
		Position: n.Position,
		Rotation: n.Rotation,
		Scaling:  n.Scaling,
		Visible:  n.Visible,
		Extent:   n.Extent,
	}
	if p := n.Parent(); p != nil {
		state.Parent = p.Name
	}
	if n.RotationQuaternion != nil {
		q := *n.RotationQuaternion
		state.RotationQuaternion = &q
	}
	if n.Material != nil {
		m := *n.Material
		state.Material = &m
	}
	if n.Metadata != nil {
		if err := copier.CopyWithOption(&state.Metadata, n.Metadata, copier.Option{DeepCopy: true}); err != nil {
			return NodeState{}, fmt.Errorf("capture %q: %w", n.Name, err)
		}
		if len(n.Metadata.AnimationInitValues) > 0 {
			state.InitValues = animation.EncodeInitValues(n.Metadata.AnimationInitValues)
		}
	}
	return state, nil
}

// Apply replaces the contents of g with the nodes of d and returns them in
// document order. g is left empty when Apply fails.
func (d *Document) Apply(g *scene.Graph) ([]*scene.Node, error) {
	g.Clear()
	nodes := make([]*scene.Node, 0, len(d.Nodes))
	for _, state := range d.Nodes {
		n, err := apply(g, state)
		if err != nil {
			g.Clear()
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, nil
}

func apply(g *scene.Graph, state NodeState) (*scene.Node, error) {
	typ := state.Metadata.Type
	if typ == "" {
		typ = scene.TypeImport
	}
	n, err := g.CreateNode(state.Name, typ)
	if err != nil {
		return nil, err
	}

	md := &scene.Metadata{}
	if err := copier.CopyWithOption(md, &state.Metadata, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("apply %q: %w", state.Name, err)
	}
	n.Metadata = md
	scene.InitMetadata(n, typ)
	inits, err := animation.DecodeInitValues(state.InitValues)
	if err != nil {
		return nil, fmt.Errorf("apply %q: %w", state.Name, err)
	}
	md.AnimationInitValues = inits

	if state.Parent != "" {
		parent, ok := g.Node(state.Parent)
		if !ok {
			return nil, fmt.Errorf("apply %q: parent %q: %w", state.Name, state.Parent, scene.ErrNodeNotFound)
		}
		g.SetParent(n, parent)
	}
	n.AddTags(state.Tags...)
	n.Position = state.Position
	n.Rotation = state.Rotation
	if state.RotationQuaternion != nil {
		q := *state.RotationQuaternion
		n.RotationQuaternion = &q
	}
	n.Scaling = state.Scaling
	n.Visible = state.Visible
	n.Extent = state.Extent
	if state.Material != nil {
		m := *state.Material
		n.Material = &m
	} else {
		n.Material = nil
	}
	return n, nil
}
