// Package scene is an in-memory scene graph: named nodes with transforms,
// materials and metadata, arranged in a tree and indexed by name and tag.
package scene

import (
	"slices"
	"strings"

	"github.com/slighter12/twinscene-go/value"
)

// Handle identifies a node for its whole lifetime, across renames and
// removal from the scene.
type Handle uint64

// Material is the standard material of a mesh.
type Material struct {
	EmissiveColor value.Color3 `prop:"emissiveColor" json:"emissiveColor"`
	DiffuseColor  value.Color3 `prop:"diffuseColor" json:"diffuseColor"`
	SpecularColor value.Color3 `prop:"specularColor" json:"specularColor"`
	AmbientColor  value.Color3 `prop:"ambientColor" json:"ambientColor"`
	Alpha         float32      `prop:"alpha" json:"alpha"`
}

// DefaultMaterial returns a white opaque material.
func DefaultMaterial() *Material {
	return &Material{
		DiffuseColor:  value.Color3{R: 1, G: 1, B: 1},
		SpecularColor: value.Color3{R: 1, G: 1, B: 1},
		Alpha:         1,
	}
}

// Node is a mesh or transform node. Exported fields are addressable by
// property paths; the name and the tree position are managed by Graph.
type Node struct {
	Name               string            `prop:"-" json:"name"`
	Tags               []string          `prop:"-" json:"tags,omitempty"`
	Position           value.Vector3     `prop:"position" json:"position"`
	Rotation           value.Vector3     `prop:"rotation" json:"rotation"`
	RotationQuaternion *value.Quaternion `prop:"rotationQuaternion" json:"rotationQuaternion,omitempty"`
	Scaling            value.Vector3     `prop:"scaling" json:"scaling"`
	Material           *Material         `prop:"material" json:"material,omitempty"`
	Visible            bool              `prop:"visible" json:"visible"`
	// Extent is the local half-size of the node's bounding box.
	Extent   value.Vector3 `prop:"-" json:"extent"`
	Metadata *Metadata     `prop:"metadata" json:"metadata,omitempty"`

	handle   Handle
	parent   *Node
	children []*Node
	inScene  bool
}

func (n *Node) Handle() Handle    { return n.handle }
func (n *Node) Parent() *Node     { return n.parent }
func (n *Node) InScene() bool     { return n.inScene }
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Root returns the topmost ancestor of n, or n itself.
func (n *Node) Root() *Node {
	for n.parent != nil {
		n = n.parent
	}
	return n
}

// Descendants returns every node below n in depth-first order.
func (n *Node) Descendants() []*Node {
	var out []*Node
	for _, c := range n.children {
		out = append(out, c)
		out = append(out, c.Descendants()...)
	}
	return out
}

// IsMesh reports whether n renders geometry, as opposed to a plain
// transform node.
func (n *Node) IsMesh() bool {
	return n.Metadata == nil || n.Metadata.Type != TypeTransformNode
}

// NormalizeRotation folds a quaternion rotation into the Euler one.
func (n *Node) NormalizeRotation() {
	if n.RotationQuaternion == nil {
		return
	}
	n.Rotation = n.RotationQuaternion.ToEuler()
	n.RotationQuaternion = nil
}

// AbsolutePosition is the position in world space. Only parent translation
// is composed.
func (n *Node) AbsolutePosition() value.Vector3 {
	p := n.Position
	for a := n.parent; a != nil; a = a.parent {
		p = p.Add(a.Position)
	}
	return p
}

// HasTag reports whether n carries tag.
func (n *Node) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// AddTags attaches tags, ignoring blanks and duplicates. Whitespace inside a
// tag is removed.
func (n *Node) AddTags(tags ...string) {
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		if t == "" || n.HasTag(t) {
			continue
		}
		n.Tags = append(n.Tags, t)
	}
}

// RemoveTags detaches tags.
func (n *Node) RemoveTags(tags ...string) {
	n.Tags = slices.DeleteFunc(n.Tags, func(t string) bool {
		return slices.Contains(tags, t)
	})
}

// Box is an axis-aligned bounding box.
type Box struct {
	Min value.Vector3 `json:"min"`
	Max value.Vector3 `json:"max"`
}

func (b Box) Center() value.Vector3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

func (b Box) Size() value.Vector3 {
	return b.Max.Sub(b.Min)
}

func (b Box) union(o Box) Box {
	return Box{
		Min: value.Vec3(min(b.Min.X, o.Min.X), min(b.Min.Y, o.Min.Y), min(b.Min.Z, o.Min.Z)),
		Max: value.Vec3(max(b.Max.X, o.Max.X), max(b.Max.Y, o.Max.Y), max(b.Max.Z, o.Max.Z)),
	}
}

// worldBox is the box of n alone, ignoring rotation.
func (n *Node) worldBox() Box {
	c := n.AbsolutePosition()
	half := n.Extent.Mul(n.Scaling)
	half = value.Vec3(abs(half.X), abs(half.Y), abs(half.Z))
	return Box{Min: c.Sub(half), Max: c.Add(half)}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
