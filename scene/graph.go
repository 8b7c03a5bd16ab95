package scene

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jinzhu/copier"

	"github.com/slighter12/twinscene-go/value"
)

var (
	ErrNodeNotFound  = errors.New("node not found")
	ErrDuplicateName = errors.New("node name already in use")
	ErrUncopyable    = errors.New("node is not copyable")
)

// nameSeparator splits a generated name into its readable prefix and its
// unique suffix.
const nameSeparator = "-!-"

// Graph owns every node ever created in a scene. Nodes removed from the scene
// stay in the arena so that history can re-insert them; names stay reserved
// until Prune drops them.
//
// Graph is not safe for concurrent use.
type Graph struct {
	nodes  map[Handle]*Node
	byName map[string]Handle
	next   Handle
}

func NewGraph() *Graph {
	return &Graph{
		nodes:  make(map[Handle]*Node),
		byName: make(map[string]Handle),
	}
}

// NewName returns an unused name made of prefix and a random suffix.
func (g *Graph) NewName(prefix string) string {
	if i := strings.Index(prefix, nameSeparator); i >= 0 {
		prefix = prefix[:i]
	}
	for {
		id := uuid.New().String()[:8]
		name := id
		if prefix != "" {
			name = prefix + nameSeparator + id
		}
		if _, taken := g.byName[name]; !taken {
			return name
		}
	}
}

// CreateNode adds a new node of the given type to the scene. An empty name
// is replaced by a generated one.
func (g *Graph) CreateNode(name string, typ NodeType) (*Node, error) {
	if name == "" {
		name = g.NewName(string(typ))
	}
	if _, taken := g.byName[name]; taken {
		return nil, fmt.Errorf("create %q: %w", name, ErrDuplicateName)
	}
	n := &Node{
		Name:    name,
		Scaling: value.Vec3(1, 1, 1),
		Visible: true,
		Extent:  value.Vec3(0.5, 0.5, 0.5),
	}
	if typ != TypeTransformNode {
		n.Material = DefaultMaterial()
	} else {
		n.Extent = value.Vector3{}
	}
	InitMetadata(n, typ)
	g.register(n)
	n.inScene = true
	return n, nil
}

func (g *Graph) register(n *Node) {
	g.next++
	n.handle = g.next
	g.nodes[n.handle] = n
	g.byName[n.Name] = n.handle
}

// Node returns the in-scene node with the given name.
func (g *Graph) Node(name string) (*Node, bool) {
	n, ok := g.Find(name)
	if !ok || !n.inScene {
		return nil, false
	}
	return n, true
}

// Find returns the node with the given name whether or not it is in the
// scene.
func (g *Graph) Find(name string) (*Node, bool) {
	h, ok := g.byName[name]
	if !ok {
		return nil, false
	}
	return g.nodes[h], true
}

// Lookup returns the node with the given handle.
func (g *Graph) Lookup(h Handle) (*Node, bool) {
	n, ok := g.nodes[h]
	return n, ok
}

// NodesByName resolves in-scene nodes, skipping unknown names.
func (g *Graph) NodesByName(names ...string) []*Node {
	out := make([]*Node, 0, len(names))
	for _, name := range names {
		if n, ok := g.Node(name); ok {
			out = append(out, n)
		}
	}
	return out
}

// Rename re-keys n in the name index.
func (g *Graph) Rename(n *Node, name string) error {
	if n.Name == name {
		return nil
	}
	if name == "" {
		return fmt.Errorf("rename %q: empty name", n.Name)
	}
	if _, taken := g.byName[name]; taken {
		return fmt.Errorf("rename %q to %q: %w", n.Name, name, ErrDuplicateName)
	}
	delete(g.byName, n.Name)
	n.Name = name
	g.byName[name] = n.handle
	return nil
}

// Nodes returns every in-scene node in creation order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, 0, len(g.nodes))
	for _, h := range slices.Sorted(maps.Keys(g.nodes)) {
		if n := g.nodes[h]; n.inScene {
			out = append(out, n)
		}
	}
	return out
}

// Roots returns the in-scene nodes without a parent.
func (g *Graph) Roots() []*Node {
	return slices.DeleteFunc(g.Nodes(), func(n *Node) bool { return n.parent != nil })
}

// NodesByTags resolves a comma separated tag list. Whitespace is ignored and
// a node matching several tags appears once per tag.
func (g *Graph) NodesByTags(tags string) []*Node {
	tags = strings.Join(strings.Fields(tags), "")
	if tags == "" {
		return nil
	}
	all := g.Nodes()
	var out []*Node
	for _, tag := range strings.Split(tags, ",") {
		if tag == "" {
			continue
		}
		for _, n := range all {
			if n.HasTag(tag) {
				out = append(out, n)
			}
		}
	}
	return out
}

// AddNodes puts nodes and their subtrees back into the scene.
func (g *Graph) AddNodes(nodes ...*Node) {
	for _, n := range nodes {
		g.adopt(n)
		n.inScene = true
		g.AddNodes(n.children...)
	}
}

// adopt registers a node built outside the graph.
func (g *Graph) adopt(n *Node) {
	if _, ok := g.nodes[n.handle]; ok && n.handle != 0 {
		return
	}
	if _, taken := g.byName[n.Name]; taken || n.Name == "" {
		n.Name = g.NewName(n.Name)
	}
	g.register(n)
}

// RemoveNodes takes nodes and their subtrees out of the scene without
// detaching them, so AddNodes can restore them as they were.
func (g *Graph) RemoveNodes(nodes ...*Node) {
	for _, n := range nodes {
		g.RemoveNodes(n.children...)
		n.inScene = false
	}
}

// SetParent moves child under parent, or to the root when parent is nil,
// keeping its world position.
func (g *Graph) SetParent(child, parent *Node) {
	if child == parent {
		return
	}
	for a := parent; a != nil; a = a.parent {
		if a == child {
			return
		}
	}
	world := child.AbsolutePosition()
	if old := child.parent; old != nil {
		old.children = slices.DeleteFunc(old.children, func(c *Node) bool { return c == child })
	}
	child.parent = parent
	if parent != nil {
		parent.children = append(parent.children, child)
		world = world.Sub(parent.AbsolutePosition())
	}
	child.Position = world
}

// MergeNodes parents children under parent, creating a combine node when
// parent is nil. The parent is moved to the centre of the children first.
func (g *Graph) MergeNodes(children []*Node, parent *Node) *Node {
	if parent == nil {
		parent, _ = g.CreateNode("", TypeCombine)
		parent.Extent = value.Vector3{}
		parent.Metadata.InitSize = value.Vector3{}
	} else {
		g.AddNodes(parent)
	}
	parent.Position = centre(children)
	for _, c := range children {
		g.SetParent(c, parent)
	}
	if parent.Metadata != nil && parent.Metadata.InitSize.IsZero() {
		parent.Metadata.InitSize = g.BoundingBox(parent).Size()
	}
	return parent
}

func centre(nodes []*Node) value.Vector3 {
	if len(nodes) == 0 {
		return value.Vector3{}
	}
	var sum value.Vector3
	for _, n := range nodes {
		sum = sum.Add(n.AbsolutePosition())
	}
	return sum.Scale(1 / float32(len(nodes)))
}

// UnmergeNodes moves the direct children of parent to the root and takes
// parent out of the scene. It returns the released children.
func (g *Graph) UnmergeNodes(parent *Node) []*Node {
	children := parent.Children()
	if len(children) == 0 {
		return nil
	}
	for _, c := range children {
		g.SetParent(c, nil)
	}
	parent.inScene = false
	return children
}

// CopyNode deep-copies n and its subtree into the scene under fresh names.
// The copy is placed at the root and its animation state is reset.
func (g *Graph) CopyNode(n *Node) (*Node, error) {
	if n.Metadata != nil && n.Metadata.Uncopyable {
		return nil, fmt.Errorf("copy %q: %w", n.Name, ErrUncopyable)
	}
	clone, err := g.copyTree(n)
	if err != nil {
		return nil, err
	}
	clone.Position = n.AbsolutePosition()
	return clone, nil
}

func (g *Graph) copyTree(n *Node) (*Node, error) {
	clone := &Node{}
	if err := copier.CopyWithOption(clone, n, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("copy %q: %w", n.Name, err)
	}
	clone.Name = g.NewName(n.Name)
	if m := clone.Metadata; m != nil {
		m.AnimationPlayState = Finished
		m.AnimationPauseFrame = []float64{}
		m.AnimationInitValues = make(map[string]value.Value, len(n.Metadata.AnimationInitValues))
		for k, v := range n.Metadata.AnimationInitValues {
			m.AnimationInitValues[k] = value.Clone(v)
		}
	}
	g.register(clone)
	clone.inScene = true
	for _, c := range n.children {
		cc, err := g.copyTree(c)
		if err != nil {
			return nil, err
		}
		cc.parent = clone
		clone.children = append(clone.children, cc)
	}
	return clone, nil
}

// BoundingBox returns the world box enclosing nodes and their descendants.
func (g *Graph) BoundingBox(nodes ...*Node) Box {
	var (
		box   Box
		first = true
	)
	for _, n := range nodes {
		for _, m := range append([]*Node{n}, n.Descendants()...) {
			if m.Extent.IsZero() {
				continue
			}
			b := m.worldBox()
			if first {
				box, first = b, false
				continue
			}
			box = box.union(b)
		}
	}
	if first && len(nodes) > 0 {
		p := centre(nodes)
		return Box{Min: p, Max: p}
	}
	return box
}

// Prune forgets every node that is no longer in the scene.
func (g *Graph) Prune() {
	for h, n := range g.nodes {
		if n.inScene {
			continue
		}
		delete(g.nodes, h)
		if g.byName[n.Name] == h {
			delete(g.byName, n.Name)
		}
	}
}

// Clear drops every node.
func (g *Graph) Clear() {
	clear(g.nodes)
	clear(g.byName)
}

// TreeNode is a serialisable view of a subtree.
type TreeNode struct {
	Name     string     `json:"name"`
	Type     NodeType   `json:"type"`
	Tags     []string   `json:"tags,omitempty"`
	Children []TreeNode `json:"children,omitempty"`
}

// Tree describes the in-scene hierarchy below roots, or below every root
// when none are given.
func (g *Graph) Tree(roots ...*Node) []TreeNode {
	if len(roots) == 0 {
		roots = g.Roots()
	}
	return tree(roots)
}

func tree(nodes []*Node) []TreeNode {
	out := make([]TreeNode, 0, len(nodes))
	for _, n := range nodes {
		if !n.inScene {
			continue
		}
		t := TreeNode{Name: n.Name, Tags: n.Tags}
		if n.Metadata != nil {
			t.Type = n.Metadata.Type
		}
		if len(n.children) > 0 {
			t.Children = tree(n.children)
		}
		out = append(out, t)
	}
	return out
}
