package editor

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/history"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// pasteStep is the offset added on each paste of the same copy.
const pasteStep = 3

// NodesPayload is the payload of events naming a set of nodes.
type NodesPayload struct {
	Names []string `json:"names"`
}

// SelectPayload is the payload of events.SelectMesh.
type SelectPayload struct {
	Names      []string `json:"names"`
	Selected   []string `json:"selected"`
	Deselected []string `json:"deselected"`
}

// GroupPayload is one combined parent and its children.
type GroupPayload struct {
	Parent   string   `json:"parent"`
	Children []string `json:"children"`
}

// TransformPayload is the payload of events.Transform.
type TransformPayload struct {
	Kind  string        `json:"kind"`
	Names []string      `json:"names"`
	Diff  value.Vector3 `json:"diff"`
}

// Update is a property change of one node. Old overrides the values read
// from the node before the change.
type Update struct {
	Node  string         `json:"node"`
	Props map[string]any `json:"props"`
	Old   map[string]any `json:"old,omitempty"`
}

// AddOptions describe a node to create.
type AddOptions struct {
	Type     scene.NodeType `json:"type"`
	Name     string         `json:"name,omitempty"`
	Parent   string         `json:"parent,omitempty"`
	Position *value.Vector3 `json:"position,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
}

func names(nodes []*scene.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Name
	}
	return out
}

// Nodes resolves in-scene node names.
func (e *Editor) Nodes(names ...string) ([]*scene.Node, error) {
	out := make([]*scene.Node, 0, len(names))
	for _, name := range names {
		n, ok := e.graph.Node(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, name)
		}
		out = append(out, n)
	}
	return out, nil
}

func (e *Editor) editable() error {
	if e.Locked() {
		return ErrLocked
	}
	return nil
}

// UpdateProps writes property changes and records them as one undoable
// operation. Old values are read before anything is written. Raw values are
// converted to the kind of the property they replace, so JSON objects and
// colour strings are accepted.
func (e *Editor) UpdateProps(updates ...Update) error {
	if err := e.editable(); err != nil {
		return err
	}
	type change struct {
		node  *scene.Node
		props map[string][2]any
	}
	changes := make([]change, 0, len(updates))
	for _, u := range updates {
		n, ok := e.graph.Node(u.Node)
		if !ok {
			return fmt.Errorf("%w: %s", scene.ErrNodeNotFound, u.Node)
		}
		props := make(map[string][2]any, len(u.Props))
		for path, raw := range u.Props {
			old, found := propertypath.Get(n, path)
			if !found {
				logger.Debug("update skips unknown property", "node", n.Name, "property", path)
				continue
			}
			if o, ok := u.Old[path]; ok {
				old = decodeProp(old, o)
			}
			props[path] = [2]any{snapshot(old), decodeProp(old, raw)}
		}
		changes = append(changes, change{node: n, props: props})
	}

	record := history.Record{Type: history.OpUpdate}
	var touched []*scene.Node
	for _, c := range changes {
		applied := make(map[string][2]any, len(c.props))
		for path, pair := range c.props {
			if propertypath.Set(c.node, path, pair[1]) {
				applied[path] = pair
			}
		}
		if len(applied) == 0 {
			continue
		}
		record.Infos = append(record.Infos, history.Update(c.node, applied).Infos...)
		touched = append(touched, c.node)
	}
	e.history.Add(record)
	if len(touched) > 0 {
		e.emitter.Emit(events.UpdateMesh, NodesPayload{Names: names(touched)})
	}
	return nil
}

// snapshot copies the value read from a node so later writes cannot reach
// it through a pointer.
func snapshot(v any) any {
	return value.Native(value.Clone(value.Of(v)))
}

// decodeProp converts raw to the kind of current.
func decodeProp(current, raw any) any {
	kind := value.Classify(current)
	if !kind.Structured() {
		if kind == value.KindNumber {
			if f, ok := value.ToNumber(raw); ok {
				return narrow(current, f)
			}
		}
		return raw
	}
	if s, ok := raw.(string); ok {
		switch kind {
		case value.KindColor3:
			if c, err := value.ParseColor3(s); err == nil {
				return c
			}
		case value.KindColor4:
			if c, err := value.ParseColor4(s); err == nil {
				return c
			}
		}
	}
	if v, ok := raw.(value.Value); ok {
		return value.Native(v)
	}
	v, err := value.FromWire(raw, kind)
	if err != nil {
		return raw
	}
	return value.Native(v)
}

// narrow rounds f to what a field of current's type can hold, so a write
// that stores the same value compares equal to it.
func narrow(current any, f float64) float64 {
	rv := reflect.ValueOf(current)
	switch rv.Kind() {
	case reflect.Float32:
		return float64(float32(f))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(reflect.ValueOf(f).Convert(rv.Type()).Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if f < 0 {
			return f
		}
		return float64(reflect.ValueOf(f).Convert(rv.Type()).Uint())
	}
	return f
}

// Move translates nodes by diff, skipping unmovable ones.
func (e *Editor) Move(diff value.Vector3, nodeNames ...string) error {
	return e.transform("move", diff, nodeNames, func(n *scene.Node) (string, any, bool) {
		if n.Metadata != nil && n.Metadata.Unmovable {
			return "", nil, false
		}
		return "position", n.Position.Add(diff), true
	})
}

// Scale adds diff to the scaling of nodes, skipping unscalable ones.
func (e *Editor) Scale(diff value.Vector3, nodeNames ...string) error {
	return e.transform("scale", diff, nodeNames, func(n *scene.Node) (string, any, bool) {
		if n.Metadata != nil && n.Metadata.Unscalable {
			return "", nil, false
		}
		return "scaling", n.Scaling.Add(diff), true
	})
}

// Rotate adds diff, in radians, to the rotation of nodes, skipping
// unrotatable ones.
func (e *Editor) Rotate(diff value.Vector3, nodeNames ...string) error {
	return e.transform("rotate", diff, nodeNames, func(n *scene.Node) (string, any, bool) {
		if n.Metadata != nil && n.Metadata.Unrotatable {
			return "", nil, false
		}
		n.NormalizeRotation()
		return "rotation", n.Rotation.Add(diff), true
	})
}

func (e *Editor) transform(kind string, diff value.Vector3, nodeNames []string, next func(*scene.Node) (string, any, bool)) error {
	if err := e.editable(); err != nil {
		return err
	}
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return err
	}
	var updates []Update
	var moved []*scene.Node
	for _, n := range nodes {
		path, v, ok := next(n)
		if !ok {
			continue
		}
		updates = append(updates, Update{Node: n.Name, Props: map[string]any{path: v}})
		moved = append(moved, n)
	}
	if len(updates) == 0 {
		return nil
	}
	if err := e.UpdateProps(updates...); err != nil {
		return err
	}
	e.emitter.Emit(events.Transform, TransformPayload{Kind: kind, Names: names(moved), Diff: diff})
	return nil
}

// AddNode creates a node and records it.
func (e *Editor) AddNode(opts AddOptions) (*scene.Node, error) {
	if err := e.editable(); err != nil {
		return nil, err
	}
	typ := opts.Type
	if typ == "" {
		typ = scene.TypeBox
	}
	var parent *scene.Node
	if opts.Parent != "" {
		p, ok := e.graph.Node(opts.Parent)
		if !ok {
			return nil, fmt.Errorf("%w: %s", scene.ErrNodeNotFound, opts.Parent)
		}
		parent = p
	}
	n, err := e.graph.CreateNode(opts.Name, typ)
	if err != nil {
		return nil, err
	}
	if parent != nil {
		e.graph.SetParent(n, parent)
	}
	if opts.Position != nil {
		n.Position = *opts.Position
	}
	n.AddTags(opts.Tags...)
	e.history.Add(history.Nodes(history.OpAdd, n))
	e.emitter.Emit(events.AddMesh, NodesPayload{Names: []string{n.Name}})
	return n, nil
}

// DeleteNodes deselects, stops and removes nodes as one undoable operation.
func (e *Editor) DeleteNodes(nodeNames ...string) error {
	if err := e.editable(); err != nil {
		return err
	}
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}
	e.deselect(nodes)
	for _, n := range nodes {
		e.animations.Stop(n)
	}
	e.graph.RemoveNodes(nodes...)
	e.history.Add(history.Nodes(history.OpDelete, nodes...))
	e.emitter.Emit(events.DeleteMesh, NodesPayload{Names: names(nodes)})
	return nil
}

// CopyNodes pastes copies of nodes next to them and records the copies.
// Pasting the same nodes again moves each batch further away. Uncopyable
// nodes are skipped.
func (e *Editor) CopyNodes(nodeNames ...string) ([]*scene.Node, error) {
	if err := e.editable(); err != nil {
		return nil, err
	}
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return nil, err
	}
	nodes = slices.DeleteFunc(nodes, func(n *scene.Node) bool {
		return n.Metadata != nil && n.Metadata.Uncopyable
	})
	if len(nodes) == 0 {
		return nil, scene.ErrUncopyable
	}

	if !slices.Equal(e.copied, names(nodes)) || e.pasteFrom == nil || *e.pasteFrom != nodes[0].Position {
		from := nodes[0].Position
		e.copied = names(nodes)
		e.pasteFrom = &from
		e.pasteOffset = 0
	}
	e.pasteOffset += pasteStep

	copies := make([]*scene.Node, 0, len(nodes))
	for _, n := range nodes {
		c, err := e.graph.CopyNode(n)
		if err != nil {
			e.graph.RemoveNodes(copies...)
			return nil, err
		}
		c.Position = c.Position.Add(value.Vec3(e.pasteOffset, 0, e.pasteOffset))
		copies = append(copies, c)
	}
	e.history.Add(history.Nodes(history.OpAdd, copies...))
	e.emitter.Emit(events.CopyMesh, NodesPayload{Names: names(copies)})
	return copies, nil
}

// Combine groups nodes under a new combine node placed at their centre.
func (e *Editor) Combine(nodeNames ...string) (*scene.Node, error) {
	if err := e.editable(); err != nil {
		return nil, err
	}
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return nil, err
	}
	if len(nodes) < 2 {
		return nil, ErrNotEnoughNodes
	}
	parent := e.graph.MergeNodes(nodes, nil)
	e.history.Add(history.Record{
		Type:    history.OpCombine,
		Combine: []history.Group{{Parent: parent, Children: slices.Clone(nodes)}},
	})
	e.emitter.Emit(events.Combine, []GroupPayload{{Parent: parent.Name, Children: names(nodes)}})
	return parent, nil
}

// Uncombine releases the children of each parent. Parents without children
// are ignored.
func (e *Editor) Uncombine(nodeNames ...string) ([]history.Group, error) {
	if err := e.editable(); err != nil {
		return nil, err
	}
	parents, err := e.Nodes(nodeNames...)
	if err != nil {
		return nil, err
	}
	var groups []history.Group
	var payload []GroupPayload
	for _, p := range parents {
		children := e.graph.UnmergeNodes(p)
		if len(children) == 0 {
			continue
		}
		groups = append(groups, history.Group{Parent: p, Children: children})
		payload = append(payload, GroupPayload{Parent: p.Name, Children: names(children)})
	}
	if len(groups) > 0 {
		e.history.Add(history.Record{Type: history.OpUncombine, Combine: groups})
	}
	e.emitter.Emit(events.Uncombine, payload)
	return groups, nil
}

// Undo reverts the current record. The selection is cleared first.
func (e *Editor) Undo() (bool, error) {
	if err := e.editable(); err != nil {
		return false, err
	}
	e.Select()
	ok := e.history.Undo()
	if ok {
		e.emitter.Emit(events.Undo, nil)
	}
	return ok, nil
}

// Redo re-applies the next record. The selection is cleared first.
func (e *Editor) Redo() (bool, error) {
	if err := e.editable(); err != nil {
		return false, err
	}
	e.Select()
	ok := e.history.Redo()
	if ok {
		e.emitter.Emit(events.Redo, nil)
	}
	return ok, nil
}

// Select replaces the selection. Unselectable nodes are ignored; no names
// clears it.
func (e *Editor) Select(nodeNames ...string) error {
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return err
	}
	nodes = slices.DeleteFunc(nodes, func(n *scene.Node) bool {
		return n.Metadata != nil && n.Metadata.Unselectable
	})
	e.setSelection(nodes)
	return nil
}

func (e *Editor) deselect(nodes []*scene.Node) {
	keep := slices.DeleteFunc(slices.Clone(e.selected), func(n *scene.Node) bool {
		return slices.Contains(nodes, n)
	})
	e.setSelection(keep)
}

func (e *Editor) setSelection(nodes []*scene.Node) {
	old := e.selected
	if len(old) == 0 && len(nodes) == 0 {
		return
	}
	var selected, deselected []*scene.Node
	for _, n := range nodes {
		if !slices.Contains(old, n) {
			selected = append(selected, n)
		}
	}
	for _, n := range old {
		if !slices.Contains(nodes, n) {
			deselected = append(deselected, n)
		}
	}
	e.selected = nodes
	e.emitter.Emit(events.SelectMesh, SelectPayload{
		Names:      names(nodes),
		Selected:   names(selected),
		Deselected: names(deselected),
	})
}

// Selected returns the selected nodes.
func (e *Editor) Selected() []*scene.Node {
	return slices.Clone(e.selected)
}
