// Package history is the undo/redo transaction log of the editor.
//
// A Record captures one user operation: property diffs with typed before and
// after values, nodes added to or deleted from the scene, or nodes combined
// under or released from a parent. The Manager keeps a bounded list of
// records and a cursor, and replays records forwards or backwards against
// the scene.
package history

import (
	"fmt"
	"time"

	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// OpType is the kind of operation a record undoes.
type OpType int

const (
	OpUpdate OpType = iota
	OpAdd
	OpDelete
	OpCombine
	OpUncombine
)

var opNames = [...]string{"update", "add", "delete", "combine", "uncombine"}

func (o OpType) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("OpType(%d)", int(o))
	}
	return opNames[o]
}

func (o OpType) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *OpType) UnmarshalText(text []byte) error {
	for i, name := range opNames {
		if name == string(text) {
			*o = OpType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown operation %q", text)
}

// TargetType tells how a record target is inserted into or removed from the
// scene. Only meshes and transform nodes support structural operations.
type TargetType int

const (
	TargetMesh TargetType = iota
	TargetTransformNode
	TargetScene
	TargetCamera
	TargetLight
)

// TargetTypeOf classifies a record target.
func TargetTypeOf(target any) TargetType {
	if n, ok := target.(*scene.Node); ok {
		if n.IsMesh() {
			return TargetMesh
		}
		return TargetTransformNode
	}
	return TargetScene
}

// Diff is the change of a single property.
type Diff struct {
	Old value.Value
	New value.Value
}

// Info is one target of a record. Props is only used by update records.
type Info struct {
	Target     any
	TargetType TargetType
	Props      map[string]Diff
}

// Group is one parent and the children combined under it.
type Group struct {
	Parent   *scene.Node
	Children []*scene.Node
}

// Record is one undoable operation.
type Record struct {
	ID      string
	Time    time.Time
	Type    OpType
	Infos   []Info
	Combine []Group
}

// Update builds an update record for a single target. Old and new values are
// tagged with value.Of.
func Update(target any, props map[string][2]any) Record {
	diffs := make(map[string]Diff, len(props))
	for path, pair := range props {
		diffs[path] = Diff{Old: value.Of(pair[0]), New: value.Of(pair[1])}
	}
	return Record{
		Type:  OpUpdate,
		Infos: []Info{{Target: target, TargetType: TargetTypeOf(target), Props: diffs}},
	}
}

// Nodes builds an add or delete record over nodes.
func Nodes(op OpType, nodes ...*scene.Node) Record {
	infos := make([]Info, 0, len(nodes))
	for _, n := range nodes {
		infos = append(infos, Info{Target: n, TargetType: TargetTypeOf(n)})
	}
	return Record{Type: op, Infos: infos}
}

// Targets returns the names of the nodes a record touches.
func (r Record) Targets() []string {
	var names []string
	for _, info := range r.Infos {
		if n, ok := info.Target.(*scene.Node); ok {
			names = append(names, n.Name)
		}
	}
	for _, g := range r.Combine {
		if g.Parent != nil {
			names = append(names, g.Parent.Name)
		}
	}
	return names
}

// normalize clones every value, drops no-op diffs and empty update infos,
// and reports whether anything is left to record.
func normalize(r Record) (Record, bool) {
	out := Record{ID: r.ID, Time: r.Time, Type: r.Type}
	switch r.Type {
	case OpUpdate:
		for _, info := range r.Infos {
			var props map[string]Diff
			for path, d := range info.Props {
				d = Diff{Old: value.Clone(d.Old), New: value.Clone(d.New)}
				if value.Equal(d.Old, d.New) {
					continue
				}
				if props == nil {
					props = make(map[string]Diff, len(info.Props))
				}
				props[path] = d
			}
			if props != nil {
				out.Infos = append(out.Infos, Info{Target: info.Target, TargetType: info.TargetType, Props: props})
			}
		}
	case OpAdd, OpDelete:
		out.Infos = r.Infos
	case OpCombine, OpUncombine:
		out.Infos = r.Infos
		out.Combine = r.Combine
	}
	return out, len(out.Infos) > 0 || len(out.Combine) > 0
}
