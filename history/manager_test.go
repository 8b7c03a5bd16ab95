package history

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

func newScene(t *testing.T) (*scene.Graph, *scene.Node) {
	t.Helper()
	g := scene.NewGraph()
	n, err := g.CreateNode("N", scene.TypeBox)
	require.NoError(t, err)
	return g, n
}

// move applies a position.x update and records it the way the editor does.
func move(t *testing.T, m *Manager, n *scene.Node, x float32) bool {
	t.Helper()
	old, ok := propertypath.Get(n, "position.x")
	require.True(t, ok)
	require.True(t, propertypath.Set(n, "position.x", x))
	return m.Add(Update(n, map[string][2]any{"position.x": {old, x}}))
}

func TestNoOpDiffIsPruned(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)

	ok := m.Add(Record{
		Type: OpUpdate,
		Infos: []Info{{
			Target: n,
			Props:  map[string]Diff{"position.x": {Old: value.Number(0), New: value.Number(0)}},
		}},
	})
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Index())

	assert.False(t, m.Add(Record{Type: OpAdd}))
	assert.False(t, m.Add(Record{Type: OpCombine}))
}

func TestRetainedDiffsAreNeverEqual(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)

	ok := m.Add(Record{
		Type: OpUpdate,
		Infos: []Info{{
			Target: n,
			Props: map[string]Diff{
				"position.x": {Old: value.Number(0), New: value.Number(1)},
				"position.y": {Old: value.Number(2), New: value.Number(2)},
				"visible":    {Old: value.Boolean(true), New: value.Boolean(false)},
			},
		}},
	})
	require.True(t, ok)

	rec, ok := m.Current()
	require.True(t, ok)
	require.Len(t, rec.Infos, 1)
	assert.Len(t, rec.Infos[0].Props, 2)
	for path, d := range rec.Infos[0].Props {
		assert.False(t, value.Equal(d.Old, d.New), path)
	}
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.Time.IsZero())
}

func TestUndoRedoRoundTrip(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)

	require.True(t, m.Add(Update(n, map[string][2]any{
		"position": {value.Vector3{}, value.Vec3(1, 2, 3)},
		"material.emissiveColor": {value.Color3{}, value.Color3{R: 1}},
	})))
	n.Position = value.Vec3(1, 2, 3)
	n.Material.EmissiveColor = value.Color3{R: 1}

	require.True(t, m.Undo())
	assert.Equal(t, value.Vector3{}, n.Position)
	assert.Equal(t, value.Color3{}, n.Material.EmissiveColor)
	assert.False(t, m.Undoable())
	assert.True(t, m.Redoable())

	require.True(t, m.Redo())
	assert.Equal(t, value.Vec3(1, 2, 3), n.Position)
	assert.Equal(t, value.Color3{R: 1}, n.Material.EmissiveColor)

	n.Position.X = 99
	require.True(t, m.Undo())
	require.True(t, m.Redo())
	assert.Equal(t, value.Vec3(1, 2, 3), n.Position)

	assert.False(t, m.Redo())
}

func TestUndoOnEmptyLog(t *testing.T) {
	g, _ := newScene(t)
	m := NewManager(g, 0)
	assert.False(t, m.Undo())
	assert.False(t, m.Redo())
	assert.False(t, m.Undoable())
	assert.False(t, m.Redoable())
}

func TestBranchDiscardsRedoTail(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)

	require.True(t, move(t, m, n, 1))
	require.True(t, move(t, m, n, 2))
	require.True(t, move(t, m, n, 3))
	require.True(t, m.Undo())
	require.True(t, m.Undo())
	assert.Equal(t, float32(1), n.Position.X)

	require.True(t, move(t, m, n, 10))
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 1, m.Index())
	assert.False(t, m.Redoable())

	require.True(t, m.Undo())
	assert.Equal(t, float32(1), n.Position.X)
	require.True(t, m.Redo())
	assert.Equal(t, float32(10), n.Position.X)
}

func TestCapacityEvictsOldest(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 3)

	for i := 1; i <= 5; i++ {
		require.True(t, move(t, m, n, float32(i)))
		assert.LessOrEqual(t, m.Len(), 3)
	}
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 2, m.Index())

	undos := 0
	for m.Undo() {
		undos++
	}
	assert.Equal(t, 3, undos)
	assert.Equal(t, float32(2), n.Position.X)
	assert.Equal(t, -1, m.Index())

	redos := 0
	for m.Redo() {
		redos++
	}
	assert.Equal(t, 3, redos)
	assert.Equal(t, float32(5), n.Position.X)
}

func TestSetLimitShiftsCursor(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)
	for i := 1; i <= 4; i++ {
		require.True(t, move(t, m, n, float32(i)))
	}
	require.True(t, m.Undo())
	assert.Equal(t, 2, m.Index())

	m.SetLimit(2)
	assert.Equal(t, 2, m.Len())
	assert.Equal(t, 0, m.Index())
	assert.True(t, m.Undoable())
	assert.True(t, m.Redoable())
}

func TestAddDeleteReplay(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)

	g.RemoveNodes(n)
	require.True(t, m.Add(Nodes(OpDelete, n)))

	require.True(t, m.Undo())
	assert.True(t, n.InScene())
	require.True(t, m.Redo())
	assert.False(t, n.InScene())

	added, err := g.CreateNode("added", scene.TypeSphere)
	require.NoError(t, err)
	require.True(t, m.Add(Nodes(OpAdd, added)))
	require.True(t, m.Undo())
	assert.False(t, added.InScene())
	require.True(t, m.Redo())
	assert.True(t, added.InScene())
}

func TestCombineReplay(t *testing.T) {
	g := scene.NewGraph()
	a, _ := g.CreateNode("a", scene.TypeBox)
	b, _ := g.CreateNode("b", scene.TypeBox)
	b.Position = value.Vec3(2, 0, 0)

	parent := g.MergeNodes([]*scene.Node{a, b}, nil)
	m := NewManager(g, 0)
	require.True(t, m.Add(Record{Type: OpCombine, Combine: []Group{{Parent: parent, Children: []*scene.Node{a, b}}}}))

	require.True(t, m.Undo())
	assert.False(t, parent.InScene())
	assert.Nil(t, a.Parent())
	assert.Equal(t, value.Vec3(2, 0, 0), b.Position)

	require.True(t, m.Redo())
	assert.True(t, parent.InScene())
	assert.Same(t, parent, b.Parent())

	released := g.UnmergeNodes(parent)
	require.True(t, m.Add(Record{Type: OpUncombine, Combine: []Group{{Parent: parent, Children: released}}}))
	require.True(t, m.Undo())
	assert.Same(t, parent, a.Parent())
	require.True(t, m.Redo())
	assert.Nil(t, a.Parent())
}

func TestClear(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)
	require.True(t, move(t, m, n, 1))
	m.Clear()
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, -1, m.Index())
	assert.False(t, m.Undoable())
}

func TestMarshalRoundTrip(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 5)
	require.True(t, move(t, m, n, 4))
	require.True(t, m.Add(Update(n, map[string][2]any{
		"material.emissiveColor": {value.Color3{}, value.Color3{G: 1}},
	})))
	n.Material.EmissiveColor = value.Color3{G: 1}
	require.True(t, m.Undo())

	data, err := m.Marshal()
	require.NoError(t, err)

	restored := NewManager(g, 0)
	require.NoError(t, restored.Unmarshal(data, g))
	assert.Equal(t, 5, restored.Limit())
	assert.Equal(t, 2, restored.Len())
	assert.Equal(t, 0, restored.Index())

	require.True(t, restored.Redo())
	assert.Equal(t, value.Color3{G: 1}, n.Material.EmissiveColor)
	require.True(t, restored.Undo())
	require.True(t, restored.Undo())
	assert.Equal(t, float32(0), n.Position.X)

	summaries := restored.Summaries()
	require.Len(t, summaries, 2)
	assert.Equal(t, []string{"N"}, summaries[0].Targets)
	assert.Equal(t, m.All()[0].ID, summaries[0].ID)
}

func TestUnmarshalUnknownNode(t *testing.T) {
	g, n := newScene(t)
	m := NewManager(g, 0)
	require.True(t, move(t, m, n, 1))
	data, err := m.Marshal()
	require.NoError(t, err)

	other := scene.NewGraph()
	restored := NewManager(other, 0)
	err = restored.Unmarshal(data, other)
	assert.ErrorIs(t, err, scene.ErrNodeNotFound)
	assert.Equal(t, 0, restored.Len())
}

func TestMarshalRejectsForeignTargets(t *testing.T) {
	g, _ := newScene(t)
	m := NewManager(g, 0)
	settings := &struct{ Locked int }{}
	require.True(t, m.Add(Update(settings, map[string][2]any{"locked": {0, 1}})))

	_, err := m.Marshal()
	assert.Error(t, err)
	assert.Equal(t, TargetScene, m.All()[0].Infos[0].TargetType)
}

func ExampleManager() {
	g := scene.NewGraph()
	n, _ := g.CreateNode("N", scene.TypeBox)
	m := NewManager(g, 0)

	m.Add(Update(n, map[string][2]any{"position.x": {float32(0), float32(5)}}))
	n.Position.X = 5
	m.Undo()
	fmt.Println(n.Position.X, m.Undoable(), m.Redoable())
	// Output: 0 false true
}
