package editor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

type manualScheduler struct {
	live int
}

func (s *manualScheduler) Every(time.Duration, func()) func() {
	s.live++
	done := false
	return func() {
		if !done {
			done = true
			s.live--
		}
	}
}

type recorder struct {
	events []string
	last   map[string]any
}

func record(e *Editor) *recorder {
	r := &recorder{last: map[string]any{}}
	e.Events().OnAll(func(event string, payload any) {
		r.events = append(r.events, event)
		r.last[event] = payload
	})
	return r
}

func newEditor(t *testing.T) (*Editor, *manualScheduler) {
	t.Helper()
	s := &manualScheduler{}
	return New(Options{Scheduler: s}), s
}

func addBox(t *testing.T, e *Editor, name string, pos value.Vector3) *scene.Node {
	t.Helper()
	n, err := e.AddNode(AddOptions{Type: scene.TypeBox, Name: name, Position: &pos})
	require.NoError(t, err)
	return n
}

func TestUpdatePropsUndoRedo(t *testing.T) {
	e, _ := newEditor(t)
	n := addBox(t, e, "box", value.Vec3(0, 0, 0))
	r := record(e)

	err := e.UpdateProps(Update{Node: "box", Props: map[string]any{
		"position":              map[string]any{"x": 1.0, "y": 2.0, "z": 3.0},
		"material.diffuseColor": "#ff0000",
		"visible":               false,
		"scaling.y":             "2",
		"no.such.path":          1,
	}})
	require.NoError(t, err)
	assert.Equal(t, value.Vec3(1, 2, 3), n.Position)
	assert.Equal(t, value.Color3{R: 1}, n.Material.DiffuseColor)
	assert.False(t, n.Visible)
	assert.Equal(t, float32(2), n.Scaling.Y)
	assert.Equal(t, []string{events.UpdateMesh}, r.events)
	assert.Equal(t, 2, e.History().Len())

	ok, err := e.Undo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value.Vec3(0, 0, 0), n.Position)
	assert.Equal(t, value.Color3{R: 1, G: 1, B: 1}, n.Material.DiffuseColor)
	assert.True(t, n.Visible)
	assert.Equal(t, float32(1), n.Scaling.Y)

	ok, err = e.Redo()
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, value.Vec3(1, 2, 3), n.Position)
	assert.False(t, n.Visible)
}

func TestUpdatePropsUsesGivenOldValues(t *testing.T) {
	e, _ := newEditor(t)
	n := addBox(t, e, "box", value.Vec3(5, 0, 0))

	require.NoError(t, e.UpdateProps(Update{
		Node:  "box",
		Props: map[string]any{"position.x": 6},
		Old:   map[string]any{"position.x": 1},
	}))
	_, err := e.Undo()
	require.NoError(t, err)
	assert.Equal(t, float32(1), n.Position.X)
}

func TestUpdatePropsWithoutChangeIsNotRecorded(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "box", value.Vec3(5, 0, 0))
	before := e.History().Len()
	require.NoError(t, e.UpdateProps(Update{Node: "box", Props: map[string]any{"position.x": 5}}))
	assert.Equal(t, before, e.History().Len())

	err := e.UpdateProps(Update{Node: "ghost", Props: map[string]any{"position.x": 5}})
	assert.ErrorIs(t, err, scene.ErrNodeNotFound)
}

func TestUpdatePropsRepeatedFractionIsNotRecorded(t *testing.T) {
	e, _ := newEditor(t)
	n := addBox(t, e, "box", value.Vector3{})

	require.NoError(t, e.UpdateProps(Update{Node: "box", Props: map[string]any{"position.x": 0.1}}))
	assert.Equal(t, float32(0.1), n.Position.X)
	recorded := e.History().Len()

	require.NoError(t, e.UpdateProps(Update{Node: "box", Props: map[string]any{"position.x": 0.1}}))
	require.NoError(t, e.UpdateProps(Update{
		Node:  "box",
		Props: map[string]any{"position.x": 0.1},
		Old:   map[string]any{"position.x": 0.1},
	}))
	assert.Equal(t, recorded, e.History().Len())

	_, err := e.Undo()
	require.NoError(t, err)
	assert.Equal(t, float32(0), n.Position.X)
}

func TestLockedEditorRefusesEdits(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "box", value.Vector3{})
	e.Lock(1)

	_, err := e.AddNode(AddOptions{Type: scene.TypeBox})
	assert.ErrorIs(t, err, ErrLocked)
	assert.ErrorIs(t, e.DeleteNodes("box"), ErrLocked)
	assert.ErrorIs(t, e.UpdateProps(Update{Node: "box", Props: map[string]any{"visible": false}}), ErrLocked)
	_, err = e.Undo()
	assert.ErrorIs(t, err, ErrLocked)

	_, err = e.Animate(AnimationBegin, "box")
	assert.NoError(t, err)
	e.Lock(0)
	assert.NoError(t, e.DeleteNodes("box"))
}

func TestTransformsRespectLocks(t *testing.T) {
	e, _ := newEditor(t)
	box := addBox(t, e, "box", value.Vector3{})
	ground, err := e.AddNode(AddOptions{Type: scene.TypeGround, Name: "ground"})
	require.NoError(t, err)
	r := record(e)

	require.NoError(t, e.Move(value.Vec3(1, 0, 0), "box", "ground"))
	assert.Equal(t, value.Vec3(1, 0, 0), box.Position)
	assert.Equal(t, value.Vector3{}, ground.Position)
	payload := r.last[events.Transform].(TransformPayload)
	assert.Equal(t, []string{"box"}, payload.Names)

	require.NoError(t, e.Scale(value.Vec3(0.5, 0, 0), "box"))
	assert.Equal(t, float32(1.5), box.Scaling.X)

	q := value.QuaternionFromEuler(value.Vec3(0, 0.5, 0))
	box.RotationQuaternion = &q
	require.NoError(t, e.Rotate(value.Vec3(0, 0.25, 0), "box"))
	assert.Nil(t, box.RotationQuaternion)
	assert.InDelta(t, 0.75, box.Rotation.Y, 1e-5)

	_, err = e.Undo()
	require.NoError(t, err)
	assert.InDelta(t, 0.5, box.Rotation.Y, 1e-5)

	require.NoError(t, e.Move(value.Vec3(1, 0, 0), "ground"))
	_, err = e.Undo()
	require.NoError(t, err)
	assert.Equal(t, float32(1), box.Scaling.X)
}

func TestAddAndDeleteUndo(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "box", value.Vector3{})
	require.NoError(t, e.Select("box"))

	require.NoError(t, e.DeleteNodes("box"))
	assert.Empty(t, e.Selected())
	_, ok := e.Graph().Node("box")
	assert.False(t, ok)

	_, err := e.Undo()
	require.NoError(t, err)
	_, ok = e.Graph().Node("box")
	assert.True(t, ok)

	_, err = e.Undo()
	require.NoError(t, err)
	_, ok = e.Graph().Node("box")
	assert.False(t, ok)

	_, err = e.Redo()
	require.NoError(t, err)
	_, ok = e.Graph().Node("box")
	assert.True(t, ok)
}

func TestDeleteStopsAnimations(t *testing.T) {
	e, s := newEditor(t)
	box := addBox(t, e, "box", value.Vector3{})
	box.Metadata.AnimationClips = []scene.AnimationClip{{
		Keyframes: []scene.Keyframe{{Duration: 1000, Properties: map[string]any{"position.x": 5.0}}},
	}}
	_, err := e.Animate(AnimationBegin, "box")
	require.NoError(t, err)
	assert.Equal(t, 1, s.live)

	require.NoError(t, e.DeleteNodes("box"))
	assert.False(t, e.Animations().Playing(box))
	assert.Equal(t, scene.Finished, box.Metadata.AnimationPlayState)
	assert.Equal(t, 0, s.live)
}

func TestCopyNodesOffsetsEachPaste(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "box", value.Vec3(1, 0, 0))
	ground, err := e.AddNode(AddOptions{Type: scene.TypeGround, Name: "ground"})
	require.NoError(t, err)

	first, err := e.CopyNodes("box", ground.Name)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, value.Vec3(4, 0, 3), first[0].Position)
	assert.NotEqual(t, "box", first[0].Name)

	second, err := e.CopyNodes("box")
	require.NoError(t, err)
	assert.Equal(t, value.Vec3(7, 0, 6), second[0].Position)

	_, err = e.CopyNodes("ground")
	assert.ErrorIs(t, err, scene.ErrUncopyable)

	_, err = e.Undo()
	require.NoError(t, err)
	_, ok := e.Graph().Node(second[0].Name)
	assert.False(t, ok)
}

func TestCombineAndUncombine(t *testing.T) {
	e, _ := newEditor(t)
	a := addBox(t, e, "a", value.Vec3(0, 0, 0))
	b := addBox(t, e, "b", value.Vec3(4, 0, 0))

	_, err := e.Combine("a")
	assert.ErrorIs(t, err, ErrNotEnoughNodes)

	parent, err := e.Combine("a", "b")
	require.NoError(t, err)
	assert.Equal(t, value.Vec3(2, 0, 0), parent.Position)
	assert.Equal(t, parent, a.Parent())
	assert.Equal(t, value.Vec3(4, 0, 0), b.AbsolutePosition())

	_, err = e.Undo()
	require.NoError(t, err)
	assert.Nil(t, a.Parent())
	assert.False(t, parent.InScene())

	_, err = e.Redo()
	require.NoError(t, err)
	assert.Equal(t, parent, b.Parent())
	assert.True(t, parent.InScene())

	groups, err := e.Uncombine(parent.Name, "a")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.ElementsMatch(t, []*scene.Node{a, b}, groups[0].Children)
	assert.Nil(t, b.Parent())
}

func TestUndoClearsSelection(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "a", value.Vector3{})
	addBox(t, e, "b", value.Vector3{})
	r := record(e)

	require.NoError(t, e.Select("a", "b"))
	require.NoError(t, e.Select("b"))
	sel := r.last[events.SelectMesh].(SelectPayload)
	assert.Equal(t, []string{"b"}, sel.Names)
	assert.Empty(t, sel.Selected)
	assert.Equal(t, []string{"a"}, sel.Deselected)

	_, err := e.Undo()
	require.NoError(t, err)
	assert.Empty(t, e.Selected())
	assert.Equal(t, []string{events.SelectMesh, events.SelectMesh, events.SelectMesh, events.Undo}, r.events)
}

func TestSelectSkipsUnselectable(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "a", value.Vector3{})
	_, err := e.AddNode(AddOptions{Type: scene.TypeGround, Name: "ground"})
	require.NoError(t, err)

	require.NoError(t, e.Select("a", "ground"))
	assert.Equal(t, []string{"a"}, names(e.Selected()))
	assert.ErrorIs(t, e.Select("ghost"), scene.ErrNodeNotFound)
}

func TestTriggerRunsNodeEvents(t *testing.T) {
	e, _ := newEditor(t)
	button := addBox(t, e, "button", value.Vector3{})
	pump := addBox(t, e, "pump", value.Vector3{})
	pump.AddTags("pumps")
	pump.Metadata.AnimationClips = []scene.AnimationClip{{
		Keyframes: []scene.Keyframe{{Duration: 1000, Properties: map[string]any{"rotation.y": 90.0}}},
	}}
	button.Metadata.Events = []scene.MeshEvent{
		{Trigger: scene.TriggerMouseDown, Action: scene.ActionBeginAnimation, Params: map[string]any{"beginTags": "pumps"}},
		{Trigger: scene.TriggerMouseDown, Action: scene.ActionLink, Params: map[string]any{"url": "https://example.com", "blank": true}},
		{Trigger: scene.TriggerDblclick, Action: scene.ActionStopAnimation, Params: map[string]any{"stopTags": "pumps"}},
	}
	r := record(e)

	ran, err := e.Trigger("button", scene.TriggerMouseDown)
	require.NoError(t, err)
	assert.Equal(t, 2, ran)
	assert.Equal(t, scene.Play, pump.Metadata.AnimationPlayState)
	link := r.last[events.MeshEvent].(MeshEventPayload)
	assert.Equal(t, "button", link.Node)
	assert.Equal(t, "mouseDown", link.Trigger)
	assert.Equal(t, "https://example.com", link.Params["url"])

	e.Tick(500 * time.Millisecond)
	assert.InDelta(t, 0.785398, pump.Rotation.Y, 1e-4)

	ran, err = e.Trigger("button", scene.TriggerDblclick)
	require.NoError(t, err)
	assert.Equal(t, 1, ran)
	assert.Equal(t, scene.Finished, pump.Metadata.AnimationPlayState)

	ran, err = e.Trigger("button", scene.TriggerMouseOut)
	require.NoError(t, err)
	assert.Zero(t, ran)
}

func TestOpenRestoresPlayingAndPausedNodes(t *testing.T) {
	e, _ := newEditor(t)
	clip := scene.AnimationClip{
		Keyframes: []scene.Keyframe{{Duration: 1000, Properties: map[string]any{"position.x": 10.0}}},
	}
	playing := addBox(t, e, "playing", value.Vec3(3, 0, 0))
	playing.Metadata.AnimationClips = []scene.AnimationClip{clip}
	playing.Metadata.AnimationPlayState = scene.Play
	playing.Metadata.AnimationInitValues = map[string]value.Value{"position.x": value.Number(0)}

	paused := addBox(t, e, "paused", value.Vec3(7, 0, 0))
	paused.Metadata.AnimationClips = []scene.AnimationClip{clip}
	paused.Metadata.AnimationPlayState = scene.Pause
	paused.Metadata.AnimationPauseFrame = []float64{40}
	paused.Metadata.AnimationInitValues = map[string]value.Value{"position.x": value.Number(0)}

	doc, err := e.Snapshot()
	require.NoError(t, err)

	other, _ := newEditor(t)
	r := record(other)
	require.NoError(t, other.Open(doc))
	assert.Contains(t, r.events, events.Open)
	assert.Equal(t, 0, other.History().Len())

	p, ok := other.Graph().Node("playing")
	require.True(t, ok)
	assert.Equal(t, scene.Play, p.Metadata.AnimationPlayState)
	assert.Equal(t, float32(0), p.Position.X)
	other.Tick(250 * time.Millisecond)
	assert.InDelta(t, 2.5, p.Position.X, 1e-4)

	q, ok := other.Graph().Node("paused")
	require.True(t, ok)
	assert.Equal(t, scene.Pause, q.Metadata.AnimationPlayState)
	assert.Equal(t, []float64{40}, q.Metadata.AnimationPauseFrame)
	assert.InDelta(t, 4, q.Position.X, 1e-4)
}

func TestNewDocumentResets(t *testing.T) {
	e, _ := newEditor(t)
	addBox(t, e, "box", value.Vector3{})
	e.Lock(1)
	e.NewDocument()
	assert.Empty(t, e.Graph().Nodes())
	assert.Equal(t, 0, e.History().Len())
	assert.False(t, e.Locked())
	assert.Equal(t, document.DefaultFilename, e.Settings().Filename)
}

func TestRunExecutesTasksOnLoop(t *testing.T) {
	e := New(Options{TickInterval: time.Millisecond, ProgressInterval: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan error, 1)
	go func() { stopped <- e.Run(ctx) }()

	var box *scene.Node
	err := e.Do(ctx, func() error {
		var err error
		box, err = e.AddNode(AddOptions{Type: scene.TypeBox, Name: "box"})
		if err != nil {
			return err
		}
		box.Metadata.AnimationClips = []scene.AnimationClip{{
			Keyframes: []scene.Keyframe{{Duration: 50, Properties: map[string]any{"position.x": 1.0}}},
		}}
		_, err = e.Animate(AnimationBegin, "box")
		return err
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		var state scene.PlayState
		_ = e.Do(ctx, func() error {
			state = box.Metadata.AnimationPlayState
			return nil
		})
		return state == scene.Finished
	}, 5*time.Second, 5*time.Millisecond)

	boom := errors.New("boom")
	assert.ErrorIs(t, e.Do(ctx, func() error { return boom }), boom)
	assert.Error(t, e.Do(ctx, func() error { panic("bad task") }))

	cancel()
	assert.ErrorIs(t, <-stopped, context.Canceled)
	assert.ErrorIs(t, e.Do(context.Background(), func() error { return nil }), ErrClosed)
}
