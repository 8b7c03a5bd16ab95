// Package editor is the editing shell around a scene: it owns the scene
// graph, the transaction log and the animation manager, and serialises
// every mutation on one event loop.
package editor

import (
	"errors"
	"time"

	"github.com/slighter12/twinscene-go/animation"
	"github.com/slighter12/twinscene-go/document"
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/history"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// DefaultTickInterval is the period of the render tick driving animations.
const DefaultTickInterval = 10 * time.Millisecond

var (
	ErrLocked          = errors.New("editor is locked")
	ErrClosed          = errors.New("editor is closed")
	ErrNotEnoughNodes  = errors.New("at least two nodes are required")
	ErrNothingSelected = errors.New("no nodes given")
)

// Options configures an Editor.
type Options struct {
	HistoryLimit     int
	TickInterval     time.Duration
	ProgressInterval time.Duration
	// Scheduler runs the animation progress timers. The editor loop is
	// used when nil.
	Scheduler animation.Scheduler
}

// Editor is one open scene. Its methods must run on the editor loop: call
// them through Do when Run is active, or directly when no loop is running.
type Editor struct {
	graph      *scene.Graph
	history    *history.Manager
	animations *animation.Manager
	player     *animation.TickPlayer
	emitter    *events.Emitter
	settings   document.Settings
	selected   []*scene.Node

	copied      []string
	pasteFrom   *value.Vector3
	pasteOffset float32

	opts  Options
	tasks chan func()
	done  chan struct{}
}

func New(opts Options) *Editor {
	if opts.HistoryLimit < 1 {
		opts.HistoryLimit = history.DefaultLimit
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = animation.DefaultProgressInterval
	}
	e := &Editor{
		graph:    scene.NewGraph(),
		emitter:  events.NewEmitter(),
		settings: document.DefaultSettings(),
		opts:     opts,
		tasks:    make(chan func()),
		done:     make(chan struct{}),
	}
	e.history = history.NewManager(e.graph, opts.HistoryLimit)
	e.resetAnimations()
	return e
}

func (e *Editor) resetAnimations() {
	if e.animations != nil {
		e.animations.Dispose()
	}
	scheduler := e.opts.Scheduler
	if scheduler == nil {
		scheduler = loopScheduler{e}
	}
	e.player = animation.NewTickPlayer()
	e.animations = animation.NewManager(animation.Options{
		Player:           e.player,
		Scheduler:        scheduler,
		Finder:           e.graph,
		Notifier:         e.emitter,
		ProgressInterval: e.opts.ProgressInterval,
	})
}

func (e *Editor) Graph() *scene.Graph            { return e.graph }
func (e *Editor) History() *history.Manager      { return e.history }
func (e *Editor) Animations() *animation.Manager { return e.animations }
func (e *Editor) Events() *events.Emitter        { return e.emitter }
func (e *Editor) Settings() document.Settings    { return e.settings }

// On registers a listener; see events.Emitter.
func (e *Editor) On(event string, h events.Handler) (off func()) {
	return e.emitter.On(event, h)
}

// Lock sets the preview lock. A locked editor refuses edits but still plays
// animations and node events.
func (e *Editor) Lock(locked int) {
	e.settings.Locked = locked
}

func (e *Editor) Locked() bool { return e.settings.Locked != 0 }

// SetSettings replaces the document settings.
func (e *Editor) SetSettings(s document.Settings) {
	e.settings = s
}

// Tick advances every playing animation by d.
func (e *Editor) Tick(d time.Duration) {
	e.player.AdvanceTime(d)
}

// NewDocument discards the scene and starts an empty one.
func (e *Editor) NewDocument() {
	e.reset()
	e.settings = document.DefaultSettings()
	e.emitter.Emit(events.Open, nil)
}

func (e *Editor) reset() {
	e.resetAnimations()
	e.history.Clear()
	e.graph.Clear()
	e.selected = nil
	e.copied = nil
	e.pasteFrom = nil
	e.pasteOffset = 0
}

// Open replaces the scene with doc. Nodes saved while playing get their
// init values back and start again; nodes saved while paused are moved to
// their pause frames.
func (e *Editor) Open(doc *document.Document) error {
	e.reset()
	nodes, err := doc.Apply(e.graph)
	if err != nil {
		return err
	}
	e.settings = doc.Settings
	for _, n := range nodes {
		switch n.Metadata.AnimationPlayState {
		case scene.Play:
			e.animations.RestoreInitValues(n)
			e.animations.Begin(n)
		case scene.Pause:
			frames := append([]float64(nil), n.Metadata.AnimationPauseFrame...)
			e.animations.RestoreInitValues(n)
			e.animations.Resume(n, frames)
		}
	}
	e.emitter.Emit(events.Open, nil)
	return nil
}

// Snapshot captures the scene as a document. The selection is cleared
// first.
func (e *Editor) Snapshot() (*document.Document, error) {
	e.Select()
	return document.Capture(e.graph, e.settings)
}

// Close stops every animation and drops the scene.
func (e *Editor) Close() {
	e.animations.Dispose()
	e.history.Clear()
	e.graph.Clear()
	e.selected = nil
}
