// Package animation compiles the keyframe clips stored in node metadata into
// tracks and drives their playback: looping, pausing, restoring initial
// values and chaining to the nodes of a follow-up tag.
package animation

import (
	"time"

	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// DefaultProgressInterval is the period of "animating" notifications.
const DefaultProgressInterval = 100 * time.Millisecond

// Notifier receives progress notifications.
type Notifier interface {
	Emit(event string, payload any)
}

// NodeFinder resolves a tag query to nodes.
type NodeFinder interface {
	NodesByTags(tags string) []*scene.Node
}

// AnimatingEvent is the payload of events.Animating.
type AnimatingEvent struct {
	Node  *scene.Node     `json:"-"`
	Name  string          `json:"name"`
	State scene.PlayState `json:"state"`
}

// Options configures a Manager.
type Options struct {
	Player           Player
	Scheduler        Scheduler
	Finder           NodeFinder
	Notifier         Notifier
	ProgressInterval time.Duration
}

// Manager plays the clips of nodes. Playback callbacks belong to a
// generation: stopping a node bumps its generation, which turns every
// callback of the previous session into a no-op.
//
// Manager is not safe for concurrent use; callbacks are expected to run on
// the same goroutine as the calls.
type Manager struct {
	player    Player
	scheduler Scheduler
	finder    NodeFinder
	notifier  Notifier
	interval  time.Duration

	items      map[scene.Handle][]Item
	playbacks  map[scene.Handle][]Playback
	listeners  map[scene.Handle]func()
	generation map[scene.Handle]uint64
}

func NewManager(opts Options) *Manager {
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = DefaultProgressInterval
	}
	return &Manager{
		player:     opts.Player,
		scheduler:  opts.Scheduler,
		finder:     opts.Finder,
		notifier:   opts.Notifier,
		interval:   opts.ProgressInterval,
		items:      make(map[scene.Handle][]Item),
		playbacks:  make(map[scene.Handle][]Playback),
		listeners:  make(map[scene.Handle]func()),
		generation: make(map[scene.Handle]uint64),
	}
}

// Begin restarts every clip of n from frame 0. It is a no-op for nodes
// without clips.
func (m *Manager) Begin(n *scene.Node) {
	if n == nil {
		return
	}
	m.Stop(n)
	md := n.Metadata
	if md == nil {
		return
	}
	// Only properties the current clips animate keep a snapshot.
	md.AnimationInitValues = make(map[string]value.Value)
	if len(md.AnimationClips) == 0 {
		return
	}

	h := n.Handle()
	items := make([]Item, 0, len(md.AnimationClips))
	total := 0
	for _, clip := range md.AnimationClips {
		item, inits := Compile(n, clip)
		for k, v := range inits {
			md.AnimationInitValues[k] = v
		}
		total += len(item.Tracks)
		items = append(items, item)
	}
	m.items[h] = items

	if total == 0 {
		md.AnimationPlayState = scene.Finished
		delete(m.items, h)
		logger.Debug("animation has nothing to play", "node", n.Name)
		return
	}

	gen := m.generation[h]
	live := func() bool { return m.generation[h] == gen }
	var playbacks []Playback
	for _, item := range items {
		for _, track := range item.Tracks {
			remaining := item.Loop
			var pb Playback
			pb = m.player.Play(n, track, 0, item.TotalFrames, true, Callbacks{
				OnLoop: func() {
					if !live() || item.Loop <= 0 {
						return
					}
					remaining--
					if remaining < 1 {
						pb.Stop()
					}
				},
				OnEnd: func() {
					if !live() {
						return
					}
					total--
					if total > 0 {
						return
					}
					m.Stop(n)
					m.chain(item.NextTag)
				},
			})
			playbacks = append(playbacks, pb)
		}
	}

	md.AnimationPlayState = scene.Play
	md.AnimationPauseFrame = []float64{}
	m.playbacks[h] = playbacks
	m.addListener(n)
	logger.Debug("animation started", "node", n.Name, "tracks", len(playbacks))
}

func (m *Manager) chain(tag string) {
	if tag == "" || m.finder == nil {
		return
	}
	for _, next := range m.finder.NodesByTags(tag) {
		m.Begin(next)
	}
}

// Pause freezes every track of n and records their frames.
func (m *Manager) Pause(n *scene.Node) {
	playbacks := m.playbacks[n.Handle()]
	if len(playbacks) == 0 {
		return
	}
	frames := make([]float64, len(playbacks))
	for i, pb := range playbacks {
		pb.Pause()
		frames[i] = pb.Frame()
	}
	n.Metadata.AnimationPauseFrame = frames
	n.Metadata.AnimationPlayState = scene.Pause
	m.removeListener(n)
}

// Restart resumes the tracks of a paused node.
func (m *Manager) Restart(n *scene.Node) {
	playbacks := m.playbacks[n.Handle()]
	if len(playbacks) == 0 {
		return
	}
	for _, pb := range playbacks {
		pb.Restart()
	}
	n.Metadata.AnimationPlayState = scene.Play
	n.Metadata.AnimationPauseFrame = []float64{}
	m.addListener(n)
}

// Stop ends every track of n. Clips marked Initial write their snapshots
// back.
func (m *Manager) Stop(n *scene.Node) {
	if n == nil {
		return
	}
	h := n.Handle()
	m.generation[h]++

	if playbacks, ok := m.playbacks[h]; ok {
		delete(m.playbacks, h)
		for _, pb := range playbacks {
			pb.Stop()
		}
		if n.Metadata != nil {
			n.Metadata.AnimationPlayState = scene.Finished
			n.Metadata.AnimationPauseFrame = []float64{}
		}
	}
	for _, item := range m.items[h] {
		if !item.Initial {
			continue
		}
		for _, tr := range item.Tracks {
			propertypath.Set(n, tr.Property, value.Native(value.Clone(tr.InitValue)))
		}
	}
	delete(m.items, h)
	m.removeListener(n)
}

// Resume begins n and moves its tracks to frames before pausing. It
// restores a node that was saved while paused.
func (m *Manager) Resume(n *scene.Node, frames []float64) {
	m.Begin(n)
	playbacks := m.playbacks[n.Handle()]
	for i, pb := range playbacks {
		if i < len(frames) {
			pb.GoTo(frames[i])
		}
	}
	m.Pause(n)
}

// RestoreInitValues writes the saved init values of n back to its
// properties.
func (m *Manager) RestoreInitValues(n *scene.Node) {
	if n.Metadata == nil {
		return
	}
	for key, v := range n.Metadata.AnimationInitValues {
		if !propertypath.Set(n, key, value.Native(value.Clone(v))) {
			logger.Debug("init value not restored", "node", n.Name, "property", key)
		}
	}
}

// Dispose stops every playback without restoring anything and forgets all
// nodes.
func (m *Manager) Dispose() {
	for h, playbacks := range m.playbacks {
		m.generation[h]++
		for _, pb := range playbacks {
			pb.Stop()
		}
	}
	for _, cancel := range m.listeners {
		cancel()
	}
	clear(m.items)
	clear(m.playbacks)
	clear(m.listeners)
}

// Playing reports whether n has live tracks.
func (m *Manager) Playing(n *scene.Node) bool {
	return len(m.playbacks[n.Handle()]) > 0
}

// Items returns the compiled clips of n while it plays.
func (m *Manager) Items(n *scene.Node) []Item {
	return m.items[n.Handle()]
}

func (m *Manager) addListener(n *scene.Node) {
	m.removeListener(n)
	m.notify(n)
	if m.scheduler == nil {
		return
	}
	m.listeners[n.Handle()] = m.scheduler.Every(m.interval, func() { m.notify(n) })
}

func (m *Manager) removeListener(n *scene.Node) {
	cancel, ok := m.listeners[n.Handle()]
	if !ok {
		return
	}
	cancel()
	delete(m.listeners, n.Handle())
	m.notify(n)
}

func (m *Manager) notify(n *scene.Node) {
	if m.notifier == nil {
		return
	}
	state := scene.Finished
	if n.Metadata != nil {
		state = n.Metadata.AnimationPlayState
	}
	m.notifier.Emit(events.Animating, AnimatingEvent{Node: n, Name: n.Name, State: state})
}
