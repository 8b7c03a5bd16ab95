package animation

import (
	"slices"
	"time"

	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/value"
)

// Callbacks are invoked by a Playback. OnLoop fires each time a looping
// playback wraps around; OnEnd fires once, when the playback stops for any
// reason.
type Callbacks struct {
	OnLoop func()
	OnEnd  func()
}

// Player plays a track on a target between two frames.
type Player interface {
	Play(target any, track Track, from, to float64, loop bool, cb Callbacks) Playback
}

// Playback controls one playing track.
type Playback interface {
	Pause()
	Restart()
	// Stop ends the playback and fires OnEnd. Stopping twice is a no-op.
	Stop()
	Frame() float64
	GoTo(frame float64)
}

// Scheduler runs fn every interval until the returned cancel is called.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (cancel func())
}

// TickPlayer is a Player driven by explicit frame advances, typically from
// a render tick. It writes interpolated values straight to the target.
//
// TickPlayer is not safe for concurrent use.
type TickPlayer struct {
	sessions []*tickSession
}

func NewTickPlayer() *TickPlayer {
	return &TickPlayer{}
}

type tickSession struct {
	player  *TickPlayer
	target  any
	track   Track
	from    float64
	to      float64
	loop    bool
	cb      Callbacks
	frame   float64
	paused  bool
	stopped bool
}

func (p *TickPlayer) Play(target any, track Track, from, to float64, loop bool, cb Callbacks) Playback {
	s := &tickSession{
		player: p,
		target: target,
		track:  track,
		from:   from,
		to:     to,
		loop:   loop,
		cb:     cb,
		frame:  from,
	}
	p.sessions = append(p.sessions, s)
	s.apply()
	return s
}

// Active returns the number of sessions that have not stopped.
func (p *TickPlayer) Active() int {
	return len(p.sessions)
}

// Advance moves every running session forward by frames. Sessions started
// by callbacks during the advance begin moving on the next call.
func (p *TickPlayer) Advance(frames float64) {
	for _, s := range slices.Clone(p.sessions) {
		if s.stopped || s.paused {
			continue
		}
		s.advance(frames)
	}
}

// AdvanceTime advances by the frames elapsed in d.
func (p *TickPlayer) AdvanceTime(d time.Duration) {
	p.Advance(d.Seconds() * FrameRate)
}

func (s *tickSession) advance(frames float64) {
	next := s.frame + frames
	span := s.to - s.from
	for next >= s.to {
		s.frame = s.to
		s.apply()
		if !s.loop {
			s.Stop()
			return
		}
		if s.cb.OnLoop != nil {
			s.cb.OnLoop()
		}
		if s.stopped || s.paused || span <= 0 {
			return
		}
		next -= span
	}
	s.frame = next
	s.apply()
}

func (s *tickSession) apply() {
	v := Evaluate(s.track.Keys, s.frame)
	if !propertypath.Set(s.target, s.track.Property, value.Native(value.Clone(v))) {
		logger.Debug("animation could not set property", "property", s.track.Property)
	}
}

func (s *tickSession) Pause()         { s.paused = true }
func (s *tickSession) Restart()       { s.paused = false }
func (s *tickSession) Frame() float64 { return s.frame }

func (s *tickSession) GoTo(frame float64) {
	s.frame = min(max(frame, s.from), s.to)
	s.apply()
}

func (s *tickSession) Stop() {
	if s.stopped {
		return
	}
	s.stopped = true
	s.player.sessions = slices.DeleteFunc(s.player.sessions, func(o *tickSession) bool { return o == s })
	if s.cb.OnEnd != nil {
		s.cb.OnEnd()
	}
}
