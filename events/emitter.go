// Package events dispatches editor notifications to listeners.
package events

import (
	"fmt"
	"slices"
	"sync"

	"github.com/slighter12/twinscene-go/logger"
)

// Event names emitted by the editor.
const (
	AddMesh    = "addMesh"
	DeleteMesh = "deleteMesh"
	UpdateMesh = "updateMesh"
	CopyMesh   = "copyMesh"
	Combine    = "combine"
	Uncombine  = "uncombine"
	SelectMesh = "selectMesh"
	Animating  = "animating"
	Undo       = "undo"
	Redo       = "redo"
	Open       = "open"
	MeshEvent  = "meshEvent"
	Transform  = "transform"

	// DocumentChanged reports a stored document edited outside the editor.
	DocumentChanged = "documentChanged"
)

// Handler receives the payload of one event.
type Handler func(event string, payload any)

type listener struct {
	id      uint64
	event   string // empty for every event
	handler Handler
}

// Emitter calls listeners synchronously, in registration order. A panicking
// listener is logged and skipped; it never reaches the caller of Emit.
type Emitter struct {
	mu        sync.RWMutex
	listeners []listener
	nextID    uint64
}

func NewEmitter() *Emitter {
	return &Emitter{}
}

// On registers h for event and returns a function removing it.
func (e *Emitter) On(event string, h Handler) (off func()) {
	return e.add(event, h)
}

// OnAll registers h for every event.
func (e *Emitter) OnAll(h Handler) (off func()) {
	return e.add("", h)
}

func (e *Emitter) add(event string, h Handler) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.nextID++
	id := e.nextID
	e.listeners = append(e.listeners, listener{id: id, event: event, handler: h})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		e.listeners = slices.DeleteFunc(e.listeners, func(l listener) bool { return l.id == id })
	}
}

// Emit delivers payload to the listeners of event.
func (e *Emitter) Emit(event string, payload any) {
	e.mu.RLock()
	targets := make([]Handler, 0, len(e.listeners))
	for _, l := range e.listeners {
		if l.event == "" || l.event == event {
			targets = append(targets, l.handler)
		}
	}
	e.mu.RUnlock()

	for _, h := range targets {
		call(h, event, payload)
	}
}

func call(h Handler, event string, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event listener failed", "event", event, "error", fmt.Sprint(r))
		}
	}()
	h(event, payload)
}

// Len returns the number of registered listeners.
func (e *Emitter) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.listeners)
}
