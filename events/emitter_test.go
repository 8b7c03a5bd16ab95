package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmitDeliversInOrder(t *testing.T) {
	e := NewEmitter()
	var got []string
	e.On(AddMesh, func(event string, payload any) { got = append(got, "first:"+payload.(string)) })
	e.OnAll(func(event string, payload any) { got = append(got, "all:"+event) })
	e.On(DeleteMesh, func(event string, payload any) { got = append(got, "delete") })

	e.Emit(AddMesh, "box")
	assert.Equal(t, []string{"first:box", "all:addMesh"}, got)
}

func TestPanickingListenerDoesNotAbortEmit(t *testing.T) {
	e := NewEmitter()
	called := false
	e.On(Undo, func(string, any) { panic("boom") })
	e.On(Undo, func(string, any) { called = true })

	assert.NotPanics(t, func() { e.Emit(Undo, nil) })
	assert.True(t, called)
}

func TestOffRemovesListener(t *testing.T) {
	e := NewEmitter()
	count := 0
	off := e.On(Redo, func(string, any) { count++ })
	e.Emit(Redo, nil)
	off()
	e.Emit(Redo, nil)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, e.Len())
}
