package editor

import (
	"github.com/slighter12/twinscene-go/events"
	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/scene"
)

// MeshEventPayload is the payload of events.MeshEvent, emitted for actions
// the editor leaves to its clients (links, scripts, custom handlers).
type MeshEventPayload struct {
	Node    string            `json:"node"`
	Trigger string            `json:"trigger"`
	Action  scene.EventAction `json:"action"`
	Params  map[string]any    `json:"params,omitempty"`
}

var tagActions = map[scene.EventAction]AnimationAction{
	scene.ActionBeginAnimation:   AnimationBegin,
	scene.ActionPauseAnimation:   AnimationPause,
	scene.ActionRestartAnimation: AnimationRestart,
	scene.ActionStopAnimation:    AnimationStop,
}

// Trigger runs the events of a node bound to trigger and returns how many
// ran. Animation actions run on the nodes of their tags; other actions are
// emitted as events.MeshEvent.
func (e *Editor) Trigger(name string, trigger scene.EventTrigger) (int, error) {
	nodes, err := e.Nodes(name)
	if err != nil {
		return 0, err
	}
	n := nodes[0]
	if n.Metadata == nil {
		return 0, nil
	}
	ran := 0
	for _, ev := range n.Metadata.Events {
		if ev.Trigger != trigger {
			continue
		}
		ran++
		if action, ok := tagActions[ev.Action]; ok {
			targets := e.AnimateTags(action, ev.Tags())
			logger.Debug("node event ran", "node", n.Name, "trigger", trigger.String(), "action", action, "targets", len(targets))
			continue
		}
		e.emitter.Emit(events.MeshEvent, MeshEventPayload{
			Node:    n.Name,
			Trigger: trigger.String(),
			Action:  ev.Action,
			Params:  ev.Params,
		})
	}
	return ran, nil
}
