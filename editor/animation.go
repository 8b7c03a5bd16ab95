package editor

import (
	"github.com/slighter12/twinscene-go/scene"
)

// AnimationAction selects what to do with the animations of nodes.
type AnimationAction string

const (
	AnimationBegin   AnimationAction = "begin"
	AnimationPause   AnimationAction = "pause"
	AnimationRestart AnimationAction = "restart"
	AnimationStop    AnimationAction = "stop"
)

// Animate applies action to the named nodes.
func (e *Editor) Animate(action AnimationAction, nodeNames ...string) ([]*scene.Node, error) {
	nodes, err := e.Nodes(nodeNames...)
	if err != nil {
		return nil, err
	}
	e.animate(action, nodes)
	return nodes, nil
}

// AnimateTags applies action to the nodes carrying any of the comma
// separated tags.
func (e *Editor) AnimateTags(action AnimationAction, tags string) []*scene.Node {
	nodes := e.graph.NodesByTags(tags)
	e.animate(action, nodes)
	return nodes
}

func (e *Editor) animate(action AnimationAction, nodes []*scene.Node) {
	for _, n := range nodes {
		switch action {
		case AnimationBegin:
			e.animations.Begin(n)
		case AnimationPause:
			e.animations.Pause(n)
		case AnimationRestart:
			e.animations.Restart(n)
		case AnimationStop:
			e.animations.Stop(n)
		}
	}
}

// ParseAnimationAction validates an action name.
func ParseAnimationAction(s string) (AnimationAction, bool) {
	switch a := AnimationAction(s); a {
	case AnimationBegin, AnimationPause, AnimationRestart, AnimationStop:
		return a, true
	}
	return "", false
}
