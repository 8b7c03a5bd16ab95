package scene

import (
	"strings"

	"github.com/slighter12/twinscene-go/value"
)

// NodeType is the authoring category recorded in a node's metadata.
type NodeType string

const (
	TypeGround        NodeType = "ground"
	TypeImport        NodeType = "import"
	TypeBox           NodeType = "box"
	TypeSphere        NodeType = "sphere"
	TypeCombine       NodeType = "combine"
	TypeDecal         NodeType = "decal"
	TypeTransformNode NodeType = "transformNode"
)

// PlayState is the animation state of a node.
type PlayState int

const (
	Finished PlayState = iota
	Play
	Pause
)

func (s PlayState) String() string {
	switch s {
	case Play:
		return "play"
	case Pause:
		return "pause"
	default:
		return "finished"
	}
}

// Keyframe holds raw authoring values keyed by animatable property. Values
// are numbers (degrees for rotation.*) or colour strings, and may be empty
// to hold the previous key.
type Keyframe struct {
	Duration   float64        `json:"duration"`
	Properties map[string]any `json:"properties"`
}

// AnimationClip is a declarative keyframe sequence attached to a node.
type AnimationClip struct {
	// Loop is the number of repetitions; 0 loops forever.
	Loop      int        `json:"loop"`
	Initial   bool       `json:"initial"`
	NextTag   string     `json:"nextTag"`
	Keyframes []Keyframe `json:"keyframes"`
}

// EventTrigger is the pointer interaction that fires a node event.
type EventTrigger int

const (
	TriggerMouseDown EventTrigger = iota
	TriggerMouseUp
	TriggerMouseIn
	TriggerMouseOut
	TriggerDblclick
)

var triggerNames = [...]string{"mouseDown", "mouseUp", "mouseIn", "mouseOut", "dblclick"}

func (t EventTrigger) String() string {
	if t < 0 || int(t) >= len(triggerNames) {
		return "unknown"
	}
	return triggerNames[t]
}

// ParseTrigger resolves a trigger by name.
func ParseTrigger(s string) (EventTrigger, bool) {
	for i, name := range triggerNames {
		if strings.EqualFold(name, s) {
			return EventTrigger(i), true
		}
	}
	return 0, false
}

// EventAction is what a node event does once triggered.
type EventAction int

const (
	ActionLink EventAction = iota
	ActionBeginAnimation
	ActionPauseAnimation
	ActionRestartAnimation
	ActionStopAnimation
	ActionJavascript
	ActionFunction
	ActionCustom
)

// MeshEvent binds a trigger to an action. Params depend on the action:
// Link uses "url" and "blank", the animation actions use "beginTags",
// "pauseTags", "restartTags" or "stopTags".
type MeshEvent struct {
	Trigger EventTrigger   `json:"trigger"`
	Action  EventAction    `json:"action"`
	Params  map[string]any `json:"params,omitempty"`
}

// Tags returns the tag query of an animation action, or "" for other
// actions.
func (e MeshEvent) Tags() string {
	var key string
	switch e.Action {
	case ActionBeginAnimation:
		key = "beginTags"
	case ActionPauseAnimation:
		key = "pauseTags"
	case ActionRestartAnimation:
		key = "restartTags"
	case ActionStopAnimation:
		key = "stopTags"
	default:
		return ""
	}
	s, _ := e.Params[key].(string)
	return s
}

// Metadata is the authoring state carried by every node.
type Metadata struct {
	Type                NodeType        `json:"type"`
	AnimationClips      []AnimationClip `json:"animationClips"`
	AnimationPlayState  PlayState       `json:"animationPlayState"`
	AnimationPauseFrame []float64       `json:"animationPauseFrame"`
	// AnimationInitValues are the pre-animation snapshots keyed by property.
	// Documents persist them in wire form through the animation catalog.
	AnimationInitValues map[string]value.Value `json:"-" copier:"-"`
	Events              []MeshEvent            `json:"events"`
	InitSize            value.Vector3          `json:"initSize"`

	Unselectable bool `json:"unselectable,omitempty"`
	Unmovable    bool `json:"unmovable,omitempty"`
	Unscalable   bool `json:"unscalable,omitempty"`
	Unrotatable  bool `json:"unrotatable,omitempty"`
	Uncopyable   bool `json:"uncopyable,omitempty"`
}

// InitMetadata fills in defaults without overwriting anything already set.
func InitMetadata(n *Node, typ NodeType) *Metadata {
	if n.Metadata == nil {
		n.Metadata = &Metadata{}
	}
	m := n.Metadata
	if m.Type == "" {
		m.Type = typ
	}
	if m.AnimationClips == nil {
		m.AnimationClips = []AnimationClip{{Initial: true, Keyframes: []Keyframe{}}}
	}
	if m.AnimationPauseFrame == nil {
		m.AnimationPauseFrame = []float64{}
	}
	if m.AnimationInitValues == nil {
		m.AnimationInitValues = map[string]value.Value{}
	}
	if m.Events == nil {
		m.Events = []MeshEvent{}
	}
	if m.InitSize.IsZero() && m.Type != TypeTransformNode {
		m.InitSize = n.Extent.Scale(2)
	}
	if m.Type == TypeGround {
		m.Uncopyable = true
		m.Unmovable = true
		m.Unrotatable = true
		m.Unscalable = true
		m.Unselectable = true
	}
	return m
}
