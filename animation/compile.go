package animation

import (
	"github.com/chewxy/math32"

	"github.com/slighter12/twinscene-go/logger"
	"github.com/slighter12/twinscene-go/propertypath"
	"github.com/slighter12/twinscene-go/scene"
	"github.com/slighter12/twinscene-go/value"
)

// FrameRate is the number of frames per second of every clip.
const FrameRate = 100

// Key is a value at a frame.
type Key struct {
	Frame float64     `json:"frame"`
	Value value.Value `json:"-"`
}

// Track is the keyed sequence of one animated property.
type Track struct {
	Property  string
	Info      PropertyInfo
	Keys      []Key
	InitValue value.Value
}

// Item is a compiled clip.
type Item struct {
	Loop        int
	Initial     bool
	TotalFrames float64
	NextTag     string
	Tracks      []Track
}

// Frames converts a keyframe duration in milliseconds to frames.
func Frames(durationMS float64) float64 {
	return durationMS / 1000 * FrameRate
}

// Compile turns clip into tracks starting from the current state of n. It
// also returns the initial snapshot of every animated property.
//
// A property gets a track only if at least one keyframe changes it: a
// non-zero delta for additive properties, a value different from the
// current one otherwise. rotation.x/y/z are merged into one rotation track
// whose keyframe values are degrees converted to radians.
func Compile(n *scene.Node, clip scene.AnimationClip) (Item, map[string]value.Value) {
	item := Item{Loop: clip.Loop, Initial: clip.Initial, NextTag: clip.NextTag}
	infos := changedProperties(n, clip.Keyframes)
	inits := initValues(n, infos)

	for _, info := range infos {
		item.Tracks = append(item.Tracks, Track{
			Property:  info.Key,
			Info:      info,
			InitValue: inits[info.Key],
			Keys:      []Key{{Frame: 0, Value: value.Clone(inits[info.Key])}},
		})
	}

	for _, kf := range clip.Keyframes {
		item.TotalFrames += Frames(kf.Duration)
		props := withRotation(kf.Properties)
		for i := range item.Tracks {
			tr := &item.Tracks[i]
			prev := tr.Keys[len(tr.Keys)-1].Value
			tr.Keys = append(tr.Keys, Key{
				Frame: item.TotalFrames,
				Value: frameValue(props[tr.Property], prev, tr.Info),
			})
		}
	}
	return item, inits
}

// changedProperties lists, in catalog order, the properties some keyframe
// actually changes.
func changedProperties(n *scene.Node, keyframes []scene.Keyframe) []PropertyInfo {
	changed := make(map[string]bool)
	for _, kf := range keyframes {
		for key, raw := range kf.Properties {
			track := key
			if IsRotation(key) {
				track = RotationKey
			}
			if changed[track] {
				continue
			}
			info, ok := Lookup(key)
			if !ok {
				logger.Debug("skipping unknown animated property", "node", n.Name, "property", key)
				continue
			}
			if isChanged(n, info, raw) {
				changed[track] = true
			}
		}
	}

	var out []PropertyInfo
	for _, info := range catalog {
		if changed[info.Key] {
			out = append(out, info)
		}
	}
	return out
}

func isChanged(n *scene.Node, info PropertyInfo, raw any) bool {
	if value.IsEmpty(raw) {
		return false
	}
	if info.IsAdd {
		f, ok := value.ToNumber(raw)
		return ok && f != 0
	}
	v, ok := convertKeyframe(raw, info)
	if !ok {
		return false
	}
	current, found := propertypath.Get(n, info.Key)
	if !found {
		return false
	}
	return !value.Equal(v, value.Of(current))
}

func initValues(n *scene.Node, infos []PropertyInfo) map[string]value.Value {
	out := make(map[string]value.Value, len(infos))
	for _, info := range infos {
		if info.Key == RotationKey {
			n.NormalizeRotation()
			out[info.Key] = value.Clone(n.Rotation)
			continue
		}
		v, ok := propertypath.Get(n, info.Key)
		if !ok {
			out[info.Key] = value.Void{}
			continue
		}
		out[info.Key] = value.Clone(value.Of(v))
	}
	return out
}

// withRotation adds the merged rotation value, in radians, to a keyframe's
// properties.
func withRotation(props map[string]any) map[string]any {
	out := make(map[string]any, len(props)+1)
	for k, v := range props {
		out[k] = v
	}
	deg := func(key string) float32 {
		f, _ := value.ToNumber(props[key])
		return float32(f)
	}
	out[RotationKey] = value.Vec3(deg("rotation.x"), deg("rotation.y"), deg("rotation.z")).Scale(math32.Pi / 180)
	return out
}

// convertKeyframe turns a raw keyframe value into a value of the property's
// kind.
func convertKeyframe(raw any, info PropertyInfo) (value.Value, bool) {
	if v, ok := raw.(value.Value); ok && v.Kind() == info.Kind {
		return v, true
	}
	switch info.Kind {
	case value.KindNumber:
		f, ok := value.ToNumber(raw)
		return value.Number(f), ok
	case value.KindColor3, value.KindColor4:
		if s, ok := raw.(string); ok {
			c, err := value.ParseColor4(s)
			if err != nil {
				return nil, false
			}
			if info.Kind == value.KindColor3 {
				return c.ToColor3(), true
			}
			return c, true
		}
	}
	v, err := value.FromWire(raw, info.Kind)
	if err != nil {
		return nil, false
	}
	return v, true
}

// frameValue is the key value following prev for a raw keyframe value.
// Empty or unparsable values hold prev.
func frameValue(raw any, prev value.Value, info PropertyInfo) value.Value {
	if value.IsEmpty(raw) {
		return value.Clone(prev)
	}
	v, ok := convertKeyframe(raw, info)
	if !ok {
		return value.Clone(prev)
	}
	if !info.IsAdd {
		return v
	}
	switch p := prev.(type) {
	case value.Number:
		if d, ok := v.(value.Number); ok {
			return p + d
		}
	case value.Vector3:
		if d, ok := v.(value.Vector3); ok {
			return p.Add(d)
		}
	case value.Color3:
		if d, ok := v.(value.Color3); ok {
			return p.Add(d)
		}
	case value.Color4:
		if d, ok := v.(value.Color4); ok {
			return p.Add(d)
		}
	}
	return v
}
