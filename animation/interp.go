package animation

import (
	"sort"

	"github.com/slighter12/twinscene-go/value"
)

// Evaluate returns the value of keys at frame. Frames outside the keyed range
// clamp to the first or last key.
func Evaluate(keys []Key, frame float64) value.Value {
	switch {
	case len(keys) == 0:
		return value.Void{}
	case frame <= keys[0].Frame:
		return keys[0].Value
	case frame >= keys[len(keys)-1].Frame:
		return keys[len(keys)-1].Value
	}
	i := sort.Search(len(keys), func(i int) bool { return keys[i].Frame > frame })
	a, b := keys[i-1], keys[i]
	span := b.Frame - a.Frame
	if span <= 0 {
		return b.Value
	}
	return Interpolate(a.Value, b.Value, float32((frame-a.Frame)/span))
}

// Interpolate blends a towards b. Numbers, vectors, colours and sizes are
// linear, quaternions are normalised-linear and everything else steps at
// t = 1.
func Interpolate(a, b value.Value, t float32) value.Value {
	if t <= 0 {
		return a
	}
	if t >= 1 {
		return b
	}
	lerp := func(x, y float32) float32 { return x + (y-x)*t }

	switch x := a.(type) {
	case value.Number:
		if y, ok := b.(value.Number); ok {
			return x + (y-x)*value.Number(t)
		}
	case value.Vector2:
		if y, ok := b.(value.Vector2); ok {
			return value.Vector2{X: lerp(x.X, y.X), Y: lerp(x.Y, y.Y)}
		}
	case value.Vector3:
		if y, ok := b.(value.Vector3); ok {
			return value.Vec3(lerp(x.X, y.X), lerp(x.Y, y.Y), lerp(x.Z, y.Z))
		}
	case value.Color3:
		if y, ok := b.(value.Color3); ok {
			return value.Color3{R: lerp(x.R, y.R), G: lerp(x.G, y.G), B: lerp(x.B, y.B)}
		}
	case value.Color4:
		if y, ok := b.(value.Color4); ok {
			return value.Color4{R: lerp(x.R, y.R), G: lerp(x.G, y.G), B: lerp(x.B, y.B), A: lerp(x.A, y.A)}
		}
	case value.Size:
		if y, ok := b.(value.Size); ok {
			return value.Size{Width: lerp(x.Width, y.Width), Height: lerp(x.Height, y.Height)}
		}
	case value.Quaternion:
		if y, ok := b.(value.Quaternion); ok {
			if x.X*y.X+x.Y*y.Y+x.Z*y.Z+x.W*y.W < 0 {
				y = value.Quaternion{X: -y.X, Y: -y.Y, Z: -y.Z, W: -y.W}
			}
			return value.Quaternion{X: lerp(x.X, y.X), Y: lerp(x.Y, y.Y), Z: lerp(x.Z, y.Z), W: lerp(x.W, y.W)}.Normalize()
		}
	}
	return a
}
