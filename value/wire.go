package value

import (
	"encoding/json"
	"fmt"
)

// ToWire converts v into plain JSON-compatible data. Structured kinds become
// component maps; the kind itself is not recorded.
func ToWire(v Value) any {
	switch x := v.(type) {
	case nil, Null, Void:
		return nil
	case Number:
		return float64(x)
	case String:
		return string(x)
	case Boolean:
		return bool(x)
	case Unknown:
		return x.V
	case Vector2:
		return map[string]any{"x": f64(x.X), "y": f64(x.Y)}
	case Vector3:
		return map[string]any{"x": f64(x.X), "y": f64(x.Y), "z": f64(x.Z)}
	case Quaternion:
		return map[string]any{"x": f64(x.X), "y": f64(x.Y), "z": f64(x.Z), "w": f64(x.W)}
	case Matrix:
		m := make([]any, len(x))
		for i, f := range x {
			m[i] = f64(f)
		}
		return map[string]any{"m": m}
	case Color3:
		return map[string]any{"r": f64(x.R), "g": f64(x.G), "b": f64(x.B)}
	case Color4:
		return map[string]any{"r": f64(x.R), "g": f64(x.G), "b": f64(x.B), "a": f64(x.A)}
	case Size:
		return map[string]any{"width": f64(x.Width), "height": f64(x.Height)}
	}
	return nil
}

func f64(f float32) float64 {
	return float64(f)
}

// FromWire rebuilds a value of kind k from its wire form. The kind is never
// inferred from the data: {x,y,z} decodes as a Vector3 only when k says so.
// Missing components default to zero.
func FromWire(data any, k Kind) (Value, error) {
	switch k {
	case KindNull:
		return Null{}, nil
	case KindVoid:
		return Void{}, nil
	case KindUnknown:
		if data == nil {
			return Null{}, nil
		}
		return Unknown{V: data}, nil
	case KindNumber, KindString, KindBoolean:
		v := Of(data)
		if v.Kind() != k {
			return nil, fmt.Errorf("decode %s: got %s", k, v.Kind())
		}
		return v, nil
	}

	if v, ok := data.(Value); ok && v.Kind() == k {
		return v, nil
	}
	fields, err := componentMap(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", k, err)
	}
	c := func(name string) float32 {
		f, _ := ToNumber(fields[name])
		return float32(f)
	}

	switch k {
	case KindVector2:
		return Vector2{X: c("x"), Y: c("y")}, nil
	case KindVector3:
		return Vector3{X: c("x"), Y: c("y"), Z: c("z")}, nil
	case KindQuaternion:
		return Quaternion{X: c("x"), Y: c("y"), Z: c("z"), W: c("w")}, nil
	case KindColor3:
		return Color3{R: c("r"), G: c("g"), B: c("b")}, nil
	case KindColor4:
		return Color4{R: c("r"), G: c("g"), B: c("b"), A: c("a")}, nil
	case KindSize:
		return Size{Width: c("width"), Height: c("height")}, nil
	case KindMatrix:
		var m Matrix
		if entries, ok := fields["m"].([]any); ok {
			for i := 0; i < len(entries) && i < len(m); i++ {
				f, _ := ToNumber(entries[i])
				m[i] = float32(f)
			}
		}
		return m, nil
	}
	return nil, fmt.Errorf("decode: unsupported kind %s", k)
}

func componentMap(data any) (map[string]any, error) {
	switch x := data.(type) {
	case map[string]any:
		return x, nil
	case nil:
		return nil, fmt.Errorf("missing value")
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("expected component map: %w", err)
	}
	return fields, nil
}

// Typed is a value serialised together with its kind, so it can be rebuilt
// without a catalog.
type Typed struct {
	Value Value
}

type typedWire struct {
	Kind  Kind `json:"kind"`
	Value any  `json:"value,omitempty"`
}

func (t Typed) MarshalJSON() ([]byte, error) {
	v := t.Value
	if v == nil {
		v = Void{}
	}
	return json.Marshal(typedWire{Kind: v.Kind(), Value: ToWire(v)})
}

func (t *Typed) UnmarshalJSON(data []byte) error {
	var w typedWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	v, err := FromWire(w.Value, w.Kind)
	if err != nil {
		return err
	}
	t.Value = v
	return nil
}
