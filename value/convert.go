package value

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
)

// Of tags a runtime value with its kind. Pointers are dereferenced, nil
// becomes Null and anything this package does not model is wrapped in
// Unknown.
func Of(v any) Value {
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return Null{}
		}
		if isModelled(rv.Elem().Type()) {
			return Of(rv.Elem().Interface())
		}
		return Unknown{V: v}
	}

	switch x := v.(type) {
	case nil:
		return Null{}
	case Value:
		return x
	case float64:
		return Number(x)
	case float32:
		return Number(x)
	case int:
		return Number(x)
	case int8:
		return Number(x)
	case int16:
		return Number(x)
	case int32:
		return Number(x)
	case int64:
		return Number(x)
	case uint:
		return Number(x)
	case uint8:
		return Number(x)
	case uint16:
		return Number(x)
	case uint32:
		return Number(x)
	case uint64:
		return Number(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return String(x)
		}
		return Number(f)
	case string:
		return String(x)
	case bool:
		return Boolean(x)
	case [16]float32:
		return Matrix(x)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return Number(rv.Float())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Number(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Number(rv.Uint())
	case reflect.String:
		return String(rv.String())
	case reflect.Bool:
		return Boolean(rv.Bool())
	}
	return Unknown{V: v}
}

// Classify returns the kind Of would assign to v.
func Classify(v any) Kind {
	return Of(v).Kind()
}

func isModelled(t reflect.Type) bool {
	if t.Implements(valueType) {
		return true
	}
	switch t.Kind() {
	case reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.String, reflect.Bool:
		return true
	}
	return false
}

var valueType = reflect.TypeOf((*Value)(nil)).Elem()

// Clone returns an independent copy of v. Scalars and Unknown are shared.
func Clone(v Value) Value {
	switch x := v.(type) {
	case nil:
		return Void{}
	case Number, String, Boolean, Null, Void, Unknown:
		return x
	case Vector2:
		return Vector2{X: x.X, Y: x.Y}
	case Vector3:
		return Vector3{X: x.X, Y: x.Y, Z: x.Z}
	case Quaternion:
		return Quaternion{X: x.X, Y: x.Y, Z: x.Z, W: x.W}
	case Matrix:
		var m Matrix
		copy(m[:], x[:])
		return m
	case Color3:
		return Color3{R: x.R, G: x.G, B: x.B}
	case Color4:
		return Color4{R: x.R, G: x.G, B: x.B, A: x.A}
	case Size:
		return Size{Width: x.Width, Height: x.Height}
	}
	return v
}

// Equal reports whether a and b have the same kind and the same contents.
// A nil Value is treated as Void.
func Equal(a, b Value) bool {
	if a == nil {
		a = Void{}
	}
	if b == nil {
		b = Void{}
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Number:
		return x == b.(Number)
	case String:
		return x == b.(String)
	case Boolean:
		return x == b.(Boolean)
	case Null, Void:
		return true
	case Unknown:
		return sameUnknown(x.V, b.(Unknown).V)
	case Vector2:
		return x == b.(Vector2)
	case Vector3:
		return x == b.(Vector3)
	case Quaternion:
		return x == b.(Quaternion)
	case Matrix:
		return x == b.(Matrix)
	case Color3:
		return x == b.(Color3)
	case Color4:
		return x == b.(Color4)
	case Size:
		return x == b.(Size)
	}
	return false
}

func sameUnknown(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// Native unwraps v into the Go value a property setter expects: float64,
// string, bool, nil or the structured type itself.
func Native(v Value) any {
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
	}
	return v
}

// ToNumber converts a loosely typed number, as found in decoded keyframe
// properties, into a float64. Empty input and unparsable strings report
// false.
func ToNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case nil:
		return 0, false
	case Number:
		return float64(x), true
	case String:
		return ToNumber(string(x))
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// IsEmpty reports whether a raw keyframe value is unset.
func IsEmpty(v any) bool {
	switch x := v.(type) {
	case nil, Null, Void:
		return true
	case string:
		return x == ""
	case String:
		return x == ""
	}
	return false
}
