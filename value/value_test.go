package value

import (
	"encoding/json"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfClassifiesRuntimeValues(t *testing.T) {
	vec := Vec3(1, 2, 3)
	var nilVec *Vector3
	type custom struct{ A int }

	cases := []struct {
		name string
		in   any
		want Kind
	}{
		{"float", 1.5, KindNumber},
		{"int", 3, KindNumber},
		{"float32", float32(2), KindNumber},
		{"string", "a", KindString},
		{"bool", true, KindBoolean},
		{"nil", nil, KindNull},
		{"nil pointer", nilVec, KindNull},
		{"vector3", vec, KindVector3},
		{"vector3 pointer", &vec, KindVector3},
		{"quaternion", Quaternion{W: 1}, KindQuaternion},
		{"matrix", IdentityMatrix(), KindMatrix},
		{"color3", Color3{}, KindColor3},
		{"color4", Color4{}, KindColor4},
		{"vector2", Vector2{}, KindVector2},
		{"size", Size{}, KindSize},
		{"void", Void{}, KindVoid},
		{"struct", custom{A: 1}, KindUnknown},
		{"map", map[string]any{"x": 1}, KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.in))
		})
	}
}

func TestCloneIsIndependentForStructuredKinds(t *testing.T) {
	originals := []Value{
		Vector2{X: 1, Y: 2},
		Vec3(1, 2, 3),
		Quaternion{X: 0.1, Y: 0.2, Z: 0.3, W: 0.9},
		IdentityMatrix(),
		Color3{R: 0.1, G: 0.2, B: 0.3},
		Color4{R: 0.1, G: 0.2, B: 0.3, A: 0.4},
		Size{Width: 4, Height: 5},
	}
	for _, orig := range originals {
		t.Run(orig.Kind().String(), func(t *testing.T) {
			snapshot := orig
			clone := Clone(orig)
			require.True(t, Equal(orig, clone))

			mutated := mutate(t, clone)
			assert.False(t, Equal(mutated, orig))
			assert.True(t, Equal(snapshot, orig))
		})
	}
}

func mutate(t *testing.T, v Value) Value {
	t.Helper()
	switch x := v.(type) {
	case Vector2:
		x.X += 10
		return x
	case Vector3:
		x.X += 10
		return x
	case Quaternion:
		x.W += 10
		return x
	case Matrix:
		x[5] += 10
		return x
	case Color3:
		x.R += 10
		return x
	case Color4:
		x.A += 10
		return x
	case Size:
		x.Width += 10
		return x
	}
	t.Fatalf("unexpected kind %s", v.Kind())
	return nil
}

func TestEqual(t *testing.T) {
	assert.True(t, Equal(Number(1), Number(1)))
	assert.False(t, Equal(Number(1), Number(2)))
	assert.False(t, Equal(Number(0), String("0")))
	assert.False(t, Equal(Null{}, Void{}))
	assert.True(t, Equal(nil, Void{}))
	assert.True(t, Equal(Vec3(1, 2, 3), Vec3(1, 2, 3)))
	assert.False(t, Equal(Color3{R: 1}, Color4{R: 1}))

	ptr := &struct{}{}
	assert.True(t, Equal(Unknown{V: ptr}, Unknown{V: ptr}))
	assert.False(t, Equal(Unknown{V: map[string]int{}}, Unknown{V: map[string]int{}}))
}

func TestWireRoundTripUsesExplicitKind(t *testing.T) {
	values := []Value{
		Number(2.5),
		String("x"),
		Boolean(true),
		Null{},
		Vector2{X: 1, Y: 2},
		Vec3(1, 2, 3),
		Quaternion{X: 0, Y: 0, Z: 0, W: 1},
		IdentityMatrix(),
		Color3{R: 0.5, G: 0.25, B: 1},
		Color4{R: 0.5, G: 0.25, B: 1, A: 0.5},
		Size{Width: 3, Height: 4},
	}
	for _, v := range values {
		t.Run(v.Kind().String(), func(t *testing.T) {
			raw, err := json.Marshal(ToWire(v))
			require.NoError(t, err)

			var decoded any
			require.NoError(t, json.Unmarshal(raw, &decoded))

			got, err := FromWire(decoded, v.Kind())
			require.NoError(t, err)
			assert.True(t, Equal(v, got), "got %#v", got)
		})
	}
}

func TestFromWireDoesNotInferShape(t *testing.T) {
	data := map[string]any{"x": 1.0, "y": 2.0, "z": 3.0}

	v2, err := FromWire(data, KindVector2)
	require.NoError(t, err)
	assert.Equal(t, Vector2{X: 1, Y: 2}, v2)

	q, err := FromWire(data, KindQuaternion)
	require.NoError(t, err)
	assert.Equal(t, Quaternion{X: 1, Y: 2, Z: 3}, q)

	_, err = FromWire("nope", KindVector3)
	assert.Error(t, err)
}

func TestFromWireScalarKindMustMatch(t *testing.T) {
	n, err := FromWire(json.Number("2.5"), KindNumber)
	require.NoError(t, err)
	assert.Equal(t, Number(2.5), n)

	_, err = FromWire("abc", KindNumber)
	assert.Error(t, err)
	_, err = FromWire(1.0, KindString)
	assert.Error(t, err)
	_, err = FromWire("true", KindBoolean)
	assert.Error(t, err)
	_, err = FromWire(nil, KindNumber)
	assert.Error(t, err)

	var typed Typed
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"number","value":"abc"}`), &typed))
}

func TestTypedJSON(t *testing.T) {
	raw, err := json.Marshal(Typed{Value: Color4{R: 1, A: 1}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"color4","value":{"r":1,"g":0,"b":0,"a":1}}`, string(raw))

	var back Typed
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, Color4{R: 1, A: 1}, back.Value)
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor4("#ff000080")
	require.NoError(t, err)
	assert.InDelta(t, 1, c.R, 1e-6)
	assert.InDelta(t, 128.0/255, c.A, 1e-6)

	c, err = ParseColor4("rgba(255, 0, 51, 0.5)")
	require.NoError(t, err)
	assert.InDelta(t, 1, c.R, 1e-6)
	assert.InDelta(t, 0.2, c.B, 1e-6)
	assert.InDelta(t, 0.5, c.A, 1e-6)

	c3, err := ParseColor3("rgb(0,255,0)")
	require.NoError(t, err)
	assert.Equal(t, Color3{G: 1}, c3)
	assert.Equal(t, "#00ff00", c3.Hex())

	_, err = ParseColor4("#12")
	assert.Error(t, err)
}

func TestQuaternionEulerRoundTrip(t *testing.T) {
	euler := Vec3(0.3, -0.7, 1.1)
	got := QuaternionFromEuler(euler).ToEuler()
	assert.InDelta(t, euler.X, got.X, 1e-4)
	assert.InDelta(t, euler.Y, got.Y, 1e-4)
	assert.InDelta(t, euler.Z, got.Z, 1e-4)

	locked := QuaternionFromEuler(Vec3(math32.Pi/2, 0, 0)).ToEuler()
	assert.InDelta(t, math32.Pi/2, locked.X, 1e-3)
	assert.InDelta(t, 0, locked.Z, 1e-6)
}

func TestToNumber(t *testing.T) {
	n, ok := ToNumber("  4.5 ")
	assert.True(t, ok)
	assert.Equal(t, 4.5, n)

	_, ok = ToNumber("")
	assert.False(t, ok)
	_, ok = ToNumber("abc")
	assert.False(t, ok)
	_, ok = ToNumber(nil)
	assert.False(t, ok)

	assert.True(t, IsEmpty(""))
	assert.True(t, IsEmpty(nil))
	assert.False(t, IsEmpty(0.0))
}

func TestKindText(t *testing.T) {
	for k := KindNumber; k <= KindUnknown; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("colour")
	assert.Error(t, err)
	assert.True(t, KindColor3.Structured())
	assert.False(t, KindString.Structured())
}
