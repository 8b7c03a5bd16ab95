// Package value classifies, copies, compares and serialises the property
// values carried by scene nodes.
//
// Value is a closed sum type: every kind has exactly one Go type, and the
// helpers in this package switch exhaustively over all of them.
package value

import (
	"github.com/chewxy/math32"
)

// Value is implemented only by the types declared in this package.
type Value interface {
	Kind() Kind
	sealed()
}

type (
	Number  float64
	String  string
	Boolean bool

	// Null is an explicitly empty value, such as a nil pointer property.
	Null struct{}
	// Void marks a property that does not exist on the target.
	Void struct{}
	// Unknown wraps any other runtime value with identity semantics.
	Unknown struct{ V any }
)

type Vector2 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
}

type Vector3 struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
}

type Quaternion struct {
	X float32 `json:"x"`
	Y float32 `json:"y"`
	Z float32 `json:"z"`
	W float32 `json:"w"`
}

// Matrix is a column-major 4x4 matrix.
type Matrix [16]float32

type Color3 struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
}

type Color4 struct {
	R float32 `json:"r"`
	G float32 `json:"g"`
	B float32 `json:"b"`
	A float32 `json:"a"`
}

type Size struct {
	Width  float32 `json:"width"`
	Height float32 `json:"height"`
}

func (Number) Kind() Kind     { return KindNumber }
func (String) Kind() Kind     { return KindString }
func (Boolean) Kind() Kind    { return KindBoolean }
func (Null) Kind() Kind       { return KindNull }
func (Void) Kind() Kind       { return KindVoid }
func (Unknown) Kind() Kind    { return KindUnknown }
func (Vector2) Kind() Kind    { return KindVector2 }
func (Vector3) Kind() Kind    { return KindVector3 }
func (Quaternion) Kind() Kind { return KindQuaternion }
func (Matrix) Kind() Kind     { return KindMatrix }
func (Color3) Kind() Kind     { return KindColor3 }
func (Color4) Kind() Kind     { return KindColor4 }
func (Size) Kind() Kind       { return KindSize }

func (Number) sealed()     {}
func (String) sealed()     {}
func (Boolean) sealed()    {}
func (Null) sealed()       {}
func (Void) sealed()       {}
func (Unknown) sealed()    {}
func (Vector2) sealed()    {}
func (Vector3) sealed()    {}
func (Quaternion) sealed() {}
func (Matrix) sealed()     {}
func (Color3) sealed()     {}
func (Color4) sealed()     {}
func (Size) sealed()       {}

// Vec3 returns a new Vector3.
func Vec3(x, y, z float32) Vector3 {
	return Vector3{X: x, Y: y, Z: z}
}

func (v Vector3) Add(o Vector3) Vector3 {
	return Vector3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

func (v Vector3) Mul(o Vector3) Vector3 {
	return Vector3{X: v.X * o.X, Y: v.Y * o.Y, Z: v.Z * o.Z}
}

func (v Vector3) Scale(s float32) Vector3 {
	return Vector3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

func (v Vector3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// ToRadians converts a vector of degrees into radians.
func (v Vector3) ToRadians() Vector3 {
	return v.Scale(math32.Pi / 180)
}

// ToDegrees converts a vector of radians into degrees.
func (v Vector3) ToDegrees() Vector3 {
	return v.Scale(180 / math32.Pi)
}

func (v Vector2) Add(o Vector2) Vector2 {
	return Vector2{X: v.X + o.X, Y: v.Y + o.Y}
}

func (c Color3) Add(o Color3) Color3 {
	return Color3{R: c.R + o.R, G: c.G + o.G, B: c.B + o.B}
}

func (c Color4) Add(o Color4) Color4 {
	return Color4{R: c.R + o.R, G: c.G + o.G, B: c.B + o.B, A: c.A + o.A}
}

// ToColor4 widens the colour with the given alpha.
func (c Color3) ToColor4(alpha float32) Color4 {
	return Color4{R: c.R, G: c.G, B: c.B, A: alpha}
}

// ToColor3 drops the alpha channel.
func (c Color4) ToColor3() Color3 {
	return Color3{R: c.R, G: c.G, B: c.B}
}

// IdentityMatrix returns the 4x4 identity.
func IdentityMatrix() Matrix {
	return Matrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// QuaternionFromEuler builds a rotation from Euler angles (radians) applied
// in yaw (Y), pitch (X), roll (Z) order.
func QuaternionFromEuler(e Vector3) Quaternion {
	halfRoll := e.Z * 0.5
	halfPitch := e.X * 0.5
	halfYaw := e.Y * 0.5

	sinRoll, cosRoll := math32.Sincos(halfRoll)
	sinPitch, cosPitch := math32.Sincos(halfPitch)
	sinYaw, cosYaw := math32.Sincos(halfYaw)

	return Quaternion{
		X: cosYaw*sinPitch*cosRoll + sinYaw*cosPitch*sinRoll,
		Y: sinYaw*cosPitch*cosRoll - cosYaw*sinPitch*sinRoll,
		Z: cosYaw*cosPitch*sinRoll - sinYaw*sinPitch*cosRoll,
		W: cosYaw*cosPitch*cosRoll + sinYaw*sinPitch*sinRoll,
	}
}

// ToEuler returns the Euler angles (radians) of the rotation, the inverse of
// QuaternionFromEuler. Gimbal-locked rotations collapse roll into yaw.
func (q Quaternion) ToEuler() Vector3 {
	const limit = 0.4999999

	zAxisY := q.Y*q.Z - q.X*q.W
	switch {
	case zAxisY < -limit:
		return Vector3{X: math32.Pi / 2, Y: 2 * math32.Atan2(q.Y, q.W)}
	case zAxisY > limit:
		return Vector3{X: -math32.Pi / 2, Y: 2 * math32.Atan2(q.Y, q.W)}
	}

	sqw, sqz, sqx, sqy := q.W*q.W, q.Z*q.Z, q.X*q.X, q.Y*q.Y
	return Vector3{
		X: math32.Asin(-2 * zAxisY),
		Y: math32.Atan2(2*(q.Z*q.X+q.Y*q.W), sqz-sqx-sqy+sqw),
		Z: math32.Atan2(2*(q.X*q.Y+q.Z*q.W), -sqz-sqx+sqy+sqw),
	}
}

// Normalize returns the unit quaternion, or the identity for a zero one.
func (q Quaternion) Normalize() Quaternion {
	length := math32.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
	if length == 0 {
		return Quaternion{W: 1}
	}
	inv := 1 / length
	return Quaternion{X: q.X * inv, Y: q.Y * inv, Z: q.Z * inv, W: q.W * inv}
}
