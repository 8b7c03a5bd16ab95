package value

import "fmt"

// Kind is the semantic shape of a property value. The order is stable:
// animation property descriptors and persisted documents refer to it.
type Kind int

const (
	KindNumber Kind = iota
	KindVector3
	KindQuaternion
	KindMatrix
	KindColor3
	KindVector2
	KindSize
	KindColor4
	KindString
	KindBoolean
	KindNull
	KindVoid
	KindUnknown
)

var kindNames = [...]string{
	KindNumber:     "number",
	KindVector3:    "vector3",
	KindQuaternion: "quaternion",
	KindMatrix:     "matrix",
	KindColor3:     "color3",
	KindVector2:    "vector2",
	KindSize:       "size",
	KindColor4:     "color4",
	KindString:     "string",
	KindBoolean:    "boolean",
	KindNull:       "null",
	KindVoid:       "void",
	KindUnknown:    "unknown",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// Structured reports whether values of the kind carry components that must
// be deep-copied.
func (k Kind) Structured() bool {
	switch k {
	case KindVector3, KindQuaternion, KindMatrix, KindColor3, KindVector2, KindSize, KindColor4:
		return true
	default:
		return false
	}
}

// ParseKind resolves a kind from its textual name.
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return KindUnknown, fmt.Errorf("unknown value kind %q", s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
