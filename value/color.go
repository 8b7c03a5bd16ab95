package value

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseColor4 parses "#rrggbb", "#rrggbbaa", "rgb(r, g, b)" and
// "rgba(r, g, b, a)". Channel values inside rgb() are 0-255; the rgba alpha
// is already 0-1. Missing channels default to 0 and a missing alpha to 1.
func ParseColor4(s string) (Color4, error) {
	s = strings.Join(strings.Fields(s), "")
	if strings.HasPrefix(s, "rgb") {
		open, closing := strings.IndexByte(s, '('), strings.IndexByte(s, ')')
		if open < 0 || closing < open {
			return Color4{}, fmt.Errorf("malformed colour %q", s)
		}
		channels := [4]float32{0, 0, 0, 1}
		for i, part := range strings.Split(s[open+1:closing], ",") {
			if i >= len(channels) {
				break
			}
			if part == "" {
				continue
			}
			f, err := strconv.ParseFloat(part, 32)
			if err != nil {
				return Color4{}, fmt.Errorf("malformed colour channel %q: %w", part, err)
			}
			channels[i] = float32(f)
		}
		return Color4{
			R: channels[0] / 255,
			G: channels[1] / 255,
			B: channels[2] / 255,
			A: channels[3],
		}, nil
	}
	return parseHex(s)
}

// ParseColor3 is ParseColor4 without the alpha channel.
func ParseColor3(s string) (Color3, error) {
	c, err := ParseColor4(s)
	if err != nil {
		return Color3{}, err
	}
	return c.ToColor3(), nil
}

func parseHex(s string) (Color4, error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color4{}, fmt.Errorf("malformed colour %q", s)
	}
	channels := [4]float32{0, 0, 0, 1}
	for i := 0; i*2 < len(hex); i++ {
		n, err := strconv.ParseUint(hex[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color4{}, fmt.Errorf("malformed colour %q: %w", s, err)
		}
		channels[i] = float32(n) / 255
	}
	return Color4{R: channels[0], G: channels[1], B: channels[2], A: channels[3]}, nil
}

// Hex formats the colour as "#rrggbb".
func (c Color3) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B))
}

// Hex formats the colour as "#rrggbbaa".
func (c Color4) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", channel(c.R), channel(c.G), channel(c.B), channel(c.A))
}

func channel(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 1:
		return 255
	}
	return uint8(f*255 + 0.5)
}
