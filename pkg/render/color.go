package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// Transparent is the keyword accepted by ParseHexColor for a fully
// transparent clear color
const Transparent = "transparent"

// ParseHexColor parses "#rgb", "#rrggbb", "#rrggbbaa" or "transparent".
// Colors without an alpha component are opaque.
func ParseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, Transparent) {
		return color.NRGBA{}, nil
	}
	h := strings.TrimPrefix(s, "#")
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]}) + "ff"
	case 6:
		h += "ff"
	case 8:
	default:
		return color.NRGBA{}, fmt.Errorf("render: invalid color %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("render: invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}
