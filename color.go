package g2d

import (
	"image/color"
	"strconv"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/g2d/internal/batch"
)

// RGBA is a straight-alpha color with components in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// Common colors.
var (
	Transparent = RGBA{}
	Black       = RGBA{A: 1}
	White       = RGBA{R: 1, G: 1, B: 1, A: 1}
)

// RGB returns an opaque color.
func RGB(r, g, b float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: 1}
}

// RGBAf returns a color from straight-alpha components.
func RGBAf(r, g, b, a float64) RGBA {
	return RGBA{R: r, G: g, B: b, A: a}
}

// FromColor converts a color.Color.
func FromColor(c color.Color) RGBA {
	r, g, b, a := c.RGBA()
	if a == 0 {
		return Transparent
	}
	// color.Color is premultiplied.
	fa := float64(a)
	return RGBA{R: float64(r) / fa, G: float64(g) / fa, B: float64(b) / fa, A: fa / 0xFFFF}
}

// Hex parses "RGB", "RGBA", "RRGGBB" or "RRGGBBAA", with or without a
// leading '#'. Malformed input yields opaque black.
func Hex(hex string) RGBA {
	if hex != "" && hex[0] == '#' {
		hex = hex[1:]
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Black
	}
	n := uint32(v)
	nib := func(shift uint) float64 { return float64((n>>shift)&0xF*17) / 255 }
	byt := func(shift uint) float64 { return float64((n>>shift)&0xFF) / 255 }
	switch len(hex) {
	case 3:
		return RGBA{R: nib(8), G: nib(4), B: nib(0), A: 1}
	case 4:
		return RGBA{R: nib(12), G: nib(8), B: nib(4), A: nib(0)}
	case 6:
		return RGBA{R: byt(16), G: byt(8), B: byt(0), A: 1}
	case 8:
		return RGBA{R: byt(24), G: byt(16), B: byt(8), A: byt(0)}
	default:
		return Black
	}
}

// Premultiply returns the color with R, G and B scaled by A.
func (c RGBA) Premultiply() RGBA {
	return RGBA{R: c.R * c.A, G: c.G * c.A, B: c.B * c.A, A: c.A}
}

// WithAlpha returns c with its alpha replaced.
func (c RGBA) WithAlpha(a float64) RGBA {
	c.A = a
	return c
}

// Lerp interpolates between c and other.
func (c RGBA) Lerp(other RGBA, t float64) RGBA {
	return RGBA{
		R: c.R + (other.R-c.R)*t,
		G: c.G + (other.G-c.G)*t,
		B: c.B + (other.B-c.B)*t,
		A: c.A + (other.A-c.A)*t,
	}
}

// vertex returns the premultiplied, clamped vertex color.
func (c RGBA) vertex() batch.Color {
	return batch.ColorFrom(c.R, c.G, c.B, c.A)
}

// clearValue returns the premultiplied clear color for the render pass.
func (c RGBA) clearValue() gputypes.Color {
	p := c.vertex()
	return gputypes.Color{R: float64(p.R), G: float64(p.G), B: float64(p.B), A: float64(p.A)}
}
