package colors

import (
	"image/color"
	"math"
)

// Color4 is an RGBA color with float64 components in [0,1].
// Inside the renderer the channels are kept premultiplied by alpha, which is
// what color.RGBA stores, so blending needs no conversion.
type Color4 struct {
	R, G, B, A float64
}

// Transparent is the fully transparent color written for unmapped pixels.
func Transparent() Color4 {
	return Color4{}
}

func FromRGBA(c color.RGBA) Color4 {
	return Color4{
		R: float64(c.R) / 255.0,
		G: float64(c.G) / 255.0,
		B: float64(c.B) / 255.0,
		A: float64(c.A) / 255.0,
	}
}

// Add returns c + o (component-wise).
func (c Color4) Add(o Color4) Color4 {
	return Color4{c.R + o.R, c.G + o.G, c.B + o.B, c.A + o.A}
}

// Scale returns c * s (scalar).
func (c Color4) Scale(s float64) Color4 {
	return Color4{c.R * s, c.G * s, c.B * s, c.A * s}
}

// Mix returns lerp(c, o, t) = c*(1-t) + o*t.
func (c Color4) Mix(o Color4, t float64) Color4 {
	return Color4{
		R: c.R*(1-t) + o.R*t,
		G: c.G*(1-t) + o.G*t,
		B: c.B*(1-t) + o.B*t,
		A: c.A*(1-t) + o.A*t,
	}
}

// ToRGBA converts to 8-bit channels, rounding to nearest so that a value read
// from an 8-bit source round-trips exactly.
func (c Color4) ToRGBA() color.RGBA {
	return color.RGBA{
		R: to8bit(c.R),
		G: to8bit(c.G),
		B: to8bit(c.B),
		A: to8bit(c.A),
	}
}

// --- helpers ---

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func to8bit(x float64) uint8 {
	if math.IsNaN(x) {
		return 0
	}
	return uint8(math.Round(255.0 * clamp01(x)))
}
