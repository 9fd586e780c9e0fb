package render

import (
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Color is a linear RGB triple on the 0..255 scale.
// Channels are left unclamped while a frame is being composed.
type Color struct{ R, G, B float32 }

// Scale multiplies every channel by s.
func (c Color) Scale(s float64) Color {
	f := float32(s)
	return Color{c.R * f, c.G * f, c.B * f}
}

// Clamp limits every channel to [0,255]. NaN becomes 0.
func (c Color) Clamp() Color {
	return Color{clamp255(c.R), clamp255(c.G), clamp255(c.B)}
}

// Hex formats the clamped color as #rrggbb.
func (c Color) Hex() string {
	cc := c.Clamp()
	return colorful.Color{R: float64(cc.R) / 255, G: float64(cc.G) / 255, B: float64(cc.B) / 255}.Hex()
}

// Mix blends a toward b: a*(1-t) + b*t.
func Mix(a, b Color, t float64) Color {
	af := float32(1.0 - t)
	bf := float32(t)
	return Color{
		R: a.R*af + b.R*bf,
		G: a.G*af + b.G*bf,
		B: a.B*af + b.B*bf,
	}
}

// Hue returns a fully saturated, full value color for hue h given in turns.
// h outside [0,1) wraps.
func Hue(h float64) Color {
	h = math.Mod(h, 1)
	if h < 0 {
		h++
	}
	return fromColorful(colorful.Hsv(h*360, 1, 1))
}

// ParseHex reads a #rrggbb (or #rgb) string.
func ParseHex(s string) (Color, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Color{}, err
	}
	return fromColorful(c), nil
}

func fromColorful(c colorful.Color) Color {
	return Color{
		R: float32(c.R * 255),
		G: float32(c.G * 255),
		B: float32(c.B * 255),
	}
}

func clamp255(x float32) float32 {
	if x > 0 {
		if x > 255 {
			return 255
		}
		return x
	}
	// also catches NaN
	return 0
}
