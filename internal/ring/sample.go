package ring

import (
	"math"

	"github.com/coreman2200/emberring/internal/render"
)

// sampleBase reads the base field at element i shifted by offset, blending
// the two nearest elements for fractional offsets.
func sampleBase(b *BaseField, i int, offset float64) render.Color {
	n := b.Len()
	pos := float64(i) + offset
	whole := math.Floor(pos)
	frac := pos - whole
	i0 := mod(int(whole), n)
	c := b.px[i0]
	if frac != 0 {
		c = render.Mix(c, b.px[mod(i0+1, n)], frac)
	}
	return c
}

// idleHue sweeps the hue wheel once around the ring, shifted by offset.
func idleHue(i, n int, offset float64) render.Color {
	return render.Hue((float64(i) + offset) / float64(n))
}

func mod(a, n int) int {
	a %= n
	if a < 0 {
		a += n
	}
	return a
}
