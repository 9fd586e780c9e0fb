package ring

import (
	"math"

	"github.com/coreman2200/emberring/internal/render"
)

// BaseField is the slow ambient color of each element. Every frame it fades
// toward a heat-tinted target that is banded toward the base color.
type BaseField struct {
	px     []render.Color
	period int
}

// NewBaseField returns n dark elements banded every period elements.
func NewBaseField(n, period int) BaseField {
	if period < 1 {
		period = 1
	}
	return BaseField{px: make([]render.Color, n), period: period}
}

// Len returns the element count.
func (b *BaseField) Len() int { return len(b.px) }

// At returns element i's stored color.
func (b *BaseField) At(i int) render.Color { return b.px[i] }

// Banding returns element i's distance from its band center in [0,1].
func (b *BaseField) Banding(i int) float64 {
	half := float64(b.period) / 2
	return math.Abs(float64(i%b.period)-half) / half
}

// Update fades every element toward mix(cool, hot, heat) banded toward base.
// Band troughs fade slower than peaks so the pattern persists.
func (b *BaseField) Update(cool, hot, base render.Color, heat, fadeRate float64, j jitter, frame uint64) {
	target := render.Mix(cool, hot, heat)
	for i := range b.px {
		band := b.Banding(i) * jitterScale(j.at(i, frame))
		tgt := render.Mix(target, base, band)
		fade := clamp01(2 * fadeRate * (0.75 - 0.5*band))
		b.px[i] = render.Mix(b.px[i], tgt, fade)
	}
}
