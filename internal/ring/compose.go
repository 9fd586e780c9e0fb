package ring

import (
	"math"

	"github.com/coreman2200/emberring/internal/render"
)

// compose fills r.out with this frame's colors, then limits and clamps them.
func (r *Ring) compose(idleDynamic bool, brightness float64) {
	o := &r.opts
	c := r.ctl.Controls
	k := r.coef
	n := r.n
	offset := r.rot.Offset()
	idleOffset := r.idlePhase.Offset()
	dimOffset := r.dimPhase.Offset()
	dimStrength := c.Rpm * o.DimStrength
	idleScale := mix(o.IdleBrightness, 1, c.Load)
	flameMix := 1 - k.InvHeat*k.InvHeat
	period := float64(o.Period)

	for i := 0; i < n; i++ {
		var px render.Color
		if idleDynamic {
			px = idleHue(i, n, idleOffset)
		} else {
			px = sampleBase(&r.base, i, offset)
		}
		flameBase := px.Scale(o.FlameBaseGain)
		if o.FlameCoolMix != 0 {
			flameBase = render.Mix(flameBase, o.FlameCoolColor, o.FlameCoolMix)
		}

		if o.IdleBlend && !idleDynamic && k.IdleMix > 0 {
			px = render.Mix(px, idleHue(i, n, idleOffset), k.IdleMix)
		}
		if idleScale != 1 {
			px = px.Scale(idleScale)
		}
		px = render.Mix(px, o.HotColor, c.Heat)

		if f := r.flames.force[i]; f > 0 {
			dim := 1 - 0.75*r.src.Float64()*c.Load*c.Load
			flame := render.Mix(flameBase, o.FlameHotColor, flameMix)
			px = render.Mix(px, flame, FlameIntensity(f, c.Heat, dim))
		}

		if dimStrength > 0 {
			d := (1 + math.Cos(2*math.Pi*(float64(i)+dimOffset)/period)) / 2
			if d > 0 {
				d *= jitterScale(r.jitter.at(i, r.frame))
				px = render.Mix(px, o.BaseColor, d*dimStrength)
			}
		}

		if brightness != 1 {
			px = px.Scale(brightness)
		}
		r.out[i] = px
	}

	if o.Limiter.Enabled() {
		o.Limiter.Apply(r.out)
	}
	for i := range r.out {
		r.out[i] = r.out[i].Clamp()
	}
}
