package ring

import "math"

// Controls is one heat/load/rpm reading, each nominally in [0,1].
type Controls struct {
	Heat, Load, Rpm float64
}

func (c Controls) clamped() Controls {
	return Controls{clamp01(c.Heat), clamp01(c.Load), clamp01(c.Rpm)}
}

// Smoother eases the current controls toward their targets by 1/window per
// frame. Smoothed values never leave [0,1].
type Smoother struct {
	Controls
	k float64
}

// NewSmoother starts at initial with the given window in frames (>= 1).
func NewSmoother(window int, initial Controls) Smoother {
	if window < 1 {
		window = 1
	}
	return Smoother{Controls: initial.clamped(), k: 1 / float64(window)}
}

// Update moves one frame toward target.
func (s *Smoother) Update(target Controls) {
	t := target.clamped()
	s.Heat = mix(s.Heat, t.Heat, s.k)
	s.Load = mix(s.Load, t.Load, s.k)
	s.Rpm = mix(s.Rpm, t.Rpm, s.k)
	s.Controls = s.Controls.clamped()
}

// Coefficients are the per-frame values derived from the smoothed controls.
// They are recomputed every frame and never persisted.
type Coefficients struct {
	InvHeat, InvLoad, InvRpm float64
	RotationSpeed            float64 // elements per frame
	Entropy                  float64 // ignition threshold out of entropyDraw
	FadeRate                 float64
	IdleMix                  float64
}

// coefficients derives this frame's coefficients from c at the given frame rate.
func (o *Options) coefficients(c Controls, fps float64) Coefficients {
	k := Coefficients{
		InvHeat: 1 - c.Heat,
		InvLoad: 1 - c.Load,
		InvRpm:  1 - c.Rpm,
	}
	speed := o.RotationSpeed / fps * math.Pow(c.Rpm, o.RotationExponent)
	if o.RotationLoadDamping != 0 {
		speed *= 1 - o.RotationLoadDamping*k.InvLoad*k.InvLoad
	}
	k.RotationSpeed = finite(speed)
	k.Entropy = o.EntropyScale * c.Load * c.Load
	k.FadeRate = 0.5 * (0.25 + 0.75*c.Heat) * (0.5 + 0.5*c.Load)
	k.IdleMix = clamp01(o.IdleGain * math.Pow(k.InvHeat*k.InvLoad, o.IdleExponent))
	return k
}

// Rotation is a continuous offset that stays inside [0, span).
type Rotation struct {
	offset float64
	span   float64
}

// NewRotation returns a zero offset wrapping at span (> 0).
func NewRotation(span float64) Rotation {
	if !(span > 0) {
		span = 1
	}
	return Rotation{span: span}
}

// Advance adds delta and renormalizes.
func (r *Rotation) Advance(delta float64) {
	r.offset = wrap(r.offset+delta, r.span)
}

// Offset returns the current offset, always in [0, span).
func (r *Rotation) Offset() float64 { return r.offset }

// Span returns the wrap length.
func (r *Rotation) Span() float64 { return r.span }

// wrap brings v into [0, span) by whole spans, handling negatives and
// large excursions. Non-finite input resets to 0.
func wrap(v, span float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	if v >= 2*span || v < -span {
		v = math.Mod(v, span)
	}
	for v < 0 {
		v += span
	}
	for v >= span {
		v -= span
	}
	// v+span can round up to exactly span for tiny negative v
	if v >= span || v < 0 {
		return 0
	}
	return v
}

func mix(a, b, t float64) float64 {
	return a*(1-t) + b*t
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
