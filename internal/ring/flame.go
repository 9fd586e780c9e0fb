package ring

import "math"

const (
	// MaxFlameForce is the top of the flame force range; 0 is dark.
	MaxFlameForce = 200.0
	flameMid      = MaxFlameForce / 2

	// entropyDraw is the exclusive bound of an ignition trial draw.
	entropyDraw = 100000
	// entropyDamping scales how hard high entropy speeds up decay.
	entropyDamping = 150000.0
	// flameCutoff snaps forces at or below it to 0.
	flameCutoff = 1.0
)

// FlameField holds one flicker force per element. A flare rises from 200
// toward 100 (brightest) and then fades on toward 0.
type FlameField struct {
	force []float64
}

// NewFlameField returns n dark elements.
func NewFlameField(n int) FlameField {
	return FlameField{force: make([]float64, n)}
}

// Len returns the element count.
func (f *FlameField) Len() int { return len(f.force) }

// Force returns element i's current force.
func (f *FlameField) Force(i int) float64 { return f.force[i] }

// Active reports whether any element is flickering.
func (f *FlameField) Active() bool {
	for _, v := range f.force {
		if v > 0 {
			return true
		}
	}
	return false
}

// Ignite flares element i. A dark or fading element jumps to the far side
// of the peak; one already counting down from a flare is knocked most of the
// way back toward the peak so hot flicker cannot run away.
func (f *FlameField) Ignite(i int) {
	v := f.force[i]
	if v < flameMid {
		v = MaxFlameForce - v
	} else {
		v = flameMid + 0.25*(v-flameMid)
	}
	f.force[i] = clampForce(v)
}

// Trials runs len/8+1 ignition trials, each igniting a random element with
// probability entropy/entropyDraw.
func (f *FlameField) Trials(src Source, entropy float64) {
	n := len(f.force)
	for c := 0; c <= n/8; c++ {
		if float64(src.Intn(entropyDraw)) < entropy {
			f.Ignite(src.Intn(n))
		}
	}
}

// Decay fades every lit element by base, damped further as entropy rises,
// and extinguishes anything at or below the cutoff.
func (f *FlameField) Decay(base, entropy float64) {
	for i, v := range f.force {
		if v > 0 {
			k := base * (1 - (entropy/entropyDamping)*(v/MaxFlameForce))
			v = clampForce(v * math.Max(0, k))
		}
		if v <= flameCutoff {
			v = 0
		}
		f.force[i] = v
	}
}

// FlameIntensity maps a force onto a triangular pulse peaking at 100,
// scaled by heat and dim.
func FlameIntensity(force, heat, dim float64) float64 {
	if force <= 0 {
		return 0
	}
	return dim * (0.5 + 0.5*heat) * (flameMid - math.Abs(force-flameMid)) / flameMid
}

func clampForce(v float64) float64 {
	if v > 0 {
		if v > MaxFlameForce {
			return MaxFlameForce
		}
		return v
	}
	return 0
}
