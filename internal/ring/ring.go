// Package ring animates an addressable light ring from three slowly varying
// telemetry readings: heat, load and rotation speed.
//
// Each Step smooths the readings, advances a stochastic flame field and a
// banded ambient field, rotates the pattern at sub-element precision and
// composes one gamma corrected RGB triple per element.
//
// A Ring is driven from a single goroutine. SetSensors, SetFrameRate,
// SetBrightness and SetIdleDynamic may be called from any goroutine; their
// values are sampled once at the start of the next Step.
package ring

import (
	"errors"
	"math"
	"sync/atomic"

	"github.com/coreman2200/emberring/internal/render"
)

// ErrNoElements is returned by New for an empty ring.
var ErrNoElements = errors.New("ring: element count must be positive")

// Ring is the animation state of one physical ring.
type Ring struct {
	opts Options
	n    int
	src  Source

	jitter jitter

	// written by collaborators between frames
	target     [3]atomic.Uint64
	fps        atomic.Uint64
	brightness atomic.Uint64
	idle       atomic.Bool

	ctl    Smoother
	coef   Coefficients
	rot    Rotation
	flames FlameField
	base   BaseField
	frame  uint64

	// idle hue and dim band phases, each wrapped at its own repeat length
	idlePhase Rotation
	dimPhase  Rotation

	out []render.Color
}

// New builds a ring. A nil src is replaced by a source seeded with 1.
func New(opts Options, src Source) (*Ring, error) {
	if opts.Elements <= 0 {
		return nil, ErrNoElements
	}
	if src == nil {
		src = NewSource(1)
	}
	o := opts.normalized()
	initial := Controls{o.Initial, o.Initial, o.Initial}

	r := &Ring{
		opts:      o,
		n:         o.Elements,
		src:       src,
		ctl:       NewSmoother(o.Smoothing, initial),
		rot:       NewRotation(float64(o.Elements * o.Period)),
		idlePhase: NewRotation(float64(o.Elements)),
		dimPhase:  NewRotation(float64(o.Period)),
		flames:    NewFlameField(o.Elements),
		base:      NewBaseField(o.Elements, o.Period),
		out:       make([]render.Color, o.Elements),
	}
	r.jitter = newJitter(o.Jitter, src)
	r.SetSensors(initial.Heat, initial.Load, initial.Rpm)
	r.SetFrameRate(o.FrameRate)
	r.SetBrightness(o.Brightness)
	r.idle.Store(o.IdleDynamic)
	r.coef = r.opts.coefficients(r.ctl.Controls, o.FrameRate)
	return r, nil
}

// Len returns the element count.
func (r *Ring) Len() int { return r.n }

// Period returns the banding period in use.
func (r *Ring) Period() int { return r.opts.Period }

// SetSensors sets the targets the smoothed controls converge on.
// Values outside [0,1] are accepted and clamped when sampled.
func (r *Ring) SetSensors(heat, load, rpm float64) {
	r.target[0].Store(math.Float64bits(heat))
	r.target[1].Store(math.Float64bits(load))
	r.target[2].Store(math.Float64bits(rpm))
}

// Targets returns the current sensor targets.
func (r *Ring) Targets() Controls {
	return Controls{
		Heat: math.Float64frombits(r.target[0].Load()),
		Load: math.Float64frombits(r.target[1].Load()),
		Rpm:  math.Float64frombits(r.target[2].Load()),
	}
}

// SetFrameRate sets the average frame rate used to keep rotation time
// based. Rates below MinFrameRate (including NaN) are raised to it.
func (r *Ring) SetFrameRate(fps float64) {
	r.fps.Store(math.Float64bits(floorFrameRate(fps)))
}

// FrameRate returns the frame rate the next Step will use.
func (r *Ring) FrameRate() float64 {
	return math.Float64frombits(r.fps.Load())
}

// SetBrightness sets the global output scale. Negative values become 0.
func (r *Ring) SetBrightness(b float64) {
	if !(b > 0) {
		b = 0
	}
	r.brightness.Store(math.Float64bits(b))
}

// Brightness returns the global output scale.
func (r *Ring) Brightness() float64 {
	return math.Float64frombits(r.brightness.Load())
}

// SetIdleDynamic switches between base field sampling and the idle hue sweep.
func (r *Ring) SetIdleDynamic(on bool) { r.idle.Store(on) }

// IdleDynamic reports whether the idle hue sweep is active.
func (r *Ring) IdleDynamic() bool { return r.idle.Load() }

// Update advances the simulation one frame without rendering.
func (r *Ring) Update() {
	r.ctl.Update(r.Targets())
	r.coef = r.opts.coefficients(r.ctl.Controls, r.FrameRate())
	r.rot.Advance(r.coef.RotationSpeed)
	r.idlePhase.Advance(r.coef.RotationSpeed * r.opts.IdleSpeedup)
	r.dimPhase.Advance(r.coef.RotationSpeed * r.opts.DimSpeedup)

	r.flames.Trials(r.src, r.coef.Entropy)
	r.flames.Decay(r.opts.DecayBase, r.coef.Entropy)

	o := &r.opts
	r.base.Update(o.CoolColor, o.HotColor, o.BaseColor, r.ctl.Heat, r.coef.FadeRate, r.jitter, r.frame)
	r.frame++
}

// Step runs one full update and render pass and returns 3*Len bytes,
// R, G, B per element.
func (r *Ring) Step() []byte {
	dst := make([]byte, 3*r.n)
	r.StepInto(dst)
	return dst
}

// StepInto is Step writing into dst, which must hold at least 3*Len bytes.
func (r *Ring) StepInto(dst []byte) {
	r.Update()
	r.Render(dst)
}

// Render composes the current state into dst without advancing it.
func (r *Ring) Render(dst []byte) {
	r.compose(r.IdleDynamic(), r.Brightness())
	g := r.opts.Gamma
	for i, c := range r.out {
		dst[i*3+0] = g.Quantize(c.R)
		dst[i*3+1] = g.Quantize(c.G)
		dst[i*3+2] = g.Quantize(c.B)
	}
}

// Colors returns the last composed frame before quantization.
// The slice is owned by the ring and overwritten by the next Render.
func (r *Ring) Colors() []render.Color { return r.out }

// FlameForce returns element i's flame force.
func (r *Ring) FlameForce(i int) float64 { return r.flames.Force(i) }

// FlameActive reports whether any element is flickering.
func (r *Ring) FlameActive() bool { return r.flames.Active() }

// Snapshot is a read-only view of the per-frame state.
type Snapshot struct {
	Frame    uint64
	Controls Controls
	Coefficients
	Offset     float64
	OffsetSpan float64
	IdlePhase  float64 // [0, Elements)
	DimPhase   float64 // [0, Period)
	FrameRate  float64
}

// State returns the state after the last Update.
func (r *Ring) State() Snapshot {
	return Snapshot{
		Frame:        r.frame,
		Controls:     r.ctl.Controls,
		Coefficients: r.coef,
		Offset:       r.rot.Offset(),
		OffsetSpan:   r.rot.Span(),
		IdlePhase:    r.idlePhase.Offset(),
		DimPhase:     r.dimPhase.Offset(),
		FrameRate:    r.FrameRate(),
	}
}
