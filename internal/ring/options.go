package ring

import (
	"github.com/coreman2200/emberring/internal/gamma"
	"github.com/coreman2200/emberring/internal/render"
)

// Palette defaults, 0..255 scale.
var (
	DefaultBaseColor      = render.Color{R: 0, G: 0, B: 0}
	DefaultCoolColor      = render.Color{R: 0, G: 95, B: 127}
	DefaultHotColor       = render.Color{R: 191, G: 31, B: 0}
	DefaultFlameCoolColor = render.Color{R: 0, G: 0, B: 255}
	DefaultFlameHotColor  = render.Color{R: 255, G: 127, B: 0}
)

const (
	DefaultSmoothing     = 64
	DefaultInitial       = 0.5
	DefaultFrameRate     = 60.0
	DefaultRotationSpeed = 8.0 // elements per second at full rpm
	DefaultEntropyScale  = 99000.0
	DefaultDecayBase     = 0.9

	// MinFrameRate is the floor applied to caller supplied frame rates.
	MinFrameRate = 1.0
)

// Options configures a Ring. Start from DefaultOptions; the zero value of
// most fields is meaningful (a black base color, no idle blend).
type Options struct {
	// Elements is the ring length. Zero is rejected by New.
	Elements int
	// Period is the banding repeat length. <= 0 derives max(8, min(32, Elements))/2.
	Period int
	// Smoothing is the control smoothing window in frames; clamped to >= 1.
	Smoothing int
	// Initial seeds heat, load and rpm before the first frame.
	Initial float64

	BaseColor      render.Color
	CoolColor      render.Color
	HotColor       render.Color
	FlameCoolColor render.Color
	FlameHotColor  render.Color

	// Brightness is the global output scale.
	Brightness float64
	// IdleBrightness dims the sampled color at zero load; 1 disables.
	IdleBrightness float64

	// IdleBlend mixes the idle hue sweep over the base sample by idleMix.
	IdleBlend bool
	// IdleDynamic replaces base field sampling with the idle hue sweep.
	IdleDynamic bool
	// idleMix = clamp01(IdleGain * ((1-heat)*(1-load))^IdleExponent)
	IdleGain     float64
	IdleExponent float64
	// IdleSpeedup scales the rotation speed for the idle hue phase. Any
	// positive value is continuous; the phase wraps once around the ring.
	IdleSpeedup float64

	// rotationSpeed = RotationSpeed/fps * rpm^RotationExponent * (1 - RotationLoadDamping*(1-load)^2)
	RotationSpeed       float64
	RotationExponent    float64
	RotationLoadDamping float64

	// DimSpeedup scales the rotation speed for the rotation dimming band,
	// DimStrength scales its weight (times rpm). Zero strength disables it.
	DimSpeedup  float64
	DimStrength float64

	// EntropyScale is the ignition entropy at full load (entropy = EntropyScale*load^2).
	EntropyScale float64
	// DecayBase is the per-frame flame decay multiplier before entropy damping.
	DecayBase float64
	// FlameBaseGain brightens the sample used as the cool end of a flame.
	FlameBaseGain float64
	// FlameCoolMix pulls that cool end toward FlameCoolColor.
	FlameCoolMix float64

	// Jitter selects the banding texture source.
	Jitter JitterMode
	// Gamma is the output table; nil uses gamma.Default. Use gamma.Linear to disable the curve.
	Gamma *gamma.Table
	// Limiter is an optional power limiter applied before quantization.
	Limiter render.Limiter

	// FrameRate is the initial average frame rate. Zero means DefaultFrameRate;
	// other values are floored like SetFrameRate.
	FrameRate float64
}

// DefaultOptions returns the stock ember ring tuning for n elements.
func DefaultOptions(n int) Options {
	return Options{
		Elements:         n,
		Smoothing:        DefaultSmoothing,
		Initial:          DefaultInitial,
		BaseColor:        DefaultBaseColor,
		CoolColor:        DefaultCoolColor,
		HotColor:         DefaultHotColor,
		FlameCoolColor:   DefaultFlameCoolColor,
		FlameHotColor:    DefaultFlameHotColor,
		Brightness:       1,
		IdleBrightness:   1,
		IdleGain:         1,
		IdleExponent:     3,
		IdleSpeedup:      1,
		RotationSpeed:    DefaultRotationSpeed,
		RotationExponent: 2,
		DimSpeedup:       1,
		DimStrength:      1,
		EntropyScale:     DefaultEntropyScale,
		DecayBase:        DefaultDecayBase,
		FlameBaseGain:    2,
		Jitter:           JitterRandom,
		FrameRate:        DefaultFrameRate,
	}
}

// derivedPeriod follows the firmware: clamp to [8,32] then halve.
func derivedPeriod(n int) int {
	return max(8, min(32, n)) / 2
}

// normalized returns a copy with division guards applied.
func (o Options) normalized() Options {
	if o.Period <= 0 {
		o.Period = derivedPeriod(o.Elements)
	}
	if o.Smoothing < 1 {
		o.Smoothing = 1
	}
	if o.FrameRate == 0 {
		o.FrameRate = DefaultFrameRate
	}
	o.FrameRate = floorFrameRate(o.FrameRate)
	if o.Gamma == nil {
		o.Gamma = gamma.Default
	}
	if o.DecayBase < 0 {
		o.DecayBase = 0
	}
	if o.DecayBase > 1 {
		o.DecayBase = 1
	}
	o.Initial = clamp01(o.Initial)
	return o
}

// floorFrameRate raises rates below MinFrameRate, NaN included.
func floorFrameRate(fps float64) float64 {
	if !(fps >= MinFrameRate) {
		return MinFrameRate
	}
	return fps
}

func clamp01(x float64) float64 {
	if x > 0 {
		if x > 1 {
			return 1
		}
		return x
	}
	return 0
}
