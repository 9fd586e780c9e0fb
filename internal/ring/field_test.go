package ring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/emberring/internal/render"
)

// fixedSource replays canned draws.
type fixedSource struct {
	ints   []int
	floats []float64
}

func (s *fixedSource) Intn(n int) int {
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *fixedSource) Float64() float64 {
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func TestIgnite(t *testing.T) {
	tests := []struct {
		start, want float64
	}{
		{0, 200},
		{50, 150},
		{99.5, 100.5},
		{100, 100},
		{150, 112.5},
		{200, 125},
	}
	for _, tc := range tests {
		f := NewFlameField(1)
		f.force[0] = tc.start
		f.Ignite(0)
		assert.InDelta(t, tc.want, f.Force(0), 1e-12, "start %v", tc.start)
	}
}

func TestTrials(t *testing.T) {
	f := NewFlameField(16) // 16/8+1 = 3 trials
	src := &fixedSource{ints: []int{
		10, 3, // ignites element 3
		500,   // misses
		0, 9,  // ignites element 9
	}}
	f.Trials(src, 100)
	assert.Empty(t, src.ints, "all draws consumed")
	for i := 0; i < 16; i++ {
		want := 0.0
		if i == 3 || i == 9 {
			want = MaxFlameForce
		}
		assert.Equal(t, want, f.Force(i), "element %d", i)
	}

	// zero entropy never ignites
	f = NewFlameField(16)
	f.Trials(NewSource(7), 0)
	assert.False(t, f.Active())
}

func TestDecayTerminates(t *testing.T) {
	f := NewFlameField(8)
	for i := range f.force {
		f.Ignite(i)
	}
	require.True(t, f.Active())

	frames := 0
	for f.Active() {
		f.Decay(DefaultDecayBase, 0)
		frames++
		require.LessOrEqual(t, frames, 60, "flame should die out without ignition")
		for i := 0; i < f.Len(); i++ {
			v := f.Force(i)
			require.True(t, v == 0 || v > flameCutoff, "no ghost tails: %v", v)
		}
	}
	for i := 0; i < f.Len(); i++ {
		assert.Equal(t, 0.0, f.Force(i))
	}
}

func TestDecayDampsWithEntropy(t *testing.T) {
	calm := NewFlameField(1)
	busy := NewFlameField(1)
	calm.force[0], busy.force[0] = 150, 150
	calm.Decay(DefaultDecayBase, 0)
	busy.Decay(DefaultDecayBase, DefaultEntropyScale)
	assert.InDelta(t, 135, calm.Force(0), 1e-9)
	assert.Less(t, busy.Force(0), calm.Force(0))
	assert.GreaterOrEqual(t, busy.Force(0), 0.0)

	// a runaway entropy scale cannot push force negative
	wild := NewFlameField(1)
	wild.force[0] = 200
	wild.Decay(DefaultDecayBase, 10*entropyDamping)
	assert.Equal(t, 0.0, wild.Force(0))
}

func TestFlameIntensity(t *testing.T) {
	assert.Zero(t, FlameIntensity(0, 1, 1))
	assert.InDelta(t, 0, FlameIntensity(200, 1, 1), 1e-12)
	assert.InDelta(t, 1, FlameIntensity(100, 1, 1), 1e-12)
	assert.InDelta(t, 0.5, FlameIntensity(100, 0, 1), 1e-12)
	assert.InDelta(t, 0.25, FlameIntensity(150, 0, 1), 1e-12)
	assert.InDelta(t, FlameIntensity(50, 0.3, 0.8), FlameIntensity(150, 0.3, 0.8), 1e-12, "triangular about 100")
}

func TestBanding(t *testing.T) {
	b := NewBaseField(16, 8)
	assert.Equal(t, 1.0, b.Banding(0))
	assert.Equal(t, 0.5, b.Banding(2))
	assert.Equal(t, 0.0, b.Banding(4))
	assert.Equal(t, 0.5, b.Banding(6))
	assert.Equal(t, b.Banding(3), b.Banding(11), "repeats every period")

	one := NewBaseField(1, 1)
	assert.Equal(t, 1.0, one.Banding(0))
}

func TestBaseFieldFadesTowardTarget(t *testing.T) {
	b := NewBaseField(8, 8)
	cool := render.Color{G: 100}
	hot := render.Color{R: 200}
	black := render.Color{}

	b.Update(cool, hot, black, 1, 0.5, noJitter{}, 0)
	// band center (i=4) fades at 2*0.5*0.75 = 0.75 toward full hot
	assert.InDelta(t, 150, b.At(4).R, 1e-3)
	// band edge (i=0) targets black and fades at 0.25
	assert.InDelta(t, 0, b.At(0).R, 1e-3)

	for i := 0; i < 200; i++ {
		b.Update(cool, hot, black, 1, 0.5, noJitter{}, uint64(i))
	}
	assert.InDelta(t, 200, b.At(4).R, 1e-2)
	assert.InDelta(t, 100, b.At(2).R, 1e-2, "half banded")
	assert.Greater(t, b.At(3).R, b.At(2).R, "peaks brighter than troughs")
}

func TestBaseFieldJitterBounded(t *testing.T) {
	b := NewBaseField(8, 8)
	hot := render.Color{R: 200}
	draws := make([]float64, 8)
	for i := range draws {
		draws[i] = 0.999999
	}
	full := randomJitter{src: &fixedSource{floats: draws}}
	b.Update(hot, hot, render.Color{}, 1, 0.5, full, 0)
	// element 0 is a full trough; jitter can lift it by at most 12.5%
	band := 1 - maxJitter*0.999999
	fade := 2 * 0.5 * (0.75 - 0.5*band)
	assert.InDelta(t, 200*(1-band)*fade, b.At(0).R, 1e-2)
}

func TestSampleBase(t *testing.T) {
	b := NewBaseField(4, 4)
	for i := range b.px {
		b.px[i] = render.Color{R: float32(i * 10)}
	}

	assert.Equal(t, b.At(1), sampleBase(&b, 0, 1))
	assert.Equal(t, b.At(0), sampleBase(&b, 3, 1), "wraps past the end")
	assert.Equal(t, b.At(2), sampleBase(&b, 2, 4), "whole turns land on the same element")
	assert.InDelta(t, 5, sampleBase(&b, 0, 0.5).R, 1e-4)
	assert.InDelta(t, 15, sampleBase(&b, 3, 0.5).R, 1e-4, "blends last and first")

	one := NewBaseField(1, 1)
	one.px[0] = render.Color{B: 9}
	assert.InDelta(t, 9, sampleBase(&one, 0, 0.37).B, 1e-4)
}

func TestIdleHue(t *testing.T) {
	assert.Equal(t, render.Hue(0), idleHue(0, 12, 0))
	assert.Equal(t, render.Hue(0.5), idleHue(0, 12, 6))
	assert.Equal(t, idleHue(3, 12, 0), idleHue(0, 12, 3))
}
