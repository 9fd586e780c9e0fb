package gamma

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTableShape(t *testing.T) {
	assert.Equal(t, DefaultSize, Default.Len())
	assert.Equal(t, DefaultGamma, Default.Gamma())
	assert.Equal(t, uint8(0), Default.Quantize(0))
	assert.Equal(t, uint8(255), Default.Quantize(255))
	// gamma > 1 darkens the midtones
	assert.Less(t, Default.Quantize(128), uint8(128))
}

func TestQuantizeMonotonic(t *testing.T) {
	for _, g := range []float64{1, 1.4, 2.2, 2.8} {
		t.Run("gamma "+strconv.FormatFloat(g, 'f', 1, 64), func(t *testing.T) {
			tbl := New(DefaultSize, g)
			prev := tbl.Quantize(0)
			for v := float32(0); v <= 255; v += 0.125 {
				cur := tbl.Quantize(v)
				if cur < prev {
					t.Fatalf("table not monotonic at %v: %d < %d", v, cur, prev)
				}
				prev = cur
			}
		})
	}
}

func TestQuantizeOutOfRange(t *testing.T) {
	assert.Equal(t, Default.Quantize(0), Default.Quantize(-40))
	assert.Equal(t, Default.Quantize(255), Default.Quantize(1e9))
	assert.Equal(t, Default.Quantize(0), Default.Quantize(float32(math.NaN())))
	assert.Equal(t, Default.Quantize(255), Default.Quantize(float32(math.Inf(1))))
}

func TestLinearTracksInput(t *testing.T) {
	for _, v := range []float32{0, 1, 1.99, 63.5, 128, 200.7, 254.9, 255} {
		assert.InDelta(t, v, float32(Linear.Quantize(v)), 1, "v=%v", v)
	}
}

func TestNewFallbacks(t *testing.T) {
	tbl := New(0, -1)
	assert.Equal(t, DefaultSize, tbl.Len())
	assert.Equal(t, DefaultGamma, tbl.Gamma())
}

func TestEntriesRoundToNearest(t *testing.T) {
	tbl := New(3, 1)
	assert.Equal(t, uint8(0), tbl.Quantize(0))
	// 255 * 0.5 = 127.5 rounds up; a truncating table would hold 127
	assert.Equal(t, uint8(128), tbl.Quantize(127.5))
	assert.Equal(t, uint8(255), tbl.Quantize(255))
}
