// Package gamma maps linear 0..255 channel values to perceptually even
// output bytes through a precomputed lookup table.
package gamma

import "math"

const (
	// DefaultGamma suits WS281x rings viewed directly.
	DefaultGamma = 1.4
	// DefaultSize doubles the input resolution of a naive 256 entry table,
	// which keeps the dark end from banding.
	DefaultSize = 512
)

// Default is the table used when none is configured.
var Default = New(DefaultSize, DefaultGamma)

// Linear quantizes without any curve.
var Linear = New(DefaultSize, 1)

// Table is an immutable, monotonic float->byte lookup spanning 0..255 at
// both ends. Entry i holds round(255 * (i/(size-1))^gamma).
type Table struct {
	lut   []uint8
	gamma float64
	last  float64 // index of the final entry
}

// New builds a table with size entries for the given exponent.
// size < 2 falls back to DefaultSize; gamma <= 0 falls back to DefaultGamma.
func New(size int, gamma float64) *Table {
	if size < 2 {
		size = DefaultSize
	}
	if gamma <= 0 || math.IsNaN(gamma) {
		gamma = DefaultGamma
	}
	t := &Table{
		lut:   make([]uint8, size),
		gamma: gamma,
		last:  float64(size - 1),
	}
	for i := range t.lut {
		t.lut[i] = uint8(math.Floor(255*math.Pow(float64(i)/t.last, gamma) + 0.5))
	}
	return t
}

// Quantize clamps v into [0,255] and returns its table entry.
func (t *Table) Quantize(v float32) uint8 {
	if !(v > 0) { // also catches NaN
		return t.lut[0]
	}
	if v > 255 {
		v = 255
	}
	idx := int(float64(v) * t.last / 255)
	if idx >= len(t.lut) {
		idx = len(t.lut) - 1
	}
	return t.lut[idx]
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.lut) }

// Gamma returns the exponent the table was built with.
func (t *Table) Gamma() float64 { return t.gamma }
