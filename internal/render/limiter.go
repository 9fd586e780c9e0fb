package render

import "math"

// Limiter is a two-stage power limiter for a composed frame:
//  1. Per-element white cap: scales (R,G,B) so R+G+B <= WhiteCap*3*255.
//  2. Global current budget: estimates current draw and scales the whole
//     frame to stay under BudgetMA, compressing softly above Knee*BudgetMA.
//
// A zero Limiter does nothing.
type Limiter struct {
	WhiteCap float64 `yaml:"white_cap"` // fraction of full white, (0,1); otherwise off
	ChanMA   float64 `yaml:"chan_ma"`   // mA per channel at 255; WS2812 ≈ 20
	BudgetMA float64 `yaml:"budget_ma"` // 0 disables the budget stage
	Knee     float64 `yaml:"knee"`      // fraction of budget where soft limiting begins
}

// Enabled reports whether Apply would touch a frame.
func (l Limiter) Enabled() bool {
	return (l.WhiteCap > 0 && l.WhiteCap < 1) || l.BudgetMA > 0
}

// Apply limits buf in place. Channels are expected on the 0..255 scale.
func (l Limiter) Apply(buf []Color) {
	if l.WhiteCap > 0 && l.WhiteCap < 1 {
		wc := float32(l.WhiteCap * 3 * 255)
		for i := range buf {
			s := buf[i].R + buf[i].G + buf[i].B
			if s > wc && s > 0 {
				buf[i] = buf[i].Scale(float64(wc / s))
			}
		}
	}

	if l.BudgetMA <= 0 {
		return
	}
	chanMA := l.ChanMA
	if chanMA <= 0 {
		chanMA = 20
	}
	knee := l.Knee
	if knee <= 0 || knee >= 1 {
		knee = 0.9
	}

	total := EstimateCurrent(buf, chanMA)
	kneeMA := knee * l.BudgetMA
	if total <= kneeMA {
		return
	}
	// exponential soft knee: continuous at kneeMA, approaches BudgetMA
	span := l.BudgetMA - kneeMA
	out := kneeMA + span*(1-math.Exp(-(total-kneeMA)/span))
	applyGlobalScale(buf, out/total)
}

// EstimateCurrent returns the estimated draw in mA for buf, assuming
// chanMA per channel at full scale.
func EstimateCurrent(buf []Color, chanMA float64) float64 {
	var sum float64
	for i := range buf {
		c := buf[i].Clamp()
		sum += float64(c.R + c.G + c.B)
	}
	return sum / 255 * chanMA
}

func applyGlobalScale(buf []Color, s float64) {
	if s >= 1 {
		return
	}
	for i := range buf {
		buf[i] = buf[i].Scale(s)
	}
}
