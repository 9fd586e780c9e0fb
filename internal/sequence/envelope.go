package sequence

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// clamp01 clamps x in [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// smootherstep (cubic-ish) for ease="cubic"
func smootherstep(x float64) float64 {
	// 6x^5 - 15x^4 + 10x^3
	return x * x * x * (x*(x*6-15) + 10)
}

func easeApply(kind string, x float64) float64 {
	switch kind {
	case "smooth":
		// classic smoothstep 3x^2 - 2x^3
		return x * x * (3 - 2*x)
	case "cubic":
		return smootherstep(x)
	default:
		return x
	}
}

func validEase(kind string) bool {
	switch kind {
	case "", "linear", "smooth", "cubic":
		return true
	}
	return false
}

// Eval returns the value of the envelope at time t (seconds).
// If there are no keys, returns 0; if one key, returns its value.
// Keys must be sorted by T ascending.
func (e Envelope) Eval(t float64) float64 {
	n := len(e.Keys)
	if n == 0 {
		return 0
	}
	if t <= e.Keys[0].T {
		return e.Keys[0].V
	}
	if t >= e.Keys[n-1].T {
		return e.Keys[n-1].V
	}
	// first key strictly after t; t sits in [i-1, i)
	i := sort.Search(n, func(i int) bool { return e.Keys[i].T > t })
	a, b := e.Keys[i-1], e.Keys[i]
	u := clamp01((t - a.T) / (b.T - a.T))
	return a.V + (b.V-a.V)*easeApply(a.Ease, u)
}

// BoolEval thresholds the envelope at 0.5 into a boolean.
func (e Envelope) BoolEval(t float64) bool {
	return e.Eval(t) >= 0.5
}

func (e *Envelope) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind == yaml.ScalarNode {
		var v float64
		if err := n.Decode(&v); err != nil {
			return err
		}
		*e = Const(v)
		return nil
	}
	var keys []Keyframe
	if err := n.Decode(&keys); err != nil {
		return err
	}
	for _, k := range keys {
		if !validEase(k.Ease) {
			return fmt.Errorf("line %d: unknown ease %q", n.Line, k.Ease)
		}
	}
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].T < keys[j].T })
	e.Keys = keys
	return nil
}

func (e Envelope) MarshalYAML() (interface{}, error) {
	if len(e.Keys) == 1 && e.Keys[0].T == 0 && e.Keys[0].Ease == "" {
		return e.Keys[0].V, nil
	}
	return e.Keys, nil
}
