// Package sequence scripts ring telemetry over time. A Program is a list of
// clips, each automating heat, load, rpm and brightness with keyframed
// envelopes, so a ring can run an attract show when no host is feeding it.
package sequence

// Parameter names a clip may automate.
const (
	ParamHeat       = "heat"
	ParamLoad       = "load"
	ParamRpm        = "rpm"
	ParamBrightness = "brightness"
	BoolIdle        = "idle"
)

// Keyframe represents a value at time T (seconds) with an easing function
// that applies to the segment starting at this keyframe.
type Keyframe struct {
	T    float64 `yaml:"t"`
	V    float64 `yaml:"v"`
	Ease string  `yaml:"ease,omitempty"` // "linear","smooth","cubic"
}

// Envelope is a sorted list of keyframes; Eval(t) interpolates a value.
// In YAML it is either a list of keyframes or a bare number for a constant.
type Envelope struct {
	Keys []Keyframe
}

// Const is an envelope holding v forever.
func Const(v float64) Envelope {
	return Envelope{Keys: []Keyframe{{V: v}}}
}

// Clip is one segment of a show with a duration, an optional crossfade
// into the NEXT clip and its parameter automation.
type Clip struct {
	Name      string              `yaml:"name"`
	DurationS float64             `yaml:"duration_s"`
	XFadeS    float64             `yaml:"xfade_s,omitempty"`
	Params    map[string]Envelope `yaml:"params,omitempty"` // heat, load, rpm, brightness
	Bools     map[string]Envelope `yaml:"bools,omitempty"`  // idle; 0..1 thresholded to bool
}

// Program is a full sequence of clips.
type Program struct {
	Version string `yaml:"version"` // e.g., "seq.v1"
	Loop    bool   `yaml:"loop,omitempty"`
	Clips   []Clip `yaml:"clips"`
}

// PlayerState enumerates sequencer states.
type PlayerState string

const (
	Idle    PlayerState = "idle"
	Running PlayerState = "running"
	Paused  PlayerState = "paused"
)

// Hooks are dependency-injected callbacks into the ring core.
type Hooks struct {
	// ClipChanged fires when a clip becomes active.
	ClipChanged func(name string)
	// Parameter and boolean setters, called every Tick.
	SetParam func(name string, v float64)
	SetBool  func(name string, b bool)
}

// Player owns the current Program timeline and uses Hooks to drive the rings.
type Player struct {
	State PlayerState

	prog Program
	nowS float64 // position within the current pass of the program
	idx  int     // current clip index

	hooks Hooks
}
