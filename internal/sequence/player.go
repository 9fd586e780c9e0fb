package sequence

import (
	"errors"
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

var ErrNoClips = errors.New("program has no clips")

// MinClipDurationS is the shortest clip Validate accepts. At 20 fps or
// faster a tick crosses at most one clip boundary.
const MinClipDurationS = 0.05

var knownParams = map[string]bool{ParamHeat: true, ParamLoad: true, ParamRpm: true, ParamBrightness: true}

// Validate checks durations and parameter names.
func (prog Program) Validate() error {
	if len(prog.Clips) == 0 {
		return ErrNoClips
	}
	for i, c := range prog.Clips {
		if !(c.DurationS >= MinClipDurationS) {
			return fmt.Errorf("clip %d %q: duration must be at least %gs", i, c.Name, MinClipDurationS)
		}
		if c.XFadeS < 0 || c.XFadeS > c.DurationS {
			return fmt.Errorf("clip %d %q: crossfade outside [0, duration]", i, c.Name)
		}
		for name := range c.Params {
			if !knownParams[name] {
				return fmt.Errorf("clip %d %q: unknown param %q", i, c.Name, name)
			}
		}
		for name := range c.Bools {
			if name != BoolIdle {
				return fmt.Errorf("clip %d %q: unknown bool %q", i, c.Name, name)
			}
		}
	}
	return nil
}

// LoadFile reads and validates a YAML program.
func LoadFile(path string) (Program, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Program{}, err
	}
	var prog Program
	if err := yaml.Unmarshal(b, &prog); err != nil {
		return Program{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := prog.Validate(); err != nil {
		return Program{}, fmt.Errorf("%s: %w", path, err)
	}
	return prog, nil
}

// NewPlayer constructs a Player with provided hooks.
func NewPlayer(h Hooks) *Player {
	return &Player{State: Idle, hooks: h}
}

// Load replaces the current program. Resets time and state to Idle.
func (p *Player) Load(prog Program) error {
	if err := prog.Validate(); err != nil {
		return err
	}
	p.prog = prog
	p.nowS = 0
	p.idx = 0
	p.State = Idle
	return nil
}

// Start moves to Running and primes the first clip.
func (p *Player) Start() {
	if p.State == Running || len(p.prog.Clips) == 0 {
		return
	}
	p.State = Running
	p.clipChanged()
	p.emit()
}

// Pause pauses playback.
func (p *Player) Pause() {
	if p.State == Running {
		p.State = Paused
	}
}

// Resume resumes playback.
func (p *Player) Resume() {
	if p.State == Paused {
		p.State = Running
	}
}

// Stop stops and resets to start.
func (p *Player) Stop() {
	p.State = Idle
	p.nowS = 0
	p.idx = 0
}

// Position returns the time within the program and the active clip name.
func (p *Player) Position() (float64, string) {
	if len(p.prog.Clips) == 0 {
		return 0, ""
	}
	return p.nowS, p.prog.Clips[p.idx].Name
}

// Seek jumps to absolute program time t. Clamps into [0, totalDur).
func (p *Player) Seek(t float64) {
	if len(p.prog.Clips) == 0 {
		return
	}
	if t < 0 {
		t = 0
	}
	total := p.totalDuration()
	if t >= total {
		// Clamp to just before end
		t = math.Nextafter(total, -1)
	}
	acc := 0.0
	idx := len(p.prog.Clips) - 1
	for i, c := range p.prog.Clips {
		if t < acc+c.DurationS {
			idx = i
			break
		}
		acc += c.DurationS
	}
	changed := idx != p.idx
	p.idx = idx
	p.nowS = t
	if changed && p.State != Idle {
		p.clipChanged()
	}
	if p.State != Idle {
		p.emit()
	}
}

// Tick advances the sequencer by dt seconds and emits control hooks.
func (p *Player) Tick(dt float64) {
	if p.State != Running || len(p.prog.Clips) == 0 {
		return
	}
	if !(dt > 0) {
		return
	}
	p.nowS += dt

	// a long dt may cross several clips
	for {
		clip, localT := p.currentClipAndLocalT()
		if localT < clip.DurationS {
			break
		}
		if !p.advanceClip() {
			return
		}
	}
	p.emit()
}

// emit evaluates the active clip, crossfading toward the next clip's
// opening values during the last XFadeS seconds.
func (p *Player) emit() {
	clip, localT := p.currentClipAndLocalT()
	var next *Clip
	alpha := 0.0
	if clip.XFadeS > 0 {
		if remain := clip.DurationS - localT; remain <= clip.XFadeS {
			if ni := p.nextIndex(); ni != -1 {
				next = &p.prog.Clips[ni]
				alpha = clamp01(1 - remain/clip.XFadeS)
			}
		}
	}

	if p.hooks.SetParam != nil {
		for _, name := range sortedKeys(clip.Params) {
			v := clip.Params[name].Eval(localT)
			if next != nil {
				if env, ok := next.Params[name]; ok {
					v += (env.Eval(0) - v) * alpha
				}
			}
			p.hooks.SetParam(name, v)
		}
	}
	if p.hooks.SetBool != nil {
		for _, name := range sortedKeys(clip.Bools) {
			p.hooks.SetBool(name, clip.Bools[name].BoolEval(localT))
		}
	}
}

func (p *Player) currentClipAndLocalT() (Clip, float64) {
	acc := 0.0
	for i := 0; i < p.idx; i++ {
		acc += p.prog.Clips[i].DurationS
	}
	return p.prog.Clips[p.idx], p.nowS - acc
}

func (p *Player) totalDuration() float64 {
	total := 0.0
	for _, c := range p.prog.Clips {
		total += c.DurationS
	}
	return total
}

func (p *Player) nextIndex() int {
	ni := p.idx + 1
	if ni >= len(p.prog.Clips) {
		if p.prog.Loop {
			return 0
		}
		return -1
	}
	return ni
}

// advanceClip moves to the next clip. It returns false at the end of a
// program that does not loop.
func (p *Player) advanceClip() bool {
	next := p.nextIndex()
	if next == -1 {
		p.State = Idle
		p.nowS = 0
		p.idx = 0
		return false
	}
	if next == 0 {
		p.nowS -= p.totalDuration()
	}
	p.idx = next
	p.clipChanged()
	return true
}

func (p *Player) clipChanged() {
	if p.hooks.ClipChanged != nil {
		p.hooks.ClipChanged(p.prog.Clips[p.idx].Name)
	}
}

func sortedKeys(m map[string]Envelope) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
