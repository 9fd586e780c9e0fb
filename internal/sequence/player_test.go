package sequence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestEnvelopeEval(t *testing.T) {
	env := Envelope{Keys: []Keyframe{
		{T: 0, V: 0, Ease: "linear"},
		{T: 10, V: 10, Ease: "linear"},
	}}
	tests := []struct {
		t, want float64
	}{
		{-1, 0}, {0, 0}, {5, 5}, {10, 10}, {11, 10},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, env.Eval(tc.t), "t=%v", tc.t)
	}

	assert.Zero(t, Envelope{}.Eval(3))
	assert.Equal(t, 0.7, Const(0.7).Eval(100))
}

func TestEnvelopeEase(t *testing.T) {
	for _, ease := range []string{"smooth", "cubic"} {
		t.Run(ease, func(t *testing.T) {
			env := Envelope{Keys: []Keyframe{{T: 0, V: 0, Ease: ease}, {T: 1, V: 1}}}
			assert.InDelta(t, 0.5, env.Eval(0.5), 1e-12, "symmetric easing passes the midpoint")
			assert.Less(t, env.Eval(0.25), 0.25, "eases in")
			assert.Greater(t, env.Eval(0.75), 0.75, "eases out")
		})
	}
}

func TestEnvelopeDuplicateKeys(t *testing.T) {
	env := Envelope{Keys: []Keyframe{{T: 0, V: 0}, {T: 1, V: 1}, {T: 1, V: 5}, {T: 2, V: 5}}}
	assert.Equal(t, 5.0, env.Eval(1), "a step takes the later key")
	assert.InDelta(t, 0.5, env.Eval(0.5), 1e-12)
}

func TestEnvelopeYAML(t *testing.T) {
	var c Clip
	src := `
name: warmup
duration_s: 4
params:
  heat: 0.25
  load:
    - {t: 2, v: 1}
    - {t: 0, v: 0, ease: smooth}
bools:
  idle: 1
`
	require.NoError(t, yaml.Unmarshal([]byte(src), &c))
	assert.Equal(t, 0.25, c.Params[ParamHeat].Eval(3))
	assert.Equal(t, 0.0, c.Params[ParamLoad].Keys[0].T, "keys sorted")
	assert.InDelta(t, 0.5, c.Params[ParamLoad].Eval(1), 1e-12)
	assert.True(t, c.Bools[BoolIdle].BoolEval(0))

	out, err := yaml.Marshal(c)
	require.NoError(t, err)
	var back Clip
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, c, back)

	err = yaml.Unmarshal([]byte("params: {heat: [{t: 0, v: 1, ease: bounce}]}"), &c)
	assert.ErrorContains(t, err, "bounce")
}

func TestValidate(t *testing.T) {
	ok := Clip{Name: "a", DurationS: 1}
	tests := []struct {
		name  string
		clips []Clip
		err   string
	}{
		{"ok", []Clip{ok}, ""},
		{"empty", nil, "no clips"},
		{"zero duration", []Clip{{Name: "z"}}, "duration"},
		{"tiny duration", []Clip{{Name: "t", DurationS: 1e-6}}, "at least"},
		{"shortest", []Clip{{Name: "s", DurationS: MinClipDurationS}}, ""},
		{"long fade", []Clip{{Name: "f", DurationS: 1, XFadeS: 2}}, "crossfade"},
		{"bad param", []Clip{{Name: "p", DurationS: 1, Params: map[string]Envelope{"hue": Const(1)}}}, "hue"},
		{"bad bool", []Clip{{Name: "b", DurationS: 1, Bools: map[string]Envelope{"strobe": Const(1)}}}, "strobe"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Program{Clips: tc.clips}.Validate()
			if tc.err == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tc.err)
		})
	}
}

type recorder struct {
	clips  []string
	params map[string]float64
	bools  map[string]bool
}

func newRecorder() *recorder {
	return &recorder{params: map[string]float64{}, bools: map[string]bool{}}
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		ClipChanged: func(name string) { r.clips = append(r.clips, name) },
		SetParam:    func(name string, v float64) { r.params[name] = v },
		SetBool:     func(name string, b bool) { r.bools[name] = b },
	}
}

func TestShortClipsBoundChangesPerFrame(t *testing.T) {
	rec := newRecorder()
	p := NewPlayer(rec.hooks())
	require.NoError(t, p.Load(Program{
		Loop: true,
		Clips: []Clip{
			{Name: "a", DurationS: MinClipDurationS},
			{Name: "b", DurationS: MinClipDurationS},
		},
	}))
	p.Start()
	require.Len(t, rec.clips, 1)

	for frame := 0; frame < 120; frame++ {
		before := len(rec.clips)
		p.Tick(1.0 / 60)
		assert.LessOrEqual(t, len(rec.clips)-before, 1, "frame %d", frame)
	}
	assert.Greater(t, len(rec.clips), 30, "clips still cycle")
}

func TestSequencerCrossfade(t *testing.T) {
	rec := newRecorder()
	p := NewPlayer(rec.hooks())
	require.NoError(t, p.Load(Program{
		Version: "seq.v1",
		Clips: []Clip{
			{Name: "A", DurationS: 4, XFadeS: 2, Params: map[string]Envelope{ParamHeat: Const(0), ParamRpm: Const(0.3)}},
			{Name: "B", DurationS: 4, Params: map[string]Envelope{ParamHeat: Const(1)}},
		},
	}))
	p.Start()
	assert.Equal(t, []string{"A"}, rec.clips)
	assert.Equal(t, 0.0, rec.params[ParamHeat])

	p.Tick(1)
	assert.Equal(t, 0.0, rec.params[ParamHeat], "before the fade window")
	p.Tick(2)
	assert.InDelta(t, 0.5, rec.params[ParamHeat], 1e-12, "halfway through the fade")
	assert.InDelta(t, 0.3, rec.params[ParamRpm], 1e-12, "params missing from the next clip hold")
	p.Tick(1)
	assert.Equal(t, []string{"A", "B"}, rec.clips)
	assert.Equal(t, 1.0, rec.params[ParamHeat])

	p.Tick(4)
	assert.Equal(t, Idle, p.State, "program ends without loop")
}

func TestSequencerLoopWraps(t *testing.T) {
	rec := newRecorder()
	p := NewPlayer(rec.hooks())
	require.NoError(t, p.Load(Program{
		Loop: true,
		Clips: []Clip{
			{Name: "A", DurationS: 1, Bools: map[string]Envelope{BoolIdle: Const(1)}},
			{Name: "B", DurationS: 1, Bools: map[string]Envelope{BoolIdle: Const(0)}},
		},
	}))
	p.Start()
	p.Tick(2.5)
	now, name := p.Position()
	assert.InDelta(t, 0.5, now, 1e-12)
	assert.Equal(t, "A", name)
	assert.Equal(t, []string{"A", "B", "A"}, rec.clips)
	assert.True(t, rec.bools[BoolIdle])

	for i := 0; i < 1000; i++ {
		p.Tick(0.1)
	}
	assert.Equal(t, Running, p.State)
	now, _ = p.Position()
	assert.Less(t, now, 2.0, "time stays within one pass")
}

func TestSequencerPauseSeek(t *testing.T) {
	rec := newRecorder()
	p := NewPlayer(rec.hooks())
	ramp := Envelope{Keys: []Keyframe{{T: 0, V: 0}, {T: 2, V: 1}}}
	require.NoError(t, p.Load(Program{Clips: []Clip{
		{Name: "ramp", DurationS: 2, Params: map[string]Envelope{ParamLoad: ramp}},
		{Name: "hold", DurationS: 2, Params: map[string]Envelope{ParamLoad: Const(0.2)}},
	}}))

	p.Tick(1)
	assert.Empty(t, rec.params, "idle player is silent")

	p.Start()
	p.Tick(1)
	assert.InDelta(t, 0.5, rec.params[ParamLoad], 1e-12)

	p.Pause()
	p.Tick(1)
	assert.InDelta(t, 0.5, rec.params[ParamLoad], 1e-12)
	p.Resume()

	p.Seek(3)
	assert.Equal(t, 0.2, rec.params[ParamLoad])
	_, name := p.Position()
	assert.Equal(t, "hold", name)

	p.Seek(99)
	now, _ := p.Position()
	assert.Less(t, now, 4.0)

	p.Stop()
	assert.Equal(t, Idle, p.State)
	now, name = p.Position()
	assert.Zero(t, now)
	assert.Equal(t, "ramp", name)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "show.yaml")
	require.NoError(t, os.WriteFile(good, []byte(`
version: seq.v1
loop: true
clips:
  - name: idle
    duration_s: 10
    params: {heat: 0, load: 0, rpm: 0}
    bools: {idle: 1}
  - name: burn
    duration_s: 20
    xfade_s: 5
    params:
      heat: [{t: 0, v: 0.2}, {t: 20, v: 1, ease: cubic}]
      load: 1
`), 0o644))
	prog, err := LoadFile(good)
	require.NoError(t, err)
	assert.True(t, prog.Loop)
	require.Len(t, prog.Clips, 2)
	assert.Equal(t, 5.0, prog.Clips[1].XFadeS)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("clips: []\n"), 0o644))
	_, err = LoadFile(bad)
	assert.ErrorIs(t, err, ErrNoClips)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestAttractProgram(t *testing.T) {
	p, err := LoadFile(filepath.Join("..", "..", "programs", "attract.yaml"))
	require.NoError(t, err)
	assert.True(t, p.Loop)
	assert.Len(t, p.Clips, 2)
}
