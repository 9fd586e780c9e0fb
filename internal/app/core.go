// Package app runs the frame loop: it steps every ring, writes the chained
// frame to the driver and mirrors it to the preview.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcrowley/go-metrics"
	"github.com/rs/zerolog"

	"github.com/coreman2200/emberring/internal/command"
	"github.com/coreman2200/emberring/internal/led"
	"github.com/coreman2200/emberring/internal/preview"
	"github.com/coreman2200/emberring/internal/ring"
	"github.com/coreman2200/emberring/internal/sequence"
)

const (
	DefaultFPS         = 60
	DefaultHostTimeout = 5 * time.Second
	// fpsSmoothing is the EWMA weight of each new frame interval.
	fpsSmoothing = 0.05
)

var ErrNoRings = errors.New("app: no rings")

// Publisher receives every frame after it is written. *preview.Server
// satisfies it.
type Publisher interface {
	Publish(frameID uint64, rgb []byte)
}

// Ring pairs a configured id with its engine.
type Ring struct {
	ID   int
	Ring *ring.Ring
}

type Options struct {
	FPS int
	// HostTimeout is how long a ring stays under host control after its
	// last command before a loaded program may drive it again.
	HostTimeout time.Duration
	Log         zerolog.Logger
	// Metrics defaults to a private registry.
	Metrics metrics.Registry
}

type entry struct {
	Ring
	start    int          // byte offset in the chained frame
	hostLast atomic.Int64 // unix nanos of the last host command
}

type Core struct {
	opts  Options
	log   zerolog.Logger
	drv   led.Driver
	pub   Publisher
	rings []*entry
	byID  map[int]*entry
	buf   []byte
	clock func() time.Time

	// owned by the loop goroutine
	frame  uint64
	fpsAvg float64

	seqMu sync.Mutex
	seq   *sequence.Player

	render    metrics.Histogram
	writeErrs metrics.Counter
	frames    metrics.Counter
	fpsGauge  metrics.GaugeFloat64
}

// New wires rings to a driver. Frames are the rings' bytes concatenated in
// the given order.
func New(rings []Ring, drv led.Driver, opts Options) (*Core, error) {
	if len(rings) == 0 {
		return nil, ErrNoRings
	}
	if opts.FPS <= 0 {
		opts.FPS = DefaultFPS
	}
	if opts.HostTimeout <= 0 {
		opts.HostTimeout = DefaultHostTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewRegistry()
	}
	c := &Core{
		opts:   opts,
		log:    opts.Log,
		drv:    drv,
		byID:   make(map[int]*entry, len(rings)),
		clock:  time.Now,
		fpsAvg: float64(opts.FPS),

		render:    metrics.GetOrRegisterHistogram("render_us", opts.Metrics, metrics.NewExpDecaySample(1028, 0.015)),
		writeErrs: metrics.GetOrRegisterCounter("write_errors", opts.Metrics),
		frames:    metrics.GetOrRegisterCounter("frames", opts.Metrics),
		fpsGauge:  metrics.GetOrRegisterGaugeFloat64("fps_avg", opts.Metrics),
	}
	total := 0
	for _, r := range rings {
		if r.Ring == nil {
			return nil, fmt.Errorf("ring %d: nil engine", r.ID)
		}
		if _, dup := c.byID[r.ID]; dup {
			return nil, fmt.Errorf("ring %d: duplicate id", r.ID)
		}
		e := &entry{Ring: r, start: total}
		c.rings = append(c.rings, e)
		c.byID[r.ID] = e
		total += 3 * r.Ring.Len()
	}
	c.buf = make([]byte, total)
	c.fpsGauge.Update(c.fpsAvg)
	return c, nil
}

// SetPublisher mirrors frames to p. Call before Run.
func (c *Core) SetPublisher(p Publisher) { c.pub = p }

// Lookup finds a ring for the command handler.
func (c *Core) Lookup(id int) (command.Target, bool) {
	e, ok := c.byID[id]
	if !ok {
		return nil, false
	}
	return e.Ring.Ring, true
}

// Touch records host activity on ring id. Safe from any goroutine.
func (c *Core) Touch(id int) {
	if e, ok := c.byID[id]; ok {
		e.hostLast.Store(c.clock().UnixNano())
	}
}

func (c *Core) hostActive(e *entry, now time.Time) bool {
	last := e.hostLast.Load()
	return last != 0 && now.Sub(time.Unix(0, last)) < c.opts.HostTimeout
}

// LoadProgram starts a scripted show on every ring not under host control.
func (c *Core) LoadProgram(prog sequence.Program) error {
	p := sequence.NewPlayer(sequence.Hooks{
		ClipChanged: func(name string) { c.log.Debug().Str("clip", name).Msg("program clip") },
		SetParam:    c.setParam,
		SetBool:     c.setBool,
	})
	if err := p.Load(prog); err != nil {
		return err
	}
	p.Start()
	c.seqMu.Lock()
	c.seq = p
	c.seqMu.Unlock()
	return nil
}

// Program reports the running program's state and clip. ok is false when
// no program is loaded.
func (c *Core) Program() (state sequence.PlayerState, clip string, ok bool) {
	c.seqMu.Lock()
	defer c.seqMu.Unlock()
	if c.seq == nil {
		return "", "", false
	}
	_, clip = c.seq.Position()
	return c.seq.State, clip, true
}

func (c *Core) scripted(f func(r *ring.Ring)) {
	now := c.clock()
	for _, e := range c.rings {
		if !c.hostActive(e, now) {
			f(e.Ring.Ring)
		}
	}
}

func (c *Core) setParam(name string, v float64) {
	c.scripted(func(r *ring.Ring) {
		t := r.Targets()
		switch name {
		case sequence.ParamHeat:
			r.SetSensors(v, t.Load, t.Rpm)
		case sequence.ParamLoad:
			r.SetSensors(t.Heat, v, t.Rpm)
		case sequence.ParamRpm:
			r.SetSensors(t.Heat, t.Load, v)
		case sequence.ParamBrightness:
			r.SetBrightness(v)
		}
	})
}

func (c *Core) setBool(name string, b bool) {
	if name != sequence.BoolIdle {
		return
	}
	c.scripted(func(r *ring.Ring) { r.SetIdleDynamic(b) })
}

// Step renders one frame dt after the previous one. Driver errors are
// logged and counted, never returned; the animation keeps going.
func (c *Core) Step(dt time.Duration) {
	start := c.clock()
	if dt > 0 {
		c.observeInterval(dt)
		c.seqMu.Lock()
		if c.seq != nil {
			c.seq.Tick(dt.Seconds())
		}
		c.seqMu.Unlock()
	}

	for _, e := range c.rings {
		r := e.Ring.Ring
		r.SetFrameRate(c.fpsAvg)
		r.StepInto(c.buf[e.start : e.start+3*r.Len()])
	}
	c.frame++

	if c.drv != nil {
		if err := c.drv.Write(c.buf); err != nil {
			c.writeErrs.Inc(1)
			// first failure and then once a second at 60fps
			if n := c.writeErrs.Count(); n == 1 || n%60 == 0 {
				c.log.Warn().Err(err).Int64("errors", n).Msg("driver write failed")
			}
		}
	}
	if c.pub != nil {
		c.pub.Publish(c.frame, c.buf)
	}
	c.frames.Inc(1)
	c.render.Update(c.clock().Sub(start).Microseconds())
}

func (c *Core) observeInterval(dt time.Duration) {
	fps := 1 / dt.Seconds()
	c.fpsAvg += (fps - c.fpsAvg) * fpsSmoothing
	c.fpsGauge.Update(c.fpsAvg)
}

// Frame returns the current frame buffer. It is owned by the loop.
func (c *Core) Frame() []byte { return c.buf }

// FPS returns the running frame rate average.
func (c *Core) FPS() float64 { return c.fpsGauge.Value() }

// Run ticks at the configured rate until ctx is done, then closes the driver.
func (c *Core) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(c.opts.FPS)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	c.log.Info().Int("fps", c.opts.FPS).Int("rings", len(c.rings)).Int("bytes", len(c.buf)).Msg("frame loop starting")

	last := c.clock()
	for {
		select {
		case <-ctx.Done():
			c.log.Info().Uint64("frames", c.frame).Msg("frame loop stopped")
			if c.drv != nil {
				if err := c.drv.Close(); err != nil {
					return fmt.Errorf("close driver: %w", err)
				}
			}
			return nil
		case <-ticker.C:
			now := c.clock()
			c.Step(now.Sub(last))
			last = now
		}
	}
}

// Layout describes where each ring sits in the chained frame.
func (c *Core) Layout() []preview.RingInfo {
	out := make([]preview.RingInfo, len(c.rings))
	for i, e := range c.rings {
		out[i] = preview.RingInfo{ID: e.ID, Elements: e.Ring.Ring.Len(), Start: e.start / 3}
	}
	return out
}

// Health is the core's contribution to /health. Safe from any goroutine.
func (c *Core) Health() map[string]any {
	snap := c.render.Snapshot()
	h := map[string]any{
		"frames":        c.frames.Count(),
		"fps_avg":       c.fpsGauge.Value(),
		"render_us_avg": snap.Mean(),
		"render_us_p99": snap.Percentile(0.99),
		"write_errors":  c.writeErrs.Count(),
	}
	now := c.clock()
	rings := make([]map[string]any, len(c.rings))
	for i, e := range c.rings {
		t := e.Ring.Ring.Targets()
		rings[i] = map[string]any{
			"id":     e.ID,
			"heat":   t.Heat,
			"load":   t.Load,
			"rpm":    t.Rpm,
			"host":   c.hostActive(e, now),
			"bright": e.Ring.Ring.Brightness(),
		}
	}
	h["rings"] = rings
	if state, clip, ok := c.Program(); ok {
		h["program"] = map[string]any{"state": state, "clip": clip}
	}
	return h
}
