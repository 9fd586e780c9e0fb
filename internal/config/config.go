package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/coreman2200/emberring/internal/gamma"
	"github.com/coreman2200/emberring/internal/render"
	"github.com/coreman2200/emberring/internal/ring"
)

var (
	ErrNoRings     = errors.New("config: no rings configured")
	ErrDuplicateID = errors.New("config: duplicate ring id")
)

type SPI struct {
	Dev     string `yaml:"dev"`      // spireg name, "" picks the first port
	SpeedHz int    `yaml:"speed_hz"` // NRZ bit clock, 2500000 for WS281x
}

type Preview struct {
	Addr string `yaml:"addr"` // e.g. ":8080"; empty disables
}

// Colors are #rrggbb strings. Empty keeps the stock palette.
type Colors struct {
	Base      string `yaml:"base,omitempty"`
	Cool      string `yaml:"cool,omitempty"`
	Hot       string `yaml:"hot,omitempty"`
	FlameCool string `yaml:"flame_cool,omitempty"`
	FlameHot  string `yaml:"flame_hot,omitempty"`
}

// Ring describes one physical ring. Pointer fields distinguish "unset"
// from an explicit zero.
type Ring struct {
	ID        int      `yaml:"id"`
	Elements  int      `yaml:"elements"`
	Period    int      `yaml:"period,omitempty"`
	Smoothing int      `yaml:"smoothing,omitempty"`
	Initial   *float64 `yaml:"initial,omitempty"`
	Colors    Colors   `yaml:"colors,omitempty"`

	// FlameCoolMix pulls the cool end of a flame toward colors.flame_cool.
	// Unset, it is DefaultFlameCoolMix when flame_cool is given and 0 otherwise.
	FlameCoolMix *float64 `yaml:"flame_cool_mix,omitempty"`

	Brightness     *float64 `yaml:"brightness,omitempty"`
	IdleBrightness *float64 `yaml:"idle_brightness,omitempty"`
	IdleBlend      bool     `yaml:"idle_blend,omitempty"`
	IdleDynamic    bool     `yaml:"idle_dynamic,omitempty"`

	RotationSpeed       float64  `yaml:"rotation_speed,omitempty"`
	RotationExponent    float64  `yaml:"rotation_exponent,omitempty"`
	RotationLoadDamping float64  `yaml:"rotation_load_damping,omitempty"`
	DimStrength         *float64 `yaml:"dim_strength,omitempty"`

	Jitter string         `yaml:"jitter,omitempty"` // none | random | noise
	Power  render.Limiter `yaml:"power,omitempty"`
}

// DefaultFlameCoolMix applies when a ring sets colors.flame_cool without
// flame_cool_mix.
const DefaultFlameCoolMix = 0.5

type Config struct {
	Driver  string  `yaml:"driver"` // "sim" | "spi" | "screen" | "term"
	FPS     int     `yaml:"fps"`
	Seed    int64   `yaml:"seed"`
	Gamma   float64 `yaml:"gamma,omitempty"`
	SPI     SPI     `yaml:"spi,omitempty"`
	Preview Preview `yaml:"preview,omitempty"`
	// Program is an optional sequence file driving the rings when no host talks.
	Program string `yaml:"program,omitempty"`
	Rings   []Ring `yaml:"rings"`
}

// Default is a single 24 element ring on the sim driver.
func Default() *Config {
	return &Config{
		Driver: "sim",
		FPS:    60,
		Seed:   1,
		SPI:    SPI{SpeedHz: 2500000},
		Rings:  []Ring{{ID: 0, Elements: 24}},
	}
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c := Default()
	c.Rings = nil
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return c, nil
}

func Save(path string, c *Config) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// Validate rejects configurations no ring can be built from.
func (c *Config) Validate() error {
	if len(c.Rings) == 0 {
		return ErrNoRings
	}
	seen := make(map[int]bool, len(c.Rings))
	for _, r := range c.Rings {
		if seen[r.ID] {
			return fmt.Errorf("%w: %d", ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
		if r.Elements <= 0 {
			return fmt.Errorf("ring %d: %w", r.ID, ring.ErrNoElements)
		}
	}
	return nil
}

// GammaTable returns the output table for the configured exponent.
func (c *Config) GammaTable() *gamma.Table {
	if c.Gamma <= 0 || c.Gamma == gamma.DefaultGamma {
		return gamma.Default
	}
	return gamma.New(gamma.DefaultSize, c.Gamma)
}

// Options converts r into engine options. Out of range tuning values are
// clamped with a warning; bad colors and jitter names are errors.
func (r Ring) Options(fps int, g *gamma.Table, log zerolog.Logger) (ring.Options, error) {
	o := ring.DefaultOptions(r.Elements)
	o.Gamma = g
	if fps > 0 {
		o.FrameRate = float64(fps)
	}
	if r.Period < 0 {
		log.Warn().Int("ring", r.ID).Int("period", r.Period).Msg("negative period, deriving from element count")
	}
	o.Period = r.Period
	switch {
	case r.Smoothing < 0:
		log.Warn().Int("ring", r.ID).Int("smoothing", r.Smoothing).Msg("negative smoothing, using 1")
		o.Smoothing = 1
	case r.Smoothing > 0:
		o.Smoothing = r.Smoothing
	}
	if r.Initial != nil {
		o.Initial = *r.Initial
	}

	colors := []struct {
		name string
		hex  string
		dst  *render.Color
	}{
		{"base", r.Colors.Base, &o.BaseColor},
		{"cool", r.Colors.Cool, &o.CoolColor},
		{"hot", r.Colors.Hot, &o.HotColor},
		{"flame_cool", r.Colors.FlameCool, &o.FlameCoolColor},
		{"flame_hot", r.Colors.FlameHot, &o.FlameHotColor},
	}
	for _, c := range colors {
		if c.hex == "" {
			continue
		}
		v, err := render.ParseHex(c.hex)
		if err != nil {
			return ring.Options{}, fmt.Errorf("ring %d: color %s: %w", r.ID, c.name, err)
		}
		*c.dst = v
	}
	switch {
	case r.FlameCoolMix != nil:
		m := *r.FlameCoolMix
		if m < 0 || m > 1 {
			log.Warn().Int("ring", r.ID).Float64("flame_cool_mix", m).Msg("flame_cool_mix outside [0,1], clamped")
			m = max(0, min(1, m))
		}
		o.FlameCoolMix = m
	case r.Colors.FlameCool != "":
		o.FlameCoolMix = DefaultFlameCoolMix
	}

	if r.Brightness != nil {
		o.Brightness = nonNegative(log, r.ID, "brightness", *r.Brightness)
	}
	if r.IdleBrightness != nil {
		o.IdleBrightness = nonNegative(log, r.ID, "idle_brightness", *r.IdleBrightness)
	}
	o.IdleBlend = r.IdleBlend
	o.IdleDynamic = r.IdleDynamic

	if r.RotationSpeed != 0 {
		o.RotationSpeed = r.RotationSpeed
	}
	if r.RotationExponent != 0 {
		o.RotationExponent = nonNegative(log, r.ID, "rotation_exponent", r.RotationExponent)
	}
	o.RotationLoadDamping = r.RotationLoadDamping
	if r.DimStrength != nil {
		o.DimStrength = nonNegative(log, r.ID, "dim_strength", *r.DimStrength)
	}

	if r.Jitter != "" {
		m, err := ring.ParseJitterMode(r.Jitter)
		if err != nil {
			return ring.Options{}, fmt.Errorf("ring %d: %w", r.ID, err)
		}
		o.Jitter = m
	}
	o.Limiter = r.Power
	return o, nil
}

func nonNegative(log zerolog.Logger, id int, field string, v float64) float64 {
	if v < 0 {
		log.Warn().Int("ring", id).Float64(field, v).Msg("negative value clamped to 0")
		return 0
	}
	return v
}
