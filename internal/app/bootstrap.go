package app

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/coreman2200/emberring/internal/config"
	"github.com/coreman2200/emberring/internal/led"
	"github.com/coreman2200/emberring/internal/ring"
)

// BuildRings creates one engine per configured ring. Each ring draws from
// its own source seeded from cfg.Seed and its position, so adding a ring
// does not change the others' animation.
func BuildRings(cfg *config.Config, log zerolog.Logger) ([]Ring, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	g := cfg.GammaTable()
	out := make([]Ring, 0, len(cfg.Rings))
	for i, rc := range cfg.Rings {
		opts, err := rc.Options(cfg.FPS, g, log)
		if err != nil {
			return nil, err
		}
		r, err := ring.New(opts, ring.NewSource(cfg.Seed+int64(i)))
		if err != nil {
			return nil, fmt.Errorf("ring %d: %w", rc.ID, err)
		}
		out = append(out, Ring{ID: rc.ID, Ring: r})
	}
	return out, nil
}

// OpenDriver selects the output driver. Hardware that fails to open falls
// back to the sim driver with a warning.
func OpenDriver(cfg *config.Config, rings []Ring, log zerolog.Logger) (led.Driver, string) {
	total := 0
	sizes := make([]int, len(rings))
	for i, r := range rings {
		sizes[i] = r.Ring.Len()
		total += sizes[i]
	}

	switch cfg.Driver {
	case "sim", "":
		return led.NewSim(total, log), "sim"

	case "spi":
		drv, err := led.NewNRZ(cfg.SPI.Dev, total, cfg.SPI.SpeedHz)
		if err != nil {
			log.Warn().Err(err).
				Str("driver", "spi").
				Str("dev", cfg.SPI.Dev).
				Int("speed_hz", cfg.SPI.SpeedHz).
				Msg("SPI init failed; falling back to SIM")
			return led.NewSim(total, log), "sim"
		}
		return drv, "spi"

	case "screen":
		return led.NewScreen(total), "screen"

	case "term":
		drv, err := led.OpenTerm(sizes)
		if err != nil {
			log.Warn().Err(err).Msg("terminal init failed; falling back to SIM")
			return led.NewSim(total, log), "sim"
		}
		return drv, "term"

	default:
		log.Warn().Str("driver", cfg.Driver).Msg("unknown driver; using SIM")
		return led.NewSim(total, log), "sim"
	}
}
