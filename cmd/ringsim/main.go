// Command ringsim steps one ring headless and prints each frame as hex,
// one line per frame, for diffing renderer changes.
package main

import (
	"bufio"
	"encoding/hex"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/emberring/internal/ring"
)

func main() {
	var (
		elements = flag.Int("elements", 24, "ring element count")
		frames   = flag.Int("frames", 120, "frames to render")
		fps      = flag.Float64("fps", ring.DefaultFrameRate, "nominal frame rate")
		seed     = flag.Int64("seed", 1, "random seed")
		heat     = flag.Float64("heat", 0.5, "heat target 0..1")
		load     = flag.Float64("load", 0.5, "load target 0..1")
		rpm      = flag.Float64("rpm", 0.5, "rpm target 0..1")
		jitter   = flag.String("jitter", "random", "jitter: none | random | noise")
		idle     = flag.Bool("idle-dynamic", false, "rainbow idle field")
	)
	flag.Parse()
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	o := ring.DefaultOptions(*elements)
	m, err := ring.ParseJitterMode(*jitter)
	if err != nil {
		log.Fatal().Err(err).Msg("bad -jitter")
	}
	o.Jitter = m
	o.IdleDynamic = *idle

	r, err := ring.New(o, ring.NewSource(*seed))
	if err != nil {
		log.Fatal().Err(err).Msg("ring init")
	}
	r.SetFrameRate(*fps)
	r.SetSensors(*heat, *load, *rpm)

	w := bufio.NewWriter(os.Stdout)
	defer w.Flush()
	for f := 0; f < *frames; f++ {
		fmt.Fprintf(w, "%05d %s\n", f, hex.EncodeToString(r.Step()))
	}
	s := r.State()
	log.Info().
		Float64("heat", s.Controls.Heat).
		Float64("load", s.Controls.Load).
		Float64("rpm", s.Controls.Rpm).
		Bool("flames", r.FlameActive()).
		Msg("done")
}
