package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/emberring/internal/app"
	"github.com/coreman2200/emberring/internal/command"
	"github.com/coreman2200/emberring/internal/config"
	"github.com/coreman2200/emberring/internal/led"
	"github.com/coreman2200/emberring/internal/preview"
	"github.com/coreman2200/emberring/internal/sequence"
)

func main() {
	// ---- Flags (explicitly set flags override config.yaml) ----
	var (
		configPath = flag.String("config", "config.yaml", "path to config.yaml")
		driver     = flag.String("driver", "sim", "driver: sim | spi | screen | term")
		fps        = flag.Int("fps", app.DefaultFPS, "target frames per second")
		addr       = flag.String("addr", "", "preview HTTP listen address, e.g. :8080")
		seed       = flag.Int64("seed", 1, "random seed")
		program    = flag.String("program", "", "sequence file to play when no host is talking")
		input      = flag.String("input", "-", "host command stream: - for stdin, a tty path, or empty to disable")
		debug      = flag.Bool("debug", false, "debug logging")
	)
	flag.Parse()

	// ---- Logging ----
	// replies go to stdout when commands come from stdin
	logOut := os.Stdout
	if *input == "-" {
		logOut = os.Stderr
	}
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: logOut, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := config.Default()
	if c, err := config.Load(*configPath); err != nil {
		log.Warn().Err(err).Str("path", *configPath).Msg("config load failed; proceeding with defaults")
	} else {
		cfg = c
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "driver":
			cfg.Driver = *driver
		case "fps":
			cfg.FPS = *fps
		case "addr":
			cfg.Preview.Addr = *addr
		case "seed":
			cfg.Seed = *seed
		case "program":
			cfg.Program = *program
		}
	})

	rings, err := app.BuildRings(cfg, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid ring configuration")
	}
	drv, selected := app.OpenDriver(cfg, rings, log.Logger)
	core, err := app.New(rings, drv, app.Options{FPS: cfg.FPS, Log: log.Logger})
	if err != nil {
		log.Fatal().Err(err).Msg("core init failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if t, ok := drv.(*led.Term); ok {
		t.WatchQuit(stop)
	}

	// ---- Scripted telemetry ----
	if cfg.Program != "" {
		prog, err := sequence.LoadFile(cfg.Program)
		if err == nil {
			err = core.LoadProgram(prog)
		}
		if err != nil {
			log.Warn().Err(err).Str("program", cfg.Program).Msg("program not loaded")
		}
	}

	// ---- Preview ----
	var srv *http.Server
	var pv *preview.Server
	if cfg.Preview.Addr != "" {
		pv = preview.New(preview.Topology{Rings: core.Layout(), Driver: selected, FPS: cfg.FPS}, core.Health, log.Logger)
		core.SetPublisher(pv)
		srv = &http.Server{
			Addr:         cfg.Preview.Addr,
			Handler:      pv.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.Preview.Addr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("preview server crashed")
			}
		}()
	}

	// ---- Host commands ----
	switch {
	case *input == "":
	case *input == "-" && selected == "term":
		log.Warn().Msg("terminal driver owns stdin; host commands disabled")
	default:
		h := &command.Handler{Lookup: core.Lookup, Touched: core.Touch, Log: log.Logger}
		go serveCommands(h, *input)
	}

	log.Info().Str("driver", selected).Int("rings", len(rings)).Msg("emberring running")
	if err := core.Run(ctx); err != nil {
		log.Error().Err(err).Msg("frame loop")
	}

	// ---- Graceful shutdown ----
	if srv != nil {
		pv.Close()
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(sctx)
	}
	log.Info().Msg("bye")
}

func serveCommands(h *command.Handler, path string) {
	if path == "-" {
		if err := h.Serve(os.Stdin, os.Stdout); err != nil {
			log.Warn().Err(err).Msg("command stream closed")
		}
		return
	}
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		log.Warn().Err(err).Str("input", path).Msg("cannot open command stream")
		return
	}
	defer f.Close()
	log.Info().Str("input", path).Msg("reading host commands")
	if err := h.Serve(f, f); err != nil {
		log.Warn().Err(err).Str("input", path).Msg("command stream closed")
	}
}
