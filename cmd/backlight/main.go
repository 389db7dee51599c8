package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/coreman2200/backlight/internal/app"
	"github.com/coreman2200/backlight/internal/config"
)

func main() {
	// ---- Flags (explicitly set flags win over config.yaml) ----
	def := config.Default()
	f := config.BindFlags(flag.CommandLine, def)
	flag.Parse()

	// ---- Logging ----
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})

	// ---- Config ----
	cfg := def
	if *f.ConfigPath != "" {
		c, err := config.Load(*f.ConfigPath)
		if err != nil {
			log.Error().Err(err).Str("path", *f.ConfigPath).Msg("config load failed")
			os.Exit(2)
		}
		cfg = c
	}
	cfg = f.Apply(flag.CommandLine, cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration:\n%v\n", err)
		os.Exit(2)
	}
	lvl, _ := zerolog.ParseLevel(cfg.LogLevel)
	zerolog.SetGlobalLevel(lvl)

	// ---- Run until SIGINT/SIGTERM ----
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("source", cfg.Source).
		Str("driver", cfg.Driver).
		Float64("brightness", cfg.Brightness).
		Float64("intensity", cfg.Intensity).
		Int("fps", cfg.FPS).
		Msg("backlight starting")

	if err := app.Run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("stopped")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("shut down")
}
