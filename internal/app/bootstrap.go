package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/coreman2200/backlight/internal/capture"
	"github.com/coreman2200/backlight/internal/config"
	"github.com/coreman2200/backlight/internal/layout"
	"github.com/coreman2200/backlight/internal/led"
	"github.com/coreman2200/backlight/internal/loop"
	"github.com/coreman2200/backlight/internal/preview"
	"github.com/coreman2200/backlight/internal/reduce"
	"github.com/coreman2200/backlight/internal/shape"
)

// Synthetic frames use a small WVGA canvas.
const syntheticW, syntheticH = 800, 480

// Hold times between self-test frames.
var (
	flashHold = time.Second
	sweepHold = 40 * time.Millisecond
)

// LoopOptions turns the run configuration into loop options.
func LoopOptions(cfg config.Config) (loop.Options, error) {
	o, err := layout.ParseOrientation(cfg.Orientation)
	if err != nil {
		return loop.Options{}, err
	}
	return loop.Options{
		Reducer: reduce.New(cfg.Tuning.Step),
		Shaper: shape.New(shape.Params{
			Intensity:  cfg.Intensity,
			Gamma:      cfg.Tuning.Gamma,
			NormCurve:  cfg.Tuning.NormCurve,
			Brightness: cfg.Brightness,
		}),
		Orientation: o,
		Backoff:     cfg.Tuning.Backoff,
		Interval:    cfg.Tuning.Interval,
	}, nil
}

// OpenSource picks the frame source and bounds it to the target FPS.
func OpenSource(cfg config.Config) (capture.Source, error) {
	var src capture.Source
	switch cfg.Source {
	case config.SourceSynthetic:
		s, err := capture.NewSynthetic(syntheticW, syntheticH, capture.Rainbow)
		if err != nil {
			return nil, err
		}
		src = s
	default:
		s, err := capture.OpenScreen(cfg.Display)
		if err != nil {
			return nil, err
		}
		src = s
	}
	return capture.Throttle(src, capture.PerSecond(cfg.FPS)), nil
}

// OpenSink opens the configured output device.
func OpenSink(cfg config.Config) (led.Sink, error) {
	switch cfg.Driver {
	case config.DriverSim:
		return led.NewSim(), nil
	case config.DriverSPI:
		opts := led.DefaultMatrixOpts()
		opts.Order.BottomUp = cfg.SPI.BottomUp
		opts.Limit.BudgetMA = cfg.SPI.BudgetMA
		opts.Limit.WhiteCap = cfg.SPI.WhiteCap
		return led.OpenMatrix(cfg.SPI.Dev, opts)
	case config.DriverLaunchpad:
		lp, err := led.OpenLaunchpad(cfg.MIDI.Port)
		if err != nil {
			midi.CloseDriver()
			return nil, err
		}
		return &midiSink{Launchpad: lp}, nil
	}
	return nil, fmt.Errorf("unknown driver %q", cfg.Driver)
}

// midiSink shuts the MIDI driver down with the port.
type midiSink struct{ *led.Launchpad }

func (m *midiSink) Close() error {
	err := m.Launchpad.Close()
	midi.CloseDriver()
	return err
}

// Run opens everything cfg names and mirrors the screen until ctx is
// cancelled or a fatal error occurs. The pads are switched off on the way out.
func Run(ctx context.Context, cfg config.Config) error {
	opts, err := LoopOptions(cfg)
	if err != nil {
		return err
	}
	kind, err := led.ParseKind(cfg.SelfTest)
	if err != nil {
		return err
	}
	src, err := OpenSource(cfg)
	if err != nil {
		return fmt.Errorf("frame source: %w", err)
	}
	sink, err := OpenSink(cfg)
	if err != nil {
		return fmt.Errorf("light grid: %w", err)
	}

	var pv *preview.Server
	if cfg.PreviewAddr != "" {
		pv = preview.New()
		sink = led.NewMulti(sink, pv)
		srv := &http.Server{
			Addr:         cfg.PreviewAddr,
			Handler:      pv.Handler(),
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.PreviewAddr).Msg("preview server starting")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("preview server stopped")
			}
		}()
		defer srv.Close()
	}

	return led.WithSink(sink, func(s led.Sink) error {
		if err := SelfTest(ctx, s, kind); err != nil {
			return fmt.Errorf("self-test: %w", err)
		}
		l := loop.New(src, s, opts)
		if pv != nil {
			pv.SetStats(l.Stats)
		}
		return l.Run(ctx)
	})
}

// SelfTest plays a startup pattern. Cancelling ctx cuts it short without error.
func SelfTest(ctx context.Context, s led.Sink, kind led.Kind) error {
	if kind == led.None {
		return nil
	}
	hold := sweepHold
	if kind == led.Flash || kind == led.RGBTest {
		hold = flashHold
	}
	log.Info().Str("pattern", string(kind)).Msg("self-test")
	r := led.NewRunner(kind)
	for {
		ok, err := r.Step(s)
		if err != nil || !ok || r.Done() {
			return err
		}
		t := time.NewTimer(hold)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}
