// Package loop drives capture → reduce → shape → emit at a bounded rate.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/backlight/internal/capture"
	"github.com/coreman2200/backlight/internal/layout"
	"github.com/coreman2200/backlight/internal/led"
	"github.com/coreman2200/backlight/internal/reduce"
	"github.com/coreman2200/backlight/internal/shape"
)

const (
	DefaultBackoff  = 15 * time.Millisecond
	DefaultInterval = 60 * time.Millisecond
)

type Options struct {
	Reducer     reduce.Reducer
	Shaper      shape.Shaper
	Orientation layout.Orientation
	// Backoff is the wait after a not-ready frame before asking again.
	Backoff time.Duration
	// Interval is the fixed pause after each emitted frame. It is not
	// shortened by the time spent capturing, so it bounds the update rate
	// from above only.
	Interval time.Duration
}

func DefaultOptions() Options {
	return Options{
		Reducer:     reduce.New(reduce.DefaultStep),
		Shaper:      shape.New(shape.DefaultParams()),
		Orientation: layout.DefaultOrientation,
		Backoff:     DefaultBackoff,
		Interval:    DefaultInterval,
	}
}

// Stats counts what the loop has done so far.
type Stats struct {
	Frames   uint64
	NotReady uint64
	LastStep time.Duration
}

// Loop owns one frame in flight at a time. It is not safe for concurrent Run
// calls; Stats may be read from any goroutine.
type Loop struct {
	src  capture.Source
	sink led.Sink
	opts Options

	avg   []colorful.Color
	cells []led.Cell

	sleep func(ctx context.Context, d time.Duration) error

	mu    sync.Mutex
	stats Stats
}

func New(src capture.Source, sink led.Sink, opts Options) *Loop {
	n := opts.Reducer.Cells()
	return &Loop{
		src:   src,
		sink:  sink,
		opts:  opts,
		avg:   make([]colorful.Color, n),
		cells: make([]led.Cell, n),
		sleep: sleepCtx,
	}
}

// Run steps until ctx is cancelled, which returns nil, or until a capture or
// device error, which is returned even when it races with cancellation.
func (l *Loop) Run(ctx context.Context) error {
	log.Info().
		Dur("backoff", l.opts.Backoff).
		Dur("interval", l.opts.Interval).
		Int("step", l.opts.Reducer.Step).
		Str("orientation", string(l.opts.Orientation)).
		Msg("frame loop starting")
	for {
		if err := l.Step(ctx); err != nil {
			if cerr := ctx.Err(); cerr != nil && errors.Is(err, cerr) {
				return nil
			}
			return err
		}
		if err := l.sleep(ctx, l.opts.Interval); err != nil {
			return nil
		}
	}
}

// Step acquires one frame, waiting out not-ready signals, and emits its 64
// cells in a single batch.
func (l *Loop) Step(ctx context.Context) error {
	start := time.Now()
	f, err := l.src.Next(ctx)
	for errors.Is(err, capture.ErrNotReady) {
		l.mu.Lock()
		l.stats.NotReady++
		l.mu.Unlock()
		log.Trace().Dur("backoff", l.opts.Backoff).Msg("frame not ready")
		if err := l.sleep(ctx, l.opts.Backoff); err != nil {
			return err
		}
		f, err = l.src.Next(ctx)
	}
	if err != nil {
		return fmt.Errorf("acquire frame: %w", err)
	}
	if err := l.opts.Reducer.Check(f); err != nil {
		return fmt.Errorf("bad frame: %w", err)
	}

	l.avg = l.opts.Reducer.Reduce(f, l.avg)
	for i, c := range l.avg {
		l.cells[i] = led.Cell{
			Pos:   l.opts.Orientation.Apply(layout.PosOf(i)),
			Color: l.opts.Shaper.Shape(c),
		}
	}
	if err := l.sink.SetMany(l.cells); err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	l.mu.Lock()
	l.stats.Frames++
	l.stats.LastStep = time.Since(start)
	l.mu.Unlock()
	return nil
}

func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
