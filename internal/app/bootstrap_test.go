package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreman2200/backlight/internal/config"
	"github.com/coreman2200/backlight/internal/layout"
	"github.com/coreman2200/backlight/internal/led"
)

func shortHolds(t *testing.T) {
	t.Helper()
	fh, sh := flashHold, sweepHold
	flashHold, sweepHold = time.Millisecond, time.Microsecond
	t.Cleanup(func() { flashHold, sweepHold = fh, sh })
}

func simConfig() config.Config {
	cfg := config.Default()
	cfg.Driver = config.DriverSim
	cfg.Source = config.SourceSynthetic
	cfg.SelfTest = ""
	return cfg
}

func TestLoopOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Brightness = 0.5
	cfg.Orientation = "mirror-x"
	cfg.Tuning.Step = 4

	o, err := LoopOptions(cfg)
	require.NoError(t, err)
	assert.Equal(t, layout.MirrorX, o.Orientation)
	assert.Equal(t, 4, o.Reducer.Step)
	assert.Equal(t, 15*time.Millisecond, o.Backoff)
	assert.Equal(t, 60*time.Millisecond, o.Interval)

	cfg.Orientation = "sideways"
	_, err = LoopOptions(cfg)
	assert.Error(t, err)
}

func TestOpenSinkSim(t *testing.T) {
	s, err := OpenSink(simConfig())
	require.NoError(t, err)
	assert.IsType(t, &led.Sim{}, s)

	cfg := simConfig()
	cfg.Driver = "laser"
	_, err = OpenSink(cfg)
	assert.Error(t, err)
}

func TestOpenSourceSynthetic(t *testing.T) {
	src, err := OpenSource(simConfig())
	require.NoError(t, err)
	f, err := src.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, syntheticW, f.Width)
	assert.Equal(t, syntheticH, f.Height)
}

func TestSelfTestEndsDark(t *testing.T) {
	shortHolds(t)
	for _, k := range []led.Kind{led.Flash, led.RGBTest, led.IndexSweep} {
		sim := led.NewSim()
		require.NoError(t, SelfTest(context.Background(), sim, k), k)
		assert.Equal(t, led.NewRunner(k).Len(), sim.Writes, k)
		assert.Equal(t, led.Off, sim.Pad(layout.Pos{Col: 4, Row: 4}), k)
	}

	sim := led.NewSim()
	require.NoError(t, SelfTest(context.Background(), sim, led.None))
	assert.Zero(t, sim.Writes)
}

func TestSelfTestCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim := led.NewSim()
	require.NoError(t, SelfTest(ctx, sim, led.Flash))
	assert.Equal(t, 1, sim.Writes)
	assert.Equal(t, led.FlashColor, sim.Pad(layout.Pos{}))
}

func TestRunStopsOnCancel(t *testing.T) {
	shortHolds(t)
	cfg := simConfig()
	cfg.SelfTest = string(led.Flash)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	assert.NoError(t, Run(ctx, cfg))
}

func TestRunRejectsBadSelfTest(t *testing.T) {
	cfg := simConfig()
	cfg.SelfTest = "strobe"
	assert.Error(t, Run(context.Background(), cfg))
}
