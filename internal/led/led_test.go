package led

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/driver/driverreg"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spitest"
	"periph.io/x/extra/devices/screen"

	"github.com/coreman2200/backlight/internal/layout"
)

type fakeOut struct {
	sent   [][]byte
	closed bool
	err    error
}

func (f *fakeOut) Send(data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeOut) Close() error { f.closed = true; return nil }

type fakeStrip struct {
	writes [][]byte
	halted bool
}

func (f *fakeStrip) Write(p []byte) (int, error) {
	f.writes = append(f.writes, append([]byte(nil), p...))
	return len(p), nil
}

func (f *fakeStrip) Halt() error { f.halted = true; return nil }

type closer struct{ closed bool }

func (c *closer) Close() error { c.closed = true; return nil }

func fullGrid(c RGB) []Cell {
	cells := make([]Cell, 64)
	for i := range cells {
		cells[i] = Cell{Pos: layout.PosOf(i), Color: c}
	}
	return cells
}

func TestPadNote(t *testing.T) {
	assert.Equal(t, byte(81), PadNote(layout.Pos{Col: 0, Row: 0}))
	assert.Equal(t, byte(88), PadNote(layout.Pos{Col: 7, Row: 0}))
	assert.Equal(t, byte(11), PadNote(layout.Pos{Col: 0, Row: 7}))
	assert.Equal(t, byte(18), PadNote(layout.Pos{Col: 7, Row: 7}))
}

func TestLaunchpadBatchesIntoOneMessage(t *testing.T) {
	out := &fakeOut{}
	lp := NewLaunchpad(out)

	require.NoError(t, lp.SetMany(fullGrid(RGB{R: 255, G: 128, B: 3})))
	require.Len(t, out.sent, 1)

	msg := out.sent[0]
	assert.Equal(t, lpHeader, msg[:6])
	assert.Equal(t, byte(lpSetRGB), msg[6])
	assert.Equal(t, lpEnd, msg[len(msg)-1])
	assert.Len(t, msg, 6+1+64*4+1)
	// first entry: top-left pad, channels scaled to 0..63
	assert.Equal(t, []byte{81, 63, 32, 0}, msg[7:11])
}

func TestLaunchpadRejectsOffGrid(t *testing.T) {
	out := &fakeOut{}
	lp := NewLaunchpad(out)
	err := lp.SetMany([]Cell{{Pos: layout.Pos{Col: 8, Row: 0}}})
	assert.Error(t, err)
	assert.Empty(t, out.sent)
}

func TestLaunchpadClose(t *testing.T) {
	out := &fakeOut{}
	lp := NewLaunchpad(out)
	require.NoError(t, lp.Close())
	assert.True(t, out.closed)
	assert.ErrorIs(t, lp.SetAll(Off), errClosed)
	assert.NoError(t, lp.Close())
}

func TestMatrixUsesSerpentineOrder(t *testing.T) {
	strip := &fakeStrip{}
	port := &closer{}
	opts := DefaultMatrixOpts()
	opts.Limit = Limiter{}
	m := newMatrix(strip, port, opts)

	require.NoError(t, m.SetMany([]Cell{{Pos: layout.Pos{Col: 0, Row: 1}, Color: RGB{R: 9, G: 8, B: 7}}}))
	require.Len(t, strip.writes, 1)
	px := strip.writes[0]
	require.Len(t, px, 64*3)
	// row 1 runs right to left, so its first column is LED 15
	assert.Equal(t, []byte{9, 8, 7}, px[15*3:15*3+3])

	require.NoError(t, m.Close())
	assert.True(t, strip.halted)
	assert.True(t, port.closed)
	assert.ErrorIs(t, m.SetAll(Off), errClosed)
}

func TestMatrixAppliesLimiter(t *testing.T) {
	strip := &fakeStrip{}
	opts := DefaultMatrixOpts()
	m := newMatrix(strip, nil, opts)
	require.NoError(t, m.SetAll(White))
	assert.LessOrEqual(t, opts.Limit.CurrentMA(strip.writes[0]), opts.Limit.BudgetMA)
}

func TestMatrixOverRecordedSPI(t *testing.T) {
	buf := bytes.Buffer{}
	m, err := NewMatrix(spitest.NewRecordRaw(&buf), DefaultMatrixOpts())
	require.NoError(t, err)
	before := buf.Len()
	require.NoError(t, m.SetMany(fullGrid(RGB{R: 10})))
	assert.Greater(t, buf.Len(), before)
	require.NoError(t, m.Close())
}

func TestOpenMatrixFallsBackToConsole(t *testing.T) {
	hi, op := hostInit, openSPI
	t.Cleanup(func() { hostInit, openSPI = hi, op })
	hostInit = func() (*driverreg.State, error) { return &driverreg.State{}, nil }
	openSPI = func(string) (spi.PortCloser, error) { return nil, errors.New("no spi port") }

	m, err := OpenMatrix("", DefaultMatrixOpts())
	require.NoError(t, err)
	assert.IsType(t, &screen.Dev{}, m.strip)
	require.NoError(t, m.SetAll(RGB{R: 10, G: 20, B: 30}))
	require.NoError(t, m.Close())
}

func TestLimiterSoftKnee(t *testing.T) {
	// 40 LEDs at full red and green: 80 lit channels, 800mA
	rgb := bytes.Repeat([]byte{255, 255, 0}, 40)
	l := Limiter{ChanMA: 10, BudgetMA: 1000, Knee: 0.5}
	before := l.CurrentMA(rgb)
	require.InDelta(t, 800.0, before, 0.001)

	l.Apply(rgb)
	after := l.CurrentMA(rgb)
	// 500 + 500*(0.6/1.6) = 687.5
	assert.Less(t, after, before)
	assert.InDelta(t, 687.5, after, 10)
	assert.Less(t, rgb[0], byte(255))

	// below the knee nothing changes
	rgb = bytes.Repeat([]byte{255, 0, 0}, 20)
	l.Apply(rgb)
	assert.Equal(t, byte(255), rgb[0])
}

func TestLimiterBudgetClamp(t *testing.T) {
	rgb := bytes.Repeat([]byte{255}, 10*3)
	l := Limiter{ChanMA: 20, BudgetMA: 300, Knee: 0.9}
	// 10 white LEDs would draw 600mA
	l.Apply(rgb)
	assert.LessOrEqual(t, l.CurrentMA(rgb), 300.0)
}

func TestLimiterWhiteCap(t *testing.T) {
	rgb := []byte{255, 255, 255, 255, 0, 0}
	Limiter{WhiteCap: 0.5}.Apply(rgb)
	assert.LessOrEqual(t, int(rgb[0])+int(rgb[1])+int(rgb[2]), 383)
	// saturated single channel is below the cap and untouched
	assert.Equal(t, []byte{255, 0, 0}, rgb[3:])
}

func TestMultiReturnsPrimaryErrorsOnly(t *testing.T) {
	bad := NewLaunchpad(&fakeOut{err: errors.New("unplugged")})
	sim := NewSim()

	m := NewMulti(sim, bad)
	assert.NoError(t, m.SetAll(White))
	assert.Equal(t, White, sim.Pad(layout.Pos{Col: 3, Row: 3}))

	m = NewMulti(bad, sim)
	assert.Error(t, m.SetAll(White))
}

func TestWithSinkSwitchesOffOnEveryExit(t *testing.T) {
	sim := NewSim()
	err := WithSink(sim, func(s Sink) error {
		return s.SetMany(fullGrid(White))
	})
	require.NoError(t, err)
	assert.Equal(t, Off, sim.Pad(layout.Pos{Col: 0, Row: 0}))
	assert.True(t, sim.Closed())

	sim = NewSim()
	err = WithSink(sim, func(s Sink) error {
		_ = s.SetAll(White)
		return context.Canceled
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, Off, sim.Pad(layout.Pos{Col: 5, Row: 5}))

	sim = NewSim()
	assert.Panics(t, func() {
		_ = WithSink(sim, func(s Sink) error {
			_ = s.SetAll(White)
			panic("boom")
		})
	})
	assert.Equal(t, Off, sim.Pad(layout.Pos{Col: 1, Row: 1}))
	assert.True(t, sim.Closed())
}

func runAll(t *testing.T, r *Runner, s Sink, each func(step int)) int {
	t.Helper()
	steps := 0
	for {
		ok, err := r.Step(s)
		require.NoError(t, err)
		if !ok {
			return steps
		}
		if each != nil {
			each(steps)
		}
		steps++
	}
}

func TestRunnerPatterns(t *testing.T) {
	sim := NewSim()

	r := NewRunner(Flash)
	n := runAll(t, r, sim, func(step int) {
		if step == 0 {
			assert.Equal(t, FlashColor, sim.Pad(layout.Pos{}))
		}
	})
	assert.Equal(t, 2, n)
	assert.True(t, r.Done())
	assert.Equal(t, Off, sim.Pad(layout.Pos{}))

	r = NewRunner(IndexSweep)
	n = runAll(t, r, sim, func(step int) {
		if step == 63 {
			assert.Equal(t, White, sim.Pad(layout.Pos{Col: 7, Row: 7}))
			assert.Equal(t, Off, sim.Pad(layout.Pos{Col: 6, Row: 7}))
		}
	})
	assert.Equal(t, 65, n)

	r = NewRunner(RGBTest)
	n = runAll(t, r, sim, func(step int) {
		if step == 2 {
			assert.Equal(t, RGB{B: 255}, sim.Pad(layout.Pos{}))
		}
	})
	assert.Equal(t, 4, n)
	assert.Equal(t, Off, sim.Pad(layout.Pos{}))

	assert.True(t, NewRunner(None).Done())
	_, err := ParseKind("strobe")
	assert.Error(t, err)
}
