package capture

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/backlight/internal/frame"
)

// Pattern names a synthetic picture.
type Pattern string

const (
	Solid   Pattern = "solid"
	Rainbow Pattern = "rainbow"
)

// Synthetic renders BGRA frames without a display, for simulation and tests.
//
// Solid fills the frame with Color. Rainbow sweeps hue across X and dims
// towards the bottom; Speed turns the hue (revolutions per second).
type Synthetic struct {
	Pattern Pattern
	Color   colorful.Color
	Speed   float64

	f     frame.Frame
	start time.Time
	now   func() time.Time
}

// NewSynthetic allocates a width×height source. Rows carry 16 bytes of padding
// so consumers exercise a stride wider than the pixels.
func NewSynthetic(width, height int, p Pattern) (*Synthetic, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("synthetic: invalid size %dx%d", width, height)
	}
	switch p {
	case Solid, Rainbow:
	default:
		return nil, fmt.Errorf("synthetic: unknown pattern %q", p)
	}
	stride := width*4 + 16
	return &Synthetic{
		Pattern: p,
		Color:   colorful.Color{R: 1, G: 0.5, B: 0},
		Speed:   0.1,
		f: frame.Frame{
			Width:  width,
			Height: height,
			Stride: stride,
			Format: frame.BGRA,
			Pix:    make([]byte, stride*height),
		},
		start: time.Now(),
		now:   time.Now,
	}, nil
}

func (s *Synthetic) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	switch s.Pattern {
	case Rainbow:
		s.rainbow(s.now().Sub(s.start).Seconds())
	default:
		r, g, b := s.Color.Clamped().RGB255()
		s.fill(func(int) (uint8, uint8, uint8) { return r, g, b }, func(int) float64 { return 1 })
	}
	return s.f, nil
}

func (s *Synthetic) rainbow(t float64) {
	w, h := s.f.Width, s.f.Height
	cols := make([][3]uint8, w)
	for x := range cols {
		hue := math.Mod(360*(float64(x)/float64(w)+t*s.Speed), 360)
		r, g, b := colorful.Hsv(hue, 1, 1).RGB255()
		cols[x] = [3]uint8{r, g, b}
	}
	s.fill(
		func(x int) (uint8, uint8, uint8) { return cols[x][0], cols[x][1], cols[x][2] },
		func(y int) float64 { return 1 - 0.7*float64(y)/float64(max(1, h-1)) },
	)
}

func (s *Synthetic) fill(col func(x int) (uint8, uint8, uint8), row func(y int) float64) {
	for y := 0; y < s.f.Height; y++ {
		k := row(y)
		for x := 0; x < s.f.Width; x++ {
			r, g, b := col(x)
			s.f.Set(x, y, uint8(float64(r)*k), uint8(float64(g)*k), uint8(float64(b)*k))
		}
	}
}
