// Package shape turns averaged cell colors into device colors.
package shape

import (
	"math"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/backlight/internal/led"
)

const (
	DefaultGamma     = 1.5
	DefaultNormCurve = 1.0
)

// Params tune the curve. Zero values are replaced by defaults in New.
type Params struct {
	// Intensity scales the input before the gamma curve.
	Intensity float64
	// Gamma is the contrast exponent; values above 1 push dim content down.
	Gamma float64
	// NormCurve bends the vector length before dividing by it. 1 yields a unit vector.
	NormCurve float64
	// Brightness scales the 0..255 output before clamping.
	Brightness float64
}

func DefaultParams() Params {
	return Params{Intensity: 1, Gamma: DefaultGamma, NormCurve: DefaultNormCurve, Brightness: 1}
}

type Shaper struct {
	p Params
}

func New(p Params) Shaper {
	if p.Gamma <= 0 {
		p.Gamma = DefaultGamma
	}
	if p.NormCurve <= 0 {
		p.NormCurve = DefaultNormCurve
	}
	return Shaper{p: p}
}

func (s Shaper) Params() Params { return s.p }

// Shape maps one [0,1] color to a device color. Every non-black input comes
// out close to full brightness with its hue kept, since the channel vector is
// normalized; black stays black.
func (s Shaper) Shape(c colorful.Color) led.RGB {
	r := math.Pow(c.R*s.p.Intensity, s.p.Gamma)
	g := math.Pow(c.G*s.p.Intensity, s.p.Gamma)
	b := math.Pow(c.B*s.p.Intensity, s.p.Gamma)

	n := math.Sqrt(r*r + g*g + b*b)
	if n == 0 || math.IsNaN(n) {
		return led.RGB{}
	}
	n = math.Pow(n, s.p.NormCurve)

	k := 255 * s.p.Brightness / n
	return led.RGB{R: to8(r * k), G: to8(g * k), B: to8(b * k)}
}

// ShapeAll shapes src into dst, which is grown when too small.
func (s Shaper) ShapeAll(src []colorful.Color, dst []led.RGB) []led.RGB {
	if cap(dst) < len(src) {
		dst = make([]led.RGB, len(src))
	}
	dst = dst[:len(src)]
	for i, c := range src {
		dst[i] = s.Shape(c)
	}
	return dst
}

// to8 saturates into 0..255 and rounds to nearest.
func to8(v float64) uint8 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Round(v))
}
