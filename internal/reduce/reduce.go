// Package reduce averages a captured frame down to a small grid of colors.
package reduce

import (
	"fmt"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/coreman2200/backlight/internal/frame"
)

const (
	GridCols = 8
	GridRows = 8
	// DefaultStep samples every 2nd pixel on both axes.
	DefaultStep = 2
)

// Reducer partitions a frame into Cols×Rows cells of width/Cols by height/Rows
// pixels and averages each one. Leftover columns and rows from the integer
// division are never sampled.
type Reducer struct {
	Cols int
	Rows int
	Step int
}

func New(step int) Reducer {
	if step < 1 {
		step = 1
	}
	return Reducer{Cols: GridCols, Rows: GridRows, Step: step}
}

// Cells returns the number of averages Reduce produces.
func (r Reducer) Cells() int { return r.Cols * r.Rows }

// SamplesPerAxis is the number of positions visited across a span of n pixels.
func (r Reducer) SamplesPerAxis(n int) int {
	return (n + r.Step - 1) / r.Step
}

// Check reports frames Reduce would reject. Callers run it once per frame
// before Reduce; Reduce itself treats a bad frame as a programming error.
func (r Reducer) Check(f frame.Frame) error {
	if r.Step < 1 || r.Cols < 1 || r.Rows < 1 {
		return fmt.Errorf("reduce: invalid grid %dx%d step %d", r.Cols, r.Rows, r.Step)
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if f.Width < r.Cols || f.Height < r.Rows {
		return fmt.Errorf("reduce: frame %dx%d smaller than %dx%d grid", f.Width, f.Height, r.Cols, r.Rows)
	}
	return nil
}

// Reduce writes one average per cell into dst in row-major order, row 0 at the
// top of the frame, and returns it. dst is grown when too small.
func (r Reducer) Reduce(f frame.Frame, dst []colorful.Color) []colorful.Color {
	cellW := f.Width / r.Cols
	cellH := f.Height / r.Rows
	count := uint64(r.SamplesPerAxis(cellW) * r.SamplesPerAxis(cellH))
	if count == 0 {
		panic(fmt.Sprintf("reduce: zero-area cell for %dx%d frame", f.Width, f.Height))
	}

	n := r.Cells()
	if cap(dst) < n {
		dst = make([]colorful.Color, n)
	}
	dst = dst[:n]

	bpp := f.Format.BytesPerPixel()
	ro, gOff, bo := f.Format.Offsets()
	div := float64(count) * 255

	for row := 0; row < r.Rows; row++ {
		for col := 0; col < r.Cols; col++ {
			var sr, sg, sb uint64
			for y := row * cellH; y < (row+1)*cellH; y += r.Step {
				line := f.Pix[f.Stride*y:]
				for x := col * cellW; x < (col+1)*cellW; x += r.Step {
					i := bpp * x
					sr += uint64(line[i+ro])
					sg += uint64(line[i+gOff])
					sb += uint64(line[i+bo])
				}
			}
			dst[row*r.Cols+col] = colorful.Color{
				R: float64(sr) / div,
				G: float64(sg) / div,
				B: float64(sb) / div,
			}
		}
	}
	return dst
}
