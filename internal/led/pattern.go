package led

import (
	"fmt"

	"github.com/coreman2200/backlight/internal/layout"
)

// Kind selects a self-test pattern.
type Kind string

const (
	None       Kind = ""
	Flash      Kind = "flash"
	RGBTest    Kind = "rgb_channels"
	IndexSweep Kind = "index_sweep"
)

func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case None, Flash, RGBTest, IndexSweep:
		return k, nil
	}
	return None, fmt.Errorf("unknown self-test %q (want flash, rgb_channels or index_sweep)", s)
}

// FlashColor is the dim white used for the startup flash.
var FlashColor = RGB{R: 96, G: 96, B: 96}

// Runner steps through a pattern one frame at a time.
type Runner struct {
	kind Kind
	step int
}

func NewRunner(k Kind) *Runner { return &Runner{kind: k} }

func (r *Runner) Kind() Kind { return r.kind }

// Len is the number of frames in the pattern. Every pattern ends on a dark frame.
func (r *Runner) Len() int {
	switch r.kind {
	case Flash:
		return 2
	case RGBTest:
		return 4
	case IndexSweep:
		return layout.Size*layout.Size + 1
	}
	return 0
}

// Done reports whether every frame has been pushed.
func (r *Runner) Done() bool { return r.step >= r.Len() }

// Step pushes the next frame of the pattern to s. It returns false once the
// pattern is complete, after which nothing is written.
func (r *Runner) Step(s Sink) (bool, error) {
	if r.Done() {
		return false, nil
	}
	var err error
	switch {
	case r.step == r.Len()-1:
		err = s.SetAll(Off)
	case r.kind == Flash:
		err = s.SetAll(FlashColor)
	case r.kind == RGBTest:
		err = s.SetAll([3]RGB{{R: 255}, {G: 255}, {B: 255}}[r.step])
	case r.kind == IndexSweep:
		cells := make([]Cell, layout.Size*layout.Size)
		for i := range cells {
			cells[i].Pos = layout.PosOf(i)
		}
		cells[r.step].Color = White
		err = s.SetMany(cells)
	}
	if err != nil {
		return false, err
	}
	r.step++
	return true, nil
}
