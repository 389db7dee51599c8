package led

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/backlight/internal/layout"
)

// Sim stands in for hardware. It keeps the current pad state and logs a
// compact summary of each update at debug level.
type Sim struct {
	mu     sync.Mutex
	pads   [layout.Size * layout.Size]RGB
	Writes int
	closed bool
}

func NewSim() *Sim { return &Sim{} }

func (s *Sim) SetAll(c RGB) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.pads {
		s.pads[i] = c
	}
	s.Writes++
	log.Debug().Int("write", s.Writes).Uints8("rgb", []uint8{c.R, c.G, c.B}).Msg("sim: set all")
	return nil
}

func (s *Sim) SetMany(cells []Cell) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var r, g, b int
	for _, c := range cells {
		if !c.Pos.Valid() {
			continue
		}
		s.pads[c.Pos.Row*layout.Size+c.Pos.Col] = c.Color
		r += int(c.Color.R)
		g += int(c.Color.G)
		b += int(c.Color.B)
	}
	s.Writes++
	n := len(cells)
	if n == 0 {
		n = 1
	}
	log.Debug().
		Int("write", s.Writes).
		Int("cells", len(cells)).
		Ints("avg", []int{r / n, g / n, b / n}).
		Msg("sim: set many")
	return nil
}

// Pad returns the color currently shown at p.
func (s *Sim) Pad(p layout.Pos) RGB {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pads[p.Row*layout.Size+p.Col]
}

func (s *Sim) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Sim) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
