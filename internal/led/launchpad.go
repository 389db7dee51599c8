package led

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"gitlab.com/gomidi/midi/v2"

	"github.com/coreman2200/backlight/internal/layout"
)

// DefaultLaunchpadPort is matched as a substring of the MIDI output port name.
const DefaultLaunchpadPort = "Launchpad MK2"

// SysEx framing for the Launchpad MK2 in session layout.
var (
	lpHeader = []byte{0xF0, 0x00, 0x20, 0x29, 0x02, 0x18}
	lpEnd    = byte(0xF7)
)

const lpSetRGB = 0x0B

// MIDIOut is the part of a MIDI output port the Launchpad needs.
type MIDIOut interface {
	Send(data []byte) error
	Close() error
}

// Launchpad drives the 8×8 pad area of a Novation Launchpad MK2.
type Launchpad struct {
	mu  sync.Mutex
	out MIDIOut
	msg []byte
}

// OpenLaunchpad finds the first output port whose name contains port and opens it.
func OpenLaunchpad(port string) (*Launchpad, error) {
	if port == "" {
		port = DefaultLaunchpadPort
	}
	var names []string
	for _, p := range midi.GetOutPorts() {
		names = append(names, p.String())
		if !strings.Contains(p.String(), port) {
			continue
		}
		if err := p.Open(); err != nil {
			return nil, fmt.Errorf("open midi port %q: %w", p.String(), err)
		}
		log.Info().Str("port", p.String()).Msg("launchpad connected")
		return NewLaunchpad(p), nil
	}
	return nil, fmt.Errorf("no midi output matching %q (have %s)", port, strings.Join(names, ", "))
}

func NewLaunchpad(out MIDIOut) *Launchpad {
	return &Launchpad{out: out, msg: make([]byte, 0, len(lpHeader)+2+4*layout.Size*layout.Size)}
}

// PadNote returns the session-layout note of a pad. Note 11 is bottom left.
func PadNote(p layout.Pos) byte {
	return byte(11 + p.Col + 10*(layout.Size-1-p.Row))
}

// SetAll lights all 64 pads with one RGB message.
func (l *Launchpad) SetAll(c RGB) error {
	cells := make([]Cell, layout.Size*layout.Size)
	for i := range cells {
		cells[i] = Cell{Pos: layout.PosOf(i), Color: c}
	}
	return l.SetMany(cells)
}

// SetMany sends every cell in one SysEx message. The device takes up to 80
// entries per message, so a full grid always fits.
func (l *Launchpad) SetMany(cells []Cell) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return errClosed
	}
	msg := append(l.msg[:0], lpHeader...)
	msg = append(msg, lpSetRGB)
	for _, c := range cells {
		if !c.Pos.Valid() {
			return fmt.Errorf("launchpad: position %v off grid", c.Pos)
		}
		msg = append(msg, PadNote(c.Pos), c.Color.R>>2, c.Color.G>>2, c.Color.B>>2)
	}
	msg = append(msg, lpEnd)
	l.msg = msg
	if err := l.out.Send(msg); err != nil {
		return fmt.Errorf("launchpad send: %w", err)
	}
	return nil
}

func (l *Launchpad) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.out == nil {
		return nil
	}
	err := l.out.Close()
	l.out = nil
	return err
}
