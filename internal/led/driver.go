package led

import (
	"errors"

	"github.com/coreman2200/backlight/internal/layout"
)

var errClosed = errors.New("led: sink closed")

// RGB is a device color, channels in R, G, B order.
type RGB struct{ R, G, B uint8 }

var (
	Off   = RGB{}
	White = RGB{R: 255, G: 255, B: 255}
)

// Cell pairs a pad position with the color it should show.
type Cell struct {
	Pos   layout.Pos
	Color RGB
}

// Sink abstracts a pad grid output.
type Sink interface {
	// SetAll fills every pad with one color.
	SetAll(c RGB) error
	// SetMany updates the listed pads in a single device transaction.
	SetMany(cells []Cell) error
	// Close releases resources.
	Close() error
}
