package capture

import (
	"context"
	"fmt"
	"image"

	"github.com/kbinani/screenshot"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/backlight/internal/frame"
)

// Screen captures one display.
type Screen struct {
	index  int
	bounds image.Rectangle
}

// OpenScreen selects a display by index, or the primary display when index is nil.
func OpenScreen(index *int) (*Screen, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return nil, fmt.Errorf("no active displays found")
	}
	i := 0
	if index != nil {
		if *index < 0 || *index >= n {
			return nil, fmt.Errorf("display %d out of range (have %d)", *index, n)
		}
		i = *index
	}
	s := &Screen{index: i, bounds: screenshot.GetDisplayBounds(i)}
	if s.bounds.Empty() {
		return nil, fmt.Errorf("display %d has empty bounds", i)
	}
	log.Info().
		Int("display", i).
		Int("width", s.Width()).
		Int("height", s.Height()).
		Msg("screen capture ready")
	return s, nil
}

func (s *Screen) Width() int  { return s.bounds.Dx() }
func (s *Screen) Height() int { return s.bounds.Dy() }

func (s *Screen) Next(ctx context.Context) (frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return frame.Frame{}, err
	}
	img, err := screenshot.CaptureRect(s.bounds)
	if err != nil {
		return frame.Frame{}, fmt.Errorf("capture display %d: %w", s.index, err)
	}
	return frame.FromRGBA(img), nil
}
