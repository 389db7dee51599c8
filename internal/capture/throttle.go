package capture

import (
	"context"
	"time"

	"github.com/coreman2200/backlight/internal/frame"
)

// Throttled hands out at most one frame per interval and reports ErrNotReady
// in between, the way a capturer bound to the display refresh does.
type Throttled struct {
	src      Source
	interval time.Duration
	now      func() time.Time
	last     time.Time
}

// Throttle limits src to one frame per interval. A zero interval passes every call through.
func Throttle(src Source, interval time.Duration) *Throttled {
	return &Throttled{src: src, interval: interval, now: time.Now}
}

// PerSecond converts a target rate into a throttle interval.
func PerSecond(fps int) time.Duration {
	if fps <= 0 {
		return 0
	}
	return time.Second / time.Duration(fps)
}

func (t *Throttled) Next(ctx context.Context) (frame.Frame, error) {
	now := t.now()
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return frame.Frame{}, ErrNotReady
	}
	f, err := t.src.Next(ctx)
	if err != nil {
		return frame.Frame{}, err
	}
	t.last = now
	return f, nil
}
