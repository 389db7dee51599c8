// Package capture provides frame sources for the pipeline.
package capture

import (
	"context"
	"errors"

	"github.com/coreman2200/backlight/internal/frame"
)

// ErrNotReady reports that no new frame is available yet. It is expected and
// frequent; callers back off briefly and ask again.
var ErrNotReady = errors.New("capture: frame not ready")

// Source yields frames on demand. The returned Frame is only valid until the
// next call to Next.
type Source interface {
	Next(ctx context.Context) (frame.Frame, error)
}
