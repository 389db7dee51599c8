package led

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// WithSink runs fn with s and afterwards, however fn returned (error, context
// cancellation or panic), tries to switch every pad off and close s.
// The reset is best effort: its failure is logged and joined to fn's error.
func WithSink(s Sink, fn func(Sink) error) (err error) {
	defer func() {
		offErr := s.SetAll(Off)
		if offErr != nil {
			log.Warn().Err(offErr).Msg("could not switch pads off")
			offErr = fmt.Errorf("reset pads: %w", offErr)
		}
		closeErr := s.Close()
		if closeErr != nil {
			log.Warn().Err(closeErr).Msg("could not close sink")
		}
		err = errors.Join(err, offErr, closeErr)
	}()
	return fn(s)
}
