package led

import (
	"errors"

	"github.com/rs/zerolog/log"
)

// Multi fans every update out to several sinks. The first sink is the
// hardware; its errors are returned. Errors from the rest are logged and
// dropped so a broken mirror never stops the lights.
type Multi struct {
	sinks []Sink
}

func NewMulti(primary Sink, mirrors ...Sink) *Multi {
	return &Multi{sinks: append([]Sink{primary}, mirrors...)}
}

func (m *Multi) SetAll(c RGB) error {
	return m.each(func(s Sink) error { return s.SetAll(c) })
}

func (m *Multi) SetMany(cells []Cell) error {
	return m.each(func(s Sink) error { return s.SetMany(cells) })
}

func (m *Multi) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) each(fn func(Sink) error) error {
	if err := fn(m.sinks[0]); err != nil {
		return err
	}
	for _, s := range m.sinks[1:] {
		if err := fn(s); err != nil {
			log.Debug().Err(err).Msg("mirror sink write failed")
		}
	}
	return nil
}
