package led

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/nrzled"
	"periph.io/x/extra/devices/screen"
	"periph.io/x/host/v3"

	"github.com/coreman2200/backlight/internal/layout"
)

// Strip is the part of an nrzled.Dev the matrix drives.
type Strip interface {
	Write(pixels []byte) (int, error)
	Halt() error
}

type MatrixOpts struct {
	Order layout.Serpentine
	Limit Limiter
	// Freq is the SPI clock. nrzled encodes each 800kHz WS2812 bit as three
	// SPI bits and only accepts 2.5MHz.
	Freq physic.Frequency
}

func DefaultMatrixOpts() MatrixOpts {
	return MatrixOpts{
		Order: layout.Serpentine{XFlipEveryRow: true},
		Limit: DefaultLimiter(),
		Freq:  2500 * physic.KiloHertz,
	}
}

// Matrix drives an 8×8 WS2812 panel chained as one strip.
type Matrix struct {
	mu    sync.Mutex
	strip Strip
	port  io.Closer
	opts  MatrixOpts
	// pixels mirrors what is shown, R,G,B per LED in chain order
	pixels []byte
}

var (
	hostInit = host.Init
	openSPI  = spireg.Open
)

// OpenMatrix initialises the host and opens the SPI port ("" selects the first one).
// Without a usable port the matrix is drawn on the console instead.
func OpenMatrix(dev string, opts MatrixOpts) (*Matrix, error) {
	if _, err := hostInit(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	p, err := openSPI(dev)
	if err != nil {
		log.Warn().Err(err).Str("dev", dev).Msg("no spi port, printing the matrix at the console")
		return newMatrix(screen.New(layout.Size*layout.Size), nil, opts), nil
	}
	m, err := NewMatrix(p, opts)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	log.Info().Str("spi", p.String()).Msg("ws2812 matrix ready")
	return m, nil
}

// NewMatrix wraps an already opened port. The port is closed with the matrix
// when it implements io.Closer.
func NewMatrix(p spi.Port, opts MatrixOpts) (*Matrix, error) {
	d, err := nrzled.NewSPI(p, &nrzled.Opts{
		NumPixels: layout.Size * layout.Size,
		Channels:  3,
		Freq:      opts.Freq,
	})
	if err != nil {
		return nil, err
	}
	c, _ := p.(io.Closer)
	return newMatrix(d, c, opts), nil
}

func newMatrix(s Strip, port io.Closer, opts MatrixOpts) *Matrix {
	return &Matrix{
		strip:  s,
		port:   port,
		opts:   opts,
		pixels: make([]byte, layout.Size*layout.Size*3),
	}
}

func (m *Matrix) SetAll(c RGB) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < len(m.pixels); i += 3 {
		m.pixels[i], m.pixels[i+1], m.pixels[i+2] = c.R, c.G, c.B
	}
	return m.flush()
}

func (m *Matrix) SetMany(cells []Cell) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range cells {
		if !c.Pos.Valid() {
			return fmt.Errorf("matrix: position %v off grid", c.Pos)
		}
		i := m.opts.Order.Index(c.Pos) * 3
		m.pixels[i], m.pixels[i+1], m.pixels[i+2] = c.Color.R, c.Color.G, c.Color.B
	}
	return m.flush()
}

func (m *Matrix) flush() error {
	if m.strip == nil {
		return errClosed
	}
	out := append([]byte(nil), m.pixels...)
	m.opts.Limit.Apply(out)
	if _, err := m.strip.Write(out); err != nil {
		return fmt.Errorf("matrix write: %w", err)
	}
	return nil
}

func (m *Matrix) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.strip == nil {
		return nil
	}
	err := m.strip.Halt()
	m.strip = nil
	if m.port != nil {
		if cerr := m.port.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
