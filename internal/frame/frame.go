package frame

import (
	"fmt"
	"image"
)

// PixelFormat names the byte layout of one pixel in a Frame buffer.
type PixelFormat int

const (
	// BGRA is what most platform capture APIs hand back: B,G,R,A per pixel.
	BGRA PixelFormat = iota
	RGBA
	BGR24
)

func (p PixelFormat) String() string {
	switch p {
	case BGRA:
		return "BGRA"
	case RGBA:
		return "RGBA"
	case BGR24:
		return "BGR24"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(p))
}

// BytesPerPixel returns the pixel pitch inside a row.
func (p PixelFormat) BytesPerPixel() int {
	if p == BGR24 {
		return 3
	}
	return 4
}

// Offsets returns the byte offsets of the red, green and blue channels within a pixel.
func (p PixelFormat) Offsets() (r, g, b int) {
	switch p {
	case RGBA:
		return 0, 1, 2
	default:
		return 2, 1, 0
	}
}

// Frame is a read-only view of one capture. Pix is not copied; callers must not
// keep a Frame past the next call to the source that produced it.
type Frame struct {
	Width  int
	Height int
	// Stride is bytes per row and may exceed Width*BytesPerPixel because of padding.
	Stride int
	Format PixelFormat
	Pix    []byte
}

// Validate reports whether the geometry and the buffer agree.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("frame: invalid size %dx%d", f.Width, f.Height)
	}
	row := f.Width * f.Format.BytesPerPixel()
	if f.Stride < row {
		return fmt.Errorf("frame: stride %d shorter than row of %d bytes", f.Stride, row)
	}
	if need := f.Stride*(f.Height-1) + row; len(f.Pix) < need {
		return fmt.Errorf("frame: buffer has %d bytes, %dx%d at stride %d needs %d",
			len(f.Pix), f.Width, f.Height, f.Stride, need)
	}
	return nil
}

// FromRGBA wraps an *image.RGBA without copying. Sub-images are honoured.
func FromRGBA(img *image.RGBA) Frame {
	b := img.Bounds()
	return Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Stride: img.Stride,
		Format: RGBA,
		Pix:    img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
	}
}

// Filled allocates a frame of the given format where every pixel is c (R,G,B order).
func Filled(w, h, stride int, format PixelFormat, r, g, b uint8) Frame {
	f := Frame{Width: w, Height: h, Stride: stride, Format: format, Pix: make([]byte, stride*h)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			f.Set(x, y, r, g, b)
		}
	}
	return f
}

// Set writes one pixel in the frame's native channel order. Alpha, when present, is set opaque.
func (f Frame) Set(x, y int, r, g, b uint8) {
	bpp := f.Format.BytesPerPixel()
	i := f.Stride*y + bpp*x
	ro, gO, bo := f.Format.Offsets()
	f.Pix[i+ro] = r
	f.Pix[i+gO] = g
	f.Pix[i+bo] = b
	if bpp == 4 {
		f.Pix[i+3] = 255
	}
}
