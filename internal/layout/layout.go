package layout

import "fmt"

// Size is the side length of the square pad grid.
const Size = 8

// Pos is a cell on the pad grid: Col left to right, Row top to bottom.
type Pos struct{ Col, Row int }

// PosOf returns the position of the i-th cell in row-major order.
func PosOf(i int) Pos { return Pos{Col: i % Size, Row: i / Size} }

// Valid reports whether p lies on the grid.
func (p Pos) Valid() bool {
	return p.Col >= 0 && p.Col < Size && p.Row >= 0 && p.Row < Size
}

// Orientation maps a screen cell to the device pad showing it.
type Orientation string

const (
	Identity  Orientation = "identity"
	Rotate180 Orientation = "rotate180"
	MirrorX   Orientation = "mirror-x"
	MirrorY   Orientation = "mirror-y"
)

// DefaultOrientation matches a controller mounted with its logo at the top
// facing away from the screen, which shows the picture turned half a turn.
const DefaultOrientation = Rotate180

func ParseOrientation(s string) (Orientation, error) {
	switch o := Orientation(s); o {
	case Identity, Rotate180, MirrorX, MirrorY:
		return o, nil
	case "":
		return DefaultOrientation, nil
	}
	return "", fmt.Errorf("unknown orientation %q (want identity, rotate180, mirror-x or mirror-y)", s)
}

// Apply maps p through the orientation.
func (o Orientation) Apply(p Pos) Pos {
	switch o {
	case Rotate180:
		return Pos{Col: Size - 1 - p.Col, Row: Size - 1 - p.Row}
	case MirrorX:
		return Pos{Col: Size - 1 - p.Col, Row: p.Row}
	case MirrorY:
		return Pos{Col: p.Col, Row: Size - 1 - p.Row}
	}
	return p
}

// Serpentine describes how a chain of LEDs snakes across a matrix.
type Serpentine struct {
	XFlipEveryRow bool
	// BottomUp starts the chain on the bottom row.
	BottomUp bool
}

// Index maps a grid position to its linear LED index (0..Size*Size-1).
func (s Serpentine) Index(p Pos) int {
	row := p.Row
	if s.BottomUp {
		row = Size - 1 - p.Row
	}
	col := p.Col
	if s.XFlipEveryRow && row%2 == 1 {
		col = Size - 1 - p.Col
	}
	return row*Size + col
}
