package geom

import "github.com/chewxy/math32"

// Direction is one of sixteen compass points, clockwise from north.
// Eight-way code only uses the even values.
type Direction uint8

const (
	DirNorth Direction = iota
	DirNNE
	DirNorthEast
	DirENE
	DirEast
	DirESE
	DirSouthEast
	DirSSE
	DirSouth
	DirSSW
	DirSouthWest
	DirWSW
	DirWest
	DirWNW
	DirNorthWest
	DirNNW

	DirInvalid Direction = 16
)

type DirMode uint8

const (
	DirMode8 DirMode = iota
	DirMode16
)

var (
	xFact16 = [16]int32{0, 1, 1, 2, 1, 2, 1, 1, 0, -1, -1, -2, -1, -2, -1, -1}
	yFact16 = [16]int32{-1, -2, -1, -1, 0, 1, 1, 2, 1, 2, 1, 1, 0, -1, -1, -2}
)

// XFactor is the unit step along X for d. Even directions step by at most
// one; odd ones approximate their angle with a step of up to two.
func XFactor(d Direction) int32 {
	if d >= DirInvalid {
		return 0
	}
	return xFact16[d]
}

func YFactor(d Direction) int32 {
	if d >= DirInvalid {
		return 0
	}
	return yFact16[d]
}

func (d Direction) Invert() Direction {
	if d >= DirInvalid {
		return d
	}
	return (d + 8) % 16
}

func (d Direction) TurnRight(steps int) Direction {
	if d >= DirInvalid {
		return d
	}
	return Direction((int(d) + steps%16 + 16) % 16)
}

func (d Direction) TurnLeft(steps int) Direction { return d.TurnRight(-steps) }

// Is8Way reports whether d is one of the eight main directions.
func (d Direction) Is8Way() bool { return d < DirInvalid && d%2 == 0 }

// GetWorldDir returns the direction of travel for a displacement. A zero
// displacement faces north-east.
func GetWorldDir(dy, dx int32, mode DirMode) Direction {
	if dx == 0 && dy == 0 {
		return DirNorthEast
	}
	// clockwise from north (negative Y)
	a := math32.Atan2(float32(dx), float32(-dy))
	if a < 0 {
		a += 2 * math32.Pi
	}
	if mode == DirMode8 {
		sector := int(math32.Floor(a/(math32.Pi/4)+0.5)) % 8
		return Direction(sector * 2)
	}
	sector := int(math32.Floor(a/(math32.Pi/8)+0.5)) % 16
	return Direction(sector)
}

// GetWorldDirInRange is GetWorldDir clamped to the directions between
// lo and hi inclusive (clockwise).
func GetWorldDirInRange(dy, dx int32, mode DirMode, lo, hi Direction) Direction {
	d := GetWorldDir(dy, dx, mode)
	if inClockwiseRange(d, lo, hi) {
		return d
	}
	if clockwiseDist(hi, d) < clockwiseDist(d, lo) {
		return hi
	}
	return lo
}

func inClockwiseRange(d, lo, hi Direction) bool {
	return clockwiseDist(lo, d) <= clockwiseDist(lo, hi)
}

func clockwiseDist(from, to Direction) int {
	return (int(to) - int(from) + 16) % 16
}
