package geom

import "fmt"

// Point3 is a world coordinate. Z grows upwards; X and Y grow to the
// south-east and south-west respectively.
type Point3 struct {
	X int32
	Y int32
	Z int32
}

func Pt(x, y, z int32) Point3 { return Point3{X: x, Y: y, Z: z} }

func (p Point3) Add(o Point3) Point3 { return Point3{p.X + o.X, p.Y + o.Y, p.Z + o.Z} }
func (p Point3) Sub(o Point3) Point3 { return Point3{p.X - o.X, p.Y - o.Y, p.Z - o.Z} }

// Move returns p translated by (dx,dy,dz).
func (p Point3) Move(dx, dy, dz int32) Point3 {
	return Point3{p.X + dx, p.Y + dy, p.Z + dz}
}

// MaxDistXYZ is the Chebyshev distance over all three axes.
func (p Point3) MaxDistXYZ(o Point3) int32 {
	return max(abs32(p.X-o.X), abs32(p.Y-o.Y), abs32(p.Z-o.Z))
}

// MaxDistXY ignores height.
func (p Point3) MaxDistXY(o Point3) int32 {
	return max(abs32(p.X-o.X), abs32(p.Y-o.Y))
}

func (p Point3) SqrDist(o Point3) int64 {
	dx := int64(p.X - o.X)
	dy := int64(p.Y - o.Y)
	dz := int64(p.Z - o.Z)
	return dx*dx + dy*dy + dz*dz
}

func (p Point3) String() string { return fmt.Sprintf("(%d,%d,%d)", p.X, p.Y, p.Z) }

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
