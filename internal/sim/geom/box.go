package geom

// Box is an item footprint. X and Y name the far (maximum) corner and Z the
// bottom, so the box covers (X-XD, X] x (Y-YD, Y] x [Z, Z+ZD).
type Box struct {
	X, Y, Z    int32
	XD, YD, ZD int32
}

func (b Box) MinX() int32 { return b.X - b.XD }
func (b Box) MinY() int32 { return b.Y - b.YD }
func (b Box) MaxZ() int32 { return b.Z + b.ZD }

// Overlaps reports a strictly positive volume intersection.
func (b Box) Overlaps(o Box) bool {
	if b.X <= o.MinX() || o.X <= b.MinX() {
		return false
	}
	if b.Y <= o.MinY() || o.Y <= b.MinY() {
		return false
	}
	if b.MaxZ() <= o.Z || o.MaxZ() <= b.Z {
		return false
	}
	return true
}

// OverlapsXY ignores height.
func (b Box) OverlapsXY(o Box) bool {
	if b.X <= o.MinX() || o.X <= b.MinX() {
		return false
	}
	if b.Y <= o.MinY() || o.Y <= b.MinY() {
		return false
	}
	return true
}

// IsOnTop reports whether b rests exactly on o's top surface with some
// horizontal overlap.
func (b Box) IsOnTop(o Box) bool {
	return b.Z == o.MaxZ() && b.OverlapsXY(o)
}

func (b Box) ContainsXY(x, y int32) bool {
	return x > b.MinX() && x <= b.X && y > b.MinY() && y <= b.Y
}

func (b Box) Centre() Point3 {
	return Point3{X: b.X - b.XD/2, Y: b.Y - b.YD/2, Z: b.Z + b.ZD/2}
}
