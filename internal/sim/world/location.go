package world

import "u8sim/internal/sim/geom"

type locKind uint8

const (
	locWorld locKind = iota
	locGump
)

// Location is where an item sits: a world coordinate, or a slot in its
// container's gump. Equipped items carry their equipment type as the slot
// height.
type Location struct {
	kind locKind
	pt   geom.Point3
	gx   uint8
	gy   uint8
	gz   int32
}

func WorldLocation(p geom.Point3) Location { return Location{kind: locWorld, pt: p} }

func GumpLocation(gx, gy uint8) Location { return Location{kind: locGump, gx: gx, gy: gy} }

func (l Location) InWorld() bool { return l.kind == locWorld }

// Point is the world coordinate; zero for gump locations.
func (l Location) Point() geom.Point3 {
	if l.kind != locWorld {
		return geom.Point3{}
	}
	return l.pt
}

func (l Location) Gump() (gx, gy uint8) { return l.gx, l.gy }

// pack returns the legacy on-disk words: world items write x,y,z and
// contained items write x=0, y=gx|gy<<8, z=slot height.
func (l Location) pack() (x, y, z uint16) {
	if l.kind == locGump {
		return 0, uint16(l.gx) | uint16(l.gy)<<8, uint16(int16(l.gz))
	}
	return uint16(l.pt.X), uint16(l.pt.Y), uint16(int16(l.pt.Z))
}

func unpackLocation(inContainer bool, x, y, z uint16) Location {
	if inContainer {
		return Location{kind: locGump, gx: uint8(y), gy: uint8(y >> 8), gz: int32(int16(z))}
	}
	return Location{kind: locWorld, pt: geom.Point3{X: int32(x), Y: int32(y), Z: int32(int16(z))}}
}
