package world

import (
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/kernel"
)

const classGravityProcess = "GravityProcess"

// Falls shorter than this many world units do no damage.
const safeFallHeight = 80

// GravityProcess moves a thrown or falling item one velocity step per tick
// until it comes to rest. A hard landing bounces once.
type GravityProcess struct {
	kernel.Base
	w       *World
	gravity int32
	xs      int32
	ys      int32
	zs      int32
}

func NewGravityProcess(w *World, it *Item, gravity int32) *GravityProcess {
	var id uint16
	if it != nil {
		id = uint16(it.objID)
	}
	return &GravityProcess{
		Base:    kernel.NewBase(id, ProcTypeGravity),
		w:       w,
		gravity: gravity,
	}
}

func (p *GravityProcess) ClassName() string { return classGravityProcess }

func (p *GravityProcess) Gravity() int32               { return p.gravity }
func (p *GravityProcess) SetGravity(g int32)           { p.gravity = g }
func (p *GravityProcess) Velocity() (xs, ys, zs int32) { return p.xs, p.ys, p.zs }

// init binds the process to its item. Actors remember where the fall began.
func (p *GravityProcess) init() {
	it := p.w.Item(ObjID(p.ItemNum()))
	if it == nil {
		return
	}
	it.gravityPid = p.Pid()
	if a := actorOf(it.self); a != nil {
		a.fallStart = uint32(it.Point().Z)
	}
}

// Move adds to the current velocity.
func (p *GravityProcess) Move(xs, ys, zs int32) {
	p.xs += xs
	p.ys += ys
	p.zs += zs
}

func (p *GravityProcess) Run() {
	w := p.w
	it := w.Item(ObjID(p.ItemNum()))
	if it == nil || it.owner() != 0 || it.gravityPid != p.Pid() {
		p.Terminate()
		return
	}

	p.zs -= p.gravity
	dest := it.Point().Move(p.xs, p.ys, p.zs)
	ground := dest.Z < 0
	if ground {
		dest.Z = 0
	}
	dist, _, dirs := it.CollideMove(dest, false, false)
	if !it.isLive() || it.owner() != 0 {
		p.Terminate()
		return
	}
	if dist == sweepEnd {
		if ground {
			dirs = 4
		} else {
			if p.xs == 0 && p.ys == 0 && p.zs <= 0 && p.supported(it) {
				p.land(it)
			}
			return
		}
	}

	switch {
	case dirs&4 != 0 && p.zs < 0:
		if it.flags&FlagBouncing == 0 && -p.zs > 4*p.gravity && it.ShapeInfo().Weight > 0 {
			it.flags |= FlagBouncing
			p.zs = -p.zs / 3
			p.xs /= 2
			p.ys /= 2
			return
		}
		p.land(it)
	case dirs&4 != 0:
		p.zs = 0
	default:
		if dirs&1 != 0 {
			p.xs = 0
		}
		if dirs&2 != 0 {
			p.ys = 0
		}
		if dist == 0 && dirs == 0 {
			p.land(it)
		}
	}
}

func (p *GravityProcess) supported(it *Item) bool {
	return p.w.cmap.PositionInfo(it.WorldBox(), it.ShapeInfo().Flags, it.objID).Supported
}

// land ends the fall. U8 actors take damage for long drops.
func (p *GravityProcess) land(it *Item) {
	w := p.w
	if a := actorOf(it.self); a != nil && w.rules.Game() == GameU8 && !a.IsDead() {
		height := int32(a.fallStart) - it.Point().Z
		if height >= safeFallHeight {
			damage := (height - 72) / 4
			if height >= 104 {
				damage = (height - 56) / 4
			}
			a.ReceiveHit(0, a.direction, int(damage), DamageFalling)
		}
	}
	p.Terminate()
}

// Terminate detaches the process from its item.
func (p *GravityProcess) Terminate() {
	if p.IsTerminated() {
		return
	}
	if it := p.w.Item(ObjID(p.ItemNum())); it != nil && it.gravityPid == p.Pid() {
		it.gravityPid = 0
		it.flags &^= FlagBouncing
	}
	p.Base.Terminate()
}

func (p *GravityProcess) SaveData(w *encoding.Writer) {
	p.Base.SaveData(w)
	w.WriteI32(p.gravity)
	w.WriteI32(p.xs)
	w.WriteI32(p.ys)
	w.WriteI32(p.zs)
}

func (p *GravityProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := p.Base.LoadData(r, version); err != nil {
		return err
	}
	p.gravity = r.ReadI32()
	p.xs = r.ReadI32()
	p.ys = r.ReadI32()
	p.zs = r.ReadI32()
	return r.Err()
}
