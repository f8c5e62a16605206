package world

import (
	"slices"

	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

// Camera decides where the fast area is centred.
type Camera interface {
	// ItemMoved is called when the followed item moves.
	ItemMoved()
	MoveToLocation(p geom.Point3)
	SetFollow(id ObjID)
	AddSnapEgg(id ObjID)
	RemoveSnapEgg(id ObjID)
}

// TargetReticle tracks the Crusader auto-aim target.
type TargetReticle interface {
	ItemMoved(it *Item)
	AvatarMoved()
}

// Crosshair is the Crusader aim point ahead of the controlled actor.
type Crosshair interface {
	Point() (geom.Point3, bool)
}

const (
	classCameraProcess    = "CameraProcess"
	classReticleProcess   = "TargetReticleProcess"
	classCrosshairProcess = "CrosshairProcess"
)

const (
	// Snap eggs pull the camera when the controlled actor is this close.
	snapEggRange int32 = 0x200
	// Crosshair distance in front of the controlled actor.
	crosshairDist int32 = 0x200
)

// CameraProcess follows an item, or holds a fixed point, and keeps the
// fast area centred on it. In Crusader a nearby snap egg takes over as the
// centre.
type CameraProcess struct {
	kernel.Base
	w        *World
	follow   ObjID
	pt       geom.Point3
	snapEggs []ObjID
	snapped  ObjID
}

func NewCameraProcess(w *World, follow ObjID) *CameraProcess {
	return &CameraProcess{
		Base:   kernel.NewBase(0, ProcTypeCamera),
		w:      w,
		follow: follow,
	}
}

func (p *CameraProcess) ClassName() string { return classCameraProcess }

func (p *CameraProcess) Follow() ObjID      { return p.follow }
func (p *CameraProcess) Point() geom.Point3 { return p.pt }
func (p *CameraProcess) SnapEggs() []ObjID  { return slices.Clone(p.snapEggs) }
func (p *CameraProcess) SnappedTo() ObjID   { return p.snapped }

func (p *CameraProcess) setPoint(pt geom.Point3) {
	p.pt = pt
	p.w.cmap.UpdateFastArea(pt)
}

// SetFollow moves the camera flag to id. Zero leaves the camera where it
// is.
func (p *CameraProcess) SetFollow(id ObjID) {
	if old := p.w.Item(p.follow); old != nil {
		old.extFlags &^= ExtCamera
	}
	p.follow = id
	it := p.w.Item(id)
	if it == nil {
		p.follow = 0
		return
	}
	it.extFlags |= ExtCamera
	p.setPoint(it.LocationAbsolute())
}

func (p *CameraProcess) ItemMoved() {
	if it := p.w.Item(p.follow); it != nil && p.snapped == 0 {
		p.setPoint(it.LocationAbsolute())
	}
}

// MoveToLocation centres the camera on pt without changing what it follows.
func (p *CameraProcess) MoveToLocation(pt geom.Point3) { p.setPoint(pt) }

func (p *CameraProcess) AddSnapEgg(id ObjID) {
	if !slices.Contains(p.snapEggs, id) {
		p.snapEggs = append(p.snapEggs, id)
	}
}

func (p *CameraProcess) RemoveSnapEgg(id ObjID) {
	p.snapEggs = removeID(p.snapEggs, id)
	if p.snapped == id {
		p.snapped = 0
	}
}

func (p *CameraProcess) Run() {
	w := p.w
	if w.rules.Game() == GameCrusader {
		if egg := p.nearestSnapEgg(); egg != nil {
			p.snapped = egg.objID
			if c := egg.Point(); c != p.pt {
				p.setPoint(c)
			}
			return
		}
		p.snapped = 0
	}
	if it := w.Item(p.follow); it != nil {
		if c := it.LocationAbsolute(); c != p.pt {
			p.setPoint(c)
		}
	}
}

func (p *CameraProcess) nearestSnapEgg() *Item {
	a := p.w.ControlledActor()
	if a == nil {
		return nil
	}
	ap := a.Point()
	var best *Item
	var bestDist int64
	for _, id := range p.snapEggs {
		egg := p.w.Item(id)
		if egg == nil || egg.Point().MaxDistXY(ap) > snapEggRange {
			continue
		}
		if d := egg.Point().SqrDist(ap); best == nil || d < bestDist {
			best, bestDist = egg, d
		}
	}
	return best
}

func (p *CameraProcess) SaveData(w *encoding.Writer) {
	p.Base.SaveData(w)
	w.WriteU16(uint16(p.follow))
	writePoint(w, p.pt)
	w.WriteU16(uint16(len(p.snapEggs)))
	for _, id := range p.snapEggs {
		w.WriteU16(uint16(id))
	}
	w.WriteU16(uint16(p.snapped))
}

func (p *CameraProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := p.Base.LoadData(r, version); err != nil {
		return err
	}
	p.follow = ObjID(r.ReadU16())
	p.pt = readPoint(r)
	n := int(r.ReadU16())
	if n*2 > r.Remaining() {
		return errShortList
	}
	p.snapEggs = make([]ObjID, n)
	for i := range p.snapEggs {
		p.snapEggs[i] = ObjID(r.ReadU16())
	}
	p.snapped = ObjID(r.ReadU16())
	return r.Err()
}

// ReticleProcess keeps the best target in front of the controlled actor
// marked with ExtTarget.
type ReticleProcess struct {
	kernel.Base
	w       *World
	target  ObjID
	lastDir geom.Direction
	dirty   bool
	enabled bool
}

func NewReticleProcess(w *World) *ReticleProcess {
	return &ReticleProcess{
		Base:    kernel.NewBase(0, ProcTypeReticle),
		w:       w,
		lastDir: geom.DirInvalid,
		enabled: true,
		dirty:   true,
	}
}

func (p *ReticleProcess) ClassName() string { return classReticleProcess }
func (p *ReticleProcess) Target() ObjID     { return p.target }
func (p *ReticleProcess) Enabled() bool     { return p.enabled }

func (p *ReticleProcess) SetEnabled(on bool) {
	p.enabled = on
	if !on {
		p.retarget(nil)
	}
	p.dirty = true
}

func (p *ReticleProcess) AvatarMoved() { p.dirty = true }

// ItemMoved drops the target once it is out of range of the actor.
func (p *ReticleProcess) ItemMoved(it *Item) {
	if it == nil || it.objID != p.target {
		return
	}
	a := p.w.ControlledActor()
	if a == nil || it.Centre().MaxDistXY(a.Centre()) > maxTargetRange {
		p.retarget(nil)
		p.dirty = true
	}
}

func (p *ReticleProcess) Run() {
	w := p.w
	if w.rules.Game() != GameCrusader || !p.enabled {
		return
	}
	a := w.ControlledActor()
	if a == nil {
		p.retarget(nil)
		return
	}
	if !p.dirty && a.direction == p.lastDir && w.Item(p.target) != nil {
		return
	}
	p.dirty = false
	p.lastDir = a.direction
	pt := a.Centre()
	p.retarget(w.cmap.FindBestTargetItem(pt, a.direction, geom.DirMode16, a.objID))
}

func (p *ReticleProcess) retarget(it *Item) {
	var id ObjID
	if it != nil {
		id = it.objID
	}
	if id == p.target {
		return
	}
	if old := p.w.Item(p.target); old != nil {
		old.extFlags &^= ExtTarget
	}
	p.target = id
	if it != nil {
		it.extFlags |= ExtTarget
		p.w.pout("reticle target", "item", id)
	}
}

func (p *ReticleProcess) SaveData(w *encoding.Writer) {
	p.Base.SaveData(w)
	w.WriteU16(uint16(p.target))
	w.WriteU8(uint8(p.lastDir))
	w.WriteBool(p.enabled)
}

func (p *ReticleProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := p.Base.LoadData(r, version); err != nil {
		return err
	}
	p.target = ObjID(r.ReadU16())
	p.lastDir = geom.Direction(r.ReadU8())
	p.enabled = r.ReadBool()
	p.dirty = true
	return r.Err()
}

// CrosshairProcess tracks the aim point in front of the controlled actor
// while it is in combat. It is recomputed every tick and never saved.
type CrosshairProcess struct {
	kernel.Base
	w       *World
	pt      geom.Point3
	visible bool
}

func NewCrosshairProcess(w *World) *CrosshairProcess {
	p := &CrosshairProcess{
		Base: kernel.NewBase(0, ProcTypeCrosshair),
		w:    w,
	}
	p.PreventSave()
	return p
}

func (p *CrosshairProcess) ClassName() string { return classCrosshairProcess }

// Point is the aim point for the actor's current facing. ok is false
// outside combat.
func (p *CrosshairProcess) Point() (geom.Point3, bool) {
	w := p.w
	if w.rules.Game() != GameCrusader {
		return geom.Point3{}, false
	}
	a := w.ControlledActor()
	if a == nil || !a.IsInCombat() || a.direction >= geom.DirInvalid {
		return geom.Point3{}, false
	}
	c := a.Centre()
	return c.Move(geom.XFactor(a.direction)*crosshairDist, geom.YFactor(a.direction)*crosshairDist, 0), true
}

func (p *CrosshairProcess) Run() { p.pt, p.visible = p.Point() }
