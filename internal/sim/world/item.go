package world

import (
	"fmt"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

const classItem = "Item"

type lerpState struct {
	X, Y, Z int32
	Shape   uint32
	Frame   uint32
}

// Item is the basic simulated object. Containers, actors and the main actor
// embed it; calls that must reach the most derived type go through self.
type Item struct {
	objID    ObjID
	shape    uint32
	frame    uint32
	loc      Location
	quality  uint16
	npcNum   uint16
	mapNum   uint16
	flags    uint16
	extFlags uint32
	parent   ObjID

	// An ethereal item remembers the container it left so it can return.
	voidParent   ObjID
	voidEquipped bool

	gump         ObjID
	bark         ObjID
	gravityPid   kernel.ProcID
	damagePoints uint8

	lPrev     lerpState
	lNext     lerpState
	lastSetup uint32

	world *World
	self  Object
}

func (it *Item) ObjID() ObjID      { return it.objID }
func (it *Item) ClassName() string { return classItem }
func (it *Item) AsItem() *Item     { return it }

// Handle pins the item's current incarnation.
func (it *Item) Handle() Handle { return it.world.objects.Handle(it.objID) }

func (it *Item) Shape() uint32 { return it.shape }
func (it *Item) Frame() uint32 { return it.frame }

func (it *Item) SetFrame(f uint32) { it.frame = f }

// SetShape changes the shape. In Crusader the map's target list follows
// the targetable flag of the new shape.
func (it *Item) SetShape(shape uint32) {
	if it.world.rules.Traits().TargetList && it.shape != 0 && shape != it.shape && it.flags&FlagBroken == 0 {
		was := it.ShapeInfo().IsTargetable()
		it.shape = shape
		now := it.ShapeInfo().IsTargetable()
		switch {
		case was && !now:
			it.world.cmap.RemoveTarget(it.objID)
		case !was && now:
			it.world.cmap.AddTarget(it.objID)
		}
		return
	}
	it.shape = shape
}

func (it *Item) Quality() uint16     { return it.quality }
func (it *Item) SetQuality(q uint16) { it.quality = q }
func (it *Item) NpcNum() uint16      { return it.npcNum }
func (it *Item) SetNpcNum(n uint16)  { it.npcNum = n }
func (it *Item) MapNum() uint16      { return it.mapNum }
func (it *Item) SetMapNum(n uint16)  { it.mapNum = n }

func (it *Item) Flags() uint16             { return it.flags }
func (it *Item) HasFlags(f uint16) bool    { return it.flags&f != 0 }
func (it *Item) SetFlag(f uint16)          { it.flags |= f }
func (it *Item) ClearFlag(f uint16)        { it.flags &^= f }
func (it *Item) ExtFlags() uint32          { return it.extFlags }
func (it *Item) HasExtFlags(f uint32) bool { return it.extFlags&f != 0 }
func (it *Item) SetExtFlag(f uint32)       { it.extFlags |= f }
func (it *Item) ClearExtFlag(f uint32)     { it.extFlags &^= f }

func (it *Item) Parent() ObjID             { return it.parent }
func (it *Item) GravityPid() kernel.ProcID { return it.gravityPid }
func (it *Item) DamagePoints() uint8       { return it.damagePoints }
func (it *Item) SetDamagePoints(p uint8)   { it.damagePoints = p }
func (it *Item) Gump() ObjID               { return it.gump }
func (it *Item) SetGump(g ObjID)           { it.gump = g }
func (it *Item) BarkGump() ObjID           { return it.bark }
func (it *Item) Location() Location        { return it.loc }
func (it *Item) IsEthereal() bool          { return it.flags&FlagEthereal != 0 }
func (it *Item) IsOnScreen() bool          { return it.flags&FlagFastArea != 0 }
func (it *Item) ShapeInfo() *catalogs.ShapeInfo {
	return it.world.cats.Shapes.Shape(it.shape)
}
func (it *Item) Family() uint8 { return it.ShapeInfo().Family }

// Point is the item's world coordinate. Contained items report zero.
func (it *Item) Point() geom.Point3 { return it.loc.Point() }

// setLocation moves the coordinates without touching the map lists.
func (it *Item) setLocation(p geom.Point3) { it.loc = WorldLocation(p) }

// owner is the container the item belongs to, including the one an
// ethereal item will return to.
func (it *Item) owner() ObjID {
	if it.parent != 0 {
		return it.parent
	}
	return it.voidParent
}

func (it *Item) ParentAsContainer() *Container {
	if it.parent == 0 {
		return nil
	}
	c := it.world.Container(it.parent)
	if c == nil {
		it.world.perr("parent is not a container", "item", it.objID, "parent", it.parent)
	}
	return c
}

func (it *Item) RootContainer() *Container {
	var root *Container
	for p := it.ParentAsContainer(); p != nil; p = p.ParentAsContainer() {
		root = p
	}
	return root
}

// TopItem is the outermost container holding the item, or the item.
func (it *Item) TopItem() *Item {
	if root := it.RootContainer(); root != nil {
		return &root.Item
	}
	return it
}

// LocationAbsolute is the world point of the item or of its outermost
// container.
func (it *Item) LocationAbsolute() geom.Point3 {
	if o := it.owner(); o != 0 {
		if p := it.world.Item(o); p != nil {
			return p.LocationAbsolute()
		}
	}
	return it.loc.Point()
}

// GumpLocation reports the gump slot of a contained item.
func (it *Item) GumpLocation() (gx, gy uint8, ok bool) {
	if it.owner() == 0 || it.loc.InWorld() {
		return 0, 0, false
	}
	gx, gy = it.loc.Gump()
	return gx, gy, true
}

func (it *Item) SetGumpLocation(gx, gy uint8) {
	if it.owner() == 0 {
		return
	}
	it.loc = Location{kind: locGump, gx: gx, gy: gy, gz: it.loc.gz}
}

// RandomGumpLocation marks the slot as (255,255) so the gump places the item
// when it next opens.
func (it *Item) RandomGumpLocation() { it.SetGumpLocation(0xFF, 0xFF) }

// FootpadData is the shape footprint in footpad units, swapped for flipped
// items.
func (it *Item) FootpadData() (x, y, z int32) {
	si := it.ShapeInfo()
	if it.flags&FlagFlipped != 0 {
		return si.Y, si.X, si.Z
	}
	return si.X, si.Y, si.Z
}

// FootpadWorld is the footprint in world units.
func (it *Item) FootpadWorld() (x, y, z int32) {
	x, y, z = it.FootpadData()
	return x * 32, y * 32, z * 8
}

func (it *Item) WorldBox() geom.Box {
	xd, yd, zd := it.FootpadWorld()
	p := it.loc.Point()
	return geom.Box{X: p.X, Y: p.Y, Z: p.Z, XD: xd, YD: yd, ZD: zd}
}

func (it *Item) Centre() geom.Point3 {
	x, y, z := it.FootpadData()
	p := it.loc.Point()
	return geom.Point3{X: p.X - x*16, Y: p.Y - y*16, Z: p.Z + z*4}
}

func (it *Item) Overlaps(o *Item) bool   { return it.WorldBox().Overlaps(o.WorldBox()) }
func (it *Item) OverlapsXY(o *Item) bool { return it.WorldBox().OverlapsXY(o.WorldBox()) }

// IsOn reports whether the item rests on o's top surface.
func (it *Item) IsOn(o *Item) bool { return it.WorldBox().IsOnTop(o.WorldBox()) }

func (it *Item) IsCompletelyOn(o *Item) bool {
	if it.flags&FlagContained != 0 || o.flags&FlagContained != 0 {
		return false
	}
	a, b := it.WorldBox(), o.WorldBox()
	return a.X <= b.X && b.MinX() <= a.MinX() &&
		a.Y <= b.Y && b.MinY() <= a.MinY() &&
		b.MaxZ() == a.Z
}

func (it *Item) IsCentreOn(o *Item) bool {
	c := it.Centre()
	b := o.WorldBox()
	if c.X <= b.MinX() || b.X <= c.X {
		return false
	}
	if c.Y <= b.MinY() || b.Y <= c.Y {
		return false
	}
	return b.MaxZ() == it.loc.Point().Z
}

// CanExistAt reports whether the item could stand at p without overlapping
// anything solid, optionally requiring support underneath.
func (it *Item) CanExistAt(p geom.Point3, needSupport bool) bool {
	xd, yd, zd := it.FootpadWorld()
	info := it.world.cmap.PositionInfo(geom.Box{X: p.X, Y: p.Y, Z: p.Z, XD: xd, YD: yd, ZD: zd}, it.ShapeInfo().Flags, it.objID)
	return info.Valid && (!needSupport || info.Supported)
}

func (it *Item) DirToItemCentre(o *Item) geom.Direction {
	a, b := it.Centre(), o.Centre()
	return geom.GetWorldDir(b.Y-a.Y, b.X-a.X, geom.DirMode8)
}

func (it *Item) DirToPoint(p geom.Point3) geom.Direction {
	a := it.Centre()
	return geom.GetWorldDir(p.Y-a.Y, p.X-a.X, geom.DirMode8)
}

// Range is the largest gap between the two footprints along any axis.
func (it *Item) Range(o *Item, checkZ bool) int32 {
	p1, p2 := it.LocationAbsolute(), o.LocationAbsolute()
	xd1, yd1, zd1 := it.FootpadWorld()
	xd2, yd2, zd2 := o.FootpadWorld()
	r := max(int32(0), (p1.X-xd1)-p2.X, (p2.X-xd2)-p1.X, (p1.Y-yd1)-p2.Y, (p2.Y-yd2)-p1.Y)
	if checkZ {
		r = max(r, p1.Z-(p2.Z+zd2), p2.Z-(p1.Z+zd1))
	}
	return r
}

// RangeIfVisible is the centre-to-centre Chebyshev distance, or 0 if
// anything blocks the line between them.
func (it *Item) RangeIfVisible(o *Item) int32 {
	start, end := it.Centre(), o.Centre()
	hits := it.world.cmap.SweepTest(start, end, [3]int32{1, 1, 1}, it.ShapeInfo().Flags, it.objID, true)
	for _, h := range hits {
		if h.Blocking && h.Item != it.objID && h.Item != o.objID {
			return 0
		}
	}
	return start.MaxDistXYZ(end)
}

func losClear(hits []SweepItem, altPos bool, self, other ObjID) bool {
	otherHit := sweepEnd
	blocked := sweepEnd
	for _, h := range hits {
		if h.Item == self {
			continue
		}
		if h.Item == other && !altPos {
			otherHit = h.HitTime
			continue
		}
		if h.Touching {
			continue
		}
		if h.Blocking && h.HitTime < blocked {
			blocked = h.HitTime
		}
	}
	return blocked >= otherHit
}

// CanReach checks range and line of sight from this item to o (or to the
// alternate point alt when non-nil).
func (it *Item) CanReach(o *Item, rng int32, alt *geom.Point3) bool {
	p1 := it.LocationAbsolute()
	o = o.TopItem()
	p2 := o.LocationAbsolute()
	if alt != nil {
		p2 = *alt
	}
	xd1, yd1, zd1 := it.FootpadWorld()
	xd2, yd2, zd2 := o.FootpadWorld()
	if (p1.X-xd1)-p2.X > rng || (p2.X-xd2)-p1.X > rng {
		return false
	}
	if (p1.Y-yd1)-p2.Y > rng || (p2.Y-yd2)-p1.Y > rng {
		return false
	}

	cm := it.world.cmap
	dims := [3]int32{2, 2, 2}
	start, end := p1, p2
	if p2.Z > p1.Z && p2.Z < p1.Z+zd1 {
		start.Z = end.Z
	}
	if losClear(cm.SweepTest(start, end, dims, catalogs.SISolid, it.objID, false), alt != nil, it.objID, o.objID) {
		return true
	}

	start = geom.Point3{X: p1.X - xd1/2, Y: p1.Y - yd1/2, Z: p1.Z}
	if zd1 > 16 {
		start.Z += zd1 - 8
	}
	end = geom.Point3{X: p2.X - xd2/2, Y: p2.Y - yd2/2, Z: p2.Z + zd2/2}
	if losClear(cm.SweepTest(start, end, dims, catalogs.SISolid, it.objID, false), alt != nil, it.objID, o.objID) {
		return true
	}
	end.Z = p2.Z + zd2
	return losClear(cm.SweepTest(start, end, dims, catalogs.SISolid, it.objID, false), alt != nil, it.objID, o.objID)
}

// Weight is in tenths.
func (it *Item) Weight() uint32 {
	si := it.ShapeInfo()
	w := uint32(si.Weight)
	switch si.Family {
	case catalogs.FamilyQuantity:
		return (uint32(it.quality)*w + 9) / 10
	case catalogs.FamilyReagent:
		return uint32(it.quality) * w
	default:
		return w * 10
	}
}

// TotalWeight includes container contents.
func (it *Item) TotalWeight() uint32 {
	if c := containerOf(it.self); c != nil {
		return c.TotalWeight()
	}
	return it.Weight()
}

func (it *Item) Volume() uint32 {
	if it.flags&FlagInvisible != 0 {
		return 0
	}
	si := it.ShapeInfo()
	v := uint32(si.Volume)
	switch si.Family {
	case catalogs.FamilyQuantity:
		return (uint32(it.quality)*v + 99) / 100
	case catalogs.FamilyReagent:
		return (uint32(it.quality)*v + 9) / 10
	case catalogs.FamilyContainer:
		if v == 0 {
			return 1
		}
		return v
	default:
		return v
	}
}

// reagentGroups lists frame ranges that stack together per reagent shape.
var reagentGroups = map[uint32][][2]uint32{
	395: {{0, 5}, {6, 7}, {10, 12}, {14, 15}, {16, 20}},
	398: {{0, 1}, {2, 5}, {6, 9}, {10, 13}, {14, 17}, {18, 20}},
}

func (it *Item) CanMergeWith(o *Item) bool {
	if o.objID == it.objID || o.shape != it.shape {
		return false
	}
	switch it.Family() {
	case catalogs.FamilyQuantity:
		return true
	case catalogs.FamilyReagent:
	default:
		return false
	}
	if it.frame == o.frame {
		return true
	}
	if it.world.rules.Game() != GameU8 {
		return false
	}
	for _, g := range reagentGroups[it.shape] {
		if it.frame >= g[0] && it.frame <= g[1] && o.frame >= g[0] && o.frame <= g[1] {
			return true
		}
	}
	return false
}

func (it *Item) IsRobot() bool { return robotShapes[it.shape] }

func (it *Item) CanDrag() bool {
	si := it.ShapeInfo()
	if si.IsFixed() || si.Weight == 0 {
		return false
	}
	if a := actorOf(it.self); a != nil && !a.IsDead() {
		return false
	}
	return true
}

func (it *Item) ThrowRange() int32 {
	if !it.CanDrag() {
		return 0
	}
	str := int32(0)
	if av := it.world.MainActor(); av != nil {
		str = int32(av.Str())
	}
	r := max(64-int32(it.TotalWeight())+str, 1)
	return r * r / 2
}

// SetFlagRecursively sets f on the item and everything inside it.
func (it *Item) SetFlagRecursively(f uint16) {
	it.flags |= f
	if c := containerOf(it.self); c != nil {
		for _, id := range c.contents {
			if ci := it.world.Item(id); ci != nil {
				ci.SetFlagRecursively(f)
			}
		}
	}
}

// SetupLerp records the render interpolation endpoints for tick and runs
// the shape's idle animation.
func (it *Item) SetupLerp(tick uint32) {
	if it.lastSetup != 0 && tick == it.lastSetup {
		return
	}
	noLerp := it.lastSetup == 0 || it.lNext.Shape != it.shape ||
		it.extFlags&ExtLerpNoPrev != 0 || tick-it.lastSetup > 1 ||
		it.flags&FlagContained != 0
	it.lastSetup = tick
	it.extFlags &^= ExtLerpNoPrev

	si := it.ShapeInfo()
	if si.AnimType != 0 && si.AnimSpeed != 0 && tick%uint32(si.AnimSpeed) == 0 {
		it.AnimateItem()
	}
	if !noLerp {
		it.lPrev = it.lNext
	}
	if it.loc.InWorld() {
		p := it.loc.Point()
		it.lNext = lerpState{X: p.X, Y: p.Y, Z: p.Z}
	} else {
		gx, gy := it.loc.Gump()
		it.lNext = lerpState{X: int32(gx), Y: int32(gy)}
	}
	it.lNext.Shape = it.shape
	it.lNext.Frame = it.frame
	if noLerp {
		it.lPrev = it.lNext
	}
}

// Lerp returns the previous and next render states.
func (it *Item) Lerp() (prev, next lerpState) { return it.lPrev, it.lNext }

// AnimateItem advances the idle animation per the shape's anim type.
func (it *Item) AnimateItem() {
	si := it.ShapeInfo()
	rng := it.world.rng
	data := uint32(si.AnimData)
	count := si.Frames
	wrap := func(to uint32) {
		if count != 0 && it.frame >= count {
			it.frame = to
		}
	}
	switch si.AnimType {
	case 1, 3:
		if data == 0 || (data == 1 && rng.IntN(2) == 1) {
			it.frame++
			wrap(0)
		} else if data > 1 {
			it.frame++
			num := (it.frame - 1) / data
			if it.frame == (num+1)*data {
				it.frame = num * data
			}
		}
	case 2:
		if rng.IntN(2) == 1 && count > 0 {
			it.frame = uint32(rng.IntN(int(count)))
		}
	case 4:
		if it.frame != 0 || rng.IntN(int(data)+2) == 0 {
			it.frame++
			wrap(0)
		}
	case 5:
		it.callUsecodeEvent(EventAnim, nil)
	case 6:
		if data == 0 || (data == 1 && rng.IntN(2) == 1) {
			if it.frame == 0 {
				break
			}
			it.frame++
			wrap(1)
		} else if data > 1 {
			if it.frame%data == 0 {
				break
			}
			it.frame++
			num := (it.frame - 1) / data
			if it.frame == (num+1)*data {
				it.frame = num*data + 1
			}
		}
	default:
		it.world.pout("unknown anim type", "item", it.objID, "type", si.AnimType)
	}
}

// CheckLoopScript evaluates a loop-script filter against the item.
func (it *Item) CheckLoopScript(script LoopScript) bool { return script.Match(it) }

func (it *Item) String() string {
	return fmt.Sprintf("%s %d shape %d frame %d %s", it.self.ClassName(), it.objID, it.shape, it.frame, it.loc.Point())
}

func (it *Item) saveData(w *encoding.Writer) {
	w.WriteU16(uint16(it.objID))
	w.WriteU16(uint16(it.extFlags &^ ExtTransient))
	flags := it.flags
	if it.flags&FlagEthereal != 0 && it.voidParent != 0 {
		if it.voidEquipped {
			flags |= FlagEquipped
		} else {
			flags |= FlagContained
		}
	}
	w.WriteU16(flags)
	w.WriteU16(uint16(it.shape))
	w.WriteU16(uint16(it.frame))
	x, y, z := it.loc.pack()
	w.WriteU16(x)
	w.WriteU16(y)
	w.WriteU16(z)
	w.WriteU16(it.quality)
	w.WriteU16(it.npcNum)
	w.WriteU16(it.mapNum)
	w.WriteU16(uint16(it.gump))
	w.WriteU16(uint16(it.gravityPid))
	if flags&FlagEthereal != 0 && flags&(FlagContained|FlagEquipped) != 0 {
		w.WriteU16(uint16(it.voidParent))
	}
	w.WriteU8(it.damagePoints)
}

func (it *Item) loadData(r *encoding.Reader, version uint32) error {
	it.objID = ObjID(r.ReadU16())
	it.extFlags = uint32(r.ReadU16())
	flags := r.ReadU16()
	it.shape = uint32(r.ReadU16())
	it.frame = uint32(r.ReadU16())
	x, y, z := r.ReadU16(), r.ReadU16(), r.ReadU16()
	it.quality = r.ReadU16()
	it.npcNum = r.ReadU16()
	it.mapNum = r.ReadU16()
	it.gump = ObjID(r.ReadU16())
	it.gravityPid = kernel.ProcID(r.ReadU16())

	inContainer := flags&(FlagContained|FlagEquipped) != 0
	it.loc = unpackLocation(inContainer, x, y, z)
	it.parent, it.voidParent, it.voidEquipped = 0, 0, false
	if flags&FlagEthereal != 0 && inContainer {
		it.voidParent = ObjID(r.ReadU16())
		it.voidEquipped = flags&FlagEquipped != 0
		flags &^= FlagContained | FlagEquipped
	}
	it.flags = flags
	it.damagePoints = r.ReadU8()
	it.bark = 0
	return r.Err()
}
