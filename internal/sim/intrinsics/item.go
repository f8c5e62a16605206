package intrinsics

import (
	"encoding/binary"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/world"
)

func b2u(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

func word(v uint16) []byte { return binary.LittleEndian.AppendUint16(nil, v) }

func assignID(c *Call, ptr uint32, id world.ObjID) { c.Mem.Assign(ptr, word(uint16(id))) }

// destroy dispatches to the most derived Destroy.
func destroy(w *world.World, it *world.Item) {
	if o := w.Object(it.ObjID()); o != nil {
		o.Destroy(false)
	}
}

// fromUsecodeXY converts a usecode x/y pair to world units.
func fromUsecodeXY(c *Call, x, y int32) (int32, int32) {
	p := c.World.WorldPoint(geom.Point3{X: x, Y: y})
	return p.X, p.Y
}

func toUsecodeDir(c *Call, d geom.Direction) uint32 {
	return uint32(c.World.Rules().Traits().ToUsecodeDir(d))
}

func fromUsecodeDir(c *Call, v uint16) geom.Direction {
	return c.World.Rules().Traits().FromUsecodeDir(v)
}

func isCrusader(c *Call) bool { return c.World.Rules().Game() == world.GameCrusader }

// Touch is a no-op; it only forced a repaint.
func touch(c *Call) uint32 { return 0 }

func getX(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	return uint32(c.World.UsecodePoint(it.LocationAbsolute()).X)
}

func getY(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	return uint32(c.World.UsecodePoint(it.LocationAbsolute()).Y)
}

func getZ(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	return uint32(it.LocationAbsolute().Z)
}

// getCX and getCY report the footprint centre; getCZ the vertical centre.
func getCX(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	fx, _, _ := it.FootpadData()
	p := it.LocationAbsolute()
	return uint32(c.World.UsecodePoint(geom.Point3{X: p.X - fx*16}).X)
}

func getCY(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	_, fy, _ := it.FootpadData()
	p := it.LocationAbsolute()
	return uint32(c.World.UsecodePoint(geom.Point3{Y: p.Y - fy*16}).Y)
}

func getCZ(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	return uint32(it.LocationAbsolute().Z + it.ShapeInfo().Z*4)
}

func getPoint(c *Call) uint32 {
	it := c.ItemFromPtr()
	ptr := c.Pointer()
	if it == nil {
		return 0
	}
	p := c.World.UsecodePoint(it.LocationAbsolute())
	PutWorldPoint(c.Mem, ptr, p.X, p.Y, p.Z)
	return 0
}

func getShape(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return it.Shape()
	}
	return 0
}

func setShape(c *Call) uint32 {
	it := c.ItemFromPtr()
	shape := c.Uint16()
	if it != nil {
		it.SetShape(uint32(shape))
	}
	return 0
}

func getFrame(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return it.Frame()
	}
	return 0
}

func setFrame(c *Call) uint32 {
	it := c.ItemFromPtr()
	frame := c.Uint16()
	if it != nil {
		it.SetFrame(uint32(frame))
	}
	return 0
}

func getQuality(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil || it.Family() != catalogs.FamilyQuality {
		return 0
	}
	return uint32(it.Quality())
}

func getUnkEggType(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil || it.Family() != catalogs.FamilyUnkEgg {
		return 0
	}
	if isCrusader(c) {
		return uint32(it.Quality() & 0xFF)
	}
	return uint32(it.Quality())
}

func setUnkEggType(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil && it.Family() == catalogs.FamilyUnkEgg {
		it.SetQuality(v)
	}
	return 0
}

func hasQuantity(it *world.Item) bool {
	f := it.Family()
	return f == catalogs.FamilyQuantity || f == catalogs.FamilyReagent
}

func getQuantity(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil || !hasQuantity(it) {
		return 0
	}
	return uint32(it.Quality())
}

func setQuantity(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil && hasQuantity(it) {
		it.SetQuality(v)
	}
	return 0
}

func setQuality(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil && it.Family() != catalogs.FamilyGeneric {
		it.SetQuality(v)
	}
	return 0
}

func getQ(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Quality())
	}
	return 0
}

func setQ(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetQuality(v)
	}
	return 0
}

func getQLo(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Quality() & 0xFF)
	}
	return 0
}

func getQHi(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Quality() >> 8)
	}
	return 0
}

func setQLo(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetQuality(it.Quality()&0xFF00 | v&0xFF)
	}
	return 0
}

func setQHi(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetQuality(it.Quality()&0x00FF | (v&0xFF)<<8)
	}
	return 0
}

func setQAndCombine(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetQuality(v)
		it.CallUsecodeEvent(world.EventCombine, nil)
	}
	return 0
}

func getFamily(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Family())
	}
	return 0
}

func getFamilyOfType(c *Call) uint32 {
	return uint32(c.World.Catalogs().Shapes.Shape(uint32(c.Uint16())).Family)
}

// getTypeFlag reads bit n of the shape's property flags.
func getTypeFlag(c *Call) uint32 {
	it := c.ItemFromPtr()
	n := c.Uint16()
	if it == nil || n >= 32 {
		return 0
	}
	return b2u(it.ShapeInfo().Flags&(1<<n) != 0)
}

func isCrusTypeNPC(c *Call) uint32 {
	sh := c.Uint16()
	if sh == 0x7FE {
		return 1
	}
	return b2u(c.World.Catalogs().Shapes.Shape(uint32(sh)).Is(catalogs.SICruNPC))
}

func getStatus(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Flags())
	}
	return 0
}

func orStatus(c *Call) uint32 {
	it := c.ItemFromPtr()
	mask := c.Uint16()
	if it != nil {
		it.SetFlag(mask)
	}
	return 0
}

func andStatus(c *Call) uint32 {
	it := c.ItemFromPtr()
	mask := c.Uint16()
	if it != nil {
		it.ClearFlag(^mask)
	}
	return 0
}

func getMapArray(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.MapNum())
	}
	return 0
}

func setMapArray(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetMapNum(v)
	}
	return 0
}

func getNpcNum(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.NpcNum())
	}
	return 0
}

func setNpcNum(c *Call) uint32 {
	it := c.ItemFromPtr()
	v := c.Uint16()
	if it != nil {
		it.SetNpcNum(v)
	}
	return 0
}

func getContainer(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Parent())
	}
	return 0
}

func getRootContainer(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	if root := it.RootContainer(); root != nil {
		return uint32(root.ObjID())
	}
	return 0
}

func isInNpc(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	for p := it.ParentAsContainer(); p != nil; p = p.ParentAsContainer() {
		if c.World.Actor(p.ObjID()) != nil {
			return 1
		}
	}
	return 0
}

func getWeight(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return it.Weight()
	}
	return 0
}

func getVolume(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return it.Volume()
	}
	return 0
}

func isPermanentNpc(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return b2u(it.HasExtFlags(world.ExtPermanentNPC))
	}
	return 0
}

func getWeightIncludingContents(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return it.TotalWeight()
	}
	return 0
}

// getSurfaceWeight sums everything stacked on the item.
func getSurfaceWeight(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	var total uint32
	for _, id := range c.World.Map().SurfaceSearch(world.LoopScriptAll, it, true, false, true) {
		if o := c.World.Item(id); o != nil {
			total += o.TotalWeight()
		}
	}
	return total
}

func getFootpadData(c *Call) uint32 {
	it := c.ItemFromPtr()
	xp, yp, zp := c.Pointer(), c.Pointer(), c.Pointer()
	if it == nil {
		return 0
	}
	x, y, z := it.FootpadData()
	c.Mem.Assign(xp, word(uint16(x)))
	c.Mem.Assign(yp, word(uint16(y)))
	c.Mem.Assign(zp, word(uint16(z)))
	return 0
}

func overlapTest(test func(a, b *world.Item) bool) Func {
	return func(c *Call) uint32 {
		it := c.ItemFromPtr()
		other := c.ItemFromID()
		if it == nil || other == nil {
			return 0
		}
		return b2u(test(it, other))
	}
}

var (
	isOn           = overlapTest((*world.Item).IsOn)
	isCompletelyOn = overlapTest((*world.Item).IsCompletelyOn)
	isCentreOn     = overlapTest((*world.Item).IsCentreOn)
	overlaps       = overlapTest((*world.Item).Overlaps)
	overlapsXY     = overlapTest((*world.Item).OverlapsXY)
)

func isPartlyOnScreen(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return b2u(it.IsOnScreen())
	}
	return 0
}

func inFastArea(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return b2u(it.HasFlags(world.FlagFastArea))
	}
	return 0
}

func enterFastArea(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.EnterFastArea())
	}
	return 0
}

func destroyItem(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil || it.ObjID() == world.MainActorID {
		return 0
	}
	destroy(c.World, it)
	return 0
}

func setBroken(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	c.World.Map().RemoveTarget(it.ObjID())
	it.SetFlag(world.FlagBroken)
	return 0
}

func use(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		return uint32(it.Use())
	}
	return 0
}

func event16(event uint32) Func {
	return func(c *Call) uint32 {
		it := c.ItemFromPtr()
		v := c.Uint16()
		if it == nil {
			return 0
		}
		return uint32(it.CallUsecodeEvent(event, word(v)))
	}
}

var (
	equip   = event16(world.EventEquip)
	unequip = event16(world.EventUnequip)
	cast    = event16(world.EventCast)
)

func gotHit(c *Call) uint32 {
	it := c.ItemFromPtr()
	hitter, force := c.Uint16(), c.Uint16()
	if it == nil {
		return 0
	}
	return uint32(it.CallUsecodeEvent(world.EventGotHit, append(word(hitter), word(force)...)))
}

// avatarStoleSomething is ignored by dead actors.
func avatarStoleSomething(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	if a := c.World.Actor(it.ObjID()); a != nil && a.IsDead() {
		return 0
	}
	return uint32(it.CallUsecodeEvent(world.EventAvatarStoleSomething, word(c.Uint16())))
}

// create makes a new item on the ethereal stack and stores its id.
func create(c *Call) uint32 {
	ptr := c.Pointer()
	shape, frame := c.Uint16(), c.Uint16()
	it := c.World.CreateItem(uint32(shape), uint32(frame), 0, 0, 0, 0, 0, true)
	if it == nil {
		return 0
	}
	it.MoveToEtherealVoid()
	assignID(c, ptr, it.ObjID())
	return 1
}

func createAt(c *Call, ptr uint32, shape, frame uint16, p geom.Point3) uint32 {
	if ok, _ := c.World.Map().IsValidPosition(p, uint32(shape), 0); !ok {
		return 0
	}
	it := c.World.CreateItem(uint32(shape), uint32(frame), 0, 0, 0, 0, 0, true)
	if it == nil {
		return 0
	}
	it.Move(p)
	assignID(c, ptr, it.ObjID())
	return 1
}

func legalCreateAtPoint(c *Call) uint32 {
	ptr := c.Pointer()
	shape, frame := c.Uint16(), c.Uint16()
	p, ok := c.WorldPoint()
	if !ok {
		return 0
	}
	return createAt(c, ptr, shape, frame, c.World.WorldPoint(p))
}

func legalCreateAtCoords(c *Call) uint32 {
	ptr := c.Pointer()
	shape, frame := c.Uint16(), c.Uint16()
	x, y := fromUsecodeXY(c, int32(c.Uint16()), int32(c.Uint16()))
	z := int32(c.Uint8())
	return createAt(c, ptr, shape, frame, geom.Point3{X: x, Y: y, Z: z})
}

// legalCreateInCont stores 0 first so a refused item leaves no stale id.
func legalCreateInCont(c *Call) uint32 {
	ptr := c.Pointer()
	shape, frame := c.Uint16(), c.Uint16()
	cont := c.ContainerFromID()
	c.Null16()
	assignID(c, ptr, 0)
	it := c.World.CreateItem(uint32(shape), uint32(frame), 0, 0, 0, 0, 0, true)
	if it == nil {
		return 0
	}
	if cont == nil || !it.MoveToContainer(cont, false) {
		destroy(c.World, it)
		return 0
	}
	assignID(c, ptr, it.ObjID())
	return 1
}

func push(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		it.MoveToEtherealVoid()
	}
	return 0
}

func getEtherealTop(c *Call) uint32 { return uint32(c.World.EtherealTop()) }

// etherealTop returns the live top of the ethereal stack, dropping a stale
// id it finds there.
func etherealTop(c *Call) *world.Item {
	id := c.World.EtherealTop()
	if id == 0 {
		return nil
	}
	it := c.World.Item(id)
	if it == nil {
		c.World.EtherealRemove(id)
	}
	return it
}

func pop(c *Call) uint32 {
	it := etherealTop(c)
	if it == nil {
		return 0
	}
	it.ReturnFromEtherealVoid()
	return uint32(it.ObjID())
}

func popToCoords(c *Call) uint32 {
	c.Null32()
	x, y := fromUsecodeXY(c, int32(c.Uint16()), int32(c.Uint16()))
	z := int32(c.Uint8())
	it := etherealTop(c)
	if it == nil {
		return 0
	}
	it.Move(geom.Point3{X: x, Y: y, Z: z})
	return uint32(it.ObjID())
}

// popToContainer puts the top ethereal item into citem, or at citem's
// location when it is not a container. An orphan with no target is
// destroyed.
func popToContainer(c *Call) uint32 {
	c.Null32()
	citem := c.ItemFromID()
	it := etherealTop(c)
	if it == nil {
		return 0
	}
	var cont *world.Container
	if citem != nil {
		cont = c.World.Container(citem.ObjID())
	}
	switch {
	case cont != nil:
		it.MoveToContainer(cont, false)
	case citem != nil:
		it.Move(citem.Point())
	case it.IsEthereal():
		destroy(c.World, it)
	default:
		c.World.EtherealRemove(it.ObjID())
	}
	return uint32(it.ObjID())
}

func move(c *Call) uint32 {
	it := c.ItemFromPtr()
	x, y := fromUsecodeXY(c, int32(c.Uint16()), int32(c.Uint16()))
	z := int32(c.Uint8())
	if it != nil {
		it.Move(geom.Point3{X: x, Y: y, Z: z})
	}
	return 0
}

// legalMoveToPoint returns 1 when nothing blocks the path. A blocked move
// goes as far as it can unless abort is set.
func legalMoveToPoint(c *Call) uint32 {
	it := c.ItemFromPtr()
	p, ok := c.WorldPoint()
	abort := c.Uint16()
	c.Null16()
	if it == nil || !ok {
		return 0
	}
	dest := c.World.WorldPoint(p)
	xd, yd, zd := it.FootpadWorld()
	ret := uint32(1)
	for _, h := range c.World.Map().SweepTest(it.Point(), dest, [3]int32{xd, yd, zd}, it.ShapeInfo().Flags, it.ObjID(), true) {
		if h.Blocking && !h.Touching && h.EndTime > 0 {
			if abort != 0 {
				return 0
			}
			ret = 0
			break
		}
	}
	it.CollideMove(dest, false, false)
	return ret
}

func legalMoveToContainer(c *Call) uint32 {
	it := c.ItemFromPtr()
	cont := c.ContainerFromPtr()
	c.Null16()
	if it == nil || cont == nil {
		return 0
	}
	return b2u(it.MoveToContainer(cont, true))
}

func ascend(c *Call) uint32 {
	it := c.ItemFromPtr()
	delta := int32(c.Sint16())
	if it == nil {
		return 0
	}
	return b2u(it.Ascend(delta) == world.SweepEnd)
}

func getDirToCoords(c *Call) uint32 {
	it := c.ItemFromPtr()
	x, y := fromUsecodeXY(c, int32(c.Uint16()), int32(c.Uint16()))
	if it == nil {
		return 0
	}
	p := it.LocationAbsolute()
	return toUsecodeDir(c, geom.GetWorldDir(y-p.Y, x-p.X, geom.DirMode8))
}

func getDirFromCoords(c *Call) uint32 {
	it := c.ItemFromPtr()
	x, y := fromUsecodeXY(c, int32(c.Uint16()), int32(c.Uint16()))
	if it == nil {
		return 0
	}
	p := it.LocationAbsolute()
	return toUsecodeDir(c, geom.GetWorldDir(p.Y-y, p.X-x, geom.DirMode8))
}

func dirBetween(c *Call) (geom.Direction, bool) {
	it := c.ItemFromPtr()
	other := c.ItemFromID()
	if it == nil || other == nil {
		return geom.DirInvalid, false
	}
	p1, p2 := it.LocationAbsolute(), other.LocationAbsolute()
	return geom.GetWorldDir(p2.Y-p1.Y, p2.X-p1.X, geom.DirMode8), true
}

func getDirToItem(c *Call) uint32 {
	d, ok := dirBetween(c)
	if !ok {
		return 0
	}
	return toUsecodeDir(c, d)
}

func getDirFromItem(c *Call) uint32 {
	d, ok := dirBetween(c)
	if !ok {
		return 0
	}
	return toUsecodeDir(c, d.Invert())
}

// getDirFromTo16 returns 16 for coincident points.
func getDirFromTo16(c *Call) uint32 {
	x1, y1 := int32(c.Uint16()), int32(c.Uint16())
	x2, y2 := int32(c.Uint16()), int32(c.Uint16())
	if x1 == x2 && y1 == y2 {
		return 16
	}
	return toUsecodeDir(c, geom.GetWorldDir(y2-y1, x2-x1, geom.DirMode16))
}

func getClosestDirectionInRange(c *Call) uint32 {
	x1, y1 := int32(c.Uint16()), int32(c.Uint16())
	x2, y2 := int32(c.Uint16()), int32(c.Uint16())
	ndirs := c.Uint16()
	lo, hi := fromUsecodeDir(c, c.Uint16()), fromUsecodeDir(c, c.Uint16())
	mode := geom.DirMode8
	if ndirs == 16 {
		mode = geom.DirMode16
	}
	return toUsecodeDir(c, geom.GetWorldDirInRange(y2-y1, x2-x1, mode, lo, hi))
}

func hurl(c *Call) uint32 {
	it := c.ItemFromPtr()
	xs, ys, zs, grav := int32(c.Sint16()), int32(c.Sint16()), int32(c.Sint16()), int32(c.Sint16())
	if it == nil {
		return 0
	}
	it.Hurl(xs, ys, zs, grav)
	return uint32(it.GravityPid())
}

// shoot launches the item at a point with a ballistic arc reaching it in
// distance/speed steps.
func shoot(c *Call) uint32 {
	it := c.ItemFromPtr()
	p, ok := c.WorldPoint()
	speed, grav := int32(c.Uint16()), int32(c.Uint16())
	if it == nil || !ok || speed <= 0 {
		return 0
	}
	from := it.Point()
	d := p.Sub(from)
	steps := max(from.MaxDistXY(p)/speed, 1)
	zs := d.Z/steps + grav*steps/2
	it.Hurl(d.X/steps, d.Y/steps, zs, grav)
	return 0
}

func fall(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		it.Fall()
	}
	return 0
}

func grab(c *Call) uint32 {
	if it := c.ItemFromPtr(); it != nil {
		it.Grab()
	}
	return 0
}

func receiveHit(c *Call) uint32 {
	it := c.ItemFromPtr()
	other := c.Uint16()
	dir := c.Sint16()
	damage := c.Sint16()
	typ := c.Uint16()
	if it == nil {
		return 0
	}
	if o := c.World.Object(it.ObjID()); o != nil {
		o.ReceiveHit(world.ObjID(other), fromUsecodeDir(c, uint16(dir)), int(damage), typ)
	}
	return 0
}

// explode takes an optional type and destroy flag after the item.
func explode(c *Call) uint32 {
	it := c.ItemFromPtr()
	if it == nil {
		return 0
	}
	typ, destroyItem := 0, true
	if c.More() {
		typ = int(c.Uint16())
		destroyItem = c.Uint16() != 0
	}
	it.Explode(typ, destroyItem, true)
	return 0
}

func canReach(c *Call) uint32 {
	it := c.ItemFromPtr()
	other := c.ItemFromID()
	rng := int32(c.Sint16())
	if it == nil || other == nil {
		return 0
	}
	return b2u(it.CanReach(other, rng, nil))
}

func getRange(c *Call) uint32 {
	it := c.ItemFromPtr()
	other := c.ItemFromID()
	if it == nil || other == nil {
		return 0
	}
	return uint32(it.Range(other, true))
}

// getRangeIfVisible is in 32-unit steps, rounded up past a partial 16,
// and 0 beyond 48 steps.
func getRangeIfVisible(c *Call) uint32 {
	it := c.ItemFromPtr()
	other := c.ItemFromID()
	if it == nil || other == nil {
		return 0
	}
	r := it.RangeIfVisible(other) / 32
	if r&0xf != 0 {
		r++
	}
	if r > 48 {
		return 0
	}
	return uint32(r)
}

func fireWeapon(c *Call) uint32 {
	it := c.ItemFromPtr()
	x, y := fromUsecodeXY(c, int32(c.Sint16()), int32(c.Sint16()))
	z := int32(c.Sint16())
	dir := c.Uint16()
	ft := c.Uint16()
	findTarget := c.Uint16()
	if it == nil {
		return 0
	}
	return uint32(it.FireWeapon(x, y, z, fromUsecodeDir(c, dir), ft, findTarget != 0))
}

func fireDistance(c *Call) uint32 {
	it := c.ItemFromPtr()
	other := c.World.Item(world.ObjID(c.Uint16()))
	dir := c.Sint16()
	xo, yo := fromUsecodeXY(c, int32(c.Sint16()), int32(c.Sint16()))
	zo := int32(c.Sint16())
	if it == nil || other == nil {
		return 0
	}
	return uint32(it.FireDistance(other, fromUsecodeDir(c, uint16(dir)), xo, yo, zo))
}
