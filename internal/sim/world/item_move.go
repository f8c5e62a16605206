package world

import (
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

// U8 shape that never joins the fast area.
const shapeU8NoFastArea uint32 = 0x2c8

// Crusader corpses that still run enter-fast-area usecode.
var cruDeadActiveShapes = map[uint32]bool{0x576: true, 0x596: true, 0x59c: true, 0x58f: true}

// Crusader shape whose enter-fast-area result is discarded.
const shapeCruQuietEnter uint32 = 0x34d

// isLive reports whether the item still owns its id.
func (it *Item) isLive() bool {
	return it.objID != 0 && it.world.objects.Get(it.objID) == it.self
}

// Move places the item at world point p. Contained, equipped and ethereal
// items are detached from their owner first.
func (it *Item) Move(p geom.Point3) {
	w := it.world
	cm := w.cmap
	if it.objID == MainActorID && p.Z < 0 {
		w.perr("main actor moved below ground", "z", p.Z)
	}

	noLerp := false
	switch {
	case it.flags&FlagEthereal != 0:
		w.etherealRemove(it.objID)
		noLerp = it.voidParent != 0
		it.voidParent, it.voidEquipped = 0, false
	case it.parent != 0:
		if c := it.ParentAsContainer(); c != nil {
			c.removeItem(it)
		}
		it.parent = 0
		noLerp = true
	case it.extFlags&ExtInCurMap != 0:
		old := it.Point()
		if cm.chunkOf(old.X, old.Y) != cm.chunkOf(p.X, p.Y) {
			cm.RemoveItem(it)
		}
	}

	it.flags &^= flagsOwnership
	it.setLocation(p)
	if it.extFlags&ExtInCurMap == 0 {
		if it.flags&(FlagDisposable|FlagFastOnly) != 0 {
			cm.AddItemToEnd(it)
		} else {
			cm.AddItem(it)
		}
	}

	it.callUsecodeEvent(EventJustMoved, nil)

	destFast := cm.IsPointFast(p)
	if noLerp {
		it.extFlags |= ExtLerpNoPrev
	}
	if !destFast && it.flags&FlagFastArea != 0 {
		it.extFlags |= ExtLerpNoPrev
		switch {
		case it.extFlags&ExtCamera != 0:
			w.camera.ItemMoved()
		case w.rules.Game() == GameCrusader && w.isControlled(it.objID) && (p.X != 0 || p.Y != 0):
			w.camera.MoveToLocation(p)
		default:
			it.LeaveFastArea()
		}
		if it.extFlags&ExtTarget != 0 {
			w.reticle.ItemMoved(it)
		}
		return
	}
	if destFast && it.flags&FlagFastArea == 0 {
		it.extFlags |= ExtLerpNoPrev
		it.EnterFastArea()
	}

	if it.extFlags&ExtCamera != 0 {
		w.camera.ItemMoved()
	}
	if it.extFlags&ExtTarget != 0 {
		w.reticle.ItemMoved(it)
	}
}

// MoveToContainer puts the item into c. It fails without side effects when
// c refuses the item.
func (it *Item) MoveToContainer(c *Container, checkWeightVolume bool) bool {
	w := it.world
	if c == nil {
		w.perr("move to missing container", "item", it.objID)
		return false
	}
	ethereal := it.flags&FlagEthereal != 0
	if it.parent == c.objID && !ethereal {
		return true
	}
	etherealSame := ethereal && it.voidParent == c.objID
	if !c.CanAddItem(it, checkWeightVolume) {
		return false
	}

	switch {
	case ethereal:
		w.etherealRemove(it.objID)
	case it.parent != 0:
		if p := it.ParentAsContainer(); p != nil {
			p.removeItem(it)
		}
	case it.extFlags&ExtInCurMap != 0:
		w.cmap.RemoveItem(it)
	}
	it.flags &^= flagsOwnership
	it.voidParent, it.voidEquipped = 0, false

	if etherealSame {
		gx, gy := it.loc.Gump()
		it.loc = GumpLocation(gx, gy)
	} else {
		it.loc = GumpLocation(0, 0)
	}

	if !c.addItem(it, checkWeightVolume) {
		w.cantHappen("container accepted item then refused it")
	}
	it.parent = c.objID
	it.flags |= FlagContained

	root := c
	for p := c.ParentAsContainer(); p != nil; p = p.ParentAsContainer() {
		root = p
	}
	if root.objID == MainActorID {
		if it.flags&FlagOwned == 0 {
			it.MovedByPlayer()
		}
		it.SetFlagRecursively(FlagOwned)
	}

	it.extFlags |= ExtLerpNoPrev
	it.callUsecodeEvent(EventJustMoved, nil)

	destFast := c.flags&FlagGumpOpen != 0
	switch {
	case !destFast && it.flags&FlagFastArea != 0:
		it.LeaveFastArea()
	case destFast && it.flags&FlagFastArea == 0:
		it.EnterFastArea()
	}
	return true
}

// MoveToEtherealVoid takes the item out of the world or its container and
// parks it on the ethereal stack.
func (it *Item) MoveToEtherealVoid() {
	w := it.world
	if it.flags&FlagEthereal != 0 {
		return
	}
	w.etherealPush(it.objID)
	if it.parent != 0 {
		if c := it.ParentAsContainer(); c != nil {
			c.removeItem(it)
		}
		it.voidParent = it.parent
		it.voidEquipped = it.flags&FlagEquipped != 0
		it.parent = 0
		it.flags &^= FlagContained | FlagEquipped
	} else if it.extFlags&ExtInCurMap != 0 {
		w.cmap.RemoveItem(it)
	}
	it.flags |= FlagEthereal
}

// ReturnFromEtherealVoid puts the item back where it was voided from.
func (it *Item) ReturnFromEtherealVoid() {
	w := it.world
	if it.voidParent != 0 {
		c := w.Container(it.voidParent)
		if c == nil {
			w.cantHappen("ethereal item's container no longer exists")
			return
		}
		it.MoveToContainer(c, false)
		return
	}
	it.Move(it.loc.Point())
}

// hitForce is the impact strength passed to hit usecode, from the size of
// the move.
func hitForce(start, end geom.Point3) uint16 {
	dx := abs32(start.X-end.X) / 4
	dy := abs32(start.Y-end.Y) / 4
	dz := abs32(start.Z - end.Z)
	return uint16((dx + dy + dz + max(dx, dy, dz)) / 2)
}

// CollideMove moves the item towards dest, stopping at the first blocking
// item unless force is set, and fires hit, gotHit and release usecode for
// everything it meets. Teleports (and moves of contained items) only check
// the destination. It returns how far along the path the item got
// (sweepEnd for all the way), plus the blocker and the axes it was met on.
func (it *Item) CollideMove(dest geom.Point3, teleport, force bool) (int32, ObjID, uint8) {
	w := it.world
	kern := w.kern
	contained := it.owner() != 0

	start := it.Point()
	if contained {
		start = dest
	}
	end := dest
	xd, yd, zd := it.FootpadWorld()
	hits := w.cmap.SweepTest(start, end, [3]int32{xd, yd, zd}, it.ShapeInfo().Flags, it.objID, false)
	force16 := hitForce(start, end)
	isMain := it.objID == MainActorID
	released := false

	if teleport || contained {
		if !force {
			for _, h := range hits {
				if h.EndTime == sweepEnd && !h.Touching && h.Blocking {
					return 0, h.Item, h.Dirs
				}
			}
		}
		for _, h := range hits {
			o := w.Item(h.Item)
			if o == nil {
				continue
			}
			switch {
			case !contained && h.HitTime <= 0 && h.EndTime == sweepEnd:
			case h.EndTime == sweepEnd:
				o.callUsecodeEvent(EventGotHit, ucArgs(uint16(it.objID), force16))
				it.callUsecodeEvent(EventHit, ucArgs(uint16(o.objID), force16))
			case !contained && h.HitTime <= 0:
				if isMain {
					o.extFlags &^= ExtHighlight
				}
				released = true
				o.callUsecodeEvent(EventRelease, nil)
			}
		}
		if released {
			it.callUsecodeEvent(EventRelease, nil)
		}
		it.Move(end)
		return sweepEnd, 0, 0
	}

	hit := sweepEnd
	var blocker ObjID
	var dirs uint8
	if !force {
		for _, h := range hits {
			if h.Blocking && !h.Touching {
				blocker, dirs = h.Item, h.Dirs
				hit = max(h.HitTime, 0)
				if hit != sweepEnd {
					end = h.InterpolatedCoords(start, end)
				}
				break
			}
		}
	}

	hitAtStart := w.rules.Traits().HitAtSweepStart
	for _, h := range hits {
		if h.HitTime > hit {
			break
		}
		o := w.Item(h.Item)
		if o == nil {
			continue
		}
		var gotHitPid, releasePid kernel.ProcID
		if (!h.Touching || h.TouchingFloor) && (h.HitTime >= 0 || hitAtStart) {
			gotHitPid = o.callUsecodeEvent(EventGotHit, ucArgs(uint16(it.objID), force16))
			it.callUsecodeEvent(EventHit, ucArgs(uint16(o.objID), force16))
		}
		if h.EndTime < hit {
			if isMain {
				o.extFlags &^= ExtHighlight
			}
			released = true
			releasePid = o.callUsecodeEvent(EventRelease, nil)
		}
		if releasePid != 0 && gotHitPid != 0 {
			if p := kern.Process(releasePid); p != nil {
				p.ProcBase().WaitFor(gotHitPid)
			}
		}
	}
	if released {
		it.callUsecodeEvent(EventRelease, nil)
	}
	it.Move(end)
	return hit, blocker, dirs
}

// Destroy detaches the item from the world. Its id is freed at the start of
// the next tick unless delNow is set.
func (it *Item) Destroy(delNow bool) {
	if !it.isLive() {
		return
	}
	w := it.world
	switch {
	case it.flags&FlagEthereal != 0:
		w.etherealRemove(it.objID)
	case it.parent != 0:
		if c := it.ParentAsContainer(); c != nil {
			c.removeItem(it)
		}
	case it.extFlags&ExtInCurMap != 0:
		w.cmap.RemoveItem(it)
	}

	if w.rules.Traits().TargetList {
		w.audio.StopSFX(-1, it.objID)
		w.cmap.RemoveTarget(it.objID)
		if it.shape == ShapeSnapEgg {
			w.camera.RemoveSnapEgg(it.objID)
		}
	}
	if it.extFlags&ExtCamera != 0 {
		w.camera.SetFollow(0)
	}
	w.release(it.objID, delNow)
}

// EnterFastArea marks the item as fully simulated and runs its
// enter-fast-area usecode. It returns the usecode process id.
func (it *Item) EnterFastArea() kernel.ProcID {
	w := it.world
	game := w.rules.Game()
	if game == GameU8 && it.shape == shapeU8NoFastArea {
		return 0
	}

	var pid kernel.ProcID
	if it.flags&FlagFastArea == 0 {
		if a := actorOf(it.self); a != nil {
			if a.IsDead() && !(game == GameCrusader && cruDeadActiveShapes[it.shape]) {
				return 0
			}
			if it.objID != MainActorID {
				a.ClearInCombat()
				a.lastAnim = AnimStand
				a.actorFlags &^= ActWeaponReady
			}
		}
		pid = it.callUsecodeEvent(EventEnterFastArea, nil)
	}

	if game == GameCrusader && it.flags&FlagBroken == 0 {
		if it.ShapeInfo().IsTargetable() {
			w.cmap.AddTarget(it.objID)
		}
		if it.shape == ShapeSnapEgg {
			w.camera.AddSnapEgg(it.objID)
		}
	}
	it.flags |= FlagFastArea
	if game == GameCrusader && it.shape == shapeCruQuietEnter {
		return 0
	}
	return pid
}

// LeaveFastArea drops the item out of full simulation. Fast-only world
// items are destroyed and falling items are settled on the ground.
func (it *Item) LeaveFastArea() {
	w := it.world
	if (it.flags&FlagFastOnly == 0 || it.ShapeInfo().IsNoisy()) && it.flags&FlagFastArea != 0 {
		it.callUsecodeEvent(EventLeaveFastArea, nil)
	}
	if it.parent == 0 {
		it.CloseGump()
		it.closeBark()
	}
	it.flags &^= FlagFastArea

	if w.rules.Traits().TargetList && it.flags&FlagBroken == 0 {
		w.cmap.RemoveTarget(it.objID)
		if it.shape == ShapeSnapEgg {
			w.camera.RemoveSnapEgg(it.objID)
		}
	}

	if it.flags&FlagFastOnly != 0 && it.parent == 0 {
		if c := containerOf(it.self); c != nil {
			c.destroyContents()
		}
		it.self.Destroy(false)
		return
	}
	if it.gravityPid != 0 {
		if p := w.kern.Process(it.gravityPid); p != nil {
			p.ProcBase().TerminateDeferred()
		}
		it.gravityPid = 0
		if it.loc.InWorld() && it.owner() == 0 {
			p := it.Point()
			it.CollideMove(geom.Point3{X: p.X, Y: p.Y, Z: 0}, true, false)
		}
	}
}

// OpenGump opens the item's inventory display and brings its contents into
// the fast area. It returns the gump id, or 0 if one was already open.
func (it *Item) OpenGump(shape uint32) ObjID {
	if it.flags&FlagGumpOpen != 0 {
		return 0
	}
	w := it.world
	it.gump = w.allocGump()
	it.flags |= FlagGumpOpen
	w.pout("gump opened", "item", it.objID, "gump", it.gump, "shape", shape)
	if c := containerOf(it.self); c != nil {
		for _, id := range c.Contents() {
			if ci := w.Item(id); ci != nil && ci.flags&FlagFastArea == 0 {
				ci.EnterFastArea()
			}
		}
	}
	return it.gump
}

func (it *Item) CloseGump() {
	if it.flags&FlagGumpOpen == 0 {
		return
	}
	w := it.world
	if c := containerOf(it.self); c != nil {
		for _, id := range c.Contents() {
			if ci := w.Item(id); ci != nil && ci.flags&FlagFastArea != 0 {
				ci.LeaveFastArea()
			}
		}
	}
	it.gump = 0
	it.flags &^= FlagGumpOpen
}

// Bark shows a speech line over the item.
func (it *Item) Bark(msg string) ObjID {
	w := it.world
	it.closeBark()
	it.bark = w.allocGump()
	w.pout("bark", "item", it.objID, "msg", msg)
	return it.bark
}

func (it *Item) closeBark() { it.bark = 0 }

// Ascend moves the item up or down by delta, carrying loose items on top
// of it along. It returns the collideMove progress.
func (it *Item) Ascend(delta int32) int32 {
	if delta == 0 {
		return sweepEnd
	}
	w := it.world
	var riders []*Item
	for _, id := range w.cmap.SurfaceSearch(LoopScriptAll, it, true, false, false) {
		o := w.Item(id)
		if o == nil || o.ShapeInfo().IsFixed() {
			continue
		}
		o.MoveToEtherealVoid()
		riders = append(riders, o)
	}

	p := it.Point()
	dist, _, _ := it.CollideMove(p.Move(0, 0, delta), false, false)
	delta = delta * dist / sweepEnd

	for _, o := range riders {
		op := o.Point()
		up := op.Move(0, 0, delta)
		if o.CanExistAt(up, false) {
			o.Move(up)
			continue
		}
		o.Move(op)
		if delta < 0 {
			o.Fall()
		}
	}
	return dist
}

// EnsureGravityProcess returns the item's gravity process, starting one if
// there is none.
func (it *Item) EnsureGravityProcess() *GravityProcess {
	w := it.world
	if it.gravityPid != 0 {
		if p, ok := w.kern.Process(it.gravityPid).(*GravityProcess); ok && !p.IsTerminated() {
			return p
		}
	}
	p := NewGravityProcess(w, it, 0)
	it.gravityPid = w.kern.AddProcess(p)
	p.init()
	return p
}

// Fall drops an unsupported item under the ruleset's gravity.
func (it *Item) Fall() {
	si := it.ShapeInfo()
	hanging := it.world.rules.Game() == GameU8 && it.flags&FlagHanging != 0
	if hanging || si.IsFixed() || si.Weight == 0 {
		return
	}
	it.Hurl(0, 0, 0, it.world.rules.Traits().Gravity)
}

// Grab makes everything stacked on the item fall and releases what it
// rests on, as when it is picked up.
func (it *Item) Grab() {
	w := it.world
	for _, id := range w.cmap.SurfaceSearch(LoopScriptAll, it, true, false, true) {
		if o := w.Item(id); o != nil {
			o.Fall()
		}
	}
	for _, id := range w.cmap.SurfaceSearch(LoopScriptAll, it, false, true, false) {
		if o := w.Item(id); o != nil {
			o.callUsecodeEvent(EventRelease, nil)
		}
	}
}

// Hurl throws the item with the given velocity under gravity grav.
func (it *Item) Hurl(xs, ys, zs, grav int32) {
	w := it.world
	if it.parent != 0 {
		w.perr("hurling a contained item", "item", it.objID)
		return
	}
	doSleep := w.rules.Traits().HurlDelay && it.gravityPid == 0
	p := it.EnsureGravityProcess()
	p.SetGravity(grav)
	p.Move(xs, ys, zs)
	if doSleep {
		d := kernel.NewDelayProcess(0x14)
		w.kern.AddProcess(d)
		p.WaitFor(d.Pid())
	}
}

// MovedByPlayer tells every live actor near the avatar that the player took
// an item it did not own.
func (it *Item) MovedByPlayer() {
	w := it.world
	if it.flags&FlagOwned != 0 {
		return
	}
	av := w.Item(MainActorID)
	if av == nil {
		return
	}
	for _, id := range w.cmap.AreaSearch(LoopScriptAll, av.WorldBox(), 640, false) {
		if id == MainActorID {
			continue
		}
		if a := w.Actor(id); a != nil && !a.IsDead() {
			a.callUsecodeEvent(EventAvatarStoleSomething, ucArgs(uint16(it.objID)))
		}
	}
}

// Use runs the item's use event. Dead U8 actors toggle their body gump
// instead.
func (it *Item) Use() kernel.ProcID {
	if a := actorOf(it.self); a != nil && a.IsDead() {
		if it.world.rules.Game() == GameU8 {
			if it.flags&FlagGumpOpen != 0 {
				it.CloseGump()
			} else {
				it.OpenGump(gumpShapeCorpse)
			}
		}
		return 0
	}
	return it.callUsecodeEvent(EventUse, nil)
}

const gumpShapeCorpse uint32 = 12
