package world

import (
	"bytes"
	"testing"
)

func TestOwnershipFlags_ExclusiveAcrossMoves(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	crate := w.Container(spawn(t, w, shapeCrate, pt(300, 300, 0)).ObjID())
	if crate == nil {
		t.Fatalf("crate shape did not build a container")
	}
	pot := spawn(t, w, shapePot, pt(200, 200, 0))
	checkOwnership(t, pot, "placed")

	if !pot.MoveToContainer(crate, true) {
		t.Fatalf("MoveToContainer refused pot")
	}
	checkOwnership(t, pot, "contained")
	if !crate.Contains(pot.ObjID()) || pot.Parent() != crate.ObjID() {
		t.Fatalf("crate contents=%v pot parent=%d", crate.Contents(), pot.Parent())
	}

	pot.MoveToEtherealVoid()
	checkOwnership(t, pot, "voided from crate")
	if crate.Contains(pot.ObjID()) {
		t.Fatalf("voided pot still listed in crate")
	}
	if got := w.EtherealTop(); got != pot.ObjID() {
		t.Fatalf("EtherealTop=%d want %d", got, pot.ObjID())
	}

	pot.ReturnFromEtherealVoid()
	checkOwnership(t, pot, "returned to crate")
	if !pot.HasFlags(FlagContained) || !crate.Contains(pot.ObjID()) {
		t.Fatalf("pot not back in crate: flags=%#x", pot.Flags())
	}
	if w.EtherealTop() != 0 {
		t.Fatalf("ethereal stack not empty after return")
	}

	pot.Move(pt(150, 150, 0))
	checkOwnership(t, pot, "moved out")
	if crate.Contains(pot.ObjID()) {
		t.Fatalf("pot still listed in crate after Move")
	}

	pot.MoveToEtherealVoid()
	checkOwnership(t, pot, "voided from world")
	pot.ReturnFromEtherealVoid()
	checkOwnership(t, pot, "returned to world")
	if got := pot.Point(); got != pt(150, 150, 0) {
		t.Fatalf("returned to %v, want (150,150,0)", got)
	}

	ma := spawnAvatar(t, w, pt(400, 400, 0))
	sword := spawn(t, w, shapeSword, pt(410, 400, 0))
	if !ma.SetEquip(sword, false) {
		t.Fatalf("SetEquip refused sword")
	}
	checkOwnership(t, sword, "equipped")
	if !sword.HasFlags(FlagEquipped) || sword.Parent() != MainActorID {
		t.Fatalf("sword flags=%#x parent=%d", sword.Flags(), sword.Parent())
	}
	if !ma.Unequip(sword) {
		t.Fatalf("Unequip failed")
	}
	checkOwnership(t, sword, "unequipped")
}

func TestMoveToContainer_RefusesOwnAncestor(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	outer := w.Container(spawn(t, w, shapeCrate, pt(300, 300, 0)).ObjID())
	inner := w.Container(spawn(t, w, shapeCrate, pt(340, 300, 0)).ObjID())
	if !inner.MoveToContainer(outer, false) {
		t.Fatalf("inner crate refused")
	}
	if outer.MoveToContainer(inner, false) {
		t.Fatalf("container accepted its own parent")
	}
	checkOwnership(t, &outer.Item, "outer after refused move")
	checkOwnership(t, &inner.Item, "inner after refused move")
}

// Scenario D: a second move into the same container changes nothing.
func TestMoveToContainer_SameContainerIsNoop(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	crate := w.Container(spawn(t, w, shapeCrate, pt(300, 300, 0)).ObjID())
	pot := spawn(t, w, shapePot, pt(200, 200, 0))
	if !pot.MoveToContainer(crate, true) {
		t.Fatalf("first move refused")
	}
	tbl := NewScriptTable()
	w.SetUsecode(tbl)

	beforePot := objectBytes(pot)
	beforeCrate := objectBytes(crate)
	if !pot.MoveToContainer(crate, true) {
		t.Fatalf("repeat move returned false")
	}
	if !bytes.Equal(beforePot, objectBytes(pot)) {
		t.Fatalf("pot state changed by repeat move")
	}
	if !bytes.Equal(beforeCrate, objectBytes(crate)) {
		t.Fatalf("crate state changed by repeat move")
	}
	if n := len(tbl.Calls()); n != 0 {
		t.Fatalf("repeat move dispatched %d events", n)
	}
}

func TestFastArea_EnterLeaveFireOncePerCrossing(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	tbl := NewScriptTable()
	w.SetUsecode(tbl)

	pot := spawn(t, w, shapePot, pt(100, 100, 0))
	id := pot.ObjID()
	enters := func() int { return countFor(tbl.CallsFor(EventEnterFastArea), id) }
	leaves := func() int { return countFor(tbl.CallsFor(EventLeaveFastArea), id) }

	if enters() != 1 || !pot.IsOnScreen() {
		t.Fatalf("placement: enters=%d onScreen=%v", enters(), pot.IsOnScreen())
	}
	for _, p := range []struct{ x, y int32 }{{120, 130}, {140, 100}, {120, 130}} {
		pot.Move(pt(p.x, p.y, 0))
	}
	w.Camera().MoveToLocation(pt(300, 300, 0))
	if enters() != 1 || leaves() != 0 {
		t.Fatalf("moves inside fast area: enters=%d leaves=%d", enters(), leaves())
	}

	pot.Move(pt(5000, 5000, 0))
	pot.Move(pt(5100, 5000, 0))
	if leaves() != 1 || pot.IsOnScreen() {
		t.Fatalf("left fast area: leaves=%d onScreen=%v", leaves(), pot.IsOnScreen())
	}

	pot.Move(pt(100, 100, 0))
	if enters() != 2 || leaves() != 1 {
		t.Fatalf("re-entered: enters=%d leaves=%d", enters(), leaves())
	}
}

func TestFastArea_RecentringMovesItemsInAndOut(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	near := spawn(t, w, shapePot, pt(100, 100, 0))
	far := spawn(t, w, shapePot, pt(3000, 100, 0))
	if !near.IsOnScreen() || far.IsOnScreen() {
		t.Fatalf("initial: near=%v far=%v", near.IsOnScreen(), far.IsOnScreen())
	}

	w.Camera().MoveToLocation(pt(3000, 100, 0))
	if near.IsOnScreen() || !far.IsOnScreen() {
		t.Fatalf("after recentre: near=%v far=%v", near.IsOnScreen(), far.IsOnScreen())
	}
	got := w.Map().FastItems()
	if len(got) != 1 || got[0] != far.ObjID() {
		t.Fatalf("FastItems=%v want [%d]", got, far.ObjID())
	}
}

func TestBark_AllocatesGumpClosedOnLeavingFastArea(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	pot := spawn(t, w, shapePot, pt(100, 100, 0))
	if pot.BarkGump() != 0 {
		t.Fatalf("fresh item bark=%d", pot.BarkGump())
	}
	first := pot.Bark("hello")
	if first < gumpIDBase || pot.BarkGump() != first {
		t.Fatalf("Bark=%d BarkGump=%d", first, pot.BarkGump())
	}
	second := pot.Bark("again")
	if second == first || pot.BarkGump() != second {
		t.Fatalf("second Bark=%d first=%d BarkGump=%d", second, first, pot.BarkGump())
	}

	pot.Move(pt(5000, 5000, 0))
	if pot.IsOnScreen() || pot.BarkGump() != 0 {
		t.Fatalf("after leaving fast area: onScreen=%v bark=%d", pot.IsOnScreen(), pot.BarkGump())
	}
}

// Scenario B: a wall met halfway stops the move at the half-way point.
func TestCollideMove_StopsAtWallHalfway(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	wall := spawn(t, w, shapeWall, pt(82, 64, 0))
	pot := spawn(t, w, shapePot, pt(0, 0, 0))
	tbl := NewScriptTable()
	w.SetUsecode(tbl)

	hit, blocker, dirs := pot.CollideMove(pt(100, 0, 0), false, false)
	if hit != 0x2000 {
		t.Fatalf("hit=%#x want 0x2000", hit)
	}
	if blocker != wall.ObjID() || dirs&1 == 0 {
		t.Fatalf("blocker=%d dirs=%#x, want wall %d on x", blocker, dirs, wall.ObjID())
	}
	if got := pot.Point(); got != pt(50, 0, 0) {
		t.Fatalf("final position %v want (50,0,0)", got)
	}
	if countFor(tbl.CallsFor(EventGotHit), wall.ObjID()) != 1 {
		t.Fatalf("gotHit on wall: %v", eventItems(tbl.CallsFor(EventGotHit)))
	}
	if countFor(tbl.CallsFor(EventHit), pot.ObjID()) != 1 {
		t.Fatalf("hit on pot: %v", eventItems(tbl.CallsFor(EventHit)))
	}
	if n := len(tbl.CallsFor(EventRelease)); n != 0 {
		t.Fatalf("release fired %d times", n)
	}
}

func TestCollideMove_ResultWithinSweep(t *testing.T) {
	tests := []struct {
		name       string
		start, end [3]int32
		teleport   bool
		force      bool
	}{
		{name: "blocked", start: [3]int32{0, 0, 0}, end: [3]int32{100, 0, 0}},
		{name: "forced through", start: [3]int32{0, 0, 0}, end: [3]int32{100, 0, 0}, force: true},
		{name: "clear along y", start: [3]int32{0, 0, 0}, end: [3]int32{0, 300, 0}},
		{name: "diagonal", start: [3]int32{0, 200, 0}, end: [3]int32{200, 0, 0}},
		{name: "over the wall", start: [3]int32{0, 0, 70}, end: [3]int32{200, 0, 70}},
		{name: "teleport into wall", start: [3]int32{0, 0, 0}, end: [3]int32{82, 0, 0}, teleport: true},
		{name: "teleport clear", start: [3]int32{0, 0, 0}, end: [3]int32{300, 300, 0}, teleport: true},
		{name: "backwards", start: [3]int32{200, 0, 0}, end: [3]int32{0, 0, 0}},
		{name: "no motion", start: [3]int32{10, 10, 0}, end: [3]int32{10, 10, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("u8"))
			spawn(t, w, shapeWall, pt(82, 64, 0))
			pot := spawn(t, w, shapePot, pt(tt.start[0], tt.start[1], tt.start[2]))
			dest := pt(tt.end[0], tt.end[1], tt.end[2])

			hit, _, _ := pot.CollideMove(dest, tt.teleport, tt.force)
			if hit < 0 || hit > sweepEnd {
				t.Fatalf("hit=%d outside [0,%d]", hit, sweepEnd)
			}
			if hit == sweepEnd && pot.Point() != dest {
				t.Fatalf("full sweep but item at %v, want %v", pot.Point(), dest)
			}
			if tt.force && hit != sweepEnd {
				t.Fatalf("forced move stopped at %#x", hit)
			}
		})
	}
}

func TestDestroy_FreesIDAtNextTick(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	a := spawn(t, w, shapePot, pt(100, 100, 0))
	id := a.ObjID()
	h := a.Handle()

	a.Destroy(false)
	if w.Item(id) != nil || w.Resolve(h) != nil {
		t.Fatalf("destroyed item still resolvable")
	}
	if got := w.PendingFrees(); len(got) != 1 || got[0] != id {
		t.Fatalf("PendingFrees=%v want [%d]", got, id)
	}
	if len(w.Map().ChunkItems(0, 0)) != 0 {
		t.Fatalf("destroyed item still on the map")
	}
	b := spawn(t, w, shapePot, pt(100, 100, 0))
	if b.ObjID() == id {
		t.Fatalf("id %d reused in the tick it was freed", id)
	}

	w.Step()
	if n := len(w.PendingFrees()); n != 0 {
		t.Fatalf("PendingFrees after tick: %d", n)
	}
	c := spawn(t, w, shapePot, pt(120, 100, 0))
	if c.ObjID() != id {
		t.Fatalf("next item got id %d, want recycled %d", c.ObjID(), id)
	}
	if w.Resolve(h) != nil {
		t.Fatalf("stale handle resolved to the new object")
	}
	if w.Resolve(c.Handle()) != Object(c) {
		t.Fatalf("fresh handle does not resolve")
	}
}

func TestDestroy_NowRecyclesImmediately(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	a := spawn(t, w, shapePot, pt(100, 100, 0))
	id := a.ObjID()
	a.Destroy(true)
	if len(w.PendingFrees()) != 0 {
		t.Fatalf("immediate destroy queued a deferred free")
	}
	if b := spawn(t, w, shapePot, pt(100, 100, 0)); b.ObjID() != id {
		t.Fatalf("got id %d, want %d", b.ObjID(), id)
	}
}

func TestContainerDestroy_SpillsContents(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	crate := w.Container(spawn(t, w, shapeCrate, pt(300, 300, 0)).ObjID())
	pot := spawn(t, w, shapePot, pt(200, 200, 0))
	pot.MoveToContainer(crate, false)

	crate.Destroy(false)
	if w.Item(pot.ObjID()) == nil {
		t.Fatalf("contents destroyed with container")
	}
	checkOwnership(t, pot, "spilled")
	if got := pot.Point(); got != pt(300, 300, 0) {
		t.Fatalf("spilled to %v want crate location", got)
	}
}

func TestGravity_ItemFallsToGround(t *testing.T) {
	tests := []struct {
		ruleset string
		// Crusader sleeps before the first hurl step.
		still int
	}{
		{ruleset: "u8"},
		{ruleset: "crusader", still: 10},
	}
	for _, tt := range tests {
		t.Run(tt.ruleset, func(t *testing.T) {
			w := newTestWorld(t, testTuning(tt.ruleset))
			pot := spawn(t, w, shapePot, pt(100, 100, 40))
			pot.Fall()
			if pot.GravityPid() == 0 {
				t.Fatalf("Fall did not start gravity")
			}
			stepN(w, tt.still)
			if got := pot.Point().Z; got != 40 {
				t.Fatalf("moved to z=%d during the hurl delay", got)
			}
			for i := 0; i < 100 && w.Kernel().FindProcess(uint16(pot.ObjID()), ProcTypeGravity) != nil; i++ {
				w.Step()
			}
			if w.Kernel().FindProcess(uint16(pot.ObjID()), ProcTypeGravity) != nil {
				t.Fatalf("still falling after 100 ticks at %v", pot.Point())
			}
			if got := pot.Point().Z; got != 0 {
				t.Fatalf("landed at z=%d", got)
			}
		})
	}
}

func TestGravity_FixedItemsDoNotFall(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	wall := spawn(t, w, shapeWall, pt(100, 100, 40))
	wall.Fall()
	if wall.GravityPid() != 0 {
		t.Fatalf("fixed item got gravity process %d", wall.GravityPid())
	}
}
