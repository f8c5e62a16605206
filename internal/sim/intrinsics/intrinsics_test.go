package intrinsics

import (
	"errors"
	"testing"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

const (
	shapeCrate    uint32 = 32
	shapePot      uint32 = 34
	shapeCoins    uint32 = 36
	shapeEgg      uint32 = 48
	shapeTerminal uint32 = 49
)

var (
	globalPtr = Ptr(SegGlobal, 0x10)
	stackPtr  = Ptr(SegStackFirst, 0x20)
)

func newWorld(t *testing.T, ruleset string) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.Ruleset = ruleset
	w, err := world.New(world.WorldConfig{ID: "test", Tuning: tun}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Camera().MoveToLocation(geom.Point3{X: 256, Y: 256})
	return w
}

func spawn(t *testing.T, w *world.World, shape uint32, p geom.Point3) *world.Item {
	t.Helper()
	it := w.CreateItem(shape, 0, 0, 0, 0, 0, 0, true)
	if it == nil {
		t.Fatalf("CreateItem(%d) returned nil", shape)
	}
	it.Move(p)
	return it
}

func call(t *testing.T, w *world.World, mem Memory, name string, args *ArgWriter) uint32 {
	t.Helper()
	v, err := CallByName(name, NewCall(w, mem, args.Bytes()))
	if err != nil {
		t.Fatalf("%s: %v", name, err)
	}
	return v
}

func TestCall_ArgDecoding(t *testing.T) {
	mem := NewScratch()
	mem.Assign(stackPtr, word(0x1234))
	args := (&ArgWriter{}).Uint32(stackPtr).Uint16(7).Sint16(-3).Uint16(0x1ff).Bytes()

	c := NewCall(nil, mem, args)
	if got := ObjectAt(mem, c.Pointer()); got != 0x1234 {
		t.Fatalf("stack pointer resolved to %#x", got)
	}
	if got := c.Uint16(); got != 7 {
		t.Fatalf("uint16=%d", got)
	}
	if got := c.Sint16(); got != -3 {
		t.Fatalf("sint16=%d", got)
	}
	if got := c.Uint8(); got != 0xff {
		t.Fatalf("uint8=%#x", got)
	}
	if c.More() {
		t.Fatalf("arguments left after reading the whole frame")
	}
	if got := c.Uint32(); got != 0 {
		t.Fatalf("read past end gave %#x", got)
	}

	if got := ObjectAt(mem, ObjPtr(99)); got != 99 {
		t.Fatalf("object pointer resolved to %d", got)
	}
	if mem.Assign(ObjPtr(99), word(1)) {
		t.Fatalf("assigned through an object pointer")
	}
}

func TestPosition_UsecodeCoordinates(t *testing.T) {
	tests := []struct {
		ruleset          string
		x, y, cx, cy, cz uint32
	}{
		{ruleset: "crusader", x: 200, y: 58, cx: 192, cy: 50, cz: 12},
		{ruleset: "u8", x: 400, y: 116, cx: 384, cy: 100, cz: 12},
	}
	for _, tt := range tests {
		t.Run(tt.ruleset, func(t *testing.T) {
			w := newWorld(t, tt.ruleset)
			term := spawn(t, w, shapeTerminal, geom.Pt(400, 116, 0))
			mem := NewScratch()
			for name, want := range map[string]uint32{"getX": tt.x, "getY": tt.y, "getCX": tt.cx, "getCY": tt.cy, "getCZ": tt.cz, "getZ": 0} {
				if got := call(t, w, mem, name, (&ArgWriter{}).Item(term.ObjID())); got != want {
					t.Fatalf("%s=%d want %d", name, got, want)
				}
			}

			call(t, w, mem, "getPoint", (&ArgWriter{}).Item(term.ObjID()).Uint32(globalPtr))
			c := NewCall(w, mem, (&ArgWriter{}).Uint32(globalPtr).Bytes())
			p, ok := c.WorldPoint()
			if !ok || uint32(p.X) != tt.x || uint32(p.Y) != tt.y || p.Z != 0 {
				t.Fatalf("getPoint stored %v ok=%v", p, ok)
			}
		})
	}
}

func TestFootpadData_AssignsThroughPointers(t *testing.T) {
	w := newWorld(t, "u8")
	term := spawn(t, w, shapeTerminal, geom.Pt(400, 116, 0))
	mem := NewScratch()
	xp, yp, zp := Ptr(SegGlobal, 0), Ptr(SegGlobal, 2), Ptr(SegGlobal, 4)
	call(t, w, mem, "getFootpadData", (&ArgWriter{}).Item(term.ObjID()).Uint32(xp).Uint32(yp).Uint32(zp))
	if x, y, z := mem.Uint16At(xp), mem.Uint16At(yp), mem.Uint16At(zp); x != 1 || y != 1 || z != 3 {
		t.Fatalf("footpad %d,%d,%d want 1,1,3", x, y, z)
	}
}

func TestQualityAccessors_RespectFamily(t *testing.T) {
	w := newWorld(t, "crusader")
	mem := NewScratch()
	pot := spawn(t, w, shapePot, geom.Pt(100, 100, 0))
	coins := spawn(t, w, shapeCoins, geom.Pt(200, 100, 0))
	egg := spawn(t, w, shapeEgg, geom.Pt(300, 100, 0))

	call(t, w, mem, "setQ", (&ArgWriter{}).Item(pot.ObjID()).Uint16(0x1234))
	if got := call(t, w, mem, "getQuality", (&ArgWriter{}).Item(pot.ObjID())); got != 0 {
		t.Fatalf("getQuality on a breakable item=%#x", got)
	}
	if lo, hi := call(t, w, mem, "getQLo", (&ArgWriter{}).Item(pot.ObjID())), call(t, w, mem, "getQHi", (&ArgWriter{}).Item(pot.ObjID())); lo != 0x34 || hi != 0x12 {
		t.Fatalf("qlo=%#x qhi=%#x", lo, hi)
	}
	call(t, w, mem, "setQHi", (&ArgWriter{}).Item(pot.ObjID()).Uint16(0xab))
	if pot.Quality() != 0xab34 {
		t.Fatalf("quality after setQHi=%#x", pot.Quality())
	}

	call(t, w, mem, "setQuantity", (&ArgWriter{}).Item(coins.ObjID()).Uint16(50))
	if got := call(t, w, mem, "getQuantity", (&ArgWriter{}).Item(coins.ObjID())); got != 50 {
		t.Fatalf("quantity=%d", got)
	}
	if got := call(t, w, mem, "getQuantity", (&ArgWriter{}).Item(pot.ObjID())); got != 0 {
		t.Fatalf("quantity of a pot=%d", got)
	}

	egg.SetQuality(0x0312)
	if got := call(t, w, mem, "getUnkEggType", (&ArgWriter{}).Item(egg.ObjID())); got != 0x12 {
		t.Fatalf("crusader egg type=%#x want low byte", got)
	}
}

func TestStatus_OrAndMask(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	pot := spawn(t, w, shapePot, geom.Pt(100, 100, 0))
	call(t, w, mem, "orStatus", (&ArgWriter{}).Item(pot.ObjID()).Uint16(world.FlagInvisible|world.FlagHanging))
	if !pot.HasFlags(world.FlagInvisible) || !pot.HasFlags(world.FlagHanging) {
		t.Fatalf("flags after orStatus=%#x", pot.Flags())
	}
	call(t, w, mem, "andStatus", (&ArgWriter{}).Item(pot.ObjID()).Uint16(^world.FlagInvisible))
	if pot.HasFlags(world.FlagInvisible) || !pot.HasFlags(world.FlagHanging) {
		t.Fatalf("flags after andStatus=%#x", pot.Flags())
	}
	if got := call(t, w, mem, "getStatus", (&ArgWriter{}).Item(pot.ObjID())); got != uint32(pot.Flags()) {
		t.Fatalf("getStatus=%#x flags=%#x", got, pot.Flags())
	}
}

func TestCreateThenPopToCoords(t *testing.T) {
	w := newWorld(t, "crusader")
	mem := NewScratch()
	if got := call(t, w, mem, "create", (&ArgWriter{}).Uint32(globalPtr).Uint16(uint16(shapePot)).Uint16(2)); got != 1 {
		t.Fatalf("create returned %d", got)
	}
	id := world.ObjID(mem.Uint16At(globalPtr))
	if id == 0 || w.EtherealTop() != id {
		t.Fatalf("created id %d, ethereal top %d", id, w.EtherealTop())
	}
	if got := call(t, w, mem, "getEtherealTop", &ArgWriter{}); got != uint32(id) {
		t.Fatalf("getEtherealTop=%d", got)
	}

	got := call(t, w, mem, "popToCoords", (&ArgWriter{}).Uint32(0).Uint16(100).Uint16(150).Uint16(8))
	if got != uint32(id) {
		t.Fatalf("popToCoords returned %d want %d", got, id)
	}
	it := w.Item(id)
	if it.IsEthereal() || it.Point() != geom.Pt(200, 300, 8) || it.Frame() != 2 {
		t.Fatalf("popped item at %v frame %d ethereal=%v", it.Point(), it.Frame(), it.IsEthereal())
	}
	if w.EtherealTop() != 0 {
		t.Fatalf("ethereal stack not empty: %d", w.EtherealTop())
	}
	if got := call(t, w, mem, "pop", &ArgWriter{}); got != 0 {
		t.Fatalf("pop on an empty stack returned %d", got)
	}
}

func TestPushPop_ReturnsToContainer(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	crate := spawn(t, w, shapeCrate, geom.Pt(200, 200, 0))
	pot := spawn(t, w, shapePot, geom.Pt(0, 0, 0))
	if !pot.MoveToContainer(w.Container(crate.ObjID()), false) {
		t.Fatalf("crate refused pot")
	}

	call(t, w, mem, "push", (&ArgWriter{}).Item(pot.ObjID()))
	if !pot.IsEthereal() || w.Container(crate.ObjID()).Contains(pot.ObjID()) {
		t.Fatalf("pushed pot still in crate")
	}
	if got := call(t, w, mem, "pop", &ArgWriter{}); got != uint32(pot.ObjID()) {
		t.Fatalf("pop returned %d", got)
	}
	if pot.Parent() != crate.ObjID() || pot.IsEthereal() {
		t.Fatalf("popped pot parent=%d ethereal=%v", pot.Parent(), pot.IsEthereal())
	}
}

func TestPopToContainer_OrphanIsDestroyed(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	pot := spawn(t, w, shapePot, geom.Pt(100, 100, 0))
	pot.MoveToEtherealVoid()
	if got := call(t, w, mem, "popToContainer", (&ArgWriter{}).Uint32(0).Uint16(0x7000)); got != uint32(pot.ObjID()) {
		t.Fatalf("popToContainer returned %d", got)
	}
	if w.Item(pot.ObjID()) != nil || w.EtherealTop() != 0 {
		t.Fatalf("orphaned ethereal item survived")
	}
}

func TestLegalCreateInCont(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	crate := spawn(t, w, shapeCrate, geom.Pt(200, 200, 0))
	pot := spawn(t, w, shapePot, geom.Pt(300, 200, 0))

	got := call(t, w, mem, "legalCreateInCont", (&ArgWriter{}).Uint32(globalPtr).Uint16(uint16(shapeCoins)).Uint16(0).Uint16(uint16(crate.ObjID())).Uint16(0))
	id := world.ObjID(mem.Uint16At(globalPtr))
	if got != 1 || id == 0 || !w.Container(crate.ObjID()).Contains(id) {
		t.Fatalf("created %d (ret %d) not in crate", id, got)
	}

	mem.Assign(globalPtr, word(0xbeef))
	got = call(t, w, mem, "legalCreateInCont", (&ArgWriter{}).Uint32(globalPtr).Uint16(uint16(shapeCoins)).Uint16(0).Uint16(uint16(pot.ObjID())).Uint16(0))
	if got != 0 || mem.Uint16At(globalPtr) != 0 {
		t.Fatalf("refused create returned %d and stored %#x", got, mem.Uint16At(globalPtr))
	}
	if len(w.PendingFrees()) != 1 {
		t.Fatalf("refused item not cleaned up: pending frees %v", w.PendingFrees())
	}
}

func TestLegalCreateAtCoords_RefusesBlockedPoint(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	spawn(t, w, shapeTerminal, geom.Pt(300, 300, 0))
	if got := call(t, w, mem, "legalCreateAtCoords", (&ArgWriter{}).Uint32(globalPtr).Uint16(uint16(shapePot)).Uint16(0).Uint16(290).Uint16(290).Uint16(0)); got != 0 {
		t.Fatalf("created inside a terminal")
	}
	if got := call(t, w, mem, "legalCreateAtCoords", (&ArgWriter{}).Uint32(globalPtr).Uint16(uint16(shapePot)).Uint16(0).Uint16(500).Uint16(500).Uint16(0)); got != 1 {
		t.Fatalf("create on open ground failed")
	}
	if it := w.Item(world.ObjID(mem.Uint16At(globalPtr))); it == nil || it.Point() != geom.Pt(500, 500, 0) {
		t.Fatalf("created item missing or misplaced")
	}
}

func TestLegalMoveToPoint(t *testing.T) {
	for _, abort := range []uint16{1, 0} {
		w := newWorld(t, "u8")
		mem := NewScratch()
		pot := spawn(t, w, shapePot, geom.Pt(100, 300, 0))
		spawn(t, w, shapeTerminal, geom.Pt(300, 316, 0))
		PutWorldPoint(mem, globalPtr, 500, 300, 0)

		got := call(t, w, mem, "legalMoveToPoint", (&ArgWriter{}).Item(pot.ObjID()).Uint32(globalPtr).Uint16(abort).Uint16(0))
		if got != 0 {
			t.Fatalf("abort=%d: blocked move returned %d", abort, got)
		}
		x := pot.Point().X
		switch {
		case abort == 1 && x != 100:
			t.Fatalf("aborted move went to x=%d", x)
		case abort == 0 && (x <= 100 || x > 268):
			t.Fatalf("partial move stopped at x=%d, want up to the terminal face", x)
		}
	}
}

func TestSetBroken_DropsTarget(t *testing.T) {
	w := newWorld(t, "crusader")
	mem := NewScratch()
	term := spawn(t, w, shapeTerminal, geom.Pt(300, 300, 0))
	if !w.Map().IsTarget(term.ObjID()) {
		t.Fatalf("terminal not targetable in the fast area")
	}
	call(t, w, mem, "setBroken", (&ArgWriter{}).Item(term.ObjID()))
	if w.Map().IsTarget(term.ObjID()) || !term.HasFlags(world.FlagBroken) {
		t.Fatalf("broken terminal still targetable")
	}
}

func TestDirections(t *testing.T) {
	tests := []struct {
		ruleset           string
		south, coincident uint32
	}{
		{ruleset: "crusader", south: 8, coincident: 16},
		{ruleset: "u8", south: 4, coincident: 16},
	}
	for _, tt := range tests {
		w := newWorld(t, tt.ruleset)
		mem := NewScratch()
		if got := call(t, w, mem, "getDirFromTo16", (&ArgWriter{}).Uint16(10).Uint16(10).Uint16(10).Uint16(10)); got != tt.coincident {
			t.Fatalf("%s: coincident points gave %d", tt.ruleset, got)
		}
		if got := call(t, w, mem, "getDirFromTo16", (&ArgWriter{}).Uint16(10).Uint16(10).Uint16(10).Uint16(90)); got != tt.south {
			t.Fatalf("%s: south gave %d want %d", tt.ruleset, got, tt.south)
		}

		a := spawn(t, w, shapePot, geom.Pt(100, 100, 0))
		b := spawn(t, w, shapePot, geom.Pt(100, 400, 0))
		if got := call(t, w, mem, "getDirToItem", (&ArgWriter{}).Item(a.ObjID()).Uint16(uint16(b.ObjID()))); got != tt.south {
			t.Fatalf("%s: dir to item %d want %d", tt.ruleset, got, tt.south)
		}
		if got := call(t, w, mem, "getDirFromItem", (&ArgWriter{}).Item(a.ObjID()).Uint16(uint16(b.ObjID()))); got != 0 {
			t.Fatalf("%s: dir from item %d want north", tt.ruleset, got)
		}
	}
}

func TestDestroy_SparesMainActor(t *testing.T) {
	w := newWorld(t, "u8")
	mem := NewScratch()
	if w.CreateActor(world.MainActorID, 1, 0) == nil {
		t.Fatalf("CreateActor failed")
	}
	w.MainActor().Move(geom.Pt(300, 300, 0))
	call(t, w, mem, "destroy", (&ArgWriter{}).Item(world.MainActorID))
	if w.MainActor() == nil {
		t.Fatalf("destroy removed the main actor")
	}
	pot := spawn(t, w, shapePot, geom.Pt(100, 100, 0))
	call(t, w, mem, "destroy", (&ArgWriter{}).Item(pot.ObjID()))
	if w.Item(pot.ObjID()) != nil {
		t.Fatalf("pot survived destroy")
	}
}

func TestTable(t *testing.T) {
	if _, err := NewTable("u8"); !errors.Is(err, ErrNoOrdinals) {
		t.Fatalf("u8 table err=%v", err)
	}
	for _, tc := range []struct {
		ruleset string
		size    int
		getX    uint16
	}{
		{"crusader", 312, 0x13},
		{"regret", 350, 0x0e},
	} {
		tab, err := NewTable(tc.ruleset)
		if err != nil {
			t.Fatalf("%s: %v", tc.ruleset, err)
		}
		if tab.Size() != tc.size || tab.Name(tc.getX) != "getX" {
			t.Fatalf("%s: size=%d ord %#x=%q", tc.ruleset, tab.Size(), tc.getX, tab.Name(tc.getX))
		}
		if ord, ok := tab.Ordinal("getX"); !ok || ord != tc.getX {
			t.Fatalf("%s: Ordinal(getX)=%#x,%v", tc.ruleset, ord, ok)
		}
		if _, err := tab.Call(0x0, NewCall(nil, NewScratch(), nil)); !errors.Is(err, ErrUnknownIntrinsic) {
			t.Fatalf("%s: ordinal 0 err=%v", tc.ruleset, err)
		}

		w := newWorld(t, tc.ruleset)
		pot := spawn(t, w, shapePot, geom.Pt(400, 100, 0))
		got, err := tab.Call(tc.getX, NewCall(w, NewScratch(), (&ArgWriter{}).Item(pot.ObjID()).Bytes()))
		if err != nil || got != 200 {
			t.Fatalf("%s: getX via table=%d err=%v", tc.ruleset, got, err)
		}
	}
}
