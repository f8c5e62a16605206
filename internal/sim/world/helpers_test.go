package world

import (
	"testing"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/tuning"
)

// Shapes from configs/shapes.json used across the tests.
const (
	shapeAvatar   uint32 = 1
	shapeGuard    uint32 = 712
	shapeRobot    uint32 = 1224
	shapeWall     uint32 = 16
	shapeCrate    uint32 = 32
	shapePot      uint32 = 34
	shapeSword    uint32 = 37
	shapeTerminal uint32 = 49
	shapeBroken   uint32 = 50
	shapePistol   uint32 = 64
	shapeSnapEgg  uint32 = 1278
	shapePuff     uint32 = 472
)

func testCatalogs(t *testing.T) *catalogs.Catalogs {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	return cats
}

func testTuning(ruleset string) tuning.Tuning {
	tun := tuning.Defaults()
	tun.Ruleset = ruleset
	return tun
}

// newTestWorld builds a world with the fast area centred on chunk (0,0),
// which covers world x and y in [-512, 1024).
func newTestWorld(t *testing.T, tun tuning.Tuning) *World {
	t.Helper()
	w, err := New(WorldConfig{ID: "test", Tuning: tun}, testCatalogs(t))
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	w.Camera().MoveToLocation(geom.Point3{X: 256, Y: 256})
	return w
}

func spawn(t *testing.T, w *World, shape uint32, p geom.Point3) *Item {
	t.Helper()
	it := w.CreateItem(shape, 0, 0, 0, 0, 0, 0, true)
	if it == nil {
		t.Fatalf("CreateItem(%d) returned nil", shape)
	}
	it.Move(p)
	return it
}

func spawnAvatar(t *testing.T, w *World, p geom.Point3) *MainActor {
	t.Helper()
	if w.CreateActor(MainActorID, shapeAvatar, 0) == nil {
		t.Fatalf("CreateActor(main) returned nil")
	}
	ma := w.MainActor()
	if ma == nil {
		t.Fatalf("main actor missing after CreateActor")
	}
	ma.Move(p)
	return ma
}

func pt(x, y, z int32) geom.Point3 { return geom.Point3{X: x, Y: y, Z: z} }

func objectBytes(o Object) []byte {
	w := encoding.NewWriter()
	o.saveData(w)
	return w.Bytes()
}

func stepN(w *World, n int) {
	for range n {
		w.Step()
	}
}

// checkOwnership asserts that at most one ownership flag is set and that
// the item has a parent exactly when it is contained or equipped.
func checkOwnership(t *testing.T, it *Item, when string) {
	t.Helper()
	n := 0
	for _, f := range []uint16{FlagContained, FlagEquipped, FlagEthereal} {
		if it.flags&f != 0 {
			n++
		}
	}
	if n > 1 {
		t.Fatalf("%s: item %d has flags %#x, want at most one ownership flag", when, it.objID, it.flags)
	}
	held := it.flags&(FlagContained|FlagEquipped) != 0
	if (it.parent != 0) != held {
		t.Fatalf("%s: item %d parent=%d flags=%#x", when, it.objID, it.parent, it.flags)
	}
}

func eventItems(calls []EventCall) []ObjID {
	out := make([]ObjID, 0, len(calls))
	for _, c := range calls {
		out = append(out, c.Item)
	}
	return out
}

func countFor(calls []EventCall, id ObjID) int {
	n := 0
	for _, c := range calls {
		if c.Item == id {
			n++
		}
	}
	return n
}
