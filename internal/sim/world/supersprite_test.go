package world

import (
	"slices"
	"testing"

	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

func fireProjectile(w *World, ft uint16, from, to geom.Point3, damage uint16) (*SuperSpriteProcess, kernel.ProcID) {
	ss := NewSuperSpriteProcess(w, shapePuff, 0, from, to, ft, damage, 0, 0, false)
	return ss, w.Kernel().AddProcess(ss)
}

func TestSuperSprite_TerminatesForEveryFireType(t *testing.T) {
	for ft := uint16(1); ft <= 22; ft++ {
		w := newTestWorld(t, testTuning("crusader"))
		ss, pid := fireProjectile(w, ft, pt(100, 100, 16), pt(700, 300, 16), 5)

		var sprite ObjID
		for i := int32(0); i < superSpriteLifetime+2 && w.Kernel().Process(pid) != nil; i++ {
			w.Step()
			if id := ss.Sprite(); id != 0 {
				sprite = id
			}
		}
		if w.Kernel().Process(pid) != nil {
			t.Fatalf("fire type %d: still flying after %d ticks", ft, superSpriteLifetime+2)
		}
		if sprite == 0 {
			t.Fatalf("fire type %d: no sprite item was ever created", ft)
		}
		if w.Item(sprite) != nil {
			t.Fatalf("fire type %d: sprite item %d outlived the projectile", ft, sprite)
		}
	}
}

func TestSuperSprite_LeavingFastAreaEndsWithoutHit(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ss, pid := fireProjectile(w, 2, pt(100, 100, 16), pt(5000, 100, 16), 5)

	stepN(w, 20)
	if w.Kernel().Process(pid) != nil {
		t.Fatalf("projectile kept flying outside the fast area at %v", ss.Position())
	}
	if ss.HitItem() != 0 {
		t.Fatalf("HitItem=%d want 0", ss.HitItem())
	}
	if !w.Map().IsPointFast(ss.Position()) {
		t.Fatalf("projectile was moved out of the fast area to %v", ss.Position())
	}
}

// Scenario C: the visual sprite appears on the second run, not the first.
func TestSuperSprite_SpriteCreatedOnSecondRun(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ss, _ := fireProjectile(w, 9, pt(100, 100, 16), pt(700, 300, 16), 30)

	w.Step()
	if ss.Sprite() != 0 {
		t.Fatalf("sprite %d created on the first run", ss.Sprite())
	}
	w.Step()
	it := w.Item(ss.Sprite())
	if it == nil {
		t.Fatalf("no sprite after the second run")
	}
	if !it.HasExtFlags(ExtSprite) {
		t.Fatalf("sprite item ext flags %#x lack ExtSprite", it.ExtFlags())
	}
	if ss.Counter() != 3 {
		t.Fatalf("counter=%d want 3", ss.Counter())
	}
}

func TestSuperSprite_HitDamagesFirstSolidItem(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	term := spawn(t, w, shapeTerminal, pt(400, 116, 0))
	ss, pid := fireProjectile(w, 2, pt(100, 100, 16), pt(700, 100, 16), 5)

	stepN(w, 10)
	if w.Kernel().Process(pid) != nil {
		t.Fatalf("projectile still flying at %v", ss.Position())
	}
	if ss.HitItem() != term.ObjID() {
		t.Fatalf("HitItem=%d want terminal %d", ss.HitItem(), term.ObjID())
	}
	// 5 damage tripled at normal difficulty.
	if got := term.DamagePoints(); got != 5 {
		t.Fatalf("terminal damage points=%d want 5", got)
	}
	if p := ss.Position(); p.X > 400 {
		t.Fatalf("impact at %v is past the terminal", p)
	}
}

func TestSuperSprite_SaveLoadKeepsFlight(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ss, _ := fireProjectile(w, 2, pt(100, 100, 16), pt(700, 300, 16), 5)
	stepN(w, 2)

	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	w2 := newTestWorld(t, testTuning("crusader"))
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	loaded, ok := w2.Kernel().FindProcess(0, ProcTypeSuperSprite).(*SuperSpriteProcess)
	if !ok {
		t.Fatalf("no projectile after load")
	}
	if loaded.Position() != ss.Position() || loaded.Dest() != ss.Dest() || loaded.Counter() != ss.Counter() {
		t.Fatalf("loaded flight %v->%v #%d, saved %v->%v #%d",
			loaded.Position(), loaded.Dest(), loaded.Counter(), ss.Position(), ss.Dest(), ss.Counter())
	}
	if it := w2.Item(loaded.Sprite()); it == nil || !it.HasExtFlags(ExtSprite) {
		t.Fatalf("sprite item %d not restored with ExtSprite", loaded.Sprite())
	}
}

func TestSuperSprite_ShotLeavesShooterFootprint(t *testing.T) {
	tests := []struct {
		name        string
		fromShooter bool
		wantFlying  bool
	}{
		{name: "own shot passes through", fromShooter: true, wantFlying: true},
		{name: "other shot hits", fromShooter: false, wantFlying: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			pot := spawn(t, w, shapePot, pt(100, 100, 0))
			var source ObjID
			if tt.fromShooter {
				source = pot.ObjID()
			}
			// The muzzle sits inside the pot's footprint.
			ss := NewSuperSpriteProcess(w, shapePuff, 0, pt(90, 90, 4), pt(700, 90, 4), 2, 5, source, 0, false)
			pid := w.Kernel().AddProcess(ss)

			w.Step()
			if flying := w.Kernel().Process(pid) != nil; flying != tt.wantFlying {
				t.Fatalf("flying=%v want %v (hit %d)", flying, tt.wantFlying, ss.HitItem())
			}
			if !tt.wantFlying {
				if ss.HitItem() != pot.ObjID() {
					t.Fatalf("HitItem=%d want pot %d", ss.HitItem(), pot.ObjID())
				}
				return
			}
			if ss.HitItem() != 0 || ss.Counter() != 2 || ss.Position() != pt(218, 90, 4) {
				t.Fatalf("hit=%d counter=%d at %v", ss.HitItem(), ss.Counter(), ss.Position())
			}
			if pot.IsEthereal() || w.EtherealTop() != 0 {
				t.Fatalf("shooter left ethereal: flag=%v top=%d", pot.IsEthereal(), w.EtherealTop())
			}
			if pot.Point() != pt(100, 100, 0) {
				t.Fatalf("shooter moved to %v", pot.Point())
			}
			if !slices.Contains(w.Map().ChunkItems(0, 0), pot.ObjID()) {
				t.Fatalf("shooter %d missing from its map chunk", pot.ObjID())
			}
		})
	}
}

func TestSuperSprite_HomingSteersWithinLimits(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	target := spawn(t, w, shapeTerminal, pt(900, 516, 200))
	ss := NewSuperSpriteProcess(w, shapePuff, 0, pt(100, 100, 16), pt(700, 100, 16), fireTypeHoming, 30, 0, target.ObjID(), false)
	pid := w.Kernel().AddProcess(ss)

	// Straight flight for the fire type's round duration.
	stepN(w, 8)
	if ss.Position() != pt(612, 100, 16) || ss.Counter() != 9 {
		t.Fatalf("before homing: at %v counter %d", ss.Position(), ss.Counter())
	}
	sprite := w.Item(ss.Sprite())
	if sprite == nil || sprite.Frame() != 0 {
		t.Fatalf("sprite %d before homing: %v", ss.Sprite(), sprite)
	}

	w.Step()
	if got := ss.Position(); got != pt(644, 132, 32) {
		t.Fatalf("first homing step at %v, want a clamped (+32,+32,+16) turn", got)
	}
	if want := 0x11 + uint32(geom.DirSouthEast); sprite.Frame() != want {
		t.Fatalf("frame after turning=%#x want %#x", sprite.Frame(), want)
	}

	sprite.SetFrame(0x99)
	w.Step()
	if got := ss.Position(); got != pt(676, 164, 48) {
		t.Fatalf("second homing step at %v", got)
	}
	if sprite.Frame() != 0x99 {
		t.Fatalf("frame changed to %#x without a change of heading", sprite.Frame())
	}
	if w.Kernel().Process(pid) == nil {
		t.Fatalf("homing shot ended early")
	}
}
