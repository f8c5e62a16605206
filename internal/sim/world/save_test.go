package world

import (
	"bytes"
	"errors"
	"testing"

	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/kernel"
)

// busyWorld builds a Crusader world exercising every saved structure:
// a followed main actor, a filled container, the ethereal stack, a
// targetable item, a projectile in flight and an id awaiting recycling.
func busyWorld(t *testing.T) *World {
	t.Helper()
	w := newTestWorld(t, testTuning("crusader"))
	spawnAvatar(t, w, pt(300, 600, 0))
	w.Camera().SetFollow(MainActorID)

	crate := spawn(t, w, shapeCrate, pt(200, 400, 0))
	pot := spawn(t, w, shapePot, pt(0, 0, 0))
	if !pot.MoveToContainer(w.Container(crate.ObjID()), false) {
		t.Fatalf("pot refused by crate")
	}
	spawn(t, w, shapeSword, pt(500, 500, 0)).MoveToEtherealVoid()
	spawn(t, w, shapeTerminal, pt(600, 700, 0))

	fireProjectile(w, 2, pt(100, 100, 16), pt(700, 300, 16), 5)
	stepN(w, 2)
	spawn(t, w, shapePot, pt(50, 50, 0)).Destroy(false)
	if len(w.PendingFrees()) == 0 {
		t.Fatalf("destroyed pot left no pending free")
	}
	return w
}

func TestSnapshot_RoundTripKeepsDigest(t *testing.T) {
	w := busyWorld(t)
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if snap.Header.Digest != w.StateDigest() {
		t.Fatalf("header digest %s, world digest %s", snap.Header.Digest, w.StateDigest())
	}

	w2 := newTestWorld(t, testTuning("crusader"))
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	if got := w2.StateDigest(); got != snap.Header.Digest {
		t.Fatalf("digest after import %s, want %s", got, snap.Header.Digest)
	}
	if w2.CurrentTick() != w.CurrentTick() {
		t.Fatalf("tick after import %d, want %d", w2.CurrentTick(), w.CurrentTick())
	}
	if got, want := w2.PendingFrees(), w.PendingFrees(); len(got) != len(want) || got[0] != want[0] {
		t.Fatalf("pending frees %v, want %v", got, want)
	}
	if w2.EtherealTop() == 0 || w2.EtherealTop() != w.EtherealTop() {
		t.Fatalf("ethereal top %d, want %d", w2.EtherealTop(), w.EtherealTop())
	}
	if ma := w2.MainActor(); ma == nil || !ma.HasExtFlags(ExtCamera) {
		t.Fatalf("camera flag not restored on the main actor")
	}
	ss, ok := w2.Kernel().FindProcess(0, ProcTypeSuperSprite).(*SuperSpriteProcess)
	if !ok {
		t.Fatalf("projectile missing after import")
	}
	if it := w2.Item(ss.Sprite()); it == nil || !it.HasExtFlags(ExtSprite) {
		t.Fatalf("projectile sprite not restored")
	}
}

func TestSnapshot_LoadedWorldStepsInLockStep(t *testing.T) {
	w := busyWorld(t)
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	w2 := newTestWorld(t, testTuning("crusader"))
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}

	for i := 0; i < 30; i++ {
		t1, d1 := w.StepOnce()
		t2, d2 := w2.StepOnce()
		if t1 != t2 || d1 != d2 {
			t.Fatalf("step %d: original tick %d digest %s, loaded tick %d digest %s", i, t1, d1, t2, d2)
		}
	}
}

func TestSnapshot_CrosshairStaysOutOfSave(t *testing.T) {
	w := busyWorld(t)
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if bytes.Contains(snap.Body, []byte(classCrosshairProcess)) {
		t.Fatalf("crosshair process written to the snapshot")
	}

	w2 := newTestWorld(t, testTuning("crusader"))
	before := w2.Crosshair()
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("import: %v", err)
	}
	ch, ok := w2.Crosshair().(*CrosshairProcess)
	if !ok || w2.Crosshair() != before {
		t.Fatalf("crosshair replaced on import")
	}
	if w2.Kernel().Process(ch.Pid()) != kernel.Process(ch) {
		t.Fatalf("crosshair %d no longer scheduled", ch.Pid())
	}
	if orig := w.Crosshair().(*CrosshairProcess); orig.Pid() != ch.Pid() {
		t.Fatalf("crosshair pid %d, original %d", ch.Pid(), orig.Pid())
	}
}

func TestLoad_StaleHandlesDoNotResolve(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	pot := spawn(t, w, shapePot, pt(100, 100, 0))
	id := pot.ObjID()
	h := pot.Handle()

	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		t.Fatalf("import into the same world: %v", err)
	}
	loaded := w.Item(id)
	if loaded == nil || loaded == pot {
		t.Fatalf("item %d not reloaded as a new object", id)
	}
	if w.Resolve(h) != nil {
		t.Fatalf("handle from before the load resolved to the reloaded item")
	}
	if w.Resolve(loaded.Handle()) != Object(loaded) {
		t.Fatalf("fresh handle does not resolve")
	}
}

func TestImportSnapshot_Rejects(t *testing.T) {
	w := busyWorld(t)
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	t.Run("ruleset", func(t *testing.T) {
		u8 := newTestWorld(t, testTuning("u8"))
		if err := u8.ImportSnapshot(snap); !errors.Is(err, ErrRulesetMismatch) {
			t.Fatalf("err=%v want ErrRulesetMismatch", err)
		}
	})
	t.Run("corrupted body", func(t *testing.T) {
		bad := snap
		bad.Body = append([]byte(nil), snap.Body...)
		bad.Body[len(bad.Body)/2] ^= 0xff
		w2 := newTestWorld(t, testTuning("crusader"))
		if err := w2.ImportSnapshot(bad); !errors.Is(err, ErrDigestMismatch) {
			t.Fatalf("err=%v want ErrDigestMismatch", err)
		}
	})
	t.Run("other game", func(t *testing.T) {
		u8 := newTestWorld(t, testTuning("u8"))
		if err := u8.Load(encoding.NewReader(snap.Body)); !errors.Is(err, ErrSaveGame) {
			t.Fatalf("err=%v want ErrSaveGame", err)
		}
	})
	t.Run("truncated", func(t *testing.T) {
		w2 := newTestWorld(t, testTuning("crusader"))
		if err := w2.Load(encoding.NewReader(snap.Body[:len(snap.Body)/2])); err == nil {
			t.Fatalf("truncated save loaded without error")
		}
	})
}
