package worldtest

import (
	"errors"
	"path/filepath"
	"testing"

	"u8sim/internal/persistence/snapshot"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

func TestSnapshotRoundTrip_KeepsStateAndDeterminism(t *testing.T) {
	h := NewHarness(t, LoadTuning(t), configDir+"/scenario.yaml")
	h.StepN(3)

	h2 := h.Reload()
	if got, want := h2.W.CurrentTick(), h.W.CurrentTick(); got != want {
		t.Fatalf("tick after import: got %d want %d", got, want)
	}
	if d1, d2 := h.W.StateDigest(), h2.W.StateDigest(); d1 != d2 {
		t.Fatalf("digest mismatch after import: %s vs %s", d1, d2)
	}

	if coins := h2.Item("coins"); coins == nil || coins.Parent() != h2.Names["crate"] {
		t.Fatalf("coins left the crate: %v", coins)
	}
	if sword := h2.Item("sword"); sword == nil || !sword.HasFlags(world.FlagEquipped) {
		t.Fatalf("sword lost its equipped flag: %v", sword)
	}

	// Pending processes must resume identically.
	d1 := h.StepN(40)
	d2 := h2.StepN(40)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("digest mismatch %d ticks after reload: %s vs %s", i+1, d1[i], d2[i])
		}
	}
}

func TestSnapshotFile_RoundTrip(t *testing.T) {
	h := NewHarness(t, LoadTuning(t), configDir+"/scenario.yaml")
	h.StepN(5)

	snap, err := h.W.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	path := filepath.Join(t.TempDir(), "save.u8s")
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := snapshot.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	w, err := world.New(world.WorldConfig{ID: "test", Tuning: h.W.Tuning()}, h.Cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	if err := w.ImportSnapshot(back); err != nil {
		t.Fatalf("import: %v", err)
	}
	if w.StateDigest() != snap.Header.Digest {
		t.Fatalf("digest %s, header %s", w.StateDigest(), snap.Header.Digest)
	}
}

func TestImportSnapshot_Rejects(t *testing.T) {
	h := NewHarness(t, LoadTuning(t), configDir+"/scenario.yaml")
	snap, err := h.W.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	t.Run("other ruleset", func(t *testing.T) {
		tune := h.W.Tuning()
		tune.Ruleset = tuning.RulesetU8
		w, err := world.New(world.WorldConfig{ID: "test", Tuning: tune}, h.Cats)
		if err != nil {
			t.Fatalf("world.New: %v", err)
		}
		if err := w.ImportSnapshot(snap); !errors.Is(err, world.ErrRulesetMismatch) {
			t.Fatalf("err = %v, want ErrRulesetMismatch", err)
		}
	})

	t.Run("tampered body", func(t *testing.T) {
		bad := snap
		bad.Body = append([]byte(nil), snap.Body...)
		bad.Body[len(bad.Body)-1] ^= 0xff
		w, err := world.New(world.WorldConfig{ID: "test", Tuning: h.W.Tuning()}, h.Cats)
		if err != nil {
			t.Fatalf("world.New: %v", err)
		}
		if err := w.ImportSnapshot(bad); !errors.Is(err, world.ErrDigestMismatch) {
			t.Fatalf("err = %v, want ErrDigestMismatch", err)
		}
	})
}
