package main

import (
	"errors"
	"testing"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

type memTickLog struct{ entries []world.TickLogEntry }

func (m *memTickLog) WriteTick(e world.TickLogEntry) error {
	m.entries = append(m.entries, e)
	return nil
}

func recordRun(t *testing.T, ticks int) (*catalogs.Catalogs, map[uint64]string, func() *world.World) {
	t.Helper()
	flagConfigDir = "../../configs"
	cats, err := catalogs.Load(flagConfigDir)
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	tune, err := tuning.Load(flagConfigDir + "/tuning.yaml")
	if err != nil {
		t.Fatalf("tuning: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "w_replay", Tuning: tune}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	w.SetUsecode(world.NewScriptTable())
	if w.CreateActor(world.MainActorID, 1, 0) == nil {
		t.Fatalf("CreateActor(main) returned nil")
	}
	snap, err := w.ExportSnapshot()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	rec := &memTickLog{}
	w.SetTickLogger(rec)
	for i := 0; i < ticks; i++ {
		w.StepOnce()
	}
	expected := map[uint64]string{}
	for _, e := range rec.entries {
		expected[uint64(e.Tick)] = e.Digest
	}
	fresh := func() *world.World {
		rw, err := restore(snap, cats)
		if err != nil {
			t.Fatalf("restore: %v", err)
		}
		return rw
	}
	return cats, expected, fresh
}

func TestVerify_ReproducesRecordedDigests(t *testing.T) {
	_, expected, fresh := recordRun(t, 12)
	checked, err := verify(fresh(), expected, 12)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if checked != 12 {
		t.Fatalf("checked = %d, want 12", checked)
	}
}

func TestVerify_ReportsFirstMismatch(t *testing.T) {
	_, expected, fresh := recordRun(t, 8)
	expected[5] = "tampered"
	checked, err := verify(fresh(), expected, 8)
	if !errors.Is(err, ErrDigestMismatch) {
		t.Fatalf("err = %v, want ErrDigestMismatch", err)
	}
	if checked != 4 {
		t.Fatalf("checked = %d, want 4", checked)
	}
}
