package worldtest

import (
	"testing"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/scenario"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

const configDir = "../../../configs"

// Harness is a small black-box helper for driving a world via exported APIs:
// - NewHarness applies a scenario file and runs its steps
// - StepN advances the world and returns the per-tick digests
// - Reload round-trips the world through a snapshot
//
// It avoids world internals so tests can live outside the world package.
type Harness struct {
	T    *testing.T
	Cats *catalogs.Catalogs
	W    *world.World

	Names   map[string]world.ObjID
	Scripts *world.ScriptTable

	ticks []world.TickLogEntry
}

// LoadTuning reads the shipped tuning.yaml.
func LoadTuning(t *testing.T) tuning.Tuning {
	t.Helper()
	tune, err := tuning.Load(configDir + "/tuning.yaml")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	return tune
}

// NewHarness builds a world with tune and runs the scenario at
// scenarioPath against it. An empty path leaves the world empty.
func NewHarness(t *testing.T, tune tuning.Tuning, scenarioPath string) *Harness {
	t.Helper()
	cats, err := catalogs.Load(configDir)
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "test", Tuning: tune}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	h := NewHarnessWithWorld(t, w, cats)

	if scenarioPath == "" {
		return h
	}
	sc, err := scenario.Load(scenarioPath)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	pop, _, err := sc.Run(w)
	if err != nil {
		t.Fatalf("run scenario: %v", err)
	}
	h.Names = pop.Names
	return h
}

// NewHarnessWithWorld wraps an already-constructed world, for example one
// a snapshot was imported into.
func NewHarnessWithWorld(t *testing.T, w *world.World, cats *catalogs.Catalogs) *Harness {
	t.Helper()
	if w == nil {
		t.Fatalf("NewHarnessWithWorld: nil world")
	}
	h := &Harness{
		T:       t,
		Cats:    cats,
		W:       w,
		Names:   map[string]world.ObjID{},
		Scripts: world.NewScriptTable(),
	}
	w.SetUsecode(h.Scripts)
	w.SetTickLogger(h)
	return h
}

// WriteTick records the tick log in memory.
func (h *Harness) WriteTick(e world.TickLogEntry) error {
	h.ticks = append(h.ticks, e)
	return nil
}

// Ticks returns every tick logged since the harness was created.
func (h *Harness) Ticks() []world.TickLogEntry { return h.ticks }

// StepN advances n ticks and returns their digests in order.
func (h *Harness) StepN(n int) []string {
	out := make([]string, 0, n)
	for range n {
		_, d := h.W.StepOnce()
		out = append(out, d)
	}
	return out
}

// Item returns the item a scenario created under name.
func (h *Harness) Item(name string) *world.Item {
	h.T.Helper()
	id, ok := h.Names[name]
	if !ok {
		h.T.Fatalf("no scenario object named %q", name)
	}
	return h.W.Item(id)
}

// Reload exports the world and imports it into a fresh one with the same
// tuning. Scenario names carry over.
func (h *Harness) Reload() *Harness {
	h.T.Helper()
	snap, err := h.W.ExportSnapshot()
	if err != nil {
		h.T.Fatalf("export: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "test", Tuning: h.W.Tuning()}, h.Cats)
	if err != nil {
		h.T.Fatalf("world.New: %v", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		h.T.Fatalf("import: %v", err)
	}
	out := NewHarnessWithWorld(h.T, w, h.Cats)
	for k, v := range h.Names {
		out.Names[k] = v
	}
	return out
}
