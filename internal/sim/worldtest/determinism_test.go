package worldtest

import (
	"testing"
)

func TestDeterminism_SameScenarioSameDigests(t *testing.T) {
	tune := LoadTuning(t)
	h1 := NewHarness(t, tune, configDir+"/scenario.yaml")
	h2 := NewHarness(t, tune, configDir+"/scenario.yaml")

	if h1.W.CurrentTick() != h2.W.CurrentTick() {
		t.Fatalf("tick mismatch after scenario: %d vs %d", h1.W.CurrentTick(), h2.W.CurrentTick())
	}
	d1 := h1.StepN(60)
	d2 := h2.StepN(60)
	for i := range d1 {
		if d1[i] != d2[i] {
			t.Fatalf("digest mismatch at step %d: %s vs %s", i, d1[i], d2[i])
		}
	}
}

func TestTickLog_FollowsSteps(t *testing.T) {
	h := NewHarness(t, LoadTuning(t), "")
	digests := h.StepN(10)

	ticks := h.Ticks()
	if len(ticks) != 10 {
		t.Fatalf("logged %d ticks, want 10", len(ticks))
	}
	for i, e := range ticks {
		if e.Tick != uint32(i+1) {
			t.Fatalf("entry %d has tick %d", i, e.Tick)
		}
		if e.Digest != digests[i] {
			t.Fatalf("entry %d digest %s, StepOnce returned %s", i, e.Digest, digests[i])
		}
	}
	if last := ticks[len(ticks)-1].Digest; last != h.W.StateDigest() {
		t.Fatalf("last logged digest %s != state digest %s", last, h.W.StateDigest())
	}
}
