package scenario

import (
	"errors"
	"strings"
	"testing"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/tuning"
	"u8sim/internal/sim/world"
)

func newWorld(t *testing.T, ruleset string) *world.World {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tun := tuning.Defaults()
	tun.Ruleset = ruleset
	w, err := world.New(world.WorldConfig{ID: "scenario", Tuning: tun}, cats)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	return w
}

func TestLoad_ShippedScenarioRuns(t *testing.T) {
	s, err := Load("../../../configs/scenario.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	w := newWorld(t, tuning.RulesetCrusader)
	pop, results, err := s.Run(w)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(results) != len(s.Steps) {
		t.Fatalf("ran %d steps, want %d", len(results), len(s.Steps))
	}

	coins := w.Item(pop.Names["coins"])
	if coins == nil || coins.Parent() != pop.Names["crate"] {
		t.Fatalf("coins not in crate: %v", coins)
	}
	sword := w.Item(pop.Names["sword"])
	if sword == nil || !sword.HasFlags(world.FlagEquipped) {
		t.Fatalf("sword not equipped: %v", sword)
	}
	if pot := w.Item(pop.Names["pot"]); pot == nil || pot.IsEthereal() {
		t.Fatalf("pot still ethereal: %v", pot)
	}
	if w.MainActor() == nil {
		t.Fatalf("main actor missing")
	}
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "actor id out of range",
			yaml: "actors:\n  - {id: 300, shape: 1, at: [0, 0]}\n",
			want: "out of range",
		},
		{
			name: "item placed twice",
			yaml: "items:\n  - {name: a, shape: 32, at: [0, 0], in: b}\n",
			want: "exactly one",
		},
		{
			name: "container named later",
			yaml: "items:\n  - {name: coins, shape: 36, in: crate}\n  - {name: crate, shape: 32, at: [0, 0]}\n",
			want: "earlier",
		},
		{
			name: "duplicate name",
			yaml: "items:\n  - {name: a, shape: 32, at: [0, 0]}\n  - {name: a, shape: 34, at: [64, 0]}\n",
			want: "duplicate",
		},
		{
			name: "unknown intrinsic",
			yaml: "steps:\n  - {intrinsic: teleportEverything}\n",
			want: "unknown intrinsic",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err=%v want substring %q", err, tt.want)
			}
		})
	}
}

func TestRun_ExpectationMismatch(t *testing.T) {
	s, err := Parse([]byte(`
items:
  - {name: terminal, shape: 49, at: [400, 116, 0]}
steps:
  - {intrinsic: getX, args: ["@terminal"], expect: 1}
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	_, results, err := s.Run(newWorld(t, tuning.RulesetU8))
	if !errors.Is(err, ErrExpectation) {
		t.Fatalf("err=%v want ErrExpectation", err)
	}
	if len(results) != 1 || results[0].Value != 400 {
		t.Fatalf("results = %+v", results)
	}
}

func TestRun_UnknownItemArgument(t *testing.T) {
	s, err := Parse([]byte("steps:\n  - {intrinsic: getX, args: [\"@ghost\"]}\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if _, _, err := s.Run(newWorld(t, tuning.RulesetU8)); !errors.Is(err, ErrUnknownName) {
		t.Fatalf("err=%v want ErrUnknownName", err)
	}
}
