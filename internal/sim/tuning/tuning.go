package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	RulesetU8       = "u8"
	RulesetCrusader = "crusader"
	RulesetRegret   = "regret"
)

type Tuning struct {
	Ruleset    string `yaml:"ruleset"`
	TickRateHz int    `yaml:"tick_rate_hz"`
	Seed       uint64 `yaml:"seed"`

	// World units per map chunk edge and the fast-area radius in chunks.
	ChunkSize  int32 `yaml:"chunk_size"`
	FastRadius int32 `yaml:"fast_radius"`
	MapChunks  int32 `yaml:"map_chunks"`

	// 1 (easy) .. 4 (hard); only Crusader scales damage by it.
	Difficulty int `yaml:"difficulty"`

	SaveEveryTicks int `yaml:"save_every_ticks"`

	MainActor MainActorTuning `yaml:"main_actor"`
}

type MainActorTuning struct {
	CarryWeightPerStr int `yaml:"carry_weight_per_str"`
	BackpackVolume    int `yaml:"backpack_volume"`
	MaxEnergy         int `yaml:"max_energy"`
	ShieldType        int `yaml:"shield_type"`
}

func Defaults() Tuning {
	return Tuning{
		Ruleset:        RulesetU8,
		TickRateHz:     30,
		Seed:           1,
		ChunkSize:      512,
		FastRadius:     1,
		MapChunks:      128,
		Difficulty:     2,
		SaveEveryTicks: 3000,
		MainActor: MainActorTuning{
			CarryWeightPerStr: 40,
			BackpackVolume:    300,
			MaxEnergy:         100,
			ShieldType:        0,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch t.Ruleset {
	case RulesetU8, RulesetCrusader, RulesetRegret:
	default:
		return fmt.Errorf("unknown ruleset %q", t.Ruleset)
	}
	if t.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive")
	}
	if t.FastRadius < 0 {
		return fmt.Errorf("fast_radius must not be negative")
	}
	if t.TickRateHz <= 0 {
		return fmt.Errorf("tick_rate_hz must be positive")
	}
	if t.Difficulty < 1 || t.Difficulty > 4 {
		return fmt.Errorf("difficulty %d out of range 1..4", t.Difficulty)
	}
	return nil
}
