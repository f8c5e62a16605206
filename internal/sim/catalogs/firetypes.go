package catalogs

// Rand is the subset of math/rand/v2's *Rand the catalogs draw from.
type Rand interface {
	IntN(n int) int
}

// FireType describes one weapon or ammo behaviour. Values are immutable once
// loaded.
type FireType struct {
	TypeNo        uint16 `json:"type"`
	MinDamage     uint16 `json:"min_damage"`
	MaxDamage     uint16 `json:"max_damage"`
	Range         uint8  `json:"range"`
	NumShots      uint8  `json:"num_shots"`
	ShieldCost    uint16 `json:"shield_cost"`
	ShieldMask    uint16 `json:"shield_mask"`
	Accurate      bool   `json:"accurate"`
	CellsPerRound uint16 `json:"cells_per_round"`
	RoundDuration uint16 `json:"round_duration"`
	NearSprite    bool   `json:"near_sprite"`

	// Impact visuals: one variant is picked, then one of its frame ranges.
	Splash       []SplashVariant `json:"splash,omitempty"`
	SplashSounds []uint16        `json:"splash_sounds,omitempty"`
	// Splash damage falls off with distance.
	Falloff bool `json:"falloff,omitempty"`
}

type SplashVariant struct {
	Shape  uint32      `json:"shape"`
	Frames [][2]uint32 `json:"frames"`
	Delay  uint16      `json:"delay,omitempty"`
}

// RandomDamage draws uniformly from [MinDamage, MaxDamage).
func (ft *FireType) RandomDamage(rng Rand) uint16 {
	if ft.MaxDamage <= ft.MinDamage {
		return ft.MinDamage
	}
	return ft.MinDamage + uint16(rng.IntN(int(ft.MaxDamage-ft.MinDamage)))
}

// PickSplash returns the splash shape, frame range and sound for an impact.
// ok is false when the fire type has no splash visual.
func (ft *FireType) PickSplash(rng Rand) (shape, first, last uint32, delay uint16, sound uint16, ok bool) {
	if len(ft.SplashSounds) > 0 {
		sound = ft.SplashSounds[rng.IntN(len(ft.SplashSounds))]
	}
	if len(ft.Splash) == 0 {
		return 0, 0, 0, 0, sound, false
	}
	v := ft.Splash[rng.IntN(len(ft.Splash))]
	if len(v.Frames) == 0 {
		return v.Shape, 0, 0, v.Delay, sound, true
	}
	fr := v.Frames[rng.IntN(len(v.Frames))]
	delay = v.Delay
	if delay == 0 {
		delay = 3
	}
	return v.Shape, fr[0], fr[1], delay, sound, true
}
