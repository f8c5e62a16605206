package world

import (
	"fmt"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
	"u8sim/internal/sim/tuning"
)

type Game uint8

const (
	GameU8 Game = iota
	GameCrusader
)

func (g Game) String() string {
	if g == GameCrusader {
		return "crusader"
	}
	return "u8"
}

// Traits are the per-game constants the shared item code reads.
type Traits struct {
	// Usecode class bases for permanent NPCs and unknown eggs.
	NpcClassBase uint32
	EggClassBase uint32

	Gravity int32

	// Crusader keeps a list of targetable items in the fast area.
	TargetList bool
	// Crusader calls hit/gotHit for items already touching at sweep start.
	HitAtSweepStart bool
	// Crusader sleeps a fresh gravity process before the first hurl step.
	HurlDelay bool
	// No Regret rerolls very low weapon damage.
	Regret bool
	// Usecode coordinates are world coordinates shifted right by this.
	UsecodeCoordShift uint
	// Usecode directions are 16-way; otherwise 8-way (world dir / 2).
	UsecodeDir16 bool
}

func (t Traits) ToUsecodeDir(d geom.Direction) uint16 {
	if d >= geom.DirInvalid {
		return uint16(d)
	}
	if t.UsecodeDir16 {
		return uint16(d)
	}
	return uint16(d / 2)
}

func (t Traits) FromUsecodeDir(v uint16) geom.Direction {
	if t.UsecodeDir16 {
		return geom.Direction(min(v, uint16(geom.DirInvalid)))
	}
	if v >= 8 {
		return geom.DirInvalid
	}
	return geom.Direction(v * 2)
}

// Ruleset holds the behaviour that differs between Ultima 8 and Crusader.
type Ruleset interface {
	Game() Game
	Traits() Traits
	// ReceiveHit is the plain item reaction to damage.
	ReceiveHit(it *Item, other ObjID, dir geom.Direction, damage int, typ uint16)
	// ActorReceiveHit is the actor reaction to damage.
	ActorReceiveHit(a *Actor, other ObjID, dir geom.Direction, damage int, typ uint16)
	Explode(it *Item, typ int, destroyItem, causeDamage bool)
}

// NewRuleset maps a tuning ruleset name to its implementation.
func NewRuleset(name string) (Ruleset, error) {
	switch name {
	case tuning.RulesetU8:
		return u8Rules{}, nil
	case tuning.RulesetCrusader:
		return crusaderRules{}, nil
	case tuning.RulesetRegret:
		return crusaderRules{regret: true}, nil
	default:
		return nil, fmt.Errorf("unknown ruleset %q", name)
	}
}

type u8Rules struct{}

func (u8Rules) Game() Game { return GameU8 }

func (u8Rules) Traits() Traits {
	return Traits{NpcClassBase: 1024, EggClassBase: 0x47F, Gravity: 4}
}

func (u8Rules) ReceiveHit(it *Item, other ObjID, dir geom.Direction, damage int, typ uint16) {
	if it.callUsecodeEvent(EventGotHit, ucArgs(uint16(other), 0)) != 0 {
		return
	}
	si := it.ShapeInfo()
	if si.IsExplosive() {
		it.Explode(0, true, true)
		return
	}
	if si.Family == catalogs.FamilyBreakable {
		it.self.Destroy(false)
		return
	}
	if si.IsFixed() || si.Weight == 0 {
		return
	}
	it.Hurl(-16*geom.XFactor(dir), -16*geom.YFactor(dir), 16, 4)
}

func (r u8Rules) ActorReceiveHit(a *Actor, other ObjID, dir geom.Direction, damage int, typ uint16) {
	a.receiveHitU8(other, dir, damage, typ)
}

func (u8Rules) Explode(it *Item, typ int, destroyItem, causeDamage bool) {
	w := it.world
	p := it.Point()
	w.kern.AddProcess(NewSpriteProcess(w, ShapeU8Explosion, 20, 34, 1, 1, p, false))
	sfx := sfxU8ExplodeA
	if w.rng.IntN(2) == 0 {
		sfx = sfxU8ExplodeB
	}
	w.audio.PlaySFX(sfx, 0x60, 0, 0)

	if destroyItem {
		it.self.Destroy(false)
	}
	if !causeDamage {
		return
	}
	area := geom.Box{X: p.X, Y: p.Y, Z: p.Z}
	for _, id := range w.cmap.AreaSearch(LoopScriptAll, area, 160, false) {
		o := w.Item(id)
		if o == nil || o == it {
			continue
		}
		if it.Range(o, true) > 160 {
			continue
		}
		op := o.Point()
		d := geom.GetWorldDir(op.Y-p.Y, op.X-p.X, geom.DirMode8)
		o.self.ReceiveHit(0, d, w.randRange(6, 11), DamageBlunt|DamageFire)
	}
}

type crusaderRules struct {
	regret bool
}

func (crusaderRules) Game() Game { return GameCrusader }

func (r crusaderRules) Traits() Traits {
	return Traits{
		NpcClassBase:      2048,
		EggClassBase:      0x900,
		Gravity:           2,
		TargetList:        true,
		HitAtSweepStart:   true,
		HurlDelay:         true,
		Regret:            r.regret,
		UsecodeCoordShift: 1,
		UsecodeDir16:      true,
	}
}

// scaleReceivedDamage applies the difficulty curve: easier settings make
// everything except the player take more damage.
func scaleReceivedDamage(it *Item, damage int, typ uint16) int {
	w := it.world
	isPlayer := actorOf(it.self) != nil && (it.objID == MainActorID || it.objID == w.controlled)
	switch w.tun.Difficulty {
	case 1:
		if isPlayer {
			damage /= 5
		} else {
			damage *= 5
		}
	case 2:
		if isPlayer {
			damage /= 3
		} else {
			damage *= 3
		}
	}
	if it.IsRobot() && (typ == 1 || typ == 2 || typ == 0xb || typ == 0xd) {
		damage /= 3
	}
	return min(max(damage, 1), 0xfa)
}

func (crusaderRules) ReceiveHit(it *Item, other ObjID, dir geom.Direction, damage int, typ uint16) {
	damage = scaleReceivedDamage(it, damage, typ)
	si := it.ShapeInfo()
	w := it.world

	it.callUsecodeEvent(EventGotHit, ucArgs(0x4000, (typ<<8)|uint16(damage&0xff)))

	if si.Damage != nil && applyDamageInfo(it, si, damage) {
		w.kern.KillProcesses(uint16(it.objID), kernel.TypeAll, true)
	}

	if si.IsFixed() || si.Weight == 0 || (typ != 3 && typ != 4) {
		return
	}
	if dir >= geom.DirInvalid {
		w.cantHappen("receiveHit with invalid direction")
	}
	xh := int32(w.randRange(10, 24))
	yh := int32(w.randRange(10, 24))
	it.Hurl(-xh*hurlXFactor[dir], -yh*hurlYFactor[dir], 0, 2)
}

func (crusaderRules) ActorReceiveHit(a *Actor, other ObjID, dir geom.Direction, damage int, typ uint16) {
	a.receiveHitCru(other, dir, damage, typ)
}

func (r crusaderRules) Explode(it *Item, typ int, destroyItem, causeDamage bool) {
	w := it.world
	divisor := typ + 1
	switch divisor {
	case 1:
		divisor = 3
	case 3:
		divisor = 1
	}
	it.SetFlag(FlagBroken)

	var sprite uint32
	switch typ {
	case 0:
		sprite = explosionShapes[w.rng.IntN(2)]
	case 1:
		sprite = explosionShapes[2+w.rng.IntN(3)]
	default:
		sprite = explosionShapes[5+w.rng.IntN(3)]
	}
	p := it.Point()
	c := it.Centre()
	w.kern.AddProcess(NewSpriteProcess(w, sprite, 0, 39, 1, 1, geom.Point3{X: p.X, Y: p.Y, Z: c.Z}, false))

	sfx := sfxCruExplodeA
	if w.rng.IntN(2) == 0 {
		sfx = sfxCruExplodeB
	}
	w.audio.StopSFX(-1, it.objID)
	w.audio.PlaySFX(sfx, 0x60, 0, 0)

	if destroyItem {
		it.self.Destroy(false)
	}
	if !causeDamage {
		return
	}
	ft := w.cats.FireTypes.FireType(4)
	if ft == nil {
		w.perr("explosion without fire type 4", "item", it.objID)
		return
	}
	dmg := int(ft.RandomDamage(w.rng)) / divisor
	w.ApplySplashDamageAround(ft, p, dmg, divisor, it.objID, it.objID)
}

// applyDamageInfo runs the shape's breakage rules. Reports whether the item
// broke.
func applyDamageInfo(it *Item, si *catalogs.ShapeInfo, damage int) bool {
	di := si.Damage
	if it.flags&(FlagGumpOpen|FlagBroken) != 0 {
		return false
	}
	if di.TakesDamage && damage < int(it.damagePoints) {
		it.damagePoints -= uint8(damage)
		return false
	}
	w := it.world
	it.damagePoints = 0
	it.flags |= FlagBroken
	p := it.Point()

	if di.Explode >= 0 {
		it.Explode(di.Explode, false, true)
	}
	if di.Sound != 0 {
		w.audio.PlaySFX(int(di.Sound), 0x10, it.objID, 0)
	}
	switch {
	case di.ReplaceShape != 0:
		if repl := w.CreateItem(di.ReplaceShape, di.ReplaceFrame, 0, 0, 0, it.mapNum, 0, true); repl != nil {
			repl.Move(p)
		}
	case di.FrameOffset != 0:
		it.frame = uint32(int32(it.frame) + di.FrameOffset)
	}
	if di.Destroy {
		it.self.Destroy(false)
	}
	return true
}
