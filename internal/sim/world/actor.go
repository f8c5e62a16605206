package world

import (
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

const classActor = "Actor"

// Actor flags.
const (
	ActInvincible     uint32 = 0x00001
	ActAscending      uint32 = 0x00002
	ActDescending     uint32 = 0x00004
	ActAnimLock       uint32 = 0x00008
	ActFirstStep      uint32 = 0x00400
	ActInCombat       uint32 = 0x00800
	ActDead           uint32 = 0x01000
	ActWithstandDeath uint32 = 0x02000
	ActImmortal       uint32 = 0x04000
	ActStunned        uint32 = 0x08000
	ActWeaponReady    uint32 = 0x10000
)

// Crusader death shapes, by cause.
const (
	shapeCruPlasmaDeath   uint32 = 0x58f
	shapeCruFireSkeleton  uint32 = 0x596
	shapeCruFadeDeath     uint32 = 0x59c
	shapeCruFrozen        uint32 = 0x5d6
	shapeCruFrozenShatter uint32 = 0x5ef
	shapeCruAcidDeath     uint32 = 0x62d
	shapeCruGibs          uint32 = 0x278
	shapeCruRobot         uint32 = 899
)

// No Regret body shapes that swap to their own corpse on death.
var regretCorpses = map[uint32]uint32{
	0x5ff: 0x606, 0x5d7: 0x606,
	0x625: 0x62e, 0x626: 0x62e,
	0x5f0: 0x5d5, 0x2c3: 0x5d5,
	0x62f: 0x631, 0x630: 0x631,
}

// Crusader robots that may be stunned by electrical damage.
var cruStunnable = map[uint32]bool{0x4e6: true, 0x338: true, 0x385: true, shapeCruRobot: true}

// Actor is an NPC or creature. Its contents are its inventory; equipped
// items are held with FlagEquipped and their equipment type as slot height.
type Actor struct {
	Container

	str, dex, intel int16
	hp              uint16
	mana            int16
	alignment       uint16
	enemyAlignment  uint16
	lastAnim        uint32
	animFrame       uint16
	direction       geom.Direction
	fallStart       uint32
	actorFlags      uint32
	unkByte         uint8
	combatTarget    ObjID

	// Crusader only.
	defaultActivity [3]uint16
	combatTactic    uint16
	home            geom.Point3
	currentActivity uint16
	lastActivity    uint16
	activeWeapon    ObjID
	lastTickWasHit  int32
	attackMoveStart uint32
	attackMoveEnd   uint32
	attackDodge     uint16
	attackAim       bool
}

func newActor(w *World) *Actor {
	a := &Actor{}
	a.world = w
	a.self = a
	return a
}

func (a *Actor) ClassName() string { return classActor }
func (a *Actor) AsActor() *Actor   { return a }

func actorOf(o Object) *Actor {
	if o == nil {
		return nil
	}
	if a, ok := o.(interface{ AsActor() *Actor }); ok {
		return a.AsActor()
	}
	return nil
}

// initStats gives a fresh actor usable defaults.
func (a *Actor) initStats() {
	a.str, a.dex, a.intel = 10, 10, 10
	a.hp = a.MaxHP()
	a.mana = a.MaxMana()
	a.direction = geom.DirSouth
	a.lastAnim = AnimStand
}

func (a *Actor) Str() int16                  { return a.str }
func (a *Actor) Dex() int16                  { return a.dex }
func (a *Actor) Int() int16                  { return a.intel }
func (a *Actor) SetStr(v int16)              { a.str = v }
func (a *Actor) SetDex(v int16)              { a.dex = v }
func (a *Actor) SetInt(v int16)              { a.intel = v }
func (a *Actor) HP() uint16                  { return a.hp }
func (a *Actor) SetHP(v uint16)              { a.hp = v }
func (a *Actor) Mana() int16                 { return a.mana }
func (a *Actor) SetMana(v int16)             { a.mana = v }
func (a *Actor) MaxHP() uint16               { return uint16(2 * a.str) }
func (a *Actor) MaxMana() int16              { return 2 * a.intel }
func (a *Actor) Alignment() uint16           { return a.alignment }
func (a *Actor) SetAlignment(v uint16)       { a.alignment = v }
func (a *Actor) EnemyAlignment() uint16      { return a.enemyAlignment }
func (a *Actor) SetEnemyAlignment(v uint16)  { a.enemyAlignment = v }
func (a *Actor) Dir() geom.Direction         { return a.direction }
func (a *Actor) SetDir(d geom.Direction)     { a.direction = d }
func (a *Actor) LastAnim() uint32            { return a.lastAnim }
func (a *Actor) AnimFrame() uint16           { return a.animFrame }
func (a *Actor) ActorFlags() uint32          { return a.actorFlags }
func (a *Actor) HasActorFlags(f uint32) bool { return a.actorFlags&f != 0 }
func (a *Actor) SetActorFlag(f uint32)       { a.actorFlags |= f }
func (a *Actor) ClearActorFlag(f uint32)     { a.actorFlags &^= f }
func (a *Actor) IsDead() bool                { return a.actorFlags&ActDead != 0 }
func (a *Actor) IsInCombat() bool            { return a.actorFlags&ActInCombat != 0 }
func (a *Actor) CombatTarget() ObjID         { return a.combatTarget }
func (a *Actor) ActiveWeapon() ObjID         { return a.activeWeapon }
func (a *Actor) LastTickWasHit() int32       { return a.lastTickWasHit }
func (a *Actor) Home() geom.Point3           { return a.home }
func (a *Actor) SetHome(p geom.Point3)       { a.home = p }

// SetInCombat puts the actor in combat against target. Already fighting
// actors just switch target.
func (a *Actor) SetInCombat(target ObjID) {
	a.combatTarget = target
	if a.actorFlags&ActInCombat != 0 {
		return
	}
	a.actorFlags |= ActInCombat
	if a.world.rules.Game() == GameU8 {
		a.world.kern.KillProcesses(uint16(a.objID), kernel.TypeAll, true)
		a.callUsecodeEvent(EventCast, ucArgs(0))
	}
}

func (a *Actor) ClearInCombat() {
	a.actorFlags &^= ActInCombat
	a.combatTarget = 0
}

// ReceiveHit routes damage to the ruleset's actor reaction.
func (a *Actor) ReceiveHit(other ObjID, dir geom.Direction, damage int, typ uint16) {
	a.world.rules.ActorReceiveHit(a, other, dir, damage, typ)
}

// Destroy drops the actor and everything it carries.
func (a *Actor) Destroy(delNow bool) {
	if !a.isLive() {
		return
	}
	if a.world.controlled == a.objID {
		a.world.controlled = 0
	}
	a.Container.Destroy(delNow)
}

func isBackpack(it *Item) bool { return it.shape == ShapeBackpack }

// SetEquip equips it in the slot its shape names. The actor carries one
// item per equipment type plus one backpack.
func (a *Actor) SetEquip(it *Item, checkWeightVolume bool) bool {
	et := it.ShapeInfo().EquipType
	bp := isBackpack(it)
	if et == catalogs.EquipNone && !bp {
		return false
	}
	for _, id := range a.contents {
		ci := a.world.Item(id)
		if ci == nil || ci == it || ci.flags&FlagEquipped == 0 {
			continue
		}
		if ci.ShapeInfo().EquipType == et || (bp && isBackpack(ci)) {
			return false
		}
	}
	if !it.MoveToContainer(&a.Container, checkWeightVolume) {
		return false
	}
	it.flags &^= FlagContained
	it.flags |= FlagEquipped
	slot := et
	if bp {
		slot = catalogs.EquipBackpack
	}
	it.loc = Location{kind: locGump, gz: int32(slot)}
	it.callUsecodeEvent(EventEquip, nil)
	return true
}

// Unequip moves an equipped item back into the inventory, into the
// backpack when there is one.
func (a *Actor) Unequip(it *Item) bool {
	if it.parent != a.objID || it.flags&FlagEquipped == 0 {
		return false
	}
	it.flags &^= FlagEquipped
	it.flags |= FlagContained
	it.RandomGumpLocation()
	if bp := a.EquipmentAt(catalogs.EquipBackpack); bp != nil && bp != it {
		if c := containerOf(bp.self); c != nil {
			it.MoveToContainer(c, false)
		}
	}
	it.callUsecodeEvent(EventUnequip, nil)
	return true
}

// EquipmentAt returns the item equipped in slot, or nil. The backpack
// answers for EquipBackpack.
func (a *Actor) EquipmentAt(slot uint8) *Item {
	for _, id := range a.contents {
		ci := a.world.Item(id)
		if ci == nil || ci.flags&FlagEquipped == 0 {
			continue
		}
		if ci.ShapeInfo().EquipType == slot || (slot == catalogs.EquipBackpack && isBackpack(ci)) {
			return ci
		}
	}
	return nil
}

// Equip returns the id of the item equipped in slot, or 0.
func (a *Actor) Equip(slot uint8) ObjID {
	if it := a.EquipmentAt(slot); it != nil {
		return it.objID
	}
	return 0
}

// weapon is the equipped weapon's info, or nil.
func (a *Actor) weapon() *catalogs.WeaponInfo {
	if w := a.EquipmentAt(catalogs.EquipWeapon); w != nil {
		return w.ShapeInfo().Weapon
	}
	return nil
}

// DamageType of a plain item is its weapon damage type, if any.
func (it *Item) DamageType() uint16 {
	if wi := it.ShapeInfo().Weapon; wi != nil {
		return wi.DamageType
	}
	return 0
}

// DamageType is what the actor's blows inflict.
func (a *Actor) DamageType() uint16 {
	if wi := a.weapon(); wi != nil && wi.DamageType != 0 {
		return wi.DamageType
	}
	if wi := a.ShapeInfo().Weapon; wi != nil && wi.DamageType != 0 {
		return wi.DamageType
	}
	return DamageNormal
}

// DamageAmount rolls the strength of one blow.
func (a *Actor) DamageAmount() int {
	base := 1
	if wi := a.weapon(); wi != nil && wi.BaseDamage > 0 {
		base = int(wi.BaseDamage)
	} else if wi := a.ShapeInfo().Weapon; wi != nil && wi.BaseDamage > 0 {
		base = int(wi.BaseDamage)
	}
	return a.world.randRange(1, base)
}

// DefenseType is the damage types the actor's hide and worn armour resist.
func (a *Actor) DefenseType() uint16 {
	d := a.ShapeInfo().DefenseType
	for _, id := range a.contents {
		if ci := a.world.Item(id); ci != nil && ci.flags&FlagEquipped != 0 {
			d |= ci.ShapeInfo().DefenseType
		}
	}
	return d
}

func (a *Actor) ArmourClass() int {
	ac := int(a.ShapeInfo().ArmourClass)
	for _, id := range a.contents {
		if ci := a.world.Item(id); ci != nil && ci.flags&FlagEquipped != 0 {
			ac += int(ci.ShapeInfo().ArmourClass)
		}
	}
	return ac
}

// calculateAttackDamage applies resistances, armour and the to-hit roll
// to a U8 blow.
func (a *Actor) calculateAttackDamage(other ObjID, damage int, typ uint16) int {
	w := a.world
	rng := w.rng
	attacker := w.Actor(other)
	defense := a.DefenseType()

	typ &^= defense &^ (DamageMagic | DamageUndead | DamagePierce)
	if defense&DamageMagic != 0 && typ&DamageMagic == 0 {
		damage = 0
	}

	slayer := false
	if damage != 0 && typ != 0 {
		if typ&DamageSlayer != 0 && rng.IntN(10) == 0 {
			slayer = true
			damage = 255
		}
		if typ&DamageUndead != 0 && defense&DamageUndead != 0 {
			damage *= 2
		}
		if defense&DamagePierce != 0 && typ&(DamageBlade|DamageFire|DamagePierce) == 0 {
			damage /= 2
		}
	} else {
		damage = 0
	}

	stunned := a.actorFlags&ActStunned != 0
	if damage != 0 && typ&DamagePierce == 0 && !slayer {
		if (a.lastAnim == AnimStartBlock || a.lastAnim == AnimStopBlock) && !stunned {
			damage -= int(a.str) / 5
		}
		acMod := 3 * a.ArmourClass()
		if typ&DamageFire != 0 {
			acMod /= 2
		}
		if stunned {
			acMod /= 2
		}
		acMod = min(acMod, 100)
		damage = max((100-acMod)*damage/100, 0)
	}

	if damage != 0 && typ&DamagePierce == 0 && attacker != nil {
		attackDex := max(int(attacker.dex), 0)
		defendDex := max(int(a.dex), 1)
		hit := stunned || rng.IntN(attackDex+3) > rng.IntN(defendDex)
		if hit && other == MainActorID {
			if av := w.MainActor(); av != nil {
				if attackDex > defendDex {
					av.AccumulateDex(2 * (attackDex - defendDex))
				} else {
					av.AccumulateDex(2)
				}
			}
		}
		if !hit {
			damage = 0
		}
	}
	return damage
}

func (a *Actor) receiveHitU8(other ObjID, dir geom.Direction, damage int, typ uint16) {
	if a.IsDead() {
		return
	}
	w := a.world
	hitter := w.Item(other)
	attacker := w.Actor(other)
	if damage == 0 && attacker != nil {
		damage = attacker.DamageAmount()
	}
	if typ == 0 && hitter != nil {
		if attacker != nil {
			typ = attacker.DamageType()
		} else {
			typ = hitter.DamageType()
		}
	}
	if other == MainActorID && attacker != nil && attacker.lastAnim != AnimKick {
		if av := w.MainActor(); av != nil {
			av.AccumulateStr(damage / 4)
		}
	}

	damage = a.calculateAttackDamage(other, damage, typ)
	w.pout("actor hit", "actor", a.objID, "from", other, "damage", damage, "type", typ)

	if damage >= 4 && a.objID == MainActorID && hitter != nil {
		first, last := uint32(0), uint32(12)
		if dir > geom.DirEast {
			first, last = 13, 25
		}
		p := a.Point()
		p.Z += int32(w.rng.IntN(24))
		w.kern.AddProcess(NewSpriteProcess(w, ShapeBloodSplat, first, last, 1, 1, p, false))
	}

	if damage > 0 && a.actorFlags&(ActImmortal|ActInvincible) == 0 {
		if damage >= int(a.hp) {
			if a.actorFlags&ActWithstandDeath != 0 {
				a.hp = a.MaxHP()
				w.audio.PlaySFX(sfxWithstand, 0x60, a.objID, 0)
				a.actorFlags &^= ActWithstandDeath
			} else {
				a.Die(typ, damage, dir)
			}
			return
		}
		a.hp -= uint16(damage)
	}

	var fallPid kernel.ProcID
	if a.objID == MainActorID && damage > 0 {
		if typ&DamageFalling != 0 && damage >= 6 {
			a.DoAnim(AnimFallBackwards, geom.DirInvalid)
			a.actorFlags |= ActStunned
			return
		}
		fallPid = a.killAllButFallAnims(false)
	}

	if a.objID == MainActorID && a.lastAnim == AnimStartBlock {
		stop := a.DoAnim(AnimStopBlock, geom.DirInvalid)
		a.DoAnimAfter(AnimStartBlock, geom.DirInvalid, stop)
		sfx := w.randRange(sfxBlockMissA, sfxBlockMissB)
		if damage != 0 {
			sfx = w.randRange(sfxBlockHitA, sfxBlockHitB)
		}
		w.audio.PlaySFX(sfx, 0x60, a.objID, 0)
		return
	}

	if a.objID != MainActorID {
		target := MainActorID
		if attacker != nil {
			target = attacker.objID
		}
		a.SetInCombat(target)
	}

	if damage != 0 && fallPid == 0 && a.lastAnim != AnimDie && a.lastAnim != AnimFallBackwards {
		stumble := a.DoAnim(AnimStumbleBackwards, dir)
		after := AnimStand
		if a.IsInCombat() {
			after = AnimCombatStand
		}
		a.DoAnimAfter(after, dir, stumble)
	}
}

func (a *Actor) receiveHitCru(other ObjID, dir geom.Direction, damage int, typ uint16) {
	w := a.world
	regret := w.rules.Traits().Regret
	if a.IsDead() && (a.shape != shapeCruFrozen || !regret) {
		return
	}
	a.lastTickWasHit = int32(w.kern.FrameNum())

	if a.shape != ShapeMainActorCru && !w.isControlled(a.objID) {
		var target ObjID
		if c := w.ControlledActor(); c != nil {
			target = c.objID
		}
		a.SetInCombat(target)
	} else {
		damage = a.receiveShieldHit(damage, typ)
	}

	if a.actorFlags&(ActImmortal|ActInvincible) != 0 {
		damage = 0
	}
	damage = min(damage, int(a.hp))
	a.hp -= uint16(damage)

	if a.hp == 0 {
		a.Die(typ, damage, dir)
		return
	}
	if damage == 0 {
		return
	}
	if !a.IsRobot() {
		sfx := sfxScreamMale
		if a.extFlags&ExtFemale != 0 {
			sfx = sfxScreamFemale
		}
		if !w.audio.IsSFXPlaying(sfx, other) {
			w.audio.PlaySFX(sfx, 0x10, other, 1)
		}
	}
	if typ != 0xf && typ != 7 {
		return
	}
	switch {
	case a.shape == ShapeMainActorCru:
		a.DoAnim(AnimHitStun, geom.DirInvalid)
	case cruStunnable[a.shape] && w.rng.IntN(3) != 0:
		if anim := w.kern.FindProcess(uint16(a.objID), ProcTypeActorAnim); anim != nil {
			d := kernel.NewDelayProcess(int32(w.randRange(8, 17) * 60))
			w.kern.AddProcess(d)
			anim.ProcBase().WaitFor(d.Pid())
		}
	}
}

// receiveShieldHit lets the main actor's shield soak damage it is rated
// for while energy lasts. It returns the damage that gets through.
func (a *Actor) receiveShieldHit(damage int, typ uint16) int {
	w := a.world
	ma := w.MainActor()
	if ma == nil || &ma.Actor != a {
		return damage
	}
	shield := uint16(ma.shieldType)
	if shield == 3 {
		shield = 4
	}
	ft := w.FireType(typ)
	if shield == 0 || ft == nil || ft.ShieldCost == 0 || ft.ShieldMask&shield == 0 {
		return damage
	}
	if damage >= int(a.mana) {
		return damage
	}
	a.mana -= int16(damage)
	w.audio.PlaySFX(sfxShieldHit, 0x10, a.objID, 1)
	p := a.Point()
	c := a.Centre()
	w.kern.AddProcess(NewSpriteProcess(w, ShapeShieldZap, 0, 8, 1, 1, geom.Point3{X: p.X, Y: p.Y, Z: c.Z}, false))
	return 0
}

// Die kills the actor and starts its death animation. It returns the pid
// of the last animation queued.
func (a *Actor) Die(typ uint16, damage int, srcDir geom.Direction) kernel.ProcID {
	a.hp = 0
	a.actorFlags |= ActDead
	a.flags |= FlagBroken
	a.actorFlags &^= ActInCombat
	if a.world.rules.Game() == GameU8 {
		return a.dieU8()
	}
	return a.dieCru(typ, srcDir)
}

func (a *Actor) dieU8() kernel.ProcID {
	anim := a.killAllButFallAnims(true)
	if anim == 0 && a.lastAnim != AnimDie && a.lastAnim != AnimFallBackwards {
		anim = a.DoAnim(AnimDie, geom.DirInvalid)
	}
	if a.flags&FlagFastOnly != 0 {
		a.destroyContents()
	}
	return anim
}

func (a *Actor) dieCru(typ uint16, srcDir geom.Direction) kernel.ProcID {
	w := a.world
	regret := w.rules.Traits().Regret
	robot := a.IsRobot()
	startShape := a.shape

	w.cmap.RemoveTarget(a.objID)
	if w.isControlled(a.objID) {
		w.reticle.AvatarMoved()
		if a.objID != MainActorID {
			w.controlled = 0
		}
	}
	w.kern.KillProcesses(uint16(a.objID), kernel.TypeAll, true)

	corpse := func(shape uint32) {
		if !robot {
			a.SetShape(shape)
			a.SetToStartOfAnim(AnimFallBackwards)
		}
	}
	switch {
	case a.shape == shapeCruFrozen && regret:
		if !a.IsBusy() {
			a.SetShape(shapeCruFrozenShatter)
			a.SetToStartOfAnim(AnimFallBackwards)
		}
	case typ == 6:
		if !robot {
			a.SetShape(shapeCruPlasmaDeath)
			a.SetToStartOfAnim(AnimStand)
		}
	case typ == 14:
		corpse(shapeCruFireSkeleton)
	case typ == 15:
		corpse(shapeCruFadeDeath)
	case typ == 0x10 || typ == 0x12:
		corpse(shapeCruFrozen)
	case typ == 0x11:
		corpse(shapeCruAcidDeath)
	case typ == 0x14:
		corpse(shapeCruGibs)
	}

	if regret && a.shape == startShape {
		if to, ok := regretCorpses[a.shape]; ok {
			a.SetShape(to)
			a.SetToStartOfAnim(AnimFallBackwards)
		}
	}

	backwards, randomDir := true, false
	if a.shape != shapeCruRobot && a.shape != shapeCruPlasmaDeath && a.shape != shapeCruFireSkeleton {
		for i := range 9 {
			d := a.direction
			if i > 0 {
				step := (i + 1) / 2
				if i%2 == 0 {
					step = -step
				}
				d = d.TurnRight(2 * step)
			}
			if d == srcDir {
				if i == 8 {
					randomDir = true
				} else {
					backwards = false
				}
				break
			}
		}
	} else {
		randomDir = true
	}

	action := AnimFallBackwards
	if a.ShapeInfo().Action(AnimFallForwards) != nil {
		if randomDir {
			backwards = w.rng.IntN(2) == 0
		}
		if !backwards {
			action = AnimFallForwards
		}
	}
	last := a.DoAnim(action, geom.DirInvalid)

	if !robot {
		var sfx int
		switch {
		case typ == 0xf:
			sfx = sfxFadingScream[w.rng.IntN(len(sfxFadingScream))]
		case a.extFlags&ExtFemale != 0:
			sfx = sfxFemaleDeath[w.rng.IntN(len(sfxFemaleDeath))]
		default:
			sfx = sfxMaleDeath[w.rng.IntN(len(sfxMaleDeath))]
		}
		w.audio.PlaySFX(sfx, 0x10, a.objID, 0)
	}
	return last
}

func (a *Actor) saveData(w *encoding.Writer) {
	a.Container.saveData(w)
	a.saveActorData(w)
}

func (a *Actor) saveActorData(w *encoding.Writer) {
	tr := a.world.rules.Traits()
	w.WriteU16(uint16(a.str))
	w.WriteU16(uint16(a.dex))
	w.WriteU16(uint16(a.intel))
	w.WriteU16(a.hp)
	w.WriteU16(uint16(a.mana))
	w.WriteU16(a.alignment)
	w.WriteU16(a.enemyAlignment)
	w.WriteU16(uint16(a.lastAnim))
	w.WriteU16(a.animFrame)
	w.WriteU16(tr.ToUsecodeDir(a.direction))
	w.WriteU32(a.fallStart)
	w.WriteU32(a.actorFlags)
	w.WriteU8(a.unkByte)
	w.WriteU16(uint16(a.combatTarget))

	if a.world.rules.Game() != GameCrusader {
		return
	}
	for _, act := range a.defaultActivity {
		w.WriteU16(act)
	}
	w.WriteU16(a.combatTactic)
	w.WriteI32(a.home.X)
	w.WriteI32(a.home.Y)
	w.WriteI32(a.home.Z)
	w.WriteU16(a.currentActivity)
	w.WriteU16(a.lastActivity)
	w.WriteU16(uint16(a.activeWeapon))
	w.WriteI32(a.lastTickWasHit)
	w.WriteU8(0)
	w.WriteU32(a.attackMoveStart)
	w.WriteU32(a.attackMoveEnd)
	w.WriteU16(a.attackDodge)
	w.WriteBool(a.attackAim)
}

func (a *Actor) loadData(r *encoding.Reader, version uint32) error {
	if err := a.Container.loadData(r, version); err != nil {
		return err
	}
	return a.loadActorData(r)
}

func (a *Actor) loadActorData(r *encoding.Reader) error {
	tr := a.world.rules.Traits()
	a.str = int16(r.ReadU16())
	a.dex = int16(r.ReadU16())
	a.intel = int16(r.ReadU16())
	a.hp = r.ReadU16()
	a.mana = int16(r.ReadU16())
	a.alignment = r.ReadU16()
	a.enemyAlignment = r.ReadU16()
	a.lastAnim = uint32(r.ReadU16())
	a.animFrame = r.ReadU16()
	a.direction = tr.FromUsecodeDir(r.ReadU16())
	a.fallStart = r.ReadU32()
	a.actorFlags = r.ReadU32()
	a.unkByte = r.ReadU8()
	a.combatTarget = ObjID(r.ReadU16())

	if a.world.rules.Game() != GameCrusader {
		return r.Err()
	}
	for i := range a.defaultActivity {
		a.defaultActivity[i] = r.ReadU16()
	}
	a.combatTactic = r.ReadU16()
	a.home = geom.Point3{X: r.ReadI32(), Y: r.ReadI32(), Z: r.ReadI32()}
	a.currentActivity = r.ReadU16()
	a.lastActivity = r.ReadU16()
	a.activeWeapon = ObjID(r.ReadU16())
	a.lastTickWasHit = r.ReadI32()
	r.ReadU8()
	a.attackMoveStart = r.ReadU32()
	a.attackMoveEnd = r.ReadU32()
	a.attackDodge = r.ReadU16()
	a.attackAim = r.ReadBool()
	return r.Err()
}
