package world

import (
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
)

const classMainActor = "MainActor"

// Stat training: each stat caps at statMax, and a point is gained once the
// accumulated practice reaches statTrainSpan or a shrinking random roll
// hits.
const (
	statMax       = 25
	statTrainSpan = 650
	sfxStatGain   = 0x36
)

// Crusader pickups stack up to this many per shape.
const cruStackMax = 20

// ShapeKeycard items are not carried; picking one up sets the keycard bit
// for its quality.
const ShapeKeycard uint32 = 0x45

// MainActor is the player's avatar.
type MainActor struct {
	Actor

	justTeleported bool
	accumStr       int32
	accumDex       int32
	accumInt       int32
	name           string

	// Crusader only.
	maxEnergy     int16
	shieldType    uint8
	keycards      uint32
	activeInvItem ObjID
}

func newMainActor(w *World) *MainActor {
	ma := &MainActor{}
	ma.world = w
	ma.self = ma
	ma.maxEnergy = int16(w.tun.MainActor.MaxEnergy)
	ma.shieldType = uint8(w.tun.MainActor.ShieldType)
	return ma
}

func (ma *MainActor) ClassName() string { return classMainActor }

func (ma *MainActor) Name() string     { return ma.name }
func (ma *MainActor) SetName(n string) { ma.name = n }

func (ma *MainActor) ShieldType() uint8     { return ma.shieldType }
func (ma *MainActor) SetShieldType(t uint8) { ma.shieldType = t }
func (ma *MainActor) Energy() int16         { return ma.mana }
func (ma *MainActor) MaxEnergy() int16      { return ma.maxEnergy }
func (ma *MainActor) Keycards() uint32      { return ma.keycards }
func (ma *MainActor) ActiveInvItem() ObjID  { return ma.activeInvItem }

// SetEnergy clamps to the shield battery size.
func (ma *MainActor) SetEnergy(e int16) { ma.mana = min(max(e, 0), ma.maxEnergy) }

func (ma *MainActor) HasKeycard(n uint16) bool { return n < 32 && ma.keycards&(1<<n) != 0 }

func (ma *MainActor) accumulate(stat *int16, accum *int32, n int) {
	if *stat >= statMax {
		return
	}
	*accum += int32(n)
	if *accum >= statTrainSpan || ma.world.randRange(0, int(statTrainSpan-*accum)) == 0 {
		*stat++
		*accum = 0
		ma.world.audio.PlaySFX(sfxStatGain, 0x60, MainActorID, 0)
		ma.world.pout("stat gained", "str", ma.str, "dex", ma.dex, "int", ma.intel)
	}
}

func (ma *MainActor) AccumulateStr(n int) { ma.accumulate(&ma.str, &ma.accumStr, n) }
func (ma *MainActor) AccumulateDex(n int) { ma.accumulate(&ma.dex, &ma.accumDex, n) }
func (ma *MainActor) AccumulateInt(n int) { ma.accumulate(&ma.intel, &ma.accumInt, n) }

// Teleport moves the avatar and marks the jump so the next tick does not
// treat it as a walk.
func (ma *MainActor) Teleport(p geom.Point3) {
	ma.justTeleported = true
	ma.Move(p)
}

func (ma *MainActor) JustTeleported() bool { return ma.justTeleported }
func (ma *MainActor) ClearTeleported()     { ma.justTeleported = false }

// firstWithShape is the first carried item of shape outside nested
// containers.
func (ma *MainActor) firstWithShape(shape uint32) *Item {
	for _, id := range ma.contents {
		if it := ma.world.Item(id); it != nil && it.shape == shape {
			return it
		}
	}
	return nil
}

// AddItemCru picks up a Crusader item: keycards set a bit, weapons join
// the inventory (a duplicate weapon becomes a clip of its ammo) and ammo,
// bombs and inventory items merge into one stack per shape. It reports
// whether the avatar took the item.
func (ma *MainActor) AddItemCru(it *Item) bool {
	w := ma.world
	if it == nil || it.shape == 0 {
		return false
	}
	if it.shape == ShapeKeycard {
		if it.quality >= 32 {
			return false
		}
		ma.keycards |= 1 << it.quality
		it.self.Destroy(false)
		w.pout("picked up keycard", "card", it.quality)
		return true
	}

	si := it.ShapeInfo()
	switch si.Family {
	case catalogs.FamilyCruWeapon:
		existing := ma.firstWithShape(it.shape)
		if existing == nil {
			if !it.MoveToContainer(&ma.Container, false) {
				return false
			}
			if ma.activeWeapon == 0 {
				ma.activeWeapon = it.objID
			}
			w.pout("picked up weapon", "item", it.objID, "shape", it.shape)
			return true
		}
		if si.Weapon == nil || si.Weapon.AmmoShape == 0 {
			return false
		}
		if !ma.mergeStack(si.Weapon.AmmoShape, 1) {
			return false
		}
		it.self.Destroy(false)
		return true

	case catalogs.FamilyCruAmmo, catalogs.FamilyCruBomb, catalogs.FamilyCruInvItem:
		n := max(it.quality, 1)
		if ma.firstWithShape(it.shape) == nil {
			it.quality = min(n, cruStackMax)
			if !it.MoveToContainer(&ma.Container, false) {
				return false
			}
			if si.Family == catalogs.FamilyCruInvItem && ma.activeInvItem == 0 {
				ma.activeInvItem = it.objID
			}
			w.pout("picked up", "item", it.objID, "shape", it.shape, "count", it.quality)
			return true
		}
		if !ma.mergeStack(it.shape, n) {
			return false
		}
		it.self.Destroy(false)
		return true
	}
	return it.MoveToContainer(&ma.Container, true)
}

// mergeStack adds n to the carried stack of shape, creating it if needed.
// It fails when the stack is already full.
func (ma *MainActor) mergeStack(shape uint32, n uint16) bool {
	w := ma.world
	stack := ma.firstWithShape(shape)
	if stack == nil {
		stack = w.CreateItem(shape, 0, 0, 0, 0, ma.mapNum, 0, true)
		if stack == nil {
			return false
		}
		if !stack.MoveToContainer(&ma.Container, false) {
			stack.self.Destroy(true)
			return false
		}
	}
	if stack.quality >= cruStackMax {
		return false
	}
	stack.quality = min(stack.quality+n, cruStackMax)
	w.pout("stack merged", "shape", shape, "count", stack.quality)
	return true
}

// nextOfFamily cycles through carried items of family after cur.
func (ma *MainActor) nextOfFamily(family uint8, cur ObjID) ObjID {
	var items []ObjID
	for _, id := range ma.contents {
		if it := ma.world.Item(id); it != nil && it.Family() == family {
			items = append(items, id)
		}
	}
	if len(items) == 0 {
		return 0
	}
	for i, id := range items {
		if id == cur {
			return items[(i+1)%len(items)]
		}
	}
	return items[0]
}

// NextWeapon makes the next carried weapon active and returns it.
func (ma *MainActor) NextWeapon() ObjID {
	ma.activeWeapon = ma.nextOfFamily(catalogs.FamilyCruWeapon, ma.activeWeapon)
	return ma.activeWeapon
}

// NextInvItem selects the next carried inventory item.
func (ma *MainActor) NextInvItem() ObjID {
	ma.activeInvItem = ma.nextOfFamily(catalogs.FamilyCruInvItem, ma.activeInvItem)
	return ma.activeInvItem
}

func (ma *MainActor) saveData(w *encoding.Writer) {
	ma.Actor.saveData(w)
	w.WriteBool(ma.justTeleported)
	w.WriteI32(ma.accumStr)
	w.WriteI32(ma.accumDex)
	w.WriteI32(ma.accumInt)
	if ma.world.rules.Game() == GameCrusader {
		w.WriteU16(uint16(ma.maxEnergy))
		w.WriteU8(ma.shieldType)
		w.WriteU32(ma.keycards)
		w.WriteU16(uint16(ma.activeInvItem))
	}
	w.WriteString(ma.name)
}

func (ma *MainActor) loadData(r *encoding.Reader, version uint32) error {
	if err := ma.Actor.loadData(r, version); err != nil {
		return err
	}
	ma.justTeleported = r.ReadBool()
	ma.accumStr = r.ReadI32()
	ma.accumDex = r.ReadI32()
	ma.accumInt = r.ReadI32()
	if ma.world.rules.Game() == GameCrusader {
		ma.maxEnergy = int16(r.ReadU16())
		ma.shieldType = r.ReadU8()
		ma.keycards = r.ReadU32()
		ma.activeInvItem = ObjID(r.ReadU16())
	}
	ma.name = r.ReadString()
	return r.Err()
}
