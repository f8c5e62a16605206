package world

// Item status flags. Persisted.
const (
	FlagDisposable  uint16 = 0x0001
	FlagOwned       uint16 = 0x0002
	FlagContained   uint16 = 0x0004
	FlagInvisible   uint16 = 0x0008
	FlagFlipped     uint16 = 0x0010
	FlagInNpcList   uint16 = 0x0020
	FlagFastOnly    uint16 = 0x0040
	FlagGumpOpen    uint16 = 0x0080
	FlagEquipped    uint16 = 0x0100
	FlagBouncing    uint16 = 0x0200
	FlagEthereal    uint16 = 0x0400
	FlagHanging     uint16 = 0x0800
	FlagFastArea    uint16 = 0x1000
	FlagLowFriction uint16 = 0x2000
	FlagBroken      uint16 = 0x8000

	flagsOwnership = FlagContained | FlagEquipped | FlagEthereal
)

// Extended flags. Only the non-transient ones are persisted.
const (
	ExtFixed        uint32 = 0x0001
	ExtInCurMap     uint32 = 0x0002
	ExtLerpNoPrev   uint32 = 0x0008
	ExtHighlight    uint32 = 0x0010
	ExtCamera       uint32 = 0x0020
	ExtSprite       uint32 = 0x0040
	ExtTransparent  uint32 = 0x0080
	ExtPermanentNPC uint32 = 0x0100
	ExtTarget       uint32 = 0x0200
	ExtFemale       uint32 = 0x8000

	ExtTransient = ExtLerpNoPrev | ExtHighlight | ExtCamera | ExtSprite | ExtTarget
)

// Usecode event numbers.
const (
	EventLook                 uint32 = 0x00
	EventUse                  uint32 = 0x01
	EventAnim                 uint32 = 0x02
	EventCachein              uint32 = 0x04
	EventHit                  uint32 = 0x05
	EventGotHit               uint32 = 0x06
	EventHatch                uint32 = 0x07
	EventSchedule             uint32 = 0x08
	EventRelease              uint32 = 0x09
	EventEquip                uint32 = 0x0A
	EventUnequip              uint32 = 0x0B
	EventCombine              uint32 = 0x0C
	EventCalledFromAnim       uint32 = 0x0E
	EventEnterFastArea        uint32 = 0x0F
	EventLeaveFastArea        uint32 = 0x10
	EventCast                 uint32 = 0x11
	EventJustMoved            uint32 = 0x12
	EventAvatarStoleSomething uint32 = 0x13
	EventGuardianBark         uint32 = 0x15
)

// Well-known object ids.
const (
	MainActorID ObjID = 1
	// Ids below this are reserved for NPCs.
	firstItemID ObjID = 256
)

// Process type tags used with kernel.KillProcesses / FindProcess.
const (
	ProcTypeGravity     uint16 = 0x0203
	ProcTypeSprite      uint16 = 0x0209
	ProcTypeSuperSprite uint16 = 0x0250
	ProcTypeActorAnim   uint16 = 0x00F0
	ProcTypeCamera      uint16 = 0x0001
	ProcTypeReticle     uint16 = 0x0260
	ProcTypeCrosshair   uint16 = 0x0261
	ProcTypeScript      uint16 = 0x0300
)

// Game content shape numbers the engine refers to directly.
const (
	ShapeBackpack       uint32 = 0x021
	ShapeBulletSplash   uint32 = 0x1d9
	ShapeSparkleTrail   uint32 = 0x426
	ShapeSnapEgg        uint32 = 0x4fe
	ShapeU8Explosion    uint32 = 578
	ShapeBloodSplat     uint32 = 620
	ShapeShieldZap      uint32 = 0x5a6
	ShapeMainActorCru   uint32 = 1
	ShapeBulletSplashFr uint32 = 0x120
)

// Crusader explosion sprite shapes; explosion types pick from sub-ranges.
var explosionShapes = [8]uint32{0x31C, 0x31F, 0x326, 0x320, 0x321, 0x324, 0x323, 0x325}

// Shapes that take reduced damage from ballistic and energy hits.
var robotShapes = map[uint32]bool{
	0x4c8: true, 0x338: true, 0x45d: true, 0x2cb: true,
	0x4e6: true, 899: true, 0x385: true,
}

// Crusader hurl vectors indexed by 16-way direction.
var (
	hurlXFactor = [16]int32{0, +1, +2, +2, +2, +2, +2, +1, 0, -1, -2, -2, -2, -2, -2, -1}
	hurlYFactor = [16]int32{-2, -2, -2, -1, 0, +1, +2, +2, +2, +2, +2, +1, 0, -1, -2, -2}
)

// Animation actions. Attack metadata is read from the shape's action table.
const (
	AnimWalk             uint32 = 0x00
	AnimStand            uint32 = 0x01
	AnimCombatStand      uint32 = 0x02
	AnimStartBlock       uint32 = 0x03
	AnimStopBlock        uint32 = 0x04
	AnimKick             uint32 = 0x05
	AnimStumbleBackwards uint32 = 0x09
	AnimFireSmallWeapon  uint32 = 0x0b
	AnimFireLargeWeapon  uint32 = 0x0c
	AnimKneelFireSmall   uint32 = 0x0d
	AnimKneelFireLarge   uint32 = 0x0e
	AnimKneel            uint32 = 0x0f
	AnimDie              uint32 = 0x14
	AnimFallBackwards    uint32 = 0x1b
	AnimFallForwards     uint32 = 0x1c
	AnimHitStun          uint32 = 0x37

	defaultAnimTicksPerFrame int32 = 2
)

// U8 weapon damage type bits.
const (
	DamageNormal  uint16 = 0x0001
	DamageBlade   uint16 = 0x0002
	DamageBlunt   uint16 = 0x0004
	DamageFire    uint16 = 0x0008
	DamageUndead  uint16 = 0x0010
	DamageMagic   uint16 = 0x0020
	DamageSlayer  uint16 = 0x0040
	DamagePierce  uint16 = 0x0080
	DamageFalling uint16 = 0x0100
)

// Sound effects.
const (
	sfxU8ExplodeA   = 31
	sfxU8ExplodeB   = 158
	sfxCruExplodeA  = 28
	sfxCruExplodeB  = 108
	sfxScreamMale   = 0x8f
	sfxScreamFemale = 0xd8
	sfxWithstand    = 59
	sfxShieldHit    = 0x48
	sfxBlockHitA    = 50
	sfxBlockHitB    = 51
	sfxBlockMissA   = 20
	sfxBlockMissB   = 22
)

// Crusader death cries.
var (
	sfxFadingScream = []int{0xd9, 0xda}
	sfxMaleDeath    = []int{0x88, 0x8c, 0x8f}
	sfxFemaleDeath  = []int{0xd8, 0x10}
)

// Collision sweep time scale: 0 is the start, sweepEnd the destination.
const sweepEnd int32 = 0x4000

// SweepEnd is the sweep time of an unobstructed move.
const SweepEnd = sweepEnd
