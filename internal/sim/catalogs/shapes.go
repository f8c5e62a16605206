package catalogs

// Shape property flags.
const (
	SIFixed         uint32 = 0x00001
	SISolid         uint32 = 0x00002
	SISea           uint32 = 0x00004
	SILand          uint32 = 0x00008
	SIOccl          uint32 = 0x00010
	SIBag           uint32 = 0x00020
	SIDamaging      uint32 = 0x00040
	SINoisy         uint32 = 0x00080
	SIDraw          uint32 = 0x00100
	SIIgnore        uint32 = 0x00200
	SIRoof          uint32 = 0x00400
	SITransl        uint32 = 0x00800
	SIEditor        uint32 = 0x01000
	SIExplode       uint32 = 0x02000
	SICruSound      uint32 = 0x04000
	SICruTargetable uint32 = 0x08000
	SICruNPC        uint32 = 0x10000
	SICruSelectable uint32 = 0x20000
)

var shapeFlagNames = map[string]uint32{
	"FIXED":      SIFixed,
	"SOLID":      SISolid,
	"SEA":        SISea,
	"LAND":       SILand,
	"OCCL":       SIOccl,
	"BAG":        SIBag,
	"DAMAGING":   SIDamaging,
	"NOISY":      SINoisy,
	"DRAW":       SIDraw,
	"IGNORE":     SIIgnore,
	"ROOF":       SIRoof,
	"TRANSL":     SITransl,
	"EDITOR":     SIEditor,
	"EXPLODE":    SIExplode,
	"CRU_SOUND":  SICruSound,
	"TARGETABLE": SICruTargetable,
	"CRU_NPC":    SICruNPC,
	"SELECTABLE": SICruSelectable,
}

// Shape families.
const (
	FamilyGeneric    uint8 = 0
	FamilyQuality    uint8 = 1
	FamilyQuantity   uint8 = 2
	FamilyGlobEgg    uint8 = 3
	FamilyUnkEgg     uint8 = 4
	FamilyBreakable  uint8 = 5
	FamilyContainer  uint8 = 6
	FamilyMonsterEgg uint8 = 7
	FamilyTeleEgg    uint8 = 8
	FamilyReagent    uint8 = 9
	FamilyCruWeapon  uint8 = 10
	FamilyCruAmmo    uint8 = 11
	FamilyCruBomb    uint8 = 12
	FamilyCruInvItem uint8 = 13
)

// Equipment slots.
const (
	EquipNone     uint8 = 0
	EquipWeapon   uint8 = 1
	EquipShield   uint8 = 2
	EquipHead     uint8 = 3
	EquipBody     uint8 = 4
	EquipLegs     uint8 = 5
	EquipArms     uint8 = 6
	EquipBackpack uint8 = 7
	EquipSlots          = 8
)

type ShapeInfo struct {
	Shape     uint32   `json:"shape"`
	Name      string   `json:"name,omitempty"`
	FlagNames []string `json:"flags,omitempty"`
	Family    uint8    `json:"family"`
	EquipType uint8    `json:"equip_type,omitempty"`

	// Footpad in footpad units (x32 world units for X/Y, x8 for Z).
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`

	AnimType  uint8 `json:"anim_type,omitempty"`
	AnimData  uint8 `json:"anim_data,omitempty"`
	AnimSpeed uint8 `json:"anim_speed,omitempty"`

	Weight uint16 `json:"weight"`
	Volume uint16 `json:"volume"`
	Frames uint32 `json:"frames,omitempty"`
	// Containers only: total content volume, 0 for unlimited.
	Capacity uint16 `json:"capacity,omitempty"`

	// Armour worn or a creature's hide: damage types blocked and AC.
	DefenseType uint16 `json:"defense_type,omitempty"`
	ArmourClass uint16 `json:"armour_class,omitempty"`

	Damage  *DamageInfo  `json:"damage,omitempty"`
	Weapon  *WeaponInfo  `json:"weapon,omitempty"`
	Actions []ActionInfo `json:"actions,omitempty"`

	Flags uint32 `json:"-"`
}

func (si *ShapeInfo) compile() error {
	f, err := parseFlags(si.FlagNames, shapeFlagNames)
	if err != nil {
		return err
	}
	si.Flags |= f
	return nil
}

func (si *ShapeInfo) Is(flag uint32) bool { return si.Flags&flag != 0 }
func (si *ShapeInfo) IsFixed() bool       { return si.Flags&SIFixed != 0 }
func (si *ShapeInfo) IsSolid() bool       { return si.Flags&SISolid != 0 }
func (si *ShapeInfo) IsLand() bool        { return si.Flags&SILand != 0 }
func (si *ShapeInfo) IsNoisy() bool       { return si.Flags&SINoisy != 0 }
func (si *ShapeInfo) IsTargetable() bool  { return si.Flags&SICruTargetable != 0 }
func (si *ShapeInfo) IsExplosive() bool   { return si.Flags&SIExplode != 0 }

// Action returns the animation metadata for action, or nil.
func (si *ShapeInfo) Action(action uint32) *ActionInfo {
	for i := range si.Actions {
		if si.Actions[i].Action == action {
			return &si.Actions[i]
		}
	}
	return nil
}

// DamageInfo describes how a breakable Crusader item reacts to damage.
type DamageInfo struct {
	// Explosion type to trigger on break, or -1.
	Explode      int    `json:"explode"`
	Sound        uint16 `json:"sound,omitempty"`
	ReplaceShape uint32 `json:"replace_shape,omitempty"`
	ReplaceFrame uint32 `json:"replace_frame,omitempty"`
	FrameOffset  int32  `json:"frame_offset,omitempty"`
	Destroy      bool   `json:"destroy,omitempty"`
	TakesDamage  bool   `json:"takes_damage"`
	// Damage points a fresh item starts with.
	Points uint8 `json:"points,omitempty"`
}

type WeaponInfo struct {
	DamageType uint16 `json:"damage_type"`
	FireType   uint16 `json:"fire_type,omitempty"`
	Small      bool   `json:"small,omitempty"`
	AmmoShape  uint32 `json:"ammo_shape,omitempty"`
	ClipSize   uint16 `json:"clip_size,omitempty"`
	BaseDamage uint16 `json:"base_damage,omitempty"`
}

// ActionInfo is the animation metadata the simulation reads: attack frames
// and their muzzle offsets.
type ActionInfo struct {
	Action  uint32      `json:"action"`
	DirMode uint8       `json:"dir_mode,omitempty"`
	Frames  []AnimFrame `json:"frames"`
}

type AnimFrame struct {
	Attack  bool  `json:"attack,omitempty"`
	AttackX int32 `json:"attack_x,omitempty"`
	AttackY int32 `json:"attack_y,omitempty"`
	AttackZ int32 `json:"attack_z,omitempty"`
}
