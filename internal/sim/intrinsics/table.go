package intrinsics

import (
	"errors"
	"fmt"
	"sort"
)

// Func is one intrinsic. It reads its arguments from the call and returns
// the usecode result.
type Func func(c *Call) uint32

var (
	ErrUnknownIntrinsic = errors.New("unknown intrinsic")
	ErrNoOrdinals       = errors.New("ruleset has no intrinsic ordinals")
)

var funcs = map[string]Func{
	"touch":                      touch,
	"getX":                       getX,
	"getY":                       getY,
	"getZ":                       getZ,
	"getCX":                      getCX,
	"getCY":                      getCY,
	"getCZ":                      getCZ,
	"getPoint":                   getPoint,
	"getShape":                   getShape,
	"setShape":                   setShape,
	"getFrame":                   getFrame,
	"setFrame":                   setFrame,
	"getQuality":                 getQuality,
	"getUnkEggType":              getUnkEggType,
	"setUnkEggType":              setUnkEggType,
	"getQuantity":                getQuantity,
	"setQuantity":                setQuantity,
	"setQuality":                 setQuality,
	"getQ":                       getQ,
	"setQ":                       setQ,
	"getQLo":                     getQLo,
	"getQHi":                     getQHi,
	"setQLo":                     setQLo,
	"setQHi":                     setQHi,
	"setQAndCombine":             setQAndCombine,
	"getFamily":                  getFamily,
	"getFamilyOfType":            getFamilyOfType,
	"getTypeFlag":                getTypeFlag,
	"isCrusTypeNPC":              isCrusTypeNPC,
	"getStatus":                  getStatus,
	"orStatus":                   orStatus,
	"andStatus":                  andStatus,
	"getMapArray":                getMapArray,
	"setMapArray":                setMapArray,
	"getNpcNum":                  getNpcNum,
	"setNpcNum":                  setNpcNum,
	"getContainer":               getContainer,
	"getRootContainer":           getRootContainer,
	"isInNpc":                    isInNpc,
	"getWeight":                  getWeight,
	"getWeightIncludingContents": getWeightIncludingContents,
	"getVolume":                  getVolume,
	"isPermanentNpc":             isPermanentNpc,
	"isOnScreen":                 isPartlyOnScreen,
	"getSurfaceWeight":           getSurfaceWeight,
	"getFootpadData":             getFootpadData,
	"isOn":                       isOn,
	"isCompletelyOn":             isCompletelyOn,
	"isCentreOn":                 isCentreOn,
	"overlaps":                   overlaps,
	"overlapsXY":                 overlapsXY,
	"isPartlyOnScreen":           isPartlyOnScreen,
	"inFastArea":                 inFastArea,
	"enterFastArea":              enterFastArea,
	"destroy":                    destroyItem,
	"setBroken":                  setBroken,
	"use":                        use,
	"equip":                      equip,
	"unequip":                    unequip,
	"cast":                       cast,
	"gotHit":                     gotHit,
	"avatarStoleSomething":       avatarStoleSomething,
	"create":                     create,
	"legalCreateAtPoint":         legalCreateAtPoint,
	"legalCreateAtCoords":        legalCreateAtCoords,
	"legalCreateInCont":          legalCreateInCont,
	"push":                       push,
	"getEtherealTop":             getEtherealTop,
	"pop":                        pop,
	"popToCoords":                popToCoords,
	"popToContainer":             popToContainer,
	"popToEnd":                   popToContainer,
	"move":                       move,
	"legalMoveToPoint":           legalMoveToPoint,
	"legalMoveToContainer":       legalMoveToContainer,
	"ascend":                     ascend,
	"getDirToCoords":             getDirToCoords,
	"getDirFromCoords":           getDirFromCoords,
	"getDirToItem":               getDirToItem,
	"getDirFromItem":             getDirFromItem,
	"getDirFromTo16":             getDirFromTo16,
	"getClosestDirectionInRange": getClosestDirectionInRange,
	"hurl":                       hurl,
	"shoot":                      shoot,
	"fall":                       fall,
	"grab":                       grab,
	"receiveHit":                 receiveHit,
	"explode":                    explode,
	"canReach":                   canReach,
	"getRange":                   getRange,
	"getRangeIfVisible":          getRangeIfVisible,
	"fireWeapon":                 fireWeapon,
	"fireDistance":               fireDistance,
}

// Names lists every item intrinsic, sorted.
func Names() []string {
	out := make([]string, 0, len(funcs))
	for n := range funcs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Lookup finds an intrinsic by name.
func Lookup(name string) (Func, bool) {
	f, ok := funcs[name]
	return f, ok
}

// Table maps one game's usecode ordinals to item intrinsics. Ordinals for
// other subsystems are left empty.
type Table struct {
	ruleset string
	size    int
	byOrd   map[uint16]string
}

type ordinalSet struct {
	size  int
	names map[uint16]string
}

var ordinals = map[string]ordinalSet{
	"crusader": {size: 312, names: map[uint16]string{
		0x001: "getFrame", 0x002: "setFrame", 0x003: "getMapArray", 0x004: "getStatus",
		0x005: "orStatus", 0x006: "equip", 0x007: "isPartlyOnScreen", 0x009: "getZ",
		0x00a: "destroy", 0x00d: "getDirToItem", 0x010: "getQLo", 0x013: "getX",
		0x014: "getY", 0x016: "getShape", 0x017: "explode", 0x019: "legalCreateAtCoords",
		0x01a: "andStatus", 0x01e: "fireWeapon", 0x01f: "create", 0x020: "popToCoords",
		0x022: "push", 0x023: "getEtherealTop", 0x024: "setShape", 0x025: "touch",
		0x026: "getQHi", 0x027: "getClosestDirectionInRange", 0x028: "hurl",
		0x02c: "inFastArea", 0x02d: "setQHi", 0x02e: "legalMoveToPoint", 0x030: "pop",
		0x032: "receiveHit", 0x034: "getDirFromTo16", 0x03b: "setQLo", 0x03c: "getFamily",
		0x03e: "fall", 0x042: "getRangeIfVisible", 0x044: "isOn", 0x057: "getSurfaceWeight",
		0x058: "isCentreOn", 0x05b: "legalCreateAtPoint", 0x05c: "getPoint",
		0x064: "getFootpadData", 0x065: "isInNpc", 0x067: "getNpcNum", 0x068: "setNpcNum",
		0x06a: "move", 0x06f: "isCompletelyOn", 0x07e: "getQuality", 0x07f: "setQuality",
		0x080: "use", 0x088: "setMapArray", 0x08a: "shoot", 0x08b: "enterFastArea",
		0x08c: "setBroken", 0x0a2: "getUnkEggType", 0x0a4: "overlaps", 0x0ac: "getFamilyOfType",
		0x0b0: "unequip", 0x0b1: "avatarStoleSomething", 0x0c7: "getDirFromItem",
		0x0cf: "setQAndCombine", 0x0e8: "cast", 0x0ec: "popToEnd", 0x0ed: "popToContainer",
		0x0f4: "getQ", 0x0f5: "setQ", 0x103: "isCrusTypeNPC", 0x116: "fireDistance",
		0x11b: "getTypeFlag", 0x11e: "getCY", 0x11f: "getCZ", 0x120: "getCX",
		0x127: "getDirToCoords",
	}},
	"regret": {size: 350, names: map[uint16]string{
		0x001: "getFrame", 0x002: "setFrame", 0x003: "getMapArray", 0x004: "getStatus",
		0x005: "orStatus", 0x006: "equip", 0x007: "isPartlyOnScreen", 0x009: "getZ",
		0x00b: "getQLo", 0x00c: "destroy", 0x00e: "getX", 0x00f: "getY",
		0x011: "getShape", 0x012: "explode", 0x014: "legalCreateAtCoords", 0x015: "andStatus",
		0x019: "fireWeapon", 0x01a: "create", 0x01b: "popToCoords", 0x01d: "push",
		0x01e: "getEtherealTop", 0x020: "setQLo", 0x021: "getQHi", 0x022: "setQHi",
		0x023: "getClosestDirectionInRange", 0x024: "hurl", 0x025: "getCY", 0x026: "getCX",
		0x028: "setNpcNum", 0x02a: "setShape", 0x02b: "pop", 0x02d: "isCompletelyOn",
		0x02e: "popToContainer", 0x031: "getFamily", 0x034: "getDirToItem",
		0x036: "getRangeIfVisible", 0x03a: "touch", 0x03e: "cast", 0x041: "isOn",
		0x055: "receiveHit", 0x058: "use", 0x059: "setUnkEggType", 0x05b: "getSurfaceWeight",
		0x05c: "isCentreOn", 0x063: "legalCreateAtPoint", 0x064: "getPoint",
		0x065: "legalMoveToPoint", 0x066: "fall", 0x06f: "isInNpc", 0x078: "unequip",
		0x07a: "move", 0x08a: "getQuality", 0x08b: "setQuality", 0x091: "setMapArray",
		0x093: "shoot", 0x095: "enterFastArea", 0x096: "setBroken", 0x0a4: "overlaps",
		0x0ad: "inFastArea", 0x0b4: "getDirToCoords", 0x0ba: "getFootpadData",
		0x0cd: "getDirFromTo16", 0x11c: "isCrusTypeNPC", 0x11f: "avatarStoleSomething",
		0x122: "getQ", 0x123: "setQ", 0x131: "fireDistance", 0x139: "getTypeFlag",
		0x13d: "getCZ", 0x147: "getFamilyOfType",
	}},
}

// NewTable builds the ordinal table for a ruleset. Ultima 8 intrinsics are
// reachable by name only.
func NewTable(ruleset string) (*Table, error) {
	set, ok := ordinals[ruleset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoOrdinals, ruleset)
	}
	for ord, name := range set.names {
		if _, ok := funcs[name]; !ok || int(ord) >= set.size {
			return nil, fmt.Errorf("%s ordinal %#x: bad entry %q", ruleset, ord, name)
		}
	}
	return &Table{ruleset: ruleset, size: set.size, byOrd: set.names}, nil
}

func (t *Table) Ruleset() string { return t.ruleset }

// Size is the length of the game's full intrinsic table.
func (t *Table) Size() int { return t.size }

// Name returns the item intrinsic at ord, or "" when ord belongs to another
// subsystem.
func (t *Table) Name(ord uint16) string { return t.byOrd[ord] }

// Ordinal finds the ordinal of a named intrinsic.
func (t *Table) Ordinal(name string) (uint16, bool) {
	for ord, n := range t.byOrd {
		if n == name {
			return ord, true
		}
	}
	return 0, false
}

// Call runs the intrinsic at ord.
func (t *Table) Call(ord uint16, c *Call) (uint32, error) {
	name, ok := t.byOrd[ord]
	if !ok {
		return 0, fmt.Errorf("%w: %s ordinal %#x", ErrUnknownIntrinsic, t.ruleset, ord)
	}
	return funcs[name](c), nil
}

// CallByName runs a named intrinsic in any ruleset.
func CallByName(name string, c *Call) (uint32, error) {
	f, ok := funcs[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownIntrinsic, name)
	}
	return f(c), nil
}
