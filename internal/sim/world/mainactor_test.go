package world

import (
	"testing"

	"u8sim/internal/sim/geom"
)

// Crusader pickups from configs/shapes.json.
const (
	shapePlasmaRifle uint32 = 66
	shapePistolClip  uint32 = 65
	shapePlasmaCell  uint32 = 67
	shapeMedikit     uint32 = 68
)

func cruItem(t *testing.T, w *World, shape uint32, quality uint16) *Item {
	t.Helper()
	it := w.CreateItem(shape, 0, quality, 0, 0, 0, 0, true)
	if it == nil {
		t.Fatalf("CreateItem(%d) returned nil", shape)
	}
	it.Move(pt(200, 200, 0))
	return it
}

func carried(ma *MainActor, shape uint32) []*Item {
	var out []*Item
	for _, id := range ma.Contents() {
		if it := ma.world.Item(id); it != nil && it.Shape() == shape {
			out = append(out, it)
		}
	}
	return out
}

func TestAddItemCru_Keycards(t *testing.T) {
	tests := []struct {
		name    string
		quality uint16
		want    bool
		bits    uint32
	}{
		{name: "card 0", quality: 0, want: true, bits: 1},
		{name: "card 3", quality: 3, want: true, bits: 1 << 3},
		{name: "card 31", quality: 31, want: true, bits: 1 << 31},
		{name: "out of range", quality: 32, want: false, bits: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			ma := spawnAvatar(t, w, pt(100, 100, 0))
			card := cruItem(t, w, ShapeKeycard, tt.quality)

			if got := ma.AddItemCru(card); got != tt.want {
				t.Fatalf("AddItemCru=%v want %v", got, tt.want)
			}
			if ma.Keycards() != tt.bits {
				t.Fatalf("keycards=%#x want %#x", ma.Keycards(), tt.bits)
			}
			if tt.want && !ma.HasKeycard(tt.quality) {
				t.Fatalf("HasKeycard(%d)=false", tt.quality)
			}
			if n := len(carried(ma, ShapeKeycard)); n != 0 {
				t.Fatalf("keycard went into the inventory (%d carried)", n)
			}
		})
	}
}

func TestAddItemCru_DuplicateWeaponBecomesAmmo(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ma := spawnAvatar(t, w, pt(100, 100, 0))

	first := cruItem(t, w, shapePistol, 0)
	if !ma.AddItemCru(first) {
		t.Fatalf("first pistol refused")
	}
	if ma.ActiveWeapon() != first.ObjID() || first.Parent() != MainActorID {
		t.Fatalf("active=%d parent=%d want pistol %d carried", ma.ActiveWeapon(), first.Parent(), first.ObjID())
	}

	for i, want := range []uint16{1, 2} {
		dup := cruItem(t, w, shapePistol, 0)
		if !ma.AddItemCru(dup) {
			t.Fatalf("duplicate pistol %d refused", i)
		}
		if n := len(carried(ma, shapePistol)); n != 1 {
			t.Fatalf("after duplicate %d: carrying %d pistols", i, n)
		}
		clips := carried(ma, shapePistolClip)
		if len(clips) != 1 || clips[0].Quality() != want {
			t.Fatalf("after duplicate %d: clips %d", i, len(clips))
		}
	}

	rifle := cruItem(t, w, shapePlasmaRifle, 0)
	if !ma.AddItemCru(rifle) {
		t.Fatalf("rifle refused")
	}
	if ma.ActiveWeapon() != first.ObjID() {
		t.Fatalf("second weapon kind took over as active: %d", ma.ActiveWeapon())
	}
}

func TestAddItemCru_StacksCapAtMax(t *testing.T) {
	tests := []struct {
		name      string
		qualities []uint16
		accepted  []bool
		want      uint16
	}{
		{name: "single", qualities: []uint16{5}, accepted: []bool{true}, want: 5},
		{name: "zero counts as one", qualities: []uint16{0}, accepted: []bool{true}, want: 1},
		{name: "oversized pickup", qualities: []uint16{30}, accepted: []bool{true}, want: cruStackMax},
		{name: "merge", qualities: []uint16{5, 7}, accepted: []bool{true, true}, want: 12},
		{name: "merge clamps", qualities: []uint16{15, 10}, accepted: []bool{true, true}, want: cruStackMax},
		{name: "full stack refuses", qualities: []uint16{20, 1}, accepted: []bool{true, false}, want: cruStackMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			ma := spawnAvatar(t, w, pt(100, 100, 0))
			for i, q := range tt.qualities {
				cell := cruItem(t, w, shapePlasmaCell, q)
				if got := ma.AddItemCru(cell); got != tt.accepted[i] {
					t.Fatalf("pickup %d (quality %d)=%v want %v", i, q, got, tt.accepted[i])
				}
				if !tt.accepted[i] && cell.Parent() != 0 {
					t.Fatalf("refused pickup %d was moved into %d", i, cell.Parent())
				}
			}
			stacks := carried(ma, shapePlasmaCell)
			if len(stacks) != 1 {
				t.Fatalf("carrying %d stacks", len(stacks))
			}
			if stacks[0].Quality() != tt.want {
				t.Fatalf("stack=%d want %d", stacks[0].Quality(), tt.want)
			}
		})
	}
}

func TestMergeStack(t *testing.T) {
	tests := []struct {
		name     string
		existing uint16
		n        uint16
		ok       bool
		want     uint16
	}{
		{name: "creates stack", existing: 0, n: 3, ok: true, want: 3},
		{name: "adds", existing: 4, n: 3, ok: true, want: 7},
		{name: "clamps", existing: 19, n: 5, ok: true, want: cruStackMax},
		{name: "full", existing: cruStackMax, n: 1, ok: false, want: cruStackMax},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			ma := spawnAvatar(t, w, pt(100, 100, 0))
			if tt.existing != 0 {
				if !cruItem(t, w, shapePistolClip, tt.existing).MoveToContainer(&ma.Container, false) {
					t.Fatalf("could not seed the stack")
				}
			}
			if got := ma.mergeStack(shapePistolClip, tt.n); got != tt.ok {
				t.Fatalf("mergeStack=%v want %v", got, tt.ok)
			}
			stacks := carried(ma, shapePistolClip)
			if len(stacks) != 1 || stacks[0].Quality() != tt.want {
				t.Fatalf("stacks=%d want one of %d", len(stacks), tt.want)
			}
		})
	}
}

func TestNextWeaponAndInvItemCycle(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ma := spawnAvatar(t, w, pt(100, 100, 0))
	if ma.NextWeapon() != 0 || ma.NextInvItem() != 0 {
		t.Fatalf("empty inventory cycled to %d/%d", ma.ActiveWeapon(), ma.ActiveInvItem())
	}

	pistol := cruItem(t, w, shapePistol, 0)
	rifle := cruItem(t, w, shapePlasmaRifle, 0)
	medikit := cruItem(t, w, shapeMedikit, 1)
	for _, it := range []*Item{pistol, rifle, medikit} {
		if !ma.AddItemCru(it) {
			t.Fatalf("pickup of shape %d refused", it.Shape())
		}
	}
	// A second inventory item kind, placed directly as keycards never stay carried.
	pass := cruItem(t, w, ShapeKeycard, 0)
	if !pass.MoveToContainer(&ma.Container, false) {
		t.Fatalf("could not carry the pass")
	}

	for i, want := range []ObjID{rifle.ObjID(), pistol.ObjID(), rifle.ObjID()} {
		if got := ma.NextWeapon(); got != want || ma.ActiveWeapon() != want {
			t.Fatalf("NextWeapon #%d=%d active=%d want %d", i, got, ma.ActiveWeapon(), want)
		}
	}
	if ma.ActiveInvItem() != medikit.ObjID() {
		t.Fatalf("first inventory item not selected: %d", ma.ActiveInvItem())
	}
	for i, want := range []ObjID{pass.ObjID(), medikit.ObjID()} {
		if got := ma.NextInvItem(); got != want {
			t.Fatalf("NextInvItem #%d=%d want %d", i, got, want)
		}
	}

	// A selection that is no longer carried restarts the cycle.
	ma.activeWeapon = 0xEEE
	if got := ma.NextWeapon(); got != pistol.ObjID() {
		t.Fatalf("NextWeapon from a stale selection=%d want %d", got, pistol.ObjID())
	}
}

func TestMainActorAccumulate(t *testing.T) {
	stats := []struct {
		name  string
		add   func(*MainActor, int)
		stat  func(*MainActor) *int16
		accum func(*MainActor) *int32
	}{
		{"str", (*MainActor).AccumulateStr, func(ma *MainActor) *int16 { return &ma.str }, func(ma *MainActor) *int32 { return &ma.accumStr }},
		{"dex", (*MainActor).AccumulateDex, func(ma *MainActor) *int16 { return &ma.dex }, func(ma *MainActor) *int32 { return &ma.accumDex }},
		{"int", (*MainActor).AccumulateInt, func(ma *MainActor) *int16 { return &ma.intel }, func(ma *MainActor) *int32 { return &ma.accumInt }},
	}
	tests := []struct {
		name      string
		stat      int16
		accum     int32
		n         int
		wantStat  int16
		wantAccum int32
	}{
		{name: "full span gains", stat: 10, accum: 0, n: statTrainSpan, wantStat: 11, wantAccum: 0},
		{name: "practice tips over", stat: 10, accum: 600, n: 60, wantStat: 11, wantAccum: 0},
		{name: "capped stat", stat: statMax, accum: 100, n: statTrainSpan, wantStat: statMax, wantAccum: 100},
	}
	for _, s := range stats {
		for _, tt := range tests {
			t.Run(s.name+"/"+tt.name, func(t *testing.T) {
				w := newTestWorld(t, testTuning("u8"))
				ma := spawnAvatar(t, w, pt(100, 100, 0))
				*s.stat(ma) = tt.stat
				*s.accum(ma) = tt.accum

				s.add(ma, tt.n)
				if got := *s.stat(ma); got != tt.wantStat {
					t.Fatalf("stat=%d want %d", got, tt.wantStat)
				}
				if got := *s.accum(ma); got != tt.wantAccum {
					t.Fatalf("accum=%d want %d", got, tt.wantAccum)
				}
			})
		}
	}
}

func TestCrusaderShieldAbsorbsRatedHits(t *testing.T) {
	tests := []struct {
		name       string
		shield     uint8
		fireType   uint16
		energy     int16
		wantHP     uint16
		wantEnergy int16
	}{
		{name: "no shield", shield: 0, fireType: 2, energy: 50, wantHP: 14, wantEnergy: 50},
		{name: "mask matches", shield: 1, fireType: 2, energy: 50, wantHP: 20, wantEnergy: 44},
		{name: "wide mask", shield: 2, fireType: 4, energy: 50, wantHP: 20, wantEnergy: 44},
		{name: "mask misses", shield: 2, fireType: 2, energy: 50, wantHP: 14, wantEnergy: 50},
		{name: "type 3 acts as 4", shield: 3, fireType: 4, energy: 50, wantHP: 20, wantEnergy: 44},
		{name: "type 3 misses low mask", shield: 3, fireType: 3, energy: 50, wantHP: 14, wantEnergy: 50},
		{name: "free fire type", shield: 1, fireType: 13, energy: 50, wantHP: 14, wantEnergy: 50},
		{name: "not enough energy", shield: 1, fireType: 2, energy: 6, wantHP: 14, wantEnergy: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			ma := spawnAvatar(t, w, pt(300, 300, 0))
			ma.SetShieldType(tt.shield)
			ma.SetEnergy(tt.energy)
			if ma.HP() != 20 {
				t.Fatalf("starting HP=%d", ma.HP())
			}

			ma.ReceiveHit(0, geom.DirNorth, 6, tt.fireType)
			if ma.HP() != tt.wantHP || ma.Energy() != tt.wantEnergy {
				t.Fatalf("HP=%d energy=%d want %d/%d", ma.HP(), ma.Energy(), tt.wantHP, tt.wantEnergy)
			}
			absorbed := tt.wantHP == 20
			if zap := w.Kernel().FindProcess(0, ProcTypeSprite) != nil; zap != absorbed {
				t.Fatalf("shield zap sprite=%v want %v", zap, absorbed)
			}
		})
	}
}
