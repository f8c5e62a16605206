package world

import (
	"testing"

	"u8sim/internal/sim/geom"
)

func TestScaleReceivedDamage(t *testing.T) {
	tests := []struct {
		name       string
		difficulty int
		shape      uint32
		player     bool
		damage     int
		typ        uint16
		want       int
	}{
		// Scenario A: 30*5 for easy, then a third for a robot hit by type 1.
		{name: "robot easy", difficulty: 1, shape: shapeRobot, damage: 30, typ: 1, want: 50},
		{name: "robot normal", difficulty: 2, shape: shapeRobot, damage: 30, typ: 1, want: 30},
		{name: "robot plasma not reduced", difficulty: 2, shape: shapeRobot, damage: 30, typ: 4, want: 90},
		{name: "player easy", difficulty: 1, shape: shapeAvatar, player: true, damage: 30, typ: 1, want: 6},
		{name: "hard unscaled", difficulty: 4, shape: shapePot, damage: 30, typ: 1, want: 30},
		{name: "floor of one", difficulty: 1, shape: shapeAvatar, player: true, damage: 2, typ: 1, want: 1},
		{name: "ceiling", difficulty: 1, shape: shapePot, damage: 200, typ: 1, want: 0xfa},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tun := testTuning("crusader")
			tun.Difficulty = tt.difficulty
			w := newTestWorld(t, tun)
			var it *Item
			if tt.player {
				it = &spawnAvatar(t, w, pt(300, 300, 0)).Item
			} else {
				it = spawn(t, w, tt.shape, pt(300, 300, 0))
			}
			if got := scaleReceivedDamage(it, tt.damage, tt.typ); got != tt.want {
				t.Fatalf("scaleReceivedDamage=%d want %d", got, tt.want)
			}
		})
	}
}

func TestCrusaderReceiveHit_BreaksTerminal(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	term := spawn(t, w, shapeTerminal, pt(300, 300, 0))

	// Difficulty 2 triples damage to non-players: 2 becomes 6.
	term.ReceiveHit(0, geom.DirNorth, 2, 1)
	if got := term.DamagePoints(); got != 14 {
		t.Fatalf("damage points=%d want 14", got)
	}
	if term.HasFlags(FlagBroken) {
		t.Fatalf("terminal broke early")
	}

	id := term.ObjID()
	term.ReceiveHit(0, geom.DirNorth, 10, 1)
	if w.Item(id) != nil {
		t.Fatalf("broken terminal not destroyed")
	}
	var replaced bool
	for _, oid := range w.Map().ChunkItems(0, 0) {
		if it := w.Item(oid); it != nil && it.Shape() == shapeBroken && it.Point() == pt(300, 300, 0) {
			replaced = true
		}
	}
	if !replaced {
		t.Fatalf("no replacement shape %d at the terminal's location", shapeBroken)
	}
}

func TestApplySplashDamageAround_SkipsExcludeAndSource(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	excl := spawn(t, w, shapeTerminal, pt(200, 200, 0))
	src := spawn(t, w, shapeTerminal, pt(210, 200, 0))
	victim := spawn(t, w, shapeTerminal, pt(200, 215, 0))
	far := spawn(t, w, shapeTerminal, pt(400, 400, 0))

	ft := w.FireType(4)
	w.ApplySplashDamageAround(ft, pt(200, 200, 0), 2, 1, excl.ObjID(), src.ObjID())

	for _, tc := range []struct {
		name string
		it   *Item
		want uint8
	}{
		{"exclude", excl, 20},
		{"source", src, 20},
		{"victim", victim, 14},
		{"out of range", far, 20},
	} {
		if got := tc.it.DamagePoints(); got != tc.want {
			t.Fatalf("%s: damage points=%d want %d", tc.name, got, tc.want)
		}
	}
}

func TestApplySplashDamageAround_HitsControlledSource(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	ma := spawnAvatar(t, w, pt(215, 200, 0))
	before := ma.HP()

	w.ApplySplashDamageAround(w.FireType(4), pt(200, 200, 0), 2, 1, 0, MainActorID)
	if got := ma.HP(); got != before-2 {
		t.Fatalf("controlled source HP=%d want %d", got, before-2)
	}
}

func TestApplySplashDamageAround_NoRangeNoSplash(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	victim := spawn(t, w, shapeTerminal, pt(200, 200, 0))
	w.ApplySplashDamageAround(w.FireType(2), pt(200, 200, 0), 5, 1, 0, 0)
	if got := victim.DamagePoints(); got != 20 {
		t.Fatalf("zero-range fire type did splash damage: %d", got)
	}
}

func TestFireWeapon_PointBlankHitsBlocker(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	shooter := spawn(t, w, shapePot, pt(100, 100, 0))
	term := spawn(t, w, shapeTerminal, pt(110, 110, 0))
	id := term.ObjID()

	// Fire type 13 always deals 10, tripled past the terminal's 20 points.
	pid := shooter.FireWeapon(5, 5, 8, geom.DirSouth, 13, false)
	if pid != 0 {
		t.Fatalf("point blank shot spawned projectile %d", pid)
	}
	if w.Item(id) != nil {
		t.Fatalf("terminal survived a point blank hit")
	}
	if n := len(w.Kernel().Processes(0, ProcTypeSuperSprite)); n != 0 {
		t.Fatalf("%d projectile processes running", n)
	}
}

func TestFireWeapon_NPCAimsAtControlledActor(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	spawnAvatar(t, w, pt(300, 600, 0))
	guard := w.CreateActor(5, shapeGuard, 0)
	guard.Move(pt(300, 200, 0))

	pid := guard.FireWeapon(0, 32, 20, geom.DirSouth, 2, true)
	ss, ok := w.Kernel().Process(pid).(*SuperSpriteProcess)
	if !ok {
		t.Fatalf("FireWeapon returned pid %d, not a projectile", pid)
	}
	if ss.Source() != guard.ObjID() || ss.target != MainActorID {
		t.Fatalf("source=%d target=%d", ss.Source(), ss.target)
	}
	for i := 0; i < int(superSpriteLifetime) && w.Kernel().Process(pid) != nil; i++ {
		w.Step()
	}
	if w.Kernel().Process(pid) != nil {
		t.Fatalf("projectile still flying after %d ticks", superSpriteLifetime)
	}
}

func TestFireWeapon_U8DoesNotShoot(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	shooter := spawn(t, w, shapePot, pt(100, 100, 0))
	if pid := shooter.FireWeapon(0, 0, 8, geom.DirSouth, 2, false); pid != 0 {
		t.Fatalf("U8 FireWeapon spawned %d", pid)
	}
}

func TestActorDeath_KillsProcessesKeepsDeathAnim(t *testing.T) {
	w := newTestWorld(t, testTuning("u8"))
	ma := spawnAvatar(t, w, pt(300, 300, 0))
	walk := ma.DoAnim(AnimWalk, geom.DirInvalid)

	ma.Die(DamageNormal, 100, geom.DirNorth)
	if !ma.IsDead() || ma.HP() != 0 {
		t.Fatalf("dead=%v hp=%d", ma.IsDead(), ma.HP())
	}
	if p := w.Kernel().Process(walk); p != nil && !p.ProcBase().IsTerminated() {
		t.Fatalf("walk animation survived death")
	}
	var dying bool
	for _, p := range w.Kernel().Processes(uint16(MainActorID), ProcTypeActorAnim) {
		if anim, ok := p.(*ActorAnimProcess); ok && anim.Action() == AnimDie {
			dying = true
		}
	}
	if !dying {
		t.Fatalf("no death animation queued")
	}
}

func TestApplySplashDamageAround_FalloffWithDistance(t *testing.T) {
	tests := []struct {
		name     string
		fireType uint16
		z        int32
		damage   int
		want     uint8
	}{
		// The area search is planar, so height alone sets the distance.
		{name: "close", fireType: 4, z: 0, damage: 6, want: 2},
		{name: "halved", fireType: 4, z: 100, damage: 6, want: 11},
		{name: "thirded", fireType: 4, z: 150, damage: 6, want: 14},
		{name: "falls to nothing", fireType: 4, z: 100, damage: 1, want: 20},
		{name: "no falloff", fireType: 9, z: 150, damage: 6, want: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			term := spawn(t, w, shapeTerminal, pt(200, 200, tt.z))
			w.ApplySplashDamageAround(w.FireType(tt.fireType), pt(200, 200, 0), tt.damage, 1, 0, 0)
			if got := term.DamagePoints(); got != tt.want {
				t.Fatalf("damage points=%d want %d", got, tt.want)
			}
		})
	}
}

func TestFireDistance(t *testing.T) {
	tests := []struct {
		name    string
		shooter uint32
		target  geom.Point3
		blocker uint32
		blockAt geom.Point3
		off     geom.Point3
		want    uint16
	}{
		{name: "item uses given offsets", shooter: shapePot, target: pt(300, 116, 0), off: pt(0, 0, 8), want: 5},
		{name: "short range rounds up", shooter: shapePot, target: pt(164, 116, 0), off: pt(0, 0, 8), want: 1},
		{name: "scaled by 32", shooter: shapePot, target: pt(430, 116, 0), off: pt(0, 0, 8), want: 9},
		{name: "wall in the way", shooter: shapePot, target: pt(300, 116, 0), blocker: shapeWall, blockAt: pt(200, 164, 0), off: pt(0, 0, 8), want: 0},
		{name: "muzzle inside target", shooter: shapePot, target: pt(150, 116, 0), off: pt(40, 0, 8), want: 1},
		{name: "actor fires from attack frames", shooter: shapeAvatar, target: pt(300, 116, 0), blocker: shapePot, blockAt: pt(160, 116, 0), want: 5},
		{name: "actor without attack frames", shooter: shapeRobot, target: pt(300, 116, 0), blocker: shapePot, blockAt: pt(160, 116, 0), want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newTestWorld(t, testTuning("crusader"))
			var shooter *Item
			switch tt.shooter {
			case shapeAvatar:
				shooter = &spawnAvatar(t, w, pt(100, 100, 0)).Item
			case shapeRobot:
				a := w.CreateActor(7, shapeRobot, 0)
				if a == nil {
					t.Fatalf("CreateActor(robot) returned nil")
				}
				a.Move(pt(100, 100, 0))
				shooter = &a.Item
			default:
				shooter = spawn(t, w, tt.shooter, pt(100, 100, 0))
			}
			if tt.blocker != 0 {
				spawn(t, w, tt.blocker, tt.blockAt)
			}
			target := spawn(t, w, shapeTerminal, tt.target)

			got := shooter.FireDistance(target, geom.DirEast, tt.off.X, tt.off.Y, tt.off.Z)
			if got != tt.want {
				t.Fatalf("FireDistance=%d want %d", got, tt.want)
			}
		})
	}
}

func TestFireDistance_NilTarget(t *testing.T) {
	w := newTestWorld(t, testTuning("crusader"))
	shooter := spawn(t, w, shapePot, pt(100, 100, 0))
	if got := shooter.FireDistance(nil, geom.DirEast, 0, 0, 8); got != 0 {
		t.Fatalf("FireDistance(nil)=%d", got)
	}
}
