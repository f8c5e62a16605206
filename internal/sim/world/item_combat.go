package world

import (
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

// ReceiveHit applies damage from other arriving from dir. The reaction is
// the ruleset's; the item may be destroyed on return.
func (it *Item) ReceiveHit(other ObjID, dir geom.Direction, damage int, typ uint16) {
	it.world.rules.ReceiveHit(it, other, dir, damage, typ)
}

// Explode blows the item up with the ruleset's explosion of typ.
func (it *Item) Explode(typ int, destroyItem, causeDamage bool) {
	it.world.rules.Explode(it, typ, destroyItem, causeDamage)
}

// Distance a shot with no target or crosshair is sent along its direction.
const projectileReach = 0x500

// projectileFrame picks the bullet sprite frame: base + dir*perDir, plus a
// random one of spread frames.
type projectileFrame struct{ base, perDir, spread uint32 }

var projectileFrames = map[uint16]projectileFrame{
	0x03: {0x11, 1, 0},
	0x05: {0x01, 1, 0},
	0x06: {0x46, 0, 0},
	0x09: {0x11, 1, 0},
	0x0a: {0x11, 1, 0},
	0x0e: {0x47, 0, 4},
	0x0f: {0x4c, 0, 0},
	0x10: {0x50, 1, 0},
	0x11: {0x78, 6, 0},
	0x12: {0x4c, 0, 0},
	0x13: {0x4c, 0, 0},
	0x14: {0xdc, 3, 0},
	0x15: {0x64, 1, 0},
	0x16: {0x11, 1, 0},
}

func (w *World) projectileFrame(fireType uint16, dir geom.Direction) uint32 {
	pf, ok := projectileFrames[fireType]
	if !ok {
		return 0
	}
	f := pf.base + uint32(dir)*pf.perDir
	if pf.spread > 0 {
		f += uint32(w.rng.IntN(int(pf.spread)))
	}
	return f
}

// FireWeapon shoots fireType from the item's location offset by (x,y,z)
// towards dir. A blocker right at the muzzle is hit directly and no
// projectile is spawned. With findTarget the shot aims at the player (for
// NPCs) or at the best target in dir (for the player). It returns the pid
// of the last projectile spawned, or 0. Only Crusader fires weapons.
func (it *Item) FireWeapon(x, y, z int32, dir geom.Direction, fireType uint16, findTarget bool) kernel.ProcID {
	w := it.world
	if w.rules.Game() != GameCrusader {
		return 0
	}
	ft := w.FireType(fireType)
	if ft == nil {
		return 0
	}
	pt := it.Point().Move(x, y, z)
	damage := int(ft.RandomDamage(w.rng))

	if valid, blocker := w.cmap.IsValidPosition(pt, ShapeBulletSplash, it.objID); !valid && blocker != 0 {
		if block := w.Item(blocker); block != nil {
			bp := block.Point()
			dir := geom.GetWorldDir(bp.Y-pt.Y, bp.X-pt.X, geom.DirMode8)
			w.pout("point blank hit", "item", it.objID, "target", blocker, "damage", damage)
			block.self.ReceiveHit(it.objID, dir, damage, fireType)
			if ft.Range != 0 {
				w.ApplySplashDamageAround(ft, bp, int(ft.RandomDamage(w.rng)), 1, blocker, it.objID)
			}
			if ft.NearSprite {
				w.MakeBulletSplash(ft, pt)
			}
			return 0
		}
	}

	frame := w.projectileFrame(fireType, dir)
	mode := geom.DirMode8
	var target *Item
	a := actorOf(it.self)
	if a != nil {
		mode = a.AnimDirMode(a.lastAnim)
		if w.rules.Traits().Regret {
			if damage < 2 {
				damage = int(ft.RandomDamage(w.rng))
			}
			if t := w.Actor(a.combatTarget); t != nil {
				target = &t.Item
			}
		}
	}

	controlled := w.isControlled(it.objID)
	if findTarget {
		switch {
		case controlled:
			target = w.cmap.FindBestTargetItem(geom.Point3{X: pt.X, Y: pt.Y, Z: pt.Z - z}, dir, mode, it.objID)
		case !w.rules.Traits().Regret || a == nil:
			target = nil
			if ca := w.ControlledActor(); ca != nil {
				target = &ca.Item
			}
		}
	}

	var tp geom.Point3
	var targetID ObjID
	if target != nil {
		tp = target.Centre()
		tp.Z = target.TargetZRelativeTo(it.Point().Z)
		targetID = target.objID
	}

	var pid kernel.ProcID
	for range int(ft.NumShots) {
		var dest geom.Point3
		inexact := findTarget
		switch cp, ok := w.crosshair.Point(); {
		case target != nil:
			dest = tp
			inexact = true
		case controlled && ok:
			dest = cp
			dest.Z = pt.Z
		default:
			dest = pt.Move(geom.XFactor(dir)*projectileReach, geom.YFactor(dir)*projectileReach, 0)
		}
		ssp := NewSuperSpriteProcess(w, ShapeBulletSplash, frame, pt, dest, fireType, uint16(damage), it.objID, targetID, inexact)
		pid = w.kern.AddProcess(ssp)
	}
	w.pout("fired", "item", it.objID, "firetype", fireType, "target", targetID, "shots", ft.NumShots)
	return pid
}

// fireAnim is the action the actor would use to shoot its current weapon.
func (a *Actor) fireAnim() uint32 {
	small := true
	if wpn := a.world.Item(a.activeWeapon); wpn != nil && wpn.ShapeInfo().Weapon != nil {
		small = wpn.ShapeInfo().Weapon.Small
	}
	isMain := a.objID == MainActorID
	switch {
	case a.IsKneeling() && small:
		return AnimKneelFireSmall
	case a.IsKneeling():
		return AnimKneelFireLarge
	case small || !isMain:
		return AnimFireSmallWeapon
	default:
		return AnimFireLargeWeapon
	}
}

// FireDistance tells whether a shot from the item could reach other. Actors
// try the muzzle offsets of the first two attack frames of their fire
// animation, falling back to the given offsets. It returns the horizontal
// distance to the impact in 32-unit steps (at least 1), or 0 when no offset
// gives a clear line.
func (it *Item) FireDistance(other *Item, dir geom.Direction, xoff, yoff, zoff int32) uint16 {
	if other == nil {
		return 0
	}
	w := it.world
	offsets := [][3]int32{{xoff, yoff, zoff}}
	if a := actorOf(it.self); a != nil {
		var attack [][3]int32
		if ai := it.ShapeInfo().Action(a.fireAnim()); ai != nil {
			for _, f := range ai.Frames {
				if f.Attack {
					attack = append(attack, [3]int32{f.AttackX, f.AttackY, f.AttackZ})
					if len(attack) == 2 {
						break
					}
				}
			}
		}
		if len(attack) > 0 {
			offsets = attack
		}
	}

	p := it.Point()
	po := other.Point()
	var dist int32
	for _, off := range offsets {
		start := p.Move(off[0], off[1], off[2])
		valid, blocker := w.cmap.IsValidPosition(start, ShapeBulletSplash, it.objID)
		if !valid && blocker != 0 {
			if blocker == other.objID {
				dist = max(abs32(p.X-po.X), abs32(p.Y-po.Y))
			}
		} else {
			end := other.Centre()
			end.Z = other.TargetZRelativeTo(p.Z)
			for _, h := range w.cmap.SweepTest(start, end, [3]int32{2, 2, 2}, catalogs.SISolid, it.objID, true) {
				if h.Item == it.objID || h.Touching {
					continue
				}
				if h.Item == other.objID {
					out := h.InterpolatedCoords(start, end)
					dist = max(abs32(p.X-out.X), abs32(p.Y-out.Y))
				}
				break
			}
		}
		if dist != 0 {
			break
		}
	}
	if dist == 0 {
		return 0
	}
	if dist < 32 {
		return 1
	}
	return uint16(dist / 32)
}

// TargetZRelativeTo is the height a shooter standing at otherZ should aim
// at on this item: near the top for short items, lower for tall ones, and
// adjusted when the shooter is far above or below.
func (it *Item) TargetZRelativeTo(otherZ int32) int32 {
	_, _, zd := it.FootpadData()
	z := it.Point().Z
	tz := z + zd*8
	if zd < 3 {
		if zd != 0 {
			tz -= 8
		}
		return tz
	}
	top := tz
	tz -= 16
	switch {
	case otherZ-top < -0x2f:
		tz += 8
	case otherZ-top > 0x2f:
		if zd == 6 {
			tz -= 16
		} else if zd >= 7 {
			tz -= 24
		}
	}
	return tz
}
