package world

import (
	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

// ApplySplashDamageAround hits every world item within the fire type's
// splash radius (range*16, divided by rangeDiv) of p. exclude never takes
// splash damage, and neither does src unless it is the controlled actor.
// Fire types with falloff scale damage down with distance.
func (w *World) ApplySplashDamageAround(ft *catalogs.FireType, p geom.Point3, damage, rangeDiv int, exclude, src ObjID) {
	if ft == nil || ft.Range == 0 {
		return
	}
	rangeDiv = max(rangeDiv, 1)
	radius := int32(ft.Range) * 16 / int32(rangeDiv)
	srcHittable := src != 0 && w.isControlled(src)

	area := geom.Box{X: p.X, Y: p.Y, Z: p.Z}
	for _, id := range w.cmap.AreaSearch(LoopScriptAll, area, radius, false) {
		if id == exclude || (id == src && !srcHittable) {
			continue
		}
		it := w.Item(id)
		if it == nil {
			continue
		}
		ip := it.Point()
		dmg := damage
		if ft.Falloff {
			if d := p.MaxDistXYZ(ip) / 16 / 3; d > 0 {
				dmg /= int(d)
			}
		}
		if dmg == 0 {
			continue
		}
		dir := geom.GetWorldDir(ip.Y-p.Y, ip.X-p.X, geom.DirMode8)
		w.pout("splash damage", "item", id, "damage", dmg, "firetype", ft.TypeNo)
		it.self.ReceiveHit(0, dir, dmg, ft.TypeNo)
	}
}

// MakeBulletSplash spawns the impact sprite for ft at p and plays its
// sound. It returns the sprite process id, or 0 when the fire type has no
// splash visual.
func (w *World) MakeBulletSplash(ft *catalogs.FireType, p geom.Point3) kernel.ProcID {
	if ft == nil {
		return 0
	}
	shape, first, last, delay, sound, ok := ft.PickSplash(w.rng)
	var pid kernel.ProcID
	var sprite ObjID
	if ok {
		sp := NewSpriteProcess(w, shape, first, last, 1, int(delay), p, false)
		pid = w.kern.AddProcess(sp)
		sprite = ObjID(sp.ItemNum())
	}
	if sound != 0 {
		w.audio.PlaySFX(int(sound), 0x10, sprite, 0)
	}
	return pid
}
