package world

import (
	"slices"
	"sort"

	"github.com/elliotchance/orderedmap/v2"

	"u8sim/internal/sim/geom"
)

type chunkKey struct{ cx, cy int32 }

// CurrentMap indexes world items by chunk and tracks which chunks are in the
// fast area around the camera.
type CurrentMap struct {
	w          *World
	chunkSize  int32
	mapChunks  int32
	fastRadius int32

	chunks map[chunkKey][]ObjID

	fastValid  bool
	fastCentre chunkKey

	// Crusader targetable items in the fast area, in insertion order.
	targets *orderedmap.OrderedMap[ObjID, struct{}]
}

func newCurrentMap(w *World, chunkSize, mapChunks, fastRadius int32) *CurrentMap {
	return &CurrentMap{
		w:          w,
		chunkSize:  chunkSize,
		mapChunks:  mapChunks,
		fastRadius: fastRadius,
		chunks:     map[chunkKey][]ObjID{},
		targets:    orderedmap.NewOrderedMap[ObjID, struct{}](),
	}
}

func (m *CurrentMap) ChunkSize() int32 { return m.chunkSize }

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (m *CurrentMap) chunkOf(x, y int32) chunkKey {
	return chunkKey{floorDiv(x, m.chunkSize), floorDiv(y, m.chunkSize)}
}

// AddItem inserts a world item at the head of its chunk list.
func (m *CurrentMap) AddItem(it *Item) { m.add(it, false) }

// AddItemToEnd appends a world item to its chunk list.
func (m *CurrentMap) AddItemToEnd(it *Item) { m.add(it, true) }

func (m *CurrentMap) add(it *Item, atEnd bool) {
	p := it.Point()
	k := m.chunkOf(p.X, p.Y)
	if m.mapChunks > 0 && (k.cx < 0 || k.cy < 0 || k.cx >= m.mapChunks || k.cy >= m.mapChunks) {
		m.w.perr("item placed outside map", "item", it.objID, "at", p)
	}
	list := m.chunks[k]
	if atEnd {
		list = append(list, it.objID)
	} else {
		list = slices.Insert(list, 0, it.objID)
	}
	m.chunks[k] = list
	it.extFlags |= ExtInCurMap
}

// RemoveItem drops it from the chunk list of its current location.
func (m *CurrentMap) RemoveItem(it *Item) {
	p := it.Point()
	k := m.chunkOf(p.X, p.Y)
	if list, ok := m.chunks[k]; ok {
		list = removeID(list, it.objID)
		if len(list) == 0 {
			delete(m.chunks, k)
		} else {
			m.chunks[k] = list
		}
	}
	it.extFlags &^= ExtInCurMap
}

// ChunkItems lists a chunk's items in list order.
func (m *CurrentMap) ChunkItems(cx, cy int32) []ObjID {
	return slices.Clone(m.chunks[chunkKey{cx, cy}])
}

func (m *CurrentMap) IsChunkFast(cx, cy int32) bool {
	if !m.fastValid {
		return false
	}
	return abs32(cx-m.fastCentre.cx) <= m.fastRadius && abs32(cy-m.fastCentre.cy) <= m.fastRadius
}

func (m *CurrentMap) IsPointFast(p geom.Point3) bool {
	k := m.chunkOf(p.X, p.Y)
	return m.IsChunkFast(k.cx, k.cy)
}

// UpdateFastArea recentres the fast area on centre. Items in chunks that
// leave it get LeaveFastArea, items in chunks that join it get
// EnterFastArea.
func (m *CurrentMap) UpdateFastArea(centre geom.Point3) {
	nc := m.chunkOf(centre.X, centre.Y)
	if m.fastValid && nc == m.fastCentre {
		return
	}
	old, wasValid := m.fastCentre, m.fastValid
	inOld := func(k chunkKey) bool {
		return wasValid && abs32(k.cx-old.cx) <= m.fastRadius && abs32(k.cy-old.cy) <= m.fastRadius
	}
	m.fastCentre, m.fastValid = nc, true

	var leaving, entering []ObjID
	for _, k := range m.sortedChunks() {
		was, now := inOld(k), m.IsChunkFast(k.cx, k.cy)
		switch {
		case was && !now:
			leaving = append(leaving, m.chunks[k]...)
		case now && !was:
			entering = append(entering, m.chunks[k]...)
		}
	}
	for _, id := range leaving {
		if it := m.w.Item(id); it != nil && it.flags&FlagFastArea != 0 {
			it.LeaveFastArea()
		}
	}
	for _, id := range entering {
		if it := m.w.Item(id); it != nil && it.flags&FlagFastArea == 0 {
			it.EnterFastArea()
		}
	}
}

func (m *CurrentMap) sortedChunks() []chunkKey {
	keys := make([]chunkKey, 0, len(m.chunks))
	for k := range m.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].cy != keys[j].cy {
			return keys[i].cy < keys[j].cy
		}
		return keys[i].cx < keys[j].cx
	})
	return keys
}

// FastItems lists world items currently flagged as in the fast area.
func (m *CurrentMap) FastItems() []ObjID {
	var out []ObjID
	for _, k := range m.sortedChunks() {
		if !m.IsChunkFast(k.cx, k.cy) {
			continue
		}
		for _, id := range m.chunks[k] {
			if it := m.w.Item(id); it != nil && it.flags&FlagFastArea != 0 {
				out = append(out, id)
			}
		}
	}
	return out
}

// candidates returns ids of world items in every chunk that could hold an
// item overlapping area, sorted by id.
func (m *CurrentMap) candidates(area geom.Box) []ObjID {
	// Footprints reach back at most one chunk from their anchor.
	lo := m.chunkOf(area.MinX(), area.MinY())
	hi := m.chunkOf(area.X, area.Y)
	lo.cx--
	lo.cy--
	hi.cx++
	hi.cy++
	var out []ObjID
	span := int64(hi.cx-lo.cx+1) * int64(hi.cy-lo.cy+1)
	if span > int64(len(m.chunks)) {
		for k, list := range m.chunks {
			if k.cx >= lo.cx && k.cx <= hi.cx && k.cy >= lo.cy && k.cy <= hi.cy {
				out = append(out, list...)
			}
		}
	} else {
		for cy := lo.cy; cy <= hi.cy; cy++ {
			for cx := lo.cx; cx <= hi.cx; cx++ {
				out = append(out, m.chunks[chunkKey{cx, cy}]...)
			}
		}
	}
	slices.Sort(out)
	return out
}

type PositionInfo struct {
	Valid     bool
	Supported bool
	Land      bool
	// First solid item overlapping the box, when not valid.
	Blocker ObjID
}

// PositionInfo checks whether box is free of solid items and whether
// something (or the ground) is directly beneath it. Zero extents count as
// one unit so point-sized shapes can still collide.
func (m *CurrentMap) PositionInfo(box geom.Box, shapeFlags uint32, exclude ObjID) PositionInfo {
	box.XD, box.YD, box.ZD = max(box.XD, 1), max(box.YD, 1), max(box.ZD, 1)
	info := PositionInfo{Valid: true, Supported: box.Z <= 0}
	for _, id := range m.candidates(box) {
		if id == exclude {
			continue
		}
		it := m.w.Item(id)
		if it == nil || it.extFlags&ExtSprite != 0 {
			continue
		}
		si := it.ShapeInfo()
		ob := it.WorldBox()
		if si.IsSolid() && info.Blocker == 0 && box.Overlaps(ob) {
			info.Valid = false
			info.Blocker = id
		}
		if (si.IsSolid() || si.IsLand()) && ob.MaxZ() == box.Z && box.OverlapsXY(ob) {
			info.Supported = true
			info.Land = info.Land || si.IsLand()
		}
	}
	return info
}

// IsValidPosition reports whether it could occupy p, and what blocks it.
func (m *CurrentMap) IsValidPosition(p geom.Point3, shape uint32, exclude ObjID) (bool, ObjID) {
	si := m.w.cats.Shapes.Shape(shape)
	box := geom.Box{X: p.X, Y: p.Y, Z: p.Z, XD: si.X * 32, YD: si.Y * 32, ZD: si.Z * 8}
	info := m.PositionInfo(box, si.Flags, exclude)
	return info.Valid, info.Blocker
}

// SurfaceSearch finds items resting on top of it (above) or that it rests
// on (below). With recurse, items on those items are included too.
func (m *CurrentMap) SurfaceSearch(script LoopScript, it *Item, above, below, recurse bool) []ObjID {
	var out []ObjID
	seen := map[ObjID]bool{it.objID: true}
	var walk func(src geom.Box)
	walk = func(src geom.Box) {
		area := src
		area.ZD++
		area.Z--
		for _, id := range m.candidates(area) {
			if seen[id] {
				continue
			}
			o := m.w.Item(id)
			if o == nil || o.extFlags&ExtSprite != 0 {
				continue
			}
			ob := o.WorldBox()
			if !ob.OverlapsXY(src) {
				continue
			}
			onTop := above && ob.Z == src.MaxZ()
			under := below && ob.MaxZ() == src.Z
			if !onTop && !under {
				continue
			}
			seen[id] = true
			if script.Match(o) {
				out = append(out, id)
			}
			if recurse && onTop {
				walk(ob)
			}
		}
	}
	walk(it.WorldBox())
	return out
}

// AreaSearch lists matching world items whose footprint comes within rng of
// area horizontally. With recurse the contents of matching containers are
// searched as well.
func (m *CurrentMap) AreaSearch(script LoopScript, area geom.Box, rng int32, recurse bool) []ObjID {
	search := geom.Box{
		X: area.X + rng, Y: area.Y + rng, Z: area.Z,
		XD: area.XD + 2*rng, YD: area.YD + 2*rng, ZD: area.ZD,
	}
	var out []ObjID
	for _, id := range m.candidates(search) {
		it := m.w.Item(id)
		if it == nil || it.extFlags&ExtSprite != 0 {
			continue
		}
		b := it.WorldBox()
		if b.X < search.MinX() || b.MinX() > search.X || b.Y < search.MinY() || b.MinY() > search.Y {
			continue
		}
		if script.Match(it) {
			out = append(out, id)
		}
		if recurse {
			out = append(out, m.searchContents(script, it)...)
		}
	}
	return out
}

func (m *CurrentMap) searchContents(script LoopScript, it *Item) []ObjID {
	c := containerOf(it.self)
	if c == nil {
		return nil
	}
	var out []ObjID
	for _, id := range c.contents {
		ci := m.w.Item(id)
		if ci == nil {
			continue
		}
		if script.Match(ci) {
			out = append(out, id)
		}
		out = append(out, m.searchContents(script, ci)...)
	}
	return out
}

// AddTarget records a targetable item for FindBestTargetItem.
func (m *CurrentMap) AddTarget(id ObjID) { m.targets.Set(id, struct{}{}) }

func (m *CurrentMap) RemoveTarget(id ObjID) { m.targets.Delete(id) }

func (m *CurrentMap) IsTarget(id ObjID) bool {
	_, ok := m.targets.Get(id)
	return ok
}

func (m *CurrentMap) Targets() []ObjID { return m.targets.Keys() }

const maxTargetRange = 0x800

// FindBestTargetItem picks the nearest live target lying in direction dir
// from the point. In 16-way mode the neighbouring directions count too.
func (m *CurrentMap) FindBestTargetItem(p geom.Point3, dir geom.Direction, mode geom.DirMode, exclude ObjID) *Item {
	var best *Item
	var bestDist int64
	for _, id := range m.targets.Keys() {
		if id == exclude {
			continue
		}
		it := m.w.Item(id)
		if it == nil || it.flags&FlagBroken != 0 || !it.ShapeInfo().IsTargetable() {
			continue
		}
		if a := actorOf(it.self); a != nil && a.IsDead() {
			continue
		}
		c := it.Centre()
		if c.MaxDistXY(p) > maxTargetRange {
			continue
		}
		d := geom.GetWorldDir(c.Y-p.Y, c.X-p.X, mode)
		if mode == geom.DirMode16 {
			if d != dir && d != dir.TurnLeft(1) && d != dir.TurnRight(1) {
				continue
			}
		} else if d != dir&^1 {
			continue
		}
		dist := c.SqrDist(p)
		if best == nil || dist < bestDist {
			best, bestDist = it, dist
		}
	}
	return best
}

// Reset forgets every item and the fast area.
func (m *CurrentMap) Reset() {
	m.chunks = map[chunkKey][]ObjID{}
	m.fastValid = false
	m.targets = orderedmap.NewOrderedMap[ObjID, struct{}]()
}
