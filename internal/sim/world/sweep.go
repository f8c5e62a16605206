package world

import (
	"sort"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/geom"
)

// SweepItem is one item met by a moving box. Times are fixed point on
// [0, sweepEnd] along the path; HitTime is -1 when the boxes were already in
// contact at the start.
type SweepItem struct {
	Item          ObjID
	HitTime       int32
	EndTime       int32
	Touching      bool
	TouchingFloor bool
	Blocking      bool
	// Axes (1 x, 2 y, 4 z) whose faces met last on entry.
	Dirs uint8
}

// InterpolatedCoords is the point on start..end at HitTime, truncated
// towards start.
func (s SweepItem) InterpolatedCoords(start, end geom.Point3) geom.Point3 {
	t := max(s.HitTime, 0)
	lerp := func(a, b int32) int32 {
		return a + int32(int64(b-a)*int64(t)/int64(sweepEnd))
	}
	return geom.Point3{X: lerp(start.X, end.X), Y: lerp(start.Y, end.Y), Z: lerp(start.Z, end.Z)}
}

// frac is an exact parameter along the sweep. d is always positive.
type frac struct{ n, d int64 }

func (a frac) less(b frac) bool { return a.n*b.d < b.n*a.d }
func (a frac) leq(b frac) bool  { return a.n*b.d <= b.n*a.d }

var (
	fracZero = frac{0, 1}
	fracOne  = frac{1, 1}
)

// toFixed scales f onto [0, sweepEnd], rounding down or up.
func (a frac) toFixed(up bool) int32 {
	n := a.n * int64(sweepEnd)
	q := n / a.d
	if up && n%a.d != 0 && n > 0 {
		q++
	}
	if !up && n%a.d != 0 && n < 0 {
		q--
	}
	return int32(q)
}

// axisSpan is the closed contact window of one axis. still axes have no
// window: they are either in contact the whole sweep or never.
type axisSpan struct {
	enter, exit frac
	still       bool
	strict      bool
}

// span computes when position s+t*dlt lies within [lo, hi].
func span(s, dlt, lo, hi int32) (axisSpan, bool) {
	if dlt == 0 {
		if s < lo || s > hi {
			return axisSpan{}, false
		}
		return axisSpan{still: true, strict: s > lo && s < hi}, true
	}
	d := int64(dlt)
	t1 := frac{int64(lo - s), d}
	t2 := frac{int64(hi - s), d}
	if d < 0 {
		t1 = frac{-t1.n, -d}
		t2 = frac{-t2.n, -d}
		t1, t2 = t2, t1
	}
	return axisSpan{enter: t1, exit: t2}, true
}

// sweepOne tests the mover against one box. The mover covers
// (Px-dx, Px] x (Py-dy, Py] x [Pz, Pz+dz).
func sweepOne(start, end geom.Point3, dims [3]int32, b geom.Box) (SweepItem, bool) {
	axes := [3]struct{ s, dlt, lo, hi int32 }{
		{start.X, end.X - start.X, b.X - b.XD, b.X + dims[0]},
		{start.Y, end.Y - start.Y, b.Y - b.YD, b.Y + dims[1]},
		{start.Z, end.Z - start.Z, b.Z - dims[2], b.Z + b.ZD},
	}
	enter, exit := fracZero, fracOne
	strictStill := true
	var spans [3]axisSpan
	for i, a := range axes {
		sp, ok := span(a.s, a.dlt, a.lo, a.hi)
		if !ok {
			return SweepItem{}, false
		}
		spans[i] = sp
		if sp.still {
			strictStill = strictStill && sp.strict
			continue
		}
		if enter.less(sp.enter) {
			enter = sp.enter
		}
		if sp.exit.less(exit) {
			exit = sp.exit
		}
	}
	if exit.less(enter) {
		return SweepItem{}, false
	}

	var dirs uint8
	for i, sp := range spans {
		if !sp.still && !sp.enter.less(enter) && !enter.less(sp.enter) {
			dirs |= 1 << i
		}
	}
	// Strict overlap needs a non-empty open window on the moving axes.
	touching := !strictStill || !enter.less(exit)

	hit := SweepItem{Dirs: dirs, Touching: touching}
	if enter.leq(fracZero) {
		hit.HitTime = -1
	} else {
		hit.HitTime = enter.toFixed(false)
	}
	if fracOne.leq(exit) {
		hit.EndTime = sweepEnd
	} else {
		hit.EndTime = min(exit.toFixed(true), sweepEnd)
	}
	hit.TouchingFloor = touching && start.Z == end.Z && start.Z == b.MaxZ()
	return hit, true
}

const blockMask = catalogs.SISolid | catalogs.SIDamaging | catalogs.SILand

// SweepTest moves a box of dims from start to end and reports every item it
// touches or passes through, ordered by HitTime. Sprites and exclude are
// skipped. With blockingOnly only items that block shapeFlags are kept.
func (m *CurrentMap) SweepTest(start, end geom.Point3, dims [3]int32, shapeFlags uint32, exclude ObjID, blockingOnly bool) []SweepItem {
	area := geom.Box{
		X:  max(start.X, end.X),
		Y:  max(start.Y, end.Y),
		Z:  min(start.Z, end.Z),
		XD: abs32(start.X-end.X) + dims[0],
		YD: abs32(start.Y-end.Y) + dims[1],
		ZD: abs32(start.Z-end.Z) + dims[2],
	}
	var out []SweepItem
	for _, id := range m.candidates(area) {
		if id == exclude {
			continue
		}
		it := m.w.Item(id)
		if it == nil || it.extFlags&ExtSprite != 0 {
			continue
		}
		blocking := it.ShapeInfo().Flags&shapeFlags&blockMask != 0
		if blockingOnly && !blocking {
			continue
		}
		hit, ok := sweepOne(start, end, dims, it.WorldBox())
		if !ok {
			continue
		}
		hit.Item = id
		hit.Blocking = blocking
		out = append(out, hit)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].HitTime != out[j].HitTime {
			return out[i].HitTime < out[j].HitTime
		}
		return out[i].Item < out[j].Item
	})
	return out
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
