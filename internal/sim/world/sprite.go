package world

import (
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/kernel"
)

const classSpriteProcess = "SpriteProcess"

// SpriteProcess plays a one-off animation on a disposable sprite item and
// destroys the item when done. Frames run from first to last, in either
// direction, repeats times, advancing every delay ticks.
type SpriteProcess struct {
	kernel.Base
	w *World

	shape   uint32
	first   uint32
	last    uint32
	frame   uint32
	repeats int32
	delay   int32
	counter int32
	pt      geom.Point3
	inited  bool
}

// NewSpriteProcess builds the process. Unless delayedInit is set the sprite
// item is created and placed right away; otherwise on the first run.
func NewSpriteProcess(w *World, shape, first, last uint32, repeats, delay int, p geom.Point3, delayedInit bool) *SpriteProcess {
	sp := &SpriteProcess{
		Base:    kernel.NewBase(0, ProcTypeSprite),
		w:       w,
		shape:   shape,
		first:   first,
		last:    last,
		frame:   first,
		repeats: int32(max(repeats, 1)),
		delay:   int32(max(delay, 1)),
		pt:      p,
	}
	if !delayedInit {
		sp.init()
	}
	return sp
}

func (sp *SpriteProcess) ClassName() string { return classSpriteProcess }

func (sp *SpriteProcess) init() {
	sp.inited = true
	it := sp.w.CreateItem(sp.shape, sp.first, 0, FlagDisposable, 0, 0, ExtSprite, true)
	if it == nil {
		return
	}
	it.Move(sp.pt)
	sp.SetItemNum(uint16(it.objID))
}

func (sp *SpriteProcess) step() int32 {
	if sp.last < sp.first {
		return -1
	}
	return 1
}

func (sp *SpriteProcess) pastEnd() bool {
	if sp.last < sp.first {
		return sp.frame < sp.last || sp.frame > sp.first
	}
	return sp.frame > sp.last
}

func (sp *SpriteProcess) Run() {
	if !sp.inited {
		sp.init()
	}
	it := sp.w.Item(ObjID(sp.ItemNum()))
	if it == nil || (sp.pastEnd() && sp.repeats <= 1 && sp.counter == 0) {
		sp.Terminate()
		return
	}
	if sp.counter != 0 {
		sp.counter = (sp.counter + 1) % sp.delay
		return
	}
	if sp.pastEnd() {
		sp.frame = sp.first
		sp.repeats--
	}
	it.SetFrame(sp.frame)
	sp.frame = uint32(int32(sp.frame) + sp.step())
	sp.counter = (sp.counter + 1) % sp.delay
}

// Terminate destroys the sprite item.
func (sp *SpriteProcess) Terminate() {
	if sp.IsTerminated() {
		return
	}
	if it := sp.w.Item(ObjID(sp.ItemNum())); it != nil && it.extFlags&ExtSprite != 0 {
		it.self.Destroy(false)
	}
	sp.Base.Terminate()
}

func (sp *SpriteProcess) SaveData(w *encoding.Writer) {
	sp.Base.SaveData(w)
	w.WriteU32(sp.shape)
	w.WriteU32(sp.first)
	w.WriteU32(sp.last)
	w.WriteU32(sp.frame)
	w.WriteI32(sp.repeats)
	w.WriteI32(sp.delay)
	w.WriteI32(sp.counter)
	w.WriteI32(sp.pt.X)
	w.WriteI32(sp.pt.Y)
	w.WriteI32(sp.pt.Z)
	w.WriteBool(sp.inited)
}

func (sp *SpriteProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := sp.Base.LoadData(r, version); err != nil {
		return err
	}
	sp.shape = r.ReadU32()
	sp.first = r.ReadU32()
	sp.last = r.ReadU32()
	sp.frame = r.ReadU32()
	sp.repeats = r.ReadI32()
	sp.delay = max(r.ReadI32(), 1)
	sp.counter = r.ReadI32()
	sp.pt = geom.Point3{X: r.ReadI32(), Y: r.ReadI32(), Z: r.ReadI32()}
	sp.inited = r.ReadBool()
	return r.Err()
}
