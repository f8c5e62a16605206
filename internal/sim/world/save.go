package world

import (
	"errors"
	"fmt"

	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/kernel"
)

// saveVersion is written at the head of every save body and passed to
// every loadData.
const saveVersion uint32 = 1

var (
	ErrSaveVersion   = errors.New("world: unsupported save version")
	ErrSaveGame      = errors.New("world: save belongs to another game")
	ErrUnknownObject = errors.New("world: unknown object class")
	ErrObjectIDInUse = errors.New("world: object id already in use")

	errShortList = errors.New("world: list longer than stream")
)

func (w *World) registerProcessLoaders() {
	k := w.kern
	k.RegisterLoader(classScriptProcess, func() kernel.Process { return &ScriptProcess{w: w} })
	k.RegisterLoader(classActorAnimProcess, func() kernel.Process { return &ActorAnimProcess{w: w} })
	k.RegisterLoader(classGravityProcess, func() kernel.Process { return &GravityProcess{w: w} })
	k.RegisterLoader(classSpriteProcess, func() kernel.Process { return &SpriteProcess{w: w} })
	k.RegisterLoader(classSuperSpriteProcess, func() kernel.Process { return &SuperSpriteProcess{w: w} })
	k.RegisterLoader(classCameraProcess, func() kernel.Process { return &CameraProcess{w: w} })
	k.RegisterLoader(classReticleProcess, func() kernel.Process { return &ReticleProcess{w: w} })
}

func (w *World) saveObject(out *encoding.Writer, o Object) {
	out.WriteString(o.ClassName())
	o.saveData(out)
}

func (w *World) newObject(class string) Object {
	switch class {
	case classItem:
		return newItem(w)
	case classContainer:
		return newContainer(w)
	case classActor:
		return newActor(w)
	case classMainActor:
		return newMainActor(w)
	}
	return nil
}

// loadObject reads one class-tagged object, with any contents, and places
// it in the object table under its saved id.
func (w *World) loadObject(r *encoding.Reader, version uint32) (Object, error) {
	class := r.ReadString()
	if err := r.Err(); err != nil {
		return nil, err
	}
	o := w.newObject(class)
	if o == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownObject, class)
	}
	if err := o.loadData(r, version); err != nil {
		return nil, fmt.Errorf("load %s: %w", class, err)
	}
	it := o.AsItem()
	it.extFlags &^= ExtInCurMap
	if !w.objects.AssignID(it.objID, o) {
		return nil, fmt.Errorf("%w: %d", ErrObjectIDInUse, it.objID)
	}
	return o, nil
}

func writeIDs(out *encoding.Writer, ids []ObjID) {
	out.WriteU32(uint32(len(ids)))
	for _, id := range ids {
		out.WriteU16(uint16(id))
	}
}

func readIDs(r *encoding.Reader) ([]ObjID, error) {
	n := r.ReadU32()
	if err := r.Err(); err != nil {
		return nil, err
	}
	if int(n)*2 > r.Remaining() {
		return nil, errShortList
	}
	ids := make([]ObjID, n)
	for i := range ids {
		ids[i] = ObjID(r.ReadU16())
	}
	return ids, r.Err()
}

// Save writes the whole simulation: random state, objects not held by a
// container (each carrying its contents), the map's chunk lists, the
// ethereal stack, the id allocator and the process table.
func (w *World) Save(out *encoding.Writer) error {
	rs, err := w.pcg.MarshalBinary()
	if err != nil {
		return fmt.Errorf("world save: %w", err)
	}
	out.WriteU32(saveVersion)
	out.WriteU8(uint8(w.rules.Game()))
	out.WriteBytes(rs)
	out.WriteU16(uint16(w.controlled))
	out.WriteU16(uint16(w.nextGump))

	var top []Object
	w.objects.Each(func(o Object) {
		if o.AsItem().parent == 0 {
			top = append(top, o)
		}
	})
	out.WriteU32(uint32(len(top)))
	for _, o := range top {
		w.saveObject(out, o)
	}

	w.cmap.save(out)
	writeIDs(out, w.ethereal)
	w.objects.saveAllocator(out, w.deferred)
	w.kern.Save(out)
	return nil
}

// Load replaces the simulation with a saved one.
func (w *World) Load(r *encoding.Reader) error {
	version := r.ReadU32()
	if err := r.Err(); err != nil {
		return fmt.Errorf("world load: %w", err)
	}
	if version == 0 || version > saveVersion {
		return fmt.Errorf("%w: %d", ErrSaveVersion, version)
	}
	if g := Game(r.ReadU8()); g != w.rules.Game() {
		return fmt.Errorf("%w: %s", ErrSaveGame, g)
	}
	if err := w.pcg.UnmarshalBinary(r.ReadBytes()); err != nil {
		return fmt.Errorf("world load: random state: %w", err)
	}
	w.controlled = ObjID(r.ReadU16())
	w.nextGump = ObjID(r.ReadU16())

	w.objects.Reset()
	w.cmap.Reset()
	w.ethereal = nil
	w.deferred = nil

	n := r.ReadU32()
	if err := r.Err(); err != nil {
		return fmt.Errorf("world load: %w", err)
	}
	if int(n) > r.Remaining() {
		return fmt.Errorf("world load: %d objects: %w", n, errShortList)
	}
	for range n {
		if _, err := w.loadObject(r, version); err != nil {
			return fmt.Errorf("world load: %w", err)
		}
	}

	if err := w.cmap.load(r); err != nil {
		return fmt.Errorf("world load: map: %w", err)
	}
	eth, err := readIDs(r)
	if err != nil {
		return fmt.Errorf("world load: ethereal: %w", err)
	}
	w.ethereal = eth
	if w.deferred, err = w.objects.loadAllocator(r); err != nil {
		return fmt.Errorf("world load: allocator: %w", err)
	}
	if err := w.kern.Load(r, version); err != nil {
		return fmt.Errorf("world load: %w", err)
	}

	w.bindViewProcesses()
	w.restoreTransientFlags()
	return r.Err()
}

// bindViewProcesses points the camera, reticle and crosshair at the loaded
// processes, starting fresh ones where the save had none.
func (w *World) bindViewProcesses() {
	if c, ok := w.kern.FindProcess(0, ProcTypeCamera).(*CameraProcess); ok {
		w.camera = c
	} else {
		c := NewCameraProcess(w, 0)
		w.kern.AddProcess(c)
		w.camera = c
	}
	if ret, ok := w.kern.FindProcess(0, ProcTypeReticle).(*ReticleProcess); ok {
		w.reticle = ret
	} else {
		ret := NewReticleProcess(w)
		w.kern.AddProcess(ret)
		w.reticle = ret
	}
	if ch, ok := w.kern.FindProcess(0, ProcTypeCrosshair).(*CrosshairProcess); ok {
		w.crosshair = ch
	} else {
		ch := NewCrosshairProcess(w)
		w.kern.AddProcess(ch)
		w.crosshair = ch
	}
}

// restoreTransientFlags re-derives the unsaved extended flags from the
// processes that own them.
func (w *World) restoreTransientFlags() {
	for _, p := range w.kern.Processes(0, ProcTypeSprite) {
		if it := w.Item(ObjID(p.ProcBase().ItemNum())); it != nil {
			it.extFlags |= ExtSprite
		}
	}
	for _, p := range w.kern.Processes(0, ProcTypeSuperSprite) {
		if ss, ok := p.(*SuperSpriteProcess); ok {
			if it := w.Item(ss.sprite); it != nil {
				it.extFlags |= ExtSprite
			}
		}
	}
	if c, ok := w.camera.(*CameraProcess); ok {
		if it := w.Item(c.follow); it != nil {
			it.extFlags |= ExtCamera
		}
	}
	if ret, ok := w.reticle.(*ReticleProcess); ok {
		if it := w.Item(ret.target); it != nil {
			it.extFlags |= ExtTarget
		}
	}
}

func (m *ObjectManager) saveAllocator(out *encoding.Writer, deferred []ObjID) {
	out.WriteU16(uint16(m.next))
	writeIDs(out, m.free)
	writeIDs(out, deferred)
}

// loadAllocator restores the id allocator and returns the ids still
// waiting for the next tick, which stay out of circulation until then.
func (m *ObjectManager) loadAllocator(r *encoding.Reader) ([]ObjID, error) {
	next := ObjID(r.ReadU16())
	if next < firstItemID || next > maxObjID {
		next = firstItemID
	}
	free, err := readIDs(r)
	if err != nil {
		return nil, err
	}
	deferred, err := readIDs(r)
	if err != nil {
		return nil, err
	}
	m.next = next
	m.free = m.free[:0]
	for _, id := range free {
		if m.Get(id) == nil {
			m.free = append(m.free, id)
		}
	}
	var pending []ObjID
	for _, id := range deferred {
		if id == 0 || id > maxObjID || m.slots[id].obj != nil {
			continue
		}
		m.slots[id].dead = true
		pending = append(pending, id)
	}
	return pending, nil
}

func (m *CurrentMap) save(out *encoding.Writer) {
	out.WriteBool(m.fastValid)
	out.WriteI32(m.fastCentre.cx)
	out.WriteI32(m.fastCentre.cy)
	keys := m.sortedChunks()
	out.WriteU32(uint32(len(keys)))
	for _, k := range keys {
		out.WriteI32(k.cx)
		out.WriteI32(k.cy)
		writeIDs(out, m.chunks[k])
	}
	writeIDs(out, m.targets.Keys())
}

func (m *CurrentMap) load(r *encoding.Reader) error {
	m.fastValid = r.ReadBool()
	m.fastCentre = chunkKey{cx: r.ReadI32(), cy: r.ReadI32()}
	n := r.ReadU32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(n)*8 > r.Remaining() {
		return errShortList
	}
	for range n {
		k := chunkKey{cx: r.ReadI32(), cy: r.ReadI32()}
		ids, err := readIDs(r)
		if err != nil {
			return err
		}
		for _, id := range ids {
			it := m.w.Item(id)
			if it == nil {
				return fmt.Errorf("chunk (%d,%d): item %d missing", k.cx, k.cy, id)
			}
			it.extFlags |= ExtInCurMap
		}
		if len(ids) > 0 {
			m.chunks[k] = ids
		}
	}
	targets, err := readIDs(r)
	if err != nil {
		return err
	}
	for _, id := range targets {
		m.targets.Set(id, struct{}{})
	}
	return nil
}
