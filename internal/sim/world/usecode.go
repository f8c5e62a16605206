package world

import (
	"encoding/binary"
	"slices"

	"u8sim/internal/sim/catalogs"
	"u8sim/internal/sim/encoding"
	"u8sim/internal/sim/kernel"
)

// Usecode runs item event handlers. CallEvent returns the pid of the
// process running the handler, or 0 when the class has none for event.
type Usecode interface {
	CallEvent(w *World, item ObjID, class, event uint32, args []byte) kernel.ProcID
}

type nopUsecode struct{}

func (nopUsecode) CallEvent(*World, ObjID, uint32, uint32, []byte) kernel.ProcID { return 0 }

// ucArgs packs event arguments as a usecode stack frame: 16-bit words,
// little endian, in call order.
func ucArgs(vals ...uint16) []byte {
	b := make([]byte, 0, 2*len(vals))
	for _, v := range vals {
		b = binary.LittleEndian.AppendUint16(b, v)
	}
	return b
}

// classID picks the usecode class for the item. ok is false for items that
// have no usecode at all.
func (it *Item) classID() (uint32, bool) {
	tr := it.world.rules.Traits()
	if it.objID < firstItemID {
		if it.extFlags&ExtPermanentNPC != 0 {
			return uint32(it.objID) + tr.NpcClassBase, true
		}
		if it.world.rules.Game() == GameU8 && it.flags&FlagFastOnly == 0 {
			return 0, false
		}
	}
	if it.Family() == catalogs.FamilyUnkEgg {
		return uint32(it.quality) + tr.EggClassBase, true
	}
	return it.shape, true
}

func (it *Item) callUsecodeEvent(event uint32, args []byte) kernel.ProcID {
	class, ok := it.classID()
	if !ok {
		return 0
	}
	return it.world.usecode.CallEvent(it.world, it.objID, class, event, args)
}

// CallUsecodeEvent exposes event dispatch to intrinsics and tools.
func (it *Item) CallUsecodeEvent(event uint32, args []byte) kernel.ProcID {
	return it.callUsecodeEvent(event, args)
}

// ScriptHandler is a native stand-in for a usecode function. Its return
// value becomes the process result.
type ScriptHandler func(w *World, it *Item, args []byte) uint32

type scriptKey struct{ class, event uint32 }

// EventCall records one dispatched event.
type EventCall struct {
	Item  ObjID
	Class uint32
	Event uint32
	Args  []byte
}

// ScriptTable is a Usecode backed by Go handlers. Every dispatched event is
// recorded, handled or not.
type ScriptTable struct {
	handlers map[scriptKey]ScriptHandler
	calls    []EventCall
}

func NewScriptTable() *ScriptTable {
	return &ScriptTable{handlers: map[scriptKey]ScriptHandler{}}
}

// Handle installs h for event on class, replacing any earlier handler.
func (t *ScriptTable) Handle(class, event uint32, h ScriptHandler) {
	t.handlers[scriptKey{class, event}] = h
}

func (t *ScriptTable) lookup(class, event uint32) ScriptHandler {
	return t.handlers[scriptKey{class, event}]
}

func (t *ScriptTable) Calls() []EventCall { return slices.Clone(t.calls) }

// CallsFor lists the recorded calls of one event.
func (t *ScriptTable) CallsFor(event uint32) []EventCall {
	var out []EventCall
	for _, c := range t.calls {
		if c.Event == event {
			out = append(out, c)
		}
	}
	return out
}

func (t *ScriptTable) ResetCalls() { t.calls = t.calls[:0] }

func (t *ScriptTable) CallEvent(w *World, item ObjID, class, event uint32, args []byte) kernel.ProcID {
	t.calls = append(t.calls, EventCall{Item: item, Class: class, Event: event, Args: slices.Clone(args)})
	if t.lookup(class, event) == nil {
		return 0
	}
	return w.kern.AddProcess(newScriptProcess(w, item, class, event, args))
}

const classScriptProcess = "ScriptProcess"

// ScriptProcess runs one event handler on its first tick.
type ScriptProcess struct {
	kernel.Base
	w     *World
	class uint32
	event uint32
	args  []byte
}

func newScriptProcess(w *World, item ObjID, class, event uint32, args []byte) *ScriptProcess {
	return &ScriptProcess{
		Base:  kernel.NewBase(uint16(item), ProcTypeScript),
		w:     w,
		class: class,
		event: event,
		args:  slices.Clone(args),
	}
}

func (p *ScriptProcess) ClassName() string { return classScriptProcess }

func (p *ScriptProcess) Run() {
	var res uint32
	if t, ok := p.w.usecode.(*ScriptTable); ok {
		if h := t.lookup(p.class, p.event); h != nil {
			res = h(p.w, p.w.Item(ObjID(p.ItemNum())), p.args)
		}
	}
	p.SetResult(res)
	p.Terminate()
}

func (p *ScriptProcess) SaveData(w *encoding.Writer) {
	p.Base.SaveData(w)
	w.WriteU32(p.class)
	w.WriteU32(p.event)
	w.WriteBytes(p.args)
}

func (p *ScriptProcess) LoadData(r *encoding.Reader, version uint32) error {
	if err := p.Base.LoadData(r, version); err != nil {
		return err
	}
	p.class = r.ReadU32()
	p.event = r.ReadU32()
	p.args = r.ReadBytes()
	return r.Err()
}
