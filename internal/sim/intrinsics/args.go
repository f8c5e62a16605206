package intrinsics

import (
	"encoding/binary"

	"u8sim/internal/sim/geom"
	"u8sim/internal/sim/world"
)

// Call is one intrinsic invocation: the world, the packed argument frame
// and the memory its pointers refer to. Arguments are read in order;
// reading past the end yields zeros.
type Call struct {
	World *world.World
	Mem   Memory
	args  []byte
	pos   int
}

func NewCall(w *world.World, mem Memory, args []byte) *Call {
	return &Call{World: w, Mem: mem, args: args}
}

func (c *Call) take(n int) []byte {
	out := make([]byte, n)
	if c.pos < len(c.args) {
		copy(out, c.args[c.pos:])
	}
	c.pos += n
	return out
}

// Uint8 reads a stack word and keeps its low byte.
func (c *Call) Uint8() uint8   { return c.take(2)[0] }
func (c *Call) Uint16() uint16 { return binary.LittleEndian.Uint16(c.take(2)) }
func (c *Call) Sint16() int16  { return int16(c.Uint16()) }
func (c *Call) Uint32() uint32 { return binary.LittleEndian.Uint32(c.take(4)) }
func (c *Call) Null16()        { c.pos += 2 }
func (c *Call) Null32()        { c.pos += 4 }

// More reports whether unread arguments remain.
func (c *Call) More() bool { return c.pos < len(c.args) }

// Pointer reads a four-byte usecode pointer.
func (c *Call) Pointer() uint32 { return c.Uint32() }

// ItemFromPtr reads a pointer and resolves the item it refers to.
func (c *Call) ItemFromPtr() *world.Item {
	return c.World.Item(world.ObjID(ObjectAt(c.Mem, c.Pointer())))
}

func (c *Call) ItemFromID() *world.Item {
	return c.World.Item(world.ObjID(c.Uint16()))
}

func (c *Call) ContainerFromPtr() *world.Container {
	return c.World.Container(world.ObjID(ObjectAt(c.Mem, c.Pointer())))
}

func (c *Call) ContainerFromID() *world.Container {
	return c.World.Container(world.ObjID(c.Uint16()))
}

// WorldPoint reads a pointer to a five-byte usecode point. ok is false when
// the pointer cannot be dereferenced.
func (c *Call) WorldPoint() (geom.Point3, bool) {
	b, ok := c.Mem.Read(c.Pointer(), 5)
	if !ok {
		return geom.Point3{}, false
	}
	return geom.Point3{
		X: int32(binary.LittleEndian.Uint16(b)),
		Y: int32(binary.LittleEndian.Uint16(b[2:])),
		Z: int32(b[4]),
	}, true
}

// ArgWriter packs an argument frame the way Call reads it.
type ArgWriter struct{ b []byte }

func (a *ArgWriter) Uint16(v uint16) *ArgWriter {
	a.b = binary.LittleEndian.AppendUint16(a.b, v)
	return a
}

func (a *ArgWriter) Sint16(v int16) *ArgWriter { return a.Uint16(uint16(v)) }

func (a *ArgWriter) Uint32(v uint32) *ArgWriter {
	a.b = binary.LittleEndian.AppendUint32(a.b, v)
	return a
}

// Item appends an object pointer to id.
func (a *ArgWriter) Item(id world.ObjID) *ArgWriter { return a.Uint32(ObjPtr(uint16(id))) }

func (a *ArgWriter) Bytes() []byte { return a.b }
