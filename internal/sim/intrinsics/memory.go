package intrinsics

import "encoding/binary"

// Pointer segments. A usecode pointer is seg<<16 | offset; segments from
// SegStackFirst to SegStackLast name the stack of that process.
const (
	SegStack      uint16 = 0x0000
	SegStackFirst uint16 = 0x0001
	SegStackLast  uint16 = 0x7FFE
	SegString     uint16 = 0x8000
	SegList       uint16 = 0x8001
	SegObj        uint16 = 0x8002
	SegGlobal     uint16 = 0x8003
)

// Ptr builds a pointer from a segment and offset.
func Ptr(seg, off uint16) uint32 { return uint32(seg)<<16 | uint32(off) }

// ObjPtr is the pointer usecode passes for an object id.
func ObjPtr(id uint16) uint32 { return Ptr(SegObj, id) }

func segOf(ptr uint32) uint16 { return uint16(ptr >> 16) }

// Memory is the usecode address space the intrinsics dereference.
type Memory interface {
	Read(ptr uint32, n int) ([]byte, bool)
	Assign(ptr uint32, data []byte) bool
}

// ObjectAt resolves a pointer to an object id. Object and string pointers
// carry the id in the offset; stack and global pointers address a stored
// 16-bit id.
func ObjectAt(m Memory, ptr uint32) uint16 {
	switch seg := segOf(ptr); {
	case seg == SegObj || seg == SegString:
		return uint16(ptr)
	case seg == SegGlobal || seg <= SegStackLast:
		b, ok := m.Read(ptr, 2)
		if !ok {
			return 0
		}
		return binary.LittleEndian.Uint16(b)
	default:
		return 0
	}
}

// Scratch is a sparse byte-addressed Memory for stack and global segments.
type Scratch struct {
	bytes map[uint32]byte
}

func NewScratch() *Scratch { return &Scratch{bytes: map[uint32]byte{}} }

func writable(ptr uint32) bool {
	seg := segOf(ptr)
	return seg == SegGlobal || seg <= SegStackLast
}

func (s *Scratch) Read(ptr uint32, n int) ([]byte, bool) {
	if !writable(ptr) {
		return nil, false
	}
	out := make([]byte, n)
	for i := range out {
		out[i] = s.bytes[ptr+uint32(i)]
	}
	return out, true
}

func (s *Scratch) Assign(ptr uint32, data []byte) bool {
	if !writable(ptr) {
		return false
	}
	for i, b := range data {
		s.bytes[ptr+uint32(i)] = b
	}
	return true
}

// Uint16At reads a stored word, 0 when unreadable.
func (s *Scratch) Uint16At(ptr uint32) uint16 {
	b, ok := s.Read(ptr, 2)
	if !ok {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// PutWorldPoint stores a five-byte usecode point: x and y words, z byte.
func PutWorldPoint(m Memory, ptr uint32, x, y int32, z int32) bool {
	b := binary.LittleEndian.AppendUint16(nil, uint16(x))
	b = binary.LittleEndian.AppendUint16(b, uint16(y))
	return m.Assign(ptr, append(b, uint8(z)))
}
