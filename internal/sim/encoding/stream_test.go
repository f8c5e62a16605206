package encoding

import (
	"bytes"
	"errors"
	"testing"
)

func TestStream_RoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteU8(0xAB)
	w.WriteU16(0x1234)
	w.WriteU32(0xDEADBEEF)
	w.WriteI32(-42)
	w.WriteBool(true)
	w.WriteBool(false)
	w.WriteF32(1.5)
	w.WriteString("SuperSpriteProcess")
	w.WriteBytes([]byte{1, 2, 3})
	w.WriteU64(1 << 40)

	r := NewReader(w.Bytes())
	if got := r.ReadU8(); got != 0xAB {
		t.Fatalf("u8: %x", got)
	}
	if got := r.ReadU16(); got != 0x1234 {
		t.Fatalf("u16: %x", got)
	}
	if got := r.ReadU32(); got != 0xDEADBEEF {
		t.Fatalf("u32: %x", got)
	}
	if got := r.ReadI32(); got != -42 {
		t.Fatalf("i32: %d", got)
	}
	if !r.ReadBool() || r.ReadBool() {
		t.Fatalf("bools")
	}
	if got := r.ReadF32(); got != 1.5 {
		t.Fatalf("f32: %v", got)
	}
	if got := r.ReadString(); got != "SuperSpriteProcess" {
		t.Fatalf("string: %q", got)
	}
	if got := r.ReadBytes(); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Fatalf("bytes: %v", got)
	}
	if got := r.ReadU64(); got != 1<<40 {
		t.Fatalf("u64: %d", got)
	}
	if r.Err() != nil || r.Remaining() != 0 {
		t.Fatalf("err=%v remaining=%d", r.Err(), r.Remaining())
	}
}

func TestStream_LittleEndianLayout(t *testing.T) {
	w := NewWriter()
	w.WriteU16(0x0102)
	w.WriteU32(0x03040506)
	want := []byte{0x02, 0x01, 0x06, 0x05, 0x04, 0x03}
	if !bytes.Equal(w.Bytes(), want) {
		t.Fatalf("layout: got %v want %v", w.Bytes(), want)
	}
}

func TestStream_ShortReadSticks(t *testing.T) {
	r := NewReader([]byte{1})
	_ = r.ReadU32()
	if !errors.Is(r.Err(), ErrShortRead) {
		t.Fatalf("expected ErrShortRead, got %v", r.Err())
	}
	if got := r.ReadU8(); got != 0 {
		t.Fatalf("read after failure returned %d", got)
	}
}
