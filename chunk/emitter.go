package chunk

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Emitter is a growing output blob. Writers reserve space with Alloc and patch it
// by offset, since appends may move the backing array.
type Emitter struct {
	buf []byte
}

func (e *Emitter) Len() int      { return len(e.buf) }
func (e *Emitter) Bytes() []byte { return e.buf }

// Buf exposes the backing slice to offset based record writers.
func (e *Emitter) Buf() *[]byte { return &e.buf }

func (e *Emitter) Pad(align int) {
	if align <= 1 {
		return
	}
	if r := len(e.buf) % align; r != 0 {
		e.buf = append(e.buf, make([]byte, align-r)...)
	}
}

// Alloc appends size zero bytes at the next multiple of align and returns their offset.
func (e *Emitter) Alloc(size, align int) int {
	e.Pad(align)
	off := len(e.buf)
	e.buf = append(e.buf, make([]byte, size)...)
	return off
}

func (e *Emitter) Append(data []byte, align int) int {
	e.Pad(align)
	off := len(e.buf)
	e.buf = append(e.buf, data...)
	return off
}

func (e *Emitter) At(off, size int) []byte {
	return e.buf[off : off+size]
}

func (e *Emitter) SetU8(off int, v uint8)   { e.buf[off] = v }
func (e *Emitter) SetU16(off int, v uint16) { binary.LittleEndian.PutUint16(e.buf[off:], v) }
func (e *Emitter) SetU32(off int, v uint32) { binary.LittleEndian.PutUint32(e.buf[off:], v) }
func (e *Emitter) SetF32(off int, v float32) {
	binary.LittleEndian.PutUint32(e.buf[off:], math.Float32bits(v))
}
func (e *Emitter) SetRef(off int, ref ArrayRef) { ref.Put(e.buf[off:]) }

func (e *Emitter) WriteU8(v uint8) { e.buf = append(e.buf, v) }
func (e *Emitter) WriteI8(v int8)  { e.WriteU8(uint8(v)) }
func (e *Emitter) WriteU16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}
func (e *Emitter) WriteI16(v int16) { e.WriteU16(uint16(v)) }
func (e *Emitter) WriteU32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}
func (e *Emitter) WriteI32(v int32)   { e.WriteU32(uint32(v)) }
func (e *Emitter) WriteF32(v float32) { e.WriteU32(math.Float32bits(v)) }

func (e *Emitter) WriteVec2(v mgl32.Vec2) {
	e.WriteF32(v[0])
	e.WriteF32(v[1])
}

func (e *Emitter) WriteVec3(v mgl32.Vec3) {
	e.WriteF32(v[0])
	e.WriteF32(v[1])
	e.WriteF32(v[2])
}

func (e *Emitter) WriteVec4(v mgl32.Vec4) {
	for _, f := range v {
		e.WriteF32(f)
	}
}

func (e *Emitter) WriteRef(ref ArrayRef) {
	var b [ARRAY_REF_SIZE]byte
	ref.Put(b[:])
	e.buf = append(e.buf, b[:]...)
}

func (e *Emitter) Write(p []byte) (int, error) {
	e.buf = append(e.buf, p...)
	return len(p), nil
}
