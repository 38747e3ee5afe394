package schema

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/chunk"
)

// Record reads and writes fields of one record by name. Fields absent in the
// layout's version read as zero and ignore writes.
type Record struct {
	l   *Layout
	buf *[]byte
	off int
}

func (l *Layout) Bind(b []byte) Record {
	return Record{l: l, buf: &b}
}

// BindAt binds to a record inside a growing buffer, re-reading the slice on every access.
func (l *Layout) BindAt(buf *[]byte, off int) Record {
	return Record{l: l, buf: buf, off: off}
}

func (l *Layout) BindEmitter(e *chunk.Emitter, off int) Record {
	return l.BindAt(e.Buf(), off)
}

// Element binds record i of an array of records.
func (l *Layout) Element(b []byte, i int) Record {
	return l.Bind(b[i*l.Size : (i+1)*l.Size])
}

func (r Record) Layout() *Layout {
	return r.l
}

func (r Record) Has(name string) bool {
	return r.l.Has(name)
}

func (r Record) bytes(name string) []byte {
	p, ok := r.l.lookup(name)
	if !ok {
		return nil
	}
	start := r.off + p.Offset
	return (*r.buf)[start : start+p.Size()]
}

func (r Record) U8(name string) uint8 {
	if b := r.bytes(name); b != nil {
		return b[0]
	}
	return 0
}

func (r Record) I8(name string) int8 { return int8(r.U8(name)) }

func (r Record) U16(name string) uint16 {
	if b := r.bytes(name); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r Record) I16(name string) int16 { return int16(r.U16(name)) }

func (r Record) U32(name string) uint32 {
	if b := r.bytes(name); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r Record) I32(name string) int32 { return int32(r.U32(name)) }

func (r Record) F32(name string) float32 {
	return math.Float32frombits(r.U32(name))
}

func readFloats(b []byte, out []float32) {
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
}

func (r Record) Vec2(name string) (v mgl32.Vec2) {
	if b := r.bytes(name); b != nil {
		readFloats(b, v[:])
	}
	return
}

func (r Record) Vec3(name string) (v mgl32.Vec3) {
	if b := r.bytes(name); b != nil {
		readFloats(b, v[:])
	}
	return
}

func (r Record) Vec4(name string) (v mgl32.Vec4) {
	if b := r.bytes(name); b != nil {
		readFloats(b, v[:])
	}
	return
}

func (r Record) Quat16(name string) (q [4]int16) {
	if b := r.bytes(name); b != nil {
		for i := range q {
			q[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
		}
	}
	return
}

func (r Record) Color(name string) (c [4]uint8) {
	copy(c[:], r.bytes(name))
	return
}

func (r Record) Array(name string) chunk.ArrayRef {
	if b := r.bytes(name); b != nil {
		return chunk.ReadArrayRef(b)
	}
	return chunk.ArrayRef{}
}

// Raw returns the field bytes, aliasing the record buffer. Nil if absent.
func (r Record) Raw(name string) []byte {
	return r.bytes(name)
}

func (r Record) SetU8(name string, v uint8) {
	if b := r.bytes(name); b != nil {
		b[0] = v
	}
}

func (r Record) SetI8(name string, v int8) { r.SetU8(name, uint8(v)) }

func (r Record) SetU16(name string, v uint16) {
	if b := r.bytes(name); b != nil {
		binary.LittleEndian.PutUint16(b, v)
	}
}

func (r Record) SetI16(name string, v int16) { r.SetU16(name, uint16(v)) }

func (r Record) SetU32(name string, v uint32) {
	if b := r.bytes(name); b != nil {
		binary.LittleEndian.PutUint32(b, v)
	}
}

func (r Record) SetI32(name string, v int32) { r.SetU32(name, uint32(v)) }

func (r Record) SetF32(name string, v float32) { r.SetU32(name, math.Float32bits(v)) }

func writeFloats(b []byte, in []float32) {
	for i, f := range in {
		binary.LittleEndian.PutUint32(b[i*4:], math.Float32bits(f))
	}
}

func (r Record) SetVec2(name string, v mgl32.Vec2) {
	if b := r.bytes(name); b != nil {
		writeFloats(b, v[:])
	}
}

func (r Record) SetVec3(name string, v mgl32.Vec3) {
	if b := r.bytes(name); b != nil {
		writeFloats(b, v[:])
	}
}

func (r Record) SetVec4(name string, v mgl32.Vec4) {
	if b := r.bytes(name); b != nil {
		writeFloats(b, v[:])
	}
}

func (r Record) SetQuat16(name string, q [4]int16) {
	if b := r.bytes(name); b != nil {
		for i, c := range q {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(c))
		}
	}
}

func (r Record) SetColor(name string, c [4]uint8) {
	copy(r.bytes(name), c[:])
}

func (r Record) SetArray(name string, ref chunk.ArrayRef) {
	if b := r.bytes(name); b != nil {
		ref.Put(b)
	}
}

func (r Record) SetRaw(name string, data []byte) {
	copy(r.bytes(name), data)
}
