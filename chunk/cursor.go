package chunk

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
)

// Cursor reads little-endian values sequentially. The first overrun is sticky:
// later reads return zeros and Err reports the failure.
type Cursor struct {
	buf []byte
	pos int
	err error
}

func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

func (c *Cursor) Pos() int       { return c.pos }
func (c *Cursor) Err() error     { return c.err }
func (c *Cursor) Remaining() int { return len(c.buf) - c.pos }

func (c *Cursor) Read(amount int) []byte {
	if c.err != nil || amount > len(c.buf)-c.pos {
		if c.err == nil {
			c.err = errors.Wrapf(ErrTruncatedChunk, "read 0x%x at 0x%x of 0x%x", amount, c.pos, len(c.buf))
		}
		return make([]byte, amount)
	}
	old := c.pos
	c.pos += amount
	return c.buf[old:c.pos]
}

func (c *Cursor) Skip(amount int) {
	c.Read(amount)
}

func (c *Cursor) U8() uint8   { return c.Read(1)[0] }
func (c *Cursor) I8() int8    { return int8(c.U8()) }
func (c *Cursor) U16() uint16 { return binary.LittleEndian.Uint16(c.Read(2)) }
func (c *Cursor) I16() int16  { return int16(c.U16()) }
func (c *Cursor) U32() uint32 { return binary.LittleEndian.Uint32(c.Read(4)) }
func (c *Cursor) I32() int32  { return int32(c.U32()) }
func (c *Cursor) F32() float32 {
	return math.Float32frombits(c.U32())
}

func (c *Cursor) Vec2() mgl32.Vec2 {
	return mgl32.Vec2{c.F32(), c.F32()}
}

func (c *Cursor) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{c.F32(), c.F32(), c.F32()}
}

func (c *Cursor) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{c.F32(), c.F32(), c.F32(), c.F32()}
}

func (c *Cursor) ArrayRef() ArrayRef {
	return ReadArrayRef(c.Read(ARRAY_REF_SIZE))
}
