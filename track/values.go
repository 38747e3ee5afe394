package track

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// CompQuat is a quaternion stored as 4 x int16 (x, y, z, w), q = v/32767.
type CompQuat [4]int16

var CompQuatIdent = CompQuat{0, 0, 0, 32767}

func (q CompQuat) Quat() mgl32.Quat {
	return mgl32.Quat{
		W: float32(q[3]) / 32767,
		V: mgl32.Vec3{float32(q[0]) / 32767, float32(q[1]) / 32767, float32(q[2]) / 32767},
	}
}

func quantize(f float32) int16 {
	v := math.Round(float64(f) * 32767)
	if v > 32767 {
		return 32767
	} else if v < -32768 {
		return -32768
	}
	return int16(v)
}

func CompressQuat(q mgl32.Quat) CompQuat {
	if l := q.Len(); l > 0 {
		q = q.Scale(1 / l)
	}
	return CompQuat{quantize(q.V[0]), quantize(q.V[1]), quantize(q.V[2]), quantize(q.W)}
}

// Fixed16 is a fraction stored as int16 out of 32767.
type Fixed16 int16

func (f Fixed16) Float() float32 {
	return float32(f) / 32767
}

func FixedFromFloat(f float32) Fixed16 {
	return Fixed16(quantize(f))
}

// Spline carries a value with its in and out tangents (camera tracks).
type Spline[T any] struct {
	Value      T `json:"value" yaml:"value"`
	InTangent  T `json:"in" yaml:"in"`
	OutTangent T `json:"out" yaml:"out"`
}

// Codec converts one keyframe value to and from its wire form.
type Codec[T any] struct {
	Size  int
	Read  func(b []byte) T
	Write func(b []byte, v T)
}

func f32(b []byte) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b))
}

func putF32(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}

var Float = Codec[float32]{
	Size:  4,
	Read:  f32,
	Write: putF32,
}

var Vec2 = Codec[mgl32.Vec2]{
	Size: 8,
	Read: func(b []byte) mgl32.Vec2 {
		return mgl32.Vec2{f32(b), f32(b[4:])}
	},
	Write: func(b []byte, v mgl32.Vec2) {
		putF32(b, v[0])
		putF32(b[4:], v[1])
	},
}

var Vec3 = Codec[mgl32.Vec3]{
	Size: 12,
	Read: func(b []byte) mgl32.Vec3 {
		return mgl32.Vec3{f32(b), f32(b[4:]), f32(b[8:])}
	},
	Write: func(b []byte, v mgl32.Vec3) {
		putF32(b, v[0])
		putF32(b[4:], v[1])
		putF32(b[8:], v[2])
	},
}

var Quat = Codec[CompQuat]{
	Size: 8,
	Read: func(b []byte) (q CompQuat) {
		for i := range q {
			q[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
		}
		return
	},
	Write: func(b []byte, q CompQuat) {
		for i, c := range q {
			binary.LittleEndian.PutUint16(b[i*2:], uint16(c))
		}
	},
}

var Fixed = Codec[Fixed16]{
	Size:  2,
	Read:  func(b []byte) Fixed16 { return Fixed16(binary.LittleEndian.Uint16(b)) },
	Write: func(b []byte, v Fixed16) { binary.LittleEndian.PutUint16(b, uint16(v)) },
}

var Uint8 = Codec[uint8]{
	Size:  1,
	Read:  func(b []byte) uint8 { return b[0] },
	Write: func(b []byte, v uint8) { b[0] = v },
}

var Uint16 = Codec[uint16]{
	Size:  2,
	Read:  binary.LittleEndian.Uint16,
	Write: binary.LittleEndian.PutUint16,
}

var Uint32 = Codec[uint32]{
	Size:  4,
	Read:  binary.LittleEndian.Uint32,
	Write: binary.LittleEndian.PutUint32,
}

func SplineOf[T any](c Codec[T]) Codec[Spline[T]] {
	return Codec[Spline[T]]{
		Size: c.Size * 3,
		Read: func(b []byte) Spline[T] {
			return Spline[T]{
				Value:      c.Read(b),
				InTangent:  c.Read(b[c.Size:]),
				OutTangent: c.Read(b[c.Size*2:]),
			}
		},
		Write: func(b []byte, v Spline[T]) {
			c.Write(b, v.Value)
			c.Write(b[c.Size:], v.InTangent)
			c.Write(b[c.Size*2:], v.OutTangent)
		},
	}
}

var (
	SplineVec3  = SplineOf(Vec3)
	SplineFloat = SplineOf(Float)
)

// Raw keeps values as opaque byte strings of a fixed size.
func Raw(size int) Codec[[]byte] {
	return Codec[[]byte]{
		Size: size,
		Read: func(b []byte) []byte {
			v := make([]byte, size)
			copy(v, b)
			return v
		},
		Write: func(b []byte, v []byte) { copy(b, v) },
	}
}

// FloatQuat is an uncompressed quaternion (x, y, z, w), used by texture transforms.
var FloatQuat = Codec[mgl32.Quat]{
	Size: 16,
	Read: func(b []byte) mgl32.Quat {
		return mgl32.Quat{W: f32(b[12:]), V: mgl32.Vec3{f32(b), f32(b[4:]), f32(b[8:])}}
	},
	Write: func(b []byte, q mgl32.Quat) {
		putF32(b, q.V[0])
		putF32(b[4:], q.V[1])
		putF32(b[8:], q.V[2])
		putF32(b[12:], q.W)
	},
}
