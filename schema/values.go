package schema

import (
	"encoding/binary"
	"math"
)

// Value is one scalar field captured by name, for records whose long tail of
// parameters is carried through rather than modeled.
type Value struct {
	Name string    `json:"name" yaml:"name"`
	V    []float64 `json:"v" yaml:"v,flow"`
}

type Values []Value

func (vs Values) Get(name string) (float64, bool) {
	for _, v := range vs {
		if v.Name == name && len(v.V) != 0 {
			return v.V[0], true
		}
	}
	return 0, false
}

func (vs *Values) Set(name string, v ...float64) {
	for i := range *vs {
		if (*vs)[i].Name == name {
			(*vs)[i].V = v
			return
		}
	}
	*vs = append(*vs, Value{Name: name, V: v})
}

func componentSize(t Type) int {
	switch t {
	case U8, I8, Color:
		return 1
	case U16, I16, Quat16:
		return 2
	}
	return 4
}

func readComponent(t Type, b []byte) float64 {
	switch t {
	case U8, Color:
		return float64(b[0])
	case I8:
		return float64(int8(b[0]))
	case U16:
		return float64(binary.LittleEndian.Uint16(b))
	case I16, Quat16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case U32:
		return float64(binary.LittleEndian.Uint32(b))
	case I32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	}
	return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
}

func writeComponent(t Type, b []byte, v float64) {
	switch t {
	case U8, Color:
		b[0] = uint8(v)
	case I8:
		b[0] = uint8(int8(v))
	case U16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case I16, Quat16:
		binary.LittleEndian.PutUint16(b, uint16(int16(v)))
	case U32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case I32:
		binary.LittleEndian.PutUint32(b, uint32(int32(v)))
	default:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	}
}

// Scalars captures every scalar field in layout order, except the named ones.
func (r Record) Scalars(skip ...string) Values {
	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[s] = true
	}
	var result Values
	for _, p := range r.l.Fields {
		if !p.Type.Scalar() || skipped[p.Name] {
			continue
		}
		b := r.bytes(p.Name)
		cs := componentSize(p.Type)
		v := make([]float64, p.Type.Components())
		for i := range v {
			v[i] = readComponent(p.Type, b[i*cs:])
		}
		result = append(result, Value{Name: p.Name, V: v})
	}
	return result
}

// SetScalars writes captured values back. Names the layout lacks are ignored.
func (r Record) SetScalars(vs Values) {
	for _, v := range vs {
		p, ok := r.l.index[v.Name]
		if !ok {
			continue
		}
		placed := r.l.Fields[p]
		if !placed.Type.Scalar() {
			continue
		}
		b := r.bytes(v.Name)
		cs := componentSize(placed.Type)
		for i := 0; i < len(v.V) && i < placed.Type.Components(); i++ {
			writeComponent(placed.Type, b[i*cs:], v.V[i])
		}
	}
}
