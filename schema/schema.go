// Package schema holds declarative, version gated layouts of every M2 and WMO record.
package schema

import (
	"fmt"
	"sync"

	"github.com/mogaika/wow_model_browser/config"
)

type Type int

const (
	U8 Type = iota
	I8
	U16
	I16
	U32
	I32
	F32
	Vec2
	Vec3
	Vec4
	Quat16    // 4 x int16, q = v/32767
	Color     // 4 x uint8, BGRA
	Array     // count + offset
	Track     // interpolation, global sequence, timestamps, values
	TrackBase // interpolation, global sequence, timestamps
	FBlock    // particle block: timestamps, values
	Bytes     // Field.Len opaque bytes
)

var typeSizes = [...]int{
	U8: 1, I8: 1, U16: 2, I16: 2, U32: 4, I32: 4, F32: 4,
	Vec2: 8, Vec3: 12, Vec4: 16, Quat16: 8, Color: 4,
	Array: 8, Track: 0x14, TrackBase: 0xC, FBlock: 0x10,
}

var typeNames = [...]string{
	U8: "u8", I8: "i8", U16: "u16", I16: "i16", U32: "u32", I32: "i32", F32: "f32",
	Vec2: "vec2", Vec3: "vec3", Vec4: "vec4", Quat16: "quat16", Color: "color",
	Array: "array", Track: "track", TrackBase: "trackbase", FBlock: "fblock", Bytes: "bytes",
}

func (t Type) String() string {
	if t >= 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", int(t))
}

// Scalar reports whether values of the type are plain numbers.
func (t Type) Scalar() bool {
	switch t {
	case Array, Track, TrackBase, FBlock, Bytes:
		return false
	}
	return true
}

// Components is the number of numbers a scalar type carries.
func (t Type) Components() int {
	switch t {
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4, Quat16, Color:
		return 4
	}
	return 1
}

type Field struct {
	Name string
	Type Type
	Len  int
	// Min and Max bound the versions carrying the field. Zero means unbounded.
	Min, Max config.Version
}

func F(name string, t Type) Field {
	return Field{Name: name, Type: t}
}

func Raw(name string, size int) Field {
	return Field{Name: name, Type: Bytes, Len: size}
}

func (f Field) Since(v config.Version) Field {
	f.Min = v
	return f
}

func (f Field) Until(v config.Version) Field {
	f.Max = v
	return f
}

func (f Field) Size() int {
	if f.Type == Bytes {
		return f.Len
	}
	return typeSizes[f.Type]
}

func (f Field) Present(v config.Version) bool {
	if f.Min != config.VersionUnknown && v < f.Min {
		return false
	}
	if f.Max != config.VersionUnknown && v > f.Max {
		return false
	}
	return true
}

type Struct struct {
	Name   string
	Fields []Field

	mu      sync.Mutex
	names   map[string]struct{}
	layouts map[config.Version]*Layout
}

func NewStruct(name string, fields ...Field) *Struct {
	s := &Struct{
		Name:    name,
		Fields:  fields,
		names:   make(map[string]struct{}, len(fields)),
		layouts: make(map[config.Version]*Layout),
	}
	for _, f := range fields {
		if _, dup := s.names[f.Name]; dup {
			panic(fmt.Sprintf("schema %s: duplicate field %q", name, f.Name))
		}
		s.names[f.Name] = struct{}{}
	}
	return s
}

type Placed struct {
	Field
	Offset int
}

// Layout is a Struct filtered for one version, with computed offsets.
type Layout struct {
	Struct  *Struct
	Version config.Version
	Fields  []Placed
	Size    int
	index   map[string]int
}

// Select filters the fields present in version v and lays them out end to end.
func (s *Struct) Select(v config.Version) *Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.layouts[v]; ok {
		return l
	}

	l := &Layout{Struct: s, Version: v, index: make(map[string]int)}
	off := 0
	for _, f := range s.Fields {
		if !f.Present(v) {
			continue
		}
		l.index[f.Name] = len(l.Fields)
		l.Fields = append(l.Fields, Placed{Field: f, Offset: off})
		off += f.Size()
	}
	l.Size = off
	s.layouts[v] = l
	return l
}

func (l *Layout) lookup(name string) (Placed, bool) {
	if i, ok := l.index[name]; ok {
		return l.Fields[i], true
	}
	if _, known := l.Struct.names[name]; !known {
		panic(fmt.Sprintf("schema %s: unknown field %q", l.Struct.Name, name))
	}
	return Placed{}, false
}

func (l *Layout) Has(name string) bool {
	_, ok := l.lookup(name)
	return ok
}

func (l *Layout) Offset(name string) int {
	p, ok := l.lookup(name)
	if !ok {
		return -1
	}
	return p.Offset
}

func (l *Layout) String() string {
	return fmt.Sprintf("%s@%s[0x%x]", l.Struct.Name, l.Version, l.Size)
}
