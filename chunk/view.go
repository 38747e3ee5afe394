package chunk

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

const ARRAY_REF_SIZE = 8

// ArrayRef is a (count, offset) pair. Offsets are absolute from the start of the blob.
type ArrayRef struct {
	Count  uint32
	Offset uint32
}

func ReadArrayRef(b []byte) ArrayRef {
	return ArrayRef{
		Count:  binary.LittleEndian.Uint32(b[0:]),
		Offset: binary.LittleEndian.Uint32(b[4:]),
	}
}

func (a ArrayRef) Put(b []byte) {
	binary.LittleEndian.PutUint32(b[0:], a.Count)
	binary.LittleEndian.PutUint32(b[4:], a.Offset)
}

func (a ArrayRef) Empty() bool {
	return a.Count == 0
}

type region struct {
	name       string
	start, end int
}

// View resolves array references against a blob and remembers
// registered regions to detect overlapping arrays.
type View struct {
	name    string
	buf     []byte
	regions []region
}

func NewView(name string, buf []byte) *View {
	return &View{name: name, buf: buf}
}

func (v *View) Name() string {
	return v.name
}

func (v *View) Bytes() []byte {
	return v.buf
}

// Slice resolves ref without registering it.
func (v *View) Slice(ref ArrayRef, elemSize int) ([]byte, error) {
	if ref.Count == 0 {
		return nil, nil
	}
	size := uint64(ref.Count) * uint64(elemSize)
	end := uint64(ref.Offset) + size
	if end > uint64(len(v.buf)) {
		return nil, errors.Wrapf(ErrArrayOutOfBounds, "%s: [0x%x+%dx%d] exceeds 0x%x",
			v.name, ref.Offset, ref.Count, elemSize, len(v.buf))
	}
	return v.buf[ref.Offset:end], nil
}

// Array resolves ref and registers it for the overlap check.
func (v *View) Array(name string, ref ArrayRef, elemSize int) ([]byte, error) {
	b, err := v.Slice(ref, elemSize)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	if len(b) != 0 {
		v.regions = append(v.regions, region{
			name:  name,
			start: int(ref.Offset),
			end:   int(ref.Offset) + len(b),
		})
	}
	return b, nil
}

func (v *View) sortedRegions() []region {
	regions := make([]region, len(v.regions))
	copy(regions, v.regions)
	sort.SliceStable(regions, func(i, j int) bool {
		return regions[i].start < regions[j].start
	})
	return regions
}

// CheckOverlaps fails when two registered arrays share bytes.
func (v *View) CheckOverlaps() error {
	regions := v.sortedRegions()
	for i := 1; i < len(regions); i++ {
		prev, cur := regions[i-1], regions[i]
		if cur.start < prev.end {
			return errors.Errorf("%s: array %s [0x%x:0x%x] overlaps %s [0x%x:0x%x]",
				v.name, cur.name, cur.start, cur.end, prev.name, prev.start, prev.end)
		}
	}
	return nil
}

// StringTree lists registered arrays with gaps between them.
func (v *View) StringTree() string {
	s := fmt.Sprintf("view<%s>[s:0x%x]\n", v.name, len(v.buf))
	pos := 0
	for _, r := range v.sortedRegions() {
		if r.start > pos {
			s += fmt.Sprintf(".  gap [o:0x%x,s:0x%x]\n", pos, r.start-pos)
		} else if r.start < pos {
			s += ". [OVERLAP]\n"
		}
		s += fmt.Sprintf(".  %s [o:0x%x,s:0x%x]\n", r.name, r.start, r.end-r.start)
		if r.end > pos {
			pos = r.end
		}
	}
	return s
}
