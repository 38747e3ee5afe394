// Package chunk reads and writes the length-tagged four-character-code block streams
// used by WMO files, skin/anim sidecars and chunked (Legion+) M2 files.
package chunk

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/pkg/errors"
)

const HEADER_SIZE = 8

var (
	ErrTruncatedChunk   = errors.New("truncated chunk")
	ErrUnknownVersion   = errors.New("unknown version")
	ErrArrayOutOfBounds = errors.New("array out of bounds")
)

// FourCC is kept in reading order ("MVER"), regardless of how the file stores it.
type FourCC [4]byte

func MakeFourCC(s string) FourCC {
	var f FourCC
	copy(f[:], s)
	return f
}

func (f FourCC) String() string {
	return string(f[:])
}

func (f FourCC) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f FourCC) reversed() FourCC {
	return FourCC{f[3], f[2], f[1], f[0]}
}

// Chunk is a located block of a chunk stream. Offset points at the payload.
type Chunk struct {
	FourCC FourCC
	Offset int
	Size   int
}

func (c Chunk) Payload(buf []byte) []byte {
	return buf[c.Offset : c.Offset+c.Size]
}

func (c Chunk) String() string {
	return fmt.Sprintf("%s[o:0x%x,s:0x%x]", c.FourCC, c.Offset, c.Size)
}

// Reader walks a chunk stream. Reversed streams store fourccs back to front, as WMO files do.
type Reader struct {
	buf      []byte
	pos      int
	reversed bool
}

func NewReader(buf []byte, reversed bool) *Reader {
	return &Reader{buf: buf, reversed: reversed}
}

func (r *Reader) Pos() int {
	return r.pos
}

// ReadChunk returns io.EOF once the stream is exhausted.
func (r *Reader) ReadChunk() (FourCC, int, int, error) {
	if r.pos == len(r.buf) {
		return FourCC{}, 0, 0, io.EOF
	}
	if len(r.buf)-r.pos < HEADER_SIZE {
		return FourCC{}, 0, 0, errors.Wrapf(ErrTruncatedChunk, "chunk header at 0x%x", r.pos)
	}
	var fourcc FourCC
	copy(fourcc[:], r.buf[r.pos:r.pos+4])
	if r.reversed {
		fourcc = fourcc.reversed()
	}
	size := int(binary.LittleEndian.Uint32(r.buf[r.pos+4:]))
	payload := r.pos + HEADER_SIZE
	if size > len(r.buf)-payload {
		return fourcc, size, payload, errors.Wrapf(ErrTruncatedChunk, "chunk %s at 0x%x wants 0x%x bytes, 0x%x left",
			fourcc, r.pos, size, len(r.buf)-payload)
	}
	r.pos = payload + size
	return fourcc, size, payload, nil
}

// Index maps a fourcc to every chunk carrying it, in stream order.
type Index struct {
	Chunks []Chunk
	byCC   map[FourCC][]int
}

func BuildIndex(buf []byte, reversed bool) (*Index, error) {
	idx := &Index{byCC: make(map[FourCC][]int)}
	r := NewReader(buf, reversed)
	for {
		fourcc, size, offset, err := r.ReadChunk()
		if err == io.EOF {
			break
		} else if err != nil {
			return idx, err
		}
		idx.byCC[fourcc] = append(idx.byCC[fourcc], len(idx.Chunks))
		idx.Chunks = append(idx.Chunks, Chunk{FourCC: fourcc, Offset: offset, Size: size})
	}
	return idx, nil
}

// Whole wraps an unchunked file as a single pseudo-chunk.
func Whole(buf []byte, fourcc FourCC) *Index {
	c := Chunk{FourCC: fourcc, Offset: 0, Size: len(buf)}
	return &Index{
		Chunks: []Chunk{c},
		byCC:   map[FourCC][]int{fourcc: {0}},
	}
}

func (idx *Index) All(fourcc FourCC) []Chunk {
	ids := idx.byCC[fourcc]
	result := make([]Chunk, len(ids))
	for i, id := range ids {
		result[i] = idx.Chunks[id]
	}
	return result
}

func (idx *Index) First(fourcc FourCC) (Chunk, bool) {
	if ids := idx.byCC[fourcc]; len(ids) != 0 {
		return idx.Chunks[ids[0]], true
	}
	return Chunk{}, false
}

func (idx *Index) Has(fourcc FourCC) bool {
	return len(idx.byCC[fourcc]) != 0
}
