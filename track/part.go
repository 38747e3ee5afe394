package track

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
)

// PartTrack is the fake-animation block of particle emitters: values over the
// particle lifetime, timestamps as fixed16 fractions of it.
type PartTrack[T any] struct {
	Timestamps []Fixed16 `json:"timestamps" yaml:"timestamps,flow"`
	Values     []T       `json:"values" yaml:"values"`
}

func DecodePart[T any](hdr []byte, codec Codec[T], view *chunk.View) (PartTrack[T], error) {
	if len(hdr) < BLOCK_SIZE {
		return PartTrack[T]{}, errors.Errorf("block header of %d bytes", len(hdr))
	}
	tsRef := chunk.ReadArrayRef(hdr[0:])
	valRef := chunk.ReadArrayRef(hdr[8:])
	if tsRef.Count != valRef.Count {
		return PartTrack[T]{}, errors.Errorf("%d timestamps for %d values", tsRef.Count, valRef.Count)
	}
	tsBuf, err := view.Slice(tsRef, 2)
	if err != nil {
		return PartTrack[T]{}, err
	}
	valBuf, err := view.Slice(valRef, codec.Size)
	if err != nil {
		return PartTrack[T]{}, err
	}
	p := PartTrack[T]{
		Timestamps: make([]Fixed16, tsRef.Count),
		Values:     make([]T, valRef.Count),
	}
	for i := range p.Timestamps {
		p.Timestamps[i] = Fixed16(binary.LittleEndian.Uint16(tsBuf[i*2:]))
		p.Values[i] = codec.Read(valBuf[i*codec.Size:])
	}
	return p, nil
}

// EncodePart appends the block data and returns its 0x10 byte header.
func EncodePart[T any](p PartTrack[T], codec Codec[T], e *chunk.Emitter) []byte {
	hdr := make([]byte, BLOCK_SIZE)
	if len(p.Timestamps) == 0 {
		return hdr
	}
	tsOff := e.Alloc(len(p.Timestamps)*2, dataAlign)
	for i, ts := range p.Timestamps {
		e.SetU16(tsOff+i*2, uint16(ts))
	}
	valOff := e.Alloc(len(p.Values)*codec.Size, dataAlign)
	buf := e.At(valOff, len(p.Values)*codec.Size)
	for i, v := range p.Values {
		codec.Write(buf[i*codec.Size:], v)
	}
	chunk.ArrayRef{Count: uint32(len(p.Timestamps)), Offset: uint32(tsOff)}.Put(hdr[0:])
	chunk.ArrayRef{Count: uint32(len(p.Values)), Offset: uint32(valOff)}.Put(hdr[8:])
	return hdr
}
