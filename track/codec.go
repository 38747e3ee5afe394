package track

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
)

const (
	HEADER_SIZE      = 0x14
	BASE_HEADER_SIZE = 0xC
	BLOCK_SIZE       = 0x10

	dataAlign = 16
)

// Header is the wire descriptor of a track (M2Track).
type Header struct {
	Interpolation  uint16
	GlobalSequence int16
	Timestamps     chunk.ArrayRef
	Values         chunk.ArrayRef
}

func ReadHeader(b []byte) Header {
	h := Header{
		Interpolation:  binary.LittleEndian.Uint16(b[0:]),
		GlobalSequence: int16(binary.LittleEndian.Uint16(b[2:])),
		Timestamps:     chunk.ReadArrayRef(b[4:]),
	}
	if len(b) >= HEADER_SIZE {
		h.Values = chunk.ReadArrayRef(b[12:])
	}
	return h
}

func (h Header) Put(b []byte) {
	binary.LittleEndian.PutUint16(b[0:], h.Interpolation)
	binary.LittleEndian.PutUint16(b[2:], uint16(h.GlobalSequence))
	h.Timestamps.Put(b[4:])
	if len(b) >= HEADER_SIZE {
		h.Values.Put(b[12:])
	}
}

func (h Header) Bytes() []byte {
	b := make([]byte, HEADER_SIZE)
	h.Put(b)
	return b
}

// Source resolves the blobs a track reads from.
type Source struct {
	Main *chunk.View
	// Sidecar returns the blob holding the keys of sequence seq, or nil when the
	// keys live in Main. Missing sidecars are reported by the caller.
	Sidecar func(seq int) (view *chunk.View, external bool)

	NumSequences    int
	GlobalSequences []uint32
	// SlotSequence maps outer slots to sequences when set (texture transforms
	// of models with the 0x800 global flag).
	SlotSequence []int
}

func (s *Source) numSlots() int {
	if s.SlotSequence != nil {
		return len(s.SlotSequence)
	}
	return s.NumSequences
}

func (s *Source) slotTarget(slot int) int {
	if s.SlotSequence != nil {
		return s.SlotSequence[slot]
	}
	return slot
}

func (s *Source) blob(seq int) *chunk.View {
	if s.Sidecar != nil && seq >= 0 {
		if v, external := s.Sidecar(seq); external {
			return v
		}
	}
	return s.Main
}

func decode[T any](h Header, codec Codec[T], hasValues bool, src *Source) (Track[T], error) {
	interp := Interpolation(h.Interpolation)
	if !interp.Valid() {
		return Track[T]{}, errors.Errorf("unknown interpolation %d", h.Interpolation)
	}
	if hasValues && h.Timestamps.Count != h.Values.Count {
		return Track[T]{}, errors.Errorf("%d timestamp arrays for %d value arrays", h.Timestamps.Count, h.Values.Count)
	}

	outerTs, err := src.Main.Slice(h.Timestamps, chunk.ARRAY_REF_SIZE)
	if err != nil {
		return Track[T]{}, errors.Wrap(err, "timestamps")
	}
	var outerVals []byte
	if hasValues {
		if outerVals, err = src.Main.Slice(h.Values, chunk.ARRAY_REF_SIZE); err != nil {
			return Track[T]{}, errors.Wrap(err, "values")
		}
	}

	readSlot := func(slot int, blobOf func() *chunk.View) (Keys[T], error) {
		tsRef := chunk.ReadArrayRef(outerTs[slot*chunk.ARRAY_REF_SIZE:])
		var valRef chunk.ArrayRef
		if hasValues {
			valRef = chunk.ReadArrayRef(outerVals[slot*chunk.ARRAY_REF_SIZE:])
			if valRef.Count != tsRef.Count {
				return Keys[T]{}, errors.Errorf("slot %d: %d timestamps for %d values", slot, tsRef.Count, valRef.Count)
			}
		}
		if tsRef.Count == 0 {
			return Keys[T]{}, nil
		}
		blob := blobOf()
		if blob == nil {
			return Keys[T]{}, nil
		}
		tsBuf, err := blob.Slice(tsRef, 4)
		if err != nil {
			return Keys[T]{}, errors.Wrapf(err, "slot %d timestamps", slot)
		}
		k := Keys[T]{Timestamps: make([]uint32, tsRef.Count)}
		for i := range k.Timestamps {
			k.Timestamps[i] = binary.LittleEndian.Uint32(tsBuf[i*4:])
		}
		k.Values = make([]T, tsRef.Count)
		if hasValues {
			valBuf, err := blob.Slice(valRef, codec.Size)
			if err != nil {
				return Keys[T]{}, errors.Wrapf(err, "slot %d values", slot)
			}
			for i := range k.Values {
				k.Values[i] = codec.Read(valBuf[i*codec.Size:])
			}
		}
		return k, nil
	}

	if h.GlobalSequence >= 0 {
		if int(h.GlobalSequence) >= len(src.GlobalSequences) {
			return Track[T]{}, errors.Errorf("global sequence %d of %d", h.GlobalSequence, len(src.GlobalSequences))
		}
		t := Track[T]{Interpolation: interp, global: true, globalSeq: int(h.GlobalSequence)}
		if h.Timestamps.Count > 1 {
			return Track[T]{}, errors.Errorf("global track with %d slots", h.Timestamps.Count)
		}
		if h.Timestamps.Count == 1 {
			k, err := readSlot(0, func() *chunk.View { return src.Main })
			if err != nil {
				return Track[T]{}, err
			}
			t.Sequences = []Keys[T]{k}
		}
		return t, nil
	}

	t := NewPerSequence[T](interp, src.NumSequences)
	if h.Timestamps.Count == 0 {
		return t, nil
	}
	if int(h.Timestamps.Count) != src.numSlots() {
		return t, errors.Errorf("%d slots for %d sequences", h.Timestamps.Count, src.numSlots())
	}
	for slot := 0; slot < src.numSlots(); slot++ {
		seq := src.slotTarget(slot)
		if seq < 0 || seq >= src.NumSequences {
			continue
		}
		k, err := readSlot(slot, func() *chunk.View { return src.blob(seq) })
		if err != nil {
			return t, err
		}
		t.Sequences[seq] = k
	}
	return t, nil
}

// Decode reads a track from its 0x14 byte header.
func Decode[T any](hdr []byte, codec Codec[T], src *Source) (Track[T], error) {
	if len(hdr) < HEADER_SIZE {
		return Track[T]{}, errors.Errorf("track header of %d bytes", len(hdr))
	}
	return decode(ReadHeader(hdr), codec, true, src)
}

// DecodeTimeline reads a 0xC byte header carrying timestamps only (event tracks).
func DecodeTimeline(hdr []byte, src *Source) (Track[struct{}], error) {
	if len(hdr) < BASE_HEADER_SIZE {
		return Track[struct{}]{}, errors.Errorf("track header of %d bytes", len(hdr))
	}
	return decode(ReadHeader(hdr[:BASE_HEADER_SIZE]), Codec[struct{}]{}, false, src)
}

// Sink receives encoded keyframes.
type Sink struct {
	Main *chunk.Emitter
	// Sidecar returns the emitter for keys of sequence seq, or nil to keep them in Main.
	Sidecar func(seq int) *chunk.Emitter

	NumSequences int
	SlotSequence []int
}

func (s *Sink) numSlots() int {
	if s.SlotSequence != nil {
		return len(s.SlotSequence)
	}
	return s.NumSequences
}

func (s *Sink) slotTarget(slot int) int {
	if s.SlotSequence != nil {
		return s.SlotSequence[slot]
	}
	return slot
}

func (s *Sink) out(seq int) *chunk.Emitter {
	if s.Sidecar != nil && seq >= 0 {
		if e := s.Sidecar(seq); e != nil {
			return e
		}
	}
	return s.Main
}

func encode[T any](t *Track[T], codec Codec[T], hasValues bool, sink *Sink) Header {
	h := Header{Interpolation: uint16(t.Interpolation), GlobalSequence: int16(t.GlobalSequence())}

	if t.Empty() {
		return h
	}
	slots := len(t.Sequences)
	if !t.global {
		slots = sink.numSlots()
	}
	if slots == 0 {
		return h
	}

	tsOuter := sink.Main.Alloc(slots*chunk.ARRAY_REF_SIZE, dataAlign)
	h.Timestamps = chunk.ArrayRef{Count: uint32(slots), Offset: uint32(tsOuter)}
	valOuter := 0
	if hasValues {
		valOuter = sink.Main.Alloc(slots*chunk.ARRAY_REF_SIZE, dataAlign)
		h.Values = chunk.ArrayRef{Count: uint32(slots), Offset: uint32(valOuter)}
	}

	for slot := 0; slot < slots; slot++ {
		var k Keys[T]
		out := sink.Main
		if t.global {
			k = t.Sequences[0]
		} else {
			seq := sink.slotTarget(slot)
			k = t.Keys(seq)
			out = sink.out(seq)
		}
		if len(k.Timestamps) == 0 {
			continue
		}

		tsOff := out.Alloc(len(k.Timestamps)*4, dataAlign)
		for i, ts := range k.Timestamps {
			out.SetU32(tsOff+i*4, ts)
		}
		sink.Main.SetRef(tsOuter+slot*chunk.ARRAY_REF_SIZE, chunk.ArrayRef{Count: uint32(len(k.Timestamps)), Offset: uint32(tsOff)})

		if hasValues {
			valOff := out.Alloc(len(k.Values)*codec.Size, dataAlign)
			buf := out.At(valOff, len(k.Values)*codec.Size)
			for i, v := range k.Values {
				codec.Write(buf[i*codec.Size:], v)
			}
			sink.Main.SetRef(valOuter+slot*chunk.ARRAY_REF_SIZE, chunk.ArrayRef{Count: uint32(len(k.Values)), Offset: uint32(valOff)})
		}
	}
	return h
}

// Encode appends the keyframes of t and returns its header.
// An empty track encodes as zero counts and offsets.
func Encode[T any](t *Track[T], codec Codec[T], sink *Sink) Header {
	return encode(t, codec, true, sink)
}

func EncodeTimeline(t *Track[struct{}], sink *Sink) Header {
	return encode(t, Codec[struct{}]{}, false, sink)
}

// Fallback is the empty track standing in for one that failed to decode.
// An empty track evaluates to the default the caller passes to Evaluate, so it
// is the constant default of T without storing a key. It keeps the header's
// interpolation and global sequence, and encodes back as zero counts.
func Fallback[T any](hdr []byte, numSequences int) Track[T] {
	h := ReadHeader(hdr)
	interp := Interpolation(h.Interpolation)
	if !interp.Valid() {
		interp = None
	}
	if h.GlobalSequence >= 0 {
		t := NewGlobal[T](interp, int(h.GlobalSequence))
		t.Sequences = nil
		return t
	}
	return NewPerSequence[T](interp, numSequences)
}
