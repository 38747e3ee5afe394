package track

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/chunk"
)

func roundTrip[T any](t *testing.T, tr *Track[T], codec Codec[T], numSeq int, globals []uint32) (Track[T], []byte) {
	t.Helper()
	e := &chunk.Emitter{}
	e.Alloc(HEADER_SIZE, 1)
	h := Encode(tr, codec, &Sink{Main: e, NumSequences: numSeq})
	h.Put(e.At(0, HEADER_SIZE))

	src := &Source{Main: chunk.NewView("test", e.Bytes()), NumSequences: numSeq, GlobalSequences: globals}
	got, err := Decode(e.At(0, HEADER_SIZE), codec, src)
	if err != nil {
		t.Fatal(err)
	}
	return got, e.Bytes()
}

func TestRotationQuantization(t *testing.T) {
	tr := NewPerSequence[CompQuat](Linear, 1)
	quarter := mgl32.QuatRotate(math.Pi/2, mgl32.Vec3{0, 0, 1})
	if err := tr.Set(0, []uint32{0, 1000}, []CompQuat{CompressQuat(mgl32.QuatIdent()), CompressQuat(quarter)}); err != nil {
		t.Fatal(err)
	}

	got, _ := roundTrip(t, &tr, Quat, 1, nil)
	k := got.Keys(0)
	if len(k.Timestamps) != 2 || k.Timestamps[0] != 0 || k.Timestamps[1] != 1000 {
		t.Fatalf("timestamps = %v", k.Timestamps)
	}
	want := []CompQuat{{0, 0, 0, 32767}, {0, 0, 23170, 23170}}
	for i, q := range k.Values {
		for c := range q {
			if d := int(q[c]) - int(want[i][c]); d < -1 || d > 1 {
				t.Errorf("key %d = %v; expected %v", i, q, want[i])
				break
			}
		}
	}
}

func TestEmptyTrackEncodesZero(t *testing.T) {
	tr := NewPerSequence[mgl32.Vec3](Linear, 3)
	e := &chunk.Emitter{}
	h := Encode(&tr, Vec3, &Sink{Main: e, NumSequences: 3})
	if h.Timestamps != (chunk.ArrayRef{}) || h.Values != (chunk.ArrayRef{}) || e.Len() != 0 {
		t.Errorf("empty track emitted %+v (%d bytes)", h, e.Len())
	}
	if h.GlobalSequence != -1 {
		t.Errorf("empty per-sequence track has global sequence %d", h.GlobalSequence)
	}

	global := NewGlobal[float32](Linear, 1)
	h = Encode(&global, Float, &Sink{Main: e, NumSequences: 3})
	if h.Timestamps != (chunk.ArrayRef{}) || h.Values != (chunk.ArrayRef{}) || e.Len() != 0 {
		t.Errorf("empty global track emitted %+v (%d bytes)", h, e.Len())
	}
	if h.GlobalSequence != 1 || h.Interpolation != uint16(Linear) {
		t.Errorf("empty global track header %+v", h)
	}
}

func TestGlobalTrackIgnoresSequence(t *testing.T) {
	tr := NewGlobal[float32](Linear, 0)
	tr.Set(5, []uint32{0, 100}, []float32{0, 1})

	got, _ := roundTrip(t, &tr, Float, 4, []uint32{100})
	if !got.IsGlobal() || got.GlobalSequence() != 0 {
		t.Fatalf("shape lost: global=%v seq=%d", got.IsGlobal(), got.GlobalSequence())
	}
	at := Time{Sequence: 3, Ms: 0, WallClock: 250, Globals: []uint32{100}}
	if v := Evaluate(&got, at, FloatInterp, -1); math.Abs(float64(v-0.5)) > 1e-6 {
		t.Errorf("global evaluation at wallclock 250 = %v", v)
	}
}

func TestReEncodeIsStable(t *testing.T) {
	tr := NewPerSequence[mgl32.Vec3](Hermite, 2)
	tr.Set(1, []uint32{0, 10, 20}, []mgl32.Vec3{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}})

	got, first := roundTrip(t, &tr, Vec3, 2, nil)
	_, second := roundTrip(t, &got, Vec3, 2, nil)
	if !bytes.Equal(first, second) {
		t.Errorf("encode(decode(x)) differs from x")
	}
	if got.Interpolation != Hermite || got.Keys(0).Len() != 0 || got.Keys(1).Len() != 3 {
		t.Errorf("decoded %+v", got)
	}
}

func TestSidecarSlots(t *testing.T) {
	tr := NewPerSequence[float32](Linear, 2)
	tr.Set(0, []uint32{0}, []float32{1})
	tr.Set(1, []uint32{0, 5}, []float32{2, 3})

	main := &chunk.Emitter{}
	main.Alloc(HEADER_SIZE, 1)
	anim := &chunk.Emitter{}
	sink := &Sink{Main: main, NumSequences: 2, Sidecar: func(seq int) *chunk.Emitter {
		if seq == 1 {
			return anim
		}
		return nil
	}}
	Encode(&tr, Float, sink).Put(main.At(0, HEADER_SIZE))

	if anim.Len() == 0 {
		t.Fatalf("sequence 1 keys not written to the sidecar")
	}
	animView := chunk.NewView("anim", anim.Bytes())
	src := &Source{
		Main:         chunk.NewView("main", main.Bytes()),
		NumSequences: 2,
		Sidecar: func(seq int) (*chunk.View, bool) {
			return animView, seq == 1
		},
	}
	got, err := Decode(main.At(0, HEADER_SIZE), Float, src)
	if err != nil {
		t.Fatal(err)
	}
	if k := got.Keys(1); k.Len() != 2 || k.Values[1] != 3 {
		t.Errorf("sidecar keys = %+v", k)
	}

	// a missing sidecar leaves the slot empty
	src.Sidecar = func(seq int) (*chunk.View, bool) { return nil, seq == 1 }
	got, err = Decode(main.At(0, HEADER_SIZE), Float, src)
	if err != nil || got.Keys(1).Len() != 0 || got.Keys(0).Len() != 1 {
		t.Errorf("missing sidecar: %+v, %v", got, err)
	}
}

func TestSlotSequenceIndirection(t *testing.T) {
	tr := NewPerSequence[float32](Linear, 3)
	tr.Set(2, []uint32{0}, []float32{7})

	e := &chunk.Emitter{}
	e.Alloc(HEADER_SIZE, 1)
	slots := []int{2, -1}
	h := Encode(&tr, Float, &Sink{Main: e, NumSequences: 3, SlotSequence: slots})
	if h.Timestamps.Count != 2 {
		t.Fatalf("slot count = %d", h.Timestamps.Count)
	}
	h.Put(e.At(0, HEADER_SIZE))
	got, err := Decode(e.At(0, HEADER_SIZE), Float, &Source{
		Main: chunk.NewView("m", e.Bytes()), NumSequences: 3, SlotSequence: slots})
	if err != nil {
		t.Fatal(err)
	}
	if got.Keys(2).Len() != 1 || got.Keys(2).Values[0] != 7 || got.Keys(0).Len() != 0 {
		t.Errorf("indirection lost: %+v", got.Sequences)
	}
}

func TestDecodeFailures(t *testing.T) {
	hdr := Header{Interpolation: 9, GlobalSequence: -1}.Bytes()
	if _, err := Decode(hdr, Float, &Source{Main: chunk.NewView("m", hdr)}); err == nil {
		t.Errorf("bad interpolation accepted")
	}
	hdr = Header{GlobalSequence: -1, Timestamps: chunk.ArrayRef{Count: 1, Offset: 0x1000}, Values: chunk.ArrayRef{Count: 1, Offset: 0}}.Bytes()
	if _, err := Decode(hdr, Float, &Source{Main: chunk.NewView("m", hdr), NumSequences: 1}); err == nil {
		t.Errorf("out of bounds timestamps accepted")
	}

	fb := Fallback[float32](Header{Interpolation: 1, GlobalSequence: 2}.Bytes(), 4)
	if !fb.IsGlobal() || fb.GlobalSequence() != 2 || !fb.Empty() {
		t.Errorf("fallback shape = %+v", fb)
	}
	if v := Evaluate(&fb, Time{}, FloatInterp, 1.5); v != 1.5 {
		t.Errorf("fallback must evaluate to the default, got %v", v)
	}

	fb = Fallback[float32](Header{GlobalSequence: -1}.Bytes(), 3)
	for seq := 0; seq < 3; seq++ {
		if v := Evaluate(&fb, Time{Sequence: seq, Ms: 40}, FloatInterp, 2); v != 2 {
			t.Errorf("sequence %d: fallback evaluates to %v", seq, v)
		}
	}
	e := &chunk.Emitter{}
	if h := Encode(&fb, Float, &Sink{Main: e, NumSequences: 3}); h.Timestamps.Count != 0 || e.Len() != 0 {
		t.Errorf("fallback encoded %+v", h)
	}
}

func TestEvaluateAndBake(t *testing.T) {
	tr := NewPerSequence[float32](Linear, 1)
	tr.Set(0, []uint32{0, 1000}, []float32{0, 10})
	if v := Evaluate(&tr, Time{Ms: 250}, FloatInterp, 0); v != 2.5 {
		t.Errorf("linear at 250 = %v", v)
	}
	tr.Interpolation = None
	if v := Evaluate(&tr, Time{Ms: 999}, FloatInterp, 0); v != 0 {
		t.Errorf("step at 999 = %v", v)
	}
	tr.Interpolation = Linear

	baked := Bake(&tr, []uint32{1000}, nil, 10, FloatInterp, 0)
	k := baked.Keys(0)
	if k.Len() != 11 || k.Timestamps[10] != 1000 || k.Values[5] != 5 {
		t.Errorf("baked = %+v", k)
	}
	if err := baked.Validate([]uint32{1000}, nil); err != nil {
		t.Errorf("baked track invalid: %v", err)
	}
	if err := tr.Validate([]uint32{500}, nil); err == nil {
		t.Errorf("timestamp beyond duration accepted")
	}
}

func TestPartTrack(t *testing.T) {
	p := PartTrack[mgl32.Vec3]{
		Timestamps: []Fixed16{0, 16384, 32767},
		Values:     []mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}},
	}
	e := &chunk.Emitter{}
	hdr := EncodePart(p, Vec3, e)
	got, err := DecodePart(hdr, Vec3, chunk.NewView("p", e.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Values) != 3 || got.Timestamps[1] != 16384 || got.Values[2][2] != 1 {
		t.Errorf("part track = %+v", got)
	}
}

func TestTrackJSON(t *testing.T) {
	global := NewGlobal[float32](Hermite, 2)
	global.Set(0, []uint32{0, 10}, []float32{1, 2})
	perSeq := NewPerSequence[float32](None, 2)
	perSeq.Set(1, []uint32{5}, []float32{3})

	for _, tr := range []Track[float32]{global, perSeq} {
		data, err := json.Marshal(tr)
		if err != nil {
			t.Fatal(err)
		}
		var got Track[float32]
		if err := json.Unmarshal(data, &got); err != nil {
			t.Fatalf("%s: %v", data, err)
		}
		if got.Interpolation != tr.Interpolation || got.GlobalSequence() != tr.GlobalSequence() {
			t.Errorf("%s: got %v global %d", data, got.Interpolation, got.GlobalSequence())
		}
		if got.Keys(1).Len() != tr.Keys(1).Len() {
			t.Errorf("%s: keys differ", data)
		}
	}
}
