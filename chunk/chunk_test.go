package chunk

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestWriterReaderReversed(t *testing.T) {
	w := NewWriter(true)
	w.WriteChunk(MakeFourCC("MVER"), []byte{17, 0, 0, 0})
	end := w.Begin(MakeFourCC("MOGP"))
	w.WriteChunk(MakeFourCC("MOPY"), []byte{1, 2})
	end()
	w.WriteChunk(MakeFourCC("MOPY"), nil)

	if !bytes.Equal(w.Bytes()[:4], []byte("REVM")) {
		t.Fatalf("fourcc not reversed on disk: %q", w.Bytes()[:4])
	}

	idx, err := BuildIndex(w.Bytes(), true)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"MVER", "MOGP", "MOPY"}
	if len(idx.Chunks) != len(want) {
		t.Fatalf("chunks = %v", idx.Chunks)
	}
	for i, c := range idx.Chunks {
		if c.FourCC.String() != want[i] {
			t.Errorf("chunk %d = %v, want %v", i, c.FourCC, want[i])
		}
	}
	if mogp, _ := idx.First(MakeFourCC("MOGP")); mogp.Size != HEADER_SIZE+2 {
		t.Errorf("container size = %d", mogp.Size)
	}
	if len(idx.All(MakeFourCC("MOPY"))) != 1 {
		t.Errorf("nested chunk leaked into the top level index")
	}
}

func TestReaderTruncated(t *testing.T) {
	w := NewWriter(false)
	w.WriteChunk(MakeFourCC("SFID"), []byte{1, 2, 3, 4})
	b := w.Bytes()[:w.Len()-1]

	r := NewReader(b, false)
	if _, _, _, err := r.ReadChunk(); !errors.Is(err, ErrTruncatedChunk) {
		t.Errorf("expected ErrTruncatedChunk, got %v", err)
	}

	r = NewReader(w.Bytes(), false)
	r.ReadChunk()
	if _, _, _, err := r.ReadChunk(); err != io.EOF {
		t.Errorf("expected EOF, got %v", err)
	}
}

func TestViewBoundsAndOverlap(t *testing.T) {
	v := NewView("test", make([]byte, 32))
	if _, err := v.Array("a", ArrayRef{Count: 2, Offset: 16}, 8); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Array("b", ArrayRef{Count: 5, Offset: 0}, 4); err != nil {
		t.Fatal(err)
	}
	if err := v.CheckOverlaps(); err == nil {
		t.Errorf("expected overlap between a and b")
	}
	if _, err := v.Slice(ArrayRef{Count: 3, Offset: 16}, 8); !errors.Is(err, ErrArrayOutOfBounds) {
		t.Errorf("expected ErrArrayOutOfBounds, got %v", err)
	}
	if b, err := v.Slice(ArrayRef{Count: 0, Offset: 9999}, 8); err != nil || b != nil {
		t.Errorf("empty ref must resolve to nothing")
	}
}

func TestCursorSticky(t *testing.T) {
	c := NewCursor([]byte{1, 0, 2})
	if c.U16() != 1 {
		t.Errorf("U16")
	}
	if c.U32() != 0 || c.Err() == nil {
		t.Errorf("overrun not reported")
	}
	if c.U8() != 0 {
		t.Errorf("read after error returned data")
	}
}

func TestEmitterAlloc(t *testing.T) {
	var e Emitter
	e.WriteU8(1)
	off := e.Alloc(4, 16)
	if off != 16 || e.Len() != 20 {
		t.Errorf("Alloc = %d, len %d", off, e.Len())
	}
	e.SetU32(off, 0xdeadbeef)
	if c := NewCursor(e.At(off, 4)); c.U32() != 0xdeadbeef {
		t.Errorf("SetU32 lost")
	}
}
