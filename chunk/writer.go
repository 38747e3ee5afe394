package chunk

import (
	"bytes"
	"encoding/binary"
)

type Writer struct {
	buf      bytes.Buffer
	reversed bool
}

func NewWriter(reversed bool) *Writer {
	return &Writer{reversed: reversed}
}

func (w *Writer) WriteChunk(fourcc FourCC, payload []byte) {
	if w.reversed {
		fourcc = fourcc.reversed()
	}
	var hdr [HEADER_SIZE]byte
	copy(hdr[:4], fourcc[:])
	binary.LittleEndian.PutUint32(hdr[4:], uint32(len(payload)))
	w.buf.Write(hdr[:])
	w.buf.Write(payload)
}

// Begin opens a container chunk whose size is patched by the returned func.
// Chunks written before the func is called become its payload.
func (w *Writer) Begin(fourcc FourCC) func() {
	if w.reversed {
		fourcc = fourcc.reversed()
	}
	start := w.buf.Len()
	var hdr [HEADER_SIZE]byte
	copy(hdr[:4], fourcc[:])
	w.buf.Write(hdr[:])
	return func() {
		b := w.buf.Bytes()
		binary.LittleEndian.PutUint32(b[start+4:], uint32(len(b)-start-HEADER_SIZE))
	}
}

// WriteRaw appends bytes outside of any chunk framing (MOGP header).
func (w *Writer) WriteRaw(b []byte) {
	w.buf.Write(b)
}

func (w *Writer) Len() int {
	return w.buf.Len()
}

func (w *Writer) Bytes() []byte {
	return w.buf.Bytes()
}
