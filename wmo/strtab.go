package wmo

import (
	"github.com/mogaika/wow_model_browser/utils"
)

// stringTable builds MOTX/MOGN/MODN blocks. Offset 0 always reads as an empty
// string and every entry starts 4 byte aligned.
type stringTable struct {
	buf  []byte
	offs map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{buf: make([]byte, 4), offs: map[string]uint32{"": 0}}
}

func (t *stringTable) add(s string) uint32 {
	if off, ok := t.offs[s]; ok {
		return off
	}
	off := uint32(len(t.buf))
	t.buf = append(t.buf, utils.StringToBytes(s, true)...)
	for len(t.buf)%4 != 0 {
		t.buf = append(t.buf, 0)
	}
	t.offs[s] = off
	return off
}

func (t *stringTable) bytes() []byte {
	return t.buf
}

// lookupString reads the zero terminated string at off, out of range reads empty.
func lookupString(block []byte, off int64) string {
	if off < 0 || off >= int64(len(block)) {
		return ""
	}
	return utils.BytesToString(block[off:])
}
