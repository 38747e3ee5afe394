package m2

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/validate"
)

var (
	fourccMD21 = chunk.MakeFourCC(MAGIC_MD21)
	fourccSFID = chunk.MakeFourCC("SFID")
	fourccAFID = chunk.MakeFourCC("AFID")
	fourccTXID = chunk.MakeFourCC("TXID")
)

// readChunks splits an MD21 file into the MD20 blob and its file id tables.
// Unknown chunks are kept verbatim, in file order.
func (m *Model) readChunks(data []byte, diag *validate.Diagnostics) ([]byte, error) {
	idx, err := chunk.BuildIndex(data, false)
	if err != nil {
		return nil, errors.Wrap(err, "md21 chunks")
	}
	var blob []byte
	for _, c := range idx.Chunks {
		payload := c.Payload(data)
		m.ChunkOrder = append(m.ChunkOrder, c.FourCC)
		switch c.FourCC {
		case fourccMD21:
			blob = payload
		case fourccSFID:
			m.SkinFileIDs = readU32s(payload)
		case fourccTXID:
			m.TextureFileIDs = readU32s(payload)
		case fourccAFID:
			for i := 0; i+8 <= len(payload); i += 8 {
				m.AnimFileIDs = append(m.AnimFileIDs, AnimFileID{
					AnimationID:    binary.LittleEndian.Uint16(payload[i:]),
					VariationIndex: binary.LittleEndian.Uint16(payload[i+2:]),
					FileID:         binary.LittleEndian.Uint32(payload[i+4:]),
				})
			}
		default:
			diag.Infof(validate.UnknownChunk, "m2 chunk %v kept verbatim", c)
			m.ExtraChunks = append(m.ExtraChunks, RawChunk{FourCC: c.FourCC, Data: append([]byte{}, payload...)})
		}
	}
	if blob == nil {
		return nil, errors.New("md21 chunks: no MD21 chunk")
	}
	return blob, nil
}

func u32sBytes(vals []uint32) []byte {
	b := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(b[i*4:], v)
	}
	return b
}

// writeChunks wraps blob into MD21 and the id tables, in the order they were read.
func (m *Model) writeChunks(blob []byte) []byte {
	order := m.ChunkOrder
	if len(order) == 0 {
		order = []chunk.FourCC{fourccMD21, fourccSFID, fourccAFID, fourccTXID}
	}
	w := chunk.NewWriter(false)
	written := make(map[chunk.FourCC]bool)
	extra := 0
	emit := func(cc chunk.FourCC) {
		switch cc {
		case fourccMD21:
			w.WriteChunk(cc, blob)
		case fourccSFID:
			if len(m.SkinFileIDs) != 0 {
				w.WriteChunk(cc, u32sBytes(m.SkinFileIDs))
			}
		case fourccTXID:
			if len(m.TextureFileIDs) != 0 {
				w.WriteChunk(cc, u32sBytes(m.TextureFileIDs))
			}
		case fourccAFID:
			if len(m.AnimFileIDs) != 0 {
				b := make([]byte, len(m.AnimFileIDs)*schema.SIZE_ANIM_FILE)
				for i, a := range m.AnimFileIDs {
					binary.LittleEndian.PutUint16(b[i*8:], a.AnimationID)
					binary.LittleEndian.PutUint16(b[i*8+2:], a.VariationIndex)
					binary.LittleEndian.PutUint32(b[i*8+4:], a.FileID)
				}
				w.WriteChunk(cc, b)
			}
		default:
			// unknown chunks of the same fourcc come back in their original order
			for extra < len(m.ExtraChunks) && m.ExtraChunks[extra].FourCC != cc {
				extra++
			}
			if extra < len(m.ExtraChunks) {
				w.WriteChunk(cc, m.ExtraChunks[extra].Data)
				extra++
			}
			return
		}
		written[cc] = true
	}
	for _, cc := range order {
		if !written[cc] {
			emit(cc)
		}
	}
	for _, cc := range []chunk.FourCC{fourccMD21, fourccSFID, fourccAFID, fourccTXID} {
		if !written[cc] {
			emit(cc)
		}
	}
	return w.Bytes()
}
