package material

import (
	"github.com/mogaika/wow_model_browser/m2"
)

// texture combiner ops of the fixed function shader pairing
const (
	OP_OPAQUE   = 0
	OP_MOD      = 1
	OP_DECAL    = 2
	OP_ADD      = 3
	OP_MOD2X    = 4
	OP_FADE     = 5
	OP_MOD2X_NA = 6
	OP_ADD_NA   = 7

	OP_ENV = 0x8
)

// SHADER_RUNTIME marks a shader id indexing the client's effect table.
const SHADER_RUNTIME = 0x8000

// RUNTIME_SHADERS is the size of the client's effect table.
const RUNTIME_SHADERS = 36

var blendOps = [...]uint16{
	m2.BlendOpaque:     OP_OPAQUE,
	m2.BlendAlphaKey:   OP_OPAQUE,
	m2.BlendAlpha:      OP_DECAL,
	m2.BlendNoAlphaAdd: OP_ADD,
	m2.BlendAdd:        OP_ADD,
	m2.BlendMod:        OP_MOD,
	m2.BlendMod2X:      OP_MOD2X,
	m2.BlendBlendAdd:   OP_ADD_NA,
}

// opBlends inverts blendOps, picking the first blend mode of each op.
var opBlends = map[uint16]m2.BlendMode{
	OP_OPAQUE: m2.BlendOpaque,
	OP_DECAL:  m2.BlendAlpha,
	OP_ADD:    m2.BlendAdd,
	OP_MOD:    m2.BlendMod,
	OP_MOD2X:  m2.BlendMod2X,
	OP_ADD_NA: m2.BlendBlendAdd,
}

func stageOp(blend m2.BlendMode, uvSet int) uint16 {
	op := uint16(OP_OPAQUE)
	if blend.Valid() {
		op = blendOps[blend]
	}
	if uvSet == UV_ENV_MAP {
		op |= OP_ENV
	}
	return op
}

// DeriveShader returns the shader id for a layer setup. One texture stores its
// stage in the high nibble, two textures add the second stage in the low nibble.
func DeriveShader(blend1, blend2 m2.BlendMode, uv1, uv2 int, textures int) uint16 {
	if textures <= 0 {
		return 0
	}
	id := stageOp(blend1, uv1) << 4
	if textures > 1 {
		id |= stageOp(blend2, uv2)
	}
	return id
}

// KnownShader reports whether id can be resolved by the client.
func KnownShader(id uint16, textures int) bool {
	if id&SHADER_RUNTIME != 0 {
		return id&^SHADER_RUNTIME < RUNTIME_SHADERS
	}
	if id > 0xff {
		return false
	}
	if _, ok := opBlends[id>>4&7]; !ok {
		return false
	}
	if textures > 1 {
		if _, ok := opBlends[id&7]; !ok {
			return false
		}
	}
	return true
}

// SecondBlend recovers the second layer blend from a derived shader id.
func SecondBlend(id uint16) (m2.BlendMode, bool) {
	if id&SHADER_RUNTIME != 0 {
		return m2.BlendOpaque, false
	}
	b, ok := opBlends[id&7]
	return b, ok
}
