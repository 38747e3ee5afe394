package m2

// global flags
const (
	GLOBAL_FLAG_TILT_X                    = 0x1
	GLOBAL_FLAG_TILT_Y                    = 0x2
	GLOBAL_FLAG_USE_TEXTURE_COMBOS        = 0x8
	GLOBAL_FLAG_LOAD_PHYS_DATA            = 0x20
	GLOBAL_FLAG_CAMERA_RELATED            = 0x100
	GLOBAL_FLAG_NEW_PARTICLE_RECORD       = 0x200
	GLOBAL_FLAG_TEXTURE_TRANSFORMS_BY_SEQ = 0x800
)

// sequence flags
const (
	SEQUENCE_FLAG_BLENDED_TIME = 0x1
	SEQUENCE_FLAG_PRIMARY      = 0x20
	SEQUENCE_FLAG_ALIAS        = 0x40
	SEQUENCE_FLAG_BLENDED      = 0x80
)

// bone flags
const (
	BONE_FLAG_IGNORE_PARENT_TRANSLATE = 0x1
	BONE_FLAG_IGNORE_PARENT_SCALE     = 0x2
	BONE_FLAG_IGNORE_PARENT_ROTATION  = 0x4
	BONE_FLAG_SPHERICAL_BILLBOARD     = 0x8
	BONE_FLAG_CYLINDRICAL_BILLBOARD_X = 0x10
	BONE_FLAG_CYLINDRICAL_BILLBOARD_Y = 0x20
	BONE_FLAG_CYLINDRICAL_BILLBOARD_Z = 0x40
	BONE_FLAG_TRANSFORMED             = 0x200
	BONE_FLAG_KINEMATIC               = 0x400
	BONE_FLAG_HELMET_ANIM_SCALED      = 0x1000
)

// material render flags
const (
	MATERIAL_FLAG_UNLIT       = 0x1
	MATERIAL_FLAG_UNFOGGED    = 0x2
	MATERIAL_FLAG_TWO_SIDED   = 0x4
	MATERIAL_FLAG_DEPTH_TEST  = 0x8
	MATERIAL_FLAG_DEPTH_WRITE = 0x10
)

type BlendMode uint16

const (
	BlendOpaque BlendMode = iota
	BlendAlphaKey
	BlendAlpha
	BlendNoAlphaAdd
	BlendAdd
	BlendMod
	BlendMod2X
	BlendBlendAdd
)

var blendModeNames = [...]string{"Opaque", "AlphaKey", "Alpha", "NoAlphaAdd", "Add", "Mod", "Mod2X", "BlendAdd"}

func (b BlendMode) String() string {
	if int(b) < len(blendModeNames) {
		return blendModeNames[b]
	}
	return "Unknown"
}

func (b BlendMode) Valid() bool {
	return int(b) < len(blendModeNames)
}

func ParseBlendMode(s string) (BlendMode, bool) {
	for i, name := range blendModeNames {
		if name == s {
			return BlendMode(i), true
		}
	}
	return 0, false
}

// texture types
const (
	TEXTURE_TYPE_HARDCODED = 0
	TEXTURE_TYPE_SKIN      = 1
	TEXTURE_TYPE_OBJECT    = 2
	TEXTURE_TYPE_WEAPON    = 3
	TEXTURE_TYPE_CAPE      = 4
)

const (
	TEXTURE_FLAG_WRAP_X = 0x1
	TEXTURE_FLAG_WRAP_Y = 0x2
)

// tex unit flags
const (
	TEX_UNIT_FLAG_ANIMATED     = 0x0
	TEX_UNIT_FLAG_INVERT       = 0x1
	TEX_UNIT_FLAG_TRANSFORM    = 0x2
	TEX_UNIT_FLAG_PROJECTED    = 0x4
	TEX_UNIT_FLAG_STATIC       = 0x10
	TEX_UNIT_FLAG_PROJECTED_2  = 0x20
	TEX_UNIT_FLAG_WEIGHT_COMBO = 0x40
)

const MAX_ALIAS_HOPS = 16

const (
	MAGIC_MD20 = "MD20"
	MAGIC_MD21 = "MD21"
	MAGIC_SKIN = "SKIN"
)
