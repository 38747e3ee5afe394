package schema

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/config"
)

var sizeTests = []struct {
	s    *Struct
	v    config.Version
	size int
}{
	{M2Header, config.WotLK, M2_HEADER_SIZE},
	{Sequence, config.WotLK, 0x40},
	{Sequence, config.WoD, 0x40},
	{Bone, config.WotLK, 0x58},
	{Vertex, config.WotLK, 0x30},
	{ColorBlock, config.WotLK, 0x28},
	{Texture, config.WotLK, 0x10},
	{TextureWeight, config.WotLK, 0x14},
	{TextureTransform, config.WotLK, 0x3C},
	{Material, config.WotLK, 4},
	{Attachment, config.WotLK, 0x28},
	{Event, config.WotLK, 0x24},
	{Light, config.WotLK, 0x9C},
	{Camera, config.WotLK, 0x64},
	{Camera, config.Cata, 0x74},
	{Ribbon, config.WotLK, 0xB0},
	{Particle, config.WotLK, 0x1DC},
	{SkinHeader, config.WotLK, 0x30},
	{SubMesh, config.WotLK, 0x30},
	{TexUnit, config.WotLK, 0x18},
	{MOHD, config.WotLK, MOHD_SIZE},
	{MOMT, config.WotLK, 64},
	{MOGI, config.WotLK, 32},
	{MOPT, config.WotLK, 20},
	{MOPR, config.WotLK, 8},
	{MOLT, config.WotLK, 48},
	{MODS, config.WotLK, 32},
	{MODD, config.WotLK, 40},
	{MFOG, config.WotLK, 48},
	{MOGP, config.WotLK, MOGP_SIZE},
	{MOBA, config.WotLK, 24},
	{MOBN, config.WotLK, 16},
	{MLIQ, config.WotLK, MLIQ_SIZE},
}

func TestLayoutSizes(t *testing.T) {
	for _, test := range sizeTests {
		if l := test.s.Select(test.v); l.Size != test.size {
			t.Errorf("%s@%v size = 0x%x; expected 0x%x", test.s.Name, test.v, l.Size, test.size)
		}
	}
}

func TestVersionGating(t *testing.T) {
	mop := Sequence.Select(config.MoP)
	wod := Sequence.Select(config.WoD)
	if !mop.Has("blend_time_in") || mop.Has("blend_time") {
		t.Errorf("MoP sequences must carry split blend times")
	}
	if wod.Has("blend_time_in") || !wod.Has("blend_time") {
		t.Errorf("WoD sequences must carry one blend time")
	}
	if mop.Offset("blend_time_in") != 0x1C || wod.Offset("blend_time") != 0x1C {
		t.Errorf("blend time offsets differ")
	}
	if Camera.Select(config.WotLK).Offset("far_clip") != 8 || Camera.Select(config.Legion).Offset("far_clip") != 4 {
		t.Errorf("camera fov gating broken")
	}
}

func TestRecordAccess(t *testing.T) {
	l := Sequence.Select(config.WotLK)
	b := make([]byte, l.Size)
	r := l.Bind(b)
	r.SetU16("id", 4)
	r.SetI16("variation_next", -1)
	r.SetVec3("bounds_max", mgl32.Vec3{1, 2, 3})
	r.SetU32("blend_time", 99) // absent in WotLK
	if r.U16("id") != 4 || r.I16("variation_next") != -1 || r.Vec3("bounds_max")[2] != 3 {
		t.Errorf("record readback failed")
	}
	if r.U32("blend_time") != 0 || b[0x1C] != 0 {
		t.Errorf("write to absent field leaked")
	}

	defer func() {
		if recover() == nil {
			t.Errorf("unknown field name must panic")
		}
	}()
	r.U32("durration")
}

func TestScalarsRoundTrip(t *testing.T) {
	l := Particle.Select(config.WotLK)
	src := l.Bind(make([]byte, l.Size))
	src.SetF32("drag", 0.5)
	src.SetI16("texture_tile_rotation", -1)
	src.SetVec3("wind_vector", mgl32.Vec3{0, 0, -2})

	dst := l.Bind(make([]byte, l.Size))
	dst.SetScalars(src.Scalars("particle_id"))
	if dst.F32("drag") != 0.5 || dst.I16("texture_tile_rotation") != -1 || dst.Vec3("wind_vector")[2] != -2 {
		t.Errorf("scalars lost in transfer")
	}
	if v, ok := src.Scalars().Get("drag"); !ok || v != 0.5 {
		t.Errorf("Get(drag) = %v, %v", v, ok)
	}
}
