package material

import (
	"reflect"

	"github.com/mogaika/wow_model_browser/m2"
)

func at[T any](table []T, i int, def T) T {
	if i >= 0 && i < len(table) {
		return table[i]
	}
	return def
}

// FromUnit rebuilds the authored material a tex unit was made from.
func FromUnit(m *m2.Model, u *m2.TexUnit) Material {
	mat := New("")
	render := at(m.Materials, int(u.MaterialIndex), m2.Material{})
	mat.Flags = render.Flags
	mat.Blend = render.BlendMode
	mat.PriorityPlane = u.PriorityPlane
	mat.Color = max(int(u.ColorIndex), -1)
	mat.Weight = int(at(m.TransparencyLookup, int(u.TextureWeightComboIndex), 0))

	count := min(int(u.TextureCount), MAX_SLOTS)
	for i := 0; i < count; i++ {
		mat.Slots = append(mat.Slots, Slot{
			Texture:   int(at(m.TextureLookup, int(u.TextureComboIndex)+i, 0)),
			UVSet:     int(at(m.TexUnitLookup, int(u.TextureCoordComboIndex)+i, 0)),
			Transform: max(int(at(m.TextureTransformLookup, int(u.TextureTransformComboIndex)+i, -1)), -1),
		})
	}
	if count > 1 {
		if b, ok := SecondBlend(u.ShaderID); ok {
			mat.Blend2 = b
		}
	}

	uv1, uv2 := UV_SET_0, UV_SET_0
	if count > 0 {
		uv1 = mat.Slots[0].UVSet
	}
	if count > 1 {
		uv2 = mat.Slots[1].UVSet
	}
	if DeriveShader(mat.Blend, mat.Blend2, uv1, uv2, count) != u.ShaderID {
		mat.Shader = int(u.ShaderID)
	}
	return mat
}

// FromSkin returns the distinct materials of a skin and the material of every
// sub-mesh. A sub-mesh takes the tex unit of its lowest material layer.
func FromSkin(m *m2.Model, skin *m2.Skin) ([]Material, []int) {
	submesh := make([]int, len(skin.SubMeshes))
	layer := make([]int, len(skin.SubMeshes))
	for i := range submesh {
		submesh[i] = -1
	}
	var mats []Material
	for ui := range skin.TexUnits {
		u := &skin.TexUnits[ui]
		si := int(u.SkinSectionIndex)
		if si >= len(submesh) {
			continue
		}
		if submesh[si] >= 0 && layer[si] <= int(u.MaterialLayer) {
			continue
		}
		mat := FromUnit(m, u)
		idx := -1
		for i := range mats {
			if reflect.DeepEqual(mats[i], mat) {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = len(mats)
			mats = append(mats, mat)
		}
		submesh[si] = idx
		layer[si] = int(u.MaterialLayer)
	}
	for i := range mats {
		mats[i].Name = materialName(i)
	}
	return mats, submesh
}
