package material

import (
	"slices"

	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/validate"
)

// Tables holds the wire records every authored material resolves to.
type Tables struct {
	Materials              []m2.Material
	TextureLookup          []uint16
	TexUnitLookup          []int16
	TransparencyLookup     []uint16
	TextureTransformLookup []int16

	// units is one tex unit template per authored material
	units []m2.TexUnit
}

// combo returns the start of seq inside *table, appending it when absent.
func combo[T comparable](table *[]T, seq []T) uint16 {
	for i := 0; i+len(seq) <= len(*table); i++ {
		if slices.Equal((*table)[i:i+len(seq)], seq) {
			return uint16(i)
		}
	}
	i := len(*table)
	*table = append(*table, seq...)
	return uint16(i)
}

func (t *Tables) renderMaterial(mat m2.Material) uint16 {
	return combo(&t.Materials, []m2.Material{mat})
}

// Env is the model side state materials are checked against.
type Env struct {
	Textures   int
	Transforms int
	Colors     int
	Weights    int
}

// Build resolves authored materials. Materials without a weight use texture
// weight 0, the caller keeps a full opacity weight there.
func Build(materials []Material, env Env, diag *validate.Diagnostics) (*Tables, error) {
	t := &Tables{}
	for i := range materials {
		u, err := t.build(&materials[i], env, diag)
		if err != nil {
			return nil, err
		}
		t.units = append(t.units, u)
	}
	return t, nil
}

func (t *Tables) build(mat *Material, env Env, diag *validate.Diagnostics) (m2.TexUnit, error) {
	slots := mat.Slots
	if len(slots) > MAX_SLOTS {
		diag.Warnf(validate.UVTransformLimit, "material %q: %d texture slots, only %d are kept", mat.Name, len(slots), MAX_SLOTS)
		slots = slots[:MAX_SLOTS]
	}
	if !mat.Blend.Valid() {
		return m2.TexUnit{}, validate.Policyf("material %q: invalid blend mode %d", mat.Name, mat.Blend)
	}

	textures := make([]uint16, 0, MAX_SLOTS)
	coords := make([]int16, 0, MAX_SLOTS)
	transforms := make([]int16, 0, MAX_SLOTS)
	for _, s := range slots {
		if s.Texture < 0 || s.Texture >= env.Textures {
			return m2.TexUnit{}, validate.Policyf("material %q: texture %d of %d", mat.Name, s.Texture, env.Textures)
		}
		if s.Transform >= env.Transforms {
			return m2.TexUnit{}, validate.Policyf("material %q: uv transform %d of %d", mat.Name, s.Transform, env.Transforms)
		}
		switch s.UVSet {
		case UV_SET_0, UV_SET_1, UV_ENV_MAP:
		default:
			return m2.TexUnit{}, validate.Policyf("material %q: uv set %d", mat.Name, s.UVSet)
		}
		textures = append(textures, uint16(s.Texture))
		coords = append(coords, int16(s.UVSet))
		transforms = append(transforms, int16(max(s.Transform, -1)))
	}
	if len(slots) == 0 {
		diag.Warnf(validate.MissingTexturePath, "material %q has no texture", mat.Name)
	}
	if mat.Color >= env.Colors {
		return m2.TexUnit{}, validate.Policyf("material %q: color %d of %d", mat.Name, mat.Color, env.Colors)
	}
	if mat.Weight >= env.Weights {
		return m2.TexUnit{}, validate.Policyf("material %q: texture weight %d of %d", mat.Name, mat.Weight, env.Weights)
	}

	u := m2.TexUnit{
		PriorityPlane: mat.PriorityPlane,
		ColorIndex:    int16(max(mat.Color, -1)),
		MaterialIndex: t.renderMaterial(m2.Material{Flags: mat.Flags, BlendMode: mat.Blend}),
		TextureCount:  uint16(len(slots)),
	}
	if len(slots) != 0 {
		u.TextureComboIndex = combo(&t.TextureLookup, textures)
		u.TextureCoordComboIndex = combo(&t.TexUnitLookup, coords)
		u.TextureTransformComboIndex = combo(&t.TextureTransformLookup, transforms)
	}
	u.TextureWeightComboIndex = combo(&t.TransparencyLookup, []uint16{uint16(max(mat.Weight, 0))})

	static := true
	for _, tr := range transforms {
		if tr >= 0 {
			static = false
		}
	}
	if static {
		u.Flags |= m2.TEX_UNIT_FLAG_STATIC
	}

	uv1, uv2 := UV_SET_0, UV_SET_0
	if len(coords) > 0 {
		uv1 = int(coords[0])
	}
	if len(coords) > 1 {
		uv2 = int(coords[1])
	}
	derived := DeriveShader(mat.Blend, mat.Blend2, uv1, uv2, len(slots))
	u.ShaderID = derived
	if mat.Shader >= 0 {
		u.ShaderID = uint16(mat.Shader)
		if !KnownShader(u.ShaderID, len(slots)) {
			diag.Warnf(validate.ShaderUnknown, "material %q: shader 0x%x is not in the shader table", mat.Name, u.ShaderID)
		}
	}
	return u, nil
}

// Units builds the tex units of one skin. submeshMaterials holds the authored
// material of every sub-mesh; out of range entries are a policy error.
func (t *Tables) Units(submeshMaterials []int) ([]m2.TexUnit, error) {
	units := make([]m2.TexUnit, 0, len(submeshMaterials))
	for si, mi := range submeshMaterials {
		if mi < 0 || mi >= len(t.units) {
			return nil, validate.Policyf("sub-mesh %d: material %d of %d", si, mi, len(t.units))
		}
		u := t.units[mi]
		u.SkinSectionIndex = uint16(si)
		u.GeosetIndex = uint16(si)
		units = append(units, u)
	}
	return units, nil
}

// Apply stores the tables in m.
func (t *Tables) Apply(m *m2.Model) {
	m.Materials = t.Materials
	m.TextureLookup = t.TextureLookup
	m.TexUnitLookup = t.TexUnitLookup
	m.TransparencyLookup = t.TransparencyLookup
	m.TextureTransformLookup = t.TextureTransformLookup
}
