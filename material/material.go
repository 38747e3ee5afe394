package material

import (
	"fmt"

	"github.com/mogaika/wow_model_browser/m2"
)

// MAX_SLOTS is how many textures one material can layer.
const MAX_SLOTS = 2

const (
	UV_SET_0 = 0
	UV_SET_1 = 1
	// UV_ENV_MAP maps the slot with sphere environment coordinates
	UV_ENV_MAP = -1
)

// Slot is one texture layer of an authored material.
type Slot struct {
	Texture int `json:"texture" yaml:"texture"`
	UVSet   int `json:"uv_set" yaml:"uv_set"`
	// Transform indexes the model uv transforms, -1 is static
	Transform int `json:"transform" yaml:"transform"`
}

// Material is the authored description of a surface.
type Material struct {
	Name  string `json:"name" yaml:"name"`
	Flags uint16 `json:"flags" yaml:"flags"`
	// Blend combines the first layer with the framebuffer, Blend2 the second layer with the first
	Blend         m2.BlendMode `json:"blend" yaml:"blend"`
	Blend2        m2.BlendMode `json:"blend2" yaml:"blend2"`
	PriorityPlane int8         `json:"priority_plane" yaml:"priority_plane"`
	Slots         []Slot       `json:"slots" yaml:"slots"`
	// Color and Weight index the color and texture weight tracks, -1 is none
	Color  int `json:"color" yaml:"color"`
	Weight int `json:"weight" yaml:"weight"`
	// Shader overrides the derived shader id when >= 0
	Shader int `json:"shader" yaml:"shader"`
}

func New(name string) Material {
	return Material{
		Name:   name,
		Flags:  m2.MATERIAL_FLAG_DEPTH_TEST | m2.MATERIAL_FLAG_DEPTH_WRITE,
		Color:  -1,
		Weight: -1,
		Shader: -1,
	}
}

func (m *Material) TwoSided() bool {
	return m.Flags&m2.MATERIAL_FLAG_TWO_SIDED != 0
}

func (m *Material) Unlit() bool {
	return m.Flags&m2.MATERIAL_FLAG_UNLIT != 0
}

func materialName(i int) string {
	return fmt.Sprintf("material_%d", i)
}
