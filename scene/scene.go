// Package scene holds the format neutral snapshots that adapters trade with the
// codec: a model with named bones and float rotations, and a world object source.
package scene

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/wmo"
)

const NO_PARENT = -1

type Bone struct {
	Name      string     `json:"name"`
	Parent    int        `json:"parent"`
	Pivot     mgl32.Vec3 `json:"pivot"`
	Flags     uint32     `json:"flags"`
	KeyBoneID int32      `json:"key_bone_id"`
	SubmeshID uint16     `json:"submesh_id"`
	NameCRC   uint32     `json:"name_crc"`

	Translation track.Track[mgl32.Vec3] `json:"translation"`
	Rotation    track.Track[mgl32.Quat] `json:"rotation"`
	Scale       track.Track[mgl32.Vec3] `json:"scale"`
}

// Image is a texture preview attached when textures are filled in.
type Image struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"-"`
}

// ModelIR is what an adapter hands to the exporter and receives from the importer.
// Meshes carry bone influences as indices into Bones.
type ModelIR struct {
	Name  string `json:"name"`
	Flags uint32 `json:"flags"`

	Sequences       []m2.Sequence `json:"sequences"`
	GlobalSequences []uint32      `json:"global_sequences"`
	Bones           []Bone        `json:"bones"`

	Meshes    []geometry.Mesh     `json:"meshes"`
	Materials []material.Material `json:"materials"`

	Textures []m2.Texture `json:"textures"`
	// Images runs parallel to Textures, entries are nil when nothing was decoded
	Images            []*Image              `json:"-"`
	Colors            []m2.Color            `json:"colors"`
	TextureWeights    []m2.TextureWeight    `json:"texture_weights"`
	TextureTransforms []m2.TextureTransform `json:"texture_transforms"`

	Attachments []m2.Attachment `json:"attachments"`
	Events      []m2.Event      `json:"events"`
	Lights      []m2.Light      `json:"lights"`
	Cameras     []m2.Camera     `json:"cameras"`
	Ribbons     []m2.Ribbon     `json:"ribbons"`
	Particles   []m2.Particle   `json:"particles"`
}

// Durations is indexed by sequence.
func (ir *ModelIR) Durations() []uint32 {
	result := make([]uint32, len(ir.Sequences))
	for i := range ir.Sequences {
		result[i] = ir.Sequences[i].Duration
	}
	return result
}

// FindBone returns the index of the bone called name, or -1.
func (ir *ModelIR) FindBone(name string) int {
	for i := range ir.Bones {
		if ir.Bones[i].Name == name {
			return i
		}
	}
	return -1
}

// Selection narrows what BuildFromScene collects. With Only set, objects whose
// name is not listed are skipped.
type Selection struct {
	Names []string
	Only  bool
}

func (s Selection) Includes(name string) bool {
	if !s.Only {
		return true
	}
	for _, n := range s.Names {
		if n == name {
			return true
		}
	}
	return false
}

// Adapter connects the codec to a host scene.
type Adapter interface {
	BuildFromScene(sel Selection, opts config.ExportOptions) (*ModelIR, error)
	ApplyToScene(ir *ModelIR, opts config.ImportOptions) error
}

// WMOAdapter is the world object counterpart of Adapter.
type WMOAdapter interface {
	BuildWMOFromScene(sel Selection, opts config.ExportOptions) (*wmo.Source, error)
	ApplyWMOToScene(src *wmo.Source, opts config.ImportOptions) error
}
