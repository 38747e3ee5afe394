// Package gltfscene is the scene adapter backed by a glTF document. Bones become
// joint nodes, sequences become animations and everything glTF cannot express
// rides along in extras, so that a document written by ApplyToScene reads back
// into the same model.
package gltfscene

import (
	"io"

	"github.com/qmuntal/gltf"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/utils/gltfutils"
)

type Adapter struct {
	Doc *gltf.Document
	Log *utils.Logger
}

func New() *Adapter {
	return &Adapter{Doc: gltfutils.NewDocument()}
}

// Open reads a .gltf or .glb document.
func Open(r io.Reader) (*Adapter, error) {
	doc, err := gltfutils.Decode(r)
	if err != nil {
		return nil, err
	}
	return &Adapter{Doc: doc}, nil
}

func (a *Adapter) WriteBinary(w io.Writer) error {
	return gltfutils.ExportBinary(w, a.Doc)
}

func (a *Adapter) BuildFromScene(sel scene.Selection, opts config.ExportOptions) (*scene.ModelIR, error) {
	r := &reader{doc: a.Doc, sel: sel, log: a.Log}
	return r.read()
}

// ApplyToScene replaces the document with ir. Images are embedded only when
// textures are filled.
func (a *Adapter) ApplyToScene(ir *scene.ModelIR, opts config.ImportOptions) error {
	w := &writer{
		cacher: gltfutils.NewCacher(),
		ir:     ir,
		images: opts.FillTextures,
	}
	if err := w.write(); err != nil {
		return err
	}
	a.Doc = w.cacher.Doc
	return nil
}

type modelExtras struct {
	Name              string                `json:"name"`
	Flags             uint32                `json:"flags"`
	GlobalSequences   []uint32              `json:"global_sequences"`
	Colors            []m2.Color            `json:"colors,omitempty"`
	TextureWeights    []m2.TextureWeight    `json:"texture_weights,omitempty"`
	TextureTransforms []m2.TextureTransform `json:"texture_transforms,omitempty"`
	Attachments       []m2.Attachment       `json:"attachments,omitempty"`
	Events            []m2.Event            `json:"events,omitempty"`
	Lights            []m2.Light            `json:"lights,omitempty"`
	Cameras           []m2.Camera           `json:"cameras,omitempty"`
	Ribbons           []m2.Ribbon           `json:"ribbons,omitempty"`
	Particles         []m2.Particle         `json:"particles,omitempty"`
}

type boneExtras struct {
	Flags     uint32 `json:"flags"`
	KeyBoneID int32  `json:"key_bone_id"`
	SubmeshID uint16 `json:"submesh_id"`
	NameCRC   uint32 `json:"name_crc"`
}

type meshExtras struct {
	MeshPart  uint16 `json:"mesh_part"`
	Collision bool   `json:"collision"`
}

type textureExtras struct {
	Type     uint32 `json:"type"`
	Flags    uint32 `json:"flags"`
	Filename string `json:"filename"`
}

// animationExtras describes what an animation stands for: sequence Index of
// the model, or global sequence Global when Global >= 0.
type animationExtras struct {
	Index    int          `json:"index"`
	Global   int          `json:"global"`
	Duration uint32       `json:"duration"`
	Sequence *m2.Sequence `json:"sequence,omitempty"`
}

type samplerExtras struct {
	Interpolation track.Interpolation `json:"interpolation"`
}

type materialExtras = material.Material
