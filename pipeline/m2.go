package pipeline

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/skeleton"
	"github.com/mogaika/wow_model_browser/texture"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
)

// Importer reads game files into scene snapshots.
type Importer struct {
	Progress ProgressReporter
	Log      *utils.Logger
	// Textures defaults to the shared cache
	Textures *texture.Cache
	// Encoder turns decoded textures into scene images, defaults to png
	Encoder texture.ImageEncoder
}

// ImportM2 reads a model with its sidecars and applies it to adapter. A nil
// adapter only returns the snapshot.
func ImportM2(src vfs.BlobSource, path string, adapter scene.Adapter, opts config.ImportOptions, progress ProgressReporter) (*scene.ModelIR, *validate.Diagnostics, error) {
	imp := &Importer{Progress: progress}
	return imp.ImportM2(src, path, adapter, opts)
}

func (imp *Importer) ImportM2(src vfs.BlobSource, path string, adapter scene.Adapter, opts config.ImportOptions) (*scene.ModelIR, *validate.Diagnostics, error) {
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, nil, validate.Policy(path, err)
	}
	diag := &validate.Diagnostics{}

	if err := stage(imp.Progress, "read"); err != nil {
		return nil, diag, err
	}
	m, err := ReadM2(src, path, imp.Log, diag)
	if err != nil {
		return nil, diag, err
	}

	if err := stage(imp.Progress, "scene"); err != nil {
		return nil, diag, err
	}
	ir := scene.FromM2(m, 0)
	ir.Transform(gameToScene(opts.ForwardAxis, opts.Scale))
	if opts.TimeImportMethod == config.TimeImportBake {
		ir.Bake(opts.BakeFPS)
	}

	if opts.FillTextures {
		if err := stage(imp.Progress, "textures"); err != nil {
			return nil, diag, err
		}
		imp.fillTextures(src, ir, diag)
	}

	if adapter != nil {
		if err := stage(imp.Progress, "apply"); err != nil {
			return nil, diag, err
		}
		if err := adapter.ApplyToScene(ir, opts); err != nil {
			return nil, diag, err
		}
	}
	return ir, diag, nil
}

// ReadM2 loads path and its sidecars from src.
func ReadM2(src vfs.BlobSource, path string, log *utils.Logger, diag *validate.Diagnostics) (*m2.Model, error) {
	data, err := src.Read(path)
	if err != nil {
		return nil, validate.IO(path, err)
	}
	m, err := m2.Read(data, m2.ReadOptions{
		Path: path,
		Open: src.Read,
		Log:  log,
		Diag: diag,
	})
	if err != nil {
		return nil, classify(path, err)
	}
	return m, nil
}

func (imp *Importer) fillTextures(src vfs.BlobSource, ir *scene.ModelIR, diag *validate.Diagnostics) {
	cache := imp.Textures
	if cache == nil {
		cache = texture.Shared()
	}
	enc := imp.Encoder
	if enc == nil {
		enc = texture.PNGEncoder{}
	}
	for i := range ir.Textures {
		name := ir.Textures[i].Filename
		if name == "" {
			continue
		}
		pic, err := cache.Resolve(src, name)
		if err != nil {
			diag.Warnf(validate.MissingTexturePath, "texture %d: %v", i, err)
			continue
		}
		data, err := enc.Encode(pic.Width, pic.Height, pic.RGBA)
		if err != nil {
			diag.Warnf(validate.MissingTexturePath, "texture %d: %v", i, err)
			continue
		}
		ir.Images[i] = &scene.Image{MimeType: enc.MimeType(), Data: data}
	}
}

// fullOpacity is the weight materials without their own weight point at.
func fullOpacity(numSequences int) m2.TextureWeight {
	return m2.TextureWeight{Weight: track.Constant(track.FixedFromFloat(1), numSequences)}
}

// BuildM2 turns a snapshot in game space into a model ready for m2.Write.
func BuildM2(ir *scene.ModelIR, opts config.ExportOptions, diag *validate.Diagnostics) (*m2.Model, error) {
	if len(ir.Bones) == 0 {
		for i := range ir.Meshes {
			if !ir.Meshes[i].Collision && len(ir.Meshes[i].Faces) != 0 {
				return nil, validate.Policyf("%s: mesh %q needs a skeleton, the model has no bones", ir.Name, ir.Meshes[i].Name)
			}
		}
	}
	geo, err := geometry.BuildM2(ir.Meshes, geometry.Options{
		MergeVertices: opts.MergeVertices,
		NumBones:      len(ir.Bones),
	}, diag)
	if err != nil {
		return nil, err
	}

	m := &m2.Model{
		Version:           opts.Version,
		Name:              ir.Name,
		GlobalFlags:       ir.Flags,
		GlobalSequences:   ir.GlobalSequences,
		Sequences:         ir.Sequences,
		Bones:             ir.M2Bones(),
		Vertices:          geo.Vertices,
		Colors:            ir.Colors,
		Textures:          ir.Textures,
		TextureWeights:    ir.TextureWeights,
		TextureTransforms: ir.TextureTransforms,
		BoneLookup:        geo.BoneLookup,
		Bounds:            geo.Bounds,
		Collision:         geo.Collision,
		Attachments:       ir.Attachments,
		Events:            ir.Events,
		Lights:            ir.Lights,
		Cameras:           ir.Cameras,
		Ribbons:           ir.Ribbons,
		Particles:         ir.Particles,
	}

	materials := ir.Materials
	submeshMaterials := geo.Materials
	fallback := -1
	for i, mi := range submeshMaterials {
		if mi >= 0 {
			continue
		}
		if fallback < 0 {
			fallback = len(materials)
			materials = append(materials[:len(materials):len(materials)], material.New("default"))
		}
		submeshMaterials[i] = fallback
	}
	for i := range materials {
		if materials[i].Weight < 0 && len(m.TextureWeights) == 0 {
			m.TextureWeights = []m2.TextureWeight{fullOpacity(len(m.Sequences))}
			break
		}
	}

	tables, err := material.Build(materials, material.Env{
		Textures:   len(m.Textures),
		Transforms: len(m.TextureTransforms),
		Colors:     len(m.Colors),
		Weights:    len(m.TextureWeights),
	}, diag)
	if err != nil {
		return nil, err
	}
	skin := geo.Skin
	if skin.TexUnits, err = tables.Units(submeshMaterials); err != nil {
		return nil, err
	}
	tables.Apply(m)
	m.Skins = []m2.Skin{skin}

	if _, err := skeleton.Sort(m, diag); err != nil {
		return nil, validate.Policy(ir.Name, err)
	}
	m.Normalize(diag)
	m.Check(diag)
	return m, nil
}

// M2Files names the outputs of one model: the model, its skins and one anim per
// external sequence.
func M2Files(outPath string, files *m2.Files) []File {
	result := []File{{Path: outPath, Data: files.Model}}
	for i, s := range files.Skins {
		result = append(result, File{Path: m2.SkinPath(outPath, i), Data: s})
	}
	for _, a := range files.Anims {
		result = append(result, File{Path: m2.AnimPath(outPath, a.AnimationID, a.VariationIndex), Data: a.Data})
	}
	return result
}

// imageFiles writes embedded images of textures without a path next to the
// model and points the textures at them.
func imageFiles(ir *scene.ModelIR, outPath string) []File {
	var result []File
	base := strings.TrimSuffix(filepath.Base(outPath), filepath.Ext(outPath))
	for i := range ir.Textures {
		t := &ir.Textures[i]
		if t.Type != m2.TEXTURE_TYPE_HARDCODED || t.Filename != "" || i >= len(ir.Images) || ir.Images[i] == nil {
			continue
		}
		ext := ".png"
		if ir.Images[i].MimeType == "image/webp" {
			ext = ".webp"
		}
		name := fmt.Sprintf("%s_%02d%s", base, i, ext)
		t.Filename = name
		result = append(result, File{Path: filepath.Join(filepath.Dir(outPath), name), Data: ir.Images[i].Data})
	}
	return result
}

// ExportM2 writes ir, which is moved into game space in place, to outPath and
// its sidecars. Nothing is written when an error is returned.
func (e *Exporter) ExportM2(ir *scene.ModelIR, outPath string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, validate.Policy(outPath, err)
	}
	diag := newDiagnostics(e.DiagLog)

	if err := stage(e.Progress, "geometry"); err != nil {
		return diag, err
	}
	ir.Transform(sceneToGame(opts.ForwardAxis, opts.Scale))
	var images []File
	if opts.FillTextures {
		images = imageFiles(ir, outPath)
	}
	m, err := BuildM2(ir, opts, diag)
	if err != nil {
		return diag, classify(outPath, err)
	}

	if err := stage(e.Progress, "serialize"); err != nil {
		return diag, err
	}
	files, err := m2.Write(m)
	if err != nil {
		return diag, validate.Policy(outPath, err)
	}

	if err := stage(e.Progress, "write"); err != nil {
		return diag, err
	}
	paths, err := commit(append(M2Files(outPath, files), images...))
	if err != nil {
		return diag, err
	}
	for _, p := range paths {
		e.Log.Printf("[pipeline] wrote %s", p)
	}
	e.Log.Printf("[pipeline] %s: %s", outPath, diag.Summary())
	return diag, nil
}

// ExportM2FromScene collects the scene through adapter and exports it.
func (e *Exporter) ExportM2FromScene(adapter scene.Adapter, names []string, outPath string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	opts.Resolve()
	if err := stage(e.Progress, "scene"); err != nil {
		return nil, err
	}
	ir, err := adapter.BuildFromScene(scene.Selection{Names: names, Only: opts.SelectedOnly}, opts)
	if err != nil {
		return nil, classify(outPath, err)
	}
	return e.ExportM2(ir, outPath, opts)
}
