package pipeline

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
	"github.com/mogaika/wow_model_browser/wmo"
)

// TransformWMO rotates then scales an authored world object in place.
// Liquid grids are world axis aligned and are left as they are.
func TransformWMO(src *wmo.Source, rotation mgl32.Quat, scale float32) {
	if rotation == mgl32.QuatIdent() && scale == 1 {
		return
	}
	place := func(v mgl32.Vec3) mgl32.Vec3 {
		return geometry.Rotate(rotation, v).Mul(scale)
	}
	for gi := range src.Groups {
		geometry.Transform(src.Groups[gi].Meshes, rotation, scale)
	}
	for pi := range src.Portals {
		verts := src.Portals[pi].Vertices
		for i := range verts {
			verts[i] = place(verts[i])
		}
	}
	for i := range src.Doodads {
		d := &src.Doodads[i]
		d.Position = place(d.Position)
		d.Orientation = rotation.Mul(d.Orientation).Normalize()
		d.Scale *= scale
	}
	for i := range src.Lights {
		src.Lights[i].Position = place(src.Lights[i].Position)
		src.Lights[i].AttenStart *= scale
		src.Lights[i].AttenEnd *= scale
	}
	for i := range src.Fogs {
		f := &src.Fogs[i]
		f.Position = place(f.Position)
		f.SmallerRadius *= scale
		f.LargerRadius *= scale
	}
	for i := range src.ConvexVolume {
		p := &src.ConvexVolume[i]
		p.Normal = geometry.Rotate(rotation, p.Normal)
		p.Distance *= scale
	}
	for bi := range src.Blocks {
		verts := src.Blocks[bi].Vertices
		for i := range verts {
			verts[i] = place(verts[i])
		}
	}
}

// ImportWMO reads a root and its groups and applies the authored form to adapter.
func ImportWMO(src vfs.BlobSource, path string, adapter scene.WMOAdapter, opts config.ImportOptions, progress ProgressReporter) (*wmo.Source, *validate.Diagnostics, error) {
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, nil, validate.Policy(path, err)
	}
	diag := &validate.Diagnostics{}

	if err := stage(progress, "read"); err != nil {
		return nil, diag, err
	}
	w, err := wmo.Read(path, src.Read, nil, diag)
	if err != nil {
		return nil, diag, err
	}

	if err := stage(progress, "scene"); err != nil {
		return nil, diag, err
	}
	s := w.Source()
	rot, scale := gameToScene(opts.ForwardAxis, opts.Scale)
	TransformWMO(s, rot, scale)

	if adapter != nil {
		if err := stage(progress, "apply"); err != nil {
			return nil, diag, err
		}
		if err := adapter.ApplyWMOToScene(s, opts); err != nil {
			return nil, diag, err
		}
	}
	return s, diag, nil
}

// ExportWMO writes src, moved into game space in place, as a root file and
// {base}_NNN.wmo groups.
func (e *Exporter) ExportWMO(src *wmo.Source, outPath string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	opts.Resolve()
	if err := opts.Validate(); err != nil {
		return nil, validate.Policy(outPath, err)
	}
	diag := newDiagnostics(e.DiagLog)

	if err := stage(e.Progress, "geometry"); err != nil {
		return diag, err
	}
	rot, scale := sceneToGame(opts.ForwardAxis, opts.Scale)
	TransformWMO(src, rot, scale)
	w, err := wmo.Build(src, diag)
	if err != nil {
		return diag, classify(outPath, err)
	}

	if err := stage(e.Progress, "serialize"); err != nil {
		return diag, err
	}
	wf, err := w.Write(outPath)
	if err != nil {
		return diag, classify(outPath, err)
	}
	files := make([]File, len(wf))
	for i, f := range wf {
		files[i] = File{Path: f.Path, Data: f.Data}
	}

	if err := stage(e.Progress, "write"); err != nil {
		return diag, err
	}
	if _, err := commit(files); err != nil {
		return diag, err
	}
	e.Log.Printf("[pipeline] %s: %d groups, %s", outPath, len(w.Groups), diag.Summary())
	return diag, nil
}

// ExportWMOFromScene collects the world object through adapter and exports it.
func (e *Exporter) ExportWMOFromScene(adapter scene.WMOAdapter, names []string, outPath string, opts config.ExportOptions) (*validate.Diagnostics, error) {
	opts.Resolve()
	if err := stage(e.Progress, "scene"); err != nil {
		return nil, err
	}
	src, err := adapter.BuildWMOFromScene(scene.Selection{Names: names, Only: opts.SelectedOnly}, opts)
	if err != nil {
		return nil, classify(outPath, err)
	}
	return e.ExportWMO(src, outPath, opts)
}
