package pipeline

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/texture"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
	"github.com/mogaika/wow_model_browser/wmo"
)

var trianglePositions = []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func testIR() *scene.ModelIR {
	ir := &scene.ModelIR{
		Name: "test",
		Sequences: []m2.Sequence{
			{AnimationID: 0, Duration: 1000, Flags: m2.SEQUENCE_FLAG_PRIMARY, VariationNext: -1},
			{AnimationID: 4, Duration: 800, VariationNext: -1},
		},
		Textures: []m2.Texture{{Filename: `creature\test\test.blp`}},
		Images:   []*scene.Image{nil},
	}
	mat := material.New("skin")
	mat.Slots = []material.Slot{{Texture: 0, UVSet: material.UV_SET_0, Transform: -1}}
	ir.Materials = []material.Material{mat}

	root := scene.Bone{Name: "root", Parent: scene.NO_PARENT, KeyBoneID: -1}
	root.Rotation = track.NewPerSequence[mgl32.Quat](track.Linear, 2)
	root.Rotation.Set(1, []uint32{0, 800}, []mgl32.Quat{
		mgl32.QuatIdent(),
		mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}),
	})
	ir.Bones = []scene.Bone{root}

	mesh := geometry.Mesh{Name: "body", Faces: []geometry.Face{{Corners: []int{0, 1, 2}}}}
	for _, p := range trianglePositions {
		mesh.Vertices = append(mesh.Vertices, geometry.Vertex{
			Position:   p,
			Normal:     mgl32.Vec3{0, 0, 1},
			Influences: []m2.Influence{{Bone: 0, Weight: 1}},
		})
	}
	ir.Meshes = []geometry.Mesh{mesh}
	return ir
}

func listDir(t *testing.T, dir string) []string {
	t.Helper()
	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			rel, _ := filepath.Rel(dir, path)
			names = append(names, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	return names
}

// near compares with an absolute tolerance, ApproxEqualThreshold is relative.
func near(a, b mgl32.Vec3) bool {
	for i := range a {
		if d := a[i] - b[i]; d > 1e-5 || d < -1e-5 {
			return false
		}
	}
	return true
}

func hasPosition(points []mgl32.Vec3, p mgl32.Vec3) bool {
	for _, q := range points {
		if near(q, p) {
			return true
		}
	}
	return false
}

func TestExportM2Files(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{}
	defer e.Close()

	diag, err := e.ExportM2(testIR(), filepath.Join(dir, "test.m2"), config.DefaultExportOptions())
	if err != nil {
		t.Fatal(err)
	}
	if diag.Summary() != "exported with 0 warnings" {
		t.Errorf("%s: %v", diag.Summary(), diag.Entries)
	}

	want := map[string]bool{"test.m2": true, "test00.skin": true, "test_0004_00.anim": true}
	got := listDir(t, dir)
	if len(got) != len(want) {
		t.Fatalf("files %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected file %q", name)
		}
	}

	m, err := ReadM2(vfs.NewDirectoryDriver(dir), "test.m2", nil, &validate.Diagnostics{})
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Skins) != 1 || len(m.Skins[0].TexUnits) != 1 || len(m.Vertices) != 3 {
		t.Fatalf("%d skins, %d vertices", len(m.Skins), len(m.Vertices))
	}
	if len(m.TextureWeights) != 1 || m.TextureWeights[0].Weight.Keys(0).Values[0] != track.FixedFromFloat(1) {
		t.Errorf("default texture weight missing: %+v", m.TextureWeights)
	}
	if k := m.Bones[0].Rotation.Keys(1); k.Len() != 2 || k.Timestamps[1] != 800 {
		t.Errorf("external sequence keys %+v", k)
	}
}

func TestForwardAxisRoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{}
	defer e.Close()

	eo := config.DefaultExportOptions()
	eo.ForwardAxis = config.ForwardPosY
	eo.Scale = 2
	if _, err := e.ExportM2(testIR(), filepath.Join(dir, "test.m2"), eo); err != nil {
		t.Fatal(err)
	}

	src := vfs.NewDirectoryDriver(dir)
	m, err := ReadM2(src, "test.m2", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	var game []mgl32.Vec3
	for _, v := range m.Vertices {
		game = append(game, v.Position)
	}
	// scene +Y is game +X
	if !hasPosition(game, mgl32.Vec3{2, 0, 0}) || !hasPosition(game, mgl32.Vec3{0, -2, 0}) {
		t.Errorf("game positions %v", game)
	}

	io := config.DefaultImportOptions()
	io.ForwardAxis = config.ForwardPosY
	io.Scale = 2
	ir, _, err := ImportM2(src, "test.m2", nil, io, nil)
	if err != nil {
		t.Fatal(err)
	}
	var back []mgl32.Vec3
	for _, v := range ir.Meshes[0].Vertices {
		back = append(back, v.Position)
	}
	for _, p := range trianglePositions {
		if !hasPosition(back, p) {
			t.Errorf("%v lost on round trip: %v", p, back)
		}
	}
}

func TestCancelWritesNothing(t *testing.T) {
	dir := t.TempDir()
	var stages []string
	e := &Exporter{Progress: ProgressFunc(func(name string) bool {
		stages = append(stages, name)
		return name != "write"
	})}
	defer e.Close()

	_, err := e.ExportM2(testIR(), filepath.Join(dir, "test.m2"), config.DefaultExportOptions())
	if !isCanceled(err) {
		t.Fatalf("expected cancel, got %v", err)
	}
	if len(stages) != 3 || stages[0] != "geometry" {
		t.Errorf("stages %v", stages)
	}
	if files := listDir(t, dir); len(files) != 0 {
		t.Errorf("canceled export left %v", files)
	}
}

func TestExportWithoutSkeleton(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{}
	defer e.Close()

	ir := testIR()
	ir.Bones = nil
	for i := range ir.Meshes[0].Vertices {
		ir.Meshes[0].Vertices[i].Influences = nil
	}
	_, err := e.ExportM2(ir, filepath.Join(dir, "test.m2"), config.DefaultExportOptions())
	if k, ok := validate.KindOf(err); !ok || k != validate.KindPolicy {
		t.Fatalf("expected policy error, got %v", err)
	}
	if files := listDir(t, dir); len(files) != 0 {
		t.Errorf("rejected export left %v", files)
	}
}

func isCanceled(err error) bool {
	return err != nil && errors.Cause(err) == ErrCanceled
}

func TestImportErrors(t *testing.T) {
	src := vfs.NewMemorySource()
	src.Add("bad.m2", []byte("NOPE0000"))

	_, _, err := ImportM2(src, "missing.m2", nil, config.DefaultImportOptions(), nil)
	if k, ok := validate.KindOf(err); !ok || k != validate.KindIO {
		t.Errorf("missing file: %v", err)
	}
	_, _, err = ImportM2(src, "bad.m2", nil, config.DefaultImportOptions(), nil)
	if k, ok := validate.KindOf(err); !ok || k != validate.KindFormat {
		t.Errorf("bad magic: %v", err)
	}
	_, _, err = ImportM2(src, "bad.m2", nil, config.ImportOptions{TimeImportMethod: "sometimes"}, nil)
	if k, ok := validate.KindOf(err); !ok || k != validate.KindPolicy {
		t.Errorf("bad options: %v", err)
	}
}

type recordingAdapter struct {
	applied *scene.ModelIR
	opts    config.ImportOptions
}

func (a *recordingAdapter) BuildFromScene(sel scene.Selection, opts config.ExportOptions) (*scene.ModelIR, error) {
	return testIR(), nil
}

func (a *recordingAdapter) ApplyToScene(ir *scene.ModelIR, opts config.ImportOptions) error {
	a.applied = ir
	a.opts = opts
	return nil
}

func TestImportFillTextures(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{}
	defer e.Close()
	if _, err := e.ExportM2FromScene(&recordingAdapter{}, nil, filepath.Join(dir, "test.m2"), config.DefaultExportOptions()); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 4, 4)))
	if err := os.MkdirAll(filepath.Join(dir, "creature", "test"), 0777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "creature", "test", "test.png"), buf.Bytes(), 0666); err != nil {
		t.Fatal(err)
	}

	adapter := &recordingAdapter{}
	imp := &Importer{Textures: texture.NewCache(nil)}
	opts := config.DefaultImportOptions()
	opts.FillTextures = true
	opts.TimeImportMethod = config.TimeImportBake
	opts.BakeFPS = 10
	ir, diag, err := imp.ImportM2(vfs.NewDirectoryDriver(dir), "test.m2", adapter, opts)
	if err != nil {
		t.Fatal(err)
	}
	if adapter.applied != ir || !adapter.opts.FillTextures {
		t.Errorf("adapter not called with the snapshot")
	}
	if img := ir.Images[0]; img == nil || img.MimeType != "image/png" {
		t.Errorf("texture not filled: %v", diag.Entries)
	}
	// 800ms at 10fps
	if k := ir.Bones[0].Rotation.Keys(1); k.Len() != 9 {
		t.Errorf("baked %d keys", k.Len())
	}
}

func TestFillTexturesOnExport(t *testing.T) {
	dir := t.TempDir()
	ir := testIR()
	ir.Textures[0].Filename = ""
	ir.Images[0] = &scene.Image{MimeType: "image/png", Data: []byte("png")}

	e := &Exporter{}
	opts := config.DefaultExportOptions()
	opts.FillTextures = true
	if _, err := e.ExportM2(ir, filepath.Join(dir, "test.m2"), opts); err != nil {
		t.Fatal(err)
	}
	if ir.Textures[0].Filename != "test_00.png" {
		t.Errorf("texture path %q", ir.Textures[0].Filename)
	}
	data, err := os.ReadFile(filepath.Join(dir, "test_00.png"))
	if err != nil || string(data) != "png" {
		t.Errorf("image not written: %v", err)
	}
}

func floorSource() *wmo.Source {
	mesh := geometry.Mesh{Name: "floor"}
	for _, p := range []mgl32.Vec3{{0, 0, 0}, {4, 0, 0}, {4, 4, 0}, {0, 4, 0}} {
		mesh.Vertices = append(mesh.Vertices, geometry.Vertex{Position: p, Normal: mgl32.Vec3{0, 0, 1}})
	}
	mesh.Faces = []geometry.Face{{Corners: []int{0, 1, 2, 3}}}
	return &wmo.Source{
		Materials: []wmo.Material{{Texture1: "world/floor.blp"}},
		Groups:    []wmo.GroupSource{{Name: "hall", Meshes: []geometry.Mesh{mesh}}},
		Doodads:   []wmo.Doodad{{DoodadDef: wmo.DoodadDef{Path: "world/chair.m2", Position: mgl32.Vec3{1, 0, 0}, Orientation: mgl32.QuatIdent(), Scale: 1}}},
		Sets:      []string{"main"},
	}
}

func TestWMORoundTrip(t *testing.T) {
	dir := t.TempDir()
	e := &Exporter{}
	defer e.Close()

	eo := config.DefaultExportOptions()
	eo.ForwardAxis = config.ForwardNegX
	if _, err := e.ExportWMO(floorSource(), filepath.Join(dir, "world", "test.wmo"), eo); err != nil {
		t.Fatal(err)
	}
	files := listDir(t, dir)
	if len(files) != 2 || files[0] != "world/test.wmo" || files[1] != "world/test_000.wmo" {
		t.Fatalf("files %v", files)
	}

	io := config.DefaultImportOptions()
	io.ForwardAxis = config.ForwardNegX
	src, diag, err := ImportWMO(vfs.NewDirectoryDriver(dir), "world/test.wmo", nil, io, nil)
	if err != nil {
		t.Fatal(err)
	}
	if diag.Warnings() != 0 {
		t.Errorf("warnings: %v", diag.Entries)
	}
	if len(src.Groups) != 1 || src.Groups[0].Name != "hall" {
		t.Fatalf("groups %+v", src.Groups)
	}
	if len(src.Doodads) != 1 || !near(src.Doodads[0].Position, mgl32.Vec3{1, 0, 0}) {
		t.Errorf("doodad %+v", src.Doodads)
	}
}

func TestTransformWMO(t *testing.T) {
	src := floorSource()
	src.ConvexVolume = []wmo.Plane{{Normal: mgl32.Vec3{1, 0, 0}, Distance: 3}}
	TransformWMO(src, config.ForwardPosY.Rotation(), 2)
	if p := src.Doodads[0].Position; !near(p, mgl32.Vec3{0, -2, 0}) {
		t.Errorf("doodad at %v", p)
	}
	if src.Doodads[0].Scale != 2 {
		t.Errorf("doodad scale %v", src.Doodads[0].Scale)
	}
	if p := src.ConvexVolume[0]; !near(p.Normal, mgl32.Vec3{0, -1, 0}) || p.Distance != 6 {
		t.Errorf("plane %+v", p)
	}
}
