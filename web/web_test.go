package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/pipeline"
	"github.com/mogaika/wow_model_browser/scene"
	"github.com/mogaika/wow_model_browser/vfs"
)

func testSource(t *testing.T) *vfs.MemorySource {
	t.Helper()
	ir := &scene.ModelIR{
		Name:      "test",
		Sequences: []m2.Sequence{{Duration: 1000, Flags: m2.SEQUENCE_FLAG_PRIMARY, VariationNext: -1}},
		Textures:  []m2.Texture{{Filename: `creature\test\test.blp`}},
		Images:    []*scene.Image{nil},
		Bones:     []scene.Bone{{Name: "root", Parent: scene.NO_PARENT, KeyBoneID: -1}},
	}
	mat := material.New("skin")
	mat.Slots = []material.Slot{{Texture: 0, Transform: -1}}
	ir.Materials = []material.Material{mat}
	ir.Meshes = []geometry.Mesh{{
		Name: "body",
		Vertices: []geometry.Vertex{
			{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}},
		},
		Faces: []geometry.Face{{Corners: []int{0, 1, 2}}},
	}}

	m, err := pipeline.BuildM2(ir, config.DefaultExportOptions(), nil)
	if err != nil {
		t.Fatal(err)
	}
	files, err := m2.Write(m)
	if err != nil {
		t.Fatal(err)
	}
	src := vfs.NewMemorySource()
	for _, f := range pipeline.M2Files("creature/test/test.m2", files) {
		src.Add(f.Path, f.Data)
	}

	var buf bytes.Buffer
	png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	src.Add("creature/test/test.png", buf.Bytes())
	return src
}

func get(t *testing.T, url string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewRouter().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	return rec
}

func TestHandlers(t *testing.T) {
	ServerSource = testSource(t)

	rec := get(t, "/json/pack?ext=m2")
	var files []string
	if err := json.Unmarshal(rec.Body.Bytes(), &files); err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || files[0] != "creature/test/test.m2" {
		t.Errorf("files %v", files)
	}

	rec = get(t, "/json/pack/creature/test/test.m2")
	if rec.Code != http.StatusOK {
		t.Fatalf("model: %d %s", rec.Code, rec.Body.String())
	}
	var model struct {
		Model struct {
			Name   string `json:"name"`
			Meshes []struct {
				Name string `json:"name"`
			} `json:"meshes"`
		} `json:"model"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &model); err != nil {
		t.Fatal(err)
	}
	if model.Model.Name != "test" || len(model.Model.Meshes) != 1 {
		t.Errorf("model %+v", model.Model)
	}

	rec = get(t, "/gltf/pack/creature/test/test.m2")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "model/gltf-binary" {
		t.Fatalf("gltf: %d %s", rec.Code, rec.Body.String())
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("glTF")) {
		t.Errorf("not a binary glTF")
	}

	rec = get(t, `/texture/pack/creature/test/test.blp`)
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/webp" {
		t.Errorf("texture: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}

	rec = get(t, "/json/diagnostics/creature/test/test.m2")
	var diag diagnosticsResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &diag); err != nil || diag.Summary == "" {
		t.Errorf("diagnostics %v %+v", err, diag)
	}
}

func TestHandlerErrors(t *testing.T) {
	ServerSource = testSource(t)
	for _, tc := range []struct {
		url  string
		code int
	}{
		{"/json/pack/missing.m2", http.StatusNotFound},
		{"/json/pack/world/test_000.wmo", http.StatusBadRequest},
		{"/json/pack/creature/test/test00.skin", http.StatusBadRequest},
		{"/gltf/pack/world/test.wmo", http.StatusBadRequest},
		{"/dump/pack/missing.blp", http.StatusNotFound},
	} {
		if rec := get(t, tc.url); rec.Code != tc.code {
			t.Errorf("%s: %d, want %d", tc.url, rec.Code, tc.code)
		}
	}
}
