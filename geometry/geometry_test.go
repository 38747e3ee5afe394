package geometry

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/validate"
)

func triangleMesh() Mesh {
	return Mesh{
		Name: "tri",
		Vertices: []Vertex{
			{Position: mgl32.Vec3{0, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{1, 0, 0}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{0, 1, 0}, Normal: mgl32.Vec3{0, 0, 1}},
		},
		Faces: []Face{{Corners: []int{0, 1, 2}}},
	}
}

func TestSingleTriangle(t *testing.T) {
	res, err := BuildM2([]Mesh{triangleMesh()}, Options{NumBones: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Vertices) != 3 || len(res.Skin.Indices) != 3 || len(res.Skin.SubMeshes) != 1 {
		t.Fatalf("got %d vertices, %d indices, %d submeshes", len(res.Vertices), len(res.Skin.Indices), len(res.Skin.SubMeshes))
	}
	sm := res.Skin.SubMeshes[0]
	if math32.Abs(sm.SortRadius-float32(math.Sqrt2)/2) > 1e-6 {
		t.Errorf("radius %v, want sqrt(2)/2", sm.SortRadius)
	}
	if math32.Abs(res.Bounds.Radius-float32(math.Sqrt2)/2) > 1e-6 {
		t.Errorf("model radius %v", res.Bounds.Radius)
	}
	for _, v := range res.Vertices {
		if v.BoneWeights != [4]uint8{255} || v.BoneIndices != [4]uint8{} {
			t.Errorf("unweighted vertex not bound to bone 0: %+v", v)
		}
	}
}

func TestTriangulate(t *testing.T) {
	mesh := Mesh{
		Vertices: make([]Vertex, 5),
		Faces: []Face{
			{Corners: []int{0, 1, 2, 3, 4}, Material: 2},
			{Corners: []int{0, 0, 1}},
			{Corners: []int{0, 1, 9}},
		},
	}
	tris, mats, dropped := Triangulate(&mesh)
	if len(tris) != 3 || dropped != 2 {
		t.Fatalf("%d triangles, %d dropped", len(tris), dropped)
	}
	if tris[2] != (Triangle{0, 3, 4}) || mats[2] != 2 {
		t.Errorf("fan %v materials %v", tris, mats)
	}
}

// cube builds 24 corners, 4 per face. With seams every face gets its own uv island.
func cube(seams bool) Mesh {
	var mesh Mesh
	faces := [6][4]mgl32.Vec3{
		{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		{{0, 0, 1}, {0, 1, 1}, {1, 1, 1}, {1, 0, 1}},
		{{0, 0, 0}, {0, 0, 1}, {1, 0, 1}, {1, 0, 0}},
		{{0, 1, 0}, {1, 1, 0}, {1, 1, 1}, {0, 1, 1}},
		{{0, 0, 0}, {0, 1, 0}, {0, 1, 1}, {0, 0, 1}},
		{{1, 0, 0}, {1, 0, 1}, {1, 1, 1}, {1, 1, 0}},
	}
	quad := [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}
	for fi, f := range faces {
		base := len(mesh.Vertices)
		for k, p := range f {
			v := Vertex{Position: p, Normal: p.Sub(mgl32.Vec3{0.5, 0.5, 0.5}).Normalize()}
			if seams {
				v.UV[0] = quad[k].Add(mgl32.Vec2{float32(fi), 0})
			} else {
				v.UV[0] = mgl32.Vec2{p[0], p[1] + p[2]}
			}
			mesh.Vertices = append(mesh.Vertices, v)
		}
		mesh.Faces = append(mesh.Faces, Face{Corners: []int{base, base + 1, base + 2, base + 3}})
	}
	return mesh
}

func TestVertexDedup(t *testing.T) {
	tests := []struct {
		seams, merge bool
		vertices     int
	}{
		{false, true, 8},
		{true, true, 24},
		{false, false, 24},
	}
	for _, test := range tests {
		res, err := BuildM2([]Mesh{cube(test.seams)}, Options{MergeVertices: test.merge}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if len(res.Vertices) != test.vertices {
			t.Errorf("seams=%v merge=%v: %d vertices, want %d", test.seams, test.merge, len(res.Vertices), test.vertices)
		}
		if len(res.Skin.Indices) != 36 {
			t.Errorf("%d indices, want 36", len(res.Skin.Indices))
		}
	}
}

func TestSplitByMaterialAndPart(t *testing.T) {
	a := triangleMesh()
	a.Faces = append(a.Faces, Face{Corners: []int{2, 1, 0}, Material: 1})
	b := triangleMesh()
	b.MeshPart = m2.MeshPartID(4, 1)
	col := triangleMesh()
	col.Collision = true

	res, err := BuildM2([]Mesh{b, a, col}, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skin.SubMeshes) != 3 {
		t.Fatalf("%d submeshes", len(res.Skin.SubMeshes))
	}
	want := []struct {
		id       uint16
		material int
	}{{0, 0}, {0, 1}, {401, 0}}
	for i, w := range want {
		if res.Skin.SubMeshes[i].ID != w.id || res.Materials[i] != w.material {
			t.Errorf("submesh %d: id %d material %d, want %d %d", i, res.Skin.SubMeshes[i].ID, res.Materials[i], w.id, w.material)
		}
	}
	if len(res.Collision.Positions) != 3 || len(res.Collision.Indices) != 3 || len(res.Collision.Normals) != 1 {
		t.Errorf("collision %+v", res.Collision)
	}
	if res.Collision.Normals[0] != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("collision normal %v", res.Collision.Normals[0])
	}
	if len(res.Vertices) != 9 {
		t.Errorf("collision leaked into render vertices: %d", len(res.Vertices))
	}
}

func TestBonePaletteSplit(t *testing.T) {
	// two islands of one triangle, each on its own three bones
	mesh := Mesh{Name: "skinned"}
	for i := 0; i < 6; i++ {
		mesh.Vertices = append(mesh.Vertices, Vertex{
			Position:   mgl32.Vec3{float32(i), float32(i % 2), 0},
			Influences: []m2.Influence{{Bone: i, Weight: 1}},
		})
	}
	mesh.Faces = []Face{{Corners: []int{0, 1, 2}}, {Corners: []int{3, 4, 5}}}

	diag := &validate.Diagnostics{}
	res, err := BuildM2([]Mesh{mesh}, Options{MaxBones: 4, NumBones: 6}, diag)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Skin.SubMeshes) != 2 || !diag.Has(validate.BoneSetSplit) {
		t.Fatalf("%d submeshes, diag %v", len(res.Skin.SubMeshes), diag.Entries)
	}
	second := res.Skin.SubMeshes[1]
	if second.BoneCount != 3 || second.BoneComboIndex != 3 {
		t.Errorf("second palette %+v", second)
	}
	if got := res.BoneLookup[second.BoneComboIndex+uint16(res.Skin.Bones[3][0])]; got != 3 {
		t.Errorf("vertex 3 resolves to bone %d", got)
	}

	if _, err := BuildM2([]Mesh{mesh}, Options{NumBones: 2}, nil); err == nil {
		t.Errorf("influence on missing bone accepted")
	} else if k, _ := validate.KindOf(err); k != validate.KindPolicy {
		t.Errorf("error kind %v", k)
	}
}

func TestInfluenceOverflow(t *testing.T) {
	mesh := triangleMesh()
	for i := range mesh.Vertices {
		for b := 0; b < 5; b++ {
			mesh.Vertices[i].Influences = append(mesh.Vertices[i].Influences, m2.Influence{Bone: b, Weight: 1})
		}
	}
	diag := &validate.Diagnostics{}
	res, err := BuildM2([]Mesh{mesh}, Options{}, diag)
	if err != nil {
		t.Fatal(err)
	}
	if diag.Count(validate.BoneInfluenceOverflow) != 1 {
		t.Errorf("overflow not reported: %v", diag.Entries)
	}
	for _, v := range res.Vertices {
		if !v.WeightsValid() {
			t.Errorf("invalid weights %v %v", v.BoneWeights, v.BoneIndices)
		}
	}
}

func TestMinimalSphere(t *testing.T) {
	points := []mgl32.Vec3{{-1, 0, 0}, {1, 0, 0}, {0, 0.5, 0}, {0, 0, 0.9}, {0.1, -0.2, 0.3}}
	s := MinimalSphere(points)
	if math32.Abs(s.Radius-1) > 1e-5 || s.Center.Len() > 1e-5 {
		t.Errorf("sphere %+v", s)
	}
	tetra := []mgl32.Vec3{{1, 1, 1}, {1, -1, -1}, {-1, 1, -1}, {-1, -1, 1}}
	s = MinimalSphere(tetra)
	if math32.Abs(s.Radius-math32.Sqrt(3)) > 1e-5 {
		t.Errorf("tetrahedron sphere %+v", s)
	}
}

func TestFromM2(t *testing.T) {
	res, err := BuildM2([]Mesh{cube(true)}, Options{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	m := &m2.Model{Vertices: res.Vertices, Skins: []m2.Skin{res.Skin}}
	meshes := FromM2(m, 0, func(int) int { return 7 })
	if len(meshes) != 1 || len(meshes[0].Faces) != 12 || len(meshes[0].Vertices) != 24 {
		t.Fatalf("meshes %d", len(meshes))
	}
	if meshes[0].Faces[0].Material != 7 {
		t.Errorf("material %d", meshes[0].Faces[0].Material)
	}
}

func TestRotateQuarterTurnsExact(t *testing.T) {
	for _, tc := range []struct {
		deg  float32
		in   mgl32.Vec3
		want mgl32.Vec3
	}{
		{-90, mgl32.Vec3{0, 1, 0}, mgl32.Vec3{1, 0, 0}},
		{-90, mgl32.Vec3{1, 0, 0}, mgl32.Vec3{0, -1, 0}},
		{90, mgl32.Vec3{3, 0, 5}, mgl32.Vec3{0, 3, 5}},
		{180, mgl32.Vec3{1, 2, 3}, mgl32.Vec3{-1, -2, 3}},
		{0, mgl32.Vec3{0.25, -7, 1}, mgl32.Vec3{0.25, -7, 1}},
	} {
		q := mgl32.QuatRotate(mgl32.DegToRad(tc.deg), mgl32.Vec3{0, 0, 1})
		if got := Rotate(q, tc.in); got != tc.want {
			t.Errorf("%v by %v: got %v, want %v", tc.in, tc.deg, got, tc.want)
		}
		back := Rotate(q.Conjugate(), Rotate(q, tc.in))
		if back != tc.in {
			t.Errorf("%v by %v: round trip %v", tc.in, tc.deg, back)
		}
	}

	// arbitrary angles keep plain rotation
	q := mgl32.QuatRotate(mgl32.DegToRad(30), mgl32.Vec3{0, 0, 1})
	if got, want := Rotate(q, mgl32.Vec3{1, 0, 0}), q.Rotate(mgl32.Vec3{1, 0, 0}); !got.ApproxEqualThreshold(want, 1e-5) {
		t.Errorf("30 degrees: %v, want %v", got, want)
	}
}

// grid is a w x h quad floor on one bone.
func grid(w, h int) Mesh {
	mesh := Mesh{Name: "floor"}
	for y := 0; y <= h; y++ {
		for x := 0; x <= w; x++ {
			mesh.Vertices = append(mesh.Vertices, Vertex{
				Position:   mgl32.Vec3{float32(x), float32(y), 0},
				Normal:     mgl32.Vec3{0, 0, 1},
				Influences: []m2.Influence{{Bone: 0, Weight: 1}},
			})
		}
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*(w+1) + x
			mesh.Faces = append(mesh.Faces, Face{Corners: []int{i, i + 1, i + w + 2, i + w + 1}})
		}
	}
	return mesh
}

func TestTriangleBudgetSplit(t *testing.T) {
	res, err := BuildM2([]Mesh{grid(3, 2)}, Options{NumBones: 1, MaxTriangles: 5}, nil)
	if err != nil {
		t.Fatal(err)
	}
	var counts []uint32
	for _, sm := range res.Skin.SubMeshes {
		counts = append(counts, sm.IndexCount)
	}
	if len(counts) != 3 || counts[0] != 15 || counts[1] != 15 || counts[2] != 6 {
		t.Errorf("index counts %v", counts)
	}
}

func TestLargeDrawFitsIndexCount(t *testing.T) {
	// 44000 triangles of one material, 132000 indices
	res, err := BuildM2([]Mesh{grid(200, 110)}, Options{NumBones: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	total := 0
	for i, sm := range res.Skin.SubMeshes {
		if sm.IndexCount > 0xffff {
			t.Errorf("submesh %d has %d indices", i, sm.IndexCount)
		}
		total += int(sm.IndexCount)
	}
	if total != 44000*3 || len(res.Skin.Indices) != total {
		t.Errorf("%d indices in submeshes, %d in skin", total, len(res.Skin.Indices))
	}
	if len(res.Skin.SubMeshes) != 3 {
		t.Errorf("%d submeshes", len(res.Skin.SubMeshes))
	}
}
