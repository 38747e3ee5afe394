package wmo

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
)

// floor builds nx*ny unit quads starting at origin, two triangles each.
func floor(nx, ny int, origin mgl32.Vec3) geometry.Mesh {
	mesh := geometry.Mesh{Name: "floor"}
	for y := 0; y <= ny; y++ {
		for x := 0; x <= nx; x++ {
			mesh.Vertices = append(mesh.Vertices, geometry.Vertex{
				Position: origin.Add(mgl32.Vec3{float32(x), float32(y), 0}),
				Normal:   mgl32.Vec3{0, 0, 1},
				UV:       [2]mgl32.Vec2{{float32(x), float32(y)}},
			})
		}
	}
	at := func(x, y int) int { return y*(nx+1) + x }
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			mesh.Faces = append(mesh.Faces, geometry.Face{Corners: []int{at(x, y), at(x+1, y), at(x+1, y+1), at(x, y+1)}})
		}
	}
	return mesh
}

func TestBSPFloor(t *testing.T) {
	mesh := floor(10, 5, mgl32.Vec3{})
	tris, _, _ := geometry.Triangulate(&mesh)
	if len(tris) != 100 {
		t.Fatalf("%d triangles", len(tris))
	}
	var positions []mgl32.Vec3
	for _, v := range mesh.Vertices {
		positions = append(positions, v.Position)
	}
	var indices []uint16
	for _, tr := range tris {
		indices = append(indices, uint16(tr[0]), uint16(tr[1]), uint16(tr[2]))
	}

	bsp := BuildBSP(positions, indices)
	if bsp.Depth > 8 || bsp.Exceeded {
		t.Errorf("depth %d exceeded %v", bsp.Depth, bsp.Exceeded)
	}
	for i, n := range bsp.Nodes {
		if n.Leaf() && n.NumFaces > BSP_LEAF_FACES {
			t.Errorf("leaf %d holds %d triangles", i, n.NumFaces)
		}
	}
	for f := 0; f < len(tris); f++ {
		c := positions[indices[f*3]].Add(positions[indices[f*3+1]]).Add(positions[indices[f*3+2]]).Mul(1.0 / 3)
		found := false
		for _, got := range Walk(bsp.Nodes, bsp.Faces, c) {
			if got == f {
				found = true
			}
		}
		if !found {
			t.Errorf("triangle %d not reachable from its centroid %v", f, c)
		}
	}
}

func TestBSPStacked(t *testing.T) {
	// identical triangles can not be separated
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	var indices []uint16
	for i := 0; i < 40; i++ {
		indices = append(indices, 0, 1, 2)
	}
	bsp := BuildBSP(positions, indices)
	if len(bsp.Nodes) != 1 || !bsp.Nodes[0].Leaf() || bsp.Nodes[0].NumFaces != 40 {
		t.Errorf("nodes %+v", bsp.Nodes)
	}
	if bsp.Oversized != 40 || bsp.Exceeded {
		t.Errorf("oversized %d exceeded %v", bsp.Oversized, bsp.Exceeded)
	}
}

func TestBSPLongPlanks(t *testing.T) {
	// every plank spans the whole x range, only y separates them
	var positions []mgl32.Vec3
	var indices []uint16
	for i := 0; i < 20; i++ {
		y := float32(i)
		base := uint16(len(positions))
		positions = append(positions,
			mgl32.Vec3{0, y, 0}, mgl32.Vec3{100, y, 0},
			mgl32.Vec3{100, y + 0.5, 0}, mgl32.Vec3{0, y + 0.5, 0})
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	bsp := BuildBSP(positions, indices)
	if bsp.Oversized != 0 || bsp.Exceeded {
		t.Errorf("oversized %d exceeded %v", bsp.Oversized, bsp.Exceeded)
	}
	for i, n := range bsp.Nodes {
		if n.Leaf() && n.NumFaces > BSP_LEAF_FACES {
			t.Errorf("leaf %d holds %d triangles", i, n.NumFaces)
		}
		if !n.Leaf() && n.Flags&BSP_AXIS_MASK != 1 {
			t.Errorf("node %d splits axis %d", i, n.Flags&BSP_AXIS_MASK)
		}
	}
}

func TestBuildSplitsLargeBatch(t *testing.T) {
	// 24000 triangles of one material
	src := &Source{
		Materials: []Material{{Texture1: "world/stone.blp"}},
		Groups:    []GroupSource{{Name: "hall", Meshes: []geometry.Mesh{floor(120, 100, mgl32.Vec3{})}}},
	}
	diag := &validate.Diagnostics{}
	w, err := Build(src, diag)
	if err != nil {
		t.Fatal(err)
	}
	g := w.Groups[0]
	total := 0
	for i, b := range g.Batches {
		if int(b.StartIndex) != total {
			t.Errorf("batch %d starts at %d, want %d", i, b.StartIndex, total)
		}
		total += int(b.Count)
	}
	if len(g.Batches) != 2 || total != 24000*3 || len(g.Indices) != total {
		t.Errorf("%d batches, %d indices in batches, %d in group", len(g.Batches), total, len(g.Indices))
	}
}

func square(x float32) []mgl32.Vec3 {
	return []mgl32.Vec3{{x, 0, 0}, {x, 1, 0}, {x, 1, 1}, {x, 0, 1}}
}

func TestPortals(t *testing.T) {
	centers := []mgl32.Vec3{{0, 0.5, 0.5}, {2, 0.5, 0.5}}
	diag := &validate.Diagnostics{}
	portals, refs, start, count, err := BuildPortals([]PortalLink{{Vertices: square(1), First: 1, Second: 0}}, centers, diag)
	if err != nil {
		t.Fatal(err)
	}
	p := portals[0]
	if p.Plane.SignedDistance(centers[1]) <= 0 || p.Plane.SignedDistance(centers[0]) >= 0 {
		t.Errorf("portal plane %+v does not face group 1", p.Plane)
	}
	if Deviation(p.Plane, p.Vertices) > PORTAL_PLANAR_TOLERANCE || diag.Has(validate.PortalNonPlanar) {
		t.Errorf("flat portal reported non planar")
	}
	want := []PortalRef{{Portal: 0, Group: 1, Side: -1}, {Portal: 0, Group: 0, Side: 1}}
	if len(refs) != 2 || refs[0] != want[0] || refs[1] != want[1] {
		t.Errorf("refs %+v", refs)
	}
	if start[0] != 0 || count[0] != 1 || start[1] != 1 || count[1] != 1 {
		t.Errorf("ranges %v %v", start, count)
	}

	bent := square(1)
	bent[3][0] += 0.05
	if _, _, _, _, err := BuildPortals([]PortalLink{{Vertices: bent, First: 0, Second: 1}}, centers, diag); err != nil {
		t.Fatal(err)
	}
	if !diag.Has(validate.PortalNonPlanar) {
		t.Errorf("bent portal not reported")
	}
	if _, _, _, _, err := BuildPortals([]PortalLink{{Vertices: square(1), First: 0, Second: 0}}, centers, nil); err == nil {
		t.Errorf("self portal accepted")
	}
}

func testSource() *Source {
	collision := floor(1, 1, mgl32.Vec3{0, 0, 3})
	collision.Collision = true
	return &Source{
		Materials: []Material{
			{Texture1: "world/stone.blp", BlendMode: 0},
			{Texture1: "world/wood.blp", Texture2: "world/wood_env.blp"},
		},
		Groups: []GroupSource{
			{Name: "hall", Meshes: []geometry.Mesh{floor(2, 2, mgl32.Vec3{}), collision}},
			{Meshes: []geometry.Mesh{floor(2, 2, mgl32.Vec3{2, 0, 0})}, Placement: PlacementAuto},
			{Name: "yard", Meshes: []geometry.Mesh{floor(3, 3, mgl32.Vec3{10, 0, 0})}, Placement: PlacementOutdoor},
		},
		Portals: []PortalLink{{Vertices: square(2), First: 0, Second: 1}},
		Sets:    []string{"", "furniture"},
		Doodads: []Doodad{
			{DoodadDef{Path: "world/chair.m2", Position: mgl32.Vec3{1, 1, 0}, Orientation: mgl32.QuatIdent()}, 1},
			{DoodadDef{Path: "world/lamp.m2", Position: mgl32.Vec3{3, 1, 0}, Orientation: mgl32.QuatIdent(), Scale: 2}, 0},
			{DoodadDef{Path: "world/crate.m2", Position: mgl32.Vec3{11, 1, 0}, Orientation: mgl32.QuatIdent()}, 7},
		},
		Lights: []Light{{Type: 1, Position: mgl32.Vec3{3, 1, 0}, Intensity: 1}},
		Skybox: "environments/sky.m2",
	}
}

func TestBuildPlacement(t *testing.T) {
	diag := &validate.Diagnostics{}
	w, err := Build(testSource(), diag)
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Groups) != 3 {
		t.Fatalf("%d groups", len(w.Groups))
	}
	hall, second, yard := w.Groups[0], w.Groups[1], w.Groups[2]
	if !hall.Indoor() || !second.Indoor() || yard.Indoor() {
		t.Errorf("placement flags 0x%x 0x%x 0x%x", hall.Flags, second.Flags, yard.Flags)
	}
	if hall.Colors == nil || yard.Colors != nil {
		t.Errorf("vertex colors: indoor %d outdoor %d", len(hall.Colors), len(yard.Colors))
	}
	if second.Name == "" {
		t.Errorf("unnamed group not named")
	}
	if hall.Triangles() != 10 || len(hall.Batches) != 1 || hall.Batches[0].Count != 24 {
		t.Errorf("hall: %d triangles, batches %+v", hall.Triangles(), hall.Batches)
	}
	if hall.PolyMaterials[9] != POLY_MATERIAL_NONE || hall.PolyFlags[9] != POLY_FLAG_COLLISION {
		t.Errorf("collision triangle flags %x material %d", hall.PolyFlags[9], hall.PolyMaterials[9])
	}
	if !diag.Has(validate.DoodadOutOfSet) {
		t.Errorf("out of set doodad not reported: %v", diag.Entries)
	}

	sets := w.Root.DoodadSets
	if len(sets) != 2 || sets[0].Name == "" || sets[0].Count != 2 || sets[1].Start != 2 || sets[1].Count != 1 {
		t.Errorf("sets %+v", sets)
	}
	if w.Root.Doodads[2].Path != "world/chair.m2" {
		t.Errorf("doodad order %+v", w.Root.Doodads)
	}
	if len(yard.DoodadRefs) != 1 || len(second.LightRefs) != 1 {
		t.Errorf("refs: yard doodads %v, second lights %v", yard.DoodadRefs, second.LightRefs)
	}
	if hall.PortalCount != 1 || second.PortalStart != 1 || yard.PortalCount != 0 {
		t.Errorf("portal ranges %d/%d %d/%d", hall.PortalStart, hall.PortalCount, second.PortalStart, second.PortalCount)
	}
}

func writeAll(t *testing.T, w *WMO) (*vfs.MemorySource, []File) {
	t.Helper()
	files, err := w.Write("world/test.wmo")
	if err != nil {
		t.Fatal(err)
	}
	src := vfs.NewMemorySource()
	for _, f := range files {
		src.Add(f.Path, f.Data)
	}
	return src, files
}

func TestRoundTrip(t *testing.T) {
	w, err := Build(testSource(), nil)
	if err != nil {
		t.Fatal(err)
	}
	src, files := writeAll(t, w)
	if files[1].Path != "world/test_000.wmo" || len(files) != 4 {
		t.Fatalf("files %d, first group %q", len(files), files[1].Path)
	}

	diag := &validate.Diagnostics{}
	back, err := Read("world/test.wmo", src.Read, nil, diag)
	if err != nil {
		t.Fatal(err)
	}
	if diag.Warnings() != 0 {
		t.Errorf("warnings on read: %v", diag.Entries)
	}
	_, again := writeAll(t, back)
	for i := range files {
		if !bytes.Equal(files[i].Data, again[i].Data) {
			t.Errorf("%s differs after round trip", files[i].Path)
		}
	}

	if back.Root.Skybox != "environments/sky.m2" || back.Root.Materials[1].Texture2 != "world/wood_env.blp" {
		t.Errorf("strings lost: %+v", back.Root)
	}
	if back.Groups[0].Name != "hall" || back.Root.Groups[2].Name != "yard" {
		t.Errorf("group names %q %q", back.Groups[0].Name, back.Root.Groups[2].Name)
	}

	source := back.Source()
	if len(source.Portals) != 1 || source.Portals[0].First != 0 || source.Portals[0].Second != 1 {
		t.Errorf("portals %+v", source.Portals)
	}
	if len(source.Groups[0].Meshes) != 2 || !source.Groups[0].Meshes[1].Collision {
		t.Errorf("hall meshes %d", len(source.Groups[0].Meshes))
	}
	if source.Doodads[0].Set != 0 || source.Doodads[2].Set != 1 {
		t.Errorf("doodad sets %+v", source.Doodads)
	}
}

func TestReadErrors(t *testing.T) {
	w, err := Build(testSource(), nil)
	if err != nil {
		t.Fatal(err)
	}
	src, files := writeAll(t, w)

	bad := append([]byte(nil), files[0].Data...)
	bad[8] = 16
	if _, err := ReadRoot(bad, nil, nil); err == nil {
		t.Errorf("version 16 accepted")
	}
	if _, err := ReadRoot(files[0].Data[:20], nil, nil); err == nil {
		t.Errorf("truncated root accepted")
	}

	src.Add("world/test_001.wmo", files[2].Data[:len(files[2].Data)-3])
	_, err = Read("world/test.wmo", src.Read, nil, nil)
	if k, _ := validate.KindOf(err); err == nil || k != validate.KindFormat {
		t.Errorf("truncated group: %v", err)
	}
}

func TestGroupPath(t *testing.T) {
	if got := GroupPath("World/wmo/Stormwind.wmo", 12); got != "World/wmo/Stormwind_012.wmo" {
		t.Errorf("GroupPath = %q", got)
	}
}
