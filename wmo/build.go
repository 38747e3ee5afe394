package wmo

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
)

type Placement string

const (
	PlacementAuto    Placement = "auto"
	PlacementIndoor  Placement = "indoor"
	PlacementOutdoor Placement = "outdoor"
)

// MAX_BATCH_TRIANGLES keeps a batch's index count within 16 bits.
const MAX_BATCH_TRIANGLES = 0xffff / 3

// DEFAULT_DOODAD_SET is the set the client always shows.
const DEFAULT_DOODAD_SET = "Set_$DefaultGlobal"

type GroupSource struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Meshes      []geometry.Mesh `json:"meshes"`
	Placement   Placement       `json:"placement"`
	// Flags are or-ed into the computed group flags
	Flags    uint32   `json:"flags"`
	FogIDs   [4]uint8 `json:"fog_ids"`
	UniqueID uint32   `json:"unique_id"`
	Liquid   *Liquid  `json:"liquid,omitempty"`
}

type Doodad struct {
	DoodadDef
	Set int `json:"set"`
}

// Source is an authored world object as a scene hands it over.
type Source struct {
	Materials    []Material     `json:"materials"`
	Groups       []GroupSource  `json:"groups"`
	Portals      []PortalLink   `json:"portals"`
	Sets         []string       `json:"sets"`
	Doodads      []Doodad       `json:"doodads"`
	Lights       []Light        `json:"lights"`
	Fogs         []Fog          `json:"fogs"`
	Skybox       string         `json:"skybox"`
	AmbientColor Color          `json:"ambient_color"`
	Flags        uint16         `json:"flags"`
	ConvexVolume []Plane        `json:"convex_volume,omitempty"`
	Blocks       []VisibleBlock `json:"visible_blocks,omitempty"`
}

func colorFromVec(c mgl32.Vec4) Color {
	b := func(f float32) uint8 {
		return uint8(mgl32.Clamp(f, 0, 1)*255 + 0.5)
	}
	return Color{b(c[2]), b(c[1]), b(c[0]), b(c[3])}
}

func vecFromColor(c Color) mgl32.Vec4 {
	return mgl32.Vec4{float32(c[2]) / 255, float32(c[1]) / 255, float32(c[0]) / 255, float32(c[3]) / 255}
}

// defaultVertexColor lights indoor vertices that carry no authored color.
var defaultVertexColor = Color{0x7f, 0x7f, 0x7f, 0xff}

func boxOf(points []mgl32.Vec3) Box {
	if len(points) == 0 {
		return Box{}
	}
	b := Box{points[0], points[0]}
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			b.Min[k] = min(b.Min[k], p[k])
			b.Max[k] = max(b.Max[k], p[k])
		}
	}
	return b
}

func (b Box) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b Box) Contains(p mgl32.Vec3) bool {
	for k := 0; k < 3; k++ {
		if p[k] < b.Min[k] || p[k] > b.Max[k] {
			return false
		}
	}
	return true
}

func (b Box) union(o Box) Box {
	for k := 0; k < 3; k++ {
		b.Min[k] = min(b.Min[k], o.Min[k])
		b.Max[k] = max(b.Max[k], o.Max[k])
	}
	return b
}

type groupVertex struct {
	mesh, vertex int
}

// builtGroup carries the authored vertex colors until placement is known.
type builtGroup struct {
	*Group
	colors    []mgl32.Vec4
	hasColors bool
}

func buildGroup(gs *GroupSource, numMaterials int, diag *validate.Diagnostics) (*builtGroup, error) {
	type tri struct {
		corners  [3]groupVertex
		material int
	}
	var render, collision []tri
	twoUV := false
	for mi := range gs.Meshes {
		mesh := &gs.Meshes[mi]
		tris, mats, dropped := geometry.Triangulate(mesh)
		if dropped != 0 {
			diag.Warnf(validate.DegenerateFace, "group %q mesh %q: %d degenerate faces dropped", gs.Name, mesh.Name, dropped)
		}
		for ti, t := range tris {
			tr := tri{corners: [3]groupVertex{{mi, t[0]}, {mi, t[1]}, {mi, t[2]}}, material: mats[ti]}
			if mesh.Collision {
				collision = append(collision, tr)
				continue
			}
			if tr.material < 0 || tr.material >= numMaterials || tr.material >= POLY_MATERIAL_NONE {
				return nil, validate.Policyf("group %q mesh %q: material %d of %d", gs.Name, mesh.Name, tr.material, numMaterials)
			}
			render = append(render, tr)
		}
		for _, v := range mesh.Vertices {
			if v.UV[1] != (mgl32.Vec2{}) {
				twoUV = true
			}
		}
	}
	sort.SliceStable(render, func(a, b int) bool { return render[a].material < render[b].material })

	bg := &builtGroup{Group: &Group{Name: gs.Name, Description: gs.Description, FogIDs: gs.FogIDs, UniqueID: gs.UniqueID, Liquid: gs.Liquid}}
	g := bg.Group
	uvSets := 1
	if twoUV {
		uvSets = 2
	}
	g.UVs = make([][]mgl32.Vec2, uvSets)

	var remap map[groupVertex]int
	addVertex := func(c groupVertex) uint16 {
		if i, ok := remap[c]; ok {
			return uint16(i)
		}
		v := &gs.Meshes[c.mesh].Vertices[c.vertex]
		i := len(g.Positions)
		remap[c] = i
		g.Positions = append(g.Positions, v.Position)
		g.Normals = append(g.Normals, v.Normal)
		for s := range g.UVs {
			g.UVs[s] = append(g.UVs[s], v.UV[s])
		}
		bg.colors = append(bg.colors, v.Color)
		if v.Color != (mgl32.Vec4{}) {
			bg.hasColors = true
		}
		return uint16(i)
	}

	for start := 0; start < len(render); {
		end := start
		for end < len(render) && end-start < MAX_BATCH_TRIANGLES && render[end].material == render[start].material {
			end++
		}
		remap = make(map[groupVertex]int)
		firstVertex := len(g.Positions)
		b := Batch{StartIndex: uint32(len(g.Indices)), Material: uint8(render[start].material)}
		for _, t := range render[start:end] {
			for _, c := range t.corners {
				g.Indices = append(g.Indices, addVertex(c))
			}
			g.PolyFlags = append(g.PolyFlags, POLY_FLAG_RENDER)
			g.PolyMaterials = append(g.PolyMaterials, uint8(t.material))
		}
		b.Count = uint16(len(g.Indices) - int(b.StartIndex))
		b.MinIndex = uint16(firstVertex)
		b.MaxIndex = uint16(len(g.Positions) - 1)
		box := boxOf(g.Positions[firstVertex:])
		for k := 0; k < 3; k++ {
			b.Box[k] = int16(math.Floor(float64(box.Min[k])))
			b.Box[k+3] = int16(math.Ceil(float64(box.Max[k])))
		}
		g.Batches = append(g.Batches, b)
		start = end
	}

	remap = make(map[groupVertex]int)
	for _, t := range collision {
		for _, c := range t.corners {
			g.Indices = append(g.Indices, addVertex(c))
		}
		g.PolyFlags = append(g.PolyFlags, POLY_FLAG_COLLISION)
		g.PolyMaterials = append(g.PolyMaterials, POLY_MATERIAL_NONE)
	}

	if len(g.Positions) > 0xffff {
		return nil, validate.Policyf("group %q has %d vertices, at most %d fit", gs.Name, len(g.Positions), 0xffff)
	}
	if len(g.Indices) == 0 {
		diag.Warnf(validate.EmptyGeoset, "group %q has no triangles", gs.Name)
	}

	g.Bounds = boxOf(g.Positions)
	bsp := BuildBSP(g.Positions, g.Indices)
	if bsp.Exceeded {
		diag.Warnf(validate.BSPDepthExceeded, "group %q: bsp leaf over %d triangles at depth %d", gs.Name, BSP_LEAF_FACES, BSP_MAX_DEPTH)
	} else if bsp.Oversized != 0 {
		diag.Warnf(validate.BSPDepthExceeded, "group %q: bsp leaf of %d inseparable triangles, limit %d", gs.Name, bsp.Oversized, BSP_LEAF_FACES)
	}
	g.BSPNodes, g.BSPFaces = bsp.Nodes, bsp.Faces

	g.Flags = gs.Flags | GROUP_FLAG_HAS_BSP
	if twoUV {
		g.Flags |= GROUP_FLAG_TWO_UV
	}
	if g.Liquid != nil {
		g.Flags |= GROUP_FLAG_HAS_WATER
	}
	return bg, nil
}

// Build turns an authored world object into root and group records. Unnamed
// groups and doodad sets get generated names, stable across runs.
func Build(src *Source, diag *validate.Diagnostics) (*WMO, error) {
	var names utils.RandomNameGenerator
	for i := range src.Groups {
		if src.Groups[i].Name != "" {
			names.Reserve(src.Groups[i].Name)
		}
	}
	for _, set := range src.Sets {
		if set != "" {
			names.Reserve(set)
		}
	}
	w := &WMO{}
	root := &w.Root
	root.AmbientColor = src.AmbientColor
	root.Flags = src.Flags
	root.Skybox = src.Skybox
	root.Materials = src.Materials
	root.Lights = src.Lights
	root.Fogs = src.Fogs
	root.ConvexVolume = src.ConvexVolume
	root.VisibleBlocks = src.Blocks

	built := make([]*builtGroup, len(src.Groups))
	centers := make([]mgl32.Vec3, len(src.Groups))
	for i := range src.Groups {
		gs := src.Groups[i]
		if gs.Name == "" {
			gs.Name = names.RandomName()
		}
		bg, err := buildGroup(&gs, len(src.Materials), diag)
		if err != nil {
			return nil, err
		}
		built[i] = bg
		centers[i] = bg.Bounds.Center()
	}

	portals, refs, refStart, refCount, err := BuildPortals(src.Portals, centers, diag)
	if err != nil {
		return nil, err
	}
	root.Portals = portals
	root.PortalRefs = refs

	for i, bg := range built {
		g := bg.Group
		g.PortalStart, g.PortalCount = refStart[i], refCount[i]

		indoor := false
		switch src.Groups[i].Placement {
		case PlacementIndoor:
			indoor = true
		case PlacementOutdoor:
		default:
			indoor = refCount[i] != 0
		}
		if indoor {
			g.Flags |= GROUP_FLAG_INTERIOR
			g.IntBatchCount = uint16(len(g.Batches))
		} else {
			g.Flags |= GROUP_FLAG_EXTERIOR
			g.ExtBatchCount = uint16(len(g.Batches))
		}
		if indoor || bg.hasColors {
			g.Colors = make([]Color, len(bg.colors))
			for k, c := range bg.colors {
				if c == (mgl32.Vec4{}) {
					g.Colors[k] = defaultVertexColor
				} else {
					g.Colors[k] = colorFromVec(c)
				}
			}
			g.Flags |= GROUP_FLAG_HAS_VERTEX_COLOR
		}
		w.Groups = append(w.Groups, g)
	}

	buildDoodads(w, src, &names, diag)

	for li, l := range root.Lights {
		for _, g := range w.Groups {
			if g.Bounds.Contains(l.Position) {
				g.LightRefs = append(g.LightRefs, uint16(li))
				g.Flags |= GROUP_FLAG_HAS_LIGHTS
				break
			}
		}
	}

	for i, g := range w.Groups {
		root.Groups = append(root.Groups, GroupInfo{Flags: g.Flags, Bounds: g.Bounds, Name: g.Name})
		if i == 0 {
			root.Bounds = g.Bounds
		} else {
			root.Bounds = root.Bounds.union(g.Bounds)
		}
	}
	return w, nil
}

// buildDoodads orders doodads by set so every set is one contiguous run and
// references each doodad from the first group containing it.
func buildDoodads(w *WMO, src *Source, names *utils.RandomNameGenerator, diag *validate.Diagnostics) {
	root := &w.Root
	sets := append([]string(nil), src.Sets...)
	if len(sets) == 0 && len(src.Doodads) != 0 {
		sets = append(sets, DEFAULT_DOODAD_SET)
	}
	for i := range sets {
		if sets[i] == "" {
			sets[i] = names.RandomName()
		}
	}

	order := make([]int, len(src.Doodads))
	set := make([]int, len(src.Doodads))
	for i, d := range src.Doodads {
		order[i] = i
		set[i] = d.Set
		if d.Set < 0 || d.Set >= len(sets) {
			diag.Warnf(validate.DoodadOutOfSet, "doodad %d %q: set %d of %d, moved to set 0", i, d.Path, d.Set, len(sets))
			set[i] = 0
		}
	}
	sort.SliceStable(order, func(a, b int) bool { return set[order[a]] < set[order[b]] })

	root.DoodadSets = make([]DoodadSet, len(sets))
	for i, name := range sets {
		root.DoodadSets[i].Name = name
	}
	for _, di := range order {
		s := &root.DoodadSets[set[di]]
		if s.Count == 0 {
			s.Start = uint32(len(root.Doodads))
		}
		s.Count++
		def := src.Doodads[di].DoodadDef
		if def.Scale == 0 {
			def.Scale = 1
		}
		index := len(root.Doodads)
		root.Doodads = append(root.Doodads, def)
		for _, g := range w.Groups {
			if g.Bounds.Contains(def.Position) {
				g.DoodadRefs = append(g.DoodadRefs, uint16(index))
				g.Flags |= GROUP_FLAG_HAS_DOODADS
				break
			}
		}
	}
	// empty sets point past the doodads they would hold
	for i := range root.DoodadSets {
		if root.DoodadSets[i].Count == 0 {
			root.DoodadSets[i].Start = uint32(len(root.Doodads))
		}
	}
}
