package geometry

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/validate"
)

const MAX_VERTICES = 0xffff

type Options struct {
	MergeVertices bool
	// MaxBones caps the bone palette of one draw, 0 means MAX_BONES_PER_DRAW
	MaxBones int
	// MaxTriangles caps one draw, 0 means MAX_TRIANGLES_PER_DRAW
	MaxTriangles int
	// NumBones is the skeleton size influences are checked against
	NumBones int
}

type M2Result struct {
	Vertices   []m2.Vertex
	Skin       m2.Skin
	BoneLookup []uint16
	// Materials holds the authored material of every sub-mesh
	Materials []int
	Collision m2.Collision
	Bounds    m2.Bounds
}

type corner struct {
	mesh, vertex int
}

type partKey struct {
	meshPart uint16
	material int
}

type part struct {
	key  partKey
	tris [][3]corner
}

func toM2Vertex(v *Vertex) (m2.Vertex, bool) {
	out := m2.Vertex{Position: v.Position, Normal: v.Normal, TexCoords: v.UV}
	var overflow bool
	out.BoneWeights, out.BoneIndices, overflow = m2.NormalizeInfluences(v.Influences)
	return out, overflow
}

// BuildM2 runs the export geometry pipeline: triangulation, material and mesh part
// split, collision diversion, weight normalization, optional welding, bone palette
// packing and bounds.
func BuildM2(meshes []Mesh, opts Options, diag *validate.Diagnostics) (*M2Result, error) {
	if opts.MaxBones <= 0 {
		opts.MaxBones = MAX_BONES_PER_DRAW
	}
	res := &M2Result{}

	parts := make(map[partKey]*part)
	var keys []partKey
	var collision []*Mesh
	for mi := range meshes {
		mesh := &meshes[mi]
		if mesh.Collision {
			collision = append(collision, mesh)
			continue
		}
		tris, mats, dropped := Triangulate(mesh)
		if dropped != 0 {
			diag.Warnf(validate.DegenerateFace, "mesh %q: %d degenerate faces dropped", mesh.Name, dropped)
		}
		if len(tris) == 0 {
			diag.Warnf(validate.EmptyGeoset, "mesh %q has no triangles", mesh.Name)
			continue
		}
		for ti, t := range tris {
			key := partKey{meshPart: mesh.MeshPart, material: mats[ti]}
			p, ok := parts[key]
			if !ok {
				p = &part{key: key}
				parts[key] = p
				keys = append(keys, key)
			}
			p.tris = append(p.tris, [3]corner{{mi, t[0]}, {mi, t[1]}, {mi, t[2]}})
		}
	}
	sort.SliceStable(keys, func(a, b int) bool {
		if keys[a].meshPart != keys[b].meshPart {
			return keys[a].meshPart < keys[b].meshPart
		}
		return keys[a].material < keys[b].material
	})

	overflow := 0
	for _, key := range keys {
		n, err := res.addPart(meshes, parts[key], opts, diag)
		if err != nil {
			return nil, err
		}
		overflow += n
	}
	if overflow != 0 {
		diag.Warnf(validate.BoneInfluenceOverflow, "%d vertices had more than %d influences", overflow, m2.MAX_INFLUENCES)
	}
	if len(res.Vertices) > MAX_VERTICES {
		return nil, validate.Policyf("%d vertices, at most %d fit a skin", len(res.Vertices), MAX_VERTICES)
	}

	points := make([]mgl32.Vec3, len(res.Vertices))
	for i := range res.Vertices {
		points[i] = res.Vertices[i].Position
	}
	res.Bounds, _ = Bounds(points)
	res.Collision = buildCollision(collision, diag)
	return res, nil
}

func (res *M2Result) addPart(meshes []Mesh, p *part, opts Options, diag *validate.Diagnostics) (int, error) {
	var local []m2.Vertex
	byCorner := make(map[corner]int)
	byValue := make(map[m2.Vertex]int)
	overflow := 0

	index := func(c corner) (int, error) {
		if i, ok := byCorner[c]; ok {
			return i, nil
		}
		v, over := toM2Vertex(&meshes[c.mesh].Vertices[c.vertex])
		for i, w := range v.BoneWeights {
			if w != 0 && opts.NumBones > 0 && int(v.BoneIndices[i]) >= opts.NumBones {
				return 0, validate.Policyf("mesh %q vertex %d: bone %d of %d", meshes[c.mesh].Name, c.vertex, v.BoneIndices[i], opts.NumBones)
			}
		}
		for _, inf := range meshes[c.mesh].Vertices[c.vertex].Influences {
			if inf.Weight > 0 && inf.Bone > 0xff {
				return 0, validate.Policyf("mesh %q vertex %d: bone %d does not fit a vertex", meshes[c.mesh].Name, c.vertex, inf.Bone)
			}
		}
		if opts.MergeVertices {
			if i, ok := byValue[v]; ok {
				byCorner[c] = i
				return i, nil
			}
		}
		if over {
			overflow++
		}
		i := len(local)
		local = append(local, v)
		byCorner[c] = i
		byValue[v] = i
		return i, nil
	}

	tris := make([]Triangle, len(p.tris))
	for ti, t := range p.tris {
		for k := 0; k < 3; k++ {
			i, err := index(t[k])
			if err != nil {
				return 0, err
			}
			tris[ti][k] = i
		}
	}

	triBones := func(ti int) []int {
		var bones []int
		for _, vi := range tris[ti] {
			v := &local[vi]
			for k, w := range v.BoneWeights {
				if w != 0 {
					bones = append(bones, int(v.BoneIndices[k]))
				}
			}
		}
		return bones
	}
	draws := PackBoneSets(tris, triBones, opts.MaxBones, opts.MaxTriangles)
	if len(draws) > 1 {
		diag.Infof(validate.BoneSetSplit, "mesh part %d material %d split into %d draws", p.key.meshPart, p.key.material, len(draws))
	}

	for _, d := range draws {
		res.addDraw(p.key, local, tris, d)
	}
	return overflow, nil
}

func (res *M2Result) addDraw(key partKey, local []m2.Vertex, tris []Triangle, d Draw) {
	skin := &res.Skin
	vertexStart := len(res.Vertices)
	indexStart := len(skin.Indices)
	comboStart := len(res.BoneLookup)

	palette := make(map[int]uint8, len(d.Bones))
	for i, b := range d.Bones {
		palette[b] = uint8(i)
		res.BoneLookup = append(res.BoneLookup, uint16(b))
	}

	remap := make(map[int]int)
	influences := 0
	var points []mgl32.Vec3
	for _, ti := range d.Triangles {
		for _, vi := range tris[ti] {
			out, ok := remap[vi]
			if !ok {
				out = len(res.Vertices)
				remap[vi] = out
				v := local[vi]
				res.Vertices = append(res.Vertices, v)
				points = append(points, v.Position)

				var bones [4]uint8
				n := 0
				for k, w := range v.BoneWeights {
					if w != 0 {
						bones[k] = palette[int(v.BoneIndices[k])]
						n++
					}
				}
				influences = max(influences, n)
				skin.Vertices = append(skin.Vertices, uint16(out))
				skin.Bones = append(skin.Bones, bones)
			}
			skin.Indices = append(skin.Indices, uint16(out))
		}
	}

	bounds, sphere := Bounds(points)
	sm := m2.SubMesh{
		ID:             key.meshPart,
		VertexStart:    uint32(vertexStart),
		VertexCount:    uint32(len(res.Vertices) - vertexStart),
		IndexStart:     uint32(indexStart),
		IndexCount:     uint32(len(skin.Indices) - indexStart),
		BoneCount:      uint16(len(d.Bones)),
		BoneComboIndex: uint16(comboStart),
		BoneInfluences: uint16(influences),
		CenterPosition: bounds.Center(),
		SortCenter:     sphere.Center,
		SortRadius:     sphere.Radius,
		Bounds:         bounds,
	}
	if len(d.Bones) != 0 {
		sm.CenterBoneIndex = uint16(d.Bones[0])
	}
	skin.SubMeshes = append(skin.SubMeshes, sm)
	res.Materials = append(res.Materials, key.material)
	if skin.BoneCountMax < uint32(len(d.Bones)) {
		skin.BoneCountMax = uint32(len(d.Bones))
	}
}

func buildCollision(meshes []*Mesh, diag *validate.Diagnostics) m2.Collision {
	var c m2.Collision
	byPos := make(map[mgl32.Vec3]int)
	for _, mesh := range meshes {
		tris, _, dropped := Triangulate(mesh)
		if dropped != 0 {
			diag.Warnf(validate.DegenerateFace, "collision mesh %q: %d degenerate faces dropped", mesh.Name, dropped)
		}
		for _, t := range tris {
			var p [3]mgl32.Vec3
			for k, vi := range t {
				pos := mesh.Vertices[vi].Position
				p[k] = pos
				i, ok := byPos[pos]
				if !ok {
					i = len(c.Positions)
					byPos[pos] = i
					c.Positions = append(c.Positions, pos)
				}
				c.Indices = append(c.Indices, uint16(i))
			}
			n := p[1].Sub(p[0]).Cross(p[2].Sub(p[0]))
			if n.Len() > 0 {
				n = n.Normalize()
			}
			c.Normals = append(c.Normals, n)
		}
	}
	c.Bounds, _ = Bounds(c.Positions)
	return c
}
