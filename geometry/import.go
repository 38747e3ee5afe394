package geometry

import (
	"fmt"

	"github.com/mogaika/wow_model_browser/m2"
)

// FromM2 rebuilds one mesh per sub-mesh of skin and one collision mesh.
// materialOf maps a sub-mesh index to the authored material id.
func FromM2(m *m2.Model, skin int, materialOf func(submesh int) int) []Mesh {
	var meshes []Mesh
	if skin < len(m.Skins) {
		s := &m.Skins[skin]
		for si := range s.SubMeshes {
			sm := &s.SubMeshes[si]
			mesh := Mesh{Name: fmt.Sprintf("geoset_%d_%d", si, sm.ID), MeshPart: sm.ID}
			local := make(map[int]int)
			vertex := func(skinVertex int) int {
				if i, ok := local[skinVertex]; ok {
					return i
				}
				mv := &m.Vertices[s.Vertices[skinVertex]]
				v := Vertex{Position: mv.Position, Normal: mv.Normal, UV: mv.TexCoords}
				for k, w := range mv.BoneWeights {
					if w != 0 {
						v.Influences = append(v.Influences, m2.Influence{Bone: int(mv.BoneIndices[k]), Weight: float32(w) / 255})
					}
				}
				i := len(mesh.Vertices)
				local[skinVertex] = i
				mesh.Vertices = append(mesh.Vertices, v)
				return i
			}
			material := materialOf(si)
			end := min(int(sm.IndexStart+sm.IndexCount), len(s.Indices))
			for i := int(sm.IndexStart); i+2 < end; i += 3 {
				f := Face{Material: material}
				ok := true
				for k := 0; k < 3; k++ {
					sv := int(s.Indices[i+k])
					if sv >= len(s.Vertices) || int(s.Vertices[sv]) >= len(m.Vertices) {
						ok = false
						break
					}
					f.Corners = append(f.Corners, vertex(sv))
				}
				if ok {
					mesh.Faces = append(mesh.Faces, f)
				}
			}
			meshes = append(meshes, mesh)
		}
	}

	if c := &m.Collision; !c.Empty() {
		mesh := Mesh{Name: "collision", Collision: true}
		for _, p := range c.Positions {
			mesh.Vertices = append(mesh.Vertices, Vertex{Position: p})
		}
		for i := 0; i+2 < len(c.Indices); i += 3 {
			mesh.Faces = append(mesh.Faces, Face{Corners: []int{int(c.Indices[i]), int(c.Indices[i+1]), int(c.Indices[i+2])}})
		}
		meshes = append(meshes, mesh)
	}
	return meshes
}
