package geometry

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/m2"
)

type Vertex struct {
	Position   mgl32.Vec3     `json:"position"`
	Normal     mgl32.Vec3     `json:"normal"`
	UV         [2]mgl32.Vec2  `json:"uv"`
	Color      mgl32.Vec4     `json:"color"`
	Influences []m2.Influence `json:"influences,omitempty"`
}

// Face is a polygon of any size, corners index Mesh.Vertices.
type Face struct {
	Corners  []int `json:"corners"`
	Material int   `json:"material"`
}

// Mesh is authored surface data as the scene hands it over.
type Mesh struct {
	Name     string   `json:"name"`
	Vertices []Vertex `json:"vertices"`
	Faces    []Face   `json:"faces"`
	// MeshPart is group*100+id, see m2.MeshPartID
	MeshPart  uint16 `json:"mesh_part"`
	Collision bool   `json:"collision"`
}

type Triangle [3]int

// Triangulate fans every polygon from its first corner. Faces with fewer than
// three distinct corners or out of range corners are dropped and counted.
func Triangulate(mesh *Mesh) (tris []Triangle, materials []int, dropped int) {
	for _, f := range mesh.Faces {
		if !validFace(f, len(mesh.Vertices)) {
			dropped++
			continue
		}
		for i := 1; i+1 < len(f.Corners); i++ {
			t := Triangle{f.Corners[0], f.Corners[i], f.Corners[i+1]}
			if t[0] == t[1] || t[1] == t[2] || t[0] == t[2] {
				continue
			}
			tris = append(tris, t)
			materials = append(materials, f.Material)
		}
	}
	return
}

func validFace(f Face, numVertices int) bool {
	if len(f.Corners) < 3 {
		return false
	}
	distinct := make(map[int]struct{}, len(f.Corners))
	for _, c := range f.Corners {
		if c < 0 || c >= numVertices {
			return false
		}
		distinct[c] = struct{}{}
	}
	return len(distinct) >= 3
}

// Transform rotates and scales every mesh in place.
func Transform(meshes []Mesh, rotation mgl32.Quat, scale float32) {
	for mi := range meshes {
		for vi := range meshes[mi].Vertices {
			v := &meshes[mi].Vertices[vi]
			v.Position = Rotate(rotation, v.Position).Mul(scale)
			v.Normal = Rotate(rotation, v.Normal)
		}
	}
}

// Rotate turns v by q. Matrix entries within 1e-6 of an integer are snapped, so
// quarter turns move coordinates between axes without rounding noise.
func Rotate(q mgl32.Quat, v mgl32.Vec3) mgl32.Vec3 {
	m := q.Normalize().Mat4().Mat3()
	for i := range m {
		if r := math32.Round(m[i]); math32.Abs(m[i]-r) < 1e-6 {
			m[i] = r
		}
	}
	return m.Mul3x1(v)
}
