package wmo

import (
	"fmt"

	"github.com/mogaika/wow_model_browser/geometry"
)

// Source turns decoded records back into an authored world object.
// Every group yields a render mesh and, when present, a collision mesh.
func (w *WMO) Source() *Source {
	root := &w.Root
	src := &Source{
		Materials:    root.Materials,
		Lights:       root.Lights,
		Fogs:         root.Fogs,
		Skybox:       root.Skybox,
		AmbientColor: root.AmbientColor,
		Flags:        root.Flags,
		ConvexVolume: root.ConvexVolume,
		Blocks:       root.VisibleBlocks,
	}

	for gi, g := range w.Groups {
		gs := GroupSource{
			Name:        g.Name,
			Description: g.Description,
			Placement:   PlacementOutdoor,
			Flags:       g.Flags &^ computedGroupFlags,
			FogIDs:      g.FogIDs,
			UniqueID:    g.UniqueID,
			Liquid:      g.Liquid,
		}
		if gi < len(root.Groups) && root.Groups[gi].Name != "" {
			gs.Name = root.Groups[gi].Name
		}
		if g.Indoor() {
			gs.Placement = PlacementIndoor
		}
		gs.Meshes = groupMeshes(g)
		src.Groups = append(src.Groups, gs)
	}

	for gi, g := range w.Groups {
		end := min(int(g.PortalStart)+int(g.PortalCount), len(root.PortalRefs))
		for _, ref := range root.PortalRefs[min(int(g.PortalStart), end):end] {
			if ref.Side <= 0 || int(ref.Portal) >= len(root.Portals) {
				continue
			}
			src.Portals = append(src.Portals, PortalLink{
				Vertices: root.Portals[ref.Portal].Vertices,
				First:    gi,
				Second:   int(ref.Group),
			})
		}
	}

	for _, s := range root.DoodadSets {
		src.Sets = append(src.Sets, s.Name)
	}
	for di, d := range root.Doodads {
		set := -1
		for si, s := range root.DoodadSets {
			if uint32(di) >= s.Start && uint32(di) < s.Start+s.Count {
				set = si
				break
			}
		}
		src.Doodads = append(src.Doodads, Doodad{DoodadDef: d, Set: set})
	}
	return src
}

// flags Build derives from the group contents
const computedGroupFlags = GROUP_FLAG_HAS_BSP | GROUP_FLAG_HAS_VERTEX_COLOR | GROUP_FLAG_EXTERIOR |
	GROUP_FLAG_INTERIOR | GROUP_FLAG_HAS_LIGHTS | GROUP_FLAG_HAS_DOODADS | GROUP_FLAG_HAS_WATER | GROUP_FLAG_TWO_UV

func groupMeshes(g *Group) []geometry.Mesh {
	render := geometry.Mesh{Name: fmt.Sprintf("%s_render", g.Name)}
	collision := geometry.Mesh{Name: fmt.Sprintf("%s_collision", g.Name), Collision: true}
	for i, p := range g.Positions {
		v := geometry.Vertex{Position: p}
		if i < len(g.Normals) {
			v.Normal = g.Normals[i]
		}
		for s := 0; s < len(g.UVs) && s < len(v.UV); s++ {
			if i < len(g.UVs[s]) {
				v.UV[s] = g.UVs[s][i]
			}
		}
		if i < len(g.Colors) {
			v.Color = vecFromColor(g.Colors[i])
		}
		render.Vertices = append(render.Vertices, v)
	}
	collision.Vertices = render.Vertices

	for t := 0; t < g.Triangles(); t++ {
		f := geometry.Face{Corners: []int{int(g.Indices[t*3]), int(g.Indices[t*3+1]), int(g.Indices[t*3+2])}}
		if g.PolyMaterials[t] == POLY_MATERIAL_NONE {
			collision.Faces = append(collision.Faces, f)
			continue
		}
		f.Material = int(g.PolyMaterials[t])
		render.Faces = append(render.Faces, f)
	}
	meshes := []geometry.Mesh{render}
	if len(collision.Faces) != 0 {
		meshes = append(meshes, collision)
	}
	return meshes
}
