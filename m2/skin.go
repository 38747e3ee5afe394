package m2

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/schema"
)

func ReadSkin(data []byte, v config.Version) (*Skin, error) {
	hl := schema.SkinHeader.Select(v)
	if len(data) < hl.Size {
		return nil, errors.Wrapf(chunk.ErrTruncatedChunk, "skin header: 0x%x bytes", len(data))
	}
	if string(data[:4]) != MAGIC_SKIN {
		return nil, errors.Wrapf(chunk.ErrUnknownVersion, "skin magic %q", data[:4])
	}
	view := chunk.NewView("skin", data)
	hdr := hl.Bind(data[:hl.Size])
	s := &Skin{BoneCountMax: hdr.U32("bone_count_max")}

	b, err := view.Array("vertices", hdr.Array("vertices"), schema.SIZE_U16)
	if err != nil {
		return nil, err
	}
	s.Vertices = readU16s(b)
	if b, err = view.Array("indices", hdr.Array("indices"), schema.SIZE_U16); err != nil {
		return nil, err
	}
	s.Indices = readU16s(b)
	if b, err = view.Array("bones", hdr.Array("bones"), schema.SIZE_BONE_PROPS); err != nil {
		return nil, err
	}
	s.Bones = make([][4]uint8, len(b)/4)
	for i := range s.Bones {
		copy(s.Bones[i][:], b[i*4:])
	}

	sl := schema.SubMesh.Select(v)
	if b, err = view.Array("submeshes", hdr.Array("submeshes"), sl.Size); err != nil {
		return nil, err
	}
	for i := 0; i < len(b)/sl.Size; i++ {
		rec := sl.Element(b, i)
		level := rec.U16("level")
		s.SubMeshes = append(s.SubMeshes, SubMesh{
			ID:              rec.U16("skin_section_id"),
			Level:           level,
			VertexStart:     uint32(rec.U16("vertex_start")),
			VertexCount:     uint32(rec.U16("vertex_count")),
			IndexStart:      uint32(rec.U16("index_start")) | uint32(level)<<16,
			IndexCount:      uint32(rec.U16("index_count")),
			BoneCount:       rec.U16("bone_count"),
			BoneComboIndex:  rec.U16("bone_combo_index"),
			BoneInfluences:  rec.U16("bone_influences"),
			CenterBoneIndex: rec.U16("center_bone_index"),
			CenterPosition:  rec.Vec3("center_position"),
			SortCenter:      rec.Vec3("sort_center_position"),
			SortRadius:      rec.F32("sort_radius"),
		})
	}

	tl := schema.TexUnit.Select(v)
	if b, err = view.Array("batches", hdr.Array("batches"), tl.Size); err != nil {
		return nil, err
	}
	for i := 0; i < len(b)/tl.Size; i++ {
		rec := tl.Element(b, i)
		s.TexUnits = append(s.TexUnits, TexUnit{
			Flags:                      rec.U8("flags"),
			PriorityPlane:              rec.I8("priority_plane"),
			ShaderID:                   rec.U16("shader_id"),
			SkinSectionIndex:           rec.U16("skin_section_index"),
			GeosetIndex:                rec.U16("geoset_index"),
			ColorIndex:                 rec.I16("color_index"),
			MaterialIndex:              rec.U16("material_index"),
			MaterialLayer:              rec.U16("material_layer"),
			TextureCount:               rec.U16("texture_count"),
			TextureComboIndex:          rec.U16("texture_combo_index"),
			TextureCoordComboIndex:     rec.U16("texture_coord_combo_index"),
			TextureWeightComboIndex:    rec.U16("texture_weight_combo_index"),
			TextureTransformComboIndex: rec.U16("texture_transform_combo_index"),
		})
	}

	if err := view.CheckOverlaps(); err != nil {
		return nil, err
	}
	return s, nil
}

// checkRanges rejects sub-meshes whose counts do not fit the 16 bit fields.
// Index starts above 0xffff are carried by the level field.
func (s *Skin) checkRanges() error {
	for i := range s.SubMeshes {
		sm := &s.SubMeshes[i]
		if sm.IndexCount > 0xffff {
			return errors.Errorf("submesh %d: %d indices, at most %d fit", i, sm.IndexCount, 0xffff)
		}
		if sm.VertexStart+sm.VertexCount > 0xffff {
			return errors.Errorf("submesh %d: vertices %d..%d do not fit", i, sm.VertexStart, sm.VertexStart+sm.VertexCount)
		}
	}
	return nil
}

func WriteSkin(s *Skin, v config.Version) []byte {
	hl := schema.SkinHeader.Select(v)
	e := &chunk.Emitter{}
	e.Alloc(hl.Size, 1)
	hdr := hl.BindEmitter(e, 0)
	hdr.SetRaw("magic", []byte(MAGIC_SKIN))
	hdr.SetU32("bone_count_max", s.BoneCountMax)

	writeU16s := func(name string, vals []uint16) {
		if len(vals) == 0 {
			return
		}
		off := e.Alloc(len(vals)*2, 16)
		for i, v := range vals {
			e.SetU16(off+i*2, v)
		}
		hdr.SetArray(name, chunk.ArrayRef{Count: uint32(len(vals)), Offset: uint32(off)})
	}
	writeU16s("vertices", s.Vertices)
	writeU16s("indices", s.Indices)

	if len(s.Bones) != 0 {
		off := e.Alloc(len(s.Bones)*4, 16)
		for i, b := range s.Bones {
			copy(e.At(off+i*4, 4), b[:])
		}
		hdr.SetArray("bones", chunk.ArrayRef{Count: uint32(len(s.Bones)), Offset: uint32(off)})
	}

	sl := schema.SubMesh.Select(v)
	if len(s.SubMeshes) != 0 {
		off := e.Alloc(len(s.SubMeshes)*sl.Size, 16)
		for i := range s.SubMeshes {
			sm := &s.SubMeshes[i]
			rec := sl.BindEmitter(e, off+i*sl.Size)
			rec.SetU16("skin_section_id", sm.ID)
			rec.SetU16("level", uint16(sm.IndexStart>>16))
			rec.SetU16("vertex_start", uint16(sm.VertexStart))
			rec.SetU16("vertex_count", uint16(sm.VertexCount))
			rec.SetU16("index_start", uint16(sm.IndexStart))
			rec.SetU16("index_count", uint16(sm.IndexCount))
			rec.SetU16("bone_count", sm.BoneCount)
			rec.SetU16("bone_combo_index", sm.BoneComboIndex)
			rec.SetU16("bone_influences", sm.BoneInfluences)
			rec.SetU16("center_bone_index", sm.CenterBoneIndex)
			rec.SetVec3("center_position", sm.CenterPosition)
			rec.SetVec3("sort_center_position", sm.SortCenter)
			rec.SetF32("sort_radius", sm.SortRadius)
		}
		hdr.SetArray("submeshes", chunk.ArrayRef{Count: uint32(len(s.SubMeshes)), Offset: uint32(off)})
	}

	tl := schema.TexUnit.Select(v)
	if len(s.TexUnits) != 0 {
		off := e.Alloc(len(s.TexUnits)*tl.Size, 16)
		for i := range s.TexUnits {
			tu := &s.TexUnits[i]
			rec := tl.BindEmitter(e, off+i*tl.Size)
			rec.SetU8("flags", tu.Flags)
			rec.SetI8("priority_plane", tu.PriorityPlane)
			rec.SetU16("shader_id", tu.ShaderID)
			rec.SetU16("skin_section_index", tu.SkinSectionIndex)
			rec.SetU16("geoset_index", tu.GeosetIndex)
			rec.SetI16("color_index", tu.ColorIndex)
			rec.SetU16("material_index", tu.MaterialIndex)
			rec.SetU16("material_layer", tu.MaterialLayer)
			rec.SetU16("texture_count", tu.TextureCount)
			rec.SetU16("texture_combo_index", tu.TextureComboIndex)
			rec.SetU16("texture_coord_combo_index", tu.TextureCoordComboIndex)
			rec.SetU16("texture_weight_combo_index", tu.TextureWeightComboIndex)
			rec.SetU16("texture_transform_combo_index", tu.TextureTransformComboIndex)
		}
		hdr.SetArray("batches", chunk.ArrayRef{Count: uint32(len(s.TexUnits)), Offset: uint32(off)})
	}
	return e.Bytes()
}

// BoundsOf is the box of the points and a sphere around its center.
func BoundsOf(points []mgl32.Vec3) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		for i := 0; i < 3; i++ {
			b.Min[i] = math32.Min(b.Min[i], p[i])
			b.Max[i] = math32.Max(b.Max[i], p[i])
		}
	}
	center := b.Center()
	for _, p := range points {
		if d := p.Sub(center).Len(); d > b.Radius {
			b.Radius = d
		}
	}
	return b
}

func (b Bounds) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// computeBounds fills the submesh bounds from the model vertices they reference.
func (s *Skin) computeBounds(vertices []Vertex) {
	for i := range s.SubMeshes {
		sm := &s.SubMeshes[i]
		points := make([]mgl32.Vec3, 0, sm.VertexCount)
		for j := sm.VertexStart; j < sm.VertexStart+sm.VertexCount && int(j) < len(s.Vertices); j++ {
			if vi := int(s.Vertices[j]); vi < len(vertices) {
				points = append(points, vertices[vi].Position)
			}
		}
		sm.Bounds = BoundsOf(points)
	}
}
