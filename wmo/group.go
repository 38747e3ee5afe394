package wmo

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
)

// ReadGroup decodes a group file. Names resolve against the root MOGN block
// when names is not nil.
func ReadGroup(data []byte, names []byte, log *utils.Logger, diag *validate.Diagnostics) (*Group, error) {
	idx, err := chunk.BuildIndex(data, true)
	if err != nil {
		return nil, err
	}
	if err := readVersion(idx, data); err != nil {
		return nil, err
	}
	gc, ok := idx.First(fourccMOGP)
	if !ok || gc.Size < schema.MOGP_SIZE {
		return nil, errors.Wrap(chunk.ErrTruncatedChunk, "missing MOGP")
	}
	body := gc.Payload(data)

	g := &Group{}
	hdr := layout(schema.MOGP).Bind(body[:schema.MOGP_SIZE])
	g.Name = lookupString(names, int64(hdr.U32("group_name")))
	g.Description = lookupString(names, int64(hdr.U32("descriptive_group_name")))
	g.Flags = hdr.U32("flags")
	g.Bounds = Box{hdr.Vec3("bounding_box_min"), hdr.Vec3("bounding_box_max")}
	g.PortalStart = hdr.U16("portal_start")
	g.PortalCount = hdr.U16("portal_count")
	g.TransBatchCount = hdr.U16("trans_batch_count")
	g.IntBatchCount = hdr.U16("int_batch_count")
	g.ExtBatchCount = hdr.U16("ext_batch_count")
	copy(g.FogIDs[:], hdr.Raw("fog_ids"))
	g.GroupLiquid = hdr.U32("group_liquid")
	g.UniqueID = hdr.U32("unique_id")
	g.Flags2 = hdr.U32("flags_2")

	sub := body[schema.MOGP_SIZE:]
	sidx, err := chunk.BuildIndex(sub, true)
	if err != nil {
		return nil, errors.Wrap(err, "MOGP sub-chunks")
	}
	payload := func(fourcc chunk.FourCC) []byte {
		if c, ok := sidx.First(fourcc); ok {
			return c.Payload(sub)
		}
		return nil
	}

	err = records(payload(fourccMOPY), schema.MOPY, func(i int, r schema.Record) {
		g.PolyFlags = append(g.PolyFlags, r.U8("flags"))
		g.PolyMaterials = append(g.PolyMaterials, r.U8("material_id"))
	})
	if err != nil {
		return nil, err
	}
	g.Indices = u16s(payload(fourccMOVI))
	g.Positions = vec3s(payload(fourccMOVT))
	g.Normals = vec3s(payload(fourccMONR))
	for _, c := range sidx.All(fourccMOTV) {
		cur := chunk.NewCursor(c.Payload(sub))
		uvs := make([]mgl32.Vec2, c.Size/8)
		for i := range uvs {
			uvs[i] = cur.Vec2()
		}
		g.UVs = append(g.UVs, uvs)
	}
	if cv := payload(fourccMOCV); cv != nil {
		g.Colors = make([]Color, len(cv)/4)
		for i := range g.Colors {
			copy(g.Colors[i][:], cv[i*4:])
		}
	}
	err = records(payload(fourccMOBA), schema.MOBA, func(i int, r schema.Record) {
		b := Batch{
			StartIndex: r.U32("start_index"),
			Count:      r.U16("count"),
			MinIndex:   r.U16("min_index"),
			MaxIndex:   r.U16("max_index"),
			Flags:      r.U8("flags"),
			Material:   r.U8("material_id"),
		}
		box := r.Raw("bounding_box")
		for k := range b.Box {
			b.Box[k] = int16(uint16(box[k*2]) | uint16(box[k*2+1])<<8)
		}
		g.Batches = append(g.Batches, b)
	})
	if err != nil {
		return nil, err
	}
	err = records(payload(fourccMOBN), schema.MOBN, func(i int, r schema.Record) {
		g.BSPNodes = append(g.BSPNodes, BSPNode{
			Flags:     r.U16("flags"),
			NegChild:  r.I16("neg_child"),
			PosChild:  r.I16("pos_child"),
			NumFaces:  r.U16("n_faces"),
			FaceStart: r.U32("face_start"),
			PlaneDist: r.F32("plane_dist"),
		})
	})
	if err != nil {
		return nil, err
	}
	g.BSPFaces = u16s(payload(fourccMOBR))
	g.DoodadRefs = u16s(payload(fourccMODR))
	g.LightRefs = u16s(payload(fourccMOLR))

	if lc, ok := sidx.First(fourccMLIQ); ok {
		liquid, err := readLiquid(lc.Payload(sub))
		if err != nil {
			return nil, err
		}
		g.Liquid = liquid
	}

	if len(g.PolyFlags) != g.Triangles() {
		return nil, errors.Wrapf(chunk.ErrArrayOutOfBounds, "%d triangle flags for %d triangles", len(g.PolyFlags), g.Triangles())
	}
	for _, i := range g.Indices {
		if int(i) >= len(g.Positions) {
			return nil, errors.Wrapf(chunk.ErrArrayOutOfBounds, "index %d of %d vertices", i, len(g.Positions))
		}
	}
	for _, c := range sidx.Chunks {
		if !knownGroupChunk(c.FourCC) {
			diag.Infof(validate.UnknownChunk, "group chunk %s skipped", c)
		}
	}
	log.Printf("[wmo] group %q: %d vertices, %d triangles, %d batches, %d bsp nodes",
		g.Name, len(g.Positions), g.Triangles(), len(g.Batches), len(g.BSPNodes))
	return g, nil
}

func knownGroupChunk(fourcc chunk.FourCC) bool {
	switch fourcc {
	case fourccMOPY, fourccMOVI, fourccMOVT, fourccMONR, fourccMOTV, fourccMOCV, fourccMOBA,
		fourccMOBN, fourccMOBR, fourccMODR, fourccMOLR, fourccMLIQ:
		return true
	}
	return false
}

func readLiquid(payload []byte) (*Liquid, error) {
	if len(payload) < schema.MLIQ_SIZE {
		return nil, errors.Wrap(chunk.ErrTruncatedChunk, "MLIQ header")
	}
	hdr := layout(schema.MLIQ).Bind(payload[:schema.MLIQ_SIZE])
	l := &Liquid{
		XVerts:   hdr.U32("x_verts"),
		YVerts:   hdr.U32("y_verts"),
		XTiles:   hdr.U32("x_tiles"),
		YTiles:   hdr.U32("y_tiles"),
		Base:     hdr.Vec3("base"),
		Material: hdr.U16("material_id"),
	}
	nv, nt := int(l.XVerts*l.YVerts), int(l.XTiles*l.YTiles)
	if len(payload) < schema.MLIQ_SIZE+nv*schema.MLIQ_VERT_SIZE+nt {
		return nil, errors.Wrapf(chunk.ErrTruncatedChunk, "MLIQ wants %d vertices and %d tiles", nv, nt)
	}
	cur := chunk.NewCursor(payload[schema.MLIQ_SIZE:])
	l.Vertices = make([]LiquidVertex, nv)
	for i := range l.Vertices {
		copy(l.Vertices[i].Data[:], cur.Read(4))
		l.Vertices[i].Height = cur.F32()
	}
	l.Tiles = append([]uint8(nil), cur.Read(nt)...)
	return l, nil
}

func writeLiquid(l *Liquid) []byte {
	var e chunk.Emitter
	e.Write(emit(schema.MLIQ, 1, func(_ int, r schema.Record) {
		r.SetU32("x_verts", l.XVerts)
		r.SetU32("y_verts", l.YVerts)
		r.SetU32("x_tiles", l.XTiles)
		r.SetU32("y_tiles", l.YTiles)
		r.SetVec3("base", l.Base)
		r.SetU16("material_id", l.Material)
	}))
	for _, v := range l.Vertices {
		e.Write(v.Data[:])
		e.WriteF32(v.Height)
	}
	e.Write(l.Tiles)
	return e.Bytes()
}

// writeGroup serializes g with its name offsets into the root MOGN block.
func writeGroup(g *Group, name, description uint32) []byte {
	w := chunk.NewWriter(true)
	w.WriteChunk(fourccMVER, versionPayload())
	end := w.Begin(fourccMOGP)
	w.WriteRaw(emit(schema.MOGP, 1, func(_ int, r schema.Record) {
		r.SetU32("group_name", name)
		r.SetU32("descriptive_group_name", description)
		r.SetU32("flags", g.Flags)
		r.SetVec3("bounding_box_min", g.Bounds.Min)
		r.SetVec3("bounding_box_max", g.Bounds.Max)
		r.SetU16("portal_start", g.PortalStart)
		r.SetU16("portal_count", g.PortalCount)
		r.SetU16("trans_batch_count", g.TransBatchCount)
		r.SetU16("int_batch_count", g.IntBatchCount)
		r.SetU16("ext_batch_count", g.ExtBatchCount)
		r.SetRaw("fog_ids", g.FogIDs[:])
		r.SetU32("group_liquid", g.GroupLiquid)
		r.SetU32("unique_id", g.UniqueID)
		r.SetU32("flags_2", g.Flags2)
	}))

	w.WriteChunk(fourccMOPY, emit(schema.MOPY, len(g.PolyFlags), func(i int, r schema.Record) {
		r.SetU8("flags", g.PolyFlags[i])
		r.SetU8("material_id", g.PolyMaterials[i])
	}))
	w.WriteChunk(fourccMOVI, u16sBytes(g.Indices))
	w.WriteChunk(fourccMOVT, vec3sBytes(g.Positions))
	w.WriteChunk(fourccMONR, vec3sBytes(g.Normals))
	for _, set := range g.UVs {
		var e chunk.Emitter
		for _, uv := range set {
			e.WriteVec2(uv)
		}
		w.WriteChunk(fourccMOTV, e.Bytes())
	}
	if g.Colors != nil {
		cv := make([]byte, 0, len(g.Colors)*4)
		for _, c := range g.Colors {
			cv = append(cv, c[:]...)
		}
		w.WriteChunk(fourccMOCV, cv)
	}
	w.WriteChunk(fourccMOBA, emit(schema.MOBA, len(g.Batches), func(i int, r schema.Record) {
		b := &g.Batches[i]
		box := make([]byte, 12)
		for k, v := range b.Box {
			box[k*2] = byte(uint16(v))
			box[k*2+1] = byte(uint16(v) >> 8)
		}
		r.SetRaw("bounding_box", box)
		r.SetU32("start_index", b.StartIndex)
		r.SetU16("count", b.Count)
		r.SetU16("min_index", b.MinIndex)
		r.SetU16("max_index", b.MaxIndex)
		r.SetU8("flags", b.Flags)
		r.SetU8("material_id", b.Material)
	}))
	w.WriteChunk(fourccMOBN, emit(schema.MOBN, len(g.BSPNodes), func(i int, r schema.Record) {
		n := &g.BSPNodes[i]
		r.SetU16("flags", n.Flags)
		r.SetI16("neg_child", n.NegChild)
		r.SetI16("pos_child", n.PosChild)
		r.SetU16("n_faces", n.NumFaces)
		r.SetU32("face_start", n.FaceStart)
		r.SetF32("plane_dist", n.PlaneDist)
	}))
	w.WriteChunk(fourccMOBR, u16sBytes(g.BSPFaces))
	w.WriteChunk(fourccMODR, u16sBytes(g.DoodadRefs))
	if len(g.LightRefs) != 0 {
		w.WriteChunk(fourccMOLR, u16sBytes(g.LightRefs))
	}
	if g.Liquid != nil {
		w.WriteChunk(fourccMLIQ, writeLiquid(g.Liquid))
	}
	end()
	return w.Bytes()
}
