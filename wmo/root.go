package wmo

import (
	"encoding/binary"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
)

// WMO records carry no version gated fields.
const schemaVersion = config.WotLK

func layout(s *schema.Struct) *schema.Layout {
	return s.Select(schemaVersion)
}

// records calls fn for every record of payload, which must hold a whole number of them.
func records(payload []byte, s *schema.Struct, fn func(i int, r schema.Record)) error {
	l := layout(s)
	if len(payload)%l.Size != 0 {
		return errors.Wrapf(chunk.ErrArrayOutOfBounds, "%s: 0x%x bytes is not a multiple of 0x%x", l.Struct.Name, len(payload), l.Size)
	}
	for i := 0; i < len(payload)/l.Size; i++ {
		fn(i, l.Element(payload, i))
	}
	return nil
}

// emit appends n records built by fn.
func emit(s *schema.Struct, n int, fn func(i int, r schema.Record)) []byte {
	l := layout(s)
	buf := make([]byte, n*l.Size)
	for i := 0; i < n; i++ {
		fn(i, l.Element(buf, i))
	}
	return buf
}

func readVersion(idx *chunk.Index, buf []byte) error {
	c, ok := idx.First(fourccMVER)
	if !ok || c.Size < 4 {
		return errors.Wrap(chunk.ErrTruncatedChunk, "missing MVER")
	}
	if v := binary.LittleEndian.Uint32(c.Payload(buf)); v != config.WMOVersion {
		return errors.Wrapf(chunk.ErrUnknownVersion, "wmo version %d", v)
	}
	return nil
}

func versionPayload() []byte {
	return binary.LittleEndian.AppendUint32(nil, config.WMOVersion)
}

func vec3s(payload []byte) []mgl32.Vec3 {
	c := chunk.NewCursor(payload)
	result := make([]mgl32.Vec3, len(payload)/12)
	for i := range result {
		result[i] = c.Vec3()
	}
	return result
}

func vec3sBytes(vs []mgl32.Vec3) []byte {
	var e chunk.Emitter
	for _, v := range vs {
		e.WriteVec3(v)
	}
	return e.Bytes()
}

func u16s(payload []byte) []uint16 {
	result := make([]uint16, len(payload)/2)
	for i := range result {
		result[i] = binary.LittleEndian.Uint16(payload[i*2:])
	}
	return result
}

func u16sBytes(vs []uint16) []byte {
	buf := make([]byte, 0, len(vs)*2)
	for _, v := range vs {
		buf = binary.LittleEndian.AppendUint16(buf, v)
	}
	return buf
}

func quatFromVec4(v mgl32.Vec4) mgl32.Quat {
	return mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
}

func vec4FromQuat(q mgl32.Quat) mgl32.Vec4 {
	return mgl32.Vec4{q.V[0], q.V[1], q.V[2], q.W}
}

// ReadRoot decodes a root file. Group files are read separately.
func ReadRoot(data []byte, log *utils.Logger, diag *validate.Diagnostics) (*Root, error) {
	idx, err := chunk.BuildIndex(data, true)
	if err != nil {
		return nil, err
	}
	if err := readVersion(idx, data); err != nil {
		return nil, err
	}
	hc, ok := idx.First(fourccMOHD)
	if !ok || hc.Size < schema.MOHD_SIZE {
		return nil, errors.Wrap(chunk.ErrTruncatedChunk, "missing MOHD")
	}

	root := &Root{}
	hdr := layout(schema.MOHD).Bind(hc.Payload(data))
	root.AmbientColor = hdr.Color("amb_color")
	root.WMOID = hdr.U32("wmo_id")
	root.Bounds = Box{hdr.Vec3("bounding_box_min"), hdr.Vec3("bounding_box_max")}
	root.Flags = hdr.U16("flags")
	root.NumLod = hdr.U16("num_lod")

	payload := func(fourcc chunk.FourCC) []byte {
		if c, ok := idx.First(fourcc); ok {
			return c.Payload(data)
		}
		return nil
	}
	motx := payload(fourccMOTX)
	mogn := payload(fourccMOGN)
	modn := payload(fourccMODN)

	err = records(payload(fourccMOMT), schema.MOMT, func(i int, r schema.Record) {
		root.Materials = append(root.Materials, Material{
			Flags:          r.U32("flags"),
			Shader:         r.U32("shader"),
			BlendMode:      r.U32("blend_mode"),
			Texture1:       lookupString(motx, int64(r.U32("texture_1"))),
			SidnColor:      r.Color("sidn_color"),
			FrameSidnColor: r.Color("frame_sidn_color"),
			Texture2:       lookupString(motx, int64(r.U32("texture_2"))),
			DiffColor:      r.Color("diff_color"),
			GroundType:     r.U32("ground_type"),
			Texture3:       lookupString(motx, int64(r.U32("texture_3"))),
			Color2:         r.U32("color_2"),
			Flags2:         r.U32("flags_2"),
		})
	})
	if err != nil {
		return nil, err
	}

	err = records(payload(fourccMOGI), schema.MOGI, func(i int, r schema.Record) {
		root.Groups = append(root.Groups, GroupInfo{
			Flags:  r.U32("flags"),
			Bounds: Box{r.Vec3("bounding_box_min"), r.Vec3("bounding_box_max")},
			Name:   lookupString(mogn, int64(r.I32("name_offset"))),
		})
	})
	if err != nil {
		return nil, err
	}

	root.Skybox = lookupString(payload(fourccMOSB), 0)

	portalVertices := vec3s(payload(fourccMOPV))
	err = records(payload(fourccMOPT), schema.MOPT, func(i int, r schema.Record) {
		start, count := int(r.U16("start_vertex")), int(r.U16("count"))
		p := Portal{Plane: Plane{r.Vec3("normal"), r.F32("distance")}}
		if start+count <= len(portalVertices) {
			p.Vertices = append([]mgl32.Vec3(nil), portalVertices[start:start+count]...)
		} else {
			diag.Warnf(validate.PortalNonPlanar, "portal %d references vertices %d..%d of %d", i, start, start+count, len(portalVertices))
		}
		root.Portals = append(root.Portals, p)
	})
	if err != nil {
		return nil, err
	}
	err = records(payload(fourccMOPR), schema.MOPR, func(i int, r schema.Record) {
		root.PortalRefs = append(root.PortalRefs, PortalRef{
			Portal: r.U16("portal_index"),
			Group:  r.U16("group_index"),
			Side:   r.I16("side"),
		})
	})
	if err != nil {
		return nil, err
	}

	visible := vec3s(payload(fourccMOVV))
	err = records(payload(fourccMOVB), schema.MOVB, func(i int, r schema.Record) {
		start, count := int(r.U16("first_vertex")), int(r.U16("count"))
		b := VisibleBlock{}
		if start+count <= len(visible) {
			b.Vertices = append([]mgl32.Vec3(nil), visible[start:start+count]...)
		}
		root.VisibleBlocks = append(root.VisibleBlocks, b)
	})
	if err != nil {
		return nil, err
	}

	err = records(payload(fourccMOLT), schema.MOLT, func(i int, r schema.Record) {
		l := Light{
			Type:       r.U8("type"),
			UseAtten:   r.U8("use_atten") != 0,
			Color:      r.Color("color"),
			Position:   r.Vec3("position"),
			Intensity:  r.F32("intensity"),
			AttenStart: r.F32("atten_start"),
			AttenEnd:   r.F32("atten_end"),
		}
		copy(l.Unknown[:], r.Raw("unknown"))
		root.Lights = append(root.Lights, l)
	})
	if err != nil {
		return nil, err
	}

	err = records(payload(fourccMODS), schema.MODS, func(i int, r schema.Record) {
		root.DoodadSets = append(root.DoodadSets, DoodadSet{
			Name:  utils.BytesToString(r.Raw("name")),
			Start: r.U32("start_index"),
			Count: r.U32("count"),
		})
	})
	if err != nil {
		return nil, err
	}
	err = records(payload(fourccMODD), schema.MODD, func(i int, r schema.Record) {
		nameFlags := r.U32("name_index_flags")
		root.Doodads = append(root.Doodads, DoodadDef{
			Path:        lookupString(modn, int64(nameFlags&0xffffff)),
			Flags:       uint8(nameFlags >> 24),
			Position:    r.Vec3("position"),
			Orientation: quatFromVec4(r.Vec4("orientation")),
			Scale:       r.F32("scale"),
			Color:       r.Color("color"),
		})
	})
	if err != nil {
		return nil, err
	}

	err = records(payload(fourccMFOG), schema.MFOG, func(i int, r schema.Record) {
		root.Fogs = append(root.Fogs, Fog{
			Flags:           r.U32("flags"),
			Position:        r.Vec3("position"),
			SmallerRadius:   r.F32("smaller_radius"),
			LargerRadius:    r.F32("larger_radius"),
			End:             r.F32("fog_end"),
			StartScalar:     r.F32("fog_start_scalar"),
			Color:           r.Color("color"),
			UnderwaterEnd:   r.F32("uw_fog_end"),
			UnderwaterStart: r.F32("uw_fog_start_scalar"),
			UnderwaterColor: r.Color("uw_color"),
		})
	})
	if err != nil {
		return nil, err
	}
	err = records(payload(fourccMCVP), schema.MCVP, func(i int, r schema.Record) {
		root.ConvexVolume = append(root.ConvexVolume, Plane{r.Vec3("normal"), r.F32("distance")})
	})
	if err != nil {
		return nil, err
	}

	for _, c := range idx.Chunks {
		if !knownRootChunk(c.FourCC) {
			diag.Infof(validate.UnknownChunk, "root chunk %s skipped", c)
		}
	}
	log.Printf("[wmo] root: %d materials, %d groups, %d portals, %d doodads",
		len(root.Materials), len(root.Groups), len(root.Portals), len(root.Doodads))
	return root, nil
}

func knownRootChunk(fourcc chunk.FourCC) bool {
	switch fourcc {
	case fourccMVER, fourccMOHD, fourccMOTX, fourccMOMT, fourccMOGN, fourccMOGI, fourccMOSB,
		fourccMOPV, fourccMOPT, fourccMOPR, fourccMOVV, fourccMOVB, fourccMOLT, fourccMODS,
		fourccMODN, fourccMODD, fourccMFOG, fourccMCVP:
		return true
	}
	return false
}

// groupNames lays out MOGN: every group name followed by its description.
func groupNames(root *Root, groups []*Group) (*stringTable, []uint32, []uint32) {
	t := newStringTable()
	names := make([]uint32, len(root.Groups))
	descs := make([]uint32, len(root.Groups))
	for i := range root.Groups {
		names[i] = t.add(root.Groups[i].Name)
		if i < len(groups) && groups[i] != nil && groups[i].Description != "" {
			descs[i] = t.add(groups[i].Description)
		}
	}
	return t, names, descs
}

// writeRoot serializes root. Counts in the header always follow the arrays.
func writeRoot(root *Root, mogn *stringTable, names []uint32) []byte {
	w := chunk.NewWriter(true)
	w.WriteChunk(fourccMVER, versionPayload())

	motx := newStringTable()
	type matTex struct{ t1, t2, t3 uint32 }
	texs := make([]matTex, len(root.Materials))
	for i, m := range root.Materials {
		texs[i] = matTex{motx.add(m.Texture1), motx.add(m.Texture2), motx.add(m.Texture3)}
	}
	modn := newStringTable()
	doodadNames := make([]uint32, len(root.Doodads))
	for i, d := range root.Doodads {
		doodadNames[i] = modn.add(d.Path)
	}

	hdr := emit(schema.MOHD, 1, func(_ int, r schema.Record) {
		r.SetU32("n_textures", uint32(len(motx.offs)-1))
		r.SetU32("n_groups", uint32(len(root.Groups)))
		r.SetU32("n_portals", uint32(len(root.Portals)))
		r.SetU32("n_lights", uint32(len(root.Lights)))
		r.SetU32("n_doodad_names", uint32(len(modn.offs)-1))
		r.SetU32("n_doodad_defs", uint32(len(root.Doodads)))
		r.SetU32("n_doodad_sets", uint32(len(root.DoodadSets)))
		r.SetColor("amb_color", root.AmbientColor)
		r.SetU32("wmo_id", root.WMOID)
		r.SetVec3("bounding_box_min", root.Bounds.Min)
		r.SetVec3("bounding_box_max", root.Bounds.Max)
		r.SetU16("flags", root.Flags)
		r.SetU16("num_lod", root.NumLod)
	})
	w.WriteChunk(fourccMOHD, hdr)
	w.WriteChunk(fourccMOTX, motx.bytes())
	w.WriteChunk(fourccMOMT, emit(schema.MOMT, len(root.Materials), func(i int, r schema.Record) {
		m := &root.Materials[i]
		r.SetU32("flags", m.Flags)
		r.SetU32("shader", m.Shader)
		r.SetU32("blend_mode", m.BlendMode)
		r.SetU32("texture_1", texs[i].t1)
		r.SetColor("sidn_color", m.SidnColor)
		r.SetColor("frame_sidn_color", m.FrameSidnColor)
		r.SetU32("texture_2", texs[i].t2)
		r.SetColor("diff_color", m.DiffColor)
		r.SetU32("ground_type", m.GroundType)
		r.SetU32("texture_3", texs[i].t3)
		r.SetU32("color_2", m.Color2)
		r.SetU32("flags_2", m.Flags2)
	}))
	w.WriteChunk(fourccMOGN, mogn.bytes())
	w.WriteChunk(fourccMOGI, emit(schema.MOGI, len(root.Groups), func(i int, r schema.Record) {
		g := &root.Groups[i]
		r.SetU32("flags", g.Flags)
		r.SetVec3("bounding_box_min", g.Bounds.Min)
		r.SetVec3("bounding_box_max", g.Bounds.Max)
		r.SetI32("name_offset", int32(names[i]))
	}))
	w.WriteChunk(fourccMOSB, utils.StringToBytesBuffer(root.Skybox, utils.Align(len(utils.StringToBytes(root.Skybox, true)), 4), true))

	var portalVertices []mgl32.Vec3
	mopt := emit(schema.MOPT, len(root.Portals), func(i int, r schema.Record) {
		p := &root.Portals[i]
		r.SetU16("start_vertex", uint16(len(portalVertices)))
		r.SetU16("count", uint16(len(p.Vertices)))
		r.SetVec3("normal", p.Plane.Normal)
		r.SetF32("distance", p.Plane.Distance)
		portalVertices = append(portalVertices, p.Vertices...)
	})
	w.WriteChunk(fourccMOPV, vec3sBytes(portalVertices))
	w.WriteChunk(fourccMOPT, mopt)
	w.WriteChunk(fourccMOPR, emit(schema.MOPR, len(root.PortalRefs), func(i int, r schema.Record) {
		ref := &root.PortalRefs[i]
		r.SetU16("portal_index", ref.Portal)
		r.SetU16("group_index", ref.Group)
		r.SetI16("side", ref.Side)
	}))

	var visible []mgl32.Vec3
	movb := emit(schema.MOVB, len(root.VisibleBlocks), func(i int, r schema.Record) {
		b := &root.VisibleBlocks[i]
		r.SetU16("first_vertex", uint16(len(visible)))
		r.SetU16("count", uint16(len(b.Vertices)))
		visible = append(visible, b.Vertices...)
	})
	w.WriteChunk(fourccMOVV, vec3sBytes(visible))
	w.WriteChunk(fourccMOVB, movb)

	w.WriteChunk(fourccMOLT, emit(schema.MOLT, len(root.Lights), func(i int, r schema.Record) {
		l := &root.Lights[i]
		r.SetU8("type", l.Type)
		if l.UseAtten {
			r.SetU8("use_atten", 1)
		}
		r.SetColor("color", l.Color)
		r.SetVec3("position", l.Position)
		r.SetF32("intensity", l.Intensity)
		r.SetRaw("unknown", l.Unknown[:])
		r.SetF32("atten_start", l.AttenStart)
		r.SetF32("atten_end", l.AttenEnd)
	}))
	w.WriteChunk(fourccMODS, emit(schema.MODS, len(root.DoodadSets), func(i int, r schema.Record) {
		s := &root.DoodadSets[i]
		r.SetRaw("name", utils.StringToBytesBuffer(s.Name, 20, true))
		r.SetU32("start_index", s.Start)
		r.SetU32("count", s.Count)
	}))
	w.WriteChunk(fourccMODN, modn.bytes())
	w.WriteChunk(fourccMODD, emit(schema.MODD, len(root.Doodads), func(i int, r schema.Record) {
		d := &root.Doodads[i]
		r.SetU32("name_index_flags", doodadNames[i]&0xffffff|uint32(d.Flags)<<24)
		r.SetVec3("position", d.Position)
		r.SetVec4("orientation", vec4FromQuat(d.Orientation))
		r.SetF32("scale", d.Scale)
		r.SetColor("color", d.Color)
	}))
	w.WriteChunk(fourccMFOG, emit(schema.MFOG, len(root.Fogs), func(i int, r schema.Record) {
		f := &root.Fogs[i]
		r.SetU32("flags", f.Flags)
		r.SetVec3("position", f.Position)
		r.SetF32("smaller_radius", f.SmallerRadius)
		r.SetF32("larger_radius", f.LargerRadius)
		r.SetF32("fog_end", f.End)
		r.SetF32("fog_start_scalar", f.StartScalar)
		r.SetColor("color", f.Color)
		r.SetF32("uw_fog_end", f.UnderwaterEnd)
		r.SetF32("uw_fog_start_scalar", f.UnderwaterStart)
		r.SetColor("uw_color", f.UnderwaterColor)
	}))
	if len(root.ConvexVolume) != 0 {
		w.WriteChunk(fourccMCVP, emit(schema.MCVP, len(root.ConvexVolume), func(i int, r schema.Record) {
			r.SetVec3("normal", root.ConvexVolume[i].Normal)
			r.SetF32("distance", root.ConvexVolume[i].Distance)
		}))
	}
	return w.Bytes()
}

func rootChunk(data []byte, fourcc chunk.FourCC) ([]byte, error) {
	idx, err := chunk.BuildIndex(data, true)
	if err != nil {
		return nil, err
	}
	if c, ok := idx.First(fourcc); ok {
		return c.Payload(data), nil
	}
	return nil, nil
}
