package m2

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils"
)

const arrayAlign = 16

// AnimData is the sidecar of one external sequence.
type AnimData struct {
	AnimationID    uint16
	VariationIndex uint16
	Data           []byte
}

// Files is the output of Write: the model, one blob per skin profile and one per
// external sequence.
type Files struct {
	Model []byte
	Skins [][]byte
	Anims []AnimData
}

type writer struct {
	m     *Model
	e     *chunk.Emitter
	hdr   schema.Record
	sink  *track.Sink
	anims map[int]*chunk.Emitter
}

// Write encodes m for m.Version. Arrays follow header order, each aligned to 16.
func Write(m *Model) (*Files, error) {
	if !m.Version.Valid() {
		return nil, errors.Errorf("m2 write: invalid version %v", m.Version)
	}
	for i := range m.Skins {
		if err := m.Skins[i].checkRanges(); err != nil {
			return nil, errors.Wrapf(err, "m2 write: skin %d", i)
		}
	}
	for i := range m.Sequences {
		s := &m.Sequences[i]
		if s.IsAlias() && int(s.AliasNext) >= len(m.Sequences) {
			return nil, errors.Errorf("m2 write: sequence %d aliases %d of %d", i, s.AliasNext, len(m.Sequences))
		}
	}

	w := &writer{
		m:     m,
		e:     &chunk.Emitter{},
		anims: make(map[int]*chunk.Emitter),
	}
	w.sink = &track.Sink{Main: w.e, Sidecar: w.sidecar, NumSequences: len(m.Sequences)}

	hdrSize := schema.M2_HEADER_SIZE
	if m.GlobalFlags&GLOBAL_FLAG_USE_TEXTURE_COMBOS != 0 {
		hdrSize = schema.M2_HEADER_COMBINER_SIZE
	}
	w.e.Alloc(hdrSize, 1)
	w.hdr = schema.M2Header.Select(m.Version).BindEmitter(w.e, 0)
	w.write()

	files := &Files{Model: w.e.Bytes()}
	if m.Version.Chunked() {
		files.Model = m.writeChunks(files.Model)
	}
	for i := range m.Skins {
		files.Skins = append(files.Skins, WriteSkin(&m.Skins[i], m.Version))
	}
	for i := range m.Sequences {
		s := &m.Sequences[i]
		if !s.IsExternal() {
			continue
		}
		var payload []byte
		if e, ok := w.anims[i]; ok {
			payload = e.Bytes()
		}
		files.Anims = append(files.Anims, AnimData{
			AnimationID:    s.AnimationID,
			VariationIndex: s.VariationIndex,
			Data:           WrapAnim(payload, m.Version.Chunked()),
		})
	}
	return files, nil
}

func (w *writer) sidecar(seq int) *chunk.Emitter {
	if seq >= len(w.m.Sequences) || !w.m.Sequences[seq].IsExternal() {
		return nil
	}
	e, ok := w.anims[seq]
	if !ok {
		e = &chunk.Emitter{}
		w.anims[seq] = e
	}
	return e
}

// alloc reserves a header level array. Empty arrays keep a zero reference.
func (w *writer) alloc(name string, count, elemSize int) int {
	if count == 0 {
		return -1
	}
	off := w.e.Alloc(count*elemSize, arrayAlign)
	w.hdr.SetArray(name, chunk.ArrayRef{Count: uint32(count), Offset: uint32(off)})
	return off
}

func (w *writer) records(name string, s *schema.Struct, count int, fn func(i int, rec schema.Record)) {
	l := s.Select(w.m.Version)
	off := w.alloc(name, count, l.Size)
	for i := 0; i < count; i++ {
		fn(i, l.BindEmitter(w.e, off+i*l.Size))
	}
}

// data appends nested data (strings, index lists) and returns its reference.
func (w *writer) data(b []byte, count int) chunk.ArrayRef {
	if count == 0 {
		return chunk.ArrayRef{}
	}
	return chunk.ArrayRef{Count: uint32(count), Offset: uint32(w.e.Append(b, arrayAlign))}
}

func (w *writer) str(s string) chunk.ArrayRef {
	if s == "" {
		return chunk.ArrayRef{}
	}
	b := utils.StringToBytes(s, true)
	return w.data(b, len(b))
}

func u16sBytes(vals []uint16) []byte {
	b := make([]byte, len(vals)*2)
	for i, v := range vals {
		b[i*2] = byte(v)
		b[i*2+1] = byte(v >> 8)
	}
	return b
}

func i16sBytes(vals []int16) []byte {
	b := make([]byte, len(vals)*2)
	for i, v := range vals {
		b[i*2] = byte(v)
		b[i*2+1] = byte(uint16(v) >> 8)
	}
	return b
}

func vec3sBytes(vals []mgl32.Vec3) []byte {
	e := &chunk.Emitter{}
	for _, v := range vals {
		e.WriteVec3(v)
	}
	return e.Bytes()
}

func (w *writer) blob(name string, b []byte, count int) {
	if off := w.alloc(name, count, len(b)/max(count, 1)); off >= 0 {
		copy(w.e.At(off, len(b)), b)
	}
}

func (w *writer) setTrack(rec schema.Record, name string, h track.Header) {
	rec.SetRaw(name, h.Bytes())
}

func (w *writer) write() {
	m := w.m
	hdr := w.hdr
	hdr.SetRaw("magic", []byte(MAGIC_MD20))
	hdr.SetU32("version", m.Version.M2Version())
	hdr.SetU32("global_flags", m.GlobalFlags)
	numSkins := m.NumSkinProfiles
	if len(m.Skins) != 0 {
		numSkins = uint32(len(m.Skins))
	}
	hdr.SetU32("num_skin_profiles", numSkins)

	if m.Name != "" {
		name := utils.StringToBytes(m.Name, true)
		w.blob("name", name, len(name))
	}
	w.blob("global_loops", u32sBytes(m.GlobalSequences), len(m.GlobalSequences))

	w.records("sequences", schema.Sequence, len(m.Sequences), func(i int, rec schema.Record) {
		writeSequence(rec, &m.Sequences[i])
	})
	w.blob("sequence_lookups", i16sBytes(m.SequenceLookup), len(m.SequenceLookup))

	w.records("bones", schema.Bone, len(m.Bones), func(i int, rec schema.Record) {
		b := &m.Bones[i]
		rec.SetI32("key_bone_id", b.KeyBoneID)
		rec.SetU32("flags", b.Flags)
		rec.SetI16("parent_bone", b.Parent)
		rec.SetU16("submesh_id", b.SubmeshID)
		rec.SetU32("bone_name_crc", b.BoneNameCRC)
		w.setTrack(rec, "translation", track.Encode(&b.Translation, track.Vec3, w.sink))
		w.setTrack(rec, "rotation", track.Encode(&b.Rotation, track.Quat, w.sink))
		w.setTrack(rec, "scale", track.Encode(&b.Scale, track.Vec3, w.sink))
		rec.SetVec3("pivot", b.Pivot)
	})
	w.blob("key_bone_lookup", i16sBytes(m.KeyBoneLookup), len(m.KeyBoneLookup))

	w.records("vertices", schema.Vertex, len(m.Vertices), func(i int, rec schema.Record) {
		v := &m.Vertices[i]
		rec.SetVec3("pos", v.Position)
		rec.SetColor("bone_weights", v.BoneWeights)
		rec.SetColor("bone_indices", v.BoneIndices)
		rec.SetVec3("normal", v.Normal)
		rec.SetVec2("tex_coord_0", v.TexCoords[0])
		rec.SetVec2("tex_coord_1", v.TexCoords[1])
	})

	w.records("colors", schema.ColorBlock, len(m.Colors), func(i int, rec schema.Record) {
		c := &m.Colors[i]
		w.setTrack(rec, "color", track.Encode(&c.Color, track.Vec3, w.sink))
		w.setTrack(rec, "alpha", track.Encode(&c.Alpha, track.Fixed, w.sink))
	})
	w.records("textures", schema.Texture, len(m.Textures), func(i int, rec schema.Record) {
		t := &m.Textures[i]
		rec.SetU32("type", t.Type)
		rec.SetU32("flags", t.Flags)
		rec.SetArray("filename", w.str(t.Filename))
	})
	w.records("texture_weights", schema.TextureWeight, len(m.TextureWeights), func(i int, rec schema.Record) {
		w.setTrack(rec, "weight", track.Encode(&m.TextureWeights[i].Weight, track.Fixed, w.sink))
	})

	ttSink := w.sink
	if m.GlobalFlags&GLOBAL_FLAG_TEXTURE_TRANSFORMS_BY_SEQ != 0 {
		s := *w.sink
		s.SlotSequence = make([]int, len(m.SequenceLookup))
		for i, seq := range m.SequenceLookup {
			s.SlotSequence[i] = int(seq)
		}
		ttSink = &s
	}
	w.records("texture_transforms", schema.TextureTransform, len(m.TextureTransforms), func(i int, rec schema.Record) {
		t := &m.TextureTransforms[i]
		w.setTrack(rec, "translation", track.Encode(&t.Translation, track.Vec3, ttSink))
		w.setTrack(rec, "rotation", track.Encode(&t.Rotation, track.FloatQuat, ttSink))
		w.setTrack(rec, "scaling", track.Encode(&t.Scaling, track.Vec3, ttSink))
	})
	w.blob("replaceable_texture_lookup", i16sBytes(m.ReplaceableTextureLookup), len(m.ReplaceableTextureLookup))

	w.records("materials", schema.Material, len(m.Materials), func(i int, rec schema.Record) {
		rec.SetU16("flags", m.Materials[i].Flags)
		rec.SetU16("blending_mode", uint16(m.Materials[i].BlendMode))
	})
	w.blob("bone_lookup_table", u16sBytes(m.BoneLookup), len(m.BoneLookup))
	w.blob("texture_lookup_table", u16sBytes(m.TextureLookup), len(m.TextureLookup))
	w.blob("tex_unit_lookup_table", i16sBytes(m.TexUnitLookup), len(m.TexUnitLookup))
	w.blob("transparency_lookup_table", u16sBytes(m.TransparencyLookup), len(m.TransparencyLookup))
	w.blob("texture_transforms_lookup_table", i16sBytes(m.TextureTransformLookup), len(m.TextureTransformLookup))

	hdr.SetVec3("bounding_box_min", m.Bounds.Min)
	hdr.SetVec3("bounding_box_max", m.Bounds.Max)
	hdr.SetF32("bounding_sphere_radius", m.Bounds.Radius)
	c := &m.Collision
	hdr.SetVec3("collision_box_min", c.Bounds.Min)
	hdr.SetVec3("collision_box_max", c.Bounds.Max)
	hdr.SetF32("collision_sphere_radius", c.Bounds.Radius)
	w.blob("collision_indices", u16sBytes(c.Indices), len(c.Indices))
	w.blob("collision_positions", vec3sBytes(c.Positions), len(c.Positions))
	w.blob("collision_face_normals", vec3sBytes(c.Normals), len(c.Normals))

	w.records("attachments", schema.Attachment, len(m.Attachments), func(i int, rec schema.Record) {
		a := &m.Attachments[i]
		rec.SetU32("id", a.ID)
		rec.SetU16("bone", a.Bone)
		rec.SetU16("unknown", a.Unknown)
		rec.SetVec3("position", a.Position)
		w.setTrack(rec, "animate_attached", track.Encode(&a.AnimateAttached, track.Uint8, w.sink))
	})
	w.blob("attachment_lookup_table", i16sBytes(m.AttachmentLookup), len(m.AttachmentLookup))

	w.records("events", schema.Event, len(m.Events), func(i int, rec schema.Record) {
		ev := &m.Events[i]
		rec.SetRaw("identifier", utils.StringToBytesBuffer(ev.Identifier, 4, false))
		rec.SetU32("data", ev.Data)
		rec.SetU32("bone", ev.Bone)
		rec.SetVec3("position", ev.Position)
		w.setTrack(rec, "enabled", track.EncodeTimeline(&ev.Enabled, w.sink))
	})

	w.records("lights", schema.Light, len(m.Lights), func(i int, rec schema.Record) {
		l := &m.Lights[i]
		rec.SetU16("type", l.Type)
		rec.SetI16("bone", l.Bone)
		rec.SetVec3("position", l.Position)
		w.setTrack(rec, "ambient_color", track.Encode(&l.AmbientColor, track.Vec3, w.sink))
		w.setTrack(rec, "ambient_intensity", track.Encode(&l.AmbientIntensity, track.Float, w.sink))
		w.setTrack(rec, "diffuse_color", track.Encode(&l.DiffuseColor, track.Vec3, w.sink))
		w.setTrack(rec, "diffuse_intensity", track.Encode(&l.DiffuseIntensity, track.Float, w.sink))
		w.setTrack(rec, "attenuation_start", track.Encode(&l.AttenuationStart, track.Float, w.sink))
		w.setTrack(rec, "attenuation_end", track.Encode(&l.AttenuationEnd, track.Float, w.sink))
		w.setTrack(rec, "visibility", track.Encode(&l.Visibility, track.Uint8, w.sink))
	})

	w.records("cameras", schema.Camera, len(m.Cameras), func(i int, rec schema.Record) {
		cam := &m.Cameras[i]
		rec.SetU32("type", cam.Type)
		rec.SetF32("fov", cam.FOV)
		rec.SetF32("far_clip", cam.FarClip)
		rec.SetF32("near_clip", cam.NearClip)
		w.setTrack(rec, "positions", track.Encode(&cam.Positions, track.SplineVec3, w.sink))
		rec.SetVec3("position_base", cam.PositionBase)
		w.setTrack(rec, "target_position", track.Encode(&cam.TargetPosition, track.SplineVec3, w.sink))
		rec.SetVec3("target_position_base", cam.TargetPositionBase)
		w.setTrack(rec, "roll", track.Encode(&cam.Roll, track.SplineFloat, w.sink))
		if rec.Has("fov_track") {
			w.setTrack(rec, "fov_track", track.Encode(&cam.FOVTrack, track.SplineFloat, w.sink))
		}
	})
	w.blob("camera_lookup_table", i16sBytes(m.CameraLookup), len(m.CameraLookup))

	w.records("ribbon_emitters", schema.Ribbon, len(m.Ribbons), func(i int, rec schema.Record) {
		r := &m.Ribbons[i]
		rec.SetI32("ribbon_id", r.RibbonID)
		rec.SetU32("bone_index", r.BoneIndex)
		rec.SetVec3("position", r.Position)
		rec.SetArray("texture_indices", w.data(u16sBytes(r.TextureIndices), len(r.TextureIndices)))
		rec.SetArray("material_indices", w.data(u16sBytes(r.MaterialIndices), len(r.MaterialIndices)))
		w.setTrack(rec, "color", track.Encode(&r.Color, track.Vec3, w.sink))
		w.setTrack(rec, "alpha", track.Encode(&r.Alpha, track.Fixed, w.sink))
		w.setTrack(rec, "height_above", track.Encode(&r.HeightAbove, track.Float, w.sink))
		w.setTrack(rec, "height_below", track.Encode(&r.HeightBelow, track.Float, w.sink))
		rec.SetF32("edges_per_second", r.EdgesPerSecond)
		rec.SetF32("edge_lifetime", r.EdgeLifetime)
		rec.SetF32("gravity", r.Gravity)
		rec.SetU16("texture_rows", r.TextureRows)
		rec.SetU16("texture_cols", r.TextureCols)
		w.setTrack(rec, "tex_slot", track.Encode(&r.TexSlot, track.Uint16, w.sink))
		w.setTrack(rec, "visibility", track.Encode(&r.Visibility, track.Uint8, w.sink))
		rec.SetI16("priority_plane", r.PriorityPlane)
	})

	w.records("particle_emitters", schema.Particle, len(m.Particles), func(i int, rec schema.Record) {
		p := &m.Particles[i]
		rec.SetScalars(p.Params)
		rec.SetI32("particle_id", p.ParticleID)
		rec.SetU32("flags", p.Flags)
		rec.SetVec3("position", p.Position)
		rec.SetU16("bone", p.Bone)
		rec.SetU16("texture", p.Texture)
		rec.SetArray("geometry_model_filename", w.str(p.GeometryModel))
		rec.SetArray("recursion_model_filename", w.str(p.RecursionModel))
		for _, ft := range p.floatTracks() {
			w.setTrack(rec, ft.name, track.Encode(ft.t, track.Float, w.sink))
		}
		rec.SetRaw("color_track", track.EncodePart(p.ColorBlock, track.Vec3, w.e))
		rec.SetRaw("alpha_track", track.EncodePart(p.AlphaBlock, track.Fixed, w.e))
		rec.SetRaw("scale_track", track.EncodePart(p.ScaleBlock, track.Vec2, w.e))
		rec.SetRaw("head_cell_track", track.EncodePart(p.HeadCellBlock, track.Uint16, w.e))
		rec.SetRaw("tail_cell_track", track.EncodePart(p.TailCellBlock, track.Uint16, w.e))
		rec.SetArray("spline_points", w.data(vec3sBytes(p.SplinePoints), len(p.SplinePoints)))
		w.setTrack(rec, "enabled_in", track.Encode(&p.EnabledIn, track.Uint8, w.sink))
	})

	if m.GlobalFlags&GLOBAL_FLAG_USE_TEXTURE_COMBOS != 0 && len(m.TextureCombinerCombos) != 0 {
		off := w.e.Append(u16sBytes(m.TextureCombinerCombos), arrayAlign)
		w.e.SetRef(schema.M2_HEADER_SIZE, chunk.ArrayRef{Count: uint32(len(m.TextureCombinerCombos)), Offset: uint32(off)})
	}
}

func writeSequence(rec schema.Record, s *Sequence) {
	rec.SetU16("id", s.AnimationID)
	rec.SetU16("variation_index", s.VariationIndex)
	rec.SetU32("duration", s.Duration)
	rec.SetF32("move_speed", s.MoveSpeed)
	rec.SetU32("flags", s.Flags)
	rec.SetI16("frequency", s.Frequency)
	rec.SetU16("padding", s.Padding)
	rec.SetU32("replay_min", s.ReplayMin)
	rec.SetU32("replay_max", s.ReplayMax)
	rec.SetU16("blend_time_in", s.BlendTimeIn)
	rec.SetU16("blend_time_out", s.BlendTimeOut)
	rec.SetU32("blend_time", s.BlendTime)
	rec.SetVec3("bounds_min", s.Bounds.Min)
	rec.SetVec3("bounds_max", s.Bounds.Max)
	rec.SetF32("bounds_radius", s.Bounds.Radius)
	rec.SetI16("variation_next", s.VariationNext)
	rec.SetU16("alias_next", s.AliasNext)
}
