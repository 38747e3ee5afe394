package m2

import (
	"encoding/binary"
	"strconv"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/utils"
	"github.com/mogaika/wow_model_browser/validate"
)

type ReadOptions struct {
	// Path is the logical path of the model, sidecar names derive from it.
	Path string
	// Open loads sidecar files. Nil skips skins and external sequence keys.
	Open func(path string) ([]byte, error)
	// Version narrows the client when several share one header version (MoP/WoD, Legion+).
	Version config.Version
	Log     *utils.Logger
	Diag    *validate.Diagnostics
}

// ResolveVersion picks the client for a header version number, preferring hint
// when it writes the same number.
func ResolveVersion(n uint32, hint config.Version) (config.Version, error) {
	v, ok := config.VersionFromM2(n)
	if !ok {
		return config.VersionUnknown, errors.Wrapf(chunk.ErrUnknownVersion, "m2 version %d", n)
	}
	if hint.Valid() && hint.M2Version() == v.M2Version() {
		return hint, nil
	}
	return v, nil
}

type reader struct {
	m    *Model
	opts ReadOptions
	view *chunk.View
	hdr  schema.Record
	src  *track.Source

	anims map[int]*chunk.View
}

// Read decodes a model file and, when opts.Open is set, its skins and anim sidecars.
func Read(data []byte, opts ReadOptions) (*Model, error) {
	if len(data) < 8 {
		return nil, errors.Wrap(chunk.ErrTruncatedChunk, "m2 magic")
	}
	m := &Model{}
	blob := data
	switch string(data[:4]) {
	case MAGIC_MD20:
	case MAGIC_MD21:
		var err error
		if blob, err = m.readChunks(data, opts.Diag); err != nil {
			return nil, err
		}
	default:
		return nil, errors.Wrapf(chunk.ErrUnknownVersion, "magic %q", data[:4])
	}

	r := &reader{
		m:     m,
		opts:  opts,
		view:  chunk.NewView(opts.Path, blob),
		anims: make(map[int]*chunk.View),
	}
	if err := r.read(); err != nil {
		return nil, err
	}
	return m, nil
}

func readU16s(b []byte) []uint16 {
	r := make([]uint16, len(b)/2)
	for i := range r {
		r[i] = binary.LittleEndian.Uint16(b[i*2:])
	}
	return r
}

func readI16s(b []byte) []int16 {
	r := make([]int16, len(b)/2)
	for i := range r {
		r[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return r
}

func readU32s(b []byte) []uint32 {
	r := make([]uint32, len(b)/4)
	for i := range r {
		r[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return r
}

func readVec3s(b []byte) []mgl32.Vec3 {
	r := make([]mgl32.Vec3, len(b)/12)
	c := chunk.NewCursor(b)
	for i := range r {
		r[i] = c.Vec3()
	}
	return r
}

func (r *reader) array(name string, elemSize int) ([]byte, error) {
	return r.view.Array(name, r.hdr.Array(name), elemSize)
}

func (r *reader) records(name string, s *schema.Struct, fn func(i int, rec schema.Record) error) error {
	l := s.Select(r.m.Version)
	b, err := r.array(name, l.Size)
	if err != nil {
		return err
	}
	for i := 0; i < len(b)/l.Size; i++ {
		if err := fn(i, l.Element(b, i)); err != nil {
			return errors.Wrapf(err, "%s[%d]", name, i)
		}
	}
	return nil
}

func (r *reader) str(ref chunk.ArrayRef) (string, error) {
	b, err := r.view.Slice(ref, 1)
	if err != nil {
		return "", err
	}
	return utils.BytesToString(b), nil
}

func (r *reader) u16s(ref chunk.ArrayRef) ([]uint16, error) {
	b, err := r.view.Slice(ref, 2)
	if err != nil {
		return nil, err
	}
	return readU16s(b), nil
}

func decodeTrack[T any](r *reader, src *track.Source, what string, hdr []byte, codec track.Codec[T]) track.Track[T] {
	t, err := track.Decode(hdr, codec, src)
	if err != nil {
		r.opts.Diag.Warnf(validate.TrackDecode, "%s: %v", what, err)
		return track.Fallback[T](hdr, len(r.m.Sequences))
	}
	return t
}

func (r *reader) timeline(what string, hdr []byte) track.Track[struct{}] {
	t, err := track.DecodeTimeline(hdr, r.src)
	if err != nil {
		r.opts.Diag.Warnf(validate.TrackDecode, "%s: %v", what, err)
		return track.Fallback[struct{}](hdr, len(r.m.Sequences))
	}
	return t
}

// sidecar loads the anim file of an external sequence once.
func (r *reader) sidecar(seq int) (*chunk.View, bool) {
	s := &r.m.Sequences[seq]
	if !s.IsExternal() {
		return nil, false
	}
	if v, ok := r.anims[seq]; ok {
		return v, true
	}
	var view *chunk.View
	if r.opts.Open != nil {
		name := AnimPath(r.opts.Path, s.AnimationID, s.VariationIndex)
		if data, err := r.opts.Open(name); err != nil {
			r.opts.Diag.Warnf(validate.MissingSidecar, "sequence %d: %v", seq, err)
		} else if payload, err := UnwrapAnim(data); err != nil {
			r.opts.Diag.Warnf(validate.MissingSidecar, "sequence %d: %s: %v", seq, name, err)
		} else {
			r.opts.Log.Printf("anim sidecar %s: 0x%x bytes", name, len(payload))
			view = chunk.NewView(name, payload)
		}
	}
	r.anims[seq] = view
	return view, true
}

func (r *reader) read() error {
	m := r.m
	blob := r.view.Bytes()
	if len(blob) < schema.M2_HEADER_SIZE {
		return errors.Wrapf(chunk.ErrTruncatedChunk, "m2 header: 0x%x bytes", len(blob))
	}
	if string(blob[:4]) != MAGIC_MD20 {
		return errors.Wrapf(chunk.ErrUnknownVersion, "magic %q", blob[:4])
	}
	var err error
	if m.Version, err = ResolveVersion(binary.LittleEndian.Uint32(blob[4:]), r.opts.Version); err != nil {
		return err
	}
	r.hdr = schema.M2Header.Select(m.Version).Bind(blob[:schema.M2_HEADER_SIZE])
	r.opts.Log.Printf("m2 %s: version %v, 0x%x bytes", r.opts.Path, m.Version, len(blob))

	m.GlobalFlags = r.hdr.U32("global_flags")
	m.NumSkinProfiles = r.hdr.U32("num_skin_profiles")

	if nameBuf, err := r.array("name", 1); err != nil {
		return err
	} else {
		m.Name = utils.BytesToString(nameBuf)
	}

	if b, err := r.array("global_loops", 4); err != nil {
		return err
	} else {
		m.GlobalSequences = readU32s(b)
	}

	// a broken sequence table is fatal, tracks depend on it
	if err := r.records("sequences", schema.Sequence, func(i int, rec schema.Record) error {
		m.Sequences = append(m.Sequences, readSequence(rec))
		return nil
	}); err != nil {
		return errors.Wrap(err, "sequence table")
	}
	for i := range m.Sequences {
		s := &m.Sequences[i]
		if s.IsAlias() && int(s.AliasNext) >= len(m.Sequences) {
			return errors.Errorf("sequence table: sequence %d aliases %d of %d", i, s.AliasNext, len(m.Sequences))
		}
	}

	r.src = &track.Source{
		Main:            r.view,
		Sidecar:         r.sidecar,
		NumSequences:    len(m.Sequences),
		GlobalSequences: m.GlobalSequences,
	}

	lookups := []struct {
		name string
		dst  *[]int16
	}{
		{"sequence_lookups", &m.SequenceLookup},
		{"key_bone_lookup", &m.KeyBoneLookup},
		{"replaceable_texture_lookup", &m.ReplaceableTextureLookup},
		{"tex_unit_lookup_table", &m.TexUnitLookup},
		{"texture_transforms_lookup_table", &m.TextureTransformLookup},
		{"attachment_lookup_table", &m.AttachmentLookup},
		{"camera_lookup_table", &m.CameraLookup},
	}
	for _, l := range lookups {
		b, err := r.array(l.name, 2)
		if err != nil {
			return err
		}
		*l.dst = readI16s(b)
	}
	ulookups := []struct {
		name string
		dst  *[]uint16
	}{
		{"bone_lookup_table", &m.BoneLookup},
		{"texture_lookup_table", &m.TextureLookup},
		{"transparency_lookup_table", &m.TransparencyLookup},
	}
	for _, l := range ulookups {
		b, err := r.array(l.name, 2)
		if err != nil {
			return err
		}
		*l.dst = readU16s(b)
	}

	if err := r.readBones(); err != nil {
		return err
	}
	if err := r.readVertices(); err != nil {
		return err
	}
	if err := r.readMaterials(); err != nil {
		return err
	}
	if err := r.readAttachmentsAndEvents(); err != nil {
		return err
	}
	if err := r.readLightsAndCameras(); err != nil {
		return err
	}
	if err := r.readEmitters(); err != nil {
		return err
	}
	if err := r.readCollision(); err != nil {
		return err
	}

	if m.GlobalFlags&GLOBAL_FLAG_USE_TEXTURE_COMBOS != 0 {
		if len(blob) < schema.M2_HEADER_COMBINER_SIZE {
			return errors.Wrap(chunk.ErrTruncatedChunk, "texture combiner combos")
		}
		ref := chunk.ReadArrayRef(blob[schema.M2_HEADER_SIZE:])
		b, err := r.view.Array("texture_combiner_combos", ref, 2)
		if err != nil {
			return err
		}
		m.TextureCombinerCombos = readU16s(b)
	}

	if err := r.view.CheckOverlaps(); err != nil {
		return err
	}

	return r.readSkins()
}

func readSequence(rec schema.Record) Sequence {
	return Sequence{
		AnimationID:    rec.U16("id"),
		VariationIndex: rec.U16("variation_index"),
		Duration:       rec.U32("duration"),
		MoveSpeed:      rec.F32("move_speed"),
		Flags:          rec.U32("flags"),
		Frequency:      rec.I16("frequency"),
		Padding:        rec.U16("padding"),
		ReplayMin:      rec.U32("replay_min"),
		ReplayMax:      rec.U32("replay_max"),
		BlendTimeIn:    rec.U16("blend_time_in"),
		BlendTimeOut:   rec.U16("blend_time_out"),
		BlendTime:      rec.U32("blend_time"),
		Bounds: Bounds{
			Min:    rec.Vec3("bounds_min"),
			Max:    rec.Vec3("bounds_max"),
			Radius: rec.F32("bounds_radius"),
		},
		VariationNext: rec.I16("variation_next"),
		AliasNext:     rec.U16("alias_next"),
	}
}

func (r *reader) readBones() error {
	m := r.m
	return r.records("bones", schema.Bone, func(i int, rec schema.Record) error {
		what := func(t string) string { return "bone " + strconv.Itoa(i) + " " + t }
		m.Bones = append(m.Bones, Bone{
			KeyBoneID:   rec.I32("key_bone_id"),
			Flags:       rec.U32("flags"),
			Parent:      rec.I16("parent_bone"),
			SubmeshID:   rec.U16("submesh_id"),
			BoneNameCRC: rec.U32("bone_name_crc"),
			Translation: decodeTrack(r, r.src, what("translation"), rec.Raw("translation"), track.Vec3),
			Rotation:    decodeTrack(r, r.src, what("rotation"), rec.Raw("rotation"), track.Quat),
			Scale:       decodeTrack(r, r.src, what("scale"), rec.Raw("scale"), track.Vec3),
			Pivot:       rec.Vec3("pivot"),
		})
		return nil
	})
}

func (r *reader) readVertices() error {
	m := r.m
	return r.records("vertices", schema.Vertex, func(i int, rec schema.Record) error {
		m.Vertices = append(m.Vertices, Vertex{
			Position:    rec.Vec3("pos"),
			BoneWeights: rec.Color("bone_weights"),
			BoneIndices: rec.Color("bone_indices"),
			Normal:      rec.Vec3("normal"),
			TexCoords:   [2]mgl32.Vec2{rec.Vec2("tex_coord_0"), rec.Vec2("tex_coord_1")},
		})
		return nil
	})
}

func (r *reader) textureTransformSource() *track.Source {
	if r.m.GlobalFlags&GLOBAL_FLAG_TEXTURE_TRANSFORMS_BY_SEQ == 0 {
		return r.src
	}
	src := *r.src
	src.SlotSequence = make([]int, len(r.m.SequenceLookup))
	for i, seq := range r.m.SequenceLookup {
		src.SlotSequence[i] = int(seq)
	}
	return &src
}

func (r *reader) readMaterials() error {
	m := r.m
	if err := r.records("colors", schema.ColorBlock, func(i int, rec schema.Record) error {
		m.Colors = append(m.Colors, Color{
			Color: decodeTrack(r, r.src, "color "+strconv.Itoa(i), rec.Raw("color"), track.Vec3),
			Alpha: decodeTrack(r, r.src, "color alpha "+strconv.Itoa(i), rec.Raw("alpha"), track.Fixed),
		})
		return nil
	}); err != nil {
		return err
	}

	if err := r.records("textures", schema.Texture, func(i int, rec schema.Record) error {
		name, err := r.str(rec.Array("filename"))
		if err != nil {
			return err
		}
		m.Textures = append(m.Textures, Texture{Type: rec.U32("type"), Flags: rec.U32("flags"), Filename: name})
		return nil
	}); err != nil {
		return err
	}

	if err := r.records("texture_weights", schema.TextureWeight, func(i int, rec schema.Record) error {
		m.TextureWeights = append(m.TextureWeights, TextureWeight{
			Weight: decodeTrack(r, r.src, "texture weight "+strconv.Itoa(i), rec.Raw("weight"), track.Fixed),
		})
		return nil
	}); err != nil {
		return err
	}

	ttSrc := r.textureTransformSource()
	if err := r.records("texture_transforms", schema.TextureTransform, func(i int, rec schema.Record) error {
		m.TextureTransforms = append(m.TextureTransforms, TextureTransform{
			Translation: decodeTrack(r, ttSrc, "texture transform translation "+strconv.Itoa(i), rec.Raw("translation"), track.Vec3),
			Rotation:    decodeTrack(r, ttSrc, "texture transform rotation "+strconv.Itoa(i), rec.Raw("rotation"), track.FloatQuat),
			Scaling:     decodeTrack(r, ttSrc, "texture transform scaling "+strconv.Itoa(i), rec.Raw("scaling"), track.Vec3),
		})
		return nil
	}); err != nil {
		return err
	}

	return r.records("materials", schema.Material, func(i int, rec schema.Record) error {
		m.Materials = append(m.Materials, Material{
			Flags:     rec.U16("flags"),
			BlendMode: BlendMode(rec.U16("blending_mode")),
		})
		return nil
	})
}

func (r *reader) readAttachmentsAndEvents() error {
	m := r.m
	if err := r.records("attachments", schema.Attachment, func(i int, rec schema.Record) error {
		m.Attachments = append(m.Attachments, Attachment{
			ID:              rec.U32("id"),
			Bone:            rec.U16("bone"),
			Unknown:         rec.U16("unknown"),
			Position:        rec.Vec3("position"),
			AnimateAttached: decodeTrack(r, r.src, "attachment "+strconv.Itoa(i), rec.Raw("animate_attached"), track.Uint8),
		})
		return nil
	}); err != nil {
		return err
	}

	return r.records("events", schema.Event, func(i int, rec schema.Record) error {
		m.Events = append(m.Events, Event{
			Identifier: utils.BytesToString(rec.Raw("identifier")),
			Data:       rec.U32("data"),
			Bone:       rec.U32("bone"),
			Position:   rec.Vec3("position"),
			Enabled:    r.timeline("event "+strconv.Itoa(i), rec.Raw("enabled")),
		})
		return nil
	})
}

func (r *reader) readLightsAndCameras() error {
	m := r.m
	if err := r.records("lights", schema.Light, func(i int, rec schema.Record) error {
		w := "light " + strconv.Itoa(i) + " "
		m.Lights = append(m.Lights, Light{
			Type:             rec.U16("type"),
			Bone:             rec.I16("bone"),
			Position:         rec.Vec3("position"),
			AmbientColor:     decodeTrack(r, r.src, w+"ambient color", rec.Raw("ambient_color"), track.Vec3),
			AmbientIntensity: decodeTrack(r, r.src, w+"ambient intensity", rec.Raw("ambient_intensity"), track.Float),
			DiffuseColor:     decodeTrack(r, r.src, w+"diffuse color", rec.Raw("diffuse_color"), track.Vec3),
			DiffuseIntensity: decodeTrack(r, r.src, w+"diffuse intensity", rec.Raw("diffuse_intensity"), track.Float),
			AttenuationStart: decodeTrack(r, r.src, w+"attenuation start", rec.Raw("attenuation_start"), track.Float),
			AttenuationEnd:   decodeTrack(r, r.src, w+"attenuation end", rec.Raw("attenuation_end"), track.Float),
			Visibility:       decodeTrack(r, r.src, w+"visibility", rec.Raw("visibility"), track.Uint8),
		})
		return nil
	}); err != nil {
		return err
	}

	return r.records("cameras", schema.Camera, func(i int, rec schema.Record) error {
		w := "camera " + strconv.Itoa(i) + " "
		c := Camera{
			Type:               rec.U32("type"),
			FOV:                rec.F32("fov"),
			FarClip:            rec.F32("far_clip"),
			NearClip:           rec.F32("near_clip"),
			Positions:          decodeTrack(r, r.src, w+"positions", rec.Raw("positions"), track.SplineVec3),
			PositionBase:       rec.Vec3("position_base"),
			TargetPosition:     decodeTrack(r, r.src, w+"target", rec.Raw("target_position"), track.SplineVec3),
			TargetPositionBase: rec.Vec3("target_position_base"),
			Roll:               decodeTrack(r, r.src, w+"roll", rec.Raw("roll"), track.SplineFloat),
		}
		if rec.Has("fov_track") {
			c.FOVTrack = decodeTrack(r, r.src, w+"fov", rec.Raw("fov_track"), track.SplineFloat)
		}
		m.Cameras = append(m.Cameras, c)
		return nil
	})
}

func (r *reader) readEmitters() error {
	m := r.m
	if err := r.records("ribbon_emitters", schema.Ribbon, func(i int, rec schema.Record) error {
		w := "ribbon " + strconv.Itoa(i) + " "
		textures, err := r.u16s(rec.Array("texture_indices"))
		if err != nil {
			return err
		}
		materials, err := r.u16s(rec.Array("material_indices"))
		if err != nil {
			return err
		}
		m.Ribbons = append(m.Ribbons, Ribbon{
			RibbonID:        rec.I32("ribbon_id"),
			BoneIndex:       rec.U32("bone_index"),
			Position:        rec.Vec3("position"),
			TextureIndices:  textures,
			MaterialIndices: materials,
			Color:           decodeTrack(r, r.src, w+"color", rec.Raw("color"), track.Vec3),
			Alpha:           decodeTrack(r, r.src, w+"alpha", rec.Raw("alpha"), track.Fixed),
			HeightAbove:     decodeTrack(r, r.src, w+"height above", rec.Raw("height_above"), track.Float),
			HeightBelow:     decodeTrack(r, r.src, w+"height below", rec.Raw("height_below"), track.Float),
			EdgesPerSecond:  rec.F32("edges_per_second"),
			EdgeLifetime:    rec.F32("edge_lifetime"),
			Gravity:         rec.F32("gravity"),
			TextureRows:     rec.U16("texture_rows"),
			TextureCols:     rec.U16("texture_cols"),
			TexSlot:         decodeTrack(r, r.src, w+"tex slot", rec.Raw("tex_slot"), track.Uint16),
			Visibility:      decodeTrack(r, r.src, w+"visibility", rec.Raw("visibility"), track.Uint8),
			PriorityPlane:   rec.I16("priority_plane"),
		})
		return nil
	}); err != nil {
		return err
	}

	return r.records("particle_emitters", schema.Particle, func(i int, rec schema.Record) error {
		w := "particle " + strconv.Itoa(i) + " "
		p := Particle{
			ParticleID: rec.I32("particle_id"),
			Flags:      rec.U32("flags"),
			Position:   rec.Vec3("position"),
			Bone:       rec.U16("bone"),
			Texture:    rec.U16("texture"),
			Params:     rec.Scalars(particleModeledFields...),
		}
		var err error
		if p.GeometryModel, err = r.str(rec.Array("geometry_model_filename")); err != nil {
			return err
		}
		if p.RecursionModel, err = r.str(rec.Array("recursion_model_filename")); err != nil {
			return err
		}
		for _, ft := range p.floatTracks() {
			*ft.t = decodeTrack(r, r.src, w+ft.name, rec.Raw(ft.name), track.Float)
		}
		p.EnabledIn = decodeTrack(r, r.src, w+"enabled", rec.Raw("enabled_in"), track.Uint8)

		if p.ColorBlock, err = track.DecodePart(rec.Raw("color_track"), track.Vec3, r.view); err != nil {
			return err
		}
		if p.AlphaBlock, err = track.DecodePart(rec.Raw("alpha_track"), track.Fixed, r.view); err != nil {
			return err
		}
		if p.ScaleBlock, err = track.DecodePart(rec.Raw("scale_track"), track.Vec2, r.view); err != nil {
			return err
		}
		if p.HeadCellBlock, err = track.DecodePart(rec.Raw("head_cell_track"), track.Uint16, r.view); err != nil {
			return err
		}
		if p.TailCellBlock, err = track.DecodePart(rec.Raw("tail_cell_track"), track.Uint16, r.view); err != nil {
			return err
		}
		spline, err := r.view.Slice(rec.Array("spline_points"), 12)
		if err != nil {
			return err
		}
		p.SplinePoints = readVec3s(spline)
		m.Particles = append(m.Particles, p)
		return nil
	})
}

func (r *reader) readCollision() error {
	m := r.m
	c := &m.Collision
	m.Bounds = Bounds{
		Min:    r.hdr.Vec3("bounding_box_min"),
		Max:    r.hdr.Vec3("bounding_box_max"),
		Radius: r.hdr.F32("bounding_sphere_radius"),
	}
	c.Bounds = Bounds{
		Min:    r.hdr.Vec3("collision_box_min"),
		Max:    r.hdr.Vec3("collision_box_max"),
		Radius: r.hdr.F32("collision_sphere_radius"),
	}
	b, err := r.array("collision_indices", 2)
	if err != nil {
		return err
	}
	c.Indices = readU16s(b)
	if b, err = r.array("collision_positions", 12); err != nil {
		return err
	}
	c.Positions = readVec3s(b)
	if b, err = r.array("collision_face_normals", 12); err != nil {
		return err
	}
	c.Normals = readVec3s(b)
	return nil
}

func (r *reader) readSkins() error {
	if r.opts.Open == nil {
		return nil
	}
	m := r.m
	for i := 0; i < int(m.NumSkinProfiles); i++ {
		name := SkinPath(r.opts.Path, i)
		data, err := r.opts.Open(name)
		if err != nil {
			r.opts.Diag.Warnf(validate.MissingSidecar, "skin %d: %v", i, err)
			break
		}
		skin, err := ReadSkin(data, m.Version)
		if err != nil {
			return errors.Wrap(err, name)
		}
		skin.computeBounds(m.Vertices)
		m.Skins = append(m.Skins, *skin)
	}
	return nil
}
