package schema

var MOHD = NewStruct("MOHD",
	F("n_textures", U32),
	F("n_groups", U32),
	F("n_portals", U32),
	F("n_lights", U32),
	F("n_doodad_names", U32),
	F("n_doodad_defs", U32),
	F("n_doodad_sets", U32),
	F("amb_color", Color),
	F("wmo_id", U32),
	F("bounding_box_min", Vec3),
	F("bounding_box_max", Vec3),
	F("flags", U16),
	F("num_lod", U16),
)

var MOMT = NewStruct("MOMT",
	F("flags", U32),
	F("shader", U32),
	F("blend_mode", U32),
	F("texture_1", U32),
	F("sidn_color", Color),
	F("frame_sidn_color", Color),
	F("texture_2", U32),
	F("diff_color", Color),
	F("ground_type", U32),
	F("texture_3", U32),
	F("color_2", U32),
	F("flags_2", U32),
	Raw("runtime_data", 16),
)

var MOGI = NewStruct("MOGI",
	F("flags", U32),
	F("bounding_box_min", Vec3),
	F("bounding_box_max", Vec3),
	F("name_offset", I32),
)

var MOPT = NewStruct("MOPT",
	F("start_vertex", U16),
	F("count", U16),
	F("normal", Vec3),
	F("distance", F32),
)

var MOPR = NewStruct("MOPR",
	F("portal_index", U16),
	F("group_index", U16),
	F("side", I16),
	F("filler", U16),
)

var MOVB = NewStruct("MOVB",
	F("first_vertex", U16),
	F("count", U16),
)

var MOLT = NewStruct("MOLT",
	F("type", U8),
	F("use_atten", U8),
	Raw("pad", 2),
	F("color", Color),
	F("position", Vec3),
	F("intensity", F32),
	Raw("unknown", 16),
	F("atten_start", F32),
	F("atten_end", F32),
)

var MODS = NewStruct("MODS",
	Raw("name", 20),
	F("start_index", U32),
	F("count", U32),
	F("pad", U32),
)

var MODD = NewStruct("MODD",
	F("name_index_flags", U32),
	F("position", Vec3),
	F("orientation", Vec4),
	F("scale", F32),
	F("color", Color),
)

var MFOG = NewStruct("MFOG",
	F("flags", U32),
	F("position", Vec3),
	F("smaller_radius", F32),
	F("larger_radius", F32),
	F("fog_end", F32),
	F("fog_start_scalar", F32),
	F("color", Color),
	F("uw_fog_end", F32),
	F("uw_fog_start_scalar", F32),
	F("uw_color", Color),
)

var MCVP = NewStruct("MCVP",
	F("normal", Vec3),
	F("distance", F32),
)

var MOGP = NewStruct("MOGP",
	F("group_name", U32),
	F("descriptive_group_name", U32),
	F("flags", U32),
	F("bounding_box_min", Vec3),
	F("bounding_box_max", Vec3),
	F("portal_start", U16),
	F("portal_count", U16),
	F("trans_batch_count", U16),
	F("int_batch_count", U16),
	F("ext_batch_count", U16),
	F("padding", U16),
	Raw("fog_ids", 4),
	F("group_liquid", U32),
	F("unique_id", U32),
	F("flags_2", U32),
	F("unknown", U32),
)

var MOPY = NewStruct("MOPY",
	F("flags", U8),
	F("material_id", U8),
)

var MOBA = NewStruct("MOBA",
	Raw("bounding_box", 12),
	F("start_index", U32),
	F("count", U16),
	F("min_index", U16),
	F("max_index", U16),
	F("flags", U8),
	F("material_id", U8),
)

var MOBN = NewStruct("MOBN",
	F("flags", U16),
	F("neg_child", I16),
	F("pos_child", I16),
	F("n_faces", U16),
	F("face_start", U32),
	F("plane_dist", F32),
)

var MLIQ = NewStruct("MLIQ",
	F("x_verts", U32),
	F("y_verts", U32),
	F("x_tiles", U32),
	F("y_tiles", U32),
	F("base", Vec3),
	F("material_id", U16),
)

const (
	MOHD_SIZE      = 64
	MOGP_SIZE      = 0x44
	MLIQ_SIZE      = 0x1E
	MLIQ_VERT_SIZE = 8
)
