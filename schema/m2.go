package schema

import (
	"github.com/mogaika/wow_model_browser/config"
)

const (
	M2_HEADER_SIZE          = 0x130
	M2_HEADER_COMBINER_SIZE = M2_HEADER_SIZE + 8
)

var M2Header = NewStruct("M2Header",
	Raw("magic", 4),
	F("version", U32),
	F("name", Array),
	F("global_flags", U32),
	F("global_loops", Array),
	F("sequences", Array),
	F("sequence_lookups", Array),
	F("bones", Array),
	F("key_bone_lookup", Array),
	F("vertices", Array),
	F("num_skin_profiles", U32),
	F("colors", Array),
	F("textures", Array),
	F("texture_weights", Array),
	F("texture_transforms", Array),
	F("replaceable_texture_lookup", Array),
	F("materials", Array),
	F("bone_lookup_table", Array),
	F("texture_lookup_table", Array),
	F("tex_unit_lookup_table", Array),
	F("transparency_lookup_table", Array),
	F("texture_transforms_lookup_table", Array),
	F("bounding_box_min", Vec3),
	F("bounding_box_max", Vec3),
	F("bounding_sphere_radius", F32),
	F("collision_box_min", Vec3),
	F("collision_box_max", Vec3),
	F("collision_sphere_radius", F32),
	F("collision_indices", Array),
	F("collision_positions", Array),
	F("collision_face_normals", Array),
	F("attachments", Array),
	F("attachment_lookup_table", Array),
	F("events", Array),
	F("lights", Array),
	F("cameras", Array),
	F("camera_lookup_table", Array),
	F("ribbon_emitters", Array),
	F("particle_emitters", Array),
)

var Sequence = NewStruct("M2Sequence",
	F("id", U16),
	F("variation_index", U16),
	F("duration", U32),
	F("move_speed", F32),
	F("flags", U32),
	F("frequency", I16),
	F("padding", U16),
	F("replay_min", U32),
	F("replay_max", U32),
	F("blend_time_in", U16).Until(config.MoP),
	F("blend_time_out", U16).Until(config.MoP),
	F("blend_time", U32).Since(config.WoD),
	F("bounds_min", Vec3),
	F("bounds_max", Vec3),
	F("bounds_radius", F32),
	F("variation_next", I16),
	F("alias_next", U16),
)

var Bone = NewStruct("M2CompBone",
	F("key_bone_id", I32),
	F("flags", U32),
	F("parent_bone", I16),
	F("submesh_id", U16),
	F("bone_name_crc", U32),
	F("translation", Track),
	F("rotation", Track),
	F("scale", Track),
	F("pivot", Vec3),
)

var Vertex = NewStruct("M2Vertex",
	F("pos", Vec3),
	F("bone_weights", Color),
	F("bone_indices", Color),
	F("normal", Vec3),
	F("tex_coord_0", Vec2),
	F("tex_coord_1", Vec2),
)

var ColorBlock = NewStruct("M2Color",
	F("color", Track),
	F("alpha", Track),
)

var Texture = NewStruct("M2Texture",
	F("type", U32),
	F("flags", U32),
	F("filename", Array),
)

var TextureWeight = NewStruct("M2TextureWeight",
	F("weight", Track),
)

var TextureTransform = NewStruct("M2TextureTransform",
	F("translation", Track),
	F("rotation", Track),
	F("scaling", Track),
)

var Material = NewStruct("M2Material",
	F("flags", U16),
	F("blending_mode", U16),
)

var Attachment = NewStruct("M2Attachment",
	F("id", U32),
	F("bone", U16),
	F("unknown", U16),
	F("position", Vec3),
	F("animate_attached", Track),
)

var Event = NewStruct("M2Event",
	Raw("identifier", 4),
	F("data", U32),
	F("bone", U32),
	F("position", Vec3),
	F("enabled", TrackBase),
)

var Light = NewStruct("M2Light",
	F("type", U16),
	F("bone", I16),
	F("position", Vec3),
	F("ambient_color", Track),
	F("ambient_intensity", Track),
	F("diffuse_color", Track),
	F("diffuse_intensity", Track),
	F("attenuation_start", Track),
	F("attenuation_end", Track),
	F("visibility", Track),
)

var Camera = NewStruct("M2Camera",
	F("type", U32),
	F("fov", F32).Until(config.WotLK),
	F("far_clip", F32),
	F("near_clip", F32),
	F("positions", Track),
	F("position_base", Vec3),
	F("target_position", Track),
	F("target_position_base", Vec3),
	F("roll", Track),
	F("fov_track", Track).Since(config.Cata),
)

var Ribbon = NewStruct("M2Ribbon",
	F("ribbon_id", I32),
	F("bone_index", U32),
	F("position", Vec3),
	F("texture_indices", Array),
	F("material_indices", Array),
	F("color", Track),
	F("alpha", Track),
	F("height_above", Track),
	F("height_below", Track),
	F("edges_per_second", F32),
	F("edge_lifetime", F32),
	F("gravity", F32),
	F("texture_rows", U16),
	F("texture_cols", U16),
	F("tex_slot", Track),
	F("visibility", Track),
	F("priority_plane", I16),
	F("padding", U16),
)

var Particle = NewStruct("M2Particle",
	F("particle_id", I32),
	F("flags", U32),
	F("position", Vec3),
	F("bone", U16),
	F("texture", U16),
	F("geometry_model_filename", Array),
	F("recursion_model_filename", Array),
	F("blending_type", U8),
	F("emitter_type", U8),
	F("particle_color_index", U16),
	F("particle_type", U8),
	F("head_or_tail", U8),
	F("texture_tile_rotation", I16),
	F("texture_dimensions_rows", U16),
	F("texture_dimensions_columns", U16),
	F("emission_speed", Track),
	F("speed_variation", Track),
	F("vertical_range", Track),
	F("horizontal_range", Track),
	F("gravity", Track),
	F("lifespan", Track),
	F("lifespan_vary", F32),
	F("emission_rate", Track),
	F("emission_rate_vary", F32),
	F("emission_area_length", Track),
	F("emission_area_width", Track),
	F("z_source", Track),
	F("color_track", FBlock),
	F("alpha_track", FBlock),
	F("scale_track", FBlock),
	F("scale_vary", Vec2),
	F("head_cell_track", FBlock),
	F("tail_cell_track", FBlock),
	F("tail_length", F32),
	F("twinkle_speed", F32),
	F("twinkle_percent", F32),
	F("twinkle_scale_min", F32),
	F("twinkle_scale_max", F32),
	F("burst_multiplier", F32),
	F("drag", F32),
	F("base_spin", F32),
	F("base_spin_vary", F32),
	F("spin", F32),
	F("spin_vary", F32),
	F("tumble_min", Vec3),
	F("tumble_max", Vec3),
	F("wind_vector", Vec3),
	F("wind_time", F32),
	F("follow_speed_1", F32),
	F("follow_scale_1", F32),
	F("follow_speed_2", F32),
	F("follow_scale_2", F32),
	F("spline_points", Array),
	F("enabled_in", Track),
)

var SkinHeader = NewStruct("M2SkinProfile",
	Raw("magic", 4),
	F("vertices", Array),
	F("indices", Array),
	F("bones", Array),
	F("submeshes", Array),
	F("batches", Array),
	F("bone_count_max", U32),
)

var SubMesh = NewStruct("M2SkinSection",
	F("skin_section_id", U16),
	F("level", U16),
	F("vertex_start", U16),
	F("vertex_count", U16),
	F("index_start", U16),
	F("index_count", U16),
	F("bone_count", U16),
	F("bone_combo_index", U16),
	F("bone_influences", U16),
	F("center_bone_index", U16),
	F("center_position", Vec3),
	F("sort_center_position", Vec3),
	F("sort_radius", F32),
)

var TexUnit = NewStruct("M2Batch",
	F("flags", U8),
	F("priority_plane", I8),
	F("shader_id", U16),
	F("skin_section_index", U16),
	F("geoset_index", U16),
	F("color_index", I16),
	F("material_index", U16),
	F("material_layer", U16),
	F("texture_count", U16),
	F("texture_combo_index", U16),
	F("texture_coord_combo_index", U16),
	F("texture_weight_combo_index", U16),
	F("texture_transform_combo_index", U16),
)

// element sizes of plain arrays
const (
	SIZE_U16        = 2
	SIZE_U32        = 4
	SIZE_VEC3       = 12
	SIZE_LOOKUP     = 2
	SIZE_BONE_PROPS = 4
	SIZE_ANIM_FILE  = 8
)
