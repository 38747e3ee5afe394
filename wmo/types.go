// Package wmo reads and writes world map objects: a root file describing
// materials, portals, doodads and lights, plus one file per group with geometry.
package wmo

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/chunk"
)

// root header flags
const (
	ROOT_FLAG_DO_NOT_ATTENUATE_VERTICES = 0x1
	ROOT_FLAG_UNIFIED_RENDER_PATH       = 0x2
	ROOT_FLAG_LIQUID_TYPE_DBC           = 0x4
	ROOT_FLAG_DO_NOT_FIX_VERTEX_ALPHA   = 0x8
)

// group flags
const (
	GROUP_FLAG_HAS_BSP          = 0x1
	GROUP_FLAG_HAS_LIGHTMAP     = 0x2
	GROUP_FLAG_HAS_VERTEX_COLOR = 0x4
	GROUP_FLAG_EXTERIOR         = 0x8
	GROUP_FLAG_EXTERIOR_LIT     = 0x40
	GROUP_FLAG_UNREACHABLE      = 0x80
	GROUP_FLAG_HAS_LIGHTS       = 0x200
	GROUP_FLAG_HAS_DOODADS      = 0x800
	GROUP_FLAG_HAS_WATER        = 0x1000
	GROUP_FLAG_INTERIOR         = 0x2000
	GROUP_FLAG_ALWAYS_DRAW      = 0x10000
	GROUP_FLAG_SHOW_SKYBOX      = 0x40000
	GROUP_FLAG_TWO_VERTEX_COLOR = 0x1000000
	GROUP_FLAG_TWO_UV           = 0x2000000
)

// triangle flags
const (
	POLY_FLAG_NO_CAM_COLLIDE = 0x2
	POLY_FLAG_DETAIL         = 0x4
	POLY_FLAG_COLLISION      = 0x8
	POLY_FLAG_HINT           = 0x10
	POLY_FLAG_RENDER         = 0x20
	POLY_FLAG_COLLIDE_HIT    = 0x80
)

// POLY_MATERIAL_NONE marks collision only triangles.
const POLY_MATERIAL_NONE = 0xff

var (
	fourccMVER = chunk.MakeFourCC("MVER")
	fourccMOHD = chunk.MakeFourCC("MOHD")
	fourccMOTX = chunk.MakeFourCC("MOTX")
	fourccMOMT = chunk.MakeFourCC("MOMT")
	fourccMOGN = chunk.MakeFourCC("MOGN")
	fourccMOGI = chunk.MakeFourCC("MOGI")
	fourccMOSB = chunk.MakeFourCC("MOSB")
	fourccMOPV = chunk.MakeFourCC("MOPV")
	fourccMOPT = chunk.MakeFourCC("MOPT")
	fourccMOPR = chunk.MakeFourCC("MOPR")
	fourccMOVV = chunk.MakeFourCC("MOVV")
	fourccMOVB = chunk.MakeFourCC("MOVB")
	fourccMOLT = chunk.MakeFourCC("MOLT")
	fourccMODS = chunk.MakeFourCC("MODS")
	fourccMODN = chunk.MakeFourCC("MODN")
	fourccMODD = chunk.MakeFourCC("MODD")
	fourccMFOG = chunk.MakeFourCC("MFOG")
	fourccMCVP = chunk.MakeFourCC("MCVP")

	fourccMOGP = chunk.MakeFourCC("MOGP")
	fourccMOPY = chunk.MakeFourCC("MOPY")
	fourccMOVI = chunk.MakeFourCC("MOVI")
	fourccMOVT = chunk.MakeFourCC("MOVT")
	fourccMONR = chunk.MakeFourCC("MONR")
	fourccMOTV = chunk.MakeFourCC("MOTV")
	fourccMOCV = chunk.MakeFourCC("MOCV")
	fourccMOBA = chunk.MakeFourCC("MOBA")
	fourccMOBN = chunk.MakeFourCC("MOBN")
	fourccMOBR = chunk.MakeFourCC("MOBR")
	fourccMODR = chunk.MakeFourCC("MODR")
	fourccMOLR = chunk.MakeFourCC("MOLR")
	fourccMLIQ = chunk.MakeFourCC("MLIQ")
)

// Color is stored as BGRA.
type Color [4]uint8

type Box struct {
	Min mgl32.Vec3 `json:"min"`
	Max mgl32.Vec3 `json:"max"`
}

// Plane holds points p with Normal·p = Distance.
type Plane struct {
	Normal   mgl32.Vec3 `json:"normal"`
	Distance float32    `json:"distance"`
}

func (p Plane) SignedDistance(v mgl32.Vec3) float32 {
	return p.Normal.Dot(v) - p.Distance
}

type Material struct {
	Flags          uint32 `json:"flags"`
	Shader         uint32 `json:"shader"`
	BlendMode      uint32 `json:"blend_mode"`
	Texture1       string `json:"texture_1"`
	SidnColor      Color  `json:"sidn_color"`
	FrameSidnColor Color  `json:"frame_sidn_color"`
	Texture2       string `json:"texture_2"`
	DiffColor      Color  `json:"diff_color"`
	GroundType     uint32 `json:"ground_type"`
	Texture3       string `json:"texture_3"`
	Color2         uint32 `json:"color_2"`
	Flags2         uint32 `json:"flags_2"`
}

type GroupInfo struct {
	Flags  uint32 `json:"flags"`
	Bounds Box    `json:"bounds"`
	Name   string `json:"name"`
}

type Portal struct {
	Vertices []mgl32.Vec3 `json:"vertices"`
	Plane    Plane        `json:"plane"`
}

// PortalRef links a group to the group on the other side of a portal.
// Side is +1 when the owning group lies on the positive side of the portal plane.
type PortalRef struct {
	Portal uint16 `json:"portal"`
	Group  uint16 `json:"group"`
	Side   int16  `json:"side"`
}

type Light struct {
	Type       uint8      `json:"type"`
	UseAtten   bool       `json:"use_atten"`
	Color      Color      `json:"color"`
	Position   mgl32.Vec3 `json:"position"`
	Intensity  float32    `json:"intensity"`
	Unknown    [16]byte   `json:"-"`
	AttenStart float32    `json:"atten_start"`
	AttenEnd   float32    `json:"atten_end"`
}

type DoodadSet struct {
	Name  string `json:"name"`
	Start uint32 `json:"start"`
	Count uint32 `json:"count"`
}

type DoodadDef struct {
	Path        string     `json:"path"`
	Flags       uint8      `json:"flags"`
	Position    mgl32.Vec3 `json:"position"`
	Orientation mgl32.Quat `json:"orientation"`
	Scale       float32    `json:"scale"`
	Color       Color      `json:"color"`
}

type Fog struct {
	Flags           uint32     `json:"flags"`
	Position        mgl32.Vec3 `json:"position"`
	SmallerRadius   float32    `json:"smaller_radius"`
	LargerRadius    float32    `json:"larger_radius"`
	End             float32    `json:"end"`
	StartScalar     float32    `json:"start_scalar"`
	Color           Color      `json:"color"`
	UnderwaterEnd   float32    `json:"underwater_end"`
	UnderwaterStart float32    `json:"underwater_start"`
	UnderwaterColor Color      `json:"underwater_color"`
}

// VisibleBlock is a MOVV vertex run referenced from MOVB.
type VisibleBlock struct {
	Vertices []mgl32.Vec3 `json:"vertices"`
}

type Root struct {
	AmbientColor Color  `json:"ambient_color"`
	WMOID        uint32 `json:"wmo_id"`
	Bounds       Box    `json:"bounds"`
	Flags        uint16 `json:"flags"`
	NumLod       uint16 `json:"num_lod"`

	Materials     []Material     `json:"materials"`
	Groups        []GroupInfo    `json:"groups"`
	Skybox        string         `json:"skybox"`
	Portals       []Portal       `json:"portals"`
	PortalRefs    []PortalRef    `json:"portal_refs"`
	VisibleBlocks []VisibleBlock `json:"visible_blocks"`
	Lights        []Light        `json:"lights"`
	DoodadSets    []DoodadSet    `json:"doodad_sets"`
	Doodads       []DoodadDef    `json:"doodads"`
	Fogs          []Fog          `json:"fogs"`
	ConvexVolume  []Plane        `json:"convex_volume"`
}

type Batch struct {
	Box        [6]int16 `json:"box"`
	StartIndex uint32   `json:"start_index"`
	Count      uint16   `json:"count"`
	MinIndex   uint16   `json:"min_index"`
	MaxIndex   uint16   `json:"max_index"`
	Flags      uint8    `json:"flags"`
	Material   uint8    `json:"material"`
}

// bsp node flags
const (
	BSP_AXIS_X    = 0x0
	BSP_AXIS_Y    = 0x1
	BSP_AXIS_Z    = 0x2
	BSP_AXIS_MASK = 0x3
	BSP_LEAF      = 0x4
)

const BSP_NO_CHILD = -1

type BSPNode struct {
	Flags     uint16  `json:"flags"`
	NegChild  int16   `json:"neg_child"`
	PosChild  int16   `json:"pos_child"`
	NumFaces  uint16  `json:"num_faces"`
	FaceStart uint32  `json:"face_start"`
	PlaneDist float32 `json:"plane_dist"`
}

func (n *BSPNode) Leaf() bool {
	return n.Flags&BSP_LEAF != 0
}

type LiquidVertex struct {
	Data   [4]byte `json:"data"`
	Height float32 `json:"height"`
}

type Liquid struct {
	XVerts   uint32         `json:"x_verts"`
	YVerts   uint32         `json:"y_verts"`
	XTiles   uint32         `json:"x_tiles"`
	YTiles   uint32         `json:"y_tiles"`
	Base     mgl32.Vec3     `json:"base"`
	Material uint16         `json:"material"`
	Vertices []LiquidVertex `json:"vertices"`
	Tiles    []uint8        `json:"tiles"`
}

type Group struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Flags           uint32   `json:"flags"`
	Bounds          Box      `json:"bounds"`
	PortalStart     uint16   `json:"portal_start"`
	PortalCount     uint16   `json:"portal_count"`
	TransBatchCount uint16   `json:"trans_batch_count"`
	IntBatchCount   uint16   `json:"int_batch_count"`
	ExtBatchCount   uint16   `json:"ext_batch_count"`
	FogIDs          [4]uint8 `json:"fog_ids"`
	GroupLiquid     uint32   `json:"group_liquid"`
	UniqueID        uint32   `json:"unique_id"`
	Flags2          uint32   `json:"flags_2"`

	PolyFlags     []uint8        `json:"poly_flags"`
	PolyMaterials []uint8        `json:"poly_materials"`
	Indices       []uint16       `json:"indices"`
	Positions     []mgl32.Vec3   `json:"positions"`
	Normals       []mgl32.Vec3   `json:"normals"`
	UVs           [][]mgl32.Vec2 `json:"uvs"`
	Colors        []Color        `json:"colors,omitempty"`
	Batches       []Batch        `json:"batches"`
	BSPNodes      []BSPNode      `json:"bsp_nodes"`
	BSPFaces      []uint16       `json:"bsp_faces"`
	DoodadRefs    []uint16       `json:"doodad_refs,omitempty"`
	LightRefs     []uint16       `json:"light_refs,omitempty"`
	Liquid        *Liquid        `json:"liquid,omitempty"`
}

func (g *Group) Triangles() int {
	return len(g.Indices) / 3
}

func (g *Group) Indoor() bool {
	return g.Flags&GROUP_FLAG_INTERIOR != 0
}

// WMO is a root with its group files, indexed like Root.Groups.
type WMO struct {
	Root   Root     `json:"root"`
	Groups []*Group `json:"groups"`
}
