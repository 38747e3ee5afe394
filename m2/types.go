package m2

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/schema"
	"github.com/mogaika/wow_model_browser/track"
)

type Bounds struct {
	Min    mgl32.Vec3 `json:"min" yaml:"min,flow"`
	Max    mgl32.Vec3 `json:"max" yaml:"max,flow"`
	Radius float32    `json:"radius" yaml:"radius"`
}

type Sequence struct {
	AnimationID    uint16
	VariationIndex uint16
	Duration       uint32
	MoveSpeed      float32
	Flags          uint32
	Frequency      int16
	Padding        uint16
	ReplayMin      uint32
	ReplayMax      uint32
	BlendTimeIn    uint16
	BlendTimeOut   uint16
	BlendTime      uint32
	Bounds         Bounds
	VariationNext  int16
	AliasNext      uint16
}

func (s *Sequence) IsAlias() bool {
	return s.Flags&SEQUENCE_FLAG_ALIAS != 0
}

// IsPrimary reports keys embedded in the model file. Alias wins over the primary flag.
func (s *Sequence) IsPrimary() bool {
	return !s.IsAlias() && s.Flags&SEQUENCE_FLAG_PRIMARY != 0
}

// IsExternal reports keys stored in an .anim sidecar.
func (s *Sequence) IsExternal() bool {
	return !s.IsAlias() && s.Flags&SEQUENCE_FLAG_PRIMARY == 0
}

func (s *Sequence) String() string {
	return fmt.Sprintf("seq<%d.%d>(%dms,flags:0x%x)", s.AnimationID, s.VariationIndex, s.Duration, s.Flags)
}

type Bone struct {
	KeyBoneID   int32
	Flags       uint32
	Parent      int16
	SubmeshID   uint16
	BoneNameCRC uint32
	Translation track.Track[mgl32.Vec3]
	Rotation    track.Track[track.CompQuat]
	Scale       track.Track[mgl32.Vec3]
	Pivot       mgl32.Vec3
}

type Vertex struct {
	Position    mgl32.Vec3
	BoneWeights [4]uint8
	BoneIndices [4]uint8
	Normal      mgl32.Vec3
	TexCoords   [2]mgl32.Vec2
}

type Color struct {
	Color track.Track[mgl32.Vec3]
	Alpha track.Track[track.Fixed16]
}

type Texture struct {
	Type     uint32
	Flags    uint32
	Filename string
}

type TextureWeight struct {
	Weight track.Track[track.Fixed16]
}

type TextureTransform struct {
	Translation track.Track[mgl32.Vec3]
	Rotation    track.Track[mgl32.Quat]
	Scaling     track.Track[mgl32.Vec3]
}

type Material struct {
	Flags     uint16
	BlendMode BlendMode
}

type Attachment struct {
	ID              uint32
	Bone            uint16
	Unknown         uint16
	Position        mgl32.Vec3
	AnimateAttached track.Track[uint8]
}

type Event struct {
	Identifier string
	Data       uint32
	Bone       uint32
	Position   mgl32.Vec3
	Enabled    track.Track[struct{}]
}

type Light struct {
	Type             uint16
	Bone             int16
	Position         mgl32.Vec3
	AmbientColor     track.Track[mgl32.Vec3]
	AmbientIntensity track.Track[float32]
	DiffuseColor     track.Track[mgl32.Vec3]
	DiffuseIntensity track.Track[float32]
	AttenuationStart track.Track[float32]
	AttenuationEnd   track.Track[float32]
	Visibility       track.Track[uint8]
}

type Camera struct {
	Type               uint32
	FOV                float32
	FarClip            float32
	NearClip           float32
	Positions          track.Track[track.Spline[mgl32.Vec3]]
	PositionBase       mgl32.Vec3
	TargetPosition     track.Track[track.Spline[mgl32.Vec3]]
	TargetPositionBase mgl32.Vec3
	Roll               track.Track[track.Spline[float32]]
	FOVTrack           track.Track[track.Spline[float32]]
}

type Ribbon struct {
	RibbonID        int32
	BoneIndex       uint32
	Position        mgl32.Vec3
	TextureIndices  []uint16
	MaterialIndices []uint16
	Color           track.Track[mgl32.Vec3]
	Alpha           track.Track[track.Fixed16]
	HeightAbove     track.Track[float32]
	HeightBelow     track.Track[float32]
	EdgesPerSecond  float32
	EdgeLifetime    float32
	Gravity         float32
	TextureRows     uint16
	TextureCols     uint16
	TexSlot         track.Track[uint16]
	Visibility      track.Track[uint8]
	PriorityPlane   int16
}

type Particle struct {
	ParticleID     int32
	Flags          uint32
	Position       mgl32.Vec3
	Bone           uint16
	Texture        uint16
	GeometryModel  string
	RecursionModel string
	// scalar emitter parameters not modeled above, in record order
	Params schema.Values

	EmissionSpeed      track.Track[float32]
	SpeedVariation     track.Track[float32]
	VerticalRange      track.Track[float32]
	HorizontalRange    track.Track[float32]
	Gravity            track.Track[float32]
	Lifespan           track.Track[float32]
	EmissionRate       track.Track[float32]
	EmissionAreaLength track.Track[float32]
	EmissionAreaWidth  track.Track[float32]
	ZSource            track.Track[float32]
	EnabledIn          track.Track[uint8]

	ColorBlock    track.PartTrack[mgl32.Vec3]
	AlphaBlock    track.PartTrack[track.Fixed16]
	ScaleBlock    track.PartTrack[mgl32.Vec2]
	HeadCellBlock track.PartTrack[uint16]
	TailCellBlock track.PartTrack[uint16]

	SplinePoints []mgl32.Vec3
}

// floatTracks lists particle float tracks with their record field names.
func (p *Particle) floatTracks() []struct {
	name string
	t    *track.Track[float32]
} {
	return []struct {
		name string
		t    *track.Track[float32]
	}{
		{"emission_speed", &p.EmissionSpeed},
		{"speed_variation", &p.SpeedVariation},
		{"vertical_range", &p.VerticalRange},
		{"horizontal_range", &p.HorizontalRange},
		{"gravity", &p.Gravity},
		{"lifespan", &p.Lifespan},
		{"emission_rate", &p.EmissionRate},
		{"emission_area_length", &p.EmissionAreaLength},
		{"emission_area_width", &p.EmissionAreaWidth},
		{"z_source", &p.ZSource},
	}
}

var particleModeledFields = []string{"particle_id", "flags", "position", "bone", "texture"}

type Collision struct {
	Bounds    Bounds
	Indices   []uint16
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

func (c *Collision) Empty() bool {
	return len(c.Indices) == 0
}

type SubMesh struct {
	ID              uint16
	Level           uint16
	VertexStart     uint32
	VertexCount     uint32
	IndexStart      uint32
	IndexCount      uint32
	BoneCount       uint16
	BoneComboIndex  uint16
	BoneInfluences  uint16
	CenterBoneIndex uint16
	CenterPosition  mgl32.Vec3
	SortCenter      mgl32.Vec3
	SortRadius      float32
	// computed from the referenced vertices, not stored on disk
	Bounds Bounds `json:"-" yaml:"-"`
}

// MeshPart splits the skin section id into (mesh part group, mesh part id).
func (s *SubMesh) MeshPart() (group, id int) {
	return int(s.ID) / 100, int(s.ID) % 100
}

func MeshPartID(group, id int) uint16 {
	return uint16(group*100 + id)
}

type TexUnit struct {
	Flags                      uint8
	PriorityPlane              int8
	ShaderID                   uint16
	SkinSectionIndex           uint16
	GeosetIndex                uint16
	ColorIndex                 int16
	MaterialIndex              uint16
	MaterialLayer              uint16
	TextureCount               uint16
	TextureComboIndex          uint16
	TextureCoordComboIndex     uint16
	TextureWeightComboIndex    uint16
	TextureTransformComboIndex uint16
}

// Skin is one view (level of detail) of the model.
type Skin struct {
	Vertices     []uint16
	Indices      []uint16
	Bones        [][4]uint8
	SubMeshes    []SubMesh
	TexUnits     []TexUnit
	BoneCountMax uint32
}

type AnimFileID struct {
	AnimationID    uint16
	VariationIndex uint16
	FileID         uint32
}

type RawChunk struct {
	FourCC chunk.FourCC
	Data   []byte
}

type Model struct {
	Version     config.Version
	Name        string
	GlobalFlags uint32

	GlobalSequences []uint32
	Sequences       []Sequence
	SequenceLookup  []int16
	Bones           []Bone
	KeyBoneLookup   []int16
	Vertices        []Vertex
	NumSkinProfiles uint32

	Colors                   []Color
	Textures                 []Texture
	TextureWeights           []TextureWeight
	TextureTransforms        []TextureTransform
	ReplaceableTextureLookup []int16
	Materials                []Material
	BoneLookup               []uint16
	TextureLookup            []uint16
	TexUnitLookup            []int16
	TransparencyLookup       []uint16
	TextureTransformLookup   []int16

	Bounds    Bounds
	Collision Collision

	Attachments      []Attachment
	AttachmentLookup []int16
	Events           []Event
	Lights           []Light
	Cameras          []Camera
	CameraLookup     []int16
	Ribbons          []Ribbon
	Particles        []Particle

	TextureCombinerCombos []uint16

	Skins []Skin

	// chunked (Legion+) files
	SkinFileIDs    []uint32
	AnimFileIDs    []AnimFileID
	TextureFileIDs []uint32
	ExtraChunks    []RawChunk
	ChunkOrder     []chunk.FourCC
}

// SequenceDurations is indexed by sequence.
func (m *Model) SequenceDurations() []uint32 {
	result := make([]uint32, len(m.Sequences))
	for i := range m.Sequences {
		result[i] = m.Sequences[i].Duration
	}
	return result
}
