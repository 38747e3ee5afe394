package m2

import (
	"bytes"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/chunk"
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/track"
	"github.com/mogaika/wow_model_browser/validate"
	"github.com/mogaika/wow_model_browser/vfs"
)

const testPath = "creature/test/test.m2"

func testModel(v config.Version) *Model {
	m := &Model{
		Version:         v,
		Name:            "test",
		GlobalSequences: []uint32{1000},
		Sequences: []Sequence{
			{AnimationID: 0, Duration: 500, Flags: SEQUENCE_FLAG_PRIMARY, BlendTimeIn: 150, BlendTimeOut: 150, BlendTime: 150, VariationNext: -1},
			{AnimationID: 4, Duration: 1000, VariationNext: -1},
			{AnimationID: 5, Flags: SEQUENCE_FLAG_ALIAS, AliasNext: 0, VariationNext: -1},
		},
		Vertices: []Vertex{
			{Position: mgl32.Vec3{0, 0, 0}, BoneWeights: [4]uint8{255}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{1, 0, 0}, BoneWeights: [4]uint8{200, 55}, BoneIndices: [4]uint8{0, 1}, Normal: mgl32.Vec3{0, 0, 1}},
			{Position: mgl32.Vec3{0, 1, 0}, BoneWeights: [4]uint8{255}, BoneIndices: [4]uint8{1}, Normal: mgl32.Vec3{0, 0, 1}},
		},
		Textures:  []Texture{{Type: TEXTURE_TYPE_HARDCODED, Filename: `creature\test\test.blp`}},
		Materials: []Material{{BlendMode: BlendOpaque}},
		Events:    []Event{{Identifier: "$CSD", Bone: 1, Enabled: track.NewPerSequence[struct{}](track.None, 3)}},
		Skins: []Skin{{
			Vertices:  []uint16{0, 1, 2},
			Indices:   []uint16{0, 1, 2},
			Bones:     [][4]uint8{{0, 1, 0, 0}},
			SubMeshes: []SubMesh{{VertexCount: 3, IndexCount: 3, BoneCount: 2, BoneInfluences: 2}},
			TexUnits:  []TexUnit{{TextureCount: 1, ColorIndex: -1}},
		}},
	}

	root := Bone{KeyBoneID: -1, Parent: -1}
	root.Translation = track.NewPerSequence[mgl32.Vec3](track.Linear, 3)
	root.Translation.Set(0, []uint32{0, 500}, []mgl32.Vec3{{0, 0, 0}, {0, 0, 1}})
	root.Translation.Set(1, []uint32{0, 1000}, []mgl32.Vec3{{1, 0, 0}, {2, 0, 0}})
	root.Rotation = track.NewPerSequence[track.CompQuat](track.Linear, 3)
	root.Rotation.Set(1, []uint32{0}, []track.CompQuat{track.CompressQuat(mgl32.QuatRotate(mgl32.DegToRad(90), mgl32.Vec3{0, 0, 1}))})
	root.Scale = track.NewPerSequence[mgl32.Vec3](track.None, 3)

	child := Bone{KeyBoneID: 0, Parent: 0, Pivot: mgl32.Vec3{0, 0, 1}}
	child.Translation = track.NewPerSequence[mgl32.Vec3](track.None, 3)
	child.Rotation = track.NewGlobal[track.CompQuat](track.Linear, 0)
	child.Rotation.Set(0, []uint32{0, 1000}, []track.CompQuat{track.CompQuatIdent, track.CompQuatIdent})
	child.Scale = track.NewPerSequence[mgl32.Vec3](track.None, 3)
	m.Bones = []Bone{root, child}

	m.Colors = []Color{{
		Color: track.Constant(mgl32.Vec3{1, 1, 1}, 3),
		Alpha: track.Constant(track.FixedFromFloat(1), 3),
	}}
	m.TextureLookup = []uint16{0}
	m.TransparencyLookup = []uint16{0}
	m.TexUnitLookup = []int16{0}
	m.BoneLookup = []uint16{0, 1}
	m.Normalize(nil)
	return m
}

func open(files *Files, path string) func(string) ([]byte, error) {
	src := vfs.NewMemorySource()
	for i, s := range files.Skins {
		src.Add(SkinPath(path, i), s)
	}
	for _, a := range files.Anims {
		src.Add(AnimPath(path, a.AnimationID, a.VariationIndex), a.Data)
	}
	return src.Read
}

func writeRead(t *testing.T, m *Model, diag *validate.Diagnostics) (*Files, *Model) {
	t.Helper()
	files, err := Write(m)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := Read(files.Model, ReadOptions{Path: testPath, Open: open(files, testPath), Version: m.Version, Diag: diag})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return files, back
}

func sameFiles(t *testing.T, a, b *Files) {
	t.Helper()
	if !bytes.Equal(a.Model, b.Model) {
		t.Errorf("model bytes differ: %d vs %d bytes", len(a.Model), len(b.Model))
	}
	if len(a.Skins) != len(b.Skins) {
		t.Fatalf("%d skins vs %d", len(a.Skins), len(b.Skins))
	}
	for i := range a.Skins {
		if !bytes.Equal(a.Skins[i], b.Skins[i]) {
			t.Errorf("skin %d bytes differ", i)
		}
	}
	if len(a.Anims) != len(b.Anims) {
		t.Fatalf("%d anims vs %d", len(a.Anims), len(b.Anims))
	}
	for i := range a.Anims {
		if !bytes.Equal(a.Anims[i].Data, b.Anims[i].Data) {
			t.Errorf("anim %d bytes differ", i)
		}
	}
}

func TestRoundTripStable(t *testing.T) {
	for _, v := range []config.Version{config.WotLK, config.Cata, config.MoP, config.Legion} {
		t.Run(v.String(), func(t *testing.T) {
			diag := &validate.Diagnostics{}
			first, back := writeRead(t, testModel(v), diag)
			second, err := Write(back)
			if err != nil {
				t.Fatal(err)
			}
			sameFiles(t, first, second)
			if diag.Warnings() != 0 {
				t.Errorf("unexpected warnings: %v", diag.Entries)
			}
			if back.Version != v {
				t.Errorf("version %v, want %v", back.Version, v)
			}
		})
	}
}

func TestRoundTripValues(t *testing.T) {
	m := testModel(config.WotLK)
	files, back := writeRead(t, m, nil)

	if len(files.Anims) != 1 || files.Anims[0].AnimationID != 4 {
		t.Fatalf("anims %+v", files.Anims)
	}
	if back.Name != "test" || back.Textures[0].Filename != `creature\test\test.blp` {
		t.Errorf("strings: %q %q", back.Name, back.Textures[0].Filename)
	}
	if back.Sequences[0].BlendTimeIn != 150 || back.Sequences[0].BlendTime != 0 {
		t.Errorf("blend %+v", back.Sequences[0])
	}

	k := back.Bones[0].Translation.Keys(1)
	if len(k.Values) != 2 || k.Values[1] != (mgl32.Vec3{2, 0, 0}) {
		t.Errorf("external keys %+v", k)
	}
	q := back.Bones[0].Rotation.Keys(1).Values[0]
	if q != (track.CompQuat{0, 0, 23170, 23170}) {
		t.Errorf("rotation %v", q)
	}
	if !back.Bones[1].Rotation.IsGlobal() || back.Bones[1].Rotation.GlobalSequence() != 0 {
		t.Errorf("global rotation lost")
	}
	if len(back.Skins) != 1 || back.Skins[0].SubMeshes[0].Bounds.Max != (mgl32.Vec3{1, 1, 0}) {
		t.Errorf("skin %+v", back.Skins)
	}
	if back.Events[0].Identifier != "$CSD" {
		t.Errorf("event %q", back.Events[0].Identifier)
	}
}

func TestAliasChain(t *testing.T) {
	m := testModel(config.WotLK)
	_, back := writeRead(t, m, nil)

	b := &back.Sequences[2]
	if b.Flags&SEQUENCE_FLAG_ALIAS == 0 {
		t.Fatalf("alias flag lost: %v", b)
	}
	if got, err := back.ResolveAlias(2); err != nil || got != 0 {
		t.Errorf("ResolveAlias(2)=%d,%v; expected 0", got, err)
	}
	if back.Sequences[0].Duration != 500 {
		t.Errorf("alias target duration %d", back.Sequences[0].Duration)
	}

	// alias wins over the primary flag
	b.Flags |= SEQUENCE_FLAG_PRIMARY
	if b.IsPrimary() || b.IsExternal() {
		t.Errorf("alias treated as keyed sequence")
	}

	loop := &Model{Sequences: []Sequence{
		{Flags: SEQUENCE_FLAG_ALIAS, AliasNext: 1},
		{Flags: SEQUENCE_FLAG_ALIAS, AliasNext: 0},
	}}
	if _, err := loop.ResolveAlias(0); err == nil {
		t.Errorf("alias loop resolved")
	}
	diag := &validate.Diagnostics{}
	loop.Check(diag)
	if diag.Count(validate.UnresolvedAlias) != 2 {
		t.Errorf("expected 2 unresolved aliases, got %v", diag.Entries)
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	m := testModel(config.WoD)
	m.Vertices[0].BoneWeights = [4]uint8{100, 100}
	m.Vertices[0].BoneIndices = [4]uint8{0, 1}
	diag := &validate.Diagnostics{}
	m.Normalize(diag)
	if !diag.Has(validate.WeightNormalized) {
		t.Errorf("weights not reported")
	}
	if m.Sequences[0].BlendTime != 150 || m.Sequences[0].BlendTimeIn != 0 {
		t.Errorf("blend not canonical: %+v", m.Sequences[0])
	}
	first, err := Write(m)
	if err != nil {
		t.Fatal(err)
	}
	m.Normalize(nil)
	second, err := Write(m)
	if err != nil {
		t.Fatal(err)
	}
	sameFiles(t, first, second)
}

var influenceTests = []struct {
	in       []Influence
	weights  [4]uint8
	bones    [4]uint8
	overflow bool
}{
	{nil, [4]uint8{255}, [4]uint8{}, false},
	{[]Influence{{3, 0.5}, {1, 0.5}}, [4]uint8{128, 127}, [4]uint8{1, 3}, false},
	{[]Influence{{2, 1}, {5, 0}}, [4]uint8{255}, [4]uint8{2}, false},
	{[]Influence{{1, 1}, {2, 1}, {3, 1}}, [4]uint8{85, 85, 85}, [4]uint8{1, 2, 3}, false},
	{[]Influence{{1, 0.125}, {2, 0.25}, {3, 0.5}, {4, 0.125}, {5, 0.0625}}, [4]uint8{127, 64, 32, 32}, [4]uint8{3, 2, 1, 4}, true},
}

func TestNormalizeInfluences(t *testing.T) {
	for _, test := range influenceTests {
		w, b, o := NormalizeInfluences(test.in)
		if w != test.weights || b != test.bones || o != test.overflow {
			t.Errorf("NormalizeInfluences(%v)=%v,%v,%v; expected %v,%v,%v", test.in, w, b, o, test.weights, test.bones, test.overflow)
		}
		sum := 0
		for i := range w {
			sum += int(w[i])
			if w[i] == 0 && b[i] != 0 {
				t.Errorf("zero weight on bone %d", b[i])
			}
		}
		if sum != 255 {
			t.Errorf("weights %v sum to %d", w, sum)
		}
	}
}

func TestSidecarPaths(t *testing.T) {
	if p := SkinPath(testPath, 1); p != "creature/test/test01.skin" {
		t.Errorf("skin path %q", p)
	}
	if p := AnimPath(testPath, 4, 0); p != "creature/test/test_0004_00.anim" {
		t.Errorf("anim path %q", p)
	}
}

func TestMissingSidecar(t *testing.T) {
	m := testModel(config.WotLK)
	files, err := Write(m)
	if err != nil {
		t.Fatal(err)
	}
	src := vfs.NewMemorySource()
	src.Add(SkinPath(testPath, 0), files.Skins[0])
	diag := &validate.Diagnostics{}
	back, err := Read(files.Model, ReadOptions{Path: testPath, Open: src.Read, Diag: diag})
	if err != nil {
		t.Fatal(err)
	}
	if diag.Count(validate.MissingSidecar) != 1 {
		t.Errorf("expected one missing sidecar, got %v", diag.Entries)
	}
	if k := back.Bones[0].Translation.Keys(1); k.Len() != 0 {
		t.Errorf("keys from missing sidecar: %+v", k)
	}
	if k := back.Bones[0].Translation.Keys(0); k.Len() != 2 {
		t.Errorf("primary keys lost: %+v", k)
	}
}

func TestLegionChunks(t *testing.T) {
	m := testModel(config.Legion)
	m.SkinFileIDs = []uint32{1001}
	m.TextureFileIDs = []uint32{2001}
	m.ChunkOrder = []chunk.FourCC{fourccMD21, chunk.MakeFourCC("PFID"), fourccSFID, fourccTXID}
	m.ExtraChunks = []RawChunk{{FourCC: chunk.MakeFourCC("PFID"), Data: []byte{1, 2, 3, 4}}}

	diag := &validate.Diagnostics{}
	files, back := writeRead(t, m, diag)
	if string(files.Model[:4]) != MAGIC_MD21 {
		t.Fatalf("magic %q", files.Model[:4])
	}
	if string(files.Anims[0].Data[:4]) != "AFM2" {
		t.Errorf("anim not wrapped")
	}
	if !diag.Has(validate.UnknownChunk) {
		t.Errorf("unknown chunk not reported")
	}
	if len(back.ExtraChunks) != 1 || !bytes.Equal(back.ExtraChunks[0].Data, []byte{1, 2, 3, 4}) {
		t.Errorf("extra chunks %+v", back.ExtraChunks)
	}
	if len(back.SkinFileIDs) != 1 || back.SkinFileIDs[0] != 1001 || back.TextureFileIDs[0] != 2001 {
		t.Errorf("file ids %v %v", back.SkinFileIDs, back.TextureFileIDs)
	}
	second, err := Write(back)
	if err != nil {
		t.Fatal(err)
	}
	sameFiles(t, files, second)
}

func TestReadErrors(t *testing.T) {
	if _, err := Read([]byte("MD20"), ReadOptions{}); err == nil {
		t.Errorf("short file accepted")
	}
	files, err := Write(testModel(config.WotLK))
	if err != nil {
		t.Fatal(err)
	}
	bad := append([]byte{}, files.Model...)
	bad[4] = 0x10 // 264 -> 16
	bad[5] = 0
	if _, err := Read(bad, ReadOptions{}); err == nil {
		t.Errorf("unknown version accepted")
	}

	bad = append([]byte{}, files.Model...)
	// sequences array reference points past the end
	off := 0x1C
	bad[off+4] = 0xff
	bad[off+5] = 0xff
	bad[off+6] = 0xff
	if _, err := Read(bad, ReadOptions{}); err == nil {
		t.Errorf("broken sequence table accepted")
	}
}

func TestWriteRejectsWideSubMesh(t *testing.T) {
	for _, tc := range []SubMesh{
		{VertexCount: 3, IndexCount: 0x10000},
		{VertexStart: 0xfff0, VertexCount: 0x20, IndexCount: 3},
	} {
		m := testModel(config.WotLK)
		m.Skins[0].SubMeshes[0] = tc
		if _, err := Write(m); err == nil {
			t.Errorf("%+v written", tc)
		}
	}
}

func TestLookups(t *testing.T) {
	m := testModel(config.WotLK)
	if len(m.SequenceLookup) != 6 || m.SequenceLookup[4] != 1 || m.SequenceLookup[1] != -1 {
		t.Errorf("sequence lookup %v", m.SequenceLookup)
	}
	if m.FindSequence(5) != 2 || m.FindSequence(7) != -1 {
		t.Errorf("FindSequence")
	}
	if len(m.KeyBoneLookup) != 1 || m.FindKeyBone(0) != 1 {
		t.Errorf("key bone lookup %v", m.KeyBoneLookup)
	}
}
