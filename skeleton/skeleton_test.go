package skeleton

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/validate"
)

var orderTests = []struct {
	parents []int16
	remap   []int
	cycle   bool
}{
	{[]int16{-1, 0, 1}, []int{0, 1, 2}, false},
	{[]int16{1, -1, 1}, []int{1, 0, 2}, false},
	{[]int16{2, 0, -1, 2}, []int{1, 2, 0, 3}, false},
	{[]int16{1, 0}, nil, true},
	{[]int16{0}, nil, true},
}

func TestOrder(t *testing.T) {
	for _, test := range orderTests {
		remap, err := Order(test.parents)
		if test.cycle {
			if err == nil {
				t.Errorf("Order(%v): cycle not detected", test.parents)
			}
			continue
		}
		if err != nil {
			t.Errorf("Order(%v): %v", test.parents, err)
			continue
		}
		for i := range remap {
			if remap[i] != test.remap[i] {
				t.Errorf("Order(%v)=%v; expected %v", test.parents, remap, test.remap)
				break
			}
		}
	}
	if err := Validate([]int16{-1, 5}); err == nil {
		t.Errorf("out of range parent accepted")
	}
}

func TestClassify(t *testing.T) {
	for _, b := range []Billboard{BillboardNone, BillboardSpherical, BillboardCylindricalLockX, BillboardCylindricalLockY, BillboardCylindricalLockZ} {
		if got := Classify(b.Flags() | m2.BONE_FLAG_TRANSFORMED); got != b {
			t.Errorf("Classify(%v flags)=%v", b, got)
		}
	}
	if Classify(m2.BONE_FLAG_SPHERICAL_BILLBOARD|m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_Z) != BillboardSpherical {
		t.Errorf("spherical must win")
	}
}

func TestWorldPivots(t *testing.T) {
	parents := []int16{1, -1, 0}
	local := []mgl32.Vec3{{0, 0, 1}, {1, 0, 0}, {0, 1, 0}}
	world, err := WorldPivots(parents, local)
	if err != nil {
		t.Fatal(err)
	}
	want := []mgl32.Vec3{{1, 0, 1}, {1, 0, 0}, {1, 1, 1}}
	for i := range want {
		if !world[i].ApproxEqual(want[i]) {
			t.Errorf("pivot %d = %v, want %v", i, world[i], want[i])
		}
	}

	bones := []m2.Bone{{Parent: 1, Pivot: world[0]}, {Parent: -1, Pivot: world[1]}, {Parent: 0, Pivot: world[2]}}
	for i, l := range LocalPivots(bones) {
		if !l.ApproxEqual(local[i]) {
			t.Errorf("local pivot %d = %v, want %v", i, l, local[i])
		}
	}
}

func TestSortRewritesReferences(t *testing.T) {
	m := &m2.Model{
		Bones: []m2.Bone{
			{Parent: 1, KeyBoneID: 3},
			{Parent: -1, KeyBoneID: -1},
		},
		Vertices: []m2.Vertex{
			{BoneWeights: [4]uint8{200, 55}, BoneIndices: [4]uint8{0, 1}},
		},
		BoneLookup:  []uint16{0, 1},
		Attachments: []m2.Attachment{{Bone: 0}},
		Lights:      []m2.Light{{Bone: -1}, {Bone: 1}},
		Particles:   []m2.Particle{{Bone: 1}},
	}
	diag := &validate.Diagnostics{}
	moved, err := Sort(m, diag)
	if err != nil || !moved {
		t.Fatalf("Sort=%v,%v", moved, err)
	}
	if m.Bones[0].Parent != -1 || m.Bones[1].Parent != 0 || m.Bones[1].KeyBoneID != 3 {
		t.Errorf("bones %+v", m.Bones)
	}
	if m.Vertices[0].BoneIndices != [4]uint8{1, 0, 0, 0} {
		t.Errorf("vertex bones %v", m.Vertices[0].BoneIndices)
	}
	if m.BoneLookup[0] != 1 || m.BoneLookup[1] != 0 {
		t.Errorf("bone lookup %v", m.BoneLookup)
	}
	if m.Attachments[0].Bone != 1 || m.Lights[0].Bone != -1 || m.Lights[1].Bone != 0 || m.Particles[0].Bone != 0 {
		t.Errorf("references not rewritten")
	}
	if m.FindKeyBone(3) != 1 {
		t.Errorf("key bone lookup %v", m.KeyBoneLookup)
	}
	if !diag.Has(validate.BoneOrder) {
		t.Errorf("reorder not reported")
	}

	moved, err = Sort(m, nil)
	if err != nil || moved {
		t.Errorf("second Sort=%v,%v", moved, err)
	}
}

func TestBuildKeyBoneLookup(t *testing.T) {
	m := &m2.Model{Bones: []m2.Bone{{KeyBoneID: 1}, {KeyBoneID: 1}, {KeyBoneID: -1}, {KeyBoneID: 0}}}
	diag := &validate.Diagnostics{}
	BuildKeyBoneLookup(m, diag)
	if diag.Count(validate.KeyBoneDuplicate) != 1 {
		t.Errorf("duplicates %v", diag.Entries)
	}
	if len(m.KeyBoneLookup) != 2 || m.KeyBoneLookup[0] != 3 || m.KeyBoneLookup[1] != 0 {
		t.Errorf("lookup %v", m.KeyBoneLookup)
	}
}
