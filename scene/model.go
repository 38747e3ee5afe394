package scene

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/geometry"
	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/material"
	"github.com/mogaika/wow_model_browser/track"
)

// keyBoneNames is indexed by key bone id.
var keyBoneNames = []string{
	"ArmL", "ArmR", "ShoulderL", "ShoulderR", "SpineLow", "Waist", "Head", "Jaw",
	"IndexFingerR", "MiddleFingerR", "PinkyFingerR", "RingFingerR", "ThumbR",
	"IndexFingerL", "MiddleFingerL", "PinkyFingerL", "RingFingerL", "ThumbL",
	"$BTH", "$CSR", "$CSL", "_Breath", "_Name", "_NameMount", "$CHD", "$CCH", "Root",
}

// BoneName names bone i after its key bone when it has one.
func BoneName(i int, keyBoneID int32) string {
	if keyBoneID >= 0 && int(keyBoneID) < len(keyBoneNames) {
		return keyBoneNames[keyBoneID]
	}
	return fmt.Sprintf("bone_%d", i)
}

// KeyBoneID is the inverse of the key bone part of BoneName.
func KeyBoneID(name string) (int32, bool) {
	i := slices.Index(keyBoneNames, name)
	return int32(i), i >= 0
}

// FromM2 snapshots a decoded model. skin selects the view whose sub-meshes become meshes.
func FromM2(m *m2.Model, skin int) *ModelIR {
	ir := &ModelIR{
		Name:              m.Name,
		Flags:             m.GlobalFlags,
		Sequences:         slices.Clone(m.Sequences),
		GlobalSequences:   slices.Clone(m.GlobalSequences),
		Textures:          slices.Clone(m.Textures),
		Images:            make([]*Image, len(m.Textures)),
		Colors:            slices.Clone(m.Colors),
		TextureWeights:    slices.Clone(m.TextureWeights),
		TextureTransforms: slices.Clone(m.TextureTransforms),
		Attachments:       slices.Clone(m.Attachments),
		Events:            slices.Clone(m.Events),
		Lights:            slices.Clone(m.Lights),
		Cameras:           slices.Clone(m.Cameras),
		Ribbons:           slices.Clone(m.Ribbons),
		Particles:         slices.Clone(m.Particles),
	}
	for i := range m.Bones {
		b := &m.Bones[i]
		ir.Bones = append(ir.Bones, Bone{
			Name:        BoneName(i, b.KeyBoneID),
			Parent:      int(b.Parent),
			Pivot:       b.Pivot,
			Flags:       b.Flags,
			KeyBoneID:   b.KeyBoneID,
			SubmeshID:   b.SubmeshID,
			NameCRC:     b.BoneNameCRC,
			Translation: b.Translation,
			Rotation:    track.Map(&b.Rotation, track.CompQuat.Quat),
			Scale:       b.Scale,
		})
	}

	perSubmesh := []int{}
	if skin >= 0 && skin < len(m.Skins) {
		ir.Materials, perSubmesh = material.FromSkin(m, &m.Skins[skin])
	}
	ir.Meshes = geometry.FromM2(m, skin, func(si int) int {
		if si < len(perSubmesh) {
			return perSubmesh[si]
		}
		return -1
	})
	return ir
}

// M2Bones converts the skeleton to wire bones, compressing rotations.
func (ir *ModelIR) M2Bones() []m2.Bone {
	bones := make([]m2.Bone, len(ir.Bones))
	for i := range ir.Bones {
		b := &ir.Bones[i]
		keyBone := b.KeyBoneID
		if id, ok := KeyBoneID(b.Name); ok && keyBone < 0 {
			keyBone = id
		}
		bones[i] = m2.Bone{
			KeyBoneID:   keyBone,
			Flags:       b.Flags,
			Parent:      int16(b.Parent),
			SubmeshID:   b.SubmeshID,
			BoneNameCRC: b.NameCRC,
			Translation: b.Translation,
			Rotation:    track.Map(&b.Rotation, track.CompressQuat),
			Scale:       b.Scale,
			Pivot:       b.Pivot,
		}
	}
	return bones
}

func mapVec3Keys(t *track.Track[mgl32.Vec3], f func(mgl32.Vec3) mgl32.Vec3) {
	*t = track.Map(t, f)
}

// Transform moves the model from scene space into game space: rotation first,
// then uniform scale. Rotation keys are conjugated so that they stay relative
// to the rotated pivots.
func (ir *ModelIR) Transform(rotation mgl32.Quat, scale float32) {
	if rotation == mgl32.QuatIdent() && scale == 1 {
		return
	}
	place := func(v mgl32.Vec3) mgl32.Vec3 {
		return geometry.Rotate(rotation, v).Mul(scale)
	}
	inverse := rotation.Inverse()

	geometry.Transform(ir.Meshes, rotation, scale)
	for i := range ir.Bones {
		b := &ir.Bones[i]
		b.Pivot = place(b.Pivot)
		mapVec3Keys(&b.Translation, place)
		b.Rotation = track.Map(&b.Rotation, func(q mgl32.Quat) mgl32.Quat {
			return rotation.Mul(q).Mul(inverse).Normalize()
		})
	}
	for i := range ir.Attachments {
		ir.Attachments[i].Position = place(ir.Attachments[i].Position)
	}
	for i := range ir.Events {
		ir.Events[i].Position = place(ir.Events[i].Position)
	}
	for i := range ir.Lights {
		ir.Lights[i].Position = place(ir.Lights[i].Position)
	}
	for i := range ir.Ribbons {
		ir.Ribbons[i].Position = place(ir.Ribbons[i].Position)
	}
	for i := range ir.Particles {
		ir.Particles[i].Position = place(ir.Particles[i].Position)
	}
	for i := range ir.Cameras {
		c := &ir.Cameras[i]
		c.PositionBase = place(c.PositionBase)
		c.TargetPositionBase = place(c.TargetPositionBase)
	}
	for i := range ir.Sequences {
		b := &ir.Sequences[i].Bounds
		box := m2.BoundsOf([]mgl32.Vec3{place(b.Min), place(b.Max)})
		box.Radius = b.Radius * scale
		*b = box
	}
}

// Bake resamples every bone track at fps into linear keys.
func (ir *ModelIR) Bake(fps int) {
	durations := ir.Durations()
	for i := range ir.Bones {
		b := &ir.Bones[i]
		b.Translation = track.Bake(&b.Translation, durations, ir.GlobalSequences, fps, track.Vec3Interp, mgl32.Vec3{})
		b.Rotation = track.Bake(&b.Rotation, durations, ir.GlobalSequences, fps, track.QuatInterp, mgl32.QuatIdent())
		b.Scale = track.Bake(&b.Scale, durations, ir.GlobalSequences, fps, track.Vec3Interp, mgl32.Vec3{1, 1, 1})
	}
}
