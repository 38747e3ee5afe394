package skeleton

import (
	"github.com/mogaika/wow_model_browser/m2"
)

// Apply moves bone i of m to remap[i] and rewrites every reference to it.
func Apply(m *m2.Model, remap []int) {
	bone := func(old int) int {
		if old < 0 || old >= len(remap) {
			return old
		}
		return remap[old]
	}

	bones := make([]m2.Bone, len(m.Bones))
	for old := range m.Bones {
		b := m.Bones[old]
		if b.Parent != ROOT {
			b.Parent = int16(bone(int(b.Parent)))
		}
		bones[remap[old]] = b
	}
	m.Bones = bones

	for i := range m.Vertices {
		v := &m.Vertices[i]
		for j, w := range v.BoneWeights {
			if w != 0 {
				v.BoneIndices[j] = uint8(bone(int(v.BoneIndices[j])))
			}
		}
	}
	for i, b := range m.BoneLookup {
		m.BoneLookup[i] = uint16(bone(int(b)))
	}
	for si := range m.Skins {
		for i := range m.Skins[si].SubMeshes {
			sm := &m.Skins[si].SubMeshes[i]
			sm.CenterBoneIndex = uint16(bone(int(sm.CenterBoneIndex)))
		}
	}
	for i := range m.Attachments {
		m.Attachments[i].Bone = uint16(bone(int(m.Attachments[i].Bone)))
	}
	for i := range m.Events {
		m.Events[i].Bone = uint32(bone(int(m.Events[i].Bone)))
	}
	for i := range m.Lights {
		if m.Lights[i].Bone >= 0 {
			m.Lights[i].Bone = int16(bone(int(m.Lights[i].Bone)))
		}
	}
	for i := range m.Ribbons {
		m.Ribbons[i].BoneIndex = uint32(bone(int(m.Ribbons[i].BoneIndex)))
	}
	for i := range m.Particles {
		m.Particles[i].Bone = uint16(bone(int(m.Particles[i].Bone)))
	}
	m.KeyBoneLookup = m2.BuildKeyBoneLookup(m.Bones)
}
