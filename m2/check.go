package m2

import (
	"github.com/mogaika/wow_model_browser/validate"
)

// Check reports model problems that do not stop encoding.
func (m *Model) Check(diag *validate.Diagnostics) {
	for i := range m.Sequences {
		s := &m.Sequences[i]
		if s.IsAlias() {
			if _, err := m.ResolveAlias(i); err != nil {
				diag.Warnf(validate.UnresolvedAlias, "sequence %d (%v): %v", i, s, err)
			}
			continue
		}
		if s.VariationNext >= 0 {
			if _, err := m.VariationChain(i); err != nil {
				diag.Warnf(validate.VariationChain, "sequence %d (%v): %v", i, s, err)
			}
		}
	}

	durations := m.SequenceDurations()
	m.Tracks(func(name string, t TrackRef) {
		if err := t.Validate(durations, m.GlobalSequences); err != nil {
			diag.Warnf(validate.SequenceDuration, "%s: %v", name, err)
		}
	})

	keyBones := make(map[int32]int)
	for i := range m.Bones {
		b := &m.Bones[i]
		if int(b.Parent) >= i || b.Parent < -1 {
			diag.Warnf(validate.BoneOrder, "bone %d has parent %d", i, b.Parent)
		}
		if b.KeyBoneID < 0 {
			continue
		}
		if first, ok := keyBones[b.KeyBoneID]; ok {
			diag.Warnf(validate.KeyBoneDuplicate, "key bone %d on bones %d and %d", b.KeyBoneID, first, i)
		} else {
			keyBones[b.KeyBoneID] = i
		}
	}

	for i := range m.Vertices {
		if !m.Vertices[i].WeightsValid() {
			diag.Warnf(validate.BoneInfluenceOverflow, "vertex %d weights %v on bones %v", i, m.Vertices[i].BoneWeights, m.Vertices[i].BoneIndices)
		}
	}

	for i := range m.Textures {
		t := &m.Textures[i]
		if t.Type == TEXTURE_TYPE_HARDCODED && t.Filename == "" && i >= len(m.TextureFileIDs) {
			diag.Warnf(validate.MissingTexturePath, "texture %d has no path", i)
		}
	}

	for si := range m.Skins {
		for i := range m.Skins[si].SubMeshes {
			if sm := &m.Skins[si].SubMeshes[i]; sm.IndexCount == 0 {
				diag.Warnf(validate.EmptyGeoset, "skin %d submesh %d (id %d) has no triangles", si, i, sm.ID)
			}
		}
	}
}
