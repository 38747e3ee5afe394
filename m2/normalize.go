package m2

import (
	"github.com/mogaika/wow_model_browser/config"
	"github.com/mogaika/wow_model_browser/validate"
)

// Normalize brings m into the shape Write expects for m.Version. It is idempotent.
func (m *Model) Normalize(diag *validate.Diagnostics) {
	n := len(m.Sequences)
	m.Tracks(func(name string, t TrackRef) {
		t.Resize(n)
	})

	for i := range m.Sequences {
		s := &m.Sequences[i]
		if m.Version >= config.WoD {
			if s.BlendTime == 0 {
				s.BlendTime = uint32(max(s.BlendTimeIn, s.BlendTimeOut))
			}
			s.BlendTimeIn, s.BlendTimeOut = 0, 0
		} else {
			if s.BlendTimeIn == 0 && s.BlendTimeOut == 0 {
				b := uint16(min(s.BlendTime, 0xffff))
				s.BlendTimeIn, s.BlendTimeOut = b, b
			}
			s.BlendTime = 0
		}
	}

	fixed := 0
	for i := range m.Vertices {
		v := &m.Vertices[i]
		if v.WeightsValid() {
			continue
		}
		v.BoneWeights, v.BoneIndices, _ = NormalizeInfluences(v.Influences())
		fixed++
	}
	if fixed != 0 {
		diag.Infof(validate.WeightNormalized, "%d vertices renormalized to 255", fixed)
	}

	if len(m.Skins) != 0 {
		m.NumSkinProfiles = uint32(len(m.Skins))
	}
	if len(m.TextureCombinerCombos) != 0 {
		m.GlobalFlags |= GLOBAL_FLAG_USE_TEXTURE_COMBOS
	}
	m.RebuildLookups()
}
