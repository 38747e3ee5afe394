package m2

import (
	"sort"

	"github.com/chewxy/math32"
)

const MAX_INFLUENCES = 4

type Influence struct {
	Bone   int
	Weight float32
}

// NormalizeInfluences keeps the four strongest influences and quantizes them to
// bytes summing to 255. Rounding leftovers go to the largest remainders, ties to
// the lower bone index. Unused slots get bone 0. overflow reports dropped influences.
func NormalizeInfluences(in []Influence) (weights, bones [MAX_INFLUENCES]uint8, overflow bool) {
	inf := make([]Influence, 0, len(in))
	for _, i := range in {
		if i.Weight > 0 {
			inf = append(inf, i)
		}
	}
	sort.SliceStable(inf, func(a, b int) bool {
		if inf[a].Weight != inf[b].Weight {
			return inf[a].Weight > inf[b].Weight
		}
		return inf[a].Bone < inf[b].Bone
	})
	if len(inf) > MAX_INFLUENCES {
		overflow = true
		inf = inf[:MAX_INFLUENCES]
	}
	if len(inf) == 0 {
		weights[0] = 255
		return
	}

	var total float32
	for _, i := range inf {
		total += i.Weight
	}
	type part struct {
		slot int
		frac float32
	}
	parts := make([]part, len(inf))
	left := 255
	for s, i := range inf {
		scaled := i.Weight / total * 255
		whole := math32.Floor(scaled)
		weights[s] = uint8(whole)
		left -= int(whole)
		parts[s] = part{slot: s, frac: scaled - whole}
	}
	sort.SliceStable(parts, func(a, b int) bool {
		if parts[a].frac != parts[b].frac {
			return parts[a].frac > parts[b].frac
		}
		return inf[parts[a].slot].Bone < inf[parts[b].slot].Bone
	})
	for k := 0; left > 0; k = (k + 1) % len(parts) {
		weights[parts[k].slot]++
		left--
	}
	for s, i := range inf {
		if weights[s] != 0 {
			bones[s] = uint8(i.Bone)
		}
	}
	return
}

// WeightsValid reports whether v sums to 255 with zero-weight slots on bone 0.
func (v *Vertex) WeightsValid() bool {
	sum := 0
	for i, w := range v.BoneWeights {
		sum += int(w)
		if w == 0 && v.BoneIndices[i] != 0 {
			return false
		}
	}
	return sum == 255
}

func (v *Vertex) Influences() []Influence {
	var result []Influence
	for i, w := range v.BoneWeights {
		if w != 0 {
			result = append(result, Influence{Bone: int(v.BoneIndices[i]), Weight: float32(w)})
		}
	}
	return result
}
