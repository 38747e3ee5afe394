package skeleton

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"

	"github.com/mogaika/wow_model_browser/m2"
	"github.com/mogaika/wow_model_browser/validate"
)

const ROOT = -1

var ErrCycle = errors.New("bone hierarchy cycle")

type Billboard int

const (
	BillboardNone Billboard = iota
	BillboardSpherical
	BillboardCylindricalLockX
	BillboardCylindricalLockY
	BillboardCylindricalLockZ
)

var billboardNames = [...]string{"none", "spherical", "cylindrical_lock_x", "cylindrical_lock_y", "cylindrical_lock_z"}

func (b Billboard) String() string {
	if b < 0 || int(b) >= len(billboardNames) {
		return "unknown"
	}
	return billboardNames[b]
}

func (b Billboard) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Flags is the bone flag set producing b.
func (b Billboard) Flags() uint32 {
	switch b {
	case BillboardSpherical:
		return m2.BONE_FLAG_SPHERICAL_BILLBOARD
	case BillboardCylindricalLockX:
		return m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_X
	case BillboardCylindricalLockY:
		return m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_Y
	case BillboardCylindricalLockZ:
		return m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_Z
	}
	return 0
}

// Classify picks the billboard class of a bone. Spherical wins when several bits are set.
func Classify(flags uint32) Billboard {
	switch {
	case flags&m2.BONE_FLAG_SPHERICAL_BILLBOARD != 0:
		return BillboardSpherical
	case flags&m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_X != 0:
		return BillboardCylindricalLockX
	case flags&m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_Y != 0:
		return BillboardCylindricalLockY
	case flags&m2.BONE_FLAG_CYLINDRICAL_BILLBOARD_Z != 0:
		return BillboardCylindricalLockZ
	}
	return BillboardNone
}

func Parents(bones []m2.Bone) []int16 {
	result := make([]int16, len(bones))
	for i := range bones {
		result[i] = bones[i].Parent
	}
	return result
}

// Validate checks parents are in range and the hierarchy has no cycles.
// Parents may follow their children, Order fixes that.
func Validate(parents []int16) error {
	_, err := Order(parents)
	return err
}

const (
	unvisited = iota
	visiting
	done
)

// Order returns the old -> new index remap placing every parent before its
// children. Bones keep their relative order wherever the hierarchy allows.
func Order(parents []int16) ([]int, error) {
	state := make([]int, len(parents))
	remap := make([]int, len(parents))
	next := 0

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return errors.Wrapf(ErrCycle, "at bone %d", i)
		}
		state[i] = visiting
		if p := int(parents[i]); p != ROOT {
			if p < 0 || p >= len(parents) {
				return errors.Errorf("bone %d: parent %d out of %d", i, p, len(parents))
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		state[i] = done
		remap[i] = next
		next++
		return nil
	}
	for i := range parents {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return remap, nil
}

func isIdentity(remap []int) bool {
	for i, v := range remap {
		if i != v {
			return false
		}
	}
	return true
}

// WorldPivots accumulates parent relative offsets into model space positions.
func WorldPivots(parents []int16, local []mgl32.Vec3) ([]mgl32.Vec3, error) {
	remap, err := Order(parents)
	if err != nil {
		return nil, err
	}
	order := make([]int, len(remap))
	for old, n := range remap {
		order[n] = old
	}
	world := make([]mgl32.Vec3, len(parents))
	for _, i := range order {
		world[i] = local[i]
		if p := parents[i]; p != ROOT {
			world[i] = world[p].Add(local[i])
		}
	}
	return world, nil
}

// LocalPivots is the inverse of WorldPivots for model bones.
func LocalPivots(bones []m2.Bone) []mgl32.Vec3 {
	result := make([]mgl32.Vec3, len(bones))
	for i := range bones {
		result[i] = bones[i].Pivot
		if p := bones[i].Parent; p >= 0 && int(p) < len(bones) {
			result[i] = bones[i].Pivot.Sub(bones[p].Pivot)
		}
	}
	return result
}

// BuildKeyBoneLookup fills the key bone table, reporting key ids used twice.
func BuildKeyBoneLookup(m *m2.Model, diag *validate.Diagnostics) {
	seen := make(map[int32]int)
	for i := range m.Bones {
		id := m.Bones[i].KeyBoneID
		if id < 0 {
			continue
		}
		if first, ok := seen[id]; ok {
			diag.Warnf(validate.KeyBoneDuplicate, "key bone %d on bones %d and %d, keeping %d", id, first, i, first)
			m.Bones[i].KeyBoneID = -1
			continue
		}
		seen[id] = i
	}
	m.KeyBoneLookup = m2.BuildKeyBoneLookup(m.Bones)
}

// Sort reorders the bones of m parents first and rewrites every bone reference.
// It reports whether anything moved.
func Sort(m *m2.Model, diag *validate.Diagnostics) (bool, error) {
	remap, err := Order(Parents(m.Bones))
	if err != nil {
		return false, err
	}
	if isIdentity(remap) {
		return false, nil
	}
	diag.Infof(validate.BoneOrder, "bones reordered so parents come first")
	Apply(m, remap)
	return true, nil
}
