package wmo

import (
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	BSP_LEAF_FACES = 30
	BSP_MAX_DEPTH  = 64
)

type bspBuilder struct {
	positions []mgl32.Vec3
	indices   []uint16
	nodes     []BSPNode
	faces     []uint16
	exceeded  bool
	oversized int
	depth     int
}

func (b *bspBuilder) triangle(f int) [3]mgl32.Vec3 {
	return [3]mgl32.Vec3{
		b.positions[b.indices[f*3]],
		b.positions[b.indices[f*3+1]],
		b.positions[b.indices[f*3+2]],
	}
}

func (b *bspBuilder) bounds(faces []int) (lo, hi mgl32.Vec3) {
	lo = mgl32.Vec3{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi = lo.Mul(-1)
	for _, f := range faces {
		for _, p := range b.triangle(f) {
			for k := 0; k < 3; k++ {
				lo[k] = min(lo[k], p[k])
				hi[k] = max(hi[k], p[k])
			}
		}
	}
	return
}

func (b *bspBuilder) leaf(faces []int) int {
	n := len(b.nodes)
	b.nodes = append(b.nodes, BSPNode{
		Flags:     BSP_LEAF,
		NegChild:  BSP_NO_CHILD,
		PosChild:  BSP_NO_CHILD,
		NumFaces:  uint16(len(faces)),
		FaceStart: uint32(len(b.faces)),
	})
	for _, f := range faces {
		b.faces = append(b.faces, uint16(f))
	}
	return n
}

// build splits faces inside the region lo..hi. Triangles reaching out of the
// region only count with their part inside it.
func (b *bspBuilder) build(faces []int, lo, hi mgl32.Vec3, depth int) int {
	b.depth = max(b.depth, depth)
	if len(faces) <= BSP_LEAF_FACES {
		return b.leaf(faces)
	}
	if depth >= BSP_MAX_DEPTH {
		b.exceeded = true
		b.oversized = max(b.oversized, len(faces))
		return b.leaf(faces)
	}

	tlo, thi := b.bounds(faces)
	for k := 0; k < 3; k++ {
		lo[k] = max(lo[k], tlo[k])
		hi[k] = min(hi[k], thi[k])
	}
	size := hi.Sub(lo)
	axes := []int{0, 1, 2}
	sort.SliceStable(axes, func(i, j int) bool { return size[axes[i]] > size[axes[j]] })

	// longest axis first, the others when it separates nothing
	var axis int
	var dist float32
	var neg, pos []int
	split := false
	for _, axis = range axes {
		dist = (lo[axis] + hi[axis]) / 2
		neg, pos = b.split(faces, axis, dist)
		split = smaller(len(neg), len(faces)) || smaller(len(pos), len(faces))
		if split {
			break
		}
	}
	if !split {
		b.oversized = max(b.oversized, len(faces))
		return b.leaf(faces)
	}

	n := len(b.nodes)
	b.nodes = append(b.nodes, BSPNode{Flags: uint16(axis), PlaneDist: dist, NegChild: BSP_NO_CHILD, PosChild: BSP_NO_CHILD})
	negHi, posLo := hi, lo
	negHi[axis], posLo[axis] = dist, dist
	if len(neg) != 0 {
		child := b.build(neg, lo, negHi, depth+1)
		b.nodes[n].NegChild = int16(child)
	}
	if len(pos) != 0 {
		child := b.build(pos, posLo, hi, depth+1)
		b.nodes[n].PosChild = int16(child)
	}
	return n
}

// smaller reports whether a side holds some but not all of total faces.
func smaller(n, total int) bool {
	return n > 0 && n < total
}

// split sorts faces by the plane at dist on axis, straddling faces go to both sides.
func (b *bspBuilder) split(faces []int, axis int, dist float32) (neg, pos []int) {
	for _, f := range faces {
		t := b.triangle(f)
		tmin := min(t[0][axis], t[1][axis], t[2][axis])
		tmax := max(t[0][axis], t[1][axis], t[2][axis])
		if tmax <= dist {
			neg = append(neg, f)
		} else if tmin >= dist {
			pos = append(pos, f)
		} else {
			neg = append(neg, f)
			pos = append(pos, f)
		}
	}
	return
}

// BSPResult is a collision tree over the triangles of one group.
type BSPResult struct {
	Nodes []BSPNode
	Faces []uint16
	Depth int
	// Exceeded is set when a leaf over BSP_LEAF_FACES was forced at BSP_MAX_DEPTH
	Exceeded bool
	// Oversized is the largest leaf over BSP_LEAF_FACES, zero when every leaf fits
	Oversized int
}

// BuildBSP splits the triangles at the midpoint of the longest box axis until
// leaves hold at most BSP_LEAF_FACES. Triangles crossing a plane go to both sides.
func BuildBSP(positions []mgl32.Vec3, indices []uint16) BSPResult {
	b := &bspBuilder{positions: positions, indices: indices}
	faces := make([]int, len(indices)/3)
	for i := range faces {
		faces[i] = i
	}
	lo, hi := b.bounds(faces)
	b.build(faces, lo, hi, 0)
	return BSPResult{Nodes: b.nodes, Faces: b.faces, Depth: b.depth, Exceeded: b.exceeded, Oversized: b.oversized}
}

const bspEpsilon = 1e-4

// Walk returns every triangle stored in leaves whose region contains p.
// Points on a splitting plane visit both sides, as straddling triangles live in both.
func Walk(nodes []BSPNode, faces []uint16, p mgl32.Vec3) []int {
	var result []int
	seen := make(map[int]bool)
	var visit func(n int)
	visit = func(n int) {
		if n < 0 || n >= len(nodes) {
			return
		}
		node := &nodes[n]
		if node.Leaf() {
			end := min(int(node.FaceStart)+int(node.NumFaces), len(faces))
			for _, f := range faces[node.FaceStart:end] {
				if !seen[int(f)] {
					seen[int(f)] = true
					result = append(result, int(f))
				}
			}
			return
		}
		d := p[node.Flags&BSP_AXIS_MASK] - node.PlaneDist
		if d <= bspEpsilon {
			visit(int(node.NegChild))
		}
		if d >= -bspEpsilon {
			visit(int(node.PosChild))
		}
	}
	visit(0)
	return result
}
