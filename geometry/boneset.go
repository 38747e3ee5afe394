package geometry

import (
	"sort"
)

const MAX_BONES_PER_DRAW = 256

// MAX_TRIANGLES_PER_DRAW keeps a draw's index count within 16 bits.
const MAX_TRIANGLES_PER_DRAW = 0xffff / 3

// islands groups triangles sharing vertices, in order of their first triangle.
func islands(tris []Triangle) [][]int {
	parent := make(map[int]int)
	var find func(v int) int
	find = func(v int) int {
		p, ok := parent[v]
		if !ok || p == v {
			parent[v] = v
			return v
		}
		r := find(p)
		parent[v] = r
		return r
	}
	for _, t := range tris {
		r0 := find(t[0])
		for _, v := range t[1:] {
			if r := find(v); r != r0 {
				parent[r] = r0
			}
		}
	}

	index := make(map[int]int)
	var result [][]int
	for ti, t := range tris {
		root := find(t[0])
		i, ok := index[root]
		if !ok {
			i = len(result)
			index[root] = i
			result = append(result, nil)
		}
		result[i] = append(result[i], ti)
	}
	return result
}

type boneSet map[int]struct{}

func (s boneSet) union(bones []int) int {
	n := len(s)
	for _, b := range bones {
		if _, ok := s[b]; !ok {
			n++
		}
	}
	return n
}

func (s boneSet) add(bones []int) {
	for _, b := range bones {
		s[b] = struct{}{}
	}
}

func (s boneSet) sorted() []int {
	result := make([]int, 0, len(s))
	for b := range s {
		result = append(result, b)
	}
	sort.Ints(result)
	return result
}

// Draw is a run of triangles drawn with one bone palette.
type Draw struct {
	Triangles []int
	Bones     []int
}

// PackBoneSets splits triangles into draws referencing at most budget bones and
// holding at most maxTriangles triangles each, 0 means MAX_TRIANGLES_PER_DRAW.
// Whole islands are packed greedily, an island over either budget is split
// triangle by triangle.
func PackBoneSets(tris []Triangle, triBones func(t int) []int, budget int, maxTriangles int) []Draw {
	if maxTriangles <= 0 {
		maxTriangles = MAX_TRIANGLES_PER_DRAW
	}
	var draws []Draw
	cur := boneSet{}
	var curTris []int
	flush := func() {
		if len(curTris) != 0 {
			draws = append(draws, Draw{Triangles: curTris, Bones: cur.sorted()})
		}
		cur = boneSet{}
		curTris = nil
	}
	add := func(group []int, bones []int) {
		if cur.union(bones) > budget || len(curTris)+len(group) > maxTriangles {
			flush()
		}
		cur.add(bones)
		curTris = append(curTris, group...)
	}

	for _, island := range islands(tris) {
		islandBones := boneSet{}
		for _, t := range island {
			islandBones.add(triBones(t))
		}
		if len(islandBones) <= budget && len(island) <= maxTriangles {
			add(island, islandBones.sorted())
			continue
		}
		for _, t := range island {
			add([]int{t}, triBones(t))
		}
	}
	flush()
	return draws
}
