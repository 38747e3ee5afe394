package geometry

import (
	"math/rand"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/m2"
)

const sphereEpsilon = 1e-5

type Sphere struct {
	Center mgl32.Vec3
	Radius float32
}

func (s Sphere) contains(p mgl32.Vec3) bool {
	return p.Sub(s.Center).Len() <= s.Radius+sphereEpsilon*math32.Max(1, s.Radius)
}

func sphere2(a, b mgl32.Vec3) Sphere {
	c := a.Add(b).Mul(0.5)
	return Sphere{Center: c, Radius: a.Sub(c).Len()}
}

func sphere3(a, b, c mgl32.Vec3) Sphere {
	ab, ac := b.Sub(a), c.Sub(a)
	n := ab.Cross(ac)
	denom := 2 * n.Dot(n)
	if denom < 1e-12 {
		// collinear, the farthest pair spans the sphere
		best := sphere2(a, b)
		for _, s := range []Sphere{sphere2(a, c), sphere2(b, c)} {
			if s.Radius > best.Radius {
				best = s
			}
		}
		return best
	}
	off := n.Cross(ab).Mul(ac.Dot(ac)).Add(ac.Cross(n).Mul(ab.Dot(ab))).Mul(1 / denom)
	return Sphere{Center: a.Add(off), Radius: off.Len()}
}

func sphere4(a, b, c, d mgl32.Vec3) Sphere {
	ab, ac, ad := b.Sub(a), c.Sub(a), d.Sub(a)
	denom := 2 * ab.Dot(ac.Cross(ad))
	if math32.Abs(denom) < 1e-12 {
		// coplanar, take the smallest triangle sphere holding all four
		var best Sphere
		found := false
		for _, s := range []Sphere{sphere3(a, b, c), sphere3(a, b, d), sphere3(a, c, d), sphere3(b, c, d)} {
			if s.contains(a) && s.contains(b) && s.contains(c) && s.contains(d) && (!found || s.Radius < best.Radius) {
				best, found = s, true
			}
		}
		return best
	}
	off := ac.Cross(ad).Mul(ab.Dot(ab)).
		Add(ad.Cross(ab).Mul(ac.Dot(ac))).
		Add(ab.Cross(ac).Mul(ad.Dot(ad))).
		Mul(1 / denom)
	return Sphere{Center: a.Add(off), Radius: off.Len()}
}

// MinimalSphere is the smallest sphere enclosing points (Welzl, incremental form).
// Points are visited in a fixed pseudo random order so results are reproducible.
func MinimalSphere(points []mgl32.Vec3) Sphere {
	if len(points) == 0 {
		return Sphere{}
	}
	p := append([]mgl32.Vec3{}, points...)
	rnd := rand.New(rand.NewSource(int64(len(p))))
	rnd.Shuffle(len(p), func(i, j int) { p[i], p[j] = p[j], p[i] })

	s := Sphere{Center: p[0]}
	for i := 1; i < len(p); i++ {
		if s.contains(p[i]) {
			continue
		}
		s = Sphere{Center: p[i]}
		for j := 0; j < i; j++ {
			if s.contains(p[j]) {
				continue
			}
			s = sphere2(p[i], p[j])
			for k := 0; k < j; k++ {
				if s.contains(p[k]) {
					continue
				}
				s = sphere3(p[i], p[j], p[k])
				for l := 0; l < k; l++ {
					if !s.contains(p[l]) {
						s = sphere4(p[i], p[j], p[k], p[l])
					}
				}
			}
		}
	}
	return s
}

// Bounds is the box of points with the minimal sphere radius.
func Bounds(points []mgl32.Vec3) (m2.Bounds, Sphere) {
	b := m2.BoundsOf(points)
	s := MinimalSphere(points)
	b.Radius = s.Radius
	return b, s
}
