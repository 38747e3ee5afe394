package wmo

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/mogaika/wow_model_browser/validate"
)

// PORTAL_PLANAR_TOLERANCE is the largest distance of a portal vertex from its plane.
const PORTAL_PLANAR_TOLERANCE = 0.01

// PortalPlane computes the plane through the first three vertices.
func PortalPlane(vertices []mgl32.Vec3) (Plane, bool) {
	if len(vertices) < 3 {
		return Plane{}, false
	}
	n := vertices[1].Sub(vertices[0]).Cross(vertices[2].Sub(vertices[0]))
	if n.Len() == 0 {
		return Plane{}, false
	}
	n = n.Normalize()
	return Plane{Normal: n, Distance: n.Dot(vertices[0])}, true
}

// Deviation is the largest distance of a vertex from plane.
func Deviation(plane Plane, vertices []mgl32.Vec3) float32 {
	var dev float32
	for _, v := range vertices {
		dev = max(dev, math32.Abs(plane.SignedDistance(v)))
	}
	return dev
}

// OrientPortal builds a portal whose plane faces toward the first group.
// The vertex order is reversed when the authored winding faces away.
func OrientPortal(vertices []mgl32.Vec3, toward mgl32.Vec3) (Portal, bool) {
	plane, ok := PortalPlane(vertices)
	if !ok {
		return Portal{Vertices: vertices}, false
	}
	p := Portal{Vertices: slices.Clone(vertices), Plane: plane}
	if plane.SignedDistance(toward) < 0 {
		slices.Reverse(p.Vertices)
		// keep the first three vertices defining the plane
		p.Plane, _ = PortalPlane(p.Vertices)
	}
	return p, true
}

// PortalLink is an authored portal between two groups.
type PortalLink struct {
	Vertices []mgl32.Vec3 `json:"vertices"`
	First    int          `json:"first"`
	Second   int          `json:"second"`
}

// BuildPortals orients every portal toward its first group and lists two
// references per portal, grouped by owning group. refStart/refCount give the
// MOPR range of every group.
func BuildPortals(links []PortalLink, centers []mgl32.Vec3, diag *validate.Diagnostics) (portals []Portal, refs []PortalRef, refStart, refCount []uint16, err error) {
	type owned struct {
		group int
		ref   PortalRef
	}
	var all []owned
	for i, l := range links {
		if l.First < 0 || l.First >= len(centers) || l.Second < 0 || l.Second >= len(centers) || l.First == l.Second {
			return nil, nil, nil, nil, validate.Policyf("portal %d links groups %d and %d of %d", i, l.First, l.Second, len(centers))
		}
		p, ok := OrientPortal(l.Vertices, centers[l.First])
		if !ok {
			return nil, nil, nil, nil, validate.Policyf("portal %d has no plane", i)
		}
		if dev := Deviation(p.Plane, p.Vertices); dev > PORTAL_PLANAR_TOLERANCE {
			diag.Warnf(validate.PortalNonPlanar, "portal %d deviates %.4f from its plane", i, dev)
		}
		portals = append(portals, p)
		all = append(all,
			owned{l.First, PortalRef{Portal: uint16(i), Group: uint16(l.Second), Side: 1}},
			owned{l.Second, PortalRef{Portal: uint16(i), Group: uint16(l.First), Side: -1}})
	}
	slices.SortStableFunc(all, func(a, b owned) int { return a.group - b.group })

	refStart = make([]uint16, len(centers))
	refCount = make([]uint16, len(centers))
	for _, o := range all {
		if refCount[o.group] == 0 {
			refStart[o.group] = uint16(len(refs))
		}
		refCount[o.group]++
		refs = append(refs, o.ref)
	}
	return portals, refs, refStart, refCount, nil
}
