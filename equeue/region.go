package equeue

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// Region is the pluggable brush-shape predicate (spec 4.4, expanded into an
// interface by 4.12 so a host can add a third shape, e.g. a box brush,
// without touching the scan internals).
type Region interface {
	TriInRange(f *bmesh.Face) bool
	VertInRange(v *bmesh.Vert) bool
	// DistSq returns the region's own squared-distance metric for v (planar
	// for ProjectedDisk, full 3D for Sphere), used by C7 to apply the
	// radius*1.25 watchlist cutoff without knowing which shape it holds.
	DistSq(v *bmesh.Vert) float64
	// RangeSq returns the region's configured squared radius.
	RangeSq() float64
}

// Sphere is the simplest Region: everything within radius of Center. Tri
// containment uses the cheap seven-point approximation spec 4.4 specifies
// (three corners, three edge midpoints, and the centroid) rather than an
// exact point-to-triangle distance.
type Sphere struct {
	Center   common.Vec3
	RadiusSq float64
}

func (s Sphere) VertInRange(v *bmesh.Vert) bool {
	return distSq(v.Co, s.Center) <= s.RadiusSq
}

func (s Sphere) DistSq(v *bmesh.Vert) float64 { return distSq(v.Co, s.Center) }

func (s Sphere) RangeSq() float64 { return s.RadiusSq }

func (s Sphere) TriInRange(f *bmesh.Face) bool {
	v := bmesh.FaceVerts(f)
	mid01 := v[0].Co.Add(v[1].Co).Mul(0.5)
	mid12 := v[1].Co.Add(v[2].Co).Mul(0.5)
	mid20 := v[2].Co.Add(v[0].Co).Mul(0.5)
	centroid := v[0].Co.Add(v[1].Co).Add(v[2].Co).Mul(1.0 / 3.0)
	best := distSq(v[0].Co, s.Center)
	for _, p := range [5]common.Vec3{v[1].Co, v[2].Co, mid01, mid12, mid20} {
		if d := distSq(p, s.Center); d < best {
			best = d
		}
	}
	if d := distSq(centroid, s.Center); d < best {
		best = d
	}
	return best <= s.RadiusSq
}

// ProjectedDisk restricts the sphere test to the disk obtained by
// projecting Center (and every tested point) onto the plane orthogonal to
// ViewNormal — the front-facing-brush-silhouette predicate spec 4.4 calls
// "projected disk".
type ProjectedDisk struct {
	Center     common.Vec3
	ViewNormal common.Vec3
	RadiusSq   float64
}

func (d ProjectedDisk) project(p common.Vec3) common.Vec3 {
	n := d.ViewNormal
	return p.Sub(n.Mul(p.Sub(d.Center).Dot(n)))
}

func (d ProjectedDisk) VertInRange(v *bmesh.Vert) bool {
	return distSq(d.project(v.Co), d.Center) <= d.RadiusSq
}

func (d ProjectedDisk) DistSq(v *bmesh.Vert) float64 {
	return distSq(d.project(v.Co), d.Center)
}

func (d ProjectedDisk) RangeSq() float64 { return d.RadiusSq }

func (d ProjectedDisk) TriInRange(f *bmesh.Face) bool {
	v := bmesh.FaceVerts(f)
	pa, pb, pc := d.project(v[0].Co), d.project(v[1].Co), d.project(v[2].Co)
	return closestPointOnTriangleDistSq(d.Center, pa, pb, pc) <= d.RadiusSq
}

func distSq(a, b common.Vec3) float64 {
	d := a.Sub(b)
	return d.Dot(d)
}

// closestPointOnTriangleDistSq is the standard closest-point-on-triangle
// test (Ericson, Real-Time Collision Detection §5.1.5), used for the
// projected-disk region's exact per-triangle distance.
func closestPointOnTriangleDistSq(p, a, b, c common.Vec3) float64 {
	ab := b.Sub(a)
	ac := c.Sub(a)
	ap := p.Sub(a)

	d1 := ab.Dot(ap)
	d2 := ac.Dot(ap)
	if d1 <= 0 && d2 <= 0 {
		return distSq(p, a)
	}

	bp := p.Sub(b)
	d3 := ab.Dot(bp)
	d4 := ac.Dot(bp)
	if d3 >= 0 && d4 <= d3 {
		return distSq(p, b)
	}

	vc := d1*d4 - d3*d2
	if vc <= 0 && d1 >= 0 && d3 <= 0 {
		v := d1 / (d1 - d3)
		return distSq(p, a.Add(ab.Mul(v)))
	}

	cp := p.Sub(c)
	d5 := ab.Dot(cp)
	d6 := ac.Dot(cp)
	if d6 >= 0 && d5 <= d6 {
		return distSq(p, c)
	}

	vb := d5*d2 - d1*d6
	if vb <= 0 && d2 >= 0 && d6 <= 0 {
		w := d2 / (d2 - d6)
		return distSq(p, a.Add(ac.Mul(w)))
	}

	va := d3*d6 - d5*d4
	if va <= 0 && (d4-d3) >= 0 && (d5-d6) >= 0 {
		w := (d4 - d3) / ((d4 - d3) + (d5 - d6))
		return distSq(p, b.Add(c.Sub(b).Mul(w)))
	}

	denom := 1 / (va + vb + vc)
	v := vb * denom
	w := vc * denom
	return distSq(p, a.Add(ab.Mul(v)).Add(ac.Mul(w)))
}
