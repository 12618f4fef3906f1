package equeue

import (
	"testing"

	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

func rightTriangle(m *bmesh.Mesh) *bmesh.Face {
	a := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	b := m.VertCreate(common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1})
	c := m.VertCreate(common.Vec3{0, 1, 0}, common.Vec3{0, 0, 1})
	return m.FaceCreate([3]*bmesh.Vert{a, b, c}, [3]*bmesh.Edge{}, nil)
}

func approxEq(a, b, eps float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= eps
}

// TestSphereVertAndRangeBasics covers the plain distance/radius bookkeeping
// every Region implementation must get right.
func TestSphereVertAndRangeBasics(t *testing.T) {
	m := newTestMesh()
	v := m.VertCreate(common.Vec3{3, 4, 0}, common.Vec3{0, 0, 1})
	s := Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 25}

	assertTrue(t, s.RangeSq() == 25, "RangeSq reports the configured squared radius")
	assertTrue(t, approxEq(s.DistSq(v), 25, 1e-9), "DistSq is the full 3D squared distance")
	assertTrue(t, s.VertInRange(v), "a vertex exactly on the sphere's surface is in range")

	far := m.VertCreate(common.Vec3{6, 8, 0}, common.Vec3{0, 0, 1})
	assertTrue(t, !s.VertInRange(far), "a vertex outside the radius is not in range")
}

// TestSphereTriInRangeSevenPointApprox exercises spec 4.4's cheap tri-range
// test: a triangle entirely outside the sphere, judged solely by corners and
// edge midpoints and the centroid, is correctly rejected, while one whose
// centroid falls inside is accepted.
func TestSphereTriInRangeSevenPointApprox(t *testing.T) {
	m := newTestMesh()
	f := rightTriangle(m)

	near := Sphere{Center: common.Vec3{0.1, 0.1, 0}, RadiusSq: 1}
	assertTrue(t, near.TriInRange(f), "a sphere centred near the triangle's corner is in range")

	far := Sphere{Center: common.Vec3{100, 100, 0}, RadiusSq: 1}
	assertTrue(t, !far.TriInRange(f), "a sphere far from every sampled point is out of range")
}

// TestProjectedDiskFlattensAlongViewNormal is the defining property of
// ProjectedDisk: range membership ignores distance along ViewNormal
// entirely, so a vertex directly "in front of" the disk at any depth is in
// range as long as its planar projection lands inside.
func TestProjectedDiskFlattensAlongViewNormal(t *testing.T) {
	d := ProjectedDisk{Center: common.Vec3{0, 0, 0}, ViewNormal: common.Vec3{0, 0, 1}, RadiusSq: 4}
	m := newTestMesh()

	near := m.VertCreate(common.Vec3{1, 1, 50}, common.Vec3{0, 0, 1})
	assertTrue(t, d.VertInRange(near), "a vertex far along the view normal is still in range if its projection is close")

	outside := m.VertCreate(common.Vec3{10, 10, 0}, common.Vec3{0, 0, 1})
	assertTrue(t, !d.VertInRange(outside), "a vertex whose projection falls outside the disk radius is rejected")

	got := d.project(common.Vec3{1, 2, 5})
	assertTrue(t, approxEq(got[0], 1, 1e-9) && approxEq(got[1], 2, 1e-9) && approxEq(got[2], 0, 1e-9),
		"project flattens straight onto the plane orthogonal to ViewNormal through Center")
}

// TestClosestPointOnTriangleDistSqRegions exercises all three closest-point
// regions of Ericson's algorithm (vertex, edge, face interior) against a
// right triangle with a known answer in each case.
func TestClosestPointOnTriangleDistSqRegions(t *testing.T) {
	a := common.Vec3{0, 0, 0}
	b := common.Vec3{1, 0, 0}
	c := common.Vec3{0, 1, 0}

	vertexCase := closestPointOnTriangleDistSq(common.Vec3{-1, -1, 0}, a, b, c)
	assertTrue(t, approxEq(vertexCase, 2, 1e-9), "a point beyond corner a's region is closest to a itself")

	edgeCase := closestPointOnTriangleDistSq(common.Vec3{0.5, -1, 0}, a, b, c)
	assertTrue(t, approxEq(edgeCase, 1, 1e-9), "a point beside edge ab projects onto the edge's interior")

	faceCase := closestPointOnTriangleDistSq(common.Vec3{0.3, 0.3, 5}, a, b, c)
	assertTrue(t, approxEq(faceCase, 25, 1e-9), "a point directly above the face interior measures straight down to it")
}
