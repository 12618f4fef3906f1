// Package triangulate implements bmesh.Triangulator. EarClip is the fast
// default, grounded in the teacher's recast_mesh.go triangulate(): pick the
// convex corner ("ear") whose cut diagonal is shortest among those that
// stay inside the polygon and don't enclose another vertex, clip it, and
// repeat until three vertices remain. Tess2 wraps a real tessellation
// library for callers that ask for the higher-quality "beauty" mode.
package triangulate

import (
	"errors"

	"github.com/KnightxMare/blender/common"
)

// ErrDegenerate is returned when fan has fewer than 3 vertices or no valid
// ear can be found (a self-intersecting or zero-area contour).
var ErrDegenerate = errors.New("triangulate: degenerate polygon")

// EarClip is the reference, dependency-free Triangulator.
type EarClip struct{}

// Triangulate implements bmesh.Triangulator. beauty is accepted but
// ignored — EarClip never produces a worse result for it; call Tess2 for
// the libtess2-backed beauty pass instead.
func (EarClip) Triangulate(fan []common.Vec3, normal common.Vec3, beauty bool) ([][3]int, error) {
	n := len(fan)
	if n < 3 {
		return nil, ErrDegenerate
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}, nil
	}

	u, v := basis(normal)
	pts := make([][2]float64, n)
	for i, p := range fan {
		pts[i] = [2]float64{p.Dot(u), p.Dot(v)}
	}

	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	if signedArea2D(pts, idx) < 0 {
		reverse(idx)
	}

	var tris [][3]int
	for len(idx) > 3 {
		ear := findEar(pts, idx)
		if ear == -1 {
			return nil, ErrDegenerate
		}
		m := len(idx)
		prev := idx[(ear-1+m)%m]
		cur := idx[ear]
		next := idx[(ear+1)%m]
		tris = append(tris, [3]int{prev, cur, next})
		idx = append(idx[:ear], idx[ear+1:]...)
	}
	tris = append(tris, [3]int{idx[0], idx[1], idx[2]})
	return tris, nil
}

// basis builds an orthonormal (u, v) pair spanning the plane orthogonal to
// normal, so the polygon can be projected to 2D for the ear test.
func basis(normal common.Vec3) (u, v common.Vec3) {
	n := normal.Normalize()
	ref := common.Vec3{1, 0, 0}
	if abs(n[0]) > 0.9 {
		ref = common.Vec3{0, 1, 0}
	}
	u = ref.Sub(n.Mul(ref.Dot(n))).Normalize()
	v = n.Cross(u)
	return u, v
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

func signedArea2D(pts [][2]float64, idx []int) float64 {
	var a float64
	n := len(idx)
	for i := 0; i < n; i++ {
		p0, p1 := pts[idx[i]], pts[idx[(i+1)%n]]
		a += p0[0]*p1[1] - p1[0]*p0[1]
	}
	return a
}

func reverse(idx []int) {
	for i, j := 0, len(idx)-1; i < j; i, j = i+1, j-1 {
		idx[i], idx[j] = idx[j], idx[i]
	}
}

// findEar returns the position within idx of the best ear (the convex
// corner with the shortest cut diagonal that contains no other polygon
// vertex), or -1 if none qualifies.
func findEar(pts [][2]float64, idx []int) int {
	n := len(idx)
	best := -1
	bestLen := -1.0
	for i := 0; i < n; i++ {
		prev := idx[(i-1+n)%n]
		cur := idx[i]
		next := idx[(i+1)%n]
		if !convex(pts[prev], pts[cur], pts[next]) {
			continue
		}
		if anyVertexInside(pts, idx, prev, cur, next) {
			continue
		}
		dx := pts[next][0] - pts[prev][0]
		dy := pts[next][1] - pts[prev][1]
		length := dx*dx + dy*dy
		if best == -1 || length < bestLen {
			best, bestLen = i, length
		}
	}
	return best
}

func convex(a, b, c [2]float64) bool {
	return cross(a, b, c) > 1e-12
}

func cross(a, b, c [2]float64) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func anyVertexInside(pts [][2]float64, idx []int, prev, cur, next int) bool {
	for _, k := range idx {
		if k == prev || k == cur || k == next {
			continue
		}
		if pointInTriangle(pts[k], pts[prev], pts[cur], pts[next]) {
			return true
		}
	}
	return false
}

func pointInTriangle(p, a, b, c [2]float64) bool {
	d1 := cross(a, b, p)
	d2 := cross(b, c, p)
	d3 := cross(c, a, p)
	hasNeg := d1 < 0 || d2 < 0 || d3 < 0
	hasPos := d1 > 0 || d2 > 0 || d3 > 0
	return !(hasNeg && hasPos)
}
