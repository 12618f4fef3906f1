// Package common holds small, dependency-light helpers shared by every
// package in this module: vector algebra, generic scalar helpers, and the
// do-while iteration idiom used to walk disk and radial cycles.
package common

import "github.com/go-gl/mathgl/mgl64"

// Vec3 is the position/normal type used throughout the mesh. It is an
// alias, not a wrapper, so callers get mgl64's full method set (Add, Sub,
// Cross, Dot, Normalize, ApproxEqual, ...) for free.
type Vec3 = mgl64.Vec3

// Vec2 is used for the projected-disk region test and for triangulation
// input, both of which operate in a 2D parameter plane.
type Vec2 = mgl64.Vec2

// Lerp returns the point a fraction t of the way from a to b.
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// WeightedSum returns sum(vs[i] * ws[i]). Panics if the slices differ in
// length; callers own that invariant, this is an internal helper.
func WeightedSum(vs []Vec3, ws []float64) Vec3 {
	var out Vec3
	for i, w := range ws {
		out = out.Add(vs[i].Mul(w))
	}
	return out
}

// ProjectOntoPlane removes the component of v along unit normal n, leaving
// the part of v tangent to the plane through the origin with normal n.
func ProjectOntoPlane(v, n Vec3) Vec3 {
	return v.Sub(n.Mul(v.Dot(n)))
}
