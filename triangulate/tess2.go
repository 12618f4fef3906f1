package triangulate

import (
	"fmt"

	"github.com/hajimehoshi/go-libtess2"

	"github.com/KnightxMare/blender/common"
)

// Tess2 is the "beauty" Triangulator, used when the caller asks for the
// better-conditioned (if slower) pass rather than EarClip's fast default.
// It delegates the actual tessellation to libtess2 via go-libtess2's pure
// Go port, projecting the polygon to 2D the same way EarClip does.
type Tess2 struct{}

// Triangulate implements bmesh.Triangulator. beauty is ignored: Tess2 is
// only ever reached when a caller already decided it wants the beauty
// pass, so there is no cheaper mode for it to fall back to.
func (Tess2) Triangulate(fan []common.Vec3, normal common.Vec3, beauty bool) ([][3]int, error) {
	n := len(fan)
	if n < 3 {
		return nil, ErrDegenerate
	}
	if n == 3 {
		return [][3]int{{0, 1, 2}}, nil
	}

	u, v := basis(normal)
	contour := make(libtess2.Contour, n)
	for i, p := range fan {
		contour[i] = libtess2.Vertex{X: float32(p.Dot(u)), Y: float32(p.Dot(v))}
	}

	elems, verts, err := libtess2.Tesselate([]libtess2.Contour{contour}, libtess2.WindingRuleOdd)
	if err != nil {
		return nil, fmt.Errorf("triangulate: tess2: %w", err)
	}

	tris := make([][3]int, 0, len(elems)/3)
	for i := 0; i+2 < len(elems); i += 3 {
		a, b, c := elems[i], elems[i+1], elems[i+2]
		orig := [3]int{
			nearestOriginal(contour, verts[a]),
			nearestOriginal(contour, verts[b]),
			nearestOriginal(contour, verts[c]),
		}
		tris = append(tris, orig)
	}
	return tris, nil
}

// nearestOriginal maps a tesselated output vertex back to the closest
// input contour vertex by index. libtess2 never moves input vertices — it
// only adds Steiner points on self-intersections, which a single simple
// contour never has — so the match is exact in the cases this
// triangulator is used for.
func nearestOriginal(contour []libtess2.Vertex, out libtess2.Vertex) int {
	best, bestD := 0, float32(-1.0)
	for i, c := range contour {
		dx, dy := c.X-out.X, c.Y-out.Y
		d := dx*dx + dy*dy
		if bestD < 0 || d < bestD {
			best, bestD = i, d
		}
	}
	return best
}
