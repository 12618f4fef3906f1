// Package remesh implements C5 through C9: subdivide, collapse, valence
// cleanup, tangential smoothing, and the UpdateTopology driver that
// sequences them over a C4 queue.
package remesh

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/spatial"
)

// Subdivide runs C5 over a pending-edge buffer collected from the queue.
// Every edge is tagged first (spec 4.5: "tag E as 'to split' using a
// scratch head-flag bit"), then every tagged edge gets its midpoint
// inserted, and only then are the faces touching any tagged edge rebuilt —
// once each, against the full set of edges tagged on them, rather than
// splitting edges one at a time. A face with two or three tagged edges run
// through sequential single-edge splits instead would triangulate
// differently depending on which edge went first; reading all of a face's
// tag bits before rebuilding it is what makes the result order-independent
// (spec section 9).
func Subdivide(m *bmesh.Mesh, owner *spatial.Owner, pending []Pending, strokeID int64) int {
	var taggedEdges []*bmesh.Edge
	for _, p := range pending {
		e := m.EdgeExists(p.V1, p.V2)
		if e == nil || e.SplitTag {
			continue
		}
		triangulateFanIfNeeded(m, e.V1)
		triangulateFanIfNeeded(m, e.V2)
		e.SplitTag = true
		taggedEdges = append(taggedEdges, e)
	}
	if len(taggedEdges) == 0 {
		return 0
	}

	faces := collectTaggedFaces(taggedEdges)

	mids := make(map[*bmesh.Edge]*bmesh.Vert, len(taggedEdges))
	for _, e := range taggedEdges {
		mids[e] = insertMidpoint(m, owner, e, strokeID)
	}

	for _, f := range faces {
		splitFace(m, owner, f, mids)
	}

	for _, e := range taggedEdges {
		e.SplitTag = false
		if bmesh.EdgeLoopCount(e) == 0 {
			m.EdgeKill(e)
		}
	}
	return len(taggedEdges)
}

// Pending is one edge collected off the C4 subdivide heap, named by
// endpoints rather than an *bmesh.Edge so a stale entry (edge already
// gone) is simply skipped at consume time (spec 4.5 preamble).
type Pending struct {
	V1, V2 *bmesh.Vert
}

// collectTaggedFaces gathers, once each, every face touching at least one
// of taggedEdges.
func collectTaggedFaces(taggedEdges []*bmesh.Edge) []*bmesh.Face {
	seen := make(map[*bmesh.Face]bool)
	var out []*bmesh.Face
	for _, e := range taggedEdges {
		if e.Loop == nil {
			continue
		}
		l := e.Loop
		for {
			if !seen[l.Face] {
				seen[l.Face] = true
				out = append(out, l.Face)
			}
			l = l.RadialNext
			if l == e.Loop {
				break
			}
		}
	}
	return out
}

// insertMidpoint creates e's split vertex and assigns it an owner, but
// leaves e and its incident faces untouched — splitFace rebuilds those
// once it has read every tagged edge on a face.
func insertMidpoint(m *bmesh.Mesh, owner *spatial.Owner, e *bmesh.Edge, strokeID int64) *bmesh.Vert {
	v1, v2 := e.V1, e.V2
	ownerV1, ownerV2 := owner.VertLeaf(v1), owner.VertLeaf(v2)

	mv := m.VertCreate(common.Lerp(v1.Co, v2.Co, 0.5), common.Lerp(v1.No, v2.No, 0.5))
	mv.Ann.Flags |= bmesh.NeedsValence | bmesh.NeedsBoundary | bmesh.NeedsDiskSort

	m.Attr.Interp(bmesh.AttrVert, mv.AttrBlock, []int32{v1.AttrBlock, v2.AttrBlock}, []float64{0.5, 0.5})
	mv.Ann.StrokeID = strokeID
	assignSplitOwner(m, owner, mv, v1, v2, ownerV1, ownerV2)
	return mv
}

// splitPattern is the triangle-only instantiation of spec section 9's
// 43-entry split-pattern table. Slots 0-2 name the face's own verts in
// loop order; slots 3-5 name the midpoint of edge i (the edge running
// from vert i to vert (i+1)%3). The map key is the 3-bit mask of which of
// the face's three edges are tagged; mask 0 never appears here (such a
// face would not have been collected). Since this core never leaves a
// non-triangular face behind, every face splitFace ever sees has exactly
// three edges, collapsing the general table's per-n-gon rotations down to
// these seven fixed entries. Winding is chosen to agree with the single-
// edge case the log collaborator's EdgeSplitDo already produces (one tagged edge
// becomes the two triangles {0,3,2},{3,1,2}), so a face with only one
// tagged edge retriangulates the same way either code path takes.
var splitPattern = map[int][][3]int{
	1: {{0, 3, 2}, {3, 1, 2}},
	2: {{1, 4, 0}, {4, 2, 0}},
	4: {{2, 5, 1}, {5, 0, 1}},
	3: {{1, 4, 3}, {3, 4, 2}, {3, 2, 0}},
	6: {{2, 5, 4}, {4, 5, 0}, {4, 0, 1}},
	5: {{0, 3, 5}, {5, 3, 1}, {5, 1, 2}},
	7: {{0, 3, 5}, {1, 4, 3}, {2, 5, 4}, {3, 4, 5}},
}

// faceEdges returns f's three edges in loop order, aligned with
// bmesh.FaceVerts's own vert ordering (edge i runs from vert i to vert
// (i+1)%3).
func faceEdges(f *bmesh.Face) [3]*bmesh.Edge {
	l := f.First
	return [3]*bmesh.Edge{l.Edge, l.Next.Edge, l.Next.Next.Edge}
}

// splitFace reads the SplitTag bit of each of f's three edges, looks up
// the matching entry in splitPattern, and rebuilds f into the sub-
// triangles that entry names.
func splitFace(m *bmesh.Mesh, owner *spatial.Owner, f *bmesh.Face, mids map[*bmesh.Edge]*bmesh.Vert) {
	verts := bmesh.FaceVerts(f)
	edges := faceEdges(f)

	mask := 0
	var mid [3]*bmesh.Vert
	for i, e := range edges {
		if e.SplitTag {
			mask |= 1 << uint(i)
			mid[i] = mids[e]
		}
	}
	pattern := splitPattern[mask]
	if len(pattern) == 0 {
		return
	}

	slot := func(i int) *bmesh.Vert {
		if i < 3 {
			return verts[i]
		}
		return mid[i-3]
	}

	ownerF := owner.FaceLeaf(f)
	example := &bmesh.Face{Head: f.Head, Material: f.Material}
	owner.FaceRemove(f, true, true)
	m.FaceKill(f)

	for _, tri := range pattern {
		nf := m.FaceCreate([3]*bmesh.Vert{slot(tri[0]), slot(tri[1]), slot(tri[2])}, [3]*bmesh.Edge{}, example)
		if ownerF != spatial.NoLeaf {
			owner.FaceAdd(nf, false)
			// FaceRemove above drops a corner's ownership when f was its
			// last face in the leaf; give it the new face's leaf so later
			// pops still accept its edges.
			if leaf := owner.FaceLeaf(nf); leaf != spatial.NoLeaf {
				for _, v := range bmesh.FaceVerts(nf) {
					if owner.VertLeaf(v) == spatial.NoLeaf {
						owner.VertOwnershipTransfer(v, leaf)
					}
				}
			}
		}
	}
}

// triangulateFanIfNeeded runs the triangulation collaborator over any
// n-gon still incident to v (spec 4.5 "ensure both endpoint fans are fully
// triangulated"). This core's own C1/C5/C6/C7 primitives never leave an
// n-gon behind, so in practice this only fires when a host inserted one
// directly via FaceCreate with Len > 3 — which this module's FaceCreate
// does not support, so the loop below is always a no-op today and exists
// only as the contractual hook spec 4.5 names.
func triangulateFanIfNeeded(m *bmesh.Mesh, v *bmesh.Vert) {
	e := bmesh.FirstEdge(v)
	if e == nil {
		return
	}
	start := e
	for {
		if l := e.Loop; l != nil && l.Face.Len > 3 {
			fan := faceFan(l.Face)
			if tris, err := m.Tri.Triangulate(fan, v.No, false); err == nil {
				_ = tris // host n-gon triangulation is out of this core's scope past C1; see DESIGN.md
			}
		}
		e = bmesh.EdgeDiskNext(e, v)
		if e == start {
			return
		}
	}
}

func faceFan(f *bmesh.Face) []common.Vec3 {
	var out []common.Vec3
	l := f.First
	for i := 0; i < f.Len; i++ {
		out = append(out, l.Vert.Co)
		l = l.Next
	}
	return out
}

// assignSplitOwner implements spec 4.5's ownership rule for the new
// midpoint vertex: v1's owner if set, else v2's, else a walk over faces
// incident to mv/v1/v2 for any owner, else NoLeaf.
func assignSplitOwner(m *bmesh.Mesh, owner *spatial.Owner, mv, v1, v2 *bmesh.Vert, ownerV1, ownerV2 int32) {
	if ownerV1 != spatial.NoLeaf {
		owner.VertOwnershipTransfer(mv, ownerV1)
		return
	}
	if ownerV2 != spatial.NoLeaf {
		owner.VertOwnershipTransfer(mv, ownerV2)
		return
	}
	for _, v := range [3]*bmesh.Vert{mv, v1, v2} {
		e := bmesh.FirstEdge(v)
		if e == nil {
			continue
		}
		start := e
		for {
			if l := e.Loop; l != nil {
				if leaf := owner.FaceLeaf(l.Face); leaf != spatial.NoLeaf {
					owner.VertOwnershipTransfer(mv, leaf)
					return
				}
			}
			e = bmesh.EdgeDiskNext(e, v)
			if e == start {
				break
			}
		}
	}
}
