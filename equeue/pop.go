package equeue

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/spatial"
)

// PopSubdivide returns the next valid subdivide candidate, or ok=false once
// the subdivide heap is exhausted. Invalid entries (spec 4.4 pop-time
// check #1/#2: the edge no longer exists, or either endpoint has lost its
// leaf) are discarded silently and the next candidate is tried.
func (q *Queue) PopSubdivide(m *bmesh.Mesh, owner *spatial.Owner) (*bmesh.Edge, bool) {
	for !q.subdivideQ.empty() {
		e := q.subdivideQ.poll()
		edge := m.EdgeExists(e.v1, e.v2)
		if edge == nil {
			continue
		}
		if owner.VertLeaf(e.v1) == spatial.NoLeaf || owner.VertLeaf(e.v2) == spatial.NoLeaf {
			continue
		}
		return edge, true
	}
	return nil, false
}

// PopCollapse returns the next valid collapse candidate, or ok=false once
// the collapse heap is exhausted. In addition to the existence/ownership
// checks PopSubdivide performs, collapse re-validates the length threshold
// (positions may have moved since the edge was scanned), requires the edge
// be manifold, and forbids collapsing across incompatible boundary classes
// or onto a corner vertex (spec 4.4 pop-time check #3).
func (q *Queue) PopCollapse(m *bmesh.Mesh, owner *spatial.Owner) (*bmesh.Edge, bool) {
	lowerSq := q.cfg.LowerLen * q.cfg.LowerLen
	for !q.collapseQ.empty() {
		e := q.collapseQ.poll()
		edge := m.EdgeExists(e.v1, e.v2)
		if edge == nil {
			continue
		}
		if owner.VertLeaf(e.v1) == spatial.NoLeaf || owner.VertLeaf(e.v2) == spatial.NoLeaf {
			continue
		}
		w := q.maskWeight(edge)
		if w == 0 {
			continue
		}
		lenSq := distSq(edge.V1.Co, edge.V2.Co)
		if lenSq/(w*w) >= lowerSq {
			continue
		}
		if bmesh.EdgeLoopCount(edge) != 2 {
			continue
		}
		if !compatibleBoundary(edge.V1, edge.V2) {
			continue
		}
		return edge, true
	}
	return nil, false
}

// compatibleBoundary implements spec 4.4's "no BOUNDARY→INTERIOR collapse,
// no collapse touching a CORNER vertex".
func compatibleBoundary(a, b *bmesh.Vert) bool {
	if a.Ann.IsCorner() || b.Ann.IsCorner() {
		return false
	}
	if a.Ann.IsBoundary() != b.Ann.IsBoundary() {
		return false
	}
	if a.Ann.IsBoundary() && b.Ann.IsBoundary() && a.Ann.Class() != b.Ann.Class() {
		return false
	}
	return true
}
