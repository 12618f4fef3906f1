package spatial

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// Owner is C3's pair of side-tables: which leaf owns each vertex, and which
// leaf owns each face (spec 3). A vertex has at most one owner; a face has
// exactly one owner, or NoLeaf during the transient windows spec 3 allows.
type Owner struct {
	h        Hierarchy
	vertLeaf map[*bmesh.Vert]int32
	faceLeaf map[*bmesh.Face]int32
}

// NewOwner builds an empty side-table bound to a hierarchy.
func NewOwner(h Hierarchy) *Owner {
	return &Owner{h: h, vertLeaf: make(map[*bmesh.Vert]int32), faceLeaf: make(map[*bmesh.Face]int32)}
}

// VertLeaf returns V's owning leaf, or NoLeaf.
func (o *Owner) VertLeaf(v *bmesh.Vert) int32 {
	if l, ok := o.vertLeaf[v]; ok {
		return l
	}
	return NoLeaf
}

// FaceLeaf returns F's owning leaf, or NoLeaf.
func (o *Owner) FaceLeaf(f *bmesh.Face) int32 {
	if l, ok := o.faceLeaf[f]; ok {
		return l
	}
	return NoLeaf
}

// vertFaces enumerates the faces currently incident to v, found by walking
// its disk cycle and each edge's radial cycle once.
func vertFaces(v *bmesh.Vert) []*bmesh.Face {
	var out []*bmesh.Face
	seen := make(map[*bmesh.Face]struct{})
	e := bmesh.FirstEdge(v)
	if e == nil {
		return out
	}
	start := e
	for {
		l := e.Loop
		if l != nil {
			first := l
			for {
				if _, ok := seen[l.Face]; !ok {
					seen[l.Face] = struct{}{}
					out = append(out, l.Face)
				}
				l = l.RadialNext
				if l == first {
					break
				}
			}
		}
		e = bmesh.EdgeDiskNext(e, v)
		if e == start {
			break
		}
	}
	return out
}

// VertOtherLeafFind returns a leaf other than V's current owner that holds
// some face incident to V, or NoLeaf (spec 4.3 vert_other_leaf_find).
func (o *Owner) VertOtherLeafFind(v *bmesh.Vert) int32 {
	current := o.VertLeaf(v)
	for _, f := range vertFaces(v) {
		if l := o.FaceLeaf(f); l != NoLeaf && l != current {
			return l
		}
	}
	return NoLeaf
}

// VertOwnershipTransfer moves V from its current owner to newLeaf, updating
// both leaves' vertex sets, dirty bits, and the side-table (spec 4.3
// vert_ownership_transfer).
func (o *Owner) VertOwnershipTransfer(v *bmesh.Vert, newLeaf int32) {
	if old := o.VertLeaf(v); old != NoLeaf {
		if l := o.h.Leaf(old); l != nil {
			delete(l.Verts, v)
			l.markDirty(DirtyRedraw | DirtyOtherVerts)
		}
	}
	o.vertLeaf[v] = newLeaf
	if l := o.h.Leaf(newLeaf); l != nil {
		l.Verts[v] = struct{}{}
		l.BB.Grow(v.Co)
		l.markDirty(DirtyRedraw | DirtyBB | DirtyOtherVerts)
	}
}

// VertRemove strips V's ownership entirely, marking its former owner dirty
// (spec 4.3 vert_remove).
func (o *Owner) VertRemove(v *bmesh.Vert) {
	if old := o.VertLeaf(v); old != NoLeaf {
		if l := o.h.Leaf(old); l != nil {
			delete(l.Verts, v)
			l.markDirty(DirtyRedraw | DirtyBB | DirtyOtherVerts)
		}
	}
	delete(o.vertLeaf, v)
}

// FaceRemove removes F from its owner (spec 4.3 face_remove). When
// checkVerts is set, every corner vertex that would otherwise lose its last
// face in that leaf is offered a transfer via VertOtherLeafFind; failing
// that, if ensureTransfer is set its ownership is cleared and the leaf's
// REBUILD_NODE_VERTS-equivalent (DirtyOtherVerts) bit is raised, matching
// spec's "missing owner" fallback (section 7).
func (o *Owner) FaceRemove(f *bmesh.Face, checkVerts, ensureTransfer bool) {
	owner := o.FaceLeaf(f)
	if owner == NoLeaf {
		return
	}
	l := o.h.Leaf(owner)
	if l != nil {
		delete(l.Faces, f)
		l.markDirty(DirtyRedraw | DirtyTris | DirtyTopology)
	}
	delete(o.faceLeaf, f)

	if !checkVerts || l == nil {
		return
	}
	for _, v := range bmesh.FaceVerts(f) {
		if o.VertLeaf(v) != owner {
			continue
		}
		if vertHasFaceInLeaf(o, v, owner, f) {
			continue
		}
		if other := o.VertOtherLeafFind(v); other != NoLeaf {
			o.VertOwnershipTransfer(v, other)
			continue
		}
		if ensureTransfer {
			o.VertRemove(v)
			l.markDirty(DirtyOtherVerts)
		}
	}
}

// vertHasFaceInLeaf reports whether v is incident to any face owned by
// leaf other than excl.
func vertHasFaceInLeaf(o *Owner, v *bmesh.Vert, leaf int32, excl *bmesh.Face) bool {
	for _, f := range vertFaces(v) {
		if f != excl && o.FaceLeaf(f) == leaf {
			return true
		}
	}
	return false
}

// FaceAdd assigns F a leaf (spec 4.3 face_add). Unless forceTreeWalk, it
// first tries to adopt the leaf of a radial-neighbour face sharing one of
// F's edges; only when none exists (or forceTreeWalk is set) does it ask
// the hierarchy to insert F from scratch.
func (o *Owner) FaceAdd(f *bmesh.Face, forceTreeWalk bool) {
	if !forceTreeWalk {
		if leaf := o.neighbourLeaf(f); leaf != NoLeaf {
			o.commitFace(f, leaf)
			return
		}
	}
	leaf := o.h.InsertFace(f)
	o.commitFace(f, leaf)
}

func (o *Owner) commitFace(f *bmesh.Face, leaf int32) {
	o.faceLeaf[f] = leaf
	if l := o.h.Leaf(leaf); l != nil {
		l.Faces[f] = struct{}{}
		l.markDirty(DirtyRedraw | DirtyTris | DirtyBB | DirtyTopology)
	}
	o.h.InsertFaceFinalize(f, leaf)
}

// neighbourLeaf returns the owner of any face across F's three edges'
// radial cycles, or NoLeaf.
func (o *Owner) neighbourLeaf(f *bmesh.Face) int32 {
	verts := bmesh.FaceVerts(f)
	for i := 0; i < 3; i++ {
		v1, v2 := verts[i], verts[(i+1)%3]
		f0, f1, ok := edgeLoops(v1, v2)
		if !ok {
			continue
		}
		for _, other := range [2]*bmesh.Face{f0, f1} {
			if other != nil && other != f {
				if leaf := o.FaceLeaf(other); leaf != NoLeaf {
					return leaf
				}
			}
		}
	}
	return NoLeaf
}

func edgeLoops(v1, v2 *bmesh.Vert) (f0, f1 *bmesh.Face, ok bool) {
	e := findEdge(v1, v2)
	if e == nil {
		return nil, nil, false
	}
	l0, l1, ok := bmesh.EdgeLoopPair(e)
	if !ok {
		return nil, nil, false
	}
	return l0.Face, l1.Face, true
}

func findEdge(v1, v2 *bmesh.Vert) *bmesh.Edge {
	e := bmesh.FirstEdge(v1)
	if e == nil {
		return nil
	}
	start := e
	for {
		if e.OtherVert(v1) == v2 {
			return e
		}
		e = bmesh.EdgeDiskNext(e, v1)
		if e == start {
			return nil
		}
	}
}

// MarkIncidentLeavesDirty raises bits on every leaf owning a face incident
// to v (spec 4.6 step 12: "mark every leaf owning an incident face dirty").
func (o *Owner) MarkIncidentLeavesDirty(v *bmesh.Vert, bits DirtyFlag) {
	for _, f := range vertFaces(v) {
		if l := o.h.Leaf(o.FaceLeaf(f)); l != nil {
			l.markDirty(bits)
		}
	}
}

// VertCreateInLeaf creates a new vertex via m and immediately assigns it to
// leaf (spec 4.3 vert_create_in_leaf).
func (o *Owner) VertCreateInLeaf(m *bmesh.Mesh, leaf int32, co, no common.Vec3) *bmesh.Vert {
	v := m.VertCreate(co, no)
	o.vertLeaf[v] = leaf
	if l := o.h.Leaf(leaf); l != nil {
		l.Verts[v] = struct{}{}
		l.BB.Grow(v.Co)
		l.markDirty(DirtyRedraw | DirtyBB)
	}
	return v
}
