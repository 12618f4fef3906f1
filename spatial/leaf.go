// Package spatial implements C3, the side-tables that track which spatial
// hierarchy leaf owns each vertex and face (spec 4.3), plus a reference
// uniform-grid Hierarchy (spec 4.10/4.12 expand this into a pluggable
// interface; the grid is the module's stand-in for a host's real
// PBVH/BVH/octree).
package spatial

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// NoLeaf is the sentinel meaning "unowned" (spec 3, "NO_LEAF").
const NoLeaf int32 = -1

// DirtyFlag bits mark what a leaf needs recomputed after a membership
// change (spec 4.3).
type DirtyFlag uint32

const (
	DirtyRedraw DirtyFlag = 1 << iota
	DirtyBB
	DirtyNormals
	DirtyTris
	DirtyOtherVerts
	// DirtyTopology marks a leaf whose face membership changed this call
	// (spec 4.9 step 6's "UPDATE_TOPOLOGY"). It is kept distinct from the
	// redraw/BB/normals/tris/other-verts bits above because those still
	// need to survive step 6 for the host to consume afterward — only
	// this bit gets cleared there.
	DirtyTopology
)

// Leaf is one node of the spatial hierarchy: the faces and unique vertices
// it owns, its bounding box, its dirty bits, and the face-count limit that
// triggers a split (spec 3).
type Leaf struct {
	Index     int32
	Verts     map[*bmesh.Vert]struct{}
	Faces     map[*bmesh.Face]struct{}
	BB        common.AABB
	Dirty     DirtyFlag
	FaceLimit int

	// cellX/Y/Z identify this leaf's grid cell; meaningful only for Grid,
	// zero and unused for any other Hierarchy implementation.
	cellX, cellY, cellZ int32
}

func newLeaf(index int32, limit int) *Leaf {
	return &Leaf{
		Index:     index,
		Verts:     make(map[*bmesh.Vert]struct{}),
		Faces:     make(map[*bmesh.Face]struct{}),
		BB:        common.EmptyAABB(),
		FaceLimit: limit,
	}
}

func (l *Leaf) markDirty(bits DirtyFlag) { l.Dirty |= bits }

// Hierarchy is the spatial-index collaborator (spec section 6, supplemented
// by 4.10): the set of operations C3/C5/C9 need from whatever tree the host
// keeps alongside the mesh. Declared here, in the consuming package's
// sibling rather than in bmesh, because C3 is mesh-adjacent but not part of
// the mesh primitives themselves — bmesh stays ignorant of leaves entirely.
type Hierarchy interface {
	// InsertFace walks the tree to find (or create) the leaf that should
	// own F and returns its index, without yet committing the membership
	// change (the caller does that via Owner side-tables, then calls
	// InsertFaceFinalize).
	InsertFace(f *bmesh.Face) int32
	// InsertFaceFinalize commits F's ownership by leafIndex, updating the
	// leaf's bounding box and dirty bits.
	InsertFaceFinalize(f *bmesh.Face, leafIndex int32)
	// EnsureLeafLimit is the two-step split negotiation of spec 4.10: if
	// leaf's face count exceeds its limit the hierarchy may split it,
	// returning the indices of the leaves it was replaced by (ok=true),
	// or decline (ok=false) when it is already at minimum size.
	EnsureLeafLimit(leaf int32) (split []int32, ok bool)
	// CheckTris asks the hierarchy to verify/rebuild whatever per-leaf
	// triangulation or render cache it keeps, given the REBUILD flags.
	CheckTris(leaf int32)
	// Leaf returns the leaf at index, or nil if index is out of range.
	Leaf(index int32) *Leaf
}
