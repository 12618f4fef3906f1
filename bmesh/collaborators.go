package bmesh

import "github.com/KnightxMare/blender/common"

// Log is the undo/redo log collaborator (spec section 6). The mesh emits an
// event for every structural change: additions (VertCreate,
// EdgeGetOrCreate, FaceCreate) are logged after the new element is built
// and linked, removals (FaceKill, EdgeKill, VertKill) before the element is
// unlinked. A linear reverse replay restores the prior state (testable
// property P7). The core
// never reads the log back itself — that is the host's job — it only calls
// these methods, which is why the interface is declared here, where it is
// consumed, rather than in package oplog, where it is implemented.
type Log interface {
	EntryAdd(name string)
	VertAdded(v *Vert)
	VertModified(v *Vert, snapshotOrigData bool)
	VertRemoved(v *Vert)
	EdgeAdded(e *Edge)
	EdgeRemoved(e *Edge)
	FaceAdded(f *Face)
	FaceRemoved(f *Face)
	// EdgeSplitDo atomically splits e at parameter t measured from pivot
	// (one of e's endpoints), replacing e by two new edges, and logs the split in one
	// step, returning the new midpoint vertex. Implemented by the log
	// collaborator, not by the mesh, because replay needs the log to know
	// the split happened as a single atomic unit (spec section 4.1).
	EdgeSplitDo(m *Mesh, e *Edge, pivot *Vert, t float64) *Vert
}

// AttrStore is the customdata collaborator (spec section 6): generic
// interpolation and copy of opaque per-vertex/per-loop/per-face attribute
// blocks, addressed by integer handles rather than typed fields so the host
// can enable whatever channel layout (UV0, UV1, material weights, ...) a
// given session needs.
type AttrStore interface {
	// Alloc reserves a new block for the given element kind and returns its
	// handle. NoAttrHandle is a valid "no block" value.
	Alloc(kind AttrKind) int32
	Free(kind AttrKind, handle int32)
	// Interp writes into dst the weighted combination of the blocks at
	// srcs (weighted by ws); len(srcs) == len(ws).
	Interp(kind AttrKind, dst int32, srcs []int32, ws []float64)
	// Copy overwrites dst's block with src's.
	Copy(kind AttrKind, src, dst int32)
	// SwapSimple exchanges the two blocks' contents in place.
	SwapSimple(kind AttrKind, a, b int32)
}

// AttrKind distinguishes the handle namespaces (vertex/loop/face blocks
// live in independent arenas).
type AttrKind int

const (
	AttrVert AttrKind = iota
	AttrLoop
	AttrFace
)

// NoAttrHandle marks the absence of an attribute block.
const NoAttrHandle int32 = -1

// Triangulator is the n-gon triangulation collaborator (spec sections 4.5,
// 4.9, 6). fan holds the polygon's vertices in loop order, already
// projected to world space; normal is used to pick the 2D working plane.
// beauty requests the more expensive, better-conditioned triangulation.
type Triangulator interface {
	Triangulate(fan []common.Vec3, normal common.Vec3, beauty bool) ([][3]int, error)
}
