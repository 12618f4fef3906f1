package bmesh

import "github.com/KnightxMare/blender/common"

// HeadFlag bits are shared by Vert, Edge, and Face head-flags (spec
// section 3: "head-flags (hidden, seam, and user bits)").
type HeadFlag uint32

const (
	FlagHidden HeadFlag = 1 << iota
	FlagSeam
	FlagSelect
	FlagSharp
	flagUserBase // first bit available to host-defined user flags
)

// Vert is a mesh vertex: position, normal, an opaque attribute block, and
// one edge of its disk cycle (nil if isolated).
type Vert struct {
	ID        int64
	Co, No    common.Vec3
	Mask      float64 // sculpt mask weight in [0,1]; see DESIGN.md
	AttrBlock int32
	Head      HeadFlag

	edge *Edge // arbitrary representative of the disk cycle around this vertex

	Ann VertAnnotation // C2 side-table, inlined rather than map-keyed for locality
}

// Edge connects two vertices and carries one disk-cycle link per endpoint
// plus a pointer to one incident loop (nil if the edge is wire).
type Edge struct {
	ID     int64
	V1, V2 *Vert
	Head   HeadFlag

	v1Next, v1Prev *Edge // disk cycle around V1
	v2Next, v2Prev *Edge // disk cycle around V2

	Loop *Loop // representative loop; radial cycle reachable via Loop.RadialNext

	// Scratch is a transient tag bit set during a single C4 scan pass and
	// cleared per-face at the start of that face's visit (spec 4.4). It is
	// never meaningful across calls to UpdateTopology. Owned by package
	// equeue, not by bmesh itself.
	Scratch bool
	// SplitTag marks an edge selected for subdivision during C5 phase 1
	// (spec 4.5). Subdivide clears it on each tagged edge once that pass has
	// rebuilt the faces.
	// Owned by package remesh.
	SplitTag bool
}

// Loop is a triangle corner: the vertex at this corner, the edge leaving it
// toward Next.Vert, the face it belongs to, its neighbours within the face,
// and its neighbours in the edge's radial cycle.
type Loop struct {
	ID         int64
	Vert       *Vert
	Edge       *Edge
	Face       *Face
	Next, Prev *Loop // within the face
	RadialNext, RadialPrev *Loop // around Edge
	AttrBlock  int32
}

// Face is a polygon; this core only ever leaves triangles in place once
// triangulation has run, but Len is kept general so an incoming n-gon can
// be represented before C1's triangulation primitive splits it.
type Face struct {
	ID        int64
	Len       int
	First     *Loop
	Material  int32
	AttrBlock int32
	Head      HeadFlag

	// Scratch is a spare per-face tag bit in the manner of Edge.Scratch; no
	// package in this module currently reads or sets it.
	Scratch bool
}

// VertAnnotation is C2's per-vertex side-table. It lives inline on Vert
// (rather than in a side map) because every mesh-editing primitive touches
// it on the hot path; conceptually it is still "the side-table", matching
// spec section 3's description, just implemented without the indirection a
// separate map would cost.
type VertAnnotation struct {
	Flags    VFlag
	Valence  int32
	StrokeID int64
	OrigCo   common.Vec3
	OrigNo   common.Vec3
	OrigMask float64
}

// VFlag holds C2's NEEDS_* work-list bits and boundary/corner
// classification bits.
type VFlag uint32

const (
	NeedsValence VFlag = 1 << iota
	NeedsBoundary
	NeedsDiskSort
	NeedsTriangulate
	ValenceScratch

	FlagBoundaryBit
	FlagFsetBoundaryBit
	FlagSharpBoundaryBit
	FlagSeamBoundaryBit
	FlagCornerBit
	FlagFsetCornerBit
	FlagSharpCornerBit
	FlagSeamCornerBit
)

const (
	smoothBoundaryMask = FlagBoundaryBit | FlagFsetBoundaryBit | FlagSharpBoundaryBit
	allBoundaryMask     = smoothBoundaryMask | FlagSeamBoundaryBit
	smoothCornerMask    = FlagCornerBit | FlagFsetCornerBit | FlagSharpCornerBit
	allCornerMask       = smoothCornerMask | FlagSeamCornerBit
)

// IsSmoothBoundary reports membership in SMOOTH_BOUNDARY (spec section 3).
func (a VertAnnotation) IsSmoothBoundary() bool { return a.Flags&smoothBoundaryMask != 0 }

// IsBoundary reports membership in ALL_BOUNDARY.
func (a VertAnnotation) IsBoundary() bool { return a.Flags&allBoundaryMask != 0 }

// IsSmoothCorner reports membership in SMOOTH_CORNER.
func (a VertAnnotation) IsSmoothCorner() bool { return a.Flags&smoothCornerMask != 0 }

// IsCorner reports membership in ALL_CORNER.
func (a VertAnnotation) IsCorner() bool { return a.Flags&allCornerMask != 0 }

// BoundaryClass identifies which of the (mutually compatible) boundary
// kinds a vertex belongs to, used by C6 to forbid mixing classes on
// collapse (spec 4.4 pop-time check #3).
type BoundaryClass int

const (
	ClassInterior BoundaryClass = iota
	ClassMesh
	ClassFaceSet
	ClassSharp
	ClassSeam
)

// Class returns the vertex's dominant boundary classification, preferring
// the strictest (seam > sharp > faceset > mesh > interior) the way the
// spec's derived-sets ordering implies.
func (a VertAnnotation) Class() BoundaryClass {
	switch {
	case a.Flags&(FlagSeamBoundaryBit|FlagSeamCornerBit) != 0:
		return ClassSeam
	case a.Flags&(FlagSharpBoundaryBit|FlagSharpCornerBit) != 0:
		return ClassSharp
	case a.Flags&(FlagFsetBoundaryBit|FlagFsetCornerBit) != 0:
		return ClassFaceSet
	case a.Flags&(FlagBoundaryBit|FlagCornerBit) != 0:
		return ClassMesh
	default:
		return ClassInterior
	}
}
