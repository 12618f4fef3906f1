package bmesh

// edgeClass categorizes an incident edge for the purpose of boundary/corner
// classification (spec 4.2). An edge can be "open" (fewer than 2 loops,
// i.e. a true mesh boundary edge) or, for a manifold two-loop edge, carry a
// seam/sharp head-flag, or separate two different material ids (the
// stand-in this core uses for a face-set boundary, since full face-set
// grouping is a host concept this core does not otherwise model).
type edgeClass int

const (
	classNone edgeClass = iota
	classMesh
	classFaceSet
	classSharp
	classSeam
)

func classifyEdge(e *Edge) edgeClass {
	n := EdgeLoopCount(e)
	if n < 2 {
		return classMesh
	}
	if e.Head&FlagSeam != 0 {
		return classSeam
	}
	if e.Head&FlagSharp != 0 {
		return classSharp
	}
	if l0, l1, ok := EdgeLoopPair(e); ok && l0.Face.Material != l1.Face.Material {
		return classFaceSet
	}
	return classNone
}

// CheckVertBoundary recomputes V's boundary/corner bits from the current
// disk cycle if NEEDS_BOUNDARY is set, then clears the flag (spec 4.2).
//
// A vertex with exactly two incident edges of a given class continues that
// class's boundary chain (the *_BOUNDARY bit); one edge (a chain endpoint)
// or three-or-more (a branch point) makes it a corner for that class (the
// *_CORNER bit) — this operationalizes the spec's "a vertex where two
// boundary chains meet".
func CheckVertBoundary(v *Vert) {
	if v.Ann.Flags&NeedsBoundary == 0 {
		return
	}
	v.Ann.Flags &^= allBoundaryMask | allCornerMask

	var counts [5]int
	common_DoWhileEdge(v, func(e *Edge) bool {
		counts[classifyEdge(e)]++
		return false
	})

	set := func(boundaryBit, cornerBit VFlag, n int) {
		switch {
		case n == 2:
			v.Ann.Flags |= boundaryBit
		case n == 1 || n >= 3:
			v.Ann.Flags |= cornerBit
		}
	}
	set(FlagBoundaryBit, FlagCornerBit, counts[classMesh])
	set(FlagFsetBoundaryBit, FlagFsetCornerBit, counts[classFaceSet])
	set(FlagSharpBoundaryBit, FlagSharpCornerBit, counts[classSharp])
	set(FlagSeamBoundaryBit, FlagSeamCornerBit, counts[classSeam])

	v.Ann.Flags &^= NeedsBoundary
}

// UpdateValence recounts V's incident edges, caches the result, and clears
// NEEDS_VALENCE (spec 4.2).
func UpdateValence(v *Vert) {
	v.Ann.Valence = int32(Valence(v))
	v.Ann.Flags &^= NeedsValence
}

// CheckOrigData snapshots V's origco/origno/origmask if the vertex has not
// yet been touched for strokeID, and advances its stroke id (spec 4.2).
// Called by the log collaborator before any user-visible modification.
func CheckOrigData(v *Vert, strokeID int64) {
	if v.Ann.StrokeID == strokeID {
		return
	}
	v.Ann.OrigCo = v.Co
	v.Ann.OrigNo = v.No
	v.Ann.OrigMask = v.Mask
	v.Ann.StrokeID = strokeID
}

// MarkDirty sets the NEEDS_VALENCE | NEEDS_BOUNDARY | NEEDS_DISK_SORT bits
// used throughout C5/C6/C7 whenever a vertex's neighbourhood changes.
func MarkDirty(v *Vert) {
	v.Ann.Flags |= NeedsValence | NeedsBoundary | NeedsDiskSort
}
