package equeue

import "github.com/KnightxMare/blender/bmesh"

// Mode selects which direction(s) of candidate the queue collects (spec
// 4.4: "mode bitmask").
type Mode uint32

const (
	ModeSubdivide Mode = 1 << iota
	ModeCollapse
	ModeFrontFaceOnly
)

// entry is one candidate edge (spec 3: "a pair (v1, v2) plus a scalar
// priority"). V1/V2, not the *bmesh.Edge pointer, are the queue's primary
// key — spec 3 requires pop to keep working even if the edge has been
// deleted by an earlier mutation.
type entry struct {
	v1, v2   *bmesh.Vert
	priority float64
	forSplit bool // true for a subdivide candidate, false for collapse
	index    int
}

func (e *entry) setIndex(i int) { e.index = i }
func (e *entry) getIndex() int  { return e.index }

// less orders ascending by stored priority: callers populate priority with
// -length²×weight² for subdivide candidates (so the longest edge sorts
// first) and length²/weight² for collapse candidates (so the shortest
// sorts first) — the same comparator serves both, per spec 4.4.
func less(a, b *entry) bool { return a.priority < b.priority }
