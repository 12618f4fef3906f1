package bmesh

import "github.com/KnightxMare/blender/common"

// Mesh is a triangulated, orientable surface with boundaries allowed (spec
// section 3). It owns the vertex/edge/face/loop entities and delegates
// logging, attribute interpolation, and n-gon triangulation to the
// collaborators supplied at construction.
type Mesh struct {
	Log  Log
	Attr AttrStore
	Tri  Triangulator

	nextID    int64
	vertCount int64
}

// origDataBytes is the per-vertex cost of the orig-co/orig-no/orig-mask
// snapshot slots in Annotation: two Vec3 (3 float64 each) plus one float64.
const origDataBytes = int64((3 + 3 + 1) * 8)

// OrigDataMemoryBytes reports how much of the mesh's memory is committed to
// per-stroke origdata snapshots (spec 4.11). Every live vertex carries one
// fixed-size slot regardless of whether CheckOrigData has touched it yet,
// so this is exact, not an estimate.
func (m *Mesh) OrigDataMemoryBytes() int64 {
	return m.vertCount * origDataBytes
}

// NewMesh builds an empty mesh bound to the given collaborators.
func NewMesh(log Log, attr AttrStore, tri Triangulator) *Mesh {
	return &Mesh{Log: log, Attr: attr, Tri: tri}
}

func (m *Mesh) allocID() int64 {
	m.nextID++
	return m.nextID
}

// VertCreate places a new, disconnected vertex (spec section 6
// "vert_create", simplified here to the bmesh-local primitive; leaf
// placement is package spatial's job).
func (m *Mesh) VertCreate(co, no common.Vec3) *Vert {
	v := &Vert{ID: m.allocID(), AttrBlock: NoAttrHandle}
	v.Co = co
	v.No = no
	v.AttrBlock = m.Attr.Alloc(AttrVert)
	v.Ann.OrigCo, v.Ann.OrigNo = v.Co, v.No
	m.vertCount++
	if m.Log != nil {
		m.Log.VertAdded(v)
	}
	return v
}

// EdgeExists returns the existing edge between v1 and v2, or nil.
func (m *Mesh) EdgeExists(v1, v2 *Vert) *Edge {
	if v1.edge == nil {
		return nil
	}
	var found *Edge
	common_DoWhileEdge(v1, func(e *Edge) bool {
		if e.OtherVert(v1) == v2 {
			found = e
			return true
		}
		return false
	})
	return found
}

// EdgeGetOrCreate returns the existing edge between v1 and v2, or creates
// one, copying head-flags from example if given, and logging the creation
// (spec 4.1).
func (m *Mesh) EdgeGetOrCreate(v1, v2 *Vert, example *Edge) *Edge {
	if e := m.EdgeExists(v1, v2); e != nil {
		return e
	}
	e := &Edge{ID: m.allocID(), V1: v1, V2: v2}
	if example != nil {
		e.Head = example.Head
	}
	diskInsert(v1, e)
	diskInsert(v2, e)
	MarkDirty(v1)
	MarkDirty(v2)
	if m.Log != nil {
		m.Log.EdgeAdded(e)
	}
	return e
}

// diskInsert splices e into v's disk cycle. A vertex with no edges yet gets
// a self-referential cycle of one.
func diskInsert(v *Vert, e *Edge) {
	if v.edge == nil {
		v.edge = e
		setDiskLink(e, v, e, e)
		return
	}
	first := v.edge
	last := diskPrev(first, v)
	setDiskLink(e, v, first, last)
	setDiskNextOf(last, v, e)
	setDiskPrevOf(first, v, e)
}

// diskRemove splices e out of v's disk cycle.
func diskRemove(v *Vert, e *Edge) {
	next := diskNext(e, v)
	prev := diskPrev(e, v)
	if next == e {
		v.edge = nil
		return
	}
	setDiskNextOf(prev, v, next)
	setDiskPrevOf(next, v, prev)
	if v.edge == e {
		v.edge = next
	}
}

// EdgeDiskNext returns the next edge in v's disk cycle after e (spec 4.1,
// design note in section 9: exposed as first/next functions rather than an
// iterator object).
func EdgeDiskNext(e *Edge, v *Vert) *Edge { return diskNext(e, v) }

// FirstEdge returns v's representative disk-cycle edge, or nil if v is
// isolated. Paired with EdgeDiskNext, callers write a simple do-while over
// the disk cycle (spec section 9).
func FirstEdge(v *Vert) *Edge { return v.edge }

func diskNext(e *Edge, v *Vert) *Edge {
	if v == e.V1 {
		return e.v1Next
	}
	return e.v2Next
}

func diskPrev(e *Edge, v *Vert) *Edge {
	if v == e.V1 {
		return e.v1Prev
	}
	return e.v2Prev
}

func setDiskLink(e *Edge, v *Vert, next, prev *Edge) {
	if v == e.V1 {
		e.v1Next, e.v1Prev = next, prev
	} else {
		e.v2Next, e.v2Prev = next, prev
	}
}

func setDiskNextOf(e *Edge, v *Vert, next *Edge) {
	if v == e.V1 {
		e.v1Next = next
	} else {
		e.v2Next = next
	}
}

func setDiskPrevOf(e *Edge, v *Vert, prev *Edge) {
	if v == e.V1 {
		e.v1Prev = prev
	} else {
		e.v2Prev = prev
	}
}

// OtherVert returns the endpoint of e that is not v.
func (e *Edge) OtherVert(v *Vert) *Vert {
	if e.V1 == v {
		return e.V2
	}
	return e.V1
}

// common_DoWhileEdge walks v's disk cycle calling visit on each edge until
// visit returns true or the cycle closes.
func common_DoWhileEdge(v *Vert, visit func(*Edge) bool) {
	first := FirstEdge(v)
	if first == nil {
		return
	}
	e := first
	for {
		if visit(e) {
			return
		}
		e = EdgeDiskNext(e, v)
		if e == first {
			return
		}
	}
}

// FaceExists reports whether a triangle with exactly these three vertices
// (in any rotation) already exists, by walking the radial cycle of the
// edge between v[0] and v[1].
func (m *Mesh) FaceExists(v [3]*Vert) *Face {
	e := m.EdgeExists(v[0], v[1])
	if e == nil || e.Loop == nil {
		return nil
	}
	var found *Face
	l := e.Loop
	for {
		if loopTriHasVerts(l, v) {
			found = l.Face
			break
		}
		l = l.RadialNext
		if l == e.Loop {
			break
		}
	}
	return found
}

func loopTriHasVerts(l *Loop, v [3]*Vert) bool {
	f := l.Face
	if f.Len != 3 {
		return false
	}
	has := func(want *Vert) bool {
		c := f.First
		for {
			if c.Vert == want {
				return true
			}
			c = c.Next
			if c == f.First {
				return false
			}
		}
	}
	return has(v[0]) && has(v[1]) && has(v[2])
}

// FaceExistsTriFromLoopVert is the triangle-specialized lookup used by C6
// step 9: given a loop L whose edge's radial cycle we want to search, does
// a triangle already exist using L's edge plus vOpp?
func FaceExistsTriFromLoopVert(lRadial *Loop, vOpp *Vert) *Face {
	e := lRadial.Edge
	if e.Loop == nil {
		return nil
	}
	v := [3]*Vert{e.V1, e.V2, vOpp}
	l := e.Loop
	for {
		if loopTriHasVerts(l, v) {
			return l.Face
		}
		l = l.RadialNext
		if l == e.Loop {
			return nil
		}
	}
}

// FaceCreate creates a triangle over v (in loop order), looking up or
// creating each edge, copying head-flags/material from example if given,
// and logging the creation (spec 4.1).
func (m *Mesh) FaceCreate(v [3]*Vert, e [3]*Edge, example *Face) *Face {
	var edges [3]*Edge
	for i := 0; i < 3; i++ {
		if e[i] != nil {
			edges[i] = e[i]
		} else {
			edges[i] = m.EdgeGetOrCreate(v[i], v[(i+1)%3], nil)
		}
	}
	f := &Face{ID: m.allocID(), Len: 3, AttrBlock: NoAttrHandle}
	if example != nil {
		f.Head = example.Head
		f.Material = example.Material
	}
	f.AttrBlock = m.Attr.Alloc(AttrFace)

	loops := make([]*Loop, 3)
	for i := 0; i < 3; i++ {
		l := &Loop{ID: m.allocID(), Vert: v[i], Edge: edges[i], Face: f, AttrBlock: NoAttrHandle}
		l.AttrBlock = m.Attr.Alloc(AttrLoop)
		loops[i] = l
	}
	for i := 0; i < 3; i++ {
		loops[i].Next = loops[(i+1)%3]
		loops[i].Prev = loops[(i+2)%3]
		radialInsert(edges[i], loops[i])
	}
	f.First = loops[0]

	for i := 0; i < 3; i++ {
		MarkDirty(v[i])
	}
	if m.Log != nil {
		m.Log.FaceAdded(f)
	}
	return f
}

func radialInsert(e *Edge, l *Loop) {
	if e.Loop == nil {
		e.Loop = l
		l.RadialNext, l.RadialPrev = l, l
		return
	}
	first := e.Loop
	last := first.RadialPrev
	l.RadialNext, l.RadialPrev = first, last
	last.RadialNext = l
	first.RadialPrev = l
}

func radialRemove(e *Edge, l *Loop) {
	if l.RadialNext == l {
		e.Loop = nil
		return
	}
	l.RadialPrev.RadialNext = l.RadialNext
	l.RadialNext.RadialPrev = l.RadialPrev
	if e.Loop == l {
		e.Loop = l.RadialNext
	}
}

// EdgeLoopPair is the fast path for a manifold edge with exactly two
// incident loops (spec 4.1). ok is false if the edge has 0, 1, or more than
// 2 loops.
func EdgeLoopPair(e *Edge) (l0, l1 *Loop, ok bool) {
	if e.Loop == nil {
		return nil, nil, false
	}
	l0 = e.Loop
	l1 = l0.RadialNext
	if l1 == l0 {
		return nil, nil, false
	}
	if l1.RadialNext != l0 {
		return nil, nil, false // 3+ loops, non-manifold
	}
	return l0, l1, true
}

// EdgeLoopCount counts the incident loops on e's radial cycle (0 for wire).
func EdgeLoopCount(e *Edge) int {
	if e.Loop == nil {
		return 0
	}
	n := 0
	l := e.Loop
	for {
		n++
		l = l.RadialNext
		if l == e.Loop {
			return n
		}
	}
}

// FaceKill unlinks f's loops from their edges' radial cycles and frees
// them, without touching the edges or vertices themselves.
func (m *Mesh) FaceKill(f *Face) {
	if m.Log != nil {
		m.Log.FaceRemoved(f)
	}
	l := f.First
	for i := 0; i < f.Len; i++ {
		next := l.Next
		radialRemove(l.Edge, l)
		if l.AttrBlock != NoAttrHandle {
			m.Attr.Free(AttrLoop, l.AttrBlock)
		}
		l = next
	}
	if f.AttrBlock != NoAttrHandle {
		m.Attr.Free(AttrFace, f.AttrBlock)
	}
}

// EdgeKill unlinks e from both endpoints' disk cycles and frees it. The
// caller must ensure e is wire (EdgeLoopCount == 0); killing a
// loop-carrying edge would orphan its loops.
func (m *Mesh) EdgeKill(e *Edge) {
	if m.Log != nil {
		m.Log.EdgeRemoved(e)
	}
	diskRemove(e.V1, e)
	diskRemove(e.V2, e)
	MarkDirty(e.V1)
	MarkDirty(e.V2)
}

// VertKill frees v. The caller must ensure v is isolated (no incident
// edges); killing a connected vertex would orphan its edges.
func (m *Mesh) VertKill(v *Vert) {
	if m.Log != nil {
		m.Log.VertRemoved(v)
	}
	if v.AttrBlock != NoAttrHandle {
		m.Attr.Free(AttrVert, v.AttrBlock)
	}
	m.vertCount--
}

// VertRevived re-counts v toward OrigDataMemoryBytes. A log collaborator's
// undo of a kill reuses the existing *Vert rather than calling VertCreate
// (the vertex's identity survives its own removal so redo can find it
// again), so it must report the revival here instead.
func (m *Mesh) VertRevived() {
	m.vertCount++
}

// Valence returns the number of edges incident to v by walking the disk
// cycle; it does not consult or update the NEEDS_VALENCE cache.
func Valence(v *Vert) int {
	n := 0
	common_DoWhileEdge(v, func(*Edge) bool { n++; return false })
	return n
}

// FaceVerts returns f's corner vertices in loop order. Panics if f.Len != 3;
// callers operate on a triangle-only core past the triangulation boundary.
func FaceVerts(f *Face) [3]*Vert {
	common_assertTri(f)
	return [3]*Vert{f.First.Vert, f.First.Next.Vert, f.First.Next.Next.Vert}
}

func common_assertTri(f *Face) {
	if f.Len != 3 || f.First.Next.Next.Next != f.First {
		panic("bmesh: face is not a triangle")
	}
}
