package oplog

import (
	"github.com/KnightxMare/blender/bmesh"
)

// Recorder is the reference bmesh.Log: it appends one event per call in
// call order, and ReplayReverse walks that slice backwards performing the
// inverse of each, restoring the mesh to its state before the recorded
// calls (testable property P7). It keeps no serialized form — undo is an
// in-memory, current-session feature, matching spec section 6's "no
// on-disk format for the core".
type Recorder struct {
	events []event
}

// NewRecorder returns an empty log.
func NewRecorder() *Recorder { return &Recorder{} }

// Len reports how many events are currently recorded.
func (r *Recorder) Len() int { return len(r.events) }

// Truncate drops all recorded events, e.g. once a stroke's undo step has
// been committed and no longer needs reversing.
func (r *Recorder) Truncate() { r.events = r.events[:0] }

func (r *Recorder) EntryAdd(name string) {
	r.events = append(r.events, entryEvent{name: name})
}

func (r *Recorder) VertAdded(v *bmesh.Vert) {
	r.events = append(r.events, vertAddedEvent{v: v})
}

func (r *Recorder) VertModified(v *bmesh.Vert, snapshotOrigData bool) {
	r.events = append(r.events, vertModifiedEvent{v: v, co: v.Co, no: v.No, mask: v.Mask})
	if snapshotOrigData {
		bmesh.CheckOrigData(v, v.Ann.StrokeID)
	}
}

func (r *Recorder) VertRemoved(v *bmesh.Vert) {
	r.events = append(r.events, vertRemovedEvent{v: v})
}

func (r *Recorder) EdgeAdded(e *bmesh.Edge) {
	r.events = append(r.events, edgeAddedEvent{e: e})
}

func (r *Recorder) EdgeRemoved(e *bmesh.Edge) {
	r.events = append(r.events, edgeRemovedEvent{v1: e.V1, v2: e.V2, head: e.Head})
}

func (r *Recorder) FaceAdded(f *bmesh.Face) {
	r.events = append(r.events, faceAddedEvent{f: f})
}

func (r *Recorder) FaceRemoved(f *bmesh.Face) {
	r.events = append(r.events, faceRemovedEvent{verts: bmesh.FaceVerts(f), head: f.Head, material: f.Material})
}

// EdgeSplitDo implements the atomic split spec 4.5 asks the log
// collaborator for: kill the up-to-two triangles incident to e, insert the
// midpoint vertex M, and rebuild four (or two, at a boundary; zero, for a
// wire edge) triangles in M's place. Every sub-step runs through m's
// ordinary public API, so it logs itself through this same Recorder — the
// split needs no event type of its own, just the EntryAdd bracket that
// lets a host collapse it into a single undo step.
func (r *Recorder) EdgeSplitDo(m *bmesh.Mesh, e *bmesh.Edge, pivot *bmesh.Vert, t float64) *bmesh.Vert {
	r.EntryAdd("edge_split")

	v1, v2 := e.V1, e.V2
	if pivot == v2 {
		v1, v2 = v2, v1
		t = 1 - t
	}

	type wing struct {
		face *bmesh.Face
		a, b *bmesh.Vert // this face's visiting order of the shared edge
		opp  *bmesh.Vert
		head bmesh.HeadFlag
		mat  int32
	}
	var wings []wing
	switch {
	case bmesh.EdgeLoopCount(e) == 2:
		l0, l1, ok := bmesh.EdgeLoopPair(e)
		if ok {
			wings = append(wings,
				wing{l0.Face, l0.Vert, l0.Next.Vert, l0.Next.Next.Vert, l0.Face.Head, l0.Face.Material},
				wing{l1.Face, l1.Vert, l1.Next.Vert, l1.Next.Next.Vert, l1.Face.Head, l1.Face.Material},
			)
		}
	case bmesh.EdgeLoopCount(e) == 1:
		l := e.Loop
		wings = append(wings, wing{l.Face, l.Vert, l.Next.Vert, l.Next.Next.Vert, l.Face.Head, l.Face.Material})
	}

	for _, w := range wings {
		m.FaceKill(w.face)
	}
	// Killing every incident face always leaves e wire, whether it started
	// that way or had one or two triangles.
	m.EdgeKill(e)

	mid := v1.Co.Add(v2.Co.Sub(v1.Co).Mul(t))
	midNo := v1.No.Add(v2.No.Sub(v1.No).Mul(t))
	mv := m.VertCreate(mid, midNo)
	mv.Ann.Flags |= bmesh.NeedsValence | bmesh.NeedsBoundary | bmesh.NeedsDiskSort
	mv.Ann.StrokeID = v1.Ann.StrokeID

	if len(wings) == 0 {
		m.EdgeGetOrCreate(v1, mv, e)
		m.EdgeGetOrCreate(mv, v2, e)
		return mv
	}

	for _, w := range wings {
		example := &bmesh.Face{Head: w.head, Material: w.mat}
		if w.a == v1 {
			m.FaceCreate([3]*bmesh.Vert{v1, mv, w.opp}, [3]*bmesh.Edge{}, example)
			m.FaceCreate([3]*bmesh.Vert{mv, v2, w.opp}, [3]*bmesh.Edge{}, example)
		} else {
			m.FaceCreate([3]*bmesh.Vert{v2, mv, w.opp}, [3]*bmesh.Edge{}, example)
			m.FaceCreate([3]*bmesh.Vert{mv, v1, w.opp}, [3]*bmesh.Edge{}, example)
		}
	}

	return mv
}
