package oplog

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// event is one undo-log entry. undo performs the inverse of whatever the
// Log call recorded, operating only through bmesh's exported primitives so
// oplog never needs access to the mesh's internal disk/radial bookkeeping.
type event interface {
	undo(m *bmesh.Mesh)
}

type entryEvent struct{ name string }

func (entryEvent) undo(*bmesh.Mesh) {}

type vertAddedEvent struct{ v *bmesh.Vert }

func (ev vertAddedEvent) undo(m *bmesh.Mesh) {
	if bmesh.Valence(ev.v) == 0 {
		m.VertKill(ev.v)
	}
}

type vertModifiedEvent struct {
	v      *bmesh.Vert
	co, no common.Vec3
	mask   float64
}

func (ev vertModifiedEvent) undo(*bmesh.Mesh) {
	ev.v.Co, ev.v.No, ev.v.Mask = ev.co, ev.no, ev.mask
}

type vertRemovedEvent struct{ v *bmesh.Vert }

func (ev vertRemovedEvent) undo(m *bmesh.Mesh) {
	// VertKill only frees the vertex's attribute block; its position,
	// normal, and mask are left untouched, so reviving it only needs a
	// fresh block (the freed block's contents are not recoverable here —
	// the attribute store, not the log, owns that data).
	ev.v.AttrBlock = m.Attr.Alloc(bmesh.AttrVert)
	m.VertRevived()
}

type edgeAddedEvent struct{ e *bmesh.Edge }

func (ev edgeAddedEvent) undo(m *bmesh.Mesh) {
	if bmesh.EdgeLoopCount(ev.e) == 0 {
		m.EdgeKill(ev.e)
	}
}

type edgeRemovedEvent struct {
	v1, v2 *bmesh.Vert
	head   bmesh.HeadFlag
}

func (ev edgeRemovedEvent) undo(m *bmesh.Mesh) {
	m.EdgeGetOrCreate(ev.v1, ev.v2, &bmesh.Edge{Head: ev.head})
}

type faceAddedEvent struct{ f *bmesh.Face }

func (ev faceAddedEvent) undo(m *bmesh.Mesh) {
	m.FaceKill(ev.f)
}

type faceRemovedEvent struct {
	verts    [3]*bmesh.Vert
	head     bmesh.HeadFlag
	material int32
}

func (ev faceRemovedEvent) undo(m *bmesh.Mesh) {
	m.FaceCreate(ev.verts, [3]*bmesh.Edge{}, &bmesh.Face{Head: ev.head, Material: ev.material})
}
