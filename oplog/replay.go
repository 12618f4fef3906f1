package oplog

import "github.com/KnightxMare/blender/bmesh"

// ReplayReverse undoes every recorded event, most recent first, restoring m
// to the state it was in before this Recorder's first call (property P7).
// It does not truncate the log; callers that are done with the undo step
// call Truncate separately.
func (r *Recorder) ReplayReverse(m *bmesh.Mesh) {
	for i := len(r.events) - 1; i >= 0; i-- {
		r.events[i].undo(m)
	}
}
