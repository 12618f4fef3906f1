package remesh

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/spatial"
)

// Collapser runs C6 over a sequence of popped candidates, owning the
// deleted-vertex chain map spec 4.6 describes: a vertex killed by one
// collapse may still be named by a candidate already sitting in the
// queue, so later pops redirect through this map instead of touching a
// freed vertex.
type Collapser struct {
	m        *bmesh.Mesh
	owner    *spatial.Owner
	strokeID int64
	deleted  map[*bmesh.Vert]*bmesh.Vert // value nil means NONE (fully removed)
}

// NewCollapser starts an empty chain for one UpdateTopology call.
func NewCollapser(m *bmesh.Mesh, owner *spatial.Owner, strokeID int64) *Collapser {
	return &Collapser{m: m, owner: owner, strokeID: strokeID, deleted: make(map[*bmesh.Vert]*bmesh.Vert)}
}

// Resolve walks v through the deleted-vertex chain (spec 4.6: "the chain
// cannot cycle by construction"), returning the live vertex it ultimately
// maps to, or ok=false if v was fully removed.
func (c *Collapser) Resolve(v *bmesh.Vert) (*bmesh.Vert, bool) {
	for {
		next, redirected := c.deleted[v]
		if !redirected {
			return v, true
		}
		if next == nil {
			return nil, false
		}
		v = next
	}
}

// Collapse performs the full C6 sequence for one validated candidate
// (v1, v2, e), returning false if a guard clause (seam-chain truncation)
// forces a skip.
func (c *Collapser) Collapse(v1, v2 *bmesh.Vert, e *bmesh.Edge) bool {
	m, owner := c.m, c.owner

	triangulateFanIfNeeded(m, v1)
	triangulateFanIfNeeded(m, v2)
	m.Log.VertModified(v1, true)
	m.Log.VertModified(v2, true)

	if e.Head&bmesh.FlagSeam != 0 {
		if !hasOtherSeamEdge(v1, e) || !hasOtherSeamEdge(v2, e) {
			return false
		}
	}

	conn, del := v2, v1
	if v1.Mask > v2.Mask {
		conn, del = v1, v2
	}

	m.Attr.Interp(bmesh.AttrVert, conn.AttrBlock, []int32{del.AttrBlock, conn.AttrBlock}, []float64{0.5, 0.5})

	owner.VertRemove(del)

	if l0, l1, ok := bmesh.EdgeLoopPair(e); ok {
		for _, l := range [2]*bmesh.Loop{l0, l1} {
			other1, other2 := l.Next.Edge, l.Prev.Edge
			bits := (other1.Head | other2.Head) &^ bmesh.FlagHidden
			other1.Head |= bits
			other2.Head |= bits
			bmesh.MarkDirty(l.Vert)
			bmesh.MarkDirty(l.Next.Vert)
			bmesh.MarkDirty(l.Prev.Vert)
			owner.FaceRemove(l.Face, true, true)
			m.FaceKill(l.Face)
		}
	}
	m.EdgeKill(e)

	wings := collectWingFaces(del)
	var toKill []*bmesh.Face
	var newLoopsAtConn []*bmesh.Loop
	for _, w := range wings {
		if dup := bmesh.FaceExistsTriFromLoopVert(w.oppLoop, conn); dup != nil {
			// (conn, a, b) already exists elsewhere; w.face would become its
			// exact duplicate once del merges into conn, so drop w.face
			// instead of rebuilding it.
			toKill = append(toKill, w.face)
			continue
		}
		leaf := owner.FaceLeaf(w.face)
		nf := m.FaceCreate(w.newVerts(conn), [3]*bmesh.Edge{}, w.face)
		l := nf.First
		for i := 0; i < 3; i++ {
			l.Edge.Head |= w.edgeHead[i] &^ bmesh.FlagHidden
			if l.Vert == conn {
				newLoopsAtConn = append(newLoopsAtConn, l)
			}
			l = l.Next
		}
		if leaf != spatial.NoLeaf {
			owner.FaceAdd(nf, false)
		}
		toKill = append(toKill, w.face)
	}
	snapLoopAttrs(m, conn, newLoopsAtConn)

	for _, f := range toKill {
		verts := bmesh.FaceVerts(f)
		owner.FaceRemove(f, true, true)
		m.FaceKill(f)
		for _, v := range verts {
			if v == del {
				continue
			}
			if bmesh.Valence(v) == 0 {
				owner.VertRemove(v)
				m.VertKill(v)
				c.deleted[v] = nil
			}
		}
	}

	m.Log.VertModified(conn, false)
	conn.Co = conn.Co.Add(del.Co).Mul(0.5)
	conn.No = conn.No.Add(del.No).Normalize()
	bmesh.MarkDirty(conn)
	walkNeighbours(conn, func(n *bmesh.Vert) { bmesh.MarkDirty(n) })
	owner.MarkIncidentLeavesDirty(conn, spatial.DirtyRedraw|spatial.DirtyBB|spatial.DirtyNormals)

	// Every face still touching del has been rebuilt around conn above, so
	// del's remaining disk cycle is all wire; VertKill requires isolation.
	for _, e := range residualEdges(del) {
		m.EdgeKill(e)
	}
	m.VertKill(del)
	c.deleted[del] = conn
	return true
}

// residualEdges collects del's disk cycle up front so killing each edge
// (which splices it out of the cycle) doesn't disturb the walk.
func residualEdges(del *bmesh.Vert) []*bmesh.Edge {
	var out []*bmesh.Edge
	e := bmesh.FirstEdge(del)
	if e == nil {
		return out
	}
	start := e
	for {
		out = append(out, e)
		e = bmesh.EdgeDiskNext(e, del)
		if e == start {
			break
		}
	}
	return out
}

type wingFace struct {
	face     *bmesh.Face
	oppLoop  *bmesh.Loop // the loop, on the edge across from del, whose radial we search for a duplicate
	a, b     *bmesh.Vert // the two non-del corners, in face order
	edgeHead [3]bmesh.HeadFlag
}

func (w wingFace) newVerts(conn *bmesh.Vert) [3]*bmesh.Vert {
	return [3]*bmesh.Vert{conn, w.a, w.b}
}

// collectWingFaces enumerates the faces still incident to del after its
// shared-edge faces have already been killed, capturing per-face what
// Collapse needs to rebuild it around conn instead.
func collectWingFaces(del *bmesh.Vert) []wingFace {
	var out []wingFace
	seen := make(map[*bmesh.Face]bool)
	e := bmesh.FirstEdge(del)
	if e == nil {
		return out
	}
	start := e
	for {
		if l := e.Loop; l != nil {
			first := l
			for {
				f := l.Face
				if !seen[f] && l.Vert == del {
					seen[f] = true
					a, b := l.Next.Vert, l.Next.Next.Vert
					out = append(out, wingFace{
						face:    f,
						oppLoop: l.Next,
						a:       a,
						b:       b,
						edgeHead: [3]bmesh.HeadFlag{l.Edge.Head, l.Next.Edge.Head, l.Prev.Edge.Head},
					})
				}
				l = l.RadialNext
				if l == first {
					break
				}
			}
		}
		e = bmesh.EdgeDiskNext(e, del)
		if e == start {
			break
		}
	}
	return out
}

// snapLoopAttrs blends the attribute blocks of every loop newly created at
// conn into one value and copies it back out, matching spec 4.6 step 10's
// "seamless attribute continuity across the collapse".
func snapLoopAttrs(m *bmesh.Mesh, conn *bmesh.Vert, loops []*bmesh.Loop) {
	if len(loops) == 0 {
		return
	}
	srcs := make([]int32, len(loops))
	ws := make([]float64, len(loops))
	for i, l := range loops {
		srcs[i] = l.AttrBlock
		ws[i] = 1.0 / float64(len(loops))
	}
	m.Attr.Interp(bmesh.AttrLoop, loops[0].AttrBlock, srcs, ws)
	for _, l := range loops[1:] {
		m.Attr.Copy(bmesh.AttrLoop, loops[0].AttrBlock, l.AttrBlock)
	}
}

func hasOtherSeamEdge(v *bmesh.Vert, excl *bmesh.Edge) bool {
	found := false
	walkEdges(v, func(e *bmesh.Edge) bool {
		if e != excl && e.Head&bmesh.FlagSeam != 0 {
			found = true
			return true
		}
		return false
	})
	return found
}

func walkNeighbours(v *bmesh.Vert, visit func(*bmesh.Vert)) {
	walkEdges(v, func(e *bmesh.Edge) bool {
		visit(e.OtherVert(v))
		return false
	})
}

func walkEdges(v *bmesh.Vert, visit func(*bmesh.Edge) bool) {
	e := bmesh.FirstEdge(v)
	if e == nil {
		return
	}
	start := e
	for {
		if visit(e) {
			return
		}
		e = bmesh.EdgeDiskNext(e, v)
		if e == start {
			return
		}
	}
}
