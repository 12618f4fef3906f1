package remesh

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/equeue"
	"github.com/KnightxMare/blender/spatial"
)

// Cleanup runs C7 over the valence watchlist C4/C5 populated, collapsing
// interior valence-3 and valence-4 vertices into their neighbouring fan.
// It returns the number of vertices removed.
func Cleanup(m *bmesh.Mesh, owner *spatial.Owner, region equeue.Region, watchlist []*bmesh.Vert) int {
	removed := 0
	outerCutSq := region.RangeSq() * 1.5625 // 1.25²
	for _, v := range watchlist {
		if bmesh.Valence(v) == 0 {
			continue
		}
		if region.DistSq(v) > outerCutSq {
			continue
		}
		triangulateFanIfNeeded(m, v)
		if v.Ann.Flags&bmesh.NeedsValence != 0 {
			bmesh.UpdateValence(v)
		}
		if v.Ann.Flags&bmesh.NeedsBoundary != 0 {
			bmesh.CheckVertBoundary(v)
		}
		val := int(v.Ann.Valence)
		if val != 3 && val != 4 {
			continue
		}
		if v.Ann.IsBoundary() || v.Ann.IsCorner() {
			continue
		}
		ls, ok := fanOppositeLoops(v)
		if !ok || len(ls) != val {
			continue
		}

		owner.VertRemove(v)

		var news []*bmesh.Face
		if val == 3 {
			nf := m.FaceCreate([3]*bmesh.Vert{ls[0].Vert, ls[1].Vert, ls[2].Vert}, [3]*bmesh.Edge{}, ls[0].Face)
			copyPositional(m, nf, ls)
			news = append(news, nf)
		} else {
			na := diagonalNormalAgreement(ls[0].Vert, ls[1].Vert, ls[2].Vert, ls[3].Vert)
			nb := diagonalNormalAgreement(ls[1].Vert, ls[2].Vert, ls[3].Vert, ls[0].Vert)
			var f1, f2 *bmesh.Face
			if na >= nb {
				f1 = m.FaceCreate([3]*bmesh.Vert{ls[0].Vert, ls[1].Vert, ls[2].Vert}, [3]*bmesh.Edge{}, ls[0].Face)
				f2 = m.FaceCreate([3]*bmesh.Vert{ls[0].Vert, ls[2].Vert, ls[3].Vert}, [3]*bmesh.Edge{}, ls[0].Face)
			} else {
				f1 = m.FaceCreate([3]*bmesh.Vert{ls[1].Vert, ls[2].Vert, ls[3].Vert}, [3]*bmesh.Edge{}, ls[0].Face)
				f2 = m.FaceCreate([3]*bmesh.Vert{ls[1].Vert, ls[3].Vert, ls[0].Vert}, [3]*bmesh.Edge{}, ls[0].Face)
			}
			copyPositional(m, f1, ls)
			copyPositional(m, f2, ls)
			news = append(news, f1, f2)
		}

		oldFaces := make(map[*bmesh.Face]bool)
		for _, l := range ls {
			oldFaces[l.Face] = true
		}
		for f := range oldFaces {
			owner.FaceRemove(f, true, true)
			m.FaceKill(f)
		}

		for _, e := range residualEdges(v) {
			m.EdgeKill(e)
		}
		m.VertKill(v)

		for _, nf := range news {
			owner.FaceAdd(nf, false)
			l := nf.First
			for i := 0; i < 3; i++ {
				bmesh.MarkDirty(l.Vert)
				l = l.Next
			}
		}
		removed++
	}
	return removed
}

// fanOppositeLoops walks the fan of faces around v, starting from v's first
// disk-cycle edge: for each edge it finds the loop at v in whichever of its
// two faces claims that orientation, records the loop opposite v within
// that face, and steps to the face's other edge at v, so the loops come out
// in ring order (spec 4.7 "ordered fan of opposite-edge loops"). ok is false
// if a non-manifold edge, a face visited twice, or a repeated opposite
// vertex is encountered.
func fanOppositeLoops(v *bmesh.Vert) ([]*bmesh.Loop, bool) {
	e := bmesh.FirstEdge(v)
	if e == nil {
		return nil, false
	}
	start := e
	var out []*bmesh.Loop
	seenFace := make(map[*bmesh.Face]bool)
	seenVert := make(map[*bmesh.Vert]bool)
	for {
		l0, l1, ok := bmesh.EdgeLoopPair(e)
		if !ok {
			return nil, false
		}
		var atV *bmesh.Loop
		switch v {
		case l0.Vert:
			atV = l0
		case l1.Vert:
			atV = l1
		default:
			return nil, false
		}
		if seenFace[atV.Face] {
			return nil, false
		}
		seenFace[atV.Face] = true
		opp := atV.Next
		if seenVert[opp.Vert] {
			return nil, false
		}
		seenVert[opp.Vert] = true
		out = append(out, opp)
		e = atV.Prev.Edge
		if e == start {
			break
		}
	}
	return out, true
}

// copyPositional copies each new loop's attribute block from whichever ls
// entry shares its corner vertex (spec 4.7 "copying attributes positionally").
func copyPositional(m *bmesh.Mesh, f *bmesh.Face, ls []*bmesh.Loop) {
	l := f.First
	for i := 0; i < 3; i++ {
		for _, src := range ls {
			if src.Vert == l.Vert {
				m.Attr.Copy(bmesh.AttrLoop, src.AttrBlock, l.AttrBlock)
				break
			}
		}
		l = l.Next
	}
}

// diagonalNormalAgreement scores the diagonal (a,c) of quad a-b-c-d by the
// dot product of the two triangles' normals (spec 4.7: pick the diagonal
// whose split yields the smoother surface).
func diagonalNormalAgreement(a, b, c, d *bmesh.Vert) float64 {
	n1 := triNormal(a.Co, b.Co, c.Co)
	n2 := triNormal(a.Co, c.Co, d.Co)
	return n1.Dot(n2)
}

func triNormal(a, b, c common.Vec3) common.Vec3 {
	return b.Sub(a).Cross(c.Sub(a)).Normalize()
}
