package equeue

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/spatial"
)

// depthStart is the even-subdivision depth named in spec 4.4 past which
// expand applies the front-face test to the edges it propagates into.
const depthStart = 5

// Stats are the accumulated edge-length statistics spec 3 says C4 collects
// during construction.
type Stats struct {
	Avg, Min, Max float64
	Count         int
}

// Config parameterizes one Build call (spec 3: "the region ..., the length
// threshold, and a recursion-base length").
type Config struct {
	Mode       Mode
	Region     Region
	ViewNormal *common.Vec3 // nil disables the front-face dot-product test
	UpperLen   float64      // subdivide threshold, in length (not squared)
	LowerLen   float64      // collapse threshold, in length
	BaseLen    float64      // recursion-base length for even subdivision
	MaskCB     func(v *bmesh.Vert) float64
	Workers    int
	// SmoothCB, when set, is offered every vertex visited during the scan
	// (spec 4.8: C8 "runs opportunistically inside C4's parallel scan").
	// rng is seeded per leaf so concurrent scan workers never share
	// mutable RNG state (spec 9's "seeding per thread for reproducibility").
	SmoothCB func(v *bmesh.Vert, rng *rand.Rand)
}

// Queue is C4's built priority container: two independent heaps (subdivide
// candidates, collapse candidates), the accumulated stats, and the
// low-valence watchlist collected during the merge (spec 4.4: "insert into
// the watchlist any vertex whose valence is < 5").
type Queue struct {
	cfg        Config
	subdivideQ *nodeQueue[*entry]
	collapseQ  *nodeQueue[*entry]
	Watchlist  []*bmesh.Vert
	Stats      Stats
}

type leafScratch struct {
	subdivide  []*entry
	collapse   []*entry
	lowValence []*bmesh.Vert
	lengths    []float64
}

// Build runs the two-phase construction of spec 4.4: phase A scans leaves
// in parallel into per-worker scratch buffers, phase B merges them
// single-threaded into the heaps, recomputing any vertex annotation whose
// NEEDS_* bit is set along the way.
func Build(m *bmesh.Mesh, leaves []*spatial.Leaf, cfg Config) *Queue {
	q := &Queue{
		cfg:        cfg,
		subdivideQ: newNodeQueue[*entry](less),
		collapseQ:  newNodeQueue[*entry](less),
	}

	pool := newScanPool(orDefault(cfg.Workers, 4))
	results := make([]leafScratch, len(leaves))
	pool.run(len(leaves), func(i int) {
		results[i] = q.scanLeaf(leaves[i])
	})

	var lengths []float64
	seenLowValence := make(map[*bmesh.Vert]bool)
	for _, r := range results {
		for _, e := range r.subdivide {
			q.subdivideQ.offer(e)
		}
		for _, e := range r.collapse {
			q.collapseQ.offer(e)
		}
		for _, v := range r.lowValence {
			if !seenLowValence[v] {
				seenLowValence[v] = true
				if v.Ann.Flags&bmesh.NeedsValence != 0 {
					bmesh.UpdateValence(v)
				}
				if v.Ann.Flags&bmesh.NeedsBoundary != 0 {
					bmesh.CheckVertBoundary(v)
				}
				if int(v.Ann.Valence) < 5 {
					q.Watchlist = append(q.Watchlist, v)
				}
			}
		}
		lengths = append(lengths, r.lengths...)
	}

	if len(lengths) > 0 {
		q.Stats.Count = len(lengths)
		q.Stats.Avg = stat.Mean(lengths, nil)
		q.Stats.Min = floats.Min(lengths)
		q.Stats.Max = floats.Max(lengths)
	}
	return q
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func (q *Queue) maskWeight(e *bmesh.Edge) float64 {
	if q.cfg.MaskCB == nil {
		return 1
	}
	return 0.5 * (q.cfg.MaskCB(e.V1) + q.cfg.MaskCB(e.V2))
}

func faceNormal(f *bmesh.Face) common.Vec3 {
	v := bmesh.FaceVerts(f)
	return v[1].Co.Sub(v[0].Co).Cross(v[2].Co.Sub(v[0].Co)).Normalize()
}

func findEdgeBetween(a, b *bmesh.Vert) *bmesh.Edge {
	e := bmesh.FirstEdge(a)
	if e == nil {
		return nil
	}
	start := e
	for {
		if e.OtherVert(a) == b {
			return e
		}
		e = bmesh.EdgeDiskNext(e, a)
		if e == start {
			return nil
		}
	}
}

func (q *Queue) scanLeaf(leaf *spatial.Leaf) leafScratch {
	var sc leafScratch
	var rng *rand.Rand
	if q.cfg.SmoothCB != nil {
		rng = rand.New(rand.NewSource(int64(leaf.Index) + 1))
	}
	for f := range leaf.Faces {
		if !q.cfg.Region.TriInRange(f) {
			continue
		}
		if q.cfg.ViewNormal != nil && faceNormal(f).Dot(*q.cfg.ViewNormal) < 0 {
			continue
		}
		verts := bmesh.FaceVerts(f)
		edges := [3]*bmesh.Edge{
			findEdgeBetween(verts[0], verts[1]),
			findEdgeBetween(verts[1], verts[2]),
			findEdgeBetween(verts[2], verts[0]),
		}
		for _, e := range edges {
			if e != nil {
				e.Scratch = false
			}
		}
		for _, e := range edges {
			if e != nil {
				q.visitEdge(e, &sc, 0)
			}
		}
		for _, v := range verts {
			if int(v.Ann.Valence) < 5 || v.Ann.Flags&bmesh.NeedsValence != 0 {
				sc.lowValence = append(sc.lowValence, v)
			}
			if q.cfg.SmoothCB != nil {
				q.cfg.SmoothCB(v, rng)
			}
		}
	}
	return sc
}

func (q *Queue) visitEdge(e *bmesh.Edge, sc *leafScratch, depth int) {
	if e.Scratch {
		return
	}
	e.Scratch = true

	lenSq := distSq(e.V1.Co, e.V2.Co)
	sc.lengths = append(sc.lengths, math.Sqrt(lenSq))
	w := q.maskWeight(e)

	if q.cfg.Mode&ModeSubdivide != 0 {
		upperSq := q.cfg.UpperLen * q.cfg.UpperLen
		if lenSq*w*w > upperSq {
			sc.subdivide = append(sc.subdivide, &entry{v1: e.V1, v2: e.V2, priority: -lenSq * w * w, forSplit: true})
			q.expand(e, lenSq, depth, sc, true)
		}
	}
	if q.cfg.Mode&ModeCollapse != 0 && w > 0 {
		lowerSq := q.cfg.LowerLen * q.cfg.LowerLen
		val := lenSq / (w * w)
		if val < lowerSq {
			sc.collapse = append(sc.collapse, &entry{v1: e.V1, v2: e.V2, priority: val})
			q.expand(e, lenSq, depth, sc, false)
		}
	}
}

// evenEdgeLenThreshold and evenGenerationScale are spec 4.4's even-
// subdivision propagation constants, applied directly to squared lengths
// (never squared again) and compounding multiplicatively per recursion
// depth, per dyntopo.c's EVEN_EDGELEN_THRESHOLD/EVEN_GENERATION_SCALE.
const (
	evenEdgeLenThreshold = 1.2
	evenGenerationScale  = 1.1
)

// expand is the even-subdivision recursive propagation of spec 4.4: visit
// e's radial neighbours (the far edges of the one or two triangles
// incident to e) and, for any neighbour whose length² clears both the 1.2x
// relative margin and a base length that compounds by 1.1x per depth, tag
// and queue it too, recursing until depth exceeds depthStart and a
// front-face check trips, or no neighbour qualifies. forSplit selects the
// subdivide-side test; the collapse side is the mirror image (below, not
// above, the margins).
func (q *Queue) expand(e *bmesh.Edge, parentLenSq float64, depth int, sc *leafScratch, forSplit bool) {
	base := q.cfg.BaseLen * math.Pow(evenGenerationScale, float64(depth))
	baseSq := base * base
	for _, n := range adjacentEdges(e) {
		if n.Scratch {
			continue
		}
		nLenSq := distSq(n.V1.Co, n.V2.Co)
		qualifies := false
		if forSplit {
			qualifies = nLenSq > parentLenSq*evenEdgeLenThreshold && nLenSq > baseSq
		} else {
			qualifies = nLenSq < parentLenSq/evenEdgeLenThreshold && nLenSq < baseSq
		}
		if !qualifies {
			continue
		}
		if depth > depthStart && q.cfg.ViewNormal != nil && n.Loop != nil &&
			faceNormal(n.Loop.Face).Dot(*q.cfg.ViewNormal) < 0 {
			continue
		}
		n.Scratch = true
		w := q.maskWeight(n)
		if forSplit {
			sc.subdivide = append(sc.subdivide, &entry{v1: n.V1, v2: n.V2, priority: -nLenSq * w * w, forSplit: true})
		} else if w > 0 {
			sc.collapse = append(sc.collapse, &entry{v1: n.V1, v2: n.V2, priority: nLenSq / (w * w)})
		}
		q.expand(n, nLenSq, depth+1, sc, forSplit)
	}
}

// adjacentEdges returns, for each loop in e's radial cycle, the other two
// edges of that loop's triangle — the set a triangle fan walk would call
// e's neighbours across the mesh.
func adjacentEdges(e *bmesh.Edge) []*bmesh.Edge {
	if e.Loop == nil {
		return nil
	}
	var out []*bmesh.Edge
	l := e.Loop
	for {
		out = append(out, l.Next.Edge, l.Prev.Edge)
		l = l.RadialNext
		if l == e.Loop {
			break
		}
	}
	return out
}
