package remesh

import (
	"math"
	"testing"

	"go.uber.org/zap"

	"github.com/KnightxMare/blender/attrs"
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
	"github.com/KnightxMare/blender/equeue"
	"github.com/KnightxMare/blender/oplog"
	"github.com/KnightxMare/blender/spatial"
	"github.com/KnightxMare/blender/triangulate"
)

func assertTrue(t *testing.T, value bool, msg string) {
	if !value {
		t.Errorf(msg)
	}
}

func newTestMesh() *bmesh.Mesh {
	return bmesh.NewMesh(oplog.NewRecorder(), attrs.NewBlocks(1, 1, 1), triangulate.EarClip{})
}

// octahedron builds a unit octahedron, registers every face and vertex
// with owner, and returns the eight faces and six verts in a fixed order
// (px, nx, py, ny, pz, nz) so tests can reach any corner by name.
func octahedron(m *bmesh.Mesh, owner *spatial.Owner, leaf int32) (verts [6]*bmesh.Vert, faces []*bmesh.Face) {
	axis := []common.Vec3{
		{1, 0, 0}, {-1, 0, 0},
		{0, 1, 0}, {0, -1, 0},
		{0, 0, 1}, {0, 0, -1},
	}
	for i, p := range axis {
		verts[i] = m.VertCreate(p, p.Normalize())
	}
	px, nx, py, ny, pz, nz := verts[0], verts[1], verts[2], verts[3], verts[4], verts[5]
	tris := [8][3]*bmesh.Vert{
		{px, py, pz}, {py, nx, pz}, {nx, ny, pz}, {ny, px, pz},
		{py, px, nz}, {nx, py, nz}, {ny, nx, nz}, {px, ny, nz},
	}
	for _, tr := range tris {
		f := m.FaceCreate(tr, [3]*bmesh.Edge{}, nil)
		owner.FaceAdd(f, false)
		for _, v := range tr {
			owner.VertOwnershipTransfer(v, leaf)
		}
		faces = append(faces, f)
	}
	return
}

// TestCollapserNeverLeavesDanglingRedirection is property P5: once a
// collapse removes a vertex, Resolve always walks the chain to a live
// vertex (or reports ok=false for the one that's fully gone), never a
// freed/dangling pointer.
func TestCollapserNeverLeavesDanglingRedirection(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)
	px, nx, py, ny, pz, nz := verts[0], verts[1], verts[2], verts[3], verts[4], verts[5]
	_ = nz

	edge := m.EdgeExists(px, py)
	assertTrue(t, edge != nil, "px-py is an edge of the seed octahedron")

	c := NewCollapser(m, owner, 1)
	ok := c.Collapse(px, py, edge)
	assertTrue(t, ok, "collapsing a well-formed manifold edge succeeds")

	conn, resolved := c.Resolve(py)
	assertTrue(t, resolved, "the surviving endpoint resolves to itself")
	pxResolved, pxOk := c.Resolve(px)
	assertTrue(t, pxOk, "the deleted endpoint resolves through the chain rather than reporting gone")
	assertTrue(t, pxResolved == conn, "both original endpoints now resolve to the same surviving vertex")

	assertTrue(t, bmesh.Valence(conn) > 0, "the surviving vertex keeps its incident edges")
	assertTrue(t, bmesh.FirstEdge(px) == nil, "the removed vertex is fully isolated, never left half-wired")

	// nx/ny/pz were not endpoints of the collapse, so each still resolves
	// to itself.
	for _, v := range []*bmesh.Vert{nx, ny, pz} {
		r, ok := c.Resolve(v)
		assertTrue(t, ok && r == v, "a vertex uninvolved in the collapse resolves to itself")
	}
}

// TestSubdivideInsertsMidpointAndRetriangulates is the core S-scenario for
// C5: splitting a manifold edge replaces its two triangles with four, the
// midpoint sits exactly halfway, and both original endpoints keep their
// valence (each trades its spoke to the other for a spoke to the midpoint).
func TestSubdivideInsertsMidpointAndRetriangulates(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)
	px, py, pz := verts[0], verts[2], verts[4]

	edge := m.EdgeExists(px, py)
	assertTrue(t, edge != nil, "px-py is an edge of the seed octahedron")
	beforeValPx := bmesh.Valence(px)
	beforeValPy := bmesh.Valence(py)
	beforeNeighboursPx := neighbourSet(px)

	n := Subdivide(m, owner, []Pending{{V1: px, V2: py}}, 7)
	assertTrue(t, n == 1, "one pending edge produces one split")

	assertTrue(t, m.EdgeExists(px, py) == nil, "the original edge no longer connects its endpoints directly")
	// Splitting px-py trades that one spoke for a spoke to the midpoint on
	// each side, so px/py's own valence is unchanged; it's the two opposite
	// (wing) vertices that each pick up an extra spoke to the midpoint.
	assertTrue(t, bmesh.Valence(px) == beforeValPx, "px's valence is unchanged: it trades its spoke to py for one to the midpoint")
	assertTrue(t, bmesh.Valence(py) == beforeValPy, "py's valence is unchanged for the same reason")

	// px's neighbour set lost py and gained exactly one new vertex: the
	// midpoint. Octahedron faces mean pz and nz are shared neighbours of
	// both px and py, so a same-distance search from py isn't enough to
	// isolate it — the set difference against px's own prior neighbours is.
	afterNeighboursPx := neighbourSet(px)
	var newOnes []*bmesh.Vert
	for v := range afterNeighboursPx {
		if !beforeNeighboursPx[v] {
			newOnes = append(newOnes, v)
		}
	}
	assertTrue(t, len(newOnes) == 1, "px gains exactly one vertex it wasn't already connected to")
	mid := newOnes[0]

	want := px.Co.Add(py.Co.Sub(px.Co).Mul(0.5))
	assertTrue(t, mid.Co.ApproxEqual(want), "the midpoint sits exactly halfway between the original endpoints")
	assertTrue(t, mid.Ann.StrokeID == 7, "the new vertex is stamped with the calling stroke id")
	assertTrue(t, bmesh.Valence(mid) == 4, "the midpoint of a manifold interior edge picks up valence 4 (two wings x two spokes)")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{px, mid, pz}) != nil || m.FaceExists([3]*bmesh.Vert{mid, px, pz}) != nil,
		"one of the four rebuilt triangles covers px-mid-pz")
}

// TestSubdivideTwoTaggedEdgesOnOneFace exercises the two-adjacent-tagged-
// edges case of the split-pattern table (mask 3): a single isolated
// triangle with its first two edges pending produces exactly the three
// corner-snip sub-triangles the table names, not two sequential atomic
// splits' order-dependent result.
func TestSubdivideTwoTaggedEdgesOnOneFace(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)

	v0 := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	v1 := m.VertCreate(common.Vec3{2, 0, 0}, common.Vec3{0, 0, 1})
	v2 := m.VertCreate(common.Vec3{0, 2, 0}, common.Vec3{0, 0, 1})
	f := m.FaceCreate([3]*bmesh.Vert{v0, v1, v2}, [3]*bmesh.Edge{}, nil)
	owner.FaceAdd(f, false)
	for _, v := range []*bmesh.Vert{v0, v1, v2} {
		owner.VertOwnershipTransfer(v, 0)
	}

	n := Subdivide(m, owner, []Pending{{V1: v0, V2: v1}, {V1: v1, V2: v2}}, 3)
	assertTrue(t, n == 2, "two distinct pending edges are both processed")

	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v0, v1, v2}) == nil, "the original triangle is gone")

	want0 := common.Lerp(v0.Co, v1.Co, 0.5)
	want1 := common.Lerp(v1.Co, v2.Co, 0.5)
	v1Neighbours := neighbourSet(v1)
	assertTrue(t, len(v1Neighbours) == 2, "v1's only two tagged spokes are replaced by spokes to the two midpoints")
	var m0, m1 *bmesh.Vert
	for nb := range v1Neighbours {
		if nb.Co.ApproxEqual(want0) {
			m0 = nb
		} else if nb.Co.ApproxEqual(want1) {
			m1 = nb
		}
	}
	assertTrue(t, m0 != nil && m1 != nil, "v1's two remaining neighbours are exactly the two edge midpoints")

	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v1, m1, m0}) != nil, "corner-snip triangle at v1 exists")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{m0, m1, v2}) != nil, "the middle triangle of the split exists")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{m0, v2, v0}) != nil, "the triangle closing back to v0 exists")
}

// TestSubdivideThreeTaggedEdgesOnOneFace exercises the all-three-tagged
// case (mask 7): the canonical medial-triangle pattern, not whatever a
// sequence of three independent atomic splits would happen to produce.
func TestSubdivideThreeTaggedEdgesOnOneFace(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)

	v0 := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	v1 := m.VertCreate(common.Vec3{2, 0, 0}, common.Vec3{0, 0, 1})
	v2 := m.VertCreate(common.Vec3{0, 2, 0}, common.Vec3{0, 0, 1})
	f := m.FaceCreate([3]*bmesh.Vert{v0, v1, v2}, [3]*bmesh.Edge{}, nil)
	owner.FaceAdd(f, false)
	for _, v := range []*bmesh.Vert{v0, v1, v2} {
		owner.VertOwnershipTransfer(v, 0)
	}

	n := Subdivide(m, owner, []Pending{{V1: v0, V2: v1}, {V1: v1, V2: v2}, {V1: v2, V2: v0}}, 4)
	assertTrue(t, n == 3, "three distinct pending edges are all processed")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v0, v1, v2}) == nil, "the original triangle is gone")

	want0 := common.Lerp(v0.Co, v1.Co, 0.5)
	want1 := common.Lerp(v1.Co, v2.Co, 0.5)
	want2 := common.Lerp(v2.Co, v0.Co, 0.5)

	var m0, m1, m2 *bmesh.Vert
	for _, set := range []map[*bmesh.Vert]bool{neighbourSet(v0), neighbourSet(v1), neighbourSet(v2)} {
		for nb := range set {
			switch {
			case nb.Co.ApproxEqual(want0):
				m0 = nb
			case nb.Co.ApproxEqual(want1):
				m1 = nb
			case nb.Co.ApproxEqual(want2):
				m2 = nb
			}
		}
	}
	assertTrue(t, m0 != nil && m1 != nil && m2 != nil, "all three edge midpoints were inserted")

	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v0, m0, m2}) != nil, "corner triangle at v0 exists")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v1, m1, m0}) != nil, "corner triangle at v1 exists")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{v2, m2, m1}) != nil, "corner triangle at v2 exists")
	assertTrue(t, m.FaceExists([3]*bmesh.Vert{m0, m1, m2}) != nil, "the medial triangle exists")
}

// TestCollapsePreservesSeamOnBothSurvivingEdges is spec 4.6 step 7a's case:
// a seam flag set on one of a wing triangle's two non-collapsed edges must
// still reach the other, since the union was previously computed from one
// edge alone and written one-way.
//
// Collapse(v1, v2, e) always deletes v1 when both masks are zero (the
// conn/del tie-break picks v2). For the wing triangle's loop l whose
// l.Edge == e and l.Vert == del, loop-order (Edge[i] runs Vert[i]->Vert[i+1])
// guarantees l.Prev.Edge touches del and is about to be killed off as part
// of del's residual disk cycle, while l.Next.Edge touches conn and survives
// the call untouched. Seeding the seam on the doomed edge and checking the
// surviving one is therefore the only direction that actually exercises the
// union: checking the reverse would pass even under the one-way bug, since
// nothing ever strips flags back off the edge they started on.
func TestCollapsePreservesSeamOnBothSurvivingEdges(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)
	px, py := verts[0], verts[2]

	edge := m.EdgeExists(px, py)
	assertTrue(t, edge != nil, "px-py is an edge of the seed octahedron")
	l0, l1, ok := bmesh.EdgeLoopPair(edge)
	assertTrue(t, ok, "px-py is manifold with two incident faces")

	var target *bmesh.Loop
	if l0.Vert == px {
		target = l0
	} else {
		target = l1
	}
	survivor, doomed := target.Next.Edge, target.Prev.Edge
	doomed.Head |= bmesh.FlagSeam

	c := NewCollapser(m, owner, 1)
	ok = c.Collapse(px, py, edge)
	assertTrue(t, ok, "collapsing a well-formed manifold edge succeeds")

	assertTrue(t, survivor.Head&bmesh.FlagSeam != 0, "the seam flag reached the surviving edge it wasn't originally set on")
}

func neighbourSet(v *bmesh.Vert) map[*bmesh.Vert]bool {
	out := make(map[*bmesh.Vert]bool)
	e := bmesh.FirstEdge(v)
	if e == nil {
		return out
	}
	start := e
	for {
		out[e.OtherVert(v)] = true
		e = bmesh.EdgeDiskNext(e, v)
		if e == start {
			break
		}
	}
	return out
}

// TestCleanupRemovesInteriorValence4Vertex is property P6: every vertex of
// a freshly built octahedron has valence 4 and no boundary/corner flags,
// so Cleanup collapses it into its fan, shrinking the mesh by one vertex
// and two faces (four old wing faces replaced by two).
func TestCleanupRemovesInteriorValence4Vertex(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)
	pz := verts[4]

	for _, v := range verts {
		v.Ann.Flags |= bmesh.NeedsBoundary | bmesh.NeedsValence
	}

	region := equeue.Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 1e9}
	removed := Cleanup(m, owner, region, []*bmesh.Vert{pz})
	assertTrue(t, removed == 1, "an interior valence-4 vertex is removed by Cleanup")
	assertTrue(t, bmesh.FirstEdge(pz) == nil, "the removed vertex is fully isolated afterward")
}

// TestCleanupSkipsBoundaryVertex is property P6's negative case: a vertex
// on an open boundary is never removed, even at valence 3 or 4.
func TestCleanupSkipsBoundaryVertex(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)

	// An open fan of two triangles around centre: valence 3, but the outer
	// spokes to a and c each have only one incident face, so centre is
	// boundary.
	centre := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	a := m.VertCreate(common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1})
	b := m.VertCreate(common.Vec3{0, 1, 0}, common.Vec3{0, 0, 1})
	c := m.VertCreate(common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1})
	f1 := m.FaceCreate([3]*bmesh.Vert{centre, a, b}, [3]*bmesh.Edge{}, nil)
	f2 := m.FaceCreate([3]*bmesh.Vert{centre, b, c}, [3]*bmesh.Edge{}, nil)
	owner.FaceAdd(f1, false)
	owner.FaceAdd(f2, false)
	for _, v := range []*bmesh.Vert{centre, a, b, c} {
		owner.VertOwnershipTransfer(v, 0)
		v.Ann.Flags |= bmesh.NeedsBoundary | bmesh.NeedsValence
	}

	region := equeue.Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 1e9}
	removed := Cleanup(m, owner, region, []*bmesh.Vert{centre})
	assertTrue(t, removed == 0, "a boundary vertex at valence 3 is left alone")
	assertTrue(t, bmesh.Valence(centre) == 3, "centre is untouched")
}

// TestCleanupSkipsVertexOutOfRange is spec 4.7's 1.25x watchlist cutoff:
// a watchlisted vertex outside region.RangeSq()*1.5625 is left alone.
func TestCleanupSkipsVertexOutOfRange(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(1000, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)
	pz := verts[4]
	for _, v := range verts {
		v.Ann.Flags |= bmesh.NeedsBoundary | bmesh.NeedsValence
	}

	// A tiny region centred far from the mesh: pz's DistSq clears the
	// 1.25x cutoff easily.
	region := equeue.Sphere{Center: common.Vec3{1000, 1000, 1000}, RadiusSq: 1}
	removed := Cleanup(m, owner, region, []*bmesh.Vert{pz})
	assertTrue(t, removed == 0, "a vertex well outside the region's 1.25x cutoff is never touched")
	assertTrue(t, bmesh.Valence(pz) == 4, "pz is untouched")
}

// TestCleanupValence4AtOrigin is the literal interior-valence-4 scenario:
// a vertex at the origin surrounded by four triangles fanned out to
// (1,0,0), (0,1,0), (-1,0,0), (0,-1,0) is removed, leaving exactly two
// triangles built from the four outer vertices and none referencing the
// origin.
func TestCleanupValence4AtOrigin(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 64)
	owner := spatial.NewOwner(grid)

	centre := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	e := m.VertCreate(common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1})
	n := m.VertCreate(common.Vec3{0, 1, 0}, common.Vec3{0, 0, 1})
	w := m.VertCreate(common.Vec3{-1, 0, 0}, common.Vec3{0, 0, 1})
	s := m.VertCreate(common.Vec3{0, -1, 0}, common.Vec3{0, 0, 1})

	faces := []*bmesh.Face{
		m.FaceCreate([3]*bmesh.Vert{centre, e, n}, [3]*bmesh.Edge{}, nil),
		m.FaceCreate([3]*bmesh.Vert{centre, n, w}, [3]*bmesh.Edge{}, nil),
		m.FaceCreate([3]*bmesh.Vert{centre, w, s}, [3]*bmesh.Edge{}, nil),
		m.FaceCreate([3]*bmesh.Vert{centre, s, e}, [3]*bmesh.Edge{}, nil),
	}
	for _, f := range faces {
		owner.FaceAdd(f, false)
	}
	outer := []*bmesh.Vert{centre, e, n, w, s}
	for _, v := range outer {
		owner.VertOwnershipTransfer(v, 0)
		v.Ann.Flags |= bmesh.NeedsBoundary | bmesh.NeedsValence
	}

	region := equeue.Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 1e9}
	removed := Cleanup(m, owner, region, []*bmesh.Vert{centre})
	assertTrue(t, removed == 1, "the origin's interior valence-4 vertex is removed")
	assertTrue(t, bmesh.FirstEdge(centre) == nil, "the origin is fully isolated afterward")

	remaining := 0
	for _, a := range []*bmesh.Vert{e, n, w, s} {
		for _, b := range []*bmesh.Vert{e, n, w, s} {
			for _, c := range []*bmesh.Vert{e, n, w, s} {
				if a == b || b == c || a == c {
					continue
				}
				if f := m.FaceExists([3]*bmesh.Vert{a, b, c}); f != nil {
					remaining++
				}
			}
		}
	}
	// Each surviving triangle is counted 6 times (3! vertex orderings).
	assertTrue(t, remaining == 12, "exactly two triangles remain over the four outer vertices")
	// Four rim edges plus the one chosen diagonal: the diagonal's two
	// endpoints end at valence 3, the other two outer vertices at valence 2.
	valenceSum := 0
	for _, v := range []*bmesh.Vert{e, n, w, s} {
		val := bmesh.Valence(v)
		assertTrue(t, val == 2 || val == 3, "each outer vertex borders its two rim neighbours, plus the far end of the diagonal if it lies on it")
		valenceSum += val
	}
	assertTrue(t, valenceSum == 10, "the four rim edges and one diagonal give the outer vertices a total valence of 10")
}

// TestUpdateTopologyEndToEnd is an S-scenario: a single driver pass over
// the whole octahedron with aggressive subdivide/collapse thresholds
// reports modified=true and leaves the mesh in a state CheckTris/EnsureLeafLimit
// can still be queried against without error.
func TestUpdateTopologyEndToEnd(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(1.5, 64)
	owner := spatial.NewOwner(grid)
	verts, _ := octahedron(m, owner, 0)

	leaves := touchedLeaves(grid, owner, verts[:])
	assertTrue(t, len(leaves) > 0, "the seed octahedron's verts own at least one leaf")

	driver := NewDriver(m, owner, grid, zap.NewNop())
	region := equeue.Sphere{Center: common.Vec3{0, 0, 0}, RadiusSq: 9}
	params := Params{
		Region:       region,
		Leaves:       leaves,
		Mode:         ModeCollapse | ModeSubdivide | ModeCleanup,
		MinTargetLen: 0.5,
		MaxTargetLen: 1.0,
		UpdateHier:   true,
		StrokeID:     1,
		Workers:      2,
	}
	modified, err := driver.UpdateTopology(params)
	assertTrue(t, err == nil, "a well-formed call over known-good leaves never errors")
	// The octahedron's edges are all length sqrt(2) ~= 1.41, over
	// MaxTargetLen (1.0), so at least the subdivide phase fires.
	assertTrue(t, modified, "an octahedron whose edges all exceed MaxTargetLen is modified by the pass")
}

// TestUpdateTopologyConvergesToMaxLen is the literal subdivide-convergence
// scenario: a single triangle, min_len 0.1, max_len 0.3, run through
// repeated driver passes until nothing changes. Every edge then measures at
// most max_len*sqrt(1.2) (the even-subdivision threshold itself, since a
// fresh split can leave a sibling edge up to that much over max_len before
// its own turn comes around), and the three original corners are still
// present.
func TestUpdateTopologyConvergesToMaxLen(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(100, 10000)
	owner := spatial.NewOwner(grid)

	v0 := m.VertCreate(common.Vec3{0, 0, 0}, common.Vec3{0, 0, 1})
	v1 := m.VertCreate(common.Vec3{1, 0, 0}, common.Vec3{0, 0, 1})
	v2 := m.VertCreate(common.Vec3{0, 1, 0}, common.Vec3{0, 0, 1})
	f := m.FaceCreate([3]*bmesh.Vert{v0, v1, v2}, [3]*bmesh.Edge{}, nil)
	owner.FaceAdd(f, false)
	for _, v := range []*bmesh.Vert{v0, v1, v2} {
		owner.VertOwnershipTransfer(v, 0)
	}

	leaves := touchedLeaves(grid, owner, []*bmesh.Vert{v0, v1, v2})
	assertTrue(t, len(leaves) == 1, "the seed triangle's three corners all own the same leaf")

	driver := NewDriver(m, owner, grid, zap.NewNop())
	region := equeue.Sphere{Center: common.Vec3{0.33, 0.33, 0}, RadiusSq: 100}
	params := Params{
		Region:       region,
		Leaves:       leaves,
		Mode:         ModeSubdivide,
		MinTargetLen: 0.1,
		MaxTargetLen: 0.3,
		UpdateHier:   true,
		StrokeID:     1,
		Workers:      1,
	}
	for i := 0; i < 30; i++ {
		modified, err := driver.UpdateTopology(params)
		assertTrue(t, err == nil, "a well-formed subdivide-only call never errors")
		if !modified {
			break
		}
	}

	limitSq := (0.3 * math.Sqrt(1.2)) * (0.3 * math.Sqrt(1.2))
	for e := range leafEdges(leaves[0]) {
		lenSq := e.V1.Co.Sub(e.V2.Co).Dot(e.V1.Co.Sub(e.V2.Co))
		assertTrue(t, lenSq <= limitSq+1e-9, "every edge converges to at most max_len times the even-subdivision threshold")
	}
	for _, v := range []*bmesh.Vert{v0, v1, v2} {
		assertTrue(t, bmesh.Valence(v) > 0, "the original corner is still present after convergence")
	}
}

// TestUpdateTopologyRejectsCorruptLeafIndex is the one fatal condition
// spec section 7 names: a leaf index the hierarchy no longer recognizes.
func TestUpdateTopologyRejectsCorruptLeafIndex(t *testing.T) {
	m := newTestMesh()
	grid := spatial.NewGrid(1.5, 64)
	owner := spatial.NewOwner(grid)
	driver := NewDriver(m, owner, grid, zap.NewNop())

	bogus := &spatial.Leaf{Index: 999, Verts: map[*bmesh.Vert]struct{}{}, Faces: map[*bmesh.Face]struct{}{}}
	_, err := driver.UpdateTopology(Params{Leaves: []*spatial.Leaf{bogus}, Region: equeue.Sphere{RadiusSq: 1}})
	assertTrue(t, err != nil, "a leaf index the hierarchy doesn't recognize is the one fatal error this core returns")
}

// leafEdges collects, once each, every edge of every face leaf owns.
func leafEdges(leaf *spatial.Leaf) map[*bmesh.Edge]bool {
	out := make(map[*bmesh.Edge]bool)
	for f := range leaf.Faces {
		l := f.First
		for i := 0; i < f.Len; i++ {
			out[l.Edge] = true
			l = l.Next
		}
	}
	return out
}

func touchedLeaves(grid *spatial.Grid, owner *spatial.Owner, verts []*bmesh.Vert) []*spatial.Leaf {
	seenIdx := make(map[int32]bool)
	var out []*spatial.Leaf
	for _, v := range verts {
		idx := owner.VertLeaf(v)
		if idx == spatial.NoLeaf || seenIdx[idx] {
			continue
		}
		seenIdx[idx] = true
		if l := grid.Leaf(idx); l != nil {
			out = append(out, l)
		}
	}
	return out
}
