package spatial

import (
	"testing"

	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

func assertTrue(t *testing.T, value bool, msg string) {
	if !value {
		t.Errorf(msg)
	}
}

func triFace(m *bmesh.Mesh, a, b, c common.Vec3) *bmesh.Face {
	va := m.VertCreate(a, common.Vec3{0, 0, 1})
	vb := m.VertCreate(b, common.Vec3{0, 0, 1})
	vc := m.VertCreate(c, common.Vec3{0, 0, 1})
	return m.FaceCreate([3]*bmesh.Vert{va, vb, vc}, [3]*bmesh.Edge{}, nil)
}

func TestGridLeafAtIsStableForSameCell(t *testing.T) {
	m := bmesh.NewMesh(nil, &stubAttr{}, nil)
	g := NewGrid(1.0, 4)
	f1 := triFace(m, common.Vec3{0.1, 0.1, 0.1}, common.Vec3{0.2, 0.1, 0.1}, common.Vec3{0.1, 0.2, 0.1})
	f2 := triFace(m, common.Vec3{0.3, 0.3, 0.3}, common.Vec3{0.4, 0.3, 0.3}, common.Vec3{0.3, 0.4, 0.3})

	l1 := g.InsertFace(f1)
	l2 := g.InsertFace(f2)
	assertTrue(t, l1 == l2, "two faces centroid in the same grid cell land in the same leaf")

	far := triFace(m, common.Vec3{50, 50, 50}, common.Vec3{51, 50, 50}, common.Vec3{50, 51, 50})
	l3 := g.InsertFace(far)
	assertTrue(t, l3 != l1, "a far-away face lands in a different leaf")
}

func TestGridInsertFaceFinalizeGrowsBB(t *testing.T) {
	m := bmesh.NewMesh(nil, &stubAttr{}, nil)
	g := NewGrid(10.0, 4)
	f := triFace(m, common.Vec3{0, 0, 0}, common.Vec3{2, 0, 0}, common.Vec3{0, 2, 0})
	leaf := g.InsertFace(f)
	g.InsertFaceFinalize(f, leaf)

	l := g.Leaf(leaf)
	assertTrue(t, l != nil, "Leaf returns the leaf created by InsertFace")
	assertTrue(t, l.BB.Min[0] <= 0 && l.BB.Max[0] >= 2, "InsertFaceFinalize grows the leaf's bounding box to cover the face")
	assertTrue(t, l.Dirty&DirtyBB != 0, "InsertFaceFinalize marks the leaf's bounding box dirty")
}

func TestGridEnsureLeafLimitAlwaysDeclines(t *testing.T) {
	g := NewGrid(1.0, 1)
	m := bmesh.NewMesh(nil, &stubAttr{}, nil)
	f := triFace(m, common.Vec3{0, 0, 0}, common.Vec3{0.1, 0, 0}, common.Vec3{0, 0.1, 0})
	leaf := g.InsertFace(f)
	split, ok := g.EnsureLeafLimit(leaf)
	assertTrue(t, !ok && split == nil, "a uniform grid has no smaller unit to split into, so it always declines")
}

func TestGridUnknownLeafReturnsNil(t *testing.T) {
	g := NewGrid(1.0, 4)
	assertTrue(t, g.Leaf(999) == nil, "an index nothing ever inserted into returns nil")
}

// stubAttr is a minimal bmesh.AttrStore for tests that only need VertCreate/
// FaceCreate to succeed, not real attribute interpolation.
type stubAttr struct{ next int32 }

func (a *stubAttr) Alloc(bmesh.AttrKind) int32 { a.next++; return a.next - 1 }
func (*stubAttr) Free(bmesh.AttrKind, int32)   {}
func (*stubAttr) Interp(bmesh.AttrKind, int32, []int32, []float64) {}
func (*stubAttr) Copy(bmesh.AttrKind, int32, int32)     {}
func (*stubAttr) SwapSimple(bmesh.AttrKind, int32, int32) {}
