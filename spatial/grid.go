package spatial

import (
	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// tileHash mixes a cell coordinate triple into a bucket index the same way
// the teacher's ComputeTileHash mixes tile (x, y) into a lookup-table slot:
// two large odd multiplicative constants plus a power-of-two mask.
func tileHash(x, y, z, mask int32) int32 {
	h1 := uint32(0x8da6b343)
	h2 := uint32(0xd8163841)
	h3 := uint32(0xcb1ab31f)
	n := h1*uint32(x) + h2*uint32(y) + h3*uint32(z)
	return int32(n & uint32(mask))
}

// Grid is a reference spatial.Hierarchy: a uniform grid of cubical cells,
// each cell one leaf, addressed by a hashed (x,y,z) cell coordinate the way
// the teacher's tile lookup table addresses (tx,ty) tiles. It exists to
// drive the cmd harness and the property tests; a host with a real
// PBVH/BVH/octree supplies its own Hierarchy instead.
type Grid struct {
	cellSize  float64
	faceLimit int
	mask      int32
	buckets   map[int32][]*Leaf
	nextIndex int32
	byIndex   map[int32]*Leaf
}

// NewGrid builds an empty grid with the given cell size and default
// per-leaf face limit.
func NewGrid(cellSize float64, faceLimit int) *Grid {
	return &Grid{
		cellSize:  cellSize,
		faceLimit: faceLimit,
		mask:      1<<12 - 1,
		buckets:   make(map[int32][]*Leaf),
		byIndex:   make(map[int32]*Leaf),
	}
}

func (g *Grid) cellOf(p common.Vec3) (int32, int32, int32) {
	return int32(floorDiv(p[0], g.cellSize)), int32(floorDiv(p[1], g.cellSize)), int32(floorDiv(p[2], g.cellSize))
}

func floorDiv(v, size float64) float64 {
	q := v / size
	if q < 0 {
		return q - 1
	}
	return q
}

// leafAt returns the leaf owning the grid cell containing p, creating one
// if none exists yet.
func (g *Grid) leafAt(p common.Vec3) *Leaf {
	cx, cy, cz := g.cellOf(p)
	h := tileHash(cx, cy, cz, g.mask)
	for _, l := range g.buckets[h] {
		if cellEqual(l, cx, cy, cz, g.cellSize) {
			return l
		}
	}
	l := newLeaf(g.nextIndex, g.faceLimit)
	g.nextIndex++
	l.cellX, l.cellY, l.cellZ = cx, cy, cz
	g.buckets[h] = append(g.buckets[h], l)
	g.byIndex[l.Index] = l
	return l
}

func cellEqual(l *Leaf, cx, cy, cz int32, size float64) bool {
	return l.cellX == cx && l.cellY == cy && l.cellZ == cz
}

func faceCentroid(f *bmesh.Face) common.Vec3 {
	v := bmesh.FaceVerts(f)
	return v[0].Co.Add(v[1].Co).Add(v[2].Co).Mul(1.0 / 3.0)
}

// InsertFace implements Hierarchy.
func (g *Grid) InsertFace(f *bmesh.Face) int32 {
	return g.leafAt(faceCentroid(f)).Index
}

// InsertFaceFinalize implements Hierarchy.
func (g *Grid) InsertFaceFinalize(f *bmesh.Face, leafIndex int32) {
	l := g.byIndex[leafIndex]
	if l == nil {
		return
	}
	for _, v := range bmesh.FaceVerts(f) {
		l.BB.Grow(v.Co)
	}
	l.markDirty(DirtyBB | DirtyTris)
}

// EnsureLeafLimit implements Hierarchy. A uniform grid has no smaller unit
// to split into below one cell, so it always declines (spec 4.10: "or
// decline ... when the leaf is below the minimum splittable size").
func (g *Grid) EnsureLeafLimit(leaf int32) ([]int32, bool) {
	return nil, false
}

// CheckTris implements Hierarchy; the grid keeps no separate triangulation
// cache, so this only clears the dirty bit.
func (g *Grid) CheckTris(leaf int32) {
	if l := g.byIndex[leaf]; l != nil {
		l.Dirty &^= DirtyTris
	}
}

// Leaf implements Hierarchy.
func (g *Grid) Leaf(index int32) *Leaf {
	return g.byIndex[index]
}
