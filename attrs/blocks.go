// Package attrs is the reference bmesh.AttrStore: every vertex, loop, and
// face attribute block is a fixed-width slice of float64s in a flat arena,
// indexed by handle, so allocation never touches the Go heap once an arena
// has grown to its high-water mark. This mirrors the teacher's own
// preference for flat slice-backed buffers (e.g. detour_navmesh.go's tile
// data arrays) over per-node heap allocation.
package attrs

import "github.com/KnightxMare/blender/bmesh"

// Blocks is the reference bmesh.AttrStore: one flat arena per AttrKind, with a
// freelist of reclaimed handles so repeated subdivide/collapse passes do
// not grow the arenas without bound.
type Blocks struct {
	width [3]int
	arena [3][]float64
	free  [3][]int32
}

// NewBlocks builds an empty store with the given per-kind widths, indexed
// by bmesh.AttrKind.
func NewBlocks(vertWidth, loopWidth, faceWidth int) *Blocks {
	b := &Blocks{}
	b.width[bmesh.AttrVert] = vertWidth
	b.width[bmesh.AttrLoop] = loopWidth
	b.width[bmesh.AttrFace] = faceWidth
	return b
}

// Alloc implements bmesh.AttrStore.
func (b *Blocks) Alloc(kind bmesh.AttrKind) int32 {
	w := b.width[kind]
	if w == 0 {
		return bmesh.NoAttrHandle
	}
	if n := len(b.free[kind]); n > 0 {
		h := b.free[kind][n-1]
		b.free[kind] = b.free[kind][:n-1]
		clearBlock(b.arena[kind], h, w)
		return h
	}
	h := int32(len(b.arena[kind]) / w)
	b.arena[kind] = append(b.arena[kind], make([]float64, w)...)
	return h
}

// Free implements bmesh.AttrStore.
func (b *Blocks) Free(kind bmesh.AttrKind, handle int32) {
	if handle == bmesh.NoAttrHandle {
		return
	}
	b.free[kind] = append(b.free[kind], handle)
}

func (b *Blocks) slice(kind bmesh.AttrKind, handle int32) []float64 {
	w := b.width[kind]
	off := int(handle) * w
	return b.arena[kind][off : off+w]
}

func clearBlock(arena []float64, handle int32, w int) {
	off := int(handle) * w
	for i := off; i < off+w; i++ {
		arena[i] = 0
	}
}

// Interp implements bmesh.AttrStore: dst receives sum(srcs[i] * ws[i]),
// channel by channel.
func (b *Blocks) Interp(kind bmesh.AttrKind, dst int32, srcs []int32, ws []float64) {
	if dst == bmesh.NoAttrHandle || b.width[kind] == 0 {
		return
	}
	out := b.slice(kind, dst)
	for i := range out {
		out[i] = 0
	}
	for i, src := range srcs {
		if src == bmesh.NoAttrHandle {
			continue
		}
		s := b.slice(kind, src)
		w := ws[i]
		for c := range out {
			out[c] += s[c] * w
		}
	}
}

// Copy implements bmesh.AttrStore.
func (b *Blocks) Copy(kind bmesh.AttrKind, src, dst int32) {
	if src == bmesh.NoAttrHandle || dst == bmesh.NoAttrHandle || b.width[kind] == 0 {
		return
	}
	copy(b.slice(kind, dst), b.slice(kind, src))
}

// SwapSimple implements bmesh.AttrStore.
func (b *Blocks) SwapSimple(kind bmesh.AttrKind, a, c int32) {
	if a == bmesh.NoAttrHandle || c == bmesh.NoAttrHandle || b.width[kind] == 0 {
		return
	}
	sa, sc := b.slice(kind, a), b.slice(kind, c)
	for i := range sa {
		sa[i], sc[i] = sc[i], sa[i]
	}
}
