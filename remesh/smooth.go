package remesh

import (
	"math"
	"math/rand"
	"sync/atomic"
	"unsafe"

	"github.com/KnightxMare/blender/bmesh"
	"github.com/KnightxMare/blender/common"
)

// SmoothProbability is the chance that Smooth relaxes a vertex each time
// C4's parallel pass offers it to C8 (spec 4.8: "applied in expectation
// with probability 0.25").
const SmoothProbability = 0.25

// Smooth applies one tangential-relaxation step to v if it is eligible
// (spec 4.8), called opportunistically from the C4 scan worker that visited
// v. rng is per leaf scan (one per scanLeaf call) so concurrent callers
// never share mutable state.
func Smooth(v *bmesh.Vert, rng *rand.Rand) {
	if v.Ann.IsSmoothCorner() {
		return
	}
	if rng.Float64() >= SmoothProbability {
		return
	}

	var sum common.Vec3
	n := 0
	e := bmesh.FirstEdge(v)
	if e == nil {
		return
	}
	start := e
	for {
		other := e.OtherVert(v)
		if other.Ann.IsSmoothBoundary() == v.Ann.IsSmoothBoundary() {
			sum = sum.Add(other.Co.Sub(v.Co))
			n++
		}
		e = bmesh.EdgeDiskNext(e, v)
		if e == start {
			break
		}
	}
	if n == 0 {
		return
	}
	avg := sum.Mul(1.0 / float64(n))
	tangent := avg.Sub(v.No.Mul(0.99 * avg.Dot(v.No)))
	casAddVec3(v, tangent)
}

// casAddVec3 adds delta onto v.Co one component at a time via compare-and-
// swap on the raw bit pattern (spec section 5: "mutate vertex positions only
// via compare-and-swap on three floats"), so a concurrent scan worker
// smoothing a shared neighbour never tears a write.
func casAddVec3(v *bmesh.Vert, delta common.Vec3) {
	casAddFloat(&v.Co[0], delta[0])
	casAddFloat(&v.Co[1], delta[1])
	casAddFloat(&v.Co[2], delta[2])
}

func casAddFloat(addr *float64, delta float64) {
	bits := (*uint64)(unsafe.Pointer(addr))
	for {
		old := atomic.LoadUint64(bits)
		newVal := math.Float64frombits(old) + delta
		if atomic.CompareAndSwapUint64(bits, old, math.Float64bits(newVal)) {
			return
		}
	}
}
