// Package equeue implements C4, the edge candidate priority queue that
// drives subdivide and collapse passes. Construction is a two-phase scan
// (package-level Build): a parallel phase over spatial leaves collects
// candidate edges into per-worker scratch buffers, then a single-threaded
// merge recomputes stale annotations and feeds everything into the heap.
package equeue

import "container/heap"

// indexed is implemented by entries the queue needs to relocate in place
// (heap.Fix, heap.Remove) after an edge's priority or leaf membership
// changes mid-scan — the same role the teacher's NodeQueueIndex interface
// plays for dtNode in detour_node.go.
type indexed interface {
	setIndex(i int)
	getIndex() int
}

// nodeQueue is a generic container/heap-backed priority queue, adapted
// from the teacher's NodeQueue[T]: a less func supplied at construction,
// index-tracking on Push/Pop/Swap so Remove/Fix work in O(log n) instead of
// a linear scan.
type nodeQueue[T indexed] struct {
	data []T
	less func(a, b T) bool
}

func newNodeQueue[T indexed](less func(a, b T) bool) *nodeQueue[T] {
	q := &nodeQueue[T]{less: less}
	heap.Init(q)
	return q
}

func (q *nodeQueue[T]) Len() int { return len(q.data) }

func (q *nodeQueue[T]) Less(i, j int) bool { return q.less(q.data[i], q.data[j]) }

func (q *nodeQueue[T]) Swap(i, j int) {
	q.data[i], q.data[j] = q.data[j], q.data[i]
	q.data[i].setIndex(i)
	q.data[j].setIndex(j)
}

func (q *nodeQueue[T]) Push(x any) {
	v := x.(T)
	v.setIndex(len(q.data))
	q.data = append(q.data, v)
}

func (q *nodeQueue[T]) Pop() any {
	old := q.data
	n := len(old)
	v := old[n-1]
	q.data = old[:n-1]
	v.setIndex(-1)
	return v
}

func (q *nodeQueue[T]) offer(v T) { heap.Push(q, v) }

func (q *nodeQueue[T]) poll() T { return heap.Pop(q).(T) }

func (q *nodeQueue[T]) empty() bool { return q.Len() == 0 }
