package engine

import (
	"sync"
	"sync/atomic"
)

// pool is a type-safe wrapper around sync.Pool, one per record type the
// engine churns through heavily during Iterate (spec §5: "the engine
// uses per-type free lists (pools) for Element, Node, NodeClass,
// ElementClass, NodeList, ElementList records, because Iterate
// allocates and frees large numbers of class objects"). Adapted from
// the generic pool[V] wrapper pattern, specialized here for the
// bipartite package's record types rather than a single node type.
type pool[T any] struct {
	sync.Pool

	totalAllocated atomic.Int64 // total number of *T ever allocated
	currentLive    atomic.Int64 // number of *T currently checked out
}

func newPool[T any]() *pool[T] {
	p := &pool[T]{}
	p.New = func() any {
		p.totalAllocated.Add(1)
		return new(T)
	}
	return p
}

// Get retrieves a *T from the pool, allocating a fresh one if empty.
func (p *pool[T]) Get() *T {
	p.currentLive.Add(1)
	return p.Pool.Get().(*T)
}

// Put zeroes v and returns it to the pool.
func (p *pool[T]) Put(v *T) {
	p.currentLive.Add(-1)
	var zero T
	*v = zero
	p.Pool.Put(v)
}

// Stats reports live checkouts and lifetime allocation count.
func (p *pool[T]) Stats() (live, total int64) {
	return p.currentLive.Load(), p.totalAllocated.Load()
}
