package engine

import (
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/opentracelab/netcmp/internal/bipartite"
)

// splitElementClass buckets c's members by their freshly computed
// hash (spec §4.6 step 3). A class of exactly two members is left
// whole unless Exhaustive is set — that is precisely the automorphism
// ResolveAutomorphisms (internal/resolve) later breaks by force.
// Legality (balance across the two graphs, and the size-2 "crossed"
// case) is assessed uniformly afterwards by foldIllegalElements, not
// here, so a pass-through class gets the same check as a freshly split
// bucket.
func (e *Engine) splitElementClass(c *bipartite.ElementClass) (children []*bipartite.ElementClass, split bool) {
	if len(c.Members) == 2 && !e.Exhaustive {
		return []*bipartite.ElementClass{c}, false
	}

	buckets := map[uint64][]*bipartite.Element{}
	for _, el := range c.Members {
		buckets[el.Hash] = append(buckets[el.Hash], el)
	}
	if len(buckets) == 1 {
		return []*bipartite.ElementClass{c}, false
	}

	hashes := maps.Keys(buckets)
	slices.Sort(hashes)
	for _, h := range hashes {
		members := buckets[h]
		nc := e.elementClassPool.Get()
		nc.Members = members
		nc.Magic = e.rng.Uint64()
		nc.Legal = true
		for _, el := range members {
			el.Class = nc
		}
		children = append(children, nc)
	}
	e.elementClassPool.Put(c)
	return children, true
}

// splitNodeClass is the Node-side mirror of splitElementClass.
func (e *Engine) splitNodeClass(c *bipartite.NodeClass) (children []*bipartite.NodeClass, split bool) {
	if len(c.Members) == 2 && !e.Exhaustive {
		return []*bipartite.NodeClass{c}, false
	}

	buckets := map[uint64][]*bipartite.Node{}
	for _, n := range c.Members {
		buckets[n.Hash] = append(buckets[n.Hash], n)
	}
	if len(buckets) == 1 {
		return []*bipartite.NodeClass{c}, false
	}

	hashes := maps.Keys(buckets)
	slices.Sort(hashes)
	for _, h := range hashes {
		members := buckets[h]
		nc := e.nodeClassPool.Get()
		nc.Members = members
		nc.Magic = e.rng.Uint64()
		nc.Legal = true
		for _, n := range members {
			n.Class = nc
		}
		children = append(children, nc)
	}
	e.nodeClassPool.Put(c)
	return children, true
}

// foldIllegalElements assesses every proposed class's graph balance
// (spec §4.6 step 4: a bucket from only one source graph, or with
// unequal counts from the two, is illegal — this single rule also
// covers step 6's "two same-graph members" crossed case) and merges
// every illegal class produced this step into one running sink, so
// later reporting has a single place to look (spec §4.6 step 4, "All
// illegal buckets across the whole step are coalesced into one
// 'illegal' class").
func (e *Engine) foldIllegalElements(proposed []*bipartite.ElementClass) []*bipartite.ElementClass {
	legal := proposed[:0:0]
	for _, c := range proposed {
		a, b := c.CountByGraph()
		if a == b {
			c.Legal = true
			legal = append(legal, c)
			continue
		}
		e.BadMatch = true
		if e.illegalElements == nil {
			e.illegalElements = e.elementClassPool.Get()
			e.illegalElements.Legal = false
		}
		e.illegalElements.Members = append(e.illegalElements.Members, c.Members...)
		for _, el := range c.Members {
			el.Class = e.illegalElements
		}
		if c != e.illegalElements {
			e.elementClassPool.Put(c)
		}
	}
	if e.illegalElements != nil {
		legal = append(legal, e.illegalElements)
	}
	return legal
}

// foldIllegalNodes is the Node-side mirror of foldIllegalElements.
func (e *Engine) foldIllegalNodes(proposed []*bipartite.NodeClass) []*bipartite.NodeClass {
	legal := proposed[:0:0]
	for _, c := range proposed {
		a, b := c.CountByGraph()
		if a == b {
			c.Legal = true
			legal = append(legal, c)
			continue
		}
		e.BadMatch = true
		if e.illegalNodes == nil {
			e.illegalNodes = e.nodeClassPool.Get()
			e.illegalNodes.Legal = false
		}
		e.illegalNodes.Members = append(e.illegalNodes.Members, c.Members...)
		for _, n := range c.Members {
			n.Class = e.illegalNodes
		}
		if c != e.illegalNodes {
			e.nodeClassPool.Put(c)
		}
	}
	if e.illegalNodes != nil {
		legal = append(legal, e.illegalNodes)
	}
	return legal
}
