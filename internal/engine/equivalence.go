package engine

import "github.com/opentracelab/netcmp/internal/bipartite"

// ForceElementSplit buckets target's members by key and replaces
// target's slot in ElementClasses with the resulting classes, folding
// any unbalanced bucket into the running illegal sink exactly as
// Iterate does. It is the mechanism the user-supplied equivalence
// operations (internal/resolve, spec §4.8) sit on: those decide what
// key to split by ("these two instances get 1, everyone else in the
// class gets 0"), this performs the split outside of the normal
// pin-magic rehash.
func (e *Engine) ForceElementSplit(target *bipartite.ElementClass, key func(*bipartite.Element) uint64) bool {
	idx := indexOfClass(e.ElementClasses, target)
	if idx < 0 {
		return false
	}
	buckets := map[uint64][]*bipartite.Element{}
	for _, el := range target.Members {
		k := key(el)
		buckets[k] = append(buckets[k], el)
	}
	if len(buckets) < 2 {
		return false
	}

	var proposed []*bipartite.ElementClass
	for _, members := range buckets {
		nc := e.elementClassPool.Get()
		nc.Members = members
		nc.Magic = e.rng.Uint64()
		nc.Legal = true
		for _, el := range members {
			el.Class = nc
		}
		proposed = append(proposed, nc)
	}
	e.elementClassPool.Put(target)

	e.ElementClasses = dedupeElementClasses(spliceElementClasses(e.ElementClasses, idx, e.foldIllegalElements(proposed)))
	e.refreshStats()
	return true
}

// ForceNodeSplit is the Node-side mirror of ForceElementSplit.
func (e *Engine) ForceNodeSplit(target *bipartite.NodeClass, key func(*bipartite.Node) uint64) bool {
	idx := indexOfNodeClass(e.NodeClasses, target)
	if idx < 0 {
		return false
	}
	buckets := map[uint64][]*bipartite.Node{}
	for _, n := range target.Members {
		k := key(n)
		buckets[k] = append(buckets[k], n)
	}
	if len(buckets) < 2 {
		return false
	}

	var proposed []*bipartite.NodeClass
	for _, members := range buckets {
		nc := e.nodeClassPool.Get()
		nc.Members = members
		nc.Magic = e.rng.Uint64()
		nc.Legal = true
		for _, n := range members {
			n.Class = nc
		}
		proposed = append(proposed, nc)
	}
	e.nodeClassPool.Put(target)

	e.NodeClasses = dedupeNodeClasses(spliceNodeClasses(e.NodeClasses, idx, e.foldIllegalNodes(proposed)))
	e.refreshStats()
	return true
}

func indexOfClass(classes []*bipartite.ElementClass, target *bipartite.ElementClass) int {
	for i, c := range classes {
		if c == target {
			return i
		}
	}
	return -1
}

func indexOfNodeClass(classes []*bipartite.NodeClass, target *bipartite.NodeClass) int {
	for i, c := range classes {
		if c == target {
			return i
		}
	}
	return -1
}

func spliceElementClasses(classes []*bipartite.ElementClass, at int, replacement []*bipartite.ElementClass) []*bipartite.ElementClass {
	out := make([]*bipartite.ElementClass, 0, len(classes)-1+len(replacement))
	out = append(out, classes[:at]...)
	out = append(out, replacement...)
	out = append(out, classes[at+1:]...)
	return out
}

func spliceNodeClasses(classes []*bipartite.NodeClass, at int, replacement []*bipartite.NodeClass) []*bipartite.NodeClass {
	out := make([]*bipartite.NodeClass, 0, len(classes)-1+len(replacement))
	out = append(out, classes[:at]...)
	out = append(out, replacement...)
	out = append(out, classes[at+1:]...)
	return out
}

// dedupeElementClasses drops repeat pointers, needed because the
// illegal sink class can already sit elsewhere in ElementClasses when
// foldIllegalElements re-appends it.
func dedupeElementClasses(classes []*bipartite.ElementClass) []*bipartite.ElementClass {
	seen := make(map[*bipartite.ElementClass]bool, len(classes))
	out := classes[:0:0]
	for _, c := range classes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}

func dedupeNodeClasses(classes []*bipartite.NodeClass) []*bipartite.NodeClass {
	seen := make(map[*bipartite.NodeClass]bool, len(classes))
	out := classes[:0:0]
	for _, c := range classes {
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
