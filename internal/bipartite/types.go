// Package bipartite builds the bipartite Element/Node graph the
// partition-refinement engine iterates over (spec §3 "Bipartite-engine
// records", §4.5 CreateTwoLists). Elements are device instances, Nodes
// are electrical nets; a NodeList entry is one pin of a device, an
// ElementList entry is one fan-out of a net. Classes group elements (or
// nodes) that currently look indistinguishable to the engine.
package bipartite

import "github.com/opentracelab/netcmp/internal/store"

// Graph identifies which of the two compared netlists a record came
// from. Classes that end up balanced must contain an equal count of A
// and B members; the refinement engine's "illegal" detection is built
// entirely on this tag.
type Graph int

const (
	GraphA Graph = iota
	GraphB
)

func (g Graph) String() string {
	if g == GraphA {
		return "A"
	}
	return "B"
}

// Element is one device instance (spec §3 Element).
type Element struct {
	Hash    uint64
	OldHash uint64 // carried across Iterate steps; XORed into the new hash
	Graph   Graph
	Object  *store.Object // the instance's FIRSTPIN object
	Class   *ElementClass
	Pins    []*NodeListEntry
}

// NodeListEntry is one pin of a device instance (spec §3 NodeList
// entry): pin_magic plus a cross-link to the owning Element and the
// Node the pin's wire belongs to.
type NodeListEntry struct {
	PinMagic uint64
	Element  *Element
	Node     *Node
}

// Node is one electrical net (spec §3 Node).
type Node struct {
	Hash    uint64
	OldHash uint64
	Graph   Graph
	Object  *store.Object // a representative pin or port on this net
	Class   *NodeClass
	Fanout  []*ElementListEntry
}

// ElementListEntry is one fan-out of a Node (spec §3 ElementList
// entry): the NodeList entry it mirrors, plus a back-pointer to the
// Node itself so the engine can walk fanout -> node -> class without
// a second lookup.
type ElementListEntry struct {
	Pin  *NodeListEntry
	Node *Node
}

// ElementClass is an equivalence class of Elements (spec §3
// ElementClass): a fresh random Magic ("colour") is assigned at the
// start of every Iterate step, and the class is split into buckets
// keyed by each member's recomputed hash.
type ElementClass struct {
	Members []*Element
	Magic   uint64
	Legal   bool
}

// NodeClass is the Node-side mirror of ElementClass.
type NodeClass struct {
	Members []*Node
	Magic   uint64
	Legal   bool
}

// CountByGraph reports how many members of an ElementClass come from
// each graph — the balance check Iterate's step 4 depends on.
func (c *ElementClass) CountByGraph() (a, b int) {
	for _, e := range c.Members {
		if e.Graph == GraphA {
			a++
		} else {
			b++
		}
	}
	return
}

// CountByGraph is the Node-side mirror.
func (c *NodeClass) CountByGraph() (a, b int) {
	for _, n := range c.Members {
		if n.Graph == GraphA {
			a++
		} else {
			b++
		}
	}
	return
}

// Bipartite is the whole bipartite structure for one comparison: every
// Element and Node from both cells, plus the single initial class
// each side starts in (spec §4.5: "concatenated... into a single
// initial ElementClass (NodeClass)").
type Bipartite struct {
	Elements []*Element
	Nodes    []*Node

	InitialElementClass *ElementClass
	InitialNodeClass    *NodeClass
}
