package resolve

import (
	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/store"
)

// EquivalenceElements finds the device instance named name1 in the
// first compared cell and name2 in the second, requires they
// currently sit in the same element class, and forces a split that
// pulls exactly those two into their own class (hash 1) away from
// every other member of that class (hash 0), bypassing the normal
// pin-magic rehash (spec §4.8). Use when refinement alone cannot
// separate a genuine automorphism from two instances the user knows
// correspond. Names are looked up per-graph because the two compared
// netlists routinely reuse the same instance names.
func EquivalenceElements(e *engine.Engine, name1, name2 string) error {
	el1 := findElementByName(e, bipartite.GraphA, name1)
	el2 := findElementByName(e, bipartite.GraphB, name2)
	if el1 == nil || el2 == nil {
		return diag.New(diag.KindLookup, "EquivalenceElements: instance %q or %q not found", name1, name2)
	}
	if el1.Class != el2.Class {
		return diag.New(diag.KindMatch, "EquivalenceElements: %q and %q are not in the same class", name1, name2)
	}
	class := el1.Class
	e.ForceElementSplit(class, func(el *bipartite.Element) uint64 {
		if el == el1 || el == el2 {
			return 1
		}
		return 0
	})
	return nil
}

// EquivalenceNodes is the Node-side mirror of EquivalenceElements.
func EquivalenceNodes(e *engine.Engine, name1, name2 string) error {
	n1 := findNodeByName(e, bipartite.GraphA, name1)
	n2 := findNodeByName(e, bipartite.GraphB, name2)
	if n1 == nil || n2 == nil {
		return diag.New(diag.KindLookup, "EquivalenceNodes: node %q or %q not found", name1, name2)
	}
	if n1.Class != n2.Class {
		return diag.New(diag.KindMatch, "EquivalenceNodes: %q and %q are not in the same class", name1, name2)
	}
	class := n1.Class
	e.ForceNodeSplit(class, func(n *bipartite.Node) uint64 {
		if n == n1 || n == n2 {
			return 1
		}
		return 0
	})
	return nil
}

// EquivalenceClasses sets classB's ClassHash to classA's, so that the
// next time a bipartite graph is built from the store, devices of
// both model classes collide into the same initial element class
// instead of starting apart (spec §4.8). It must run before
// CreateTwoLists; it has no effect on an already-built graph.
func EquivalenceClasses(s *store.Store, nameA string, fileA int, nameB string, fileB int) error {
	a, ok := s.Lookup(nameA, fileA)
	if !ok {
		return diag.New(diag.KindLookup, "EquivalenceClasses: no cell %q in file %d", nameA, fileA)
	}
	b, ok := s.Lookup(nameB, fileB)
	if !ok {
		return diag.New(diag.KindLookup, "EquivalenceClasses: no cell %q in file %d", nameB, fileB)
	}
	b.ClassHash = a.ClassHash
	return nil
}

// IgnoreClass removes every device instance of the named model from
// the store before the bipartite graph is built (spec §4.8); it is a
// thin wrapper over store.Store.ClassDelete, which already implements
// the removal.
func IgnoreClass(s *store.Store, name string, file int) int {
	return s.ClassDelete(name, file)
}

func findElementByName(e *engine.Engine, graph bipartite.Graph, name string) *bipartite.Element {
	for _, el := range e.Graph.Elements {
		if el.Graph == graph && el.Object.Name == name {
			return el
		}
	}
	return nil
}

func findNodeByName(e *engine.Engine, graph bipartite.Graph, name string) *bipartite.Node {
	for _, n := range e.Graph.Nodes {
		if n.Graph == graph && n.Object.Name == name {
			return n
		}
	}
	return nil
}
