package engine

import (
	"math/rand"
	"testing"

	"github.com/opentracelab/netcmp/internal/bipartite"
)

func TestForceElementSplitPullsChosenMembersIntoTheirOwnClass(t *testing.T) {
	a1 := &bipartite.Element{Graph: bipartite.GraphA}
	a2 := &bipartite.Element{Graph: bipartite.GraphA}
	b1 := &bipartite.Element{Graph: bipartite.GraphB}
	b2 := &bipartite.Element{Graph: bipartite.GraphB}
	class := &bipartite.ElementClass{Members: []*bipartite.Element{a1, a2, b1, b2}, Legal: true}
	for _, el := range class.Members {
		el.Class = class
	}
	g := &bipartite.Bipartite{Elements: class.Members, InitialElementClass: class}

	e := New(g, rand.New(rand.NewSource(1)), false)

	split := e.ForceElementSplit(class, func(el *bipartite.Element) uint64 {
		if el == a1 || el == b1 {
			return 1
		}
		return 0
	})
	if !split {
		t.Fatal("expected ForceElementSplit to report a split")
	}
	if len(e.ElementClasses) != 2 {
		t.Fatalf("expected 2 element classes after the forced split, got %d", len(e.ElementClasses))
	}
	if a1.Class != b1.Class {
		t.Error("expected a1 and b1 to land in the same class")
	}
	if a2.Class != b2.Class {
		t.Error("expected a2 and b2 to land in the same class")
	}
	if a1.Class == a2.Class {
		t.Error("expected the two buckets to end up as distinct classes")
	}
}

func TestForceElementSplitDetectsIllegalBucket(t *testing.T) {
	a1 := &bipartite.Element{Graph: bipartite.GraphA}
	a2 := &bipartite.Element{Graph: bipartite.GraphA}
	b1 := &bipartite.Element{Graph: bipartite.GraphB}
	class := &bipartite.ElementClass{Members: []*bipartite.Element{a1, a2, b1}, Legal: true}
	for _, el := range class.Members {
		el.Class = class
	}
	g := &bipartite.Bipartite{Elements: class.Members, InitialElementClass: class}
	e := New(g, rand.New(rand.NewSource(2)), false)

	e.ForceElementSplit(class, func(el *bipartite.Element) uint64 {
		if el == a1 {
			return 1
		}
		return 0
	})
	if !e.BadMatch {
		t.Fatal("expected a lone-graph bucket (a1 alone, hash 1) to be flagged illegal")
	}
}

func TestForceNodeSplitPullsChosenMembersIntoTheirOwnClass(t *testing.T) {
	a1 := &bipartite.Node{Graph: bipartite.GraphA}
	b1 := &bipartite.Node{Graph: bipartite.GraphB}
	a2 := &bipartite.Node{Graph: bipartite.GraphA}
	b2 := &bipartite.Node{Graph: bipartite.GraphB}
	class := &bipartite.NodeClass{Members: []*bipartite.Node{a1, a2, b1, b2}, Legal: true}
	for _, n := range class.Members {
		n.Class = class
	}
	g := &bipartite.Bipartite{Nodes: class.Members, InitialNodeClass: class}
	e := New(g, rand.New(rand.NewSource(3)), false)

	split := e.ForceNodeSplit(class, func(n *bipartite.Node) uint64 {
		if n == a1 || n == b1 {
			return 1
		}
		return 0
	})
	if !split {
		t.Fatal("expected ForceNodeSplit to report a split")
	}
	if a1.Class != b1.Class || a2.Class != b2.Class || a1.Class == a2.Class {
		t.Fatal("expected nodes to regroup by the forced key")
	}
}
