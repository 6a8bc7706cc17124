package resolve

import (
	"context"
	"math/rand"
	"testing"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/store"
)

func buildEngine(t *testing.T, s *store.Store, a, b *store.Cell, seed int64) *engine.Engine {
	t.Helper()
	g, err := bipartite.CreateTwoLists(s, a, b, bipartite.NewPinMagicTable(rand.New(rand.NewSource(seed))))
	if err != nil {
		t.Fatalf("CreateTwoLists: %v", err)
	}
	return engine.New(g, rand.New(rand.NewSource(seed+1)), false)
}

func buildInverterPair(t *testing.T) (*store.Store, *store.Cell, *store.Cell, *store.Cell) {
	t.Helper()
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.Class = store.ClassNMOS
	nmos.DefinePort("d")
	nmos.DefinePort("g")
	nmos.DefinePort("s")

	build := func(name string) *store.Cell {
		top := s.DefineCell(name, 0, false)
		a := top.DefinePort("a")
		b := top.DefinePort("b")
		s.SetCurrent(top)
		id, err := s.Instance(nmos, "m1")
		if err != nil {
			t.Fatalf("Instance: %v", err)
		}
		pins := top.Instances(id)
		if err := s.Connect([]*store.Object{a}, []*store.Object{pins[0]}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := s.Connect([]*store.Object{b}, []*store.Object{pins[1]}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		return top
	}
	return s, nmos, build("topA"), build("topB")
}

func buildParallelResistorPair(t *testing.T, s *store.Store, resistor *store.Cell, name string) *store.Cell {
	t.Helper()
	top := s.DefineCell(name, 0, false)
	na := top.DefineNode("na")
	nb := top.DefineNode("nb")
	s.SetCurrent(top)
	for _, inst := range []string{"r1", "r2"} {
		id, err := s.Instance(resistor, inst)
		if err != nil {
			t.Fatalf("Instance: %v", err)
		}
		pins := top.Instances(id)
		if err := s.Connect([]*store.Object{na}, []*store.Object{pins[0]}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
		if err := s.Connect([]*store.Object{nb}, []*store.Object{pins[1]}); err != nil {
			t.Fatalf("Connect: %v", err)
		}
	}
	return top
}

func buildSymmetricPairStore(t *testing.T) (*store.Store, *store.Cell, *store.Cell) {
	t.Helper()
	s := store.New(1)
	resistor := s.DefineCell("resistor", 0, false)
	resistor.Class = store.ClassResistor
	resistor.DefinePort("p1")
	resistor.DefinePort("p2")
	topA := buildParallelResistorPair(t, s, resistor, "topA")
	topB := buildParallelResistorPair(t, s, resistor, "topB")
	return s, topA, topB
}

func TestVerifyMatchingUniqueOnAsymmetricIsomorphicCells(t *testing.T) {
	s, _, topA, topB := buildInverterPair(t)
	e := buildEngine(t, s, topA, topB, 11)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, count := VerifyMatching(e)
	if state != StateUnique {
		t.Fatalf("expected StateUnique, got %v (count %d)", state, count)
	}
}

func TestVerifyMatchingIllegalOnMismatchedDeviceCounts(t *testing.T) {
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.DefinePort("d")
	nmos.DefinePort("g")

	topA := s.DefineCell("topA", 0, false)
	s.SetCurrent(topA)
	if _, err := s.Instance(nmos, "m1"); err != nil {
		t.Fatalf("Instance: %v", err)
	}
	if _, err := s.Instance(nmos, "m2"); err != nil {
		t.Fatalf("Instance: %v", err)
	}
	topB := s.DefineCell("topB", 0, false)
	s.SetCurrent(topB)
	if _, err := s.Instance(nmos, "m1"); err != nil {
		t.Fatalf("Instance: %v", err)
	}

	e := buildEngine(t, s, topA, topB, 9)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, _ := VerifyMatching(e)
	if state != StateIllegal {
		t.Fatalf("expected StateIllegal, got %v", state)
	}
}

func TestVerifyMatchingAmbiguousOnSymmetricDevicePair(t *testing.T) {
	s, topA, topB := buildSymmetricPairStore(t)
	e := buildEngine(t, s, topA, topB, 3)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, count := VerifyMatching(e)
	if state != StateAmbiguous {
		t.Fatalf("expected StateAmbiguous for the parallel-resistor automorphism, got %v", state)
	}
	if count == 0 {
		t.Fatal("expected a nonzero unresolved-automorphism count")
	}
}

func TestResolveAutomorphismsConvergesToUniqueMatch(t *testing.T) {
	s, topA, topB := buildSymmetricPairStore(t)
	e := buildEngine(t, s, topA, topB, 4)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, err := ResolveAutomorphisms(context.Background(), e, rand.New(rand.NewSource(5)))
	if err != nil {
		t.Fatalf("ResolveAutomorphisms: %v", err)
	}
	if state != StateUnique {
		t.Fatalf("expected convergence to StateUnique, got %v", state)
	}
	for _, c := range e.ElementClasses {
		if len(c.Members) != 2 {
			t.Errorf("expected every element class to end at size 2, got %d", len(c.Members))
		}
	}
	for _, c := range e.NodeClasses {
		if len(c.Members) != 2 {
			t.Errorf("expected every node class to end at size 2, got %d", len(c.Members))
		}
	}
}

func TestPropertyCheckDetectsMismatchBeyondSlop(t *testing.T) {
	s, nmos, topA, topB := buildInverterPair(t)
	nmos.Keys = []store.PropKey{{Key: "w", Type: store.PropDouble, Slop: 0.05}}

	linkWidth := func(top *store.Cell, width string) {
		s.SetCurrent(top)
		m1 := findFirstPin(top)
		if err := s.LinkProperties(nmos, m1.Instance, map[string]string{"w": width}, nil); err != nil {
			t.Fatalf("LinkProperties: %v", err)
		}
	}
	linkWidth(topA, "1u")
	linkWidth(topB, "2u")

	e := buildEngine(t, s, topA, topB, 21)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	class := onlyElementClass(t, e)
	mismatches, err := PropertyCheck(s, class)
	if err != nil {
		t.Fatalf("PropertyCheck: %v", err)
	}
	if len(mismatches) != 1 || mismatches[0].Key != "w" {
		t.Fatalf("expected one mismatch on key 'w', got %v", mismatches)
	}
}

func TestPropertyCheckPassesWithinSlop(t *testing.T) {
	s, nmos, topA, topB := buildInverterPair(t)
	nmos.Keys = []store.PropKey{{Key: "w", Type: store.PropDouble, Slop: 0.5}}

	linkWidth := func(top *store.Cell, width string) {
		s.SetCurrent(top)
		m1 := findFirstPin(top)
		if err := s.LinkProperties(nmos, m1.Instance, map[string]string{"w": width}, nil); err != nil {
			t.Fatalf("LinkProperties: %v", err)
		}
	}
	linkWidth(topA, "1u")
	linkWidth(topB, "1.1u")

	e := buildEngine(t, s, topA, topB, 23)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	class := onlyElementClass(t, e)
	mismatches, err := PropertyCheck(s, class)
	if err != nil {
		t.Fatalf("PropertyCheck: %v", err)
	}
	if len(mismatches) != 0 {
		t.Fatalf("expected no mismatches within slop, got %v", mismatches)
	}
}

func TestEquivalenceElementsSplitsNamedInstancesApart(t *testing.T) {
	s, topA, topB := buildSymmetricPairStore(t)
	e := buildEngine(t, s, topA, topB, 30)
	// Don't run Iterate first: both instances of a cell still share the
	// single initial class, which is exactly the precondition
	// EquivalenceElements needs.
	if err := EquivalenceElements(e, "r1/p1", "nonexistent"); err == nil {
		t.Fatal("expected a lookup error for an unknown instance name")
	}

	// "r1/p1" names the first-graph and second-graph instances
	// independently (both cells happen to share the instance name
	// "r1"); EquivalenceElements pairs graph A's r1 with graph B's r1.
	if err := EquivalenceElements(e, "r1/p1", "r1/p1"); err != nil {
		t.Fatalf("EquivalenceElements: %v", err)
	}
	found := false
	for _, c := range e.ElementClasses {
		if len(c.Members) == 2 {
			a, b := c.CountByGraph()
			if a == 1 && b == 1 {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("expected a resulting class pairing one named instance from each graph")
	}
}

func TestEquivalenceClassesUnifiesHash(t *testing.T) {
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.DefinePort("d")
	pmos := s.DefineCell("pmos", 0, false)
	pmos.DefinePort("d")

	if err := EquivalenceClasses(s, "nmos", 0, "pmos", 0); err != nil {
		t.Fatalf("EquivalenceClasses: %v", err)
	}
	if pmos.ClassHash != nmos.ClassHash {
		t.Fatal("expected pmos.ClassHash to be overwritten with nmos.ClassHash")
	}
}

func TestIgnoreClassRemovesInstances(t *testing.T) {
	s, _, topA, _ := buildInverterPair(t)
	removed := IgnoreClass(s, "nmos", 0)
	if removed == 0 {
		t.Fatal("expected at least one instance removed")
	}
	if len(topA.FirstPinObjects()) != 0 {
		t.Fatalf("expected topA to have no remaining nmos instances, got %d", len(topA.FirstPinObjects()))
	}
}

func TestPermuteSetupSharesMagicAcrossPinPositions(t *testing.T) {
	s := store.New(1)
	resistor := s.DefineCell("resistor", 0, false)
	resistor.DefinePort("p1")
	resistor.DefinePort("p2")

	magics := bipartite.NewPinMagicTable(rand.New(rand.NewSource(1)))
	if err := PermuteSetup(magics, resistor, "p1", "p2"); err != nil {
		t.Fatalf("PermuteSetup: %v", err)
	}

	top := s.DefineCell("top", 0, false)
	na := top.DefineNode("na")
	nb := top.DefineNode("nb")
	s.SetCurrent(top)
	id, err := s.Instance(resistor, "r1")
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	pins := top.Instances(id)
	if err := s.Connect([]*store.Object{na}, []*store.Object{pins[0]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect([]*store.Object{nb}, []*store.Object{pins[1]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	g, err := bipartite.CreateTwoLists(s, top, top, magics)
	if err != nil {
		t.Fatalf("CreateTwoLists: %v", err)
	}
	el := g.Elements[0]
	if el.Pins[0].PinMagic != el.Pins[1].PinMagic {
		t.Fatal("expected PermuteSetup to force equal pin_magic across the permuted positions")
	}
}

func findFirstPin(cell *store.Cell) *store.Object {
	pins := cell.FirstPinObjects()
	if len(pins) == 0 {
		return nil
	}
	return pins[0]
}

func onlyElementClass(t *testing.T, e *engine.Engine) *bipartite.ElementClass {
	t.Helper()
	for _, c := range e.ElementClasses {
		if len(c.Members) == 2 {
			return c
		}
	}
	t.Fatal("expected exactly one size-2 element class")
	return nil
}

