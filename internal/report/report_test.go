package report_test

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/report"
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

func buildMismatchedPair(t *testing.T) (*store.Store, *store.Cell, *store.Cell) {
	t.Helper()
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.Class = store.ClassNMOS
	nmos.DefinePort("d")
	nmos.DefinePort("g")
	nmos.DefinePort("s")
	pmos := s.DefineCell("pmos", 0, false)
	pmos.Class = store.ClassPMOS
	pmos.DefinePort("d")
	pmos.DefinePort("g")
	pmos.DefinePort("s")

	topA := s.DefineCell("topA", 0, false)
	a := topA.DefinePort("a")
	b := topA.DefinePort("b")
	s.SetCurrent(topA)
	idA, _ := s.Instance(nmos, "m1")
	pa := topA.Instances(idA)
	_ = s.Connect([]*store.Object{a}, []*store.Object{pa[0]})
	_ = s.Connect([]*store.Object{b}, []*store.Object{pa[1]})

	topB := s.DefineCell("topB", 0, false)
	a2 := topB.DefinePort("a")
	b2 := topB.DefinePort("b")
	s.SetCurrent(topB)
	idB, _ := s.Instance(pmos, "m1")
	pb := topB.Instances(idB)
	_ = s.Connect([]*store.Object{a2}, []*store.Object{pb[0]})
	_ = s.Connect([]*store.Object{b2}, []*store.Object{pb[1]})

	return s, topA, topB
}

func TestFormatIllegalNamesBothOffendingInstances(t *testing.T) {
	s, topA, topB := buildMismatchedPair(t)
	e := buildEngine(t, s, topA, topB, 9)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !e.BadMatch {
		t.Fatal("expected an nmos-vs-pmos compare to be flagged illegal")
	}

	out := report.FormatIllegal(s, e)
	if !strings.Contains(out, "m1") {
		t.Errorf("expected the illegal fragment report to name instance m1, got:\n%s", out)
	}
	if !strings.Contains(out, "topA") || !strings.Contains(out, "topB") {
		t.Errorf("expected the report to name both owning cells, got:\n%s", out)
	}
}

func buildSymmetricPairStore(t *testing.T) (*store.Store, *store.Cell, *store.Cell) {
	t.Helper()
	s := store.New(1)
	resistor := s.DefineCell("resistor", 0, false)
	resistor.Class = store.ClassResistor
	resistor.DefinePort("p1")
	resistor.DefinePort("p2")

	build := func(name string) *store.Cell {
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
	return s, build("topA"), build("topB")
}

func TestAutomorphismsReportsUnresolvedParallelPair(t *testing.T) {
	s, topA, topB := buildSymmetricPairStore(t)
	e := buildEngine(t, s, topA, topB, 4)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	groups := report.Automorphisms(e)
	if len(groups) == 0 {
		t.Fatal("expected the unresolved parallel-resistor automorphism to be reported")
	}
	found := false
	for _, g := range groups {
		if g.Kind == "element" && g.Size == 4 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a size-4 element automorphism group, got %+v", groups)
	}

	out := report.FormatAutomorphisms(e)
	if !strings.Contains(out, "element class") {
		t.Errorf("expected formatted output to mention the element class, got:\n%s", out)
	}
}

func TestSummaryTableRendersIterationCount(t *testing.T) {
	s, topA, topB := buildSymmetricPairStore(t)
	e := buildEngine(t, s, topA, topB, 8)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	out := report.SummaryTable(e)
	if !strings.Contains(out, "iterations") {
		t.Errorf("expected the summary table to mention iterations, got:\n%s", out)
	}
}
