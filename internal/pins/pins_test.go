package pins_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/pins"
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

// buildSwappedInverterPair builds two structurally-identical inverters
// whose top cells declare their two ports in opposite textual order,
// so MatchPins has real work to do.
func buildSwappedInverterPair(t *testing.T) (*store.Store, *store.Cell, *store.Cell) {
	t.Helper()
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.Class = store.ClassNMOS
	nmos.DefinePort("d")
	nmos.DefinePort("g")
	nmos.DefinePort("s")

	topA := s.DefineCell("topA", 0, false)
	a := topA.DefinePort("a")
	b := topA.DefinePort("b")
	s.SetCurrent(topA)
	idA, err := s.Instance(nmos, "m1")
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	pinsA := topA.Instances(idA)
	if err := s.Connect([]*store.Object{a}, []*store.Object{pinsA[0]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect([]*store.Object{b}, []*store.Object{pinsA[1]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	topB := s.DefineCell("topB", 0, false)
	bb := topB.DefinePort("b")
	ba := topB.DefinePort("a")
	s.SetCurrent(topB)
	idB, err := s.Instance(nmos, "m1")
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	pinsB := topB.Instances(idB)
	if err := s.Connect([]*store.Object{ba}, []*store.Object{pinsB[0]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := s.Connect([]*store.Object{bb}, []*store.Object{pinsB[1]}); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	return s, topA, topB
}

func TestMatchPinsReordersSwappedPortDeclarations(t *testing.T) {
	s, topA, topB := buildSwappedInverterPair(t)
	e := buildEngine(t, s, topA, topB, 7)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := pins.MatchPins(s, e, topA, topB); err != nil {
		t.Fatalf("MatchPins: %v", err)
	}
	if !topA.Matched || !topB.Matched {
		t.Fatal("expected both cells marked Matched on success")
	}

	portsA := topA.Ports()
	portsB := topB.Ports()
	if len(portsA) != len(portsB) {
		t.Fatalf("expected equal port counts, got %d vs %d", len(portsA), len(portsB))
	}
	if portsB[0].Name != "a" || portsB[1].Name != "b" {
		t.Fatalf("expected topB's ports reordered to a,b; got %s,%s", portsB[0].Name, portsB[1].Name)
	}

	pinsB := topB.Instances(topB.FirstPinObjects()[0].Instance)
	if pinsB[0].Node != portsB[0].Node {
		t.Error("expected m1's first pin to share topB's reordered first port's node")
	}
	if pinsB[1].Node != portsB[1].Node {
		t.Error("expected m1's second pin to share topB's reordered second port's node")
	}
}

func TestMatchPinsFailsAndDemotesOnIllegalMatch(t *testing.T) {
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
	topA.Matched = true
	s.SetCurrent(topA)
	idA, _ := s.Instance(nmos, "m1")
	pa := topA.Instances(idA)
	_ = s.Connect([]*store.Object{a}, []*store.Object{pa[0]})
	_ = s.Connect([]*store.Object{b}, []*store.Object{pa[1]})

	topB := s.DefineCell("topB", 0, false)
	a2 := topB.DefinePort("a")
	b2 := topB.DefinePort("b")
	topB.Matched = true
	s.SetCurrent(topB)
	idB, _ := s.Instance(pmos, "m1")
	pb := topB.Instances(idB)
	_ = s.Connect([]*store.Object{a2}, []*store.Object{pb[0]})
	_ = s.Connect([]*store.Object{b2}, []*store.Object{pb[1]})

	e := buildEngine(t, s, topA, topB, 3)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !e.BadMatch {
		t.Fatal("expected an nmos-vs-pmos compare to be flagged illegal before MatchPins even runs")
	}

	if err := pins.MatchPins(s, e, topA, topB); err == nil {
		t.Fatal("expected MatchPins to fail on an illegal match")
	}
	if topA.Matched || topB.Matched {
		t.Error("expected both cells demoted to unmatched on failure")
	}
}

func TestMatchPinsPadsUnmatchedDisconnectedPortWithDummy(t *testing.T) {
	s := store.New(1)
	nmos := s.DefineCell("nmos", 0, false)
	nmos.Class = store.ClassNMOS
	nmos.DefinePort("d")
	nmos.DefinePort("g")
	nmos.DefinePort("s")

	topA := s.DefineCell("topA", 0, false)
	a := topA.DefinePort("a")
	b := topA.DefinePort("b")
	nc := topA.DefinePort("nc")
	s.SetCurrent(topA)
	idA, _ := s.Instance(nmos, "m1")
	pa := topA.Instances(idA)
	_ = s.Connect([]*store.Object{a}, []*store.Object{pa[0]})
	_ = s.Connect([]*store.Object{b}, []*store.Object{pa[1]})
	_ = nc

	topB := s.DefineCell("topB", 0, false)
	a2 := topB.DefinePort("a")
	b2 := topB.DefinePort("b")
	s.SetCurrent(topB)
	idB, _ := s.Instance(nmos, "m1")
	pb := topB.Instances(idB)
	_ = s.Connect([]*store.Object{a2}, []*store.Object{pb[0]})
	_ = s.Connect([]*store.Object{b2}, []*store.Object{pb[1]})

	e := buildEngine(t, s, topA, topB, 5)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if err := pins.MatchPins(s, e, topA, topB); err != nil {
		t.Fatalf("MatchPins: %v", err)
	}
	if len(topB.Ports()) != len(topA.Ports()) {
		t.Fatalf("expected topB padded to %d ports, got %d", len(topA.Ports()), len(topB.Ports()))
	}
	last := topB.Ports()[len(topB.Ports())-1]
	if last.Node > store.NodeDisconnected {
		t.Error("expected the padded dummy port to remain disconnected")
	}
}
