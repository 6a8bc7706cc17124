package hierarchy

import (
	"testing"
	"time"

	"github.com/opentracelab/netcmp/internal/store"
)

func buildInverterAndTop(t *testing.T) (*store.Store, *store.Cell) {
	t.Helper()
	s := store.New(1)

	nmos := s.DefineCell("nmos", 0, false)
	nmos.Class = store.ClassNMOS

	inv := s.DefineCell("inv", 0, false)
	in := inv.DefinePort("in")
	out := inv.DefinePort("out")
	in.Node = inv.NewNodeID()
	out.Node = inv.NewNodeID()
	inv.Class = store.ClassSubcircuit
	inv.AddObject(store.FirstPin, "m1/d", 1, "nmos", out.Node)
	inv.AddObject(store.FirstPin+1, "m1/g", 1, "nmos", in.Node)

	top := s.DefineCell("top", 0, false)
	s.SetCurrent(top)
	a := top.DefinePort("a")
	b := top.DefinePort("b")
	inst, err := s.Instance(inv, "x1")
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}
	pins := top.Instances(inst)
	if len(pins) != 2 {
		t.Fatalf("expected 2 pins for the inv instance, got %d", len(pins))
	}
	if err := s.Connect([]*store.Object{a}, []*store.Object{pins[0]}); err != nil {
		t.Fatalf("Connect a: %v", err)
	}
	if err := s.Connect([]*store.Object{b}, []*store.Object{pins[1]}); err != nil {
		t.Fatalf("Connect b: %v", err)
	}
	return s, top
}

func TestFlattenCellSplicesChildObjects(t *testing.T) {
	s, top := buildInverterAndTop(t)
	f := New(s, nil)

	if err := f.FlattenCell("top", 0); err != nil {
		t.Fatalf("FlattenCell: %v", err)
	}

	var nmosPins int
	for _, ob := range top.Objects {
		if ob.Type.IsPin() && ob.Model == "nmos" {
			nmosPins++
		}
	}
	if nmosPins != 2 {
		t.Fatalf("expected the nmos device's 2 pins spliced into top, got %d", nmosPins)
	}
	if _, ok := top.LookupObject("x1/in"); ok {
		t.Fatal("expected the subcircuit's port objects to be dropped after flatten")
	}
}

func TestFlattenCellUnifiesPortNodesWithInstancePins(t *testing.T) {
	s, top := buildInverterAndTop(t)
	a, _ := top.LookupObject("a")
	b, _ := top.LookupObject("b")

	f := New(s, nil)
	if err := f.FlattenCell("top", 0); err != nil {
		t.Fatalf("FlattenCell: %v", err)
	}

	gate, ok := top.LookupObject("x1/m1/g")
	if !ok {
		t.Fatal("expected the gate pin to survive, renamed with the instance prefix")
	}
	if gate.Node != a.Node {
		t.Fatalf("expected the gate pin's node to be unified with port a's node, got gate=%d a=%d", gate.Node, a.Node)
	}
	drain, ok := top.LookupObject("x1/m1/d")
	if !ok {
		t.Fatal("expected the drain pin to survive, renamed with the instance prefix")
	}
	if drain.Node != b.Node {
		t.Fatalf("expected the drain pin's node to be unified with port b's node, got drain=%d b=%d", drain.Node, b.Node)
	}
}

func TestFlattenCellIsNoOpOnAllPrimitiveCell(t *testing.T) {
	s := store.New(1)
	leaf := s.DefineCell("nmos", 0, false)
	leaf.AddObject(store.FirstPin, "d", 1, "", store.NodeDisconnected)

	f := New(s, nil)
	if err := f.FlattenCell("nmos", 0); err != nil {
		t.Fatalf("FlattenCell on a primitive cell should be a no-op, got error: %v", err)
	}
}

func TestFlattenCellGuardsSelfRecursion(t *testing.T) {
	s := store.New(1)
	top := s.DefineCell("top", 0, false)
	top.AddObject(store.FirstPin, "u1/p", 1, "top", store.NodeDisconnected)

	f := New(s, nil)
	done := make(chan error, 1)
	go func() { done <- f.FlattenCell("top", 0) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("FlattenCell on a self-referencing cell did not return promptly (recursion guard not effective)")
	}
}

func TestFlattenCellDropsDanglingModelReference(t *testing.T) {
	s := store.New(1)
	top := s.DefineCell("top", 0, false)
	top.AddObject(store.FirstPin, "u1/p", 1, "nosuchmodel", store.NodeDisconnected)

	var warnings []string
	f := New(s, func(format string, args ...any) {
		warnings = append(warnings, format)
	})
	if err := f.FlattenCell("top", 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one dangling-reference warning, got %d", len(warnings))
	}
	if len(top.Instances(1)) != 0 {
		t.Fatal("expected the dangling instance to be dropped")
	}
}
