package hierarchy

import (
	"testing"

	"github.com/opentracelab/netcmp/internal/store"
)

func TestConvertGlobalsAppendsPortAndPatchesParent(t *testing.T) {
	s := store.New(1)
	cell := s.DefineCell("buf", 0, false)
	cell.DefinePort("in")
	g := cell.DefineGlobal("VDD")
	g.Node = 9

	top := s.DefineCell("top", 0, false)
	s.SetCurrent(top)
	if _, err := s.Instance(cell, "u1"); err != nil {
		t.Fatalf("Instance: %v", err)
	}

	f := New(s, nil)
	if err := f.ConvertGlobals(cell, 0); err != nil {
		t.Fatalf("ConvertGlobals: %v", err)
	}

	if _, ok := findPort(cell, "VDD"); !ok {
		t.Fatal("expected VDD to become a port of buf")
	}
	if len(cell.Globals()) != 0 {
		t.Fatal("expected the original GLOBAL object to be removed from buf")
	}
	if _, ok := cell.LookupObject("VDD"); !ok {
		t.Fatal("expected VDD to still be reachable by name (now as a port)")
	}

	if _, ok := top.LookupObject("u1/VDD"); !ok {
		t.Fatal("expected a new pin wired onto the existing instance for the converted global")
	}
	if _, ok := top.LookupObject("VDD"); !ok {
		t.Fatal("expected a fresh GLOBAL to be created in the parent")
	}
}

func TestConvertGlobalsSkipsAlreadyPortedGlobal(t *testing.T) {
	s := store.New(1)
	cell := s.DefineCell("buf", 0, false)
	cell.DefinePort("VDD")
	cell.DefineGlobal("VDD")

	f := New(s, nil)
	if err := f.ConvertGlobals(cell, 0); err != nil {
		t.Fatalf("ConvertGlobals: %v", err)
	}

	var ports int
	for _, ob := range cell.Objects {
		if ob.Type == store.TypePort && ob.Name == "VDD" {
			ports++
		}
	}
	if ports != 1 {
		t.Fatalf("expected exactly one VDD port (no duplicate), got %d", ports)
	}
}
