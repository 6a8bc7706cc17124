package store

import "testing"

func TestConnectAllocatesFreshNodeWhenBothDisconnected(t *testing.T) {
	s := New(1)
	c := newTestCell(t, s, "top")
	a := c.DefinePort("a")
	b := c.DefinePort("b")

	if err := s.Connect([]*Object{a}, []*Object{b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Node != b.Node || a.Node <= NodeDisconnected {
		t.Fatalf("expected a and b to share a fresh node, got %d %d", a.Node, b.Node)
	}
}

func TestConnectSmallerNodeWins(t *testing.T) {
	s := New(1)
	c := newTestCell(t, s, "top")
	a := c.DefinePort("a")
	b := c.DefinePort("b")
	x := c.DefinePort("x")
	a.Node = 5
	b.Node = 2
	x.Node = 5

	if err := s.Connect([]*Object{a}, []*Object{b}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Node != 2 || x.Node != 2 {
		t.Fatalf("expected every object carrying node 5 to be renumbered to 2, got a=%d x=%d", a.Node, x.Node)
	}
}

func TestConnectUnequalNToMIsError(t *testing.T) {
	s := New(1)
	c := newTestCell(t, s, "top")
	a1, a2 := c.DefinePort("a1"), c.DefinePort("a2")
	b1, b2, b3 := c.DefinePort("b1"), c.DefinePort("b2"), c.DefinePort("b3")

	err := s.Connect([]*Object{a1, a2}, []*Object{b1, b2, b3})
	if err == nil {
		t.Fatal("expected error for unequal N-to-M connect")
	}
}

func TestConnectPairsBatchMergesChains(t *testing.T) {
	s := New(1)
	c := newTestCell(t, s, "bus")
	a := []*Object{c.DefinePort("a0"), c.DefinePort("a1"), c.DefinePort("a2")}
	b := []*Object{c.DefinePort("b0"), c.DefinePort("b1"), c.DefinePort("b2")}
	a[0].Node, b[0].Node = 10, 3
	a[1].Node, b[1].Node = 3, 7
	// a[2]/b[2] both disconnected: should mint a node and merge only themselves.

	if err := s.Connect(a, b); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a[0].Node != b[0].Node || a[0].Node != 3 {
		t.Fatalf("expected the 10-3-7 chain to collapse onto 3, got a0=%d b0=%d", a[0].Node, b[0].Node)
	}
	if a[1].Node != 3 || b[1].Node != 3 {
		t.Fatalf("expected a1/b1 folded into the same chain, got a1=%d b1=%d", a[1].Node, b[1].Node)
	}
	if a[2].Node != b[2].Node || a[2].Node <= NodeDisconnected {
		t.Fatalf("expected a2/b2 to share a fresh node, got a2=%d b2=%d", a[2].Node, b[2].Node)
	}
}

func TestParseSIFloat(t *testing.T) {
	cases := []struct {
		raw  string
		want float64
	}{
		{"1meg", 1e6},
		{"1m", 1e-3},
		{"10u", 10e-6},
		{"2.5p", 2.5e-12},
		{"3g", 3e9},
		{"42", 42},
	}
	for _, tc := range cases {
		got, err := ParseSIFloat(tc.raw)
		if err != nil {
			t.Fatalf("ParseSIFloat(%q): unexpected error: %v", tc.raw, err)
		}
		if got != tc.want {
			t.Errorf("ParseSIFloat(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestLinkPropertiesFillsZeroValueAndWarnsOnMissingKey(t *testing.T) {
	s := New(1)
	model := s.DefineCell("nmos", 0, false)
	model.DefinePort("d")
	model.DefinePort("g")
	model.Keys = []PropKey{{Key: "w", Type: PropDouble}, {Key: "l", Type: PropDouble}}

	top := s.DefineCell("top", 0, false)
	s.SetCurrent(top)
	inst, err := s.Instance(model, "m1")
	if err != nil {
		t.Fatalf("Instance: %v", err)
	}

	var warned []string
	err = s.LinkProperties(model, inst, map[string]string{"W": "1u"}, func(msg string) {
		warned = append(warned, msg)
	})
	if err != nil {
		t.Fatalf("LinkProperties: %v", err)
	}
	if len(warned) != 1 {
		t.Fatalf("expected one warning for the missing 'l' key, got %d", len(warned))
	}

	prop := top.PropertyOf(inst)
	if prop == nil {
		t.Fatal("expected a PROPERTY object to be linked")
	}
	if prop.Values[0].D != 1e-6 {
		t.Errorf("expected w=1e-6, got %v", prop.Values[0].D)
	}
	if prop.Values[1].D != 0 {
		t.Errorf("expected zero value for missing l, got %v", prop.Values[1].D)
	}
}

func TestInstanceUnionsGlobalPinsOnceConverted(t *testing.T) {
	// Instance only wires a GLOBAL onto the new instance's pin run once
	// that global has already been turned into a real PORT (the job of
	// ConvertGlobals, spec §4.3); a bare GLOBAL with no matching port
	// mints no pin of its own.
	s := New(1)
	model := s.DefineCell("buf", 0, false)
	model.DefinePort("in")
	model.DefinePort("VDD")   // the global, already converted to a port
	model.DefineGlobal("VDD") // ...and still declared global in the model

	top := s.DefineCell("top", 0, false)
	s.SetCurrent(top)
	if _, err := s.Instance(model, "u1"); err != nil {
		t.Fatalf("Instance: %v", err)
	}

	pin, ok := top.LookupObject("u1/VDD")
	if !ok {
		t.Fatal("expected a pin object mirroring the converted global port")
	}
	g, ok := top.LookupObject("VDD")
	if !ok {
		t.Fatal("expected a same-named global created in the parent")
	}
	if pin.Node <= NodeDisconnected || g.Node != pin.Node {
		t.Fatalf("expected the pin unioned onto the parent global, got pin=%d global=%d", pin.Node, g.Node)
	}
}

func TestInstanceSkipsUnconvertedGlobal(t *testing.T) {
	s := New(1)
	model := s.DefineCell("buf", 0, false)
	model.DefinePort("in")
	model.DefineGlobal("VDD")

	top := s.DefineCell("top", 0, false)
	s.SetCurrent(top)
	if _, err := s.Instance(model, "u1"); err != nil {
		t.Fatalf("Instance: %v", err)
	}

	if _, ok := top.LookupObject("u1/VDD"); ok {
		t.Fatal("Instance should not fabricate a pin for a GLOBAL that was never converted to a port")
	}
}
