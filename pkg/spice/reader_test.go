package spice_test

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/resolve"
	"github.com/opentracelab/netcmp/internal/store"
	"github.com/opentracelab/netcmp/pkg/spice"
)

const inverterSpice = `
* simple inverter
.SUBCKT nmos d g s
.ENDS nmos

.SUBCKT inv a b
M1 a b 0 nmos
.ENDS inv
`

func TestReaderParsesSubcktAndDeviceCards(t *testing.T) {
	s := store.New(1)
	r, err := spice.NewReader(s, 0)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	if err := r.Read(strings.NewReader(inverterSpice)); err != nil {
		t.Fatalf("Read: %v", err)
	}

	inv, ok := s.Lookup("inv", 0)
	if !ok {
		t.Fatal("expected cell inv to be defined")
	}
	if len(inv.Ports()) != 2 {
		t.Fatalf("expected 2 ports on inv, got %d", len(inv.Ports()))
	}
	first := inv.FirstPinObjects()
	if len(first) != 1 {
		t.Fatalf("expected exactly one instance in inv, got %d", len(first))
	}
	if first[0].Model != "nmos" {
		t.Errorf("expected instance model nmos, got %q", first[0].Model)
	}
}

func TestReaderRejectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	aPath := filepath.Join(dir, "a.sp")
	bPath := filepath.Join(dir, "b.sp")

	writeFile(t, aPath, ".INCLUDE \"b.sp\"\n.SUBCKT top a b\n.ENDS top\n")
	writeFile(t, bPath, ".INCLUDE \"a.sp\"\n")

	s := store.New(1)
	r, err := spice.NewReader(s, 0)
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	r.Searchers = []string{dir}

	err = r.ReadFile(aPath)
	if err == nil {
		t.Fatal("expected an .INCLUDE cycle (a.sp -> b.sp -> a.sp) to be rejected")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("expected a cycle-flavored error, got: %v", err)
	}
}

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writeFile %s: %v", path, err)
	}
}

func TestReaderParsesResistorWithBareValueAndComparesEqual(t *testing.T) {
	const net = `
.SUBCKT top a b
R1 a b 1k
.ENDS top
`
	// Read the same text twice into one store under different file
	// tags, the way a schematic-vs-layout comparison would. The bare
	// R1 card never names a .MODEL, so each read synthesizes an
	// anonymous resistor model via anonymousModel; that model is
	// defined under the shared file tag -1 (see anonymousModel's
	// doc comment), so both reads resolve to the very same model cell
	// rather than one copy per file.
	s := store.New(1)
	r1, _ := spice.NewReader(s, 0)
	if err := r1.Read(strings.NewReader(net)); err != nil {
		t.Fatalf("Read file 0: %v", err)
	}
	r2, _ := spice.NewReader(s, 1)
	if err := r2.Read(strings.NewReader(net)); err != nil {
		t.Fatalf("Read file 1: %v", err)
	}

	topA, _ := s.Lookup("top", 0)
	topB, _ := s.Lookup("top", 1)

	g, err := bipartite.CreateTwoLists(s, topA, topB, bipartite.NewPinMagicTable(rand.New(rand.NewSource(1))))
	if err != nil {
		t.Fatalf("CreateTwoLists: %v", err)
	}
	e := engine.New(g, rand.New(rand.NewSource(2)), false)
	if err := e.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	state, _ := resolve.VerifyMatching(e)
	if state == resolve.StateIllegal {
		t.Fatal("expected two identical resistor netlists read from the same text to compare legally")
	}
}
