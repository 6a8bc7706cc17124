package spice

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"

	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// primitiveInfo describes the default arity/port-naming/property-key
// convention netcmp assumes for a bare SPICE reference-designator
// letter that carries no explicit `.MODEL` card.
type primitiveInfo struct {
	class store.DeviceClass
	ports []string
}

var primitives = map[byte]primitiveInfo{
	'R': {store.ClassResistor, []string{"p1", "p2"}},
	'C': {store.ClassCapacitor, []string{"p1", "p2"}},
	'L': {store.ClassInductor, []string{"p1", "p2"}},
	'D': {store.ClassDiode, []string{"p1", "p2"}},
}

// modeledPrefixes are the reference-designator letters that always
// name an explicit .MODEL card; their arity comes from that model's
// own port list (set by defaultPortsFor when the .MODEL was read),
// not from the instance card's node count.
var modeledPrefixes = map[byte]bool{'Q': true, 'M': true}

// Reader reads one or more SPICE files into a store.Store, following
// `.INCLUDE` cards. Includes reuse the same Reader so a cycle across
// files is still caught.
type Reader struct {
	Store     *store.Store
	File      int
	Searchers []string // .INCLUDE search path, spec_full config.IncludePaths

	parser *Parser

	// includeStack tags each currently-open file with a short opaque
	// token (spec_full SUPPLEMENTED: ".INCLUDE cycle detection"); a
	// path already on the stack is a cycle, reported as a KindInput
	// error instead of recursing forever.
	includeStack []includeFrame

	anonModels map[string]*store.Cell

	cellStack []*store.Cell
}

type includeFrame struct {
	path string
	tag  string
}

// NewReader returns a Reader that populates s's cells tagged with
// file.
func NewReader(s *store.Store, file int) (*Reader, error) {
	p, err := NewParser()
	if err != nil {
		return nil, err
	}
	return &Reader{Store: s, File: file, parser: p, anonModels: map[string]*store.Cell{}}, nil
}

// ReadFile parses path (and, transitively, every file it includes)
// into the reader's store.
func (r *Reader) ReadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, f := range r.includeStack {
		if f.path == abs {
			return diag.New(diag.KindInput, "spice: .INCLUDE cycle detected: %s (already open as %s)", path, f.tag)
		}
	}
	f, err := os.Open(path)
	if err != nil {
		return diag.New(diag.KindInput, "spice: cannot open %q: %v", path, err)
	}
	defer f.Close()

	r.includeStack = append(r.includeStack, includeFrame{path: abs, tag: xid.New().String()})
	defer func() { r.includeStack = r.includeStack[:len(r.includeStack)-1] }()

	return r.Read(f)
}

// Read parses a single already-open SPICE stream.
func (r *Reader) Read(rd io.Reader) error {
	for _, line := range joinContinuations(rd) {
		card, err := r.parser.ParseLine(line)
		if err != nil {
			return err
		}
		if err := r.dispatch(card); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) dispatch(c *Card) error {
	switch {
	case c.Subckt != nil:
		return r.beginSubckt(c.Subckt)
	case c.Ends != nil:
		return r.endSubckt(c.Ends)
	case c.Model != nil:
		return r.defineModel(c.Model)
	case c.Global != nil:
		return r.defineGlobals(c.Global)
	case c.Include != nil:
		return r.include(c.Include)
	case c.Param != nil:
		return nil // no circuit simulation: parameters are never evaluated
	case c.Device != nil:
		return r.instanceDevice(c.Device)
	}
	return nil
}

func (r *Reader) beginSubckt(s *SubcktStart) error {
	cell := r.Store.DefineCell(s.Name, r.File, false)
	cell.Class = store.ClassSubcircuit
	for _, p := range s.Ports {
		cell.DefinePort(p)
	}
	r.Store.SetCurrent(cell)
	r.cellStack = append(r.cellStack, cell)
	return nil
}

func (r *Reader) endSubckt(*SubcktEnd) error {
	if len(r.cellStack) == 0 {
		return diag.New(diag.KindInput, "spice: .ENDS with no open .SUBCKT")
	}
	r.cellStack = r.cellStack[:len(r.cellStack)-1]
	if len(r.cellStack) > 0 {
		r.Store.SetCurrent(r.cellStack[len(r.cellStack)-1])
	} else {
		r.Store.SetCurrent(nil)
	}
	return nil
}

func (r *Reader) defineModel(m *ModelCard) error {
	cell := r.Store.DefineCell(m.Name, r.File, false)
	cell.Class = classOf(m.Class)
	ports := defaultPortsFor(m.Class)
	for _, p := range ports {
		cell.DefinePort(p)
	}
	for _, kv := range m.Pairs {
		cell.Keys = append(cell.Keys, store.PropKey{Key: kv.Key, Type: store.PropDouble})
	}
	return nil
}

func (r *Reader) defineGlobals(g *GlobalCard) error {
	cur := r.Store.Current()
	if cur == nil {
		return diag.New(diag.KindInput, "spice: .GLOBAL outside any .SUBCKT")
	}
	for _, name := range g.Names {
		if _, ok := cur.LookupObject(name); ok {
			continue
		}
		cur.DefineGlobal(name)
	}
	return nil
}

func (r *Reader) include(inc *IncludeCard) error {
	path := strings.Trim(inc.Path, `"`)
	if !filepath.IsAbs(path) {
		dirs := r.Searchers
		if n := len(r.includeStack); n > 0 {
			dirs = append([]string{filepath.Dir(r.includeStack[n-1].path)}, r.Searchers...)
		}
		for _, dir := range dirs {
			candidate := filepath.Join(dir, path)
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	return r.ReadFile(path)
}

func (r *Reader) instanceDevice(d *DeviceCard) error {
	cur := r.Store.Current()
	if cur == nil {
		return diag.New(diag.KindInput, "spice: device card %q outside any .SUBCKT", d.Name)
	}
	if len(d.Name) == 0 {
		return diag.New(diag.KindInput, "spice: empty device name")
	}

	var bare []string
	kv := map[string]string{}
	for _, f := range d.Fields {
		if f.Key != "" {
			kv[f.Key] = f.Value
			continue
		}
		bare = append(bare, f.Value)
	}
	if len(bare) == 0 {
		return diag.New(diag.KindInput, "spice: device %q has no nodes", d.Name)
	}

	letter := upper(d.Name[0])
	var model *store.Cell
	var nodes []string

	if letter == 'X' {
		if len(bare) < 2 {
			return diag.New(diag.KindInput, "spice: subcircuit instance %q needs a model name", d.Name)
		}
		modelName := bare[len(bare)-1]
		nodes = bare[:len(bare)-1]
		m, ok := r.Store.Lookup(modelName, r.File)
		if !ok {
			return diag.New(diag.KindLookup, "spice: %q: no .SUBCKT %q", d.Name, modelName)
		}
		model = m
	} else if modeledPrefixes[letter] {
		modelName := bare[len(bare)-1]
		nodes = bare[:len(bare)-1]
		m, ok := r.Store.Lookup(modelName, r.File)
		if !ok {
			return diag.New(diag.KindLookup, "spice: %q: no .MODEL %q", d.Name, modelName)
		}
		model = m
	} else if info, ok := primitives[letter]; ok {
		value := bare[len(bare)-1]
		nodes = bare[:len(bare)-1]
		modelName := value
		if m, ok := r.Store.Lookup(modelName, r.File); ok {
			model = m
		} else {
			model = r.anonymousModel(info, len(nodes))
			kv["value"] = value
		}
	} else {
		return diag.New(diag.KindInput, "spice: device %q: unrecognized reference-designator prefix %q", d.Name, string(letter))
	}

	if len(nodes) != len(model.Ports()) {
		return diag.New(diag.KindInput, "spice: %q: %d nodes given, model %q has %d ports", d.Name, len(nodes), model.Name, len(model.Ports()))
	}

	id, err := r.Store.Instance(model, d.Name)
	if err != nil {
		return diag.Wrap(diag.KindInput, err, "spice: %q", d.Name)
	}
	pins := cur.Instances(id)
	for i, nodeName := range nodes {
		node := r.getOrCreateNode(cur, nodeName)
		if err := r.Store.Connect([]*store.Object{node}, []*store.Object{pins[i]}); err != nil {
			return diag.Wrap(diag.KindInput, err, "spice: %q node %d", d.Name, i)
		}
	}
	if len(kv) > 0 {
		if err := r.Store.LinkProperties(model, id, kv, nil); err != nil {
			return diag.Wrap(diag.KindInput, err, "spice: %q", d.Name)
		}
	}
	return nil
}

// anonymousModel returns (creating and caching if needed) the
// synthesized primitive model for a bare value-only device card like
// `R1 a b 1k` that never named an explicit .MODEL. It is defined under
// the shared file tag -1, the same one Lookup falls back to (see
// bipartite.addCell), so that a bare resistor read from two different
// input files resolves to one shared model cell rather than one copy
// per file. Defining it leaves the store's current cell unchanged.
func (r *Reader) anonymousModel(info primitiveInfo, arity int) *store.Cell {
	key := fmt.Sprintf("%d:%d", info.class, arity)
	if c, ok := r.anonModels[key]; ok {
		return c
	}
	name := fmt.Sprintf("$%s%d", info.class, arity)
	if c, ok := r.Store.Lookup(name, -1); ok {
		r.anonModels[key] = c
		return c
	}
	prev := r.Store.Current()
	c := r.Store.DefineCell(name, -1, false)
	r.Store.SetCurrent(prev)
	c.Class = info.class
	for i, p := range info.ports {
		if i >= arity {
			break
		}
		c.DefinePort(p)
	}
	for len(c.Ports()) < arity {
		c.DefinePort(fmt.Sprintf("p%d", len(c.Ports())+1))
	}
	c.Keys = []store.PropKey{{Key: "value", Type: store.PropDouble, Slop: 0.01}}
	r.anonModels[key] = c
	return c
}

func (r *Reader) getOrCreateNode(cur *store.Cell, name string) *store.Object {
	if ob, ok := cur.LookupObject(name); ok {
		return ob
	}
	if name == "0" {
		return cur.DefineGlobal(name)
	}
	return cur.DefineNode(name)
}

func classOf(modelClass string) store.DeviceClass {
	switch upper(modelClass[0]) {
	case 'N':
		if len(modelClass) > 2 && upper(modelClass[1]) == 'P' {
			return store.ClassNPN
		}
		return store.ClassNMOS
	case 'P':
		if len(modelClass) > 2 && upper(modelClass[1]) == 'N' {
			return store.ClassPNP
		}
		return store.ClassPMOS
	case 'D':
		return store.ClassDiode
	case 'R':
		return store.ClassResistor
	case 'C':
		return store.ClassCapacitor
	default:
		return store.ClassUndefined
	}
}

func defaultPortsFor(modelClass string) []string {
	switch classOf(modelClass) {
	case store.ClassNMOS, store.ClassPMOS:
		return []string{"d", "g", "s", "b"}
	case store.ClassNPN, store.ClassPNP, store.ClassBJT:
		return []string{"c", "b", "e"}
	default:
		return []string{"p1", "p2"}
	}
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

// joinContinuations strips comments and blank lines and folds every
// `+`-prefixed continuation line onto its predecessor, returning one
// logical line per card (spec_full DOMAIN STACK: SPICE's card/
// continuation-line structure).
func joinContinuations(rd io.Reader) []string {
	var out []string
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if semi := strings.IndexByte(line, ';'); semi >= 0 {
			line = line[:semi]
		}
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "*") {
			continue
		}
		if strings.HasPrefix(trimmed, "+") {
			if len(out) == 0 {
				continue
			}
			out[len(out)-1] += " " + strings.TrimSpace(trimmed[1:])
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
