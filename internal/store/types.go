// Package store is the netlist store (spec §4.1): a map from
// (cell name, file tag) to cell definition, where each cell owns an
// ordered sequence of objects (ports, nodes, device pins, property
// records).
//
// Object order is significant and preserved deliberately: flatten,
// SPICE emission and port numbering all depend on it, so cells keep
// objects in a slice rather than an unordered map, with side indices
// for by-name and by-instance lookup (matching the teacher's own
// "indexed vector with side maps" approach to preserving parse order
// while still offering O(1) lookup, e.g. pkg/kicad/schematic.Schematic
// keeping parallel slices rather than maps for its top-level records).
package store

import "fmt"

// ObjType tags what an Object represents. Values below FirstPin are
// fixed roles; FirstPin and above number the pins of a device
// instance in declaration order (FIRSTPIN, FIRSTPIN+1, ...).
type ObjType int

const (
	TypeProperty     ObjType = iota - 5 // not a circuit element
	TypeGlobal                          // node shared hierarchically by name
	TypeUniqueGlobal                    // global, uniquified per instance
	TypeNode                            // internal named wire
	TypePort                            // external pin of the cell
	FirstPin                            // first pin of a device instance
)

func (t ObjType) String() string {
	switch t {
	case TypeProperty:
		return "PROPERTY"
	case TypeGlobal:
		return "GLOBAL"
	case TypeUniqueGlobal:
		return "UNIQUEGLOBAL"
	case TypeNode:
		return "NODE"
	case TypePort:
		return "PORT"
	}
	if t >= FirstPin {
		return fmt.Sprintf("PIN+%d", int(t-FirstPin))
	}
	return fmt.Sprintf("ObjType(%d)", int(t))
}

// IsPin reports whether t is a device pin (FIRSTPIN or later).
func (t ObjType) IsPin() bool { return t >= FirstPin }

// Node-field sentinels (spec §3, Object.node).
const (
	NodeDisconnected = -1 // pin not wired to anything
	NodeDummy        = 0  // intentional placeholder, never joined
	NodeProperty     = -2 // the node value carried by a PROPERTY object
)

// DeviceClass identifies what a primitive cell models, or that the
// cell is a composite subcircuit/module.
type DeviceClass int

const (
	ClassUndefined DeviceClass = iota
	ClassNMOS                  // 4-terminal
	ClassPMOS                  // 4-terminal
	ClassFET                   // generic FET, 3 or 4 terminal
	ClassNPN
	ClassPNP
	ClassBJT
	ClassResistor // 2 or 3 terminal
	ClassCapacitor
	ClassECap
	ClassDiode
	ClassInductor
	ClassXline
	ClassSubcircuit
	ClassModule
)

var classNames = map[DeviceClass]string{
	ClassUndefined:  "undefined",
	ClassNMOS:       "nmos",
	ClassPMOS:       "pmos",
	ClassFET:        "fet",
	ClassNPN:        "npn",
	ClassPNP:        "pnp",
	ClassBJT:        "bjt",
	ClassResistor:   "resistor",
	ClassCapacitor:  "capacitor",
	ClassECap:       "ecap",
	ClassDiode:      "diode",
	ClassInductor:   "inductor",
	ClassXline:      "xline",
	ClassSubcircuit: "subcircuit",
	ClassModule:     "module",
}

func (c DeviceClass) String() string {
	if s, ok := classNames[c]; ok {
		return s
	}
	return "undefined"
}

// ValidPortCount reports whether n ports is an admissible arity for
// the class (spec §6, the `model` CLI command's arity check).
func (c DeviceClass) ValidPortCount(n int) bool {
	switch c {
	case ClassNMOS, ClassPMOS, ClassFET:
		return n == 3 || n == 4
	case ClassNPN, ClassPNP, ClassBJT:
		return n == 3
	case ClassResistor, ClassCapacitor, ClassECap:
		return n == 2 || n == 3
	case ClassDiode:
		return n == 2
	case ClassInductor:
		return n == 2
	case ClassXline:
		return n == 4
	default:
		return true // subcircuit, module, undefined: any arity
	}
}

// PropType is the declared type of a property key.
type PropType int

const (
	PropDouble PropType = iota
	PropInt
	PropString
)

// PropKey is one entry of a cell's ordered property-key list.
type PropKey struct {
	Key  string
	Type PropType
	// Slop is the tolerance: a relative bound on |a-b|/|a| for PropDouble, an integer
	// delta for PropInt, or a prefix length for PropString (0 = exact).
	Slop float64
}

// PropValue is one discriminated value, aligned 1-to-1 with the
// owning cell's PropKey list.
type PropValue struct {
	Type PropType
	D    float64
	I    int64
	S    string
}

// RawPair is a raw key:value token retained verbatim (but not
// compared) because its key was not declared on the model cell.
type RawPair struct {
	Key   string
	Value string
}

// Object is one entry in a cell's ordered object list.
type Object struct {
	Name     string  // globally unique within the owning cell
	Type     ObjType
	Model    string // referenced cell name; empty for ports/nodes
	Instance int    // shared by all pins of the same device instance
	Node     int    // electrical net id; see Node* sentinels

	// Populated only on PROPERTY objects (Type == TypeProperty).
	Raw    []RawPair
	Values []PropValue
}

// Cell is a circuit definition: (name, file) plus its ordered object
// list and device-class metadata.
type Cell struct {
	Name  string
	File  int // -1 means "any file"
	Class DeviceClass

	// ClassHash is a pure function of Name alone, used to seed device
	// hashes in the bipartite builder and to recognize same-class
	// cells across input files without needing an explicit `equate`
	// (spec §9: "equivalent cells ... recognised by equal classhash").
	ClassHash uint64

	NoCase  bool // case-insensitive name matching within this cell
	Matched bool // set once this cell has a confirmed compare match

	Keys []PropKey // ordered property-key declarations

	Objects []*Object

	nameIndex     map[string]int // Object.Name -> index in Objects
	instanceIndex map[int][]int  // Object.Instance -> indices in Objects (pin run)
	nextInstance  int
	nextNode      int
}

func newCell(name string, file int) *Cell {
	return &Cell{
		Name:          name,
		File:          file,
		nameIndex:     make(map[string]int),
		instanceIndex: make(map[int][]int),
		nextNode:      1,
	}
}

// foldName applies the cell's case-folding policy to a lookup key.
func (c *Cell) foldName(name string) string {
	if c.NoCase {
		return foldCase(name)
	}
	return name
}
