package resolve

import (
	"fmt"
	"math"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// PropertyMismatch describes one key whose aligned values failed the
// owning cell's declared tolerance.
type PropertyMismatch struct {
	Key      string
	A, B     store.PropValue
	WantSlop float64
}

// PropertyCheck compares the two members of a balanced, size-2
// element class key-by-key against the model's declared property
// list (spec §4.7). It requires exactly one member per graph; any
// other size is a caller error, not a property mismatch.
func PropertyCheck(s *store.Store, class *bipartite.ElementClass) ([]PropertyMismatch, error) {
	if len(class.Members) != 2 {
		return nil, diag.New(diag.KindProperty, "PropertyCheck: class has %d members, want exactly 2", len(class.Members))
	}
	a, b := class.Members[0], class.Members[1]
	if a.Graph == b.Graph {
		return nil, diag.New(diag.KindProperty, "PropertyCheck: both members belong to graph %s", a.Graph)
	}
	if a.Graph != bipartite.GraphA {
		a, b = b, a
	}

	model, ok := lookupModelOf(s, a.Object)
	if !ok {
		return nil, diag.New(diag.KindLookup, "PropertyCheck: no model for instance %q", a.Object.Name)
	}

	propA := propertyOf(ownerCellOf(s, a.Object), a.Object)
	propB := propertyOf(ownerCellOf(s, b.Object), b.Object)

	var mismatches []PropertyMismatch
	for i, key := range model.Keys {
		va := valueAt(propA, i)
		vb := valueAt(propB, i)
		if va == nil || vb == nil {
			mismatches = append(mismatches, PropertyMismatch{Key: key.Key, WantSlop: key.Slop})
			continue
		}
		if !withinTolerance(key, *va, *vb) {
			mismatches = append(mismatches, PropertyMismatch{Key: key.Key, A: *va, B: *vb, WantSlop: key.Slop})
		}
	}
	return mismatches, nil
}

func withinTolerance(key store.PropKey, a, b store.PropValue) bool {
	switch key.Type {
	case store.PropDouble:
		if a.D == 0 {
			return b.D == 0
		}
		return math.Abs(a.D-b.D)/math.Abs(a.D) <= key.Slop
	case store.PropInt:
		delta := a.I - b.I
		if delta < 0 {
			delta = -delta
		}
		return float64(delta) <= key.Slop
	case store.PropString:
		if key.Slop <= 0 {
			return a.S == b.S
		}
		n := int(key.Slop)
		return prefix(a.S, n) == prefix(b.S, n)
	default:
		return a == b
	}
}

func prefix(s string, n int) string {
	if n >= len(s) {
		return s
	}
	return s[:n]
}

func valueAt(prop *store.Object, i int) *store.PropValue {
	if prop == nil || i < 0 || i >= len(prop.Values) {
		return nil
	}
	return &prop.Values[i]
}

func propertyOf(cell *store.Cell, instanceFirstPin *store.Object) *store.Object {
	if cell == nil {
		return nil
	}
	return cell.PropertyOf(instanceFirstPin.Instance)
}

func lookupModelOf(s *store.Store, ob *store.Object) (*store.Cell, bool) {
	cell := ownerCellOf(s, ob)
	if cell == nil {
		return nil, false
	}
	if model, ok := s.Lookup(ob.Model, cell.File); ok {
		return model, true
	}
	return s.Lookup(ob.Model, -1)
}

// ownerCellOf finds the cell that directly contains ob by scanning
// every cell in the store; the bipartite Element only keeps the
// Object pointer, not its owning cell, so this is the one place that
// needs to walk back from object to cell.
func ownerCellOf(s *store.Store, ob *store.Object) *store.Cell {
	for _, c := range s.AllCells() {
		for _, o := range c.Objects {
			if o == ob {
				return c
			}
		}
	}
	return nil
}

func (m PropertyMismatch) String() string {
	return fmt.Sprintf("property %q: %v vs %v (slop %g)", m.Key, m.A, m.B, m.WantSlop)
}
