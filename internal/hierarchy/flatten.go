// Package hierarchy implements the structural rewrites that operate
// across cell boundaries: flattening subcircuit instances into their
// parent, converting GLOBAL nets to explicit ports, and walking two
// netlists together to build a bottom-up compare queue (spec §4.2–4.4).
package hierarchy

import (
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

type cellKey struct {
	name string
	file int
}

// Flattener holds the per-call recursion guard ("dumped" marker, spec
// §4.2) used while flattening one cell. A fresh Flattener should be
// created per top-level FlattenCell/FlattenInstancesOf call.
type Flattener struct {
	store      *store.Store
	inProgress map[cellKey]bool
	Warnf      func(format string, args ...any)
}

// New returns a Flattener bound to s. warnf receives Input-class
// diagnostics (dangling model references, port/pin arity drift); pass
// nil to discard them.
func New(s *store.Store, warnf func(format string, args ...any)) *Flattener {
	if warnf == nil {
		warnf = func(string, ...any) {}
	}
	return &Flattener{store: s, inProgress: map[cellKey]bool{}, Warnf: warnf}
}

// FlattenCell repeatedly expands the first non-primitive instance (one
// whose model's class is subcircuit, module, or not set) found in
// (name, file) until none remain, splicing each child's object list
// into the parent in place (spec §4.2).
func (f *Flattener) FlattenCell(name string, file int) error {
	cell, ok := f.store.Lookup(name, file)
	if !ok {
		return diag.New(diag.KindLookup, "FlattenCell: no cell %s in file %d", name, file)
	}
	return f.flattenInto(cell)
}

func (f *Flattener) flattenInto(cell *store.Cell) error {
	key := cellKey{cell.Name, cell.File}
	if f.inProgress[key] {
		return nil // self-recursion guard: never expand a cell into itself
	}
	f.inProgress[key] = true
	defer delete(f.inProgress, key)

	primitive := map[int]bool{}
	for {
		target := firstSubcircuitPin(cell, primitive)
		if target == nil {
			return nil
		}
		child, ok := f.store.Lookup(target.Model, cell.File)
		if !ok {
			child, ok = f.store.Lookup(target.Model, -1)
		}
		if !ok {
			f.Warnf("FlattenCell: %s: dangling model reference %q, dropping instance", cell.Name, target.Model)
			removeInstance(cell, target.Instance)
			continue
		}
		if child.Class != store.ClassSubcircuit && child.Class != store.ClassModule && child.Class != store.ClassUndefined {
			primitive[target.Instance] = true // primitive device: stays as is
			continue
		}
		if f.inProgress[cellKey{child.Name, child.File}] {
			// Recursive reference: leave this one instance unexpanded
			// rather than loop forever. markSkipped tags its FIRSTPIN so
			// firstSubcircuitPin (and findInstanceOf) pass over it from
			// now on.
			markSkipped(cell, target.Instance)
			continue
		}
		if err := f.expandInstance(cell, child, target); err != nil {
			return err
		}
	}
}

// skipMarker is a sentinel stashed in Object.Raw (unused on non-PROPERTY
// objects) to mark an instance as "leave alone" after a recursion-guard
// skip; firstSubcircuitPin treats any FIRSTPIN carrying it as already
// handled.
const skipMarker = "\x00flatten-skip"

func markSkipped(cell *store.Cell, instance int) {
	for _, ob := range cell.Instances(instance) {
		if ob.Type == store.FirstPin {
			ob.Raw = append(ob.Raw, store.RawPair{Key: skipMarker})
		}
	}
}

func isSkipped(ob *store.Object) bool {
	for _, p := range ob.Raw {
		if p.Key == skipMarker {
			return true
		}
	}
	return false
}

// firstSubcircuitPin returns the first FIRSTPIN object of cell that
// names a model and is neither marked skipped nor listed in primitive,
// or nil if there is none. It does not resolve the model; flattenInto
// looks it up and records primitive-class instances in primitive.
func firstSubcircuitPin(cell *store.Cell, primitive map[int]bool) *store.Object {
	for _, ob := range cell.Objects {
		if ob.Type != store.FirstPin {
			continue
		}
		if isSkipped(ob) || primitive[ob.Instance] {
			continue
		}
		if ob.Model == "" {
			continue
		}
		return ob
	}
	return nil
}

func removeInstance(cell *store.Cell, instance int) {
	idxs := cell.InstanceIndices(instance)
	cell.RemoveObjectsAt(idxs)
}

// expandInstance clones child's object list into cell in place of
// target's pin run (spec §4.2 steps 1-8).
func (f *Flattener) expandInstance(cell, child *store.Cell, target *store.Object) error {
	instancePins := cell.Instances(target.Instance)
	parentInstanceName := instanceNamePrefix(instancePins[0].Name)

	clone, _, nodeMap := cloneObjects(child.Objects, cell)

	// Step 3: unify renumbered clone ports with the node seen at the
	// parent's corresponding instance pin, stopping at whichever pin
	// run (parent's or child's port list) ends first.
	childPorts := filterByType(clone, store.TypePort)
	n := len(childPorts)
	if len(instancePins) < n {
		n = len(instancePins)
	}
	renumber := map[int]int{}
	for i := 0; i < n; i++ {
		port := childPorts[i]
		pin := instancePins[i]
		if pin.Type == store.TypeProperty {
			break
		}
		unifyNode(renumber, port.Node, pin.Node)
	}
	applyRenumber(clone, renumber)
	applyRenumber(cell.Objects, renumber)

	// Step 4: drop port objects from the clone; they are now internal.
	clone = dropByType(clone, store.TypePort)

	// Step 5: special-case PROPERTY and GLOBAL, rename everything else.
	var kept []*store.Object
	for _, ob := range clone {
		switch ob.Type {
		case store.TypeProperty:
			kept = append(kept, ob)
		case store.TypeGlobal:
			if existing, ok := cell.LookupObject(ob.Name); ok {
				renumber2 := map[int]int{}
				unifyNode(renumber2, ob.Node, existing.Node)
				applyRenumber([]*store.Object{ob}, renumber2)
				applyRenumber(cell.Objects, renumber2)
				existing.Node = ob.Node
				continue // merged into the existing parent global, drop clone copy
			}
			kept = append(kept, ob) // no parent global yet: splice this one in, name untouched
		default:
			ob.Name = parentInstanceName + "/" + ob.Name
			kept = append(kept, ob)
		}
	}
	_ = nodeMap

	return cell.SpliceInstance(target.Instance, kept)
}

func instanceNamePrefix(pinName string) string {
	for i := len(pinName) - 1; i >= 0; i-- {
		if pinName[i] == '/' {
			return pinName[:i]
		}
	}
	return pinName
}

func filterByType(objs []*store.Object, t store.ObjType) []*store.Object {
	var out []*store.Object
	for _, ob := range objs {
		if ob.Type == t {
			out = append(out, ob)
		}
	}
	return out
}

func dropByType(objs []*store.Object, t store.ObjType) []*store.Object {
	out := objs[:0:0]
	for _, ob := range objs {
		if ob.Type != t {
			out = append(out, ob)
		}
	}
	return out
}

// unifyNode records, in renumber, that node b should become node a
// (or vice versa, smaller wins) — the same min-wins rule Connect uses.
func unifyNode(renumber map[int]int, a, b int) {
	if a <= store.NodeDisconnected || b <= store.NodeDisconnected || a == b {
		return
	}
	lo, hi := a, b
	if hi < lo {
		lo, hi = hi, lo
	}
	renumber[hi] = lo
}

func applyRenumber(objs []*store.Object, renumber map[int]int) {
	if len(renumber) == 0 {
		return
	}
	for _, ob := range objs {
		if to, ok := renumber[ob.Node]; ok {
			ob.Node = to
		}
	}
}

// cloneObjects deep-copies src, renumbering every positive node to a
// fresh number minted from dst (spec §4.2 step 2) and every distinct
// Instance tag to a fresh id minted from dst, so the clone can live
// inside dst without colliding with its existing objects.
func cloneObjects(src []*store.Object, dst *store.Cell) ([]*store.Object, map[int]int, map[int]int) {
	nodeMap := map[int]int{}
	instanceMap := map[int]int{}
	out := make([]*store.Object, len(src))
	for i, ob := range src {
		clone := *ob
		clone.Raw = append([]store.RawPair(nil), ob.Raw...)
		clone.Values = append([]store.PropValue(nil), ob.Values...)

		if ob.Node > 0 {
			nn, ok := nodeMap[ob.Node]
			if !ok {
				nn = dst.NewNodeID()
				nodeMap[ob.Node] = nn
			}
			clone.Node = nn
		}
		if ob.Type.IsPin() || ob.Type == store.TypeProperty {
			ni, ok := instanceMap[ob.Instance]
			if !ok {
				ni = dst.NewInstanceID()
				instanceMap[ob.Instance] = ni
			}
			clone.Instance = ni
		}
		out[i] = &clone
	}
	return out, instanceMap, nodeMap
}

// FlattenInstancesOf flattens only instances of childName inside
// (parentName, file), expanding each one the same way FlattenCell
// does. A clone port whose parent pin is unconnected keeps its own
// fresh node; no other parent pin of the same name is searched for.
func (f *Flattener) FlattenInstancesOf(parentName string, file int, childName string) error {
	parent, ok := f.store.Lookup(parentName, file)
	if !ok {
		return diag.New(diag.KindLookup, "FlattenInstancesOf: no cell %s in file %d", parentName, file)
	}
	child, ok := f.store.Lookup(childName, file)
	if !ok {
		child, ok = f.store.Lookup(childName, -1)
	}
	if !ok {
		return diag.New(diag.KindLookup, "FlattenInstancesOf: no model %s", childName)
	}
	key := cellKey{parent.Name, parent.File}
	f.inProgress[key] = true
	defer delete(f.inProgress, key)

	for {
		target := findInstanceOf(parent, childName)
		if target == nil {
			return nil
		}
		if err := f.expandInstance(parent, child, target); err != nil {
			return err
		}
	}
}

func findInstanceOf(cell *store.Cell, model string) *store.Object {
	for _, ob := range cell.Objects {
		if ob.Type == store.FirstPin && ob.Model == model && !isSkipped(ob) {
			return ob
		}
	}
	return nil
}

// FlattenCurrent flattens the store's current cell (Store.Current:
// the cell last defined, reopened or set with SetCurrent), matching
// the original's FlattenCurrent convenience wrapper.
func (f *Flattener) FlattenCurrent() error {
	cur := f.store.Current()
	if cur == nil {
		return diag.New(diag.KindLookup, "FlattenCurrent: no current cell")
	}
	return f.flattenInto(cur)
}
