package hierarchy

import "github.com/opentracelab/netcmp/internal/store"

// ConvertGlobals turns cell's GLOBAL objects into explicit ports (spec
// §4.3): each global not already a port gets a PORT object appended at
// the tail of the port run, carrying the global's node. Every cell in
// the store that instantiates cell then gets a matching new pin wired
// to its own same-named global (or a freshly created one), and the
// original GLOBAL objects are dropped from cell once every parent has
// been patched.
//
// The hash index deliberately keeps the freed GLOBAL objects' names
// reachable: RemoveObjectsAt rebuilds nameIndex from the surviving
// Objects slice, and the new PORT carries the same Name, so a lookup
// by that name still resolves — to the port, not a dangling pointer.
func (f *Flattener) ConvertGlobals(cell *store.Cell, file int) error {
	globals := cell.Globals()
	if len(globals) == 0 {
		return nil
	}

	var newPorts []*store.Object
	for _, g := range globals {
		if _, isPort := findPort(cell, g.Name); isPort {
			continue
		}
		newPorts = append(newPorts, &store.Object{Name: g.Name, Type: store.TypePort, Node: g.Node})
	}

	for _, parent := range f.store.AllCells() {
		if parent == cell {
			continue
		}
		for _, inst := range parent.FirstPinObjects() {
			if inst.Model != cell.Name {
				continue
			}
			f.patchParentForGlobals(parent, inst, newPorts)
		}
	}

	appendPorts(cell, newPorts)
	dropGlobals(cell, globals)
	return nil
}

// findPort reports whether cell already has a PORT object named name.
func findPort(cell *store.Cell, name string) (*store.Object, bool) {
	for _, p := range cell.Ports() {
		if p.Name == name {
			return p, true
		}
	}
	return nil, false
}

// patchParentForGlobals adds one pin per newly-ported global to the
// instance's pin run, wired to the parent's matching global/port (or a
// freshly created global when neither exists yet).
func (f *Flattener) patchParentForGlobals(parent *store.Cell, inst *store.Object, newPorts []*store.Object) {
	if len(newPorts) == 0 {
		return
	}
	prefix := instanceNamePrefix(inst.Name)
	pins := parent.Instances(inst.Instance)
	nextPinType := inst.Type
	for _, p := range pins {
		if p.Type.IsPin() && p.Type > nextPinType {
			nextPinType = p.Type
		}
	}

	for _, g := range newPorts {
		pinName := prefix + "/" + g.Name
		nextPinType++
		pin := parent.AddObject(nextPinType, pinName, inst.Instance, inst.Model, store.NodeDisconnected)

		target, ok := parent.LookupObject(g.Name)
		if !ok {
			target = parent.DefineGlobal(g.Name)
		}
		if target.Node <= store.NodeDisconnected {
			target.Node = parent.NewNodeID()
		}
		pin.Node = target.Node
	}
}

func appendPorts(cell *store.Cell, ports []*store.Object) {
	for _, p := range ports {
		np := cell.DefinePort(p.Name)
		np.Node = p.Node
	}
}

func dropGlobals(cell *store.Cell, globals []*store.Object) {
	names := make(map[string]bool, len(globals))
	for _, g := range globals {
		names[g.Name] = true
	}
	var idxs []int
	for i, ob := range cell.Objects {
		if ob.Type == store.TypeGlobal && names[ob.Name] {
			idxs = append(idxs, i)
		}
	}
	cell.RemoveObjectsAt(idxs)
}
