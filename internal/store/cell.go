package store

import (
	"fmt"

	"github.com/opentracelab/netcmp/internal/diag"
)

// AddObject appends a new object to the cell's ordered list and
// updates the name and instance hash indices (spec §4.1 AddObject).
func (c *Cell) AddObject(typ ObjType, name string, instance int, model string, node int) *Object {
	ob := &Object{Name: name, Type: typ, Model: model, Instance: instance, Node: node}
	c.Objects = append(c.Objects, ob)
	idx := len(c.Objects) - 1
	c.nameIndex[c.foldName(name)] = idx
	if typ.IsPin() || typ == TypeProperty {
		c.instanceIndex[instance] = append(c.instanceIndex[instance], idx)
	}
	return ob
}

// DefinePort appends a PORT object with an unconnected node.
func (c *Cell) DefinePort(name string) *Object {
	return c.AddObject(TypePort, name, 0, "", NodeDisconnected)
}

// DefineNode appends an internal NODE object.
func (c *Cell) DefineNode(name string) *Object {
	return c.AddObject(TypeNode, name, 0, "", NodeDisconnected)
}

// DefineGlobal appends a GLOBAL object.
func (c *Cell) DefineGlobal(name string) *Object {
	return c.AddObject(TypeGlobal, name, 0, "", NodeDisconnected)
}

// DefineUniqueGlobal appends an UNIQUEGLOBAL object.
func (c *Cell) DefineUniqueGlobal(name string) *Object {
	return c.AddObject(TypeUniqueGlobal, name, 0, "", NodeDisconnected)
}

// SetNoCase toggles case-insensitive name matching for this cell and
// rebuilds the name index under the new folding rule.
func (c *Cell) SetNoCase(v bool) {
	if c.NoCase == v {
		return
	}
	c.NoCase = v
	c.rebuildIndex()
}

// LookupObject finds an object by name, honoring the cell's NoCase
// flag. It never mutates the store and returns ok=false rather than
// an error on a miss (spec §7, "Lookup" failure class).
func (c *Cell) LookupObject(name string) (*Object, bool) {
	idx, ok := c.nameIndex[c.foldName(name)]
	if !ok {
		return nil, false
	}
	return c.Objects[idx], true
}

// Instances returns the pin-run objects sharing instance id n, in
// declaration order (I1: contiguous run starting with FIRSTPIN).
func (c *Cell) Instances(n int) []*Object {
	idxs := c.instanceIndex[n]
	out := make([]*Object, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.Objects[i])
	}
	return out
}

// NewInstanceID allocates a fresh, cell-unique instance tag.
func (c *Cell) NewInstanceID() int {
	c.nextInstance++
	return c.nextInstance
}

// NewNodeID allocates a fresh, cell-unique positive node number.
func (c *Cell) NewNodeID() int {
	n := c.nextNode
	c.nextNode++
	return n
}

// RemoveObjectsAt deletes the objects at the given indices (order
// does not matter) and rebuilds the name/instance indices, since
// every later index shifts down.
func (c *Cell) RemoveObjectsAt(idxs []int) {
	if len(idxs) == 0 {
		return
	}
	drop := make(map[int]bool, len(idxs))
	for _, i := range idxs {
		drop[i] = true
	}
	kept := c.Objects[:0:0]
	for i, ob := range c.Objects {
		if !drop[i] {
			kept = append(kept, ob)
		}
	}
	c.Objects = kept
	c.rebuildIndex()
}

// InstanceIndices returns the positions in Objects of instance n's
// objects (its pin run plus trailing PROPERTY, if any).
func (c *Cell) InstanceIndices(n int) []int {
	return append([]int(nil), c.instanceIndex[n]...)
}

// SpliceInstance replaces instance n's entire object run (pins plus
// trailing PROPERTY) with replacement, preserving the position in the
// cell's object order, and rebuilds the indices (spec §4.2 step 6-7).
func (c *Cell) SpliceInstance(n int, replacement []*Object) error {
	idxs := c.instanceIndex[n]
	if len(idxs) == 0 {
		return fmt.Errorf("store: SpliceInstance: no such instance %d in cell %s", n, c.Name)
	}
	start := idxs[0]
	end := idxs[len(idxs)-1] + 1
	out := make([]*Object, 0, len(c.Objects)-len(idxs)+len(replacement))
	out = append(out, c.Objects[:start]...)
	out = append(out, replacement...)
	out = append(out, c.Objects[end:]...)
	c.Objects = out
	c.rebuildIndex()
	return nil
}

// ReplaceObjects overwrites the cell's entire object list and rebuilds
// the name/instance indices, for callers outside the package that
// need to reorder objects wholesale rather than splice one instance's
// run (pin-matching's port reordering chief among them).
func (c *Cell) ReplaceObjects(objs []*Object) {
	c.Objects = objs
	c.rebuildIndex()
}

// rebuildIndex recomputes nameIndex and instanceIndex from scratch,
// used after any splice that changes the positions of existing
// objects (flatten's port deletion and pin-run replacement chief among
// them).
func (c *Cell) rebuildIndex() {
	c.nameIndex = make(map[string]int, len(c.Objects))
	c.instanceIndex = make(map[int][]int, len(c.Objects))
	for i, ob := range c.Objects {
		c.nameIndex[c.foldName(ob.Name)] = i
		if ob.Type.IsPin() || ob.Type == TypeProperty {
			c.instanceIndex[ob.Instance] = append(c.instanceIndex[ob.Instance], i)
		}
	}
}

// Ports returns the cell's PORT objects in declaration order (I5).
func (c *Cell) Ports() []*Object {
	var out []*Object
	for _, ob := range c.Objects {
		if ob.Type == TypePort {
			out = append(out, ob)
		}
	}
	return out
}

// Globals returns the cell's GLOBAL objects (not UNIQUEGLOBAL).
func (c *Cell) Globals() []*Object {
	var out []*Object
	for _, ob := range c.Objects {
		if ob.Type == TypeGlobal {
			out = append(out, ob)
		}
	}
	return out
}

// FirstPinObjects returns one Object per device instance in the cell
// (the FIRSTPIN of each contiguous pin run), in declaration order.
func (c *Cell) FirstPinObjects() []*Object {
	var out []*Object
	for _, ob := range c.Objects {
		if ob.Type == FirstPin {
			out = append(out, ob)
		}
	}
	return out
}

// PropertyOf returns the PROPERTY object following instance n's pin
// run, if any (I4).
func (c *Cell) PropertyOf(instance int) *Object {
	for _, i := range c.instanceIndex[instance] {
		if c.Objects[i].Type == TypeProperty {
			return c.Objects[i]
		}
	}
	return nil
}

// KeyIndex returns the position of key (case-sensitive) in the cell's
// declared property-key list, or -1.
func (c *Cell) KeyIndex(key string) int {
	for i, k := range c.Keys {
		if k.Key == key {
			return i
		}
	}
	return -1
}

// checkInvariants checks I1 (every instance's first indexed object is
// its FIRSTPIN, or a PROPERTY); it never mutates the cell.
func (c *Cell) checkInvariants() error {
	for inst, idxs := range c.instanceIndex {
		if len(idxs) == 0 {
			continue
		}
		first := c.Objects[idxs[0]]
		if first.Type != FirstPin && first.Type != TypeProperty {
			return diag.New(diag.KindFatal, "cell %s: instance %d does not begin with FIRSTPIN", c.Name, inst)
		}
	}
	return nil
}

// DanglingNodes returns every positive node number that appears on
// fewer than two objects: allowed (I2 is advisory, not fatal) but
// worth flagging after a Connect pass, per spec §8's boundary tests.
func (c *Cell) DanglingNodes() []int {
	count := map[int]int{}
	for _, ob := range c.Objects {
		if ob.Node > 0 {
			count[ob.Node]++
		}
	}
	var out []int
	for n, k := range count {
		if k < 2 {
			out = append(out, n)
		}
	}
	return out
}
