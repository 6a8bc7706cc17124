package store

import (
	"hash/fnv"
	"sort"

	"github.com/opentracelab/netcmp/internal/diag"
)

// Store holds every cell read in, across every input file tagged so
// far, plus the cursor `DefineCell`/`Instance`/`Connect` operate on.
type Store struct {
	cells   []*Cell
	current *Cell
}

// New returns an empty Store. rngSeed is accepted for compatibility
// with callers that thread a deterministic seed through the rest of a
// comparison (internal/bipartite.PinMagicTable, internal/engine.New);
// the store itself no longer draws any randomness of its own, since
// ClassHash is a pure function of a cell's name (classHashOf).
func New(rngSeed int64) *Store {
	return &Store{}
}

// DefineCell creates or reopens (name, file). If the cell already
// exists and appendMode is false, its contents are discarded first;
// otherwise the existing cell is reopened so further AddObject calls
// extend it. Either way it becomes the current cell.
func (s *Store) DefineCell(name string, file int, appendMode bool) *Cell {
	if existing, ok := s.lookupExact(name, file); ok {
		if !appendMode {
			s.deleteCell(existing)
		} else {
			s.current = existing
			return existing
		}
	}
	c := newCell(name, file)
	c.ClassHash = classHashOf(name)
	s.cells = append(s.cells, c)
	s.current = c
	return c
}

// classHashOf is a pure function of name alone (original_source/base/
// objlist.c's `p->classhash = (*hashfunc)(name, 0)`), so two cells of
// the same name installed under different file tags always start out
// with equal classhash: that's what lets the engine recognise the
// same primitive across a schematic and a layout before any `equate`
// is ever issued.
func classHashOf(name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	return h.Sum64()
}

// Current returns the cell most recently created/reopened by
// DefineCell, or nil if none has been defined yet.
func (s *Store) Current() *Cell { return s.current }

// SetCurrent sets the cursor explicitly; Instance, Connect,
// LinkProperties and Flattener.FlattenCurrent act on the cell it names.
func (s *Store) SetCurrent(c *Cell) { s.current = c }

func (s *Store) lookupExact(name string, file int) (*Cell, bool) {
	for _, c := range s.cells {
		if c.Name == name && c.File == file {
			return c, true
		}
	}
	return nil, false
}

func (s *Store) deleteCell(c *Cell) {
	for i, x := range s.cells {
		if x == c {
			s.cells = append(s.cells[:i], s.cells[i+1:]...)
			return
		}
	}
}

// Lookup finds a cell by name (honoring NoCase per-candidate) and
// file tag. file == -1 returns the first match across all files in
// insertion order (spec §4.1).
func (s *Store) Lookup(name string, file int) (*Cell, bool) {
	for _, c := range s.cells {
		if file != -1 && c.File != file {
			continue
		}
		if c.Name == name {
			return c, true
		}
	}
	folded := foldCase(name)
	for _, c := range s.cells {
		if file != -1 && c.File != file {
			continue
		}
		if c.NoCase && foldCase(c.Name) == folded {
			return c, true
		}
	}
	return nil, false
}

// AllCells returns every defined cell, in definition order.
func (s *Store) AllCells() []*Cell {
	out := make([]*Cell, len(s.cells))
	copy(out, s.cells)
	return out
}

// CellsInFile returns every cell tagged with the given file, in
// definition order.
func (s *Store) CellsInFile(file int) []*Cell {
	var out []*Cell
	for _, c := range s.cells {
		if c.File == file {
			out = append(out, c)
		}
	}
	return out
}

// CellRehash renames a cell, keeping its object list and file tag but
// changing the key other Lookups will find it under.
func (s *Store) CellRehash(oldName, newName string, file int) error {
	c, ok := s.lookupExact(oldName, file)
	if !ok {
		return diag.New(diag.KindLookup, "CellRehash: no cell %s in file %d", oldName, file)
	}
	if _, exists := s.lookupExact(newName, file); exists {
		return diag.New(diag.KindInput, "CellRehash: %s already defined in file %d", newName, file)
	}
	c.Name = newName
	return nil
}

// ClassDelete removes every device instance whose model is `name`
// from every cell in the store (spec §4.8 IgnoreClass uses this
// before the bipartite graph is even built; ClassDelete is its
// general, store-wide form).
func (s *Store) ClassDelete(name string, file int) int {
	removed := 0
	for _, c := range s.cells {
		removed += c.deleteInstancesOfModel(name, file)
	}
	return removed
}

// InstanceRename repoints every instance of oldModel, in every cell
// belonging to the given file (or every file if file == -1), at
// newModel.
func (s *Store) InstanceRename(oldModel, newModel string, file int) int {
	renamed := 0
	for _, c := range s.cells {
		if file != -1 && c.File != file {
			continue
		}
		for _, idxs := range c.instanceIndex {
			for _, i := range idxs {
				ob := c.Objects[i]
				if ob.Type.IsPin() && ob.Model == oldModel {
					ob.Model = newModel
					renamed++
				}
			}
		}
	}
	return renamed
}

// deleteInstancesOfModel removes, from c, every device instance
// (contiguous pin run + its PROPERTY object) whose Model matches name.
// file scopes which parent cells are swept (-1 for "every file");
// c's own file tag was already checked by the caller in that case.
func (c *Cell) deleteInstancesOfModel(name string, file int) int {
	if file != -1 && c.File != file {
		return 0
	}
	toDrop := map[int]bool{}
	for inst, idxs := range c.instanceIndex {
		if len(idxs) == 0 {
			continue
		}
		first := c.Objects[idxs[0]]
		if first.Type == FirstPin && first.Model == name {
			toDrop[inst] = true
		}
	}
	if len(toDrop) == 0 {
		return 0
	}
	var idxs []int
	for inst := range toDrop {
		idxs = append(idxs, c.instanceIndex[inst]...)
	}
	sort.Ints(idxs)
	c.RemoveObjectsAt(idxs)
	return len(toDrop)
}
