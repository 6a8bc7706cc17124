package hierarchy

import "github.com/opentracelab/netcmp/internal/store"

// ComparePair is one entry of a CompareQueue: two cells believed
// equivalent (by classhash or a user-declared class equivalence,
// spec §4.8) waiting to be run through the partition-refinement
// engine, plus the hierarchy depth they were found at.
type ComparePair struct {
	A, B  *store.Cell
	Level int
}

// CompareQueue is the FIFO DescendCompareQueue builds: deepest pairs
// first, the top-level pair always last, so comparing from the head
// resolves the safest (most constrained) matches before the ones that
// depend on them (spec §4.4).
type CompareQueue struct {
	items []ComparePair
}

func NewCompareQueue() *CompareQueue { return &CompareQueue{} }

func (q *CompareQueue) push(p ComparePair) { q.items = append(q.items, p) }

// Len reports how many pairs remain.
func (q *CompareQueue) Len() int { return len(q.items) }

// PeekCompareQueueTop returns the head pair without removing it.
func (q *CompareQueue) PeekCompareQueueTop() (ComparePair, bool) {
	if len(q.items) == 0 {
		return ComparePair{}, false
	}
	return q.items[0], true
}

// GetCompareQueueTop removes and returns the head pair.
func (q *CompareQueue) GetCompareQueueTop() (ComparePair, bool) {
	p, ok := q.PeekCompareQueueTop()
	if ok {
		q.items = q.items[1:]
	}
	return p, ok
}

// RemoveCompareQueue drops every queued pair mentioning cell (either
// side), used when a compare at an enclosing level renders a deeper
// pending pair moot.
func (q *CompareQueue) RemoveCompareQueue(cell *store.Cell) {
	out := q.items[:0:0]
	for _, p := range q.items {
		if p.A == cell || p.B == cell {
			continue
		}
		out = append(out, p)
	}
	q.items = out
}

// DescendCountQueue returns the deepest hierarchy level reachable from
// cell by following FIRSTPIN model references, guarding against
// recursive definitions the same way flattenInto does.
func (f *Flattener) DescendCountQueue(cell *store.Cell) int {
	return f.descendDepth(cell, map[cellKey]bool{})
}

func (f *Flattener) descendDepth(cell *store.Cell, visiting map[cellKey]bool) int {
	key := cellKey{cell.Name, cell.File}
	if visiting[key] {
		return 0
	}
	visiting[key] = true
	defer delete(visiting, key)

	best := 0
	for _, child := range f.uniqueChildren(cell) {
		if d := 1 + f.descendDepth(child, visiting); d > best {
			best = d
		}
	}
	return best
}

// uniqueChildren returns, in first-seen order, the distinct cells
// directly instantiated inside cell.
func (f *Flattener) uniqueChildren(cell *store.Cell) []*store.Cell {
	seen := map[cellKey]bool{}
	var out []*store.Cell
	for _, inst := range cell.FirstPinObjects() {
		child, ok := f.store.Lookup(inst.Model, cell.File)
		if !ok {
			child, ok = f.store.Lookup(inst.Model, -1)
		}
		if !ok {
			continue
		}
		key := cellKey{child.Name, child.File}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, child)
	}
	return out
}

// reachable collects every cell at exactly the given depth below root
// (root itself is depth 0), deduplicated, skipping anything already
// Matched.
func (f *Flattener) reachable(root *store.Cell, depth int) []*store.Cell {
	level := []*store.Cell{root}
	visiting := map[cellKey]bool{{root.Name, root.File}: true}
	for d := 0; d < depth; d++ {
		var next []*store.Cell
		seen := map[cellKey]bool{}
		for _, cell := range level {
			for _, child := range f.uniqueChildren(cell) {
				key := cellKey{child.Name, child.File}
				if visiting[key] || seen[key] {
					continue
				}
				seen[key] = true
				next = append(next, child)
			}
		}
		level = next
		for k := range seen {
			visiting[k] = true
		}
	}
	var out []*store.Cell
	for _, c := range level {
		if !c.Matched {
			out = append(out, c)
		}
	}
	return out
}

// DescendCompareQueue walks cellA's hierarchy down to stopLevel,
// pairing every unmatched class it finds at each level with an
// equivalent (equal-classhash) unmatched class reachable from cellB,
// deepest level first and the top-level pair always last (spec §4.4).
// A class at stopLevel with no match in cellB's hierarchy is flattened
// in place instead of enqueued.
func (f *Flattener) DescendCompareQueue(cellA, cellB *store.Cell, stopLevel int) (*CompareQueue, error) {
	q := NewCompareQueue()
	paired := map[cellKey]bool{}

	for level := stopLevel; level >= 1; level-- {
		candidatesA := f.reachable(cellA, level)
		candidatesB := f.reachable(cellB, level)
		for _, a := range candidatesA {
			b := matchByClassHash(candidatesB, paired, a)
			if b == nil {
				if level == stopLevel {
					if err := f.flattenInto(a); err != nil {
						return nil, err
					}
				}
				continue
			}
			paired[cellKey{b.Name, b.File}] = true
			q.push(ComparePair{A: a, B: b, Level: level})
		}
	}

	q.push(ComparePair{A: cellA, B: cellB, Level: 0})
	return q, nil
}

func matchByClassHash(candidates []*store.Cell, paired map[cellKey]bool, a *store.Cell) *store.Cell {
	for _, b := range candidates {
		if paired[cellKey{b.Name, b.File}] {
			continue
		}
		if b.ClassHash == a.ClassHash {
			return b
		}
	}
	return nil
}

// FlattenUnmatched walks q and flattens, in both hierarchies, any pair
// whose cells never got marked matched by the compare loop — bottom-up,
// since q is already ordered deepest-first (spec §4.2 FlattenUnmatched).
func (f *Flattener) FlattenUnmatched(q *CompareQueue) error {
	for _, p := range q.items {
		if p.A.Matched && p.B.Matched {
			continue
		}
		if err := f.flattenInto(p.A); err != nil {
			return err
		}
		if err := f.flattenInto(p.B); err != nil {
			return err
		}
	}
	return nil
}
