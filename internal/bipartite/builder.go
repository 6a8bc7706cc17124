package bipartite

import (
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/store"
)

// CreateTwoLists builds the bipartite graph for comparing cellA
// against cellB (spec §4.5). It is called once per comparison; the
// resulting Elements/Nodes from both cells are concatenated into a
// single initial ElementClass and NodeClass so the first Iterate step
// has something to split. magics supplies each instance's per-pin
// magic, keyed by model and pin position so that two structurally
// identical instances — one per graph — always start out hashing the
// same way; callers that want PermuteSetup/PermuteForget to carry
// across repeated comparisons should reuse the same table.
func CreateTwoLists(s *store.Store, cellA, cellB *store.Cell, magics *PinMagicTable) (*Bipartite, error) {
	g := &Bipartite{
		InitialElementClass: &ElementClass{Legal: true},
		InitialNodeClass:    &NodeClass{Legal: true},
	}
	if err := addCell(s, g, cellA, GraphA, magics); err != nil {
		return nil, err
	}
	if err := addCell(s, g, cellB, GraphB, magics); err != nil {
		return nil, err
	}
	return g, nil
}

// addCell materializes one cell's Elements and Nodes into g: one
// Element per FIRSTPIN object, one Node per distinct positive node
// number appearing on a pin (spec §4.5).
func addCell(s *store.Store, g *Bipartite, cell *store.Cell, graph Graph, magics *PinMagicTable) error {
	nodes := map[int]*Node{}
	nodeOf := func(ob *store.Object) *Node {
		if ob.Node <= store.NodeDummy {
			return nil
		}
		n, ok := nodes[ob.Node]
		if !ok {
			n = &Node{Graph: graph, Object: ob, Class: g.InitialNodeClass}
			nodes[ob.Node] = n
			g.Nodes = append(g.Nodes, n)
			g.InitialNodeClass.Members = append(g.InitialNodeClass.Members, n)
		}
		return n
	}

	for _, first := range cell.FirstPinObjects() {
		model, ok := s.Lookup(first.Model, cell.File)
		if !ok {
			model, ok = s.Lookup(first.Model, -1)
		}
		if !ok {
			return diag.New(diag.KindLookup, "CreateTwoLists: %s: no model %q for instance", cell.Name, first.Model)
		}

		el := &Element{Graph: graph, Object: first, Class: g.InitialElementClass, OldHash: model.ClassHash}
		pos := 0
		for _, pin := range cell.Instances(first.Instance) {
			if pin.Type == store.TypeProperty {
				continue
			}
			entry := &NodeListEntry{PinMagic: magics.magic(model, pos), Element: el}
			pos++
			if node := nodeOf(pin); node != nil {
				entry.Node = node
				node.Fanout = append(node.Fanout, &ElementListEntry{Pin: entry, Node: node})
			}
			el.Pins = append(el.Pins, entry)
		}

		g.Elements = append(g.Elements, el)
		g.InitialElementClass.Members = append(g.InitialElementClass.Members, el)
	}

	for _, n := range nodes {
		n.OldHash = uint64(len(n.Fanout))
	}
	return nil
}
