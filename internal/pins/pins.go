// Package pins implements MatchPins (spec §4.9): once a compare has
// converged to a legal, resolved match, it walks the node classes to
// learn which port of the second cell plays the same topological role
// as which port of the first, then permutes the second cell's port
// order — and every instance of it anywhere in the store — to match.
package pins

import (
	"fmt"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/diag"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/resolve"
	"github.com/opentracelab/netcmp/internal/store"
)

// Correspondence maps a port object of the first cell to the port
// object of the second cell that ended up in the same node class.
type Correspondence map[*store.Object]*store.Object

// BuildCorrespondence walks e's resolved node classes and records, for
// every balanced size-2 class holding exactly one port from each
// graph, which port of cellB corresponds to which port of cellA.
// Classes that are not a single connected port from each side (internal
// nets, unresolved automorphisms, illegal classes) are skipped; those
// never name a port-to-port correspondence.
func BuildCorrespondence(e *engine.Engine, cellA, cellB *store.Cell) Correspondence {
	portsA := portsByNode(cellA)
	portsB := portsByNode(cellB)
	out := Correspondence{}
	for _, c := range e.NodeClasses {
		if !c.Legal || len(c.Members) != 2 {
			continue
		}
		var na, nb *bipartite.Node
		for _, m := range c.Members {
			switch m.Graph {
			case bipartite.GraphA:
				na = m
			case bipartite.GraphB:
				nb = m
			}
		}
		if na == nil || nb == nil {
			continue
		}
		pa, ok := portsA[na.Object.Node]
		if !ok {
			continue
		}
		pb, ok := portsB[nb.Object.Node]
		if !ok {
			continue
		}
		out[pa] = pb
	}
	return out
}

func portsByNode(c *store.Cell) map[int]*store.Object {
	out := map[int]*store.Object{}
	for _, p := range c.Ports() {
		if p.Node > 0 {
			out[p.Node] = p
		}
	}
	return out
}

// MatchPins aligns cellB's port order, and the pin order of every
// instance of cellB anywhere in the store, with cellA's. Disconnected
// ports never join a node class, so they are paired positionally
// (cellA's nth disconnected port against cellB's nth leftover
// disconnected port) rather than through the correspondence; when one
// side runs out, a dummy unconnected port (and a matching dummy pin on
// every instance) is synthesized to take its place. Any connected port
// on either side that the node classes never explained fails the
// match and demotes both cells' Matched flag, per spec §4.9.
func MatchPins(s *store.Store, e *engine.Engine, cellA, cellB *store.Cell) error {
	if state, _ := resolve.VerifyMatching(e); state == resolve.StateIllegal {
		cellA.Matched, cellB.Matched = false, false
		return diag.New(diag.KindMatch, "MatchPins: %s vs %s: no legal match to pin-match", cellA.Name, cellB.Name)
	}

	corr := BuildCorrespondence(e, cellA, cellB)
	portsA := cellA.Ports()
	portsB := cellB.Ports()

	usedB := make(map[*store.Object]bool, len(corr))
	for _, pb := range corr {
		usedB[pb] = true
	}

	var leftoverB []*store.Object
	for _, pb := range portsB {
		if pb.Node <= store.NodeDisconnected && !usedB[pb] {
			leftoverB = append(leftoverB, pb)
		}
	}

	origIndex := make(map[*store.Object]int, len(portsB))
	for i, pb := range portsB {
		origIndex[pb] = i
	}

	newOrder := make([]*store.Object, 0, len(portsA))
	// mapping from new position -> dummy marker (nil entry means real port)
	isDummy := make([]bool, 0, len(portsA))
	dummySeq := 0

	for _, pa := range portsA {
		if pb, ok := corr[pa]; ok {
			newOrder = append(newOrder, pb)
			isDummy = append(isDummy, false)
			continue
		}
		if pa.Node > store.NodeDisconnected {
			cellA.Matched, cellB.Matched = false, false
			return diag.New(diag.KindMatch, "MatchPins: port %q of %s has no topological equivalent in %s", pa.Name, cellA.Name, cellB.Name)
		}
		if len(leftoverB) > 0 {
			newOrder = append(newOrder, leftoverB[0])
			leftoverB = leftoverB[1:]
			isDummy = append(isDummy, false)
			continue
		}
		dummySeq++
		dummy := &store.Object{
			Name: fmt.Sprintf("$dummy%d/%s", dummySeq, pa.Name),
			Type: store.TypePort,
			Node: store.NodeDisconnected,
		}
		newOrder = append(newOrder, dummy)
		isDummy = append(isDummy, true)
	}

	placed := make(map[*store.Object]bool, len(newOrder))
	for _, p := range newOrder {
		placed[p] = true
	}
	for _, pb := range portsB {
		if pb.Node > store.NodeDisconnected && !placed[pb] {
			cellA.Matched, cellB.Matched = false, false
			return diag.New(diag.KindMatch, "MatchPins: port %q of %s has no topological equivalent in %s", pb.Name, cellB.Name, cellA.Name)
		}
	}
	// Any still-unplaced disconnected cellB ports are kept, just
	// trailing past cellA's port count rather than lost.
	newOrder = append(newOrder, leftoverB...)
	for range leftoverB {
		isDummy = append(isDummy, false)
	}

	permuteInstances(s, cellB, newOrder, isDummy, origIndex)
	reorderPorts(cellB, newOrder)

	cellA.Matched, cellB.Matched = true, true
	return nil
}

// reorderPorts rewrites cellB's port objects, in place among the
// non-port objects, to appear in newOrder's sequence.
func reorderPorts(cellB *store.Cell, newOrder []*store.Object) {
	out := make([]*store.Object, 0, len(cellB.Objects)+len(newOrder))
	i := 0
	for _, ob := range cellB.Objects {
		if ob.Type == store.TypePort {
			if i < len(newOrder) {
				out = append(out, newOrder[i])
				i++
			}
			continue
		}
		out = append(out, ob)
	}
	for ; i < len(newOrder); i++ {
		out = append(out, newOrder[i])
	}
	cellB.ReplaceObjects(out)
}

// permuteInstances reorders the pin run of every instance of cellB
// found anywhere in the store so each instance's pins still line up
// 1-to-1 with cellB's ports after the reorder. A dummy port position
// gets a freshly synthesized disconnected pin on every instance.
func permuteInstances(s *store.Store, cellB *store.Cell, newOrder []*store.Object, isDummy []bool, origIndex map[*store.Object]int) {
	for _, c := range s.AllCells() {
		if cellB.File != -1 && c.File != cellB.File {
			continue
		}
		for _, first := range c.FirstPinObjects() {
			if first.Model != cellB.Name {
				continue
			}
			oldPins := c.Instances(first.Instance)
			var props []*store.Object
			devicePins := oldPins[:0:0]
			for _, p := range oldPins {
				if p.Type == store.TypeProperty {
					props = append(props, p)
					continue
				}
				devicePins = append(devicePins, p)
			}

			newPins := make([]*store.Object, 0, len(newOrder)+len(props))
			instName := instancePrefix(first.Name)
			for k, pb := range newOrder {
				if isDummy[k] {
					ob := &store.Object{
						Name:     fmt.Sprintf("%s/$dummy%d", instName, k),
						Type:     store.FirstPin + store.ObjType(k),
						Model:    cellB.Name,
						Instance: first.Instance,
						Node:     store.NodeDisconnected,
					}
					newPins = append(newPins, ob)
					continue
				}
				j, ok := origIndex[pb]
				if !ok || j >= len(devicePins) {
					continue
				}
				pin := devicePins[j]
				pin.Type = store.FirstPin + store.ObjType(k)
				newPins = append(newPins, pin)
			}
			newPins = append(newPins, props...)
			_ = c.SpliceInstance(first.Instance, newPins)
		}
	}
}

func instancePrefix(pinName string) string {
	for i := len(pinName) - 1; i >= 0; i-- {
		if pinName[i] == '/' {
			return pinName[:i]
		}
	}
	return pinName
}
