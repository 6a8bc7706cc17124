// Package report formats engine state for the CLI: illegal-class
// fragments, automorphism listings and the core-statistics summary
// table (SUPPLEMENTED from original_source/base/netcmp.c's
// FormatBadElementFragment/FormatBadNodeFragment/PrintAutomorphisms/
// PrintCoreStats, none of which spec.md's distillation spelled out).
package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/store"
)

// FormatIllegal renders every illegal element and node class the
// engine has accumulated: one block per class, one line per member
// naming its instance, owning cell, file tag and immediate pin (or
// fanout) neighborhood, in the style of the original's
// FormatBadElementFragment/FormatBadNodeFragment.
func FormatIllegal(s *store.Store, e *engine.Engine) string {
	var b strings.Builder
	for _, c := range e.ElementClasses {
		if c.Legal {
			continue
		}
		fmt.Fprintf(&b, "illegal element class (%d members):\n", len(c.Members))
		for _, el := range c.Members {
			b.WriteString("  " + formatElementFragment(s, el) + "\n")
		}
	}
	for _, c := range e.NodeClasses {
		if c.Legal {
			continue
		}
		fmt.Fprintf(&b, "illegal node class (%d members):\n", len(c.Members))
		for _, n := range c.Members {
			b.WriteString("  " + formatNodeFragment(s, n) + "\n")
		}
	}
	return b.String()
}

func formatElementFragment(s *store.Store, el *bipartite.Element) string {
	cell := ownerCellOf(s, el.Object)
	cellName, file := "?", 0
	if cell != nil {
		cellName, file = cell.Name, cell.File
	}
	var pins []string
	for _, p := range el.Pins {
		if p.Node == nil {
			pins = append(pins, "nc")
			continue
		}
		pins = append(pins, p.Node.Object.Name)
	}
	return fmt.Sprintf("graph %s: %s (cell %s, file %d) model %s, pins [%s]",
		el.Graph, el.Object.Name, cellName, file, el.Object.Model, strings.Join(pins, ", "))
}

func formatNodeFragment(s *store.Store, n *bipartite.Node) string {
	cell := ownerCellOf(s, n.Object)
	cellName, file := "?", 0
	if cell != nil {
		cellName, file = cell.Name, cell.File
	}
	var fanout []string
	for _, el := range n.Fanout {
		fanout = append(fanout, el.Pin.Element.Object.Name)
	}
	return fmt.Sprintf("graph %s: %s (cell %s, file %d), fanout [%s]",
		n.Graph, n.Object.Name, cellName, file, strings.Join(fanout, ", "))
}

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

// AutomorphismGroup describes one remaining unresolved class: its
// size and the instance/node names of its members, grouped by graph.
type AutomorphismGroup struct {
	Kind    string // "element" or "node"
	Size    int
	NamesA  []string
	NamesB  []string
}

// Automorphisms lists every element or node class still larger than
// 2 — the classes ResolveAutomorphisms could not (or was never asked
// to) break down further — matching the original's PermuteAutomorphisms
// walk that feeds PrintAutomorphisms.
func Automorphisms(e *engine.Engine) []AutomorphismGroup {
	var out []AutomorphismGroup
	for _, c := range e.ElementClasses {
		if !c.Legal || len(c.Members) <= 2 {
			continue
		}
		g := AutomorphismGroup{Kind: "element", Size: len(c.Members)}
		for _, el := range c.Members {
			if el.Graph == bipartite.GraphA {
				g.NamesA = append(g.NamesA, el.Object.Name)
			} else {
				g.NamesB = append(g.NamesB, el.Object.Name)
			}
		}
		sort.Strings(g.NamesA)
		sort.Strings(g.NamesB)
		out = append(out, g)
	}
	for _, c := range e.NodeClasses {
		if !c.Legal || len(c.Members) <= 2 {
			continue
		}
		g := AutomorphismGroup{Kind: "node", Size: len(c.Members)}
		for _, n := range c.Members {
			if n.Graph == bipartite.GraphA {
				g.NamesA = append(g.NamesA, n.Object.Name)
			} else {
				g.NamesB = append(g.NamesB, n.Object.Name)
			}
		}
		sort.Strings(g.NamesA)
		sort.Strings(g.NamesB)
		out = append(out, g)
	}
	return out
}

// FormatAutomorphisms renders Automorphisms' groups as text lines,
// one per group, for the `automorphisms` CLI command's plain listing
// mode.
func FormatAutomorphisms(e *engine.Engine) string {
	groups := Automorphisms(e)
	if len(groups) == 0 {
		return "no remaining automorphisms\n"
	}
	var b strings.Builder
	for _, g := range groups {
		fmt.Fprintf(&b, "%s class (%d members): A[%s] <-> B[%s]\n",
			g.Kind, g.Size, strings.Join(g.NamesA, ", "), strings.Join(g.NamesB, ", "))
	}
	return b.String()
}

// SummaryTable renders the engine's core Stats and pool counters as a
// go-pretty table, the `summary` CLI command's rendering of the
// original's PrintCoreStats/SummarizeDataStructures dump.
func SummaryTable(e *engine.Engine) string {
	pools := e.PoolStats()
	t := table.NewWriter()
	t.SetTitle("netcmp compare summary")
	t.AppendHeader(table.Row{"record", "live", "allocated"})
	t.AppendRow(table.Row{"iterations", e.Stats.Iterations, ""})
	t.AppendRow(table.Row{"element classes", e.Stats.ElementClasses, ""})
	t.AppendRow(table.Row{"node classes", e.Stats.NodeClasses, ""})
	t.AppendRow(table.Row{"illegal buckets", e.Stats.IllegalBuckets, ""})
	t.AppendSeparator()
	t.AppendRow(table.Row{"ElementClass pool", pools.ElementClassesLive, pools.ElementClassesTotal})
	t.AppendRow(table.Row{"NodeClass pool", pools.NodeClassesLive, pools.NodeClassesTotal})
	return t.Render()
}
