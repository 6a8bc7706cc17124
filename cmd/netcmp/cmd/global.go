package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/resolve"
	"github.com/opentracelab/netcmp/internal/store"
)

var globalFile int

var globalCmd = &cobra.Command{
	Use:   "global <cell>",
	Short: "Convert a cell's global nets into explicit ports",
	Long: `global promotes every globally-connected net inside <cell>
(spec §4.3) to an explicit port on the cell and on every instance of
it in its parents, so global-net equivalence is checked the same way
as any other connection instead of being assumed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, ok := a.Store.Lookup(args[0], globalFile)
		if !ok {
			return fmt.Errorf("global: no such cell %q", args[0])
		}
		if err := a.Flat.ConvertGlobals(cell, globalFile); err != nil {
			return fmt.Errorf("global: %w", err)
		}
		a.warnf("global: converted globals in %s", args[0])
		return nil
	},
}

var convertCmd = &cobra.Command{
	Use:   "convert <cellA> <fileA> <cellB> <fileB>",
	Short: "Convert global nets in both halves of a compare pair",
	Long: `convert runs global on both cells of a prospective compare
pair, the usual prelude to a hierarchical compare: global nets must be
converted to ports in both hierarchies before DescendCompareQueue's
classhash matching can see them.`,
	Args: cobra.ExactArgs(4),
	RunE: func(cmd *cobra.Command, args []string) error {
		cellA, fileA, err := lookupCellFileArgs(args[0], args[1])
		if err != nil {
			return err
		}
		cellB, fileB, err := lookupCellFileArgs(args[2], args[3])
		if err != nil {
			return err
		}
		if err := a.Flat.ConvertGlobals(cellA, fileA); err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		if err := a.Flat.ConvertGlobals(cellB, fileB); err != nil {
			return fmt.Errorf("convert: %w", err)
		}
		a.warnf("convert: converted globals in %s and %s", cellA.Name, cellB.Name)
		return nil
	},
}

var matchingStopLevel int

var matchingCmd = &cobra.Command{
	Use:   "matching <cellA> <fileA> <cellB> <fileB>",
	Short: "Hierarchical lift-the-match compare (spec §4.4)",
	Long: `matching walks both hierarchies down to --stop-level, compares
every classhash-matched sub-cell pair it finds (deepest first), marks
each a match on a unique verdict, flattens whatever never matched, and
finally compares the top-level pair — leaving that comparison current
for verify/print/summary/automorphisms.`,
	Args: cobra.ExactArgs(4),
	RunE: runMatching,
}

func init() {
	rootCmd.AddCommand(globalCmd, convertCmd, matchingCmd)
	globalCmd.Flags().IntVar(&globalFile, "file", -1, "file tag to look the cell up in (-1: any)")
	matchingCmd.Flags().IntVar(&matchingStopLevel, "stop-level", 8, "deepest hierarchy level to descend to")
}

func lookupCellFileArgs(name, fileStr string) (*store.Cell, int, error) {
	file, err := strconv.Atoi(fileStr)
	if err != nil {
		return nil, 0, fmt.Errorf("bad file tag %q: %w", fileStr, err)
	}
	cell, ok := a.Store.Lookup(name, file)
	if !ok {
		return nil, 0, fmt.Errorf("no such cell %s in file %d", name, file)
	}
	return cell, file, nil
}

func runMatching(cmd *cobra.Command, args []string) error {
	cellA, _, err := lookupCellFileArgs(args[0], args[1])
	if err != nil {
		return err
	}
	cellB, _, err := lookupCellFileArgs(args[2], args[3])
	if err != nil {
		return err
	}

	queue, err := a.Flat.DescendCompareQueue(cellA, cellB, matchingStopLevel)
	if err != nil {
		return fmt.Errorf("matching: %w", err)
	}
	a.Queue = queue

	// processed records every pair we pull off the queue, in the same
	// deepest-first order DescendCompareQueue built it in, so the
	// bottom-up flatten pass below can re-walk it after the queue
	// itself has been drained to empty.
	var processed []struct {
		cellA, cellB *store.Cell
		level        int
	}

	for {
		pair, ok := queue.GetCompareQueueTop()
		if !ok {
			break
		}
		processed = append(processed, struct {
			cellA, cellB *store.Cell
			level        int
		}{pair.A, pair.B, pair.Level})

		graph, err := bipartite.CreateTwoLists(a.Store, pair.A, pair.B, a.Magics)
		if err != nil {
			return fmt.Errorf("matching: level %d (%s vs %s): %w", pair.Level, pair.A.Name, pair.B.Name, err)
		}
		e := engine.New(graph, a.rng, a.Config.Exhaustive)
		if err := e.Run(context.Background()); err != nil {
			return fmt.Errorf("matching: level %d: %w", pair.Level, err)
		}
		state, _ := resolve.VerifyMatching(e)
		if state == resolve.StateUnique {
			pair.A.Matched, pair.B.Matched = true, true
		}

		if pair.Level == 0 {
			// The top-level pair: leave it as the current comparison
			// instead of discarding its engine.
			a.CellA, a.CellB = pair.A, pair.B
			a.Graph, a.Engine = graph, e
			a.Engine.EnableInterrupt()
			break
		}
		a.warnf("matching: level %d: %s vs %s -> %v", pair.Level, pair.A.Name, pair.B.Name, state)
	}

	// Bottom-up: flatten any sub-cell pair (excluding the top-level
	// pair itself) that never resolved to a unique match (spec §4.2
	// FlattenUnmatched).
	for _, p := range processed {
		if p.level == 0 || (p.cellA.Matched && p.cellB.Matched) {
			continue
		}
		if err := a.Flat.FlattenCell(p.cellA.Name, p.cellA.File); err != nil {
			return fmt.Errorf("matching: flatten unmatched %s: %w", p.cellA.Name, err)
		}
		if err := a.Flat.FlattenCell(p.cellB.Name, p.cellB.File); err != nil {
			return fmt.Errorf("matching: flatten unmatched %s: %w", p.cellB.Name, err)
		}
	}
	return nil
}
