package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/pins"
	"github.com/opentracelab/netcmp/internal/report"
	"github.com/opentracelab/netcmp/internal/resolve"
)

var compareCmd = &cobra.Command{
	Use:   "compare <cellA> <fileA> <cellB> <fileB>",
	Short: "Build the bipartite graph for a new comparison",
	Long: `compare loads two cells into a fresh engine (spec §4.5-4.6):
one Element per device instance, one Node per net. It does not run any
refinement steps itself — follow with iterate or run.`,
	Args: cobra.ExactArgs(4),
	RunE: runCompare,
}

var iterateCmd = &cobra.Command{
	Use:   "iterate",
	Short: "Run one partition-refinement step",
	RunE:  runIterate,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Iterate to a fixed point",
	Long:  `run repeats iterate until a pass produces no new fractures (spec §4.6).`,
	RunE:  runRun,
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Report the current match state: unique, ambiguous, or illegal",
	RunE:  runVerify,
}

var printCmd = &cobra.Command{
	Use:   "print",
	Short: "Print every illegal element/node class fragment",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := requireEngine()
		if err != nil {
			return err
		}
		fmt.Print(report.FormatIllegal(a.Store, e))
		return nil
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the core-stats summary table",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := requireEngine()
		if err != nil {
			return err
		}
		fmt.Println(report.SummaryTable(e))
		return nil
	},
}

var automorphismsCmd = &cobra.Command{
	Use:   "automorphisms",
	Short: "List remaining unresolved (size>2) classes",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := requireEngine()
		if err != nil {
			return err
		}
		fmt.Print(report.FormatAutomorphisms(e))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compareCmd, iterateCmd, runCmd, verifyCmd, printCmd, summaryCmd, automorphismsCmd)
}

func parseFileTag(s string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err != nil {
		return 0, fmt.Errorf("bad file tag %q: %w", s, err)
	}
	return n, nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	nameA, fileAStr, nameB, fileBStr := args[0], args[1], args[2], args[3]
	fileA, err := parseFileTag(fileAStr)
	if err != nil {
		return err
	}
	fileB, err := parseFileTag(fileBStr)
	if err != nil {
		return err
	}

	cellA, ok := a.Store.Lookup(nameA, fileA)
	if !ok {
		return fmt.Errorf("compare: no such cell %s in file %d", nameA, fileA)
	}
	cellB, ok := a.Store.Lookup(nameB, fileB)
	if !ok {
		return fmt.Errorf("compare: no such cell %s in file %d", nameB, fileB)
	}

	graph, err := bipartite.CreateTwoLists(a.Store, cellA, cellB, a.Magics)
	if err != nil {
		return fmt.Errorf("compare: %w", err)
	}

	a.CellA, a.CellB = cellA, cellB
	a.Graph = graph
	a.Engine = engine.New(graph, a.rng, a.Config.Exhaustive)
	a.Engine.EnableInterrupt()

	a.warnf("compare: %s (file %d) vs %s (file %d): %d elements, %d nodes",
		nameA, fileA, nameB, fileB, len(graph.Elements), len(graph.Nodes))
	return nil
}

func runIterate(cmd *cobra.Command, args []string) error {
	e, err := requireEngine()
	if err != nil {
		return err
	}
	fractured, err := e.Iterate(context.Background())
	if err != nil {
		return fmt.Errorf("iterate: %w", err)
	}
	a.warnf("iterate: fractured=%v classes=%d/%d", fractured, e.Stats.ElementClasses, e.Stats.NodeClasses)
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := requireEngine()
	if err != nil {
		return err
	}
	if err := e.Run(context.Background()); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	a.warnf("run: converged after %d iterations", e.Stats.Iterations)
	return nil
}

func runVerify(cmd *cobra.Command, args []string) error {
	e, err := requireEngine()
	if err != nil {
		return err
	}
	state, unresolved := resolve.VerifyMatching(e)
	switch state {
	case resolve.StateIllegal:
		fmt.Println("illegal: the graphs are not isomorphic")
	case resolve.StateUnique:
		fmt.Println("unique: the graphs match exactly")
		cellA, cellB, err := requireCells()
		if err == nil {
			if err := pins.MatchPins(a.Store, e, cellA, cellB); err != nil {
				return fmt.Errorf("verify: MatchPins: %w", err)
			}
		}
	case resolve.StateAmbiguous:
		fmt.Printf("ambiguous: %d unresolved class(es) remain\n", unresolved)
	}
	return nil
}
