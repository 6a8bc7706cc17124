package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/resolve"
)

var (
	equateFileA int
	equateFileB int
)

var equateCmd = &cobra.Command{
	Use:   "equate",
	Short: "Force user-declared equivalences (spec §4.8)",
}

var equateElementCmd = &cobra.Command{
	Use:   "element <name1> <name2>",
	Short: "Force two elements in the current engine into one class",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := requireEngine()
		if err != nil {
			return err
		}
		if err := resolve.EquivalenceElements(e, args[0], args[1]); err != nil {
			return fmt.Errorf("equate element: %w", err)
		}
		return nil
	},
}

var equateNodeCmd = &cobra.Command{
	Use:   "node <name1> <name2>",
	Short: "Force two nodes in the current engine into one class",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := requireEngine()
		if err != nil {
			return err
		}
		if err := resolve.EquivalenceNodes(e, args[0], args[1]); err != nil {
			return fmt.Errorf("equate node: %w", err)
		}
		return nil
	},
}

var equateClassesCmd = &cobra.Command{
	Use:   "classes <nameA> <nameB>",
	Short: "Declare two models (by name, across files) interchangeable before any compare",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := resolve.EquivalenceClasses(a.Store, args[0], equateFileA, args[1], equateFileB); err != nil {
			return fmt.Errorf("equate classes: %w", err)
		}
		return nil
	},
}

var ignoreCmd = &cobra.Command{
	Use:   "ignore <model>",
	Short: "Delete every instance of a model class from the store (e.g. parasitic caps)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n := resolve.IgnoreClass(a.Store, args[0], equateFileA)
		a.warnf("ignore: removed %d instance(s) of %s", n, args[0])
		return nil
	},
}

var (
	permuteFile   int
	permuteForget bool
)

var permuteCmd = &cobra.Command{
	Use:   "permute <model> <pinA> <pinB>",
	Short: "Declare two pin positions of a model interchangeable",
	Long: `permute records that swapping pinA and pinB on every instance
of <model> does not change the circuit (spec §4.8), e.g. a resistor's
two symmetric terminals. --forget drops a previously declared
permutation instead.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		model, ok := a.Store.Lookup(args[0], permuteFile)
		if !ok {
			return fmt.Errorf("permute: no such model %q", args[0])
		}
		if permuteForget {
			resolve.PermuteForget(a.Magics, model)
			return nil
		}
		if err := resolve.PermuteSetup(a.Magics, model, args[1], args[2]); err != nil {
			return fmt.Errorf("permute: %w", err)
		}
		return nil
	},
}

var exhaustiveCmd = &cobra.Command{
	Use:   "exhaustive [on|off]",
	Short: "Toggle forced splitting of balanced size-2 classes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			fmt.Println(a.Config.Exhaustive)
			return nil
		}
		on := args[0] == "on" || args[0] == "true"
		a.Config.Exhaustive = on
		if a.Engine != nil {
			a.Engine.Exhaustive = on
		}
		return nil
	},
}

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Rebuild the bipartite graph for the current compare pair",
	Long: `restart tears down the current engine's classes and rebuilds
the comparison from scratch (spec §5 Reset), useful after equate/
permute/ignore changes the inputs mid-session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cellA, cellB, err := requireCells()
		if err != nil {
			return err
		}
		if a.Engine != nil {
			a.Engine.Reset()
		}
		graph, err := bipartite.CreateTwoLists(a.Store, cellA, cellB, a.Magics)
		if err != nil {
			return fmt.Errorf("restart: %w", err)
		}
		a.Graph = graph
		a.Engine = engine.New(graph, a.rng, a.Config.Exhaustive)
		a.Engine.EnableInterrupt()
		a.warnf("restart: rebuilt graph for %s vs %s", cellA.Name, cellB.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(equateCmd, ignoreCmd, permuteCmd, exhaustiveCmd, restartCmd)
	equateCmd.AddCommand(equateElementCmd, equateNodeCmd, equateClassesCmd)

	equateClassesCmd.Flags().IntVar(&equateFileA, "fileA", -1, "file tag for the first cell name (-1: any)")
	equateClassesCmd.Flags().IntVar(&equateFileB, "fileB", -1, "file tag for the second cell name (-1: any)")
	ignoreCmd.Flags().IntVar(&equateFileA, "file", -1, "file tag to look the model up in (-1: any)")
	permuteCmd.Flags().IntVar(&permuteFile, "file", -1, "file tag to look the model up in (-1: any)")
	permuteCmd.Flags().BoolVar(&permuteForget, "forget", false, "drop a previously declared permutation instead of adding one")
}
