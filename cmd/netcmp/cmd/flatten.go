package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var flattenFile int

var flattenCmd = &cobra.Command{
	Use:   "flatten <cell> [child-model]",
	Short: "Flatten a cell's subcircuit instances into itself",
	Long: `flatten replaces every instance of a subcircuit in <cell>
with that subcircuit's own contents (spec §4.2). With a second
argument, only instances of that one child model are expanded
(equivalent to the original's "flatten instances of").`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFlatten,
}

func init() {
	rootCmd.AddCommand(flattenCmd)
	flattenCmd.Flags().IntVar(&flattenFile, "file", -1, "file tag to look the cell up in (-1: any)")
}

func runFlatten(cmd *cobra.Command, args []string) error {
	name := args[0]
	if len(args) == 2 {
		child := args[1]
		if err := a.Flat.FlattenInstancesOf(name, flattenFile, child); err != nil {
			return fmt.Errorf("flatten: %w", err)
		}
		a.warnf("flatten: expanded instances of %s in %s", child, name)
		return nil
	}
	if err := a.Flat.FlattenCell(name, flattenFile); err != nil {
		return fmt.Errorf("flatten: %w", err)
	}
	a.warnf("flatten: expanded %s", name)
	return nil
}
