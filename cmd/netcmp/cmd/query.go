package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/internal/store"
)

var queryFile int

var cellsCmd = &cobra.Command{
	Use:   "cells",
	Short: "List every cell currently in the store",
	RunE: func(cmd *cobra.Command, args []string) error {
		cells := a.Store.AllCells()
		sort.Slice(cells, func(i, j int) bool {
			if cells[i].File != cells[j].File {
				return cells[i].File < cells[j].File
			}
			return cells[i].Name < cells[j].Name
		})
		for _, c := range cells {
			fmt.Printf("%-24s file=%-3d class=%s objects=%d\n", c.Name, c.File, c.Class, len(c.Objects))
		}
		return nil
	},
}

var portsCmd = &cobra.Command{
	Use:   "ports <cell>",
	Short: "List a cell's ports in declaration order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		for i, p := range cell.Ports() {
			fmt.Printf("%d: %s (node %d)\n", i+1, p.Name, p.Node)
		}
		return nil
	},
}

var nodesCmd = &cobra.Command{
	Use:   "nodes <cell>",
	Short: "List a cell's distinct electrical nodes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		seen := map[int][]string{}
		var order []int
		for _, ob := range cell.Objects {
			if ob.Type == store.TypeProperty || ob.Node == store.NodeDisconnected {
				continue
			}
			if _, ok := seen[ob.Node]; !ok {
				order = append(order, ob.Node)
			}
			seen[ob.Node] = append(seen[ob.Node], ob.Name)
		}
		sort.Ints(order)
		for _, n := range order {
			fmt.Printf("node %d: %v\n", n, seen[n])
		}
		return nil
	},
}

var elementsCmd = &cobra.Command{
	Use:   "elements <cell>",
	Short: "List a cell's device instances",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		seen := map[int]bool{}
		for _, ob := range cell.Objects {
			if !ob.Type.IsPin() || seen[ob.Instance] {
				continue
			}
			seen[ob.Instance] = true
			fmt.Printf("instance %d: model=%s\n", ob.Instance, ob.Model)
		}
		return nil
	},
}

var instancesCmd = &cobra.Command{
	Use:   "instances <cell> <instance-id>",
	Short: "Show the pins of one device instance",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		var id int
		if _, err := fmt.Sscanf(args[1], "%d", &id); err != nil {
			return fmt.Errorf("instances: bad instance id %q", args[1])
		}
		for i, p := range cell.Instances(id) {
			fmt.Printf("pin %d: %s -> node %d\n", i, p.Name, p.Node)
		}
		return nil
	},
}

var leavesCmd = &cobra.Command{
	Use:   "leaves <cell>",
	Short: "List the distinct primitive models reachable under a cell",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		seen := map[string]bool{}
		var collect func(c *store.Cell, depth int)
		collect = func(c *store.Cell, depth int) {
			if depth > 64 {
				return
			}
			for _, ob := range c.FirstPinObjects() {
				model, ok := a.Store.Lookup(ob.Model, -1)
				if !ok {
					continue
				}
				if model.Class != store.ClassSubcircuit && model.Class != store.ClassModule {
					if !seen[model.Name] {
						seen[model.Name] = true
						fmt.Println(model.Name)
					}
					continue
				}
				collect(model, depth+1)
			}
		}
		collect(cell, 0)
		return nil
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <cell>",
	Short: "Print a cell's name, file, class and object count",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("cell %s (file %d): class=%s ports=%d objects=%d classhash=%#x matched=%v\n",
			cell.Name, cell.File, cell.Class, len(cell.Ports()), len(cell.Objects), cell.ClassHash, cell.Matched)
		return nil
	},
}

var modelCmd = &cobra.Command{
	Use:   "model <cell>",
	Short: "Print a cell's device class and declared property keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cell, err := lookupCellArg(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("model %s: class=%s validarity(%d)=%v\n", cell.Name, cell.Class, len(cell.Ports()), cell.Class.ValidPortCount(len(cell.Ports())))
		for _, k := range cell.Keys {
			fmt.Printf("  key %s type=%v slop=%v\n", k.Key, k.Type, k.Slop)
		}
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{cellsCmd, portsCmd, nodesCmd, elementsCmd, instancesCmd, leavesCmd, describeCmd, modelCmd} {
		rootCmd.AddCommand(c)
		c.Flags().IntVar(&queryFile, "file", -1, "file tag to look the cell up in (-1: any)")
	}
}

func lookupCellArg(name string) (*store.Cell, error) {
	cell, ok := a.Store.Lookup(name, queryFile)
	if !ok {
		return nil, fmt.Errorf("no such cell %q", name)
	}
	return cell, nil
}
