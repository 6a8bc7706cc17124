// Package cmd implements the netcmp command-line shell: a thin cobra
// wrapper over internal/store, internal/hierarchy, internal/bipartite,
// internal/engine, internal/resolve, internal/pins and internal/report
// that mirrors the original netgen interactive command set (spec §6).
package cmd

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/internal/bipartite"
	"github.com/opentracelab/netcmp/internal/config"
	"github.com/opentracelab/netcmp/internal/engine"
	"github.com/opentracelab/netcmp/internal/hierarchy"
	"github.com/opentracelab/netcmp/internal/session"
	"github.com/opentracelab/netcmp/internal/store"
)

// app holds all state one netcmp invocation threads across its
// subcommands: one store shared by every readnet/readlib, the current
// compare pair and its engine once `compare` has run, and the
// ambient config/log/pin-magic state every command can see.
type app struct {
	Store  *store.Store
	Config *config.Config
	Log    *session.Log
	Flat   *hierarchy.Flattener
	Magics *bipartite.PinMagicTable
	rng    *rand.Rand

	Queue *hierarchy.CompareQueue

	CellA, CellB *store.Cell
	Graph        *bipartite.Bipartite
	Engine       *engine.Engine

	nextFile int
}

var a *app

func newApp() *app {
	cfg := config.Default()
	rng := rand.New(rand.NewSource(1))
	s := store.New(1)
	ap := &app{
		Store:  s,
		Config: cfg,
		Log:    session.New(),
		Magics: bipartite.NewPinMagicTable(rng),
		rng:    rng,
		Queue:  hierarchy.NewCompareQueue(),
	}
	ap.Flat = hierarchy.New(s, ap.warnf)
	return ap
}

// nextFileTag hands out a fresh store file tag for each readnet/readlib
// invocation, the way the original's netlist reader tags every file it
// opens with an incrementing index used later for file-scoped lookups.
func (ap *app) nextFileTag() int {
	t := ap.nextFile
	ap.nextFile++
	return t
}

func (ap *app) warnf(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	ap.Log.Put(msg)
	if verbose {
		fmt.Fprintln(os.Stderr, msg)
	}
}

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "netcmp",
	Short: "Netlist comparison engine for VLSI circuit verification",
	Long: `netcmp compares two hierarchical netlists for topological
equivalence up to pin permutation and device-class equivalence, using
partition refinement over a bipartite element/node graph.

Examples:
  netcmp readnet --lib a layout.spice
  netcmp readnet --lib b schematic.spice
  netcmp compare top 0 top 1
  netcmp run
  netcmp summary`,
	Version: "1.0.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configPath != "" {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			a.Config = cfg
		}
		return nil
	},
}

// Execute runs the root command, wiring SIGINT to the current compare
// engine's cooperative interrupt flag for the duration of the run
// (spec §5): the in-flight Iterate step always finishes, then Run
// returns an error instead of the process dying mid-refinement. A
// SIGINT that arrives while no engine has interrupts armed is ignored.
func Execute() {
	a = newApp()

	interrupts := make(chan struct{}, 1)
	stop := notifyInterrupt(interrupts)
	defer stop()
	go func() {
		for range interrupts {
			if a.Engine != nil {
				a.Engine.RequestInterrupt()
			}
		}
	}()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config profile to load before running")
}

// requireCells returns the current compare pair, erroring if `compare`
// has not yet been run.
func requireCells() (*store.Cell, *store.Cell, error) {
	if a.CellA == nil || a.CellB == nil {
		return nil, nil, fmt.Errorf("no current compare pair; run `compare <cellA> <fileA> <cellB> <fileB>` first")
	}
	return a.CellA, a.CellB, nil
}

// requireEngine returns the current engine, erroring if `compare` has
// not yet built the bipartite graph.
func requireEngine() (*engine.Engine, error) {
	if a.Engine == nil {
		return nil, fmt.Errorf("no comparison in progress; run `compare` first")
	}
	return a.Engine, nil
}
