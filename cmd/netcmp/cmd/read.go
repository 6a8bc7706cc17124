package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opentracelab/netcmp/pkg/netgenfmt"
	"github.com/opentracelab/netcmp/pkg/spice"
)

var readLibTag string

var readnetCmd = &cobra.Command{
	Use:   "readnet <file> [file...]",
	Short: "Read one or more netlist files into the store",
	Long: `readnet reads SPICE or netgen-native-binary netlist files into
a fresh file tag in the current store (0 for the first read, then 1,
...). --lib gives the file(s) a label (e.g. "a" or "b") that appears in
readnet's log line; later commands refer to the file by its numeric tag.

Examples:
  netcmp readnet --lib a layout.spice
  netcmp readnet --lib b schematic.sp extracted.ngb`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReadnet,
}

var readlibCmd = &cobra.Command{
	Use:   "readlib <name> <file> [file...]",
	Short: "Alias for readnet that names the file tag explicitly",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		readLibTag = args[0]
		return runReadnet(cmd, args[1:])
	},
}

func init() {
	rootCmd.AddCommand(readnetCmd)
	rootCmd.AddCommand(readlibCmd)

	readnetCmd.Flags().StringVar(&readLibTag, "lib", "", "label this file tag for later reference")
}

func runReadnet(cmd *cobra.Command, paths []string) error {
	tag := a.nextFileTag()
	for _, path := range paths {
		if err := readOneFile(path, tag); err != nil {
			return fmt.Errorf("readnet %s: %w", path, err)
		}
	}
	label := readLibTag
	if label == "" {
		label = fmt.Sprintf("file%d", tag)
	}
	a.warnf("readnet: loaded %d file(s) into %s (tag %d)", len(paths), label, tag)
	return nil
}

func readOneFile(path string, tag int) error {
	if isNetgenNative(path) {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		r, err := netgenfmt.NewReader(f, a.Store, tag)
		if err != nil {
			return err
		}
		_, err = r.ReadAll()
		return err
	}

	r, err := spice.NewReader(a.Store, tag)
	if err != nil {
		return err
	}
	r.Searchers = a.Config.IncludePaths
	return r.ReadFile(path)
}

// isNetgenNative sniffs the first four header bytes rather than
// trusting the extension, since the native format and SPICE text can
// both legitimately show up under any name.
func isNetgenNative(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	var buf [4]byte
	n, _ := f.Read(buf[:])
	if n < 4 {
		return false
	}
	return buf[0] == 0x4e && buf[1] == 0x47 && buf[2] == 0x58 && buf[3] == 0x4e
}
