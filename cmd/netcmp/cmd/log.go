package cmd

import (
	"strings"

	"github.com/spf13/cobra"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Control the run transcript (spec §6 log command)",
}

var logStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a new transcript segment",
	RunE: func(cmd *cobra.Command, args []string) error {
		a.Log.Start()
		return nil
	},
}

var logEndCmd = &cobra.Command{
	Use:   "end",
	Short: "Stop the transcript",
	RunE: func(cmd *cobra.Command, args []string) error {
		a.Log.End()
		return nil
	},
}

var logResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Clear suspend state and close any open transcript file",
	RunE: func(cmd *cobra.Command, args []string) error {
		return a.Log.Reset()
	},
}

var logSuspendCmd = &cobra.Command{
	Use:   "suspend",
	Short: "Silence the transcript without stopping it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a.Log.Suspend()
		return nil
	},
}

var logResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Undo one suspend",
	RunE: func(cmd *cobra.Command, args []string) error {
		a.Log.Resume()
		return nil
	},
}

var logFileCmd = &cobra.Command{
	Use:   "file [path]",
	Short: "Mirror the transcript to a file, or stop mirroring if path is omitted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		return a.Log.File(path)
	},
}

var logEchoCmd = &cobra.Command{
	Use:   "echo [on|off]",
	Short: "Toggle echoing the transcript to stdout",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		on := true
		if len(args) == 1 {
			on = args[0] == "on" || args[0] == "true"
		}
		a.Log.SetEcho(on)
		return nil
	},
}

var logPutCmd = &cobra.Command{
	Use:   "put <text...>",
	Short: "Append an arbitrary line to the transcript",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a.Log.Put(strings.Join(args, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logCmd)
	logCmd.AddCommand(logStartCmd, logEndCmd, logResetCmd, logSuspendCmd, logResumeCmd, logFileCmd, logEchoCmd, logPutCmd)
}
