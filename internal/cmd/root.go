// Package cmd wires the cobra command surface around the rendering core.
// Window-system/GPU-presentation glue lives in a separate collaborator;
// this package only owns flag parsing and process lifecycle.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pterminal",
		Short: "GPU-accelerated, multi-pane terminal emulator",
		Long:  "pterminal drives a multi-pane terminal core: PTY I/O, VTE emulation, incremental render, and split/pane topology.",
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
