package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"pterminal/internal/ipc"
	"pterminal/internal/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pterminal version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "%s (ipc protocol %s)\n", version.DisplayVersion(), ipc.Version)
			return nil
		},
	}
}
