// Command pterminal is the CLI entrypoint for the terminal core.
package main

import (
	"fmt"
	"os"

	"pterminal/internal/cmd"
)

func main() {
	if err := cmd.NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
