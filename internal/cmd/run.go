package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"pterminal/internal/config"
	"pterminal/internal/ipc"
	"pterminal/internal/orchestrator"
)

const frameInterval = 16 * time.Millisecond // ~60Hz frame tick.

func newRunCmd() *cobra.Command {
	var name string
	var shell string
	var themeName string
	var noIPC bool

	cmd := &cobra.Command{
		Use:   "run [-- <shell> [args...]]",
		Short: "Start the terminal core",
		Long: `Start the terminal core: spawn the configured shell in the first pane,
listen for JSON-RPC collaborators on a Unix socket, and pump the render
pipeline until interrupted.

Window-system glue and actual GPU presentation are out of this core's
scope; this command drives the data path a GPU/window collaborator would
otherwise drive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			command, cmdArgs := resolveShell(shell, cfg, args)
			theme := resolveTheme(firstNonEmpty(themeName, cfg.Theme))

			core, err := orchestrator.New(theme, command, cmdArgs)
			if err != nil {
				return fmt.Errorf("start core: %w", err)
			}
			defer core.Shutdown()

			if !noIPC {
				srv := ipc.NewServer(core, name)
				if err := srv.Listen(); err != nil {
					return fmt.Errorf("ipc listen: %w", err)
				}
				defer srv.Close()
				go func() {
					if err := srv.Serve(); err != nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "ipc: serve: %v\n", err)
					}
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", srv.Path())
			}

			return pumpUntilInterrupted(cmd, core)
		},
	}

	cmd.Flags().StringVar(&name, "name", "default", "Session name (used in the IPC socket filename)")
	cmd.Flags().StringVar(&shell, "shell", "", "Shell command to run (defaults to config, then $SHELL)")
	cmd.Flags().StringVar(&themeName, "theme", "", "Theme name, or \"auto\" to detect from the terminal background (defaults to config)")
	cmd.Flags().BoolVar(&noIPC, "no-ipc", false, "Disable the JSON-RPC collaborator socket")

	return cmd
}

func resolveShell(flagShell string, cfg *config.Config, trailing []string) (string, []string) {
	if len(trailing) > 0 {
		return trailing[0], trailing[1:]
	}
	if flagShell != "" {
		return flagShell, nil
	}
	if cfg.Shell != "" {
		return cfg.Shell, cfg.ShellArgs
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, nil
	}
	return "/bin/sh", nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// pumpUntilInterrupted drives the frame pipeline at frameInterval until
// SIGINT/SIGTERM, discarding prepared frames — there is no window
// collaborator attached in this headless invocation.
func pumpUntilInterrupted(cmd *cobra.Command, core *orchestrator.Orchestrator) error {
	if isatty.IsTerminal(os.Stdin.Fd()) {
		fmt.Fprintln(cmd.OutOrStdout(), "(no attached UI; press Ctrl+C to stop)")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			return nil
		case <-ticker.C:
			core.Frame()
		}
	}
}
