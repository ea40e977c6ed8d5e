package cmd

import (
	"os"

	"github.com/muesli/termenv"
	"golang.org/x/term"

	"pterminal/internal/vte"
)

// resolveTheme turns a requested theme name into a concrete Theme. "auto"
// (or an env override) probes the attached terminal's own background color
// via OSC 10/11 queries instead of assuming the Catppuccin Mocha default.
func resolveTheme(name string) vte.Theme {
	if name != "auto" {
		return vte.ByName(name)
	}
	if isDark, ok := detectBackgroundIsDark(); ok && !isDark {
		return vte.LightTheme()
	}
	return vte.DefaultTheme()
}

// detectBackgroundIsDark reports whether the terminal attached to stdout has
// a dark background. The second return is false when no hint is available
// (not a TTY, or the terminal didn't answer the OSC 11 query) and callers
// should fall back to the default theme.
func detectBackgroundIsDark() (dark bool, ok bool) {
	if override := os.Getenv("PTERMINAL_BACKGROUND"); override != "" {
		return override != "light", true
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return false, false
	}
	output := termenv.NewOutput(os.Stdout)
	if output.BackgroundColor() == nil {
		return false, false
	}
	return output.HasDarkBackground(), true
}
