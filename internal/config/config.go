package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the persisted configuration for the terminal core.
type Config struct {
	// Shell is the command used to spawn each pane's process. Empty means
	// fall back to $SHELL, then /bin/sh.
	Shell string `yaml:"shell"`
	// ShellArgs are extra arguments passed after Shell.
	ShellArgs []string `yaml:"shell_args,omitempty"`

	// Theme names a built-in theme (see internal/vte's theme registry).
	Theme string `yaml:"theme"`

	// FontFallback lists font family names for glyphs missing from the
	// primary face, e.g. for CJK or emoji coverage. It is loaded and
	// validated here; the renderer does not read it.
	FontFallback []string `yaml:"font_fallback,omitempty"`

	// ScrollbackLines is the configured scrollback depth. It is loaded and
	// validated here; the emulator does not read it and keeps a fixed
	// 50000 rows of scrollback per pane.
	ScrollbackLines int `yaml:"scrollback_lines"`

	// SocketDir names a directory for the IPC listening socket. It is loaded
	// here; the IPC server does not read it and always uses socketdir.Dir().
	SocketDir string `yaml:"socket_dir,omitempty"`
}

var fontNameRe = regexp.MustCompile(`^[a-zA-Z0-9 _.-]+$`)

const (
	defaultTheme           = "default-dark"
	defaultScrollbackLines = 50000
)

func defaults() Config {
	return Config{
		Theme:           defaultTheme,
		ScrollbackLines: defaultScrollbackLines,
	}
}

// ConfigDir returns the pterminal configuration directory (~/.pterminal/).
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".pterminal")
	}
	return filepath.Join(home, ".pterminal")
}

// Load reads the config from ~/.pterminal/config.yaml.
// If the file does not exist, it returns a Config populated with defaults
// and no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path.
// If the file does not exist, it returns a Config populated with defaults
// and no error.
func LoadFrom(path string) (*Config, error) {
	cfg := defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if cfg.Theme == "" {
		cfg.Theme = defaultTheme
	}
	if cfg.ScrollbackLines <= 0 {
		cfg.ScrollbackLines = defaultScrollbackLines
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for _, name := range c.FontFallback {
		if name == "" {
			return fmt.Errorf("font_fallback: empty string not permitted")
		}
		if !fontNameRe.MatchString(name) {
			return fmt.Errorf("font_fallback: invalid font name %q", name)
		}
	}
	if c.ScrollbackLines < 0 {
		return fmt.Errorf("scrollback_lines: must not be negative")
	}
	return nil
}
