package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFrom_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `shell: /bin/zsh
shell_args: ["-l"]
theme: default-light
font_fallback: ["Noto Sans Mono", "Apple Color Emoji"]
scrollback_lines: 10000
socket_dir: /tmp/pterminal-sockets
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	if cfg.Shell != "/bin/zsh" {
		t.Errorf("Shell = %q, want /bin/zsh", cfg.Shell)
	}
	if len(cfg.ShellArgs) != 1 || cfg.ShellArgs[0] != "-l" {
		t.Errorf("ShellArgs = %v, want [-l]", cfg.ShellArgs)
	}
	if cfg.Theme != "default-light" {
		t.Errorf("Theme = %q, want default-light", cfg.Theme)
	}
	if cfg.ScrollbackLines != 10000 {
		t.Errorf("ScrollbackLines = %d, want 10000", cfg.ScrollbackLines)
	}
	if cfg.SocketDir != "/tmp/pterminal-sockets" {
		t.Errorf("SocketDir = %q, want /tmp/pterminal-sockets", cfg.SocketDir)
	}
}

func TestLoadFrom_MissingFile(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.Theme != defaultTheme {
		t.Errorf("Theme = %q, want default %q", cfg.Theme, defaultTheme)
	}
	if cfg.ScrollbackLines != defaultScrollbackLines {
		t.Errorf("ScrollbackLines = %d, want default %d", cfg.ScrollbackLines, defaultScrollbackLines)
	}
}

func TestLoadFrom_ZeroValuesFallBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("shell: /bin/bash\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Theme != defaultTheme {
		t.Errorf("Theme = %q, want default %q", cfg.Theme, defaultTheme)
	}
	if cfg.ScrollbackLines != defaultScrollbackLines {
		t.Errorf("ScrollbackLines = %d, want default %d", cfg.ScrollbackLines, defaultScrollbackLines)
	}
}

func TestLoadFrom_RejectsInvalidFontName(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("font_fallback: [\"bad;name\"]\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Fatal("expected an error for an invalid font_fallback name")
	}
}

func TestLoadFrom_NegativeScrollbackCoercedToDefault(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("scrollback_lines: -1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.ScrollbackLines != defaultScrollbackLines {
		t.Errorf("ScrollbackLines = %d, want default %d", cfg.ScrollbackLines, defaultScrollbackLines)
	}
}
