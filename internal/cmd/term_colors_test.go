package cmd

import (
	"testing"

	"pterminal/internal/vte"
)

func TestResolveThemeHonorsExplicitName(t *testing.T) {
	if got := resolveTheme("default-light"); got.Name != vte.LightTheme().Name {
		t.Fatalf("resolveTheme(default-light) = %q, want %q", got.Name, vte.LightTheme().Name)
	}
}

func TestResolveThemeAutoUsesBackgroundOverride(t *testing.T) {
	t.Setenv("PTERMINAL_BACKGROUND", "light")
	if got := resolveTheme("auto"); got.Name != vte.LightTheme().Name {
		t.Fatalf("resolveTheme(auto) with light override = %q, want %q", got.Name, vte.LightTheme().Name)
	}

	t.Setenv("PTERMINAL_BACKGROUND", "dark")
	if got := resolveTheme("auto"); got.Name != vte.DefaultTheme().Name {
		t.Fatalf("resolveTheme(auto) with dark override = %q, want %q", got.Name, vte.DefaultTheme().Name)
	}
}

func TestDetectBackgroundIsDarkRespectsOverride(t *testing.T) {
	t.Setenv("PTERMINAL_BACKGROUND", "light")
	dark, ok := detectBackgroundIsDark()
	if !ok || dark {
		t.Fatalf("detectBackgroundIsDark() = (%v, %v), want (false, true)", dark, ok)
	}
}
