package version

import (
	"strings"
	"testing"
)

func TestDisplayVersionDev(t *testing.T) {
	old := ReleaseBuild
	defer func() { ReleaseBuild = old }()
	ReleaseBuild = "false"
	GitRef = "abc1234"

	got := DisplayVersion()
	if !strings.HasPrefix(got, "v"+Version+"-") {
		t.Fatalf("DisplayVersion() = %q, want prefix v%s-", got, Version)
	}
}

func TestDisplayVersionRelease(t *testing.T) {
	old := ReleaseBuild
	defer func() { ReleaseBuild = old }()
	ReleaseBuild = "true"

	got := DisplayVersion()
	if got != "v"+Version {
		t.Fatalf("DisplayVersion() = %q, want v%s", got, Version)
	}
}

func TestNormalizeRefEmpty(t *testing.T) {
	if got := normalizeRef("  "); got != "unknown" {
		t.Fatalf("normalizeRef(blank) = %q, want unknown", got)
	}
}
