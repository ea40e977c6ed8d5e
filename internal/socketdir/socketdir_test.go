package socketdir

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		socketType, name string
		want             string
	}{
		{"core", "default", "core.default.sock"},
		{"core", "work", "core.work.sock"},
		{"core", "silent-deer", "core.silent-deer.sock"},
	}
	for _, tt := range tests {
		got := Format(tt.socketType, tt.name)
		if got != tt.want {
			t.Errorf("Format(%q, %q) = %q, want %q", tt.socketType, tt.name, got, tt.want)
		}
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		filename string
		wantType string
		wantName string
		wantOK   bool
	}{
		{"core.default.sock", TypeCore, "default", true},
		{"core.work.sock", TypeCore, "work", true},
		{"core.silent-deer.sock", TypeCore, "silent-deer", true},
		{"notasocket.txt", "", "", false},
		{"noperiod.sock", "", "", false},
		{".sock", "", "", false},
		{"onlyone.sock", "", "", false},
		{"core..sock", TypeCore, "", true}, // degenerate but parseable
	}
	for _, tt := range tests {
		entry, ok := Parse(tt.filename)
		if ok != tt.wantOK {
			t.Errorf("Parse(%q) ok = %v, want %v", tt.filename, ok, tt.wantOK)
			continue
		}
		if !ok {
			continue
		}
		if entry.Type != tt.wantType {
			t.Errorf("Parse(%q).Type = %q, want %q", tt.filename, entry.Type, tt.wantType)
		}
		if entry.Name != tt.wantName {
			t.Errorf("Parse(%q).Name = %q, want %q", tt.filename, entry.Name, tt.wantName)
		}
	}
}

func TestPath(t *testing.T) {
	// Path uses Dir() which depends on $HOME; just verify format.
	got := Path("core", "default")
	want := filepath.Join(Dir(), "core.default.sock")
	if got != want {
		t.Errorf("Path(core, default) = %q, want %q", got, want)
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "core.default.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "core.work.sock"), nil, 0o600)

	t.Run("single match", func(t *testing.T) {
		path, err := FindIn(dir, "default")
		if err != nil {
			t.Fatal(err)
		}
		want := filepath.Join(dir, "core.default.sock")
		if path != want {
			t.Errorf("Find(default) = %q, want %q", path, want)
		}
	})

	t.Run("no match", func(t *testing.T) {
		_, err := FindIn(dir, "nonexistent")
		if err == nil {
			t.Fatal("expected error for no match")
		}
	})

	t.Run("ambiguous match", func(t *testing.T) {
		os.WriteFile(filepath.Join(dir, "other.work.sock"), nil, 0o600)
		_, err := FindIn(dir, "work")
		if err == nil {
			t.Fatal("expected error for ambiguous match")
		}
	})
}

func TestList(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "core.default.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "core.work.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "random.txt"), nil, 0o600)      // ignored
	os.WriteFile(filepath.Join(dir, "old-format.sock"), nil, 0o600) // ignored (no type.name format)

	entries, err := ListIn(dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d: %+v", len(entries), entries)
	}

	types := make(map[string]int)
	for _, e := range entries {
		types[e.Type]++
		if e.Path == "" {
			t.Error("entry has empty Path")
		}
	}
	if types[TypeCore] != 2 {
		t.Errorf("expected 2 core entries, got %d", types[TypeCore])
	}
}

func TestListByType(t *testing.T) {
	dir := t.TempDir()

	os.WriteFile(filepath.Join(dir, "core.default.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "core.work.sock"), nil, 0o600)
	os.WriteFile(filepath.Join(dir, "other.work.sock"), nil, 0o600)

	cores, err := ListByTypeIn(dir, TypeCore)
	if err != nil {
		t.Fatal(err)
	}
	if len(cores) != 2 {
		t.Errorf("expected 2 core entries, got %d", len(cores))
	}

	others, err := ListByTypeIn(dir, "other")
	if err != nil {
		t.Fatal(err)
	}
	if len(others) != 1 {
		t.Errorf("expected 1 other entry, got %d", len(others))
	}
}

func TestListIn_EmptyDir(t *testing.T) {
	entries, err := ListIn(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("expected 0 entries, got %d", len(entries))
	}
}

func TestListIn_NonexistentDir(t *testing.T) {
	entries, err := ListIn("/nonexistent/path")
	if err != nil {
		t.Fatal(err)
	}
	if entries != nil {
		t.Errorf("expected nil, got %v", entries)
	}
}

func TestResolveSocketDir_ShortPath(t *testing.T) {
	// For a normal-length path, resolveSocketDir should return the real path.
	// Whether $HOME is short enough depends on the environment, but either
	// result (real path or the temp-dir symlink) ends in "sockets".
	ResetDirCache()
	defer ResetDirCache()

	dir := Dir()
	if !strings.HasSuffix(dir, "sockets") {
		t.Errorf("Dir() = %q, expected to end with 'sockets'", dir)
	}
}

func TestResolveSocketDir_SymlinkCreation(t *testing.T) {
	// A $HOME deep enough to push the real socket dir past maxSockPathLen
	// makes resolveSocketDir create a symlink under the temp dir pointing at
	// the real directory, and return the symlink.
	home := filepath.Join(t.TempDir(), strings.Repeat("d", maxSockPathLen))
	t.Setenv("HOME", home)
	t.Setenv("TMPDIR", t.TempDir())
	realDir := filepath.Join(home, ".pterminal", "sockets")

	symlinkDir := resolveSocketDir()
	if want := filepath.Join(os.TempDir(), "pterminal-sockets"); symlinkDir != want {
		t.Fatalf("resolveSocketDir() = %q, want symlink %q", symlinkDir, want)
	}

	target, err := os.Readlink(symlinkDir)
	if err != nil {
		t.Fatalf("Readlink: %v", err)
	}
	if target != realDir {
		t.Errorf("symlink target = %q, want %q", target, realDir)
	}
}
