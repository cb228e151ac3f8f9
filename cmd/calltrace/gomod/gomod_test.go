// gomod_test.go tests module discovery.
package gomod

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeModule(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "go.mod"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

// TestLookup_WalksUp verifies that a nested directory resolves to the
// enclosing module.
func TestLookup_WalksUp(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "module example.com/app\n\ngo 1.22\n")

	nested := filepath.Join(root, "internal", "store")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}

	mod, err := Lookup(nested)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if mod.Path != "example.com/app" {
		t.Errorf("Path = %q, want example.com/app", mod.Path)
	}

	pkg, err := mod.PackagePath(nested)
	if err != nil {
		t.Fatalf("PackagePath() error: %v", err)
	}
	if pkg != "example.com/app/internal/store" {
		t.Errorf("PackagePath() = %q, want example.com/app/internal/store", pkg)
	}
}

// TestLookup_NestedModuleWins verifies the nearest go.mod is used.
func TestLookup_NestedModuleWins(t *testing.T) {
	root := t.TempDir()
	writeModule(t, root, "module example.com/outer\n")
	inner := filepath.Join(root, "tools")
	if err := os.MkdirAll(inner, 0755); err != nil {
		t.Fatal(err)
	}
	writeModule(t, inner, "module example.com/outer/tools\n")

	mod, err := Lookup(inner)
	if err != nil {
		t.Fatalf("Lookup() error: %v", err)
	}
	if mod.Path != "example.com/outer/tools" {
		t.Errorf("Path = %q, want example.com/outer/tools", mod.Path)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeModule(t, dir, "go 1.22\n")

	if _, err := Load(filepath.Join(dir, "go.mod")); err == nil {
		t.Error("Load() accepted a go.mod without a module directive")
	}

	writeModule(t, dir, "module a b c\n")
	if _, err := Load(filepath.Join(dir, "go.mod")); err == nil {
		t.Error("Load() accepted a malformed go.mod")
	}
}

func TestFindGoMod_None(t *testing.T) {
	// The temp dir may live below a go.mod on some machines, so only check
	// that a result, when present, is a real file.
	found := FindGoMod(t.TempDir())
	if found != "" {
		if _, err := os.Stat(found); err != nil {
			t.Errorf("FindGoMod() returned missing file %q", found)
		}
		t.Logf("temp dir is inside module %s", found)
		return
	}

	_, err := Lookup(t.TempDir())
	if !errors.Is(err, ErrNoModule) {
		t.Errorf("Lookup() error = %v, want ErrNoModule", err)
	}
}

func TestInModule(t *testing.T) {
	tests := []struct {
		importPath string
		want       bool
	}{
		{"example.com/app", true},
		{"example.com/app/store", true},
		{"example.com/application", false},
		{"github.com/pkg/errors", false},
		{"fmt", false},
	}

	for _, tt := range tests {
		if got := InModule(tt.importPath, "example.com/app"); got != tt.want {
			t.Errorf("InModule(%q) = %v, want %v", tt.importPath, got, tt.want)
		}
	}
}

func TestPackagePath_Outside(t *testing.T) {
	mod := &Module{Path: "example.com/app", Dir: filepath.Join(t.TempDir(), "app")}
	if _, err := mod.PackagePath(t.TempDir()); err == nil {
		t.Error("PackagePath() accepted a directory outside the module")
	}
}
