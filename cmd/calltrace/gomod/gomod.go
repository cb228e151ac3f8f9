// Package gomod locates the Go module a source file belongs to.
//
// The instrumenter uses it to confine import rewriting to the unit's own
// module, and the run command uses it to build instrumented code inside the
// module it came from.
package gomod

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/modfile"
)

// ErrNoModule is returned when no go.mod is found above a directory.
var ErrNoModule = errors.New("no go.mod found")

// Module describes a Go module on disk.
type Module struct {
	Path  string // Module path from the module directive
	Dir   string // Directory holding go.mod
	GoMod string // Path to go.mod
}

// FindGoMod finds the go.mod file governing startDir.
//
// This walks up from the given directory looking for a go.mod file.
//
// Returns:
//   - Path to go.mod file
//   - Empty string if no go.mod found
func FindGoMod(startDir string) string {
	dir := startDir
	for {
		modPath := filepath.Join(dir, "go.mod")
		if _, err := os.Stat(modPath); err == nil {
			return modPath
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached filesystem root
			break
		}
		dir = parent
	}
	return ""
}

// Load parses the go.mod at goModPath.
func Load(goModPath string) (*Module, error) {
	data, err := os.ReadFile(goModPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", goModPath, err)
	}

	f, err := modfile.Parse(goModPath, data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", goModPath, err)
	}
	if f.Module == nil || f.Module.Mod.Path == "" {
		return nil, fmt.Errorf("%s: missing module directive", goModPath)
	}

	return &Module{
		Path:  f.Module.Mod.Path,
		Dir:   filepath.Dir(goModPath),
		GoMod: goModPath,
	}, nil
}

// Lookup returns the module containing dir.
func Lookup(dir string) (*Module, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	goMod := FindGoMod(abs)
	if goMod == "" {
		return nil, fmt.Errorf("%s: %w", abs, ErrNoModule)
	}
	return Load(goMod)
}

// InModule reports whether importPath lies inside the module modulePath.
func InModule(importPath, modulePath string) bool {
	return importPath == modulePath || strings.HasPrefix(importPath, modulePath+"/")
}

// PackagePath returns the import path of the package in dir, which must be
// inside the module.
func (m *Module) PackagePath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(m.Dir, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside module %s", dir, m.Path)
	}
	if rel == "." {
		return m.Path, nil
	}
	return m.Path + "/" + filepath.ToSlash(rel), nil
}
