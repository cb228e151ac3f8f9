// Package instrument - Cross-unit import rewriting.
//
// When several units are instrumented together, an import that resolves to
// one of them is redirected to its instrumented sibling, so the traced code
// calls traced code.
//
// Rule: the import path, with every "." mapped to "/", is tested against the
// base name of each instrumented unit in sorted order. On the first name the
// mapped path ends with, the suffix is appended to the final path element:
//
//	units: store.go, main.go       suffix: _debug
//	import "example.com/app/store"   →   import "example.com/app/store_debug"
//	import "github.com/pkg/errors"   →   (unchanged)
package instrument

import (
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/mod/module"
	"golang.org/x/tools/go/ast/astutil"

	"github.com/kolkov/calltrace/cmd/calltrace/gomod"
)

// DefaultSuffix is appended to instrumented file names and rewritten imports.
const DefaultSuffix = "_debug"

// UnitName returns the base name of a unit without its extension:
// "pkg/store.go" → "store".
func UnitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// InstrumentedSet returns the sorted, de-duplicated base names of units.
func InstrumentedSet(units []string) []string {
	seen := make(map[string]bool, len(units))
	names := make([]string, 0, len(units))
	for _, unit := range units {
		name := UnitName(unit)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RewriteImportPath applies the cross-unit rule to one import path.
//
// instrumented must be sorted for the choice of matching name to be
// deterministic. ok is false when no name matches.
func RewriteImportPath(path string, instrumented []string, suffix string) (rewritten string, ok bool) {
	mapped := strings.ReplaceAll(path, ".", "/")
	for _, name := range instrumented {
		if name != "" && strings.HasSuffix(mapped, name) {
			// The final element is everything after the last "/", so
			// appending to it is appending to the path.
			return path + suffix, true
		}
	}
	return "", false
}

// rewriteImports redirects the unit's imports of instrumented siblings.
//
// When modulePath is non-empty only imports inside that module are
// candidates. Rewritten paths that are not valid import paths are left
// alone.
func (r *rewriter) rewriteImports(instrumented []string, suffix, modulePath string) {
	rewrites := make(map[string]string)
	for _, imp := range r.file.Imports {
		path, err := strconv.Unquote(imp.Path.Value)
		if err != nil {
			continue
		}
		if _, done := rewrites[path]; done {
			continue
		}
		if modulePath != "" && !gomod.InModule(path, modulePath) {
			continue
		}
		newPath, ok := RewriteImportPath(path, instrumented, suffix)
		if !ok {
			continue
		}
		if err := module.CheckImportPath(newPath); err != nil {
			r.logger.Warn("import left unchanged",
				"unit", r.unit,
				"import", path,
				"error", err)
			continue
		}
		rewrites[path] = newPath
	}

	// Apply in a stable order.
	paths := make([]string, 0, len(rewrites))
	for path := range rewrites {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if astutil.RewriteImport(r.fset, r.file, path, rewrites[path]) {
			r.stats.ImportsRewritten++
			r.logger.Debug("rewrote import",
				"unit", r.unit,
				"from", path,
				"to", rewrites[path])
		}
	}
}

// identifierFor turns a unit name into a Go identifier fragment:
// "my-store.go" → "my_store_go".
func identifierFor(unit string) string {
	var b strings.Builder
	for _, r := range unit {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}
