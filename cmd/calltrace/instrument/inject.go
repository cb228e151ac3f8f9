// Package instrument - Import and declaration injection.
//
// This file adds the helper imports used by injected trace statements and,
// in live counter mode, the per-unit counter array.
package instrument

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ast/astutil"
)

// injectImports adds the helper imports to the AST file.
//
// Each helper is imported under its private alias:
//
//	import (
//		"strings"
//		calltracefmt "fmt"
//	)
//
// The function handles several edge cases:
//   - No imports section: a new import declaration is created
//   - Import already present under the same alias: skipped (no duplicates)
//   - Unit already imports the same path without the alias: a second,
//     aliased import is added, which Go permits
//
// Nothing is added when imports is empty, so a unit without functions is
// left without helper imports.
//
// Thread Safety: NOT thread-safe (modifies AST in place).
func injectImports(fset *token.FileSet, file *ast.File, imports []HelperImport) {
	for _, imp := range imports {
		astutil.AddNamedImport(fset, file, imp.Name, imp.Path)
	}
}

// injectCounters declares the live counter array with one slot per traced
// function:
//
//	var _calltrace_store_go [3]int64
func injectCounters(file *ast.File, name string, size int) {
	if size == 0 {
		return
	}
	file.Decls = append(file.Decls, &ast.GenDecl{
		Tok: token.VAR,
		Specs: []ast.Spec{&ast.ValueSpec{
			Names: []*ast.Ident{ast.NewIdent(name)},
			Type: &ast.ArrayType{
				Len: intLit(size),
				Elt: ast.NewIdent("int64"),
			},
		}},
	})
}
