// Package instrument - Tests for trace statement construction.
package instrument

import (
	"bytes"
	"go/ast"
	"go/format"
	"go/token"
	"strings"
	"testing"
)

// render prints a statement inside a function so it can be inspected and
// checked for validity.
func render(t *testing.T, stmt ast.Stmt) string {
	t.Helper()
	file := &ast.File{
		Name: ast.NewIdent("p"),
		Decls: []ast.Decl{&ast.FuncDecl{
			Name: ast.NewIdent("f"),
			Type: &ast.FuncType{Params: &ast.FieldList{}},
			Body: &ast.BlockStmt{List: []ast.Stmt{stmt}},
		}},
	}
	var buf bytes.Buffer
	if err := format.Node(&buf, token.NewFileSet(), file); err != nil {
		t.Fatalf("format.Node failed: %v", err)
	}
	mustParse(t, buf.String())
	return buf.String()
}

func TestNewTraceStmt_Console(t *testing.T) {
	code := render(t, NewTraceStmt(stringLit("[1] Entering 'f' in 'a.go'"), Target{}))
	if !strings.Contains(code, `calltracefmt.Println("[1] Entering 'f' in 'a.go'")`) {
		t.Errorf("unexpected console statement:\n%s", code)
	}
}

func TestNewTraceStmt_Sink(t *testing.T) {
	code := render(t, NewTraceStmt(stringLit("msg"), Target{Path: "/tmp/trace.log"}))
	for _, want := range []string{
		`calltraceos.OpenFile("/tmp/trace.log"`,
		"0o644",
		"defer f.Close()",
		`f.WriteString("msg" + "\n")`,
	} {
		if !strings.Contains(code, want) {
			t.Errorf("sink statement missing %q:\n%s", want, code)
		}
	}
}

func TestEmitter_Imports(t *testing.T) {
	tests := []struct {
		name   string
		target Target
		live   bool
		want   []string
	}{
		{"console", Target{}, false, []string{FmtAlias}},
		{"sink", Target{Path: "debug.log"}, false, []string{OSAlias}},
		{"sink with live counters", Target{Path: "debug.log"}, true, []string{AtomicAlias, FmtAlias, OSAlias}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEmitter(tt.target)
			if len(e.Imports()) != 0 {
				t.Fatalf("fresh emitter reports imports")
			}
			msg := ast.Expr(stringLit("x"))
			if tt.live {
				msg = e.Sprintf("%d", e.AddInt64("counter", 0))
			}
			e.TraceStmt(msg)

			var got []string
			for _, imp := range e.Imports() {
				got = append(got, imp.Name)
				if imp.Path != helperPaths[imp.Name] {
					t.Errorf("import %s has path %q", imp.Name, imp.Path)
				}
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("Imports() = %v, want %v", got, tt.want)
			}
		})
	}
}
