// Package instrument - Trace statement construction.
//
// This file builds the statements injected into instrumented code. All
// statements are constructed directly as go/ast nodes; nothing is produced
// by formatting and re-parsing source text.
//
// Console mode:
//
//	calltracefmt.Println("[1] Entering 'load' in 'store.go'")
//
// Sink mode:
//
//	func() {
//		f, err := calltraceos.OpenFile("debug.log", calltraceos.O_APPEND|calltraceos.O_CREATE|calltraceos.O_WRONLY, 0o644)
//		if err != nil {
//			panic(err)
//		}
//		defer f.Close()
//		if _, err := f.WriteString("[1] Entering 'load' in 'store.go'" + "\n"); err != nil {
//			panic(err)
//		}
//	}()
package instrument

import (
	"go/ast"
	"go/token"
	"sort"
	"strconv"
)

// Helper package aliases used by injected code. They are private to
// calltrace so they never collide with a unit's own imports.
const (
	FmtAlias    = "calltracefmt"
	OSAlias     = "calltraceos"
	AtomicAlias = "calltraceatomic"
)

// helperPaths maps helper aliases to their import paths.
var helperPaths = map[string]string{
	FmtAlias:    "fmt",
	OSAlias:     "os",
	AtomicAlias: "sync/atomic",
}

// Target selects where trace statements write.
type Target struct {
	// Path is the trace log file appended to by instrumented code.
	// Empty means standard output.
	Path string
}

// Console reports whether the target is standard output.
func (t Target) Console() bool {
	return t.Path == ""
}

// HelperImport is an import required by injected code.
type HelperImport struct {
	Name string // Alias used in injected code
	Path string // Import path
}

// Emitter builds trace statements for one target and records which helper
// imports the statements it built depend on.
//
// Thread Safety: NOT thread-safe.
type Emitter struct {
	target Target
	used   map[string]bool
}

// NewEmitter creates an emitter for target.
func NewEmitter(target Target) *Emitter {
	return &Emitter{target: target, used: make(map[string]bool)}
}

// NewTraceStmt builds a single statement that writes msg to target.
//
// msg must be an expression of type string. Use NewEmitter when the helper
// imports the statement needs must be known.
func NewTraceStmt(msg ast.Expr, target Target) ast.Stmt {
	return NewEmitter(target).TraceStmt(msg)
}

// TraceStmt builds a statement that writes msg to the emitter's target.
func (e *Emitter) TraceStmt(msg ast.Expr) ast.Stmt {
	if e.target.Console() {
		return &ast.ExprStmt{X: e.call(FmtAlias, "Println", msg)}
	}
	return e.sinkStmt(msg)
}

// Sprintf builds calltracefmt.Sprintf(format, args...).
func (e *Emitter) Sprintf(format string, args ...ast.Expr) ast.Expr {
	return e.call(FmtAlias, "Sprintf", append([]ast.Expr{stringLit(format)}, args...)...)
}

// AddInt64 builds calltraceatomic.AddInt64(&counter[index], 1).
func (e *Emitter) AddInt64(counter string, index int) ast.Expr {
	addr := &ast.UnaryExpr{
		Op: token.AND,
		X: &ast.IndexExpr{
			X:     ast.NewIdent(counter),
			Index: intLit(index),
		},
	}
	return e.call(AtomicAlias, "AddInt64", addr, intLit(1))
}

// Imports returns the helper imports used by the statements built so far,
// sorted by alias.
func (e *Emitter) Imports() []HelperImport {
	imports := make([]HelperImport, 0, len(e.used))
	for alias := range e.used {
		imports = append(imports, HelperImport{Name: alias, Path: helperPaths[alias]})
	}
	sort.Slice(imports, func(i, j int) bool {
		return imports[i].Name < imports[j].Name
	})
	return imports
}

// sinkStmt builds the immediately invoked closure that appends msg to the
// trace log. I/O failures panic so they surface in the traced program.
func (e *Emitter) sinkStmt(msg ast.Expr) ast.Stmt {
	flags := &ast.BinaryExpr{
		X: &ast.BinaryExpr{
			X:  e.sel(OSAlias, "O_APPEND"),
			Op: token.OR,
			Y:  e.sel(OSAlias, "O_CREATE"),
		},
		Op: token.OR,
		Y:  e.sel(OSAlias, "O_WRONLY"),
	}

	open := &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent("f"), ast.NewIdent("err")},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{e.call(OSAlias, "OpenFile",
			stringLit(e.target.Path),
			flags,
			&ast.BasicLit{Kind: token.INT, Value: "0o644"},
		)},
	}

	closeFile := &ast.DeferStmt{
		Call: &ast.CallExpr{
			Fun: &ast.SelectorExpr{X: ast.NewIdent("f"), Sel: ast.NewIdent("Close")},
		},
	}

	write := &ast.IfStmt{
		Init: &ast.AssignStmt{
			Lhs: []ast.Expr{ast.NewIdent("_"), ast.NewIdent("err")},
			Tok: token.DEFINE,
			Rhs: []ast.Expr{&ast.CallExpr{
				Fun: &ast.SelectorExpr{X: ast.NewIdent("f"), Sel: ast.NewIdent("WriteString")},
				Args: []ast.Expr{&ast.BinaryExpr{
					X:  msg,
					Op: token.ADD,
					Y:  stringLit("\n"),
				}},
			}},
		},
		Cond: errNotNil(),
		Body: panicErr(),
	}

	return &ast.ExprStmt{X: &ast.CallExpr{
		Fun: &ast.FuncLit{
			Type: &ast.FuncType{Params: &ast.FieldList{}},
			Body: &ast.BlockStmt{List: []ast.Stmt{
				open,
				&ast.IfStmt{Cond: errNotNil(), Body: panicErr()},
				closeFile,
				write,
			}},
		},
	}}
}

func (e *Emitter) call(alias, fn string, args ...ast.Expr) *ast.CallExpr {
	return &ast.CallExpr{Fun: e.sel(alias, fn), Args: args}
}

func (e *Emitter) sel(alias, name string) *ast.SelectorExpr {
	e.used[alias] = true
	return &ast.SelectorExpr{X: ast.NewIdent(alias), Sel: ast.NewIdent(name)}
}

func errNotNil() ast.Expr {
	return &ast.BinaryExpr{X: ast.NewIdent("err"), Op: token.NEQ, Y: ast.NewIdent("nil")}
}

func panicErr() *ast.BlockStmt {
	return &ast.BlockStmt{List: []ast.Stmt{
		&ast.ExprStmt{X: &ast.CallExpr{
			Fun:  ast.NewIdent("panic"),
			Args: []ast.Expr{ast.NewIdent("err")},
		}},
	}}
}

func stringLit(s string) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.STRING, Value: strconv.Quote(s)}
}

func intLit(n int) *ast.BasicLit {
	return &ast.BasicLit{Kind: token.INT, Value: strconv.Itoa(n)}
}
