// Package instrument - Tree rewriter.
//
// This file implements the traversal that injects entry and exit traces.
// The walk is recursive: every function definition starts a new walk of its
// body with its own funcContext, so nested functions never see or disturb the
// state of the function that encloses them.
package instrument

import (
	"fmt"
	"go/ast"
	"go/token"
	"log/slog"

	"golang.org/x/tools/go/ast/astutil"

	"github.com/kolkov/calltrace/internal/tracelog"
)

const (
	// liveCallVar holds the run-time entry number of the current call in
	// live counter mode.
	liveCallVar = "calltraceCall"

	// liveCounterPrefix prefixes the per-unit counter array in live
	// counter mode.
	liveCounterPrefix = "_calltrace_"

	// packageScope names the enclosing scope of package-level closures.
	packageScope = "glob"
)

// FunctionSite records one traced function definition.
type FunctionSite struct {
	Name       string         // Traced name: f, Type.Method, or closure name
	Unit       string         // Unit identifier the function belongs to
	Occurrence int            // Value of the name's counter after this definition
	Position   token.Position // Position of the func keyword
	Exits      int            // Exit traces injected for this definition
}

// InstrumentStats tracks instrumentation statistics.
//
//nolint:revive // InstrumentStats is clear and descriptive despite stuttering
type InstrumentStats struct {
	FunctionsTraced  int // Entry traces injected
	ExitsTraced      int // Exit traces injected
	ImportsRewritten int // Distinct import paths redirected to instrumented siblings
	ReturnsWrapped   int // Labeled returns moved into a block to make room for an exit trace
}

// Total returns the number of trace statements injected.
func (s *InstrumentStats) Total() int {
	return s.FunctionsTraced + s.ExitsTraced
}

// funcContext is the function that owns the code being walked.
type funcContext struct {
	// name is the traced function name. Empty at package level, where
	// return statements cannot occur.
	name string

	// prefix names anonymous closures defined directly in this scope.
	prefix string

	// closures counts closures defined directly in this scope.
	closures *int

	// site indexes rewriter.sites, -1 at package level.
	site int
}

// rewriter injects traces into one parsed unit.
//
// Thread Safety: NOT thread-safe (modifies AST in place).
type rewriter struct {
	fset   *token.FileSet
	file   *ast.File
	unit   string
	emit   *Emitter
	live   bool
	logger *slog.Logger

	// counters is the static occurrence counter, keyed by traced name.
	counters map[string]int
	sites    []FunctionSite
	stats    InstrumentStats
	errs     []error
}

func newRewriter(fset *token.FileSet, file *ast.File, unit string, emit *Emitter, live bool, logger *slog.Logger) *rewriter {
	return &rewriter{
		fset:     fset,
		file:     file,
		unit:     unit,
		emit:     emit,
		live:     live,
		logger:   logger,
		counters: make(map[string]int),
	}
}

// rewriteFunctions instruments every function in the file in source order.
func (r *rewriter) rewriteFunctions() {
	closures := 0
	top := funcContext{prefix: packageScope, closures: &closures, site: -1}
	for _, decl := range r.file.Decls {
		r.walk(decl, top)
	}
}

// walk visits root with ctx as the owning function. Function definitions
// found under root are handed to function and not descended into here.
func (r *rewriter) walk(root ast.Node, ctx funcContext) {
	astutil.Apply(root, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.FuncDecl:
			if n.Body != nil {
				r.function(funcDeclName(n), n.Body, n.Pos())
			}
			return false

		case *ast.FuncLit:
			*ctx.closures++
			r.function(closureName(c, ctx, *ctx.closures), n.Body, n.Pos())
			return false

		case *ast.LabeledStmt:
			// A labeled return has no statement list to insert into.
			// Wrap it in a block; the walk continues into the block.
			if ret, ok := n.Stmt.(*ast.ReturnStmt); ok && ctx.name != "" {
				n.Stmt = &ast.BlockStmt{
					Lbrace: ret.Pos(),
					List:   []ast.Stmt{ret},
					Rbrace: ret.End(),
				}
				r.stats.ReturnsWrapped++
			}

		case *ast.ReturnStmt:
			if ctx.name != "" {
				r.exit(c, n, ctx)
			}
		}
		return true
	}, nil)
}

// function instruments one definition.
//
// The counter is incremented when the definition is reached, the body is
// walked with the definition as owner, and only then is the entry trace
// prepended, so the injected statement itself is never walked.
func (r *rewriter) function(name string, body *ast.BlockStmt, pos token.Pos) {
	r.counters[name]++
	occurrence := r.counters[name]

	site := len(r.sites)
	r.sites = append(r.sites, FunctionSite{
		Name:       name,
		Unit:       r.unit,
		Occurrence: occurrence,
		Position:   r.fset.Position(pos),
	})

	closures := 0
	r.walk(body, funcContext{name: name, prefix: name, closures: &closures, site: site})

	body.List = append(r.entry(name, occurrence, site), body.List...)
	r.stats.FunctionsTraced++

	r.logger.Debug("traced function",
		"unit", r.unit,
		"function", name,
		"occurrence", occurrence,
		"exits", r.sites[site].Exits)
}

// entry builds the statements prepended to a function body.
func (r *rewriter) entry(name string, occurrence, site int) []ast.Stmt {
	if !r.live {
		msg := stringLit(tracelog.EnteringMessage(occurrence, name, r.unit))
		return []ast.Stmt{r.emit.TraceStmt(msg)}
	}

	counter := r.emit.AddInt64(r.counterVar(), site)
	if r.sites[site].Exits == 0 {
		msg := r.emit.Sprintf(tracelog.EnteringFormat, counter, stringLit(name), stringLit(r.unit))
		return []ast.Stmt{r.emit.TraceStmt(msg)}
	}

	// Exits refer back to the entry number, so keep it in a local.
	define := &ast.AssignStmt{
		Lhs: []ast.Expr{ast.NewIdent(liveCallVar)},
		Tok: token.DEFINE,
		Rhs: []ast.Expr{counter},
	}
	msg := r.emit.Sprintf(tracelog.EnteringFormat, ast.NewIdent(liveCallVar), stringLit(name), stringLit(r.unit))
	return []ast.Stmt{define, r.emit.TraceStmt(msg)}
}

// exit injects an exit trace before ret.
//
// The number reported is the owner's counter at the time the return is
// reached, minus one. Functions that end without a return get no exit trace.
func (r *rewriter) exit(c *astutil.Cursor, ret *ast.ReturnStmt, ctx funcContext) {
	if c.Index() < 0 {
		r.errs = append(r.errs, NewInstrumentationErrorWithSuggestion(
			r.fset, ret.Pos(),
			fmt.Sprintf("cannot place exit trace before return in %s", ctx.name),
			"Move the return statement into a block",
		))
		return
	}

	var msg ast.Expr
	if r.live {
		entryNumber := &ast.BinaryExpr{X: ast.NewIdent(liveCallVar), Op: token.SUB, Y: intLit(1)}
		msg = r.emit.Sprintf(tracelog.ExitingFormat, entryNumber, stringLit(ctx.name), stringLit(r.unit))
	} else {
		msg = stringLit(tracelog.ExitingMessage(r.counters[ctx.name]-1, ctx.name, r.unit))
	}

	c.InsertBefore(r.emit.TraceStmt(msg))
	r.sites[ctx.site].Exits++
	r.stats.ExitsTraced++
}

// counterVar is the name of the unit's live counter array.
func (r *rewriter) counterVar() string {
	return liveCounterPrefix + identifierFor(r.unit)
}

// funcDeclName returns f for functions and T.f for methods.
func funcDeclName(fn *ast.FuncDecl) string {
	if fn.Recv == nil || len(fn.Recv.List) == 0 {
		return fn.Name.Name
	}
	return receiverTypeName(fn.Recv.List[0].Type) + "." + fn.Name.Name
}

// receiverTypeName strips pointers, parentheses and type parameters from a
// receiver type.
func receiverTypeName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverTypeName(t.X)
	case *ast.ParenExpr:
		return receiverTypeName(t.X)
	case *ast.IndexExpr:
		return receiverTypeName(t.X)
	case *ast.IndexListExpr:
		return receiverTypeName(t.X)
	default:
		return "?"
	}
}

// closureName names a function literal after the variable it initializes,
// or <scope>.func<k> when it has none.
func closureName(c *astutil.Cursor, ctx funcContext, k int) string {
	i := c.Index()
	switch parent := c.Parent().(type) {
	case *ast.AssignStmt:
		if c.Name() == "Rhs" && len(parent.Lhs) == len(parent.Rhs) && i >= 0 {
			if id, ok := parent.Lhs[i].(*ast.Ident); ok && id.Name != "_" {
				return id.Name
			}
		}
	case *ast.ValueSpec:
		if c.Name() == "Values" && i >= 0 && i < len(parent.Names) && parent.Names[i].Name != "_" {
			return parent.Names[i].Name
		}
	}
	return fmt.Sprintf("%s.func%d", ctx.prefix, k)
}
