// Package semantic implements the three-pass analyzer: global/function
// collection, a branch-guarded scope walk that resolves identifiers and
// calls, and a deferred typo-suggestion pass. It mutates ast.Program in
// place to set the five feature flags the code generator reads to decide
// which runtime includes to pull in.
package semantic

import (
	"github.com/ec-lang/ec/internal/ast"
	"github.com/ec-lang/ec/internal/diag"
	"github.com/ec-lang/ec/internal/token"
)

// Analyzer holds the accumulated state of one Analyze call: the file/
// source used for diagnostic rendering, the collected errors/warnings,
// and the symbol tables built by Pass 1.
type Analyzer struct {
	file   string
	source []string

	errs     []*diag.Error
	warnings []diag.Warning
	typos    []typoCandidate

	functions map[string]*ast.FunctionDefStatement
	globals   map[string]bool

	flags          map[string]token.Position
	parseFlagsPos  *token.Position
	parseFlagsSeen bool

	usesIO, usesHeap, usesStrings, usesArgs, usesFuncs bool
}

// New constructs an Analyzer for one file. source is the file split into
// lines, used only to render the offending line's text in diagnostics.
func New(file string, source []string) *Analyzer {
	return &Analyzer{
		file:      file,
		source:    source,
		functions: make(map[string]*ast.FunctionDefStatement),
		globals:   make(map[string]bool),
		flags:     make(map[string]token.Position),
	}
}

// Analyze runs all three passes over prog, mutates prog's feature flags in
// place, and returns the collected errors (typo diagnostics first, per
// Pass 3) and warnings.
func (a *Analyzer) Analyze(prog *ast.Program) ([]*diag.Error, []diag.Warning) {
	a.pass1(prog)
	a.pass2(prog)
	a.pass3()

	prog.UsesIO = a.usesIO
	prog.UsesHeap = a.usesHeap
	prog.UsesStrings = a.usesStrings
	prog.UsesArgs = a.usesArgs
	prog.UsesFuncs = a.usesFuncs

	return a.errs, a.warnings
}

func (a *Analyzer) lineText(pos token.Position) string {
	if pos.Line-1 >= 0 && pos.Line-1 < len(a.source) {
		return a.source[pos.Line-1]
	}
	return ""
}

func (a *Analyzer) errorAt(pos token.Position, kind ErrorKind, message string) *diag.Error {
	return diag.New(message, pos).WithFile(a.file).WithLine(a.lineText(pos)).WithCode(string(kind))
}

func posBefore(a, b token.Position) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Column < b.Column
}

// ---------------------------------------------------------------------
// Pass 1 — globals, functions, flag schema
// ---------------------------------------------------------------------

func (a *Analyzer) pass1(prog *ast.Program) {
	for _, stmt := range prog.Statements {
		switch s := stmt.(type) {
		case *ast.FunctionDefStatement:
			a.functions[s.Name] = s
		case *ast.VarDeclStatement:
			a.globals[s.Name] = true
		case *ast.BufferDeclStatement:
			a.globals[s.Name] = true
		case *ast.AllocateStatement:
			a.globals[s.Name] = true
		case *ast.TimerDeclStatement:
			a.globals[s.Name] = true
		case *ast.FileOpenStatement:
			a.globals[s.Name] = true
		case *ast.GetTimeStatement:
			a.globals[s.Target] = true
		case *ast.FlagSchemaDeclStatement:
			if a.parseFlagsSeen {
				a.errs = append(a.errs, a.errorAt(s.Pos(), ErrFlagAfterParse,
					"flag \""+s.Name+"\" declared after \"parse flags.\""))
			}
			if _, dup := a.flags[s.Name]; dup {
				a.errs = append(a.errs, a.errorAt(s.Pos(), ErrDuplicateFlag,
					"duplicate flag declaration: "+s.Name))
			} else {
				a.flags[s.Name] = s.Pos()
			}
		case *ast.ParseFlagsStatement:
			if a.parseFlagsSeen {
				a.errs = append(a.errs, a.errorAt(s.Pos(), ErrDuplicateParse,
					"duplicate \"parse flags.\" marker"))
			}
			a.parseFlagsSeen = true
			pos := s.Pos()
			a.parseFlagsPos = &pos
		}
	}
}

// ---------------------------------------------------------------------
// Pass 2 — scope walk
// ---------------------------------------------------------------------

func (a *Analyzer) pass2(prog *ast.Program) {
	sc := newScope(a.globals)
	a.analyzeBlock(prog.Statements, sc)
}

func (a *Analyzer) analyzeBlock(stmts []ast.Statement, sc *scope) {
	for _, s := range stmts {
		a.analyzeStmt(s, sc)
	}
}

func (a *Analyzer) analyzeStmt(stmt ast.Statement, sc *scope) {
	switch s := stmt.(type) {
	case *ast.PrintStatement:
		a.usesIO = true
		a.analyzeExpr(s.Value, sc)

	case *ast.VarDeclStatement:
		if s.Initializer != nil {
			a.analyzeExpr(s.Initializer, sc)
		}
		sc.declare(s.Name)

	case *ast.AssignmentStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.IfStatement:
		a.analyzeIf(s, sc)

	case *ast.WhileStatement:
		a.analyzeExpr(s.Condition, sc)
		a.analyzeBlock(s.Body, sc)

	case *ast.ForRangeStatement:
		if s.Range != nil {
			a.analyzeExpr(s.Range, sc)
		}
		sc.declare(s.Variable)
		a.analyzeBlock(s.Body, sc)

	case *ast.ForEachStatement:
		a.analyzeExpr(s.Collection, sc)
		sc.declare(s.Variable)
		a.analyzeBlock(s.Body, sc)

	case *ast.RepeatStatement:
		a.analyzeExpr(s.Count, sc)
		a.analyzeBlock(s.Body, sc)

	case *ast.BreakStatement, *ast.ContinueStatement:
		// nothing to resolve

	case *ast.ReturnStatement:
		if s.Value != nil {
			a.analyzeExpr(s.Value, sc)
		}

	case *ast.ExitStatement:
		if s.Code != nil {
			a.analyzeExpr(s.Code, sc)
		}

	case *ast.FunctionDefStatement:
		a.usesFuncs = true
		params := make([]string, len(s.Parameters))
		for i, p := range s.Parameters {
			params[i] = p.Name
		}
		fnScope := functionScope(a.globals, params)
		a.analyzeBlock(s.Body, fnScope)

	case *ast.CallStatement:
		a.analyzeExpr(s.Call, sc)

	case *ast.AllocateStatement:
		a.usesHeap = true
		a.analyzeExpr(s.Size, sc)
		sc.declare(s.Name)

	case *ast.FreeStatement:
		a.usesHeap = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)

	case *ast.IncrementStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		if s.Amount != nil {
			a.analyzeExpr(s.Amount, sc)
		}

	case *ast.DecrementStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		if s.Amount != nil {
			a.analyzeExpr(s.Amount, sc)
		}

	case *ast.BufferDeclStatement:
		a.usesHeap = true
		if s.Size != nil {
			a.analyzeExpr(s.Size, sc)
		}
		if s.Initializer != nil {
			a.analyzeExpr(s.Initializer, sc)
		}
		sc.declare(s.Name)

	case *ast.ByteSetStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Index, sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.ElementSetStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Index, sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.ListAppendStatement:
		a.usesHeap = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.FileOpenStatement:
		a.usesIO = true
		a.analyzeExpr(s.Path, sc)
		sc.declare(s.Name)

	case *ast.FileReadStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		sc.declare(s.Target)

	case *ast.FileReadLineStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		sc.declare(s.Target)

	case *ast.FileSeekLineStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Line, sc)

	case *ast.FileSeekByteStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Offset, sc)

	case *ast.FileWriteStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.FileWriteNewlineStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.Value, sc)

	case *ast.FileCloseStatement:
		a.usesIO = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)

	case *ast.FileDeleteStatement:
		a.usesIO = true
		a.analyzeExpr(s.Path, sc)

	case *ast.OnErrorStatement:
		a.analyzeBlock(s.Actions, sc)

	case *ast.BufferResizeStatement:
		a.usesHeap = true
		a.checkIdentifierUse(s.Name, s.Pos(), sc)
		a.analyzeExpr(s.NewSize, sc)

	case *ast.LibraryDeclStatement, *ast.SeeStatement:
		// resolved by internal/includes, not the analyzer

	case *ast.TimerDeclStatement:
		sc.declare(s.Name)

	case *ast.TimerStartStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)

	case *ast.TimerStopStatement:
		a.checkIdentifierUse(s.Name, s.Pos(), sc)

	case *ast.WaitStatement:
		a.analyzeExpr(s.Duration, sc)

	case *ast.GetTimeStatement:
		sc.declare(s.Target)

	case *ast.FlagSchemaDeclStatement:
		if s.Default != nil {
			a.analyzeExpr(s.Default, sc)
		}

	case *ast.ParseFlagsStatement:
		// handled entirely in Pass 1
	}
}

// analyzeIf walks one if/else-if/else chain, forking a scope snapshot per
// branch extended by that branch's guard key (when derivable), and merges
// the branches back per spec: the always-available part is the
// intersection of every continuing branch's unconditional declarations;
// the guarded part is the union of every continuing branch's guarded
// declarations. A branch that always terminates (returns or exits on
// every path) contributes nothing to the merge.
func (a *Analyzer) analyzeIf(s *ast.IfStatement, sc *scope) {
	a.analyzeExpr(s.Condition, sc)
	for _, ei := range s.ElseIfs {
		a.analyzeExpr(ei.Condition, sc)
	}

	type branch struct {
		cond ast.Expression
		body []ast.Statement
	}
	branches := []branch{{s.Condition, s.Then}}
	for _, ei := range s.ElseIfs {
		branches = append(branches, branch{ei.Condition, ei.Body})
	}

	var continuingAlways []map[string]bool

	for _, b := range branches {
		// The guard is pushed only so the branch can see variables a
		// PRIOR if with the same guard key left in guardedScopes; the
		// branch's own declarations still land in branchScope.variables
		// (declare never consults activeGuards), so this if's own
		// always/guarded merge below can tell them apart from there.
		branchScope := sc.snapshot()
		if key, ok := guardKey(b.cond); ok {
			branchScope.pushGuard(key)
		}
		before := snapshotVars(branchScope.variables)
		a.analyzeBlock(b.body, branchScope)

		if alwaysTerminates(b.body) {
			continue
		}
		added := newlyAdded(before, branchScope.variables)
		sc.mergeGuarded(branchScope.guardedScopes)
		if key, ok := guardKey(b.cond); ok {
			sc.mergeGuardedAdditions(key, added)
		}
		continuingAlways = append(continuingAlways, added)
	}

	if s.Else != nil {
		branchScope := sc.snapshot()
		before := snapshotVars(branchScope.variables)
		a.analyzeBlock(s.Else, branchScope)

		if !alwaysTerminates(s.Else) {
			sc.mergeGuarded(branchScope.guardedScopes)
			continuingAlways = append(continuingAlways, newlyAdded(before, branchScope.variables))
		}
	} else {
		// No else: the unchanged incoming scope is itself a continuing
		// path, contributing no new unconditional declarations.
		continuingAlways = append(continuingAlways, map[string]bool{})
	}

	for name := range intersectVarSets(continuingAlways) {
		sc.variables[name] = true
	}
}

// ---------------------------------------------------------------------
// Identifier / call resolution
// ---------------------------------------------------------------------

// resolveIdentifier reports whether name is available at pos: present in
// the scope model, or a flag-schema name used at or after the "parse
// flags." marker (an earlier use is still "available" for the purpose of
// not cascading further errors, but is reported as a flag-before-parse
// mistake).
func (a *Analyzer) resolveIdentifier(name string, pos token.Position, sc *scope) bool {
	if sc.available(name) {
		return true
	}
	if _, isFlag := a.flags[name]; isFlag {
		if a.parseFlagsPos == nil || posBefore(pos, *a.parseFlagsPos) {
			a.errs = append(a.errs, a.errorAt(pos, ErrFlagBeforeParse,
				"flag \""+name+"\" used before \"parse flags.\""))
		}
		return true
	}
	return false
}

// checkIdentifierUse resolves a bare name reference, deferring a
// Levenshtein-close keyword typo to Pass 3 instead of reporting it here.
func (a *Analyzer) checkIdentifierUse(name string, pos token.Position, sc *scope) {
	if a.resolveIdentifier(name, pos, sc) {
		return
	}
	if len(name) > 2 && name[0] != '_' {
		if diag.FindSimilarKeyword(name, token.CanonicalKeywords) != "" {
			a.typos = append(a.typos, typoCandidate{word: name, pos: pos})
			return
		}
	}
	a.errs = append(a.errs, a.errorAt(pos, ErrUnknownVariable, "Unknown variable: "+name))
}

func (a *Analyzer) checkFunctionCall(name string, pos token.Position) {
	if _, ok := a.functions[name]; ok {
		return
	}
	e := a.errorAt(pos, ErrUnknownFunction, "Unknown function: "+name)
	if s := diag.FindSimilarKeyword(name, token.CanonicalKeywords); s != "" {
		e = e.WithSuggestion("did you mean \"" + s + "\"?")
	}
	a.errs = append(a.errs, e)
}

// ---------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------

func (a *Analyzer) analyzeExpr(expr ast.Expression, sc *scope) {
	switch e := expr.(type) {
	case *ast.IntegerLiteral, *ast.FloatLiteral, *ast.BooleanLiteral:
		// literal, nothing to resolve

	case *ast.StringLiteral:
		a.usesStrings = true

	case *ast.Identifier:
		a.checkIdentifierUse(e.Name, e.Pos(), sc)

	case *ast.BinaryExpression:
		a.analyzeExpr(e.Left, sc)
		a.analyzeExpr(e.Right, sc)

	case *ast.UnaryExpression:
		a.analyzeExpr(e.Operand, sc)

	case *ast.RangeExpression:
		a.analyzeExpr(e.Start, sc)
		a.analyzeExpr(e.End, sc)

	case *ast.PropertyCheckExpression:
		a.analyzeExpr(e.Value, sc)

	case *ast.CallExpression:
		a.usesFuncs = true
		a.checkFunctionCall(e.Name, e.Pos())
		for _, arg := range e.Arguments {
			a.analyzeExpr(arg, sc)
		}

	case *ast.ListLiteral:
		a.usesHeap = true
		for _, el := range e.Elements {
			a.analyzeExpr(el, sc)
		}

	case *ast.ListAccessExpression:
		a.analyzeExpr(e.List, sc)
		a.analyzeExpr(e.Index, sc)

	case *ast.ElementAccessExpression:
		a.analyzeExpr(e.List, sc)
		a.analyzeExpr(e.Index, sc)

	case *ast.ByteAccessExpression:
		a.analyzeExpr(e.Buffer, sc)
		a.analyzeExpr(e.Index, sc)

	case *ast.PropertyAccessExpression:
		a.analyzeExpr(e.Object, sc)

	case *ast.FormatStringExpression:
		a.usesStrings = true
		for _, part := range e.Parts {
			switch part.Kind {
			case ast.FormatExpression:
				a.analyzeExpr(part.Expr, sc)
			case ast.FormatVariable:
				a.checkIdentifierUse(part.Text, e.Pos(), sc)
			}
		}

	case *ast.CastExpression:
		a.analyzeExpr(e.Value, sc)

	case *ast.DurationCastExpression:
		a.analyzeExpr(e.Value, sc)

	case *ast.TreatingAsExpression:
		a.analyzeExpr(e.Value, sc)
		a.analyzeExpr(e.Match, sc)
		a.analyzeExpr(e.Replacement, sc)

	case *ast.ArgumentReferenceExpression:
		a.usesArgs = true
		if e.Index != nil {
			a.analyzeExpr(e.Index, sc)
		}
		if e.Value != nil {
			a.analyzeExpr(e.Value, sc)
		}

	case *ast.EnvironmentReferenceExpression:
		if e.Name != nil {
			a.analyzeExpr(e.Name, sc)
		}

	case *ast.CurrentTimeExpression, *ast.LastErrorExpression:
		// nothing to resolve
	}
}

// ---------------------------------------------------------------------
// Pass 3 — deferred typo diagnostics
// ---------------------------------------------------------------------

func (a *Analyzer) pass3() {
	var typoErrs []*diag.Error
	for _, c := range a.typos {
		suggestion := diag.FindSimilarKeyword(c.word, token.CanonicalKeywords)
		if suggestion == "" {
			continue
		}
		typoErrs = append(typoErrs, a.errorAt(c.pos, ErrUnknownIdentifier,
			"Unknown identifier '"+c.word+"' - did you mean '"+suggestion+"'?"))
	}
	a.errs = append(typoErrs, a.errs...)
}
