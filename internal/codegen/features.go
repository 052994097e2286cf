package codegen

import "github.com/ec-lang/ec/internal/ast"

// detectFeatures seeds the five coarse flags the analyzer already
// computed onto prog, then walks the tree once more for the finer ones
// only the generator cares about: float arithmetic selects the SSE2
// path, buffers/lists/files/timers each pull in a distinct runtime
// include.
func (g *Generator) detectFeatures(prog *ast.Program) {
	g.flags.io = prog.UsesIO
	g.flags.heap = prog.UsesHeap
	g.flags.strings = prog.UsesStrings
	g.flags.args = prog.UsesArgs
	g.flags.funcs = prog.UsesFuncs

	for _, s := range prog.Statements {
		g.scanStmtFeatures(s)
	}
}

func (g *Generator) scanStmtFeatures(s ast.Statement) {
	switch n := s.(type) {
	case *ast.VarDeclStatement:
		if n.Declared == ast.FloatType {
			g.flags.float = true
		}
		g.scanExprFeatures(n.Initializer)
	case *ast.AssignmentStatement:
		g.scanExprFeatures(n.Value)
	case *ast.PrintStatement:
		g.scanExprFeatures(n.Value)
	case *ast.IfStatement:
		g.scanExprFeatures(n.Condition)
		g.scanStmtsFeatures(n.Then)
		for _, ei := range n.ElseIfs {
			g.scanExprFeatures(ei.Condition)
			g.scanStmtsFeatures(ei.Body)
		}
		g.scanStmtsFeatures(n.Else)
	case *ast.WhileStatement:
		g.scanExprFeatures(n.Condition)
		g.scanStmtsFeatures(n.Body)
	case *ast.ForRangeStatement:
		if n.Range != nil {
			g.scanExprFeatures(n.Range.Start)
			g.scanExprFeatures(n.Range.End)
		}
		g.scanStmtsFeatures(n.Body)
	case *ast.ForEachStatement:
		g.scanExprFeatures(n.Collection)
		g.scanStmtsFeatures(n.Body)
	case *ast.RepeatStatement:
		g.scanExprFeatures(n.Count)
		g.scanStmtsFeatures(n.Body)
	case *ast.ReturnStatement:
		g.scanExprFeatures(n.Value)
	case *ast.ExitStatement:
		g.scanExprFeatures(n.Code)
	case *ast.FunctionDefStatement:
		for _, p := range n.Parameters {
			if p.Type == ast.FloatType {
				g.flags.float = true
			}
		}
		g.scanStmtsFeatures(n.Body)
	case *ast.CallStatement:
		g.scanExprFeatures(n.Call)
	case *ast.AllocateStatement:
		g.flags.heap = true
		g.scanExprFeatures(n.Size)
	case *ast.BufferDeclStatement:
		g.flags.buffers = true
		g.scanExprFeatures(n.Size)
		g.scanExprFeatures(n.Initializer)
	case *ast.BufferResizeStatement:
		g.flags.buffers = true
		g.scanExprFeatures(n.NewSize)
	case *ast.ByteSetStatement:
		g.flags.buffers = true
		g.scanExprFeatures(n.Index)
		g.scanExprFeatures(n.Value)
	case *ast.ElementSetStatement:
		g.flags.lists = true
		g.scanExprFeatures(n.Index)
		g.scanExprFeatures(n.Value)
	case *ast.ListAppendStatement:
		g.flags.lists = true
		g.scanExprFeatures(n.Value)
	case *ast.FileOpenStatement:
		g.flags.files = true
		g.scanExprFeatures(n.Path)
	case *ast.FileReadStatement, *ast.FileReadLineStatement,
		*ast.FileSeekLineStatement, *ast.FileSeekByteStatement,
		*ast.FileWriteStatement, *ast.FileWriteNewlineStatement,
		*ast.FileCloseStatement, *ast.FileDeleteStatement:
		g.flags.files = true
	case *ast.TimerDeclStatement, *ast.TimerStartStatement, *ast.TimerStopStatement,
		*ast.GetTimeStatement, *ast.WaitStatement:
		g.flags.timers = true
	case *ast.OnErrorStatement:
		g.scanStmtsFeatures(n.Actions)
	}
}

func (g *Generator) scanStmtsFeatures(stmts []ast.Statement) {
	for _, s := range stmts {
		g.scanStmtFeatures(s)
	}
}

func (g *Generator) scanExprFeatures(e ast.Expression) {
	if e == nil {
		return
	}
	switch n := e.(type) {
	case *ast.FloatLiteral:
		g.flags.float = true
	case *ast.StringLiteral:
		g.flags.strings = true
	case *ast.FormatStringExpression:
		g.flags.strings = true
		for _, p := range n.Parts {
			if p.Kind == ast.FormatExpression {
				g.scanExprFeatures(p.Expr)
			}
		}
	case *ast.BinaryExpression:
		if n.GetType() == ast.FloatType {
			g.flags.float = true
		}
		g.scanExprFeatures(n.Left)
		g.scanExprFeatures(n.Right)
	case *ast.UnaryExpression:
		g.scanExprFeatures(n.Operand)
	case *ast.PropertyCheckExpression:
		g.scanExprFeatures(n.Value)
	case *ast.CallExpression:
		g.flags.funcs = true
		for _, a := range n.Arguments {
			g.scanExprFeatures(a)
		}
	case *ast.ListLiteral:
		g.flags.heap = true
		g.flags.lists = true
		for _, el := range n.Elements {
			g.scanExprFeatures(el)
		}
	case *ast.ListAccessExpression:
		g.flags.lists = true
		g.scanExprFeatures(n.List)
		g.scanExprFeatures(n.Index)
	case *ast.ElementAccessExpression:
		g.flags.lists = true
		g.scanExprFeatures(n.List)
		g.scanExprFeatures(n.Index)
	case *ast.ByteAccessExpression:
		g.flags.buffers = true
		g.scanExprFeatures(n.Buffer)
		g.scanExprFeatures(n.Index)
	case *ast.PropertyAccessExpression:
		g.scanExprFeatures(n.Object)
	case *ast.CastExpression:
		if n.TargetType == ast.FloatType {
			g.flags.float = true
		}
		g.scanExprFeatures(n.Value)
	case *ast.DurationCastExpression:
		g.flags.timers = true
		g.scanExprFeatures(n.Value)
	case *ast.TreatingAsExpression:
		g.scanExprFeatures(n.Value)
		g.scanExprFeatures(n.Match)
		g.scanExprFeatures(n.Replacement)
	case *ast.ArgumentReferenceExpression:
		g.flags.args = true
		g.scanExprFeatures(n.Index)
		g.scanExprFeatures(n.Value)
	case *ast.EnvironmentReferenceExpression:
		g.flags.args = true
		g.scanExprFeatures(n.Name)
	case *ast.CurrentTimeExpression:
		g.flags.timers = true
	}
}

// collectFunctions records every top-level function definition by name
// and, in shared-library mode, adds each one to the exported list.
func (g *Generator) collectFunctions(prog *ast.Program) {
	for _, s := range prog.Statements {
		if fn, ok := s.(*ast.FunctionDefStatement); ok {
			g.funcTable[fn.Name] = fn
			if g.opts.Shared {
				g.exported = append(g.exported, fn.Name)
			}
		}
	}
}
