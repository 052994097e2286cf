package semantic

import "github.com/ec-lang/ec/internal/ast"

// guardKey derives the syntactic normalization of an if-condition used to
// key guarded_scopes, per spec: bare identifiers/strings, "not (x)", and
// "(x) and (y)" / "(x) or (y)" compositions of those. Any other shape
// (comparisons, property checks, calls, ...) has no stable textual guard
// and returns ok=false — such conditions still gate their branch's
// declarations, just not ones the scope model can later recognize as
// shared with another if of the same shape.
func guardKey(expr ast.Expression) (string, bool) {
	switch e := expr.(type) {
	case *ast.Identifier:
		return e.Name, true
	case *ast.StringLiteral:
		return `"` + e.Value + `"`, true
	case *ast.UnaryExpression:
		if e.Operator != ast.OpNot {
			return "", false
		}
		inner, ok := guardKey(e.Operand)
		if !ok {
			return "", false
		}
		return "not (" + inner + ")", true
	case *ast.BinaryExpression:
		if e.Operator != ast.OpAnd && e.Operator != ast.OpOr {
			return "", false
		}
		left, ok := guardKey(e.Left)
		if !ok {
			return "", false
		}
		right, ok := guardKey(e.Right)
		if !ok {
			return "", false
		}
		joiner := " and "
		if e.Operator == ast.OpOr {
			joiner = " or "
		}
		return "(" + left + ")" + joiner + "(" + right + ")", true
	default:
		return "", false
	}
}

// alwaysTerminates reports whether every path through stmts ends in a
// return or exit, by a purely syntactic walk: a block terminates if its
// last statement does, and an if-statement terminates only when it has an
// else and every branch (then, every else-if, else) terminates.
func alwaysTerminates(stmts []ast.Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	return stmtTerminates(stmts[len(stmts)-1])
}

func stmtTerminates(s ast.Statement) bool {
	switch n := s.(type) {
	case *ast.ReturnStatement:
		return true
	case *ast.ExitStatement:
		return true
	case *ast.IfStatement:
		if n.Else == nil {
			return false
		}
		if !alwaysTerminates(n.Then) {
			return false
		}
		for _, ei := range n.ElseIfs {
			if !alwaysTerminates(ei.Body) {
				return false
			}
		}
		return alwaysTerminates(n.Else)
	default:
		return false
	}
}
