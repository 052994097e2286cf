package parser

import (
	"strconv"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
	"github.com/ec-lang/ec/internal/diag"
	"github.com/ec-lang/ec/internal/token"
)

// Precedence levels for the Pratt-style ladder: or < and < comparison <
// casting (as) < additive < multiplicative < bitwise < primary.
const (
	precLowest precedence = iota
	precOr
	precAnd
	precComparison
	precCast
	precAdditive
	precMultiplicative
	precBitwise
	precPrimary
)

type precedence int

// sb builds an ast.StmtBase at pos — a local shorthand used throughout
// parser.go's statement constructors.
func sb(pos token.Position) ast.StmtBase { return ast.NewStmtBase(pos) }

// parseExpression parses an expression whose operators bind at least as
// tightly as minPrec, following the precedence ladder above.
func (p *Parser) parseExpression(minPrec precedence) (ast.Expression, *diag.Error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}

	for {
		op, prec, ok := p.peekBinaryOperator()
		if !ok || prec < minPrec {
			break
		}
		if p.at(token.IS) || p.at(token.ARE) {
			p.consumeIsOperatorTail()
		} else {
			p.advance()
			// consume connective filler words ("than", "to") that some
			// comparison/cast spellings require after the operator keyword.
			p.skipComparisonFiller()
		}
		right, err := p.parseExpression(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpression{ExprBase: ast.NewExprBase(left.Pos()), Left: left, Operator: op, Right: right}
	}

	return p.maybeMultiSubjectPredicate(left, minPrec)
}

// maybeMultiSubjectPredicate expands `x, y, and z are true` into an
// And-chain of equalities, entered only when `are` is visible within a
// bounded lookahead window, per spec.md §4.2.
func (p *Parser) maybeMultiSubjectPredicate(first ast.Expression, minPrec precedence) (ast.Expression, *diag.Error) {
	if minPrec > precOr || !p.at(token.COMMA) {
		return first, nil
	}
	window := 6
	foundAre := false
	for i := 0; i < window; i++ {
		t := p.peekAt(i).Type
		if t == token.ARE {
			foundAre = true
			break
		}
		if t == token.PERIOD || t == token.EOF {
			break
		}
	}
	if !foundAre {
		return first, nil
	}
	subjects := []ast.Expression{first}
	for p.at(token.COMMA) {
		p.advance()
		if p.at(token.AND) {
			p.advance()
		}
		if p.at(token.ARE) {
			break
		}
		next, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		subjects = append(subjects, next)
	}
	if !p.at(token.ARE) {
		return first, nil
	}
	p.advance()
	value, err := p.parseExpression(precComparison)
	if err != nil {
		return nil, err
	}
	var chain ast.Expression
	for _, s := range subjects {
		eq := &ast.BinaryExpression{ExprBase: ast.NewExprBase(s.Pos()), Left: s, Operator: ast.OpEqual, Right: value}
		if chain == nil {
			chain = eq
		} else {
			chain = &ast.BinaryExpression{ExprBase: ast.NewExprBase(chain.Pos()), Left: chain, Operator: ast.OpAnd, Right: eq}
		}
	}
	return chain, nil
}

func (p *Parser) skipComparisonFiller() {
	for p.at(token.THAN) {
		p.advance()
	}
}

// peekBinaryOperator maps the current token to a binary operator and its
// precedence, without consuming it.
func (p *Parser) peekBinaryOperator() (ast.BinaryOperator, precedence, bool) {
	switch p.cur().Type {
	case token.OR:
		return ast.OpOr, precOr, true
	case token.AND:
		return ast.OpAnd, precAnd, true
	case token.IS, token.ARE:
		return p.peekComparisonAfterIs()
	case token.GREATER:
		return ast.OpGreaterThan, precComparison, true
	case token.LESS:
		return ast.OpLessThan, precComparison, true
	case token.ADD:
		return ast.OpAdd, precAdditive, true
	case token.SUBTRACT, token.MINUS:
		return ast.OpSubtract, precAdditive, true
	case token.MULTIPLY, token.TIMES:
		return ast.OpMultiply, precMultiplicative, true
	case token.DIVIDE:
		return ast.OpDivide, precMultiplicative, true
	case token.MODULO:
		return ast.OpModulo, precMultiplicative, true
	case token.BIT_AND:
		return ast.OpBitAnd, precBitwise, true
	case token.BIT_OR:
		return ast.OpBitOr, precBitwise, true
	case token.BIT_XOR:
		return ast.OpBitXor, precBitwise, true
	case token.BIT_SHIFT_LEFT:
		return ast.OpShiftLeft, precBitwise, true
	case token.BIT_SHIFT_RIGHT:
		return ast.OpShiftRight, precBitwise, true
	}
	return 0, 0, false
}

// peekComparisonAfterIs disambiguates `is`/`are` into equal/not-equal/
// greater/less(-or-equal); property checks (is even, is empty, ...) are
// handled in parseUnary's postfix step instead, since they don't take a
// right-hand operand here.
func (p *Parser) peekComparisonAfterIs() (ast.BinaryOperator, precedence, bool) {
	next := p.peekAt(1)
	if next.Type == token.NOT {
		after := p.peekAt(2)
		if after.Type == token.GREATER {
			return ast.OpLessOrEqual, precComparison, true
		}
		if after.Type == token.LESS {
			return ast.OpGreaterOrEqual, precComparison, true
		}
		return ast.OpNotEqual, precComparison, true
	}
	if next.Type == token.GREATER {
		if p.peekAt(2).Type == token.OR {
			return ast.OpGreaterOrEqual, precComparison, true
		}
		return ast.OpGreaterThan, precComparison, true
	}
	if next.Type == token.LESS {
		if p.peekAt(2).Type == token.OR {
			return ast.OpLessOrEqual, precComparison, true
		}
		return ast.OpLessThan, precComparison, true
	}
	if next.Type == token.EQUAL || next.Type == token.EQUALS {
		return ast.OpEqual, precComparison, true
	}
	// property checks (is even/odd/zero/positive/negative/empty) are not
	// binary operators; leave them to the primary/postfix parser.
	if isPropertyCheckWord(next.Type) {
		return 0, 0, false
	}
	return ast.OpEqual, precComparison, true
}

func isPropertyCheckWord(tt token.Type) bool {
	switch tt {
	case token.EVEN, token.ODD, token.ZERO, token.POSITIVE, token.NEGATIVE, token.EMPTY:
		return true
	}
	return false
}

// consumeIsOperatorTail advances past the extra words an `is`/`are`
// comparison spelling needs beyond the operator token itself (e.g. "is
// greater than" consumes GREATER then THAN; "is not equal to" consumes
// NOT, EQUAL, TO; "is greater than or equal to" consumes the trailing "or
// equal to").
func (p *Parser) consumeIsOperatorTail() {
	p.advance() // IS / ARE
	if p.at(token.NOT) {
		p.advance()
		if p.at(token.GREATER) || p.at(token.LESS) {
			p.advance()
			if p.at(token.THAN) {
				p.advance()
			}
			return
		}
		if p.at(token.EQUAL) || p.at(token.EQUALS) {
			p.advance()
		}
		if p.at(token.TO) {
			p.advance()
		}
		return
	}
	if p.at(token.GREATER) || p.at(token.LESS) {
		p.advance() // GREATER/LESS
		if p.at(token.THAN) {
			p.advance()
		}
		if p.at(token.OR) {
			p.advance()
			if p.at(token.EQUAL) || p.at(token.EQUALS) {
				p.advance()
			}
			if p.at(token.TO) {
				p.advance()
			}
		}
		return
	}
	if p.at(token.EQUAL) || p.at(token.EQUALS) {
		p.advance()
		if p.at(token.TO) {
			p.advance()
		}
	}
}

// parseUnary handles negate/not/bit-not prefixes, then delegates to the
// casting level, then applies postfix property-check/possessive-access.
func (p *Parser) parseUnary() (ast.Expression, *diag.Error) {
	pos := p.cur().Pos
	switch p.cur().Type {
	case token.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{ExprBase: ast.NewExprBase(pos), Operator: ast.OpNegate, Operand: operand}, nil
	case token.NOT:
		p.advance()
		operand, err := p.parseExpression(precComparison)
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{ExprBase: ast.NewExprBase(pos), Operator: ast.OpNot, Operand: operand}, nil
	case token.BIT_NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpression{ExprBase: ast.NewExprBase(pos), Operator: ast.OpBitNot, Operand: operand}, nil
	}
	return p.parseCast()
}

// parseCast handles the postfix "as <type>" cast level.
func (p *Parser) parseCast() (ast.Expression, *diag.Error) {
	value, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	for p.at(token.AS) {
		p.advance()
		typ, ok := p.tryParseTypeName()
		if !ok {
			return nil, p.errorf("expected a type name after \"as\"")
		}
		value = &ast.CastExpression{ExprBase: ast.NewExprBase(value.Pos()), Value: value, TargetType: typ}
	}
	return value, nil
}

func (p *Parser) tryParseTypeName() (ast.Type, bool) {
	switch p.cur().Type {
	case token.NUMBER, token.INT:
		p.advance()
		return ast.IntegerType, true
	case token.FLOAT:
		p.advance()
		return ast.FloatType, true
	case token.TEXT:
		p.advance()
		return ast.StringType, true
	case token.BOOLEAN:
		p.advance()
		return ast.BooleanType, true
	}
	return ast.Unknown, false
}

// parsePostfix applies, in order: `is`-family property checks and
// comparisons consumed via their own tail-word forms, and possessive
// property access (`'s`).
func (p *Parser) parsePostfix() (ast.Expression, *diag.Error) {
	value, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.at(token.IS) || p.at(token.ARE):
			next := p.peekAt(1)
			if isPropertyCheckWord(next.Type) {
				p.advance() // IS/ARE
				kind := propertyCheckKindFor(p.advance().Type)
				value = &ast.PropertyCheckExpression{ExprBase: ast.NewExprBase(value.Pos()), Value: value, Kind: kind}
				continue
			}
			return value, nil
		case p.at(token.APOSTROPHE):
			p.advance()
			v, err := p.parsePropertyAccess(value)
			if err != nil {
				return nil, err
			}
			value = v
			continue
		}
		break
	}
	return value, nil
}

func propertyCheckKindFor(tt token.Type) ast.PropertyCheckKind {
	switch tt {
	case token.EVEN:
		return ast.CheckEven
	case token.ODD:
		return ast.CheckOdd
	case token.ZERO:
		return ast.CheckZero
	case token.POSITIVE:
		return ast.CheckPositive
	case token.NEGATIVE:
		return ast.CheckNegative
	case token.EMPTY:
		return ast.CheckEmpty
	default:
		return ast.CheckZero
	}
}

// parsePropertyAccess parses the tail of `object's <property>`, after the
// leading Apostrophe has been consumed. It special-cases arguments/
// environment objects (which route to their own reference families) and
// the two-token "start time"/"end time" properties, and wraps
// duration/elapsed properties followed by "in <unit>" in a
// DurationCastExpression.
func (p *Parser) parsePropertyAccess(object ast.Expression) (ast.Expression, *diag.Error) {
	if id, ok := object.(*ast.Identifier); ok {
		switch id.Name {
		case "arguments", "argument":
			return p.parseArgumentReference(object.Pos())
		case "environment":
			return p.parseEnvironmentReference(object.Pos())
		}
	}
	if p.at(token.IDENTIFIER) && p.cur().Literal == "s" {
		p.advance()
	}

	prop, ok := p.tryParsePropertyName()
	if !ok {
		return nil, p.errorf("expected a property name after possessive")
	}
	access := &ast.PropertyAccessExpression{ExprBase: ast.NewExprBase(object.Pos()), Object: object, Property: prop}

	if (prop == ast.PropElapsed || prop == ast.PropDuration) && p.at(token.IN) {
		p.advance()
		unit, ok := p.tryParseTimeUnit()
		if ok {
			return &ast.DurationCastExpression{ExprBase: ast.NewExprBase(object.Pos()), Value: access, Unit: unit}, nil
		}
	}
	return access, nil
}

func (p *Parser) tryParsePropertyName() (ast.Property, bool) {
	switch p.cur().Type {
	case token.SIZE:
		p.advance()
		return ast.PropSize, true
	case token.CAPACITY:
		p.advance()
		return ast.PropCapacity, true
	case token.DESCRIPTOR:
		p.advance()
		return ast.PropDescriptor, true
	case token.MODIFIED:
		p.advance()
		return ast.PropModified, true
	case token.ACCESSED:
		p.advance()
		return ast.PropAccessed, true
	case token.PERMISSIONS:
		p.advance()
		return ast.PropPermissions, true
	case token.READABLE:
		p.advance()
		return ast.PropReadable, true
	case token.WRITABLE:
		p.advance()
		return ast.PropWritable, true
	case token.FULL:
		p.advance()
		return ast.PropFull, true
	case token.FIRST:
		p.advance()
		return ast.PropFirst, true
	case token.LAST:
		p.advance()
		return ast.PropLast, true
	case token.ABSOLUTE:
		p.advance()
		return ast.PropAbsolute, true
	case token.SIGN:
		p.advance()
		return ast.PropSign, true
	case token.HOUR:
		p.advance()
		return ast.PropHour, true
	case token.MINUTE:
		p.advance()
		return ast.PropMinute, true
	case token.DAY:
		p.advance()
		return ast.PropDay, true
	case token.MONTH:
		p.advance()
		return ast.PropMonth, true
	case token.YEAR:
		p.advance()
		return ast.PropYear, true
	case token.SECOND:
		p.advance()
		return ast.PropSecond, true
	case token.ELAPSED:
		p.advance()
		return ast.PropElapsed, true
	case token.DURATION:
		p.advance()
		return ast.PropDuration, true
	case token.RUNNING:
		p.advance()
		return ast.PropRunning, true
	case token.CURRENT:
		p.advance()
		if p.at(token.UNIX) {
			p.advance()
			return ast.PropUnix, true
		}
		return ast.PropCurrent, true
	case token.UNIX:
		p.advance()
		return ast.PropUnix, true
	case token.COUNT:
		p.advance()
		return ast.PropLength, true
	case token.IDENTIFIER, token.EXIT:
		if p.peekAt(1).Type == token.TIME {
			switch strings.ToLower(p.cur().Literal) {
			case "start":
				p.advance()
				p.advance()
				return ast.PropStartTime, true
			case "end":
				p.advance()
				p.advance()
				return ast.PropEndTime, true
			}
		}
	case token.BEGIN:
		p.advance()
		if p.at(token.TIME) {
			p.advance()
		}
		return ast.PropStartTime, true
	case token.FINISH:
		p.advance()
		if p.at(token.TIME) {
			p.advance()
		}
		return ast.PropEndTime, true
	}
	return 0, false
}

func (p *Parser) tryParseTimeUnit() (ast.TimeUnit, bool) {
	switch p.cur().Type {
	case token.MILLISECOND, token.MILLISECONDS:
		p.advance()
		return ast.UnitMilliseconds, true
	case token.SECOND, token.SECONDS:
		p.advance()
		return ast.UnitSeconds, true
	case token.MINUTE:
		p.advance()
		return ast.UnitMinutes, true
	case token.HOUR:
		p.advance()
		return ast.UnitHours, true
	case token.DAY:
		p.advance()
		return ast.UnitDays, true
	}
	return 0, false
}

// parseArgumentReference parses the tail of `arguments's ...` / the
// SPEC_FULL.md-supplemented ArgumentRaw form ("arguments's raw").
func (p *Parser) parseArgumentReference(pos token.Position) (ast.Expression, *diag.Error) {
	switch p.cur().Type {
	case token.COUNT:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgCount}, nil
	case token.FIRST:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgFirst}, nil
	case token.LAST:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgLast}, nil
	case token.SECOND:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgSecond}, nil
	case token.EMPTY:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgEmpty}, nil
	case token.ALL:
		p.advance()
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgAll}, nil
	case token.IDENTIFIER:
		switch p.cur().Literal {
		case "raw":
			p.advance()
			return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgRaw}, nil
		case "name":
			p.advance()
			return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgName}, nil
		}
	case token.ON: // "at" lexes as ON per token.Lookup synonym table
		p.advance()
		idx, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgAt, Index: idx}, nil
	case token.EXISTS:
		p.advance()
		v, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		return &ast.ArgumentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.ArgExists, Value: v}, nil
	}
	return nil, p.errorf("unexpected argument property")
}

// parseEnvironmentReference parses the tail of `environment's ...`,
// including the SPEC_FULL.md-supplemented First/Last/Empty variants
// (original_source's EnvironmentVariableFirst/Last/Empty).
func (p *Parser) parseEnvironmentReference(pos token.Position) (ast.Expression, *diag.Error) {
	switch p.cur().Type {
	case token.FIRST:
		p.advance()
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvFirst}, nil
	case token.LAST:
		p.advance()
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvLast}, nil
	case token.EMPTY:
		p.advance()
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvEmpty}, nil
	case token.COUNT:
		p.advance()
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvCount}, nil
	case token.ALL:
		p.advance()
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvAll}, nil
	case token.EXISTS:
		p.advance()
		name, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvExists, Name: name}, nil
	default:
		name, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		return &ast.EnvironmentReferenceExpression{ExprBase: ast.NewExprBase(pos), Kind: ast.EnvGet, Name: name}, nil
	}
}

// parsePrimary parses literals, identifiers, list literals,
// buffer/element/byte access, calls and CurrentTime/LastError. It only
// returns values: parenthesized text never reaches it because the lexer
// strips it as a comment, and the `is`-prefixed comparison spellings are
// consumed by consumeIsOperatorTail on parseExpression's binary-operator
// path.
func (p *Parser) parsePrimary() (ast.Expression, *diag.Error) {
	tok := p.cur()
	switch tok.Type {
	case token.INTEGER_LITERAL:
		p.advance()
		return ast.NewIntegerLiteral(tok.Pos, tok.Int), nil
	case token.FLOAT_LITERAL:
		p.advance()
		return ast.NewFloatLiteral(tok.Pos, tok.Float), nil
	case token.STRING_LITERAL:
		p.advance()
		if strings.Contains(tok.Literal, "{") && !strings.Contains(tok.Literal, "{{") {
			return p.parseFormatString(tok)
		}
		return ast.NewStringLiteral(tok.Pos, tok.Literal), nil
	case token.TRUE:
		p.advance()
		return ast.NewBooleanLiteral(tok.Pos, true), nil
	case token.FALSE:
		p.advance()
		return ast.NewBooleanLiteral(tok.Pos, false), nil
	case token.OPEN_BRACKET:
		return p.parseListLiteral()
	case token.BYTE:
		return p.parseByteAccessExpr()
	case token.ELEMENT:
		return p.parseElementAccessExpr()
	case token.CALL:
		return p.parseCallExpr()
	case token.CURRENT:
		p.advance()
		unix := false
		if p.at(token.UNIX) {
			unix = true
			p.advance()
		}
		if p.at(token.TIME) {
			p.advance()
		}
		return &ast.CurrentTimeExpression{ExprBase: ast.NewExprBase(tok.Pos), Unix: unix}, nil
	case token.ERROR:
		p.advance()
		return &ast.LastErrorExpression{ExprBase: ast.NewExprBase(tok.Pos)}, nil
	case token.IDENTIFIER:
		p.advance()
		return ast.NewIdentifier(tok.Pos, tok.Literal), nil
	case token.THE, token.A, token.AN:
		p.advance()
		return p.parsePrimary()
	case token.ON: // "at" synonym
		p.advance()
		return p.parsePrimary()
	}
	return nil, p.errorf("unexpected token " + tok.Type.String() + " in expression")
}

func (p *Parser) parseListLiteral() (ast.Expression, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // [
	lit := &ast.ListLiteral{ExprBase: ast.NewExprBase(pos)}
	for !p.at(token.CLOSE_BRACKET) && !p.at(token.EOF) {
		elem, err := p.parseExpression(precOr)
		if err != nil {
			return nil, err
		}
		lit.Elements = append(lit.Elements, elem)
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	if p.at(token.CLOSE_BRACKET) {
		p.advance()
	}
	return lit, nil
}

func (p *Parser) parseByteAccessExpr() (ast.Expression, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // BYTE
	idx, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.ByteAccessExpression{
		ExprBase: ast.NewExprBase(pos), Index: idx,
		Buffer: ast.NewIdentifier(pos, name),
	}, nil
}

func (p *Parser) parseElementAccessExpr() (ast.Expression, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // ELEMENT
	idx, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.ElementAccessExpression{
		ExprBase: ast.NewExprBase(pos), Index: idx,
		List: ast.NewIdentifier(pos, name),
	}, nil
}

// parseFormatString sub-parses a string literal containing `{...}`
// placeholders into ordered FormatPart values, per spec.md §4.2. Each
// placeholder's content is split on the first ':' into name/expression and
// a verbatim format spec, preserved exactly (no stripping of leading
// zeros or whitespace).
func (p *Parser) parseFormatString(tok token.Token) (ast.Expression, *diag.Error) {
	lit := &ast.FormatStringExpression{ExprBase: ast.NewExprBase(tok.Pos)}
	src := tok.Literal
	i := 0
	for i < len(src) {
		open := strings.IndexByte(src[i:], '{')
		if open < 0 {
			lit.Parts = append(lit.Parts, ast.FormatPart{Kind: ast.FormatLiteral, Text: src[i:]})
			break
		}
		open += i
		if open+1 < len(src) && src[open+1] == '{' {
			lit.Parts = append(lit.Parts, ast.FormatPart{Kind: ast.FormatLiteral, Text: src[i:open] + "{"})
			i = open + 2
			continue
		}
		if open > i {
			lit.Parts = append(lit.Parts, ast.FormatPart{Kind: ast.FormatLiteral, Text: src[i:open]})
		}
		closeIdx := strings.IndexByte(src[open:], '}')
		if closeIdx < 0 {
			lit.Parts = append(lit.Parts, ast.FormatPart{Kind: ast.FormatLiteral, Text: src[open:]})
			break
		}
		closeIdx += open
		inner := src[open+1 : closeIdx]
		name, spec, hasSpec := splitFormatSpec(inner)
		part := ast.FormatPart{Text: name, Spec: spec, HasSpec: hasSpec}
		if isIdentLike(name) {
			part.Kind = ast.FormatVariable
		} else {
			part.Kind = ast.FormatExpression
			if expr, ok := p.reparseSubExpression(name, tok.Pos); ok {
				part.Expr = expr
			} else {
				part.Kind = ast.FormatVariable
			}
		}
		lit.Parts = append(lit.Parts, part)
		i = closeIdx + 1
	}
	return lit, nil
}

// splitFormatSpec splits a placeholder's inner content on the first ':'.
func splitFormatSpec(inner string) (name, spec string, hasSpec bool) {
	idx := strings.IndexByte(inner, ':')
	if idx < 0 {
		return inner, "", false
	}
	return inner[:idx], inner[idx+1:], true
}

func isIdentLike(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}
		if i > 0 && r >= '0' && r <= '9' {
			continue
		}
		return false
	}
	return true
}

// reparseSubExpression re-tokenizes and re-parses a placeholder's raw
// content as a standalone expression, for names that contain spaces or
// non-identifier characters (e.g. "x add 1"). This is used only by the
// format-string sub-parser, which is why it constructs a throwaway
// sub-parser rather than threading the caller's shared lexer state.
func (p *Parser) reparseSubExpression(raw string, pos token.Position) (ast.Expression, bool) {
	sub := subLex(raw)
	if len(sub) == 0 {
		return nil, false
	}
	subParser := &Parser{tokens: append(sub, token.Token{Type: token.EOF}), file: p.file, source: p.source}
	expr, err := subParser.parseExpression(precOr)
	if err != nil || !subParser.at(token.EOF) {
		return nil, false
	}
	relocate(expr, pos)
	return expr, true
}

// relocate rewrites the position of a re-parsed sub-expression's root
// node to pos, so diagnostics point at the enclosing format string rather
// than an internal sub-scan offset of zero.
func relocate(expr ast.Expression, pos token.Position) {
	switch e := expr.(type) {
	case *ast.BinaryExpression:
		e.Position = pos
	case *ast.UnaryExpression:
		e.Position = pos
	case *ast.Identifier:
		e.Position = pos
	case *ast.IntegerLiteral:
		e.Position = pos
	case *ast.FloatLiteral:
		e.Position = pos
	}
}

// subLex is a minimal word/number/operator tokenizer for re-parsing
// format-placeholder content; it reuses token.Lookup for keyword
// resolution so operator spellings stay consistent with the main
// tokenizer.
func subLex(raw string) []token.Token {
	var toks []token.Token
	i := 0
	for i < len(raw) {
		c := raw[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c >= '0' && c <= '9':
			j := i
			for j < len(raw) && raw[j] >= '0' && raw[j] <= '9' {
				j++
			}
			n, _ := strconv.ParseInt(raw[i:j], 10, 64)
			toks = append(toks, token.Token{Type: token.INTEGER_LITERAL, Int: n, Literal: raw[i:j]})
			i = j
		case isIdentRune(c):
			j := i
			for j < len(raw) && isIdentRune(raw[j]) {
				j++
			}
			word := raw[i:j]
			if tt, ok := token.Lookup(word); ok {
				toks = append(toks, token.Token{Type: tt, Literal: word})
			} else {
				toks = append(toks, token.Token{Type: token.IDENTIFIER, Literal: word})
			}
			i = j
		default:
			i++
		}
	}
	return toks
}

func isIdentRune(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_' || c == '-'
}
