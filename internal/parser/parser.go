// Package parser implements the recursive-descent, sentence-oriented
// parser that turns a internal/lexer token stream into an internal/ast
// Program.
//
// Statements are terminated by a period (function definitions instead
// consume their own trailing paragraph break); clauses within a statement
// are comma-separated. Expression parsing is a Pratt-style precedence
// ladder: or < and < comparison < casting (as) < additive < multiplicative
// < bitwise < primary.
package parser

import (
	"github.com/ec-lang/ec/internal/ast"
	"github.com/ec-lang/ec/internal/diag"
	"github.com/ec-lang/ec/internal/token"
)

// Parser holds the token cursor and accumulated warnings for one parse.
type Parser struct {
	tokens   []token.Token
	pos      int
	file     string
	source   []string // source lines, for diagnostic rendering
	warnings []diag.Warning
}

// New constructs a Parser over a complete token stream (as produced by
// lexer.Tokenize). file and sourceLines are used only for diagnostic
// rendering (file name and the offending line's verbatim text).
func New(tokens []token.Token, file string, sourceLines []string) *Parser {
	return &Parser{tokens: tokens, file: file, source: sourceLines}
}

// Warnings returns the non-fatal diagnostics collected during parsing
// (e.g. a zero-capacity buffer declaration). Per SPEC_FULL.md §C.6 these
// are threaded through rather than written directly to stderr.
func (p *Parser) Warnings() []diag.Warning { return p.warnings }

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) at(tt token.Type) bool { return p.cur().Type == tt }

func (p *Parser) lineText(pos token.Position) string {
	if pos.Line-1 >= 0 && pos.Line-1 < len(p.source) {
		return p.source[pos.Line-1]
	}
	return ""
}

func (p *Parser) errorf(message string) *diag.Error {
	pos := p.cur().Pos
	e := diag.New(message, pos).WithFile(p.file).WithLine(p.lineText(pos))
	if p.cur().Type == token.IDENTIFIER {
		if s := diag.FindSimilarKeyword(p.cur().Literal, token.CanonicalKeywords); s != "" {
			e = e.WithSuggestion("did you mean \"" + s + "\"?")
		}
	}
	return e
}

// skipStructural advances past NEWLINE/PARAGRAPH_BREAK tokens.
func (p *Parser) skipStructural() {
	for p.at(token.NEWLINE) || p.at(token.PARAGRAPH_BREAK) {
		p.advance()
	}
}

// skipFiller advances past optional articles/filler glue words.
func (p *Parser) skipFiller() {
	for {
		switch p.cur().Type {
		case token.THE, token.A, token.AN, token.OF, token.WITH, token.ON, token.TO:
			p.advance()
		default:
			return
		}
	}
}

// expect consumes tt or returns a structured error.
func (p *Parser) expect(tt token.Type) (token.Token, *diag.Error) {
	if p.cur().Type != tt {
		return token.Token{}, p.errorf("expected " + tt.String() + ", found " + p.cur().Type.String())
	}
	return p.advance(), nil
}

// ParseProgram parses the entire token stream into a Program. It
// short-circuits on the first syntax error, per spec.md §7's propagation
// rule ("the parser short-circuits on first error").
func ParseProgram(p *Parser) (*ast.Program, *diag.Error) {
	prog := &ast.Program{}
	p.skipStructural()
	for !p.at(token.EOF) {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		prog.Statements = append(prog.Statements, stmt)
		p.skipStructural()
	}
	return prog, nil
}

func (p *Parser) parseStatement() (ast.Statement, *diag.Error) {
	var stmt ast.Statement
	var err *diag.Error

	switch p.cur().Type {
	case token.PRINT:
		stmt, err = p.parsePrint()
	case token.CREATE, token.NUMBER, token.FLOAT, token.INT, token.TEXT, token.BOOLEAN, token.A, token.AN:
		stmt, err = p.parseVarDeclOrBufferOrTimer()
	case token.SET:
		stmt, err = p.parseSetStatement()
	case token.IF, token.WHEN:
		stmt, err = p.parseIf()
	case token.WHILE, token.UNTIL:
		stmt, err = p.parseWhile()
	case token.FOR:
		stmt, err = p.parseFor()
	case token.REPEAT:
		stmt, err = p.parseRepeat()
	case token.BREAK:
		p.advance()
		stmt = &ast.BreakStatement{}
	case token.STOP:
		if next := p.peekAt(1).Type; next == token.PERIOD || next == token.PARAGRAPH_BREAK || next == token.EOF {
			p.advance()
			stmt = &ast.BreakStatement{}
		} else {
			stmt, err = p.parseTimerStop()
		}
	case token.BEGIN:
		stmt, err = p.parseTimerStart()
	case token.CONTINUE:
		p.advance()
		stmt = &ast.ContinueStatement{}
	case token.RETURN:
		stmt, err = p.parseReturn()
	case token.EXIT:
		stmt, err = p.parseExit()
	case token.TO:
		stmt, err = p.parseFunctionDef()
	case token.WITH, token.IDENTIFIER:
		stmt, err = p.parseCallOrExprStatement()
	case token.STRING_LITERAL:
		// bare `"name" of a and b.` call statement
		if p.peekAt(1).Type == token.OF {
			stmt, err = p.parseCallStatement()
		} else {
			err = p.errorf("unexpected string literal in statement position")
		}
	case token.ALLOCATE:
		stmt, err = p.parseAllocate()
	case token.FREE:
		stmt, err = p.parseFree()
	case token.INCREMENT:
		stmt, err = p.parseIncDec(true)
	case token.DECREMENT:
		stmt, err = p.parseIncDec(false)
	case token.OPEN:
		stmt, err = p.parseFileOpen()
	case token.READ:
		stmt, err = p.parseFileRead()
	case token.SEEK:
		stmt, err = p.parseFileSeek()
	case token.WRITE:
		stmt, err = p.parseFileWrite()
	case token.CLOSE:
		stmt, err = p.parseFileClose()
	case token.DELETE:
		stmt, err = p.parseFileDelete()
	case token.ERROR, token.ON:
		stmt, err = p.parseOnError()
	case token.RESIZE:
		stmt, err = p.parseBufferResize()
	case token.APPEND:
		stmt, err = p.parseListAppend()
	case token.LIBRARY:
		stmt, err = p.parseLibraryDecl()
	case token.SEE:
		stmt, err = p.parseSee()
	case token.WAIT:
		stmt, err = p.parseWait()
	case token.GET:
		stmt, err = p.parseGetTime()
	case token.FLAG:
		stmt, err = p.parseFlagSchemaDecl()
	case token.PARSE:
		stmt, err = p.parseParseFlags()
	case token.CALL:
		stmt, err = p.parseCallStatement()
	default:
		err = p.errorf("unexpected token " + p.cur().Type.String() + " at start of statement")
	}
	if err != nil {
		return nil, err
	}

	// Function definitions consume their own trailing paragraph break
	// rather than a period.
	if _, isFn := stmt.(*ast.FunctionDefStatement); isFn {
		return stmt, nil
	}
	if p.at(token.PERIOD) {
		p.advance()
	}
	return stmt, nil
}

func (p *Parser) parseBlockUntilPeriodOrParagraph() ([]ast.Statement, *diag.Error) {
	var stmts []ast.Statement
	for !p.at(token.PERIOD) && !p.at(token.PARAGRAPH_BREAK) && !p.at(token.EOF) &&
		!p.at(token.BUT) && !p.at(token.OTHERWISE) && !p.at(token.ELSE) {
		if p.at(token.COMMA) {
			p.advance()
			continue
		}
		stmt, err := p.parseClauseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, stmt)
	}
	return stmts, nil
}

// skipPeriodBeforeContinuation consumes a period that separates an
// if-branch body from a following "but if"/"otherwise if"/"otherwise"/
// "else" continuation, so both "stmt, but if ..." (block loop stops
// directly at BUT/OTHERWISE/ELSE) and "stmt. But if ..." (a period
// written before the continuation) are accepted. A period NOT followed
// by a continuation keyword is left alone for the caller to consume as
// the statement terminator.
func (p *Parser) skipPeriodBeforeContinuation() {
	if !p.at(token.PERIOD) {
		return
	}
	switch p.peekAt(1).Type {
	case token.BUT, token.OTHERWISE, token.ELSE:
		p.advance()
	}
}

// parseClauseStatement parses one comma-delimited clause inside a block
// (loop body, if-branch body, on-error action list) — a restricted subset
// of parseStatement that stops before consuming a period itself.
func (p *Parser) parseClauseStatement() (ast.Statement, *diag.Error) {
	switch p.cur().Type {
	case token.PRINT:
		return p.parsePrint()
	case token.SET:
		return p.parseSetStatement()
	case token.INCREMENT:
		return p.parseIncDec(true)
	case token.DECREMENT:
		return p.parseIncDec(false)
	case token.CREATE, token.NUMBER, token.FLOAT, token.INT, token.TEXT, token.BOOLEAN, token.A, token.AN:
		return p.parseVarDeclOrBufferOrTimer()
	case token.RETURN:
		return p.parseReturn()
	case token.EXIT:
		return p.parseExit()
	case token.BREAK:
		p.advance()
		return &ast.BreakStatement{}, nil
	case token.STOP:
		if next := p.peekAt(1).Type; next == token.PERIOD || next == token.COMMA || next == token.PARAGRAPH_BREAK || next == token.EOF {
			p.advance()
			return &ast.BreakStatement{}, nil
		}
		return p.parseTimerStop()
	case token.BEGIN:
		return p.parseTimerStart()
	case token.CONTINUE:
		p.advance()
		return &ast.ContinueStatement{}, nil
	case token.CALL:
		return p.parseCallStatement()
	case token.APPEND:
		return p.parseListAppend()
	case token.STRING_LITERAL:
		if p.peekAt(1).Type == token.OF {
			return p.parseCallStatement()
		}
	}
	return nil, p.errorf("unexpected token " + p.cur().Type.String() + " in clause")
}

// ---------------------------------------------------------------------
// print / conditional print
// ---------------------------------------------------------------------

func (p *Parser) parsePrint() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // PRINT
	p.skipFiller()

	if loop, ok, err := p.tryParseLoopExpansion(func(loopVar *ast.Identifier) (ast.Statement, *diag.Error) {
		return &ast.PrintStatement{StmtBase: sb(pos), Value: loopVar}, nil
	}); ok {
		return loop, err
	}

	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	stmt := &ast.PrintStatement{StmtBase: sb(pos), Value: value}

	if p.at(token.COMMA) && p.peekAt(1).Type == token.BUT {
		return p.parseConditionalPrintTail(stmt)
	}
	if p.consumeWithoutNewline() {
		stmt.WithoutNewline = true
	}
	return stmt, nil
}

// consumeWithoutNewline recognizes an optional trailing "without a
// newline" (or comma-led ", without a newline") modifier.
func (p *Parser) consumeWithoutNewline() bool {
	save := p.pos
	if p.at(token.COMMA) {
		p.advance()
	}
	if !p.at(token.WITHOUT) {
		p.pos = save
		return false
	}
	p.advance()
	p.skipFiller()
	if p.at(token.IDENTIFIER) && p.cur().Literal == "newline" {
		p.advance()
		return true
	}
	p.pos = save
	return false
}

// parseConditionalPrintTail desugars `print X, but if C print Y [and if C2
// print Z] [otherwise print W]` into a right-associative If chain whose
// innermost else holds the default print, per spec.md §4.2.
func (p *Parser) parseConditionalPrintTail(def *ast.PrintStatement) (ast.Statement, *diag.Error) {
	p.advance() // comma
	p.advance() // but
	var clauses []ast.ElseIfClause
	for p.at(token.IF) {
		p.advance()
		cond, err := p.parseExpression(precOr)
		if err != nil {
			return nil, err
		}
		p.skipFiller()
		printStmt, err := p.parsePrint()
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, ast.ElseIfClause{Condition: cond, Body: []ast.Statement{printStmt}})
		if p.at(token.COMMA) && p.peekAt(1).Type == token.AND {
			p.advance()
			p.advance()
			continue
		}
		break
	}
	var elseBody []ast.Statement
	if p.at(token.COMMA) && p.peekAt(1).Type == token.OTHERWISE {
		p.advance()
		p.advance()
		printStmt, err := p.parsePrint()
		if err != nil {
			return nil, err
		}
		elseBody = []ast.Statement{printStmt}
	} else {
		elseBody = []ast.Statement{def}
	}

	if len(clauses) == 0 {
		return def, nil
	}
	first := clauses[0]
	ifStmt := &ast.IfStatement{
		StmtBase: sb(def.Pos()),
		Condition: first.Condition,
		Then:      first.Body,
		ElseIfs:   clauses[1:],
		Else:      elseBody,
	}
	return ifStmt, nil
}

// ---------------------------------------------------------------------
// variable / buffer / timer declarations
// ---------------------------------------------------------------------

func (p *Parser) parseVarDeclOrBufferOrTimer() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.skipFiller()

	declType := ast.Unknown
	switch p.cur().Type {
	case token.NUMBER:
		declType = ast.IntegerType
		p.advance()
	case token.FLOAT:
		declType = ast.FloatType
		p.advance()
	case token.INT:
		declType = ast.IntegerType
		p.advance()
	case token.TEXT:
		declType = ast.StringType
		p.advance()
	case token.BOOLEAN:
		declType = ast.BooleanType
		p.advance()
	case token.LIST:
		declType = ast.ListType
		p.advance()
	case token.BUFFER:
		return p.parseBufferDecl(pos)
	case token.TIMER:
		return p.parseTimerDecl(pos)
	case token.FILE:
		return p.parseFileOpen()
	case token.CREATE:
		p.advance()
		return p.parseVarDeclOrBufferOrTimer()
	}
	if p.at(token.BUFFER) {
		return p.parseBufferDecl(pos)
	}
	if p.at(token.TIMER) {
		return p.parseTimerDecl(pos)
	}

	if _, err := p.expect(token.CALLED); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDeclStatement{StmtBase: sb(pos), Name: nameTok.Literal, Declared: declType}
	if p.at(token.IS) {
		p.advance()
		p.skipFiller()
		value, err := p.parseExpression(precOr)
		if err != nil {
			return nil, err
		}
		decl.Initializer = value
	}
	return decl, nil
}

func (p *Parser) parseBufferDecl(pos token.Position) (ast.Statement, *diag.Error) {
	p.advance() // BUFFER
	if _, err := p.expect(token.CALLED); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	decl := &ast.BufferDeclStatement{StmtBase: sb(pos), Name: nameTok.Literal}
	if !p.at(token.IS) {
		p.warnings = append(p.warnings, diag.Warning{
			Message: "zero-capacity buffer \"" + nameTok.Literal + "\"",
			File:    p.file, Pos: pos, LineText: p.lineText(pos),
		})
		return decl, nil
	}
	p.advance() // IS
	if p.at(token.STRING_LITERAL) {
		strTok := p.advance()
		decl.Initializer = ast.NewStringLiteral(strTok.Pos, strTok.Literal)
		return decl, nil
	}
	size, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	if lit, ok := size.(*ast.IntegerLiteral); ok {
		const oneGiB = 1 << 30
		if lit.Value <= 0 || lit.Value > oneGiB {
			return nil, diag.New("buffer size must be a positive integer no greater than 1 GiB", pos).
				WithFile(p.file).WithLine(p.lineText(pos))
		}
	}
	decl.Size = size
	// optional trailing "in size" / "bytes"
	for p.at(token.BYTES) || p.at(token.IN) || p.at(token.SIZE) {
		p.advance()
	}
	return decl, nil
}

// parseTimerStart handles `begin the timer called "t".`.
func (p *Parser) parseTimerStart() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // BEGIN
	p.skipFiller()
	if p.at(token.TIMER) {
		p.advance()
	}
	p.skipFiller()
	if p.at(token.CALLED) {
		p.advance()
	}
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.TimerStartStatement{StmtBase: sb(pos), Name: name}, nil
}

// parseTimerStop handles `stop the timer called "t".`; the bare `stop.`
// form (no timer name) is instead dispatched to BreakStatement by the
// caller.
func (p *Parser) parseTimerStop() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // STOP
	p.skipFiller()
	if p.at(token.TIMER) {
		p.advance()
	}
	p.skipFiller()
	if p.at(token.CALLED) {
		p.advance()
	}
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.TimerStopStatement{StmtBase: sb(pos), Name: name}, nil
}

func (p *Parser) parseTimerDecl(pos token.Position) (ast.Statement, *diag.Error) {
	p.advance() // TIMER
	if _, err := p.expect(token.CALLED); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	return &ast.TimerDeclStatement{StmtBase: sb(pos), Name: nameTok.Literal}, nil
}

// ---------------------------------------------------------------------
// assignment
// ---------------------------------------------------------------------

func (p *Parser) parseSetStatement() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // SET

	if p.at(token.BYTE) {
		return p.parseByteSet(pos)
	}
	if p.at(token.ELEMENT) {
		return p.parseElementSet(pos)
	}

	p.skipFiller()
	nameTok, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	switch p.cur().Type {
	case token.TO, token.IS:
		p.advance()
	default:
		return nil, p.errorf("expected \"to\" after set target")
	}
	p.skipFiller()
	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	return &ast.AssignmentStatement{StmtBase: sb(pos), Name: nameTok, Value: value}, nil
}

func (p *Parser) parseByteSet(pos token.Position) (ast.Statement, *diag.Error) {
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
	if _, err := p.expect(token.TO); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	return &ast.ByteSetStatement{StmtBase: sb(pos), Name: name, Index: idx, Value: value}, nil
}

func (p *Parser) parseElementSet(pos token.Position) (ast.Statement, *diag.Error) {
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
	if _, err := p.expect(token.TO); err != nil {
		return nil, err
	}
	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	return &ast.ElementSetStatement{StmtBase: sb(pos), Name: name, Index: idx, Value: value}, nil
}

// parseListAppend parses "append <value> to <list>", where value may
// itself be an each-loop expansion ("append each n from numbers to
// doubled").
func (p *Parser) parseListAppend() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // APPEND

	if loop, ok, err := p.tryParseLoopExpansion(func(loopVar *ast.Identifier) (ast.Statement, *diag.Error) {
		p.skipFiller()
		name, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		return &ast.ListAppendStatement{StmtBase: sb(pos), Name: name, Value: loopVar}, nil
	}); ok {
		return loop, err
	}

	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.ListAppendStatement{StmtBase: sb(pos), Name: name, Value: value}, nil
}

// expectIdentLike accepts an IDENTIFIER or a quoted "name" as a variable
// reference; the language allows both surface forms.
func (p *Parser) expectIdentLike() (string, *diag.Error) {
	switch p.cur().Type {
	case token.IDENTIFIER:
		return p.advance().Literal, nil
	case token.STRING_LITERAL:
		return p.advance().Literal, nil
	}
	return "", p.errorf("expected a name")
}

// ---------------------------------------------------------------------
// control flow
// ---------------------------------------------------------------------

func (p *Parser) parseIf() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // IF/WHEN
	cond, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	if p.at(token.THEN) {
		p.advance()
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	thenBody, err := p.parseBlockUntilPeriodOrParagraph()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStatement{StmtBase: sb(pos), Condition: cond, Then: thenBody}

	p.skipPeriodBeforeContinuation()
	for (p.at(token.BUT) && p.peekAt(1).Type == token.IF) || p.at(token.OTHERWISE) && p.peekAt(1).Type == token.IF {
		p.advance() // BUT / OTHERWISE
		p.advance() // IF
		c, err := p.parseExpression(precOr)
		if err != nil {
			return nil, err
		}
		if p.at(token.THEN) {
			p.advance()
		}
		if p.at(token.COMMA) {
			p.advance()
		}
		body, err := p.parseBlockUntilPeriodOrParagraph()
		if err != nil {
			return nil, err
		}
		stmt.ElseIfs = append(stmt.ElseIfs, ast.ElseIfClause{Condition: c, Body: body})
		p.skipPeriodBeforeContinuation()
	}

	if p.at(token.ELSE) || p.at(token.OTHERWISE) {
		p.advance()
		if p.at(token.COMMA) {
			p.advance()
		}
		body, err := p.parseBlockUntilPeriodOrParagraph()
		if err != nil {
			return nil, err
		}
		stmt.Else = body
	}
	return stmt, nil
}

func (p *Parser) parseWhile() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	negate := p.at(token.UNTIL)
	p.advance() // WHILE/UNTIL
	cond, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	if negate {
		cond = &ast.UnaryExpression{ExprBase: ast.NewExprBase(pos), Operator: ast.OpNot, Operand: cond}
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	body, err := p.parseBlockUntilPeriodOrParagraph()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStatement{StmtBase: sb(pos), Condition: cond, Body: body}, nil
}

func (p *Parser) parseFor() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // FOR
	if p.at(token.EACH) || p.at(token.EVERY) {
		p.advance()
	}
	varTok, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	if !p.at(token.FROM) {
		return nil, p.errorf("expected \"from\" in for-loop")
	}
	p.advance()
	start, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	if p.at(token.TO) || p.at(token.THROUGH) {
		inclusive := p.at(token.THROUGH) || p.at(token.TO)
		p.advance()
		end, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		treatingDone, err := p.maybeTreating()
		if err != nil {
			return nil, err
		}
		if p.at(token.COMMA) {
			p.advance()
		}
		body, err := p.parseBlockUntilPeriodOrParagraph()
		if err != nil {
			return nil, err
		}
		body = treatingDone(varTok, body)
		return &ast.ForRangeStatement{
			StmtBase: sb(pos), Variable: varTok,
			Range: &ast.RangeExpression{ExprBase: ast.NewExprBase(pos), Start: start, End: end, Inclusive: inclusive},
			Body:  body,
		}, nil
	}
	// for-each over a collection expression
	treatingDone, err := p.maybeTreating()
	if err != nil {
		return nil, err
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	body, err := p.parseBlockUntilPeriodOrParagraph()
	if err != nil {
		return nil, err
	}
	body = treatingDone(varTok, body)
	return &ast.ForEachStatement{StmtBase: sb(pos), Variable: varTok, Collection: start, Body: body}, nil
}

// maybeTreating parses an optional "treating <m> as <r>" clause and
// returns a function that, given the loop variable name and a body,
// applies rewriteTreating: a print or assignment statement directly in
// the body whose value is a bare reference to the loop variable gets
// that value wrapped in a TreatingAsExpression. References inside larger
// expressions, or inside statements nested in the body, are not wrapped.
func (p *Parser) maybeTreating() (func(string, []ast.Statement) []ast.Statement, *diag.Error) {
	if !p.at(token.TREATING) {
		return func(_ string, body []ast.Statement) []ast.Statement { return body }, nil
	}
	p.advance()
	match, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	if !p.at(token.AS) {
		return nil, p.errorf("expected \"as\" after treating clause")
	}
	p.advance()
	replacement, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	return func(varName string, body []ast.Statement) []ast.Statement {
		return rewriteTreating(body, varName, match, replacement)
	}, nil
}

// rewriteTreating walks statement-level print/assignment values that are
// a bare reference to varName and substitutes a TreatingAsExpression.
func rewriteTreating(body []ast.Statement, varName string, match, replacement ast.Expression) []ast.Statement {
	for _, stmt := range body {
		switch s := stmt.(type) {
		case *ast.PrintStatement:
			if id, ok := s.Value.(*ast.Identifier); ok && id.Name == varName {
				s.Value = &ast.TreatingAsExpression{
					ExprBase: ast.NewExprBase(id.Pos()), Value: id, Match: match, Replacement: replacement,
				}
			}
		case *ast.AssignmentStatement:
			if id, ok := s.Value.(*ast.Identifier); ok && id.Name == varName {
				s.Value = &ast.TreatingAsExpression{
					ExprBase: ast.NewExprBase(id.Pos()), Value: id, Match: match, Replacement: replacement,
				}
			}
		}
	}
	return body
}

func (p *Parser) parseRepeat() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // REPEAT
	count, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	if p.at(token.TIMES) {
		p.advance()
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	body, err := p.parseBlockUntilPeriodOrParagraph()
	if err != nil {
		return nil, err
	}
	return &ast.RepeatStatement{StmtBase: sb(pos), Count: count, Body: body}, nil
}

func (p *Parser) parseReturn() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // RETURN
	if p.at(token.PERIOD) || p.at(token.COMMA) || p.at(token.PARAGRAPH_BREAK) || p.at(token.EOF) {
		return &ast.ReturnStatement{StmtBase: sb(pos)}, nil
	}
	// optional leading declared type before the value, e.g. "Return a number, x add y."
	switch p.cur().Type {
	case token.NUMBER, token.FLOAT, token.INT, token.TEXT, token.BOOLEAN, token.A, token.AN:
		p.skipFiller()
		switch p.cur().Type {
		case token.NUMBER, token.FLOAT, token.INT, token.TEXT, token.BOOLEAN:
			p.advance()
		}
		if p.at(token.COMMA) {
			p.advance()
		}
	}
	value, err := p.parseExpression(precOr)
	if err != nil {
		return nil, err
	}
	return &ast.ReturnStatement{StmtBase: sb(pos), Value: value}, nil
}

func (p *Parser) parseExit() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // EXIT
	var code ast.Expression
	if !p.at(token.PERIOD) && !p.at(token.EOF) {
		c, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
		code = c
	}
	if code == nil {
		code = ast.NewIntegerLiteral(pos, 0)
	}
	return &ast.ExitStatement{StmtBase: sb(pos), Code: code}, nil
}

// ---------------------------------------------------------------------
// functions
// ---------------------------------------------------------------------

func (p *Parser) parseFunctionDef() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // "to"
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	fn := &ast.FunctionDefStatement{StmtBase: sb(pos), Name: nameTok.Literal}

	if p.at(token.WITH) {
		p.advance()
		for {
			p.skipFiller()
			typ := ast.Unknown
			switch p.cur().Type {
			case token.NUMBER, token.INT:
				typ = ast.IntegerType
				p.advance()
			case token.FLOAT:
				typ = ast.FloatType
				p.advance()
			case token.TEXT:
				typ = ast.StringType
				p.advance()
			case token.BOOLEAN:
				typ = ast.BooleanType
				p.advance()
			}
			p.skipFiller()
			if p.at(token.CALLED) {
				p.advance()
			}
			pname, err := p.expect(token.STRING_LITERAL)
			if err != nil {
				return nil, err
			}
			fn.Parameters = append(fn.Parameters, ast.Parameter{Name: pname.Literal, Type: typ})
			if p.at(token.COMMA) && (p.peekAt(1).Type == token.AND) {
				p.advance()
				p.advance()
				continue
			}
			if p.at(token.COMMA) || p.at(token.AND) {
				p.advance()
				continue
			}
			break
		}
	}
	if p.at(token.PERIOD) {
		p.advance()
	}

	var body []ast.Statement
	for !p.at(token.PARAGRAPH_BREAK) && !p.at(token.EOF) {
		if p.at(token.RETURN) {
			typ := ast.Unknown
			p.advance()
			p.skipFiller()
			switch p.cur().Type {
			case token.NUMBER, token.INT:
				typ = ast.IntegerType
				p.advance()
			case token.FLOAT:
				typ = ast.FloatType
				p.advance()
			case token.TEXT:
				typ = ast.StringType
				p.advance()
			case token.BOOLEAN:
				typ = ast.BooleanType
				p.advance()
			}
			fn.ReturnType = typ
			if p.at(token.COMMA) {
				p.advance()
			}
			value, err := p.parseExpression(precOr)
			if err != nil {
				return nil, err
			}
			body = append(body, &ast.ReturnStatement{StmtBase: sb(p.cur().Pos), Value: value})
			if p.at(token.PERIOD) {
				p.advance()
			}
			continue
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	fn.Body = body
	if p.at(token.PARAGRAPH_BREAK) {
		p.advance()
	}
	return fn, nil
}

func (p *Parser) parseCallStatement() (ast.Statement, *diag.Error) {
	call, err := p.parseCallExpr()
	if err != nil {
		return nil, err
	}
	return &ast.CallStatement{StmtBase: sb(call.Pos()), Call: call}, nil
}

func (p *Parser) parseCallOrExprStatement() (ast.Statement, *diag.Error) {
	return p.parseCallStatement()
}

func (p *Parser) parseCallExpr() (*ast.CallExpression, *diag.Error) {
	pos := p.cur().Pos
	if p.at(token.CALL) {
		p.advance()
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	call := &ast.CallExpression{ExprBase: ast.NewExprBase(pos), Name: nameTok.Literal}
	if p.at(token.OF) {
		p.advance()
		for {
			arg, err := p.parseExpression(precAdditive)
			if err != nil {
				return nil, err
			}
			call.Arguments = append(call.Arguments, arg)
			if p.at(token.COMMA) && p.peekAt(1).Type == token.AND {
				p.advance()
				p.advance()
				continue
			}
			if p.at(token.COMMA) || p.at(token.AND) {
				p.advance()
				continue
			}
			break
		}
	}
	return call, nil
}

// ---------------------------------------------------------------------
// allocate / free / inc / dec
// ---------------------------------------------------------------------

func (p *Parser) parseAllocate() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // ALLOCATE
	size, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	if p.at(token.CALLED) {
		p.advance()
	}
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.AllocateStatement{StmtBase: sb(pos), Name: name, Size: size}, nil
}

func (p *Parser) parseFree() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // FREE
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.FreeStatement{StmtBase: sb(pos), Name: name}, nil
}

func (p *Parser) parseIncDec(inc bool) (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance()
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	var amount ast.Expression
	if p.at(token.BY) {
		p.advance()
		amount, err = p.parseExpression(precAdditive)
		if err != nil {
			return nil, err
		}
	}
	if inc {
		return &ast.IncrementStatement{StmtBase: sb(pos), Name: name, Amount: amount}, nil
	}
	return &ast.DecrementStatement{StmtBase: sb(pos), Name: name, Amount: amount}, nil
}

// ---------------------------------------------------------------------
// files
// ---------------------------------------------------------------------

func (p *Parser) parseFileOpen() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // OPEN
	p.skipFiller()
	if p.at(token.FILE) {
		p.advance()
	}
	p.skipFiller()
	if p.at(token.CALLED) {
		p.advance()
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	path, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	mode := ast.ModeReading
	switch p.cur().Type {
	case token.READING:
		mode = ast.ModeReading
		p.advance()
	case token.WRITING:
		mode = ast.ModeWriting
		p.advance()
	case token.APPENDING:
		mode = ast.ModeAppending
		p.advance()
	}
	return &ast.FileOpenStatement{StmtBase: sb(pos), Name: nameTok.Literal, Path: path, Mode: mode}, nil
}

func (p *Parser) parseFileRead() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // READ
	line := false
	if p.at(token.A) && p.peekAt(1).Literal == "line" {
		p.advance()
		p.advance()
		line = true
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	target := name
	if p.at(token.INTO) {
		p.advance()
		target, err = p.expectIdentLike()
		if err != nil {
			return nil, err
		}
	}
	if line {
		return &ast.FileReadLineStatement{StmtBase: sb(pos), Name: name, Target: target}, nil
	}
	return &ast.FileReadStatement{StmtBase: sb(pos), Name: name, Target: target}, nil
}

func (p *Parser) parseFileSeek() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // SEEK
	if p.at(token.TO) {
		p.advance()
	}
	byLine := true
	if p.at(token.IDENTIFIER) && p.cur().Literal == "line" {
		p.advance()
	} else if p.at(token.IDENTIFIER) && p.cur().Literal == "byte" {
		p.advance()
		byLine = false
	} else if p.at(token.BYTE) {
		p.advance()
		byLine = false
	}
	n, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	if byLine {
		return &ast.FileSeekLineStatement{StmtBase: sb(pos), Name: name, Line: n}, nil
	}
	return &ast.FileSeekByteStatement{StmtBase: sb(pos), Name: name, Offset: n}, nil
}

func (p *Parser) parseFileWrite() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // WRITE
	newline := false
	if p.at(token.A) && p.peekAt(1).Literal == "line" {
		p.advance()
		p.advance()
		newline = true
	}
	p.skipFiller()
	value, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	if newline {
		return &ast.FileWriteNewlineStatement{StmtBase: sb(pos), Name: name, Value: value}, nil
	}
	return &ast.FileWriteStatement{StmtBase: sb(pos), Name: name, Value: value}, nil
}

func (p *Parser) parseFileClose() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // CLOSE
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	return &ast.FileCloseStatement{StmtBase: sb(pos), Name: name}, nil
}

func (p *Parser) parseFileDelete() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // DELETE
	p.skipFiller()
	if p.at(token.FILE) {
		p.advance()
	}
	path, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	return &ast.FileDeleteStatement{StmtBase: sb(pos), Path: path}, nil
}

func (p *Parser) parseOnError() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	if p.at(token.ON) {
		p.advance()
	}
	if p.at(token.ERROR) {
		p.advance()
	}
	if p.at(token.COMMA) {
		p.advance()
	}
	actions, err := p.parseBlockUntilPeriodOrParagraph()
	if err != nil {
		return nil, err
	}
	return &ast.OnErrorStatement{StmtBase: sb(pos), Actions: actions}, nil
}

func (p *Parser) parseBufferResize() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // RESIZE
	p.skipFiller()
	name, err := p.expectIdentLike()
	if err != nil {
		return nil, err
	}
	if p.at(token.TO) {
		p.advance()
	}
	size, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	return &ast.BufferResizeStatement{StmtBase: sb(pos), Name: name, NewSize: size}, nil
}

// ---------------------------------------------------------------------
// library / see
// ---------------------------------------------------------------------

func (p *Parser) parseLibraryDecl() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // LIBRARY
	decl := &ast.LibraryDeclStatement{StmtBase: sb(pos)}
	if p.at(token.STRING_LITERAL) {
		decl.Name = p.advance().Literal
	}
	if p.at(token.COMMA) && p.peekAt(1).Type == token.VERSION {
		p.advance()
		p.advance()
		if p.at(token.STRING_LITERAL) {
			decl.Version = p.advance().Literal
		}
	}
	return decl, nil
}

func (p *Parser) parseSee() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // SEE
	pathTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	stmt := &ast.SeeStatement{StmtBase: sb(pos), Path: pathTok.Literal}
	if p.at(token.COMMA) && p.peekAt(1).Type == token.VERSION {
		p.advance()
		p.advance()
		if p.at(token.STRING_LITERAL) {
			stmt.LibVersion = p.advance().Literal
		}
	}
	if p.at(token.OF) {
		p.advance()
		if p.at(token.IDENTIFIER) || p.at(token.STRING_LITERAL) {
			stmt.LibName = p.advance().Literal
		}
	}
	return stmt, nil
}

// ---------------------------------------------------------------------
// timers / wait / get-time
// ---------------------------------------------------------------------

func (p *Parser) parseWait() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // WAIT
	duration, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, err
	}
	unit := ast.UnitSeconds
	switch p.cur().Type {
	case token.MILLISECOND, token.MILLISECONDS:
		unit = ast.UnitMilliseconds
		p.advance()
	case token.SECOND, token.SECONDS:
		unit = ast.UnitSeconds
		p.advance()
	case token.MINUTE:
		unit = ast.UnitMinutes
		p.advance()
	case token.HOUR:
		unit = ast.UnitHours
		p.advance()
	case token.DAY:
		unit = ast.UnitDays
		p.advance()
	}
	return &ast.WaitStatement{StmtBase: sb(pos), Duration: duration, Unit: unit}, nil
}

func (p *Parser) parseGetTime() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // GET
	p.skipFiller()
	unix := false
	if p.at(token.UNIX) {
		unix = true
		p.advance()
	}
	if p.at(token.CURRENT) {
		p.advance()
	}
	if p.at(token.TIME) {
		p.advance()
	}
	target := "_current_time"
	if p.at(token.CALLED) {
		p.advance()
		t, err := p.expectIdentLike()
		if err != nil {
			return nil, err
		}
		target = t
	}
	return &ast.GetTimeStatement{StmtBase: sb(pos), Target: target, Unix: unix}, nil
}

// ---------------------------------------------------------------------
// flag-schema dialect (SPEC_FULL.md §C.4): parse-time only.
// ---------------------------------------------------------------------

func (p *Parser) parseFlagSchemaDecl() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // FLAG
	if p.at(token.SCHEMA) {
		p.advance()
	}
	p.skipFiller()
	if p.at(token.CALLED) {
		p.advance()
	}
	nameTok, err := p.expect(token.STRING_LITERAL)
	if err != nil {
		return nil, err
	}
	decl := &ast.FlagSchemaDeclStatement{StmtBase: sb(pos), Name: nameTok.Literal}
	for p.at(token.COMMA) {
		p.advance()
		switch p.cur().Type {
		case token.SHORT:
			p.advance()
			if t, err := p.expect(token.STRING_LITERAL); err == nil {
				decl.Short = t.Literal
			}
		case token.LONG:
			p.advance()
			if t, err := p.expect(token.STRING_LITERAL); err == nil {
				decl.Long = t.Literal
			}
		case token.REQUIRED:
			p.advance()
			decl.Required = true
		case token.DEFAULT:
			p.advance()
			v, err := p.parseExpression(precAdditive)
			if err != nil {
				return nil, err
			}
			decl.Default = v
		case token.NUMBER, token.FLOAT, token.TEXT, token.BOOLEAN:
			switch p.cur().Type {
			case token.NUMBER:
				decl.Type = ast.IntegerType
			case token.FLOAT:
				decl.Type = ast.FloatType
			case token.TEXT:
				decl.Type = ast.StringType
			case token.BOOLEAN:
				decl.Type = ast.BooleanType
			}
			p.advance()
		default:
			return decl, nil
		}
	}
	return decl, nil
}

func (p *Parser) parseParseFlags() (ast.Statement, *diag.Error) {
	pos := p.cur().Pos
	p.advance() // PARSE
	if p.at(token.FLAGS) {
		p.advance()
	}
	return &ast.ParseFlagsStatement{StmtBase: sb(pos)}, nil
}

// ---------------------------------------------------------------------
// loop-expansion desugaring helper used by print/call/open/append sites
// ---------------------------------------------------------------------

// tryParseLoopExpansion recognizes `each <var> from <collection> [treating
// m as r]` in argument position and, if present, builds the surrounding
// action (given by buildAction, applied to the loop variable) into a
// ForEach/ForRange statement per spec.md §4.2. ok=false means no loop form
// was present and the caller should fall through to normal expression
// parsing.
func (p *Parser) tryParseLoopExpansion(buildAction func(*ast.Identifier) (ast.Statement, *diag.Error)) (ast.Statement, bool, *diag.Error) {
	if !p.at(token.EACH) && !p.at(token.EVERY) {
		return nil, false, nil
	}
	pos := p.cur().Pos
	p.advance()
	varTok, err := p.expectIdentLike()
	if err != nil {
		return nil, true, err
	}
	if !p.at(token.FROM) {
		return nil, true, p.errorf("expected \"from\" in each-loop")
	}
	p.advance()
	loopVar := ast.NewIdentifier(pos, varTok)
	start, err := p.parseExpression(precAdditive)
	if err != nil {
		return nil, true, err
	}
	if p.at(token.TO) || p.at(token.THROUGH) {
		p.advance()
		end, err := p.parseExpression(precAdditive)
		if err != nil {
			return nil, true, err
		}
		treatingDone, err := p.maybeTreating()
		if err != nil {
			return nil, true, err
		}
		action, err := buildAction(loopVar)
		if err != nil {
			return nil, true, err
		}
		return &ast.ForRangeStatement{
			StmtBase: sb(pos), Variable: varTok,
			Range: &ast.RangeExpression{ExprBase: ast.NewExprBase(pos), Start: start, End: end, Inclusive: true},
			Body:  treatingDone(varTok, []ast.Statement{action}),
		}, true, nil
	}
	treatingDone, err := p.maybeTreating()
	if err != nil {
		return nil, true, err
	}
	action, err := buildAction(loopVar)
	if err != nil {
		return nil, true, err
	}
	return &ast.ForEachStatement{StmtBase: sb(pos), Variable: varTok, Collection: start, Body: treatingDone(varTok, []ast.Statement{action})}, true, nil
}
