// Package lexer implements the tokenizer for the EC language.
//
// The tokenizer is a streaming, peekable-rune scanner. It collapses a
// ~300-entry synonym vocabulary (see internal/token) onto a small
// canonical keyword set, recognizes decimal/hex/binary numeric literals
// and character literals, disambiguates the three uses of a single quote
// (character literal, possessive 's, bare single-quoted identifier), and
// treats two-or-more consecutive newlines as a single structural
// ParagraphBreak token that the parser uses to delimit function bodies.
package lexer

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/ec-lang/ec/internal/token"
)

// Lexer scans EC source text into a token stream.
type Lexer struct {
	input        []rune
	errors       []Error
	position     int
	readPosition int
	line         int
	column       int
	ch           rune
}

// Error is a lexical-level failure (unterminated string, unknown
// character). The tokenizer recovers by skipping and continuing, so a
// single Lexer run may accumulate several of these.
type Error struct {
	Message string
	Pos     token.Position
}

// New creates a Lexer for the given input. The input is first
// NFC-normalized so that synonym matching and Levenshtein-based typo
// suggestions downstream operate over one canonical Unicode form
// regardless of whether the source used precomposed or decomposed
// accented identifiers.
func New(input string) *Lexer {
	normalized := norm.NFC.String(input)
	l := &Lexer{
		input:  []rune(normalized),
		line:   1,
		column: 0,
	}
	l.readChar()
	return l
}

// Errors returns the lexical errors accumulated during scanning.
func (l *Lexer) Errors() []Error { return l.errors }

func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.readPosition]
	}
	l.position = l.readPosition
	l.readPosition++
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
}

func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	return l.input[l.readPosition]
}

func (l *Lexer) peekAt(offset int) rune {
	idx := l.readPosition - 1 + offset
	if idx < 0 || idx >= len(l.input) {
		return 0
	}
	return l.input[idx]
}

func (l *Lexer) here() token.Position {
	return token.Position{Line: l.line, Column: l.column}
}

func (l *Lexer) skipWhitespace() {
	for l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
		l.readChar()
	}
}

// skipComment consumes a parenthesized comment, which may nest. The
// opening '(' has already been consumed by the caller. A stray close
// paren elsewhere in the program is simply dropped by the caller.
func (l *Lexer) skipComment() {
	depth := 1
	for depth > 0 {
		l.readChar()
		switch l.ch {
		case '(':
			depth++
		case ')':
			depth--
		case 0:
			return
		}
	}
	l.readChar()
}

// Tokenize scans the entire input and returns the token stream, always
// terminated by a single EOF token.
func (l *Lexer) Tokenize() []token.Token {
	var tokens []token.Token
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			break
		}
	}
	return tokens
}

// Next scans and returns the next token.
func (l *Lexer) Next() token.Token {
	l.skipWhitespace()
	pos := l.here()

	switch {
	case l.ch == 0:
		return token.Token{Type: token.EOF, Pos: pos}
	case l.ch == '\n':
		return l.readNewlines(pos)
	case l.ch == '.':
		return l.readPeriodOrNumber(pos)
	case l.ch == ',':
		l.readChar()
		return token.Token{Type: token.COMMA, Literal: ",", Pos: pos}
	case l.ch == ':':
		l.readChar()
		return token.Token{Type: token.COLON, Literal: ":", Pos: pos}
	case l.ch == '(':
		l.skipComment()
		return l.Next()
	case l.ch == ')':
		l.readChar()
		return l.Next()
	case l.ch == '[':
		l.readChar()
		return token.Token{Type: token.OPEN_BRACKET, Literal: "[", Pos: pos}
	case l.ch == ']':
		l.readChar()
		return token.Token{Type: token.CLOSE_BRACKET, Literal: "]", Pos: pos}
	case l.ch == '-':
		l.readChar()
		return token.Token{Type: token.MINUS, Literal: "-", Pos: pos}
	case l.ch == '\'':
		return l.readQuoted(pos)
	case l.ch == '"':
		return l.readString(pos)
	case unicode.IsDigit(l.ch):
		return l.readNumber(pos)
	case isIdentStart(l.ch):
		return l.readWord(pos)
	default:
		l.errors = append(l.errors, Error{Message: "unexpected character " + strconv.QuoteRune(l.ch), Pos: pos})
		l.readChar()
		return l.Next()
	}
}

func isIdentStart(ch rune) bool {
	return unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_' || ch == '-'
}

// readNewlines collapses a run of newlines (optionally interleaved with
// spaces/tabs/CR) into a single Newline or, for two-or-more, a single
// ParagraphBreak.
func (l *Lexer) readNewlines(pos token.Position) token.Token {
	count := 0
	for {
		if l.ch == '\n' {
			count++
			l.readChar()
		} else if l.ch == ' ' || l.ch == '\t' || l.ch == '\r' {
			l.readChar()
		} else {
			break
		}
	}
	if count >= 2 {
		return token.Token{Type: token.PARAGRAPH_BREAK, Pos: pos}
	}
	return token.Token{Type: token.NEWLINE, Pos: pos}
}

// readPeriodOrNumber handles '.': a decimal point only when immediately
// followed by a digit is absorbed by a number (handled in readNumber);
// a bare '.' not already consumed there is a sentence-ending Period.
func (l *Lexer) readPeriodOrNumber(pos token.Position) token.Token {
	l.readChar()
	return token.Token{Type: token.PERIOD, Literal: ".", Pos: pos}
}

func (l *Lexer) readNumber(pos token.Position) token.Token {
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		return l.readRadix(pos, 16, isHexDigit)
	}
	if l.ch == '0' && (l.peekChar() == 'b' || l.peekChar() == 'B') {
		l.readChar()
		l.readChar()
		return l.readRadix(pos, 2, func(r rune) bool { return r == '0' || r == '1' })
	}

	var sb strings.Builder
	isFloat := false
	for unicode.IsDigit(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch == '.' && unicode.IsDigit(l.peekChar()) {
		isFloat = true
		sb.WriteRune(l.ch)
		l.readChar()
		for unicode.IsDigit(l.ch) {
			sb.WriteRune(l.ch)
			l.readChar()
		}
	}

	if isFloat {
		f, _ := strconv.ParseFloat(sb.String(), 64)
		return token.Token{Type: token.FLOAT_LITERAL, Literal: sb.String(), Float: f, Pos: pos}
	}
	i, _ := strconv.ParseInt(sb.String(), 10, 64)
	return token.Token{Type: token.INTEGER_LITERAL, Literal: sb.String(), Int: i, Pos: pos}
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

func (l *Lexer) readRadix(pos token.Position, base int, accept func(rune) bool) token.Token {
	var sb strings.Builder
	for accept(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if sb.Len() == 0 {
		return token.Token{Type: token.INTEGER_LITERAL, Literal: "0", Pos: pos}
	}
	i, _ := strconv.ParseInt(sb.String(), base, 64)
	return token.Token{Type: token.INTEGER_LITERAL, Literal: sb.String(), Int: i, Pos: pos}
}

func (l *Lexer) readString(pos token.Position) token.Token {
	l.readChar() // consume opening quote
	var sb strings.Builder
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\\' {
			l.readChar()
			sb.WriteRune(unescape(l.ch))
			l.readChar()
			continue
		}
		sb.WriteRune(l.ch)
		l.readChar()
	}
	if l.ch != '"' {
		l.errors = append(l.errors, Error{Message: "unterminated string literal", Pos: pos})
	} else {
		l.readChar()
	}
	return token.Token{Type: token.STRING_LITERAL, Literal: sb.String(), Pos: pos}
}

func unescape(ch rune) rune {
	switch ch {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	default:
		return ch
	}
}

// readQuoted disambiguates the three meanings of a leading single quote:
// a character literal ('A'), a possessive marker ('s not followed by
// more identifier characters), or a bare single-quoted identifier.
func (l *Lexer) readQuoted(pos token.Position) token.Token {
	if l.isCharLiteral() {
		return l.readCharLiteral(pos)
	}
	if l.isPossessive() {
		l.readChar() // consume opening quote; caller now sees identifier "s"
		return token.Token{Type: token.APOSTROPHE, Literal: "'", Pos: pos}
	}
	if l.isSingleQuotedIdentifier() {
		l.readChar() // consume opening quote
		var sb strings.Builder
		for l.ch != '\'' && l.ch != '\n' && l.ch != 0 {
			if l.ch == '\\' {
				l.readChar()
				sb.WriteRune(unescape(l.ch))
				l.readChar()
				continue
			}
			sb.WriteRune(l.ch)
			l.readChar()
		}
		if l.ch == '\'' {
			l.readChar()
		}
		return token.Token{Type: token.IDENTIFIER, Literal: sb.String(), Pos: pos}
	}
	l.readChar()
	return token.Token{Type: token.APOSTROPHE, Literal: "'", Pos: pos}
}

func (l *Lexer) isCharLiteral() bool {
	if l.peekChar() == '\\' {
		return l.peekAt(3) == '\''
	}
	if l.peekChar() == 0 {
		return false
	}
	return l.peekAt(2) == '\''
}

// isPossessive reports whether the quote begins a possessive "'s" marker:
// quote, 's', then whitespace/period/comma/quote (not further identifier
// text, which would make it a single-quoted identifier starting with s).
func (l *Lexer) isPossessive() bool {
	first := l.peekAt(1)
	if first != 's' && first != 'S' {
		return false
	}
	second := l.peekAt(2)
	if second == 0 {
		return true
	}
	return unicode.IsSpace(second) || second == '.' || second == ',' || second == '\''
}

func (l *Lexer) isSingleQuotedIdentifier() bool {
	count := 0
	for i := 1; ; i++ {
		ch := l.peekAt(i)
		if ch == '\'' {
			return count > 0
		}
		if ch == '\n' || ch == 0 {
			return false
		}
		count++
	}
}

func (l *Lexer) readCharLiteral(pos token.Position) token.Token {
	l.readChar() // consume opening quote
	var ch rune
	if l.ch == '\\' {
		l.readChar()
		ch = unescape(l.ch)
		l.readChar()
	} else {
		ch = l.ch
		l.readChar()
	}
	if l.ch == '\'' {
		l.readChar()
	}
	return token.Token{Type: token.INTEGER_LITERAL, Literal: string(ch), Int: int64(ch), Pos: pos}
}

func (l *Lexer) readWord(pos token.Position) token.Token {
	var sb strings.Builder
	for isIdentPart(l.ch) {
		sb.WriteRune(l.ch)
		l.readChar()
	}
	word := sb.String()
	if tt, ok := token.Lookup(word); ok {
		return token.Token{Type: tt, Literal: word, Pos: pos}
	}
	return token.Token{Type: token.IDENTIFIER, Literal: word, Pos: pos}
}

// RuneLen reports the number of runes in s, not its UTF-8 byte length.
func RuneLen(s string) int { return utf8.RuneCountInString(s) }
