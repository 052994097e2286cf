// Package diag implements the compiler's cross-cutting diagnostic type.
//
// Error merges the teacher's CompilerError (internal/errors/errors.go:
// Message/Source/File/Pos, ANSI two-line caret Format) with the richer
// design of the original Rust compiler's CompileError (src/errors.rs:
// optional Hint with a (column, length) underline connector, an optional
// "did you mean" Suggestion, and an optional error code). The parser,
// the include resolver and the analyzer report *Error values; the lexer
// collects its own lexer.Error values and codegen returns a plain error.
package diag

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/token"
)

// Hint underlines a sub-span of the offending line, starting at Column
// (1-indexed) and extending Length runes, connected to an inline message.
type Hint struct {
	Column  int
	Length  int
	Message string
}

// Error is one compiler diagnostic.
type Error struct {
	Message    string
	File       string
	Pos        token.Position
	LineText   string
	Hint       *Hint
	Suggestion string
	Code       string
}

func (e *Error) Error() string { return e.Format(false) }

// Format renders the diagnostic as a Rust-style two-line-caret block. When
// color is true, ANSI escapes highlight the error keyword, the caret line,
// and the help line, matching the teacher's Format(color bool) contract.
func (e *Error) Format(color bool) string {
	var sb strings.Builder

	red := ""
	bold := ""
	cyan := ""
	reset := ""
	if color {
		red, bold, cyan, reset = "\x1b[31m", "\x1b[1m", "\x1b[36m", "\x1b[0m"
	}

	if e.Code != "" {
		fmt.Fprintf(&sb, "%s%serror[%s]%s: %s\n", bold, red, e.Code, reset, e.Message)
	} else {
		fmt.Fprintf(&sb, "%s%serror%s: %s\n", bold, red, reset, e.Message)
	}

	if e.File != "" || e.Pos.Line != 0 {
		fmt.Fprintf(&sb, "  %s-->%s %s:%d:%d\n", cyan, reset, e.File, e.Pos.Line, e.Pos.Column)
	}

	if e.LineText != "" {
		gutter := fmt.Sprintf("%d", e.Pos.Line)
		fmt.Fprintf(&sb, "%s%s |%s %s\n", cyan, gutter, reset, e.LineText)
		pad := strings.Repeat(" ", len(gutter))
		col := e.Pos.Column
		if col < 1 {
			col = 1
		}
		fmt.Fprintf(&sb, "%s |%s%s%s%s", pad, cyan, strings.Repeat(" ", col), red+"^"+reset, "")
		if e.Hint != nil && e.Hint.Message != "" {
			fmt.Fprintf(&sb, " --- %s", e.Hint.Message)
		}
		sb.WriteString("\n")
	}

	if e.Suggestion != "" {
		fmt.Fprintf(&sb, "  %shelp%s: %s\n", bold, reset, e.Suggestion)
	}

	return sb.String()
}

// New constructs a bare message-only Error; callers chain With* to add
// detail.
func New(message string, pos token.Position) *Error {
	return &Error{Message: message, Pos: pos}
}

// WithFile sets the source file name.
func (e *Error) WithFile(file string) *Error { e.File = file; return e }

// WithLine sets the offending line's verbatim text (used for the caret
// rendering).
func (e *Error) WithLine(text string) *Error { e.LineText = text; return e }

// WithHint attaches an underline connector hint.
func (e *Error) WithHint(column, length int, message string) *Error {
	e.Hint = &Hint{Column: column, Length: length, Message: message}
	return e
}

// WithSuggestion attaches a "did you mean" help line.
func (e *Error) WithSuggestion(s string) *Error { e.Suggestion = s; return e }

// WithCode attaches a short error code (e.g. "E0204").
func (e *Error) WithCode(code string) *Error { e.Code = code; return e }

// Warning is a non-fatal diagnostic (uninitialized buffer, best-effort
// include metadata checks). Warnings are threaded through Parser/Analyzer
// as a slice rather than written directly to stderr, per SPEC_FULL.md
// §C.6, so the CLI driver controls if/when they print.
type Warning struct {
	Message  string
	File     string
	Pos      token.Position
	LineText string
}

func (w Warning) String() string {
	return fmt.Sprintf("warning: %s\n  --> %s:%d:%d\n", w.Message, w.File, w.Pos.Line, w.Pos.Column)
}

// FormatErrors renders a list of errors one after another.
func FormatErrors(errs []*Error, color bool) string {
	var sb strings.Builder
	for _, e := range errs {
		sb.WriteString(e.Format(color))
	}
	return sb.String()
}

// FormatWarnings renders a list of warnings one after another.
func FormatWarnings(warnings []Warning) string {
	var sb strings.Builder
	for _, w := range warnings {
		sb.WriteString(w.String())
	}
	return sb.String()
}

// Levenshtein computes case-insensitive edit distance between a and b via
// the standard dynamic-programming table, mirroring the teacher/Rust
// implementations.
func Levenshtein(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	ra, rb := []rune(a), []rune(b)
	n, m := len(ra), len(rb)
	if n == 0 {
		return m
	}
	if m == 0 {
		return n
	}
	prev := make([]int, m+1)
	curr := make([]int, m+1)
	for j := 0; j <= m; j++ {
		prev[j] = j
	}
	for i := 1; i <= n; i++ {
		curr[0] = i
		for j := 1; j <= m; j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			del := prev[j] + 1
			ins := curr[j-1] + 1
			sub := prev[j-1] + cost
			curr[j] = min3(del, ins, sub)
		}
		prev, curr = curr, prev
	}
	return prev[m]
}

func min3(a, b, c int) int {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}

// FindSimilarKeyword returns the closest candidate to word from the given
// keyword list, or "" if none is within the accepted distance window:
// words of length <3 are never given a suggestion, the candidate's length
// may not differ from word's by more than 2, and the max accepted distance
// is 2 (or 1 when word has exactly 3 runes). Exact matches are excluded.
func FindSimilarKeyword(word string, candidates []string) string {
	runeLen := len([]rune(word))
	if runeLen < 3 {
		return ""
	}
	maxDist := 2
	if runeLen == 3 {
		maxDist = 1
	}
	lower := strings.ToLower(word)
	best := ""
	bestDist := maxDist + 1
	for _, c := range candidates {
		if strings.ToLower(c) == lower {
			return ""
		}
		if abs(len([]rune(c))-runeLen) > 2 {
			continue
		}
		d := Levenshtein(word, c)
		if d <= maxDist && d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
