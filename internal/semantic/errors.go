package semantic

import "github.com/ec-lang/ec/internal/token"

// ErrorKind enumerates the distinct diagnostic situations the analyzer can
// report, mirroring the teacher's SemanticErrorType string-enum but scoped
// to this compiler's three-pass model.
type ErrorKind string

const (
	ErrUnknownVariable   ErrorKind = "unknown_variable"
	ErrUnknownFunction   ErrorKind = "unknown_function"
	ErrUnknownIdentifier ErrorKind = "unknown_identifier"
	ErrDuplicateFlag     ErrorKind = "duplicate_flag"
	ErrFlagAfterParse    ErrorKind = "flag_after_parse"
	ErrFlagBeforeParse   ErrorKind = "flag_before_parse"
	ErrDuplicateParse    ErrorKind = "duplicate_parse_marker"
)

// typoCandidate is a deferred Pass 3 suggestion: an identifier Pass 2 could
// not resolve that also looked close enough to a keyword to be a likely
// misspelling rather than a genuine unknown name.
type typoCandidate struct {
	word string
	pos  token.Position
}
