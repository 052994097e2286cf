package token

import "strings"

// synonyms maps every recognized surface spelling (lowercased) to its
// canonical Type. This is the ~300-entry vocabulary table described in
// spec.md §4.1; it is populated once here as a package-level map literal
// rather than built at runtime, per the Design Notes' "dynamic dictionary
// populated once at process start" allowance.
var synonyms = map[string]Type{
	// Actions
	"print": PRINT, "say": PRINT, "display": PRINT, "output": PRINT, "show": PRINT,
	"set": SET, "assign": SET, "let": SET, "make": SET, "put": SET, "store": SET,
	"create": CREATE, "declare": CREATE, "define": CREATE,
	"add": ADD, "plus": ADD,
	"subtract": SUBTRACT, "minus": SUBTRACT,
	"multiply": MULTIPLY, "times": TIMES,
	"divide": DIVIDE, "over": DIVIDE,
	"increment": INCREMENT, "increase": INCREMENT,
	"decrement": DECREMENT, "decrease": DECREMENT,
	"call": CALL, "invoke": CALL, "run": CALL, "execute": CALL,
	"allocate": ALLOCATE,
	"free":     FREE, "deallocate": FREE, "release": FREE,
	"modulo": MODULO, "mod": MODULO, "remainder": MODULO,

	// Control flow
	"if": IF, "when": WHEN, "then": THEN, "else": ELSE, "but": BUT,
	"otherwise": OTHERWISE, "while": WHILE, "until": UNTIL,
	"for": FOR, "each": EACH, "every": EVERY,
	"loop": LOOP, "repeat": REPEAT,
	"break": BREAK, "stop": STOP,
	"continue": CONTINUE, "skip": CONTINUE,
	"return": RETURN, "give": RETURN, "respond": RETURN, "reply": RETURN,
	"exit": EXIT, "quit": EXIT, "terminate": EXIT, "end": EXIT, "halt": EXIT, "abort": EXIT,

	// Functions
	"with": WITH, "using": WITH, "given": WITH, "taking": WITH,
	"called": CALLED, "named": CALLED,

	// Comparisons
	"is": IS, "equals": EQUALS, "equal": EQUAL,
	"are": ARE,
	"greater": GREATER, "more": GREATER, "larger": GREATER, "bigger": GREATER, "higher": GREATER, "above": GREATER,
	"less": LESS, "smaller": LESS, "lower": LESS, "below": LESS, "fewer": LESS,
	"than": THAN,
	"not":  NOT,
	"and":  AND,
	"or":   OR,

	// Range/collection
	"from": FROM, "starting": FROM,
	"to": TO, "up": TO,
	"between": BETWEEN,
	"through": THROUGH,
	"in":      IN, "inside": IN, "within": IN,
	"of": OF,
	"on": ON, "at": ON,
	"the":      THE,
	"a":        A,
	"an":       AN,
	"all":      ALL,
	"by":       BY,
	"treating": TREATING, "treat": TREATING,

	// Types
	"number": NUMBER, "numbers": NUMBER,
	"float": FLOAT, "decimal": FLOAT, "real": FLOAT,
	"int": INT, "integer": INT,
	"text": TEXT, "string": TEXT, "message": TEXT,
	"boolean": BOOLEAN, "bool": BOOLEAN, "flag": FLAG,
	"list": LIST, "array": LIST, "collection": LIST,
	"true": TRUE, "yes": TRUE,
	"false": FALSE, "no": FALSE,

	// File I/O
	"buffer": BUFFER,
	"file":   FILE,
	"bytes":  BYTES, "byte": BYTE,
	"size": SIZE, "length": SIZE,
	"into":      INTO,
	"reading":   READING,
	"writing":   WRITING,
	"appending": APPENDING,
	"standard":  STANDARD,
	"input":     INPUT,
	"open":      OPEN, "opened": OPEN,
	"read":   READ,
	"write":  WRITE,
	"close":  CLOSE, "closed": CLOSE,
	"delete": DELETE, "remove": DELETE,
	"exists": EXISTS, "exist": EXISTS,
	"resize": RESIZE, "reallocate": RESIZE, "grow": RESIZE, "shrink": RESIZE,
	"seek": SEEK,

	// Properties
	"even": EVEN, "odd": ODD, "positive": POSITIVE, "negative": NEGATIVE,
	"zero":  ZERO,
	"empty": EMPTY, "nothing": EMPTY, "null": EMPTY, "nil": EMPTY,

	"capacity":    CAPACITY,
	"descriptor":  DESCRIPTOR, "fd": DESCRIPTOR,
	"modified":    MODIFIED,
	"accessed":    ACCESSED,
	"permissions": PERMISSIONS, "perms": PERMISSIONS,
	"readable":    READABLE,
	"writable":    WRITABLE,
	"full":        FULL,
	"first":       FIRST,
	"last":        LAST,
	"absolute":    ABSOLUTE, "abs": ABSOLUTE,
	"sign":        SIGN,

	// Error handling
	"error":     ERROR,
	"stderr":    STDERR,
	"auto":      AUTO, "automatic": AUTO,
	"catching":  CATCHING,
	"enable":    ENABLE, "enabled": ENABLE,
	"disable":   DISABLE, "disabled": DISABLE,

	// Library
	"see": SEE, "import": SEE, "include": SEE, "require": SEE,
	"library": LIBRARY, "lib": LIBRARY,
	"version": VERSION, "ver": VERSION,

	// Arguments/environment
	"argument": ARGUMENT, "arg": ARGUMENT, "param": ARGUMENT, "parameter": ARGUMENT,
	"arguments": ARGUMENTS, "args": ARGUMENTS, "params": ARGUMENTS, "parameters": ARGUMENTS,
	"environment": ENVIRONMENT, "env": ENVIRONMENT,
	"variable":    VARIABLE, "var": VARIABLE,
	"count":       COUNT,

	// Time and timers
	"wait": WAIT, "pause": WAIT,
	"sleep": SLEEP, "delay": SLEEP,
	"timer": TIMER, "stopwatch": TIMER,
	"begin":  BEGIN,
	"finish": FINISH,
	"get":    GET, "fetch": GET, "retrieve": GET,
	"current": CURRENT,
	"time":    TIME,
	"second":  SECOND,
	"seconds": SECONDS,
	"millisecond": MILLISECOND,
	"milliseconds": MILLISECONDS, "ms": MILLISECONDS,
	"duration": DURATION,
	"elapsed":  ELAPSED,
	"hour":     HOUR, "hours": HOUR,
	"minute":   MINUTE, "minutes": MINUTE,
	"day":      DAY, "days": DAY,
	"month":    MONTH, "months": MONTH,
	"year":     YEAR, "years": YEAR,
	"unix":     UNIX, "unixtime": UNIX, "timestamp": UNIX,
	"running":  RUNNING,
	"as":       AS,

	// Bitwise (compound words only, matched post hyphen-scan)
	"bit-and":         BIT_AND,
	"bit-or":          BIT_OR,
	"bit-xor":         BIT_XOR,
	"bit-not":         BIT_NOT,
	"bit-shift-left":  BIT_SHIFT_LEFT,
	"bit-shift-right": BIT_SHIFT_RIGHT,

	// Buffer/list access
	"element": ELEMENT,
	"append":  APPEND,
	"without": WITHOUT,

	// Flag-schema dialect (SPEC_FULL.md §C.4)
	"schema":   SCHEMA,
	"short":    SHORT,
	"long":     LONG,
	"required": REQUIRED,
	"default":  DEFAULT,
	"parse":    PARSE,
	"flags":    FLAGS,
}

// Lookup resolves a scanned word to its canonical token type, or reports
// ok=false when the word is not reserved (i.e. it is a plain identifier).
// Matching is case-insensitive; the caller supplies the word exactly as
// scanned (letters/digits/underscore/hyphen).
func Lookup(word string) (Type, bool) {
	t, ok := synonyms[strings.ToLower(word)]
	return t, ok
}

// IsReservedWord reports whether s names a reserved keyword under any of
// its synonym spellings.
func IsReservedWord(s string) bool {
	_, ok := synonyms[strings.ToLower(s)]
	return ok
}

// CanonicalKeywords lists one surface spelling per canonical keyword,
// used as the comparison set for Levenshtein-based typo suggestions
// (mirrors ENGLISH_KEYWORDS in the original Rust compiler's errors module).
var CanonicalKeywords = []string{
	"print", "set", "create", "add", "subtract", "multiply", "divide",
	"increment", "decrement", "call", "allocate", "free",
	"open", "read", "write", "close", "delete", "exists", "resize", "seek",
	"if", "when", "then", "else", "but", "otherwise", "while", "until",
	"for", "each", "every", "loop", "repeat", "times", "break", "continue",
	"return", "exit", "with", "called", "modulo",
	"is", "are", "equals", "equal", "greater", "less", "than", "not", "and", "or",
	"from", "to", "between", "through", "in", "of", "on", "the", "a", "an", "all", "by",
	"treating", "as",
	"number", "float", "int", "text", "boolean", "list", "true", "false",
	"buffer", "file", "bytes", "byte", "size", "into", "reading", "writing", "appending",
	"standard", "input",
	"even", "odd", "positive", "negative", "zero", "empty",
	"capacity", "descriptor", "modified", "accessed", "permissions",
	"readable", "writable", "full", "first", "last", "absolute", "sign",
	"error", "stderr", "auto", "catching", "enable", "disable",
	"see", "library", "version",
	"argument", "arguments", "environment", "variable", "count",
	"wait", "sleep", "timer", "stop", "begin", "finish", "get", "current",
	"time", "second", "seconds", "millisecond", "milliseconds", "duration",
	"elapsed", "hour", "minute", "day", "month", "year", "unix", "running",
	"element", "append", "without",
	"flag", "schema", "short", "long", "required", "default", "parse", "flags",
}
