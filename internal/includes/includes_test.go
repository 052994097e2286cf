package includes

import (
	"strings"
	"testing"

	"github.com/ec-lang/ec/internal/ast"
	"github.com/ec-lang/ec/internal/lexer"
	"github.com/ec-lang/ec/internal/parser"
)

// memReader is an in-memory Reader for exercising the resolution and
// inlining rules without touching the real filesystem.
type memReader map[string]string

func (m memReader) ReadFile(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, &fileNotFoundError{path}
	}
	return []byte(content), nil
}

type fileNotFoundError struct{ path string }

func (e *fileNotFoundError) Error() string { return "no such file: " + e.path }

func parseSource(t *testing.T, source, file string) *ast.Program {
	t.Helper()
	lines := strings.Split(source, "\n")
	l := lexer.New(source)
	p := parser.New(l.Tokenize(), file, lines)
	prog, err := parser.ParseProgram(p)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return prog
}

func TestResolvePathRelative(t *testing.T) {
	r := &Resolver{Reader: memReader{}}
	got := r.ResolvePath("./helpers.en", "/proj/src")
	if got != "/proj/src/helpers.en" {
		t.Fatalf("got %s", got)
	}
}

func TestResolvePathParent(t *testing.T) {
	r := &Resolver{Reader: memReader{}}
	got := r.ResolvePath("../shared/io.en", "/proj/src")
	if got != "/proj/shared/io.en" {
		t.Fatalf("got %s", got)
	}
}

func TestResolvePathAbsolute(t *testing.T) {
	r := &Resolver{Reader: memReader{}}
	got := r.ResolvePath("/opt/lib/io.en", "/proj/src")
	if got != "/opt/lib/io.en" {
		t.Fatalf("got %s", got)
	}
}

func TestResolvePathBareNameUnderLibDir(t *testing.T) {
	files := memReader{"/usr/share/ec/coreasm/strings.en": "library \"strings\"."}
	r := &Resolver{LibPaths: []string{"/usr/share/ec/coreasm"}, Reader: files}
	got := r.ResolvePath("strings.en", "/proj/src")
	if got != "/usr/share/ec/coreasm/strings.en" {
		t.Fatalf("got %s", got)
	}
}

func TestProcessInlinesEnFile(t *testing.T) {
	files := memReader{
		"/proj/helpers.en": "Print \"from helpers\".",
	}
	r := &Resolver{Reader: files}

	source := `See "./helpers.en".
Print "from main".
`
	prog := parseSource(t, source, "/proj/main.en")

	stmts, warnings, err := r.Process(prog, "/proj/main.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(stmts) != 2 {
		t.Fatalf("expected 2 inlined statements, got %d", len(stmts))
	}
}

func TestProcessDetectsCircularInclude(t *testing.T) {
	files := memReader{
		"/proj/a.en": `See "./b.en".`,
		"/proj/b.en": `See "./a.en".`,
	}
	r := &Resolver{Reader: files}
	prog := parseSource(t, `See "./a.en".`, "/proj/main.en")

	_, _, err := r.Process(prog, "/proj/main.en")
	if err == nil {
		t.Fatal("expected a circular-include error")
	}
}

func TestProcessLeavesSoAsMarker(t *testing.T) {
	r := &Resolver{Reader: memReader{}}
	prog := parseSource(t, `See "math.so".`, "/proj/main.en")

	stmts, _, err := r.Process(prog, "/proj/main.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected the see statement to survive as a marker, got %d stmts", len(stmts))
	}
}

func TestProcessWarnsWhenSoLacksLibraryDecl(t *testing.T) {
	files := memReader{"/proj/math.so": `Print "not a library".`}
	r := &Resolver{Reader: files}
	prog := parseSource(t, `See "math.so".`, "/proj/main.en")

	_, warnings, err := r.Process(prog, "/proj/main.en")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
}
