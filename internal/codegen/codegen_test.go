package codegen

import (
	"strings"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"

	"github.com/ec-lang/ec/internal/lexer"
	"github.com/ec-lang/ec/internal/parser"
	"github.com/ec-lang/ec/internal/semantic"
)

// compile runs the full lexer/parser/analyzer/codegen pipeline and
// fails the test on any parse or analysis error.
func compile(t *testing.T, source string) string {
	t.Helper()
	lines := strings.Split(source, "\n")
	l := lexer.New(source)
	p := parser.New(l.Tokenize(), "test.ec", lines)
	prog, perr := parser.ParseProgram(p)
	if perr != nil {
		t.Fatalf("parse error: %v", perr)
	}
	a := semantic.New("test.ec", lines)
	errs, _ := a.Analyze(prog)
	if len(errs) > 0 {
		t.Fatalf("analysis errors: %v", errs)
	}
	out, err := Generate(prog, Options{})
	if err != nil {
		t.Fatalf("codegen error: %v", err)
	}
	return out
}

func TestGeneratePrintHello(t *testing.T) {
	out := compile(t, `Print "Hello, world!".`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateArithmeticAndVariables(t *testing.T) {
	out := compile(t, `A number called "x" is 5.
Set x to x plus 3.
Print "{x}".
`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateIfElse(t *testing.T) {
	out := compile(t, `A number called "n" is 4.

If n is even then, Print "even". Otherwise, Print "odd".
`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateWhileLoop(t *testing.T) {
	out := compile(t, `A number called "i" is 0.

While i is less than 3, Print "{i}", increment i.
`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateFunctionCall(t *testing.T) {
	out := compile(t, `To "double" with a number called "n". Return a number, n times 2.

"double" of 21.
`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateBufferAndAllocate(t *testing.T) {
	out := compile(t, `Allocate 16 called "block".
A buffer called "greeting" is "hi".
`)
	snaps.MatchSnapshot(t, out)
}

func TestGenerateListAppendAndAccess(t *testing.T) {
	out := compile(t, `A list called "values" is [1, 2, 3].
Append 4 to values.
Print "{element 1 of values}".
`)
	snaps.MatchSnapshot(t, out)
}

func TestFreshGeneratorHasNoFeaturesEnabled(t *testing.T) {
	g := New(Options{})
	if g.flags.io || g.flags.heap || g.flags.strings || g.flags.args || g.flags.funcs {
		t.Fatal("expected a fresh Generator to have no features enabled yet")
	}
}
