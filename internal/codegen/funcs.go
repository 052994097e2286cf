package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

var argRegisters = []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}

// generateFunction performs the two-pass emission spec describes: the
// body is generated once into a scratch buffer purely to discover the
// frame size its local declarations need, then the real label,
// prologue, register-to-slot moves, and buffered body are emitted in
// final form. A function's scope is entirely its own: only its
// parameters and locals get slots here, and top-level variables are not
// addressable from a function body, although the analyzer's function
// scope does admit globals.
func (g *Generator) generateFunction(fn *ast.FunctionDefStatement) {
	g.vars = make(map[string]*varInfo)
	g.slot = 0

	paramSlots := make([]*varInfo, len(fn.Parameters))
	for i, p := range fn.Parameters {
		paramSlots[i] = g.slotFor(p.Name, p.Type)
	}

	var body strings.Builder
	g.genStmts(&body, fn.Body)
	frameSize := alignFrame(-g.slot)

	label := funcLabel(fn.Name)
	if g.opts.Shared {
		fmt.Fprintf(&g.functions, "%s:\n", exportLabel(fn.Name))
	}
	fmt.Fprintf(&g.functions, "%s:\n", label)
	fmt.Fprintf(&g.functions, "    FUNC_PROLOGUE %d\n", frameSize)

	for i, v := range paramSlots {
		if i < len(argRegisters) {
			fmt.Fprintf(&g.functions, "    mov %s, %s\n", memOperand(fn.Parameters[i].Name, v), argRegisters[i])
		} else {
			stackArg := 16 + 8*(i-len(argRegisters))
			fmt.Fprintf(&g.functions, "    mov rax, [rbp+%d]\n", stackArg)
			fmt.Fprintf(&g.functions, "    mov %s, rax\n", memOperand(fn.Parameters[i].Name, v))
		}
	}

	g.functions.WriteString(body.String())
	// A default epilogue covers any fall-through path that didn't end
	// in an explicit Return; it is unreachable dead code on paths that
	// already executed "leave; ret" above.
	g.functions.WriteString("    xor rax, rax\n")
	g.functions.WriteString("    FUNC_EPILOGUE\n")
	g.functions.WriteString("\n")
}
