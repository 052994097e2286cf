// Package codegen lowers an analyzed AST into NASM-flavored x86_64
// assembly text. Generation is single pass: every statement and
// expression writes directly into one of four buffers (main body, data,
// bss, functions) as it is visited; nothing is buffered into an
// intermediate representation beyond the AST itself.
package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

// Options controls the emission mode.
type Options struct {
	// Shared, when true, emits a position-independent shared-library body
	// (exported function labels, no _start) instead of a standalone
	// executable.
	Shared bool
	// Target names the backend architecture tag written into the output
	// header. Only "x86_64" is implemented; the field exists so a future
	// backend can be selected the same way the generator already tracks
	// it internally.
	Target string
}

// features records which runtime include files the generated program
// needs. The analyzer's five Program flags cover the coarse cases;
// codegen additionally scans for the finer-grained ones (float
// arithmetic, buffers vs. lists vs. files vs. timers) that only the
// generator's own statement/type inspection can resolve.
type features struct {
	io      bool
	heap    bool
	strings bool
	args    bool
	funcs   bool
	float   bool
	buffers bool
	lists   bool
	files   bool
	timers  bool
}

// varInfo tracks one named slot's stack offset and semantic type within
// the function (or top-level body) currently being generated.
type varInfo struct {
	offset int // negative, relative to rbp
	typ    ast.Type
	elem   ast.Type // element type, for ListType variables
}

// loopLabels is the continue/break target pair for the innermost
// enclosing loop, pushed and popped around while/for/repeat bodies.
type loopLabels struct {
	continueLabel string
	breakLabel    string
}

// Generator holds all mutable state for one Generate call. It is not
// reentrant and not safe for concurrent use; a fresh Generator is
// created per compilation, matching the single-threaded synchronous
// model the rest of the compiler follows.
type Generator struct {
	opts Options

	output    strings.Builder
	data      strings.Builder
	bss       strings.Builder
	functions strings.Builder

	vars      map[string]*varInfo
	slot      int // next free negative offset, in bytes
	flags     features
	funcTable map[string]*ast.FunctionDefStatement
	exported  []string

	labelCounter int
	strCounter   int
	floatCounter int

	loops []loopLabels

	usesCleanup bool // true once any file/buffer/allocate path needs the exit-time cleanup call
}

// New constructs a Generator ready for one Generate call.
func New(opts Options) *Generator {
	if opts.Target == "" {
		opts.Target = "x86_64"
	}
	return &Generator{
		opts:      opts,
		vars:      make(map[string]*varInfo),
		funcTable: make(map[string]*ast.FunctionDefStatement),
	}
}

// Generate lowers prog into a complete NASM source text.
func Generate(prog *ast.Program, opts Options) (string, error) {
	g := New(opts)
	return g.Generate(prog)
}

func (g *Generator) Generate(prog *ast.Program) (string, error) {
	g.detectFeatures(prog)
	g.collectFunctions(prog)

	g.data.WriteString("section .data\n")
	g.bss.WriteString("section .bss\n")
	g.bss.WriteString("_last_error: resq 1\n")
	g.writeRuntimeBSS()

	var topLevel []ast.Statement
	var funcDefs []*ast.FunctionDefStatement
	for _, s := range prog.Statements {
		switch n := s.(type) {
		case *ast.FunctionDefStatement:
			funcDefs = append(funcDefs, n)
		case *ast.LibraryDeclStatement, *ast.SeeStatement,
			*ast.FlagSchemaDeclStatement, *ast.ParseFlagsStatement:
			// Metadata and the flag-schema dialect are resolved before
			// codegen runs (library/see by internal/includes, flags by
			// the analyzer) and never lower to instructions.
		default:
			topLevel = append(topLevel, s)
		}
	}

	for _, fn := range funcDefs {
		g.generateFunction(fn)
	}

	g.vars = make(map[string]*varInfo)
	g.slot = 0
	for _, s := range topLevel {
		g.genStmt(&g.output, s)
	}
	frameSize := alignFrame(-g.slot)

	var out strings.Builder
	out.WriteString(fmt.Sprintf("; generated by ec for target %s\n", g.opts.Target))
	out.WriteString(g.runtimeIncludes())
	out.WriteString(g.data.String())
	out.WriteString(g.bss.String())
	out.WriteString("\nsection .text\n")

	if g.opts.Shared {
		for _, name := range g.exported {
			out.WriteString("global " + exportLabel(name) + "\n")
		}
	} else {
		out.WriteString("global _start\n")
	}
	out.WriteString("\n")
	out.WriteString(g.functions.String())

	if g.opts.Shared {
		out.WriteString(g.wrapBody("_main_body", frameSize, g.output.String(), false))
	} else {
		out.WriteString(g.entryPoint(frameSize))
	}

	return out.String(), nil
}

// entryPoint emits _start: save argv/envp if the program reads them,
// set up the top-level frame, run the body, run cleanup if files or
// heap allocations were used, and exit 0.
func (g *Generator) entryPoint(frameSize int) string {
	var b strings.Builder
	b.WriteString("_start:\n")
	if g.flags.args {
		b.WriteString("    mov rdi, [rsp]\n")
		b.WriteString("    mov [_argc], rdi\n")
		b.WriteString("    lea rax, [rsp+8]\n")
		b.WriteString("    mov [_argv], rax\n")
		b.WriteString("    lea rax, [rsp+16+rdi*8]\n")
		b.WriteString("    mov [_envp], rax\n")
	}
	b.WriteString("    push rbp\n")
	b.WriteString("    mov rbp, rsp\n")
	if frameSize > 0 {
		b.WriteString(fmt.Sprintf("    sub rsp, %d\n", frameSize))
	}
	b.WriteString(g.output.String())
	if g.usesCleanup {
		b.WriteString("    call _runtime_cleanup\n")
	}
	b.WriteString("    mov rax, 60\n")
	b.WriteString("    xor rdi, rdi\n")
	b.WriteString("    syscall\n")
	return b.String()
}

// wrapBody emits a named PIC-safe function around body, used for
// shared-library mode's top-level statements (there is no _start, so
// the library-user's host calls into this entry explicitly).
func (g *Generator) wrapBody(label string, frameSize int, body string, exported bool) string {
	var b strings.Builder
	if exported {
		b.WriteString(exportLabel(label) + ":\n")
	} else {
		b.WriteString(label + ":\n")
	}
	b.WriteString("    push rbp\n")
	b.WriteString("    mov rbp, rsp\n")
	if frameSize > 0 {
		b.WriteString(fmt.Sprintf("    sub rsp, %d\n", frameSize))
	}
	b.WriteString(body)
	b.WriteString("    leave\n")
	b.WriteString("    ret\n")
	return b.String()
}

func exportLabel(name string) string { return "ec_" + sanitize(name) }

// alignFrame rounds a frame size up to the next 16-byte multiple, per
// the SysV calling convention's stack alignment requirement at call
// sites.
func alignFrame(size int) int {
	if size <= 0 {
		return 0
	}
	return (size + 15) &^ 15
}

func (g *Generator) nextLabel(prefix string) string {
	g.labelCounter++
	return fmt.Sprintf(".L%s_%d", prefix, g.labelCounter)
}

func (g *Generator) nextStrLabel() string {
	g.strCounter++
	return fmt.Sprintf("_str_%d", g.strCounter)
}

func (g *Generator) nextFloatLabel() string {
	g.floatCounter++
	return fmt.Sprintf("_flt_%d", g.floatCounter)
}

func (g *Generator) pushLoop(cont, brk string) { g.loops = append(g.loops, loopLabels{cont, brk}) }
func (g *Generator) popLoop()                  { g.loops = g.loops[:len(g.loops)-1] }
func (g *Generator) currentLoop() (loopLabels, bool) {
	if len(g.loops) == 0 {
		return loopLabels{}, false
	}
	return g.loops[len(g.loops)-1], true
}

// slotFor returns the stack offset for name, allocating a fresh one if
// this is the first declaration. Re-declaring an existing name reuses
// its slot instead of allocating a new one — required so that a loop
// body's repeated "a number called X is ..." doesn't grow the frame on
// every iteration and so later uses keep resolving to the same memory.
func (g *Generator) slotFor(name string, typ ast.Type) *varInfo {
	if v, ok := g.vars[name]; ok {
		v.typ = typ
		return v
	}
	g.slot -= 8
	v := &varInfo{offset: g.slot, typ: typ}
	g.vars[name] = v
	return v
}

func (g *Generator) lookup(name string) *varInfo {
	return g.vars[name]
}

func sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	s := b.String()
	if s == "" || (s[0] >= '0' && s[0] <= '9') {
		s = "v_" + s
	}
	return s
}

func memOperand(name string, v *varInfo) string {
	return fmt.Sprintf("[rbp%+d]", v.offset)
}

// writeRuntimeBSS reserves the fixed-size scratch slots the runtime
// macros in runtime.go read and write, gated by the same feature flags
// that decide which macro blocks get emitted.
func (g *Generator) writeRuntimeBSS() {
	if g.flags.io {
		g.bss.WriteString("_int_buf: resb 32\n")
		g.bss.WriteString("_char_buf: resb 2\n")
	}
	if g.flags.files || g.flags.heap || g.flags.buffers || g.flags.lists {
		g.bss.WriteString("_fd_table: resq 64\n")
		g.bss.WriteString("_fd_count: resq 1\n")
	}
	if g.flags.args {
		g.bss.WriteString("_argc: resq 1\n")
		g.bss.WriteString("_argv: resq 1\n")
		g.bss.WriteString("_envp: resq 1\n")
	}
	if g.flags.files {
		g.data.WriteString("_newline_byte: db 10\n")
	}
}
