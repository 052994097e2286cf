package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

// genStmt lowers one statement into buf. Every case either leaves no
// value behind or discards whatever genExpr happened to leave in rax/
// xmm0 — statements never return a value to their caller.
func (g *Generator) genStmt(buf *strings.Builder, s ast.Statement) {
	switch n := s.(type) {
	case *ast.PrintStatement:
		g.genPrint(buf, n)
	case *ast.VarDeclStatement:
		g.genVarDecl(buf, n)
	case *ast.AssignmentStatement:
		g.genAssignment(buf, n)
	case *ast.IfStatement:
		g.genIf(buf, n)
	case *ast.WhileStatement:
		g.genWhile(buf, n)
	case *ast.ForRangeStatement:
		g.genForRange(buf, n)
	case *ast.ForEachStatement:
		g.genForEach(buf, n)
	case *ast.RepeatStatement:
		g.genRepeat(buf, n)
	case *ast.BreakStatement:
		if l, ok := g.currentLoop(); ok {
			fmt.Fprintf(buf, "    jmp %s\n", l.breakLabel)
		}
	case *ast.ContinueStatement:
		if l, ok := g.currentLoop(); ok {
			fmt.Fprintf(buf, "    jmp %s\n", l.continueLabel)
		}
	case *ast.ReturnStatement:
		g.genReturn(buf, n)
	case *ast.ExitStatement:
		if n.Code != nil {
			g.genExpr(buf, n.Code)
			buf.WriteString("    mov rdi, rax\n")
		} else {
			buf.WriteString("    xor rdi, rdi\n")
		}
		buf.WriteString("    mov rax, 60\n    syscall\n")
	case *ast.CallStatement:
		g.genCall(buf, n.Call)
	case *ast.AllocateStatement:
		g.genAllocate(buf, n)
	case *ast.FreeStatement:
		// The runtime is a single-process, exit-cleans-everything model
		// (§5); an explicit Free just marks the slot defensively zeroed
		// so a use-after-free reads a null pointer instead of stale data.
		v := g.lookup(n.Name)
		if v != nil {
			fmt.Fprintf(buf, "    mov qword %s, 0\n", memOperand(n.Name, v))
		}
	case *ast.IncrementStatement:
		g.genIncDec(buf, n.Name, n.Amount, true)
	case *ast.DecrementStatement:
		g.genIncDec(buf, n.Name, n.Amount, false)
	case *ast.BufferDeclStatement:
		g.genBufferDecl(buf, n)
	case *ast.ByteSetStatement:
		g.genByteSet(buf, n)
	case *ast.ElementSetStatement:
		g.genElementSet(buf, n)
	case *ast.ListAppendStatement:
		g.genListAppend(buf, n)
	case *ast.FileOpenStatement:
		g.genFileOpen(buf, n)
	case *ast.FileReadStatement:
		g.genFileReadWhole(buf, n)
	case *ast.FileReadLineStatement:
		g.genFileReadLine(buf, n)
	case *ast.FileSeekLineStatement:
		g.genFileSeekLine(buf, n)
	case *ast.FileSeekByteStatement:
		g.genFileSeekByte(buf, n)
	case *ast.FileWriteStatement:
		g.genFileWrite(buf, n.Name, n.Value, false)
	case *ast.FileWriteNewlineStatement:
		g.genFileWrite(buf, n.Name, n.Value, true)
	case *ast.FileCloseStatement:
		g.genFileClose(buf, n)
	case *ast.FileDeleteStatement:
		g.genExpr(buf, n.Path)
		buf.WriteString("    mov rdi, rax\n    mov rax, 87\n    syscall\n") // sys_unlink
	case *ast.OnErrorStatement:
		g.genOnError(buf, n)
	case *ast.BufferResizeStatement:
		g.genBufferResize(buf, n)
	case *ast.TimerDeclStatement:
		v := g.slotFor(n.Name, ast.TimerType)
		fmt.Fprintf(buf, "    mov qword %s, 0\n", memOperand(n.Name, v))
	case *ast.TimerStartStatement:
		v := g.lookup(n.Name)
		buf.WriteString("    call _clock_now\n")
		if v != nil {
			fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
		}
	case *ast.TimerStopStatement:
		v := g.lookup(n.Name)
		buf.WriteString("    call _clock_now\n")
		if v != nil {
			fmt.Fprintf(buf, "    mov %s+8, rax\n", memOperand(n.Name, v))
		}
	case *ast.WaitStatement:
		g.genWait(buf, n)
	case *ast.GetTimeStatement:
		if n.Unix {
			buf.WriteString("    call _clock_now\n")
			buf.WriteString("    mov rbx, 1000000000\n    cqo\n    idiv rbx\n")
		} else {
			buf.WriteString("    call _clock_now\n")
		}
		v := g.slotFor(n.Target, ast.IntegerType)
		fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Target, v))
	case *ast.FunctionDefStatement:
		// Top-level function definitions are emitted in a dedicated pass
		// (see funcs.go); nested definitions are not part of the grammar.
	default:
		fmt.Fprintf(buf, "    ; unsupported statement %T\n", s)
	}
}

func (g *Generator) genStmts(buf *strings.Builder, stmts []ast.Statement) {
	for _, s := range stmts {
		g.genStmt(buf, s)
	}
}

func (g *Generator) genPrint(buf *strings.Builder, n *ast.PrintStatement) {
	if fs, ok := n.Value.(*ast.FormatStringExpression); ok {
		g.genFormatString(buf, fs, !n.WithoutNewline)
		return
	}
	g.genExpr(buf, n.Value)
	g.emitPrintDispatch(buf, n.Value.GetType(), formatSpec{})
	if !n.WithoutNewline {
		nl := g.internString("\n")
		fmt.Fprintf(buf, "    mov rdi, %s\n", nl)
		buf.WriteString("    call print_cstr\n")
	}
}

func (g *Generator) genVarDecl(buf *strings.Builder, n *ast.VarDeclStatement) {
	typ := n.Declared
	if typ == ast.Unknown && n.Initializer != nil {
		typ = n.Initializer.GetType()
	}
	v := g.slotFor(n.Name, typ)
	if n.Initializer == nil {
		fmt.Fprintf(buf, "    mov qword %s, 0\n", memOperand(n.Name, v))
		return
	}
	g.genExpr(buf, n.Initializer)
	if typ == ast.FloatType {
		fmt.Fprintf(buf, "    movsd %s, xmm0\n", memOperand(n.Name, v))
	} else {
		fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
	}
}

func (g *Generator) genAssignment(buf *strings.Builder, n *ast.AssignmentStatement) {
	v := g.lookup(n.Name)
	if v == nil {
		v = g.slotFor(n.Name, n.Value.GetType())
	}
	g.genExpr(buf, n.Value)
	if v.typ == ast.FloatType {
		fmt.Fprintf(buf, "    movsd %s, xmm0\n", memOperand(n.Name, v))
	} else {
		fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
	}
}

func (g *Generator) genIncDec(buf *strings.Builder, name string, amount ast.Expression, inc bool) {
	v := g.lookup(name)
	if v == nil {
		return
	}
	if amount == nil {
		if inc {
			fmt.Fprintf(buf, "    add qword %s, 1\n", memOperand(name, v))
		} else {
			fmt.Fprintf(buf, "    sub qword %s, 1\n", memOperand(name, v))
		}
		return
	}
	g.genExpr(buf, amount)
	if inc {
		fmt.Fprintf(buf, "    add %s, rax\n", memOperand(name, v))
	} else {
		fmt.Fprintf(buf, "    sub %s, rax\n", memOperand(name, v))
	}
}

// genIf lowers the if/else-if/else chain as a sequence of compare-and-
// jump blocks, one fresh label pair per branch, falling through to a
// shared end label.
func (g *Generator) genIf(buf *strings.Builder, n *ast.IfStatement) {
	endLabel := g.nextLabel("if_end")

	branches := append([]ast.ElseIfClause{{Condition: n.Condition, Body: n.Then}}, n.ElseIfs...)
	for _, br := range branches {
		nextLabel := g.nextLabel("if_next")
		g.genExpr(buf, br.Condition)
		buf.WriteString("    test rax, rax\n")
		fmt.Fprintf(buf, "    jz %s\n", nextLabel)
		g.genStmts(buf, br.Body)
		fmt.Fprintf(buf, "    jmp %s\n", endLabel)
		fmt.Fprintf(buf, "%s:\n", nextLabel)
	}
	if n.Else != nil {
		g.genStmts(buf, n.Else)
	}
	fmt.Fprintf(buf, "%s:\n", endLabel)
}

func (g *Generator) genWhile(buf *strings.Builder, n *ast.WhileStatement) {
	startLabel := g.nextLabel("while_start")
	endLabel := g.nextLabel("while_end")
	fmt.Fprintf(buf, "%s:\n", startLabel)
	g.genExpr(buf, n.Condition)
	buf.WriteString("    test rax, rax\n")
	fmt.Fprintf(buf, "    jz %s\n", endLabel)
	g.pushLoop(startLabel, endLabel)
	g.genStmts(buf, n.Body)
	g.popLoop()
	fmt.Fprintf(buf, "    jmp %s\n", startLabel)
	fmt.Fprintf(buf, "%s:\n", endLabel)
}

// genForRange allocates iterator and end-bound slots, incrementing the
// end bound once up front when the range is inclusive so the loop
// condition can stay a single less-than compare.
func (g *Generator) genForRange(buf *strings.Builder, n *ast.ForRangeStatement) {
	iterV := g.slotFor(n.Variable, ast.IntegerType)
	g.genExpr(buf, n.Range.Start)
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Variable, iterV))

	endName := "_range_end_" + n.Variable
	endV := g.slotFor(endName, ast.IntegerType)
	g.genExpr(buf, n.Range.End)
	if n.Range.Inclusive {
		buf.WriteString("    inc rax\n")
	}
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(endName, endV))

	startLabel := g.nextLabel("for_start")
	contLabel := g.nextLabel("for_cont")
	endLabel := g.nextLabel("for_end")
	fmt.Fprintf(buf, "%s:\n", startLabel)
	fmt.Fprintf(buf, "    mov rax, %s\n", memOperand(n.Variable, iterV))
	fmt.Fprintf(buf, "    cmp rax, %s\n", memOperand(endName, endV))
	fmt.Fprintf(buf, "    jge %s\n", endLabel)
	g.pushLoop(contLabel, endLabel)
	g.genStmts(buf, n.Body)
	g.popLoop()
	fmt.Fprintf(buf, "%s:\n", contLabel)
	fmt.Fprintf(buf, "    inc qword %s\n", memOperand(n.Variable, iterV))
	fmt.Fprintf(buf, "    jmp %s\n", startLabel)
	fmt.Fprintf(buf, "%s:\n", endLabel)
}

// genForEach iterates a list via its header's length field, or (for
// "arguments's all/raw") argc/argv directly.
func (g *Generator) genForEach(buf *strings.Builder, n *ast.ForEachStatement) {
	idxName := "_each_idx_" + n.Variable
	idxV := g.slotFor(idxName, ast.IntegerType)
	fmt.Fprintf(buf, "    mov qword %s, 0\n", memOperand(idxName, idxV))

	g.genExpr(buf, n.Collection)
	collName := "_each_coll_" + n.Variable
	collV := g.slotFor(collName, ast.ListType)
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(collName, collV))

	elemV := g.slotFor(n.Variable, ast.Unknown)

	startLabel := g.nextLabel("each_start")
	contLabel := g.nextLabel("each_cont")
	endLabel := g.nextLabel("each_end")
	fmt.Fprintf(buf, "%s:\n", startLabel)
	fmt.Fprintf(buf, "    mov rax, %s\n", memOperand(idxName, idxV))
	fmt.Fprintf(buf, "    mov rbx, %s\n", memOperand(collName, collV))
	buf.WriteString("    cmp rax, [rbx+8]\n")
	fmt.Fprintf(buf, "    jge %s\n", endLabel)
	buf.WriteString("    imul rax, rax, 8\n")
	buf.WriteString("    add rax, rbx\n")
	buf.WriteString("    mov rax, [rax+24]\n")
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Variable, elemV))
	g.pushLoop(contLabel, endLabel)
	g.genStmts(buf, n.Body)
	g.popLoop()
	fmt.Fprintf(buf, "%s:\n", contLabel)
	fmt.Fprintf(buf, "    inc qword %s\n", memOperand(idxName, idxV))
	fmt.Fprintf(buf, "    jmp %s\n", startLabel)
	fmt.Fprintf(buf, "%s:\n", endLabel)
}

func (g *Generator) genRepeat(buf *strings.Builder, n *ast.RepeatStatement) {
	counterName := fmt.Sprintf("_repeat_%d", g.labelCounter+1)
	counterV := g.slotFor(counterName, ast.IntegerType)
	g.genExpr(buf, n.Count)
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(counterName, counterV))

	startLabel := g.nextLabel("repeat_start")
	contLabel := g.nextLabel("repeat_cont")
	endLabel := g.nextLabel("repeat_end")
	fmt.Fprintf(buf, "%s:\n", startLabel)
	fmt.Fprintf(buf, "    cmp qword %s, 0\n", memOperand(counterName, counterV))
	fmt.Fprintf(buf, "    jle %s\n", endLabel)
	g.pushLoop(contLabel, endLabel)
	g.genStmts(buf, n.Body)
	g.popLoop()
	fmt.Fprintf(buf, "%s:\n", contLabel)
	fmt.Fprintf(buf, "    dec qword %s\n", memOperand(counterName, counterV))
	fmt.Fprintf(buf, "    jmp %s\n", startLabel)
	fmt.Fprintf(buf, "%s:\n", endLabel)
}

func (g *Generator) genReturn(buf *strings.Builder, n *ast.ReturnStatement) {
	if n.Value != nil {
		g.genExpr(buf, n.Value)
	}
	buf.WriteString("    leave\n    ret\n")
}

func (g *Generator) genOnError(buf *strings.Builder, n *ast.OnErrorStatement) {
	skipLabel := g.nextLabel("on_error_skip")
	buf.WriteString("    cmp qword [_last_error], 0\n")
	fmt.Fprintf(buf, "    je %s\n", skipLabel)
	g.genStmts(buf, n.Actions)
	buf.WriteString("    mov qword [_last_error], 0\n")
	fmt.Fprintf(buf, "%s:\n", skipLabel)
}

func (g *Generator) genWait(buf *strings.Builder, n *ast.WaitStatement) {
	g.genExpr(buf, n.Duration)
	var mult int64
	switch n.Unit {
	case ast.UnitMilliseconds:
		mult = 1_000_000
	case ast.UnitSeconds:
		mult = 1_000_000_000
	case ast.UnitMinutes:
		mult = 60_000_000_000
	case ast.UnitHours:
		mult = 3_600_000_000_000
	case ast.UnitDays:
		mult = 86_400_000_000_000
	default:
		mult = 1
	}
	fmt.Fprintf(buf, "    mov rbx, %d\n", mult)
	buf.WriteString("    imul rax, rbx\n")
	buf.WriteString("    mov rdi, rax\n    call _wait_ns\n")
}
