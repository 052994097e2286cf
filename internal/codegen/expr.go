package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

// genExpr lowers e into buf, leaving the result in rax (Integer/String/
// Boolean/Buffer/List/pointer-shaped values) or xmm0 (Float). Callers
// that need a specific register convention for a sub-expression push/
// pop around nested genExpr calls rather than threading a destination
// operand through every case.
func (g *Generator) genExpr(buf *strings.Builder, e ast.Expression) {
	switch n := e.(type) {
	case *ast.IntegerLiteral:
		fmt.Fprintf(buf, "    mov rax, %d\n", n.Value)
	case *ast.FloatLiteral:
		label := g.nextFloatLabel()
		fmt.Fprintf(&g.data, "%s: dq %s\n", label, formatFloatBits(n.Value))
		fmt.Fprintf(buf, "    movsd xmm0, [%s]\n", label)
	case *ast.BooleanLiteral:
		if n.Value {
			buf.WriteString("    mov rax, 1\n")
		} else {
			buf.WriteString("    mov rax, 0\n")
		}
	case *ast.StringLiteral:
		label := g.internString(n.Value)
		fmt.Fprintf(buf, "    mov rax, %s\n", label)
	case *ast.FormatStringExpression:
		g.genFormatString(buf, n, true)
	case *ast.Identifier:
		g.genIdentifierLoad(buf, n.Name)
	case *ast.BinaryExpression:
		g.genBinary(buf, n)
	case *ast.UnaryExpression:
		g.genUnary(buf, n)
	case *ast.PropertyCheckExpression:
		g.genPropertyCheck(buf, n)
	case *ast.CallExpression:
		g.genCall(buf, n)
	case *ast.ListLiteral:
		g.genListLiteral(buf, n)
	case *ast.ListAccessExpression:
		g.genListIndexAccess(buf, n.List, n.Index, 0)
	case *ast.ElementAccessExpression:
		g.genListIndexAccess(buf, n.List, n.Index, 1)
	case *ast.ByteAccessExpression:
		g.genByteAccess(buf, n.Buffer, n.Index)
	case *ast.PropertyAccessExpression:
		g.genPropertyAccess(buf, n)
	case *ast.CastExpression:
		g.genCast(buf, n)
	case *ast.DurationCastExpression:
		g.genDurationCast(buf, n)
	case *ast.TreatingAsExpression:
		g.genTreatingAs(buf, n)
	case *ast.ArgumentReferenceExpression:
		g.genArgumentRef(buf, n)
	case *ast.EnvironmentReferenceExpression:
		g.genEnvironmentRef(buf, n)
	case *ast.CurrentTimeExpression:
		buf.WriteString("    call _clock_now\n")
	case *ast.LastErrorExpression:
		buf.WriteString("    mov rax, [_last_error]\n")
	case *ast.RangeExpression:
		g.genExpr(buf, n.Start)
	default:
		fmt.Fprintf(buf, "    ; unsupported expression %T\n", e)
	}
}

func (g *Generator) isFloatExpr(e ast.Expression) bool {
	return e != nil && e.GetType() == ast.FloatType
}

func (g *Generator) genIdentifierLoad(buf *strings.Builder, name string) {
	v := g.lookup(name)
	if v == nil {
		fmt.Fprintf(buf, "    ; unresolved identifier %s\n", name)
		buf.WriteString("    xor rax, rax\n")
		return
	}
	if v.typ == ast.FloatType {
		fmt.Fprintf(buf, "    movsd xmm0, %s\n", memOperand(name, v))
	} else {
		fmt.Fprintf(buf, "    mov rax, %s\n", memOperand(name, v))
	}
}

// internString deduplicates identical literal text is not attempted
// (each occurrence gets its own label) — matching the single-pass
// emitter's no-lookahead, no-second-pass design.
func (g *Generator) internString(s string) string {
	label := g.nextStrLabel()
	fmt.Fprintf(&g.data, "%s: db %s, 0\n", label, nasmStringBytes(s))
	return label
}

func nasmStringBytes(s string) string {
	var b strings.Builder
	inQuote := false
	flush := func() {
		if inQuote {
			b.WriteByte('\'')
			inQuote = false
		}
	}
	open := func() {
		if !inQuote {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('\'')
			inQuote = true
		} else {
			b.WriteByte(',')
		}
	}
	for _, r := range s {
		switch r {
		case '\n':
			flush()
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString("10")
		case '\t':
			flush()
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString("9")
		case '\r':
			flush()
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString("13")
		case '\'':
			open()
			b.WriteString("\\'")
		default:
			open()
			b.WriteRune(r)
		}
	}
	flush()
	if b.Len() == 0 {
		return "''"
	}
	return b.String()
}

func formatFloatBits(v float64) string {
	return fmt.Sprintf("__float64__(%v)", v)
}

// genBinary inspects both operand subtrees' inferred types to pick the
// integer or SSE2 path, converting an Integer operand to Float with
// INT_TO_FLOAT when the other operand is Float. Comparisons on floats
// use ucomisd with the jump inverted to encode NaN-unordered-is-false
// semantics; on integers they use the signed SETcc family.
func (g *Generator) genBinary(buf *strings.Builder, n *ast.BinaryExpression) {
	switch n.Operator {
	case ast.OpAnd:
		g.genShortCircuit(buf, n, true)
		return
	case ast.OpOr:
		g.genShortCircuit(buf, n, false)
		return
	}

	float := g.isFloatExpr(n.Left) || g.isFloatExpr(n.Right) || g.isFloatExpr(n)
	if float {
		g.genFloatBinary(buf, n)
		return
	}

	g.genExpr(buf, n.Left)
	buf.WriteString("    push rax\n")
	g.genExpr(buf, n.Right)
	buf.WriteString("    mov rbx, rax\n")
	buf.WriteString("    pop rax\n")

	switch n.Operator {
	case ast.OpAdd:
		buf.WriteString("    add rax, rbx\n")
	case ast.OpSubtract:
		buf.WriteString("    sub rax, rbx\n")
	case ast.OpMultiply:
		buf.WriteString("    imul rax, rbx\n")
	case ast.OpDivide:
		buf.WriteString("    cqo\n    idiv rbx\n")
	case ast.OpModulo:
		buf.WriteString("    cqo\n    idiv rbx\n    mov rax, rdx\n")
	case ast.OpEqual:
		emitSetcc(buf, "sete")
	case ast.OpNotEqual:
		emitSetcc(buf, "setne")
	case ast.OpGreaterThan:
		emitSetcc(buf, "setg")
	case ast.OpLessThan:
		emitSetcc(buf, "setl")
	case ast.OpGreaterOrEqual:
		emitSetcc(buf, "setge")
	case ast.OpLessOrEqual:
		emitSetcc(buf, "setle")
	case ast.OpBitAnd:
		buf.WriteString("    and rax, rbx\n")
	case ast.OpBitOr:
		buf.WriteString("    or rax, rbx\n")
	case ast.OpBitXor:
		buf.WriteString("    xor rax, rbx\n")
	case ast.OpShiftLeft:
		buf.WriteString("    mov rcx, rbx\n    shl rax, cl\n")
	case ast.OpShiftRight:
		buf.WriteString("    mov rcx, rbx\n    sar rax, cl\n")
	default:
		fmt.Fprintf(buf, "    ; unsupported binary operator %v\n", n.Operator)
	}
}

func emitSetcc(buf *strings.Builder, instr string) {
	buf.WriteString("    cmp rax, rbx\n")
	fmt.Fprintf(buf, "    %s al\n", instr)
	buf.WriteString("    movzx rax, al\n")
}

func (g *Generator) genFloatBinary(buf *strings.Builder, n *ast.BinaryExpression) {
	g.genExpr(buf, n.Left)
	if !g.isFloatExpr(n.Left) {
		buf.WriteString("    call int_to_float\n")
	}
	buf.WriteString("    sub rsp, 8\n    movsd [rsp], xmm0\n")
	g.genExpr(buf, n.Right)
	if !g.isFloatExpr(n.Right) {
		buf.WriteString("    call int_to_float\n")
	}
	buf.WriteString("    movsd xmm1, xmm0\n")
	buf.WriteString("    movsd xmm0, [rsp]\n    add rsp, 8\n")

	switch n.Operator {
	case ast.OpAdd:
		buf.WriteString("    addsd xmm0, xmm1\n")
	case ast.OpSubtract:
		buf.WriteString("    subsd xmm0, xmm1\n")
	case ast.OpMultiply:
		buf.WriteString("    mulsd xmm0, xmm1\n")
	case ast.OpDivide:
		buf.WriteString("    divsd xmm0, xmm1\n")
	case ast.OpBitAnd, ast.OpBitOr, ast.OpBitXor, ast.OpShiftLeft, ast.OpShiftRight:
		// Bitwise ops on floats convert both operands to integer first.
		buf.WriteString("    cvttsd2si rax, xmm0\n")
		buf.WriteString("    cvttsd2si rbx, xmm1\n")
		switch n.Operator {
		case ast.OpBitAnd:
			buf.WriteString("    and rax, rbx\n")
		case ast.OpBitOr:
			buf.WriteString("    or rax, rbx\n")
		case ast.OpBitXor:
			buf.WriteString("    xor rax, rbx\n")
		case ast.OpShiftLeft:
			buf.WriteString("    mov rcx, rbx\n    shl rax, cl\n")
		case ast.OpShiftRight:
			buf.WriteString("    mov rcx, rbx\n    sar rax, cl\n")
		}
	case ast.OpEqual, ast.OpNotEqual, ast.OpGreaterThan, ast.OpLessThan,
		ast.OpGreaterOrEqual, ast.OpLessOrEqual:
		g.genFloatComparison(buf, n.Operator)
	default:
		fmt.Fprintf(buf, "    ; unsupported float binary operator %v\n", n.Operator)
	}
}

// genFloatComparison encodes NaN-unordered-as-false by inverting the
// sense of the jump taken on the parity flag ucomisd sets for an
// unordered result, per spec.
func (g *Generator) genFloatComparison(buf *strings.Builder, op ast.BinaryOperator) {
	trueLabel := g.nextLabel("fcmp_true")
	doneLabel := g.nextLabel("fcmp_done")
	buf.WriteString("    ucomisd xmm0, xmm1\n")
	switch op {
	case ast.OpEqual:
		fmt.Fprintf(buf, "    jp %s_false\n", trueLabel)
		fmt.Fprintf(buf, "    je %s\n", trueLabel)
	case ast.OpNotEqual:
		fmt.Fprintf(buf, "    jp %s\n", trueLabel)
		fmt.Fprintf(buf, "    jne %s\n", trueLabel)
	case ast.OpGreaterThan:
		fmt.Fprintf(buf, "    jp %s_false\n", trueLabel)
		fmt.Fprintf(buf, "    ja %s\n", trueLabel)
	case ast.OpLessThan:
		fmt.Fprintf(buf, "    jp %s_false\n", trueLabel)
		fmt.Fprintf(buf, "    jb %s\n", trueLabel)
	case ast.OpGreaterOrEqual:
		fmt.Fprintf(buf, "    jp %s_false\n", trueLabel)
		fmt.Fprintf(buf, "    jae %s\n", trueLabel)
	case ast.OpLessOrEqual:
		fmt.Fprintf(buf, "    jp %s_false\n", trueLabel)
		fmt.Fprintf(buf, "    jbe %s\n", trueLabel)
	}
	fmt.Fprintf(buf, "%s_false:\n", trueLabel)
	buf.WriteString("    mov rax, 0\n")
	fmt.Fprintf(buf, "    jmp %s\n", doneLabel)
	fmt.Fprintf(buf, "%s:\n", trueLabel)
	buf.WriteString("    mov rax, 1\n")
	fmt.Fprintf(buf, "%s:\n", doneLabel)
}

// genShortCircuit implements and/or without evaluating the right side
// when the left side already settles the result.
func (g *Generator) genShortCircuit(buf *strings.Builder, n *ast.BinaryExpression, isAnd bool) {
	shortLabel := g.nextLabel("sc_short")
	doneLabel := g.nextLabel("sc_done")
	g.genExpr(buf, n.Left)
	buf.WriteString("    test rax, rax\n")
	if isAnd {
		fmt.Fprintf(buf, "    jz %s\n", shortLabel)
	} else {
		fmt.Fprintf(buf, "    jnz %s\n", shortLabel)
	}
	g.genExpr(buf, n.Right)
	buf.WriteString("    test rax, rax\n")
	buf.WriteString("    setnz al\n    movzx rax, al\n")
	fmt.Fprintf(buf, "    jmp %s\n", doneLabel)
	fmt.Fprintf(buf, "%s:\n", shortLabel)
	if isAnd {
		buf.WriteString("    mov rax, 0\n")
	} else {
		buf.WriteString("    mov rax, 1\n")
	}
	fmt.Fprintf(buf, "%s:\n", doneLabel)
}

func (g *Generator) genUnary(buf *strings.Builder, n *ast.UnaryExpression) {
	g.genExpr(buf, n.Operand)
	switch n.Operator {
	case ast.OpNegate:
		if g.isFloatExpr(n.Operand) {
			negLabel := g.nextFloatLabel()
			fmt.Fprintf(&g.data, "%s: dq __float64__(-0.0)\n", negLabel)
			fmt.Fprintf(buf, "    xorpd xmm0, [%s]\n", negLabel)
		} else {
			buf.WriteString("    neg rax\n")
		}
	case ast.OpNot:
		buf.WriteString("    test rax, rax\n    setz al\n    movzx rax, al\n")
	case ast.OpBitNot:
		buf.WriteString("    not rax\n")
	}
}

func (g *Generator) genPropertyCheck(buf *strings.Builder, n *ast.PropertyCheckExpression) {
	g.genExpr(buf, n.Value)
	switch n.Kind {
	case ast.CheckEven:
		buf.WriteString("    and rax, 1\n    xor rax, 1\n    and rax, 1\n")
	case ast.CheckOdd:
		buf.WriteString("    and rax, 1\n")
	case ast.CheckZero:
		buf.WriteString("    test rax, rax\n    setz al\n    movzx rax, al\n")
	case ast.CheckPositive:
		buf.WriteString("    test rax, rax\n    setg al\n    movzx rax, al\n")
	case ast.CheckNegative:
		buf.WriteString("    test rax, rax\n    setl al\n    movzx rax, al\n")
	case ast.CheckEmpty:
		buf.WriteString("    mov rax, [rax+8]\n    test rax, rax\n    setz al\n    movzx rax, al\n")
	}
}

// genCall evaluates arguments right-to-left onto the stack (so the first
// argument ends up on top and pops into rdi), pops the first six into
// the SysV argument registers, 16-byte-aligns the stack, and calls the
// function's label.
func (g *Generator) genCall(buf *strings.Builder, n *ast.CallExpression) {
	argRegs := []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	extra := len(n.Arguments) - len(argRegs)
	if extra < 0 {
		extra = 0
	}
	needPad := extra%2 == 1
	if needPad {
		buf.WriteString("    sub rsp, 8\n")
	}
	for i := len(n.Arguments) - 1; i >= 0; i-- {
		g.genExpr(buf, n.Arguments[i])
		if g.isFloatExpr(n.Arguments[i]) {
			buf.WriteString("    sub rsp, 8\n    movsd [rsp], xmm0\n")
		} else {
			buf.WriteString("    push rax\n")
		}
	}
	for i := 0; i < len(n.Arguments) && i < len(argRegs); i++ {
		fmt.Fprintf(buf, "    pop %s\n", argRegs[i])
	}
	fmt.Fprintf(buf, "    call %s\n", funcLabel(n.Name))
	if extra > 0 {
		fmt.Fprintf(buf, "    add rsp, %d\n", extra*8)
	}
	if needPad {
		buf.WriteString("    add rsp, 8\n")
	}
}

func funcLabel(name string) string { return "_fn_" + sanitize(name) }

func (g *Generator) genListLiteral(buf *strings.Builder, n *ast.ListLiteral) {
	count := len(n.Elements)
	if count < 8 {
		count = 8
	}
	fmt.Fprintf(buf, "    mov rdi, %d\n", count*8)
	buf.WriteString("    call _alloc_buffer\n")
	buf.WriteString("    push rax\n")
	for i, el := range n.Elements {
		g.genExpr(buf, el)
		buf.WriteString("    mov rbx, [rsp]\n")
		fmt.Fprintf(buf, "    mov [rbx+24+%d], rax\n", i*8)
	}
	buf.WriteString("    pop rax\n")
	fmt.Fprintf(buf, "    mov qword [rax+8], %d\n", len(n.Elements))
}

// genListIndexAccess handles both 0-indexed internal list access and
// 1-indexed user-facing element access (indexBias selects which), with
// an explicit bounds check: on violation _last_error is set and the
// expression yields 0 rather than aborting.
func (g *Generator) genListIndexAccess(buf *strings.Builder, list, index ast.Expression, indexBias int64) {
	g.genExpr(buf, index)
	if indexBias != 0 {
		fmt.Fprintf(buf, "    sub rax, %d\n", indexBias)
	}
	buf.WriteString("    push rax\n")
	g.genExpr(buf, list)
	buf.WriteString("    mov rbx, rax\n")
	buf.WriteString("    pop rax\n")
	okLabel := g.nextLabel("idx_ok")
	doneLabel := g.nextLabel("idx_done")
	buf.WriteString("    cmp rax, 0\n")
	fmt.Fprintf(buf, "    jl %s_fail\n", okLabel)
	buf.WriteString("    cmp rax, [rbx+8]\n")
	fmt.Fprintf(buf, "    jl %s\n", okLabel)
	fmt.Fprintf(buf, "%s_fail:\n", okLabel)
	buf.WriteString("    mov qword [_last_error], 1\n")
	buf.WriteString("    mov rax, 0\n")
	fmt.Fprintf(buf, "    jmp %s\n", doneLabel)
	fmt.Fprintf(buf, "%s:\n", okLabel)
	buf.WriteString("    imul rax, rax, 8\n")
	buf.WriteString("    add rax, rbx\n")
	buf.WriteString("    mov rax, [rax+24]\n")
	fmt.Fprintf(buf, "%s:\n", doneLabel)
}

func (g *Generator) genByteAccess(buf *strings.Builder, bufExpr, index ast.Expression) {
	g.genExpr(buf, index)
	buf.WriteString("    dec rax\n")
	buf.WriteString("    push rax\n")
	g.genExpr(buf, bufExpr)
	buf.WriteString("    mov rbx, rax\n")
	buf.WriteString("    pop rax\n")
	okLabel := g.nextLabel("byte_ok")
	doneLabel := g.nextLabel("byte_done")
	buf.WriteString("    cmp rax, 0\n")
	fmt.Fprintf(buf, "    jl %s_fail\n", okLabel)
	buf.WriteString("    cmp rax, [rbx+8]\n")
	fmt.Fprintf(buf, "    jl %s\n", okLabel)
	fmt.Fprintf(buf, "%s_fail:\n", okLabel)
	buf.WriteString("    mov qword [_last_error], 1\n")
	buf.WriteString("    mov rax, 0\n")
	fmt.Fprintf(buf, "    jmp %s\n", doneLabel)
	fmt.Fprintf(buf, "%s:\n", okLabel)
	buf.WriteString("    add rax, rbx\n")
	buf.WriteString("    movzx rax, byte [rax+24]\n")
	fmt.Fprintf(buf, "%s:\n", doneLabel)
}

// genPropertyAccess lowers the possessive "object's property" family.
// Size/capacity/length/full read the buffer/list header directly;
// start/end time and running read the timer words, and elapsed/duration
// subtract the start time from _clock_now inline. Every other property
// (first, last, the filesystem-metadata and date/number properties) is
// not lowered: the object's own value is left in rax unchanged.
func (g *Generator) genPropertyAccess(buf *strings.Builder, n *ast.PropertyAccessExpression) {
	switch n.Property {
	case ast.PropSize, ast.PropCapacity:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rax, [rax]\n")
	case ast.PropLength:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rax, [rax+8]\n")
	case ast.PropFull:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rbx, [rax]\n")
		buf.WriteString("    cmp [rax+8], rbx\n")
		buf.WriteString("    sete al\n    movzx rax, al\n")
	case ast.PropStartTime, ast.PropCurrent:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rax, [rax]\n")
	case ast.PropEndTime:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rax, [rax+8]\n")
	case ast.PropElapsed, ast.PropDuration:
		g.genExpr(buf, n.Object)
		buf.WriteString("    push rax\n")
		buf.WriteString("    call _clock_now\n")
		buf.WriteString("    mov rbx, rax\n")
		buf.WriteString("    pop rax\n")
		buf.WriteString("    mov rax, [rax]\n")
		buf.WriteString("    sub rbx, rax\n")
		buf.WriteString("    mov rax, rbx\n")
	case ast.PropRunning:
		g.genExpr(buf, n.Object)
		buf.WriteString("    mov rax, [rax+8]\n")
		buf.WriteString("    test rax, rax\n    setz al\n    movzx rax, al\n")
	default:
		g.genExpr(buf, n.Object)
		fmt.Fprintf(buf, "    ; property %v read as identity\n", n.Property)
	}
}

func (g *Generator) genCast(buf *strings.Builder, n *ast.CastExpression) {
	g.genExpr(buf, n.Value)
	from, to := n.Value.GetType(), n.TargetType
	if from == ast.FloatType && to != ast.FloatType {
		buf.WriteString("    cvttsd2si rax, xmm0\n")
	} else if from != ast.FloatType && to == ast.FloatType {
		buf.WriteString("    cvtsi2sd xmm0, rax\n")
	}
}

func (g *Generator) genDurationCast(buf *strings.Builder, n *ast.DurationCastExpression) {
	g.genExpr(buf, n.Value)
	var divisor int64
	switch n.Unit {
	case ast.UnitMilliseconds:
		divisor = 1_000_000
	case ast.UnitSeconds:
		divisor = 1_000_000_000
	case ast.UnitMinutes:
		divisor = 60_000_000_000
	case ast.UnitHours:
		divisor = 3_600_000_000_000
	case ast.UnitDays:
		divisor = 86_400_000_000_000
	default:
		divisor = 1
	}
	fmt.Fprintf(buf, "    mov rbx, %d\n", divisor)
	buf.WriteString("    cqo\n    idiv rbx\n")
}

// genTreatingAs implements inline substitution: evaluate Value, compare
// to Match, yield Replacement when equal, else Value unchanged.
func (g *Generator) genTreatingAs(buf *strings.Builder, n *ast.TreatingAsExpression) {
	g.genExpr(buf, n.Value)
	buf.WriteString("    push rax\n")
	g.genExpr(buf, n.Match)
	buf.WriteString("    mov rbx, rax\n")
	buf.WriteString("    pop rax\n")
	buf.WriteString("    cmp rax, rbx\n")
	skipLabel := g.nextLabel("treat_skip")
	fmt.Fprintf(buf, "    jne %s\n", skipLabel)
	g.genExpr(buf, n.Replacement)
	fmt.Fprintf(buf, "%s:\n", skipLabel)
}

// genArgumentRef lowers the "arguments's ..." family against the
// _argc/_argv slots _start populated. Count/at/first/last read argv
// directly; empty derives a boolean from argc. Second, has, name and
// exists are not lowered and yield 0.
func (g *Generator) genArgumentRef(buf *strings.Builder, n *ast.ArgumentReferenceExpression) {
	switch n.Kind {
	case ast.ArgCount:
		buf.WriteString("    mov rax, [_argc]\n    dec rax\n")
	case ast.ArgAt:
		if n.Index != nil {
			g.genExpr(buf, n.Index)
		}
		buf.WriteString("    mov rbx, [_argv]\n")
		buf.WriteString("    mov rax, [rbx+rax*8+8]\n")
	case ast.ArgFirst:
		buf.WriteString("    mov rbx, [_argv]\n    mov rax, [rbx+8]\n")
	case ast.ArgLast:
		buf.WriteString("    mov rcx, [_argc]\n    dec rcx\n")
		buf.WriteString("    mov rbx, [_argv]\n    mov rax, [rbx+rcx*8]\n")
	case ast.ArgEmpty:
		buf.WriteString("    mov rax, [_argc]\n    cmp rax, 1\n    setle al\n    movzx rax, al\n")
	case ast.ArgAll, ast.ArgRaw:
		buf.WriteString("    lea rax, [_argv]\n")
	default:
		fmt.Fprintf(buf, "    ; unsupported argument reference %v\n", n.Kind)
		buf.WriteString("    xor rax, rax\n")
	}
}

func (g *Generator) genEnvironmentRef(buf *strings.Builder, n *ast.EnvironmentReferenceExpression) {
	switch n.Kind {
	case ast.EnvGet:
		if n.Name != nil {
			g.genExpr(buf, n.Name)
		}
		buf.WriteString("    mov rdi, rax\n    call _getenv\n")
	case ast.EnvExists:
		if n.Name != nil {
			g.genExpr(buf, n.Name)
		}
		buf.WriteString("    mov rdi, rax\n    call _getenv\n")
		buf.WriteString("    test rax, rax\n    setnz al\n    movzx rax, al\n")
	default:
		fmt.Fprintf(buf, "    ; unsupported environment reference %v\n", n.Kind)
		buf.WriteString("    xor rax, rax\n")
	}
}
