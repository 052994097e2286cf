package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

func (g *Generator) genAllocate(buf *strings.Builder, n *ast.AllocateStatement) {
	g.genExpr(buf, n.Size)
	buf.WriteString("    mov rdi, rax\n    call _alloc_buffer\n")
	v := g.slotFor(n.Name, ast.BufferType)
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
}

// genBufferDecl lowers both forms: a literal-size declaration (a zeroed
// data area) and a string-initializer declaration, which also rep
// movsb's the bytes in and null-terminates past the data.
func (g *Generator) genBufferDecl(buf *strings.Builder, n *ast.BufferDeclStatement) {
	v := g.slotFor(n.Name, ast.BufferType)
	if n.Initializer != nil {
		str, ok := n.Initializer.(*ast.StringLiteral)
		if ok {
			label := g.internString(str.Value)
			fmt.Fprintf(buf, "    mov rdi, %d\n", len(str.Value)+1)
			buf.WriteString("    call _alloc_buffer\n")
			buf.WriteString("    push rax\n")
			fmt.Fprintf(buf, "    mov rsi, %s\n", label)
			buf.WriteString("    mov rdi, rax\n")
			buf.WriteString("    add rdi, 24\n")
			fmt.Fprintf(buf, "    mov rcx, %d\n", len(str.Value))
			buf.WriteString("    rep movsb\n")
			buf.WriteString("    mov byte [rdi], 0\n")
			buf.WriteString("    pop rax\n")
			fmt.Fprintf(buf, "    mov qword [rax+8], %d\n", len(str.Value))
			fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
			return
		}
	}
	size := n.Size
	if size == nil {
		fmt.Fprintf(buf, "    mov rdi, 0\n")
	} else {
		g.genExpr(buf, size)
		buf.WriteString("    mov rdi, rax\n")
	}
	buf.WriteString("    call _alloc_buffer\n")
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
}

func (g *Generator) genByteSet(buf *strings.Builder, n *ast.ByteSetStatement) {
	g.genExpr(buf, n.Value)
	buf.WriteString("    push rax\n")
	g.genExpr(buf, n.Index)
	buf.WriteString("    dec rax\n")
	buf.WriteString("    push rax\n")
	v := g.lookup(n.Name)
	if v != nil {
		fmt.Fprintf(buf, "    mov rbx, %s\n", memOperand(n.Name, v))
	}
	buf.WriteString("    pop rax\n")
	okLabel := g.nextLabel("bset_ok")
	buf.WriteString("    cmp rax, 0\n")
	fmt.Fprintf(buf, "    jl %s_fail\n", okLabel)
	buf.WriteString("    cmp rax, [rbx+8]\n")
	fmt.Fprintf(buf, "    jl %s\n", okLabel)
	fmt.Fprintf(buf, "%s_fail:\n", okLabel)
	buf.WriteString("    mov qword [_last_error], 1\n")
	buf.WriteString("    pop rax\n")
	fmt.Fprintf(buf, "    jmp %s_done\n", okLabel)
	fmt.Fprintf(buf, "%s:\n", okLabel)
	buf.WriteString("    add rbx, rax\n")
	buf.WriteString("    pop rax\n")
	buf.WriteString("    mov [rbx+24], al\n")
	fmt.Fprintf(buf, "%s_done:\n", okLabel)
}

func (g *Generator) genElementSet(buf *strings.Builder, n *ast.ElementSetStatement) {
	g.genExpr(buf, n.Value)
	buf.WriteString("    push rax\n")
	g.genExpr(buf, n.Index)
	buf.WriteString("    dec rax\n")
	buf.WriteString("    push rax\n")
	v := g.lookup(n.Name)
	if v != nil {
		fmt.Fprintf(buf, "    mov rbx, %s\n", memOperand(n.Name, v))
	}
	buf.WriteString("    pop rax\n")
	okLabel := g.nextLabel("eset_ok")
	buf.WriteString("    cmp rax, 0\n")
	fmt.Fprintf(buf, "    jl %s_fail\n", okLabel)
	buf.WriteString("    cmp rax, [rbx+8]\n")
	fmt.Fprintf(buf, "    jl %s\n", okLabel)
	fmt.Fprintf(buf, "%s_fail:\n", okLabel)
	buf.WriteString("    mov qword [_last_error], 1\n")
	buf.WriteString("    pop rax\n")
	fmt.Fprintf(buf, "    jmp %s_done\n", okLabel)
	fmt.Fprintf(buf, "%s:\n", okLabel)
	buf.WriteString("    imul rax, rax, 8\n")
	buf.WriteString("    add rbx, rax\n")
	buf.WriteString("    pop rax\n")
	buf.WriteString("    mov [rbx+24], rax\n")
	fmt.Fprintf(buf, "%s_done:\n", okLabel)
}

// genListAppend may reallocate: on a capacity-full append it grows to
// double capacity via _grow_buffer and writes the new header pointer
// back into the variable's own slot before appending.
func (g *Generator) genListAppend(buf *strings.Builder, n *ast.ListAppendStatement) {
	v := g.lookup(n.Name)
	if v == nil {
		return
	}
	growLabel := g.nextLabel("append_grow")
	storeLabel := g.nextLabel("append_store")
	minOkLabel := g.nextLabel("append_min_ok")
	g.genExpr(buf, n.Value)
	buf.WriteString("    push rax\n")
	fmt.Fprintf(buf, "    mov rbx, %s\n", memOperand(n.Name, v))
	buf.WriteString("    mov rax, [rbx]\n")
	buf.WriteString("    cmp [rbx+8], rax\n")
	fmt.Fprintf(buf, "    jl %s\n", storeLabel)
	fmt.Fprintf(buf, "%s:\n", growLabel)
	buf.WriteString("    mov rdi, rbx\n")
	buf.WriteString("    mov rsi, [rbx]\n")
	buf.WriteString("    imul rsi, rsi, 2\n")
	buf.WriteString("    cmp rsi, 8\n")
	fmt.Fprintf(buf, "    jge %s\n", minOkLabel)
	buf.WriteString("    mov rsi, 8\n")
	fmt.Fprintf(buf, "%s:\n", minOkLabel)
	buf.WriteString("    call _grow_buffer\n")
	buf.WriteString("    mov rbx, rax\n")
	fmt.Fprintf(buf, "    mov %s, rbx\n", memOperand(n.Name, v))
	fmt.Fprintf(buf, "%s:\n", storeLabel)
	buf.WriteString("    mov rax, [rbx+8]\n")
	buf.WriteString("    imul rax, rax, 8\n")
	buf.WriteString("    add rax, rbx\n")
	buf.WriteString("    pop rcx\n")
	buf.WriteString("    mov [rax+24], rcx\n")
	buf.WriteString("    inc qword [rbx+8]\n")
}

func (g *Generator) genBufferResize(buf *strings.Builder, n *ast.BufferResizeStatement) {
	v := g.lookup(n.Name)
	if v == nil {
		return
	}
	g.genExpr(buf, n.NewSize)
	buf.WriteString("    mov rsi, rax\n")
	fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, v))
	buf.WriteString("    call _grow_buffer\n")
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
}
