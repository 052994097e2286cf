package codegen

import (
	"fmt"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

// genFileOpen dispatches to one of the three open-mode entry points,
// leaving the resulting fd (or a negative value on failure, which also
// sets _last_error) in the variable's slot.
func (g *Generator) genFileOpen(buf *strings.Builder, n *ast.FileOpenStatement) {
	g.genExpr(buf, n.Path)
	buf.WriteString("    mov rdi, rax\n")
	switch n.Mode {
	case ast.ModeReading:
		buf.WriteString("    call _file_open_read\n")
	case ast.ModeWriting:
		buf.WriteString("    call _file_open_write\n")
	case ast.ModeAppending:
		buf.WriteString("    call _file_open_append\n")
	}
	v := g.slotFor(n.Name, ast.FileType)
	fmt.Fprintf(buf, "    mov %s, rax\n", memOperand(n.Name, v))
}

// fdGuard wraps body so it only runs when the file variable's fd slot
// holds a non-negative value, per spec's "all subsequent file
// operations test for a negative fd and skip when invalid" rule.
func (g *Generator) fdGuard(buf *strings.Builder, name string, body func()) {
	v := g.lookup(name)
	if v == nil {
		return
	}
	skip := g.nextLabel("fd_skip")
	fmt.Fprintf(buf, "    cmp qword %s, 0\n", memOperand(name, v))
	fmt.Fprintf(buf, "    jl %s\n", skip)
	body()
	fmt.Fprintf(buf, "%s:\n", skip)
}

func (g *Generator) genFileReadWhole(buf *strings.Builder, n *ast.FileReadStatement) {
	targetV := g.slotFor(n.Target, ast.BufferType)
	g.fdGuard(buf, n.Name, func() {
		fv := g.lookup(n.Name)
		buf.WriteString("    mov rdi, 65536\n")
		buf.WriteString("    call _alloc_buffer\n")
		buf.WriteString("    push rax\n")
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    mov rsi, rax\n")
		buf.WriteString("    add rsi, 24\n")
		buf.WriteString("    mov rdx, 65536\n")
		buf.WriteString("    xor rax, rax\n") // sys_read
		buf.WriteString("    syscall\n")
		buf.WriteString("    pop rbx\n")
		buf.WriteString("    cmp rax, 0\n")
		okLabel := g.nextLabel("read_ok")
		fmt.Fprintf(buf, "    jge %s\n", okLabel)
		buf.WriteString("    mov qword [_last_error], 1\n")
		buf.WriteString("    xor rax, rax\n")
		fmt.Fprintf(buf, "%s:\n", okLabel)
		buf.WriteString("    mov [rbx+8], rax\n")
		fmt.Fprintf(buf, "    mov %s, rbx\n", memOperand(n.Target, targetV))
	})
}

func (g *Generator) genFileReadLine(buf *strings.Builder, n *ast.FileReadLineStatement) {
	targetV := g.slotFor(n.Target, ast.BufferType)
	g.fdGuard(buf, n.Name, func() {
		fv := g.lookup(n.Name)
		buf.WriteString("    mov rdi, 4096\n")
		buf.WriteString("    call _alloc_buffer\n")
		buf.WriteString("    push rax\n")
		buf.WriteString("    xor r12, r12\n") // bytes read so far
		loopLabel := g.nextLabel("readline_loop")
		doneLabel := g.nextLabel("readline_done")
		fmt.Fprintf(buf, "%s:\n", loopLabel)
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    mov rbx, [rsp]\n")
		buf.WriteString("    lea rsi, [rbx+24+r12]\n")
		buf.WriteString("    mov rdx, 1\n")
		buf.WriteString("    xor rax, rax\n")
		buf.WriteString("    syscall\n")
		buf.WriteString("    cmp rax, 1\n")
		fmt.Fprintf(buf, "    jne %s\n", doneLabel)
		buf.WriteString("    mov rbx, [rsp]\n")
		buf.WriteString("    movzx rax, byte [rbx+24+r12]\n")
		buf.WriteString("    inc r12\n")
		buf.WriteString("    cmp rax, 10\n")
		fmt.Fprintf(buf, "    jne %s\n", loopLabel)
		fmt.Fprintf(buf, "%s:\n", doneLabel)
		buf.WriteString("    pop rbx\n")
		buf.WriteString("    mov [rbx+8], r12\n")
		fmt.Fprintf(buf, "    mov %s, rbx\n", memOperand(n.Target, targetV))
	})
}

func (g *Generator) genFileSeekLine(buf *strings.Builder, n *ast.FileSeekLineStatement) {
	// Line-based seeking re-reads from the start, counting newlines,
	// since the runtime keeps no line-offset index for an open file.
	g.fdGuard(buf, n.Name, func() {
		fv := g.lookup(n.Name)
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    xor rsi, rsi\n    xor rdx, rdx\n") // lseek(fd, 0, SEEK_SET)
		buf.WriteString("    mov rax, 8\n    syscall\n")
		g.genExpr(buf, n.Line)
		buf.WriteString("    dec rax\n")
		buf.WriteString("    mov r12, rax\n")
		scanLabel := g.nextLabel("seekline_scan")
		doneLabel := g.nextLabel("seekline_done")
		fmt.Fprintf(buf, "%s:\n", scanLabel)
		buf.WriteString("    cmp r12, 0\n")
		fmt.Fprintf(buf, "    jle %s\n", doneLabel)
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    lea rsi, [_char_buf]\n    mov rdx, 1\n    xor rax, rax\n    syscall\n")
		buf.WriteString("    cmp rax, 1\n")
		fmt.Fprintf(buf, "    jne %s\n", doneLabel)
		buf.WriteString("    movzx rax, byte [_char_buf]\n")
		buf.WriteString("    cmp rax, 10\n")
		fmt.Fprintf(buf, "    jne %s\n", scanLabel)
		buf.WriteString("    dec r12\n")
		fmt.Fprintf(buf, "    jmp %s\n", scanLabel)
		fmt.Fprintf(buf, "%s:\n", doneLabel)
	})
}

func (g *Generator) genFileSeekByte(buf *strings.Builder, n *ast.FileSeekByteStatement) {
	g.fdGuard(buf, n.Name, func() {
		fv := g.lookup(n.Name)
		g.genExpr(buf, n.Offset)
		buf.WriteString("    mov rsi, rax\n")
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    xor rdx, rdx\n") // SEEK_SET
		buf.WriteString("    mov rax, 8\n    syscall\n")
	})
}

func (g *Generator) genFileWrite(buf *strings.Builder, name string, value ast.Expression, newline bool) {
	g.fdGuard(buf, name, func() {
		fv := g.lookup(name)
		g.genExpr(buf, value)
		buf.WriteString("    push rax\n")
		buf.WriteString("    xor rcx, rcx\n")
		strlenLabel := g.nextLabel("write_strlen")
		doneLabel := g.nextLabel("write_strlen_done")
		buf.WriteString("    mov rbx, [rsp]\n")
		fmt.Fprintf(buf, "%s:\n", strlenLabel)
		buf.WriteString("    cmp byte [rbx+rcx], 0\n")
		fmt.Fprintf(buf, "    je %s\n", doneLabel)
		buf.WriteString("    inc rcx\n")
		fmt.Fprintf(buf, "    jmp %s\n", strlenLabel)
		fmt.Fprintf(buf, "%s:\n", doneLabel)
		buf.WriteString("    pop rsi\n")
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(name, fv))
		buf.WriteString("    mov rdx, rcx\n")
		buf.WriteString("    mov rax, 1\n    syscall\n") // sys_write
		if newline {
			fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(name, fv))
			buf.WriteString("    lea rsi, [_newline_byte]\n    mov rdx, 1\n    mov rax, 1\n    syscall\n")
		}
	})
}

func (g *Generator) genFileClose(buf *strings.Builder, n *ast.FileCloseStatement) {
	g.fdGuard(buf, n.Name, func() {
		fv := g.lookup(n.Name)
		fmt.Fprintf(buf, "    mov rdi, %s\n", memOperand(n.Name, fv))
		buf.WriteString("    mov rax, 3\n    syscall\n") // sys_close
	})
}
