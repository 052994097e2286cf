package codegen

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
)

// printBase enumerates the numeric bases PRINT_HEX_LOWER_ZEROPAD and
// friends dispatch on.
type printBase int

const (
	baseDecimal printBase = iota
	baseHexLower
	baseHexUpper
	baseBinary
	baseOctal
)

// formatSpec is the parsed form of a FormatPart's verbatim spec string,
// e.g. "04d" -> {width:4, zeroPad:true, base:decimal}, ".2f" ->
// {precision:2}, "x" -> {base:hexLower}.
type formatSpec struct {
	width     int
	zeroPad   bool
	base      printBase
	precision int
	hasPrec   bool
}

func parseFormatSpec(spec string) formatSpec {
	var fs formatSpec
	i := 0
	if i < len(spec) && spec[i] == '0' {
		fs.zeroPad = true
		i++
	}
	start := i
	for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
		i++
	}
	if i > start {
		fs.width, _ = strconv.Atoi(spec[start:i])
	}
	if i < len(spec) && spec[i] == '.' {
		i++
		start = i
		for i < len(spec) && spec[i] >= '0' && spec[i] <= '9' {
			i++
		}
		fs.precision, _ = strconv.Atoi(spec[start:i])
		fs.hasPrec = true
	}
	if i < len(spec) {
		switch spec[i] {
		case 'x':
			fs.base = baseHexLower
		case 'X':
			fs.base = baseHexUpper
		case 'b':
			fs.base = baseBinary
		case 'o':
			fs.base = baseOctal
		}
	}
	return fs
}

// genFormatString emits code that prints every part of n in order,
// dispatching each placeholder to the runtime print macro family
// implied by its operand's type and parsed format spec. withNewline
// appends a trailing newline once all parts have printed, matching
// PrintStatement.WithoutNewline.
func (g *Generator) genFormatString(buf *strings.Builder, n *ast.FormatStringExpression, withNewline bool) {
	for _, p := range n.Parts {
		switch p.Kind {
		case ast.FormatLiteral:
			if p.Text == "" {
				continue
			}
			label := g.internString(p.Text)
			fmt.Fprintf(buf, "    mov rdi, %s\n", label)
			buf.WriteString("    call print_cstr\n")
		case ast.FormatVariable:
			spec := formatSpec{}
			if p.HasSpec {
				spec = parseFormatSpec(p.Spec)
			}
			g.genIdentifierLoad(buf, p.Text)
			v := g.lookup(p.Text)
			typ := ast.Unknown
			if v != nil {
				typ = v.typ
			}
			g.emitPrintDispatch(buf, typ, spec)
		case ast.FormatExpression:
			spec := formatSpec{}
			if p.HasSpec {
				spec = parseFormatSpec(p.Spec)
			}
			g.genExpr(buf, p.Expr)
			g.emitPrintDispatch(buf, p.Expr.GetType(), spec)
		}
	}
	if withNewline {
		nl := g.internString("\n")
		fmt.Fprintf(buf, "    mov rdi, %s\n", nl)
		buf.WriteString("    call print_cstr\n")
	}
}

// emitPrintDispatch assumes the value to print is already in rax (or
// xmm0 for Float) and selects the runtime print routine per spec's
// type/spec -> macro-family mapping.
func (g *Generator) emitPrintDispatch(buf *strings.Builder, typ ast.Type, spec formatSpec) {
	switch typ {
	case ast.StringType:
		buf.WriteString("    mov rdi, rax\n    call print_cstr\n")
	case ast.FloatType:
		if spec.hasPrec {
			fmt.Fprintf(buf, "    mov rcx, %d\n", spec.precision)
			buf.WriteString("    call print_float_precision\n")
		} else {
			buf.WriteString("    call print_float\n")
		}
	default:
		switch spec.base {
		case baseDecimal:
			if spec.width > 0 {
				fmt.Fprintf(buf, "    mov rdi, %d\n", spec.width)
				zp := 0
				if spec.zeroPad {
					zp = 1
				}
				fmt.Fprintf(buf, "    mov rsi, %d\n", zp)
				buf.WriteString("    call print_int_padded\n")
			} else {
				buf.WriteString("    call print_int\n")
			}
		case baseHexLower:
			buf.WriteString("    mov rbx, 16\n    xor rdx, rdx\n    call print_base_n\n")
		case baseHexUpper:
			buf.WriteString("    mov rbx, 16\n    mov rdx, 1\n    call print_base_n\n")
		case baseBinary:
			buf.WriteString("    mov rbx, 2\n    xor rdx, rdx\n    call print_base_n\n")
		case baseOctal:
			buf.WriteString("    mov rbx, 8\n    xor rdx, rdx\n    call print_base_n\n")
		}
	}
}
