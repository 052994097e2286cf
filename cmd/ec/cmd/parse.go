package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ec-lang/ec/internal/ast"
	"github.com/ec-lang/ec/internal/lexer"
	"github.com/ec-lang/ec/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a source file and print its syntax tree",
	Long: `Parse a source file and display its statement tree.

This command is a debugging aid for understanding how source text is
structured into statements and expressions before analysis.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}

	lines := strings.Split(source, "\n")
	l := lexer.New(source)
	p := parser.New(l.Tokenize(), filename, lines)
	prog, perr := parser.ParseProgram(p)
	if perr != nil {
		fmt.Fprint(os.Stderr, perr.Format(false))
		return fmt.Errorf("parsing failed")
	}

	for _, stmt := range prog.Statements {
		dumpStatement(stmt, 0)
	}
	return nil
}

func dumpStatement(stmt ast.Statement, indent int) {
	pad := strings.Repeat("  ", indent)
	fmt.Printf("%s%s\n", pad, stmt.String())

	switch n := stmt.(type) {
	case *ast.IfStatement:
		dumpBlock(n.Then, indent+1)
		for _, ei := range n.ElseIfs {
			fmt.Printf("%s  else if %s\n", pad, ei.Condition.String())
			dumpBlock(ei.Body, indent+2)
		}
		if n.Else != nil {
			fmt.Printf("%s  else\n", pad)
			dumpBlock(n.Else, indent+2)
		}
	case *ast.WhileStatement:
		dumpBlock(n.Body, indent+1)
	case *ast.ForRangeStatement:
		dumpBlock(n.Body, indent+1)
	case *ast.ForEachStatement:
		dumpBlock(n.Body, indent+1)
	case *ast.RepeatStatement:
		dumpBlock(n.Body, indent+1)
	case *ast.FunctionDefStatement:
		dumpBlock(n.Body, indent+1)
	case *ast.OnErrorStatement:
		dumpBlock(n.Actions, indent+1)
	}
}

func dumpBlock(stmts []ast.Statement, indent int) {
	for _, s := range stmts {
		dumpStatement(s, indent)
	}
}
