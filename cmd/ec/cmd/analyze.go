package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/ec-lang/ec/internal/diag"
	"github.com/ec-lang/ec/internal/lexer"
	"github.com/ec-lang/ec/internal/parser"
	"github.com/ec-lang/ec/internal/semantic"
	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Run the semantic analyzer and print diagnostics and feature flags",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
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

	a := semantic.New(filename, lines)
	errs, warnings := a.Analyze(prog)

	for _, w := range warnings {
		fmt.Fprint(os.Stderr, w.String())
	}
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, diag.FormatErrors(errs, false))
		return fmt.Errorf("analysis failed with %d error(s)", len(errs))
	}

	fmt.Println("OK")
	fmt.Printf("uses_io=%v uses_heap=%v uses_strings=%v uses_args=%v uses_funcs=%v\n",
		prog.UsesIO, prog.UsesHeap, prog.UsesStrings, prog.UsesArgs, prog.UsesFuncs)
	return nil
}
