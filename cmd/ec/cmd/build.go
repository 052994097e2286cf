package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ec-lang/ec/internal/codegen"
	"github.com/ec-lang/ec/internal/diag"
	"github.com/ec-lang/ec/internal/includes"
	"github.com/ec-lang/ec/internal/lexer"
	"github.com/ec-lang/ec/internal/libpath"
	"github.com/ec-lang/ec/internal/parser"
	"github.com/ec-lang/ec/internal/semantic"
	"github.com/spf13/cobra"
)

var (
	buildOutput    string
	buildShared    bool
	buildTarget    string
	buildLibPaths  string
	buildShowFlags bool
)

var buildCmd = &cobra.Command{
	Use:   "build <file>",
	Short: "Compile a source file to NASM assembly text",
	Long: `Run the full lex/parse/analyze/codegen pipeline and write the
resulting NASM assembly to a file (or stdout).

This is as far as the core compiler goes: it only ever writes .asm
text. Invoking nasm and the system linker is an external collaborator's
job, not this command's.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	rootCmd.AddCommand(buildCmd)

	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "output file (default: <input>.asm)")
	buildCmd.Flags().BoolVar(&buildShared, "shared", false, "emit a position-independent shared-library body instead of an executable")
	buildCmd.Flags().StringVar(&buildTarget, "target", "x86_64", "target architecture tag")
	buildCmd.Flags().StringVar(&buildLibPaths, "lib-path", "", "comma-separated list of additional \"see\" search directories")
	buildCmd.Flags().BoolVar(&buildShowFlags, "show-flags", false, "print the analyzer's feature-use flags after a successful build")
}

func runBuild(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}
	verbose, _ := cmd.Flags().GetBool("verbose")

	lines := strings.Split(source, "\n")
	l := lexer.New(source)
	p := parser.New(l.Tokenize(), filename, lines)
	prog, perr := parser.ParseProgram(p)
	if perr != nil {
		fmt.Fprint(os.Stderr, perr.Format(true))
		return fmt.Errorf("parsing failed")
	}

	libPaths := libSearchPaths()
	resolver := includes.NewResolver(libPaths)
	inlined, incWarnings, incErr := resolver.Process(prog, absPath(filename))
	if incErr != nil {
		fmt.Fprint(os.Stderr, incErr.Format(true))
		return fmt.Errorf("include resolution failed")
	}
	prog.Statements = inlined

	a := semantic.New(filename, lines)
	errs, warnings := a.Analyze(prog)
	warnings = append(warnings, incWarnings...)
	for _, w := range warnings {
		fmt.Fprint(os.Stderr, w.String())
	}
	if len(errs) > 0 {
		fmt.Fprint(os.Stderr, diag.FormatErrors(errs, true))
		return fmt.Errorf("analysis failed with %d error(s)", len(errs))
	}

	out, err := codegen.Generate(prog, codegen.Options{Shared: buildShared, Target: buildTarget})
	if err != nil {
		return fmt.Errorf("codegen failed: %w", err)
	}

	if buildShowFlags {
		fmt.Fprintf(os.Stderr, "uses_io=%v uses_heap=%v uses_strings=%v uses_args=%v uses_funcs=%v\n",
			prog.UsesIO, prog.UsesHeap, prog.UsesStrings, prog.UsesArgs, prog.UsesFuncs)
	}

	outFile := buildOutput
	if outFile == "" {
		ext := filepath.Ext(filename)
		if ext != "" {
			outFile = strings.TrimSuffix(filename, ext) + ".asm"
		} else {
			outFile = filename + ".asm"
		}
	}
	if err := os.WriteFile(outFile, []byte(out), 0o644); err != nil {
		return fmt.Errorf("failed to write output file %s: %w", outFile, err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Compiled %s -> %s (%d bytes)\n", filename, outFile, len(out))
	} else {
		fmt.Printf("Compiled %s -> %s\n", filename, outFile)
	}
	return nil
}

// libSearchPaths combines --lib-path directories with the coreasm
// runtime directory resolved by spec.md §6's search order; the result
// is the directory list the include resolver searches for "see" bare
// names. The generated assembly contains no %include directives; the
// code generator emits the runtime inline.
func libSearchPaths() []string {
	var paths []string
	if buildLibPaths != "" {
		for _, p := range strings.Split(buildLibPaths, ",") {
			p = strings.TrimSpace(p)
			if p != "" {
				paths = append(paths, p)
			}
		}
	}
	if exe, err := os.Executable(); err == nil {
		if wd, err := os.Getwd(); err == nil {
			if dir, ok := libpath.Resolve(filepath.Dir(exe), wd); ok {
				paths = append(paths, dir)
			}
		}
	}
	return paths
}

func absPath(filename string) string {
	if abs, err := filepath.Abs(filename); err == nil {
		return abs
	}
	return filename
}
