// Command ec is the single-pass ahead-of-time compiler driver: it
// tokenizes, parses, analyzes, and lowers an English-language source
// file to NASM assembly text.
package main

import (
	"fmt"
	"os"

	"github.com/ec-lang/ec/cmd/ec/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
