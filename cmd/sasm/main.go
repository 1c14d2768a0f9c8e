// Command sasm compiles a single assembly source file, and whatever it
// transitively imports, into a byte-file.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/alecthomas/kingpin.v1"

	"github.com/ShitVM/ShitAsm/internal/diag"
	"github.com/ShitVM/ShitAsm/internal/lexer"
	"github.com/ShitVM/ShitAsm/internal/pipeline"
)

// outputExtension names this module's own concrete byte-file suffix; the
// backend's on-disk format is opaque to the core, which never names one.
const outputExtension = ".sbf"

const (
	exitOK         = 0
	exitCompileErr = 1
	exitUsageErr   = 2
)

func main() {
	filename := kingpin.Arg(
		"input", "Assembly source file.",
	).Required().ExistingFile()

	output := kingpin.Flag(
		"output", "Output byte-file path.",
	).Short('o').String()

	includes := kingpin.Flag(
		"include", "Add the given directory to the list of import search directories.",
	).Short('I').Strings()

	verbose := kingpin.Flag(
		"verbose", "Also print Info-severity diagnostics.",
	).Bool()

	dumpTokens := kingpin.Flag(
		"dump-tokens", "Print the lexed token stream for the input file and exit.",
	).Bool()

	kingpin.Parse()

	if *dumpTokens {
		os.Exit(runDumpTokens(*filename))
	}
	os.Exit(runCompile(*filename, *output, *includes, *verbose))
}

func runDumpTokens(filename string) int {
	src, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageErr
	}
	sink := diag.NewSink(filename)
	for _, tok := range lexer.Lex(string(src), sink) {
		fmt.Println(tok.String())
	}
	if out := sink.Render(true); out != "" {
		fmt.Print(out)
	}
	if sink.HasErrors() {
		return exitCompileErr
	}
	return exitOK
}

func runCompile(filename, output string, includes []string, verbose bool) int {
	if output == "" {
		ext := filepath.Ext(filename)
		output = strings.TrimSuffix(filename, ext) + outputExtension
	}

	p := pipeline.New()
	asm, sink, err := p.Compile(filename, includes)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsageErr
	}

	if out := sink.Render(verbose); out != "" {
		fmt.Print(out)
	}
	if sink.HasErrors() {
		return exitCompileErr
	}

	if err := asm.ByteFile.Generate(output); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitCompileErr
	}
	return exitOK
}
