// Command trypillia is the Trypillia language CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/interp"
	"github.com/ChernegaSergiy/trypillia-language/pkg/runtime"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: trypillia <source_file>")
		fmt.Fprintln(os.Stderr, "       trypillia <command> [options] <source_file>")
		fmt.Fprintln(os.Stderr, "commands: run, check, gen")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "gen":
		os.Exit(cmdGen(os.Args[2:]))
	default:
		// Bare file path: trypillia <source_file>
		os.Exit(cmdRun(os.Args[1:]))
	}
}

func cmdRun(args []string) int {
	var file string
	traceEnabled := false

	for _, arg := range args {
		switch arg {
		case "--trace":
			traceEnabled = true
		default:
			if !strings.HasPrefix(arg, "-") {
				file = arg
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: trypillia run <source_file> [--trace]")
		return 1
	}

	source, exitCode := readSource(file)
	if exitCode != 0 {
		return exitCode
	}

	opts := []runtime.Option{}
	if traceEnabled {
		opts = append(opts, runtime.WithTrace(func(event interp.TraceEvent) {
			b, err := json.Marshal(event)
			if err != nil {
				return
			}
			fmt.Fprintln(os.Stderr, string(b))
		}))
	}

	rt := runtime.New(opts...)

	// Diagnostics, including a terminating runtime error, have already been
	// reported; they do not influence the exit code.
	_ = rt.Run(context.Background(), source)
	return 0
}

func cmdCheck(args []string) int {
	var file string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: trypillia check <source_file>")
		return 1
	}

	source, exitCode := readSource(file)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	diags := rt.Check(source)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags))
		return 0
	}

	fmt.Println("No errors found.")
	return 0
}

func cmdGen(args []string) int {
	var file string
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			file = arg
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "usage: trypillia gen <source_file>")
		return 1
	}

	source, exitCode := readSource(file)
	if exitCode != 0 {
		return exitCode
	}

	rt := runtime.New()
	code, diags := rt.Generate(source)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags))
	}
	fmt.Print(code)
	return 0
}

func readSource(file string) (string, int) {
	source, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: could not open source file %s\n", file)
		return "", 1
	}
	return string(source), 0
}
