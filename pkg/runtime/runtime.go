// Package runtime provides the top-level Trypillia pipeline orchestrator.
package runtime

import (
	"context"
	"errors"
	"io"
	"os"

	"github.com/npillmayer/schuko/tracing"

	"github.com/ChernegaSergiy/trypillia-language/pkg/codegen"
	"github.com/ChernegaSergiy/trypillia-language/pkg/diagnostics"
	"github.com/ChernegaSergiy/trypillia-language/pkg/interp"
	"github.com/ChernegaSergiy/trypillia-language/pkg/parser"
	"github.com/ChernegaSergiy/trypillia-language/pkg/semantic"
)

// tracer traces with key 'trypillia.runtime'.
func tracer() tracing.Trace {
	return tracing.Select("trypillia.runtime")
}

// Runtime wires together the lexer, parser, semantic pass, and evaluator.
type Runtime struct {
	out      io.Writer
	reporter *diagnostics.Reporter
	trace    func(event interp.TraceEvent)
	runID    string
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithOutput sets the output sink used by print.
func WithOutput(w io.Writer) Option {
	return func(rt *Runtime) {
		rt.out = w
	}
}

// WithReporter sets the diagnostic sink.
func WithReporter(r *diagnostics.Reporter) Option {
	return func(rt *Runtime) {
		rt.reporter = r
	}
}

// WithTrace sets the trace callback.
func WithTrace(fn func(event interp.TraceEvent)) Option {
	return func(rt *Runtime) {
		rt.trace = fn
	}
}

// WithRunID sets the run ID for trace events.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// New creates a Runtime writing program output to stdout and diagnostics to
// stderr unless configured otherwise.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		out:      os.Stdout,
		reporter: diagnostics.NewReporter(os.Stderr),
		runID:    "cli",
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Run parses, analyzes, and evaluates source. Parse and semantic
// diagnostics are reported but never abort the pipeline; the first runtime
// error is reported and returned after evaluation terminates.
func (rt *Runtime) Run(ctx context.Context, source string) error {
	tracer().Debugf("parsing %d bytes of source", len(source))
	program, diags := parser.Parse(source)
	rt.reporter.ReportAll(diags)

	semDiags := semantic.Analyze(program)
	rt.reporter.ReportAll(semDiags)
	tracer().Debugf("front end reported %d diagnostics", len(diags)+len(semDiags))

	err := interp.Execute(ctx, program, interp.ExecOptions{
		Out:   rt.out,
		Trace: rt.trace,
		RunID: rt.runID,
	})
	if err != nil {
		var rtErr *interp.RuntimeError
		if errors.As(err, &rtErr) {
			rt.reporter.Report(rtErr.Diag())
		} else {
			rt.reporter.Report(diagnostics.MakeDiag(diagnostics.EIO, err.Error(), 0))
		}
		tracer().Errorf("evaluation terminated: %v", err)
		return err
	}

	tracer().Infof("evaluation completed")
	return nil
}

// Check parses and analyzes source without evaluating it, returning all
// diagnostics in pipeline order.
func (rt *Runtime) Check(source string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source)
	return append(diags, semantic.Analyze(program)...)
}

// Generate parses source and emits its C++ rendition. Parse diagnostics come
// first, generator diagnostics after.
func (rt *Runtime) Generate(source string) (string, []diagnostics.Diagnostic) {
	program, diags := parser.Parse(source)
	code, genDiags := codegen.Generate(program)
	return code, append(diags, genDiags...)
}
