package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/enbu-dev/enbu/internal/flowexec"
	"github.com/enbu-dev/enbu/internal/progress"
	"github.com/enbu-dev/enbu/internal/stepexec"
)

// progressWriter is satisfied by both progress.NDJSONWriter and
// progress.HumanWriter.
type progressWriter interface {
	Write(ctx context.Context, e progress.Event) error
}

// exitCodeError carries the process exit code alongside the error message,
// per §6's three-tier exit code contract (0/1/2).
type exitCodeError struct {
	code int
	err  error
}

func (e exitCodeError) Error() string { return e.err.Error() }
func (e exitCodeError) Unwrap() error { return e.err }

// ExitCode extracts the intended process exit code from an error returned
// by Execute, defaulting to 2 for anything not explicitly classified
// (argument or execution error).
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := err.(exitCodeError); ok {
		return ce.code
	}
	return 2
}

func printFlowResult(out io.Writer, result flowexec.FlowResult) {
	switch r := result.(type) {
	case flowexec.FlowPassed:
		fmt.Fprintf(out, "%s: passed (%dms)\n", r.Flow, r.DurationMs)
	case flowexec.FlowFailed:
		fmt.Fprintf(out, "%s: failed (%dms)\n", r.Flow, r.DurationMs)
		if shot, ok := r.Error.Screenshot.(stepexec.ScreenshotCaptured); ok {
			fmt.Fprintf(out, "  %d: %s [%s]\n", r.Error.StepIndex, r.Error.Message, shot.Path)
		} else {
			fmt.Fprintf(out, "  %d: %s\n", r.Error.StepIndex, r.Error.Message)
		}
	}
}
