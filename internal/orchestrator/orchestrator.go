package orchestrator

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/enbu-dev/enbu/internal/flowexec"
	"github.com/enbu-dev/enbu/internal/flowfile"
)

// RunSummary aggregates every flow file's result.
type RunSummary struct {
	Passed int
	Failed int
	Total  int
	// DurationMs is the wall-clock time of the whole Run, not the sum of
	// per-flow durations (flows may run in parallel).
	DurationMs int64
	Flows      []flowexec.FlowResult
}

// Options configures one orchestrator Run.
type Options struct {
	// Parallel bounds the number of flows executed concurrently. <= 0 means 1.
	Parallel int
	// FlowOptions builds the per-flow flowexec.Options given the file path
	// and its derived session name, so callers can layer CLI/config
	// overrides (driver binary, timeouts, --env) uniformly across files.
	FlowOptions func(path, sessionName string) flowexec.Options
}

// Run reads, parses, and executes every file in files, aggregating results
// into a RunSummary. A read or parse failure for any file is a
// validation/setup error that fails the whole Run (mirroring the CLI's
// exit-code-2 "argument or execution error" tier, distinct from a per-flow
// failure which only ever affects RunSummary.Failed): the other files'
// flows still execute, but Run returns no RunSummary, only the first such
// error in file order.
func Run(ctx context.Context, files []string, opts Options) (*RunSummary, error) {
	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = 1
	}

	type outcome struct {
		result flowexec.FlowResult
		err    error
	}

	outcomes := make([]outcome, len(files))
	sem := make(chan struct{}, parallel)
	var wg sync.WaitGroup

	start := time.Now()
	for i, path := range files {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()

			result, err := runOne(ctx, path, opts)
			outcomes[i] = outcome{result: result, err: err}
		}(i, path)
	}
	wg.Wait()
	duration := time.Since(start).Milliseconds()

	summary := &RunSummary{DurationMs: duration}
	for _, o := range outcomes {
		if o.err != nil {
			return nil, o.err
		}
		summary.Flows = append(summary.Flows, o.result)
		summary.Total++
		switch o.result.(type) {
		case flowexec.FlowPassed:
			summary.Passed++
		case flowexec.FlowFailed:
			summary.Failed++
		}
	}
	return summary, nil
}

func runOne(ctx context.Context, path string, opts Options) (flowexec.FlowResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	flow, _, err := flowfile.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	session := SessionName(path)
	flowOpts := opts.FlowOptions(path, session)
	return flowexec.Execute(ctx, flow, session, flowOpts)
}
