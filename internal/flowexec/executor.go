package flowexec

import (
	"context"
	"time"

	"github.com/enbu-dev/enbu/internal/driver"
	"github.com/enbu-dev/enbu/internal/envexpand"
	"github.com/enbu-dev/enbu/internal/flowfile"
	"github.com/enbu-dev/enbu/internal/progress"
	"github.com/enbu-dev/enbu/internal/stepexec"
)

// Execute runs flow to completion under sessionName. A non-nil error here
// is a validation/setup failure (env expansion) and is never wrapped in a
// FlowResult — only a step failure produces FlowFailed.
func Execute(ctx context.Context, flow *flowfile.Flow, sessionName string, opts Options) (FlowResult, error) {
	env := envexpand.MergeEnv(flow.Env, opts.Env)
	expanded, err := envexpand.Expand(flow.Steps, env)
	if err != nil {
		return nil, err
	}

	progressFn := opts.Progress
	if progressFn == nil {
		progressFn = NoopProgress
	}

	drv := driver.New(driver.Options{
		BinaryPath:     opts.DriverBinary,
		Session:        sessionName,
		Headed:         opts.Headed,
		CommandTimeout: time.Duration(opts.CommandTimeoutMs) * time.Millisecond,
	})
	stepCfg := stepexec.Config{
		Driver:             drv,
		AutoWait:           opts.AutoWait,
		ScreenshotsEnabled: opts.ScreenshotsEnabled,
		Session:            sessionName,
	}

	start := time.Now()
	if err := progressFn(ctx, progress.FlowStart{FlowName: flow.Name, StepTotal: len(expanded)}); err != nil {
		return nil, err
	}

	results := make([]stepexec.StepResult, 0, len(expanded))
	var failure *FlowError

	for i, cmd := range expanded {
		if err := progressFn(ctx, progress.StepStart{FlowName: flow.Name, StepIndex: i}); err != nil {
			return nil, err
		}

		result := stepexec.Execute(ctx, stepCfg, i, cmd)
		results = append(results, result)

		status := "passed"
		if f, ok := result.(stepexec.Failed); ok {
			status = "failed"
			if failure == nil {
				failure = &FlowError{StepIndex: i, Message: f.Error.Message, Screenshot: f.Error.Screenshot}
			}
		}

		if err := progressFn(ctx, progress.StepComplete{
			FlowName: flow.Name, StepIndex: i, Status: status, DurationMs: result.Duration(),
		}); err != nil {
			return nil, err
		}

		if failure != nil && opts.Bail {
			break
		}
	}

	duration := time.Since(start).Milliseconds()
	status := "passed"
	if failure != nil {
		status = "failed"
	}
	if err := progressFn(ctx, progress.FlowComplete{FlowName: flow.Name, Status: status, DurationMs: duration}); err != nil {
		return nil, err
	}

	if failure != nil {
		return FlowFailed{
			Flow:        flow.Name,
			SessionName: sessionName,
			DurationMs:  duration,
			Steps:       results,
			Error:       *failure,
		}, nil
	}
	return FlowPassed{
		Flow:        flow.Name,
		SessionName: sessionName,
		DurationMs:  duration,
		Steps:       results,
	}, nil
}
