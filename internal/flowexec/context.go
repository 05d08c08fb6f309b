// Package flowexec runs one parsed flow to completion: merges env, expands
// ${VAR} references, then iterates steps under a bail/continue policy,
// emitting progress events and aggregating a FlowResult.
package flowexec

import (
	"context"

	"github.com/enbu-dev/enbu/internal/autowait"
	"github.com/enbu-dev/enbu/internal/progress"
	"github.com/enbu-dev/enbu/internal/stepexec"
)

// ProgressFunc is the fire-and-forget (but awaited, so ordering stays
// causal) progress callback. Pass NoopProgress when no observer is needed.
type ProgressFunc func(ctx context.Context, event progress.Event) error

// NoopProgress discards every event.
var NoopProgress ProgressFunc = func(context.Context, progress.Event) error { return nil }

// Options configures one flow execution. Env is merged over the flow's own
// env block, options winning on collision (§4.7).
type Options struct {
	Env                map[string]string
	Bail               bool
	ScreenshotsEnabled bool
	Headed             bool
	CommandTimeoutMs   int
	AutoWait           autowait.Options
	DriverBinary       string
	Progress           ProgressFunc
}

// FlowError is the payload of a Failed FlowResult: the index of the first
// failing step plus that step's message and screenshot outcome.
type FlowError struct {
	StepIndex  int
	Message    string
	Screenshot stepexec.ScreenshotOutcome
}

// FlowResult is the tagged union a flow execution reduces to. Passed never
// carries an Error; Failed always does.
type FlowResult interface {
	FlowName() string
}

type FlowPassed struct {
	Flow        string
	SessionName string
	DurationMs  int64
	Steps       []stepexec.StepResult
}

func (p FlowPassed) FlowName() string { return p.Flow }

type FlowFailed struct {
	Flow        string
	SessionName string
	DurationMs  int64
	Steps       []stepexec.StepResult
	Error       FlowError
}

func (f FlowFailed) FlowName() string { return f.Flow }
