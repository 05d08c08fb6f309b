// Package stepexec dispatches one typed command to the driver adapter,
// running auto-wait first when the command's selector needs it, and builds
// the resulting StepResult.
package stepexec

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/enbu-dev/enbu/internal/autowait"
	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/driver"
	"github.com/enbu-dev/enbu/internal/value"
)

// ScreenshotOutcome is the tagged result of a failure-path screenshot
// attempt: Disabled (the run opted out), CaptureFailed (attempted but the
// driver itself errored), or Captured (succeeded, with the path).
type ScreenshotOutcome interface{ screenshotOutcome() }

type ScreenshotDisabled struct{}

func (ScreenshotDisabled) screenshotOutcome() {}

type ScreenshotCaptureFailed struct{ Reason string }

func (ScreenshotCaptureFailed) screenshotOutcome() {}

type ScreenshotCaptured struct{ Path string }

func (ScreenshotCaptured) screenshotOutcome() {}

// StepError is the payload of a Failed StepResult.
type StepError struct {
	Kind       driver.Kind
	Message    string
	Screenshot ScreenshotOutcome
}

// StepResult is the tagged union every step execution reduces to: Passed
// never carries an Error field, Failed always does — enforced by type,
// not by a nullable field.
type StepResult interface {
	StepIndex() int
	Duration() int64
}

type Passed struct {
	Index      int
	Command    command.Command
	DurationMs int64
	Stdout     string
}

func (p Passed) StepIndex() int { return p.Index }
func (p Passed) Duration() int64 { return p.DurationMs }

type Failed struct {
	Index      int
	Command    command.Command
	DurationMs int64
	Error      StepError
}

func (f Failed) StepIndex() int { return f.Index }
func (f Failed) Duration() int64 { return f.DurationMs }

// Config bundles what Execute needs beyond the command and its index.
type Config struct {
	Driver             *driver.Adapter
	AutoWait           autowait.Options
	ScreenshotsEnabled bool
	Session            string
}

// Execute runs cmd (the step at position index) to completion.
func Execute(ctx context.Context, cfg Config, index int, cmd command.Command) StepResult {
	start := time.Now()
	data, err := dispatch(ctx, cfg, cmd)
	duration := time.Since(start).Milliseconds()

	if err != nil {
		return Failed{
			Index:      index,
			Command:    cmd,
			DurationMs: duration,
			Error:      buildStepError(ctx, cfg, index, err),
		}
	}
	return Passed{
		Index:      index,
		Command:    cmd,
		DurationMs: duration,
		Stdout:     string(data),
	}
}

func resolve(ctx context.Context, cfg Config, sel value.Selector) (value.Selector, error) {
	return autowait.Resolve(ctx, cfg.Driver, sel, cfg.AutoWait)
}

// dispatch type-switches on cmd's concrete variant and calls the matching
// driver-adapter method, resolving any selector through auto-wait first.
func dispatch(ctx context.Context, cfg Config, cmd command.Command) (json.RawMessage, error) {
	switch c := cmd.(type) {
	case command.OpenCommand:
		return cfg.Driver.Open(ctx, c.URL)

	case command.SelectorCommand:
		sel, err := resolve(ctx, cfg, c.Selector)
		if err != nil {
			return nil, err
		}
		switch c.CommandTag {
		case command.TagClick:
			return cfg.Driver.Click(ctx, sel)
		case command.TagDblClick:
			return cfg.Driver.DblClick(ctx, sel)
		case command.TagHover:
			return cfg.Driver.Hover(ctx, sel)
		case command.TagFocus:
			return cfg.Driver.Focus(ctx, sel)
		case command.TagScrollIntoView:
			return cfg.Driver.ScrollIntoView(ctx, sel)
		case command.TagCheck:
			return cfg.Driver.Check(ctx, sel)
		case command.TagUncheck:
			return cfg.Driver.Uncheck(ctx, sel)
		case command.TagAssertVisible:
			return cfg.Driver.AssertVisible(ctx, sel)
		case command.TagAssertNotVisible:
			return cfg.Driver.AssertNotVisible(ctx, sel)
		case command.TagAssertEnabled:
			return cfg.Driver.AssertEnabled(ctx, sel)
		case command.TagAssertChecked:
			return cfg.Driver.AssertChecked(ctx, sel)
		default:
			return nil, fmt.Errorf("stepexec: unhandled selector command tag %q", c.CommandTag)
		}

	case command.TypeCommand:
		sel, err := resolve(ctx, cfg, c.Selector)
		if err != nil {
			return nil, err
		}
		if c.CommandTag == command.TagFill {
			return cfg.Driver.Fill(ctx, sel, c.Value)
		}
		return cfg.Driver.Type(ctx, sel, c.Value)

	case command.PressCommand:
		return cfg.Driver.Press(ctx, c.Key)

	case command.SelectCommand:
		sel, err := resolve(ctx, cfg, c.Selector)
		if err != nil {
			return nil, err
		}
		return cfg.Driver.Select(ctx, sel, c.Value)

	case command.UploadCommand:
		sel, err := resolve(ctx, cfg, c.Selector)
		if err != nil {
			return nil, err
		}
		return cfg.Driver.Upload(ctx, sel, c.Files)

	case command.DragCommand:
		src, err := resolve(ctx, cfg, c.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := resolve(ctx, cfg, c.Target)
		if err != nil {
			return nil, err
		}
		return cfg.Driver.Drag(ctx, src, tgt)

	case command.ScrollCommand:
		return cfg.Driver.Scroll(ctx, c.Direction, c.Amount)

	case command.WaitCommand:
		if c.Ms != nil {
			return cfg.Driver.WaitForMs(ctx, *c.Ms)
		}
		sel, err := resolve(ctx, cfg, c.Selector)
		if err != nil {
			return nil, err
		}
		return cfg.Driver.WaitForState(ctx, sel, c.State)

	case command.ScreenshotCommand:
		return cfg.Driver.Screenshot(ctx, c.Path, c.FullPage)

	case command.SnapshotCommand:
		res, err := cfg.Driver.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(res)

	case command.EvalCommand:
		return cfg.Driver.Eval(ctx, c.Script)

	default:
		return nil, fmt.Errorf("stepexec: unhandled command type %T", cmd)
	}
}

func buildStepError(ctx context.Context, cfg Config, index int, err error) StepError {
	kind := driver.KindCommandFailed
	message := err.Error()
	switch e := err.(type) {
	case *driver.Error:
		kind = e.Kind
		if e.Message != "" {
			message = e.Message
		}
	case *autowait.TimeoutError:
		kind = driver.KindTimeout
	}
	return StepError{
		Kind:       kind,
		Message:    message,
		Screenshot: captureScreenshot(ctx, cfg, index),
	}
}

func captureScreenshot(ctx context.Context, cfg Config, index int) ScreenshotOutcome {
	if !cfg.ScreenshotsEnabled {
		return ScreenshotDisabled{}
	}
	path := fmt.Sprintf("./enbu-screenshots/%s-step%d.png", cfg.Session, index)
	fp, err := value.NewFilePath(path)
	if err != nil {
		return ScreenshotCaptureFailed{Reason: err.Error()}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ScreenshotCaptureFailed{Reason: err.Error()}
	}
	if _, err := cfg.Driver.Screenshot(ctx, fp, false); err != nil {
		return ScreenshotCaptureFailed{Reason: err.Error()}
	}
	return ScreenshotCaptured{Path: path}
}
