package flowexec

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/flowfile"
	"github.com/enbu-dev/enbu/internal/stepexec"
	"github.com/enbu-dev/enbu/internal/value"
)

// writeCountingDriver fails exactly once, on the failAt'th invocation
// (1-indexed); every other invocation succeeds. failAt <= 0 means never
// fail.
func writeCountingDriver(t *testing.T, failAt int) string {
	t.Helper()
	countFile := filepath.Join(t.TempDir(), "count")
	body := `#!/usr/bin/env bash
set -euo pipefail
count=0
if [ -f "` + countFile + `" ]; then count=$(cat "` + countFile + `"); fi
count=$((count+1))
echo "$count" > "` + countFile + `"
if [ "$count" -eq ` + strconv.Itoa(failAt) + ` ]; then
  echo '{"success":false,"data":null,"error":"boom"}'
  exit 1
else
  echo '{"success":true,"data":{},"error":null}'
fi
`
	path := filepath.Join(t.TempDir(), "browser-driver")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write fake driver: %v", err)
	}
	return path
}

func threeStepFlow(t *testing.T) *flowfile.Flow {
	t.Helper()
	u, _ := value.NewURL("https://example.com")
	css1, _ := value.NewCSSSelector("#a")
	css2, _ := value.NewCSSSelector("#b")
	return &flowfile.Flow{
		Name: "three-step",
		Steps: []command.Command{
			command.OpenCommand{URL: u},
			command.SelectorCommand{CommandTag: command.TagClick, Selector: css1},
			command.SelectorCommand{CommandTag: command.TagClick, Selector: css2},
		},
	}
}

func TestExecute_HappyPath(t *testing.T) {
	bin := writeCountingDriver(t, 0)
	flow := threeStepFlow(t)
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail: true, DriverBinary: bin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	passed, ok := result.(FlowPassed)
	if !ok {
		t.Fatalf("expected FlowPassed, got %#v", result)
	}
	if len(passed.Steps) != 3 {
		t.Fatalf("got %d steps", len(passed.Steps))
	}
}

func TestExecute_FirstStepFailureUnderBail(t *testing.T) {
	bin := writeCountingDriver(t, 1)
	flow := threeStepFlow(t)
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail: true, DriverBinary: bin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed, ok := result.(FlowFailed)
	if !ok {
		t.Fatalf("expected FlowFailed, got %#v", result)
	}
	if len(failed.Steps) != 1 {
		t.Fatalf("got %d steps", len(failed.Steps))
	}
	if failed.Error.StepIndex != 0 {
		t.Fatalf("got stepIndex %d", failed.Error.StepIndex)
	}
}

func TestExecute_SecondStepFailureTruncatesUnderBail(t *testing.T) {
	bin := writeCountingDriver(t, 2)
	flow := threeStepFlow(t)
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail: true, DriverBinary: bin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed, ok := result.(FlowFailed)
	if !ok {
		t.Fatalf("expected FlowFailed, got %#v", result)
	}
	if len(failed.Steps) != 2 {
		t.Fatalf("got %d steps", len(failed.Steps))
	}
	if failed.Error.StepIndex != 1 {
		t.Fatalf("got stepIndex %d", failed.Error.StepIndex)
	}
}

func TestExecute_NoBailRunsAllSteps(t *testing.T) {
	bin := writeCountingDriver(t, 2)
	flow := threeStepFlow(t)
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail: false, DriverBinary: bin,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	failed, ok := result.(FlowFailed)
	if !ok {
		t.Fatalf("expected FlowFailed, got %#v", result)
	}
	if len(failed.Steps) != 3 {
		t.Fatalf("got %d steps, want 3 (bail=false runs every step)", len(failed.Steps))
	}
	if failed.Error.StepIndex != 1 {
		t.Fatalf("got stepIndex %d, want first failure (1)", failed.Error.StepIndex)
	}
}

func TestExecute_UndefinedEnvVarIsSetupErrorNotFlowResult(t *testing.T) {
	u, _ := value.NewURL("${BASE}/x")
	flow := &flowfile.Flow{
		Name:  "needs-base",
		Steps: []command.Command{command.OpenCommand{URL: u}},
	}
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail: true, DriverBinary: "/nonexistent",
	})
	if err == nil {
		t.Fatal("expected a setup error")
	}
	if result != nil {
		t.Fatalf("expected nil FlowResult on setup error, got %#v", result)
	}
}

func TestExecute_EnvMergeOptionsWinOverFlowEnv(t *testing.T) {
	bin := writeCountingDriver(t, 0)
	u, _ := value.NewURL("${BASE}/login")
	flow := &flowfile.Flow{
		Name:  "merge",
		Env:   map[string]string{"BASE": "https://flow-default.example"},
		Steps: []command.Command{command.OpenCommand{URL: u}},
	}
	result, err := Execute(context.Background(), flow, "enbu-test-abc123", Options{
		Bail:         true,
		DriverBinary: bin,
		Env:          map[string]string{"BASE": "https://override.example"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	passed, ok := result.(FlowPassed)
	if !ok {
		t.Fatalf("expected FlowPassed, got %#v", result)
	}
	stepPassed, ok := passed.Steps[0].(stepexec.Passed)
	if !ok {
		t.Fatalf("expected stepexec.Passed, got %#v", passed.Steps[0])
	}
	openCmd, ok := stepPassed.Command.(command.OpenCommand)
	if !ok {
		t.Fatalf("expected OpenCommand, got %#v", stepPassed.Command)
	}
	if openCmd.URL.String() != "https://override.example/login" {
		t.Fatalf("got url %q, want options.env to win over flow.env", openCmd.URL.String())
	}
}
