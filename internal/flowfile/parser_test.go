package flowfile

import (
	"strings"
	"testing"

	"github.com/enbu-dev/enbu/internal/command"
)

func TestParse_HappyPath(t *testing.T) {
	src := []byte(`
name: login flow
env:
  BASE: https://example.com
steps:
  - open: "${BASE}/login"
  - click: "Login"
  - fill:
      css: "#password"
      value: "hunter2"
`)
	flow, positions, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if flow.Name != "login flow" {
		t.Fatalf("name: got %q", flow.Name)
	}
	if flow.Env["BASE"] != "https://example.com" {
		t.Fatalf("env: got %#v", flow.Env)
	}
	if len(flow.Steps) != 3 {
		t.Fatalf("steps: got %d", len(flow.Steps))
	}
	if len(positions) != 3 {
		t.Fatalf("positions: got %d", len(positions))
	}
	for i, p := range positions {
		if !p.HasPosition() {
			t.Fatalf("step %d: expected a line number", i)
		}
	}
	if _, ok := flow.Steps[0].(command.OpenCommand); !ok {
		t.Fatalf("step 0: expected OpenCommand, got %T", flow.Steps[0])
	}
}

func TestParse_MissingName(t *testing.T) {
	src := []byte(`
steps:
  - open: "https://example.com"
`)
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for missing name")
	}
	pe, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %T", err)
	}
	if pe.Kind != KindMissingField {
		t.Fatalf("kind: got %q", pe.Kind)
	}
}

func TestParse_MissingSteps(t *testing.T) {
	src := []byte(`name: x`)
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for missing steps")
	}
	pe := err.(*ParseError)
	if pe.Kind != KindMissingField {
		t.Fatalf("kind: got %q", pe.Kind)
	}
}

func TestParse_UnknownTopLevelField(t *testing.T) {
	src := []byte(`
name: x
bogus: 1
steps: []
`)
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestParse_UnknownCommand(t *testing.T) {
	src := []byte(`
name: x
steps:
  - frobnicate: "nope"
`)
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for unknown command")
	}
	pe := err.(*ParseError)
	if pe.Kind != KindUnknownCommand {
		t.Fatalf("kind: got %q", pe.Kind)
	}
}

func TestParse_StepLineNumbersAreTracked(t *testing.T) {
	src := []byte(`name: x
steps:
  - open: "https://example.com"
  - click: "Login"
`)
	_, positions, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse() error: %v", err)
	}
	if positions[0].Line != 3 {
		t.Fatalf("step 0 line: got %d, want 3", positions[0].Line)
	}
	if positions[1].Line != 4 {
		t.Fatalf("step 1 line: got %d, want 4", positions[1].Line)
	}
}

func TestParse_StepMustBeOneKeyMapping(t *testing.T) {
	src := []byte(`
name: x
steps:
  - click: "Login"
    hover: "Foo"
`)
	_, _, err := Parse(src)
	if err == nil {
		t.Fatal("expected error for multi-key step")
	}
	if !strings.Contains(err.Error(), "invalid_command") {
		t.Fatalf("got error %v", err)
	}
}
