package envexpand

import (
	"testing"

	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/value"
)

func TestExpand_OpenURL(t *testing.T) {
	url, _ := value.NewURL("${BASE}/login")
	steps := []command.Command{command.OpenCommand{URL: url}}

	out, err := Expand(steps, map[string]string{"BASE": "https://example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := out[0].(command.OpenCommand).URL.String()
	if got != "https://example.com/login" {
		t.Fatalf("got %q", got)
	}
}

func TestExpand_SelectorReconstructsBrandedKind(t *testing.T) {
	xp, _ := value.NewXPathSelector("/html/${NODE}")
	steps := []command.Command{command.SelectorCommand{CommandTag: command.TagClick, Selector: xp}}

	out, err := Expand(steps, map[string]string{"NODE": "body"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sel := out[0].(command.SelectorCommand).Selector
	if sel.String() != "/html/body" {
		t.Fatalf("got %q", sel.String())
	}
	if value.SelectorKind(sel) != "xpath" {
		t.Fatalf("kind changed: got %q", value.SelectorKind(sel))
	}
}

func TestExpand_TypeValueAndSelectorBothExpand(t *testing.T) {
	css, _ := value.NewCSSSelector("#${FIELD}")
	steps := []command.Command{command.TypeCommand{CommandTag: command.TagFill, Selector: css, Value: "${PASSWORD}"}}

	out, err := Expand(steps, map[string]string{"FIELD": "password", "PASSWORD": "hunter2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	tc := out[0].(command.TypeCommand)
	if tc.Selector.String() != "#password" {
		t.Fatalf("selector: got %q", tc.Selector.String())
	}
	if tc.Value != "hunter2" {
		t.Fatalf("value: got %q", tc.Value)
	}
}

func TestExpand_UploadExpandsEachFile(t *testing.T) {
	css, _ := value.NewCSSSelector("#file")
	f1, _ := value.NewFilePath("${DIR}/a.png")
	f2, _ := value.NewFilePath("${DIR}/b.png")
	steps := []command.Command{command.UploadCommand{Selector: css, Files: []value.FilePath{f1, f2}}}

	out, err := Expand(steps, map[string]string{"DIR": "/tmp/fixtures"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	up := out[0].(command.UploadCommand)
	if up.Files[0].String() != "/tmp/fixtures/a.png" || up.Files[1].String() != "/tmp/fixtures/b.png" {
		t.Fatalf("got %#v", up.Files)
	}
}

func TestExpand_DragExpandsBothSelectors(t *testing.T) {
	src, _ := value.NewCSSSelector("#${A}")
	tgt, _ := value.NewCSSSelector("#${B}")
	steps := []command.Command{command.DragCommand{Source: src, Target: tgt}}

	out, err := Expand(steps, map[string]string{"A": "from", "B": "to"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d := out[0].(command.DragCommand)
	if d.Source.String() != "#from" || d.Target.String() != "#to" {
		t.Fatalf("got %#v", d)
	}
}

func TestExpand_NoSubstitutionLeavesValueUnchanged(t *testing.T) {
	css, _ := value.NewCSSSelector("#static")
	steps := []command.Command{command.SelectorCommand{CommandTag: command.TagClick, Selector: css}}

	out, err := Expand(steps, map[string]string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out[0].(command.SelectorCommand).Selector.String() != "#static" {
		t.Fatalf("value changed unexpectedly")
	}
}

func TestExpand_CollectsAllMissingVarsAcrossSteps(t *testing.T) {
	url, _ := value.NewURL("${MISSING_A}")
	css, _ := value.NewCSSSelector("#${MISSING_B}")
	steps := []command.Command{
		command.OpenCommand{URL: url},
		command.SelectorCommand{CommandTag: command.TagClick, Selector: css},
	}

	_, err := Expand(steps, map[string]string{})
	if err == nil {
		t.Fatal("expected MissingVarsError")
	}
	mv, ok := err.(*MissingVarsError)
	if !ok {
		t.Fatalf("expected *MissingVarsError, got %T", err)
	}
	if len(mv.Names) != 2 || mv.Names[0] != "MISSING_A" || mv.Names[1] != "MISSING_B" {
		t.Fatalf("got %#v", mv.Names)
	}
}

func TestMergeEnv_OverrideWins(t *testing.T) {
	base := map[string]string{"A": "1", "B": "2"}
	override := map[string]string{"B": "20", "C": "3"}
	merged := MergeEnv(base, override)
	if merged["A"] != "1" || merged["B"] != "20" || merged["C"] != "3" {
		t.Fatalf("got %#v", merged)
	}
	if base["B"] != "2" {
		t.Fatal("MergeEnv must not mutate base")
	}
}
