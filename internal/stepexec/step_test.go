package stepexec

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/driver"
	"github.com/enbu-dev/enbu/internal/value"
)

func writeFakeDriver(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "browser-driver")
	script := "#!/usr/bin/env bash\nset -euo pipefail\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatalf("write fake driver: %v", err)
	}
	return path
}

// verbDispatchScript routes on $1 (the verb) so one fake binary can serve an
// entire test: failVerb always fails with a CommandFailed-shaped reply,
// screenshotFails additionally makes the screenshot verb fail.
func verbDispatchScript(failVerb string, screenshotFails bool) string {
	screenshotBody := `echo '{"success":true,"data":{},"error":null}'`
	if screenshotFails {
		screenshotBody = `echo '{"success":false,"data":null,"error":"disk full"}'; exit 1`
	}
	return `
verb="$1"
if [ "$verb" = "screenshot" ]; then
  ` + screenshotBody + `
elif [ "$verb" = "` + failVerb + `" ]; then
  echo '{"success":false,"data":null,"error":"boom"}'
  exit 1
else
  echo '{"success":true,"data":{},"error":null}'
fi
`
}

func TestExecute_Passed(t *testing.T) {
	bin := writeFakeDriver(t, verbDispatchScript("none", false))
	cfg := Config{
		Driver:             driver.New(driver.Options{BinaryPath: bin, CommandTimeout: time.Second}),
		ScreenshotsEnabled: false,
		Session:            "enbu-test-abcdef",
	}
	u, _ := value.NewURL("https://example.com")
	result := Execute(context.Background(), cfg, 0, command.OpenCommand{URL: u})

	p, ok := result.(Passed)
	if !ok {
		t.Fatalf("expected Passed, got %#v", result)
	}
	if p.Index != 0 {
		t.Fatalf("got index %d", p.Index)
	}
}

func TestExecute_FailedWithScreenshotDisabled(t *testing.T) {
	bin := writeFakeDriver(t, verbDispatchScript("click", false))
	cfg := Config{
		Driver:             driver.New(driver.Options{BinaryPath: bin, CommandTimeout: time.Second}),
		ScreenshotsEnabled: false,
		Session:            "enbu-test-abcdef",
	}
	css, _ := value.NewCSSSelector("#missing")
	result := Execute(context.Background(), cfg, 1, command.SelectorCommand{CommandTag: command.TagClick, Selector: css})

	f, ok := result.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", result)
	}
	if _, ok := f.Error.Screenshot.(ScreenshotDisabled); !ok {
		t.Fatalf("expected ScreenshotDisabled, got %#v", f.Error.Screenshot)
	}
	if f.Error.Kind != driver.KindCommandFailed {
		t.Fatalf("got kind %q", f.Error.Kind)
	}
}

func TestExecute_FailedWithScreenshotCaptured(t *testing.T) {
	workdir := t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	bin := writeFakeDriver(t, verbDispatchScript("click", false))
	cfg := Config{
		Driver:             driver.New(driver.Options{BinaryPath: bin, CommandTimeout: time.Second}),
		ScreenshotsEnabled: true,
		Session:            "enbu-test-abcdef",
	}
	css, _ := value.NewCSSSelector("#missing")
	result := Execute(context.Background(), cfg, 2, command.SelectorCommand{CommandTag: command.TagClick, Selector: css})

	f, ok := result.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", result)
	}
	captured, ok := f.Error.Screenshot.(ScreenshotCaptured)
	if !ok {
		t.Fatalf("expected ScreenshotCaptured, got %#v", f.Error.Screenshot)
	}
	if captured.Path != "./enbu-screenshots/enbu-test-abcdef-step2.png" {
		t.Fatalf("got path %q", captured.Path)
	}
}

func TestExecute_FailedWithScreenshotCaptureFailed(t *testing.T) {
	workdir := t.TempDir()
	oldwd, _ := os.Getwd()
	if err := os.Chdir(workdir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	defer os.Chdir(oldwd)

	bin := writeFakeDriver(t, verbDispatchScript("click", true))
	cfg := Config{
		Driver:             driver.New(driver.Options{BinaryPath: bin, CommandTimeout: time.Second}),
		ScreenshotsEnabled: true,
		Session:            "enbu-test-abcdef",
	}
	css, _ := value.NewCSSSelector("#missing")
	result := Execute(context.Background(), cfg, 3, command.SelectorCommand{CommandTag: command.TagClick, Selector: css})

	f, ok := result.(Failed)
	if !ok {
		t.Fatalf("expected Failed, got %#v", result)
	}
	if _, ok := f.Error.Screenshot.(ScreenshotCaptureFailed); !ok {
		t.Fatalf("expected ScreenshotCaptureFailed, got %#v", f.Error.Screenshot)
	}
}
