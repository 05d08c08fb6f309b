// Package driver adapts enbu's typed commands onto the browser-driver
// subprocess contract: one verb per invocation, a single JSON line on
// stdout, errors folded into a closed Kind taxonomy.
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/value"
)

// Options configures how the adapter invokes the driver binary.
type Options struct {
	BinaryPath     string
	Session        string
	Headed         bool
	CommandTimeout time.Duration
}

// Adapter spawns the driver binary once per call. It holds no subprocess
// handle between calls.
type Adapter struct {
	opts Options
}

// New returns an Adapter bound to opts.
func New(opts Options) *Adapter {
	return &Adapter{opts: opts}
}

// RefInfo describes one accessibility-snapshot entry.
type RefInfo struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SnapshotResult is the decoded `data` field of a snapshot reply.
type SnapshotResult struct {
	Refs map[string]RefInfo `json:"refs"`
}

type reply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *string         `json:"error"`
}

// call spawns the driver binary for one verb invocation and returns the
// reply's raw `data` field alongside a correlation ID for diagnostics.
func (a *Adapter) call(ctx context.Context, verb string, args ...string) (json.RawMessage, string, error) {
	callID := ulid.Make().String()
	argv := buildArgv(a.opts, verb, args)

	cctx := ctx
	if a.opts.CommandTimeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, a.opts.CommandTimeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, a.opts.BinaryPath, argv...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		// A bare binary name that LookPath can't find surfaces as *exec.Error;
		// an explicit path to a missing file surfaces as a not-exist PathError.
		var execErr *exec.Error
		if errors.As(runErr, &execErr) || errors.Is(runErr, fs.ErrNotExist) {
			return nil, callID, &Error{
				Kind: KindNotInstalled, Message: a.opts.BinaryPath,
				CallID: callID, Verb: verb, Args: argv,
			}
		}
		if cctx.Err() == context.DeadlineExceeded {
			return nil, callID, &Error{
				Kind: KindTimeout, TimeoutMs: int(a.opts.CommandTimeout.Milliseconds()),
				CallID: callID, Verb: verb, Args: argv,
			}
		}
		// A non-zero exit otherwise (*exec.ExitError) still carries a JSON
		// reply on stdout per the driver contract; fall through to parse it.
	}

	line := firstLine(stdout.Bytes())
	if line == "" {
		return nil, callID, &Error{
			Kind: KindParseError, RawOutput: combinedOutput(stdout.String(), stderr.String()),
			CallID: callID, Verb: verb, Args: argv,
		}
	}

	var rep reply
	if err := json.Unmarshal([]byte(line), &rep); err != nil {
		return nil, callID, &Error{
			Kind: KindParseError, RawOutput: combinedOutput(stdout.String(), stderr.String()),
			CallID: callID, Verb: verb, Args: argv,
		}
	}

	if !rep.Success {
		msg := "driver command failed"
		if rep.Error != nil && *rep.Error != "" {
			msg = *rep.Error
		}
		kind := KindCommandFailed
		if strings.HasPrefix(msg, "Assertion") {
			kind = KindAssertionFailed
		}
		return nil, callID, &Error{Kind: kind, Message: msg, CallID: callID, Verb: verb, Args: argv}
	}

	return rep.Data, callID, nil
}

func buildArgv(opts Options, verb string, args []string) []string {
	argv := make([]string, 0, len(args)+4)
	argv = append(argv, verb)
	argv = append(argv, args...)
	argv = append(argv, "--json")
	if opts.Session != "" {
		argv = append(argv, "--session", opts.Session)
	}
	if opts.Headed {
		argv = append(argv, "--headed")
	}
	return argv
}

func firstLine(b []byte) string {
	s := strings.TrimSpace(string(b))
	if s == "" {
		return ""
	}
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}

func combinedOutput(stdout, stderr string) string {
	stdout = strings.TrimSpace(stdout)
	stderr = strings.TrimSpace(stderr)
	switch {
	case stdout == "":
		return stderr
	case stderr == "":
		return stdout
	default:
		return stdout + "\n" + stderr
	}
}

// selectorFlag maps a branded selector kind to its driver CLI flag name.
func selectorFlag(kind string) string {
	if kind == "interactableText" {
		return "text"
	}
	return kind
}

func selectorArgs(sel value.Selector) []string {
	return []string{"--" + selectorFlag(value.SelectorKind(sel)), sel.MarshalDriverArg()}
}

func prefixedSelectorArgs(prefix string, sel value.Selector) []string {
	return []string{"--" + prefix + "-" + selectorFlag(value.SelectorKind(sel)), sel.MarshalDriverArg()}
}

// Open navigates the session to u.
func (a *Adapter) Open(ctx context.Context, u value.URL) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "open", "--url", u.MarshalDriverArg())
	return data, err
}

func (a *Adapter) Click(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "click", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) DblClick(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "dblclick", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) Hover(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "hover", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) Focus(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "focus", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) ScrollIntoView(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "scroll-into-view", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) Type(ctx context.Context, sel value.Selector, val string) (json.RawMessage, error) {
	args := append(selectorArgs(sel), "--value", val)
	data, _, err := a.call(ctx, "type", args...)
	return data, err
}

func (a *Adapter) Fill(ctx context.Context, sel value.Selector, val string) (json.RawMessage, error) {
	args := append(selectorArgs(sel), "--value", val)
	data, _, err := a.call(ctx, "fill", args...)
	return data, err
}

func (a *Adapter) Press(ctx context.Context, key value.KeyboardKey) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "press", "--key", key.MarshalDriverArg())
	return data, err
}

func (a *Adapter) Select(ctx context.Context, sel value.Selector, val string) (json.RawMessage, error) {
	args := append(selectorArgs(sel), "--value", val)
	data, _, err := a.call(ctx, "select", args...)
	return data, err
}

func (a *Adapter) Check(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "check", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) Uncheck(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "uncheck", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) Upload(ctx context.Context, sel value.Selector, files []value.FilePath) (json.RawMessage, error) {
	args := selectorArgs(sel)
	for _, f := range files {
		args = append(args, "--file", f.MarshalDriverArg())
	}
	data, _, err := a.call(ctx, "upload", args...)
	return data, err
}

func (a *Adapter) Drag(ctx context.Context, source, target value.Selector) (json.RawMessage, error) {
	args := append(prefixedSelectorArgs("source", source), prefixedSelectorArgs("target", target)...)
	data, _, err := a.call(ctx, "drag", args...)
	return data, err
}

func (a *Adapter) Scroll(ctx context.Context, dir command.ScrollDirection, amount float64) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "scroll", "--direction", string(dir), "--amount", formatFloat(amount))
	return data, err
}

// WaitForMs tells the driver to sleep for ms milliseconds.
func (a *Adapter) WaitForMs(ctx context.Context, ms int) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "wait", "--ms", formatInt(ms))
	return data, err
}

// WaitForState tells the driver to poll sel until it reaches state.
func (a *Adapter) WaitForState(ctx context.Context, sel value.Selector, state command.WaitState) (json.RawMessage, error) {
	args := append(selectorArgs(sel), "--state", string(state))
	data, _, err := a.call(ctx, "wait", args...)
	return data, err
}

// IsVisible reports whether sel currently resolves to a visible element.
// The auto-wait poller does not call it: css/xpath selectors pass through
// auto-wait unpolled.
func (a *Adapter) IsVisible(ctx context.Context, sel value.Selector) (bool, error) {
	data, callID, err := a.call(ctx, "is-visible", selectorArgs(sel)...)
	if err != nil {
		return false, err
	}
	var out struct {
		Visible *bool `json:"visible"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return false, &Error{
			Kind: KindOutputParseError, RawOutput: string(data),
			Issues: []string{`missing or non-boolean "visible" field`},
			CallID: callID, Verb: "is-visible",
		}
	}
	if out.Visible == nil {
		return false, &Error{
			Kind: KindOutputParseError, RawOutput: string(data),
			Issues: []string{`missing or non-boolean "visible" field`},
			CallID: callID, Verb: "is-visible",
		}
	}
	return *out.Visible, nil
}

// Snapshot takes an accessibility snapshot and decodes its refs map. Used
// both directly by the snapshot command and by the auto-wait poller for
// interactableText/ref selectors. Per §9(b), `data.refs` is assumed to be
// `map<string, {name, role}>`; any other extra fields on `data` are ignored,
// but a missing/malformed `refs` or a malformed per-ref entry is a
// success=true schema mismatch, reported as KindOutputParseError rather
// than KindParseError (which is reserved for stdout that isn't valid JSON
// at all).
func (a *Adapter) Snapshot(ctx context.Context) (SnapshotResult, error) {
	data, callID, err := a.call(ctx, "snapshot")
	if err != nil {
		return SnapshotResult{}, err
	}

	var raw struct {
		Refs map[string]json.RawMessage `json:"refs"`
	}
	if unmarshalErr := json.Unmarshal(data, &raw); unmarshalErr != nil {
		return SnapshotResult{}, &Error{
			Kind: KindOutputParseError, RawOutput: string(data),
			Issues: []string{`missing or non-object "refs" field`},
			CallID: callID, Verb: "snapshot",
		}
	}
	if raw.Refs == nil {
		return SnapshotResult{}, &Error{
			Kind: KindOutputParseError, RawOutput: string(data),
			Issues: []string{`missing or non-object "refs" field`},
			CallID: callID, Verb: "snapshot",
		}
	}

	refs := make(map[string]RefInfo, len(raw.Refs))
	var issues []string
	for id, entry := range raw.Refs {
		var info RefInfo
		if unmarshalErr := json.Unmarshal(entry, &info); unmarshalErr != nil {
			issues = append(issues, fmt.Sprintf("refs[%s]: %s", id, unmarshalErr))
			continue
		}
		refs[id] = info
	}
	if len(issues) > 0 {
		return SnapshotResult{}, &Error{
			Kind: KindOutputParseError, RawOutput: string(data),
			Issues: issues, CallID: callID, Verb: "snapshot",
		}
	}
	return SnapshotResult{Refs: refs}, nil
}

func (a *Adapter) Eval(ctx context.Context, script value.JsExpression) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "eval", "--script", script.MarshalDriverArg())
	return data, err
}

func (a *Adapter) Screenshot(ctx context.Context, path value.FilePath, fullPage bool) (json.RawMessage, error) {
	args := []string{"--path", path.MarshalDriverArg()}
	if fullPage {
		args = append(args, "--full-page")
	}
	data, _, err := a.call(ctx, "screenshot", args...)
	return data, err
}

func (a *Adapter) AssertVisible(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "assert-visible", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) AssertNotVisible(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "assert-not-visible", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) AssertEnabled(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "assert-enabled", selectorArgs(sel)...)
	return data, err
}

func (a *Adapter) AssertChecked(ctx context.Context, sel value.Selector) (json.RawMessage, error) {
	data, _, err := a.call(ctx, "assert-checked", selectorArgs(sel)...)
	return data, err
}

func formatFloat(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) }

func formatInt(i int) string { return strconv.Itoa(i) }
