// Package envexpand substitutes ${VAR} references inside a parsed flow's
// commands against a merged environment map, re-validating every branded
// value whose text changes.
package envexpand

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/enbu-dev/enbu/internal/command"
	"github.com/enbu-dev/enbu/internal/value"
)

var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// MissingVarsError reports every ${VAR} reference across the whole flow that
// had no matching env entry. Expand collects all of them before failing,
// rather than stopping at the first step that references an undefined name.
type MissingVarsError struct {
	Names []string
}

func (e *MissingVarsError) Error() string {
	return fmt.Sprintf("undefined environment variable(s): %s", strings.Join(e.Names, ", "))
}

// MergeEnv overlays override on top of base, override winning on collision.
// Neither input is mutated.
func MergeEnv(base, override map[string]string) map[string]string {
	merged := make(map[string]string, len(base)+len(override))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range override {
		merged[k] = v
	}
	return merged
}

type expander struct {
	env     map[string]string
	missing map[string]bool
}

// substitute replaces every ${VAR} token in raw with env[VAR]. A reference to
// an undefined name is recorded in e.missing and left untouched in the
// result; the caller is expected to discard that result once any missing
// names are detected flow-wide.
func (e *expander) substitute(raw string) (result string, hadMissing bool) {
	result = varPattern.ReplaceAllStringFunc(raw, func(tok string) string {
		name := tok[2 : len(tok)-1]
		v, ok := e.env[name]
		if !ok {
			e.missing[name] = true
			hadMissing = true
			return tok
		}
		return v
	})
	return result, hadMissing
}

func (e *expander) expandSelector(sel value.Selector) (value.Selector, error) {
	if sel == nil {
		return nil, nil
	}
	raw := sel.String()
	newRaw, hadMissing := e.substitute(raw)
	if hadMissing || newRaw == raw {
		return sel, nil
	}
	return sel.Reconstruct(newRaw)
}

func (e *expander) expandURL(u value.URL) (value.URL, error) {
	newRaw, hadMissing := e.substitute(u.String())
	if hadMissing || newRaw == u.String() {
		return u, nil
	}
	return value.NewURL(newRaw)
}

func (e *expander) expandFilePath(p value.FilePath) (value.FilePath, error) {
	newRaw, hadMissing := e.substitute(p.String())
	if hadMissing || newRaw == p.String() {
		return p, nil
	}
	return value.NewFilePath(newRaw)
}

func (e *expander) expandKey(k value.KeyboardKey) (value.KeyboardKey, error) {
	newRaw, hadMissing := e.substitute(k.String())
	if hadMissing || newRaw == k.String() {
		return k, nil
	}
	return value.NewKeyboardKey(newRaw)
}

func (e *expander) expandJsExpression(j value.JsExpression) (value.JsExpression, error) {
	newRaw, hadMissing := e.substitute(j.String())
	if hadMissing || newRaw == j.String() {
		return j, nil
	}
	return value.NewJsExpression(newRaw)
}

// expandCommand rewrites the string-bearing fields of cmd. Each variant is
// handled explicitly rather than via reflection, per the field list each
// command type actually carries.
func (e *expander) expandCommand(cmd command.Command) (command.Command, error) {
	switch c := cmd.(type) {
	case command.OpenCommand:
		u, err := e.expandURL(c.URL)
		if err != nil {
			return nil, err
		}
		c.URL = u
		return c, nil

	case command.SelectorCommand:
		sel, err := e.expandSelector(c.Selector)
		if err != nil {
			return nil, err
		}
		c.Selector = sel
		return c, nil

	case command.TypeCommand:
		sel, err := e.expandSelector(c.Selector)
		if err != nil {
			return nil, err
		}
		val, _ := e.substitute(c.Value)
		c.Selector = sel
		c.Value = val
		return c, nil

	case command.PressCommand:
		k, err := e.expandKey(c.Key)
		if err != nil {
			return nil, err
		}
		c.Key = k
		return c, nil

	case command.SelectCommand:
		sel, err := e.expandSelector(c.Selector)
		if err != nil {
			return nil, err
		}
		val, _ := e.substitute(c.Value)
		c.Selector = sel
		c.Value = val
		return c, nil

	case command.UploadCommand:
		sel, err := e.expandSelector(c.Selector)
		if err != nil {
			return nil, err
		}
		files := make([]value.FilePath, len(c.Files))
		for i, f := range c.Files {
			nf, err := e.expandFilePath(f)
			if err != nil {
				return nil, err
			}
			files[i] = nf
		}
		c.Selector = sel
		c.Files = files
		return c, nil

	case command.DragCommand:
		src, err := e.expandSelector(c.Source)
		if err != nil {
			return nil, err
		}
		tgt, err := e.expandSelector(c.Target)
		if err != nil {
			return nil, err
		}
		c.Source = src
		c.Target = tgt
		return c, nil

	case command.ScrollCommand:
		return c, nil

	case command.WaitCommand:
		sel, err := e.expandSelector(c.Selector)
		if err != nil {
			return nil, err
		}
		c.Selector = sel
		return c, nil

	case command.ScreenshotCommand:
		p, err := e.expandFilePath(c.Path)
		if err != nil {
			return nil, err
		}
		c.Path = p
		return c, nil

	case command.SnapshotCommand:
		return c, nil

	case command.EvalCommand:
		js, err := e.expandJsExpression(c.Script)
		if err != nil {
			return nil, err
		}
		c.Script = js
		return c, nil

	default:
		return nil, fmt.Errorf("envexpand: unhandled command type %T", cmd)
	}
}

// Expand substitutes ${VAR} references throughout steps against env,
// returning a new slice (steps is left untouched). If any step references an
// undefined variable, Expand still walks every remaining step to collect the
// full set of undefined names before returning a single *MissingVarsError.
func Expand(steps []command.Command, env map[string]string) ([]command.Command, error) {
	e := &expander{env: env, missing: map[string]bool{}}
	out := make([]command.Command, len(steps))
	var firstErr error
	for i, step := range steps {
		expanded, err := e.expandCommand(step)
		if err != nil && firstErr == nil {
			firstErr = err
		}
		out[i] = expanded
	}
	if len(e.missing) > 0 {
		names := make([]string, 0, len(e.missing))
		for n := range e.missing {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, &MissingVarsError{Names: names}
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
