package command

import (
	"fmt"

	"github.com/enbu-dev/enbu/internal/value"
)

// Encode renders cmd back into the raw long-form value it would produce
// after stage-1/stage-2 decoding — the inverse of ParseStep. It is used to
// serialize a parsed Flow back to YAML (flowfile.Serialize), so the pairing
// Encode(ParseStep(tag, raw)) == raw-in-long-form must round-trip through
// ParseStep to an identical typed Command, even when raw was originally
// written in short form.
func Encode(cmd Command) (any, error) {
	switch c := cmd.(type) {
	case OpenCommand:
		return map[string]any{"url": c.URL.String()}, nil
	case SelectorCommand:
		return selectorSpecMap(c.Selector), nil
	case TypeCommand:
		m := selectorSpecMap(c.Selector)
		m["value"] = c.Value
		return m, nil
	case PressCommand:
		return c.Key.String(), nil
	case SelectCommand:
		m := selectorSpecMap(c.Selector)
		m["value"] = c.Value
		return m, nil
	case UploadCommand:
		files := make([]any, len(c.Files))
		for i, f := range c.Files {
			files[i] = f.String()
		}
		m := selectorSpecMap(c.Selector)
		m["files"] = files
		return m, nil
	case DragCommand:
		return map[string]any{
			"source": selectorSpecMap(c.Source),
			"target": selectorSpecMap(c.Target),
		}, nil
	case ScrollCommand:
		return map[string]any{
			"direction": string(c.Direction),
			"amount":    c.Amount,
		}, nil
	case WaitCommand:
		if c.Ms != nil {
			return map[string]any{"ms": *c.Ms}, nil
		}
		m := selectorSpecMap(c.Selector)
		m["state"] = string(c.State)
		return m, nil
	case ScreenshotCommand:
		return map[string]any{
			"path":     c.Path.String(),
			"fullPage": c.FullPage,
		}, nil
	case SnapshotCommand:
		return nil, nil
	case EvalCommand:
		return map[string]any{"script": c.Script.String()}, nil
	default:
		return nil, fmt.Errorf("command: Encode: unknown command type %T", cmd)
	}
}

// selectorSpecMap renders sel as the long-form {css|xpath|text|ref: "..."}
// object keyed by its branded kind, matching selectorSpecProperties.
func selectorSpecMap(sel value.Selector) map[string]any {
	field := selectorFieldName(value.SelectorKind(sel))
	return map[string]any{field: sel.String()}
}

// selectorFieldName maps a branded Selector kind to its long-form key, the
// inverse of selectorSpec.toSelector's css/xpath/text/ref dispatch.
func selectorFieldName(kind string) string {
	switch kind {
	case "css":
		return "css"
	case "xpath":
		return "xpath"
	case "interactableText":
		return "text"
	case "ref":
		return "ref"
	default:
		return kind
	}
}
