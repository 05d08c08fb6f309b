package command

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/enbu-dev/enbu/internal/value"
)

// ParseError reports a failure to validate or decode a single step's raw
// YAML value against its command schema.
type ParseError struct {
	Tag     string
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("command %q: %s", e.Tag, e.Message)
}

// selectorSpec is the stage-2 staging shape shared by every command whose
// long form names a selector: exactly one of css/xpath/text/ref.
type selectorSpec struct {
	CSS   string `mapstructure:"css"`
	Xpath string `mapstructure:"xpath"`
	Text  string `mapstructure:"text"`
	Ref   string `mapstructure:"ref"`
}

func (s selectorSpec) toSelector() (value.Selector, error) {
	switch {
	case s.CSS != "":
		return value.NewCSSSelector(s.CSS)
	case s.Xpath != "":
		return value.NewXPathSelector(s.Xpath)
	case s.Text != "":
		return value.NewInteractableText(s.Text)
	case s.Ref != "":
		return value.NewRef(s.Ref)
	default:
		return nil, fmt.Errorf("missing selector field (one of css, xpath, text, ref)")
	}
}

// stepSchema is a single command tag's two-stage validator: a compiled
// JSON Schema (stage 1, permissive shape check) and a decode function
// (stage 2, mapstructure + branding).
type stepSchema struct {
	tag      Tag
	jsonSch  *jsonschema.Schema
	decode   func(raw any) (Command, error)
}

func (s stepSchema) matches(tag string) bool { return string(s.tag) == tag }

// schemas lists one stepSchema per command tag, in the declaration order of
// spec's Commands table. ParseStep walks this list in order and uses the
// first schema whose tag matches the step's key, per §4.3.
var schemas []stepSchema

func init() {
	schemas = []stepSchema{
		newShortOrSelectorSchema(TagOpen, "url", decodeOpen),
		newSelectorOnlySchema(TagClick),
		newSelectorOnlySchema(TagDblClick),
		newSelectorOnlySchema(TagHover),
		newSelectorOnlySchema(TagFocus),
		newSelectorOnlySchema(TagScrollIntoView),
		newSelectorValueSchema(TagType),
		newSelectorValueSchema(TagFill),
		newShortStringSchema(TagPress, decodePress),
		newSelectorValueSchema(TagSelect),
		newSelectorOnlySchema(TagCheck),
		newSelectorOnlySchema(TagUncheck),
		newUploadSchema(),
		newDragSchema(),
		newScrollSchema(),
		newWaitSchema(),
		newScreenshotSchema(),
		newSnapshotSchema(),
		newShortOrObjectSchema(TagEval, "script", decodeEval),
		newSelectorOnlySchema(TagAssertVisible),
		newSelectorOnlySchema(TagAssertNotVisible),
		newSelectorOnlySchema(TagAssertEnabled),
		newSelectorOnlySchema(TagAssertChecked),
	}
}

// ParseStep validates and decodes the raw YAML value under a single-key
// step mapping (the key being tag) into a typed Command, trying each
// registered schema in order until one claims the tag.
func ParseStep(tag string, raw any) (Command, error) {
	for _, s := range schemas {
		if !s.matches(tag) {
			continue
		}
		if err := validateAgainstSchema(s.jsonSch, raw); err != nil {
			return nil, &ParseError{Tag: tag, Message: err.Error()}
		}
		cmd, err := s.decode(raw)
		if err != nil {
			return nil, &ParseError{Tag: tag, Message: err.Error()}
		}
		return cmd, nil
	}
	return nil, &ParseError{Tag: tag, Message: "unknown command"}
}

func validateAgainstSchema(sch *jsonschema.Schema, raw any) error {
	// jsonschema/v5 validates native Go values (string, float64, map[string]any, ...)
	// so we round-trip through JSON to normalize int/float and nested map types
	// the same way a YAML-decoded document would present them.
	b, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal step value: %w", err)
	}
	var v any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("decode step value: %w", err)
	}
	v = numbersToFloat(v)
	if err := sch.Validate(v); err != nil {
		return err
	}
	return nil
}

// numbersToFloat converts json.Number leaves (produced by UseNumber, needed
// to tell integers from floats without losing precision warnings) into
// float64 so jsonschema's "number"/"integer" checks behave as on a plain
// json.Unmarshal target.
func numbersToFloat(v any) any {
	switch x := v.(type) {
	case json.Number:
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, val := range x {
			x[k] = numbersToFloat(val)
		}
		return x
	case []any:
		for i, val := range x {
			x[i] = numbersToFloat(val)
		}
		return x
	default:
		return v
	}
}

func compileSchema(name string, schemaObj map[string]any) *jsonschema.Schema {
	b, err := json.Marshal(schemaObj)
	if err != nil {
		panic(fmt.Sprintf("command: marshal schema %s: %v", name, err))
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("command: add schema resource %s: %v", name, err))
	}
	sch, err := c.Compile(name)
	if err != nil {
		panic(fmt.Sprintf("command: compile schema %s: %v", name, err))
	}
	return sch
}

// selectorSpecProperties is the JSON-schema "properties" fragment shared by
// every selector-bearing long form.
func selectorSpecProperties() map[string]any {
	return map[string]any{
		"css":   map[string]any{"type": "string", "minLength": 1},
		"xpath": map[string]any{"type": "string", "minLength": 1},
		"text":  map[string]any{"type": "string", "minLength": 1},
		"ref":   map[string]any{"type": "string", "minLength": 1},
	}
}

func decodeSelectorSpec(raw any) (value.Selector, error) {
	var spec selectorSpec
	if err := decodeStruct(raw, &spec); err != nil {
		return nil, err
	}
	return spec.toSelector()
}

func decodeStruct(raw any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("build decoder: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// --- selector-only commands (click, hover, check, assert*, ...) ---

func newSelectorOnlySchema(tag Tag) stepSchema {
	obj := map[string]any{
		"type":                 "object",
		"properties":           selectorSpecProperties(),
		"additionalProperties": false,
		"minProperties":        1,
		"maxProperties":        1,
	}
	sch := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			obj,
		},
	}
	return stepSchema{
		tag:     tag,
		jsonSch: compileSchema(string(tag)+".schema.json", sch),
		decode: func(raw any) (Command, error) {
			var sel value.Selector
			var err error
			if s, ok := raw.(string); ok {
				sel, err = value.NewInteractableText(s)
			} else {
				sel, err = decodeSelectorSpec(raw)
			}
			if err != nil {
				return nil, err
			}
			return SelectorCommand{CommandTag: tag, Selector: sel}, nil
		},
	}
}

// --- open: short string or {url: "..."} ---

func newShortOrSelectorSchema(tag Tag, fieldName string, decode func(raw any) (Command, error)) stepSchema {
	sch := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					fieldName: map[string]any{"type": "string", "minLength": 1},
				},
				"required":             []any{fieldName},
				"additionalProperties": false,
			},
		},
	}
	return stepSchema{
		tag:     tag,
		jsonSch: compileSchema(string(tag)+".schema.json", sch),
		decode:  decode,
	}
}

func decodeOpen(raw any) (Command, error) {
	u := extractShortOrField(raw, "url")
	url, err := value.NewURL(u)
	if err != nil {
		return nil, err
	}
	return OpenCommand{URL: url}, nil
}

func extractShortOrField(raw any, field string) string {
	if s, ok := raw.(string); ok {
		return s
	}
	if m, ok := raw.(map[string]any); ok {
		if v, ok := m[field].(string); ok {
			return v
		}
	}
	return ""
}

// --- press: short string only ---

func newShortStringSchema(tag Tag, decode func(raw any) (Command, error)) stepSchema {
	sch := map[string]any{"type": "string", "minLength": 1}
	return stepSchema{
		tag:     tag,
		jsonSch: compileSchema(string(tag)+".schema.json", sch),
		decode:  decode,
	}
}

func decodePress(raw any) (Command, error) {
	s, _ := raw.(string)
	key, err := value.NewKeyboardKey(s)
	if err != nil {
		return nil, err
	}
	return PressCommand{Key: key}, nil
}

// --- eval: short string or {script: "..."} ---

func newShortOrObjectSchema(tag Tag, fieldName string, decode func(raw any) (Command, error)) stepSchema {
	return newShortOrSelectorSchema(tag, fieldName, decode)
}

func decodeEval(raw any) (Command, error) {
	s := extractShortOrField(raw, "script")
	script, err := value.NewJsExpression(s)
	if err != nil {
		return nil, err
	}
	return EvalCommand{Script: script}, nil
}

// --- type / fill / select: selectorSpec + required "value" ---

func newSelectorValueSchema(tag Tag) stepSchema {
	props := selectorSpecProperties()
	props["value"] = map[string]any{"type": "string"}
	sch := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             []any{"value"},
		"additionalProperties": false,
	}
	return stepSchema{
		tag:     tag,
		jsonSch: compileSchema(string(tag)+".schema.json", sch),
		decode: func(raw any) (Command, error) {
			sel, err := decodeSelectorSpec(raw)
			if err != nil {
				return nil, err
			}
			var staging struct {
				Value string `mapstructure:"value"`
			}
			if err := decodeStruct(raw, &staging); err != nil {
				return nil, err
			}
			if tag == TagSelect {
				return SelectCommand{Selector: sel, Value: staging.Value}, nil
			}
			return TypeCommand{CommandTag: tag, Selector: sel, Value: staging.Value}, nil
		},
	}
}

// --- upload: selectorSpec + required "files" (string or []string) ---

func newUploadSchema() stepSchema {
	props := selectorSpecProperties()
	props["files"] = map[string]any{
		"oneOf": []any{
			map[string]any{"type": "string", "minLength": 1},
			map[string]any{"type": "array", "items": map[string]any{"type": "string", "minLength": 1}, "minItems": 1},
		},
	}
	sch := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             []any{"files"},
		"additionalProperties": false,
	}
	return stepSchema{
		tag:     TagUpload,
		jsonSch: compileSchema("upload.schema.json", sch),
		decode: func(raw any) (Command, error) {
			sel, err := decodeSelectorSpec(raw)
			if err != nil {
				return nil, err
			}
			m, _ := raw.(map[string]any)
			var paths []string
			switch f := m["files"].(type) {
			case string:
				paths = []string{f}
			case []any:
				for _, v := range f {
					if s, ok := v.(string); ok {
						paths = append(paths, s)
					}
				}
			}
			files := make([]value.FilePath, 0, len(paths))
			for _, p := range paths {
				fp, err := value.NewFilePath(p)
				if err != nil {
					return nil, err
				}
				files = append(files, fp)
			}
			return UploadCommand{Selector: sel, Files: files}, nil
		},
	}
}

// --- drag: required nested "source" and "target" selector specs ---

func newDragSchema() stepSchema {
	nested := map[string]any{
		"type":                 "object",
		"properties":           selectorSpecProperties(),
		"additionalProperties": false,
		"minProperties":        1,
		"maxProperties":        1,
	}
	sch := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"source": nested,
			"target": nested,
		},
		"required":             []any{"source", "target"},
		"additionalProperties": false,
	}
	return stepSchema{
		tag:     TagDrag,
		jsonSch: compileSchema("drag.schema.json", sch),
		decode: func(raw any) (Command, error) {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("drag: expected object")
			}
			src, err := decodeSelectorSpec(m["source"])
			if err != nil {
				return nil, fmt.Errorf("drag.source: %w", err)
			}
			dst, err := decodeSelectorSpec(m["target"])
			if err != nil {
				return nil, fmt.Errorf("drag.target: %w", err)
			}
			return DragCommand{Source: src, Target: dst}, nil
		},
	}
}

// --- scroll: required "direction" enum + "amount" number ---

func newScrollSchema() stepSchema {
	sch := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"direction": map[string]any{"type": "string", "enum": []any{"up", "down", "left", "right"}},
			"amount":    map[string]any{"type": "number"},
		},
		"required":             []any{"direction", "amount"},
		"additionalProperties": false,
	}
	return stepSchema{
		tag:     TagScroll,
		jsonSch: compileSchema("scroll.schema.json", sch),
		decode: func(raw any) (Command, error) {
			var staging struct {
				Direction string  `mapstructure:"direction"`
				Amount    float64 `mapstructure:"amount"`
			}
			if err := decodeStruct(raw, &staging); err != nil {
				return nil, err
			}
			return ScrollCommand{Direction: ScrollDirection(staging.Direction), Amount: staging.Amount}, nil
		},
	}
}

// --- wait: {ms: number} xor (selectorSpec + state enum) ---

func newWaitSchema() stepSchema {
	msForm := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"ms": map[string]any{"type": "number", "minimum": 0},
		},
		"required":             []any{"ms"},
		"additionalProperties": false,
	}
	stateProps := selectorSpecProperties()
	stateProps["state"] = map[string]any{"type": "string", "enum": []any{"visible", "hidden", "attached", "detached"}}
	selectorForm := map[string]any{
		"type":                 "object",
		"properties":           stateProps,
		"required":             []any{"state"},
		"additionalProperties": false,
	}
	sch := map[string]any{"oneOf": []any{msForm, selectorForm}}
	return stepSchema{
		tag:     TagWait,
		jsonSch: compileSchema("wait.schema.json", sch),
		decode: func(raw any) (Command, error) {
			m, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("wait: expected object")
			}
			if msRaw, present := m["ms"]; present {
				ms, err := coerceInt(msRaw)
				if err != nil {
					return nil, fmt.Errorf("wait.ms: %w", err)
				}
				return WaitCommand{Ms: &ms}, nil
			}
			sel, err := decodeSelectorSpec(raw)
			if err != nil {
				return nil, err
			}
			var staging struct {
				State string `mapstructure:"state"`
			}
			if err := decodeStruct(raw, &staging); err != nil {
				return nil, err
			}
			return WaitCommand{Selector: sel, State: WaitState(staging.State)}, nil
		},
	}
}

func coerceInt(v any) (int, error) {
	switch x := v.(type) {
	case float64:
		return int(x), nil
	case int:
		return x, nil
	case string:
		return strconv.Atoi(x)
	default:
		return 0, fmt.Errorf("expected number, got %T", v)
	}
}

// --- screenshot: required "path" + optional "fullPage" ---

func newScreenshotSchema() stepSchema {
	sch := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path":     map[string]any{"type": "string", "minLength": 1},
			"fullPage": map[string]any{"type": "boolean"},
		},
		"required":             []any{"path"},
		"additionalProperties": false,
	}
	return stepSchema{
		tag:     TagScreenshot,
		jsonSch: compileSchema("screenshot.schema.json", sch),
		decode: func(raw any) (Command, error) {
			var staging struct {
				Path     string `mapstructure:"path"`
				FullPage bool   `mapstructure:"fullPage"`
			}
			if err := decodeStruct(raw, &staging); err != nil {
				return nil, err
			}
			path, err := value.NewFilePath(staging.Path)
			if err != nil {
				return nil, err
			}
			return ScreenshotCommand{Path: path, FullPage: staging.FullPage}, nil
		},
	}
}

// --- snapshot: no fields; accepts null or an empty object ---

func newSnapshotSchema() stepSchema {
	sch := map[string]any{
		"oneOf": []any{
			map[string]any{"type": "null"},
			map[string]any{"type": "object", "additionalProperties": false, "maxProperties": 0},
		},
	}
	return stepSchema{
		tag:     TagSnapshot,
		jsonSch: compileSchema("snapshot.schema.json", sch),
		decode: func(raw any) (Command, error) {
			return SnapshotCommand{}, nil
		},
	}
}
