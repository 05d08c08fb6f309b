package flowfile

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/enbu-dev/enbu/internal/command"
)

// ErrorKind classifies a parse failure per §4.3.
type ErrorKind string

const (
	KindInvalidYAML    ErrorKind = "invalid_yaml"
	KindInvalidCommand ErrorKind = "invalid_command"
	KindMissingField   ErrorKind = "missing_field"
	KindUnknownCommand ErrorKind = "unknown_command"
)

// ParseError is returned by Parse. Line/Column are zero (Position.HasPosition
// false) when the underlying YAML library didn't attach a node position —
// e.g. a failure before any node was decoded.
type ParseError struct {
	Kind     ErrorKind
	Position Position
	Snippet  string
	Message  string
	Err      error
}

func (e *ParseError) Error() string {
	if e.Position.HasPosition() {
		return fmt.Sprintf("%s at line %d: %s", e.Kind, e.Position.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse parses an enbu flow document. It returns the typed Flow and a
// parallel slice of Positions (one per Flow.Steps entry, same index), or a
// *ParseError describing the first failure.
func Parse(source []byte) (*Flow, []Position, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(source, &root); err != nil {
		return nil, nil, &ParseError{Kind: KindInvalidYAML, Message: err.Error(), Err: err}
	}
	if len(root.Content) == 0 {
		return nil, nil, &ParseError{Kind: KindInvalidYAML, Message: "empty document"}
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, nil, &ParseError{
			Kind:     KindInvalidYAML,
			Position: Position{Line: doc.Line, Column: doc.Column},
			Message:  "flow document must be a mapping with name/env/steps",
		}
	}

	fields, err := mappingFields(doc, map[string]bool{"name": true, "env": true, "steps": true})
	if err != nil {
		return nil, nil, err
	}

	nameNode, ok := fields["name"]
	if !ok {
		return nil, nil, &ParseError{Kind: KindMissingField, Message: "missing required field \"name\""}
	}
	var name string
	if err := nameNode.Decode(&name); err != nil || name == "" {
		return nil, nil, &ParseError{
			Kind:     KindInvalidYAML,
			Position: Position{Line: nameNode.Line, Column: nameNode.Column},
			Message:  "\"name\" must be a non-empty string",
		}
	}

	env := map[string]string{}
	if envNode, ok := fields["env"]; ok {
		if err := envNode.Decode(&env); err != nil {
			return nil, nil, &ParseError{
				Kind:     KindInvalidYAML,
				Position: Position{Line: envNode.Line, Column: envNode.Column},
				Message:  "\"env\" must be a mapping of string to string",
			}
		}
	}

	stepsNode, ok := fields["steps"]
	if !ok {
		return nil, nil, &ParseError{Kind: KindMissingField, Message: "missing required field \"steps\""}
	}
	if stepsNode.Kind != yaml.SequenceNode {
		return nil, nil, &ParseError{
			Kind:     KindInvalidYAML,
			Position: Position{Line: stepsNode.Line, Column: stepsNode.Column},
			Message:  "\"steps\" must be a list",
		}
	}

	steps := make([]command.Command, 0, len(stepsNode.Content))
	positions := make([]Position, 0, len(stepsNode.Content))
	for _, item := range stepsNode.Content {
		cmd, pos, err := parseStep(item)
		if err != nil {
			return nil, nil, err
		}
		steps = append(steps, cmd)
		positions = append(positions, pos)
	}

	return &Flow{Name: name, Env: env, Steps: steps}, positions, nil
}

// parseStep parses a single step node: a one-key mapping whose key is the
// command tag and whose value is validated and decoded by
// command.ParseStep.
func parseStep(item *yaml.Node) (command.Command, Position, error) {
	pos := Position{Line: item.Line, Column: item.Column}
	if item.Kind != yaml.MappingNode {
		return nil, pos, &ParseError{
			Kind:     KindInvalidCommand,
			Position: pos,
			Message:  "each step must be a one-key mapping, e.g. {click: \"Login\"}",
		}
	}
	if len(item.Content) != 2 {
		return nil, pos, &ParseError{
			Kind:     KindInvalidCommand,
			Position: pos,
			Message:  fmt.Sprintf("each step must have exactly one key, found %d", len(item.Content)/2),
		}
	}
	keyNode, valNode := item.Content[0], item.Content[1]
	tag := keyNode.Value
	pos = Position{Line: keyNode.Line, Column: keyNode.Column}

	var raw any
	if err := valNode.Decode(&raw); err != nil {
		return nil, pos, &ParseError{
			Kind:     KindInvalidYAML,
			Position: pos,
			Message:  fmt.Sprintf("step %q: %v", tag, err),
			Err:      err,
		}
	}

	cmd, err := command.ParseStep(tag, raw)
	if err != nil {
		kind := KindInvalidCommand
		if pe, ok := err.(*command.ParseError); ok && pe.Message == "unknown command" {
			kind = KindUnknownCommand
		}
		return nil, pos, &ParseError{
			Kind:     kind,
			Position: pos,
			Snippet:  tag,
			Message:  err.Error(),
			Err:      err,
		}
	}
	return cmd, pos, nil
}

// Serialize renders flow back into an enbu flow document. Every command
// encodes to its long form (e.g. {css: "#x"} rather than a bare string),
// so Parse(Serialize(flow)) always reparses to steps identical to flow's,
// regardless of whether flow itself came from short-form or long-form YAML.
func Serialize(flow *Flow) ([]byte, error) {
	steps := make([]map[string]any, 0, len(flow.Steps))
	for i, cmd := range flow.Steps {
		raw, err := command.Encode(cmd)
		if err != nil {
			return nil, fmt.Errorf("serialize step %d: %w", i, err)
		}
		steps = append(steps, map[string]any{string(cmd.Tag()): raw})
	}
	doc := flowDoc{Name: flow.Name, Env: flow.Env, Steps: steps}
	return yaml.Marshal(&doc)
}

// flowDoc is the YAML shape Serialize emits: the same name/env/steps
// top-level mapping Parse consumes.
type flowDoc struct {
	Name  string            `yaml:"name"`
	Env   map[string]string `yaml:"env,omitempty"`
	Steps []map[string]any  `yaml:"steps"`
}

// mappingFields walks a MappingNode's key/value pairs, returning a map from
// key name to value node. allowed, if non-nil, restricts which keys may
// appear; an out-of-set key is an invalid_yaml error.
func mappingFields(m *yaml.Node, allowed map[string]bool) (map[string]*yaml.Node, error) {
	fields := make(map[string]*yaml.Node, len(m.Content)/2)
	for i := 0; i+1 < len(m.Content); i += 2 {
		key := m.Content[i]
		val := m.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, &ParseError{
				Kind:     KindInvalidYAML,
				Position: Position{Line: key.Line, Column: key.Column},
				Message:  "mapping keys must be scalars",
			}
		}
		if allowed != nil && !allowed[key.Value] {
			return nil, &ParseError{
				Kind:     KindInvalidYAML,
				Position: Position{Line: key.Line, Column: key.Column},
				Message:  fmt.Sprintf("unknown top-level field %q", key.Value),
			}
		}
		fields[key.Value] = val
	}
	return fields, nil
}
