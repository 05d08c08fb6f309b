// Package flowfile parses an enbu flow document (*.enbu.yaml): a name, an
// optional env block, and an ordered list of steps. It is immutable once
// parsed; env merging happens one layer up in flowexec.
package flowfile

import "github.com/enbu-dev/enbu/internal/command"

// Flow is a parsed flow document.
type Flow struct {
	Name  string
	Env   map[string]string
	Steps []command.Command
}

// Position is a step's location in the source document, for diagnostics.
// Column is 0 when the underlying YAML decoder didn't report one.
type Position struct {
	Line   int
	Column int
}

// HasPosition reports whether p carries real source coordinates.
func (p Position) HasPosition() bool { return p.Line > 0 }
