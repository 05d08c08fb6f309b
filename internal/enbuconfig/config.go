// Package enbuconfig defines RunOptions, the top-level knobs a run (CLI
// flags or a config file) can set, with struct-tag-driven defaulting and
// validation.
package enbuconfig

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// RunOptions is the fully-resolved set of knobs governing one orchestrator
// run. Fields carry `default` tags for creasty/defaults and validation
// tags for go-playground/validator.
type RunOptions struct {
	Headed             bool              `default:"false"`
	CommandTimeoutMs   int               `default:"30000" validate:"gt=0"`
	AutoWaitTimeoutMs  int               `default:"30000" validate:"gt=0"`
	AutoWaitIntervalMs int               `default:"100" validate:"gt=0"`
	Parallel           int               `default:"1" validate:"gte=1"`
	Bail               bool              `default:"true"`
	Screenshot         bool              `default:"true"`
	DriverBinary       string            `validate:"omitempty"`
	Session            string            `validate:"omitempty"`
	Env                map[string]string `validate:"omitempty"`
}

var validate = validator.New()

// ApplyDefaults fills zero-valued fields of opts per their `default` struct
// tags. Like creasty/defaults generally, this cannot distinguish "false
// because unset" from "false on purpose" for bool fields — callers that
// layer explicit overrides on top (e.g. a CLI's --no-bail) must apply
// ApplyDefaults to a bare struct first and merge overrides in afterward,
// never call it on a struct that already carries an intentional false.
func ApplyDefaults(opts *RunOptions) error {
	if opts == nil {
		return fmt.Errorf("enbuconfig: RunOptions is nil")
	}
	if err := defaults.Set(opts); err != nil {
		return fmt.Errorf("enbuconfig: applying defaults: %w", err)
	}
	return nil
}

// Validate checks opts against its validation tags.
func Validate(opts *RunOptions) error {
	if opts == nil {
		return fmt.Errorf("enbuconfig: RunOptions is nil")
	}
	if err := validate.Struct(opts); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			return fmt.Errorf("enbuconfig: invalid run options: %s", formatValidationErrors(verrs))
		}
		return fmt.Errorf("enbuconfig: invalid run options: %w", err)
	}
	return nil
}

// Resolve applies struct-tag defaults to opts, then validates the result.
// Suitable when opts was decoded from a config file (no pre-existing
// intentional false-valued bools to protect) and is handed to the
// orchestrator as-is. CLI callers that need to preserve an explicit
// --no-bail/--no-screenshot should use ApplyDefaults on a bare struct and
// Validate after merging flag overrides instead.
func Resolve(opts *RunOptions) error {
	if err := ApplyDefaults(opts); err != nil {
		return err
	}
	return Validate(opts)
}

func formatValidationErrors(verrs validator.ValidationErrors) string {
	msg := ""
	for i, fe := range verrs {
		if i > 0 {
			msg += "; "
		}
		msg += fmt.Sprintf("field %q failed %q", fe.Field(), fe.Tag())
	}
	return msg
}
