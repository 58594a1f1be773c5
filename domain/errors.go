package domain

import (
	"errors"
	"fmt"
)

// ErrConfig is the sentinel all configuration failures wrap, so callers can
// match the whole class with errors.Is.
var ErrConfig = errors.New("domain: invalid configuration")

// ConfigError describes a malformed or incomplete model configuration.
// Field names the offending input and Constraint states what was expected,
// so callers can build a precise message without parsing the error string.
type ConfigError struct {
	Field      string
	Constraint string
	Value      any
}

func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("domain: %s: %s (got %v)", e.Field, e.Constraint, e.Value)
	}
	return fmt.Sprintf("domain: %s: %s", e.Field, e.Constraint)
}

func (e *ConfigError) Unwrap() error { return ErrConfig }

// NewConfigError builds a ConfigError for the given field and constraint.
func NewConfigError(field, constraint string, value any) *ConfigError {
	return &ConfigError{Field: field, Constraint: constraint, Value: value}
}
