package config

import (
	"errors"
	"fmt"
)

// ErrMissing signals that the configuration file does not exist.
var ErrMissing = errors.New("configuration file not found")

// ParseError reports malformed TOML with the position of the defect.
type ParseError struct {
	Path    string
	Row     int
	Column  int
	Message string
}

func (e *ParseError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.Path, e.Row, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// ValidationError reports a well-formed config with an invalid or missing
// field, naming the offending entry.
type ValidationError struct {
	Section string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid configuration: [%s]: %s", e.Section, e.Message)
}
