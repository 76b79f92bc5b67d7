package driver

import (
	"errors"
	"fmt"
)

// ErrNoTTY is returned when interactive mode is requested but standard
// input is not a terminal.
var ErrNoTTY = errors.New("interactive mode requires a terminal")

// ConfigError reports malformed session configuration: a bad define
// expression or an invalid output combination.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "config: " + e.Reason
}

// IOError wraps a filesystem or stdin failure with the operation that
// produced it.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// CompileError reports a source unit the backend rejected. The backend
// diagnostic has already been surfaced through the error funnel; Unit
// names the offending input.
type CompileError struct {
	Unit string
	Err  error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Unit, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// LinkError reports a relocation or symbol resolution failure.
type LinkError struct {
	Err error
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("link: %v", e.Err)
}

func (e *LinkError) Unwrap() error { return e.Err }
