// Package errors provides the engine's error taxonomy.
//
// Fatal conditions (missing input data, configuration-dependent data gaps,
// analytic infeasibility) are typed errors that abort model assembly.
// Non-fatal conditions (solver-infeasible termination, absent optional
// tables) are never expressed as errors; callers surface them as warnings.
package errors

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"
)

// Type identifies the category of error
type Type string

const (
	// TypeMissingData indicates essential sets or parameters are absent
	TypeMissingData Type = "MISSING_DATA"

	// TypeConfigData indicates a selected configuration option requires
	// tables that are absent
	TypeConfigData Type = "CONFIG_DATA"

	// TypeDataInfeasibility indicates an analytic supply/capacity check
	// failed before any solver was invoked
	TypeDataInfeasibility Type = "DATA_INFEASIBILITY"

	// TypeSolver indicates a solver backend problem (no candidate
	// available, backend invocation failure)
	TypeSolver Type = "SOLVER_ERROR"

	// TypeModel indicates an internal model inconsistency (unknown
	// variable, malformed index, degenerate constraint)
	TypeModel Type = "MODEL_ERROR"
)

// Error represents a domain error with context
type Error struct {
	Type    Type
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext attaches a labelled value to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new error
func New(errType Type, message string) *Error {
	return &Error{Type: errType, Message: message}
}

// Newf creates a new formatted error
func Newf(errType Type, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an error with context
func Wrap(errType Type, message string, cause error) *Error {
	return &Error{Type: errType, Message: message, Cause: cause}
}

// Wrapf wraps an error with formatted context
func Wrapf(errType Type, cause error, format string, args ...interface{}) *Error {
	return &Error{Type: errType, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// IsType checks if an error is of a specific type
func IsType(err error, t Type) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == t
	}
	return false
}

// Collector accumulates validation problems so a single aggregated error
// can report every detected issue rather than just the first.
type Collector struct {
	errs error
}

// Addf records one problem
func (c *Collector) Addf(format string, args ...interface{}) {
	c.errs = multierr.Append(c.errs, fmt.Errorf(format, args...))
}

// Add records one problem
func (c *Collector) Add(err error) {
	if err != nil {
		c.errs = multierr.Append(c.errs, err)
	}
}

// Empty reports whether no problems were recorded
func (c *Collector) Empty() bool {
	return c.errs == nil
}

// Len returns the number of recorded problems
func (c *Collector) Len() int {
	return len(multierr.Errors(c.errs))
}

// Err flattens everything recorded into one typed error, or nil
func (c *Collector) Err(errType Type, summary string) error {
	if c.errs == nil {
		return nil
	}
	return Wrap(errType, fmt.Sprintf("%s (%d problems)", summary, c.Len()), c.errs)
}
