// Package errors provides structured error handling for declareflow.
// It implements coded errors with context and stack traces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes for programmatic handling
type Code string

const (
	// Structural constraint errors (1xx)
	CodeInvalidBounds      Code = "E101"
	CodeEmptyObjectTypes   Code = "E102"
	CodeUnknownKind        Code = "E103"
	CodeUnknownQuantifier  Code = "E104"
	CodeAmbiguousObjectSet Code = "E105"
	CodeMissingActivity    Code = "E106"

	// Input errors (2xx)
	CodeInvalidThreshold Code = "E201"
	CodeUnknownO2OMode   Code = "E202"
	CodeFileNotFound     Code = "E203"
	CodeInvalidFormat    Code = "E204"

	// Processing errors (3xx)
	CodeParseFailed     Code = "E301"
	CodeEvaluationFault Code = "E302"
	CodeNegativeCount   Code = "E303"

	// Storage errors (4xx)
	CodeStoreInit  Code = "E401"
	CodeStoreQuery Code = "E402"
	CodeStoreWrite Code = "E403"

	// System errors (5xx)
	CodeContextCanceled Code = "E501"
	CodePanic           Code = "E502"

	// Unknown
	CodeUnknown Code = "E999"
)

// Error is the base error type for all declareflow errors.
type Error struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new Error.
func New(code Code, message string) *Error {
	return &Error{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// Wrapf wraps an error with a formatted message.
func Wrapf(err error, code Code, format string, args ...interface{}) *Error {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *Error) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// InvalidBounds reports a constraint whose min exceeds its max.
func InvalidBounds(min, max int) *Error {
	return New(CodeInvalidBounds, "min count exceeds max count").
		WithContext("min", min).
		WithContext("max", max)
}

// EmptyObjectTypes reports a constraint with no object types for its quantifier.
func EmptyObjectTypes(quantifier string) *Error {
	return New(CodeEmptyObjectTypes, "quantifier requires a non-empty object type set").
		WithContext("quantifier", quantifier)
}

// AmbiguousObjectSet reports a legacy constraint populating several of the
// any/all/each object type lists at once.
func AmbiguousObjectSet(populated []string) *Error {
	return New(CodeAmbiguousObjectSet, "more than one object quantifier list populated").
		WithContext("populated", populated)
}

// InvalidThreshold reports a discovery threshold outside (0, 1].
func InvalidThreshold(value float64) *Error {
	return New(CodeInvalidThreshold, "threshold must be in (0, 1]").
		WithContext("threshold", value)
}

// EvaluationFault wraps a fault raised while scoring one constraint.
func EvaluationFault(source, target string, cause error) *Error {
	return Wrap(cause, CodeEvaluationFault, "constraint evaluation failed").
		WithContext("source", source).
		WithContext("target", target)
}

// ContextCanceled creates a cancellation error.
func ContextCanceled(operation string) *Error {
	return New(CodeContextCanceled, "operation canceled").
		WithContext("operation", operation)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// MultiError collects multiple errors.
type MultiError struct {
	Errors []error
}

// Error implements the error interface.
func (m *MultiError) Error() string {
	if len(m.Errors) == 0 {
		return "no errors"
	}
	if len(m.Errors) == 1 {
		return m.Errors[0].Error()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d errors occurred:\n", len(m.Errors)))
	for i, err := range m.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// Add adds an error to the collection.
func (m *MultiError) Add(err error) {
	if err != nil {
		m.Errors = append(m.Errors, err)
	}
}

// HasErrors returns true if any errors were collected.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) > 0
}

// Combined returns nil if no errors, the single error if one, or the MultiError.
func (m *MultiError) Combined() error {
	switch len(m.Errors) {
	case 0:
		return nil
	case 1:
		return m.Errors[0]
	default:
		return m
	}
}
