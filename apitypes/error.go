// Package apitypes defines the value types shared across the router, twins,
// connector runtime and workflow engine: the structured tool error and the
// uniform pagination request/result shapes.
package apitypes

import (
	"errors"
	"fmt"
)

// Error is the single structured error value surfaced by tool handlers.
// Callers branch on Code; Message is human readable; Detail carries
// tool-specific context that survives serialization into traces.
type Error struct {
	// Code is a stable machine-readable identifier such as "unknown_tool",
	// "invalid_cursor" or "policy.denied".
	Code string
	// Message is the human-readable summary of the failure.
	Message string
	// Detail carries optional structured context (entity ids, limits).
	Detail map[string]any
}

// NewError constructs an Error with the given code and message.
func NewError(code, message string) *Error {
	if message == "" {
		message = code
	}
	return &Error{Code: code, Message: message}
}

// Errorf constructs an Error with a formatted message.
func Errorf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithDetail returns a copy of the error carrying the given detail entry.
func (e *Error) WithDetail(key string, value any) *Error {
	detail := make(map[string]any, len(e.Detail)+1)
	for k, v := range e.Detail {
		detail[k] = v
	}
	detail[key] = value
	return &Error{Code: e.Code, Message: e.Message, Detail: detail}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// AsError extracts a structured Error from an arbitrary error chain. Errors
// that are not structured are wrapped under the "internal" code so callers
// always observe the single taxonomy.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var te *Error
	if errors.As(err, &te) {
		return te
	}
	return &Error{Code: "internal", Message: err.Error()}
}

// ErrorCode returns the structured code for err, or "" when err is nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	return AsError(err).Code
}
