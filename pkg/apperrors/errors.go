// Package apperrors defines the typed errors raised while loading a spec,
// building the tool set and invoking generated tools.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Error types for structured error handling
type ErrorType string

const (
	ErrorTypeLoad       ErrorType = "load"
	ErrorTypeSchema     ErrorType = "schema"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeGeneration ErrorType = "generation"
	ErrorTypeStore      ErrorType = "store"
	ErrorTypeInternal   ErrorType = "internal"
)

// Error is a startup-phase error carrying its type and the underlying cause.
type Error struct {
	Type      ErrorType `json:"type"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp int64     `json:"timestamp"`
	Cause     error     `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s error: %s", e.Type, e.Message)
	if e.Details != "" {
		msg += " (" + e.Details + ")"
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a new Error without a cause.
func New(errType ErrorType, message string, details string) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().Unix(),
	}
}

// Wrap wraps err as an Error of the given type. A nil err returns nil.
func Wrap(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}
	e := New(errType, message, "")
	e.Cause = err
	return e
}

// Load reports an unreachable or unparseable spec source.
func Load(source string, err error) *Error {
	e := Wrap(err, ErrorTypeLoad, "cannot load specification")
	if e == nil {
		e = New(ErrorTypeLoad, "cannot load specification", "")
	}
	e.Details = source
	return e
}

// Schema reports an unresolved, external or cyclic reference.
func Schema(ref string, message string) *Error {
	return New(ErrorTypeSchema, message, ref)
}

// Config reports a malformed configuration value.
func Config(message string, details string) *Error {
	return New(ErrorTypeConfig, message, details)
}

// Generation reports a failure building the tool set.
func Generation(message string, details string) *Error {
	return New(ErrorTypeGeneration, message, details)
}

// IsType checks if err (or anything it wraps) is an Error of errType.
func IsType(err error, errType ErrorType) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Type == errType
	}
	return false
}

// GetType returns the error type if err wraps an Error, otherwise ErrorTypeInternal.
func GetType(err error) ErrorType {
	var e *Error
	if errors.As(err, &e) {
		return e.Type
	}
	return ErrorTypeInternal
}
