// Package errors provides structured error types for graphsync.
//
// This package defines error codes and types that enable:
//   - Consistent error reporting from the sync engine, stores and CLI
//   - Machine-readable error codes carried on application error events
//   - Error wrapping with context preservation
//
// # Error Codes
//
// The sync engine reports every unrecovered failure with one of four codes:
//   - LOAD_FAILURE: a stage of the ordered session load rejected
//   - CREATE_FAILURE: backend creation of an entity or relation rejected
//   - DELETE_FAILURE: backend deletion of an entity or relation rejected
//   - SAVE_FAILURE: updating the persisted diagram content rejected
//
// Stores and configuration use the generic INVALID_*, NOT_FOUND and NETWORK_*
// codes.
//
// # Usage
//
//	err := errors.Wrap(errors.ErrCodeCreateFailure, cause, "create entity in %s", collection)
//	if errors.Is(err, errors.ErrCodeCreateFailure) {
//	    // roll back the optimistic cell
//	}
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput  Code = "INVALID_INPUT"
	ErrCodeInvalidConfig Code = "INVALID_CONFIG"
	ErrCodeInvalidKey    Code = "INVALID_KEY"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeCellNotFound Code = "CELL_NOT_FOUND"

	// Network errors
	ErrCodeNetwork Code = "NETWORK_ERROR"
	ErrCodeTimeout Code = "TIMEOUT"

	// Synchronization errors
	ErrCodeLoadFailure   Code = "LOAD_FAILURE"
	ErrCodeCreateFailure Code = "CREATE_FAILURE"
	ErrCodeDeleteFailure Code = "DELETE_FAILURE"
	ErrCodeSaveFailure   Code = "SAVE_FAILURE"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It unwraps the error chain looking for an *Error with a matching code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
