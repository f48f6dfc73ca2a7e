// Package errors provides structured error types for the Poster Forge application.
//
// This package defines error codes and types that enable:
//   - Consistent error handling across CLI and API
//   - Machine-readable error codes for programmatic handling
//   - User-friendly error messages
//   - Error wrapping with context preservation
//
// # Error Codes
//
// Error codes follow a hierarchical naming convention:
//   - INVALID_*: Input validation failures
//   - *_NOT_FOUND: Resource not found
//   - GEOCODING_*, DATA_FETCH: External data failures
//   - INTERNAL_*: Unexpected internal errors
//
// # Usage
//
//	err := errors.New(errors.ErrCodeInvalidDistance, "distance %d out of range", d)
//	if errors.Is(err, errors.ErrCodeInvalidDistance) {
//	    // Handle validation error
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(origErr, errors.ErrCodeDataFetch, "failed to fetch %s", layer)
package errors

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput    Code = "INVALID_INPUT"
	ErrCodeInvalidDistance Code = "INVALID_DISTANCE"
	ErrCodeInvalidTheme    Code = "INVALID_THEME"

	// Resource not found errors
	ErrCodeNotFound      Code = "NOT_FOUND"
	ErrCodeThemeNotFound Code = "THEME_NOT_FOUND"
	ErrCodeJobNotFound   Code = "JOB_NOT_FOUND"
	ErrCodeFileNotFound  Code = "FILE_NOT_FOUND"
	ErrCodeFontNotFound  Code = "FONT_NOT_FOUND"

	// External data failures
	ErrCodeGeocoding Code = "GEOCODING_FAILED"
	ErrCodeTimeout   Code = "TIMEOUT"
	ErrCodeDataFetch Code = "DATA_FETCH_FAILED"

	// Job lifecycle errors
	ErrCodeNotReady Code = "NOT_READY"

	// Internal errors
	ErrCodeRendering Code = "RENDERING_FAILED"
	ErrCodeInternal  Code = "INTERNAL_ERROR"
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
func Wrap(cause error, code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// coder is satisfied by every typed error in this package that carries
// a code without embedding *Error.
type coder interface {
	Code() Code
}

// Is reports whether err has the given error code, unwrapping the
// chain to find either an *Error or a typed error with a Code method.
func Is(err error, code Code) bool {
	return GetCode(err) == code && code != ""
}

// GetCode extracts the error code from an error, if available.
// Returns empty string when no code is attached anywhere in the chain.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var c coder
	if errors.As(err, &c) {
		return c.Code()
	}
	return ""
}

// UserMessage returns a user-friendly message for the error: the
// message without the code prefix for coded errors, the error string
// as-is otherwise.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	var c coder
	if errors.As(err, &c) {
		return strings.TrimPrefix(c.(error).Error(), string(c.Code())+": ")
	}
	return err.Error()
}

// ThemeNotFound builds a THEME_NOT_FOUND error carrying the requested
// name and the full list of available theme identifiers. The displayed
// list is truncated to five entries; Available keeps everything for
// programmatic use.
func ThemeNotFound(name string, available []string) *ThemeNotFoundError {
	return &ThemeNotFoundError{Name: name, Available: available}
}

// ThemeNotFoundError reports an unknown or unparseable theme.
type ThemeNotFoundError struct {
	Name      string
	Available []string
}

// Error implements the error interface.
func (e *ThemeNotFoundError) Error() string {
	shown := e.Available
	if len(shown) > 5 {
		shown = shown[:5]
	}
	if len(shown) == 0 {
		return fmt.Sprintf("%s: theme %q not found", ErrCodeThemeNotFound, e.Name)
	}
	return fmt.Sprintf("%s: theme %q not found (available: %s)",
		ErrCodeThemeNotFound, e.Name, strings.Join(shown, ", "))
}

// Code returns the error code for this error type.
func (e *ThemeNotFoundError) Code() Code {
	return ErrCodeThemeNotFound
}

// Timeout builds a TIMEOUT error for an upstream service call that
// exceeded its deadline.
func Timeout(service string, timeout time.Duration) *TimeoutError {
	return &TimeoutError{Service: service, Timeout: timeout}
}

// TimeoutError reports an upstream call that exceeded its deadline.
type TimeoutError struct {
	Service string
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s request timed out after %s", ErrCodeTimeout, e.Service, e.Timeout)
}

// Code returns the error code for this error type.
func (e *TimeoutError) Code() Code {
	return ErrCodeTimeout
}

// IsTimeout reports whether err is a timeout error of either shape.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te) || Is(err, ErrCodeTimeout)
}

// IsThemeNotFound reports whether err indicates a missing theme.
func IsThemeNotFound(err error) bool {
	var tnf *ThemeNotFoundError
	return errors.As(err, &tnf) || Is(err, ErrCodeThemeNotFound)
}
