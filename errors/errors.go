// Package errors provides domain-specific error types and error handling utilities
package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a specific error type
type ErrorCode int

const (
	// Common error codes
	ErrUnknown ErrorCode = iota
	ErrInvalidInput
	ErrTimeout

	// Execution error codes
	ErrLaunch
	ErrRemote

	// Configuration error codes
	ErrNotConfigured

	// State-store error codes
	ErrMalformedLog
)

// Error represents a domain-specific error with context
type Error struct {
	// Code identifies the error type
	Code ErrorCode

	// Message provides human-readable error details
	Message string

	// Op describes the operation that failed
	Op string

	// Cause is the underlying error that triggered this one
	Cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Cause != nil {
		if e.Op != "" {
			return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap implements the errors.Unwrap interface
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements the errors.Is interface
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error
func New(code ErrorCode, message string) error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, code ErrorCode, message string) error {
	if err == nil {
		return nil
	}
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WithOp adds an operation name to the error
func WithOp(err error, op string) error {
	if err == nil {
		return nil
	}

	e, ok := err.(*Error)
	if !ok {
		return &Error{
			Code:    ErrUnknown,
			Message: err.Error(),
			Op:      op,
			Cause:   err,
		}
	}

	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Op:      op,
		Cause:   e.Cause,
	}
}

// GetCode returns the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ErrUnknown
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrUnknown
}

// IsTimeout returns true if the error is a timeout error
func IsTimeout(err error) bool {
	return GetCode(err) == ErrTimeout
}

// IsLaunch returns true if the external binary could not be spawned
func IsLaunch(err error) bool {
	return GetCode(err) == ErrLaunch
}

// IsNotConfigured returns true if required target identity is absent
func IsNotConfigured(err error) bool {
	return GetCode(err) == ErrNotConfigured
}

// IsRetryable returns true if the error can be retried
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	code := GetCode(err)
	return code == ErrTimeout || code == ErrRemote
}
