package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies analysis failures for callers
type ErrorKind string

const (
	ErrKindValidation         ErrorKind = "validation_error"
	ErrKindProviderTimeout    ErrorKind = "provider_timeout"
	ErrKindCancelled          ErrorKind = "cancelled"
	ErrKindInvariantViolation ErrorKind = "computation_invariant_violation"
)

// AnalysisError is returned by every analysis entry point
type AnalysisError struct {
	Kind    ErrorKind
	Message string
	// Details lists individual field problems for validation errors
	Details []string
	Err     error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the same request may succeed later
func (e *AnalysisError) Retryable() bool {
	return e.Kind == ErrKindProviderTimeout || e.Kind == ErrKindCancelled
}

// NewValidationError creates a validation error with optional field details
func NewValidationError(message string, details ...string) *AnalysisError {
	return &AnalysisError{Kind: ErrKindValidation, Message: message, Details: details}
}

// NewProviderTimeoutError wraps a deadline failure of the caller's context
func NewProviderTimeoutError(err error) *AnalysisError {
	return &AnalysisError{Kind: ErrKindProviderTimeout, Message: "fund metrics lookup exceeded the request deadline", Err: err}
}

// NewCancelledError wraps a cancellation of the caller's context
func NewCancelledError(err error) *AnalysisError {
	return &AnalysisError{Kind: ErrKindCancelled, Message: "analysis cancelled by caller", Err: err}
}

// NewInvariantError reports an internal consistency failure
func NewInvariantError(format string, args ...interface{}) *AnalysisError {
	return &AnalysisError{Kind: ErrKindInvariantViolation, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the ErrorKind of err, if it is (or wraps) an AnalysisError
func KindOf(err error) (ErrorKind, bool) {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind, true
	}
	return "", false
}
