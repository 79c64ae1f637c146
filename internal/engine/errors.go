package engine

import (
	"errors"
	"fmt"
)

// RuntimeError reports a pipeline that cannot run. It is an unexpected
// error: Call never converts it into a failure result.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Service names the service being invoked.
	Service string

	// InvocationID identifies the affected invocation.
	InvocationID string

	// Action names the action involved, if any.
	Action string
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	// ErrCodeNoActions indicates a pipeline with no stages and no entry.
	ErrCodeNoActions RuntimeErrorCode = "NO_ACTIONS"

	// ErrCodeMissingAction indicates an action without a function.
	ErrCodeMissingAction RuntimeErrorCode = "MISSING_ACTION"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Action != "" {
		return fmt.Sprintf("%s: %s (service=%s, action=%s)", e.Code, e.Message, e.Service, e.Action)
	}
	if e.Service != "" {
		return fmt.Sprintf("%s: %s (service=%s)", e.Code, e.Message, e.Service)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsRuntimeError returns true if err wraps a RuntimeError.
func IsRuntimeError(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

// IsMissingActionError returns true if the error is a missing action error.
// Uses errors.As to handle wrapped errors.
func IsMissingActionError(err error) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == ErrCodeMissingAction
	}
	return false
}
