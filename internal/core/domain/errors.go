package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration       = errors.New("configuration error")
	ErrInputNotFound       = errors.New("input folder not found")
	ErrCancelled           = errors.New("cancelled")
	ErrLLMInvocation       = errors.New("llm invocation failed")
	ErrAnalysis            = errors.New("file analysis failed")
	ErrDestinationConflict = errors.New("destination conflict")
	ErrFilesystem          = errors.New("filesystem error")
	ErrTemporary           = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// InvocationError is returned once every model call attempt has failed.
// It matches ErrLLMInvocation and the last provider error with errors.Is/As.
type InvocationError struct {
	Attempts int
	Err      error
}

func (e *InvocationError) Error() string {
	if e == nil {
		return ErrLLMInvocation.Error()
	}
	return fmt.Sprintf("%s after %d attempt(s): %v", ErrLLMInvocation, e.Attempts, e.Err)
}

func (e *InvocationError) Unwrap() []error {
	return []error{ErrLLMInvocation, e.Err}
}
