// Package apperr defines the error taxonomy shared across the service.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrValidation   = errors.New("validation failed")
	ErrStoreRequest = errors.New("store request failed")
	ErrAIService    = errors.New("ai service unavailable")
)

// ValidationError rejects input before any network call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid is shorthand for a field-level ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// StoreRequestError is a non-2xx response from the document store.
type StoreRequestError struct {
	Status  int
	Message string
}

func (e *StoreRequestError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

func (e *StoreRequestError) Unwrap() error { return ErrStoreRequest }

// AIServiceError means the suggestion endpoint was unreachable or reported failure.
// It is never fatal: callers substitute a locally derived suggestion.
type AIServiceError struct {
	Message string
	Err     error
}

func (e *AIServiceError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf("ai: %s: %v", e.Message, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("ai: %v", e.Err)
	default:
		return "ai: " + e.Message
	}
}

func (e *AIServiceError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrAIService, e.Err}
	}
	return []error{ErrAIService}
}
