package errors

import (
	"errors"
	"fmt"
)

var (
	// Transaction errors
	ErrTransactionNotFound    = errors.New("transaction not found")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrMaxRetriesExceeded     = errors.New("max retries exceeded")

	// Provider errors
	ErrNoHealthyProvider   = errors.New("no healthy provider available")
	ErrProviderDeclined    = errors.New("charge declined by provider")
	ErrProviderUnavailable = errors.New("payment provider unavailable")

	// Queue errors
	ErrMalformedJob = errors.New("malformed settlement job payload")

	// Validation errors
	ErrInvalidRequest = errors.New("invalid request")
)

// DomainError wraps errors with additional context.
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error.
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// ValidationError represents a validation error on a single field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}
