package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidIdentifier indicates a candidate identifier that does not
	// contain a recognizable work ID.
	ErrInvalidIdentifier = errors.New("invalid work identifier")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")
)

// maxSnippetLen bounds the response-body excerpt carried by ExternalAPIError.
const maxSnippetLen = 300

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NotFoundError provides details about a not found entity.
type NotFoundError struct {
	Entity string
	ID     string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IdentifierError reports an input that contains no work-ID pattern.
type IdentifierError struct {
	Input string
}

// Error implements the error interface.
func (e *IdentifierError) Error() string {
	return fmt.Sprintf("no OpenAlex work ID found in %q", e.Input)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *IdentifierError) Unwrap() error {
	return ErrInvalidIdentifier
}

// ExternalAPIError provides details about an upstream HTTP failure. The
// Snippet carries at most 300 characters of the response body for
// diagnostics.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Endpoint   string
	Snippet    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d) at %s: %s", e.Source, e.StatusCode, e.Endpoint, e.Snippet)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// NewNotFoundError creates a new NotFoundError.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{
		Entity: entity,
		ID:     id,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewExternalAPIError creates a new ExternalAPIError, truncating the body
// snippet to its documented limit.
func NewExternalAPIError(source string, statusCode int, endpoint, body string) *ExternalAPIError {
	snippet := body
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen]
	}
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Endpoint:   endpoint,
		Snippet:    snippet,
	}
}
