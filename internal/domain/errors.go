package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Sentinel errors for common error conditions.
var (
	// ErrNotFound indicates that a requested entity was not found.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that the input data is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that an external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrLinkNotFound indicates that no full-text link exists for a candidate.
	// It is definitive and never retried.
	ErrLinkNotFound = errors.New("full-text link not found")

	// ErrNoMetadata indicates that no metadata provider returned a record.
	ErrNoMetadata = errors.New("no metadata from any provider")

	// ErrNoIdentifier indicates that a candidate carries no usable identifier.
	ErrNoIdentifier = errors.New("no identifier")

	// ErrTrackerCorrupt indicates that the progress tracker file cannot be read.
	ErrTrackerCorrupt = errors.New("progress tracker unreadable")

	// ErrMissingConfig indicates that required configuration is absent.
	ErrMissingConfig = errors.New("missing required configuration")

	// ErrNotPDF indicates that fetched content is not a PDF document.
	ErrNotPDF = errors.New("content is not a PDF")
)

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

// RateLimitError provides details about a rate limit error.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

// Unwrap returns the underlying sentinel error for use with errors.Is.
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// ExternalAPIError provides details about an external API error.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// Error implements the error interface.
func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

// Unwrap returns the underlying cause error.
func (e *ExternalAPIError) Unwrap() error {
	return e.Cause
}

// StageError wraps a fatal error raised inside a pipeline stage, keeping the
// cursor at which the stage halted.
type StageError struct {
	Stage  string
	Cursor int
	Err    error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s halted at cursor %d: %v", e.Stage, e.Cursor, e.Err)
}

// Unwrap returns the underlying cause error.
func (e *StageError) Unwrap() error {
	return e.Err
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

// NewRateLimitError creates a new RateLimitError.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{
		Source:     source,
		RetryAfter: retryAfter,
	}
}

// NewExternalAPIError creates a new ExternalAPIError.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{
		Source:     source,
		StatusCode: statusCode,
		Message:    message,
		Cause:      cause,
	}
}

// NewStageError creates a new StageError.
func NewStageError(stage string, cursor int, err error) *StageError {
	return &StageError{
		Stage:  stage,
		Cursor: cursor,
		Err:    err,
	}
}

// IsTransient reports whether err is worth retrying: rate limits, timeouts,
// network failures and 5xx responses. Definitive conditions such as a missing
// link, a 4xx response or a non-PDF payload are not transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrLinkNotFound),
		errors.Is(err, ErrNotFound),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrNotPDF),
		errors.Is(err, context.Canceled):
		return false
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrServiceUnavailable),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var apiErr *ExternalAPIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return true
		}
		if apiErr.StatusCode > 0 {
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}
