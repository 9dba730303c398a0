package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrEstimatorUnavailable is returned when the estimator API request fails
	ErrEstimatorUnavailable = errors.New("nutrition estimator request failed")

	// ErrEmptyResponse is returned when the estimator returns no usable content
	ErrEmptyResponse = errors.New("empty estimator response")

	// ErrFactsOutOfRange is returned when estimated values fail range validation
	ErrFactsOutOfRange = errors.New("nutrition values out of range")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// ValidationError reports a rejected input before any estimator call is
// made. Callers recover by correcting the input; it is never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// EstimationError is the single failure mode for the estimator path.
// Transport errors, unparseable payloads and out-of-range values all
// surface as this one error; the underlying cause is kept for logging
// and unwrapping but the message stays uniform so callers can offer a
// manual-entry fallback.
type EstimationError struct {
	Description string
	Err         error
}

func (e *EstimationError) Error() string {
	return fmt.Sprintf("Failed to analyze nutrition for %q. Please try manual entry.", e.Description)
}

func (e *EstimationError) Unwrap() error {
	return e.Err
}

// NewEstimationError wraps cause as an EstimationError for the original,
// pre-normalization description.
func NewEstimationError(description string, cause error) *EstimationError {
	return &EstimationError{Description: description, Err: cause}
}
