package ports

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during external service
// interactions.
var (
	// ErrRateLimited indicates that the service has rate limited the request.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the external service is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the service returned an invalid
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// RecognizerError represents an error from a speech-to-text service.
// It identifies the service so partial fan-out failures can be attributed
// in logs and metrics.
type RecognizerError struct {
	// Service is the name of the recognizer that failed.
	Service string

	// Err is the underlying error that occurred.
	Err error

	// Elapsed is how long the service ran before failing.
	Elapsed time.Duration
}

// Error implements the error interface for RecognizerError.
func (e *RecognizerError) Error() string {
	return fmt.Sprintf("recognizer error: service=%s, elapsed=%v, err=%v", e.Service, e.Elapsed, e.Err)
}

// Unwrap returns the underlying error.
func (e *RecognizerError) Unwrap() error { return e.Err }

// IsRetryable returns true if the error is temporary and the transcription
// can be retried.
func (e *RecognizerError) IsRetryable() bool {
	// Only network/service-level errors are retryable; logic errors are not
	return errors.Is(e.Err, ErrRateLimited) ||
		errors.Is(e.Err, ErrServiceUnavailable) ||
		errors.Is(e.Err, ErrTimeout) ||
		errors.Is(e.Err, context.DeadlineExceeded)
}

// NewRecognizerError creates a new RecognizerError with the given details.
func NewRecognizerError(service string, err error, elapsed time.Duration) *RecognizerError {
	return &RecognizerError{
		Service: service,
		Err:     err,
		Elapsed: elapsed,
	}
}

// PublisherError represents an error from result publishing operations.
type PublisherError struct {
	// Topic is the destination that was being written when the error
	// occurred.
	Topic string

	// Operation is the name of the publisher operation that failed.
	Operation string

	// Err is the underlying error that caused the publish to fail.
	Err error
}

// Error implements the error interface for PublisherError.
func (e *PublisherError) Error() string {
	return fmt.Sprintf("publisher error: operation=%s, topic=%s, err=%v", e.Operation, e.Topic, e.Err)
}

// Unwrap returns the underlying error.
func (e *PublisherError) Unwrap() error { return e.Err }

// NewPublisherError creates a new PublisherError with the given details.
func NewPublisherError(topic, operation string, err error) *PublisherError {
	return &PublisherError{
		Topic:     topic,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key that was involved in the failed
	// operation.
	ConfigKey string

	// Err is the underlying error that caused the configuration operation
	// to fail.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
