package backend

import (
	"fmt"
	"time"
)

// Error represents a backend request failure. It carries the upstream
// HTTP status so the dispatcher can pass meaningful errors through to
// clients.
type Error struct {
	// Provider is the provider whose deployment returned the error.
	Provider string

	// StatusCode is the upstream HTTP status (0 for transport errors).
	StatusCode int

	// Message is the upstream error message, when one could be extracted.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q backend error (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q backend error: %s", e.Provider, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// RateLimitError represents an upstream HTTP 429. It is the only error
// that triggers failover to the next provider.
type RateLimitError struct {
	// Provider is the provider that rate limited the request.
	Provider string

	// RetryAfter is the upstream Retry-After hint, zero when absent.
	RetryAfter time.Duration

	// Message is the upstream error message.
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("provider %q rate limit exceeded (retry after %s): %s",
			e.Provider, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("provider %q rate limit exceeded: %s", e.Provider, e.Message)
}

// StreamError represents a failure while reading an established stream.
type StreamError struct {
	// Provider is the provider whose stream failed.
	Provider string

	// Message describes the failure.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *StreamError) Error() string {
	return fmt.Sprintf("provider %q stream error: %s: %v", e.Provider, e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Cause
}
