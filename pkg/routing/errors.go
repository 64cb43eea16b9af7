package routing

import (
	"fmt"
	"time"
)

// ExhaustedError indicates that every candidate provider is currently
// rate limited (or failed authentication), so the request cannot be
// served.
type ExhaustedError struct {
	// Model is the backend model the request was routed for.
	Model string

	// RetryAt is the earliest time any provider re-enters rotation.
	// Zero when no provider reported a rate limit window.
	RetryAt time.Time
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	if e.RetryAt.IsZero() {
		return fmt.Sprintf("all providers exhausted for model %q", e.Model)
	}
	return fmt.Sprintf("all providers exhausted for model %q, retry after %s",
		e.Model, e.RetryAt.UTC().Format(time.RFC3339))
}
