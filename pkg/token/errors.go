package token

import "fmt"

// AuthUnavailableError indicates that an access token could not be
// acquired for a provider. It wraps the underlying OAuth2 exchange error.
type AuthUnavailableError struct {
	// Provider is the name of the provider whose token acquisition failed.
	Provider string

	// Err is the underlying error from the token endpoint exchange.
	Err error
}

// Error implements the error interface.
func (e *AuthUnavailableError) Error() string {
	return fmt.Sprintf("provider %q: authentication unavailable: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *AuthUnavailableError) Unwrap() error {
	return e.Err
}
