// Package token manages OAuth2 access tokens for the configured AI Core
// providers.
//
// Each provider authenticates against its UAA instance with the
// client-credentials grant. The Manager caches one token per provider and
// refreshes it lazily: a token is considered expired 60 seconds before its
// actual expiry, so a token handed to a request cannot lapse mid-flight.
// Concurrent requests that find an expired token serialize on a
// per-provider mutex; exactly one performs the refresh and the rest reuse
// its result.
//
// Token acquisition failures are reported as *AuthUnavailableError and do
// not evict a previously cached (still valid) token.
package token
