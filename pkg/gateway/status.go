package gateway

import (
	"errors"
	"net/http"

	"mercator-hq/saturn/pkg/backend"
	"mercator-hq/saturn/pkg/protocol"
	"mercator-hq/saturn/pkg/registry"
	"mercator-hq/saturn/pkg/routing"
	"mercator-hq/saturn/pkg/token"
)

// classify maps a dispatch error to an HTTP status, a canonical error
// code, and a client-safe message.
func classify(err error) (status int, code string, message string) {
	var (
		notFound  *registry.ModelNotFoundError
		noDep     *NoDeploymentError
		exhausted *routing.ExhaustedError
		rl        *backend.RateLimitError
		authErr   *token.AuthUnavailableError
		be        *backend.Error
	)

	switch {
	case errors.As(err, &notFound):
		return http.StatusBadRequest, protocol.ErrCodeModelNotFound, notFound.Error()

	case errors.As(err, &noDep):
		return http.StatusBadRequest, protocol.ErrCodeModelNotFound, noDep.Error()

	case errors.As(err, &exhausted):
		return http.StatusTooManyRequests, protocol.ErrCodeRateLimited, exhausted.Error()

	case errors.As(err, &rl):
		return http.StatusTooManyRequests, protocol.ErrCodeRateLimited, rl.Error()

	case errors.As(err, &authErr):
		// The gateway's own credentials failed, not the client's.
		return http.StatusInternalServerError, protocol.ErrCodeInternal,
			"failed to authenticate with the inference backend"

	case errors.As(err, &be):
		status := http.StatusBadGateway
		if be.StatusCode >= 400 {
			status = be.StatusCode
		}
		return status, protocol.ErrCodeBackend, be.Message

	default:
		return http.StatusInternalServerError, protocol.ErrCodeInternal,
			"internal server error"
	}
}
