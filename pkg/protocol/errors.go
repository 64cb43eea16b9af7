package protocol

// Canonical error codes passed to Translator.FormatError. Each dialect
// maps these onto its own error vocabulary.
const (
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeAuthentication = "authentication_error"
	ErrCodeModelNotFound  = "model_not_found"
	ErrCodeRateLimited    = "rate_limited"
	ErrCodeBackend        = "backend_error"
	ErrCodeInternal       = "internal_error"
)
