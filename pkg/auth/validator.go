package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"sync"
)

// Validator checks client API keys against the configured set.
type Validator struct {
	mu   sync.RWMutex
	keys map[string]struct{}
}

// NewValidator creates a validator over the given keys. An empty key set
// disables authentication: every request passes.
func NewValidator(keys []string) *Validator {
	v := &Validator{}
	v.Swap(keys)
	return v
}

// Swap atomically replaces the key set. Called on configuration reload.
func (v *Validator) Swap(keys []string) {
	m := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if k != "" {
			m[k] = struct{}{}
		}
	}

	v.mu.Lock()
	v.keys = m
	v.mu.Unlock()
}

// Validate reports whether the presented key is accepted.
func (v *Validator) Validate(key string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.keys) == 0 {
		return true
	}
	if key == "" {
		return false
	}

	// Constant-time comparison over the configured set.
	for configured := range v.keys {
		if len(configured) == len(key) &&
			subtle.ConstantTimeCompare([]byte(configured), []byte(key)) == 1 {
			return true
		}
	}
	return false
}

// Extractor pulls the client API key from a request, per dialect.
type Extractor func(r *http.Request) string

// BearerKey extracts "Authorization: Bearer <key>" (OpenAI clients).
func BearerKey(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if key, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(key)
	}
	return ""
}

// AnthropicKey extracts the X-Api-Key header (Anthropic clients).
func AnthropicKey(r *http.Request) string {
	return r.Header.Get("X-Api-Key")
}

// GeminiKey extracts the X-Goog-Api-Key header or the key query
// parameter (Gemini clients).
func GeminiKey(r *http.Request) string {
	if key := r.Header.Get("X-Goog-Api-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("key")
}
