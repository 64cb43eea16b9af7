package auth

import (
	"net/http/httptest"
	"testing"
)

func TestValidate(t *testing.T) {
	v := NewValidator([]string{"sk-good", "sk-other"})

	if !v.Validate("sk-good") {
		t.Error("configured key rejected")
	}
	if v.Validate("sk-bad") {
		t.Error("unknown key accepted")
	}
	if v.Validate("") {
		t.Error("empty key accepted")
	}
}

func TestValidateEmptySetDisablesAuth(t *testing.T) {
	v := NewValidator(nil)
	if !v.Validate("") || !v.Validate("anything") {
		t.Error("empty key set should accept every request")
	}
}

func TestSwapReplacesKeys(t *testing.T) {
	v := NewValidator([]string{"old"})
	v.Swap([]string{"new"})

	if v.Validate("old") {
		t.Error("old key still accepted after swap")
	}
	if !v.Validate("new") {
		t.Error("new key rejected after swap")
	}
}

func TestExtractors(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", nil)
	r.Header.Set("Authorization", "Bearer sk-openai")
	if got := BearerKey(r); got != "sk-openai" {
		t.Errorf("BearerKey = %q", got)
	}

	r = httptest.NewRequest("POST", "/v1/messages", nil)
	r.Header.Set("X-Api-Key", "sk-claude")
	if got := AnthropicKey(r); got != "sk-claude" {
		t.Errorf("AnthropicKey = %q", got)
	}

	r = httptest.NewRequest("POST", "/v1beta/models/gemini-2.5-pro:generateContent?key=sk-query", nil)
	if got := GeminiKey(r); got != "sk-query" {
		t.Errorf("GeminiKey query param = %q", got)
	}
	r.Header.Set("X-Goog-Api-Key", "sk-header")
	if got := GeminiKey(r); got != "sk-header" {
		t.Errorf("GeminiKey header = %q", got)
	}

	// Non-bearer Authorization yields no key.
	r = httptest.NewRequest("POST", "/v1/chat/completions", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	if got := BearerKey(r); got != "" {
		t.Errorf("BearerKey on Basic auth = %q", got)
	}
}
