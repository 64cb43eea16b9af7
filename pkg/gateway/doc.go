// Package gateway ties the translation, routing, and backend layers into
// HTTP handlers.
//
// Each inbound dialect gets its own endpoint: OpenAI clients post to
// /v1/chat/completions, Anthropic clients to /v1/messages, and Gemini
// clients to /v1beta/models/{model}:generateContent (or
// :streamGenerateContent). All three parse into the canonical request
// form, pass through the shared dispatcher, and render the result back in
// the caller's own dialect, so any client library works against any
// deployed model family.
//
// The dispatcher owns provider selection and failover: it resolves the
// requested model through the registry, walks the provider pool's
// candidate ordering, and moves to the next provider only on an upstream
// rate limit. Every other backend failure is returned to the client
// as-is, because retrying a deterministic error on another provider just
// burns quota.
package gateway
