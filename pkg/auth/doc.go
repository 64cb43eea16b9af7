// Package auth validates client API keys.
//
// Each dialect presents its key in a different header: OpenAI clients use
// Authorization: Bearer, Anthropic clients use X-Api-Key, and Gemini
// clients use X-Goog-Api-Key (or the key query parameter). The extractors
// in this package pull the key from the right place per route, and the
// Validator checks it against the configured set. The key set is
// hot-swappable on configuration reload.
//
// An empty configured key set disables authentication entirely, matching
// local-development usage.
package auth
