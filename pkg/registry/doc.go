// Package registry resolves client-requested model names to backend
// deployment model names.
//
// Resolution runs in three stages: an exact match on a configured model
// name or alias, then the most specific wildcard alias (longest matching
// prefix; an exact alias always beats a wildcard), and finally the
// per-family fallback model configured for the request's model family
// (claude, gpt/text, gemini).
//
// The mapping table is immutable and swapped atomically, so configuration
// reloads never block in-flight resolutions.
package registry
