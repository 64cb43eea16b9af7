// Package protocol defines the provider-neutral request, response, and
// stream chunk types that all client dialects translate to and from.
//
// Saturn speaks three client dialects (OpenAI chat completions, Anthropic
// messages, Gemini generateContent) over a shared backend. Rather than
// maintaining pairwise converters, each dialect implements the Translator
// interface against the canonical types in this package: inbound requests
// are parsed into a Request, and backend output (a Response, or a sequence
// of Chunks) is rendered back into the dialect the client spoke.
//
// The sub-packages openai, claude, and gemini hold the wire types and the
// Translator implementation for each dialect.
package protocol
