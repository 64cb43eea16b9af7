// Package backend invokes model deployments on AI Core and normalizes
// their responses into the canonical protocol types.
//
// AI Core exposes a different inference surface per model family: Azure
// OpenAI deployments speak chat completions, Anthropic deployments speak
// the invoke / invoke-with-response-stream pair, and Gemini deployments
// speak generateContent. The family is derived from the deployment's
// model name; each family has an Invoker that builds the family's wire
// request, sends it with the provider's bearer token and resource group,
// and decodes responses and SSE streams back into protocol.Response and
// protocol.Chunk values.
//
// Streaming and non-streaming are bridged both ways: Collect drains a
// stream into a complete response, and Replay exposes a complete response
// as a single-chunk stream.
package backend
