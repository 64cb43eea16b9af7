package protocol

// Event is one server-sent event to emit to the client. When Name is
// empty only a data line is written; otherwise an event line precedes it.
type Event struct {
	Name string
	Data []byte
}

// StreamState carries per-response framing state across StreamEvents
// calls. Dialects that synthesize framing (Anthropic's message_start /
// content_block_start envelope, OpenAI's initial role delta) use it to
// emit those events exactly once.
type StreamState struct {
	// ID is the response identifier used in framing events. The
	// dispatcher seeds it; dialects may overwrite it from the first
	// backend chunk.
	ID string

	// Model is the client-requested model name echoed in framing events.
	Model string

	// Created is the response creation time in Unix seconds, fixed at
	// stream start so every chunk reports the same timestamp.
	Created int64

	// Started records whether opening framing has been emitted.
	Started bool

	// ContentOpen records whether a content block is open (Anthropic
	// framing).
	ContentOpen bool

	// Usage accumulates token counts reported by backend chunks so the
	// closing framing can include final totals.
	Usage Usage
}

// Translator converts between one client dialect and the canonical types.
// Implementations are stateless; all per-response state lives in the
// StreamState passed by the caller.
type Translator interface {
	// Dialect returns the dialect name used in logs and metrics
	// ("openai", "claude", "gemini").
	Dialect() string

	// ParseRequest parses a client request body into canonical form.
	// The caller fills in fields carried outside the body (the Gemini
	// dialect takes the model name and streaming flag from the URL).
	ParseRequest(body []byte) (*Request, error)

	// FormatResponse renders a complete response as the dialect's
	// response object, ready for JSON encoding.
	FormatResponse(resp *Response) any

	// StreamEvents renders one backend chunk as zero or more SSE
	// events, emitting any opening framing the dialect requires before
	// the first content delta.
	StreamEvents(chunk *Chunk, st *StreamState) []Event

	// StreamFinish renders the dialect's closing framing: finish
	// reason, final usage, and any terminator (OpenAI's [DONE]).
	StreamFinish(st *StreamState, finish string) []Event

	// StreamError renders an error that occurs after streaming has
	// begun, as a terminal in-stream event.
	StreamError(st *StreamState, code, message string) []Event

	// FormatError renders the dialect's error envelope for a
	// non-streamed error response.
	FormatError(code, message string) any
}
