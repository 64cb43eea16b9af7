package claude

import "encoding/json"

// MessageRequest is an Anthropic Messages API request.
type MessageRequest struct {
	// Model is the model name to use.
	Model string `json:"model"`

	// Messages is the conversation history. Roles alternate between
	// "user" and "assistant".
	Messages []Message `json:"messages"`

	// System is the system prompt, either a string or a list of text
	// blocks.
	System json.RawMessage `json:"system,omitempty"`

	// MaxTokens is the maximum number of tokens to generate. Required
	// by the Messages API.
	MaxTokens int `json:"max_tokens"`

	// Temperature controls randomness (0.0 to 1.0). Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// TopP controls nucleus sampling. Optional.
	TopP *float64 `json:"top_p,omitempty"`

	// StopSequences lists custom stop sequences. Optional.
	StopSequences []string `json:"stop_sequences,omitempty"`

	// Stream enables server-sent events streaming.
	Stream bool `json:"stream,omitempty"`
}

// Message is a single conversation turn. Content is either a string or a
// list of content blocks.
type Message struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

// ContentBlock is one block of structured message content.
type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// MessageResponse is an Anthropic Messages API response.
type MessageResponse struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   string         `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// Usage reports token consumption in Anthropic's vocabulary.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Streaming event payloads. Every event is emitted with an SSE event name
// equal to its Type field, per the Messages API streaming format.

// MessageStartEvent opens a streamed message.
type MessageStartEvent struct {
	Type    string       `json:"type"`
	Message MessageShell `json:"message"`
}

// MessageShell is the skeleton message carried by message_start.
type MessageShell struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Role         string         `json:"role"`
	Model        string         `json:"model"`
	Content      []ContentBlock `json:"content"`
	StopReason   *string        `json:"stop_reason"`
	StopSequence *string        `json:"stop_sequence"`
	Usage        Usage          `json:"usage"`
}

// ContentBlockStartEvent opens a content block.
type ContentBlockStartEvent struct {
	Type         string       `json:"type"`
	Index        int          `json:"index"`
	ContentBlock ContentBlock `json:"content_block"`
}

// ContentBlockDeltaEvent carries a text increment.
type ContentBlockDeltaEvent struct {
	Type  string    `json:"type"`
	Index int       `json:"index"`
	Delta TextDelta `json:"delta"`
}

// TextDelta is the delta payload of a content_block_delta event.
type TextDelta struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ContentBlockStopEvent closes a content block.
type ContentBlockStopEvent struct {
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// MessageDeltaEvent carries the stop reason and final output token count.
type MessageDeltaEvent struct {
	Type  string       `json:"type"`
	Delta MessageDelta `json:"delta"`
	Usage DeltaUsage   `json:"usage"`
}

// MessageDelta is the delta payload of a message_delta event.
type MessageDelta struct {
	StopReason   string  `json:"stop_reason"`
	StopSequence *string `json:"stop_sequence"`
}

// DeltaUsage reports cumulative output tokens on message_delta.
type DeltaUsage struct {
	OutputTokens int `json:"output_tokens"`
}

// MessageStopEvent terminates the stream.
type MessageStopEvent struct {
	Type string `json:"type"`
}

// ErrorResponse is the Anthropic error envelope, used both for
// non-streamed errors and for in-stream error events.
type ErrorResponse struct {
	Type  string      `json:"type"`
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the error fields inside the envelope.
type ErrorDetail struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
