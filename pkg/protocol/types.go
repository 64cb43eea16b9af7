package protocol

// Message roles used in canonical requests.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Canonical finish reasons. Each dialect maps these to its own vocabulary
// (e.g. "stop" becomes "end_turn" for Anthropic clients and "STOP" for
// Gemini clients).
const (
	FinishStop          = "stop"
	FinishLength        = "length"
	FinishContentFilter = "content_filter"
)

// Message is a single conversation turn.
type Message struct {
	// Role is one of RoleSystem, RoleUser, or RoleAssistant.
	Role string

	// Content is the text content of the turn. Multi-part content is
	// flattened to text during parsing.
	Content string
}

// Request is the canonical, dialect-independent form of a generation
// request. Translators produce it from client payloads; backend invokers
// consume it.
type Request struct {
	// Model is the model name as the client requested it, before alias
	// and fallback resolution.
	Model string

	// System is the system instruction, extracted from system-role
	// messages (OpenAI), the top-level system field (Anthropic), or
	// systemInstruction (Gemini).
	System string

	// Messages is the conversation history, system turns excluded.
	Messages []Message

	// MaxTokens bounds the completion length. Zero means the backend
	// default, except for Anthropic backends where a value is required
	// and a default is applied at invocation time.
	MaxTokens int

	// Temperature and TopP are optional sampling parameters. Nil means
	// the client did not set them.
	Temperature *float64
	TopP        *float64

	// Stop lists client-provided stop sequences.
	Stop []string

	// Stream indicates the client requested a streamed response.
	Stream bool
}

// Usage counts tokens consumed by a request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Add accumulates counts from a partial usage report. Backends report
// cumulative totals on their final chunk, so later reports replace
// earlier ones rather than summing.
func (u *Usage) Add(other Usage) {
	if other.PromptTokens > 0 {
		u.PromptTokens = other.PromptTokens
	}
	if other.CompletionTokens > 0 {
		u.CompletionTokens = other.CompletionTokens
	}
	u.TotalTokens = u.PromptTokens + u.CompletionTokens
}

// Response is the canonical form of a complete (non-streamed) generation
// result.
type Response struct {
	// ID is the backend-assigned response identifier, when present.
	ID string

	// Model is the model name to report to the client. The dispatcher
	// sets this to the name the client requested, not the backend
	// deployment name.
	Model string

	// Content is the generated text.
	Content string

	// FinishReason is one of the canonical finish reasons.
	FinishReason string

	// Usage holds token counts when the backend reported them.
	Usage Usage
}

// Chunk is the canonical form of one streaming increment.
type Chunk struct {
	// ID is the backend-assigned response identifier, usually present
	// only on the first chunk.
	ID string

	// Delta is the text appended by this chunk. May be empty on
	// bookkeeping chunks (finish, usage).
	Delta string

	// FinishReason is set on the chunk that ends the generation.
	FinishReason string

	// Usage carries token counts when the backend attaches them,
	// typically on the final chunk.
	Usage *Usage
}
