// Package claude implements the Anthropic Messages API dialect.
package claude

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/saturn/pkg/protocol"
)

// Translator converts between the Anthropic Messages wire format and the
// canonical protocol types.
type Translator struct{}

// New returns the Claude dialect translator.
func New() *Translator { return &Translator{} }

// Dialect returns "claude".
func (t *Translator) Dialect() string { return "claude" }

// ParseRequest parses an Anthropic Messages request. The top-level system
// field (string or block list) becomes the canonical System field.
func (t *Translator) ParseRequest(body []byte) (*protocol.Request, error) {
	var req MessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid messages request: %w", err)
	}
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages must not be empty")
	}
	if req.MaxTokens <= 0 {
		return nil, fmt.Errorf("max_tokens must be a positive integer")
	}

	system, err := flattenBlocks(req.System)
	if err != nil {
		return nil, fmt.Errorf("system: %w", err)
	}

	out := &protocol.Request{
		Model:       req.Model,
		System:      system,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.StopSequences,
		Stream:      req.Stream,
	}

	for i, m := range req.Messages {
		if m.Role != protocol.RoleUser && m.Role != protocol.RoleAssistant {
			return nil, fmt.Errorf("messages[%d]: unsupported role %q", i, m.Role)
		}
		text, err := flattenBlocks(m.Content)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}
		out.Messages = append(out.Messages, protocol.Message{
			Role:    m.Role,
			Content: text,
		})
	}

	return out, nil
}

// flattenBlocks accepts string content or a list of content blocks and
// returns the concatenated text.
func flattenBlocks(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var blocks []ContentBlock
	if err := json.Unmarshal(raw, &blocks); err != nil {
		return "", fmt.Errorf("content must be a string or an array of content blocks")
	}

	var b strings.Builder
	for _, blk := range blocks {
		if blk.Type == "text" {
			b.WriteString(blk.Text)
		}
	}
	return b.String(), nil
}

// FormatResponse renders a canonical response as an Anthropic message.
func (t *Translator) FormatResponse(resp *protocol.Response) any {
	return &MessageResponse{
		ID:         messageID(resp.ID),
		Type:       "message",
		Role:       protocol.RoleAssistant,
		Model:      resp.Model,
		Content:    []ContentBlock{{Type: "text", Text: resp.Content}},
		StopReason: stopReason(resp.FinishReason),
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

// StreamEvents renders a backend chunk as Messages API stream events. The
// message_start and content_block_start envelope is synthesized before the
// first delta, regardless of which backend family produced the chunk.
func (t *Translator) StreamEvents(chunk *protocol.Chunk, st *protocol.StreamState) []protocol.Event {
	var events []protocol.Event

	if chunk.ID != "" && !st.Started {
		st.ID = chunk.ID
	}
	if chunk.Usage != nil {
		st.Usage.Add(*chunk.Usage)
	}

	if !st.Started {
		st.Started = true
		events = append(events, event("message_start", &MessageStartEvent{
			Type: "message_start",
			Message: MessageShell{
				ID:      messageID(st.ID),
				Type:    "message",
				Role:    protocol.RoleAssistant,
				Model:   st.Model,
				Content: []ContentBlock{},
				Usage:   Usage{InputTokens: st.Usage.PromptTokens},
			},
		}))
	}

	if chunk.Delta != "" {
		if !st.ContentOpen {
			st.ContentOpen = true
			events = append(events, event("content_block_start", &ContentBlockStartEvent{
				Type:         "content_block_start",
				Index:        0,
				ContentBlock: ContentBlock{Type: "text", Text: ""},
			}))
		}
		events = append(events, event("content_block_delta", &ContentBlockDeltaEvent{
			Type:  "content_block_delta",
			Index: 0,
			Delta: TextDelta{Type: "text_delta", Text: chunk.Delta},
		}))
	}

	return events
}

// StreamFinish closes the content block and emits message_delta and
// message_stop with the final stop reason and usage.
func (t *Translator) StreamFinish(st *protocol.StreamState, finish string) []protocol.Event {
	var events []protocol.Event

	// A stream that produced no deltas still needs its envelope.
	if !st.Started {
		events = append(events, t.StreamEvents(&protocol.Chunk{}, st)...)
	}
	if st.ContentOpen {
		st.ContentOpen = false
		events = append(events, event("content_block_stop", &ContentBlockStopEvent{
			Type:  "content_block_stop",
			Index: 0,
		}))
	}

	events = append(events,
		event("message_delta", &MessageDeltaEvent{
			Type: "message_delta",
			Delta: MessageDelta{
				StopReason: stopReason(finish),
			},
			Usage: DeltaUsage{OutputTokens: st.Usage.CompletionTokens},
		}),
		event("message_stop", &MessageStopEvent{Type: "message_stop"}),
	)

	return events
}

// StreamError emits a terminal error event.
func (t *Translator) StreamError(st *protocol.StreamState, code, message string) []protocol.Event {
	return []protocol.Event{
		event("error", t.FormatError(code, message)),
	}
}

// FormatError renders the Anthropic error envelope.
func (t *Translator) FormatError(code, message string) any {
	return &ErrorResponse{
		Type: "error",
		Error: ErrorDetail{
			Type:    errorType(code),
			Message: message,
		},
	}
}

func errorType(code string) string {
	switch code {
	case protocol.ErrCodeInvalidRequest:
		return "invalid_request_error"
	case protocol.ErrCodeModelNotFound:
		return "not_found_error"
	case protocol.ErrCodeAuthentication:
		return "authentication_error"
	case protocol.ErrCodeRateLimited:
		return "rate_limit_error"
	default:
		return "api_error"
	}
}

// stopReason maps canonical finish reasons to Messages API stop reasons.
func stopReason(finish string) string {
	switch finish {
	case protocol.FinishLength:
		return "max_tokens"
	case protocol.FinishContentFilter:
		return "refusal"
	default:
		return "end_turn"
	}
}

func messageID(id string) string {
	if id == "" {
		id = "unknown"
	}
	if strings.HasPrefix(id, "msg_") {
		return id
	}
	return "msg_" + id
}

func event(name string, payload any) protocol.Event {
	data, _ := json.Marshal(payload)
	return protocol.Event{Name: name, Data: data}
}
