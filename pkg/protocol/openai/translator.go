// Package openai implements the OpenAI chat completions dialect.
package openai

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"mercator-hq/saturn/pkg/protocol"
)

func nowUnix() int64 { return time.Now().Unix() }

// Translator converts between the OpenAI chat completions wire format and
// the canonical protocol types.
type Translator struct{}

// New returns the OpenAI dialect translator.
func New() *Translator { return &Translator{} }

// Dialect returns "openai".
func (t *Translator) Dialect() string { return "openai" }

// ParseRequest parses an OpenAI chat completion request. System-role
// messages are folded into the canonical System field; array-form message
// content is flattened to its text parts.
func (t *Translator) ParseRequest(body []byte) (*protocol.Request, error) {
	var req ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid chat completion request: %w", err)
	}
	if req.Model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages must not be empty")
	}

	out := &protocol.Request{
		Model:       req.Model,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stream:      req.Stream,
	}

	if req.MaxCompletionTokens != nil {
		out.MaxTokens = *req.MaxCompletionTokens
	} else if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}

	stop, err := parseStop(req.Stop)
	if err != nil {
		return nil, err
	}
	out.Stop = stop

	var system []string
	for i, m := range req.Messages {
		text, err := flattenContent(m.Content)
		if err != nil {
			return nil, fmt.Errorf("messages[%d]: %w", i, err)
		}

		switch m.Role {
		case "system", "developer":
			system = append(system, text)
		case protocol.RoleUser, protocol.RoleAssistant:
			out.Messages = append(out.Messages, protocol.Message{
				Role:    m.Role,
				Content: text,
			})
		default:
			return nil, fmt.Errorf("messages[%d]: unsupported role %q", i, m.Role)
		}
	}
	out.System = strings.Join(system, "\n\n")

	return out, nil
}

// flattenContent accepts string content or an array of content parts and
// returns the concatenated text.
func flattenContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}

	var parts []ContentPart
	if err := json.Unmarshal(raw, &parts); err != nil {
		return "", fmt.Errorf("content must be a string or an array of content parts")
	}

	var b strings.Builder
	for _, p := range parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String(), nil
}

// parseStop accepts the OpenAI stop field as a single string or a list.
func parseStop(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		return []string{one}, nil
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err != nil {
		return nil, fmt.Errorf("stop must be a string or an array of strings")
	}
	return many, nil
}

// FormatResponse renders a canonical response as an OpenAI chat completion.
func (t *Translator) FormatResponse(resp *protocol.Response) any {
	return &ChatCompletionResponse{
		ID:      responseID(resp.ID),
		Object:  "chat.completion",
		Created: nowUnix(),
		Model:   resp.Model,
		Choices: []Choice{
			{
				Index: 0,
				Message: ResponseMessage{
					Role:    protocol.RoleAssistant,
					Content: resp.Content,
				},
				FinishReason: resp.FinishReason,
			},
		},
		Usage: Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// StreamEvents renders a backend chunk as OpenAI stream chunks. The first
// event carries the assistant role delta, per the Chat Completions
// streaming convention.
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
		events = append(events, t.chunkEvent(st, Delta{Role: protocol.RoleAssistant}, nil, nil))
	}

	if chunk.Delta != "" {
		events = append(events, t.chunkEvent(st, Delta{Content: chunk.Delta}, nil, nil))
	}

	return events
}

// StreamFinish emits the finish-reason chunk, a usage chunk, and the
// [DONE] terminator.
func (t *Translator) StreamFinish(st *protocol.StreamState, finish string) []protocol.Event {
	if finish == "" {
		finish = protocol.FinishStop
	}

	usage := &Usage{
		PromptTokens:     st.Usage.PromptTokens,
		CompletionTokens: st.Usage.CompletionTokens,
		TotalTokens:      st.Usage.TotalTokens,
	}

	return []protocol.Event{
		t.chunkEvent(st, Delta{}, &finish, nil),
		t.chunkEvent(st, Delta{}, nil, usage),
		{Data: []byte("[DONE]")},
	}
}

// StreamError emits an error object followed by the [DONE] terminator.
func (t *Translator) StreamError(st *protocol.StreamState, code, message string) []protocol.Event {
	data, _ := json.Marshal(t.FormatError(code, message))
	return []protocol.Event{
		{Data: data},
		{Data: []byte("[DONE]")},
	}
}

// FormatError renders the OpenAI error envelope.
func (t *Translator) FormatError(code, message string) any {
	return &ErrorResponse{
		Error: ErrorDetail{
			Message: message,
			Type:    errorType(code),
			Code:    code,
		},
	}
}

func errorType(code string) string {
	switch code {
	case protocol.ErrCodeInvalidRequest, protocol.ErrCodeModelNotFound:
		return "invalid_request_error"
	case protocol.ErrCodeAuthentication:
		return "authentication_error"
	case protocol.ErrCodeRateLimited:
		return "rate_limit_error"
	default:
		return "api_error"
	}
}

func (t *Translator) chunkEvent(st *protocol.StreamState, delta Delta, finish *string, usage *Usage) protocol.Event {
	out := ChatCompletionChunk{
		ID:      responseID(st.ID),
		Object:  "chat.completion.chunk",
		Created: st.Created,
		Model:   st.Model,
		Usage:   usage,
	}
	if usage == nil || finish != nil {
		out.Choices = []ChunkChoice{{Index: 0, Delta: delta, FinishReason: finish}}
	}

	data, _ := json.Marshal(&out)
	return protocol.Event{Data: data}
}

// responseID ensures the OpenAI "chatcmpl-" prefix on response IDs.
func responseID(id string) string {
	if id == "" {
		id = "unknown"
	}
	if strings.HasPrefix(id, "chatcmpl-") {
		return id
	}
	return "chatcmpl-" + id
}
