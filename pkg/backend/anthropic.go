package backend

import (
	"context"
	"encoding/json"
	"io"

	"mercator-hq/saturn/pkg/protocol"
)

// anthropicVersion is the version tag AI Core's Anthropic deployments
// require in the request body.
const anthropicVersion = "bedrock-2023-05-31"

// defaultAnthropicMaxTokens applies when a client dialect without a
// mandatory max_tokens field (OpenAI, Gemini) hits an Anthropic backend,
// which requires one.
const defaultAnthropicMaxTokens = 4096

// anthropicInvoker serves Anthropic deployments via the invoke /
// invoke-with-response-stream endpoints.
type anthropicInvoker struct {
	client *Client
}

func newAnthropicInvoker(client *Client) *anthropicInvoker {
	return &anthropicInvoker{client: client}
}

func (v *anthropicInvoker) Family() string { return FamilyAnthropic }

// Anthropic invoke wire types. The deployment URL fixes the model, so the
// body carries no model field.

type antRequest struct {
	AnthropicVersion string       `json:"anthropic_version"`
	MaxTokens        int          `json:"max_tokens"`
	System           string       `json:"system,omitempty"`
	Messages         []antMessage `json:"messages"`
	Temperature      *float64     `json:"temperature,omitempty"`
	TopP             *float64     `json:"top_p,omitempty"`
	StopSequences    []string     `json:"stop_sequences,omitempty"`
}

type antMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type antResponse struct {
	ID      string `json:"id"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// antEvent is the union of the streaming event payloads Saturn consumes.
type antEvent struct {
	Type    string `json:"type"`
	Message struct {
		ID    string `json:"id"`
		Usage struct {
			InputTokens  int `json:"input_tokens"`
			OutputTokens int `json:"output_tokens"`
		} `json:"usage"`
	} `json:"message"`
	Delta struct {
		Type       string `json:"type"`
		Text       string `json:"text"`
		StopReason string `json:"stop_reason"`
	} `json:"delta"`
	Usage struct {
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (v *anthropicInvoker) buildRequest(req *protocol.Request) *antRequest {
	out := &antRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        req.MaxTokens,
		System:           req.System,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		StopSequences:    req.Stop,
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultAnthropicMaxTokens
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, antMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// Invoke performs a non-streaming generation via /invoke.
func (v *anthropicInvoker) Invoke(ctx context.Context, tgt Target, req *protocol.Request) (*protocol.Response, error) {
	url := joinURL(tgt.Deployment.URL, "/invoke")
	resp, err := v.client.post(ctx, tgt, url, v.buildRequest(req), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire antResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, errorf(tgt, "failed to decode invoke response: %v", err)
	}

	out := &protocol.Response{
		ID:           wire.ID,
		FinishReason: antFinish(wire.StopReason),
		Usage: protocol.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		},
	}
	for _, block := range wire.Content {
		if block.Type == "text" {
			out.Content += block.Text
		}
	}
	return out, nil
}

// InvokeStream performs a streaming generation via
// /invoke-with-response-stream.
func (v *anthropicInvoker) InvokeStream(ctx context.Context, tgt Target, req *protocol.Request) (StreamReader, error) {
	url := joinURL(tgt.Deployment.URL, "/invoke-with-response-stream")
	resp, err := v.client.post(ctx, tgt, url, v.buildRequest(req), true)
	if err != nil {
		return nil, err
	}

	return &anthropicStream{
		provider: tgt.Provider,
		body:     resp.Body,
		events:   newSSEScanner(resp.Body),
	}, nil
}

// anthropicStream adapts the Anthropic SSE event sequence to canonical
// chunks. Framing events that carry no content (content_block_start,
// content_block_stop, ping) are consumed silently.
type anthropicStream struct {
	provider string
	body     io.ReadCloser
	events   *sseScanner
	done     bool
}

func (s *anthropicStream) Read(ctx context.Context) (*protocol.Chunk, error) {
	if s.done {
		return nil, io.EOF
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		event, err := s.events.Next()
		if err == io.EOF {
			s.done = true
			return nil, io.EOF
		}
		if err != nil {
			return nil, &StreamError{Provider: s.provider, Message: "failed to read stream", Cause: err}
		}

		var wire antEvent
		if err := json.Unmarshal([]byte(event.data), &wire); err != nil {
			return nil, &StreamError{Provider: s.provider, Message: "malformed stream event", Cause: err}
		}

		switch wire.Type {
		case "message_start":
			return &protocol.Chunk{
				ID: wire.Message.ID,
				Usage: &protocol.Usage{
					PromptTokens: wire.Message.Usage.InputTokens,
				},
			}, nil

		case "content_block_delta":
			if wire.Delta.Type != "text_delta" || wire.Delta.Text == "" {
				continue
			}
			return &protocol.Chunk{Delta: wire.Delta.Text}, nil

		case "message_delta":
			return &protocol.Chunk{
				FinishReason: antFinish(wire.Delta.StopReason),
				Usage: &protocol.Usage{
					CompletionTokens: wire.Usage.OutputTokens,
				},
			}, nil

		case "message_stop":
			s.done = true
			return nil, io.EOF

		case "error":
			s.done = true
			return nil, &StreamError{
				Provider: s.provider,
				Message:  wire.Error.Message,
				Cause:    io.ErrUnexpectedEOF,
			}

		default:
			// ping, content_block_start, content_block_stop
			continue
		}
	}
}

func (s *anthropicStream) Close() error {
	return s.body.Close()
}

// antFinish maps Anthropic stop reasons onto the canonical set.
func antFinish(reason string) string {
	switch reason {
	case "max_tokens":
		return protocol.FinishLength
	case "refusal":
		return protocol.FinishContentFilter
	case "":
		return ""
	default:
		return protocol.FinishStop
	}
}
