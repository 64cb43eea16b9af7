package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"mercator-hq/saturn/pkg/protocol"
)

// apiVersion is the Azure OpenAI API version AI Core deployments accept.
const apiVersion = "2024-06-01"

// openaiInvoker serves Azure OpenAI deployments via their chat
// completions endpoint.
type openaiInvoker struct {
	client *Client
}

func newOpenAIInvoker(client *Client) *openaiInvoker {
	return &openaiInvoker{client: client}
}

func (v *openaiInvoker) Family() string { return FamilyOpenAI }

// Azure OpenAI wire types. Only the fields Saturn forwards are modeled.

type oaiRequest struct {
	Messages      []oaiMessage      `json:"messages"`
	MaxTokens     int               `json:"max_tokens,omitempty"`
	Temperature   *float64          `json:"temperature,omitempty"`
	TopP          *float64          `json:"top_p,omitempty"`
	Stop          []string          `json:"stop,omitempty"`
	Stream        bool              `json:"stream,omitempty"`
	StreamOptions *oaiStreamOptions `json:"stream_options,omitempty"`
}

type oaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type oaiStreamOptions struct {
	IncludeUsage bool `json:"include_usage"`
}

type oaiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *oaiUsage `json:"usage"`
}

type oaiChunk struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *oaiUsage `json:"usage"`
}

type oaiUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

func (v *openaiInvoker) buildRequest(req *protocol.Request, stream bool) *oaiRequest {
	out := &oaiRequest{
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		Stop:        req.Stop,
		Stream:      stream,
	}
	if stream {
		out.StreamOptions = &oaiStreamOptions{IncludeUsage: true}
	}
	if req.System != "" {
		out.Messages = append(out.Messages, oaiMessage{Role: protocol.RoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, oaiMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

func (v *openaiInvoker) url(tgt Target) string {
	return fmt.Sprintf("%s?api-version=%s", joinURL(tgt.Deployment.URL, "/chat/completions"), apiVersion)
}

// Invoke performs a non-streaming chat completion.
func (v *openaiInvoker) Invoke(ctx context.Context, tgt Target, req *protocol.Request) (*protocol.Response, error) {
	resp, err := v.client.post(ctx, tgt, v.url(tgt), v.buildRequest(req, false), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire oaiResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, errorf(tgt, "failed to decode chat completion: %v", err)
	}
	if len(wire.Choices) == 0 {
		return nil, errorf(tgt, "chat completion contained no choices")
	}

	out := &protocol.Response{
		ID:           wire.ID,
		Content:      wire.Choices[0].Message.Content,
		FinishReason: oaiFinish(wire.Choices[0].FinishReason),
	}
	if wire.Usage != nil {
		out.Usage = protocol.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		}
	}
	return out, nil
}

// InvokeStream performs a streaming chat completion. Reasoning deployments
// (o1/o3 configurations) reject stream=true, so their responses are
// fetched whole and replayed as a single-chunk stream.
func (v *openaiInvoker) InvokeStream(ctx context.Context, tgt Target, req *protocol.Request) (StreamReader, error) {
	if !supportsStreaming(tgt.Deployment.Model) {
		resp, err := v.Invoke(ctx, tgt, req)
		if err != nil {
			return nil, err
		}
		return Replay(resp), nil
	}

	resp, err := v.client.post(ctx, tgt, v.url(tgt), v.buildRequest(req, true), true)
	if err != nil {
		return nil, err
	}

	return &openaiStream{
		provider: tgt.Provider,
		body:     resp.Body,
		events:   newSSEScanner(resp.Body),
	}, nil
}

func supportsStreaming(model string) bool {
	m := strings.ToLower(model)
	return !strings.HasPrefix(m, "o1") && !strings.HasPrefix(m, "o3")
}

// openaiStream adapts the chat completions SSE stream to canonical chunks.
type openaiStream struct {
	provider string
	body     io.ReadCloser
	events   *sseScanner
	done     bool
}

func (s *openaiStream) Read(ctx context.Context) (*protocol.Chunk, error) {
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

		if strings.TrimSpace(event.data) == "[DONE]" {
			s.done = true
			return nil, io.EOF
		}

		var wire oaiChunk
		if err := json.Unmarshal([]byte(event.data), &wire); err != nil {
			return nil, &StreamError{Provider: s.provider, Message: "malformed stream chunk", Cause: err}
		}

		chunk := &protocol.Chunk{ID: wire.ID}
		if len(wire.Choices) > 0 {
			chunk.Delta = wire.Choices[0].Delta.Content
			if fr := wire.Choices[0].FinishReason; fr != "" {
				chunk.FinishReason = oaiFinish(fr)
			}
		}
		if wire.Usage != nil {
			chunk.Usage = &protocol.Usage{
				PromptTokens:     wire.Usage.PromptTokens,
				CompletionTokens: wire.Usage.CompletionTokens,
				TotalTokens:      wire.Usage.TotalTokens,
			}
		}

		// Keep-alive chunks with no content, finish, or usage are skipped.
		if chunk.Delta == "" && chunk.FinishReason == "" && chunk.Usage == nil && chunk.ID == "" {
			continue
		}
		return chunk, nil
	}
}

func (s *openaiStream) Close() error {
	return s.body.Close()
}

// oaiFinish maps chat completion finish reasons onto the canonical set.
func oaiFinish(reason string) string {
	switch reason {
	case "length":
		return protocol.FinishLength
	case "content_filter":
		return protocol.FinishContentFilter
	default:
		return protocol.FinishStop
	}
}
