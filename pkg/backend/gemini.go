package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"mercator-hq/saturn/pkg/protocol"
	"mercator-hq/saturn/pkg/protocol/gemini"
)

// geminiInvoker serves Gemini deployments via generateContent /
// streamGenerateContent.
type geminiInvoker struct {
	client *Client
}

func newGeminiInvoker(client *Client) *geminiInvoker {
	return &geminiInvoker{client: client}
}

func (v *geminiInvoker) Family() string { return FamilyGemini }

func (v *geminiInvoker) buildRequest(req *protocol.Request) *gemini.GenerateContentRequest {
	out := &gemini.GenerateContentRequest{}

	if req.System != "" {
		out.SystemInstruction = &gemini.Content{
			Parts: []gemini.Part{{Text: req.System}},
		}
	}

	for _, m := range req.Messages {
		role := "user"
		if m.Role == protocol.RoleAssistant {
			role = "model"
		}
		out.Contents = append(out.Contents, gemini.Content{
			Role:  role,
			Parts: []gemini.Part{{Text: m.Content}},
		})
	}

	if req.MaxTokens > 0 || req.Temperature != nil || req.TopP != nil || len(req.Stop) > 0 {
		out.GenerationConfig = &gemini.GenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.Stop,
		}
	}

	return out
}

func (v *geminiInvoker) url(tgt Target, verb string) string {
	return joinURL(tgt.Deployment.URL, fmt.Sprintf("/models/%s:%s", tgt.Deployment.Model, verb))
}

// Invoke performs a non-streaming generation via :generateContent.
func (v *geminiInvoker) Invoke(ctx context.Context, tgt Target, req *protocol.Request) (*protocol.Response, error) {
	resp, err := v.client.post(ctx, tgt, v.url(tgt, "generateContent"), v.buildRequest(req), false)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var wire gemini.GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, errorf(tgt, "failed to decode generateContent response: %v", err)
	}
	if len(wire.Candidates) == 0 {
		return nil, errorf(tgt, "generateContent response contained no candidates")
	}

	cand := wire.Candidates[0]
	out := &protocol.Response{
		ID:           wire.ResponseID,
		FinishReason: geminiFinish(cand.FinishReason),
	}
	for _, p := range cand.Content.Parts {
		out.Content += p.Text
	}
	if wire.UsageMetadata != nil {
		out.Usage = protocol.Usage{
			PromptTokens:     wire.UsageMetadata.PromptTokenCount,
			CompletionTokens: wire.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wire.UsageMetadata.TotalTokenCount,
		}
	}
	return out, nil
}

// InvokeStream performs a streaming generation via :streamGenerateContent
// with SSE framing.
func (v *geminiInvoker) InvokeStream(ctx context.Context, tgt Target, req *protocol.Request) (StreamReader, error) {
	url := v.url(tgt, "streamGenerateContent") + "?alt=sse"
	resp, err := v.client.post(ctx, tgt, url, v.buildRequest(req), true)
	if err != nil {
		return nil, err
	}

	return &geminiStream{
		provider: tgt.Provider,
		body:     resp.Body,
		events:   newSSEScanner(resp.Body),
	}, nil
}

// geminiStream adapts the streamGenerateContent SSE stream to canonical
// chunks. Each event is a response fragment; the fragment carrying a
// finishReason is the last meaningful one.
type geminiStream struct {
	provider string
	body     io.ReadCloser
	events   *sseScanner
	done     bool
}

func (s *geminiStream) Read(ctx context.Context) (*protocol.Chunk, error) {
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

		var wire gemini.GenerateContentResponse
		if err := json.Unmarshal([]byte(event.data), &wire); err != nil {
			return nil, &StreamError{Provider: s.provider, Message: "malformed stream fragment", Cause: err}
		}

		chunk := &protocol.Chunk{ID: wire.ResponseID}
		if len(wire.Candidates) > 0 {
			cand := wire.Candidates[0]
			for _, p := range cand.Content.Parts {
				chunk.Delta += p.Text
			}
			if cand.FinishReason != "" {
				chunk.FinishReason = geminiFinish(cand.FinishReason)
			}
		}
		if wire.UsageMetadata != nil {
			chunk.Usage = &protocol.Usage{
				PromptTokens:     wire.UsageMetadata.PromptTokenCount,
				CompletionTokens: wire.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      wire.UsageMetadata.TotalTokenCount,
			}
		}

		if chunk.Delta == "" && chunk.FinishReason == "" && chunk.Usage == nil {
			continue
		}
		return chunk, nil
	}
}

func (s *geminiStream) Close() error {
	return s.body.Close()
}

// geminiFinish maps Gemini finish reasons onto the canonical set.
func geminiFinish(reason string) string {
	switch reason {
	case "MAX_TOKENS":
		return protocol.FinishLength
	case "SAFETY", "RECITATION", "PROHIBITED_CONTENT", "BLOCKLIST":
		return protocol.FinishContentFilter
	case "":
		return ""
	default:
		return protocol.FinishStop
	}
}
