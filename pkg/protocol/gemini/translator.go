// Package gemini implements the Gemini generateContent dialect.
package gemini

import (
	"encoding/json"
	"fmt"
	"strings"

	"mercator-hq/saturn/pkg/protocol"
)

// Translator converts between the Gemini generateContent wire format and
// the canonical protocol types.
type Translator struct{}

// New returns the Gemini dialect translator.
func New() *Translator { return &Translator{} }

// Dialect returns "gemini".
func (t *Translator) Dialect() string { return "gemini" }

// ParseRequest parses a Gemini generateContent request body. The caller
// must fill in Model and Stream, which the Gemini API carries in the URL
// path rather than the body.
func (t *Translator) ParseRequest(body []byte) (*protocol.Request, error) {
	var req GenerateContentRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("invalid generateContent request: %w", err)
	}
	if len(req.Contents) == 0 {
		return nil, fmt.Errorf("contents must not be empty")
	}

	out := &protocol.Request{}

	if req.SystemInstruction != nil {
		out.System = joinParts(req.SystemInstruction.Parts)
	}
	if gc := req.GenerationConfig; gc != nil {
		out.Temperature = gc.Temperature
		out.TopP = gc.TopP
		out.MaxTokens = gc.MaxOutputTokens
		out.Stop = gc.StopSequences
	}

	for i, c := range req.Contents {
		var role string
		switch c.Role {
		case "user", "":
			role = protocol.RoleUser
		case "model":
			role = protocol.RoleAssistant
		default:
			return nil, fmt.Errorf("contents[%d]: unsupported role %q", i, c.Role)
		}
		out.Messages = append(out.Messages, protocol.Message{
			Role:    role,
			Content: joinParts(c.Parts),
		})
	}

	return out, nil
}

func joinParts(parts []Part) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

// FormatResponse renders a canonical response as a generateContent
// response.
func (t *Translator) FormatResponse(resp *protocol.Response) any {
	return &GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{{Text: resp.Content}},
				},
				FinishReason: finishReason(resp.FinishReason),
				Index:        0,
			},
		},
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     resp.Usage.PromptTokens,
			CandidatesTokenCount: resp.Usage.CompletionTokens,
			TotalTokenCount:      resp.Usage.TotalTokens,
		},
		ModelVersion: resp.Model,
		ResponseID:   resp.ID,
	}
}

// StreamEvents renders a backend chunk as a streamGenerateContent SSE
// payload. Gemini streams use no opening framing and no terminator; each
// event is a self-contained response fragment.
func (t *Translator) StreamEvents(chunk *protocol.Chunk, st *protocol.StreamState) []protocol.Event {
	if chunk.ID != "" && !st.Started {
		st.ID = chunk.ID
	}
	st.Started = true
	if chunk.Usage != nil {
		st.Usage.Add(*chunk.Usage)
	}

	if chunk.Delta == "" {
		return nil
	}

	out := &GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{{Text: chunk.Delta}},
				},
				Index: 0,
			},
		},
		ModelVersion: st.Model,
		ResponseID:   st.ID,
	}
	data, _ := json.Marshal(out)
	return []protocol.Event{{Data: data}}
}

// StreamFinish emits the final fragment carrying the finish reason and
// usage totals.
func (t *Translator) StreamFinish(st *protocol.StreamState, finish string) []protocol.Event {
	out := &GenerateContentResponse{
		Candidates: []Candidate{
			{
				Content: Content{
					Role:  "model",
					Parts: []Part{},
				},
				FinishReason: finishReason(finish),
				Index:        0,
			},
		},
		UsageMetadata: &UsageMetadata{
			PromptTokenCount:     st.Usage.PromptTokens,
			CandidatesTokenCount: st.Usage.CompletionTokens,
			TotalTokenCount:      st.Usage.TotalTokens,
		},
		ModelVersion: st.Model,
		ResponseID:   st.ID,
	}
	data, _ := json.Marshal(out)
	return []protocol.Event{{Data: data}}
}

// StreamError emits a terminal error payload.
func (t *Translator) StreamError(st *protocol.StreamState, code, message string) []protocol.Event {
	data, _ := json.Marshal(t.FormatError(code, message))
	return []protocol.Event{{Data: data}}
}

// FormatError renders the Gemini error envelope.
func (t *Translator) FormatError(code, message string) any {
	httpCode, status := errorStatus(code)
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    httpCode,
			Message: message,
			Status:  status,
		},
	}
}

func errorStatus(code string) (int, string) {
	switch code {
	case protocol.ErrCodeInvalidRequest, protocol.ErrCodeModelNotFound:
		return 400, "INVALID_ARGUMENT"
	case protocol.ErrCodeAuthentication:
		return 401, "UNAUTHENTICATED"
	case protocol.ErrCodeRateLimited:
		return 429, "RESOURCE_EXHAUSTED"
	default:
		return 500, "INTERNAL"
	}
}

// finishReason maps canonical finish reasons to Gemini's vocabulary.
func finishReason(finish string) string {
	switch finish {
	case protocol.FinishLength:
		return "MAX_TOKENS"
	case protocol.FinishContentFilter:
		return "SAFETY"
	default:
		return "STOP"
	}
}
