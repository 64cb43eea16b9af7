package gemini

import (
	"encoding/json"
	"testing"

	"mercator-hq/saturn/pkg/protocol"
)

func TestParseRequest(t *testing.T) {
	body := `{
		"systemInstruction": {"parts": [{"text": "Be helpful."}]},
		"contents": [
			{"role": "user", "parts": [{"text": "hi "}, {"text": "there"}]},
			{"role": "model", "parts": [{"text": "hello"}]}
		],
		"generationConfig": {
			"temperature": 0.7,
			"maxOutputTokens": 256,
			"stopSequences": ["END"]
		}
	}`

	req, err := New().ParseRequest([]byte(body))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}

	// Model and stream ride in the URL; the body leaves them unset.
	if req.Model != "" || req.Stream {
		t.Errorf("model=%q stream=%v, want both unset", req.Model, req.Stream)
	}
	if req.System != "Be helpful." {
		t.Errorf("system = %q", req.System)
	}
	if len(req.Messages) != 2 {
		t.Fatalf("messages = %d", len(req.Messages))
	}
	if req.Messages[0].Content != "hi there" {
		t.Errorf("parts not joined: %q", req.Messages[0].Content)
	}
	if req.Messages[1].Role != protocol.RoleAssistant {
		t.Errorf("model role mapped to %q", req.Messages[1].Role)
	}
	if req.MaxTokens != 256 {
		t.Errorf("max tokens = %d", req.MaxTokens)
	}
	if req.Temperature == nil || *req.Temperature != 0.7 {
		t.Errorf("temperature = %v", req.Temperature)
	}
}

func TestParseRequestDefaultsRoleToUser(t *testing.T) {
	body := `{"contents":[{"parts":[{"text":"hi"}]}]}`
	req, err := New().ParseRequest([]byte(body))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if req.Messages[0].Role != protocol.RoleUser {
		t.Errorf("role = %q", req.Messages[0].Role)
	}
}

func TestParseRequestRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty contents", `{"contents":[]}`},
		{"bad role", `{"contents":[{"role":"function","parts":[{"text":"x"}]}]}`},
		{"not json", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New().ParseRequest([]byte(tt.body)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestStreamHasNoFraming(t *testing.T) {
	tr := New()
	st := &protocol.StreamState{ID: "r1", Model: "gemini-2.5-pro"}

	events := tr.StreamEvents(&protocol.Chunk{Delta: "Hel"}, st)
	if len(events) != 1 || events[0].Name != "" {
		t.Fatalf("events = %+v, want one unnamed data event", events)
	}

	var frag GenerateContentResponse
	if err := json.Unmarshal(events[0].Data, &frag); err != nil {
		t.Fatalf("fragment not JSON: %v", err)
	}
	if frag.Candidates[0].Content.Parts[0].Text != "Hel" {
		t.Errorf("fragment = %s", events[0].Data)
	}
	if frag.Candidates[0].FinishReason != "" {
		t.Errorf("intermediate fragment carries finish reason %q", frag.Candidates[0].FinishReason)
	}

	// Bookkeeping chunks emit nothing.
	if quiet := tr.StreamEvents(&protocol.Chunk{Usage: &protocol.Usage{PromptTokens: 3, CompletionTokens: 2}}, st); len(quiet) != 0 {
		t.Errorf("usage chunk emitted %d events", len(quiet))
	}
}

func TestStreamFinishCarriesUsage(t *testing.T) {
	tr := New()
	st := &protocol.StreamState{Model: "gemini-2.5-pro"}
	tr.StreamEvents(&protocol.Chunk{Delta: "x", Usage: &protocol.Usage{PromptTokens: 3, CompletionTokens: 2}}, st)

	events := tr.StreamFinish(st, protocol.FinishLength)
	if len(events) != 1 {
		t.Fatalf("finish events = %d", len(events))
	}

	var frag GenerateContentResponse
	json.Unmarshal(events[0].Data, &frag)
	if frag.Candidates[0].FinishReason != "MAX_TOKENS" {
		t.Errorf("finishReason = %q", frag.Candidates[0].FinishReason)
	}
	if frag.UsageMetadata == nil || frag.UsageMetadata.TotalTokenCount != 5 {
		t.Errorf("usageMetadata = %+v", frag.UsageMetadata)
	}
}

func TestFormatError(t *testing.T) {
	tests := []struct {
		code       string
		wantCode   int
		wantStatus string
	}{
		{protocol.ErrCodeInvalidRequest, 400, "INVALID_ARGUMENT"},
		{protocol.ErrCodeModelNotFound, 400, "INVALID_ARGUMENT"},
		{protocol.ErrCodeAuthentication, 401, "UNAUTHENTICATED"},
		{protocol.ErrCodeRateLimited, 429, "RESOURCE_EXHAUSTED"},
		{protocol.ErrCodeInternal, 500, "INTERNAL"},
	}
	for _, tt := range tests {
		out := New().FormatError(tt.code, "msg")
		resp, ok := out.(*ErrorResponse)
		if !ok {
			t.Fatalf("unexpected type %T", out)
		}
		if resp.Error.Code != tt.wantCode || resp.Error.Status != tt.wantStatus {
			t.Errorf("FormatError(%s) = %d/%s, want %d/%s",
				tt.code, resp.Error.Code, resp.Error.Status, tt.wantCode, tt.wantStatus)
		}
	}
}

func TestFormatResponse(t *testing.T) {
	out := New().FormatResponse(&protocol.Response{
		ID:           "resp-1",
		Model:        "gemini-2.5-pro",
		Content:      "hello",
		FinishReason: protocol.FinishStop,
		Usage:        protocol.Usage{PromptTokens: 4, CompletionTokens: 3, TotalTokens: 7},
	})

	resp, ok := out.(*GenerateContentResponse)
	if !ok {
		t.Fatalf("unexpected type %T", out)
	}
	c := resp.Candidates[0]
	if c.Content.Role != "model" || c.Content.Parts[0].Text != "hello" {
		t.Errorf("candidate = %+v", c)
	}
	if c.FinishReason != "STOP" {
		t.Errorf("finishReason = %q", c.FinishReason)
	}
	if resp.UsageMetadata.TotalTokenCount != 7 {
		t.Errorf("usage = %+v", resp.UsageMetadata)
	}
	if resp.ModelVersion != "gemini-2.5-pro" || resp.ResponseID != "resp-1" {
		t.Errorf("model=%q id=%q", resp.ModelVersion, resp.ResponseID)
	}
}
