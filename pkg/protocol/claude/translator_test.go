package claude

import (
	"encoding/json"
	"testing"

	"mercator-hq/saturn/pkg/protocol"
)

func TestParseRequest(t *testing.T) {
	body := `{
		"model": "claude-4-sonnet",
		"max_tokens": 1024,
		"system": [{"type":"text","text":"Be brief."}],
		"messages": [
			{"role": "user", "content": "hi"},
			{"role": "assistant", "content": [{"type":"text","text":"hello"}]}
		],
		"stop_sequences": ["STOP"],
		"stream": true
	}`

	req, err := New().ParseRequest([]byte(body))
	if err != nil {
		t.Fatalf("ParseRequest failed: %v", err)
	}
	if req.Model != "claude-4-sonnet" || req.MaxTokens != 1024 || !req.Stream {
		t.Errorf("model=%q max_tokens=%d stream=%v", req.Model, req.MaxTokens, req.Stream)
	}
	if req.System != "Be brief." {
		t.Errorf("system = %q", req.System)
	}
	if len(req.Messages) != 2 || req.Messages[1].Content != "hello" {
		t.Errorf("messages = %+v", req.Messages)
	}
	if len(req.Stop) != 1 || req.Stop[0] != "STOP" {
		t.Errorf("stop = %v", req.Stop)
	}
}

func TestParseRequestRequiresMaxTokens(t *testing.T) {
	body := `{"model":"claude-4-sonnet","messages":[{"role":"user","content":"hi"}]}`
	if _, err := New().ParseRequest([]byte(body)); err == nil {
		t.Error("expected max_tokens error")
	}
}

func TestStreamFramingSequence(t *testing.T) {
	tr := New()
	st := &protocol.StreamState{ID: "req-1", Model: "claude-4-sonnet"}

	first := tr.StreamEvents(&protocol.Chunk{
		Delta: "Hel",
		Usage: &protocol.Usage{PromptTokens: 12},
	}, st)

	names := eventNames(first)
	want := []string{"message_start", "content_block_start", "content_block_delta"}
	if !equal(names, want) {
		t.Fatalf("first chunk events = %v, want %v", names, want)
	}

	var start MessageStartEvent
	if err := json.Unmarshal(first[0].Data, &start); err != nil {
		t.Fatalf("message_start not JSON: %v", err)
	}
	if start.Message.ID != "msg_req-1" {
		t.Errorf("message id = %q", start.Message.ID)
	}
	if start.Message.Usage.InputTokens != 12 {
		t.Errorf("input tokens = %d", start.Message.Usage.InputTokens)
	}

	second := tr.StreamEvents(&protocol.Chunk{Delta: "lo"}, st)
	if !equal(eventNames(second), []string{"content_block_delta"}) {
		t.Fatalf("second chunk events = %v", eventNames(second))
	}

	tr.StreamEvents(&protocol.Chunk{Usage: &protocol.Usage{PromptTokens: 12, CompletionTokens: 4}}, st)

	finish := tr.StreamFinish(st, protocol.FinishLength)
	if !equal(eventNames(finish), []string{"content_block_stop", "message_delta", "message_stop"}) {
		t.Fatalf("finish events = %v", eventNames(finish))
	}

	var delta MessageDeltaEvent
	json.Unmarshal(finish[1].Data, &delta)
	if delta.Delta.StopReason != "max_tokens" {
		t.Errorf("stop reason = %q", delta.Delta.StopReason)
	}
	if delta.Usage.OutputTokens != 4 {
		t.Errorf("output tokens = %d", delta.Usage.OutputTokens)
	}
}

func TestStreamFinishWithoutDeltas(t *testing.T) {
	// A stream that ends before any content still needs the full envelope.
	st := &protocol.StreamState{ID: "req-2", Model: "claude-4-sonnet"}
	events := New().StreamFinish(st, protocol.FinishStop)

	names := eventNames(events)
	want := []string{"message_start", "message_delta", "message_stop"}
	if !equal(names, want) {
		t.Errorf("events = %v, want %v", names, want)
	}
}

func TestStreamError(t *testing.T) {
	events := New().StreamError(&protocol.StreamState{}, protocol.ErrCodeRateLimited, "cooling down")
	if len(events) != 1 || events[0].Name != "error" {
		t.Fatalf("events = %+v", events)
	}

	var out ErrorResponse
	if err := json.Unmarshal(events[0].Data, &out); err != nil {
		t.Fatalf("not JSON: %v", err)
	}
	if out.Type != "error" || out.Error.Type != "rate_limit_error" {
		t.Errorf("envelope = %+v", out)
	}
}

func TestFormatResponse(t *testing.T) {
	out := New().FormatResponse(&protocol.Response{
		ID:           "abc",
		Model:        "claude-4-sonnet",
		Content:      "hello",
		FinishReason: protocol.FinishStop,
		Usage:        protocol.Usage{PromptTokens: 10, CompletionTokens: 5},
	})

	resp, ok := out.(*MessageResponse)
	if !ok {
		t.Fatalf("unexpected type %T", out)
	}
	if resp.ID != "msg_abc" || resp.Type != "message" || resp.Role != "assistant" {
		t.Errorf("shell = %+v", resp)
	}
	if len(resp.Content) != 1 || resp.Content[0].Text != "hello" {
		t.Errorf("content = %+v", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("stop reason = %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 10 || resp.Usage.OutputTokens != 5 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func eventNames(events []protocol.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
