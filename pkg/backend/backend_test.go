package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/protocol"
)

func testClient() *Client {
	return NewClient(config.BackendConfig{
		Timeout:        10 * time.Second,
		ConnectTimeout: 2 * time.Second,
		MaxIdleConns:   4,
	})
}

func target(url, model string) Target {
	return Target{
		Provider:      "main",
		ResourceGroup: "default",
		Token:         "test-token",
		Deployment: deployments.Deployment{
			ID:    "d1",
			URL:   url,
			Model: model,
		},
	}
}

func chatRequest() *protocol.Request {
	return &protocol.Request{
		Model:    "gpt-4o",
		System:   "be brief",
		Messages: []protocol.Message{{Role: protocol.RoleUser, Content: "hi"}},
	}
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"gpt-4o", FamilyOpenAI},
		{"o3-mini", FamilyOpenAI},
		{"anthropic--claude-4-sonnet", FamilyAnthropic},
		{"claude-3-5-sonnet", FamilyAnthropic},
		{"gemini-2.5-pro", FamilyGemini},
		{"GEMINI-2.0-FLASH", FamilyGemini},
	}
	for _, tt := range tests {
		if got := FamilyOf(tt.model); got != tt.want {
			t.Errorf("FamilyOf(%q) = %q, want %q", tt.model, got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	if got := parseRetryAfter("30"); got != 30*time.Second {
		t.Errorf("seconds form: got %v", got)
	}
	if got := parseRetryAfter(""); got != 0 {
		t.Errorf("empty: got %v", got)
	}
	date := time.Now().Add(45 * time.Second).UTC().Format(http.TimeFormat)
	if got := parseRetryAfter(date); got <= 0 || got > 45*time.Second {
		t.Errorf("http-date form: got %v", got)
	}
}

func TestOpenAIInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" || r.URL.Query().Get("api-version") == "" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer test-token" ||
			r.Header.Get("AI-Resource-Group") != "default" {
			http.Error(w, "missing headers", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "id": "cmpl-1",
  "choices": [{"message": {"content": "hello there"}, "finish_reason": "stop"}],
  "usage": {"prompt_tokens": 8, "completion_tokens": 3, "total_tokens": 11}
}`))
	}))
	t.Cleanup(srv.Close)

	inv := newOpenAIInvoker(testClient())
	resp, err := inv.Invoke(context.Background(), target(srv.URL, "gpt-4o"), chatRequest())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Content != "hello there" || resp.FinishReason != protocol.FinishStop {
		t.Errorf("unexpected response: %+v", resp)
	}
	if resp.Usage.TotalTokens != 11 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestOpenAIInvokeStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`data: {"id":"cmpl-2","choices":[{"delta":{"content":"Hel"},"finish_reason":""}]}

data: {"id":"cmpl-2","choices":[{"delta":{"content":"lo"},"finish_reason":""}]}

data: {"id":"cmpl-2","choices":[{"delta":{},"finish_reason":"length"}],"usage":{"prompt_tokens":5,"completion_tokens":2,"total_tokens":7}}

data: [DONE]

`))
	}))
	t.Cleanup(srv.Close)

	inv := newOpenAIInvoker(testClient())
	rd, err := inv.InvokeStream(context.Background(), target(srv.URL, "gpt-4o"), chatRequest())
	if err != nil {
		t.Fatalf("InvokeStream failed: %v", err)
	}

	resp, err := Collect(context.Background(), rd)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if resp.Content != "Hello" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.FinishReason != protocol.FinishLength {
		t.Errorf("finish = %q", resp.FinishReason)
	}
	if resp.Usage.TotalTokens != 7 {
		t.Errorf("usage = %+v", resp.Usage)
	}
}

func TestAnthropicStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/invoke-with-response-stream" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte(`event: message_start
data: {"type":"message_start","message":{"id":"msg_1","usage":{"input_tokens":12,"output_tokens":0}}}

event: ping
data: {"type":"ping"}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hi!"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":4}}

event: message_stop
data: {"type":"message_stop"}

`))
	}))
	t.Cleanup(srv.Close)

	inv := newAnthropicInvoker(testClient())
	rd, err := inv.InvokeStream(context.Background(), target(srv.URL, "anthropic--claude-4-sonnet"), chatRequest())
	if err != nil {
		t.Fatalf("InvokeStream failed: %v", err)
	}
	defer rd.Close()

	first, err := rd.Read(context.Background())
	if err != nil {
		t.Fatalf("first Read failed: %v", err)
	}
	if first.ID != "msg_1" || first.Usage == nil || first.Usage.PromptTokens != 12 {
		t.Errorf("message_start chunk = %+v", first)
	}

	second, err := rd.Read(context.Background())
	if err != nil {
		t.Fatalf("second Read failed: %v", err)
	}
	if second.Delta != "Hi!" {
		t.Errorf("delta chunk = %+v", second)
	}

	third, err := rd.Read(context.Background())
	if err != nil {
		t.Fatalf("third Read failed: %v", err)
	}
	if third.FinishReason != protocol.FinishStop || third.Usage.CompletionTokens != 4 {
		t.Errorf("message_delta chunk = %+v", third)
	}

	if _, err := rd.Read(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF after message_stop, got %v", err)
	}
}

func TestGeminiInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models/gemini-2.5-pro:generateContent" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "candidates": [{"content": {"role": "model", "parts": [{"text": "Bonjour"}]}, "finishReason": "STOP", "index": 0}],
  "usageMetadata": {"promptTokenCount": 6, "candidatesTokenCount": 2, "totalTokenCount": 8}
}`))
	}))
	t.Cleanup(srv.Close)

	inv := newGeminiInvoker(testClient())
	resp, err := inv.Invoke(context.Background(), target(srv.URL, "gemini-2.5-pro"), chatRequest())
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if resp.Content != "Bonjour" || resp.Usage.PromptTokens != 6 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRateLimitErrorFrom429(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "17")
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)

	inv := newOpenAIInvoker(testClient())
	_, err := inv.Invoke(context.Background(), target(srv.URL, "gpt-4o"), chatRequest())

	var rle *RateLimitError
	if !errors.As(err, &rle) {
		t.Fatalf("expected *RateLimitError, got %v", err)
	}
	if rle.RetryAfter != 17*time.Second {
		t.Errorf("RetryAfter = %v", rle.RetryAfter)
	}
	if rle.Message != "quota exceeded" {
		t.Errorf("Message = %q", rle.Message)
	}
}

func TestBackendErrorPassthrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"content policy violation"}}`, http.StatusBadRequest)
	}))
	t.Cleanup(srv.Close)

	inv := newOpenAIInvoker(testClient())
	_, err := inv.Invoke(context.Background(), target(srv.URL, "gpt-4o"), chatRequest())

	var be *Error
	if !errors.As(err, &be) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if be.StatusCode != http.StatusBadRequest || be.Message != "content policy violation" {
		t.Errorf("unexpected error: %+v", be)
	}
}

func TestReplaySingleChunk(t *testing.T) {
	rd := Replay(&protocol.Response{
		ID:           "r1",
		Content:      "whole answer",
		FinishReason: protocol.FinishStop,
		Usage:        protocol.Usage{PromptTokens: 1, CompletionTokens: 2, TotalTokens: 3},
	})

	chunk, err := rd.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if chunk.Delta != "whole answer" || chunk.FinishReason != protocol.FinishStop {
		t.Errorf("chunk = %+v", chunk)
	}
	if _, err := rd.Read(context.Background()); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestSSEScannerMultilineData(t *testing.T) {
	input := "event: thing\ndata: line1\ndata: line2\n\n: comment\n\ndata: solo\n\n"
	s := newSSEScanner(strings.NewReader(input))
	ev, err := s.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.name != "thing" || ev.data != "line1\nline2" {
		t.Errorf("event = %+v", ev)
	}

	ev, err = s.Next()
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if ev.data != "solo" {
		t.Errorf("event = %+v", ev)
	}

	if _, err := s.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}
