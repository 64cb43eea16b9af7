package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/protocol"
)

// Target identifies where one backend invocation goes: the deployment,
// the provider it belongs to, and the credentials to present.
type Target struct {
	// Provider is the provider's configured name.
	Provider string

	// ResourceGroup is sent as the AI-Resource-Group header.
	ResourceGroup string

	// Token is the bearer token for the provider.
	Token string

	// Deployment is the deployment to invoke.
	Deployment deployments.Deployment
}

// Client is the shared HTTP layer under all family invokers. It owns the
// connection pool and normalizes upstream error responses.
type Client struct {
	http *http.Client
}

// NewClient builds a backend client from the backend configuration.
func NewClient(cfg config.BackendConfig) *Client {
	return &Client{
		http: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
				MaxIdleConns:        cfg.MaxIdleConns * 4,
				MaxIdleConnsPerHost: cfg.MaxIdleConns,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// post sends a JSON request to a deployment endpoint and returns the raw
// response on 2xx. Non-2xx responses are drained and converted to
// *RateLimitError (429) or *Error; the caller never sees the body of a
// failed request.
func (c *Client) post(ctx context.Context, tgt Target, url string, payload any, stream bool) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{
			Provider: tgt.Provider,
			Message:  "failed to encode request",
			Cause:    err,
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{
			Provider: tgt.Provider,
			Message:  "failed to create request",
			Cause:    err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tgt.Token)
	req.Header.Set("AI-Resource-Group", tgt.ResourceGroup)
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// Context errors propagate untouched so the dispatcher can tell
		// client disconnects from backend failures.
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &Error{
			Provider: tgt.Provider,
			Message:  "request failed",
			Cause:    err,
		}
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}

	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 16<<10))
	msg := extractMessage(raw)

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{
			Provider:   tgt.Provider,
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			Message:    msg,
		}
	}

	return nil, &Error{
		Provider:   tgt.Provider,
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

// parseRetryAfter parses a Retry-After header, accepting both the
// delta-seconds and HTTP-date forms.
func parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(value); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// extractMessage pulls a human-readable message out of an upstream error
// body, falling back to the raw (truncated) body.
func extractMessage(raw []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
	}

	msg := strings.TrimSpace(string(raw))
	if len(msg) > 512 {
		msg = msg[:512]
	}
	if msg == "" {
		msg = "upstream returned no error details"
	}
	return msg
}

// Model families served through AI Core.
const (
	FamilyOpenAI    = "azure-openai"
	FamilyAnthropic = "anthropic"
	FamilyGemini    = "gemini"
)

// FamilyOf derives the inference API family from a deployment model name.
// AI Core prefixes partner models with the vendor ("anthropic--claude-4-
// sonnet"); bare OpenAI names ("gpt-4o") are the Azure OpenAI family.
func FamilyOf(model string) string {
	m := strings.ToLower(model)
	switch {
	case strings.HasPrefix(m, "anthropic--"), strings.HasPrefix(m, "claude"):
		return FamilyAnthropic
	case strings.HasPrefix(m, "gemini"), strings.HasPrefix(m, "google--gemini"):
		return FamilyGemini
	default:
		return FamilyOpenAI
	}
}

// Invoker sends canonical requests to deployments of one model family.
type Invoker interface {
	// Family returns the family this invoker serves.
	Family() string

	// Invoke performs a non-streaming generation.
	Invoke(ctx context.Context, tgt Target, req *protocol.Request) (*protocol.Response, error)

	// InvokeStream performs a streaming generation.
	InvokeStream(ctx context.Context, tgt Target, req *protocol.Request) (StreamReader, error)
}

// StreamReader yields canonical chunks from a backend stream. Read
// returns io.EOF when the stream ends normally.
type StreamReader interface {
	Read(ctx context.Context) (*protocol.Chunk, error)
	Close() error
}

// Invokers routes models to their family invoker.
type Invokers struct {
	byFamily map[string]Invoker
}

// NewInvokers builds the standard invoker set over a shared client.
func NewInvokers(client *Client) *Invokers {
	return &Invokers{
		byFamily: map[string]Invoker{
			FamilyOpenAI:    newOpenAIInvoker(client),
			FamilyAnthropic: newAnthropicInvoker(client),
			FamilyGemini:    newGeminiInvoker(client),
		},
	}
}

// ForModel returns the invoker for a deployment model name.
func (s *Invokers) ForModel(model string) Invoker {
	return s.byFamily[FamilyOf(model)]
}

func joinURL(base string, path string) string {
	return strings.TrimSuffix(base, "/") + path
}

func errorf(tgt Target, format string, args ...any) error {
	return &Error{Provider: tgt.Provider, Message: fmt.Sprintf(format, args...)}
}
