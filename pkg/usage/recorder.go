package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// Request outcomes stored in Record.Status.
const (
	StatusOK           = "ok"
	StatusError        = "error"
	StatusDisconnected = "client_disconnected"
)

// Record is one request's accounting entry.
type Record struct {
	// Time is when the request completed.
	Time time.Time

	// RequestID is the gateway-assigned request ID.
	RequestID string

	// Dialect is the client protocol ("openai", "claude", "gemini").
	Dialect string

	// Model is the model name the client requested.
	Model string

	// BackendModel is the deployment model the request resolved to.
	BackendModel string

	// Provider is the provider that served (or last attempted) the
	// request. Empty when no provider was reached.
	Provider string

	// Streamed reports whether the response was streamed.
	Streamed bool

	// Token counts, zero when the backend reported none.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// Duration is the total request handling time.
	Duration time.Duration

	// Status is one of the outcome constants.
	Status string
}

// Recorder persists usage records.
type Recorder interface {
	// Record stores one entry. Implementations must be safe for
	// concurrent use.
	Record(ctx context.Context, rec Record) error

	// Recent returns up to n of the most recent records, newest first.
	Recent(ctx context.Context, n int) ([]Record, error)

	// Close releases backend resources.
	Close() error
}

// NewRecorder builds the recorder selected by the usage configuration.
// When recording is disabled a no-op recorder is returned.
func NewRecorder(cfg config.UsageConfig, logger *slog.Logger) (Recorder, error) {
	if !cfg.IsEnabled() {
		return noopRecorder{}, nil
	}

	switch cfg.Backend {
	case "memory":
		return NewMemoryRecorder(cfg.MaxRecords), nil
	case "sqlite":
		return NewSQLiteRecorder(cfg.SQLitePath, logger)
	default:
		return nil, fmt.Errorf("unknown usage backend %q", cfg.Backend)
	}
}

type noopRecorder struct{}

func (noopRecorder) Record(ctx context.Context, rec Record) error       { return nil }
func (noopRecorder) Recent(ctx context.Context, n int) ([]Record, error) { return nil, nil }
func (noopRecorder) Close() error                                        { return nil }
