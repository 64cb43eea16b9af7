package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"mercator-hq/saturn/pkg/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"bogus", slog.LevelInfo},
		{"DEBUG", slog.LevelDebug},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSetupWriterJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(config.LoggingConfig{Level: "info", Format: "json"}, &buf)

	logger.Info("request dispatched", "model", "gpt-4o", "provider", "main")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if entry["msg"] != "request dispatched" {
		t.Errorf("msg = %v", entry["msg"])
	}
	if entry["model"] != "gpt-4o" {
		t.Errorf("model attr = %v", entry["model"])
	}
}

func TestSetupWriterLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWriter(config.LoggingConfig{Level: "warn", Format: "text"}, &buf)

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Errorf("info line emitted below configured level: %s", buf.String())
	}

	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Error("warn line missing")
	}
}
