package registry

import (
	"errors"
	"testing"

	"mercator-hq/saturn/pkg/config"
)

func testRegistry() *Registry {
	return New(
		[]config.ModelConfig{
			{
				Name:            "claude-sonnet-4",
				AICoreModelName: "anthropic--claude-4-sonnet",
				Aliases:         []string{"claude-sonnet-latest", "claude-3-5-sonnet*", "claude-3*"},
			},
			{
				Name:    "gpt-4o",
				Aliases: []string{"gpt-4o-*"},
			},
			{
				Name:    "gpt-4o-mini",
				Aliases: []string{"gpt-4o-mini-*"},
			},
		},
		config.FallbackModels{
			Claude: "claude-sonnet-4",
			OpenAI: "gpt-4o",
		},
	)
}

func TestResolveStages(t *testing.T) {
	r := testRegistry()

	tests := []struct {
		name        string
		requested   string
		wantBackend string
		wantVia     string
	}{
		{
			name:        "exact model name",
			requested:   "claude-sonnet-4",
			wantBackend: "anthropic--claude-4-sonnet",
			wantVia:     ViaExact,
		},
		{
			name:        "exact alias",
			requested:   "claude-sonnet-latest",
			wantBackend: "anthropic--claude-4-sonnet",
			wantVia:     ViaAlias,
		},
		{
			name:        "wildcard prefix",
			requested:   "claude-3-opus-20240229",
			wantBackend: "anthropic--claude-4-sonnet",
			wantVia:     ViaWildcard,
		},
		{
			name:        "longest wildcard prefix wins",
			requested:   "gpt-4o-mini-2024-07-18",
			wantBackend: "gpt-4o-mini",
			wantVia:     ViaWildcard,
		},
		{
			name:        "case insensitive",
			requested:   "GPT-4o",
			wantBackend: "gpt-4o",
			wantVia:     ViaExact,
		},
		{
			name:        "family fallback",
			requested:   "gpt-5-nano",
			wantBackend: "gpt-4o",
			wantVia:     ViaFallback,
		},
		{
			name:        "fallback target resolves through table",
			requested:   "claude-opus-99",
			wantBackend: "anthropic--claude-4-sonnet",
			wantVia:     ViaFallback,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(tt.requested)
			if err != nil {
				t.Fatalf("Resolve(%q) failed: %v", tt.requested, err)
			}
			if res.BackendModel != tt.wantBackend {
				t.Errorf("backend = %q, want %q", res.BackendModel, tt.wantBackend)
			}
			if res.Via != tt.wantVia {
				t.Errorf("via = %q, want %q", res.Via, tt.wantVia)
			}
		})
	}
}

func TestExactAliasBeatsWildcard(t *testing.T) {
	r := New(
		[]config.ModelConfig{
			{Name: "model-a", Aliases: []string{"claude-3-5-sonnet-20241022"}},
			{Name: "model-b", Aliases: []string{"claude-3-5-sonnet-20241022*"}},
		},
		config.FallbackModels{},
	)

	// The wildcard's prefix equals the exact alias, so the wildcard even
	// matches the same string. The exact alias must still win.
	res, err := r.Resolve("claude-3-5-sonnet-20241022")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Name != "model-a" || res.Via != ViaAlias {
		t.Errorf("got %q via %q, want model-a via alias", res.Name, res.Via)
	}

	// A longer string only the wildcard matches.
	res, err = r.Resolve("claude-3-5-sonnet-20241022-v2")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Name != "model-b" || res.Via != ViaWildcard {
		t.Errorf("got %q via %q, want model-b via wildcard", res.Name, res.Via)
	}
}

func TestFallbackToUnconfiguredModelFails(t *testing.T) {
	r := New(
		[]config.ModelConfig{{Name: "gpt-4o"}},
		config.FallbackModels{Claude: "claude-nonexistent"},
	)

	// The claude family has a fallback, but it names no configured model.
	// The request must fail instead of routing to the dangling name.
	_, err := r.Resolve("claude-unknown-variant")
	var notFound *ModelNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *ModelNotFoundError for dangling fallback, got %v", err)
	}
	if notFound.Requested != "claude-unknown-variant" {
		t.Errorf("error reports %q, want the requested name", notFound.Requested)
	}
}

func TestResolveNotFound(t *testing.T) {
	r := testRegistry()

	// No gemini fallback is configured.
	_, err := r.Resolve("gemini-2.5-pro")
	var notFound *ModelNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected *ModelNotFoundError, got %v", err)
	}

	// Unknown family, no match anywhere.
	if _, err := r.Resolve("mistral-large"); err == nil {
		t.Error("expected error for unknown family")
	}
}

func TestResolvePassthroughWithoutModels(t *testing.T) {
	r := New(nil, config.FallbackModels{})

	res, err := r.Resolve("gpt-4o")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.BackendModel != "gpt-4o" || res.Via != ViaDirect {
		t.Errorf("expected direct passthrough, got %+v", res)
	}
}

func TestSwapReplacesTable(t *testing.T) {
	r := testRegistry()

	r.Swap([]config.ModelConfig{
		{Name: "gpt-4.1", Aliases: []string{"gpt-4o"}},
	}, config.FallbackModels{})

	res, err := r.Resolve("gpt-4o")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if res.Name != "gpt-4.1" || res.Via != ViaAlias {
		t.Errorf("expected swapped table to win, got %+v", res)
	}
}
