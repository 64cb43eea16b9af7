package config

import (
	"fmt"
	"log/slog"
	"strings"
)

// Validate checks the configuration for errors that would prevent the
// gateway from operating. It returns the first problem found.
func Validate(cfg *Config) error {
	if len(cfg.Providers) == 0 {
		return fmt.Errorf("no providers configured: define a providers list, " +
			"a credentials block, or the UAA_* environment variables")
	}

	seen := make(map[string]struct{}, len(cfg.Providers))
	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		if p.Name == "" {
			return fmt.Errorf("providers[%d]: name is required", i)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = struct{}{}

		if p.UAATokenURL == "" {
			return fmt.Errorf("provider %q: uaa_token_url is required", p.Name)
		}
		if !strings.HasPrefix(p.UAATokenURL, "http://") && !strings.HasPrefix(p.UAATokenURL, "https://") {
			return fmt.Errorf("provider %q: uaa_token_url must be an http(s) URL", p.Name)
		}
		if p.UAAClientID == "" {
			return fmt.Errorf("provider %q: uaa_client_id is required", p.Name)
		}
		if p.UAAClientSecret == "" {
			return fmt.Errorf("provider %q: uaa_client_secret is required", p.Name)
		}
		if p.GenAIAPIURL == "" {
			return fmt.Errorf("provider %q: genai_api_url is required", p.Name)
		}
		if p.Weight < 0 {
			return fmt.Errorf("provider %q: weight must be positive", p.Name)
		}
	}

	switch cfg.LoadBalancing {
	case StrategyRoundRobin, StrategyFallback:
	default:
		return fmt.Errorf("unknown load_balancing strategy %q (options: %s, %s)",
			cfg.LoadBalancing, StrategyRoundRobin, StrategyFallback)
	}

	if cfg.RefreshInterval <= 0 {
		return fmt.Errorf("refresh_interval must be positive")
	}

	names := make(map[string]struct{}, len(cfg.Models))
	aliases := make(map[string]string)
	for i := range cfg.Models {
		m := &cfg.Models[i]
		if m.Name == "" {
			return fmt.Errorf("models[%d]: name is required", i)
		}
		if _, dup := names[m.Name]; dup {
			return fmt.Errorf("duplicate model name %q", m.Name)
		}
		names[m.Name] = struct{}{}

		for _, a := range m.Aliases {
			if a == "" || a == "*" {
				return fmt.Errorf("model %q: alias must be a name or a prefix ending in '*'", m.Name)
			}
			if owner, dup := aliases[a]; dup {
				return fmt.Errorf("alias %q claimed by both %q and %q", a, owner, m.Name)
			}
			aliases[a] = m.Name
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", cfg.Telemetry.Logging.Level)
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Telemetry.Logging.Format)
	}

	switch cfg.Usage.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("unknown usage backend %q (options: memory, sqlite)", cfg.Usage.Backend)
	}

	return nil
}

// WarnDanglingFallbacks logs a warning for every fallback_models entry
// that names no configured model, alias, or wildcard. A dangling fallback
// can never resolve: requests relying on it are rejected as unknown
// models.
func WarnDanglingFallbacks(cfg *Config, logger *slog.Logger) {
	if len(cfg.Models) == 0 {
		// Without a model table every name routes directly.
		return
	}

	for _, fb := range []struct{ family, target string }{
		{"claude", cfg.FallbackModels.Claude},
		{"openai", cfg.FallbackModels.OpenAI},
		{"gemini", cfg.FallbackModels.Gemini},
	} {
		if fb.target == "" || fallbackTargetConfigured(cfg.Models, fb.target) {
			continue
		}
		logger.Warn("fallback model is not configured; requests falling back to it will be rejected",
			"family", fb.family,
			"target", fb.target,
		)
	}
}

// fallbackTargetConfigured reports whether the fallback target matches a
// configured model name, exact alias, or wildcard alias.
func fallbackTargetConfigured(models []ModelConfig, target string) bool {
	name := strings.ToLower(target)
	for i := range models {
		m := &models[i]
		if strings.ToLower(m.Name) == name {
			return true
		}
		for _, a := range m.Aliases {
			if prefix, ok := strings.CutSuffix(a, "*"); ok {
				if strings.HasPrefix(name, strings.ToLower(prefix)) {
					return true
				}
			} else if strings.EqualFold(a, target) {
				return true
			}
		}
	}
	return false
}
