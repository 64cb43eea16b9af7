package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, merges legacy credentials and environment
// variables into the provider and API key lists, and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	mergeLegacySources(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// applyEnvOverrides applies SATURN_-prefixed environment variable overrides.
// Environment variables always take precedence over file-based values.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SATURN_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if val := os.Getenv("SATURN_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("SATURN_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if val := os.Getenv("SATURN_LOAD_BALANCING"); val != "" {
		cfg.LoadBalancing = val
	}
	if val := os.Getenv("SATURN_REFRESH_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.RefreshInterval = d
		}
	}
}

// mergeLegacySources folds the legacy credentials block and the legacy
// unprefixed environment variables into the provider and API key lists.
// When no providers are configured, a single provider named "default" is
// synthesized; environment variables win over the credentials block.
func mergeLegacySources(cfg *Config) {
	if len(cfg.Providers) == 0 {
		if p, ok := legacyProvider(cfg); ok {
			cfg.Providers = append(cfg.Providers, p)
		}
	}

	// API keys accumulate from env (API_KEY, API_KEYS), the file list,
	// and the legacy credentials block, deduplicated in that order.
	var keys []string
	if key := os.Getenv("API_KEY"); key != "" {
		keys = append(keys, key)
	}
	if list := os.Getenv("API_KEYS"); list != "" {
		for _, k := range strings.Split(list, ",") {
			if k = strings.TrimSpace(k); k != "" {
				keys = append(keys, k)
			}
		}
	}
	keys = append(keys, cfg.APIKeys...)
	if cfg.Credentials != nil && cfg.Credentials.APIKey != "" {
		keys = append(keys, cfg.Credentials.APIKey)
	}
	cfg.APIKeys = dedupe(keys)
}

func legacyProvider(cfg *Config) (ProviderConfig, bool) {
	creds := cfg.Credentials
	if creds == nil {
		creds = &CredentialsConfig{}
	}

	pick := func(envName, fileVal string) string {
		if v := os.Getenv(envName); v != "" {
			return v
		}
		return fileVal
	}

	p := ProviderConfig{
		Name:            "default",
		UAATokenURL:     NormalizeTokenURL(pick("UAA_TOKEN_URL", creds.UAATokenURL)),
		UAAClientID:     pick("UAA_CLIENT_ID", creds.UAAClientID),
		UAAClientSecret: pick("UAA_CLIENT_SECRET", creds.UAAClientSecret),
		GenAIAPIURL:     pick("GENAI_API_URL", creds.AICoreAPIURL),
		ResourceGroup:   pick("RESOURCE_GROUP", cfg.ResourceGroup),
		Weight:          1,
	}
	if p.ResourceGroup == "" {
		p.ResourceGroup = DefaultResourceGroup
	}

	ok := p.UAATokenURL != "" && p.UAAClientID != "" &&
		p.UAAClientSecret != "" && p.GenAIAPIURL != ""
	return p, ok
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
