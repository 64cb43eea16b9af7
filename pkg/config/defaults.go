package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default values applied by ApplyDefaults.
const (
	DefaultListenAddress   = "0.0.0.0:8900"
	DefaultResourceGroup   = "default"
	DefaultRefreshInterval = 10 * time.Minute
	DefaultBackendTimeout  = 10 * time.Minute
	DefaultBodyLimit       = 2 << 20 // 2MiB
)

// DefaultPath returns the default configuration file location,
// ~/.saturn/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".saturn", "config.yaml")
}

// ApplyDefaults fills in default values for any unset configuration fields.
// It is called automatically by LoadConfig.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 30 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Minute
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = 120 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = 1 << 20
	}
	if cfg.Server.RequestBodyLimit == 0 {
		cfg.Server.RequestBodyLimit = DefaultBodyLimit
	}

	applyCORSDefaults(&cfg.Server.CORS)

	if cfg.ResourceGroup == "" {
		cfg.ResourceGroup = DefaultResourceGroup
	}
	if cfg.LoadBalancing == "" {
		cfg.LoadBalancing = StrategyRoundRobin
	}
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}

	for i := range cfg.Providers {
		p := &cfg.Providers[i]
		p.UAATokenURL = NormalizeTokenURL(p.UAATokenURL)
		if p.ResourceGroup == "" {
			p.ResourceGroup = DefaultResourceGroup
		}
		if p.Weight == 0 {
			p.Weight = 1
		}
	}

	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.ConnectTimeout == 0 {
		cfg.Backend.ConnectTimeout = 10 * time.Second
	}
	if cfg.Backend.MaxIdleConns == 0 {
		cfg.Backend.MaxIdleConns = 32
	}

	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = "info"
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = "json"
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = "/metrics"
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = "saturn"
	}

	if cfg.Usage.Backend == "" {
		cfg.Usage.Backend = "memory"
	}
	if cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = "./saturn-usage.db"
	}
	if cfg.Usage.MaxRecords == 0 {
		cfg.Usage.MaxRecords = 10000
	}
}

func applyCORSDefaults(c *CORSConfig) {
	if c.AllowedOrigins == nil {
		c.AllowedOrigins = []string{"*"}
	}
	if c.AllowedMethods == nil {
		c.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if c.AllowedHeaders == nil {
		c.AllowedHeaders = []string{
			"Authorization", "Content-Type", "X-Api-Key",
			"X-Goog-Api-Key", "Anthropic-Version", "X-Request-ID",
		}
	}
	if c.MaxAge == 0 {
		c.MaxAge = 3600
	}
}

// NormalizeTokenURL appends the standard UAA token path to a bare UAA base
// URL. URLs that already contain "/oauth/token" are returned unchanged.
func NormalizeTokenURL(url string) string {
	if url == "" || strings.Contains(url, "/oauth/token") {
		return url
	}
	if strings.HasSuffix(url, "/") {
		return url + "oauth/token"
	}
	return url + "/oauth/token"
}
