package config

import "time"

// Load balancing strategy names accepted in the load_balancing field.
const (
	// StrategyRoundRobin distributes requests across enabled providers in
	// weighted rotation. A provider that reports rate limiting is skipped
	// until its cooldown window expires.
	StrategyRoundRobin = "round_robin"

	// StrategyFallback always prefers the first configured provider and
	// only moves down the list when the current provider is rate limited.
	StrategyFallback = "fallback"
)

// Config is the root configuration structure for Mercator Saturn.
// It describes the HTTP server, the upstream AI Core providers, the model
// alias table, and the ambient telemetry and usage-recording settings.
type Config struct {
	// Server contains HTTP server configuration including listen address,
	// timeouts, and request size limits.
	Server ServerConfig `yaml:"server"`

	// APIKeys is the list of client API keys accepted by the gateway.
	// Requests must present one of these keys in the protocol-appropriate
	// header. An empty list disables client authentication.
	APIKeys []string `yaml:"api_keys"`

	// Credentials is the legacy single-provider credentials block. When
	// Providers is empty, a provider named "default" is synthesized from
	// this block (and from the legacy environment variables).
	Credentials *CredentialsConfig `yaml:"credentials"`

	// Providers lists the upstream AI Core service instances. Order is
	// significant: the fallback strategy tries providers in this order,
	// and round-robin uses it as the rotation base.
	Providers []ProviderConfig `yaml:"providers"`

	// ResourceGroup is the legacy top-level resource group, used only when
	// a provider is synthesized from the Credentials block.
	// Default: "default"
	ResourceGroup string `yaml:"resource_group"`

	// Models maps public model names to backend deployment names and
	// aliases. Aliases may end in '*' to match a prefix.
	Models []ModelConfig `yaml:"models"`

	// FallbackModels configures the per-family fallback used when a
	// requested model matches no configured name or alias.
	FallbackModels FallbackModels `yaml:"fallback_models"`

	// LoadBalancing selects the provider selection strategy.
	// Options: "round_robin", "fallback". Default: "round_robin"
	LoadBalancing string `yaml:"load_balancing"`

	// RefreshInterval is how often the deployment directory re-queries
	// each provider for its running deployments.
	// Default: 10m
	RefreshInterval time.Duration `yaml:"refresh_interval"`

	// Backend contains settings for outbound requests to AI Core.
	Backend BackendConfig `yaml:"backend"`

	// Telemetry contains logging and metrics configuration.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Usage contains configuration for per-request usage recording.
	Usage UsageConfig `yaml:"usage"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "0.0.0.0:8900"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire request,
	// including the body.
	// Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out writes of
	// the response. Streaming responses can run long, so the default is
	// generous.
	// Default: 10m
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the maximum time to wait for the next request when
	// keep-alives are enabled.
	// Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for in-flight
	// requests during graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// MaxHeaderBytes limits the size of request headers.
	// Default: 1048576 (1MB)
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// RequestBodyLimit limits the size of request bodies in bytes.
	// Zero means the default of 2MiB.
	RequestBodyLimit int64 `yaml:"request_body_limit"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS headers are emitted. An absent field
	// means enabled.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow all.
	// Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed request headers.
	// Default: ["Authorization", "Content-Type", "X-Api-Key",
	// "X-Goog-Api-Key", "Anthropic-Version", "X-Request-ID"]
	AllowedHeaders []string `yaml:"allowed_headers"`

	// MaxAge is the preflight cache duration in seconds.
	// Default: 3600
	MaxAge int `yaml:"max_age"`
}

// IsEnabled reports whether CORS headers are emitted, treating an absent
// enabled field as true.
func (c *CORSConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// ProviderConfig describes one upstream AI Core service instance.
type ProviderConfig struct {
	// Name identifies the provider in logs, metrics, and CLI output.
	Name string `yaml:"name"`

	// UAATokenURL is the OAuth2 token endpoint of the provider's UAA
	// instance. A bare UAA base URL is accepted; "/oauth/token" is
	// appended automatically.
	UAATokenURL string `yaml:"uaa_token_url"`

	// UAAClientID is the OAuth2 client ID for the client-credentials grant.
	UAAClientID string `yaml:"uaa_client_id"`

	// UAAClientSecret is the OAuth2 client secret.
	UAAClientSecret string `yaml:"uaa_client_secret"`

	// GenAIAPIURL is the base URL of the provider's AI Core API
	// (e.g. "https://api.ai.prod.eu-central-1.aws.ml.hana.ondemand.com").
	GenAIAPIURL string `yaml:"genai_api_url"`

	// ResourceGroup is the AI Core resource group to address.
	// Default: "default"
	ResourceGroup string `yaml:"resource_group"`

	// Weight biases round-robin selection toward this provider.
	// Default: 1
	Weight int `yaml:"weight"`

	// Enabled controls whether this provider participates in routing.
	// Default: true
	Enabled *bool `yaml:"enabled"`
}

// IsEnabled reports whether the provider participates in routing,
// treating an absent enabled field as true.
func (p *ProviderConfig) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

// CredentialsConfig is the legacy single-provider credentials block.
type CredentialsConfig struct {
	UAATokenURL     string `yaml:"uaa_token_url"`
	UAAClientID     string `yaml:"uaa_client_id"`
	UAAClientSecret string `yaml:"uaa_client_secret"`
	AICoreAPIURL    string `yaml:"aicore_api_url"`
	APIKey          string `yaml:"api_key"`
}

// ModelConfig maps a public model name to its backend deployment name
// and the aliases that resolve to it.
type ModelConfig struct {
	// Name is the public model name clients request.
	Name string `yaml:"name"`

	// AICoreModelName overrides the deployment model name used when
	// looking up a deployment. When empty, Name is used directly.
	AICoreModelName string `yaml:"aicore_model_name"`

	// Aliases lists alternative names that resolve to this model. An
	// alias ending in '*' matches any requested name with that prefix;
	// among wildcard matches the longest prefix wins, and an exact alias
	// always beats a wildcard.
	Aliases []string `yaml:"aliases"`
}

// BackendName returns the deployment model name to route to.
func (m *ModelConfig) BackendName() string {
	if m.AICoreModelName != "" {
		return m.AICoreModelName
	}
	return m.Name
}

// FallbackModels configures the fallback model per model family. When a
// requested model matches nothing in the model table, the request is
// routed to the configured model for its family instead of failing.
type FallbackModels struct {
	// Claude is the fallback for models starting with "claude".
	Claude string `yaml:"claude"`

	// OpenAI is the fallback for models starting with "gpt" or "text".
	OpenAI string `yaml:"openai"`

	// Gemini is the fallback for models starting with "gemini".
	Gemini string `yaml:"gemini"`
}

// BackendConfig contains settings for outbound requests to AI Core.
type BackendConfig struct {
	// Timeout is the maximum duration for a single backend request,
	// including streaming reads.
	// Default: 10m
	Timeout time.Duration `yaml:"timeout"`

	// ConnectTimeout is the maximum duration for establishing a
	// connection to the backend.
	// Default: 10s
	ConnectTimeout time.Duration `yaml:"connect_timeout"`

	// MaxIdleConns controls the connection pool size per backend host.
	// Default: 32
	MaxIdleConns int `yaml:"max_idle_conns"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level.
	// Options: "debug", "info", "warn", "error". Default: "info"
	Level string `yaml:"level"`

	// Format selects the log output format.
	// Options: "json", "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether the metrics endpoint is served. An absent
	// field means enabled.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Path is the HTTP path of the metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the Prometheus namespace prefix for all metrics.
	// Default: "saturn"
	Namespace string `yaml:"namespace"`
}

// IsEnabled reports whether the metrics endpoint is served, treating an
// absent enabled field as true.
func (c *MetricsConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// UsageConfig contains configuration for per-request usage recording.
type UsageConfig struct {
	// Enabled controls whether usage records are kept. An absent field
	// means enabled.
	// Default: true
	Enabled *bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "memory", "sqlite". Default: "memory"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path when Backend is "sqlite".
	// Default: "./saturn-usage.db"
	SQLitePath string `yaml:"sqlite_path"`

	// MaxRecords bounds the number of records retained in memory.
	// Default: 10000
	MaxRecords int `yaml:"max_records"`
}

// IsEnabled reports whether usage records are kept, treating an absent
// enabled field as true.
func (c *UsageConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}
