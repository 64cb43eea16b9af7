// Package config defines the configuration model for Mercator Saturn and
// provides loading, defaulting, validation, and live-reload support.
//
// Configuration is read from a YAML file (default: ~/.saturn/config.yaml),
// after which defaults are applied, environment variable overrides are
// merged, and the result is validated. Environment variables use the
// SATURN_ prefix (e.g. SATURN_LISTEN_ADDRESS); a small set of legacy
// unprefixed variables (UAA_TOKEN_URL, UAA_CLIENT_ID, UAA_CLIENT_SECRET,
// GENAI_API_URL, RESOURCE_GROUP, API_KEY, API_KEYS) is honored for
// single-provider deployments that predate the providers list.
//
// The Watcher type uses fsnotify to observe the configuration file and
// deliver reloaded snapshots. Only hot-swappable sections (API keys, model
// mappings, fallback models) should be applied from a reload; provider
// credentials and server settings require a restart.
package config
