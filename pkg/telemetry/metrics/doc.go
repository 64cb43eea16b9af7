// Package metrics defines the gateway's Prometheus instruments: request
// counts and latency per dialect/model/provider, token usage, rate-limit
// cooldown state, deployment discovery counts and OAuth refresh outcomes.
// A single Metrics value owns its registry; Handler serves the scrape
// endpoint for exactly that set.
package metrics
