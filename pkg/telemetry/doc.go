// Package telemetry groups the observability subpackages: structured
// logging and Prometheus metrics.
package telemetry
