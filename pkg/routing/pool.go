package routing

import (
	"log/slog"
	"sync/atomic"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// DefaultCooldown is how long a provider stays out of rotation after a
// 429 that carried no Retry-After hint.
const DefaultCooldown = 60 * time.Second

// Pool holds the enabled providers and produces per-request candidate
// orderings.
type Pool struct {
	providers []*Provider
	strategy  Strategy
	cursor    atomic.Uint64
	logger    *slog.Logger
	now       func() time.Time
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) PoolOption {
	return func(p *Pool) { p.now = now }
}

// NewPool creates a pool over the enabled providers using the named
// strategy.
func NewPool(cfgs []config.ProviderConfig, strategyName string, logger *slog.Logger, opts ...PoolOption) (*Pool, error) {
	strategy, err := NewStrategy(strategyName)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	pool := &Pool{
		strategy: strategy,
		logger:   logger.With("component", "routing.pool"),
		now:      time.Now,
	}
	for _, cfg := range cfgs {
		if cfg.IsEnabled() {
			pool.providers = append(pool.providers, &Provider{Config: cfg})
		}
	}
	for _, opt := range opts {
		opt(pool)
	}

	return pool, nil
}

// Candidates returns the providers to try for one request, in order,
// excluding those currently rate limited. It advances the rotation cursor
// exactly once per call, whatever the request's eventual outcome.
func (p *Pool) Candidates() []*Provider {
	cursor := p.cursor.Add(1) - 1
	ordered := p.strategy.Order(p.providers, cursor)

	now := p.now()
	out := make([]*Provider, 0, len(ordered))
	for _, prov := range ordered {
		if prov.Available(now) {
			out = append(out, prov)
		}
	}
	return out
}

// MarkRateLimited records a 429 from the provider. The provider leaves
// rotation until now+retryAfter, or now+DefaultCooldown when the backend
// gave no hint.
func (p *Pool) MarkRateLimited(prov *Provider, retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = DefaultCooldown
	}
	until := p.now().Add(retryAfter)
	prov.MarkRateLimited(until)

	p.logger.Warn("provider rate limited",
		"provider", prov.Name(),
		"until", until.UTC().Format(time.RFC3339),
	)
}

// Providers returns all enabled providers in configuration order.
func (p *Pool) Providers() []*Provider {
	return p.providers
}

// Exhausted builds the error describing a fully rate-limited pool,
// including the earliest time a provider re-enters rotation.
func (p *Pool) Exhausted(model string) *ExhaustedError {
	var earliest time.Time
	for _, prov := range p.providers {
		until := prov.RateLimitedUntil()
		if until.IsZero() {
			continue
		}
		if earliest.IsZero() || until.Before(earliest) {
			earliest = until
		}
	}
	return &ExhaustedError{Model: model, RetryAt: earliest}
}
