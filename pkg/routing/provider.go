package routing

import (
	"sync/atomic"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// Provider is the runtime routing state of one configured provider.
type Provider struct {
	// Config is the provider's static configuration.
	Config config.ProviderConfig

	// rateLimitedUntil holds the unix-nano timestamp until which the
	// provider is excluded from selection. Zero means not limited.
	rateLimitedUntil atomic.Int64
}

// Name returns the provider's configured name.
func (p *Provider) Name() string { return p.Config.Name }

// MarkRateLimited excludes the provider from selection until the given
// time. A later mark extends the window; an earlier one never shortens it.
func (p *Provider) MarkRateLimited(until time.Time) {
	target := until.UnixNano()
	for {
		cur := p.rateLimitedUntil.Load()
		if cur >= target {
			return
		}
		if p.rateLimitedUntil.CompareAndSwap(cur, target) {
			return
		}
	}
}

// Available reports whether the provider may serve requests at the given
// instant. Expiry is lazy: the stored timestamp is simply compared, never
// cleared.
func (p *Provider) Available(now time.Time) bool {
	return p.rateLimitedUntil.Load() < now.UnixNano()
}

// RateLimitedUntil returns when the current rate limit window ends, or
// the zero time if the provider was never limited.
func (p *Provider) RateLimitedUntil() time.Time {
	ns := p.rateLimitedUntil.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
