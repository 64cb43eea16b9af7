package routing

import (
	"fmt"

	"mercator-hq/saturn/pkg/config"
)

// Strategy produces the candidate ordering for one request. The input
// slice contains the enabled providers in configuration order; the cursor
// is the request's sequence number.
type Strategy interface {
	// Name returns the strategy's configuration name.
	Name() string

	// Order returns the providers in the order they should be tried.
	Order(providers []*Provider, cursor uint64) []*Provider
}

// NewStrategy returns the strategy registered under the given name.
func NewStrategy(name string) (Strategy, error) {
	switch name {
	case config.StrategyRoundRobin:
		return &roundRobin{}, nil
	case config.StrategyFallback:
		return &fallback{}, nil
	default:
		return nil, fmt.Errorf("unknown load balancing strategy %q", name)
	}
}

// roundRobin rotates a weighted cursor across providers. A provider with
// weight w occupies w slots in the rotation, so it starts the candidate
// list for w of every sum(weights) requests. The remaining candidates
// follow in configuration order, each appearing once.
type roundRobin struct{}

func (s *roundRobin) Name() string { return config.StrategyRoundRobin }

func (s *roundRobin) Order(providers []*Provider, cursor uint64) []*Provider {
	if len(providers) <= 1 {
		return providers
	}

	slots := make([]*Provider, 0, len(providers))
	for _, p := range providers {
		w := p.Config.Weight
		if w <= 0 {
			w = 1
		}
		for i := 0; i < w; i++ {
			slots = append(slots, p)
		}
	}

	first := slots[cursor%uint64(len(slots))]
	out := make([]*Provider, 0, len(providers))
	out = append(out, first)
	for _, p := range providers {
		if p != first {
			out = append(out, p)
		}
	}
	return out
}

// fallback always tries providers in configuration order, so the first
// provider serves all traffic until it rate limits.
type fallback struct{}

func (s *fallback) Name() string { return config.StrategyFallback }

func (s *fallback) Order(providers []*Provider, cursor uint64) []*Provider {
	return providers
}
