package routing

import (
	"sync"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/config"
)

func poolOf(t *testing.T, strategy string, opts []PoolOption, names ...string) *Pool {
	t.Helper()
	cfgs := make([]config.ProviderConfig, 0, len(names))
	for _, n := range names {
		cfgs = append(cfgs, config.ProviderConfig{Name: n, Weight: 1})
	}
	pool, err := NewPool(cfgs, strategy, nil, opts...)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	return pool
}

func TestRoundRobinEvenDistribution(t *testing.T) {
	pool := poolOf(t, config.StrategyRoundRobin, nil, "eu", "us", "ap")

	counts := make(map[string]int)
	const requests = 300
	for i := 0; i < requests; i++ {
		cands := pool.Candidates()
		if len(cands) != 3 {
			t.Fatalf("expected 3 candidates, got %d", len(cands))
		}
		counts[cands[0].Name()]++
	}

	for _, name := range []string{"eu", "us", "ap"} {
		if counts[name] != requests/3 {
			t.Errorf("provider %s selected first %d times, want %d", name, counts[name], requests/3)
		}
	}
}

func TestRoundRobinWeighted(t *testing.T) {
	cfgs := []config.ProviderConfig{
		{Name: "big", Weight: 3},
		{Name: "small", Weight: 1},
	}
	pool, err := NewPool(cfgs, config.StrategyRoundRobin, nil)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}

	counts := make(map[string]int)
	for i := 0; i < 400; i++ {
		counts[pool.Candidates()[0].Name()]++
	}

	if counts["big"] != 300 || counts["small"] != 100 {
		t.Errorf("weighted distribution off: %v", counts)
	}
}

func TestFallbackAlwaysPrefersFirst(t *testing.T) {
	pool := poolOf(t, config.StrategyFallback, nil, "primary", "backup")

	for i := 0; i < 10; i++ {
		cands := pool.Candidates()
		if cands[0].Name() != "primary" || cands[1].Name() != "backup" {
			t.Fatalf("fallback order broken: %s, %s", cands[0].Name(), cands[1].Name())
		}
	}
}

func TestRateLimitedProviderSkippedAndRecovers(t *testing.T) {
	now := time.Now()
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}

	pool := poolOf(t, config.StrategyFallback, []PoolOption{WithClock(clock)}, "primary", "backup")
	primary := pool.Providers()[0]

	pool.MarkRateLimited(primary, 30*time.Second)

	cands := pool.Candidates()
	if len(cands) != 1 || cands[0].Name() != "backup" {
		t.Fatalf("expected only backup while primary is limited, got %d candidates", len(cands))
	}

	// The window expires lazily: advancing the clock past it restores the
	// provider with no explicit reset.
	mu.Lock()
	now = now.Add(31 * time.Second)
	mu.Unlock()

	cands = pool.Candidates()
	if len(cands) != 2 || cands[0].Name() != "primary" {
		t.Fatalf("expected primary restored after window, got %v candidates", len(cands))
	}
}

func TestMarkRateLimitedNeverShortensWindow(t *testing.T) {
	p := &Provider{Config: config.ProviderConfig{Name: "x"}}

	far := time.Now().Add(time.Hour)
	near := time.Now().Add(time.Minute)

	p.MarkRateLimited(far)
	p.MarkRateLimited(near)

	if got := p.RateLimitedUntil(); !got.Equal(far) {
		t.Errorf("window shortened: got %v, want %v", got, far)
	}
}

func TestDisabledProvidersExcluded(t *testing.T) {
	off := false
	cfgs := []config.ProviderConfig{
		{Name: "on", Weight: 1},
		{Name: "off", Weight: 1, Enabled: &off},
	}
	pool, err := NewPool(cfgs, config.StrategyRoundRobin, nil)
	if err != nil {
		t.Fatalf("NewPool failed: %v", err)
	}
	if len(pool.Providers()) != 1 || pool.Providers()[0].Name() != "on" {
		t.Errorf("disabled provider should not join the pool")
	}
}

func TestExhaustedReportsEarliestRetry(t *testing.T) {
	pool := poolOf(t, config.StrategyRoundRobin, nil, "a", "b")

	until1 := time.Now().Add(2 * time.Minute)
	until2 := time.Now().Add(1 * time.Minute)
	pool.Providers()[0].MarkRateLimited(until1)
	pool.Providers()[1].MarkRateLimited(until2)

	err := pool.Exhausted("gpt-4o")
	if !err.RetryAt.Equal(until2) {
		t.Errorf("RetryAt = %v, want earliest window %v", err.RetryAt, until2)
	}
	if err.Model != "gpt-4o" {
		t.Errorf("Model = %q", err.Model)
	}
}
