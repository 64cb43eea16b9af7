package token

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"mercator-hq/saturn/pkg/config"
)

// ExpiryMargin is how long before actual expiry a cached token is treated
// as expired. It must comfortably exceed the longest plausible backend
// request setup time.
const ExpiryMargin = 60 * time.Second

// entry holds the cached token and refresh lock for one provider.
type entry struct {
	name string
	cc   *clientcredentials.Config

	// tok is read lock-free on the hot path. Refresh serializes on mu.
	tok atomic.Pointer[oauth2.Token]
	mu  sync.Mutex
}

// Manager caches one OAuth2 access token per provider and refreshes them
// on demand.
type Manager struct {
	entries   map[string]*entry
	client    *http.Client
	logger    *slog.Logger
	now       func() time.Time
	onRefresh func(provider string, err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithHTTPClient sets the HTTP client used for token endpoint exchanges.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) { m.client = client }
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRefreshObserver registers a callback invoked after every token
// endpoint exchange, successful or not.
func WithRefreshObserver(fn func(provider string, err error)) Option {
	return func(m *Manager) { m.onRefresh = fn }
}

// NewManager creates a token manager for the given providers.
func NewManager(providers []config.ProviderConfig, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		entries: make(map[string]*entry, len(providers)),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger.With("component", "token.manager"),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	for _, p := range providers {
		m.entries[p.Name] = &entry{
			name: p.Name,
			cc: &clientcredentials.Config{
				ClientID:     p.UAAClientID,
				ClientSecret: p.UAAClientSecret,
				TokenURL:     p.UAATokenURL,
			},
		}
	}

	return m
}

// Token returns a valid access token for the named provider, refreshing it
// if the cached one is missing or within ExpiryMargin of expiry. Failures
// are returned as *AuthUnavailableError; a previously cached valid token
// is never evicted by a failed refresh.
func (m *Manager) Token(ctx context.Context, provider string) (string, error) {
	e, ok := m.entries[provider]
	if !ok {
		return "", &AuthUnavailableError{
			Provider: provider,
			Err:      fmt.Errorf("unknown provider"),
		}
	}

	if tok := e.tok.Load(); m.valid(tok) {
		return tok.AccessToken, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Another request may have refreshed while we waited for the lock.
	if tok := e.tok.Load(); m.valid(tok) {
		return tok.AccessToken, nil
	}

	start := m.now()
	tok, err := e.cc.Token(context.WithValue(ctx, oauth2.HTTPClient, m.client))
	if m.onRefresh != nil {
		m.onRefresh(e.name, err)
	}
	if err != nil {
		m.logger.Error("token refresh failed",
			"provider", e.name,
			"error", err,
		)
		return "", &AuthUnavailableError{Provider: e.name, Err: err}
	}

	e.tok.Store(tok)
	m.logger.Debug("token refreshed",
		"provider", e.name,
		"expires_in", tok.Expiry.Sub(start).Round(time.Second).String(),
	)

	return tok.AccessToken, nil
}

// Invalidate drops the cached token for a provider, forcing the next
// Token call to refresh. Used when a backend rejects a token as expired
// ahead of schedule.
func (m *Manager) Invalidate(provider string) {
	if e, ok := m.entries[provider]; ok {
		e.tok.Store(nil)
	}
}

func (m *Manager) valid(tok *oauth2.Token) bool {
	return tok != nil && tok.AccessToken != "" &&
		(tok.Expiry.IsZero() || m.now().Add(ExpiryMargin).Before(tok.Expiry))
}
