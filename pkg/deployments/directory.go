package deployments

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// snapshot is one immutable view of a provider's deployments, keyed by
// lowercased model name.
type snapshot struct {
	byModel     map[string]Deployment
	refreshedAt time.Time
}

// Directory tracks the running deployments of every configured provider.
// Each provider's view is an immutable snapshot behind an atomic pointer:
// lookups are lock-free, and a refresh builds a complete replacement map
// before swapping it in. A failed refresh keeps the previous snapshot.
type Directory struct {
	client    *Client
	providers []config.ProviderConfig
	logger    *slog.Logger
	snapshots map[string]*atomic.Pointer[snapshot]
	onRefresh func(provider string, models int, err error)
}

// DirectoryOption configures a Directory.
type DirectoryOption func(*Directory)

// WithRefreshObserver registers a callback invoked after every provider
// refresh attempt with the number of models in the new snapshot.
func WithRefreshObserver(fn func(provider string, models int, err error)) DirectoryOption {
	return func(d *Directory) { d.onRefresh = fn }
}

// NewDirectory creates a directory for the given providers. All snapshots
// start empty; call Refresh or RefreshAll to populate them.
func NewDirectory(client *Client, providers []config.ProviderConfig, logger *slog.Logger, opts ...DirectoryOption) *Directory {
	if logger == nil {
		logger = slog.Default()
	}

	d := &Directory{
		client:    client,
		providers: providers,
		logger:    logger.With("component", "deployments.directory"),
		snapshots: make(map[string]*atomic.Pointer[snapshot], len(providers)),
	}
	for _, p := range providers {
		ptr := &atomic.Pointer[snapshot]{}
		ptr.Store(&snapshot{byModel: map[string]Deployment{}})
		d.snapshots[p.Name] = ptr
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Refresh re-queries one provider and atomically swaps in the new
// snapshot. On error the previous snapshot stays in place.
func (d *Directory) Refresh(ctx context.Context, providerName string) error {
	var prov *config.ProviderConfig
	for i := range d.providers {
		if d.providers[i].Name == providerName {
			prov = &d.providers[i]
			break
		}
	}
	if prov == nil {
		return nil
	}

	deps, err := d.client.ListDeployments(ctx, *prov)
	if err != nil {
		d.logger.Warn("deployment refresh failed, keeping previous snapshot",
			"provider", providerName,
			"error", err,
		)
		if d.onRefresh != nil {
			d.onRefresh(providerName, 0, err)
		}
		return err
	}

	byModel := make(map[string]Deployment, len(deps))
	for _, dep := range deps {
		key := strings.ToLower(dep.Model)
		// Multiple deployments of the same model: keep the newest.
		if existing, ok := byModel[key]; ok && existing.CreatedAt.After(dep.CreatedAt) {
			continue
		}
		byModel[key] = dep
	}

	d.snapshots[providerName].Store(&snapshot{
		byModel:     byModel,
		refreshedAt: time.Now(),
	})

	d.logger.Info("deployments refreshed",
		"provider", providerName,
		"deployments", len(deps),
		"models", len(byModel),
	)
	if d.onRefresh != nil {
		d.onRefresh(providerName, len(byModel), nil)
	}
	return nil
}

// RefreshAll refreshes every provider, logging failures and continuing.
// It returns the number of providers that refreshed successfully.
func (d *Directory) RefreshAll(ctx context.Context) int {
	ok := 0
	for _, p := range d.providers {
		if err := d.Refresh(ctx, p.Name); err == nil {
			ok++
		}
	}
	return ok
}

// Lookup returns the deployment serving the given model on the given
// provider. Model matching is case-insensitive.
func (d *Directory) Lookup(providerName, model string) (Deployment, bool) {
	ptr, ok := d.snapshots[providerName]
	if !ok {
		return Deployment{}, false
	}
	dep, ok := ptr.Load().byModel[strings.ToLower(model)]
	return dep, ok
}

// Models returns the sorted set of distinct model names deployed across
// all providers.
func (d *Directory) Models() []string {
	seen := make(map[string]struct{})
	for _, ptr := range d.snapshots {
		for _, dep := range ptr.Load().byModel {
			seen[dep.Model] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for m := range seen {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// RefreshedAt returns when the provider's snapshot was last successfully
// refreshed. The zero time means never.
func (d *Directory) RefreshedAt(providerName string) time.Time {
	if ptr, ok := d.snapshots[providerName]; ok {
		return ptr.Load().refreshedAt
	}
	return time.Time{}
}
