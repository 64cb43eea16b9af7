package deployments

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
)

// Refresher drives periodic directory refreshes for all providers.
type Refresher struct {
	directory *Directory
	interval  time.Duration
	cron      *cron.Cron
	logger    *slog.Logger
	onCycle   func(time.Duration)

	mu      sync.Mutex
	running bool
}

// RefresherOption configures a Refresher.
type RefresherOption func(*Refresher)

// WithCycleObserver registers a callback invoked with the duration of
// every completed refresh cycle.
func WithCycleObserver(fn func(time.Duration)) RefresherOption {
	return func(r *Refresher) { r.onCycle = fn }
}

// NewRefresher creates a refresher that refreshes the directory at the
// given interval.
func NewRefresher(directory *Directory, interval time.Duration, logger *slog.Logger, opts ...RefresherOption) *Refresher {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Refresher{
		directory: directory,
		interval:  interval,
		cron:      cron.New(),
		logger:    logger.With("component", "deployments.refresher"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start performs an initial synchronous refresh, then schedules periodic
// refreshes until the context is cancelled or Stop is called. The initial
// refresh tolerates partial failure; providers that failed stay empty
// until the next cycle.
func (r *Refresher) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("refresher already running")
	}

	ok := r.refreshAll(ctx)
	r.logger.Info("initial deployment discovery complete",
		"providers_ok", ok,
		"interval", r.interval.String(),
	)

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", r.interval), func() {
		refreshCtx, cancel := context.WithTimeout(context.Background(), r.interval/2)
		defer cancel()
		r.refreshAll(refreshCtx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule deployment refresh: %w", err)
	}

	r.cron.Start()
	r.running = true

	go func() {
		<-ctx.Done()
		r.Stop()
	}()

	return nil
}

// refreshAll refreshes every provider concurrently, so one slow provider
// cannot delay the others within a cycle. It returns the number of
// providers that refreshed successfully.
func (r *Refresher) refreshAll(ctx context.Context) int {
	start := time.Now()

	var (
		wg sync.WaitGroup
		ok atomic.Int32
	)
	for _, p := range r.directory.providers {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			if err := r.directory.Refresh(ctx, name); err == nil {
				ok.Add(1)
			}
		}(p.Name)
	}
	wg.Wait()

	if r.onCycle != nil {
		r.onCycle(time.Since(start))
	}
	return int(ok.Load())
}

// Stop stops the periodic refresh and waits for a running cycle to finish.
func (r *Refresher) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		<-r.cron.Stop().Done()
		r.running = false
		r.logger.Info("deployment refresher stopped")
	}
}
