package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/saturn/pkg/backend"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/protocol"
	"mercator-hq/saturn/pkg/registry"
	"mercator-hq/saturn/pkg/routing"
	"mercator-hq/saturn/pkg/telemetry/metrics"
	"mercator-hq/saturn/pkg/token"
)

// NoDeploymentError indicates the resolved model is not served by any
// running deployment on any available provider.
type NoDeploymentError struct {
	Model string
}

// Error implements the error interface.
func (e *NoDeploymentError) Error() string {
	return fmt.Sprintf("no running deployment serves model %q", e.Model)
}

// Route records where a dispatched request ended up.
type Route struct {
	// Resolution is the model resolution outcome.
	Resolution registry.Resolution

	// Provider is the provider that served (or last attempted) the request.
	Provider string

	// Deployment is the deployment that was invoked.
	Deployment deployments.Deployment
}

// Dispatcher routes canonical requests to backend deployments. It holds
// the pieces the routing decision needs: the model registry, the provider
// pool, the token manager, and the deployment directory.
type Dispatcher struct {
	registry  *registry.Registry
	pool      *routing.Pool
	tokens    *token.Manager
	directory *deployments.Directory
	invokers  *backend.Invokers
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewDispatcher wires a dispatcher over the given components.
func NewDispatcher(
	reg *registry.Registry,
	pool *routing.Pool,
	tokens *token.Manager,
	directory *deployments.Directory,
	invokers *backend.Invokers,
	m *metrics.Metrics,
	logger *slog.Logger,
) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		registry:  reg,
		pool:      pool,
		tokens:    tokens,
		directory: directory,
		invokers:  invokers,
		metrics:   m,
		logger:    logger.With("component", "gateway.dispatcher"),
	}
}

// Invoke dispatches a non-streaming request and returns the canonical
// response with the client-requested model name restored.
func (d *Dispatcher) Invoke(ctx context.Context, req *protocol.Request) (*protocol.Response, *Route, error) {
	var resp *protocol.Response
	route, err := d.dispatch(ctx, req.Model, func(inv backend.Invoker, tgt backend.Target) error {
		r, err := inv.Invoke(ctx, tgt, req)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, route, err
	}

	resp.Model = req.Model
	return resp, route, nil
}

// InvokeStream dispatches a streaming request. The returned reader yields
// canonical chunks; the caller owns closing it.
func (d *Dispatcher) InvokeStream(ctx context.Context, req *protocol.Request) (backend.StreamReader, *Route, error) {
	var stream backend.StreamReader
	route, err := d.dispatch(ctx, req.Model, func(inv backend.Invoker, tgt backend.Target) error {
		s, err := inv.InvokeStream(ctx, tgt, req)
		if err != nil {
			return err
		}
		stream = s
		return nil
	})
	if err != nil {
		return nil, route, err
	}
	return stream, route, nil
}

// dispatch resolves the model, walks the candidate providers, and runs
// attempt against each until one succeeds. Only upstream rate limits move
// on to the next candidate.
func (d *Dispatcher) dispatch(ctx context.Context, model string, attempt func(backend.Invoker, backend.Target) error) (*Route, error) {
	res, err := d.registry.Resolve(model)
	if err != nil {
		return nil, err
	}
	inv := d.invokers.ForModel(res.BackendModel)

	candidates := d.pool.Candidates()
	if len(candidates) == 0 {
		return nil, d.pool.Exhausted(res.BackendModel)
	}

	var (
		deployed    bool
		rateLimited bool
		authErr     error
	)
	for _, prov := range candidates {
		dep, ok := d.directory.Lookup(prov.Name(), res.BackendModel)
		if !ok {
			continue
		}
		deployed = true

		tok, err := d.tokens.Token(ctx, prov.Name())
		if err != nil {
			// Token acquisition failures are provider-local; another
			// provider may still serve the request.
			authErr = err
			continue
		}

		tgt := backend.Target{
			Provider:      prov.Name(),
			ResourceGroup: prov.Config.ResourceGroup,
			Token:         tok,
			Deployment:    dep,
		}
		route := &Route{Resolution: res, Provider: prov.Name(), Deployment: dep}

		start := time.Now()
		err = attempt(inv, tgt)
		if err == nil {
			d.metrics.ObserveUpstream(prov.Name(), "ok", time.Since(start))
			d.metrics.SetRateLimited(prov.Name(), false)
			return route, nil
		}

		var rl *backend.RateLimitError
		if errors.As(err, &rl) {
			d.metrics.ObserveUpstream(prov.Name(), "rate_limited", time.Since(start))
			d.metrics.ObserveFailover(prov.Name())
			d.metrics.SetRateLimited(prov.Name(), true)
			d.pool.MarkRateLimited(prov, rl.RetryAfter)
			rateLimited = true
			continue
		}

		d.metrics.ObserveUpstream(prov.Name(), "error", time.Since(start))
		return route, err
	}

	switch {
	case rateLimited:
		return nil, d.pool.Exhausted(res.BackendModel)
	case authErr != nil:
		return nil, authErr
	case !deployed:
		return nil, &NoDeploymentError{Model: res.BackendModel}
	default:
		return nil, d.pool.Exhausted(res.BackendModel)
	}
}
