package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"mercator-hq/saturn/pkg/auth"
	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/deployments"
	"mercator-hq/saturn/pkg/protocol"
	"mercator-hq/saturn/pkg/protocol/claude"
	"mercator-hq/saturn/pkg/protocol/gemini"
	"mercator-hq/saturn/pkg/protocol/openai"
	"mercator-hq/saturn/pkg/registry"
	"mercator-hq/saturn/pkg/routing"
	"mercator-hq/saturn/pkg/telemetry/metrics"
	"mercator-hq/saturn/pkg/usage"
)

// Deps collects the components the gateway handlers depend on.
type Deps struct {
	Dispatcher *Dispatcher
	Validator  *auth.Validator
	Recorder   usage.Recorder
	Metrics    *metrics.Metrics
	Registry   *registry.Registry
	Directory  *deployments.Directory
	Pool       *routing.Pool
	Logger     *slog.Logger
}

// Gateway serves the three dialect endpoints plus the model listing,
// health, and metrics endpoints.
type Gateway struct {
	dispatcher *Dispatcher
	validator  *auth.Validator
	recorder   usage.Recorder
	metrics    *metrics.Metrics
	registry   *registry.Registry
	directory  *deployments.Directory
	pool       *routing.Pool
	logger     *slog.Logger

	openai *openai.Translator
	claude *claude.Translator
	gemini *gemini.Translator

	bodyLimit  int64
	cors       config.CORSConfig
	metricsCfg config.MetricsConfig
}

// New builds the gateway from configuration and its dependencies.
func New(cfg *config.Config, deps Deps) *Gateway {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	bodyLimit := cfg.Server.RequestBodyLimit
	if bodyLimit <= 0 {
		bodyLimit = config.DefaultBodyLimit
	}

	return &Gateway{
		dispatcher: deps.Dispatcher,
		validator:  deps.Validator,
		recorder:   deps.Recorder,
		metrics:    deps.Metrics,
		registry:   deps.Registry,
		directory:  deps.Directory,
		pool:       deps.Pool,
		logger:     logger.With("component", "gateway"),

		openai: openai.New(),
		claude: claude.New(),
		gemini: gemini.New(),

		bodyLimit:  bodyLimit,
		cors:       cfg.Server.CORS,
		metricsCfg: cfg.Telemetry.Metrics,
	}
}

// Handler returns the gateway's HTTP handler with the standard middleware
// chain applied.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", g.handleChatCompletions)
	mux.HandleFunc("GET /v1/models", g.handleListModels)
	mux.HandleFunc("POST /v1/messages", g.handleMessages)
	mux.HandleFunc("POST /v1beta/models/{modelAction}", g.handleGemini)
	mux.HandleFunc("GET /health", g.handleHealth)

	if g.metricsCfg.IsEnabled() {
		path := g.metricsCfg.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, g.metrics.Handler())
	}

	var h http.Handler = mux
	h = withCORS(g.cors, h)
	h = withLogging(g.logger, h)
	h = withRequestID(h)
	h = withRecovery(g.logger, h)
	return h
}

func (g *Gateway) handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, g.openai, auth.BearerKey, "", nil)
}

func (g *Gateway) handleMessages(w http.ResponseWriter, r *http.Request) {
	g.serve(w, r, g.claude, auth.AnthropicKey, "", nil)
}

// handleGemini dispatches both generateContent and streamGenerateContent;
// Gemini carries the model and the action in the URL rather than the body.
func (g *Gateway) handleGemini(w http.ResponseWriter, r *http.Request) {
	model, action, ok := strings.Cut(r.PathValue("modelAction"), ":")
	if !ok || model == "" {
		g.writeError(w, g.gemini, http.StatusBadRequest, protocol.ErrCodeInvalidRequest,
			"expected /v1beta/models/{model}:generateContent")
		return
	}

	var stream bool
	switch action {
	case "generateContent":
		stream = false
	case "streamGenerateContent":
		stream = true
	default:
		g.writeError(w, g.gemini, http.StatusBadRequest, protocol.ErrCodeInvalidRequest,
			"unsupported action "+strconv.Quote(action))
		return
	}

	g.serve(w, r, g.gemini, auth.GeminiKey, model, &stream)
}

// serve is the shared request path: authenticate, parse, dispatch, render.
// urlModel and urlStream override body fields for dialects that carry them
// in the URL.
func (g *Gateway) serve(w http.ResponseWriter, r *http.Request, tr protocol.Translator, extract auth.Extractor, urlModel string, urlStream *bool) {
	start := time.Now()

	if !g.validator.Validate(extract(r)) {
		g.writeError(w, tr, http.StatusUnauthorized, protocol.ErrCodeAuthentication,
			"invalid or missing API key")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.bodyLimit))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			g.writeError(w, tr, http.StatusRequestEntityTooLarge, protocol.ErrCodeInvalidRequest,
				"request body too large")
			return
		}
		g.writeError(w, tr, http.StatusBadRequest, protocol.ErrCodeInvalidRequest,
			"failed to read request body")
		return
	}

	req, err := tr.ParseRequest(body)
	if err != nil {
		g.writeError(w, tr, http.StatusBadRequest, protocol.ErrCodeInvalidRequest, err.Error())
		return
	}
	if urlModel != "" {
		req.Model = urlModel
	}
	if urlStream != nil {
		req.Stream = *urlStream
	}
	if req.Model == "" {
		g.writeError(w, tr, http.StatusBadRequest, protocol.ErrCodeInvalidRequest,
			"model is required")
		return
	}

	if req.Stream {
		g.serveStream(w, r, tr, req, start)
	} else {
		g.serveOnce(w, r, tr, req, start)
	}
}

func (g *Gateway) serveOnce(w http.ResponseWriter, r *http.Request, tr protocol.Translator, req *protocol.Request, start time.Time) {
	resp, route, err := g.dispatcher.Invoke(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			g.finish(r, tr, req, route, protocol.Usage{}, usage.StatusDisconnected, start, false)
			return
		}
		g.writeDispatchError(w, tr, err)
		g.finish(r, tr, req, route, protocol.Usage{}, usage.StatusError, start, false)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(tr.FormatResponse(resp)); err != nil {
		g.finish(r, tr, req, route, resp.Usage, usage.StatusDisconnected, start, false)
		return
	}
	g.finish(r, tr, req, route, resp.Usage, usage.StatusOK, start, false)
}

func (g *Gateway) serveStream(w http.ResponseWriter, r *http.Request, tr protocol.Translator, req *protocol.Request, start time.Time) {
	stream, route, err := g.dispatcher.InvokeStream(r.Context(), req)
	if err != nil {
		if r.Context().Err() != nil {
			g.finish(r, tr, req, route, protocol.Usage{}, usage.StatusDisconnected, start, true)
			return
		}
		// Nothing has been written yet, so the error goes out as a plain
		// JSON response rather than an SSE event.
		g.writeDispatchError(w, tr, err)
		g.finish(r, tr, req, route, protocol.Usage{}, usage.StatusError, start, true)
		return
	}

	g.metrics.StreamStarted()
	defer g.metrics.StreamFinished()

	setStreamHeaders(w)
	w.WriteHeader(http.StatusOK)

	st := &protocol.StreamState{
		ID:      RequestIDFromContext(r.Context()),
		Model:   req.Model,
		Created: start.Unix(),
	}
	out := pipeStream(r.Context(), w, tr, st, stream)
	g.finish(r, tr, req, route, out.usage, out.status, start, true)
}

// finish records metrics and a usage entry for one completed request.
func (g *Gateway) finish(r *http.Request, tr protocol.Translator, req *protocol.Request, route *Route, u protocol.Usage, status string, start time.Time, streamed bool) {
	provider := ""
	backendModel := req.Model
	if route != nil {
		provider = route.Provider
		backendModel = route.Resolution.BackendModel
	}
	elapsed := time.Since(start)

	g.metrics.ObserveRequest(tr.Dialect(), req.Model, provider, status, elapsed)
	g.metrics.ObserveTokens(req.Model, provider, u.PromptTokens, u.CompletionTokens)

	// The request context may already be canceled; recording still has to
	// happen.
	err := g.recorder.Record(context.Background(), usage.Record{
		Time:             start,
		RequestID:        RequestIDFromContext(r.Context()),
		Dialect:          tr.Dialect(),
		Model:            req.Model,
		BackendModel:     backendModel,
		Provider:         provider,
		Streamed:         streamed,
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.TotalTokens,
		Duration:         elapsed,
		Status:           status,
	})
	if err != nil {
		g.logger.Warn("usage record failed", "error", err)
	}
}

// writeDispatchError renders a dispatch failure, adding a Retry-After hint
// when the provider pool is exhausted.
func (g *Gateway) writeDispatchError(w http.ResponseWriter, tr protocol.Translator, err error) {
	status, code, message := classify(err)

	var exhausted *routing.ExhaustedError
	if errors.As(err, &exhausted) && !exhausted.RetryAt.IsZero() {
		if secs := int(time.Until(exhausted.RetryAt).Seconds()) + 1; secs > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(secs))
		}
	}

	g.writeError(w, tr, status, code, message)
}

func (g *Gateway) writeError(w http.ResponseWriter, tr protocol.Translator, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(tr.FormatError(code, message)); err != nil {
		g.logger.Debug("error response write failed", "error", err)
	}
}

// handleListModels reports the configured model names merged with the
// models actually deployed, in the OpenAI listing shape.
func (g *Gateway) handleListModels(w http.ResponseWriter, r *http.Request) {
	seen := make(map[string]struct{})
	var names []string
	add := func(name string) {
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	for _, name := range g.registry.Names() {
		add(name)
	}
	for _, name := range g.directory.Models() {
		add(name)
	}
	sort.Strings(names)

	now := time.Now().Unix()
	list := openai.ModelList{Object: "list", Data: make([]openai.ModelInfo, 0, len(names))}
	for _, name := range names {
		list.Data = append(list.Data, openai.ModelInfo{
			ID:      name,
			Object:  "model",
			Created: now,
			OwnedBy: "sap-ai-core",
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&list)
}

// healthProvider is one provider's entry in the health response.
type healthProvider struct {
	Name        string `json:"name"`
	Available   bool   `json:"available"`
	RefreshedAt string `json:"refreshed_at,omitempty"`
}

func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := time.Now()

	providers := make([]healthProvider, 0, len(g.pool.Providers()))
	for _, prov := range g.pool.Providers() {
		hp := healthProvider{
			Name:      prov.Name(),
			Available: prov.Available(now),
		}
		if at := g.directory.RefreshedAt(prov.Name()); !at.IsZero() {
			hp.RefreshedAt = at.UTC().Format(time.RFC3339)
		}
		providers = append(providers, hp)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"providers": providers,
	})
}
