package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"mercator-hq/saturn/pkg/config"
)

// Resolution stages reported in Resolution.Via.
const (
	ViaExact    = "exact"
	ViaAlias    = "alias"
	ViaWildcard = "wildcard"
	ViaFallback = "fallback"
	ViaDirect   = "direct"
)

// ModelNotFoundError indicates a requested model matched no configured
// name, alias, wildcard, or family fallback.
type ModelNotFoundError struct {
	Requested string
}

// Error implements the error interface.
func (e *ModelNotFoundError) Error() string {
	return fmt.Sprintf("model %q is not configured and has no fallback", e.Requested)
}

// Resolution is the outcome of resolving a requested model name.
type Resolution struct {
	// Requested is the name the client sent.
	Requested string

	// Name is the public name of the resolved model.
	Name string

	// BackendModel is the deployment model name to route to.
	BackendModel string

	// Via records which stage resolved the request.
	Via string
}

// table is one immutable resolution table.
type table struct {
	byName    map[string]config.ModelConfig
	byAlias   map[string]string
	wildcards []wildcard
	fallbacks config.FallbackModels
	passthru  bool
}

// wildcard is one prefix alias, stored without its trailing '*'.
type wildcard struct {
	prefix string
	owner  string
}

// Registry resolves model names against an atomically swappable table.
type Registry struct {
	tbl atomic.Pointer[table]
}

// New creates a registry from the configured models and fallbacks.
// When no models are configured at all, the registry passes requested
// names through unchanged and routing is constrained only by what the
// deployment directory actually serves.
func New(models []config.ModelConfig, fallbacks config.FallbackModels) *Registry {
	r := &Registry{}
	r.Swap(models, fallbacks)
	return r
}

// Swap atomically replaces the resolution table. Called on configuration
// reload.
func (r *Registry) Swap(models []config.ModelConfig, fallbacks config.FallbackModels) {
	t := &table{
		byName:    make(map[string]config.ModelConfig, len(models)),
		byAlias:   make(map[string]string),
		fallbacks: fallbacks,
		passthru:  len(models) == 0,
	}

	for _, m := range models {
		t.byName[strings.ToLower(m.Name)] = m
		for _, a := range m.Aliases {
			if prefix, ok := strings.CutSuffix(a, "*"); ok {
				t.wildcards = append(t.wildcards, wildcard{
					prefix: strings.ToLower(prefix),
					owner:  strings.ToLower(m.Name),
				})
			} else {
				t.byAlias[strings.ToLower(a)] = strings.ToLower(m.Name)
			}
		}
	}

	r.tbl.Store(t)
}

// Resolve maps a requested model name to a backend deployment model name.
func (r *Registry) Resolve(requested string) (Resolution, error) {
	t := r.tbl.Load()
	name := strings.ToLower(requested)

	if t.passthru {
		return Resolution{
			Requested:    requested,
			Name:         requested,
			BackendModel: requested,
			Via:          ViaDirect,
		}, nil
	}

	if res, ok := t.match(requested, name); ok {
		return res, nil
	}

	// Family fallback. The fallback target itself resolves through the
	// table (a fallback may name an alias), but never through another
	// fallback. A fallback naming an unconfigured model cannot resolve;
	// config.WarnDanglingFallbacks flags that at startup.
	if fb := t.fallback(name); fb != "" {
		if res, ok := t.match(requested, strings.ToLower(fb)); ok {
			res.Via = ViaFallback
			return res, nil
		}
	}

	return Resolution{}, &ModelNotFoundError{Requested: requested}
}

// match runs the exact, alias, and wildcard stages.
func (t *table) match(requested, name string) (Resolution, bool) {
	if m, ok := t.byName[name]; ok {
		return Resolution{
			Requested:    requested,
			Name:         m.Name,
			BackendModel: m.BackendName(),
			Via:          ViaExact,
		}, true
	}

	if owner, ok := t.byAlias[name]; ok {
		m := t.byName[owner]
		return Resolution{
			Requested:    requested,
			Name:         m.Name,
			BackendModel: m.BackendName(),
			Via:          ViaAlias,
		}, true
	}

	// Most specific wildcard wins: the longest prefix that matches.
	best := -1
	var bestOwner string
	for _, w := range t.wildcards {
		if strings.HasPrefix(name, w.prefix) && len(w.prefix) > best {
			best = len(w.prefix)
			bestOwner = w.owner
		}
	}
	if best >= 0 {
		m := t.byName[bestOwner]
		return Resolution{
			Requested:    requested,
			Name:         m.Name,
			BackendModel: m.BackendName(),
			Via:          ViaWildcard,
		}, true
	}

	return Resolution{}, false
}

// Names returns the sorted public names of all configured models.
func (r *Registry) Names() []string {
	t := r.tbl.Load()
	out := make([]string, 0, len(t.byName))
	for _, m := range t.byName {
		out = append(out, m.Name)
	}
	sort.Strings(out)
	return out
}

// fallback returns the configured fallback model for the name's family.
func (t *table) fallback(name string) string {
	switch {
	case strings.HasPrefix(name, "claude"):
		return t.fallbacks.Claude
	case strings.HasPrefix(name, "gpt"), strings.HasPrefix(name, "text"):
		return t.fallbacks.OpenAI
	case strings.HasPrefix(name, "gemini"):
		return t.fallbacks.Gemini
	default:
		return ""
	}
}
