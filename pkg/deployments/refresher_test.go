package deployments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"mercator-hq/saturn/pkg/config"
)

// A provider that stalls must not delay the others within a refresh
// cycle. The first provider's handler blocks until the second provider
// has been queried; serial refreshes would hit the timeout instead.
func TestRefresherRefreshesProvidersConcurrently(t *testing.T) {
	otherQueried := make(chan struct{})

	stalled := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-otherQueried:
		case <-time.After(5 * time.Second):
			t.Error("second provider was never queried while the first was in flight")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(deploymentsJSON))
	}))
	t.Cleanup(stalled.Close)

	var once sync.Once
	prompt := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		once.Do(func() { close(otherQueried) })
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(deploymentsJSON))
	}))
	t.Cleanup(prompt.Close)

	providers := []config.ProviderConfig{
		{Name: "stalled", GenAIAPIURL: stalled.URL, ResourceGroup: "default"},
		{Name: "prompt", GenAIAPIURL: prompt.URL, ResourceGroup: "default"},
	}
	dir := NewDirectory(NewClient(staticTokens{}, nil), providers, nil)
	ref := NewRefresher(dir, time.Minute, nil)

	if got := ref.refreshAll(context.Background()); got != 2 {
		t.Fatalf("expected both providers to refresh, got %d", got)
	}
	if _, ok := dir.Lookup("stalled", "gpt-4o"); !ok {
		t.Error("stalled provider snapshot missing after refresh")
	}
	if _, ok := dir.Lookup("prompt", "gpt-4o"); !ok {
		t.Error("prompt provider snapshot missing after refresh")
	}
}
