package deployments

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"mercator-hq/saturn/pkg/config"
)

type staticTokens struct{}

func (staticTokens) Token(ctx context.Context, provider string) (string, error) {
	return "test-token", nil
}

const deploymentsJSON = `{
  "count": 3,
  "resources": [
    {
      "id": "d1",
      "deploymentUrl": "https://api.example.com/v2/inference/deployments/d1",
      "configurationName": "gpt-4o-config",
      "status": "RUNNING",
      "createdAt": "2026-01-10T09:00:00Z",
      "details": {"resources": {"backend_details": {"model": {"name": "gpt-4o", "version": "latest"}}}}
    },
    {
      "id": "d2",
      "deploymentUrl": "https://api.example.com/v2/inference/deployments/d2",
      "configurationName": "claude-config",
      "status": "RUNNING",
      "createdAt": "2026-02-01T09:00:00Z",
      "details": {"resources": {"backendDetails": {"model": {"name": "anthropic--claude-4-sonnet", "version": "1"}}}}
    },
    {
      "id": "d3",
      "deploymentUrl": "",
      "status": "RUNNING",
      "createdAt": "2026-02-01T09:00:00Z",
      "details": {"resources": {"backend_details": {"model": {"name": "orphan"}}}}
    }
  ]
}`

func testDirectory(t *testing.T, handler http.HandlerFunc) (*Directory, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	prov := config.ProviderConfig{
		Name:          "main",
		GenAIAPIURL:   srv.URL,
		ResourceGroup: "default",
	}
	client := NewClient(staticTokens{}, srv.Client())
	return NewDirectory(client, []config.ProviderConfig{prov}, nil), srv
}

func TestDirectoryRefreshAndLookup(t *testing.T) {
	var sawHeaders atomic.Bool
	dir, _ := testDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/lm/deployments" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") == "Bearer test-token" &&
			r.Header.Get("AI-Resource-Group") == "default" &&
			r.URL.Query().Get("status") == "RUNNING" {
			sawHeaders.Store(true)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(deploymentsJSON))
	})

	if err := dir.Refresh(context.Background(), "main"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if !sawHeaders.Load() {
		t.Error("expected Authorization, AI-Resource-Group headers and RUNNING filter")
	}

	dep, ok := dir.Lookup("main", "gpt-4o")
	if !ok {
		t.Fatal("expected gpt-4o deployment")
	}
	if dep.ID != "d1" {
		t.Errorf("expected deployment d1, got %q", dep.ID)
	}

	// Lookup is case-insensitive and the alternate backendDetails
	// spelling is accepted.
	if _, ok := dir.Lookup("main", "Anthropic--Claude-4-Sonnet"); !ok {
		t.Error("expected case-insensitive lookup of claude deployment")
	}

	// Deployments without an inference URL are not routable.
	if _, ok := dir.Lookup("main", "orphan"); ok {
		t.Error("deployment without URL should be excluded")
	}

	models := dir.Models()
	if len(models) != 2 {
		t.Errorf("expected 2 models, got %v", models)
	}
}

func TestDirectoryKeepsStaleSnapshotOnFailure(t *testing.T) {
	var fail atomic.Bool
	dir, _ := testDirectory(t, func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			http.Error(w, "upstream down", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(deploymentsJSON))
	})

	if err := dir.Refresh(context.Background(), "main"); err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	fail.Store(true)
	if err := dir.Refresh(context.Background(), "main"); err == nil {
		t.Fatal("expected refresh error")
	}

	// The previous snapshot keeps serving.
	if _, ok := dir.Lookup("main", "gpt-4o"); !ok {
		t.Error("stale snapshot should remain after failed refresh")
	}
}

func TestListResourceGroups(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/admin/resourceGroups" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
  "count": 1,
  "resources": [
    {"resourceGroupId": "default", "status": "PROVISIONED", "createdAt": "2025-11-01T00:00:00Z",
     "labels": [{"key": "team", "value": "platform"}]}
  ]
}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(staticTokens{}, srv.Client())
	groups, err := client.ListResourceGroups(context.Background(), config.ProviderConfig{
		Name:          "main",
		GenAIAPIURL:   srv.URL,
		ResourceGroup: "default",
	})
	if err != nil {
		t.Fatalf("ListResourceGroups failed: %v", err)
	}
	if len(groups) != 1 || groups[0].ID != "default" {
		t.Fatalf("unexpected groups: %+v", groups)
	}
	if groups[0].Labels["team"] != "platform" {
		t.Errorf("expected label team=platform, got %v", groups[0].Labels)
	}
}
