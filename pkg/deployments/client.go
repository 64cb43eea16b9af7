package deployments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mercator-hq/saturn/pkg/config"
	"mercator-hq/saturn/pkg/token"
)

// TokenSource supplies access tokens for providers. Satisfied by
// *token.Manager.
type TokenSource interface {
	Token(ctx context.Context, provider string) (string, error)
}

var _ TokenSource = (*token.Manager)(nil)

// Client speaks the AI Core lifecycle and admin APIs.
type Client struct {
	http   *http.Client
	tokens TokenSource
}

// NewClient creates an AI Core API client. A nil httpClient gets a
// default with a 30s timeout.
func NewClient(tokens TokenSource, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{http: httpClient, tokens: tokens}
}

// ListDeployments returns the provider's RUNNING deployments.
func (c *Client) ListDeployments(ctx context.Context, p config.ProviderConfig) ([]Deployment, error) {
	url := fmt.Sprintf("%s/v2/lm/deployments?$top=10000&status=RUNNING", p.GenAIAPIURL)

	var list deploymentList
	if err := c.get(ctx, p, url, &list); err != nil {
		return nil, err
	}

	out := make([]Deployment, 0, len(list.Resources))
	for _, item := range list.Resources {
		model := item.model()
		if model.Name == "" || item.DeploymentURL == "" {
			// Deployments without a model name or inference URL
			// (e.g. batch scenarios) are not routable.
			continue
		}
		out = append(out, Deployment{
			ID:                item.ID,
			URL:               item.DeploymentURL,
			Model:             model.Name,
			ModelVersion:      model.Version,
			Provider:          p.Name,
			ResourceGroup:     p.ResourceGroup,
			ConfigurationName: item.ConfigurationName,
			CreatedAt:         item.CreatedAt,
		})
	}
	return out, nil
}

// ListResourceGroups returns the provider's resource groups.
func (c *Client) ListResourceGroups(ctx context.Context, p config.ProviderConfig) ([]ResourceGroup, error) {
	url := p.GenAIAPIURL + "/v2/admin/resourceGroups"

	var list resourceGroupList
	if err := c.get(ctx, p, url, &list); err != nil {
		return nil, err
	}

	out := make([]ResourceGroup, 0, len(list.Resources))
	for _, item := range list.Resources {
		rg := ResourceGroup{
			ID:        item.ResourceGroupID,
			Status:    item.Status,
			CreatedAt: item.CreatedAt,
		}
		if len(item.Labels) > 0 {
			rg.Labels = make(map[string]string, len(item.Labels))
			for _, l := range item.Labels {
				rg.Labels[l.Key] = l.Value
			}
		}
		out = append(out, rg)
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, p config.ProviderConfig, url string, out any) error {
	tok, err := c.tokens.Token(ctx, p.Name)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("AI-Resource-Group", p.ResourceGroup)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("provider %q: request failed: %w", p.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("provider %q: %s returned status %d: %s",
			p.Name, req.URL.Path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("provider %q: failed to decode response: %w", p.Name, err)
	}
	return nil
}
