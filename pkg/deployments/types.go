package deployments

import "time"

// Deployment is one running model deployment on an AI Core provider.
type Deployment struct {
	// ID is the AI Core deployment ID.
	ID string

	// URL is the deployment's inference base URL.
	URL string

	// Model is the deployment's model name as reported by AI Core
	// (e.g. "gpt-4o", "anthropic--claude-4-sonnet").
	Model string

	// ModelVersion is the deployment's model version, when reported.
	ModelVersion string

	// Provider is the name of the provider hosting this deployment.
	Provider string

	// ResourceGroup is the resource group the deployment belongs to.
	ResourceGroup string

	// ConfigurationName is the human-readable configuration name.
	ConfigurationName string

	// CreatedAt is the deployment creation time.
	CreatedAt time.Time
}

// ResourceGroup is one AI Core resource group.
type ResourceGroup struct {
	ID        string
	Status    string
	CreatedAt time.Time
	Labels    map[string]string
}

// Wire types for the AI Core lifecycle and admin APIs.

type deploymentList struct {
	Count     int              `json:"count"`
	Resources []deploymentItem `json:"resources"`
}

type deploymentItem struct {
	ID                string            `json:"id"`
	DeploymentURL     string            `json:"deploymentUrl"`
	ConfigurationID   string            `json:"configurationId"`
	ConfigurationName string            `json:"configurationName"`
	ScenarioID        string            `json:"scenarioId"`
	Status            string            `json:"status"`
	CreatedAt         time.Time         `json:"createdAt"`
	Details           deploymentDetails `json:"details"`
}

type deploymentDetails struct {
	Resources struct {
		BackendDetails struct {
			Model modelDetails `json:"model"`
		} `json:"backend_details"`
		BackendDetailsAlt struct {
			Model modelDetails `json:"model"`
		} `json:"backendDetails"`
	} `json:"resources"`
}

type modelDetails struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// model returns the model details, accepting both field spellings AI Core
// uses across scenario versions.
func (d *deploymentItem) model() modelDetails {
	if d.Details.Resources.BackendDetails.Model.Name != "" {
		return d.Details.Resources.BackendDetails.Model
	}
	return d.Details.Resources.BackendDetailsAlt.Model
}

type resourceGroupList struct {
	Count     int                 `json:"count"`
	Resources []resourceGroupItem `json:"resources"`
}

type resourceGroupItem struct {
	ResourceGroupID string    `json:"resourceGroupId"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"createdAt"`
	Labels          []struct {
		Key   string `json:"key"`
		Value string `json:"value"`
	} `json:"labels"`
}
