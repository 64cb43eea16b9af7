// Mercator Saturn is a protocol-translating gateway for SAP AI Core.
//
// It exposes OpenAI, Anthropic, and Gemini compatible endpoints and routes
// requests to model deployments running on one or more AI Core service
// instances, handling OAuth token management, deployment discovery, model
// aliasing, and rate-limit failover between providers.
//
// Usage:
//
//	# Start the gateway with the default configuration
//	saturn run
//
//	# Start with a custom configuration file
//	saturn run --config /etc/saturn/config.yaml
//
//	# Show the running deployments of every configured provider
//	saturn deployments list
//
//	# Show the resource groups of every configured provider
//	saturn resource-groups list
package main

func main() {
	Execute()
}
