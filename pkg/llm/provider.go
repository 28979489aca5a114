package llm

import (
	"context"
)

// Provider defines the interface for interacting with LLM services.
// The name argument selects a profile (intent), letting configuration
// route different tasks to different models.
type Provider interface {
	// GenerateJSON sends a prompt and unmarshals the response into the target struct.
	GenerateJSON(ctx context.Context, name, prompt string, target any) error

	// HealthCheck verifies that the provider is configured and reachable.
	HealthCheck(ctx context.Context) error

	// HasProfile checks if the provider has a specific profile configured.
	HasProfile(name string) bool
}
