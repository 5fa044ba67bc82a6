package rerank

import "context"

// Generator is the generative model endpoint.
type Generator interface {
	Configured() bool
	Health(ctx context.Context) error
	EnsureReady(ctx context.Context) error
	Generate(ctx context.Context, prompt string) (string, error)
	Models(ctx context.Context) ([]string, error)
	BaseURL() string
	Model() string
}
