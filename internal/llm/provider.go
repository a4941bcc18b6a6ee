package llm

import "context"

// Provider is the interface all remote model backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns one embedding vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Name returns the provider identifier (e.g. "openai", "anthropic").
	Name() string
}

// RequestOptions tunes a single completion call.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	StopSeqs    []string
}

// WithTemperature builds options carrying only a sampling temperature.
func WithTemperature(t float64) *RequestOptions {
	return &RequestOptions{Temperature: &t}
}
