package llm

import (
	"fmt"
	"time"
)

// ProviderConfig holds everything needed to construct a provider for one
// request. Model and EmbedModel are per-request in this system (callers may
// address any project with any embedding model), so the service builds a
// fresh config per call and lets the factory do the wiring.
type ProviderConfig struct {
	Provider   string // "openai", "anthropic", or an OpenAI-compatible preset
	APIKey     string
	Model      string
	EmbedModel string
	BaseURL    string // override for self-hosted / compatible endpoints

	// Retry configuration. The RAG core itself never retries; leave
	// MaxRetries at zero unless the deployment explicitly opts in.
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// ProviderFactory creates Provider instances from config.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

// NewFactory creates an empty factory; constructors are registered by the
// provider sub-packages' Register helpers at wiring time.
func NewFactory() *ProviderFactory {
	return &ProviderFactory{constructors: make(map[string]ProviderConstructor)}
}

// Register adds a provider constructor under the given name.
func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config, wrapped with retry logic only when
// the config opts in via MaxRetries.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown model provider %q (registered: %v)", cfg.Provider, f.names())
	}

	provider, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries > 0 {
		return NewRetryProvider(provider, &RetryConfig{
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			MaxDelay:   30 * time.Second,
			Timeout:    cfg.Timeout,
		}), nil
	}
	return provider, nil
}

func (f *ProviderFactory) names() []string {
	var out []string
	for k := range f.constructors {
		out = append(out, k)
	}
	return out
}

// KnownProviders documents the built-in presets. OpenAI-compatible APIs
// (Groq, vLLM, Ollama, Together, ...) use the "openai" provider with a
// custom base_url.
var KnownProviders = map[string]string{
	"anthropic": "https://api.anthropic.com/v1",
	"openai":    "https://api.openai.com/v1",
	"groq":      "https://api.groq.com/openai/v1",
	"ollama":    "http://localhost:11434/v1",
	"together":  "https://api.together.xyz/v1",
}
