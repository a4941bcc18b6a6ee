// Package secrets resolves deployment credentials from pluggable backends.
// The manager is read-only: credentials are provisioned out of band and
// looked up here when the config file leaves them blank.
package secrets

import (
	"context"
	"os"
	"strings"
	"sync"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
)

// Well-known credential keys.
const (
	KeyLLMAPIKey     = "llm_api_key"
	KeyVectorAPIKey  = "vector_api_key"
	KeyTemporalToken = "temporal_token"
)

// Provider is a single secret backend.
type Provider interface {
	Get(ctx context.Context, key string) (string, error)
	Name() string
}

// Config selects and configures the backend.
type Config struct {
	// Provider is one of "env", "vault", "file". Empty means env.
	Provider string
	Vault    *VaultConfig
	File     *FileConfig
	// EnvPrefix for environment lookups (default "ENSAI_").
	EnvPrefix string
}

// Manager resolves secrets through a primary backend with the environment
// as fallback. Resolved values are cached for the process lifetime.
type Manager struct {
	primary  Provider
	fallback Provider

	mu    sync.RWMutex
	cache map[string]string
}

// NewManager builds a manager for the configured backend.
func NewManager(cfg *Config) (*Manager, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	var primary Provider
	var err error
	switch cfg.Provider {
	case "vault":
		primary, err = NewVaultProvider(cfg.Vault)
		if err != nil {
			return nil, err
		}
	case "file":
		primary, err = NewFileProvider(cfg.File)
		if err != nil {
			return nil, err
		}
	case "env", "":
		primary = NewEnvProvider(cfg.EnvPrefix)
	default:
		return nil, errortypes.Configuration("unknown secrets provider %q", cfg.Provider)
	}

	return &Manager{
		primary:  primary,
		fallback: NewEnvProvider(cfg.EnvPrefix),
		cache:    make(map[string]string),
	}, nil
}

// Get resolves a secret, trying the primary backend then the environment.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	if val, ok := m.cache[key]; ok {
		m.mu.RUnlock()
		return val, nil
	}
	m.mu.RUnlock()

	for _, p := range []Provider{m.primary, m.fallback} {
		if p == nil {
			continue
		}
		val, err := p.Get(ctx, key)
		if err == nil && val != "" {
			m.mu.Lock()
			m.cache[key] = val
			m.mu.Unlock()
			return val, nil
		}
	}
	return "", errortypes.Configuration("secret not found: %s", key)
}

// GetOrDefault resolves a secret or returns the given value when absent.
func (m *Manager) GetOrDefault(ctx context.Context, key, def string) string {
	val, err := m.Get(ctx, key)
	if err != nil || val == "" {
		return def
	}
	return val
}

// EnvProvider reads secrets from environment variables, with and without
// the configured prefix.
type EnvProvider struct {
	prefix string
}

func NewEnvProvider(prefix string) *EnvProvider {
	if prefix == "" {
		prefix = "ENSAI_"
	}
	return &EnvProvider{prefix: prefix}
}

func (p *EnvProvider) Name() string { return "env" }

func (p *EnvProvider) Get(ctx context.Context, key string) (string, error) {
	upper := strings.ToUpper(key)
	if val := os.Getenv(p.prefix + upper); val != "" {
		return val, nil
	}
	if val := os.Getenv(upper); val != "" {
		return val, nil
	}
	return "", errortypes.Configuration("env var not set: %s%s", p.prefix, upper)
}
