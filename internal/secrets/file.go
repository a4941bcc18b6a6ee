package secrets

import (
	"context"
	"encoding/json"
	"os"
	"sync"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
)

// FileConfig configures the JSON-file backend. Meant for development
// setups only.
type FileConfig struct {
	Path string
}

// FileProvider serves secrets from a flat JSON object on disk.
type FileProvider struct {
	path string

	mu   sync.RWMutex
	data map[string]string
}

func NewFileProvider(cfg *FileConfig) (*FileProvider, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errortypes.Configuration("secrets file path required")
	}
	p := &FileProvider{path: cfg.Path, data: make(map[string]string)}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *FileProvider) Name() string { return "file" }

func (p *FileProvider) Get(ctx context.Context, key string) (string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	val, ok := p.data[key]
	if !ok {
		return "", errortypes.Configuration("secret not found in %s: %s", p.path, key)
	}
	return val, nil
}

// Reload re-reads the secrets file.
func (p *FileProvider) Reload() error {
	raw, err := os.ReadFile(p.path)
	if err != nil {
		return errortypes.Wrap(errortypes.KindConfiguration, err, "reading secrets file")
	}
	data := make(map[string]string)
	if err := json.Unmarshal(raw, &data); err != nil {
		return errortypes.Wrap(errortypes.KindConfiguration, err, "parsing secrets file")
	}
	p.mu.Lock()
	p.data = data
	p.mu.Unlock()
	return nil
}
