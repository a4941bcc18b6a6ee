package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
)

// VaultConfig configures the HashiCorp Vault backend (KV v2).
type VaultConfig struct {
	Address string
	Token   string
	// MountPath is the secrets engine mount (default "secret").
	MountPath string
	// SecretPath is the path under the mount (default "enscli").
	SecretPath string
	Timeout    time.Duration
}

// VaultProvider reads credentials from a single KV v2 secret.
type VaultProvider struct {
	cfg    *VaultConfig
	client *http.Client
}

func NewVaultProvider(cfg *VaultConfig) (*VaultProvider, error) {
	if cfg == nil || cfg.Address == "" {
		return nil, errortypes.Configuration("vault address required")
	}
	if cfg.Token == "" {
		return nil, errortypes.Configuration("vault token required")
	}
	if cfg.MountPath == "" {
		cfg.MountPath = "secret"
	}
	if cfg.SecretPath == "" {
		cfg.SecretPath = "enscli"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &VaultProvider{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (p *VaultProvider) Name() string { return "vault" }

func (p *VaultProvider) Get(ctx context.Context, key string) (string, error) {
	data, err := p.read(ctx)
	if err != nil {
		return "", err
	}
	val, ok := data[key]
	if !ok {
		return "", errortypes.Configuration("key not found in vault: %s", key)
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	return fmt.Sprintf("%v", val), nil
}

func (p *VaultProvider) read(ctx context.Context) (map[string]any, error) {
	url := fmt.Sprintf("%s/v1/%s/data/%s",
		strings.TrimSuffix(p.cfg.Address, "/"), p.cfg.MountPath, p.cfg.SecretPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Vault-Token", p.cfg.Token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, errortypes.Connection(err, "vault request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, errortypes.Configuration("vault secret path not found: %s", p.cfg.SecretPath)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, errortypes.Configuration("vault error %d: %s", resp.StatusCode, body)
	}

	var result struct {
		Data struct {
			Data map[string]any `json:"data"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errortypes.Wrap(errortypes.KindConnection, err, "decoding vault response")
	}
	return result.Data.Data, nil
}
