package secrets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestEnvProvider(t *testing.T) {
	t.Setenv("ENSAI_LLM_API_KEY", "prefixed-key")
	t.Setenv("VECTOR_API_KEY", "bare-key")

	p := NewEnvProvider("")
	ctx := context.Background()

	if got, err := p.Get(ctx, KeyLLMAPIKey); err != nil || got != "prefixed-key" {
		t.Errorf("Get(llm_api_key) = %q, %v", got, err)
	}
	if got, err := p.Get(ctx, KeyVectorAPIKey); err != nil || got != "bare-key" {
		t.Errorf("unprefixed fallback: Get = %q, %v", got, err)
	}
	if _, err := p.Get(ctx, "missing_key"); err == nil {
		t.Error("expected error for unset variable")
	}
}

func TestFileProvider(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"llm_api_key": "from-file"}`), 0o600); err != nil {
		t.Fatal(err)
	}

	p, err := NewFileProvider(&FileConfig{Path: path})
	if err != nil {
		t.Fatalf("NewFileProvider: %v", err)
	}

	if got, err := p.Get(context.Background(), KeyLLMAPIKey); err != nil || got != "from-file" {
		t.Errorf("Get = %q, %v", got, err)
	}
	if _, err := p.Get(context.Background(), "absent"); err == nil {
		t.Error("expected error for absent key")
	}
}

func TestFileProviderMissingFile(t *testing.T) {
	if _, err := NewFileProvider(&FileConfig{Path: "/nonexistent/secrets.json"}); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := NewFileProvider(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestManagerFallsBackToEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	if err := os.WriteFile(path, []byte(`{"llm_api_key": "file-key"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ENSAI_VECTOR_API_KEY", "env-key")

	m, err := NewManager(&Config{Provider: "file", File: &FileConfig{Path: path}})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	if got, err := m.Get(ctx, KeyLLMAPIKey); err != nil || got != "file-key" {
		t.Errorf("primary lookup = %q, %v", got, err)
	}
	if got, err := m.Get(ctx, KeyVectorAPIKey); err != nil || got != "env-key" {
		t.Errorf("env fallback = %q, %v", got, err)
	}
	if got := m.GetOrDefault(ctx, "nothing_here", "fallback"); got != "fallback" {
		t.Errorf("GetOrDefault = %q", got)
	}
}

func TestManagerCachesResolvedValues(t *testing.T) {
	t.Setenv("ENSAI_LLM_API_KEY", "first")

	m, err := NewManager(nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	ctx := context.Background()

	if got, _ := m.Get(ctx, KeyLLMAPIKey); got != "first" {
		t.Fatalf("initial Get = %q", got)
	}

	// Later environment changes do not alter an already-resolved value.
	t.Setenv("ENSAI_LLM_API_KEY", "second")
	if got, _ := m.Get(ctx, KeyLLMAPIKey); got != "first" {
		t.Errorf("cached Get = %q, want first", got)
	}
}

func TestManagerUnknownProvider(t *testing.T) {
	if _, err := NewManager(&Config{Provider: "s3"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
