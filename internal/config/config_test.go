package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LLM.Provider != "openai" {
		t.Errorf("provider = %q", cfg.LLM.Provider)
	}
	if cfg.RAG.EmbedModel != "text-embedding-ada-002" {
		t.Errorf("embed model = %q", cfg.RAG.EmbedModel)
	}
	if cfg.RAG.Dimension != 1536 {
		t.Errorf("dimension = %d", cfg.RAG.Dimension)
	}
	if cfg.RAG.ChatModel != "gpt-4o-mini" {
		t.Errorf("chat model = %q", cfg.RAG.ChatModel)
	}
	if cfg.RAG.TopK != 3 {
		t.Errorf("top_k = %d", cfg.RAG.TopK)
	}
	if cfg.RAG.Temperature != 0.1 {
		t.Errorf("temperature = %v", cfg.RAG.Temperature)
	}
	if cfg.RAG.BufferSize != 3 {
		t.Errorf("buffer_size = %d", cfg.RAG.BufferSize)
	}
	if cfg.RAG.BreakpointPercentileThreshold != 85 {
		t.Errorf("breakpoint threshold = %v", cfg.RAG.BreakpointPercentileThreshold)
	}
	if cfg.RAG.SessionTokenBudget != 4000 {
		t.Errorf("session budget = %d", cfg.RAG.SessionTokenBudget)
	}
	if cfg.Temporal.TaskQueue != "enscli-ingest" {
		t.Errorf("task queue = %q", cfg.Temporal.TaskQueue)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
vector:
  endpoint: qdrant.internal:6334
  api_key: file-key
rag:
  top_k: 7
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vector.Endpoint != "qdrant.internal:6334" {
		t.Errorf("endpoint = %q", cfg.Vector.Endpoint)
	}
	if cfg.RAG.TopK != 7 {
		t.Errorf("top_k = %d, file should override the default", cfg.RAG.TopK)
	}
	// Unset keys keep their defaults.
	if cfg.RAG.Dimension != 1536 {
		t.Errorf("dimension = %d", cfg.RAG.Dimension)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("ENSAI_VECTOR_ENDPOINT", "env.internal:6334")
	t.Setenv("ENSAI_RAG_TOP_K", "9")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Vector.Endpoint != "env.internal:6334" {
		t.Errorf("endpoint = %q", cfg.Vector.Endpoint)
	}
	if cfg.RAG.TopK != 9 {
		t.Errorf("top_k = %d", cfg.RAG.TopK)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml"); err == nil {
		t.Error("an explicitly named missing file should be an error")
	}
}

func TestValidateWarnings(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Empty endpoint and api key warn but never fail.
	warnings := cfg.Validate()
	if len(warnings) == 0 {
		t.Error("expected warnings for missing credentials")
	}

	cfg.Vector.Endpoint = "localhost:6334"
	cfg.Vector.APIKey = "k"
	cfg.LLM.APIKey = "k"
	if w := cfg.Validate(); len(w) != 0 {
		t.Errorf("unexpected warnings: %v", w)
	}

	cfg.RAG.Temperature = 3.5
	cfg.RAG.MMRLambda = 1.5
	if w := cfg.Validate(); len(w) != 2 {
		t.Errorf("warnings = %v, want temperature and lambda", w)
	}
}
