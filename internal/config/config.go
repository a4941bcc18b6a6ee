// Package config loads deployment configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Vector   VectorConfig   `mapstructure:"vector"`
	LLM      LLMConfig      `mapstructure:"llm"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Secrets  SecretsConfig  `mapstructure:"secrets"`
}

// VectorConfig addresses the remote vector collection store. Both values
// are required; the store constructor rejects their absence before any dial.
type VectorConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
}

type LLMConfig struct {
	Provider      string `mapstructure:"provider"`
	EmbedProvider string `mapstructure:"embed_provider"`
	APIKey        string `mapstructure:"api_key"`
	BaseURL       string `mapstructure:"base_url"`
}

// RAGConfig carries the tunables the distilled defaults would otherwise
// hide as constants.
type RAGConfig struct {
	EmbedModel                    string  `mapstructure:"embed_model"`
	ChatModel                     string  `mapstructure:"chat_model"`
	Dimension                     int     `mapstructure:"dimension"`
	TopK                          int     `mapstructure:"top_k"`
	Temperature                   float64 `mapstructure:"temperature"`
	BufferSize                    int     `mapstructure:"buffer_size"`
	BreakpointPercentileThreshold float64 `mapstructure:"breakpoint_percentile_threshold"`
	MMRLambda                     float64 `mapstructure:"mmr_lambda"`
	PrefetchFactor                int     `mapstructure:"prefetch_factor"`
	SessionTokenBudget            int     `mapstructure:"session_token_budget"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Environment  string  `mapstructure:"environment"`
	SampleRate   float64 `mapstructure:"sample_rate"`
}

// SecretsConfig selects the credential backend used to fill API keys the
// config file leaves blank.
type SecretsConfig struct {
	Provider   string `mapstructure:"provider"`
	FilePath   string `mapstructure:"file_path"`
	VaultAddr  string `mapstructure:"vault_addr"`
	VaultToken string `mapstructure:"vault_token"`
	VaultMount string `mapstructure:"vault_mount"`
	VaultPath  string `mapstructure:"vault_path"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Vector.Endpoint == "" || c.Vector.APIKey == "" {
		warnings = append(warnings, "vector store endpoint/api_key missing, ingestion and retrieval will fail")
	}
	if c.LLM.APIKey == "" {
		warnings = append(warnings, fmt.Sprintf("LLM provider '%s' is configured but api_key is empty", c.LLM.Provider))
	}
	if c.RAG.Temperature < 0 || c.RAG.Temperature > 2.0 {
		warnings = append(warnings, fmt.Sprintf("temperature %.2f is outside recommended range [0.0, 2.0]", c.RAG.Temperature))
	}
	if c.RAG.MMRLambda < 0 || c.RAG.MMRLambda > 1 {
		warnings = append(warnings, fmt.Sprintf("mmr_lambda %.2f is outside [0.0, 1.0]", c.RAG.MMRLambda))
	}
	if c.RAG.Dimension < 0 {
		warnings = append(warnings, fmt.Sprintf("dimension %d is negative", c.RAG.Dimension))
	}
	return warnings
}

// Load reads configuration from file and environment. A missing file is not
// an error when env supplies everything; env keys use the ENSAI_ prefix
// with underscores for section separators (ENSAI_VECTOR_ENDPOINT, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ENSAI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a meaningful default still need registering so
	// AutomaticEnv surfaces them during Unmarshal.
	v.SetDefault("vector.endpoint", "")
	v.SetDefault("vector.api_key", "")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("tracing.otlp_endpoint", "")
	v.SetDefault("secrets.file_path", "")
	v.SetDefault("secrets.vault_addr", "")
	v.SetDefault("secrets.vault_token", "")
	v.SetDefault("secrets.vault_mount", "")
	v.SetDefault("secrets.vault_path", "")
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.embed_provider", "openai")
	v.SetDefault("rag.embed_model", "text-embedding-ada-002")
	v.SetDefault("rag.chat_model", "gpt-4o-mini")
	v.SetDefault("rag.dimension", 1536)
	v.SetDefault("rag.top_k", 3)
	v.SetDefault("rag.temperature", 0.1)
	v.SetDefault("rag.buffer_size", 3)
	v.SetDefault("rag.breakpoint_percentile_threshold", 85)
	v.SetDefault("rag.mmr_lambda", 0.5)
	v.SetDefault("rag.prefetch_factor", 4)
	v.SetDefault("rag.session_token_budget", 4000)
	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "enscli-ingest")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("tracing.sample_rate", 1.0)
	v.SetDefault("tracing.environment", "development")
	v.SetDefault("secrets.provider", "env")
}
