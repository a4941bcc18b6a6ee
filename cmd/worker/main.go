package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/eddyvy/enscli-ai-manager/internal/config"
	"github.com/eddyvy/enscli-ai-manager/internal/llm"
	"github.com/eddyvy/enscli-ai-manager/internal/llm/anthropic"
	"github.com/eddyvy/enscli-ai-manager/internal/llm/openai"
	"github.com/eddyvy/enscli-ai-manager/internal/rag"
	"github.com/eddyvy/enscli-ai-manager/internal/retrieval"
	"github.com/eddyvy/enscli-ai-manager/internal/secrets"
	"github.com/eddyvy/enscli-ai-manager/internal/temporal"
	"github.com/eddyvy/enscli-ai-manager/internal/vector/qdrant"
)

// The worker hosts the durable ingestion workflow. It shares the service
// wiring with the CLI but runs until signalled.
func main() {
	_ = godotenv.Load()

	configPath := ""
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	for _, w := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if mgr, merr := secrets.NewManager(&secrets.Config{
		Provider: cfg.Secrets.Provider,
		File:     &secrets.FileConfig{Path: cfg.Secrets.FilePath},
		Vault: &secrets.VaultConfig{
			Address:    cfg.Secrets.VaultAddr,
			Token:      cfg.Secrets.VaultToken,
			MountPath:  cfg.Secrets.VaultMount,
			SecretPath: cfg.Secrets.VaultPath,
		},
	}); merr != nil {
		logger.Error("secrets", "error", merr)
		os.Exit(1)
	} else {
		ctx := context.Background()
		if cfg.LLM.APIKey == "" {
			cfg.LLM.APIKey = mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
		}
		if cfg.Vector.APIKey == "" {
			cfg.Vector.APIKey = mgr.GetOrDefault(ctx, secrets.KeyVectorAPIKey, "")
		}
	}

	store, err := qdrant.New(cfg.Vector.Endpoint, cfg.Vector.APIKey)
	if err != nil {
		logger.Error("vector store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	factory := llm.NewFactory()
	openai.Register(factory)
	anthropic.Register(factory)

	svc := rag.New(
		rag.Config{
			Provider:      cfg.LLM.Provider,
			EmbedProvider: cfg.LLM.EmbedProvider,
			APIKey:        cfg.LLM.APIKey,
			BaseURL:       cfg.LLM.BaseURL,
		},
		factory,
		store,
		cfg.RAG.SessionTokenBudget,
		retrieval.Options{Lambda: cfg.RAG.MMRLambda, PrefetchFactor: cfg.RAG.PrefetchFactor},
		logger,
	)
	temporal.SetDependencies(&temporal.Dependencies{Service: svc})

	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		logger.Error("temporal client", "error", err)
		os.Exit(1)
	}
	defer c.Close()

	w, err := temporal.StartWorker(c, cfg.Temporal.TaskQueue)
	if err != nil {
		logger.Error("worker start", "error", err)
		os.Exit(1)
	}
	logger.Info("worker started", "task_queue", cfg.Temporal.TaskQueue, "namespace", cfg.Temporal.Namespace)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	<-sig

	logger.Info("worker shutting down")
	w.Stop()
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
