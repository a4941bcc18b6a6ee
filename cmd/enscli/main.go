package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/eddyvy/enscli-ai-manager/internal/config"
	"github.com/eddyvy/enscli-ai-manager/internal/llm"
	"github.com/eddyvy/enscli-ai-manager/internal/llm/anthropic"
	"github.com/eddyvy/enscli-ai-manager/internal/llm/openai"
	"github.com/eddyvy/enscli-ai-manager/internal/observability"
	"github.com/eddyvy/enscli-ai-manager/internal/rag"
	"github.com/eddyvy/enscli-ai-manager/internal/retrieval"
	"github.com/eddyvy/enscli-ai-manager/internal/secrets"
	"github.com/eddyvy/enscli-ai-manager/internal/server"
	temporalmod "github.com/eddyvy/enscli-ai-manager/internal/temporal"
	"github.com/eddyvy/enscli-ai-manager/internal/vector/qdrant"
)

var version = "0.1.0"

func main() {
	// Local deployments keep credentials in .env; absence is fine.
	_ = godotenv.Load()

	var configPath string

	rootCmd := &cobra.Command{
		Use:   "enscli",
		Short: "Per-project RAG: ingest documents, query and chat over vector collections",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (optional, env-only works)")

	rootCmd.AddCommand(
		ingestCmd(&configPath),
		queryCmd(&configPath),
		chatCmd(&configPath),
		serveCmd(&configPath),
		providersCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads config and wires the service plus its collection store.
func setup(configPath string) (*config.Config, *rag.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, w := range cfg.Validate() {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	if err := resolveCredentials(cfg); err != nil {
		return nil, nil, nil, err
	}

	store, err := qdrant.New(cfg.Vector.Endpoint, cfg.Vector.APIKey)
	if err != nil {
		return nil, nil, nil, err
	}

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
	cleanup := func() { _ = store.Close() }
	return cfg, svc, cleanup, nil
}

// resolveCredentials fills API keys the config left blank from the secrets
// backend. Missing secrets are not fatal here; the components reject empty
// keys with their own errors.
func resolveCredentials(cfg *config.Config) error {
	mgr, err := secrets.NewManager(&secrets.Config{
		Provider: cfg.Secrets.Provider,
		File:     &secrets.FileConfig{Path: cfg.Secrets.FilePath},
		Vault: &secrets.VaultConfig{
			Address:    cfg.Secrets.VaultAddr,
			Token:      cfg.Secrets.VaultToken,
			MountPath:  cfg.Secrets.VaultMount,
			SecretPath: cfg.Secrets.VaultPath,
		},
	})
	if err != nil {
		return err
	}
	ctx := context.Background()
	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = mgr.GetOrDefault(ctx, secrets.KeyLLMAPIKey, "")
	}
	if cfg.Vector.APIKey == "" {
		cfg.Vector.APIKey = mgr.GetOrDefault(ctx, secrets.KeyVectorAPIKey, "")
	}
	return nil
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

func ingestCmd(configPath *string) *cobra.Command {
	var (
		project    string
		inputPath  string
		embedModel string
		bufferSize int
		threshold  float64
		dimension  int
		durable    bool
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk, embed and index a document into a project collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inputPath)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if embedModel == "" {
				embedModel = cfg.RAG.EmbedModel
			}
			if bufferSize == 0 {
				bufferSize = cfg.RAG.BufferSize
			}
			if threshold == 0 {
				threshold = cfg.RAG.BreakpointPercentileThreshold
			}
			if dimension == 0 {
				dimension = cfg.RAG.Dimension
			}

			if durable {
				return submitIngest(cmd.Context(), cfg, temporalmod.IngestInput{
					Project:                       project,
					Text:                          string(raw),
					EmbedModel:                    embedModel,
					BufferSize:                    bufferSize,
					BreakpointPercentileThreshold: threshold,
					Dimension:                     dimension,
				})
			}

			result, err := svc.Ingest(cmd.Context(), rag.IngestRequest{
				Project:                       project,
				Text:                          string(raw),
				EmbedModel:                    embedModel,
				BufferSize:                    bufferSize,
				BreakpointPercentileThreshold: threshold,
				Dimension:                     dimension,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Ingested %d chunks into project %q\n", result.Chunks, result.Project)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name (collection name)")
	cmd.Flags().StringVar(&inputPath, "input", "", "Input text file")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model")
	cmd.Flags().IntVar(&bufferSize, "buffer-size", 0, "Sentence window size for boundary detection")
	cmd.Flags().Float64Var(&threshold, "breakpoint-percentile", 0, "Split threshold percentile")
	cmd.Flags().IntVar(&dimension, "dimension", 0, "Embedding dimension")
	cmd.Flags().BoolVar(&durable, "durable", false, "Submit as a durable workflow instead of ingesting inline")
	_ = cmd.MarkFlagRequired("project")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// submitIngest hands the document to the ingestion workflow and waits for
// the result.
func submitIngest(ctx context.Context, cfg *config.Config, input temporalmod.IngestInput) error {
	c, err := temporalclient.Dial(temporalclient.Options{
		HostPort:  cfg.Temporal.Host,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("temporal client: %w", err)
	}
	defer c.Close()

	run, err := c.ExecuteWorkflow(ctx, temporalclient.StartWorkflowOptions{
		TaskQueue: cfg.Temporal.TaskQueue,
	}, temporalmod.IngestWorkflow, input)
	if err != nil {
		return fmt.Errorf("starting ingest workflow: %w", err)
	}

	var out temporalmod.IngestOutput
	if err := run.Get(ctx, &out); err != nil {
		return fmt.Errorf("ingest workflow: %w", err)
	}
	fmt.Printf("Ingested %d chunks into project %q (workflow %s)\n", out.Chunks, out.Project, run.GetID())
	return nil
}

func queryCmd(configPath *string) *cobra.Command {
	var (
		project    string
		topK       int
		embedModel string
		dimension  int
	)

	cmd := &cobra.Command{
		Use:   "query [query text]",
		Short: "Retrieve the most relevant passages for a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if topK == 0 {
				topK = cfg.RAG.TopK
			}
			if embedModel == "" {
				embedModel = cfg.RAG.EmbedModel
			}
			if dimension == 0 {
				dimension = cfg.RAG.Dimension
			}

			passages, err := svc.Query(cmd.Context(), rag.QueryRequest{
				Project:    project,
				Query:      strings.Join(args, " "),
				TopK:       topK,
				EmbedModel: embedModel,
				Dimension:  dimension,
			})
			if err != nil {
				return err
			}
			for i, p := range passages {
				fmt.Printf("--- %d ---\n%s\n", i+1, p)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of passages to return")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model")
	cmd.Flags().IntVar(&dimension, "dimension", 0, "Embedding dimension")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func chatCmd(configPath *string) *cobra.Command {
	var (
		project     string
		sessionID   string
		model       string
		temperature float64
		topK        int
		embedModel  string
		dimension   int
	)

	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Send one chat turn grounded in a project collection",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			if model == "" {
				model = cfg.RAG.ChatModel
			}
			if temperature == 0 {
				temperature = cfg.RAG.Temperature
			}
			if topK == 0 {
				topK = cfg.RAG.TopK
			}
			if embedModel == "" {
				embedModel = cfg.RAG.EmbedModel
			}
			if dimension == 0 {
				dimension = cfg.RAG.Dimension
			}

			reply, err := svc.Chat(cmd.Context(), rag.ChatRequest{
				Project:     project,
				Message:     strings.Join(args, " "),
				TopK:        topK,
				SessionID:   sessionID,
				Model:       model,
				Temperature: temperature,
				EmbedModel:  embedModel,
				Dimension:   dimension,
			})
			if err != nil {
				return err
			}
			fmt.Println(reply)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project name")
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (empty is a valid session)")
	cmd.Flags().StringVar(&model, "model", "", "Generation model")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "Sampling temperature")
	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of grounding passages")
	cmd.Flags().StringVar(&embedModel, "embed-model", "", "Embedding model")
	cmd.Flags().IntVar(&dimension, "dimension", 0, "Embedding dimension")
	_ = cmd.MarkFlagRequired("project")
	return cmd
}

func serveCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the ops surface: health endpoints and dependency checks",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, svc, cleanup, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			tp, err := observability.InitTracing(cmd.Context(), &observability.TracingConfig{
				ServiceName:    "enscli-ai-manager",
				ServiceVersion: version,
				Environment:    cfg.Tracing.Environment,
				OTLPEndpoint:   cfg.Tracing.OTLPEndpoint,
				SampleRate:     cfg.Tracing.SampleRate,
			})
			if err != nil {
				return err
			}

			health := server.NewHealthServer(version)
			health.RegisterCheck("vector-store", server.VectorStoreCheck(svc.Store()))

			shutdown := server.NewShutdownHandler(0, slog.Default())
			shutdown.RegisterHook("health-server", 10, func(ctx context.Context) error {
				health.Shutdown()
				return nil
			})
			shutdown.RegisterHook("tracing", 80, tp.Shutdown)
			shutdown.RegisterHook("vector-store", 90, func(ctx context.Context) error {
				return svc.Store().Close()
			})
			shutdown.Start()

			go func() {
				health.SetReady(true)
				if err := health.ListenAndServe(cfg.Server.Addr); err != nil {
					slog.Error("health server stopped", "error", err)
				}
			}()
			slog.Info("serving", "addr", cfg.Server.Addr)

			shutdown.Wait()
			return nil
		},
	}
	return cmd
}

func providersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List available model providers",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("Available model providers:")
			fmt.Println()
			for name, url := range llm.KnownProviders {
				fmt.Printf("  %-10s %s\n", name, url)
			}
			fmt.Println()
			fmt.Println("Configure via config file or environment:")
			fmt.Println("  ENSAI_LLM_PROVIDER=openai")
			fmt.Println("  ENSAI_LLM_API_KEY=sk-...")
			fmt.Println("  ENSAI_VECTOR_ENDPOINT=localhost:6334")
			fmt.Println("  ENSAI_VECTOR_API_KEY=...")
		},
	}
}
