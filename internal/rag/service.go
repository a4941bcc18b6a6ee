// Package rag wires chunking, indexing, retrieval and session memory into
// the three operations the transport layer consumes: Ingest, Query, Chat.
package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/eddyvy/enscli-ai-manager/internal/chunk"
	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/index"
	"github.com/eddyvy/enscli-ai-manager/internal/llm"
	"github.com/eddyvy/enscli-ai-manager/internal/retrieval"
	"github.com/eddyvy/enscli-ai-manager/internal/session"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

// Defaults mirror the service's documented request defaults.
const (
	DefaultEmbedModel  = "text-embedding-ada-002"
	DefaultChatModel   = "gpt-4o-mini"
	DefaultDimension   = 1536
	DefaultTopK        = 3
	DefaultTemperature = 0.1
)

// chunkNamespace seeds deterministic chunk point IDs so re-ingesting the
// same document overwrites its points instead of duplicating them.
var chunkNamespace = uuid.MustParse("8b540b8a-9e8f-4b22-9b52-1f4d3a6a8f01")

// Config holds the per-deployment provider settings the service uses to
// build model clients per request.
type Config struct {
	Provider      string // generation backend, e.g. "openai", "anthropic"
	EmbedProvider string // embedding backend; must support embeddings
	APIKey        string
	BaseURL       string
}

func (c Config) withDefaults() Config {
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.EmbedProvider == "" {
		c.EmbedProvider = "openai"
	}
	return c
}

// Service is the RAG core: one instance per process, holding the shared
// registries and the collection store.
type Service struct {
	cfg      Config
	factory  *llm.ProviderFactory
	store    vector.Store
	registry *index.Registry
	sessions *session.Store
	engine   *retrieval.Engine
	logger   *slog.Logger
	tracer   trace.Tracer
}

// New creates the service. The registries it owns live for the process
// lifetime; there is no teardown beyond closing the store.
func New(cfg Config, factory *llm.ProviderFactory, store vector.Store, sessionBudget int, ropts retrieval.Options, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:      cfg.withDefaults(),
		factory:  factory,
		store:    store,
		registry: index.NewRegistry(store),
		sessions: session.NewStore(sessionBudget),
		engine:   retrieval.NewEngine(store, ropts),
		logger:   logger,
		tracer:   otel.Tracer("github.com/eddyvy/enscli-ai-manager"),
	}
}

// IngestRequest carries one document to ingest into a project.
type IngestRequest struct {
	Project                       string
	Text                          string
	EmbedModel                    string
	BufferSize                    int
	BreakpointPercentileThreshold float64
	Dimension                     int
}

// IngestResult reports what one ingestion stored.
type IngestResult struct {
	Project string
	Chunks  int
}

// QueryRequest asks for the top-k grounding passages for a query.
type QueryRequest struct {
	Project    string
	Query      string
	TopK       int
	EmbedModel string
	Dimension  int
}

// ChatRequest is one conversational turn against a project.
type ChatRequest struct {
	Project     string
	Message     string
	TopK        int
	SessionID   string // empty is a valid, stable session identity
	Model       string
	Temperature float64
	EmbedModel  string
	Dimension   int
}

// Ingest chunks the raw text, embeds it, upserts the chunks into the
// project's collection and registers a fresh handle. Empty text stores zero
// chunks but still materializes the collection and handle.
func (s *Service) Ingest(ctx context.Context, req IngestRequest) (*IngestResult, error) {
	ctx, span := s.tracer.Start(ctx, "rag.Ingest",
		trace.WithAttributes(attribute.String("project", req.Project)))
	defer span.End()

	chunks, err := s.ChunkDocument(ctx, req)
	if err != nil {
		return nil, spanErr(span, err)
	}
	result, err := s.StoreChunks(ctx, req, chunks)
	if err != nil {
		return nil, spanErr(span, err)
	}
	return result, nil
}

// ChunkDocument is the embedding phase of ingestion: split the text at
// topic boundaries and attach chunk embeddings. It touches only the
// embedding service, never the collection store, so the durable ingestion
// workflow can retry it independently.
func (s *Service) ChunkDocument(ctx context.Context, req IngestRequest) ([]chunk.Chunk, error) {
	applyIngestDefaults(&req)
	if err := validateProject(req.Project, req.Dimension); err != nil {
		return nil, err
	}

	embedder, err := s.embedProvider(req.EmbedModel)
	if err != nil {
		return nil, err
	}

	splitter := chunk.NewSplitter(embedder, req.BufferSize, req.BreakpointPercentileThreshold)
	docID := uuid.NewSHA1(chunkNamespace, []byte(req.Text)).String()
	chunks, err := splitter.Split(ctx, docID, req.Text)
	if err != nil {
		return nil, err
	}

	// The collection's dimension is fixed at creation; a chunk embedded at
	// any other width would corrupt retrieval silently.
	for _, c := range chunks {
		if len(c.Embedding) != req.Dimension {
			return nil, errortypes.InvalidArgument(
				"chunk %d embedded with dimension %d, project %q expects %d",
				c.Ordinal, len(c.Embedding), req.Project, req.Dimension)
		}
	}
	return chunks, nil
}

// StoreChunks is the persistence phase of ingestion: materialize the
// collection, upsert the chunks and publish a fresh handle.
func (s *Service) StoreChunks(ctx context.Context, req IngestRequest, chunks []chunk.Chunk) (*IngestResult, error) {
	applyIngestDefaults(&req)
	if err := validateProject(req.Project, req.Dimension); err != nil {
		return nil, err
	}

	if err := s.store.EnsureCollection(ctx, req.Project, req.Dimension); err != nil {
		return nil, err
	}

	if len(chunks) > 0 {
		docs := make([]vector.Document, len(chunks))
		for i, c := range chunks {
			docs[i] = vector.Document{
				ID:      uuid.NewSHA1(chunkNamespace, []byte(req.Project+"\x00"+c.Document+"\x00"+strconv.Itoa(c.Ordinal))).String(),
				Content: c.Text,
				Vector:  c.Embedding,
				Metadata: map[string]string{
					"document": c.Document,
					"ordinal":  strconv.Itoa(c.Ordinal),
				},
			}
		}
		if err := s.store.Upsert(ctx, req.Project, docs); err != nil {
			return nil, err
		}
	}

	s.registry.PutHandle(req.Project, &index.Handle{
		Project:    req.Project,
		EmbedModel: req.EmbedModel,
		Dimension:  req.Dimension,
	})

	s.logger.Info("ingested document",
		"project", req.Project, "chunks", len(chunks))
	return &IngestResult{Project: req.Project, Chunks: len(chunks)}, nil
}

// Query returns the diversified top-k passage texts for the query.
func (s *Service) Query(ctx context.Context, req QueryRequest) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, "rag.Query",
		trace.WithAttributes(attribute.String("project", req.Project), attribute.Int("top_k", req.TopK)))
	defer span.End()

	applyQueryDefaults(&req)
	if err := validateProject(req.Project, req.Dimension); err != nil {
		return nil, spanErr(span, err)
	}

	handle, err := s.registry.GetHandle(ctx, req.Project, req.EmbedModel, req.Dimension)
	if err != nil {
		return nil, spanErr(span, err)
	}
	embedder, err := s.embedProvider(handle.EmbedModel)
	if err != nil {
		return nil, spanErr(span, err)
	}

	passages, err := s.engine.Retrieve(ctx, handle, embedder, req.Query, req.TopK)
	if err != nil {
		return nil, spanErr(span, err)
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}
	return texts, nil
}

// Chat produces one grounded reply: condense the message against session
// history into a standalone query, retrieve passages, generate, then record
// the turn. Session memory is only mutated after generation succeeds.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (string, error) {
	ctx, span := s.tracer.Start(ctx, "rag.Chat",
		trace.WithAttributes(attribute.String("project", req.Project), attribute.String("session", req.SessionID)))
	defer span.End()

	applyChatDefaults(&req)
	if err := validateProject(req.Project, req.Dimension); err != nil {
		return "", spanErr(span, err)
	}

	handle, err := s.registry.GetHandle(ctx, req.Project, req.EmbedModel, req.Dimension)
	if err != nil {
		return "", spanErr(span, err)
	}
	memory := s.sessions.Get(req.SessionID)
	history := memory.History()

	generator, err := s.genProvider(req.Model)
	if err != nil {
		return "", spanErr(span, err)
	}

	standalone, err := s.condense(ctx, generator, history, req.Message)
	if err != nil {
		return "", spanErr(span, err)
	}

	embedder, err := s.embedProvider(handle.EmbedModel)
	if err != nil {
		return "", spanErr(span, err)
	}
	passages, err := s.engine.Retrieve(ctx, handle, embedder, standalone, req.TopK)
	if err != nil {
		return "", spanErr(span, err)
	}

	prompt := &llm.Prompt{
		SystemPrompt: buildContextPrompt(passages),
		Messages:     append(append([]llm.Message{}, history...), llm.Message{Role: llm.RoleUser, Content: req.Message}),
	}
	resp, err := generator.Complete(ctx, prompt, llm.WithTemperature(req.Temperature))
	if err != nil {
		return "", spanErr(span, errortypes.GenerationService(err, "generating reply"))
	}

	// Atomic turn record: nothing above may have touched the buffer.
	memory.Append(llm.Message{Role: llm.RoleUser, Content: req.Message})
	memory.Append(llm.Message{Role: llm.RoleAssistant, Content: resp.Content})

	s.logger.Info("chat turn",
		"project", req.Project, "session", req.SessionID, "passages", len(passages))
	return resp.Content, nil
}

// condense rewrites a follow-up into a standalone query. With no prior
// history the message already stands alone and no generation call is made.
func (s *Service) condense(ctx context.Context, generator llm.Provider, history []llm.Message, message string) (string, error) {
	if len(history) == 0 {
		return message, nil
	}
	resp, err := generator.Complete(ctx, &llm.Prompt{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildCondensePrompt(history, message)}},
	}, nil)
	if err != nil {
		return "", errortypes.GenerationService(err, "condensing query")
	}
	return resp.Content, nil
}

func (s *Service) embedProvider(embedModel string) (llm.Provider, error) {
	p, err := s.factory.Create(llm.ProviderConfig{
		Provider:   s.cfg.EmbedProvider,
		APIKey:     s.cfg.APIKey,
		BaseURL:    s.cfg.BaseURL,
		EmbedModel: embedModel,
	})
	if err != nil {
		return nil, fmt.Errorf("building embedding provider: %w", err)
	}
	return p, nil
}

func (s *Service) genProvider(model string) (llm.Provider, error) {
	p, err := s.factory.Create(llm.ProviderConfig{
		Provider: s.cfg.Provider,
		APIKey:   s.cfg.APIKey,
		BaseURL:  s.cfg.BaseURL,
		Model:    model,
	})
	if err != nil {
		return nil, fmt.Errorf("building generation provider: %w", err)
	}
	return p, nil
}

// Store exposes the underlying collection store for health checks.
func (s *Service) Store() vector.Store { return s.store }

func validateProject(project string, dimension int) error {
	if project == "" {
		return errortypes.InvalidArgument("project name must not be empty")
	}
	if dimension <= 0 {
		return errortypes.InvalidArgument("embedding dimension must be positive, got %d", dimension)
	}
	return nil
}

func applyIngestDefaults(req *IngestRequest) {
	if req.EmbedModel == "" {
		req.EmbedModel = DefaultEmbedModel
	}
	if req.BufferSize == 0 {
		req.BufferSize = chunk.DefaultBufferSize
	}
	if req.BreakpointPercentileThreshold == 0 {
		req.BreakpointPercentileThreshold = chunk.DefaultBreakpointPercentile
	}
	if req.Dimension == 0 {
		req.Dimension = DefaultDimension
	}
}

func applyQueryDefaults(req *QueryRequest) {
	if req.EmbedModel == "" {
		req.EmbedModel = DefaultEmbedModel
	}
	if req.Dimension == 0 {
		req.Dimension = DefaultDimension
	}
}

func applyChatDefaults(req *ChatRequest) {
	if req.EmbedModel == "" {
		req.EmbedModel = DefaultEmbedModel
	}
	if req.Dimension == 0 {
		req.Dimension = DefaultDimension
	}
	if req.Model == "" {
		req.Model = DefaultChatModel
	}
	if req.TopK == 0 {
		req.TopK = DefaultTopK
	}
	if req.Temperature == 0 {
		req.Temperature = DefaultTemperature
	}
}

func spanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
