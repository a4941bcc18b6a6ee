package temporal

import (
	"context"

	"github.com/eddyvy/enscli-ai-manager/internal/chunk"
	"github.com/eddyvy/enscli-ai-manager/internal/rag"
)

// ChunkResult is the serializable output of the chunking activity.
type ChunkResult struct {
	Chunks []chunk.Chunk
}

// StoreResult is the serializable output of the persistence activity.
type StoreResult struct {
	Project string
	Chunks  int
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Service *rag.Service
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

func ChunkDocumentActivity(ctx context.Context, input IngestInput) (ChunkResult, error) {
	chunks, err := deps.Service.ChunkDocument(ctx, ingestRequest(input))
	if err != nil {
		return ChunkResult{}, err
	}
	return ChunkResult{Chunks: chunks}, nil
}

func StoreChunksActivity(ctx context.Context, input IngestInput, chunked ChunkResult) (StoreResult, error) {
	result, err := deps.Service.StoreChunks(ctx, ingestRequest(input), chunked.Chunks)
	if err != nil {
		return StoreResult{}, err
	}
	return StoreResult{Project: result.Project, Chunks: result.Chunks}, nil
}

func ingestRequest(input IngestInput) rag.IngestRequest {
	return rag.IngestRequest{
		Project:                       input.Project,
		Text:                          input.Text,
		EmbedModel:                    input.EmbedModel,
		BufferSize:                    input.BufferSize,
		BreakpointPercentileThreshold: input.BreakpointPercentileThreshold,
		Dimension:                     input.Dimension,
	}
}
