// Package temporal runs ingestion as a durable workflow: chunking and
// persistence become separately retryable activities, so a flaky embedding
// service or vector store does not lose a large document mid-ingest.
package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"
)

// IngestInput holds the workflow parameters; it mirrors the synchronous
// ingest request.
type IngestInput struct {
	Project                       string
	Text                          string
	EmbedModel                    string
	BufferSize                    int
	BreakpointPercentileThreshold float64
	Dimension                     int
}

// IngestOutput holds the workflow result.
type IngestOutput struct {
	Project string
	Chunks  int
}

// IngestWorkflow chunks a document then persists the chunks and handle.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (*IngestOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var chunked ChunkResult
	if err := workflow.ExecuteActivity(ctx, ChunkDocumentActivity, input).Get(ctx, &chunked); err != nil {
		return nil, fmt.Errorf("chunk document: %w", err)
	}

	var stored StoreResult
	if err := workflow.ExecuteActivity(ctx, StoreChunksActivity, input, chunked).Get(ctx, &stored); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	return &IngestOutput{Project: stored.Project, Chunks: stored.Chunks}, nil
}
