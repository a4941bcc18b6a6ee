// Package vector defines the boundary to the remote vector collection store.
// Each project owns one named collection; chunks are upserted with their
// embeddings and retrieved by nearest-neighbor search.
package vector

import "context"

// Document is a chunk of source text with its embedding, as stored remotely.
type Document struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// SearchResult is a single match from a similarity search. Vector is the
// stored embedding of the match; retrieval needs it to score candidates
// against each other, not just against the query.
type SearchResult struct {
	ID       string
	Score    float32
	Content  string
	Vector   []float32
	Metadata map[string]string
}

// Store provides named-collection vector storage and similarity search.
// Implementations classify failures with errortypes so callers can
// distinguish an unreachable store from bad input.
type Store interface {
	// EnsureCollection creates the collection if absent and verifies its
	// dimensionality when it already exists.
	EnsureCollection(ctx context.Context, collection string, dimension int) error
	// Upsert inserts or replaces documents by ID.
	Upsert(ctx context.Context, collection string, docs []Document) error
	// Search returns the limit nearest neighbors by similarity, best first,
	// with stored vectors included.
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchResult, error)
	// Ping verifies the remote store is reachable.
	Ping(ctx context.Context) error
	// Close releases the underlying connection.
	Close() error
}
