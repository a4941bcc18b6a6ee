// Package chunk splits raw document text into semantically coherent passages.
//
// Boundaries track topic shifts instead of fixed-size windows: successive
// sentence groups are embedded, and a split is inserted wherever the
// embedding distance between adjacent groups exceeds a percentile threshold
// of all observed distances. The resulting chunks carry their own embeddings
// so ingestion never re-embeds.
package chunk

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

// Embedder is the minimal embedding capability the splitter needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Chunk is a contiguous span of source text with its embedding. Chunks are
// immutable once created; a project is only ever re-ingested wholesale.
type Chunk struct {
	Document  string // originating document reference
	Ordinal   int    // position within the document
	Text      string
	Embedding []float32
}

const (
	// DefaultBufferSize is the sliding sentence-window size.
	DefaultBufferSize = 3
	// DefaultBreakpointPercentile is the split threshold: a boundary is
	// inserted where the adjacent-group distance exceeds this percentile of
	// all observed distances.
	DefaultBreakpointPercentile = 85
)

// Splitter converts one document's text into an ordered chunk sequence.
// For fixed input, buffer size and threshold, boundaries are deterministic
// given a deterministic embedding model.
type Splitter struct {
	embedder   Embedder
	bufferSize int
	percentile float64
}

// NewSplitter creates a Splitter. Non-positive bufferSize or an
// out-of-range percentile fall back to the defaults.
func NewSplitter(embedder Embedder, bufferSize int, breakpointPercentile float64) *Splitter {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	if breakpointPercentile <= 0 || breakpointPercentile > 100 {
		breakpointPercentile = DefaultBreakpointPercentile
	}
	return &Splitter{
		embedder:   embedder,
		bufferSize: bufferSize,
		percentile: breakpointPercentile,
	}
}

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+[)"'”’\]]*|[^.!?]+$`)

// splitSentences breaks text into trimmed sentences, keeping a trailing
// fragment without terminal punctuation.
func splitSentences(text string) []string {
	raw := sentenceRe.FindAllString(text, -1)
	sentences := make([]string, 0, len(raw))
	for _, s := range raw {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}
	return sentences
}

// Split chunks the document text. Empty or whitespace-only input yields zero
// chunks and no error.
func (s *Splitter) Split(ctx context.Context, document, text string) ([]Chunk, error) {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}

	boundaries, err := s.boundaries(ctx, sentences)
	if err != nil {
		return nil, err
	}

	texts := assemble(sentences, boundaries)
	embeddings, err := s.embed(ctx, texts)
	if err != nil {
		return nil, err
	}

	chunks := make([]Chunk, len(texts))
	for i, t := range texts {
		chunks[i] = Chunk{Document: document, Ordinal: i, Text: t, Embedding: embeddings[i]}
	}
	return chunks, nil
}

// boundaries returns the sentence indexes after which a new chunk starts.
func (s *Splitter) boundaries(ctx context.Context, sentences []string) ([]int, error) {
	if len(sentences) < 2 {
		return nil, nil
	}

	// Each sentence is evaluated inside a trailing window of up to
	// bufferSize sentences, smoothing single-sentence noise.
	groups := make([]string, len(sentences))
	for i := range sentences {
		lo := i - s.bufferSize + 1
		if lo < 0 {
			lo = 0
		}
		groups[i] = strings.Join(sentences[lo:i+1], " ")
	}

	embeddings, err := s.embed(ctx, groups)
	if err != nil {
		return nil, err
	}

	distances := make([]float64, len(embeddings)-1)
	for i := range distances {
		distances[i] = 1 - vector.CosineSimilarity(embeddings[i], embeddings[i+1])
	}

	// A distance at or above the threshold starts a new chunk. The
	// inclusive comparison matters for short documents: with a single
	// adjacent pair, any percentile of the one observed distance equals
	// that distance, and a topic boundary must still split.
	threshold := percentile(distances, s.percentile)
	var out []int
	for i, d := range distances {
		if d >= threshold {
			out = append(out, i)
		}
	}
	return out, nil
}

func (s *Splitter) embed(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, errortypes.EmbeddingService(err, "embedding sentence groups")
	}
	if len(embeddings) != len(texts) {
		return nil, errortypes.EmbeddingService(
			fmt.Errorf("got %d embeddings for %d inputs", len(embeddings), len(texts)),
			"embedding sentence groups")
	}
	return embeddings, nil
}

// assemble joins sentences into chunk texts, cutting after each boundary
// index.
func assemble(sentences []string, boundaries []int) []string {
	var texts []string
	start := 0
	for _, b := range boundaries {
		texts = append(texts, strings.Join(sentences[start:b+1], " "))
		start = b + 1
	}
	texts = append(texts, strings.Join(sentences[start:], " "))
	return texts
}

// percentile computes the p-th percentile of values using linear
// interpolation between closest ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(rank)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
