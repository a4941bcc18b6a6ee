// Package retrieval turns a query into a diversified set of grounding
// passages using maximal-marginal-relevance search over a project's
// collection.
package retrieval

import (
	"context"

	"github.com/eddyvy/enscli-ai-manager/internal/errortypes"
	"github.com/eddyvy/enscli-ai-manager/internal/index"
	"github.com/eddyvy/enscli-ai-manager/internal/llm"
	"github.com/eddyvy/enscli-ai-manager/internal/vector"
)

const (
	// DefaultLambda weighs relevance against diversity in the MMR score:
	// 1 is pure relevance, 0 pure diversity.
	DefaultLambda = 0.5
	// DefaultPrefetchFactor oversizes the candidate fetch relative to top_k
	// so the greedy selection has room to diversify.
	DefaultPrefetchFactor = 4
)

// Options tune the relevance/diversity trade-off. Zero values select the
// documented defaults.
type Options struct {
	Lambda         float64
	PrefetchFactor int
}

func (o Options) withDefaults() Options {
	if o.Lambda <= 0 || o.Lambda > 1 {
		o.Lambda = DefaultLambda
	}
	if o.PrefetchFactor <= 0 {
		o.PrefetchFactor = DefaultPrefetchFactor
	}
	return o
}

// Passage is one selected grounding passage, in selection order.
type Passage struct {
	ID    string
	Text  string
	Score float64 // MMR score at selection time
}

// Engine retrieves diversified passages from the remote collection store.
type Engine struct {
	store vector.Store
	opts  Options
}

// NewEngine creates an Engine over the given store.
func NewEngine(store vector.Store, opts Options) *Engine {
	return &Engine{store: store, opts: opts.withDefaults()}
}

// Retrieve embeds the query with the handle's model, fetches an oversized
// candidate set and greedily selects topK passages maximizing
//
//	lambda*relevance(c, query) - (1-lambda)*maxSim(c, selected)
//
// Ties break by original candidate rank. Fewer than topK stored items all
// come back; topK <= 0 is an input error.
func (e *Engine) Retrieve(ctx context.Context, h *index.Handle, embedder llm.Provider, query string, topK int) ([]Passage, error) {
	if topK <= 0 {
		return nil, errortypes.InvalidArgument("top_k must be positive, got %d", topK)
	}

	vecs, err := embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, errortypes.EmbeddingService(err, "embedding query")
	}
	if len(vecs) != 1 {
		return nil, errortypes.EmbeddingService(nil, "embedding service returned no vector for query")
	}
	qvec := vecs[0]
	if h.Dimension > 0 && len(qvec) != h.Dimension {
		return nil, errortypes.InvalidArgument(
			"query embedding has dimension %d, project %q expects %d", len(qvec), h.Project, h.Dimension)
	}

	candidates, err := e.store.Search(ctx, h.Collection(), qvec, topK*e.opts.PrefetchFactor)
	if err != nil {
		return nil, err
	}

	return selectMMR(qvec, candidates, topK, e.opts.Lambda), nil
}

// selectMMR greedily picks up to topK mutually dissimilar candidates.
func selectMMR(qvec []float32, candidates []vector.SearchResult, topK int, lambda float64) []Passage {
	if len(candidates) == 0 {
		return nil
	}
	if topK > len(candidates) {
		topK = len(candidates)
	}

	// Similarity to the query. The store's score is already the cosine
	// similarity for cosine collections; fall back to computing it when a
	// candidate arrives without one.
	relevance := make([]float64, len(candidates))
	for i, c := range candidates {
		if c.Score != 0 {
			relevance[i] = float64(c.Score)
		} else {
			relevance[i] = vector.CosineSimilarity(qvec, c.Vector)
		}
	}

	selected := make([]Passage, 0, topK)
	chosen := make([]bool, len(candidates))
	// maxSim[i] tracks candidate i's similarity to the closest already-
	// selected item; 0 while nothing is selected.
	maxSim := make([]float64, len(candidates))

	for len(selected) < topK {
		best := -1
		var bestScore float64
		for i := range candidates {
			if chosen[i] {
				continue
			}
			score := lambda*relevance[i] - (1-lambda)*maxSim[i]
			// Strict > keeps ties on the earlier (higher-ranked) candidate.
			if best == -1 || score > bestScore {
				best = i
				bestScore = score
			}
		}

		chosen[best] = true
		selected = append(selected, Passage{
			ID:    candidates[best].ID,
			Text:  candidates[best].Content,
			Score: bestScore,
		})

		for i := range candidates {
			if chosen[i] {
				continue
			}
			if sim := vector.CosineSimilarity(candidates[best].Vector, candidates[i].Vector); sim > maxSim[i] {
				maxSim[i] = sim
			}
		}
	}
	return selected
}
