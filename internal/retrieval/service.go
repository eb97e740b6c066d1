// Package retrieval turns query text into a ranked context set.
package retrieval

import (
	"context"
	"fmt"

	"github.com/paperbase/paperbase/internal/embedding"
	"github.com/paperbase/paperbase/internal/models"
	"github.com/paperbase/paperbase/internal/store"
)

// Service answers "what are the k chunks most relevant to this query" as a
// pure read: embed the query, ask the store, map the hits. It never mutates
// the store and never reorders or deduplicates what the store returns.
type Service struct {
	embedder    embedding.Embedder
	store       store.VectorStore
	defaultTopK int
}

// NewService creates a retrieval service. defaultTopK is used when a caller
// passes k <= 0.
func NewService(embedder embedding.Embedder, vs store.VectorStore, defaultTopK int) *Service {
	if defaultTopK <= 0 {
		defaultTopK = 3
	}
	return &Service{
		embedder:    embedder,
		store:       vs,
		defaultTopK: defaultTopK,
	}
}

// Retrieve returns up to k ranked results for queryText. An empty store
// yields an empty slice, not an error. Embedding and store failures
// propagate: a failed query has no safe partial answer.
func (s *Service) Retrieve(ctx context.Context, queryText string, k int) ([]models.QueryResult, error) {
	if queryText == "" {
		return nil, fmt.Errorf("query text cannot be empty")
	}
	if k <= 0 {
		k = s.defaultTopK
	}

	emb, err := s.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := s.store.Query(ctx, emb, k)
	if err != nil {
		return nil, fmt.Errorf("query store: %w", err)
	}

	results := make([]models.QueryResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, models.QueryResult{
			Text:     h.Text,
			Metadata: h.Metadata,
			Score:    h.Score,
		})
	}
	return results, nil
}

// DefaultTopK returns the configured default result count.
func (s *Service) DefaultTopK() int {
	return s.defaultTopK
}
