// Package store defines the vector store contract and its chromem-go implementation.
package store

import (
	"context"
	"errors"

	"github.com/paperbase/paperbase/internal/models"
)

// ErrStore marks a vector store operation failure. Callers check for it with
// errors.Is; the ingestion pipeline treats it as fatal because a broken store
// makes any further work meaningless, while extraction and embedding failures
// stay contained.
var ErrStore = errors.New("vector store error")

// VectorStore is the durable similarity index chunks are written to and
// queried from. Query returns up to k hits ranked by the store's own
// similarity metric; callers must preserve that ordering. Inserting an id
// that already exists overwrites the previous entry.
type VectorStore interface {
	// Count returns the total number of stored chunks.
	Count(ctx context.Context) (int, error)
	// Insert stores a chunk with its embedding and metadata.
	Insert(ctx context.Context, chunk *models.Chunk) error
	// Query returns the k stored chunks nearest to embedding. An empty store
	// yields an empty result, not an error; k larger than the store size
	// yields fewer than k hits.
	Query(ctx context.Context, embedding []float32, k int) ([]models.SearchHit, error)
}
