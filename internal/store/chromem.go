package store

import (
	"context"
	"fmt"
	"strconv"

	chromem "github.com/philippgille/chromem-go"

	"github.com/paperbase/paperbase/internal/models"
)

const (
	metaKeyDocName    = "doc_name"
	metaKeyPageNumber = "page_number"
)

// ChromemStore implements VectorStore on an embedded chromem-go collection.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
}

// NewChromemStore opens or creates a persistent chromem-go database at path
// and returns a store over the named collection. The backing directory is
// created if absent.
func NewChromemStore(path, collection string) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("open vector store at %s: %w", path, err)
	}
	return newStore(db, collection)
}

// NewEphemeralStore returns an in-memory store over the named collection.
// Used by tests and one-shot runs that should not touch disk.
func NewEphemeralStore(collection string) (*ChromemStore, error) {
	return newStore(chromem.NewDB(), collection)
}

func newStore(db *chromem.DB, collection string) (*ChromemStore, error) {
	// Cosine space to match the embeddings' similarity contract.
	col, err := db.GetOrCreateCollection(collection, map[string]string{"hnsw:space": "cosine"}, nil)
	if err != nil {
		return nil, fmt.Errorf("open collection %s: %w", collection, err)
	}
	return &ChromemStore{db: db, collection: col}, nil
}

// Count returns the number of stored chunks.
func (s *ChromemStore) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Insert stores one chunk. The chunk must carry an embedding.
func (s *ChromemStore) Insert(ctx context.Context, chunk *models.Chunk) error {
	if len(chunk.Embedding) == 0 {
		return fmt.Errorf("chunk %s has no embedding", chunk.ID)
	}
	metadata := map[string]string{
		metaKeyDocName:    chunk.Metadata.DocName,
		metaKeyPageNumber: strconv.Itoa(chunk.Metadata.PageNumber),
	}
	err := s.collection.Add(ctx,
		[]string{chunk.ID},
		[][]float32{chunk.Embedding},
		[]map[string]string{metadata},
		[]string{chunk.Text},
	)
	if err != nil {
		return fmt.Errorf("insert chunk %s: %w: %w", chunk.ID, ErrStore, err)
	}
	return nil
}

// Query returns up to k nearest chunks in the order chromem ranks them.
// k is clamped to the collection size; an empty collection returns an empty
// slice because chromem rejects queries for more results than it holds.
func (s *ChromemStore) Query(ctx context.Context, embedding []float32, k int) ([]models.SearchHit, error) {
	count := s.collection.Count()
	if count == 0 || k <= 0 {
		return nil, nil
	}
	if k > count {
		k = count
	}
	results, err := s.collection.QueryEmbedding(ctx, embedding, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query vector store: %w: %w", ErrStore, err)
	}
	hits := make([]models.SearchHit, 0, len(results))
	for _, r := range results {
		page, _ := strconv.Atoi(r.Metadata[metaKeyPageNumber])
		hits = append(hits, models.SearchHit{
			ID:   r.ID,
			Text: r.Content,
			Metadata: models.ChunkMetadata{
				DocName:    r.Metadata[metaKeyDocName],
				PageNumber: page,
			},
			Score: float64(r.Similarity),
		})
	}
	return hits, nil
}
