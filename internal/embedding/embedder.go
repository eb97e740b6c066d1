// Package embedding provides text embedding via OpenAI-compatible APIs and caching.
package embedding

import "context"

// Embedder produces vector embeddings for text. Implementations need not be
// strictly deterministic, but embeddings of identical text must be
// comparable across calls.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Close() error
}
