// Package ingest provides document chunking and the ingestion pipeline.
package ingest

import "fmt"

// Window is one chunk of a page's normalized text. NextStart is the starting
// offset of the window that follows (start + size - overlap), computed even
// for the final window. Chunk ids embed NextStart rather than the window's
// own start; see models.ChunkID.
type Window struct {
	Text      string
	NextStart int
}

// Chunker splits normalized page text into fixed-size overlapping windows,
// measured in characters (runes).
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker with the given window size and overlap.
// Returns an error when overlap >= size: the advance step would be
// non-positive and chunking would never terminate. Config validation rejects
// this earlier; the check here guards direct construction.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, size), got overlap=%d size=%d", overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Chunk splits text into overlapping windows. The first window starts at
// offset 0; each next window starts size-overlap characters later. The final
// window may be shorter than the configured size and is the one whose end
// reaches the end of the text. Empty text yields no windows. Each call
// recomputes from scratch; there is no shared cursor state.
func (c *Chunker) Chunk(text string) []Window {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}
	step := c.size - c.overlap
	windows := make([]Window, 0, (len(runes)+step-1)/step)
	for start := 0; start < len(runes); {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		next := start + step
		windows = append(windows, Window{Text: string(runes[start:end]), NextStart: next})
		if start+c.size >= len(runes) {
			break
		}
		start = next
	}
	return windows
}

// Size returns the configured window size in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured window overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }
