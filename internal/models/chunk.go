// Package models defines core data structures for chunks, queries, and ingest reports.
package models

import "fmt"

// ChunkMetadata identifies the source of a chunk: the document it came from
// and the 1-based page it was cut from. It carries enough to cite a source
// but not the offset range within the page.
type ChunkMetadata struct {
	DocName    string `json:"doc_name"`
	PageNumber int    `json:"page_number"`
}

// Chunk is the unit of storage and retrieval: a bounded substring of a
// document page together with its embedding. Once inserted into the vector
// store the pipeline holds no reference to it.
type Chunk struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Metadata  ChunkMetadata `json:"metadata"`
	Embedding []float32     `json:"-"`
}

// ChunkID derives the stable chunk identity from document name, page number,
// and character offset. The offset embedded in the id is the starting offset
// of the chunk that follows, matching the id scheme of stores populated by
// earlier versions of the ingester.
func ChunkID(docName string, pageNumber, nextStart int) string {
	return fmt.Sprintf("%s_page%d_chunk%d", docName, pageNumber, nextStart)
}
