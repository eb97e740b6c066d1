// Package extract provides per-page text extraction from PDF files.
package extract

// Document is an open PDF exposing its pages. Pages are 1-based.
type Document interface {
	// PageCount returns the number of pages in the document.
	PageCount() int
	// PageText returns the raw extracted text of page n (1-based).
	// A failure affects only that page; callers may continue with the rest.
	PageText(n int) (string, error)
	Close() error
}

// Opener opens the document at path. It is a function type so the ingestion
// pipeline can be tested against synthetic documents.
type Opener func(path string) (Document, error)
