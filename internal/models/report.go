package models

import "time"

// FileStatus is the outcome of processing one PDF during ingestion.
type FileStatus string

const (
	// FileStatusOK means the file was processed; individual pages may still
	// have been skipped (see FileResult.PagesFailed).
	FileStatusOK FileStatus = "ok"
	// FileStatusFailed means the file could not be opened or read at all.
	FileStatusFailed FileStatus = "failed"
)

// FileResult records the per-file outcome of an ingestion run. Ingestion is
// best-effort, so failures are collected here instead of aborting the run.
type FileResult struct {
	File        string     `json:"file"`
	Status      FileStatus `json:"status"`
	Pages       int        `json:"pages"`
	PagesFailed int        `json:"pages_failed,omitempty"`
	Chunks      int        `json:"chunks"`
	Error       string     `json:"error,omitempty"`
}

// Report summarizes one ingestion run.
type Report struct {
	RunID      string       `json:"run_id"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	// Skipped is true when the store was already populated and the run
	// performed no work.
	Skipped   bool         `json:"skipped"`
	Completed bool         `json:"completed"`
	Files     []FileResult `json:"files,omitempty"`
}

// TotalChunks returns the number of chunks stored across all files.
func (r *Report) TotalChunks() int {
	n := 0
	for _, f := range r.Files {
		n += f.Chunks
	}
	return n
}

// FailedFiles returns the number of files that could not be processed.
func (r *Report) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Status == FileStatusFailed {
			n++
		}
	}
	return n
}
