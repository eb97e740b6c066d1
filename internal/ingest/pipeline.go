package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/embedding"
	"github.com/paperbase/paperbase/internal/extract"
	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/models"
	"github.com/paperbase/paperbase/internal/store"
)

// Pipeline populates the vector store from a directory of PDF files, exactly
// once per fresh store. A populated store (nonzero count) makes Run a no-op.
type Pipeline struct {
	open     extract.Opener
	chunker  *Chunker
	embedder embedding.Embedder
	store    store.VectorStore
	path     string
	workers  int
	logger   *zap.Logger // optional; when set, logs progress and failures
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithLogger sets a logger for ingestion progress and failure output.
func WithLogger(l *zap.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// WithWorkers bounds file-level parallelism. Pages within a file are always
// processed in order because chunk ids derive from a running offset stream.
func WithWorkers(n int) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// NewPipeline creates an ingestion pipeline reading PDFs from resourcePath.
func NewPipeline(
	open extract.Opener,
	chunker *Chunker,
	embedder embedding.Embedder,
	vs store.VectorStore,
	resourcePath string,
	opts ...PipelineOption,
) *Pipeline {
	p := &Pipeline{
		open:     open,
		chunker:  chunker,
		embedder: embedder,
		store:    vs,
		path:     resourcePath,
		workers:  1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ingests the corpus and returns a report of per-file outcomes.
//
// If the store already holds chunks, the run is skipped entirely and the
// report says so; there is no verification that a nonzero store is complete.
// Extraction and embedding failures are contained at the page and chunk
// level and recorded in the report. Store failures abort the run: a broken
// store makes the rest of the work meaningless.
func (p *Pipeline) Run(ctx context.Context) (*models.Report, error) {
	report := &models.Report{
		RunID:     uuid.New().String(),
		StartedAt: time.Now(),
	}

	count, err := p.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("store count: %w", err)
	}
	if count > 0 {
		report.Skipped = true
		report.Completed = true
		report.FinishedAt = time.Now()
		if p.logger != nil {
			p.logger.Info("vector store already populated, skipping ingestion",
				zap.Int("chunks", count))
		}
		return report, nil
	}

	files, err := listPDFs(p.path)
	if err != nil {
		return nil, err
	}
	if p.logger != nil {
		p.logger.Info("starting ingestion",
			zap.String("resource_path", p.path),
			zap.Int("files", len(files)),
			zap.Int("workers", p.workers))
	}

	results := make([]models.FileResult, len(files))
	var (
		wg       sync.WaitGroup
		sem      = make(chan struct{}, p.workers)
		mu       sync.Mutex
		fatalErr error
	)
	for i, file := range files {
		mu.Lock()
		stop := fatalErr != nil
		mu.Unlock()
		if stop || ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, path string) {
			defer wg.Done()
			defer func() { <-sem }()
			res, err := p.processFile(ctx, path)
			results[i] = res
			if err != nil {
				mu.Lock()
				if fatalErr == nil {
					fatalErr = err
				}
				mu.Unlock()
			}
		}(i, file)
	}
	wg.Wait()

	for _, r := range results {
		if r.File != "" {
			report.Files = append(report.Files, r)
		}
	}
	report.FinishedAt = time.Now()

	if fatalErr != nil {
		return report, fatalErr
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	report.Completed = true
	if p.logger != nil {
		p.logger.Info("ingestion finished",
			zap.Int("files", len(report.Files)),
			zap.Int("files_failed", report.FailedFiles()),
			zap.Int("chunks", report.TotalChunks()),
			zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	}
	return report, nil
}

// processFile ingests one PDF. The returned error is fatal (store failure or
// cancellation); everything else is contained in the FileResult.
func (p *Pipeline) processFile(ctx context.Context, path string) (models.FileResult, error) {
	name := filepath.Base(path)
	res := models.FileResult{File: name, Status: models.FileStatusOK}

	doc, err := p.open(path)
	if err != nil {
		res.Status = models.FileStatusFailed
		res.Error = err.Error()
		metrics.IngestFilesTotal.WithLabelValues("failed").Inc()
		if p.logger != nil {
			p.logger.Warn("failed to open PDF, skipping file",
				zap.String("file", name), zap.Error(err))
		}
		return res, nil
	}
	defer doc.Close()

	res.Pages = doc.PageCount()
	for page := 1; page <= res.Pages; page++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		stored, err := p.processPage(ctx, doc, name, page)
		res.Chunks += stored
		if err != nil {
			if isFatal(ctx, err) {
				return res, err
			}
			res.PagesFailed++
			if p.logger != nil {
				p.logger.Warn("failed to process page, skipping",
					zap.String("file", name), zap.Int("page", page), zap.Error(err))
			}
		}
	}

	metrics.IngestFilesTotal.WithLabelValues("ok").Inc()
	if p.logger != nil {
		p.logger.Debug("file ingested",
			zap.String("file", name),
			zap.Int("pages", res.Pages),
			zap.Int("chunks", res.Chunks))
	}
	return res, nil
}

// processPage chunks, embeds, and stores one page. Returns the number of
// chunks stored. Store errors and cancellation come back as errors; a page
// extraction failure is returned for the caller to record; an embedding
// failure skips only that chunk.
func (p *Pipeline) processPage(ctx context.Context, doc extract.Document, docName string, page int) (int, error) {
	text, err := doc.PageText(page)
	if err != nil {
		return 0, err
	}
	text = Normalize(text)
	if text == "" {
		// Empty pages are skipped entirely, never chunked.
		return 0, nil
	}

	stored := 0
	for _, w := range p.chunker.Chunk(text) {
		emb, err := p.embedder.Embed(ctx, w.Text)
		if err != nil {
			if isFatal(ctx, err) {
				return stored, err
			}
			metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
			if p.logger != nil {
				p.logger.Warn("embedding failed, skipping chunk",
					zap.String("file", docName), zap.Int("page", page),
					zap.Int("offset", w.NextStart), zap.Error(err))
			}
			continue
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()

		chunk := &models.Chunk{
			ID:   models.ChunkID(docName, page, w.NextStart),
			Text: w.Text,
			Metadata: models.ChunkMetadata{
				DocName:    docName,
				PageNumber: page,
			},
			Embedding: emb,
		}
		if err := p.store.Insert(ctx, chunk); err != nil {
			// Marked with ErrStore so isFatal aborts the run even for store
			// implementations that return bare errors.
			return stored, fmt.Errorf("store insert: %w: %w", store.ErrStore, err)
		}
		stored++
		metrics.ChunksIngestedTotal.Inc()
	}
	return stored, nil
}

// isFatal reports whether err should abort the run instead of being
// contained at the page or chunk level: store failures and cancellation,
// including cancellation wrapped by client libraries.
func isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, store.ErrStore)
}

// listPDFs returns the paths of regular files in dir with a .pdf extension.
// The order is whatever the directory listing gives; nothing may depend on it.
func listPDFs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read resource directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	return files, nil
}
