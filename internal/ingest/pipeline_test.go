package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paperbase/paperbase/internal/embedding"
	"github.com/paperbase/paperbase/internal/extract"
	"github.com/paperbase/paperbase/internal/models"
	"github.com/paperbase/paperbase/internal/store"
)

// fakeDocument serves canned page text, with optional per-page errors.
type fakeDocument struct {
	pages    []string
	pageErrs map[int]error
}

func (d *fakeDocument) PageCount() int { return len(d.pages) }

func (d *fakeDocument) PageText(n int) (string, error) {
	if err, ok := d.pageErrs[n]; ok {
		return "", err
	}
	return d.pages[n-1], nil
}

func (d *fakeDocument) Close() error { return nil }

// fakeOpener maps file base names to documents; missing names fail to open.
type fakeOpener map[string]*fakeDocument

func (o fakeOpener) open(path string) (extract.Document, error) {
	doc, ok := o[filepath.Base(path)]
	if !ok {
		return nil, fmt.Errorf("open PDF %s: unreadable", path)
	}
	return doc, nil
}

// countingEmbedder wraps the deterministic mock and records calls.
type countingEmbedder struct {
	*embedding.MockEmbedder
	mu      sync.Mutex
	calls   int
	failFor map[string]bool
	failErr error
}

func newCountingEmbedder() *countingEmbedder {
	return &countingEmbedder{
		MockEmbedder: embedding.NewMockEmbedder(8),
		failFor:      make(map[string]bool),
	}
}

func (e *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	fail := e.failFor[text]
	e.mu.Unlock()
	if fail {
		if e.failErr != nil {
			return nil, e.failErr
		}
		return nil, fmt.Errorf("embedding model unavailable")
	}
	return e.MockEmbedder.Embed(ctx, text)
}

// recordingStore collects inserts in memory.
type recordingStore struct {
	mu        sync.Mutex
	chunks    []*models.Chunk
	preCount  int
	insertErr error
}

func (s *recordingStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preCount + len(s.chunks), nil
}

func (s *recordingStore) Insert(ctx context.Context, chunk *models.Chunk) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chunks = append(s.chunks, chunk)
	return nil
}

func (s *recordingStore) Query(ctx context.Context, embedding []float32, k int) ([]models.SearchHit, error) {
	return nil, nil
}

func (s *recordingStore) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.chunks))
	for i, c := range s.chunks {
		out[i] = c.ID
	}
	return out
}

// writeResourceDir creates a temp directory containing an empty placeholder
// file per name; the fake opener never reads the bytes.
func writeResourceDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("%PDF"), 0644))
	}
	return dir
}

func newTestPipeline(t *testing.T, opener fakeOpener, emb embedding.Embedder, vs *recordingStore, dir string, opts ...PipelineOption) *Pipeline {
	t.Helper()
	chunker, err := NewChunker(10, 3)
	require.NoError(t, err)
	return NewPipeline(opener.open, chunker, emb, vs, dir, opts...)
}

func TestPipelineRun_PopulatesStore(t *testing.T) {
	opener := fakeOpener{
		"a.pdf": {pages: []string{"abcdefghijklmno", "   \n  "}},
		"b.pdf": {pages: []string{"0123456789"}},
	}
	emb := newCountingEmbedder()
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf", "b.pdf", "notes.txt")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.False(t, report.Skipped)
	assert.True(t, report.Completed)
	require.Len(t, report.Files, 2, "notes.txt must be ignored")
	assert.Equal(t, 3, report.TotalChunks())
	assert.Equal(t, 3, emb.calls, "empty page must not be embedded")

	assert.ElementsMatch(t, []string{
		"a.pdf_page1_chunk7",
		"a.pdf_page1_chunk14",
		"b.pdf_page1_chunk7",
	}, vs.ids())

	for _, c := range vs.chunks {
		assert.NotEmpty(t, c.Embedding)
		assert.NotZero(t, c.Metadata.PageNumber)
		assert.NotEmpty(t, c.Metadata.DocName)
	}
}

func TestPipelineRun_SkipsPopulatedStore(t *testing.T) {
	opener := fakeOpener{"a.pdf": {pages: []string{"abcdefghijklmno"}}}
	emb := newCountingEmbedder()
	vs := &recordingStore{preCount: 5}
	dir := writeResourceDir(t, "a.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Skipped)
	assert.True(t, report.Completed)
	assert.Empty(t, report.Files)
	assert.Zero(t, emb.calls, "skip path must not embed anything")
	assert.Empty(t, vs.chunks, "skip path must not insert anything")
}

func TestPipelineRun_FileFailureContained(t *testing.T) {
	// broken.pdf is not in the opener, so it fails to open.
	opener := fakeOpener{"good.pdf": {pages: []string{"0123456789"}}}
	emb := newCountingEmbedder()
	vs := &recordingStore{}
	dir := writeResourceDir(t, "broken.pdf", "good.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.NoError(t, err, "one unreadable file must not fail the run")

	require.Len(t, report.Files, 2)
	assert.Equal(t, 1, report.FailedFiles())
	assert.True(t, report.Completed)
	assert.Equal(t, 1, report.TotalChunks())
	for _, f := range report.Files {
		if f.Status == models.FileStatusFailed {
			assert.Equal(t, "broken.pdf", f.File)
			assert.NotEmpty(t, f.Error)
		}
	}
}

func TestPipelineRun_PageFailureContained(t *testing.T) {
	opener := fakeOpener{
		"a.pdf": {
			pages:    []string{"unused", "0123456789"},
			pageErrs: map[int]error{1: fmt.Errorf("extract page 1: bad stream")},
		},
	}
	emb := newCountingEmbedder()
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	f := report.Files[0]
	assert.Equal(t, models.FileStatusOK, f.Status)
	assert.Equal(t, 1, f.PagesFailed)
	assert.Equal(t, 1, f.Chunks)
	assert.Equal(t, []string{"a.pdf_page2_chunk7"}, vs.ids())
}

func TestPipelineRun_EmbeddingFailureSkipsChunk(t *testing.T) {
	opener := fakeOpener{"a.pdf": {pages: []string{"abcdefghijklmno"}}}
	emb := newCountingEmbedder()
	emb.failFor["abcdefghij"] = true
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.NoError(t, err, "a failed embedding must not fail the run")

	assert.Equal(t, 1, report.TotalChunks())
	assert.Equal(t, []string{"a.pdf_page1_chunk14"}, vs.ids())
}

func TestPipelineRun_StoreErrorAborts(t *testing.T) {
	opener := fakeOpener{"a.pdf": {pages: []string{"0123456789"}}}
	emb := newCountingEmbedder()
	vs := &recordingStore{insertErr: fmt.Errorf("disk full")}
	dir := writeResourceDir(t, "a.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store insert")
	assert.ErrorIs(t, err, store.ErrStore,
		"insert failures must carry the store sentinel even from bare errors")
	require.NotNil(t, report)
	assert.False(t, report.Completed)
}

func TestPipelineRun_WrappedCancellationAborts(t *testing.T) {
	opener := fakeOpener{"a.pdf": {pages: []string{"0123456789"}}}
	emb := newCountingEmbedder()
	emb.failFor["0123456789"] = true
	emb.failErr = fmt.Errorf("embeddings request: %w", context.Canceled)
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(context.Background())
	require.Error(t, err, "a wrapped cancellation must abort, not skip the chunk")
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, report)
	assert.False(t, report.Completed)
	assert.Empty(t, vs.chunks)
}

func TestPipelineRun_Canceled(t *testing.T) {
	opener := fakeOpener{"a.pdf": {pages: []string{"0123456789"}}}
	emb := newCountingEmbedder()
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := newTestPipeline(t, opener, emb, vs, dir).Run(ctx)
	require.Error(t, err)
	require.NotNil(t, report)
	assert.False(t, report.Completed)
}

func TestPipelineRun_ParallelWorkersKeepPageOrderPerFile(t *testing.T) {
	opener := fakeOpener{
		"a.pdf": {pages: []string{"abcdefghijklmno"}},
		"b.pdf": {pages: []string{"abcdefghijklmno"}},
		"c.pdf": {pages: []string{"abcdefghijklmno"}},
	}
	emb := newCountingEmbedder()
	vs := &recordingStore{}
	dir := writeResourceDir(t, "a.pdf", "b.pdf", "c.pdf")

	report, err := newTestPipeline(t, opener, emb, vs, dir, WithWorkers(3)).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalChunks())

	// Within each file the offset-derived ids must appear in page order.
	perFile := map[string][]string{}
	for _, c := range vs.chunks {
		perFile[c.Metadata.DocName] = append(perFile[c.Metadata.DocName], c.ID)
	}
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf"} {
		want := []string{
			models.ChunkID(name, 1, 7),
			models.ChunkID(name, 1, 14),
		}
		assert.Equal(t, want, perFile[name])
	}
}
