package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/config"
	"github.com/paperbase/paperbase/internal/models"
	"github.com/paperbase/paperbase/internal/retrieval"
)

type stubStore struct {
	hits     []models.SearchHit
	count    int
	queryErr error
}

func (s *stubStore) Count(ctx context.Context) (int, error) { return s.count, nil }

func (s *stubStore) Insert(ctx context.Context, chunk *models.Chunk) error {
	return fmt.Errorf("read-only stub")
}

func (s *stubStore) Query(ctx context.Context, embedding []float32, k int) ([]models.SearchHit, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	if k > len(s.hits) {
		k = len(s.hits)
	}
	return s.hits[:k], nil
}

type stubEmbedder struct{}

func (e *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{0.5, 0.5}, nil
}

func (e *stubEmbedder) Dimensions() int { return 2 }
func (e *stubEmbedder) Close() error    { return nil }

type stubGenerator struct {
	answer string
	err    error
}

func (g *stubGenerator) GenerateAnswer(ctx context.Context, query string, results []models.QueryResult) (string, error) {
	return g.answer, g.err
}

func newTestServer(t *testing.T, st *stubStore, gen *stubGenerator) *Server {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	retriever := retrieval.NewService(&stubEmbedder{}, st, cfg.Retrieval.TopK)
	return NewServer(retriever, gen, st, nil, cfg, zap.NewNop())
}

func postQuery(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/query", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHandleQuery_ResponseShape(t *testing.T) {
	st := &stubStore{
		count: 2,
		hits: []models.SearchHit{
			{Text: "chunk one", Metadata: models.ChunkMetadata{DocName: "a.pdf", PageNumber: 3}, Score: 0.9},
			{Text: "chunk two", Metadata: models.ChunkMetadata{DocName: "b.pdf", PageNumber: 1}, Score: 0.7},
		},
	}
	srv := newTestServer(t, st, &stubGenerator{answer: "the answer"})

	rec := postQuery(t, srv, `{"query_text": "what is chunk one?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "the answer", resp.Answer)
	require.Len(t, resp.Metadata, 2)
	assert.Equal(t, "a.pdf", resp.Metadata[0].DocName)
	assert.Equal(t, 3, resp.Metadata[0].Page)
	assert.Equal(t, "b.pdf", resp.Metadata[1].DocName)

	// Texts come back as a single nested list, in retrieval order.
	require.Len(t, resp.Paragraph, 1)
	assert.Equal(t, []string{"chunk one", "chunk two"}, resp.Paragraph[0])
}

func TestHandleQuery_EmptyStore(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, &stubGenerator{answer: "no context"})

	rec := postQuery(t, srv, `{"query_text": "anything"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.QueryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "no context", resp.Answer)
	assert.Empty(t, resp.Metadata)
	require.Len(t, resp.Paragraph, 1)
	assert.Empty(t, resp.Paragraph[0])
}

func TestHandleQuery_BadRequests(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, &stubGenerator{answer: "x"})

	rec := postQuery(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postQuery(t, srv, `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "query_text")
}

func TestHandleQuery_RetrievalError(t *testing.T) {
	st := &stubStore{queryErr: fmt.Errorf("index corrupt")}
	srv := newTestServer(t, st, &stubGenerator{answer: "x"})

	rec := postQuery(t, srv, `{"query_text": "anything"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleQuery_GenerationError(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, &stubGenerator{err: fmt.Errorf("model offline")})

	rec := postQuery(t, srv, `{"query_text": "anything"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "model offline")
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(t, &stubStore{count: 42}, &stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 42, resp.Chunks)
	assert.Nil(t, resp.LastRun)
	assert.EqualValues(t, 3000, resp.Config["chunk_size"])
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(t, &stubStore{}, &stubGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
