package server

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/paperbase/paperbase/internal/metrics"
	"github.com/paperbase/paperbase/internal/models"
)

// handleQuery retrieves the top-k chunks for the query and forwards them to
// the answer generator. The response keeps the previous API's shape:
// metadata is a flat list of citations and paragraph is a nested list of
// chunk texts. Empty retrieval is not an error; the generator is still
// invoked with no context.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.QueryText == "" {
		s.respondError(w, http.StatusBadRequest, "query_text is required")
		return
	}
	s.logger.Debug("query request", zap.String("query_text", req.QueryText))

	results, err := s.retriever.Retrieve(r.Context(), req.QueryText, s.retriever.DefaultTopK())
	if err != nil {
		s.logger.Error("retrieval failed", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	answer, err := s.generator.GenerateAnswer(r.Context(), req.QueryText, results)
	if err != nil {
		s.logger.Error("answer generation failed", zap.Error(err))
		metrics.QueriesTotal.WithLabelValues("error").Inc()
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.QueryResponse{
		Answer:    answer,
		Metadata:  make([]models.QueryResponseMetadata, 0, len(results)),
		Paragraph: [][]string{},
	}
	texts := make([]string, 0, len(results))
	for _, res := range results {
		resp.Metadata = append(resp.Metadata, models.QueryResponseMetadata{
			DocName: res.Metadata.DocName,
			Page:    res.Metadata.PageNumber,
		})
		texts = append(texts, res.Text)
	}
	resp.Paragraph = append(resp.Paragraph, texts)

	metrics.QueriesTotal.WithLabelValues("success").Inc()
	metrics.QueryDuration.Observe(time.Since(start).Seconds())
	s.respondJSON(w, http.StatusOK, resp)
}

// StatusResponse is the body of GET /api/status.
type StatusResponse struct {
	Chunks  int                    `json:"chunks"`
	LastRun *RunSummary            `json:"last_run,omitempty"`
	Config  map[string]interface{} `json:"config"`
}

// RunSummary is the condensed view of the last recorded ingestion run.
type RunSummary struct {
	RunID       string    `json:"run_id"`
	FinishedAt  time.Time `json:"finished_at"`
	Skipped     bool      `json:"skipped"`
	Completed   bool      `json:"completed"`
	Files       int       `json:"files"`
	FilesFailed int       `json:"files_failed"`
	Chunks      int       `json:"chunks"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	count, err := s.store.Count(r.Context())
	if err != nil {
		s.logger.Error("status: store count failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := StatusResponse{
		Chunks: count,
		Config: map[string]interface{}{
			"chunk_size":      s.config.Chunking.Size,
			"chunk_overlap":   s.config.Chunking.Overlap,
			"top_k":           s.config.Retrieval.TopK,
			"embedding_model": s.config.Embedding.Model,
			"resource_path":   s.config.Resources.Path,
		},
	}
	if s.manifest != nil {
		run, err := s.manifest.LatestRun(r.Context())
		if err != nil {
			s.logger.Warn("status: manifest read failed", zap.Error(err))
		} else if run != nil {
			resp.LastRun = &RunSummary{
				RunID:       run.RunID,
				FinishedAt:  run.FinishedAt,
				Skipped:     run.Skipped,
				Completed:   run.Completed,
				Files:       len(run.Files),
				FilesFailed: run.FailedFiles(),
				Chunks:      run.TotalChunks(),
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
