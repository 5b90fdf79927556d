package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/storage"
)

type uploadResponse struct {
	ChunksAdded int    `json:"chunks_added"`
	Filename    string `json:"filename"`
	DocumentID  string `json:"document_id"`
}

type addRepositoryResponse struct {
	Status string `json:"status"`
	*models.RepositoryResult
}

type generateResponse struct {
	GeneratedCode string `json:"generated_code"`
}

type retrieveResponse struct {
	Query  string                  `json:"query"`
	Chunks []models.RetrievedChunk `json:"chunks"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := s.config.Server.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()
	if header.Size > maxBytes {
		s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}
	content, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to read file")
		return
	}

	name := filepath.Base(header.Filename)
	doc := extract.NewDocument(name, content)
	s.logger.Debug("upload request", zap.String("filename", name), zap.Int("bytes", len(content)))
	res, err := s.deps.Ingester.Ingest(r.Context(), doc)
	if err != nil {
		s.respondErr(w, "upload failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, uploadResponse{
		ChunksAdded: res.ChunksAdded,
		Filename:    name,
		DocumentID:  res.DocumentID,
	})
}

func (s *Server) handleAddRepository(w http.ResponseWriter, r *http.Request) {
	var req models.AddRepositoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("add repository request", zap.String("url", req.URL), zap.String("branch", req.Branch))
	res, err := s.deps.Ingester.IngestRepository(r.Context(), req.URL, req.Branch)
	if err != nil {
		s.respondErr(w, "repository ingest failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, addRepositoryResponse{Status: "ok", RepositoryResult: res})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req models.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("generate request", zap.Int("prompt_chars", len(req.Prompt)))
	answer, err := s.deps.Answerer.Answer(r.Context(), req.Prompt)
	if err != nil {
		s.respondErr(w, "generation failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, generateResponse{GeneratedCode: answer})
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := req.Validate(s.config.Retrieval.TopK, s.config.Retrieval.MaxK); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	chunks, err := s.deps.Answerer.Retrieve(r.Context(), req.Query, req.K)
	if err != nil {
		s.respondErr(w, "retrieval failed", err)
		return
	}
	if chunks == nil {
		chunks = []models.RetrievedChunk{}
	}
	s.respondJSON(w, http.StatusOK, retrieveResponse{Query: req.Query, Chunks: chunks})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{
		"embedder":  s.deps.EmbedderName,
		"generator": s.deps.GeneratorName,
	}
	if s.deps.Index != nil {
		resp["index_type"] = s.deps.Index.Type()
		resp["entries"] = s.deps.Index.Size()
	}
	if s.deps.Ledger != nil {
		stats, err := s.deps.Ledger.Stats(r.Context())
		if err != nil {
			s.logger.Error("status: ledger stats failed", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		resp["ingestions"] = stats
	}

	st := s.config.Storage
	resp["config"] = map[string]interface{}{
		"chunk_size":         s.config.Chunking.Size,
		"chunk_overlap":      s.config.Chunking.Overlap,
		"top_k":              s.config.Retrieval.TopK,
		"hybrid":             s.config.Retrieval.Hybrid,
		"index_path":         st.IndexPath,
		"ledger_path":        st.LedgerPath,
		"keyword_index_path": st.KeywordIndexPath,
	}
	if diskBytes, err := storage.DiskUsageBytes(st.IndexPath, st.LedgerPath, st.KeywordIndexPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleIngestions(w http.ResponseWriter, r *http.Request) {
	if s.deps.Ledger == nil {
		s.respondError(w, http.StatusNotImplemented, "ingestion ledger not enabled")
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.respondError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}
	records, err := s.deps.Ledger.List(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list ingestions failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if records == nil {
		records = []*models.IngestionRecord{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"ingestions": records})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondErr logs err and responds with the status its kind maps to.
func (s *Server) respondErr(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Warn(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}
