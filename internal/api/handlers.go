package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/corpus"
	"tortuosity/internal/domain"
)

type analyzeRequest struct {
	Documents json.RawMessage `json:"documents"`
	TopN      *int            `json:"top_n,omitempty"`
}

type analyzeResponse struct {
	Batch  domain.Batch     `json:"batch"`
	Report aggregate.Report `json:"report"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.jsonError(w, fmt.Sprintf("body exceeds max size (%d bytes)", s.opts.MaxBodyBytes), http.StatusRequestEntityTooLarge)
			return
		}
		s.jsonError(w, "failed to read body", http.StatusBadRequest)
		return
	}

	var req analyzeRequest
	if err := json.Unmarshal(data, &req); err != nil {
		s.jsonError(w, "invalid request: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Documents) == 0 {
		s.jsonError(w, "documents is required", http.StatusBadRequest)
		return
	}
	c, err := corpus.ParseJSON(req.Documents)
	if err != nil {
		s.jsonError(w, "invalid documents: "+err.Error(), http.StatusBadRequest)
		return
	}

	batch, err := s.service.Analyze(r.Context(), c.Documents)
	if err != nil {
		if errors.Is(err, domain.ErrNoEmbeddings) {
			s.jsonError(w, err.Error(), http.StatusServiceUnavailable)
			return
		}
		s.log.WithError(err).Error("analyze failed")
		s.jsonError(w, "analysis failed", http.StatusInternalServerError)
		return
	}
	batch.Failed = append(c.Failed, batch.Failed...)

	opts := s.opts.Report
	if req.TopN != nil && *req.TopN >= 0 {
		opts.TopN = *req.TopN
	}
	s.writeJSON(w, http.StatusOK, analyzeResponse{Batch: batch, Report: aggregate.Build(batch, opts)})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, msg string, code int) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}
