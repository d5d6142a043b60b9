// Package api exposes the analysis service over HTTP.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"tortuosity/internal/aggregate"
	"tortuosity/internal/domain"
)

// Options configures request handling.
type Options struct {
	// MaxBodyBytes caps the request body of /api/analyze.
	MaxBodyBytes int64
	Report       aggregate.Options
}

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	service domain.AnalysisService
	log     *logrus.Entry
	opts    Options
}

// NewServer creates and configures the HTTP server.
func NewServer(svc domain.AnalysisService, log *logrus.Entry, opts Options) *Server {
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 32 << 20
	}
	s := &Server{
		service: svc,
		log:     log,
		opts:    opts,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Post("/api/analyze", s.handleAnalyze)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
