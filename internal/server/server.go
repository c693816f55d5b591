// Package server exposes the ask, search and knowledge base operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"bookrag/internal/domain"
	"bookrag/internal/logger"
	"bookrag/internal/metrics"
	"bookrag/internal/usecase"
)

const maxBodyBytes = 1 << 20

// SearchRequest is the body of POST /search.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// Server wires the use cases to an http.Server.
type Server struct {
	ask          *usecase.AskUseCase
	search       *usecase.SearchUseCase
	kb           *usecase.KnowledgeBase
	defaultLimit int
	log          *logger.Logger
	metrics      *metrics.Metrics
	server       *http.Server
}

// New creates a server listening on addr. m may be nil, in which case
// /metrics is not served.
func New(
	addr string,
	ask *usecase.AskUseCase,
	search *usecase.SearchUseCase,
	kb *usecase.KnowledgeBase,
	defaultLimit int,
	log *logger.Logger,
	m *metrics.Metrics,
) *Server {
	if log == nil {
		log = logger.Nop()
	}
	if defaultLimit <= 0 {
		defaultLimit = 5
	}
	s := &Server{
		ask:          ask,
		search:       search,
		kb:           kb,
		defaultLimit: defaultLimit,
		log:          log.Component("server"),
		metrics:      m,
	}
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the routed handler wrapped in the observability middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("POST /chat", s.handleChat)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /books", s.handleBooks)
	mux.HandleFunc("GET /knowledge-status", s.handleKnowledgeStatus)
	mux.HandleFunc("GET /health", s.handleHealth)
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics.Handler())
	}
	return s.observe(mux)
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.log.LogServerStart(s.server.Addr, s.kb.HealthCheck(context.Background()).StorePath)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.LogServerShutdown()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Book knowledge assistant",
		"endpoints": []string{
			"POST /chat", "POST /search", "GET /books", "GET /knowledge-status", "GET /health",
		},
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req usecase.AskRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answer := s.ask.Ask(r.Context(), req)
	status := http.StatusOK
	if answer.Status == domain.AnswerRejected {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, answer)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = s.defaultLimit
	}

	resp, err := s.search.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyQuery) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.log.Error().Err(err).Msg("search failed")
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	books, err := s.kb.Books(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("listing books failed")
		writeError(w, http.StatusInternalServerError, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"books":       books,
		"total_books": len(books),
	})
}

func (s *Server) handleKnowledgeStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.kb.HealthCheck(r.Context()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"service":        "bookrag",
		"knowledge_base": s.kb.HealthCheck(r.Context()),
	})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// observe logs every request and records it in the HTTP metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		s.log.LogRequest(r.Method, r.URL.Path, rec.status, duration)
		// The mux sets r.Pattern, so the label set stays bounded by the routes.
		if route := routeLabel(r.Pattern); s.metrics != nil && route != "/metrics" {
			s.metrics.RecordHTTPRequest(route, strconv.Itoa(rec.status), duration)
		}
	})
}

func routeLabel(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	if _, path, ok := strings.Cut(pattern, " "); ok {
		pattern = path
	}
	if pattern == "/{$}" {
		return "/"
	}
	return pattern
}
