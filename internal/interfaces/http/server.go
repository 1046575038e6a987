package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/breakoutlab/superstock/internal/application/pipeline"
)

// Server serves the latest scan results and the metrics endpoint. Results
// are replaced atomically after each scan; readers always see a complete
// batch.
type Server struct {
	metrics *MetricsRegistry
	log     zerolog.Logger
	started time.Time

	mu      sync.RWMutex
	results []pipeline.Result
	scanned time.Time

	srv *http.Server
}

// NewServer builds the results server on the given listen address.
func NewServer(addr string, metrics *MetricsRegistry, log zerolog.Logger) *Server {
	s := &Server{
		metrics: metrics,
		log:     log,
		started: time.Now(),
	}
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Router wires all routes, exposed separately so tests can drive the
// handlers without a listener.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	api.HandleFunc("/results/{symbol}", s.handleResult).Methods(http.MethodGet)
	return r
}

// SetResults publishes a finished scan batch.
func (s *Server) SetResults(results []pipeline.Result, scanned time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = results
	s.scanned = scanned
}

// ListenAndServe blocks serving requests until Shutdown or a listener
// error.
func (s *Server) ListenAndServe() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	scanned := s.scanned
	count := len(s.results)
	s.mu.RUnlock()

	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"uptime":    time.Since(s.started).String(),
		"results":   count,
		"last_scan": scanned,
	})
}

// handleResults returns the ranked batch. Optional query parameters:
// min_score filters by total score, limit caps the result count.
func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	minScore := 0.0
	if raw := r.URL.Query().Get("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "min_score must be a number")
			return
		}
		minScore = v
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = v
	}

	s.mu.RLock()
	scanned := s.scanned
	filtered := make([]pipeline.Result, 0, len(s.results))
	for _, res := range s.results {
		if res.Score.TotalScore >= minScore {
			filtered = append(filtered, res)
		}
	}
	s.mu.RUnlock()

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"scanned_at": scanned,
		"count":      len(filtered),
		"results":    filtered,
	})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, res := range s.results {
		if res.Symbol == symbol {
			s.writeJSON(w, http.StatusOK, res)
			return
		}
	}
	s.writeError(w, http.StatusNotFound, "symbol not in latest scan")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn().Err(err).Msg("encode response failed")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
