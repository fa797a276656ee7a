package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/quantbyte/rotor/internal/metrics"
)

// Server is the read-only JSON API over the published strategy state
type Server struct {
	router  *mux.Router
	server  *http.Server
	state   *State
	metrics *metrics.Registry
	started time.Time
}

// NewServer creates the API server on the listen address
func NewServer(addr string, state *State, registry *metrics.Registry) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		state:   state,
		metrics: registry,
		started: time.Now(),
	}
	s.setupRoutes()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.Handle("/metrics",
		promhttp.HandlerFor(s.metrics.Prometheus(), promhttp.HandlerOpts{})).Methods("GET")

	api := s.router.PathPrefix("/v1").Subrouter()
	api.Use(jsonContentTypeMiddleware)
	api.HandleFunc("/scores", s.handleScores).Methods("GET")
	api.HandleFunc("/portfolio", s.handlePortfolio).Methods("GET")

	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Handler exposes the router, used by tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown or a listener error
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("http server starting (read-only)")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests and stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("http server shutting down")
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int64(time.Since(s.started).Seconds()),
	})
}

func (s *Server) handleScores(w http.ResponseWriter, r *http.Request) {
	scores, asOf := s.state.Scores()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":  asOf,
		"count":  len(scores),
		"scores": scores,
	})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	state, asOf, ok := s.state.Portfolio()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "no portfolio snapshot published",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"as_of":     asOf,
		"portfolio": state,
	})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()[:8]
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)

		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("duration", time.Since(start)).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("failed to encode response")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
