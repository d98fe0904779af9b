// Package api is the operator-facing HTTP surface: validation sidecar
// endpoints, session lifecycle hooks, admin operations, health, metrics,
// and a live websocket tail of the audit stream. Everything here sits off
// the engine's hot path.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/groveworld/guardian/internal/engine"
)

// Server wires the HTTP routes around one engine instance.
type Server struct {
	engine   *engine.Engine
	router   *mux.Router
	streamer *Streamer
	logger   *log.Logger
}

// NewServer builds the router.
func NewServer(eng *engine.Engine) *Server {
	s := &Server{
		engine:   eng,
		router:   mux.NewRouter(),
		streamer: NewStreamer(eng.Notifier()),
		logger:   log.New(log.Writer(), "[API] ", log.LstdFlags),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	v1 := s.router.PathPrefix("/v1").Subrouter()

	v1.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	v1.HandleFunc("/integrity", s.handleIntegrity).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/start", s.handleSessionStart).Methods(http.MethodPost)
	v1.HandleFunc("/sessions/{id}/end", s.handleSessionEnd).Methods(http.MethodPost)

	v1.HandleFunc("/actors/{id}/report", s.handleReport).Methods(http.MethodGet)
	v1.HandleFunc("/actors/{id}/reset", s.handleReset).Methods(http.MethodPost)
	v1.HandleFunc("/actors/{id}/unban", s.handleUnban).Methods(http.MethodPost)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/stream", s.streamer.Handle).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(
		s.engine.Metrics().Registry(),
		promhttp.HandlerOpts{},
	)).Methods(http.MethodGet)
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start blocks serving HTTP on the given port.
func (s *Server) Start(port string) error {
	addr := ":" + port
	s.logger.Printf("Listening on %s", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 0, // websocket stream stays open
	}
	return srv.ListenAndServe()
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
