// Package hostapi provides a thin HTTP control surface for a running
// engine host: status and flatten-all-positions. The engine itself is a
// library with no wire protocol of its own; the operator affordances
// live here, in the surrounding host process.
package hostapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/atlas-desktop/strategy-engine/internal/engine"
)

// Engine is the slice of the engine this control surface drives. The
// server calls it from net/http's per-request goroutines, so the
// implementation MUST serialize each call onto the engine's single
// dispatcher thread -- the engine takes no locks of its own. The host
// process's dispatcher provides that implementation; handlers never
// touch *engine.Host directly.
type Engine interface {
	State() engine.LifecycleState
	FlattenAllPositions() error
}

// Server is the control-surface HTTP server wrapping a single engine.
type Server struct {
	logger     *zap.Logger
	engine     Engine
	router     *mux.Router
	httpServer *http.Server
}

// NewServer builds a Server for eng, routing /status and /flatten-all,
// wrapped in a permissive CORS handler.
func NewServer(logger *zap.Logger, eng Engine, addr string) *Server {
	s := &Server{logger: logger.Named("hostapi"), engine: eng, router: mux.NewRouter()}

	s.router.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	s.router.HandleFunc("/flatten-all", s.handleFlattenAll).Methods(http.MethodPost)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(s.router)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// ListenAndServe starts the HTTP server, blocking until it stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("hostapi listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("hostapi listen: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type statusResponse struct {
	State string `json:"state"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(statusResponse{State: string(s.engine.State())})
}

type flattenAllResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// handleFlattenAll flattens every active position from an
// operator-facing HTTP call -- useful for a human to intervene on a
// live host without stopping it outright.
func (s *Server) handleFlattenAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.engine.FlattenAllPositions(); err != nil {
		s.logger.Error("flatten-all request failed", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(flattenAllResponse{OK: false, Error: err.Error()})
		return
	}
	json.NewEncoder(w).Encode(flattenAllResponse{OK: true})
}
