// Package api exposes the run status endpoints: health, stats, and the
// Prometheus scrape handler.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/LoayTarek5/Web-Scraper/internal/dispatcher"
	"github.com/LoayTarek5/Web-Scraper/internal/metrics"
	"github.com/LoayTarek5/Web-Scraper/internal/stats"
)

// Server serves the status API next to a dispatcher run.
type Server struct {
	port    int
	tracker *stats.Tracker
	disp    *dispatcher.Dispatcher
	logger  *zap.Logger
}

// New assembles the server. The tracker and dispatcher are read-only
// here; the server never influences the run.
func New(port int, tracker *stats.Tracker, disp *dispatcher.Dispatcher, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{port: port, tracker: tracker, disp: disp, logger: logger}
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealth)
	r.Get("/stats", s.handleStats)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.logger.Info("status api listening", zap.Int("port", s.port))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("status api: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("status api shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statsResponse struct {
	RunID       string                        `json:"run_id"`
	State       string                        `json:"state"`
	Total       int64                         `json:"total"`
	Succeeded   int64                         `json:"succeeded"`
	Failed      int64                         `json:"failed"`
	SuccessRate float64                       `json:"success_rate"`
	Bytes       int64                         `json:"bytes"`
	ElapsedMS   int64                         `json:"elapsed_ms"`
	Domains     map[string]stats.DomainCounts `json:"domains,omitempty"`
	ErrorKinds  map[string]int64              `json:"error_kinds,omitempty"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.tracker.Snapshot()
	s.writeJSON(w, http.StatusOK, statsResponse{
		RunID:       s.disp.RunID().String(),
		State:       s.disp.State().String(),
		Total:       snap.Total,
		Succeeded:   snap.Succeeded,
		Failed:      snap.Failed,
		SuccessRate: snap.SuccessRate(),
		Bytes:       snap.Bytes,
		ElapsedMS:   snap.Elapsed.Milliseconds(),
		Domains:     snap.Domains,
		ErrorKinds:  snap.ErrorKinds,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("write response", zap.Error(err))
	}
}
