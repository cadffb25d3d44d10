// Package server exposes the summary over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"SolarBudget/internal/apperror"
	"SolarBudget/internal/logger"
	"SolarBudget/internal/model"
	"SolarBudget/internal/store"
)

// SummaryProvider builds the summary. *budget.Service satisfies it.
type SummaryProvider interface {
	Summary(ctx context.Context) (model.Summary, error)
}

// Checker reports store health. store.SnapshotStore satisfies it.
type Checker interface {
	Check(ctx context.Context) (*store.CheckReport, error)
}

// Server is the JSON boundary in front of the budget service.
type Server struct {
	httpServer *http.Server
	summary    SummaryProvider
	checker    Checker
	log        *logrus.Entry
}

// NewServer creates a server bound to addr. checker may be nil.
func NewServer(addr string, summary SummaryProvider, checker Checker) *Server {
	s := &Server{
		summary: summary,
		checker: checker,
		log:     logger.Component("server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start begins serving HTTP requests.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.log.WithField("addr", ln.Addr().String()).Info("http server listening")
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("http server")
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("encode response")
	}
}

// GET /api/summary
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.summary.Summary(r.Context())
	if err != nil {
		if apperror.IsUnavailable(err) {
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "data unavailable"})
			return
		}
		s.log.WithError(err).Error("summary")
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	s.writeJSON(w, http.StatusOK, sum)
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.checker == nil {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		return
	}
	rep, err := s.checker.Check(r.Context())
	if err != nil {
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "error": err.Error()})
		return
	}
	status, code := "ok", http.StatusOK
	if !rep.OK() {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, map[string]any{"status": status, "checks": rep.Items})
}
