// Package server exposes a small JSON API over the reconciler: status, diff,
// and on-demand reconcile runs.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"schema_reconciler/internal/reconcile"
)

// Service is the reconciler surface the API exposes. Satisfied by
// *reconcile.Service and by fakes in tests.
type Service interface {
	Status(ctx context.Context) (reconcile.Status, error)
	Diff(ctx context.Context) (reconcile.DiffReport, error)
	Reconcile(ctx context.Context) (reconcile.Summary, error)
}

type requestLogger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type Server struct {
	svc    Service
	logger requestLogger
}

func New(svc Service, logger requestLogger) *Server {
	return &Server{svc: svc, logger: logger}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)
	r.Get("/api/status", s.handleStatus)
	r.Get("/api/diff", s.handleDiff)
	r.Post("/api/reconcile", s.handleReconcile)
	return r
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("http server starting", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.svc.Status(r.Context())
	if err != nil {
		s.logger.Error("status failed", "error", err)
		writeError(w, http.StatusInternalServerError, "status_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleDiff(w http.ResponseWriter, r *http.Request) {
	report, err := s.svc.Diff(r.Context())
	if err != nil {
		s.logger.Error("diff failed", "error", err)
		writeError(w, http.StatusInternalServerError, "diff_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Reconcile(r.Context())
	if err != nil {
		s.logger.Error("reconcile failed", "error", err)
		writeError(w, http.StatusInternalServerError, "reconcile_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
