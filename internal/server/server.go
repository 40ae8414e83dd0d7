// Package server exposes the snapshot, the ledger and metrics over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hnwatch/internal/state"
	"hnwatch/internal/story"
)

type Server struct {
	router   chi.Router
	snapshot *state.Snapshot
	ledger   *state.Ledger
	logger   *slog.Logger
}

// LedgerStatus is the body of GET /api/ledger.
type LedgerStatus struct {
	Pending  int   `json:"pending"`
	Notified int   `json:"notified"`
	Capacity int   `json:"capacity"`
	History  []int `json:"history"`
}

func New(snapshot *state.Snapshot, ledger *state.Ledger, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		snapshot: snapshot,
		ledger:   ledger,
		logger:   logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", s.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stories/{category}", s.stories)
		r.Get("/items/{id}", s.item)
		r.Get("/ledger", s.ledgerStatus)
	})
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server started", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	s.logger.Info("HTTP server stopped")
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"stories": s.snapshot.Len(),
	})
}

func (s *Server) stories(w http.ResponseWriter, r *http.Request) {
	c, err := story.ParseCategory(chi.URLParam(r, "category"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list := s.snapshot.StoriesIn(c)
	if list == nil {
		list = []story.Story{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) item(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid item id")
		return
	}
	st, ok := s.snapshot.StoryByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, "item not in snapshot")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) ledgerStatus(w http.ResponseWriter, r *http.Request) {
	history := s.ledger.History()
	if history == nil {
		history = []int{}
	}
	writeJSON(w, http.StatusOK, LedgerStatus{
		Pending:  s.ledger.PendingLen(),
		Notified: s.ledger.NotifiedLen(),
		Capacity: s.ledger.Capacity(),
		History:  history,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
