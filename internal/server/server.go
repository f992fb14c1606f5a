// Package server exposes the snapshot artifacts over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hotspotlabs/hotspot/internal/logging"
	"github.com/hotspotlabs/hotspot/internal/snapshot"
	"github.com/hotspotlabs/hotspot/internal/storage"
	"github.com/hotspotlabs/hotspot/internal/tables"
)

// Config holds the server's dependencies.
type Config struct {
	Addr  string
	Store storage.ObjectStore
	Paths snapshot.Paths
}

// Server serves the materialized snapshot windows. It is a read-through
// over the object store; the aggregator owns artifact generation.
type Server struct {
	addr    string
	store   storage.ObjectStore
	windows map[string]string
	logger  *slog.Logger
}

// New creates a Server from the given configuration.
func New(cfg Config) *Server {
	return &Server{
		addr:  cfg.Addr,
		store: cfg.Store,
		windows: map[string]string{
			"past_week":  cfg.Paths.PastWeek,
			"past_month": cfg.Paths.PastMonth,
			"past_year":  cfg.Paths.PastYear,
		},
		logger: logging.Component("server"),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/{window}", func(r chi.Router) {
		r.Get("/", s.handleWindow)
		r.Get("/top_artists", s.statsHandler(func(rows []tables.SnapshotRow) any {
			return snapshot.TopArtists(rows, statsLimit)
		}))
		r.Get("/top_tracks", s.statsHandler(func(rows []tables.SnapshotRow) any {
			return snapshot.TopTracks(rows, statsLimit)
		}))
		r.Get("/top_albums", s.statsHandler(func(rows []tables.SnapshotRow) any {
			return snapshot.TopAlbums(rows, statsLimit)
		}))
		r.Get("/top_genres", s.statsHandler(func(rows []tables.SnapshotRow) any {
			return snapshot.TopGenres(rows, statsLimit)
		}))
		r.Get("/listens_per_day", s.statsHandler(func(rows []tables.SnapshotRow) any {
			return snapshot.ListensPerDay(rows)
		}))
	})

	return gzhttp.GzipHandler(r)
}

const statsLimit = 25

// ListenAndServe runs the server until the context is cancelled, then
// shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// artifactRows resolves the window name from the URL and loads its
// snapshot artifact.
func (s *Server) artifactRows(w http.ResponseWriter, r *http.Request) ([]tables.SnapshotRow, bool) {
	window := chi.URLParam(r, "window")
	path, ok := s.windows[window]
	if !ok || path == "" {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown window " + window})
		return nil, false
	}

	data, err := s.store.Read(r.Context(), path)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "snapshot not generated yet"})
		return nil, false
	}
	if err != nil {
		s.logger.Error("snapshot read failed", "window", window, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "snapshot unavailable"})
		return nil, false
	}

	var rows []tables.SnapshotRow
	if err := json.Unmarshal(data, &rows); err != nil {
		s.logger.Error("snapshot parse failed", "window", window, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "snapshot corrupt"})
		return nil, false
	}
	return rows, true
}

// handleWindow serves one trailing window's rows.
func (s *Server) handleWindow(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.artifactRows(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"body": rows})
}

// statsHandler adapts an aggregation over snapshot rows into a handler.
func (s *Server) statsHandler(agg func([]tables.SnapshotRow) any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, ok := s.artifactRows(w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"body": agg(rows)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
