// Package api exposes the HTTP interface for the tracker service.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/aromano/pricewatch/internal/metrics"
	"github.com/aromano/pricewatch/internal/tracker"
)

// Server wires HTTP handlers to the snapshot store and target list.
type Server struct {
	router  chi.Router
	store   tracker.SnapshotStore
	targets []string
	logger  *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(store tracker.SnapshotStore, targets []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		store:   store,
		targets: targets,
		logger:  logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(timeoutMiddleware(30 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/targets", s.listTargets)
		r.Get("/targets/latest", s.latestSnapshot)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	// A store round trip proves the persistence layer is reachable.
	if len(s.targets) > 0 {
		if _, err := s.store.GetLastByURL(r.Context(), s.targets[0]); err != nil {
			writeError(w, http.StatusServiceUnavailable, "store unavailable")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type targetView struct {
	URL      string                   `json:"url"`
	Snapshot *tracker.ProductSnapshot `json:"snapshot"`
}

func (s *Server) listTargets(w http.ResponseWriter, r *http.Request) {
	views := make([]targetView, 0, len(s.targets))
	for _, target := range s.targets {
		snap, err := s.store.GetLastByURL(r.Context(), target)
		if err != nil {
			s.logger.Error("list targets: store lookup failed",
				zap.String("url", target),
				zap.Error(err),
			)
			writeError(w, http.StatusInternalServerError, "store lookup failed")
			return
		}
		views = append(views, targetView{URL: target, Snapshot: snap})
	}
	writeJSON(w, http.StatusOK, map[string]any{"targets": views})
}

func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeError(w, http.StatusBadRequest, "url query parameter required")
		return
	}
	snap, err := s.store.GetLastByURL(r.Context(), target)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "store lookup failed")
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot for url")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
