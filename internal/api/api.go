// Package api serves the indexed entities read-only over HTTP, alongside
// the health, metrics and pool valuation WebSocket endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atmx/aco-indexer/internal/feed"
	"github.com/atmx/aco-indexer/internal/metrics"
	"github.com/atmx/aco-indexer/internal/model"
	"github.com/atmx/aco-indexer/internal/store"
)

// Service answers entity lookups from the store.
type Service struct {
	store store.Store
	hub   *feed.WSHub // optional
}

// NewService creates a Service. hub may be nil.
func NewService(s store.Store, hub *feed.WSHub) *Service {
	return &Service{store: s, hub: hub}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Service) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(metrics.Middleware(routePattern))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"aco-indexer"}`))
	})
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if s.hub != nil {
			r.Get("/ws", s.hub.HandleWS)
		}
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(10 * time.Second))
			r.Get("/entities/{kind}", s.ListEntities)
			r.Get("/entities/{kind}/{id}", s.GetEntity)
		})
	})
	return r
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// GetEntity handles GET /api/v1/entities/{kind}/{id}. Ids are matched
// case-insensitively, as entity ids are lowercase.
func (s *Service) GetEntity(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	id := strings.ToLower(chi.URLParam(r, "id"))
	if !model.IsKind(kind) {
		writeError(w, "unknown entity kind: "+kind, http.StatusBadRequest)
		return
	}

	data, err := s.store.Get(r.Context(), kind, id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, kind+" not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("entity lookup failed", "kind", kind, "id", id, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// ListEntities handles GET /api/v1/entities/{kind}?limit=N and returns the
// ids of a kind. Stores that cannot enumerate answer 501.
func (s *Service) ListEntities(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if !model.IsKind(kind) {
		writeError(w, "unknown entity kind: "+kind, http.StatusBadRequest)
		return
	}
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxListLimit)
	}

	l, ok := s.store.(store.Lister)
	if !ok {
		writeError(w, "listing not supported", http.StatusNotImplemented)
		return
	}
	ids, err := l.List(r.Context(), kind, limit)
	if errors.Is(err, store.ErrNotListable) {
		writeError(w, "listing not supported", http.StatusNotImplemented)
		return
	}
	if err != nil {
		slog.Error("entity listing failed", "kind", kind, "err", err)
		writeError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"kind": kind, "ids": ids})
}

func writeError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
