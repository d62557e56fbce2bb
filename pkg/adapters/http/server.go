// Package http exposes a read-only tooling API over a running arbor
// Context: dependency queries, live stats, prometheus metrics, and an
// SSE stream of hot-reload events.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/arbordev/arbor"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Engine defines the queries the server needs from the arbor core.
// *arbor.Context satisfies it.
type Engine interface {
	Dependents(path string) []string
	ImpactSet(path string) []string
	Stats() arbor.Stats
	Watch(ctx context.Context) (<-chan string, error)
}

// Server serves the tooling API.
type Server struct {
	Engine Engine
	Logger *slog.Logger
}

// NewHandler creates the HTTP handler for the engine.
func NewHandler(engine Engine, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	server := &Server{Engine: engine, Logger: logger}

	r := chi.NewRouter()
	r.Get("/scenes/dependents", server.GetDependents)
	r.Get("/scenes/impact", server.GetImpact)
	r.Get("/stats", server.GetStats)
	r.Get("/healthz", server.GetHealth)
	r.Get("/info", server.GetInfo)
	r.Get("/events", server.SubscribeEvents)
	r.Handle("/metrics", promhttp.Handler())

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.Logger.Error("response encode failed", "err", err)
	}
}

func scenePath(r *http.Request) (string, bool) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	return path, path != ""
}

// GetDependents handles GET /scenes/dependents?path=X.
func (s *Server) GetDependents(w http.ResponseWriter, r *http.Request) {
	path, ok := scenePath(r)
	if !ok {
		http.Error(w, "missing 'path' query parameter", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, map[string]any{
		"path":       path,
		"dependents": orEmpty(s.Engine.Dependents(path)),
	})
}

// GetImpact handles GET /scenes/impact?path=X.
func (s *Server) GetImpact(w http.ResponseWriter, r *http.Request) {
	path, ok := scenePath(r)
	if !ok {
		http.Error(w, "missing 'path' query parameter", http.StatusBadRequest)
		return
	}
	s.writeJSON(w, map[string]any{
		"path":   path,
		"impact": orEmpty(s.Engine.ImpactSet(path)),
	})
}

// GetStats handles GET /stats.
func (s *Server) GetStats(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.Engine.Stats())
}

// GetHealth handles GET /healthz.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":     "arbor-http",
		"version": strings.TrimSpace(arbor.Version),
	})
}

// SubscribeEvents handles GET /events (SSE). Each event is the path of
// a scene that was hot reloaded.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.Logger.Error("SubscribeEvents: streaming not supported")
		return
	}

	events, err := s.Engine.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case path, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reload\ndata: %s\n\n", path)
			flusher.Flush()
		}
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
