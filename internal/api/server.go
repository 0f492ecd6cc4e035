// Package api exposes the operational HTTP surface: health, metrics, and
// per-cache inspection and maintenance endpoints.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/southerncoder/tradecache/internal/cache"
	"github.com/southerncoder/tradecache/internal/metrics"
	"github.com/southerncoder/tradecache/internal/types"
)

// Server wraps the ops handlers over a cache registry.
type Server struct {
	registry  *cache.Registry
	collector *metrics.Collector
	logger    *slog.Logger
	router    *mux.Router
}

// NewServer creates the ops server. The collector is optional; without it
// the /metrics endpoint is not mounted.
func NewServer(registry *cache.Registry, collector *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		registry:  registry,
		collector: collector,
		logger:    logger.With("component", "ops-api"),
		router:    mux.NewRouter(),
	}
	s.routes()
	return s
}

// Router returns the http.Handler to be used by http.Server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods("GET")

	if s.collector != nil {
		s.router.Handle("/metrics", s.collector.Handler()).Methods("GET")
	}

	s.router.HandleFunc("/caches", s.handleList()).Methods("GET")
	s.router.HandleFunc("/caches/{name}/metrics", s.handleMetrics()).Methods("GET")
	s.router.HandleFunc("/caches/{name}/size", s.handleSize()).Methods("GET")
	s.router.HandleFunc("/caches/{name}/optimize", s.handleOptimize()).Methods("POST")
	s.router.HandleFunc("/caches/{name}/clear", s.handleClear()).Methods("POST")
}

func (s *Server) handleList() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"caches": s.registry.Names(),
		})
	}
}

func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.lookup(w, r)
		if !ok {
			return
		}

		m := c.Metrics()
		if s.collector != nil {
			s.collector.Update(c.Name(), m)
		}
		writeJSON(w, m)
	}
}

func (s *Server) handleSize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.lookup(w, r)
		if !ok {
			return
		}
		writeJSON(w, c.SizeInfo())
	}
}

func (s *Server) handleOptimize() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.lookup(w, r)
		if !ok {
			return
		}

		result, err := c.Optimize(r.Context())
		if err != nil {
			s.logger.Warn("Optimize failed", "cache", c.Name(), "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, result)
	}
}

func (s *Server) handleClear() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok := s.lookup(w, r)
		if !ok {
			return
		}

		if err := c.Clear(r.Context()); err != nil {
			s.logger.Warn("Clear failed", "cache", c.Name(), "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*cache.IntelligentCache, bool) {
	name := mux.Vars(r)["name"]
	c, err := s.registry.Get(name)
	if err != nil {
		if errors.Is(err, types.ErrUnknownCache) {
			http.NotFound(w, r)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return nil, false
	}
	return c, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
