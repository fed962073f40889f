// Package api is the HTTP front door for the resize pipeline.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/pixelcache/internal/domain"
	"github.com/dunamismax/pixelcache/internal/pipeline"
)

// Computed responses never change for a given derived key, so downstream
// caches may hold them indefinitely.
const cacheControl = "public, max-age=31536000, immutable"

type Orchestrator interface {
	Resolve(ctx context.Context, req pipeline.Request) (pipeline.Response, error)
	Original(ctx context.Context, rawPath string) (pipeline.Response, error)
}

type Server struct {
	logger                *log.Logger
	orchestrator          Orchestrator
	metrics               *metrics
	tracer                trace.Tracer
	rateLimiter           RateLimiter
	rateLimitUserIDHeader string
	mux                   *http.ServeMux
}

type Config struct {
	Logger                *log.Logger
	Orchestrator          Orchestrator
	Registry              *prometheus.Registry
	RateLimiter           RateLimiter
	RateLimitUserIDHeader string
}

func NewServer(cfg Config) *Server {
	header := cfg.RateLimitUserIDHeader
	if header == "" {
		header = "X-User-ID"
	}

	s := &Server{
		logger:                cfg.Logger,
		orchestrator:          cfg.Orchestrator,
		metrics:               newMetrics(cfg.Registry),
		tracer:                otel.Tracer("pixelcache/api"),
		rateLimiter:           cfg.RateLimiter,
		rateLimitUserIDHeader: header,
		mux:                   http.NewServeMux(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.withHTTPMetrics(h)
	h = s.withTracing(h)
	h = s.withRateLimit(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.HandleFunc("GET /resize", s.handleResize)
	s.mux.HandleFunc("GET /original", s.handleOriginal)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResize(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := pipeline.Request{
		RawPath:   q.Get("image"),
		Size:      q.Get("size"),
		Width:     q.Get("width"),
		Height:    q.Get("height"),
		Fit:       q.Get("fit"),
		Watermark: q.Get("watermark"),
	}

	resp, err := s.orchestrator.Resolve(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeImage(w, resp)
}

func (s *Server) handleOriginal(w http.ResponseWriter, r *http.Request) {
	resp, err := s.orchestrator.Original(r.Context(), r.URL.Query().Get("image"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeImage(w, resp)
}

// writeError maps the error taxonomy onto status codes. Validation errors
// carry their message; everything else is opaque to the caller.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrSourceNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "source image not found"})
	default:
		if s.logger != nil {
			s.logger.Printf("request failed path=%s query=%q err=%v", r.URL.Path, r.URL.RawQuery, err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeImage(w http.ResponseWriter, resp pipeline.Response) {
	w.Header().Set("Content-Type", resp.ContentType)
	w.Header().Set("Cache-Control", cacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(resp.Data)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
