// Package server exposes buckets, match scores and rollups over HTTP.
package server

import (
	"context"
	"net/http"
	"time"

	"riftstats/internal/analysis"
	"riftstats/internal/db"
	"riftstats/internal/stats"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// BucketReader is the read side of the bucket store.
type BucketReader interface {
	FindBucket(ctx context.Context, key stats.BucketKey) (stats.Bucket, error)
	TopBuckets(ctx context.Context, q db.TopQuery) ([]stats.Bucket, error)
}

// MatchScorer scores a match by id.
type MatchScorer interface {
	ScoreMatch(ctx context.Context, matchID string) (analysis.MatchScores, error)
}

// Config holds server configuration.
type Config struct {
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
	// Now anchors rollup heatmaps; defaults to time.Now.
	Now func() time.Time
}

// Server holds the HTTP router and its dependencies.
type Server struct {
	router  *chi.Mux
	buckets BucketReader
	scorer  MatchScorer
	logger  *log.Logger
	now     func() time.Time
}

// NewServer creates the HTTP server.
func NewServer(buckets BucketReader, scorer MatchScorer, cfg Config) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		buckets: buckets,
		scorer:  scorer,
		logger:  log.WithPrefix("[HTTP]"),
		now:     cfg.Now,
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.setupRoutes(cfg.MetricsHandler)
	return s
}

func (s *Server) setupRoutes(metricsHandler http.Handler) {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/buckets/top", s.handleTopBuckets)
		r.Get("/buckets/{kind}", s.handleBucket)
		r.Get("/matches/{matchID}/scores", s.handleMatchScores)
		r.Post("/rollup", s.handleRollup)
	})
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Server shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()))
	})
}
