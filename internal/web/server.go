package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/emiliopalmerini/abcta/internal/domain"
	"github.com/emiliopalmerini/abcta/internal/ports"
)

// Config holds the collector's listening and housekeeping settings.
type Config struct {
	Port      int
	Endpoint  string
	SiteDir   string
	Retention time.Duration
}

// Deps are the collaborators the collector routes requests to.
type Deps struct {
	Events     ports.EventRepository
	Sinks      []ports.Sink
	Metrics    http.Handler
	Prometheus ports.PrometheusClient
	Experiment domain.ExperimentConfig
	Logger     *slog.Logger
}

type Server struct {
	router     *http.ServeMux
	cfg        Config
	events     ports.EventRepository
	sinks      []ports.Sink
	metrics    http.Handler
	prometheus ports.PrometheusClient
	experiment domain.ExperimentConfig
	logger     *slog.Logger
	now        func() time.Time
}

func NewServer(cfg Config, deps Deps) *Server {
	if cfg.Endpoint == "" {
		cfg.Endpoint = domain.DefaultEndpoint
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		router:     http.NewServeMux(),
		cfg:        cfg,
		events:     deps.Events,
		sinks:      deps.Sinks,
		metrics:    deps.Metrics,
		prometheus: deps.Prometheus,
		experiment: deps.Experiment,
		logger:     logger,
		now:        time.Now,
	}
	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	s.router.HandleFunc("POST "+s.cfg.Endpoint, s.handleTrack)
	s.router.HandleFunc("OPTIONS "+s.cfg.Endpoint, s.handleTrackPreflight)

	s.router.HandleFunc("GET /api/experiments/{testID}/summary", s.handleAPISummary)
	s.router.HandleFunc("GET /api/experiments/{testID}/events", s.handleAPIEvents)
	s.router.HandleFunc("GET /experiments/{testID}", s.handleSummaryPage)

	if s.metrics != nil {
		s.router.Handle("GET /metrics", s.metrics)
	}

	if s.cfg.SiteDir != "" {
		s.router.Handle("GET /", http.FileServer(http.Dir(s.cfg.SiteDir)))
	} else if s.experiment.TestID != "" {
		s.router.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/experiments/"+s.experiment.TestID, http.StatusFound)
		})
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting collector", "addr", server.Addr, "endpoint", s.cfg.Endpoint)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if s.cfg.Retention > 0 {
		g.Go(func() error {
			s.runRetention(gctx, time.Hour)
			return nil
		})
	}

	return g.Wait()
}

// runRetention periodically deletes events older than the retention window.
func (s *Server) runRetention(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		s.purge(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Server) purge(ctx context.Context) {
	cutoff := s.now().Add(-s.cfg.Retention)
	n, err := s.events.DeleteBefore(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("failed to purge events", "error", err)
		}
		return
	}
	if n > 0 {
		s.logger.Info("purged events", "count", n, "before", cutoff.UTC())
	}
}
