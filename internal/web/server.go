package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"picking-dash/internal/analysis"
	"picking-dash/internal/apierrors"
	"picking-dash/internal/config"
	"picking-dash/internal/metrics"
)

// Options configure the dashboard server.
type Options struct {
	HTTP config.HTTPConfig
	// Location interprets zone-less dates in filter requests. Defaults to the service location.
	Location *time.Location
	// Metrics may be nil, in which case /metrics answers 404.
	Metrics *metrics.Recorder
	Logger  zerolog.Logger
	Version string
}

// Server serves the dashboard page and its JSON API.
type Server struct {
	svc      *analysis.Service
	opts     Options
	loc      *time.Location
	logger   zerolog.Logger
	errors   *apierrors.Handler
	validate *validator.Validate
	router   chi.Router
	http     *http.Server
	started  time.Time
}

// NewServer wires the router around svc.
func NewServer(svc *analysis.Service, opts Options) *Server {
	loc := opts.Location
	if loc == nil {
		loc = svc.Location()
	}
	s := &Server{
		svc:      svc,
		opts:     opts,
		loc:      loc,
		logger:   opts.Logger.With().Str("component", "http").Logger(),
		errors:   apierrors.NewHandler(opts.Logger),
		validate: newValidator(),
		started:  time.Now(),
	}
	s.router = s.routes()
	s.http = &http.Server{
		Addr:         opts.HTTP.Addr,
		Handler:      s.router,
		ReadTimeout:  opts.HTTP.ReadTimeout,
		WriteTimeout: opts.HTTP.WriteTimeout,
	}
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	// RequestID → RealIP → Logger → Recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(s.logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	}))
	r.Use(middleware.Recoverer)

	r.NotFound(s.errors.NotFound)
	r.MethodNotAllowed(s.errors.MethodNotAllowed)

	r.Get("/", s.handlePage)
	r.Handle("/metrics", s.opts.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/health", s.handleHealth)
		r.Mount("/datasets", s.datasetRoutes())
	})
	return r
}

func (s *Server) datasetRoutes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", s.handleUpload)
	r.Get("/", s.handleList)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.handleGet)
		r.Delete("/", s.handleDelete)
		r.Post("/dashboard", s.handleDashboard)
		r.Post("/outliers/{dimension}", s.handleOutliers)
		r.Post("/export", s.handleExport)
	})
	return r
}

// Handler exposes the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr is the configured listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// ListenAndServe listens on the configured address. It returns nil after Shutdown.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.http.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("Dashboard server listening")
	if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded by the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.opts.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info().Msg("Shutting down dashboard server")
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

// WaitReady polls the health endpoint under baseURL until it answers 200 or ctx ends.
func WaitReady(ctx context.Context, baseURL string) error {
	client := &http.Client{
		Timeout:   time.Second,
		Transport: &http.Transport{DisableKeepAlives: true},
	}
	healthURL := baseURL + "/api/health"
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, healthURL, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("server at %s did not become ready: %w", baseURL, ctx.Err())
		case <-ticker.C:
		}
	}
}
