package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/jkfsjkfs/proyecto-rutas/internal/config"
	"github.com/jkfsjkfs/proyecto-rutas/internal/handlers"
	"github.com/jkfsjkfs/proyecto-rutas/internal/observability"
)

// Server wraps the HTTP server and its listener
type Server struct {
	httpServer *http.Server
	listener   net.Listener
	addr       string
	logger     *zap.Logger
}

// Deps are the collaborators the router needs
type Deps struct {
	Handler  *handlers.Handler
	Metrics  *observability.Metrics
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// New creates a server (does not start it)
func New(cfg config.Server, deps Deps) (*Server, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router, err := NewRouter(cfg, deps)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		addr:       cfg.Addr,
		logger:     deps.Logger,
	}, nil
}

// NewRouter builds the middleware chain and mounts the API and /metrics
func NewRouter(cfg config.Server, deps Deps) (http.Handler, error) {
	if deps.Handler == nil {
		return nil, errors.New("server: handler is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(logger))
	r.Use(middleware.Recoverer)
	if deps.Metrics != nil {
		r.Use(deps.Metrics.HTTPMiddleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if cfg.RateLimit.RPS > 0 {
		limiter, err := newIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, ipLimiterCacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limiter: %w", err)
		}
		r.Use(limiter.Middleware)
	}

	if deps.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}
	handlers.RegisterRoutes(r, deps.Handler)

	return r, nil
}

// Start starts the server and returns the actual address (useful for random port)
func (s *Server) Start() (string, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen: %w", err)
	}

	s.listener = listener
	actualAddr := listener.Addr().String()
	s.logger.Info("[HTTP] starting server", zap.String("addr", actualAddr))

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("[HTTP] server error", zap.Error(err))
		}
	}()

	return actualAddr, nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func accessLog(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			logger.Info("[HTTP] request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", status),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
