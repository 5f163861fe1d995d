package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/hongminglow/timecard-be/internal/auth"
	"github.com/hongminglow/timecard-be/internal/config"
	"github.com/hongminglow/timecard-be/internal/http/handlers"
	"github.com/hongminglow/timecard-be/internal/middleware"
	"github.com/hongminglow/timecard-be/internal/storage"
)

// Deps are the long-lived collaborators the router needs. Redis is optional.
type Deps struct {
	Store storage.Store
	Redis *redis.Client
	Log   zerolog.Logger
}

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// NewHandler builds the full route tree. It is separate from New so tests can
// mount it on httptest.
func NewHandler(cfg config.Config, deps Deps) (http.Handler, error) {
	if deps.Store == nil {
		return nil, errors.New("server: store is required")
	}
	authLimiter, err := middleware.NewIPRateLimiter(cfg.AuthRateLimit, deps.Redis)
	if err != nil {
		return nil, fmt.Errorf("auth rate limiter: %w", err)
	}
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)

	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(middleware.Logging(deps.Log))
	r.Use(chimid.Recoverer)
	if cfg.MetricsEnabled {
		r.Use(middleware.Metrics)
	}
	r.Use(middleware.Secure(middleware.SecureOptions(cfg.Development)))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	handlers.NewHealthHandler(time.Now(), deps.Store, deps.Redis).Register(r)
	if cfg.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(pub chi.Router) {
			pub.Use(authLimiter)
			handlers.NewAuthHandler(deps.Store, tokens, cfg.BcryptCost, deps.Log).Register(pub)
		})
		api.Group(func(priv chi.Router) {
			priv.Use(middleware.RequireAuth(tokens))
			handlers.NewEntriesHandler(deps.Store, deps.Log).Register(priv)
			handlers.NewSummariesHandler(deps.Store, deps.Log).Register(priv)
		})
	})

	static := handlers.NewStaticHandler(cfg.StaticDir)
	r.NotFound(static.ServeHTTP)

	return r, nil
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, deps Deps) (*Server, error) {
	handler, err := NewHandler(cfg, deps)
	if err != nil {
		return nil, err
	}

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}, nil
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
