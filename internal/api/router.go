// Package api exposes the analytics service over HTTP
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/savegress/opsight/internal/analytics"
	"github.com/savegress/opsight/internal/observability"
	"github.com/savegress/opsight/pkg/models"
)

// HealthCheck reports the state of one dependency
type HealthCheck func(ctx context.Context) error

// Options configures the server
type Options struct {
	// JWTSecret enables bearer auth on /api/v1 when set
	JWTSecret      string
	AllowedOrigins []string
	Logger         *zap.Logger
	Checks         map[string]HealthCheck
}

// Server represents the API server
type Server struct {
	router    chi.Router
	analytics *analytics.Service
	logger    *zap.Logger
	opts      Options
}

// NewServer creates a new API server
func NewServer(svc *analytics.Service, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"*"}
	}
	s := &Server{
		router:    chi.NewRouter(),
		analytics: svc,
		logger:    opts.Logger.Named("api"),
		opts:      opts,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(observability.Instrument)

	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "If-None-Match", "X-Request-ID"},
		ExposedHeaders: []string{"ETag"},
		MaxAge:         300,
	}))

	s.router.Get("/health", s.healthCheck)
	s.router.Handle("/metrics", observability.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		if s.opts.JWTSecret != "" {
			r.Use(AuthMiddleware(s.opts.JWTSecret))
		}

		// Machines
		r.Route("/machines", func(r chi.Router) {
			r.Get("/oee", s.fleetOEE)
			r.Get("/{id}/oee", s.machineOEE)
			r.Get("/{id}/downtime", s.machineDowntime)
			r.Get("/{id}/statistics", s.machineStatistics)
			r.Get("/{id}/utilization", s.machineUtilization)
			s.entityRoutes(r, models.EntityMachine)
		})

		// Operators
		r.Route("/operators", func(r chi.Router) {
			r.Get("/top", s.topPerformers)
			r.Get("/skill-levels", s.skillLevels)
			r.Get("/{id}/performance", s.operatorPerformance)
			r.Get("/{id}/skill-development", s.skillDevelopment)
			s.entityRoutes(r, models.EntityOperator)
		})

		// Jobs
		r.Route("/jobs", func(r chi.Router) {
			r.Get("/schedule", s.schedule)
			r.Get("/{id}/performance", s.jobPerformance)
			s.entityRoutes(r, models.EntityJob)
		})

		r.Get("/customers/{id}/jobs", s.customerJobs)

		// Parts
		r.Route("/parts", func(r chi.Router) {
			r.Get("/materials", s.materials)
			r.Get("/complexity", s.partComplexity)
			r.Get("/statistics", s.partCatalogSummary)
			r.Get("/{id}/production", s.partProduction)
			r.Get("/{id}/recommendations", s.partRecommendations)
			s.entityRoutes(r, models.EntityPart)
		})

		// Benchmarks
		r.Get("/benchmarks/machines", s.machineBenchmarks)
		r.Get("/benchmarks/operators", s.operatorBenchmarks)
	})
}

// entityRoutes mounts the endpoints every entity type supports
func (s *Server) entityRoutes(r chi.Router, entity models.EntityType) {
	r.Get("/{id}/summary", s.summary(entity))
	r.Get("/{id}/trends", s.trends(entity))
	r.Get("/{id}/insights", s.insights(entity))
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}
