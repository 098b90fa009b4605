// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"inspectview/internal/domain/auth"
	"inspectview/internal/domain/filteredit"
	"inspectview/internal/infrastructure/celeval"
	"inspectview/internal/infrastructure/http/v1/handlers"
	"inspectview/internal/infrastructure/http/v1/middleware"
	"inspectview/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Logger for request logging
	Logger *logger.Logger

	// JWT validates service tokens; when nil or without a secret, /api/v1 is open.
	JWT *auth.JWTService

	// Codec formats and parses filter values
	Codec filteredit.Codec

	// Evaluator runs conditions against inline rows
	Evaluator *celeval.Evaluator

	// Engine executes table queries; Planners resolves per-table SQL planners.
	// Either may be nil.
	Engine   handlers.Engine
	Planners handlers.PlannerSource

	// HealthChecks are pinged by /health/ready
	HealthChecks map[string]handlers.Pinger

	Version string
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Version, cfg.HealthChecks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Decompress())
	if cfg.JWT.Enabled() {
		v1.Use(middleware.Auth(cfg.JWT))
	}

	base := handlers.NewBaseHandler()

	filters := v1.Group("/filters")
	if cfg.JWT.Enabled() {
		filters.Use(middleware.RequireScope(auth.ScopeFilters))
	}
	handlers.NewFilterHandler(base, cfg.Codec, cfg.Planners, cfg.Evaluator).RegisterRoutes(filters)

	if cfg.Engine != nil {
		tables := v1.Group("/tables")
		if cfg.JWT.Enabled() {
			tables.Use(middleware.RequireScope(auth.ScopeQuery))
		}
		handlers.NewQueryHandler(base, cfg.Engine).RegisterRoutes(tables)
	}

	return router
}
