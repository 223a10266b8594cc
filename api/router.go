package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/menugrab/api/handler"
	"github.com/use-agent/menugrab/api/middleware"
	"github.com/use-agent/menugrab/cache"
	"github.com/use-agent/menugrab/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
// ctx bounds the background sweeps of the rate limiter.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is outside auth so monitoring probes always work.
func NewRouter(ctx context.Context, ex handler.Extractor, jobs *handler.JobStore, cfg *config.Config, cc *cache.Cache, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health: no auth required.
	v1.GET("/health", handler.Health(ex, startTime))

	// Protected group: auth and rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	// Synchronous extraction
	protected.POST("/extract", handler.Extract(ex, cc))

	// Async jobs
	protected.POST("/jobs", handler.PostJob(ex, jobs))
	protected.GET("/jobs/:id", handler.GetJob(jobs))

	return r
}
