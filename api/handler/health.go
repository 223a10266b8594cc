package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/menugrab/models"
)

// Version is reported by the health endpoint.
const Version = "0.1.0"

// Health returns a handler for GET /api/v1/health.
//
// Status is "degraded" while every run slot is taken, since a new request
// would have to queue.
func Health(ex Extractor, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats := ex.Stats()

		status := "healthy"
		if stats.MaxRuns > 0 && stats.ActiveRuns >= stats.MaxRuns {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:   status,
			Uptime:   time.Since(startTime).Round(time.Second).String(),
			RunStats: stats,
			Version:  Version,
		})
	}
}
