package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/menugrab/cache"
	"github.com/use-agent/menugrab/models"
)

// Extractor runs extractions. *scraper.Scraper implements it.
type Extractor interface {
	Extract(ctx context.Context, req *models.ExtractRequest) (*models.ExtractResponse, error)
	Stats() models.RunStats
}

// Extract returns a handler for POST /api/v1/extract. The request blocks
// until the run finishes.
//
// Flow:
//  1. Parse & validate request, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Extractor.Extract.
//  4. Cache store, respond. An aborted run still returns its partial items.
func Extract(ex Extractor, cc *cache.Cache) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		// ── 1. Parse request ────────────────────────────────────────
		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondInvalid(c, err)
			return
		}
		req.Defaults()

		// ── 2. Cache lookup ─────────────────────────────────────────
		cacheKey := cache.Key(req.URL, req.ResponseMatch, req.DescriptionFormat)
		if cc != nil && req.MaxAge > 0 {
			if cached, hit := cc.Get(cacheKey, req.MaxAge); hit {
				out := *cached
				out.CacheStatus = "hit"
				out.Timing = models.TimingInfo{TotalMs: time.Since(totalStart).Milliseconds()}
				c.JSON(http.StatusOK, &out)
				return
			}
		}

		// ── 3. Extract ──────────────────────────────────────────────
		resp, err := ex.Extract(c.Request.Context(), &req)
		if err != nil {
			se := models.AsScrapeError(err)
			if resp == nil {
				resp = &models.ExtractResponse{
					State:    models.StateAborted,
					Items:    []models.MenuItemRecord{},
					Failures: []models.ItemFailure{},
					Error:    se.ToDetail(),
				}
			}
			c.JSON(mapErrorToStatus(se), resp)
			return
		}

		// ── 4. Cache store ──────────────────────────────────────────
		if cc != nil && req.MaxAge > 0 {
			resp.CacheStatus = "miss"
			cc.Set(cacheKey, resp)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// respondInvalid writes a 400 for a request that failed binding.
func respondInvalid(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ExtractResponse{
		Success:  false,
		State:    models.StateAborted,
		Items:    []models.MenuItemRecord{},
		Failures: []models.ItemFailure{},
		Error: &models.ErrorDetail{
			Code:    models.ErrCodeInvalidInput,
			Message: err.Error(),
		},
	})
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation:
		return http.StatusBadGateway // 502
	case models.ErrCodeEnvironment:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
