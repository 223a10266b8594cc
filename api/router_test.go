package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/menugrab/api/handler"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/models"
)

type stubExtractor struct{}

func (stubExtractor) Extract(context.Context, *models.ExtractRequest) (*models.ExtractResponse, error) {
	return &models.ExtractResponse{Success: true, State: models.StateDone}, nil
}

func (stubExtractor) Stats() models.RunStats { return models.RunStats{MaxRuns: 1} }

func TestRouterAuth(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &config.Config{
		Server:    config.ServerConfig{Mode: gin.TestMode},
		Auth:      config.AuthConfig{Enabled: true, APIKeys: []string{"k"}},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 100, Burst: 100},
	}
	jobs := handler.NewJobStore(ctx, nil, nil)
	r := NewRouter(ctx, stubExtractor{}, jobs, cfg, nil, time.Now())

	tests := []struct {
		method, path, key string
		want              int
	}{
		{http.MethodGet, "/api/v1/health", "", http.StatusOK},
		{http.MethodPost, "/api/v1/extract", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/v1/extract", "k", http.StatusOK},
		{http.MethodPost, "/api/v1/jobs", "k", http.StatusAccepted},
		{http.MethodGet, "/api/v1/jobs/missing", "k", http.StatusNotFound},
		{http.MethodPost, "/api/v1/scrape", "k", http.StatusNotFound},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"url":"https://example.com"}`))
		req.Header.Set("Content-Type", "application/json")
		if tt.key != "" {
			req.Header.Set("X-API-Key", tt.key)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != tt.want {
			t.Errorf("%s %s: status = %d, want %d", tt.method, tt.path, w.Code, tt.want)
		}
	}
	jobs.Wait()
}
