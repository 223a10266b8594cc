package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/menugrab/config"
	"github.com/use-agent/menugrab/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func get(r http.Handler, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp models.ExtractResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	if resp.Error == nil {
		return ""
	}
	return resp.Error.Code
}

func TestAuth(t *testing.T) {
	r := newEngine(Auth([]string{"good-key", ""}))

	tests := []struct {
		name   string
		header string
		value  string
		want   int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"invalid", "X-API-Key", "bad-key", http.StatusUnauthorized},
		{"x-api-key", "X-API-Key", "good-key", http.StatusOK},
		{"bearer", "Authorization", "Bearer good-key", http.StatusOK},
		{"basic scheme", "Authorization", "Basic good-key", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(r, tt.header, tt.value)
			if w.Code != tt.want {
				t.Fatalf("status = %d, want %d", w.Code, tt.want)
			}
			if tt.want == http.StatusUnauthorized && errorCode(t, w) != models.ErrCodeUnauthorized {
				t.Errorf("body = %s", w.Body)
			}
		})
	}
}

func TestAuthOpenWithoutKeys(t *testing.T) {
	r := newEngine(Auth(nil))
	if w := get(r, "", ""); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestRateLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newEngine(RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 2}))

	for i := 0; i < 2; i++ {
		if w := get(r, "", ""); w.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i, w.Code)
		}
	}
	w := get(r, "", "")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if errorCode(t, w) != models.ErrCodeRateLimited {
		t.Errorf("body = %s", w.Body)
	}
}

func TestRateLimitPerKey(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := newEngine(Auth([]string{"a", "b"}), RateLimit(ctx, config.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1}))

	if w := get(r, "X-API-Key", "a"); w.Code != http.StatusOK {
		t.Fatalf("key a: status = %d", w.Code)
	}
	if w := get(r, "X-API-Key", "a"); w.Code != http.StatusTooManyRequests {
		t.Errorf("key a second request: status = %d, want 429", w.Code)
	}
	if w := get(r, "X-API-Key", "b"); w.Code != http.StatusOK {
		t.Errorf("key b: status = %d, want its own bucket", w.Code)
	}
}

func TestLimiterSetEvictIdle(t *testing.T) {
	s := newLimiterSet(config.RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	now := time.Now()
	s.get("old", now.Add(-2*time.Hour))
	s.get("fresh", now)

	s.evictIdle(now.Add(-limiterIdle))
	if _, ok := s.limiters["old"]; ok {
		t.Error("idle limiter kept")
	}
	if _, ok := s.limiters["fresh"]; !ok {
		t.Error("fresh limiter evicted")
	}
}
