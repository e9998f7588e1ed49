package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestLimiterBurstThenDeny(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 60,
		BurstSize:         4,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	for i := 0; i < 4; i++ {
		if !limiter.Allow("10.0.0.1") {
			t.Errorf("request %d should be allowed within burst", i)
		}
	}
	if limiter.Allow("10.0.0.1") {
		t.Error("request after burst should be denied")
	}
}

func TestLimiterClientsIndependent(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 60,
		BurstSize:         2,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	limiter.Allow("client-a")
	limiter.Allow("client-a")
	if limiter.Allow("client-a") {
		t.Error("client-a should be rate limited")
	}
	if !limiter.Allow("client-b") {
		t.Error("client-b should have its own bucket")
	}
}

func TestLimiterRefill(t *testing.T) {
	limiter := New(Config{
		RequestsPerMinute: 600, // 10 tokens per second
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	if !limiter.Allow("scanner") {
		t.Error("first request should be allowed")
	}
	if limiter.Allow("scanner") {
		t.Error("second immediate request should be denied")
	}

	time.Sleep(120 * time.Millisecond)

	if !limiter.Allow("scanner") {
		t.Error("request after refill window should be allowed")
	}
}

func TestMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)

	limiter := New(Config{
		RequestsPerMinute: 1,
		BurstSize:         1,
		CleanupInterval:   time.Minute,
	})
	defer limiter.Stop()

	r := gin.New()
	r.Use(limiter.Middleware())
	r.POST("/v1/scan/wallet", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/scan/wallet", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("first request: expected 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest("POST", "/v1/scan/wallet", nil))
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("429 response should carry Retry-After")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.RequestsPerMinute != 30 {
		t.Errorf("expected 30 requests/min, got %d", cfg.RequestsPerMinute)
	}
	if cfg.BurstSize != 5 {
		t.Errorf("expected burst size 5, got %d", cfg.BurstSize)
	}
	if cfg.CleanupInterval != time.Minute {
		t.Errorf("expected 1 minute cleanup interval, got %v", cfg.CleanupInterval)
	}
}
