package middlewares

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestRateLimiterBurstThen429(t *testing.T) {
	rl := NewRateLimiter(t.Context(), LimiterConfig{RPS: 0.001, Burst: 2, IdleTTL: time.Minute})
	s := gin.New()
	s.Use(rl.Middleware(ByIP("ip")))
	s.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	for i := 0; i < 2; i++ {
		if w := get(s, "/p"); w.Code != http.StatusOK {
			t.Fatalf("burst request %d: got %d", i, w.Code)
		}
	}
	w := get(s, "/p")
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("want 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func TestRateLimiterSweepDropsIdleBuckets(t *testing.T) {
	rl := NewRateLimiter(t.Context(), LimiterConfig{RPS: 1, Burst: 1, IdleTTL: time.Minute})
	rl.getLimiter("a")
	rl.sweep(time.Now().Add(2 * time.Minute))

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if len(rl.buckets) != 0 {
		t.Fatalf("idle bucket kept: %d", len(rl.buckets))
	}
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(t.Context(), LimiterConfig{})
	s := gin.New()
	s.Use(rl.Middleware(ByUser))
	s.GET("/p", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	for i := 0; i < 5; i++ {
		if w := get(s, "/p"); w.Code != http.StatusOK {
			t.Fatalf("got %d", w.Code)
		}
	}
}
