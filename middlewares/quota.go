package middlewares

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type QuotaRule struct {
	Limit  int
	Window time.Duration
	// KeyFn picks the counter; an empty key skips the quota.
	KeyFn func(*gin.Context) string
}

// UserQuotaKey counts per authenticated account and day.
func UserQuotaKey(c *gin.Context) string {
	uid := c.GetString(UserIDKey)
	if uid == "" {
		return ""
	}
	return fmt.Sprintf("quota:user:%s:day", uid)
}

// Quota enforces a fixed-window request budget in Redis. A Redis failure lets
// the request through.
func Quota(rdb *redis.Client, rule QuotaRule) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := rule.KeyFn(c)
		if key == "" || rdb == nil || rule.Limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()

		n, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}
		if n == 1 {
			_ = rdb.Expire(ctx, key, rule.Window).Err()
		}
		if int(n) > rule.Limit {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"message": "Usage quota exceeded. Please try again later.",
			})
			return
		}
		c.Header("X-Quota-Used", fmt.Sprintf("%d/%d", n, rule.Limit))
		c.Next()
	}
}
