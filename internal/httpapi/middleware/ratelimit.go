package middleware

import (
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/store/redisstore"
)

// RateLimit caps requests per client IP using a fixed window in Redis. Meant
// for the auth endpoints only; chat sends are never volume-limited. Fails
// open when Redis is unreachable.
func RateLimit(store *redisstore.Store, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rl:%s:%s", c.FullPath(), c.ClientIP())
		allowed, err := store.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Printf("[ratelimit] redis error key=%s err=%v", key, err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    42900,
				"message": "too many requests",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}
