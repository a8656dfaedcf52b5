package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/gopherchat/gopherchat/internal/common"
)

const RequestIDHeader = "X-Request-Id"

// RequestID tags every request with a ULID unless the client supplied one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			if generated, err := common.NewULID(); err == nil {
				id = generated
			}
		}
		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Next()
	}
}
