package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const userIDKey = "userId"

// Identity resolves the acting user for the request. There is no real
// authentication yet; callers may pass X-User-Id, otherwise the client IP
// becomes the anonymous principal so ownership and rate limits stay stable
// across requests from the same client.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if id == "" {
			if ip := strings.TrimSpace(c.ClientIP()); ip != "" {
				id = "anon:" + ip
			} else {
				id = "anon:" + uuid.NewString()
			}
		}
		c.Set(userIDKey, id)
		c.Next()
	}
}

// UserIDFromContext fetches the user id stored by Identity middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}
