package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/conversations"
	"pdfchat-backend/internal/documents"
	"pdfchat-backend/internal/services/health"
	"pdfchat-backend/internal/shared/config"
	"pdfchat-backend/internal/shared/metrics"
	"pdfchat-backend/internal/shared/server/middleware"
)

// RouterDeps carries the handlers wired into the HTTP router.
type RouterDeps struct {
	Config               config.Config
	HealthHandler        *health.Handler
	DocumentsHandler     *documents.Handler
	ConversationsHandler *conversations.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Identity(),
		middleware.RateLimit(rateLimitConfig()),
	)

	api := r.Group("/api/v1")
	if deps.HealthHandler != nil {
		deps.HealthHandler.RegisterRoutes(api)
	}
	if deps.DocumentsHandler != nil {
		deps.DocumentsHandler.RegisterRoutes(api)
	}
	if deps.ConversationsHandler != nil {
		deps.ConversationsHandler.RegisterRoutes(api)
	}
	api.GET("/metrics", metrics.Handler())

	return r
}

func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			path := c.FullPath()
			switch {
			case c.Request.Method == http.MethodPost && (path == "/api/v1/chat" || strings.HasSuffix(path, "/messages")):
				return "CHAT"
			case strings.HasSuffix(path, "/status"):
				return "POLLING"
			case c.Request.Method == http.MethodPost && path == "/api/v1/documents":
				return "UPLOAD"
			default:
				return ""
			}
		},
		Rules: map[string]middleware.RateLimitRule{
			"CHAT":    {Rate: 1, Burst: 5},
			"POLLING": {Rate: 5, Burst: 10},
			"UPLOAD":  {Rate: 0.5, Burst: 3},
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
