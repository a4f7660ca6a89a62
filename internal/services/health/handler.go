package health

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the health service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches health routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.health)
	rg.GET("/health/detailed", h.detailed)
	rg.GET("/ready", h.ready)
	rg.GET("/live", h.live)
}

func (h *Handler) health(c *gin.Context) {
	respond.JSON(c, http.StatusOK, h.Svc.Status())
}

func (h *Handler) detailed(c *gin.Context) {
	status, checks := h.Svc.Detailed(c.Request.Context())
	code := http.StatusOK
	if status != "healthy" {
		code = http.StatusServiceUnavailable
	}
	respond.JSON(c, code, gin.H{"status": status, "checks": checks})
}

func (h *Handler) ready(c *gin.Context) {
	if !h.Svc.Ready(c.Request.Context()) {
		respond.Error(c, http.StatusServiceUnavailable, "not_ready", "database is unreachable", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"ready": true})
}

func (h *Handler) live(c *gin.Context) {
	respond.JSON(c, http.StatusOK, gin.H{"alive": true})
}
