package conversations

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/shared/server/middleware"
	"pdfchat-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the conversations service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches conversation and chat routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/conversations", h.list)
	rg.POST("/conversations", h.create)
	rg.GET("/conversations/:id", h.get)
	rg.POST("/conversations/:id/messages", h.sendMessage)
	rg.POST("/chat", h.quickChat)
}

type createRequest struct {
	Title       string   `json:"title"`
	DocumentIDs []string `json:"document_ids"`
}

type messageRequest struct {
	Question string `json:"question"`
}

type chatRequest struct {
	Question       string   `json:"question"`
	ConversationID string   `json:"conversation_id"`
	DocumentIDs    []string `json:"document_ids"`
}

func (h *Handler) create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	conv, err := h.Svc.Create(c.Request.Context(), userID, req.Title, req.DocumentIDs)
	if err != nil {
		h.writeCreateError(c, err)
		return
	}
	respond.JSON(c, http.StatusCreated, toConversationResponse(conv))
}

func (h *Handler) list(c *gin.Context) {
	convs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list conversations", nil)
		return
	}
	out := make([]ConversationResponse, 0, len(convs))
	for _, conv := range convs {
		out = append(out, toConversationResponse(conv))
	}
	respond.JSON(c, http.StatusOK, gin.H{"conversations": out})
}

func (h *Handler) get(c *gin.Context) {
	conv, msgs, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch conversation", nil)
		return
	}

	messages := make([]MessageResponse, 0, len(msgs))
	for _, msg := range msgs {
		messages = append(messages, toMessageResponse(msg))
	}
	resp := gin.H{
		"id":           conv.ID,
		"title":        conv.Title,
		"document_ids": conv.DocumentIDs,
		"created_at":   conv.CreatedAt,
		"updated_at":   conv.UpdatedAt,
		"messages":     messages,
	}
	respond.JSON(c, http.StatusOK, resp)
}

func (h *Handler) sendMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	msg, err := h.Svc.SendMessage(c.Request.Context(), c.Param("id"), req.Question)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
		case errors.Is(err, ErrQuestionTooShort):
			respond.Error(c, http.StatusBadRequest, "validation_error", "question must be at least 3 characters", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process message", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, toMessageResponse(msg))
}

func (h *Handler) quickChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	userID := middleware.UserIDFromContext(c)
	conv, msg, err := h.Svc.QuickChat(c.Request.Context(), userID, req.ConversationID, req.Question, req.DocumentIDs)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "conversation not found", nil)
		case errors.Is(err, ErrQuestionTooShort):
			respond.Error(c, http.StatusBadRequest, "validation_error", "question must be at least 3 characters", nil)
		case errors.Is(err, ErrNoDocuments),
			errors.Is(err, ErrInvalidDocumentID),
			errors.Is(err, ErrDocumentNotFound),
			errors.Is(err, ErrDocumentNotReady):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to process chat", nil)
		}
		return
	}

	respond.JSON(c, http.StatusOK, gin.H{
		"conversation_id": conv.ID,
		"message":         toMessageResponse(msg),
	})
}

func (h *Handler) writeCreateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrNoDocuments):
		respond.Error(c, http.StatusBadRequest, "validation_error", "at least one document id is required", nil)
	case errors.Is(err, ErrInvalidDocumentID):
		respond.Error(c, http.StatusBadRequest, "validation_error", "document ids must be valid UUIDs", nil)
	case errors.Is(err, ErrDocumentNotFound):
		respond.Error(c, http.StatusBadRequest, "validation_error", "one or more documents do not exist", nil)
	case errors.Is(err, ErrDocumentNotReady):
		respond.Error(c, http.StatusBadRequest, "validation_error", "all documents must be fully processed", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to create conversation", nil)
	}
}
