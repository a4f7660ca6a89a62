package documents

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pdfchat-backend/internal/shared/server/middleware"
	"pdfchat-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the documents service.
type Handler struct {
	Svc     *Service
	limiter *pollLimiter
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{
		Svc:     svc,
		limiter: newPollLimiter(pollLimitWindow, nil),
	}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
	rg.GET("/documents", h.list)
	rg.GET("/documents/:id", h.get)
	rg.GET("/documents/:id/file", h.file)
	rg.GET("/documents/:id/status", h.status)
	rg.POST("/documents/poll-status", h.pollStatus)
	rg.DELETE("/documents/:id", h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "a PDF file is required", nil)
		return
	}
	if !acceptablePDFContentType(fileHeader.Header.Get("Content-Type")) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "only valid PDF files are accepted", nil)
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to read upload", nil)
		return
	}
	defer file.Close()

	ctx := WithRequestID(c.Request.Context(), c.GetString("requestId"))
	doc, err := h.Svc.Upload(ctx, userID, fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidFilename):
			respond.Error(c, http.StatusBadRequest, "validation_error", "invalid file name", nil)
		case errors.Is(err, ErrNotPDF):
			respond.Error(c, http.StatusBadRequest, "validation_error", "only valid PDF files are accepted", nil)
		case errors.Is(err, ErrFileTooSmall):
			respond.Error(c, http.StatusBadRequest, "validation_error", "file is too small to be a valid PDF", nil)
		case errors.Is(err, ErrFileTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", "file exceeds the upload size limit", nil)
		case errors.Is(err, ErrRegistrationFailed):
			respond.Error(c, http.StatusBadGateway, "bad_gateway", "document could not be registered for processing", []map[string]string{
				{"field": "document_id", "issue": doc.ID},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.JSON(c, http.StatusCreated, toDocumentResponse(doc))
}

// acceptablePDFContentType checks the declared multipart content type. The
// file body itself is still validated by parsing, so a missing or generic
// declared type is allowed.
func acceptablePDFContentType(declared string) bool {
	if declared == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/pdf", "application/x-pdf", "application/octet-stream":
		return true
	}
	return false
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to list documents", nil)
		return
	}
	out := make([]DocumentResponse, 0, len(docs))
	for _, doc := range docs {
		out = append(out, toDocumentResponse(doc))
	}
	respond.JSON(c, http.StatusOK, gin.H{"documents": out})
}

func (h *Handler) get(c *gin.Context) {
	doc, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to fetch document", nil)
		return
	}
	respond.JSON(c, http.StatusOK, toDocumentResponse(doc))
}

func (h *Handler) file(c *gin.Context) {
	doc, rc, err := h.Svc.OpenFile(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to open document file", nil)
		return
	}
	defer rc.Close()

	c.Header("Content-Type", "application/pdf")
	c.Header("Content-Disposition", `inline; filename="`+doc.OriginalFilename+`"`)
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		// Response already started; nothing sensible left to send.
		return
	}
}

func (h *Handler) status(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	documentID := c.Param("id")

	if !h.limiter.Allow(userID, documentID) {
		c.Header("Retry-After", strconv.Itoa(h.limiter.RetryAfterSeconds()))
		respond.Error(c, http.StatusTooManyRequests, "rate_limited", "status polled too frequently", nil)
		return
	}

	doc, err := h.Svc.Status(c.Request.Context(), documentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
			return
		}
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to check document status", nil)
		return
	}
	respond.JSON(c, http.StatusOK, toStatusResponse(doc))
}

func (h *Handler) pollStatus(c *gin.Context) {
	checked, updated, err := h.Svc.Tracker.ReconcileAll(c.Request.Context())
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to reconcile documents", nil)
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"checked": checked, "updated": updated})
}

func (h *Handler) delete(c *gin.Context) {
	err := h.Svc.Delete(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "document not found", nil)
		case errors.Is(err, ErrDocumentInUse):
			respond.Error(c, http.StatusBadRequest, "document_in_use", "document is referenced by one or more conversations", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to delete document", nil)
		}
		return
	}
	respond.JSON(c, http.StatusOK, gin.H{"message": "document deleted"})
}
