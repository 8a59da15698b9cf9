package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/middleware"
)

// DocumentHandler drives the extraction pipeline: it asks the upstream
// parser for structured output and assembles a preview from it.
type DocumentHandler struct {
	extractionClient ExtractionClientInterface
	previewService   PreviewServiceInterface
}

func NewDocumentHandler(extractionClient ExtractionClientInterface, previewService PreviewServiceInterface) *DocumentHandler {
	return &DocumentHandler{
		extractionClient: extractionClient,
		previewService:   previewService,
	}
}

// Extract runs the upstream parser on a document and creates a preview from
// the result. The document itself never passes through this service.
func (h *DocumentHandler) Extract(c *gin.Context) {
	log := logger.GetLogger()
	documentID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	raw, err := h.extractionClient.Extract(c.Request.Context(), documentID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	preview, err := h.previewService.CreateFromExtraction(c.Request.Context(), raw, ownerID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusCreated, preview)
}
