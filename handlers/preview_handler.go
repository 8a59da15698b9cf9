package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/middleware"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// PreviewHandler serves the single-preview lifecycle: read, edit,
// clarification loop, approve and reject.
type PreviewHandler struct {
	previewService PreviewServiceInterface
}

func NewPreviewHandler(previewService PreviewServiceInterface) *PreviewHandler {
	return &PreviewHandler{previewService: previewService}
}

// decisionRequest is the optional body for approve and reject.
type decisionRequest struct {
	Rating *string `json:"rating,omitempty"`
}

// refineRequest is the body for the bulk clarification refine endpoint.
type refineRequest struct {
	Tasks []types.TaskPatch `json:"tasks" binding:"required,min=1"`
}

// versionFromHeader parses the If-Match header into the preview's version
// token. The token is the updatedAt timestamp echoed in the ETag header of
// every preview response.
func versionFromHeader(c *gin.Context) (time.Time, *errors.AppError) {
	raw := strings.Trim(c.GetHeader("If-Match"), `"`)
	if raw == "" {
		return time.Time{}, errors.ValidationFailed("Missing If-Match header",
			"send the preview version from the ETag header of the last read")
	}
	version, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, errors.ValidationFailed("Invalid If-Match header", err.Error())
	}
	return version, nil
}

func setPreviewETag(c *gin.Context, p *types.Preview) {
	c.Header("ETag", `"`+p.UpdatedAt.UTC().Format(time.RFC3339Nano)+`"`)
}

// GetByDocument returns the active preview assembled for a document.
func (h *PreviewHandler) GetByDocument(c *gin.Context) {
	log := logger.GetLogger()
	documentID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	preview, err := h.previewService.GetPreviewByDocument(c.Request.Context(), documentID, ownerID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}

// Get returns a preview by its ID.
func (h *PreviewHandler) Get(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	preview, err := h.previewService.GetPreview(c.Request.Context(), previewID, ownerID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}

// Update applies a partial edit to a preview's extracted data.
func (h *PreviewHandler) Update(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	version, appErr := versionFromHeader(c)
	if appErr != nil {
		if err := c.Error(appErr); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	var update types.PreviewUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	preview, err := h.previewService.UpdatePreviewData(c.Request.Context(), previewID, ownerID, &update, version)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}

// Approve finalizes a preview and materializes its durable entities.
func (h *PreviewHandler) Approve(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	version, appErr := versionFromHeader(c)
	if appErr != nil {
		if err := c.Error(appErr); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	var req decisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
				log.Errorw("Failed to add error to context", "error", err)
			}
			return
		}
	}

	result, err := h.previewService.Approve(c.Request.Context(), previewID, ownerID, version, req.Rating)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// Reject discards a preview without creating any entities.
func (h *PreviewHandler) Reject(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	version, appErr := versionFromHeader(c)
	if appErr != nil {
		if err := c.Error(appErr); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	var req decisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
				log.Errorw("Failed to add error to context", "error", err)
			}
			return
		}
	}

	preview, err := h.previewService.Reject(c.Request.Context(), previewID, ownerID, version, req.Rating)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}

// GetClarifications lists the task lines flagged for clarification together
// with their quality diagnostics and stored suggestions.
func (h *PreviewHandler) GetClarifications(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	clarifications, err := h.previewService.GetClarifications(c.Request.Context(), previewID, ownerID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"clarifications": clarifications})
}

// RefineTasks applies clarification edits to flagged tasks and re-scores them.
func (h *PreviewHandler) RefineTasks(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	version, appErr := versionFromHeader(c)
	if appErr != nil {
		if err := c.Error(appErr); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	var req refineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	preview, err := h.previewService.BulkRefineTasks(c.Request.Context(), previewID, ownerID, req.Tasks, version)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}

// SkipClarification moves a flagged preview back to pending review without
// resolving its flags.
func (h *PreviewHandler) SkipClarification(c *gin.Context) {
	log := logger.GetLogger()
	previewID := c.Param("id")
	ownerID := middleware.GetOwnerID(c)

	version, appErr := versionFromHeader(c)
	if appErr != nil {
		if err := c.Error(appErr); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	preview, err := h.previewService.SkipClarification(c.Request.Context(), previewID, ownerID, version)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	setPreviewETag(c, preview)
	c.JSON(http.StatusOK, preview)
}
