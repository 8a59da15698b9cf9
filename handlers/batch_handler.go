package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vincentrandon/freelance-project-saas/errors"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/middleware"
)

// BatchHandler serves multi-preview operations: pattern detection, bulk
// decisions and the pending-queue summary.
type BatchHandler struct {
	batchService BatchServiceInterface
}

func NewBatchHandler(batchService BatchServiceInterface) *BatchHandler {
	return &BatchHandler{batchService: batchService}
}

type previewIDsRequest struct {
	PreviewIDs []string `json:"previewIds" binding:"required,min=1"`
}

// DetectPatterns groups the given previews by shared customer or project.
func (h *BatchHandler) DetectPatterns(c *gin.Context) {
	log := logger.GetLogger()
	ownerID := middleware.GetOwnerID(c)

	var req previewIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	patterns, err := h.batchService.DetectPatterns(c.Request.Context(), ownerID, req.PreviewIDs)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"patterns": patterns})
}

// BulkApprove approves each listed preview independently. Per-item failures
// never abort the batch.
func (h *BatchHandler) BulkApprove(c *gin.Context) {
	log := logger.GetLogger()
	ownerID := middleware.GetOwnerID(c)

	var req previewIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	results, err := h.batchService.BulkApprove(c.Request.Context(), ownerID, req.PreviewIDs)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// BulkReject rejects each listed preview independently.
func (h *BatchHandler) BulkReject(c *gin.Context) {
	log := logger.GetLogger()
	ownerID := middleware.GetOwnerID(c)

	var req previewIDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if err := c.Error(errors.ValidationFailed("Invalid request body", err.Error())); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	results, err := h.batchService.BulkReject(c.Request.Context(), ownerID, req.PreviewIDs)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// GetBatchSummary returns review-queue counts for the owner.
func (h *BatchHandler) GetBatchSummary(c *gin.Context) {
	log := logger.GetLogger()
	ownerID := middleware.GetOwnerID(c)

	summary, err := h.batchService.GetBatchSummary(c.Request.Context(), ownerID)
	if err != nil {
		if err := c.Error(err); err != nil {
			log.Errorw("Failed to add error to context", "error", err)
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}
