package handlers

import (
	"context"
	"time"

	"github.com/vincentrandon/freelance-project-saas/internal/ai"
	"github.com/vincentrandon/freelance-project-saas/models/preview/service"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// PreviewServiceInterface defines the preview lifecycle methods needed by handlers.
type PreviewServiceInterface interface {
	CreateFromExtraction(ctx context.Context, raw *types.RawExtraction, ownerID string) (*types.Preview, error)
	GetPreviewByDocument(ctx context.Context, documentID, ownerID string) (*types.Preview, error)
	GetPreview(ctx context.Context, previewID, ownerID string) (*types.Preview, error)
	UpdatePreviewData(ctx context.Context, previewID, ownerID string, update *types.PreviewUpdate, version time.Time) (*types.Preview, error)
	GetClarifications(ctx context.Context, previewID, ownerID string) ([]service.Clarification, error)
	BulkRefineTasks(ctx context.Context, previewID, ownerID string, patches []types.TaskPatch, version time.Time) (*types.Preview, error)
	SkipClarification(ctx context.Context, previewID, ownerID string, version time.Time) (*types.Preview, error)
	Approve(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.ApprovalResult, error)
	Reject(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.Preview, error)
}

// BatchServiceInterface defines the batch operations needed by handlers.
type BatchServiceInterface interface {
	DetectPatterns(ctx context.Context, ownerID string, previewIDs []string) ([]types.Pattern, error)
	BulkApprove(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error)
	BulkReject(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error)
	GetBatchSummary(ctx context.Context, ownerID string) (*types.BatchSummary, error)
}

// ExtractionClientInterface is the upstream document parser.
type ExtractionClientInterface interface {
	Extract(ctx context.Context, documentID string) (*types.RawExtraction, error)
}

var (
	_ PreviewServiceInterface   = (*service.PreviewService)(nil)
	_ BatchServiceInterface     = (*service.BatchService)(nil)
	_ ExtractionClientInterface = (*ai.ExtractionClient)(nil)
)
