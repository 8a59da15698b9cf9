package handlers

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/vincentrandon/freelance-project-saas/models/preview/service"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// MockPreviewService implements PreviewServiceInterface for handler tests.
type MockPreviewService struct {
	mock.Mock
}

var _ PreviewServiceInterface = (*MockPreviewService)(nil)

func (m *MockPreviewService) CreateFromExtraction(ctx context.Context, raw *types.RawExtraction, ownerID string) (*types.Preview, error) {
	args := m.Called(ctx, raw, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) GetPreviewByDocument(ctx context.Context, documentID, ownerID string) (*types.Preview, error) {
	args := m.Called(ctx, documentID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) GetPreview(ctx context.Context, previewID, ownerID string) (*types.Preview, error) {
	args := m.Called(ctx, previewID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) UpdatePreviewData(ctx context.Context, previewID, ownerID string, update *types.PreviewUpdate, version time.Time) (*types.Preview, error) {
	args := m.Called(ctx, previewID, ownerID, update, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) GetClarifications(ctx context.Context, previewID, ownerID string) ([]service.Clarification, error) {
	args := m.Called(ctx, previewID, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.Clarification), args.Error(1)
}

func (m *MockPreviewService) BulkRefineTasks(ctx context.Context, previewID, ownerID string, patches []types.TaskPatch, version time.Time) (*types.Preview, error) {
	args := m.Called(ctx, previewID, ownerID, patches, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) SkipClarification(ctx context.Context, previewID, ownerID string, version time.Time) (*types.Preview, error) {
	args := m.Called(ctx, previewID, ownerID, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

func (m *MockPreviewService) Approve(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.ApprovalResult, error) {
	args := m.Called(ctx, previewID, ownerID, version, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.ApprovalResult), args.Error(1)
}

func (m *MockPreviewService) Reject(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.Preview, error) {
	args := m.Called(ctx, previewID, ownerID, version, rating)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Preview), args.Error(1)
}

// MockBatchService implements BatchServiceInterface for handler tests.
type MockBatchService struct {
	mock.Mock
}

var _ BatchServiceInterface = (*MockBatchService)(nil)

func (m *MockBatchService) DetectPatterns(ctx context.Context, ownerID string, previewIDs []string) ([]types.Pattern, error) {
	args := m.Called(ctx, ownerID, previewIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Pattern), args.Error(1)
}

func (m *MockBatchService) BulkApprove(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error) {
	args := m.Called(ctx, ownerID, previewIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.BulkItemResult), args.Error(1)
}

func (m *MockBatchService) BulkReject(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error) {
	args := m.Called(ctx, ownerID, previewIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.BulkItemResult), args.Error(1)
}

func (m *MockBatchService) GetBatchSummary(ctx context.Context, ownerID string) (*types.BatchSummary, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.BatchSummary), args.Error(1)
}

// MockExtractionClient implements ExtractionClientInterface for handler tests.
type MockExtractionClient struct {
	mock.Mock
}

var _ ExtractionClientInterface = (*MockExtractionClient)(nil)

func (m *MockExtractionClient) Extract(ctx context.Context, documentID string) (*types.RawExtraction, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.RawExtraction), args.Error(1)
}
