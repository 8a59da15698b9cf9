package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vincentrandon/freelance-project-saas/config"
	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	istore "github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/models/preview/matcher"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// BatchService runs the cross-document operations: pattern detection over a
// set of previews, bulk approve/reject and the pending-queue summary.
type BatchService struct {
	store    istore.Store
	previews *PreviewService
	cfg      config.ReconciliationConfig
}

// NewBatchService creates a new batch service.
func NewBatchService(store istore.Store, previews *PreviewService, cfg config.ReconciliationConfig) *BatchService {
	return &BatchService{store: store, previews: previews, cfg: cfg}
}

// DetectPatterns scans a snapshot of the given previews for cross-document
// relationships. Detection is read-only; acting on a pattern goes through
// the bulk operations.
func (s *BatchService) DetectPatterns(ctx context.Context, ownerID string, previewIDs []string) ([]types.Pattern, error) {
	previews, err := s.fetchOwned(ctx, ownerID, previewIDs)
	if err != nil {
		return nil, err
	}

	patterns := []types.Pattern{}
	patterns = append(patterns, s.groupPatterns(previews, types.PatternSameCustomer)...)
	patterns = append(patterns, s.groupPatterns(previews, types.PatternSameProject)...)
	return patterns, nil
}

// BulkApprove approves each pending preview in the list. Items are isolated:
// one failure never aborts the rest, and previews that are no longer
// pending_review are skipped, which makes retrying a batch safe.
func (s *BatchService) BulkApprove(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error) {
	results := make([]types.BulkItemResult, 0, len(previewIDs))
	for _, id := range previewIDs {
		results = append(results, s.approveOne(ctx, ownerID, id))
	}
	return results, nil
}

func (s *BatchService) approveOne(ctx context.Context, ownerID, previewID string) types.BulkItemResult {
	p, err := s.previews.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return failedItem(previewID, err)
	}
	if p.Status != types.PreviewStatusPendingReview {
		return types.BulkItemResult{
			PreviewID: previewID,
			Status:    types.BulkItemSkipped,
			Reason:    fmt.Sprintf("preview is %s", p.Status),
		}
	}
	eligible := p.AutoApproveEligible
	if _, err := s.previews.approveLoaded(ctx, p, p.UpdatedAt, nil); err != nil {
		return failedItem(previewID, err)
	}
	if eligible {
		metricAutoApprovals.Inc()
	}
	return types.BulkItemResult{PreviewID: previewID, Status: types.BulkItemApproved}
}

// BulkReject rejects each live preview in the list, with the same per-item
// isolation and skip semantics as BulkApprove.
func (s *BatchService) BulkReject(ctx context.Context, ownerID string, previewIDs []string) ([]types.BulkItemResult, error) {
	results := make([]types.BulkItemResult, 0, len(previewIDs))
	for _, id := range previewIDs {
		results = append(results, s.rejectOne(ctx, ownerID, id))
	}
	return results, nil
}

func (s *BatchService) rejectOne(ctx context.Context, ownerID, previewID string) types.BulkItemResult {
	p, err := s.previews.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return failedItem(previewID, err)
	}
	if p.Status.IsTerminal() {
		return types.BulkItemResult{
			PreviewID: previewID,
			Status:    types.BulkItemSkipped,
			Reason:    fmt.Sprintf("preview is %s", p.Status),
		}
	}
	if _, err := s.previews.rejectLoaded(ctx, p, p.UpdatedAt, nil); err != nil {
		return failedItem(previewID, err)
	}
	return types.BulkItemResult{PreviewID: previewID, Status: types.BulkItemRejected}
}

// GetBatchSummary returns queue counts over the owner's live previews.
func (s *BatchService) GetBatchSummary(ctx context.Context, ownerID string) (*types.BatchSummary, error) {
	previews, err := s.store.Previews().ListPendingByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	summary := &types.BatchSummary{TotalPending: len(previews)}
	for _, p := range previews {
		if p.AutoApproveEligible {
			summary.AutoApproveEligible++
		}
		if p.Status == types.PreviewStatusNeedsClarification {
			summary.NeedsClarification++
		}
		if p.Status == types.PreviewStatusPendingReview && len(p.Conflicts) > 0 {
			summary.NeedsAttention++
		}
	}
	return summary, nil
}

func (s *BatchService) fetchOwned(ctx context.Context, ownerID string, previewIDs []string) ([]*types.Preview, error) {
	previews, err := s.store.Previews().GetPreviewsByIDs(ctx, previewIDs)
	if err != nil && !errors.Is(err, istore.ErrNotFound) {
		return nil, apperrors.NewDatabaseError(err)
	}

	owned := make([]*types.Preview, 0, len(previews))
	for _, p := range previews {
		if p.OwnerID != ownerID {
			logger.GetLogger().Warnw("Skipping preview owned by another user in batch scan",
				"previewID", p.ID)
			continue
		}
		owned = append(owned, p)
	}
	return owned, nil
}

// groupPatterns clusters previews that appear to reference the same entity,
// either through an identical matched ID or a near-duplicate extracted name.
func (s *BatchService) groupPatterns(previews []*types.Preview, patternType types.PatternType) []types.Pattern {
	type cluster struct {
		key      string // Matched entity ID, or "" for name-based clusters
		name     string
		previews []*types.Preview
	}
	var clusters []*cluster

	find := func(matchedID, name string) *cluster {
		for _, c := range clusters {
			if matchedID != "" && c.key == matchedID {
				return c
			}
			if matchedID == "" && c.key == "" && name != "" &&
				matcher.FieldSimilarity(name, c.name) >= s.cfg.UseExistingCutoff {
				return c
			}
		}
		c := &cluster{key: matchedID, name: name}
		clusters = append(clusters, c)
		return c
	}

	for _, p := range previews {
		matchedID, name := clusterIdentity(p, patternType)
		if matchedID == "" && name == "" {
			continue
		}
		c := find(matchedID, name)
		if c.name == "" {
			c.name = name
		}
		c.previews = append(c.previews, p)
	}

	var patterns []types.Pattern
	for _, c := range clusters {
		if len(c.previews) < 2 {
			continue
		}
		patterns = append(patterns, s.buildPattern(patternType, c.name, c.previews))
	}
	return patterns
}

func clusterIdentity(p *types.Preview, patternType types.PatternType) (matchedID, name string) {
	if patternType == types.PatternSameCustomer {
		if p.MatchedCustomer != nil {
			return p.MatchedCustomer.ID, p.MatchedCustomer.Name
		}
		return "", p.CustomerData.Name.Value
	}
	if p.MatchedProject != nil {
		return p.MatchedProject.ID, p.MatchedProject.Name
	}
	return "", p.ProjectData.Name.Value
}

func (s *BatchService) buildPattern(patternType types.PatternType, name string, previews []*types.Preview) types.Pattern {
	ids := make([]string, len(previews))
	priority := types.PatternPriorityMedium
	hasConflicts := false
	for i, p := range previews {
		ids[i] = p.ID
		if len(p.Conflicts) > 0 {
			hasConflicts = true
		}
	}
	switch {
	case hasConflicts:
		priority = types.PatternPriorityCritical
	case len(previews) >= s.cfg.PatternHighPriorityCount:
		priority = types.PatternPriorityHigh
	}

	entity := "customer"
	if patternType == types.PatternSameProject {
		entity = "project"
	}
	return types.Pattern{
		Type:        patternType,
		Title:       fmt.Sprintf("%d documents for the same %s", len(previews), entity),
		Description: fmt.Sprintf("These pending documents all reference %s %q.", entity, name),
		Suggestion:  "Review them together; bulk approval keeps the records consistent.",
		Priority:    priority,
		PreviewIDs:  ids,
	}
}

func failedItem(previewID string, err error) types.BulkItemResult {
	return types.BulkItemResult{
		PreviewID: previewID,
		Status:    types.BulkItemFailed,
		Reason:    err.Error(),
	}
}
