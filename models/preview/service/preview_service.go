// Package service holds the reconciliation preview lifecycle: assembly from
// an extraction, reviewer edits, the clarification loop, and the terminal
// approve/reject decisions.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/vincentrandon/freelance-project-saas/config"
	apperrors "github.com/vincentrandon/freelance-project-saas/errors"
	istore "github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/models/preview/matcher"
	"github.com/vincentrandon/freelance-project-saas/models/preview/quality"
	"github.com/vincentrandon/freelance-project-saas/models/preview/scorer"
	"github.com/vincentrandon/freelance-project-saas/models/preview/validation"
	"github.com/vincentrandon/freelance-project-saas/types"
)

var (
	metricPreviewsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_previews_created_total",
		Help: "Total number of reconciliation previews assembled",
	})
	metricApprovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_previews_approved_total",
		Help: "Total number of previews approved",
	})
	metricRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_previews_rejected_total",
		Help: "Total number of previews rejected",
	})
	metricAutoApprovals = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_previews_auto_approved_total",
		Help: "Total number of previews approved through the auto-approve path",
	})
)

// FeedbackPublisher emits one feedback event per terminal decision to the
// learning collaborator.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, event *types.FeedbackEvent) error
}

// Clarification pairs a flagged task line with its quality verdict for the
// clarification UI.
type Clarification struct {
	TaskIndex int                 `json:"taskIndex"`
	Task      types.ExtractedTask `json:"task"`
	Quality   types.TaskQuality   `json:"quality"`
}

// PreviewService drives the preview lifecycle. All reads and writes are
// owner-scoped; terminal previews are immutable.
type PreviewService struct {
	store    istore.Store
	matcher  *matcher.Matcher
	scorer   *scorer.Scorer
	analyzer *quality.Analyzer
	executor *ApprovalExecutor
	feedback FeedbackPublisher
	cfg      config.ReconciliationConfig
}

// NewPreviewService creates a new preview service.
func NewPreviewService(
	store istore.Store,
	m *matcher.Matcher,
	sc *scorer.Scorer,
	analyzer *quality.Analyzer,
	executor *ApprovalExecutor,
	feedback FeedbackPublisher,
	cfg config.ReconciliationConfig,
) *PreviewService {
	return &PreviewService{
		store:    store,
		matcher:  m,
		scorer:   sc,
		analyzer: analyzer,
		executor: executor,
		feedback: feedback,
		cfg:      cfg,
	}
}

// CreateFromExtraction assembles a preview from the parser output: matches
// entities, scores confidence, analyzes task quality, derives entity actions
// and validates. The raw extraction is kept as an immutable snapshot; a
// document may hold only one live preview at a time.
func (s *PreviewService) CreateFromExtraction(ctx context.Context, raw *types.RawExtraction, ownerID string) (*types.Preview, error) {
	existing, err := s.store.Previews().GetActivePreviewByDocument(ctx, raw.DocumentID)
	if err == nil {
		return nil, apperrors.ValidationConflict(
			"Document already has an active preview",
			"preview "+existing.ID+" must be approved or rejected first",
		)
	}
	if !errors.Is(err, istore.ErrNotFound) {
		return nil, apperrors.NewDatabaseError(err)
	}

	customerCandidates, err := s.matcher.MatchCustomer(ctx, raw.CustomerFields, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	projectCandidates, err := s.matcher.MatchProject(ctx, raw.ProjectFields, ownerID)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}

	qualities := s.analyzer.AnalyzeAll(ctx, raw.Tasks)
	scores := s.scorer.Score(raw, customerCandidates, projectCandidates, qualities)

	p := &types.Preview{
		DocumentID:          raw.DocumentID,
		OwnerID:             ownerID,
		DocumentType:        raw.DocumentType,
		CustomerData:        raw.CustomerFields,
		ProjectData:         raw.ProjectFields,
		TasksData:           append([]types.ExtractedTask(nil), raw.Tasks...),
		TaskQualities:       qualities,
		InvoiceEstimateData: raw.Financials,
		ExtractionSnapshot:  raw,
		CustomerCandidates:  customerCandidates,
		ProjectCandidates:   projectCandidates,

		CustomerMatchConfidence: scores.CustomerMatchConfidence,
		ProjectMatchConfidence:  scores.ProjectMatchConfidence,
		OverallConfidence:       scores.OverallDocumentConfidence,
		OverallTaskQualityScore: scorer.MeanClarityScore(qualities),
	}

	p.CustomerAction = s.deriveAction(customerCandidates)
	p.ProjectAction = s.deriveAction(projectCandidates)
	if err := s.resolveMatchedSnapshots(ctx, p); err != nil {
		return nil, err
	}

	p.Warnings, p.Conflicts = validation.Validate(p, s.cfg)

	p.Status = types.PreviewStatusPendingReview
	if p.HasFlaggedTasks() {
		p.Status = types.PreviewStatusNeedsClarification
	}
	p.AutoApproveEligible = s.autoApproveEligible(p)

	id, err := s.store.Previews().CreatePreview(ctx, p)
	if err != nil {
		return nil, apperrors.NewDatabaseError(err)
	}
	p.ID = id

	metricPreviewsCreated.Inc()
	logger.GetLogger().Infow("Preview assembled",
		"previewID", id,
		"documentID", raw.DocumentID,
		"customerEmail", logger.MaskEmail(raw.CustomerFields.Email.Value),
		"status", p.Status,
		"overallConfidence", p.OverallConfidence,
	)
	return p, nil
}

// GetPreviewByDocument returns the document's live preview.
func (s *PreviewService) GetPreviewByDocument(ctx context.Context, documentID, ownerID string) (*types.Preview, error) {
	p, err := s.store.Previews().GetActivePreviewByDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, istore.ErrNotFound) {
			return nil, apperrors.NotFound("Preview for document", documentID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.Forbidden("access_denied", "preview belongs to another user")
	}
	return p, nil
}

// GetPreview returns a preview by ID with ownership enforced.
func (s *PreviewService) GetPreview(ctx context.Context, previewID, ownerID string) (*types.Preview, error) {
	return s.getOwned(ctx, previewID, ownerID)
}

// UpdatePreviewData applies a partial edit. Warnings, conflicts and
// auto-approve eligibility are recomputed; task quality is not, so flagged
// tasks stay flagged until refined or skipped. The caller's version token
// must match the stored one.
func (s *PreviewService) UpdatePreviewData(ctx context.Context, previewID, ownerID string, update *types.PreviewUpdate, version time.Time) (*types.Preview, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, apperrors.ValidationFailed(
			"Preview is finalized",
			"an approved or rejected preview cannot be edited",
		)
	}

	if err := applyUpdate(p, update); err != nil {
		return nil, err
	}
	p.HadEdits = true
	p.Warnings, p.Conflicts = validation.Validate(p, s.cfg)
	p.AutoApproveEligible = s.autoApproveEligible(p)

	return s.updateWithVersion(ctx, p, version)
}

// GetClarifications returns the flagged task lines with their issues and any
// stored suggestion.
func (s *PreviewService) GetClarifications(ctx context.Context, previewID, ownerID string) ([]Clarification, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}

	clarifications := []Clarification{}
	for i, q := range p.TaskQualities {
		if !q.NeedsClarification {
			continue
		}
		clarifications = append(clarifications, Clarification{
			TaskIndex: i,
			Task:      p.TasksData[i],
			Quality:   q,
		})
	}
	return clarifications, nil
}

// BulkRefineTasks applies task patches and re-analyzes every line. When no
// flagged task remains, a needs_clarification preview moves back to
// pending_review.
func (s *PreviewService) BulkRefineTasks(ctx context.Context, previewID, ownerID string, patches []types.TaskPatch, version time.Time) (*types.Preview, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status.IsTerminal() {
		return nil, apperrors.ValidationFailed(
			"Preview is finalized",
			"an approved or rejected preview cannot be refined",
		)
	}

	for _, patch := range patches {
		if err := applyTaskPatch(p, patch); err != nil {
			return nil, err
		}
	}
	p.HadEdits = true

	p.TaskQualities = s.analyzer.AnalyzeAll(ctx, p.TasksData)
	p.OverallTaskQualityScore = scorer.MeanClarityScore(p.TaskQualities)
	p.OverallConfidence = s.scorer.Overall(
		p.CustomerMatchConfidence, p.ProjectMatchConfidence,
		p.OverallTaskQualityScore, p.ProjectData.HasData(),
	)
	p.Warnings, p.Conflicts = validation.Validate(p, s.cfg)

	if p.Status == types.PreviewStatusNeedsClarification && !p.HasFlaggedTasks() {
		p.Status = types.PreviewStatusPendingReview
	}
	p.AutoApproveEligible = s.autoApproveEligible(p)

	return s.updateWithVersion(ctx, p, version)
}

// SkipClarification forces a needs_clarification preview back to
// pending_review without resolving its flagged tasks. The skip is recorded
// and travels with the eventual feedback event.
func (s *PreviewService) SkipClarification(ctx context.Context, previewID, ownerID string, version time.Time) (*types.Preview, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	if p.Status != types.PreviewStatusNeedsClarification {
		return nil, apperrors.InvalidStatusTransition(
			p.Status.String(), types.PreviewStatusPendingReview.String(),
		)
	}

	p.Status = types.PreviewStatusPendingReview
	p.ClarificationSkipped = true
	p.AutoApproveEligible = s.autoApproveEligible(p)

	return s.updateWithVersion(ctx, p, version)
}

// Approve finalizes a pending preview: the executor materializes the durable
// entities in one transaction and the preview becomes terminal. Conflicts
// always block; there is no override.
func (s *PreviewService) Approve(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.ApprovalResult, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.approveLoaded(ctx, p, version, rating)
}

func (s *PreviewService) approveLoaded(ctx context.Context, p *types.Preview, version time.Time, rating *string) (*types.ApprovalResult, error) {
	if p.Status != types.PreviewStatusPendingReview {
		return nil, apperrors.InvalidStatusTransition(
			p.Status.String(), types.PreviewStatusApproved.String(),
		)
	}
	if len(p.Conflicts) > 0 {
		return nil, apperrors.ValidationConflict(
			"Preview has blocking conflicts",
			strings.Join(p.Conflicts, " "),
		)
	}

	result, err := s.executor.Execute(ctx, p, version, rating)
	if err != nil {
		return nil, err
	}
	metricApprovals.Inc()
	return result, nil
}

// Reject finalizes a preview as rejected from either live state. No durable
// entities are created; feedback is still recorded and published.
func (s *PreviewService) Reject(ctx context.Context, previewID, ownerID string, version time.Time, rating *string) (*types.Preview, error) {
	p, err := s.getOwned(ctx, previewID, ownerID)
	if err != nil {
		return nil, err
	}
	return s.rejectLoaded(ctx, p, version, rating)
}

func (s *PreviewService) rejectLoaded(ctx context.Context, p *types.Preview, version time.Time, rating *string) (*types.Preview, error) {
	if !p.Status.IsValidTransition(types.PreviewStatusRejected) {
		return nil, apperrors.InvalidStatusTransition(
			p.Status.String(), types.PreviewStatusRejected.String(),
		)
	}

	p.Status = types.PreviewStatusRejected
	updated, err := s.updateWithVersion(ctx, p, version)
	if err != nil {
		return nil, err
	}

	event := buildFeedbackEvent(updated, types.FeedbackOutcomeRejected, rating)
	if _, err := s.store.Feedback().SaveFeedback(ctx, event); err != nil {
		logger.GetLogger().Warnw("Failed to persist rejection feedback",
			"previewID", updated.ID, "error", err)
	}
	if s.feedback != nil {
		if err := s.feedback.PublishFeedback(ctx, event); err != nil {
			logger.GetLogger().Warnw("Failed to publish rejection feedback",
				"previewID", updated.ID, "error", err)
		}
	}

	metricRejections.Inc()
	return updated, nil
}

func (s *PreviewService) getOwned(ctx context.Context, previewID, ownerID string) (*types.Preview, error) {
	p, err := s.store.Previews().GetPreview(ctx, previewID)
	if err != nil {
		if errors.Is(err, istore.ErrNotFound) {
			return nil, apperrors.NotFound("Preview", previewID)
		}
		return nil, apperrors.NewDatabaseError(err)
	}
	if p.OwnerID != ownerID {
		return nil, apperrors.Forbidden("access_denied", "preview belongs to another user")
	}
	return p, nil
}

func (s *PreviewService) updateWithVersion(ctx context.Context, p *types.Preview, version time.Time) (*types.Preview, error) {
	updated, err := s.store.Previews().UpdatePreview(ctx, p, version)
	if err != nil {
		switch {
		case errors.Is(err, istore.ErrStaleVersion):
			return nil, apperrors.StalePreview(p.ID)
		case errors.Is(err, istore.ErrNotFound):
			return nil, apperrors.NotFound("Preview", p.ID)
		default:
			return nil, apperrors.NewDatabaseError(err)
		}
	}
	return updated, nil
}

// deriveAction maps the best candidate's similarity to an entity action.
func (s *PreviewService) deriveAction(candidates []types.MatchCandidate) types.EntityAction {
	if len(candidates) == 0 {
		return types.EntityActionCreateNew
	}
	switch top := candidates[0].SimilarityScore; {
	case top >= s.cfg.UseExistingCutoff:
		return types.EntityActionUseExisting
	case top >= s.cfg.MergeCutoff:
		return types.EntityActionMerge
	default:
		return types.EntityActionCreateNew
	}
}

// resolveMatchedSnapshots loads the existing-entity snapshots for previews
// that resolved to use_existing or merge.
func (s *PreviewService) resolveMatchedSnapshots(ctx context.Context, p *types.Preview) error {
	if p.CustomerAction != types.EntityActionCreateNew {
		candidate := p.SelectedCustomerCandidate()
		customer, err := s.store.Customers().GetCustomer(ctx, candidate.ExistingID)
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}
		p.MatchedCustomer = customer
	}
	if p.ProjectAction != types.EntityActionCreateNew {
		candidate := p.SelectedProjectCandidate()
		project, err := s.store.Projects().GetProject(ctx, candidate.ExistingID)
		if err != nil {
			return apperrors.NewDatabaseError(err)
		}
		p.MatchedProject = project
	}
	return nil
}

func (s *PreviewService) autoApproveEligible(p *types.Preview) bool {
	return p.Status == types.PreviewStatusPendingReview &&
		len(p.Conflicts) == 0 &&
		p.OverallConfidence >= s.cfg.AutoApproveThreshold &&
		p.OverallTaskQualityScore >= s.cfg.AutoApproveQualityFloor
}

func buildFeedbackEvent(p *types.Preview, outcome types.FeedbackOutcome, rating *string) *types.FeedbackEvent {
	return &types.FeedbackEvent{
		PreviewID:            p.ID,
		DocumentID:           p.DocumentID,
		Outcome:              outcome,
		HadEdits:             p.HadEdits,
		Diff:                 extractionDiff(p),
		UserRating:           rating,
		ClarificationSkipped: p.ClarificationSkipped,
		OccurredAt:           time.Now().UTC(),
	}
}
