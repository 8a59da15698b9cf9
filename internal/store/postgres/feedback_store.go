package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/vincentrandon/freelance-project-saas/internal/store"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// FeedbackStore implements store.FeedbackStore using PostgreSQL. Feedback
// records are the audit copy of the events published to the learning
// collaborator.
type FeedbackStore struct {
	db DB
}

var _ store.FeedbackStore = (*FeedbackStore)(nil)

// NewFeedbackStore creates a new FeedbackStore instance.
func NewFeedbackStore(db DB) *FeedbackStore {
	return &FeedbackStore{db: db}
}

// SaveFeedback inserts an approval/rejection feedback record.
func (s *FeedbackStore) SaveFeedback(ctx context.Context, event *types.FeedbackEvent) (string, error) {
	diffJSON, err := json.Marshal(event.Diff)
	if err != nil {
		return "", fmt.Errorf("failed to marshal feedback diff: %w", err)
	}

	query := `
		INSERT INTO approval_feedback (preview_id, document_id, outcome, had_edits, diff, user_rating, clarification_skipped, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	var id string
	err = s.db.QueryRow(ctx, query,
		event.PreviewID,
		event.DocumentID,
		event.Outcome,
		event.HadEdits,
		diffJSON,
		event.UserRating,
		event.ClarificationSkipped,
		event.OccurredAt,
	).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}
