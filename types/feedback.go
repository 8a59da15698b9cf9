package types

import "time"

// FeedbackOutcome is the terminal decision captured by a feedback event.
type FeedbackOutcome string

const (
	FeedbackOutcomeApproved FeedbackOutcome = "approved"
	FeedbackOutcomeRejected FeedbackOutcome = "rejected"
)

// FieldChange records one field that was edited between extraction and the
// terminal decision.
type FieldChange struct {
	Extracted string `json:"extracted"`
	Final     string `json:"final"`
}

// FeedbackEvent is emitted to the learning collaborator once per approval or
// rejection. HadEdits is the implicit quality signal: an approval with no
// edits means the extraction was usable as-is.
type FeedbackEvent struct {
	PreviewID            string                 `json:"previewId"`
	DocumentID           string                 `json:"documentId"`
	Outcome              FeedbackOutcome        `json:"outcome"`
	HadEdits             bool                   `json:"hadEdits"`
	Diff                 map[string]FieldChange `json:"diff,omitempty"`
	UserRating           *string                `json:"userRating,omitempty"`
	ClarificationSkipped bool                   `json:"clarificationSkipped"`
	OccurredAt           time.Time              `json:"occurredAt"`
}
