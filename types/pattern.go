package types

// PatternType classifies a cross-document relationship found over pending
// previews.
type PatternType string

const (
	PatternSameCustomer PatternType = "same_customer"
	PatternSameProject  PatternType = "same_project"
)

// PatternPriority ranks how urgently a pattern deserves reviewer attention.
type PatternPriority string

const (
	PatternPriorityCritical PatternPriority = "critical"
	PatternPriorityHigh     PatternPriority = "high"
	PatternPriorityMedium   PatternPriority = "medium"
)

// Pattern is one cross-document relationship detected over a set of pending
// previews. Detection is read-only; acting on a pattern goes through the
// bulk approve/reject operations.
type Pattern struct {
	Type        PatternType     `json:"type"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Suggestion  string          `json:"suggestion"`
	Priority    PatternPriority `json:"priority"`
	PreviewIDs  []string        `json:"previewIds"`
}

// BulkItemStatus is the per-preview outcome of a bulk operation.
type BulkItemStatus string

const (
	BulkItemApproved BulkItemStatus = "approved"
	BulkItemRejected BulkItemStatus = "rejected"
	BulkItemSkipped  BulkItemStatus = "skipped"
	BulkItemFailed   BulkItemStatus = "failed"
)

// BulkItemResult reports what happened to one preview within a bulk
// operation. Failures are isolated: one item failing never aborts the rest.
type BulkItemResult struct {
	PreviewID string         `json:"previewId"`
	Status    BulkItemStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
}

// BatchSummary gives the reviewer queue counts for the pending workload.
type BatchSummary struct {
	TotalPending        int `json:"totalPending"`
	AutoApproveEligible int `json:"autoApproveEligible"`
	NeedsAttention      int `json:"needsAttention"` // Pending previews with conflicts
	NeedsClarification  int `json:"needsClarification"`
}
