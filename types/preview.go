package types

import "time"

// PreviewStatus is the lifecycle state of a reconciliation proposal.
type PreviewStatus string

const (
	PreviewStatusPendingReview      PreviewStatus = "pending_review"
	PreviewStatusNeedsClarification PreviewStatus = "needs_clarification"
	PreviewStatusApproved           PreviewStatus = "approved" // Terminal
	PreviewStatusRejected           PreviewStatus = "rejected" // Terminal
)

// IsValidTransition checks if a status transition is allowed.
func (ps PreviewStatus) IsValidTransition(next PreviewStatus) bool {
	transitions := map[PreviewStatus][]PreviewStatus{
		PreviewStatusPendingReview: {
			PreviewStatusNeedsClarification,
			PreviewStatusApproved,
			PreviewStatusRejected,
		},
		PreviewStatusNeedsClarification: {
			PreviewStatusPendingReview,
			PreviewStatusRejected,
		},
		PreviewStatusApproved: {}, // Terminal state
		PreviewStatusRejected: {}, // Terminal state
	}

	allowed, exists := transitions[ps]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status admits no further transitions.
func (ps PreviewStatus) IsTerminal() bool {
	return ps == PreviewStatusApproved || ps == PreviewStatusRejected
}

// IsValid checks if the status is a recognized preview status.
func (ps PreviewStatus) IsValid() bool {
	switch ps {
	case PreviewStatusPendingReview, PreviewStatusNeedsClarification,
		PreviewStatusApproved, PreviewStatusRejected:
		return true
	default:
		return false
	}
}

func (ps PreviewStatus) String() string {
	return string(ps)
}

// EntityAction says how an extracted entity resolves against existing data.
type EntityAction string

const (
	EntityActionCreateNew   EntityAction = "create_new"
	EntityActionUseExisting EntityAction = "use_existing"
	EntityActionMerge       EntityAction = "merge"
)

// IsValid checks if the action is recognized.
func (ea EntityAction) IsValid() bool {
	switch ea {
	case EntityActionCreateNew, EntityActionUseExisting, EntityActionMerge:
		return true
	default:
		return false
	}
}

// Preview is the mutable reconciliation proposal assembled from one
// document's extraction. It is the only thing a reviewer edits; durable
// entities are created from it exclusively by the approval executor.
//
// UpdatedAt doubles as the optimistic-concurrency version token: every
// mutation compares the caller's version against the stored one and fails
// with a stale-preview error on mismatch.
type Preview struct {
	ID         string        `json:"id"`
	DocumentID string        `json:"documentId"`
	OwnerID    string        `json:"ownerId"`
	Status     PreviewStatus `json:"status"`

	CustomerData   CustomerFields `json:"customerData"`
	CustomerAction EntityAction   `json:"customerAction"`
	ProjectData    ProjectFields  `json:"projectData"`
	ProjectAction  EntityAction   `json:"projectAction"`

	TasksData     []ExtractedTask `json:"tasksData"`
	TaskQualities []TaskQuality   `json:"taskQualities"`

	InvoiceEstimateData Financials   `json:"invoiceEstimateData"`
	DocumentType        DocumentType `json:"documentType"`

	// ExtractionSnapshot is the parser output the preview was assembled from.
	// It never changes after assembly; the approval-time field diff is
	// computed against it.
	ExtractionSnapshot *RawExtraction `json:"extractionSnapshot,omitempty"`

	// Resolved existing-entity snapshots, present when the action is not
	// create_new.
	MatchedCustomer *Customer `json:"matchedCustomer,omitempty"`
	MatchedProject  *Project  `json:"matchedProject,omitempty"`

	CustomerCandidates []MatchCandidate `json:"customerCandidates,omitempty"`
	ProjectCandidates  []MatchCandidate `json:"projectCandidates,omitempty"`

	Warnings  []string `json:"warnings"`  // Non-blocking
	Conflicts []string `json:"conflicts"` // Blocking; no override path

	CustomerMatchConfidence int  `json:"customerMatchConfidence"`
	ProjectMatchConfidence  int  `json:"projectMatchConfidence"`
	OverallConfidence       int  `json:"overallConfidence"`
	OverallTaskQualityScore int  `json:"overallTaskQualityScore"`
	AutoApproveEligible     bool `json:"autoApproveEligible"`
	ClarificationSkipped    bool `json:"clarificationSkipped"`
	HadEdits                bool `json:"hadEdits"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SelectedCustomerCandidate returns the highest-ranked customer candidate,
// or nil when the extraction matched nothing.
func (p *Preview) SelectedCustomerCandidate() *MatchCandidate {
	if len(p.CustomerCandidates) == 0 {
		return nil
	}
	return &p.CustomerCandidates[0]
}

// SelectedProjectCandidate returns the highest-ranked project candidate, or nil.
func (p *Preview) SelectedProjectCandidate() *MatchCandidate {
	if len(p.ProjectCandidates) == 0 {
		return nil
	}
	return &p.ProjectCandidates[0]
}

// HasFlaggedTasks reports whether any task line still needs clarification.
func (p *Preview) HasFlaggedTasks() bool {
	for _, q := range p.TaskQualities {
		if q.NeedsClarification {
			return true
		}
	}
	return false
}

// CustomerFieldsUpdate carries a partial edit of the preview's customer data.
type CustomerFieldsUpdate struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Company *string `json:"company,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// ProjectFieldsUpdate carries a partial edit of the preview's project data.
type ProjectFieldsUpdate struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	EndDate     *time.Time `json:"endDate,omitempty"`
}

// TaskPatch is a partial edit of one task line, addressed by index.
type TaskPatch struct {
	Index       int     `json:"index" binding:"min=0"`
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Hours       *string `json:"hours,omitempty"`  // decimal string
	Rate        *string `json:"rate,omitempty"`   // decimal string
	Amount      *string `json:"amount,omitempty"` // decimal string
	// ApplySuggestion accepts the stored AI suggestion for this line instead
	// of (or in addition to) manual fields.
	ApplySuggestion bool `json:"applySuggestion,omitempty"`
}

// FinancialsUpdate carries a partial edit of the preview's financial data.
type FinancialsUpdate struct {
	Subtotal *string `json:"subtotal,omitempty"` // decimal string
	TaxRate  *string `json:"taxRate,omitempty"`  // decimal string
	Total    *string `json:"total,omitempty"`    // decimal string
	Currency *string `json:"currency,omitempty"`
}

// PreviewUpdate is the PATCH payload for update_preview_data. All sections
// are optional; task patches never change the number of task lines.
type PreviewUpdate struct {
	CustomerData   *CustomerFieldsUpdate `json:"customerData,omitempty"`
	CustomerAction *EntityAction         `json:"customerAction,omitempty"`
	ProjectData    *ProjectFieldsUpdate  `json:"projectData,omitempty"`
	ProjectAction  *EntityAction         `json:"projectAction,omitempty"`
	Tasks          []TaskPatch           `json:"tasks,omitempty"`
	Financials     *FinancialsUpdate     `json:"financials,omitempty"`
}

// ApprovalResult is returned by the approval executor: the IDs of every
// durable entity materialized from the preview.
type ApprovalResult struct {
	CustomerID string   `json:"customerId"`
	ProjectID  string   `json:"projectId"`
	TaskIDs    []string `json:"taskIds"`
	InvoiceID  string   `json:"invoiceId"`
}
