package types

import "github.com/shopspring/decimal"

// Task quality issue strings. Surfaced verbatim to the reviewer.
const (
	IssueNoTimeEstimate     = "No time estimate provided."
	IssueVagueName          = "Task name too vague without description."
	IssueAmountInconsistent = "Amount inconsistent with hours × rate."
	IssueGenericDescription = "Description lacks specific deliverable."
)

// TaskSuggestion is a refined task proposed by the AI collaborator when a
// line needs clarification. Best-effort: absent when the call fails.
type TaskSuggestion struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Hours       decimal.Decimal `json:"hours"`
	Category    string          `json:"category"`
	Confidence  int             `json:"confidence"`
	Reasoning   string          `json:"reasoning"`
}

// TaskQuality is the analyzer verdict for one task line. Entries are kept
// 1:1 with the preview's task lines by index.
type TaskQuality struct {
	ClarityScore       int             `json:"clarityScore"` // 0-100
	NeedsClarification bool            `json:"needsClarification"`
	Issues             []string        `json:"issues"`
	Blocking           bool            `json:"blocking"`
	AISuggestion       *TaskSuggestion `json:"aiSuggestion,omitempty"`
}
