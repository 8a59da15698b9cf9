// Package quality evaluates extracted task lines for ambiguity and assigns
// clarity scores. Vague or inconsistent lines are flagged for clarification
// before they can drive billing.
package quality

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/vincentrandon/freelance-project-saas/config"
	"github.com/vincentrandon/freelance-project-saas/logger"
	"github.com/vincentrandon/freelance-project-saas/types"
)

// Deductions from the starting clarity score of 100, applied in rule order.
const (
	deductionMissingHours       = 40
	deductionVagueName          = 25
	deductionAmountInconsistent = 30
	deductionGenericDescription = 20
)

// vagueNameWordCount is the word count below which a task name needs a
// description to be considered estimable.
const vagueNameWordCount = 4

// SuggestionProvider asks the AI collaborator for a refined version of a
// flagged task. Implementations must be best-effort and bounded by a
// timeout; analysis never fails because a suggestion could not be fetched.
type SuggestionProvider interface {
	SuggestTask(ctx context.Context, task types.ExtractedTask, issues []string) (*types.TaskSuggestion, error)
}

// Analyzer scores task lines. A nil SuggestionProvider disables suggestions
// entirely; flagged tasks then always require manual clarification.
type Analyzer struct {
	cfg         config.ReconciliationConfig
	suggestions SuggestionProvider
}

// New creates an Analyzer with the given policy and optional suggestion
// provider.
func New(cfg config.ReconciliationConfig, suggestions SuggestionProvider) *Analyzer {
	return &Analyzer{cfg: cfg, suggestions: suggestions}
}

// Analyze evaluates one task line. Rules apply in a fixed order, each
// contributing a deduction; blocking issues (missing hours, amount
// inconsistency) flag the task regardless of the remaining score.
func (a *Analyzer) Analyze(ctx context.Context, task types.ExtractedTask) types.TaskQuality {
	q := types.TaskQuality{ClarityScore: 100}

	if task.Hours.IsZero() {
		q.ClarityScore -= deductionMissingHours
		q.Issues = append(q.Issues, types.IssueNoTimeEstimate)
		q.Blocking = true
	}

	if len(strings.Fields(task.Name)) < vagueNameWordCount && strings.TrimSpace(task.Description) == "" {
		q.ClarityScore -= deductionVagueName
		q.Issues = append(q.Issues, types.IssueVagueName)
	}

	if a.amountInconsistent(task) {
		q.ClarityScore -= deductionAmountInconsistent
		q.Issues = append(q.Issues, types.IssueAmountInconsistent)
		q.Blocking = true
	}

	if a.isFillerOnly(task.Description) {
		q.ClarityScore -= deductionGenericDescription
		q.Issues = append(q.Issues, types.IssueGenericDescription)
	}

	if q.ClarityScore < 0 {
		q.ClarityScore = 0
	}
	q.NeedsClarification = q.ClarityScore < a.cfg.ClarificationThreshold || q.Blocking

	if q.NeedsClarification && a.suggestions != nil {
		suggestion, err := a.suggestions.SuggestTask(ctx, task, q.Issues)
		if err != nil {
			// Best-effort: the task stays flagged for manual clarification.
			logger.GetLogger().Warnw("Task suggestion unavailable",
				"task", task.Name,
				"error", err,
			)
		} else {
			q.AISuggestion = suggestion
		}
	}

	return q
}

// AnalyzeAll evaluates every task line, preserving order. The result is
// always exactly as long as the input; preview task data and qualities stay
// 1:1 by index.
func (a *Analyzer) AnalyzeAll(ctx context.Context, tasks []types.ExtractedTask) []types.TaskQuality {
	qualities := make([]types.TaskQuality, len(tasks))
	for i, task := range tasks {
		qualities[i] = a.Analyze(ctx, task)
	}
	return qualities
}

// amountInconsistent reports whether the stated amount deviates from
// hours*rate by more than the configured tolerance. Only checked when all
// three figures are present.
func (a *Analyzer) amountInconsistent(task types.ExtractedTask) bool {
	if task.Hours.IsZero() || task.Rate.IsZero() || task.Amount.IsZero() {
		return false
	}
	expected := task.Hours.Mul(task.Rate)
	diff := task.Amount.Sub(expected).Abs()
	tolerance := expected.Abs().Mul(decimal.NewFromFloat(a.cfg.AmountTolerancePercent / 100.0))
	return diff.GreaterThan(tolerance)
}

// isFillerOnly reports whether the description consists solely of generic
// filler terms from the configured stop list ("divers", "misc", ...).
func (a *Analyzer) isFillerOnly(description string) bool {
	desc := strings.ToLower(strings.TrimSpace(description))
	if desc == "" {
		return false
	}

	fillerWords := make(map[string]bool)
	for _, term := range a.cfg.FillerTerms {
		for _, w := range strings.Fields(strings.ToLower(term)) {
			fillerWords[w] = true
		}
	}

	for _, word := range strings.Fields(desc) {
		word = strings.Trim(word, ".,;:!?")
		if word == "" {
			continue
		}
		if !fillerWords[word] {
			return false
		}
	}
	return true
}
